package topology

import "fmt"

// InvalidSpecError is returned by Expand for malformed range notation or an
// expansion that yields zero names.
type InvalidSpecError struct {
	Spec   string
	Reason string
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid name spec %q: %s", e.Spec, e.Reason)
}

// InvalidIntervalError is returned by ParseInterval for an unparsable
// number or unrecognized unit suffix.
type InvalidIntervalError struct {
	Input  string
	Reason string
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("invalid interval %q: %s", e.Input, e.Reason)
}

// MissingAttributeError is returned by the Model validator when a required
// key is absent from a section entry.
type MissingAttributeError struct {
	Section string
	Key     string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("%s: missing required attribute %q", e.Section, e.Key)
}

// ArityMismatchError is returned when the expanded name count disagrees
// with the product of the other expanded dimensions in a section entry.
type ArityMismatchError struct {
	Section string
	Detail  string
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("%s: arity mismatch: %s", e.Section, e.Detail)
}

// DuplicateNameError is returned when two entities within the same
// namespace (an aggregator group, an updater/store scope) share a name.
type DuplicateNameError struct {
	Section string
	Group   string
	Name    string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%s: duplicate name %q in group %q", e.Section, e.Name, e.Group)
}

// ConflictingModeError is returned when an updater specifies both `auto`
// and `push`, which are mutually exclusive.
type ConflictingModeError struct {
	Group   string
	Updater string
}

func (e *ConflictingModeError) Error() string {
	return fmt.Sprintf("updater %q in group %q: auto and push are mutually exclusive", e.Updater, e.Group)
}
