package store

import (
	"fmt"
	"sort"
)

// KV is one flat key/value pair in the projection.
type KV struct {
	Key   string
	Value string
}

// Walk flattens a Node tree into an ordered list of key/value pairs under
// prefix, per §4.D's encoding rule: mapping keys become path segments as-is,
// sequence elements become zero-padded (width 6) decimal-index segments so
// lexicographic KV ordering matches numeric sequence ordering, and leaves
// render as their string value. Empty leaves are skipped entirely.
func Walk(prefix string, n *Node) []KV {
	var out []KV
	walk(prefix, n, &out)
	return out
}

func walk(prefix string, n *Node, out *[]KV) {
	if n == nil {
		return
	}
	switch n.Kind {
	case KindLeaf:
		if n.Leaf == "" {
			return
		}
		*out = append(*out, KV{Key: prefix, Value: n.Leaf})
	case KindMap:
		keys := make([]string, 0, len(n.Map))
		for k := range n.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(prefix+"/"+k, n.Map[k], out)
		}
	case KindSeq:
		for i, child := range n.Seq {
			if child == nil {
				continue
			}
			walk(prefix+"/"+seqSegment(i), child, out)
		}
	}
}

func seqSegment(i int) string {
	return fmt.Sprintf("%06d", i)
}
