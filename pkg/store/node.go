package store

// Kind tags the variant held by a Node: a mapping, an ordered sequence, or
// a scalar leaf. See §9's design note on dynamic key/value reflection.
type Kind int

const (
	KindMap Kind = iota
	KindSeq
	KindLeaf
)

// Node is the tagged-variant tree that both Walk and Reflect operate on.
// It is finite, acyclic, and owned by whichever routine produced it until
// handed off (Walk consumes one to build a KV list; Reflect builds one from
// a KV list for the Controller to convert into a DesiredState).
type Node struct {
	Kind Kind
	Map  map[string]*Node
	Seq  []*Node
	Leaf string
}

// NewMap returns an empty mapping node.
func NewMap() *Node {
	return &Node{Kind: KindMap, Map: map[string]*Node{}}
}

// NewSeq returns an empty sequence node.
func NewSeq() *Node {
	return &Node{Kind: KindSeq}
}

// NewLeaf returns a leaf node holding the given string rendering.
func NewLeaf(v string) *Node {
	return &Node{Kind: KindLeaf, Leaf: v}
}

// Set stores a child under a mapping key, initializing the Map if needed.
// It skips empty/falsy leaves, as §4.D requires.
func (n *Node) Set(key string, child *Node) {
	if child == nil || (child.Kind == KindLeaf && child.Leaf == "") {
		return
	}
	if n.Map == nil {
		n.Map = map[string]*Node{}
	}
	n.Map[key] = child
}

// Append adds a child to a sequence node, skipping empty/falsy leaves.
func (n *Node) Append(child *Node) {
	if child == nil || (child.Kind == KindLeaf && child.Leaf == "") {
		return
	}
	n.Seq = append(n.Seq, child)
}
