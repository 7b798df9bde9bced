package store

import (
	"strconv"
	"strings"
)

// Reflect rebuilds a Node tree from a flat, prefix-stripped key range.
// Each key is split on "/"; a segment composed entirely of decimal digits
// denotes a sequence index, any other segment denotes a mapping key. The
// kind of an intermediate container is decided by looking one segment
// ahead, exactly as the digit classification of the *next* segment to be
// inserted into it (§4.D, §9).
func Reflect(kvs []KV) *Node {
	root := NewMap()
	for _, kv := range kvs {
		key := strings.Trim(kv.Key, "/")
		if key == "" {
			continue
		}
		insert(root, strings.Split(key, "/"), kv.Value)
	}
	return root
}

func insert(root *Node, segs []string, value string) {
	cur := root
	for i, seg := range segs {
		last := i == len(segs)-1
		if last {
			if isDigitSegment(seg) {
				idx, _ := strconv.Atoi(seg)
				growSeq(cur, idx)
				cur.Seq[idx] = NewLeaf(value)
			} else {
				if cur.Map == nil {
					cur.Map = map[string]*Node{}
				}
				cur.Map[seg] = NewLeaf(value)
			}
			return
		}

		nextIsDigit := isDigitSegment(segs[i+1])
		if isDigitSegment(seg) {
			idx, _ := strconv.Atoi(seg)
			growSeq(cur, idx)
			if cur.Seq[idx] == nil {
				cur.Seq[idx] = newContainer(nextIsDigit)
			}
			cur = cur.Seq[idx]
		} else {
			if cur.Map == nil {
				cur.Map = map[string]*Node{}
			}
			child, ok := cur.Map[seg]
			if !ok {
				child = newContainer(nextIsDigit)
				cur.Map[seg] = child
			}
			cur = child
		}
	}
}

func growSeq(n *Node, idx int) {
	for len(n.Seq) <= idx {
		n.Seq = append(n.Seq, nil)
	}
}

func newContainer(isSeq bool) *Node {
	if isSeq {
		return NewSeq()
	}
	return NewMap()
}

func isDigitSegment(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
