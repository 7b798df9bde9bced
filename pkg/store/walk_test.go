package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkLeaf(t *testing.T) {
	kvs := Walk("prefix", NewLeaf("value"))
	require.Len(t, kvs, 1)
	assert.Equal(t, KV{Key: "prefix", Value: "value"}, kvs[0])
}

func TestWalkSkipsEmptyLeaves(t *testing.T) {
	kvs := Walk("prefix", NewLeaf(""))
	assert.Empty(t, kvs)
}

func TestWalkMapSortsKeys(t *testing.T) {
	n := NewMap()
	n.Set("zeta", NewLeaf("z"))
	n.Set("alpha", NewLeaf("a"))
	n.Set("mid", NewLeaf("m"))

	kvs := Walk("root", n)
	require.Len(t, kvs, 3)
	assert.Equal(t, "root/alpha", kvs[0].Key)
	assert.Equal(t, "root/mid", kvs[1].Key)
	assert.Equal(t, "root/zeta", kvs[2].Key)
}

func TestWalkSeqZeroPaddedIndices(t *testing.T) {
	seq := NewSeq()
	seq.Append(NewLeaf("first"))
	seq.Append(NewLeaf("second"))

	kvs := Walk("group", seq)
	require.Len(t, kvs, 2)
	assert.Equal(t, "group/000000", kvs[0].Key)
	assert.Equal(t, "group/000001", kvs[1].Key)
}

func TestWalkNested(t *testing.T) {
	root := NewMap()
	aggs := NewMap()
	seq := NewSeq()
	a := NewMap()
	a.Set("name", NewLeaf("agg-01"))
	a.Set("state", NewLeaf("ready"))
	seq.Append(a)
	aggs.Set("group-a", seq)
	root.Set("aggregators", aggs)

	kvs := Walk("cluster", root)
	keys := make([]string, len(kvs))
	for i, kv := range kvs {
		keys[i] = kv.Key
	}
	assert.Contains(t, keys, "cluster/aggregators/group-a/000000/name")
	assert.Contains(t, keys, "cluster/aggregators/group-a/000000/state")
}

func TestWalkNilNode(t *testing.T) {
	assert.Empty(t, Walk("prefix", nil))
}
