package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReflectFlatMap(t *testing.T) {
	kvs := []KV{
		{Key: "/root/alpha", Value: "a"},
		{Key: "/root/beta", Value: "b"},
	}
	n := Reflect(kvs)
	require.Equal(t, KindMap, n.Kind)
	require.NotNil(t, n.Map["root"])
	assert.Equal(t, "a", n.Map["root"].Map["alpha"].Leaf)
	assert.Equal(t, "b", n.Map["root"].Map["beta"].Leaf)
}

func TestReflectSequence(t *testing.T) {
	kvs := []KV{
		{Key: "group/000000/name", Value: "agg-01"},
		{Key: "group/000001/name", Value: "agg-02"},
	}
	n := Reflect(kvs)
	group := n.Map["group"]
	require.Equal(t, KindSeq, group.Kind)
	require.Len(t, group.Seq, 2)
	assert.Equal(t, "agg-01", group.Seq[0].Map["name"].Leaf)
	assert.Equal(t, "agg-02", group.Seq[1].Map["name"].Leaf)
}

func TestReflectEmptyInput(t *testing.T) {
	n := Reflect(nil)
	require.Equal(t, KindMap, n.Kind)
	assert.Empty(t, n.Map)
}

func TestReflectIgnoresBlankKeys(t *testing.T) {
	kvs := []KV{{Key: "///", Value: "ignored"}}
	n := Reflect(kvs)
	assert.Empty(t, n.Map)
}

func TestReflectRoundTripWithWalk(t *testing.T) {
	orig := NewMap()
	seq := NewSeq()
	a := NewMap()
	a.Set("name", NewLeaf("agg-01"))
	a.Set("state", NewLeaf("ready"))
	seq.Append(a)
	orig.Set("aggregators", seq)

	kvs := Walk("", orig)
	rebuilt := Reflect(kvs)

	require.NotNil(t, rebuilt.Map["aggregators"])
	require.Len(t, rebuilt.Map["aggregators"].Seq, 1)
	assert.Equal(t, "agg-01", rebuilt.Map["aggregators"].Seq[0].Map["name"].Leaf)
	assert.Equal(t, "ready", rebuilt.Map["aggregators"].Seq[0].Map["state"].Leaf)
}
