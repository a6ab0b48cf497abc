package fdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateChildAndDuplicate(t *testing.T) {
	tree := Empty()
	root := tree.Root()

	soc, err := tree.CreateChild(root, "soc")
	require.NoError(t, err)
	assert.Equal(t, "soc", soc.Name())
	assert.Equal(t, root, soc.Parent())

	_, err = tree.CreateChild(root, "soc")
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestCreateSibling(t *testing.T) {
	tree := Empty()
	root := tree.Root()
	a, err := tree.CreateChild(root, "a")
	require.NoError(t, err)

	b, err := tree.CreateSibling(a, "b")
	require.NoError(t, err)
	assert.Equal(t, b, a.NextSibling())

	_, err = tree.CreateSibling(root, "x")
	assert.ErrorIs(t, err, ErrSiblingOfRoot)

	_, err = tree.CreateSibling(a, "b")
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestFindOrCreateNode(t *testing.T) {
	tree := Empty()

	node, err := tree.FindOrCreateNode("/soc/uart@1000")
	require.NoError(t, err)
	assert.Equal(t, "uart@1000", node.Name())

	again, err := tree.FindOrCreateNode("/soc/uart@1000")
	require.NoError(t, err)
	assert.Equal(t, node, again)
}

func TestCreateAndFindOrCreateProp(t *testing.T) {
	tree := Empty()
	root := tree.Root()

	prop, err := tree.CreateProp(root, "model", []byte("board\x00"))
	require.NoError(t, err)
	s, _ := prop.AsString()
	assert.Equal(t, "board", s)

	_, err = tree.CreateProp(root, "model", []byte("other\x00"))
	assert.ErrorIs(t, err, ErrDuplicateName)

	updated, err := tree.FindOrCreateProp(root, "model", []byte("newboard\x00"))
	require.NoError(t, err)
	s, _ = updated.AsString()
	assert.Equal(t, "newboard", s)
}

func TestWritePropHelpers(t *testing.T) {
	tree := Empty()
	root := tree.Root()

	_, err := tree.WritePropU32(root, "count", 7)
	require.NoError(t, err)
	p, ok := root.FindProperty("count")
	require.True(t, ok)
	v, _ := p.AsU32()
	assert.Equal(t, uint32(7), v)

	_, err = tree.WritePropU64(root, "base", 0x100000000)
	require.NoError(t, err)
	p, ok = root.FindProperty("base")
	require.True(t, ok)
	v64, _ := p.AsU64()
	assert.Equal(t, uint64(0x100000000), v64)

	_, err = tree.WritePropStringList(root, "compatible", []string{"a,b", "c,d"})
	require.NoError(t, err)
	p, ok = root.FindProperty("compatible")
	require.True(t, ok)
	list, _ := p.AsStringList()
	assert.Equal(t, []string{"a,b", "c,d"}, list)
}

func TestWritePairsTripletsQuadsRoundTrip(t *testing.T) {
	tree := Empty()
	root := tree.Root()

	pairsIn := []Pair{{A: 0x1000, B: 0x10}, {A: 0x2000, B: 0x20}}
	pairProp, err := tree.WritePairs(root, "reg", Layout2{A: 1, B: 1}, pairsIn)
	require.NoError(t, err)
	pairsOut, ok := pairProp.ReadPairs(Layout2{A: 1, B: 1})
	require.True(t, ok)
	assert.Equal(t, pairsIn, pairsOut)

	tripletsIn := []Triplet{{A: 1, B: 2, C: 3}}
	tripletProp, err := tree.WriteTriplets(root, "ranges", Layout3{A: 1, B: 1, C: 1}, tripletsIn)
	require.NoError(t, err)
	tripletsOut, ok := tripletProp.ReadTriplets(Layout3{A: 1, B: 1, C: 1})
	require.True(t, ok)
	assert.Equal(t, tripletsIn, tripletsOut)

	quadsIn := []Quad{{A: 1, B: 2, C: 3, D: 4}}
	quadProp, err := tree.WriteQuads(root, "quads", Layout4{A: 1, B: 1, C: 1, D: 1}, quadsIn)
	require.NoError(t, err)
	quadsOut, ok := quadProp.ReadQuads(Layout4{A: 1, B: 1, C: 1, D: 1})
	require.True(t, ok)
	assert.Equal(t, quadsIn, quadsOut)
}

func TestWritePairsWideAddressCells(t *testing.T) {
	tree := Empty()
	root := tree.Root()

	pairsIn := []Pair{{A: 0x100000000, B: 0x10}}
	prop, err := tree.WritePairs(root, "reg", Layout2{A: 2, B: 1}, pairsIn)
	require.NoError(t, err)

	pairsOut, ok := prop.ReadPairs(Layout2{A: 2, B: 1})
	require.True(t, ok)
	assert.Equal(t, pairsIn, pairsOut)
}

func TestWriteU32Array(t *testing.T) {
	tree := Empty()
	root := tree.Root()

	prop, err := tree.WriteU32Array(root, "cells", []uint32{1, 2, 3})
	require.NoError(t, err)
	arr, ok := prop.AsU32Array()
	require.True(t, ok)
	assert.Equal(t, []uint32{1, 2, 3}, arr)
}

func TestPhandleRegistrationOnMutate(t *testing.T) {
	tree := Empty()
	root := tree.Root()

	_, err := tree.WritePropU32(root, "phandle", 42)
	require.NoError(t, err)

	node, ok := tree.FindPhandle(42)
	require.True(t, ok)
	assert.Equal(t, root, node)

	handle, ok := root.Phandle()
	require.True(t, ok)
	assert.Equal(t, uint32(42), handle)
}

func TestDestroyProp(t *testing.T) {
	tree := Empty()
	root := tree.Root()
	prop, err := tree.CreateProp(root, "temp", []byte{1})
	require.NoError(t, err)

	require.NoError(t, tree.DestroyProp(prop))
	_, ok := root.FindProperty("temp")
	assert.False(t, ok)
}

func TestDestroyNode(t *testing.T) {
	tree := Empty()
	root := tree.Root()
	a, err := tree.CreateChild(root, "a")
	require.NoError(t, err)
	_, err = tree.CreateChild(root, "b")
	require.NoError(t, err)

	require.NoError(t, tree.DestroyNode(a))
	_, ok := root.FindChild("a")
	assert.False(t, ok)
	_, ok = root.FindChild("b")
	assert.True(t, ok)

	err = tree.DestroyNode(root)
	assert.ErrorIs(t, err, ErrCannotDestroyRoot)
}

func TestDestroyMiddleSibling(t *testing.T) {
	tree := Empty()
	root := tree.Root()
	a, err := tree.CreateChild(root, "a")
	require.NoError(t, err)
	b, err := tree.CreateSibling(a, "b")
	require.NoError(t, err)
	_, err = tree.CreateSibling(b, "c")
	require.NoError(t, err)

	require.NoError(t, tree.DestroyNode(b))
	assert.Equal(t, "c", a.NextSibling().Name())
}
