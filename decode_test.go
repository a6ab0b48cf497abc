package fdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyScalarDecoders(t *testing.T) {
	blob := buildMinimalTreeBlob(t)
	tree, err := Parse(blob)
	require.NoError(t, err)

	uart, ok := tree.Find("/soc/uart@1000")
	require.True(t, ok)

	compat, ok := uart.FindProperty("compatible")
	require.True(t, ok)
	s, ok := compat.AsString()
	require.True(t, ok)
	assert.Equal(t, "vendor,uart", s)

	list, ok := compat.AsStringList()
	require.True(t, ok)
	assert.Equal(t, []string{"vendor,uart"}, list)

	phandle, ok := uart.FindProperty("phandle")
	require.True(t, ok)
	v, ok := phandle.AsU32()
	require.True(t, ok)
	assert.Equal(t, uint32(5), v)

	_, ok = phandle.AsU64()
	assert.False(t, ok)
}

func TestPropertyAsU32Array(t *testing.T) {
	blob := buildMinimalTreeBlob(t)
	tree, err := Parse(blob)
	require.NoError(t, err)

	uart, ok := tree.Find("/soc/uart@1000")
	require.True(t, ok)
	reg, ok := uart.FindProperty("reg")
	require.True(t, ok)

	arr, ok := reg.AsU32Array()
	require.True(t, ok)
	assert.Equal(t, []uint32{0x1000, 0x10}, arr)

	// 2 cells under a stride-3 layout is less than one whole entry:
	// floor division yields zero entries, not a failure.
	triplets, ok := reg.ReadTriplets(Layout3{A: 1, B: 1, C: 1})
	require.True(t, ok)
	assert.Empty(t, triplets)
}

func TestAsU32ArrayTruncatesTrailingBytes(t *testing.T) {
	tree := Empty()
	root := tree.Root()
	prop, err := tree.CreateProp(root, "odd", []byte{0, 0, 0, 1, 0, 0})
	require.NoError(t, err)

	arr, ok := prop.AsU32Array()
	require.True(t, ok)
	assert.Equal(t, []uint32{1}, arr)
}

func TestReadPairsFloorsPartialTrailingEntry(t *testing.T) {
	tree := Empty()
	root := tree.Root()
	value := make([]byte, 12)
	putU32(value[0:4], 1)
	putU32(value[4:8], 2)
	putU32(value[8:12], 3) // one cell short of a second {A,B} pair
	prop, err := tree.CreateProp(root, "reg", value)
	require.NoError(t, err)

	pairs, ok := prop.ReadPairs(Layout2{A: 1, B: 1})
	require.True(t, ok)
	require.Len(t, pairs, 1)
	assert.Equal(t, Pair{A: 1, B: 2}, pairs[0])
}

func TestReadTripletsAndQuads(t *testing.T) {
	tree := Empty()
	root := tree.Root()

	rangesValue := make([]byte, 12)
	putU32(rangesValue[0:4], 1)
	putU32(rangesValue[4:8], 2)
	putU32(rangesValue[8:12], 3)
	prop, err := tree.CreateProp(root, "ranges", rangesValue)
	require.NoError(t, err)

	triplets, ok := prop.ReadTriplets(Layout3{A: 1, B: 1, C: 1})
	require.True(t, ok)
	require.Len(t, triplets, 1)
	assert.Equal(t, Triplet{A: 1, B: 2, C: 3}, triplets[0])

	quadValue := make([]byte, 16)
	for i := 0; i < 4; i++ {
		putU32(quadValue[i*4:i*4+4], uint32(i+1))
	}
	quadProp, err := tree.CreateProp(root, "quads", quadValue)
	require.NoError(t, err)
	quads, ok := quadProp.ReadQuads(Layout4{A: 1, B: 1, C: 1, D: 1})
	require.True(t, ok)
	require.Len(t, quads, 1)
	assert.Equal(t, Quad{A: 1, B: 2, C: 3, D: 4}, quads[0])
}

func TestAsStringListMalformed(t *testing.T) {
	tree := Empty()
	root := tree.Root()
	prop, err := tree.CreateProp(root, "bad", []byte("no-trailing-nul"))
	require.NoError(t, err)

	_, ok := prop.AsStringList()
	assert.False(t, ok)
	_, ok = prop.AsString()
	assert.False(t, ok)
}
