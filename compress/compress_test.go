package compress

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteRead_ByteAligned(t *testing.T) {
	c := New()
	c.Write([]byte{0xAB, 0xCD}, 16)
	require.Equal(t, uint32(2), c.DataSize())
	require.Equal(t, []byte{0xAB, 0xCD}, c.Data())

	d := NewDecompressor(c.Data())
	out := make([]byte, 2)
	d.Read(out, 16)
	require.Equal(t, []byte{0xAB, 0xCD}, out)
}

func TestWriteRead_NonByteAligned(t *testing.T) {
	c := New()
	// 5 bits: 0b10110... from 0b10110000
	c.Write([]byte{0b10110000}, 5)
	require.Equal(t, uint32(1), c.DataSize())

	d := NewDecompressor(c.Data())
	out := make([]byte, 1)
	d.Read(out, 5)
	require.Equal(t, byte(0b10110000), out[0]&0b11111000)
}

func TestWrite_MultipleRunsPackConsecutively(t *testing.T) {
	c := New()
	c.Write([]byte{0b11100000}, 3) // "111"
	c.Write([]byte{0b10100000}, 3) // "101"
	// packed bits: 111101 00000000...
	require.Equal(t, uint32(1), c.DataSize())
	require.Equal(t, byte(0b11110100), c.Data()[0])
}

func TestDataSize_RoundsUpToWholeByte(t *testing.T) {
	c := New()
	c.Write([]byte{0xFF}, 1)
	require.Equal(t, uint32(1), c.DataSize())
}

func TestReserve_GrowsBufferWithoutChangingSize(t *testing.T) {
	c := New()
	c.Reserve(64)
	require.Equal(t, uint32(0), c.DataSize())
}

func TestReset_DiscardsWrittenData(t *testing.T) {
	c := New()
	c.Write([]byte{0xFF}, 8)
	c.Reset()
	require.Equal(t, uint32(0), c.DataSize())
	c.Write([]byte{0x01}, 8)
	require.Equal(t, []byte{0x01}, c.Data())
}

func TestGrowsPastInitialIncrement(t *testing.T) {
	c := New()
	big := make([]byte, defaultIncrement+4)
	for i := range big {
		big[i] = 0xFF
	}
	c.Write(big, uint32(len(big))*8)
	require.Equal(t, uint32(len(big)), c.DataSize())
	require.Equal(t, big, c.Data())
}
