package packet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenParse(t *testing.T) {
	out := New(0x0011).
		WriteUint8(7).
		WriteBool(true).
		WriteInt16(-2).
		WriteInt32(123456).
		WriteInt64(-9).
		WriteString("Maple").
		WriteBytes([]byte{0xaa, 0xbb}).
		WriteZero(2)
	out.Finalize()
	assert.Equal(t, 0, out.Position())
	assert.Equal(t, uint16(0x0011), out.Opcode())

	in, err := Parse(append([]byte(nil), out.Bytes()...))
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0011), in.Opcode())

	u8, err := in.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(7), u8)
	b, _ := in.ReadBool()
	assert.True(t, b)
	i16, _ := in.ReadInt16()
	assert.Equal(t, int16(-2), i16)
	i32, _ := in.ReadInt32()
	assert.Equal(t, int32(123456), i32)
	i64, _ := in.ReadInt64()
	assert.Equal(t, int64(-9), i64)
	s, err := in.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "Maple", s)
	raw, _ := in.ReadBytes(2)
	assert.Equal(t, []byte{0xaa, 0xbb}, raw)
	require.NoError(t, in.Skip(2))
	assert.Equal(t, 0, in.Remaining())

	_, err = in.ReadUint8()
	assert.ErrorIs(t, err, ErrShortRead)
}

func TestParseTooShort(t *testing.T) {
	_, err := Parse([]byte{1})
	assert.ErrorIs(t, err, ErrNoOpcode)

	p, err := Parse([]byte{0x34, 0x12})
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), p.Opcode())
	assert.Empty(t, p.Payload())
}

func TestLittleEndianLayout(t *testing.T) {
	p := New(0x0102).WriteUint32(0x0A0B0C0D)
	assert.Equal(t, []byte{0x02, 0x01, 0x0D, 0x0C, 0x0B, 0x0A}, p.Bytes())
	assert.Equal(t, []byte{0x0D, 0x0C, 0x0B, 0x0A}, p.Payload())
}

func TestPatchLength(t *testing.T) {
	p := New(1)
	p.WriteUint16(0)
	p.WriteBytes([]byte{1, 2, 3})
	end := p.Position()
	p.SetPosition(2)
	p.WriteUint16(3)
	p.SetPosition(end)
	assert.Equal(t, []byte{1, 0, 3, 0, 1, 2, 3}, p.Bytes())
	assert.Equal(t, 7, p.Len())
}

func TestRewind(t *testing.T) {
	p, _ := Parse([]byte{5, 0, 9, 0})
	v, _ := p.ReadUint16()
	assert.Equal(t, uint16(9), v)
	p.Rewind()
	v, _ = p.ReadUint16()
	assert.Equal(t, uint16(9), v)
}

func TestLargeWriteGrows(t *testing.T) {
	p := New(1).WriteBytes(make([]byte, 1000))
	assert.Equal(t, 1002, p.Len())
	assert.Panics(t, func() { p.WriteString(strings.Repeat("x", 70000)) })
	assert.Equal(t, "packet(0x0001, 1002 bytes)", p.String())
}

func TestCloneIsIndependent(t *testing.T) {
	p := New(0x0044).WriteString("notice")
	c := p.Clone()
	assert.Equal(t, p.Bytes(), c.Bytes())
	assert.Equal(t, p.Position(), c.Position())

	c.Finalize()
	c.SetPosition(OpcodeSize)
	c.WriteUint16(0)
	assert.NotEqual(t, p.Bytes(), c.Bytes())
	assert.Equal(t, 10, p.Position())
	s, err := Parse(p.Bytes())
	require.NoError(t, err)
	str, err := s.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "notice", str)
}
