package crypto

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	seedRecv = [4]byte{'K', '0', 0x01, 0x02}
	seedSend = [4]byte{'K', '0', 0x03, 0x04}
)

func newPair(t *testing.T) (*AESCryptograph, *AESCryptograph) {
	t.Helper()
	server, err := NewAESCryptograph(AESConfig{
		Side: ServerSide, Version: 83, Subversion: "1", Locale: 8,
		RecvIV: seedRecv, SendIV: seedSend,
	})
	require.NoError(t, err)
	client, err := server.Mirror()
	require.NoError(t, err)
	return server, client
}

func TestShandaRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, n := range []int{0, 1, 2, 15, 16, 255, 256, 1500} {
		data := make([]byte, n)
		r.Read(data)
		orig := bytes.Clone(data)
		shandaEncrypt(data)
		if n > 2 {
			assert.NotEqual(t, orig, data)
		}
		shandaDecrypt(data)
		assert.Equal(t, orig, data, "size %d", n)
	}
}

func TestShuffleIVDeterministic(t *testing.T) {
	a := shuffleIV(seedSend)
	b := shuffleIV(seedSend)
	assert.Equal(t, a, b)
	assert.NotEqual(t, seedSend, a)
	assert.NotEqual(t, a, shuffleIV(a))
}

func TestHeaderDeriveLength(t *testing.T) {
	for _, n := range []int{0, 2, 10, 1456, 0xFFFF} {
		h := makeHeader(n, seedSend, ^uint16(83))
		assert.Equal(t, n, DeriveLength(h))
		assert.True(t, checkHeader(h, seedSend, ^uint16(83)))
		assert.False(t, checkHeader(h, seedRecv, ^uint16(83)))
	}
}

func TestServerToClientRoundTrip(t *testing.T) {
	server, client := newPair(t)
	r := rand.New(rand.NewSource(7))
	// 覆盖chunk边界
	for _, n := range []int{2, 10, 1455, 1456, 1457, 2916, 2917, 5000} {
		plain := make([]byte, n)
		r.Read(plain)
		frame, err := server.Encrypt(plain)
		require.NoError(t, err)
		require.Len(t, frame, n+HeaderSize)
		assert.Equal(t, n, client.DeriveLength(frame[:HeaderSize]))
		assert.False(t, bytes.Equal(plain, frame[HeaderSize:]))

		got, err := client.Decrypt(frame)
		require.NoError(t, err)
		assert.Equal(t, plain, got, "size %d", n)
	}
}

func TestClientToServerRoundTrip(t *testing.T) {
	server, client := newPair(t)
	for i := 0; i < 20; i++ {
		plain := []byte{byte(i), 0x00, 'h', 'i'}
		frame, err := client.Encrypt(plain)
		require.NoError(t, err)
		got, err := server.Decrypt(frame)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	}
}

func TestSameSeedSameOutput(t *testing.T) {
	a, _ := newPair(t)
	b, _ := newPair(t)
	for i := 0; i < 5; i++ {
		fa, err := a.Encrypt([]byte{1, 2, 3, byte(i)})
		require.NoError(t, err)
		fb, err := b.Encrypt([]byte{1, 2, 3, byte(i)})
		require.NoError(t, err)
		assert.Equal(t, fa, fb)
	}
}

func TestSkippedFrameDesyncs(t *testing.T) {
	server, client := newPair(t)
	_, err := server.Encrypt([]byte{1, 0, 1})
	require.NoError(t, err)
	second, err := server.Encrypt([]byte{2, 0, 2})
	require.NoError(t, err)

	_, err = client.Decrypt(second)
	assert.ErrorIs(t, err, ErrHeaderMismatch)
}

func TestDecryptErrors(t *testing.T) {
	server, client := newPair(t)
	_, err := client.Decrypt([]byte{1, 2})
	assert.ErrorIs(t, err, ErrShortFrame)

	frame, _ := server.Encrypt([]byte{1, 0, 9, 9})
	_, err = client.Decrypt(frame[:len(frame)-1])
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestCloseIdempotent(t *testing.T) {
	server, _ := newPair(t)
	require.NoError(t, server.Close())
	require.NoError(t, server.Close())
	_, err := server.Encrypt([]byte{1, 0})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = server.Decrypt(make([]byte, 8))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestHandshake(t *testing.T) {
	server, _ := newPair(t)
	hello := server.Handshake()
	require.NotNil(t, hello)
	assert.Len(t, hello, 2+2+2+1+4+4+1)

	conf, err := ParseHandshake(hello)
	require.NoError(t, err)
	assert.Equal(t, ClientSide, conf.Side)
	assert.Equal(t, uint16(83), conf.Version)
	assert.Equal(t, "1", conf.Subversion)
	assert.Equal(t, byte(8), conf.Locale)
	assert.Equal(t, seedSend, conf.RecvIV)
	assert.Equal(t, seedRecv, conf.SendIV)

	client, err := NewAESCryptograph(conf)
	require.NoError(t, err)
	assert.Nil(t, client.Handshake())
	frame, err := server.Encrypt([]byte{0x11, 0x00})
	require.NoError(t, err)
	got, err := client.Decrypt(frame)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11, 0x00}, got)

	_, err = ParseHandshake(hello[:5])
	assert.ErrorIs(t, err, ErrInvalidHandshake)
}

func TestRandomIV(t *testing.T) {
	a, err := RandomIV()
	require.NoError(t, err)
	b, err := RandomIV()
	require.NoError(t, err)
	// 4字节碰撞概率可以忽略
	assert.NotEqual(t, a, b)
}

func TestPassthrough(t *testing.T) {
	var c Cryptograph = NewPassthrough()
	in := []byte{1, 2, 3}
	out, err := c.Encrypt(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	out[0] = 9
	assert.Equal(t, byte(1), in[0])

	dec, err := c.Decrypt(out)
	require.NoError(t, err)
	assert.Equal(t, out, dec)

	_, isFramer := c.(Framer)
	assert.False(t, isFramer)

	require.NoError(t, c.Close())
	_, err = c.Encrypt(in)
	assert.ErrorIs(t, err, ErrClosed)
}
