package tcp_test

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MapleGits/MapleGame/network"
	"github.com/MapleGits/MapleGame/network/dispatch"
	"github.com/MapleGits/MapleGame/network/packet"
	"github.com/MapleGits/MapleGame/network/session"
	"github.com/MapleGits/MapleGame/network/tcp"
)

const (
	opPing uint16 = 0x0011
	opPong uint16 = 0x0012
)

func newServer(t *testing.T, maxConn int) *tcp.Server {
	t.Helper()
	reg := dispatch.NewRegistry()
	require.NoError(t, reg.RegisterFunc(opPing, "Ping", func(a dispatch.Agent, p *packet.Packet) error {
		return a.Send(packet.New(opPong).WriteBytes(p.Payload()))
	}))
	d := dispatch.NewDispatcher(
		dispatch.NewOpcodeSet(map[uint16]string{opPing: "Ping"}),
		dispatch.NewOpcodeSet(map[uint16]string{opPong: "Pong"}),
		reg, nil)

	server := &tcp.Server{Addr: "127.0.0.1:0", MaxConnNum: maxConn}
	server.NewSessionFunc = func(conn net.Conn) (network.Session, error) {
		return session.New(conn, session.Options{Dispatcher: d, ServerAlive: server}), nil
	}
	require.NoError(t, server.Start())
	t.Cleanup(server.Close)
	return server
}

func TestEcho(t *testing.T) {
	server := newServer(t, 0)
	conn, err := net.Dial("tcp", server.ListenAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(packet.New(opPing).WriteString("hi").Bytes())
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	p, err := packet.Parse(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, opPong, p.Opcode())
	s, err := p.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "hi", s)
	assert.Equal(t, 1, server.ConnNum())
}

func TestMaxConn(t *testing.T) {
	server := newServer(t, 1)
	first, err := net.Dial("tcp", server.ListenAddr().String())
	require.NoError(t, err)
	defer first.Close()
	require.Eventually(t, func() bool { return server.ConnNum() == 1 }, 3*time.Second, 5*time.Millisecond)

	second, err := net.Dial("tcp", server.ListenAddr().String())
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, err = second.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 1, server.ConnNum())
}

func TestCloseStopsSessions(t *testing.T) {
	server := newServer(t, 0)
	conn, err := net.Dial("tcp", server.ListenAddr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return server.ConnNum() == 1 }, 3*time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		server.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("server close blocked")
	}
	assert.False(t, server.Alive())
	assert.Equal(t, 0, server.ConnNum())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, err = conn.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
	// 重复关闭无副作用
	server.Close()
}
