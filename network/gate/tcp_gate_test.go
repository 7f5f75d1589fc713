package gate

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MapleGits/MapleGame/config"
	"github.com/MapleGits/MapleGame/network/crypto"
	"github.com/MapleGits/MapleGame/network/dispatch"
	"github.com/MapleGits/MapleGame/network/packet"
	"github.com/MapleGits/MapleGame/network/session"
)

const (
	opPing   uint16 = 0x0011
	opPong   uint16 = 0x0012
	opNotice uint16 = 0x0044
)

func newDispatcher(t *testing.T) *dispatch.Dispatcher {
	t.Helper()
	reg := dispatch.NewRegistry()
	require.NoError(t, reg.RegisterFunc(opPing, "Ping", func(a dispatch.Agent, p *packet.Packet) error {
		return a.Send(packet.New(opPong).WriteBytes(p.Payload()))
	}))
	return dispatch.NewDispatcher(
		dispatch.NewOpcodeSet(map[uint16]string{opPing: "Ping"}),
		dispatch.NewOpcodeSet(map[uint16]string{opPong: "Pong", opNotice: "Notice"}),
		reg, nil)
}

func startGate(t *testing.T, gate *TcpGate) context.CancelFunc {
	t.Helper()
	require.NoError(t, gate.OnInit())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		gate.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func dialClient(t *testing.T, gate *TcpGate) (net.Conn, *crypto.AESCryptograph) {
	t.Helper()
	conn, err := net.Dial("tcp", gate.ListenAddr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	head := make([]byte, 2)
	_, err = io.ReadFull(conn, head)
	require.NoError(t, err)
	hello := make([]byte, 2+int(binary.LittleEndian.Uint16(head)))
	copy(hello, head)
	_, err = io.ReadFull(conn, hello[2:])
	require.NoError(t, err)
	conf, err := crypto.ParseHandshake(hello)
	require.NoError(t, err)
	assert.Equal(t, uint16(83), conf.Version)
	client, err := crypto.NewAESCryptograph(conf)
	require.NoError(t, err)
	return conn, client
}

func readPacket(t *testing.T, conn net.Conn, c crypto.Cryptograph) *packet.Packet {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	frame := make([]byte, crypto.HeaderSize)
	_, err := io.ReadFull(conn, frame)
	require.NoError(t, err)
	frame = append(frame, make([]byte, crypto.DeriveLength(frame))...)
	_, err = io.ReadFull(conn, frame[crypto.HeaderSize:])
	require.NoError(t, err)
	plain, err := c.Decrypt(frame)
	require.NoError(t, err)
	p, err := packet.Parse(plain)
	require.NoError(t, err)
	return p
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, _, err := config.Load("", nil)
	require.NoError(t, err)
	cfg.Listen = "127.0.0.1:0"
	cfg.Title = "Channel"
	return cfg
}

func TestGateEchoAndRegistry(t *testing.T) {
	registered := make(chan string, 1)
	gate := FromConfig(testConfig(t), newDispatcher(t), nil)
	gate.Hooks.OnRegister = func(s *session.Session) error {
		registered <- s.ID()
		return nil
	}
	cancel := startGate(t, gate)
	conn, client := dialClient(t, gate)

	var id string
	select {
	case id = <-registered:
	case <-time.After(3 * time.Second):
		t.Fatal("session not registered")
	}
	s, ok := gate.Session(id)
	require.True(t, ok)
	assert.Equal(t, "Channel", s.Title())
	assert.Equal(t, 1, gate.SessionNum())

	frame, err := client.Encrypt(packet.New(opPing).WriteString("hi").Bytes())
	require.NoError(t, err)
	_, err = conn.Write(frame)
	require.NoError(t, err)
	pong := readPacket(t, conn, client)
	assert.Equal(t, opPong, pong.Opcode())

	bc := packet.New(opNotice).WriteString("maintenance")
	pos := bc.Position()
	gate.Broadcast(bc)
	assert.Equal(t, pos, bc.Position())
	notice := readPacket(t, conn, client)
	assert.Equal(t, opNotice, notice.Opcode())
	msg, err := notice.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "maintenance", msg)

	cancel()
	require.Eventually(t, func() bool { return gate.SessionNum() == 0 }, 3*time.Second, 5*time.Millisecond)
}

func TestGatePassthrough(t *testing.T) {
	cfg := testConfig(t)
	cfg.Crypto.Mode = config.CryptoNone
	gate := FromConfig(cfg, newDispatcher(t), nil)
	startGate(t, gate)

	conn, err := net.Dial("tcp", gate.ListenAddr().String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write(packet.New(opPing).WriteUint32(7).Bytes())
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	p, err := packet.Parse(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, opPong, p.Opcode())
	v, err := p.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(7), v)
}

func TestGateInitErrors(t *testing.T) {
	assert.Error(t, (&TcpGate{Dispatcher: newDispatcher(t)}).OnInit())
	assert.Error(t, (&TcpGate{Addr: "127.0.0.1:0"}).OnInit())
}
