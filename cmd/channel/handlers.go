package main

import (
	"errors"
	"time"

	"go.uber.org/atomic"

	"github.com/MapleGits/MapleGame/network/dispatch"
	"github.com/MapleGits/MapleGame/network/packet"
	"github.com/MapleGits/MapleGame/network/session"
)

const (
	recvPong     uint16 = 0x0018
	recvHeartbit uint16 = 0x00B5

	sendPing         uint16 = 0x0011
	sendServerNotice uint16 = 0x0044

	pingInterval = 15 * time.Second
	// 连续多少个周期收不到pong就断开
	pingTolerance = 4
)

var (
	recvOps = map[uint16]string{
		recvPong:     "Pong",
		recvHeartbit: "Heartbit",
	}
	sendOps = map[uint16]string{
		sendPing:         "Ping",
		sendServerNotice: "ServerNotice",
	}
)

// clientState 存在session的UserData里
type clientState struct {
	lastPong atomic.Time
}

func stateOf(a dispatch.Agent) (*clientState, error) {
	st, ok := a.UserData().(*clientState)
	if !ok {
		return nil, errors.New("client state missing")
	}
	return st, nil
}

func newDispatcher(tracer *dispatch.Tracer) (*dispatch.Dispatcher, error) {
	reg := dispatch.NewRegistry()
	err := errors.Join(
		reg.RegisterFunc(recvPong, "PongHandler", handlePong),
		reg.RegisterFunc(recvHeartbit, "HeartbitHandler", handlePong),
	)
	if err != nil {
		return nil, err
	}
	d := dispatch.NewDispatcher(dispatch.NewOpcodeSet(recvOps), dispatch.NewOpcodeSet(sendOps), reg, tracer)
	d.Notice = func(err error) *packet.Packet {
		return packet.New(sendServerNotice).WriteUint8(1).WriteString("Your request could not be processed.")
	}
	return d, nil
}

func handlePong(a dispatch.Agent, _ *packet.Packet) error {
	st, err := stateOf(a)
	if err != nil {
		return err
	}
	st.lastPong.Store(time.Now())
	return nil
}

// keepAliveHooks 连接建立后定时ping，长时间没有pong的连接主动断开
func keepAliveHooks() session.Hooks {
	return session.Hooks{
		OnRegister: func(s *session.Session) error {
			st := &clientState{}
			st.lastPong.Store(time.Now())
			s.SetUserData(st)
			go keepAlive(s, st)
			return nil
		},
		OnTerminate: func(s *session.Session) error {
			s.Logger().Debug("terminated, idle for %v", time.Since(clientStateTime(s)))
			return nil
		},
	}
}

func clientStateTime(s *session.Session) time.Time {
	if st, ok := s.UserData().(*clientState); ok {
		return st.lastPong.Load()
	}
	return time.Time{}
}

func keepAlive(s *session.Session, st *clientState) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.Context().Done():
			return
		case <-ticker.C:
			if time.Since(st.lastPong.Load()) > pingInterval*pingTolerance {
				s.Logger().Info("no pong for %v, closing", time.Since(st.lastPong.Load()))
				s.Close()
				return
			}
			if err := s.Send(packet.New(sendPing)); err != nil {
				s.Logger().Warn("send ping: %v", err)
			}
		}
	}
}
