package session

import (
	"fmt"
	"time"

	"github.com/MapleGits/MapleGame/network/metrics"
	"github.com/MapleGits/MapleGame/network/packet"
)

// Send 加密并写入socket，多个协程同时调用时整帧串行
// 会话不在Active状态时静默丢弃
func (s *Session) Send(p *packet.Packet) error {
	s.sendLock.Lock()
	defer s.sendLock.Unlock()
	if !s.alive.Load() || s.State() != Active {
		return nil
	}
	p.Finalize()
	frame, err := s.cipher.Encrypt(p.Bytes())
	if err != nil {
		return fmt.Errorf("encrypt %v: %w", p, err)
	}
	if err := s.write(frame); err != nil {
		// 写了一半的帧会让对端的iv错位，只能断开
		s.logger.Warn("write %v: %v", p, err)
		s.Stop()
		return err
	}
	s.metrics.Packet(metrics.DirectionOut, len(frame))
	s.dispatcher.TraceSend(s, p)
	return nil
}

// writeRaw 不经过cryptograph，只用于握手
func (s *Session) writeRaw(data []byte) error {
	s.sendLock.Lock()
	defer s.sendLock.Unlock()
	return s.write(data)
}

func (s *Session) write(data []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if _, err := s.conn.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	s.metrics.Bytes(metrics.DirectionOut, len(data))
	return nil
}
