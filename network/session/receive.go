package session

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/MapleGits/MapleGame/network/buffer"
	"github.com/MapleGits/MapleGame/network/crypto"
	"github.com/MapleGits/MapleGame/network/metrics"
	"github.com/MapleGits/MapleGame/network/packet"
)

// receive 一次socket读加一次分帧
func (s *Session) receive() error {
	w, err := s.buffer.Writable()
	if err != nil {
		return err
	}
	n, rerr := s.conn.Read(w)
	if n > 0 {
		s.buffer.Advance(n)
		s.metrics.Bytes(metrics.DirectionIn, n)
		if err := s.process(); err != nil {
			return err
		}
	}
	if rerr != nil {
		return s.readError(rerr)
	}
	if n == 0 {
		return errPeerClosed
	}
	return nil
}

func (s *Session) readError(err error) error {
	if !s.alive.Load() {
		return errStopped
	}
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		return errPeerClosed
	case errors.Is(err, os.ErrDeadlineExceeded):
		return errStopped
	}
	return fmt.Errorf("read: %w", err)
}

// process 处理缓冲区内已收到的全部字节
// 没有帧头的cryptograph把整段数据当作一条消息
func (s *Session) process() error {
	if f, ok := s.cipher.(crypto.Framer); ok {
		return splitFrames(s.buffer, f, s.handle)
	}
	data := s.buffer.Content()
	s.buffer.Reset()
	return s.handle(data)
}

// splitFrames 依次取出完整的帧交给handle，不完整的帧留在缓冲区
// 返回时未消费的字节已经移到缓冲区开头，全部消费时position = limit = 0
func splitFrames(b *buffer.FrameBuffer, f crypto.Framer, handle func(frame []byte) error) error {
	hs := f.HeaderSize()
	for b.Remaining() >= hs {
		header, _ := b.Peek(hs)
		length := f.DeriveLength(header)
		if length < packet.OpcodeSize || hs+length > b.MaxCapacity() {
			return fmt.Errorf("%w: derived length %d", ErrFrameDesync, length)
		}
		if b.Remaining() < hs+length {
			b.Compact()
			return b.Ensure(hs + length)
		}
		frame, _ := b.ReadBytes(hs + length)
		if err := handle(frame); err != nil {
			return err
		}
	}
	if b.Remaining() == 0 {
		b.Reset()
	} else {
		b.Compact()
	}
	return nil
}

// handle 解密、解析、分发一帧，返回错误时会话结束
func (s *Session) handle(frame []byte) error {
	if !s.alive.Load() {
		return errStopped
	}
	plain, err := s.cipher.Decrypt(frame)
	if err != nil {
		return fmt.Errorf("decrypt %d bytes: %w", len(frame), err)
	}
	p, err := packet.Parse(plain)
	if err != nil {
		return err
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(s.ctx); err != nil {
			return errStopped
		}
	}
	s.metrics.Packet(metrics.DirectionIn, len(frame))
	s.dispatcher.Dispatch(s, p)
	return nil
}

// HandlePacket 把一个已经解码的包重新交给分发器，用于服务端内部转发
func (s *Session) HandlePacket(p *packet.Packet) {
	p.Rewind()
	s.dispatcher.Dispatch(s, p)
}
