package crypto

import "go.uber.org/atomic"

// Passthrough 不做任何变换，也不分帧，一次读到的内容就是一条消息
type Passthrough struct {
	closed atomic.Bool
}

func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

func (p *Passthrough) Encrypt(plain []byte) ([]byte, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	out := make([]byte, len(plain))
	copy(out, plain)
	return out, nil
}

func (p *Passthrough) Decrypt(frame []byte) ([]byte, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	out := make([]byte, len(frame))
	copy(out, frame)
	return out, nil
}

func (p *Passthrough) Close() error {
	p.closed.Store(true)
	return nil
}
