// Package packet 单条消息的内存表示
// --------------------------
// | opcode(u16 LE) | payload |
// --------------------------
package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const OpcodeSize = 2

var (
	ErrShortRead  = errors.New("packet: not enough bytes")
	ErrNoOpcode   = errors.New("packet: missing opcode")
	ErrStringSize = errors.New("packet: string too long")
)

// Packet 游标寻址的缓冲区，收发各自独立，不能跨session共享
// 写入总是发生在position处，limit记录写到过的最远位置
type Packet struct {
	buf      []byte
	position int
	limit    int
}

// New 创建待发送的包，游标位于opcode之后
func New(opcode uint16) *Packet {
	p := &Packet{buf: make([]byte, 0, 64)}
	p.WriteUint16(opcode)
	return p
}

// Parse 解析解密后的数据，data会被直接持有
func Parse(data []byte) (*Packet, error) {
	if len(data) < OpcodeSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrNoOpcode, len(data))
	}
	return &Packet{buf: data, position: OpcodeSize, limit: len(data)}, nil
}

func (p *Packet) Opcode() uint16 {
	return binary.LittleEndian.Uint16(p.buf)
}

func (p *Packet) Position() int {
	return p.position
}

// SetPosition 用于回填长度之类的字段，超出范围会被截断到[0, limit]
func (p *Packet) SetPosition(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > p.limit {
		pos = p.limit
	}
	p.position = pos
}

func (p *Packet) Len() int {
	return p.limit
}

func (p *Packet) Remaining() int {
	return p.limit - p.position
}

// Rewind 游标回到opcode之后，用于把已经读过的包重新派发
func (p *Packet) Rewind() {
	p.position = OpcodeSize
}

// Finalize 发送前调用，游标归零，内容固定为[0, limit)
func (p *Packet) Finalize() {
	p.position = 0
}

// Clone 深拷贝，同一条消息发给多个session时每个session各用一份
func (p *Packet) Clone() *Packet {
	buf := make([]byte, p.limit, cap(p.buf))
	copy(buf, p.buf[:p.limit])
	return &Packet{buf: buf, position: p.position, limit: p.limit}
}

// Bytes 完整内容(含opcode)，返回内部切片
func (p *Packet) Bytes() []byte {
	return p.buf[:p.limit]
}

// Payload opcode之后的内容
func (p *Packet) Payload() []byte {
	return p.buf[OpcodeSize:p.limit]
}

func (p *Packet) String() string {
	return fmt.Sprintf("packet(0x%04X, %d bytes)", p.Opcode(), p.limit)
}

func (p *Packet) next(n int) ([]byte, error) {
	if n < 0 || p.Remaining() < n {
		return nil, fmt.Errorf("%w: want %d, remaining %d", ErrShortRead, n, p.Remaining())
	}
	b := p.buf[p.position : p.position+n]
	p.position += n
	return b, nil
}

func (p *Packet) ReadUint8() (uint8, error) {
	b, err := p.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (p *Packet) ReadBool() (bool, error) {
	v, err := p.ReadUint8()
	return v != 0, err
}

func (p *Packet) ReadUint16() (uint16, error) {
	b, err := p.next(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (p *Packet) ReadInt16() (int16, error) {
	v, err := p.ReadUint16()
	return int16(v), err
}

func (p *Packet) ReadUint32() (uint32, error) {
	b, err := p.next(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (p *Packet) ReadInt32() (int32, error) {
	v, err := p.ReadUint32()
	return int32(v), err
}

func (p *Packet) ReadInt64() (int64, error) {
	b, err := p.next(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// ReadBytes 返回拷贝
func (p *Packet) ReadBytes(n int) ([]byte, error) {
	b, err := p.next(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadString u16长度前缀的字符串
func (p *Packet) ReadString() (string, error) {
	n, err := p.ReadUint16()
	if err != nil {
		return "", err
	}
	b, err := p.next(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (p *Packet) Skip(n int) error {
	_, err := p.next(n)
	return err
}

func (p *Packet) reserve(n int) []byte {
	end := p.position + n
	if end > len(p.buf) {
		if end > cap(p.buf) {
			grown := make([]byte, len(p.buf), 2*cap(p.buf)+n)
			copy(grown, p.buf)
			p.buf = grown
		}
		p.buf = p.buf[:end]
	}
	b := p.buf[p.position:end]
	p.position = end
	if end > p.limit {
		p.limit = end
	}
	return b
}

func (p *Packet) WriteUint8(v uint8) *Packet {
	p.reserve(1)[0] = v
	return p
}

func (p *Packet) WriteBool(v bool) *Packet {
	if v {
		return p.WriteUint8(1)
	}
	return p.WriteUint8(0)
}

func (p *Packet) WriteUint16(v uint16) *Packet {
	binary.LittleEndian.PutUint16(p.reserve(2), v)
	return p
}

func (p *Packet) WriteInt16(v int16) *Packet {
	return p.WriteUint16(uint16(v))
}

func (p *Packet) WriteUint32(v uint32) *Packet {
	binary.LittleEndian.PutUint32(p.reserve(4), v)
	return p
}

func (p *Packet) WriteInt32(v int32) *Packet {
	return p.WriteUint32(uint32(v))
}

func (p *Packet) WriteInt64(v int64) *Packet {
	binary.LittleEndian.PutUint64(p.reserve(8), uint64(v))
	return p
}

func (p *Packet) WriteBytes(b []byte) *Packet {
	copy(p.reserve(len(b)), b)
	return p
}

// WriteZero 填充n个0
func (p *Packet) WriteZero(n int) *Packet {
	b := p.reserve(n)
	for i := range b {
		b[i] = 0
	}
	return p
}

// WriteString 超过u16长度的字符串会panic，属于调用方的编程错误
func (p *Packet) WriteString(s string) *Packet {
	if len(s) > math.MaxUint16 {
		panic(fmt.Errorf("%w: %d", ErrStringSize, len(s)))
	}
	p.WriteUint16(uint16(len(s)))
	copy(p.reserve(len(s)), s)
	return p
}
