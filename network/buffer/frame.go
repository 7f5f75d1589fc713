// Package buffer 为tcp流提供带读写游标的接收缓冲区
// 一次socket读可能包含0个、1个、多个或半个帧，剩余的字节由FrameBuffer保留到下次读
package buffer

import (
	"errors"
	"fmt"
)

const (
	DefaultInitialSize = 4096
	DefaultMaxSize     = 0xFFFF + 4
)

var (
	ErrFrameTooLarge = errors.New("frame exceeds buffer capacity")
	ErrBufferFull    = errors.New("buffer full")
	ErrReleased      = errors.New("buffer released")
)

// FrameBuffer 不变式: 0 <= position <= limit <= capacity
// [position, limit) 为未消费的有效数据，socket读从limit处追加
// 只允许接收协程访问，不加锁
type FrameBuffer struct {
	array    []byte
	position int
	limit    int
	max      int
}

// New initial为初始容量，max为允许增长到的最大容量
func New(initial, max int) *FrameBuffer {
	if initial <= 0 {
		initial = DefaultInitialSize
	}
	if max < initial {
		max = initial
	}
	return &FrameBuffer{array: make([]byte, initial), max: max}
}

func (b *FrameBuffer) Position() int {
	return b.position
}

func (b *FrameBuffer) Limit() int {
	return b.limit
}

func (b *FrameBuffer) Capacity() int {
	return len(b.array)
}

func (b *FrameBuffer) MaxCapacity() int {
	return b.max
}

// Remaining limit - position
func (b *FrameBuffer) Remaining() int {
	return b.limit - b.position
}

func (b *FrameBuffer) Released() bool {
	return b.array == nil
}

// Writable 返回[limit, capacity)，读满之后调用Advance
func (b *FrameBuffer) Writable() ([]byte, error) {
	if b.array == nil {
		return nil, ErrReleased
	}
	if b.limit == len(b.array) {
		if err := b.Ensure(len(b.array) + 1); err != nil {
			return nil, ErrBufferFull
		}
	}
	return b.array[b.limit:], nil
}

// Advance 写入n字节之后推进limit
func (b *FrameBuffer) Advance(n int) {
	if n < 0 || b.limit+n > len(b.array) {
		panic(fmt.Sprintf("buffer: advance %d out of range, limit=%d capacity=%d", n, b.limit, len(b.array)))
	}
	b.limit += n
}

// Write 追加数据，必要时扩容
func (b *FrameBuffer) Write(p []byte) (int, error) {
	if b.array == nil {
		return 0, ErrReleased
	}
	if err := b.Ensure(b.limit + len(p)); err != nil {
		return 0, err
	}
	n := copy(b.array[b.limit:], p)
	b.limit += n
	return n, nil
}

// Ensure 保证容量至少为size，按2倍扩容但不超过max，已有数据位置不变
func (b *FrameBuffer) Ensure(size int) error {
	if b.array == nil {
		return ErrReleased
	}
	if size <= len(b.array) {
		return nil
	}
	if size > b.max {
		return fmt.Errorf("%w: need %d, max %d", ErrFrameTooLarge, size, b.max)
	}
	newCap := len(b.array) * 2
	for newCap < size {
		newCap *= 2
	}
	if newCap > b.max {
		newCap = b.max
	}
	arr := make([]byte, newCap)
	copy(arr, b.array[:b.limit])
	b.array = arr
	return nil
}

// Peek 查看position处的n个字节，不移动游标，返回的是内部切片
func (b *FrameBuffer) Peek(n int) ([]byte, bool) {
	if n > b.Remaining() {
		return nil, false
	}
	return b.array[b.position : b.position+n], true
}

// ReadBytes 拷贝n个字节并推进position
func (b *FrameBuffer) ReadBytes(n int) ([]byte, bool) {
	p, ok := b.Peek(n)
	if !ok {
		return nil, false
	}
	out := make([]byte, n)
	copy(out, p)
	b.position += n
	return out, true
}

// Rewind 回退position
func (b *FrameBuffer) Rewind(n int) {
	if n > b.position {
		n = b.position
	}
	b.position -= n
}

// Compact 把未消费的数据搬到开头: position=0, limit=remaining
func (b *FrameBuffer) Compact() {
	if b.position == 0 {
		return
	}
	n := copy(b.array, b.array[b.position:b.limit])
	b.position = 0
	b.limit = n
}

// Content 拷贝出[position, limit)
func (b *FrameBuffer) Content() []byte {
	out := make([]byte, b.Remaining())
	copy(out, b.array[b.position:b.limit])
	return out
}

// Reset 丢弃全部数据
func (b *FrameBuffer) Reset() {
	b.position = 0
	b.limit = 0
}

// Release 释放底层数组，重复调用无副作用
func (b *FrameBuffer) Release() {
	b.array = nil
	b.position = 0
	b.limit = 0
}
