package dispatch

import (
	"errors"
	"fmt"

	"github.com/MapleGits/MapleGame/network/packet"
)

var ErrDuplicateHandler = errors.New("dispatch: handler already registered")

// Handler 返回的error会被记录并通知客户端，不会断开连接
type Handler interface {
	Handle(a Agent, p *packet.Packet) error
}

type HandlerFunc func(a Agent, p *packet.Packet) error

func (f HandlerFunc) Handle(a Agent, p *packet.Packet) error {
	return f(a, p)
}

type entry struct {
	name    string
	handler Handler
}

// Registry opcode到handler的静态表，启动时按顺序注册，之后只读
// 注册不是goroutine safe的
type Registry struct {
	entries map[uint16]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[uint16]entry)}
}

// Register name用于日志和指标
func (r *Registry) Register(op uint16, name string, h Handler) error {
	if h == nil {
		return fmt.Errorf("dispatch: nil handler for %s (0x%04X)", name, op)
	}
	if old, ok := r.entries[op]; ok {
		return fmt.Errorf("%w: 0x%04X by %s", ErrDuplicateHandler, op, old.name)
	}
	r.entries[op] = entry{name: name, handler: h}
	return nil
}

// RegisterFunc 方便直接注册函数
func (r *Registry) RegisterFunc(op uint16, name string, f func(a Agent, p *packet.Packet) error) error {
	return r.Register(op, name, HandlerFunc(f))
}

func (r *Registry) lookup(op uint16) (entry, bool) {
	e, ok := r.entries[op]
	return e, ok
}

func (r *Registry) Len() int {
	return len(r.entries)
}
