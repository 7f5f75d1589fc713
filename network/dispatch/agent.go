// Package dispatch 按opcode把解码后的包路由给外部注册的handler
package dispatch

import (
	"net"

	"github.com/MapleGits/MapleGame/network/packet"
)

// Agent handler看到的连接，由session实现
type Agent interface {
	ID() string
	Title() string
	RemoteAddr() net.Addr
	// Send goroutine safe，连接已关闭时静默丢弃
	Send(p *packet.Packet) error
	// Close 请求关闭连接，不等待
	Close()
	UserData() any
	SetUserData(data any)
}
