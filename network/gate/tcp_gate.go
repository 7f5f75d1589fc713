// Package gate 把tcp.Server、cryptograph和dispatcher组装成一个可加载的模块
package gate

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/MapleGits/MapleGame/base/log"
	"github.com/MapleGits/MapleGame/base/structs/syncmap"
	"github.com/MapleGits/MapleGame/config"
	"github.com/MapleGits/MapleGame/network"
	"github.com/MapleGits/MapleGame/network/crypto"
	"github.com/MapleGits/MapleGame/network/dispatch"
	"github.com/MapleGits/MapleGame/network/metrics"
	"github.com/MapleGits/MapleGame/network/packet"
	"github.com/MapleGits/MapleGame/network/session"
	"github.com/MapleGits/MapleGame/network/tcp"
)

// CryptographFactory 每个新连接调用一次，返回的实例只属于这个连接
type CryptographFactory func() (crypto.Cryptograph, error)

func PassthroughFactory() CryptographFactory {
	return func() (crypto.Cryptograph, error) {
		return crypto.NewPassthrough(), nil
	}
}

// AESFactory 每个连接使用随机的收发iv
func AESFactory(version uint16, subversion string, locale byte) CryptographFactory {
	return func() (crypto.Cryptograph, error) {
		recvIV, err := crypto.RandomIV()
		if err != nil {
			return nil, err
		}
		sendIV, err := crypto.RandomIV()
		if err != nil {
			return nil, err
		}
		return crypto.NewAESCryptograph(crypto.AESConfig{
			Side:       crypto.ServerSide,
			Version:    version,
			Subversion: subversion,
			Locale:     locale,
			RecvIV:     recvIV,
			SendIV:     sendIV,
		})
	}
}

// TcpGate 一个封装后的TCP服务
type TcpGate struct {
	//监听地址
	Addr string
	//最大连接数
	MaxConnNum int
	//session的显示名字
	Title          string
	NewCryptograph CryptographFactory
	Dispatcher     *dispatch.Dispatcher
	Hooks          session.Hooks
	// SessionOptions 缓冲区、限速、指标等，Title/Cryptograph/Dispatcher/Hooks会被覆盖
	SessionOptions session.Options

	server   *tcp.Server
	sessions syncmap.Map[string, *session.Session]
}

// FromConfig 按配置创建，dispatcher由调用方注册好handler
func FromConfig(cfg *config.Config, d *dispatch.Dispatcher, m *metrics.Metrics) *TcpGate {
	gate := &TcpGate{
		Addr:       cfg.Listen,
		MaxConnNum: cfg.MaxConn,
		Title:      cfg.Title,
		Dispatcher: d,
		SessionOptions: session.Options{
			BufferSize:       cfg.Buffer.Initial,
			MaxBuffer:        cfg.Buffer.Max,
			PacketsPerSecond: cfg.Limit.PacketsPerSecond,
			Burst:            cfg.Limit.Burst,
			Metrics:          m,
		},
	}
	if cfg.Crypto.Mode == config.CryptoNone {
		gate.NewCryptograph = PassthroughFactory()
	} else {
		gate.NewCryptograph = AESFactory(cfg.Crypto.Version, cfg.Crypto.Subversion, cfg.Crypto.Locale)
	}
	return gate
}

func (gate *TcpGate) Name() string {
	return "gate:" + gate.Title
}

func (gate *TcpGate) OnInit() error {
	if gate.Addr == "" {
		return errors.New("gate: tcp server addr not set")
	}
	if gate.Dispatcher == nil {
		return errors.New("gate: dispatcher not set")
	}
	if gate.NewCryptograph == nil {
		gate.NewCryptograph = PassthroughFactory()
	}
	gate.server = &tcp.Server{
		Addr:           gate.Addr,
		MaxConnNum:     gate.MaxConnNum,
		NewSessionFunc: gate.newSession,
	}
	return gate.server.Start()
}

func (gate *TcpGate) Run(ctx context.Context) {
	<-ctx.Done()
	gate.server.Close()
}

func (gate *TcpGate) OnDestroy() {
	if n := gate.SessionNum(); n > 0 {
		log.Warn("%s destroyed with %d sessions left", gate.Name(), n)
	}
}

func (gate *TcpGate) newSession(conn net.Conn) (network.Session, error) {
	cipher, err := gate.NewCryptograph()
	if err != nil {
		return nil, fmt.Errorf("gate: create cryptograph: %w", err)
	}
	opt := gate.SessionOptions
	opt.Title = gate.Title
	opt.Cryptograph = cipher
	opt.Dispatcher = gate.Dispatcher
	opt.ServerAlive = gate.server
	opt.Hooks = gate.hooks()
	return session.New(conn, opt), nil
}

// hooks 在调用方的回调外面维护会话表
func (gate *TcpGate) hooks() session.Hooks {
	h := gate.Hooks
	register, unregister := h.OnRegister, h.OnUnregister
	h.OnRegister = func(s *session.Session) error {
		gate.sessions.Store(s.ID(), s)
		if register != nil {
			return register(s)
		}
		return nil
	}
	h.OnUnregister = func(s *session.Session) error {
		defer gate.sessions.Delete(s.ID())
		if unregister != nil {
			return unregister(s)
		}
		return nil
	}
	return h
}

func (gate *TcpGate) ListenAddr() net.Addr {
	return gate.server.ListenAddr()
}

func (gate *TcpGate) Session(id string) (*session.Session, bool) {
	return gate.sessions.Load(id)
}

func (gate *TcpGate) SessionNum() int {
	return gate.sessions.Size()
}

// Broadcast 逐个发送，不在Active状态的会话会被跳过
// 每个会话拿到p的一份拷贝，p本身不会被修改
func (gate *TcpGate) Broadcast(p *packet.Packet) {
	gate.sessions.Range(func(_ string, s *session.Session) bool {
		if err := s.Send(p.Clone()); err != nil {
			s.Logger().Warn("broadcast %v: %v", p, err)
		}
		return true
	})
}
