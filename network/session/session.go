// Package session 一个tcp连接的完整生命周期: 握手、接收分帧、解密分发、串行发送、按序释放
package session

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/MapleGits/MapleGame/base/log"
	"github.com/MapleGits/MapleGame/base/util/byteutil"
	"github.com/MapleGits/MapleGame/network"
	"github.com/MapleGits/MapleGame/network/buffer"
	"github.com/MapleGits/MapleGame/network/crypto"
	"github.com/MapleGits/MapleGame/network/dispatch"
	"github.com/MapleGits/MapleGame/network/metrics"
)

const (
	DefaultTitle        = "Client"
	DefaultWriteTimeout = 10 * time.Second
)

var (
	ErrFrameDesync = errors.New("session: frame desync")
	errStopped     = errors.New("session: stopped")
	errPeerClosed  = errors.New("session: closed by peer")
)

// Options 除Cryptograph和Dispatcher外都有默认值
type Options struct {
	Title       string
	Cryptograph crypto.Cryptograph
	Dispatcher  *dispatch.Dispatcher
	Hooks       Hooks
	// ServerAlive 监听方的存活标记，为nil时认为一直存活
	ServerAlive network.Liveness
	BufferSize  int
	MaxBuffer   int
	// PacketsPerSecond 大于0时对入包限速
	PacketsPerSecond float64
	Burst            int
	WriteTimeout     time.Duration
	Metrics          *metrics.Metrics
}

type Session struct {
	id          string
	title       string
	conn        net.Conn
	cipher      crypto.Cryptograph
	dispatcher  *dispatch.Dispatcher
	hooks       Hooks
	serverAlive network.Liveness
	buffer      *buffer.FrameBuffer
	limiter     *rate.Limiter
	metrics     *metrics.Metrics
	logger      log.Fields

	writeTimeout time.Duration
	sendLock     sync.Mutex

	alive atomic.Bool
	state atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc

	userLock sync.RWMutex
	userData any

	disposeOnce sync.Once
	done        chan struct{}
}

func New(conn net.Conn, opt Options) *Session {
	if opt.Title == "" {
		opt.Title = DefaultTitle
	}
	if opt.Cryptograph == nil {
		opt.Cryptograph = crypto.NewPassthrough()
	}
	if opt.Dispatcher == nil {
		opt.Dispatcher = dispatch.NewDispatcher(dispatch.OpcodeSet{}, dispatch.OpcodeSet{}, nil, nil)
	}
	if opt.ServerAlive == nil {
		opt.ServerAlive = network.AlwaysAlive{}
	}
	if opt.MaxBuffer <= 0 {
		opt.MaxBuffer = buffer.DefaultMaxSize
	}
	if opt.WriteTimeout <= 0 {
		opt.WriteTimeout = DefaultWriteTimeout
	}
	s := &Session{
		id:           byteutil.SimpleUUID4(),
		title:        opt.Title,
		conn:         conn,
		cipher:       opt.Cryptograph,
		dispatcher:   opt.Dispatcher,
		hooks:        opt.Hooks,
		serverAlive:  opt.ServerAlive,
		buffer:       buffer.New(opt.BufferSize, opt.MaxBuffer),
		metrics:      opt.Metrics,
		writeTimeout: opt.WriteTimeout,
		done:         make(chan struct{}),
	}
	if opt.PacketsPerSecond > 0 {
		burst := opt.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opt.PacketsPerSecond), burst)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.logger = log.Fields{"id": s.id[:8]}.WithPrefix(s.title + " " + s.remote())
	s.alive.Store(true)
	s.state.Store(int32(Connecting))
	s.metrics.SessionOpened()
	return s
}

func (s *Session) remote() string {
	if addr := s.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Title() string {
	return s.title
}

func (s *Session) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

func (s *Session) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Alive 本会话是否还在收包，Stop之后立即变为false
func (s *Session) Alive() bool {
	return s.alive.Load()
}

// Context 在Stop或者释放时取消，handler可以用来绑定会话的生命周期
func (s *Session) Context() context.Context {
	return s.ctx
}

// Done 释放完成后关闭
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Cryptograph() crypto.Cryptograph {
	return s.cipher
}

func (s *Session) Logger() log.Fields {
	return s.logger
}

func (s *Session) UserData() any {
	s.userLock.RLock()
	defer s.userLock.RUnlock()
	return s.userData
}

func (s *Session) SetUserData(data any) {
	s.userLock.Lock()
	defer s.userLock.Unlock()
	s.userData = data
}

// Run 阻塞直到连接结束，返回前已经完成释放
// ctx取消等价于调用Stop
func (s *Session) Run(ctx context.Context) {
	defer s.dispose()
	stop := context.AfterFunc(ctx, s.Stop)
	defer stop()

	if err := s.connect(); err != nil {
		if errors.Is(err, errStopped) {
			s.logger.Debug("stopped before connect")
		} else {
			s.logger.Warn("connect failed: %v", err)
		}
		return
	}
	for s.alive.Load() && s.serverAlive.Alive() {
		if err := s.receive(); err != nil {
			s.logReceiveError(err)
			break
		}
	}
}

// Stop 不等待当前的解密和分发完成，阻塞中的读会立即返回
func (s *Session) Stop() {
	if !s.alive.CompareAndSwap(true, false) {
		return
	}
	s.cancel()
	_ = s.conn.SetReadDeadline(time.Now())
}

// Close 实现dispatch.Agent
func (s *Session) Close() {
	s.Stop()
}

// connect 已经Stop的会话不握手也不注册
func (s *Session) connect() error {
	if !s.alive.Load() {
		return errStopped
	}
	s.logger.Info("connected")
	if hs, ok := s.cipher.(crypto.Handshaker); ok {
		if hello := hs.Handshake(); len(hello) > 0 {
			if err := s.writeRaw(hello); err != nil {
				return err
			}
		}
	}
	s.runHook("register", s.hooks.OnRegister)
	s.sendLock.Lock()
	s.state.Store(int32(Active))
	s.sendLock.Unlock()
	return nil
}

func (s *Session) logReceiveError(err error) {
	switch {
	case errors.Is(err, errStopped):
		s.logger.Debug("receive loop stopped")
	case errors.Is(err, errPeerClosed):
		s.logger.Info("disconnected by peer")
	default:
		s.logger.Warn("receive: %v", err)
	}
}
