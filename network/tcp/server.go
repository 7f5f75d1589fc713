// Package tcp 监听端口，为每个连接创建一个session并在独立协程里运行
package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/MapleGits/MapleGame/base/log"
	"github.com/MapleGits/MapleGame/base/structs/set"
	"github.com/MapleGits/MapleGame/base/structs/wg"
	"github.com/MapleGits/MapleGame/network"
)

type Server struct {
	Addr       string
	MaxConnNum int
	// NewSessionFunc 返回错误时连接直接关闭
	NewSessionFunc func(conn net.Conn) (network.Session, error)

	ln        net.Listener
	alive     atomic.Bool
	sessions  *set.Set[network.Session]
	mutexCons sync.Mutex
	wgLn      sync.WaitGroup
	wgCons    *wg.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

func (server *Server) Start() error {
	if err := server.init(); err != nil {
		return err
	}
	go server.run()
	return nil
}

func (server *Server) init() error {
	if server.NewSessionFunc == nil {
		return errors.New("tcp: NewSessionFunc must not be nil")
	}
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("tcp: listen %s: %w", server.Addr, err)
	}
	server.ln = ln
	server.sessions = set.NewSet[network.Session]()
	server.wgCons = wg.NewWaitGroup("tcp sessions " + ln.Addr().String())
	server.ctx, server.cancel = context.WithCancel(context.Background())
	server.alive.Store(true)
	log.Info("tcp server listening on %s", ln.Addr())
	return nil
}

// Alive 实现network.Liveness，Close之后为false
func (server *Server) Alive() bool {
	return server.alive.Load()
}

// ListenAddr 实际监听的地址，Addr端口为0时有用
func (server *Server) ListenAddr() net.Addr {
	return server.ln.Addr()
}

// ConnNum 当前连接数
func (server *Server) ConnNum() int {
	server.mutexCons.Lock()
	defer server.mutexCons.Unlock()
	if server.sessions == nil {
		return 0
	}
	return server.sessions.Size()
}

func (server *Server) run() {
	server.wgLn.Add(1)
	defer server.wgLn.Done()

	var tempDelay time.Duration
	for {
		conn, err := server.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || !server.alive.Load() {
				return
			}
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay *= 2
			}
			if max := 1 * time.Second; tempDelay > max {
				tempDelay = max
			}
			log.Info("accept error: %v; retrying in %v", err, tempDelay)
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0
		server.serve(conn)
	}
}

func (server *Server) serve(conn net.Conn) {
	server.mutexCons.Lock()
	if server.MaxConnNum > 0 && server.sessions.Size() >= server.MaxConnNum {
		server.mutexCons.Unlock()
		_ = conn.Close()
		log.Warn("too many tcp connections, refuse %s", conn.RemoteAddr())
		return
	}
	session, err := server.NewSessionFunc(conn)
	if err != nil {
		server.mutexCons.Unlock()
		_ = conn.Close()
		log.Warn("create session for %s: %v", conn.RemoteAddr(), err)
		return
	}
	server.sessions.AddItem(session)
	server.mutexCons.Unlock()

	server.wgCons.Incr()
	go func() {
		defer server.wgCons.Done()
		// Run返回前session已经关闭了conn
		session.Run(server.ctx)

		server.mutexCons.Lock()
		server.sessions.RemoveItem(session)
		server.mutexCons.Unlock()
	}()
}

// Close 停止监听，通知所有session退出并等待释放完成
func (server *Server) Close() {
	if !server.alive.CompareAndSwap(true, false) {
		return
	}
	_ = server.ln.Close()
	server.wgLn.Wait()

	server.mutexCons.Lock()
	server.sessions.ForEach(func(s network.Session) {
		s.Stop()
	})
	server.mutexCons.Unlock()
	server.cancel()
	server.wgCons.Wait()
	log.Info("tcp server %s closed", server.ln.Addr())
}
