package session

import (
	"errors"
	"fmt"
	"net"

	"github.com/MapleGits/MapleGame/base/log"
)

// dispose 只执行一次，每一步失败都只记录日志，后面的步骤照常执行
func (s *Session) dispose() {
	s.disposeOnce.Do(func() {
		s.Stop()
		// 拿到发送锁之后再切换状态，正在写的帧可以完整写完
		s.sendLock.Lock()
		s.state.Store(int32(Closing))
		s.sendLock.Unlock()

		s.runHook("terminate", s.hooks.OnTerminate)
		s.runStep("socket", func() error {
			if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				return err
			}
			return nil
		})
		s.runStep("cryptograph", s.cipher.Close)
		s.runStep("buffer", func() error {
			s.buffer.Release()
			return nil
		})
		s.runHook("release", s.hooks.OnRelease)
		s.runHook("unregister", s.hooks.OnUnregister)

		s.state.Store(int32(Closed))
		s.metrics.SessionClosed()
		close(s.done)
		s.logger.Info("disposed")
	})
}

func (s *Session) runHook(name string, hook HookFunc) {
	if hook == nil {
		return
	}
	s.runStep(name, func() error {
		return hook(s)
	})
}

func (s *Session) runStep(name string, step func() error) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.PanicStack(fmt.Sprintf("%s %s panic", s.logger.Prefix(), name), r)
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return step()
	}()
	if err != nil {
		s.logger.Error("%s failed: %v", name, err)
		s.metrics.TeardownError(name)
	}
}
