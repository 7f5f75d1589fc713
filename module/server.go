package module

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/MapleGits/MapleGame/base/log"
)

// StaticRun 加载模块后阻塞到收到退出信号或者ctx取消
// beforeClose在所有模块销毁前执行
func StaticRun(ctx context.Context, mods []Module, beforeClose func()) error {
	log.Info("Server starting up...")
	if err := StaticLoad(mods); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	if beforeClose != nil {
		beforeClose()
	}
	Destroy()
	log.Info("Server closing down...")
	return nil
}
