// Package module 按固定顺序加载的服务模块，逆序销毁
package module

import (
	"context"
	"fmt"
	"sync"

	"github.com/MapleGits/MapleGame/base/log"
)

type Module interface {
	Name() string
	// OnInit 失败时已加载的模块会被逆序销毁
	OnInit() error
	OnDestroy()
	// Run 阻塞到ctx取消
	Run(ctx context.Context)
}

type module struct {
	mi     Module
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var (
	mods []*module
	lock sync.Mutex
)

// StaticLoad 静态加载，按严格的顺序初始化并运行模块
func StaticLoad(mis []Module) error {
	lock.Lock()
	defer lock.Unlock()
	for _, mi := range mis {
		if err := mi.OnInit(); err != nil {
			destroyAll()
			return fmt.Errorf("module %s init: %w", mi.Name(), err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		m := &module{mi: mi, cancel: cancel}
		mods = append(mods, m)
		m.wg.Add(1)
		go run(m, ctx)
		log.Info("module registered: %s", mi.Name())
	}
	return nil
}

func destroyMod(mod *module) {
	defer func() {
		if r := recover(); r != nil {
			log.PanicStack(fmt.Sprintf("panic when destroy module %s", mod.mi.Name()), r)
		}
	}()
	mod.cancel()
	mod.wg.Wait()
	mod.mi.OnDestroy()
	log.Info("module destroyed: %s", mod.mi.Name())
}

// Destroy 按加载顺序逆序销毁
func Destroy() {
	lock.Lock()
	defer lock.Unlock()
	destroyAll()
}

func destroyAll() {
	for i := len(mods) - 1; i >= 0; i-- {
		destroyMod(mods[i])
	}
	mods = nil
}

func run(m *module, ctx context.Context) {
	defer m.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.PanicStack(fmt.Sprintf("module %s run panic", m.mi.Name()), r)
		}
	}()
	m.mi.Run(ctx)
}
