package wg

import (
	"context"
	"sync"
	"time"

	"github.com/MapleGits/MapleGame/base/log"
	"go.uber.org/atomic"
)

/**  可以监控还剩多少任务的WaitGroup
**/

type WaitGroup struct {
	real     sync.WaitGroup
	cnt      atomic.Int64
	name     string
	warnCnt  atomic.Int64
	interval time.Duration
}

func NewWaitGroup(name ...string) *WaitGroup {
	wg := &WaitGroup{name: "wg", interval: 3 * time.Second}
	if len(name) > 0 {
		wg.name = name[0]
	}
	return wg
}

// SetWarnCnt 超过阈值后每次Add都打warn日志
func (wg *WaitGroup) SetWarnCnt(warnCnt int64) {
	wg.warnCnt.Store(warnCnt)
}

func (wg *WaitGroup) Current() int64 {
	return wg.cnt.Load()
}

// Wait 等待全部完成，期间定时打印剩余数量
func (wg *WaitGroup) Wait() {
	_ = wg.WaitContext(context.Background())
}

// WaitContext ctx结束时返回ctx.Err()，剩余任务继续在后台运行
func (wg *WaitGroup) WaitContext(ctx context.Context) error {
	ch := make(chan struct{})
	go func() {
		wg.real.Wait()
		close(ch)
	}()
	ticker := time.NewTicker(wg.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ch:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			log.Info("%s waiting %d task to be done...", wg.name, wg.Current())
		}
	}
}

func (wg *WaitGroup) Add(delta int) {
	cur := wg.cnt.Add(int64(delta))
	if threshold := wg.warnCnt.Load(); threshold > 0 && cur > threshold {
		log.Warn("waitgroup %s wait %d, threshold:%d", wg.name, cur, threshold)
	}
	wg.real.Add(delta)
}

func (wg *WaitGroup) Incr() {
	wg.Add(1)
}

func (wg *WaitGroup) Done() {
	wg.cnt.Dec()
	wg.real.Done()
}
