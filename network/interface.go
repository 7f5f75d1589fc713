package network

import (
	"context"
)

// Session 每个连接在独立的协程里处理消息
type Session interface {
	// Run 阻塞通信循环，返回前已经完成资源释放
	Run(ctx context.Context)
	// Stop 请求结束循环，不等待，可以重复调用
	Stop()
}

// Liveness 进程级的存活标记，由监听方持有，session只读
type Liveness interface {
	Alive() bool
}

// AlwaysAlive 没有监听方时使用，比如测试或者客户端连接
type AlwaysAlive struct{}

func (AlwaysAlive) Alive() bool {
	return true
}
