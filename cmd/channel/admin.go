package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/MapleGits/MapleGame/apm"
	"github.com/MapleGits/MapleGame/base/log"
	"github.com/MapleGits/MapleGame/ginutil"
	"github.com/MapleGits/MapleGame/network/gate"
)

// admin 运维用的http服务: /metrics /healthz /sessions 以及日志级别切换
type admin struct {
	addr   string
	gather prometheus.Gatherer
	gate   *gate.TcpGate
	// traces 为nil时不记录请求的span
	traces trace.TracerProvider
	ln     net.Listener
	server *http.Server
}

func newAdmin(addr string, gather prometheus.Gatherer, g *gate.TcpGate, traces trace.TracerProvider) *admin {
	return &admin{addr: addr, gather: gather, gate: g, traces: traces}
}

func (a *admin) Name() string {
	return "admin"
}

func (a *admin) router() *gin.Engine {
	router := ginutil.InitRouter()
	if a.traces != nil {
		apm.SetGinTracer("channel-admin", router, a.traces)
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.gather, promhttp.HandlerOpts{})))
	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"title": a.gate.Title, "count": a.gate.SessionNum()})
	})
	return router
}

func (a *admin) OnInit() error {
	ln, err := net.Listen("tcp", a.addr)
	if err != nil {
		return fmt.Errorf("admin: listen %s: %w", a.addr, err)
	}
	a.ln = ln
	a.server = &http.Server{Handler: a.router(), ReadHeaderTimeout: 5 * time.Second}
	log.Info("admin http listening on %s", ln.Addr())
	return nil
}

func (a *admin) Run(ctx context.Context) {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Serve(a.ln)
	}()
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("admin http stopped: %v", err)
		}
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		log.Warn("admin http shutdown: %v", err)
	}
}

func (a *admin) OnDestroy() {}
