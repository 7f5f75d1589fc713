package ginutil

import (
	"net/http"
	"net/http/pprof"

	"github.com/gin-gonic/gin"

	"github.com/MapleGits/MapleGame/base/log"
)

// InitRouter 创建一个激活常用配置的router
// 这里没有注入prometheus，因为不一定会使用
func InitRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(AccessLogHandler(true, "/metrics", "/healthz"))
	router.Use(RecoveryHandler())
	EnablePProf(router)
	EnableLogSwitch(router)
	return router
}

// EnablePProf 挂载到 /debug/pprof
func EnablePProf(router gin.IRouter) {
	g := router.Group("/debug/pprof")
	g.GET("/", gin.WrapF(pprof.Index))
	g.GET("/cmdline", gin.WrapF(pprof.Cmdline))
	g.GET("/profile", gin.WrapF(pprof.Profile))
	g.GET("/symbol", gin.WrapF(pprof.Symbol))
	g.POST("/symbol", gin.WrapF(pprof.Symbol))
	g.GET("/trace", gin.WrapF(pprof.Trace))
	g.GET("/:name", func(c *gin.Context) {
		pprof.Handler(c.Param("name")).ServeHTTP(c.Writer, c.Request)
	})
}

type logLevelReq struct {
	Level string `json:"level" binding:"required"`
}

// EnableLogSwitch GET/PUT /log/level 查看和切换日志级别
func EnableLogSwitch(router gin.IRouter) {
	router.GET("/log/level", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"debug": log.IsDebugEnabled()})
	})
	router.PUT("/log/level", func(c *gin.Context) {
		var req logLevelReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		level := log.ParseLevel(req.Level)
		log.ChangeLogLevel(level)
		log.Info("log level changed to %s", level)
		c.JSON(http.StatusOK, gin.H{"level": level})
	})
}
