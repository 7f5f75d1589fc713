package ginutil

/**  gin日志的一些简单封装
**/

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/MapleGits/MapleGame/base/log"
)

// 从http请求中复制出body，注意避免文件上传的场景
func peakBody(c *gin.Context) string {
	if (c.Request.Method == http.MethodPut || c.Request.Method == http.MethodPost) &&
		!lo.Contains(c.Request.Header["Content-Type"], "multipart/form-data") {
		body, err := io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		if err == nil {
			return string(body)
		}
	}
	return ""
}

func AccessLogHandler(withBody bool, skipPath ...string) gin.HandlerFunc {
	sp := lo.SliceToMap(skipPath, func(p string) (string, bool) {
		return p, true
	})

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		body := ""
		if withBody {
			body = peakBody(c)
		}
		c.Next()

		if sp[path] {
			return
		}
		if len(c.Errors) > 0 {
			for _, e := range c.Errors.Errors() {
				log.Error("%s %s: %s", c.Request.Method, path, e)
			}
			return
		}
		txt := fmt.Sprintf("%s %s Q:%s ST:%d IP:%s UA:%s LAT:%s", c.Request.Method, path, query, c.Writer.Status(),
			c.ClientIP(), c.Request.UserAgent(), time.Since(start))
		if body != "" {
			txt += " BODY:" + body
		}
		log.Debug(txt)
	}
}

func RecoveryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				// 连接已经断开的情况不需要打印堆栈
				var brokenPipe bool
				var ne *net.OpError
				if e, ok := err.(error); ok && errors.As(e, &ne) {
					var se *os.SyscallError
					if errors.As(ne.Err, &se) {
						msg := strings.ToLower(se.Error())
						brokenPipe = strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
					}
				}

				httpRequest, _ := httputil.DumpRequest(c.Request, false)
				if brokenPipe {
					log.Error("panic when request %s, error:%v, req:%s", c.Request.URL.Path, err, httpRequest)
					_ = c.Error(err.(error)) // nolint: err check
					c.Abort()
					return
				}

				log.PanicStack("gin panic, request: "+string(httpRequest), err)
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}
