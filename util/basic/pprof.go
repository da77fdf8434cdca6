package basic

import (
	"io"
	"net/http"
	"os"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewDebugServer 构建调试服务.
// 地址: http://ip:port/api/v1/pprof/ 与 http://ip:port/metrics.
// routes 用于在 /api/v1 下挂载额外路由.
func NewDebugServer(addr string, gatherer prometheus.Gatherer, routes func(*gin.RouterGroup)) *http.Server {
	gin.DisableConsoleColor()
	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = io.Discard

	r := gin.New()
	r.Use(gin.LoggerWithWriter(os.Stderr))
	r.Use(gin.Recovery())
	apiv1 := r.Group("/api/v1")
	pprof.RouteRegister(apiv1, "pprof")
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	if routes != nil {
		routes(apiv1)
	}

	return &http.Server{
		Addr:    addr,
		Handler: r,
	}
}
