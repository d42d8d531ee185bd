package server

import (
	"context"

	"CircuitLane/internal/conf"
	"CircuitLane/internal/server/middleware"
	"CircuitLane/internal/service"
	pkglog "CircuitLane/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, auth *conf.Auth, circuitService *service.CircuitService, logger log.Logger) *http.Server {
	// 创建增强的日志辅助器
	logHelper := pkglog.NewLogHelper(logger)

	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			middleware.Auth(auth, logHelper), // 认证中间件：校验管理 API Key
			middleware.Logging(logHelper),    // 请求日志中间件：记录请求方法、路径、耗时
		),
	}
	if c.Http.Network != "" {
		opts = append(opts, http.Network(c.Http.Network))
	}
	if c.Http.Addr != "" {
		opts = append(opts, http.Address(c.Http.Addr))
	}
	if c.Http.Timeout != nil {
		opts = append(opts, http.Timeout(c.Http.Timeout.AsDuration()))
	}
	srv := http.NewServer(opts...)

	// Register HTTP routes
	registerCircuitRoutes(srv, circuitService)

	return srv
}

// registerCircuitRoutes wires the admin endpoints onto the router. Handlers
// run through the server middleware chain, so every endpoint is key-gated
// and request-logged.
func registerCircuitRoutes(srv *http.Server, svc *service.CircuitService) {
	r := srv.Route("/api/v1")

	r.GET("/circuits", func(ctx http.Context) error {
		h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
			return svc.ListCircuits(c)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})

	r.GET("/circuits/{name}", func(ctx http.Context) error {
		name := ctx.Vars().Get("name")
		h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
			return svc.GetCircuit(c, name)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})

	r.POST("/circuits/{name}/reset", func(ctx http.Context) error {
		name := ctx.Vars().Get("name")
		h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
			return svc.ResetCircuit(c, name)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})

	r.POST("/circuits/{name}/trip", func(ctx http.Context) error {
		name := ctx.Vars().Get("name")
		h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
			return svc.TripCircuit(c, name)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})
}
