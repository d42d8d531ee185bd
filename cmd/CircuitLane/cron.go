package main

import (
	"context"
	"fmt"
	"time"

	"CircuitLane/internal/biz"
	"CircuitLane/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// defaultProbeInterval 默认恢复探测间隔，配置缺失时使用
const defaultProbeInterval = 30 * time.Second

// CronServer 将定时任务挂接到 Kratos 应用生命周期
// 执行两类任务：
//   - 恢复探测：按配置间隔对 OPEN 状态的熔断器执行健康探测
//   - 运行摘要：每 5 分钟输出一次未关闭熔断器的摘要日志
type CronServer struct {
	c      *cron.Cron
	helper *log.Helper
}

// NewCronServer registers the scheduled jobs and returns the runner. The
// runner implements transport.Server so the Kratos app starts and stops it
// alongside the HTTP server.
func NewCronServer(bc *conf.Bootstrap, health *biz.HealthChecker, admin *biz.CircuitAdminUsecase, logger log.Logger) (*CronServer, error) {
	helper := log.NewHelper(logger)

	c := cron.New(cron.WithSeconds())

	interval := defaultProbeInterval
	if bc != nil && bc.Breaker != nil && bc.Breaker.Health != nil {
		if d := bc.Breaker.Health.Interval.AsDuration(); d > 0 {
			interval = d
		}
	}

	if health.Enabled() {
		// 恢复探测任务
		_, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()

			probed, recovered := health.CheckAll(ctx)
			if probed > 0 {
				helper.Debugw("msg", "recovery sweep finished",
					"probed", probed,
					"recovered", recovered)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("register recovery sweep job: %w", err)
		}
	} else {
		helper.Info("health checking disabled, recovery sweep not scheduled")
	}

	// 摘要任务：每 5 分钟执行一次（秒 分 时 日 月 周）
	_, err := c.AddFunc("0 */5 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		admin.LogOpenCircuitSummary(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("register summary job: %w", err)
	}

	return &CronServer{
		c:      c,
		helper: helper,
	}, nil
}

// Start begins job scheduling. It implements transport.Server.
func (s *CronServer) Start(ctx context.Context) error {
	s.c.Start()
	s.helper.Infow("msg", "cron jobs started")
	return nil
}

// Stop waits for running jobs to finish and shuts the scheduler down.
func (s *CronServer) Stop(ctx context.Context) error {
	stopCtx := s.c.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	s.helper.Infow("msg", "cron jobs stopped")
	return nil
}
