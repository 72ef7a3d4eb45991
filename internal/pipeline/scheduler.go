package pipeline

import (
	"context"
	"log/slog"
	"time"

	"Lotus-Dashboard/pkg/logger"
)

// Runner 执行一次周期。
type Runner interface {
	RunCycle(ctx context.Context) error
}

// Scheduler 在每个周期结束后等待固定间隔再开始下一次，周期之间不会重叠。
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler 构造调度器，interval 非正时使用 60 秒。
func NewScheduler(runner Runner, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Scheduler{runner: runner, interval: interval, logger: logger.Named("scheduler")}
}

// Run 循环执行直到 ctx 被取消。单个周期失败只记录日志，下一周期照常重试。
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("调度器启动", slog.Duration("interval", s.interval))
	for {
		if ctx.Err() != nil {
			s.logger.Info("调度器停止")
			return nil
		}
		if err := s.runner.RunCycle(ctx); err != nil && ctx.Err() == nil {
			s.logger.Debug("本周期失败，等待下一周期", slog.Any("error", err))
		}

		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("调度器停止")
			return nil
		case <-timer.C:
		}
	}
}

// RunOnce 只执行一个周期并返回其结果。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runner.RunCycle(ctx)
}
