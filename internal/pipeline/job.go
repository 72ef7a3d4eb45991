package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	xerrors "Lotus-Dashboard/internal/errors"
	"Lotus-Dashboard/internal/lock"
	"Lotus-Dashboard/internal/notify"
	"Lotus-Dashboard/internal/observability/metrics"
	"Lotus-Dashboard/internal/transform"
	"Lotus-Dashboard/pkg/logger"
)

// 周期阶段，用于日志。
const (
	stageLock      = "lock"
	stageConnect   = "connect"
	stageExtract   = "extract"
	stageTransform = "transform"
	stageLoad      = "load"
)

// Job 执行单次刷新周期。
type Job struct {
	connector Connector
	locker    lock.Locker
	publisher *notify.Fanout
	metrics   *metrics.Collector
	logger    *slog.Logger
	now       func() time.Time
}

// JobOption 定义可选配置。
type JobOption func(*Job)

// WithLocker 配置周期租约。
func WithLocker(l lock.Locker) JobOption {
	return func(j *Job) {
		if l != nil {
			j.locker = l
		}
	}
}

// WithPublisher 配置刷新完成后的通知。
func WithPublisher(f *notify.Fanout) JobOption {
	return func(j *Job) {
		j.publisher = f
	}
}

// WithMetrics 配置指标收集器。
func WithMetrics(c *metrics.Collector) JobOption {
	return func(j *Job) {
		j.metrics = c
	}
}

// WithLogger 指定日志输出。
func WithLogger(l *slog.Logger) JobOption {
	return func(j *Job) {
		if l != nil {
			j.logger = l
		}
	}
}

// NewJob 构造 Job。
func NewJob(connector Connector, opts ...JobOption) *Job {
	j := &Job{
		connector: connector,
		locker:    lock.Noop{},
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(j)
		}
	}
	if j.logger == nil {
		j.logger = logger.Named("pipeline")
	}
	return j
}

// RunCycle 读取全部源表、生成报表并整表替换。
// 租约被其他实例持有时本周期跳过并返回 nil。
func (j *Job) RunCycle(ctx context.Context) (err error) {
	runID := uuid.NewString()
	log := j.logger.With(slog.String("run_id", runID))
	started := j.now()
	stage := stageLock

	defer func() {
		if err == nil {
			return
		}
		finished := j.now()
		j.metrics.ObserveCycle(metrics.ResultFailure, finished.Sub(started), finished)
		log.Error("刷新周期失败",
			slog.String("stage", stage),
			slog.String("code", string(xerrors.CodeOf(err))),
			slog.Bool("retryable", xerrors.RetryableError(err)),
			slog.Duration("elapsed", finished.Sub(started)),
			slog.Any("error", err))
	}()

	lease, ok, err := j.locker.TryLock(ctx)
	if err != nil {
		return err
	}
	if !ok {
		j.metrics.ObserveCycle(metrics.ResultSkipped, 0, j.now())
		log.Info("周期租约被其他实例持有，跳过本周期")
		return nil
	}
	defer func() {
		if releaseErr := lease.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			log.Warn("释放周期租约失败", slog.Any("error", releaseErr))
		}
	}()
	// 租约丢失时 ctx 被取消，正在进行的写入随之中止
	ctx, stopRenew := lock.KeepAlive(ctx, lease, func(renewErr error) {
		log.Warn("续期周期租约失败", slog.Any("error", renewErr))
	})
	defer stopRenew()

	stage = stageConnect
	session, err := j.connector.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			log.Warn("关闭数据库连接失败", slog.Any("error", closeErr))
		}
	}()

	stage = stageExtract
	snap, err := session.Source.ReadSnapshot(ctx)
	if err != nil {
		return err
	}
	extracted := snap.Counts()
	j.metrics.SetRowsExtracted(extracted)
	log.Debug("源表读取完成", slog.Any("rows", extracted))

	stage = stageTransform
	result, err := transform.Run(snap)
	if err != nil {
		return err
	}

	stage = stageLoad
	loaded, err := session.Sink.Replace(ctx, result.LeadInsights, result.UserPerformance)
	if err != nil {
		if cause := context.Cause(ctx); errors.Is(cause, lock.ErrLeaseLost) {
			return errors.Join(cause, err)
		}
		return err
	}

	finished := j.now()
	elapsed := finished.Sub(started)
	j.metrics.SetRowsLoaded(loaded)
	j.metrics.ObserveCycle(metrics.ResultSuccess, elapsed, finished)
	log.Info("刷新周期完成",
		slog.Any("rows", loaded),
		slog.Duration("elapsed", elapsed))

	event := notify.Event{
		RunID:       runID,
		Tables:      loaded,
		RefreshedAt: finished,
		DurationMS:  elapsed.Milliseconds(),
	}
	if pubErr := j.publisher.Publish(ctx, event); pubErr != nil {
		log.Warn("刷新通知发送失败",
			slog.String("code", string(xerrors.CodeNotifyFailure)),
			slog.Any("error", pubErr))
	}
	return nil
}
