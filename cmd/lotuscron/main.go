package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"Lotus-Dashboard/internal/config"
	"Lotus-Dashboard/internal/lock"
	"Lotus-Dashboard/internal/notify"
	"Lotus-Dashboard/internal/observability/metrics"
	"Lotus-Dashboard/internal/pipeline"
	"Lotus-Dashboard/internal/storage/mysql"
	"Lotus-Dashboard/pkg/logger"
)

const (
	defaultConfigPath = "config.json"
	configEnv         = "LOTUS_CONFIG"
)

type options struct {
	configPath string
	once       bool
}

// main 是报表刷新作业的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log.Fatalf("lotuscron 运行失败: %v", err)
	}
}

func newRootCommand() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "lotuscron",
		Short: "定时刷新 Lotus 看板的 lead_insight 与 user_performance 报表",
		Long: `lotuscron 周期性地从 CRM 源库读取全部业务表，生成看板报表后整表写入本地报表库。
默认每个周期结束后等待配置的间隔继续运行，--once 只执行一个周期。`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "配置文件路径（默认读取 $LOTUS_CONFIG 或 config.json）")
	cmd.Flags().BoolVar(&opts.once, "once", false, "只执行一个周期，失败时以非零状态退出")
	return cmd
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(resolveConfigPath(opts.configPath, os.Getenv(configEnv)))
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.Outputs,
		File: logger.FileConfig{
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
		},
	}); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logger.Sync()
	appLog := logger.Named("main")

	sourceCfg, err := mysql.ConfigFrom(cfg.DashboardDB)
	if err != nil {
		return err
	}
	destCfg, err := mysql.ConfigFrom(cfg.DatabaseConfig)
	if err != nil {
		return err
	}

	if err := ensureSchema(ctx, destCfg); err != nil {
		return err
	}

	collector := metrics.NewCollector()
	if cfg.Metrics.Address != "" {
		go func() {
			if err := metrics.StartServer(ctx, cfg.Metrics.Address, collector); err != nil && !errors.Is(err, context.Canceled) {
				appLog.Warn("metrics 服务退出", slog.Any("error", err))
			}
		}()
		appLog.Info("metrics 服务已启动", slog.String("address", cfg.Metrics.Address))
	}

	jobOpts := []pipeline.JobOption{pipeline.WithMetrics(collector)}

	if cfg.Lock.RedisAddress != "" {
		locker, err := lock.NewRedisLocker(ctx, lock.RedisConfig{
			Address:  cfg.Lock.RedisAddress,
			Password: cfg.Lock.RedisPassword,
			DB:       cfg.Lock.RedisDB,
			Key:      cfg.Lock.Key,
			TTL:      time.Duration(cfg.Lock.TTLSeconds) * time.Second,
		})
		if err != nil {
			return err
		}
		defer locker.Close()
		jobOpts = append(jobOpts, pipeline.WithLocker(locker))
	}

	publishers := []notify.Publisher{notify.LogPublisher{}}
	if cfg.Notify.URL != "" {
		publisher, err := notify.NewRabbitMQPublisher(notify.RabbitMQConfig{
			URL:        cfg.Notify.URL,
			Exchange:   cfg.Notify.Exchange,
			RoutingKey: cfg.Notify.RoutingKey,
		})
		if err != nil {
			// 通知是可选能力，不影响报表刷新
			appLog.Warn("RabbitMQ 不可用，刷新通知仅写日志", slog.Any("error", err))
		} else {
			defer publisher.Close()
			publishers = append(publishers, publisher)
		}
	}
	jobOpts = append(jobOpts, pipeline.WithPublisher(notify.NewFanout(publishers...)))

	job := pipeline.NewJob(pipeline.MySQLConnector{
		Source:    sourceCfg,
		Dest:      destCfg,
		BatchSize: cfg.Scheduler.BatchSize,
	}, jobOpts...)
	scheduler := pipeline.NewScheduler(job, cfg.Interval())

	if opts.once {
		return scheduler.RunOnce(ctx)
	}
	return scheduler.Run(ctx)
}

// resolveConfigPath 优先使用命令行参数，其次环境变量，最后是默认路径。
func resolveConfigPath(flagValue, envValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue != "" {
		return envValue
	}
	return defaultConfigPath
}

func ensureSchema(ctx context.Context, cfg mysql.Config) error {
	db, err := mysql.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return mysql.NewReportWriter(db).EnsureSchema(ctx)
}
