// Package notify 在报表刷新完成后向下游广播事件。
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"Lotus-Dashboard/pkg/logger"
)

// Channel 表示通知渠道。
type Channel string

// 支持的通知渠道
const (
	ChannelLog      Channel = "log"
	ChannelRabbitMQ Channel = "rabbitmq"
)

// Event 描述一次成功的报表刷新。
type Event struct {
	RunID       string         `json:"run_id"`
	Tables      map[string]int `json:"tables"`
	RefreshedAt time.Time      `json:"refreshed_at"`
	DurationMS  int64          `json:"duration_ms"`
}

// Marshal 返回事件的 JSON 负载。
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher 把事件发送到某个渠道。
type Publisher interface {
	Channel() Channel
	Publish(ctx context.Context, event Event) error
}

// Fanout 将事件投递给所有已注册的渠道。
type Fanout struct {
	publishers map[Channel]Publisher
}

// NewFanout 创建广播器，同一渠道只保留最后一个。
func NewFanout(publishers ...Publisher) *Fanout {
	set := make(map[Channel]Publisher, len(publishers))
	for _, p := range publishers {
		if p == nil {
			continue
		}
		set[p.Channel()] = p
	}
	return &Fanout{publishers: set}
}

// Publish 依次投递，收集全部失败。
func (f *Fanout) Publish(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, p := range f.publishers {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("channel %s: %w", p.Channel(), err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LogPublisher 只写一条结构化日志。
type LogPublisher struct{}

// Channel 返回日志渠道。
func (LogPublisher) Channel() Channel { return ChannelLog }

// Publish 记录刷新结果。
func (LogPublisher) Publish(_ context.Context, event Event) error {
	attrs := []any{
		slog.String("run_id", event.RunID),
		slog.Time("refreshed_at", event.RefreshedAt),
		slog.Int64("duration_ms", event.DurationMS),
	}
	for table, n := range event.Tables {
		attrs = append(attrs, slog.Int(table, n))
	}
	logger.Named("notify").Info("报表已刷新", attrs...)
	return nil
}
