package pipeline

import (
	"context"
	"errors"

	xerrors "Lotus-Dashboard/internal/errors"
	"Lotus-Dashboard/internal/model"
	"Lotus-Dashboard/internal/storage/mysql"
)

// Source 读取一个周期的源表快照。
type Source interface {
	ReadSnapshot(ctx context.Context) (*model.Snapshot, error)
}

// Sink 用加工结果替换报表库内容。
type Sink interface {
	Replace(ctx context.Context, insights []model.LeadInsight, performance []model.UserPerformance) (map[string]int, error)
}

// Session 是单个周期持有的两端连接，周期结束即关闭。
type Session struct {
	Source Source
	Sink   Sink
	close  func() error
}

// NewSession 组装一个会话，closeFn 可以为空。
func NewSession(source Source, sink Sink, closeFn func() error) *Session {
	return &Session{Source: source, Sink: sink, close: closeFn}
}

// Close 释放会话持有的连接。
func (s *Session) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// Connector 为每个周期建立新的会话。
type Connector interface {
	Connect(ctx context.Context) (*Session, error)
}

// MySQLConnector 每次连接都打开源库与报表库两个连接池。
type MySQLConnector struct {
	Source    mysql.Config
	Dest      mysql.Config
	BatchSize int
}

// Connect 实现 Connector。
func (c MySQLConnector) Connect(ctx context.Context) (*Session, error) {
	src, err := mysql.Open(ctx, c.Source)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeExtractFailure, err, "连接源库失败")
	}
	dst, err := mysql.Open(ctx, c.Dest)
	if err != nil {
		src.Close()
		return nil, xerrors.Wrap(xerrors.CodeLoadFailure, err, "连接报表库失败")
	}
	return NewSession(
		mysql.NewSourceReader(src),
		mysql.NewReportWriter(dst, mysql.WithBatchSize(c.BatchSize)),
		func() error { return errors.Join(src.Close(), dst.Close()) },
	), nil
}
