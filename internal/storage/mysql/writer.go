package mysql

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"Lotus-Dashboard/deploy/schema"
	xerrors "Lotus-Dashboard/internal/errors"
	"Lotus-Dashboard/internal/model"
)

const (
	defaultBatchSize = 500
	// MySQL 预处理语句最多 65535 个占位符
	maxPlaceholders = 65535
)

var embeddedSchema fs.FS = schema.Files

// ReportWriter 负责本地报表库：建表、清空与批量写入。
type ReportWriter struct {
	db        *sqlx.DB
	batchSize int
}

// WriterOption 定义可选配置。
type WriterOption func(*ReportWriter)

// WithBatchSize 设置单条多行 INSERT 包含的行数。
func WithBatchSize(n int) WriterOption {
	return func(w *ReportWriter) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// NewReportWriter 创建写入器。
func NewReportWriter(db *sqlx.DB, opts ...WriterOption) *ReportWriter {
	w := &ReportWriter{db: db, batchSize: defaultBatchSize}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// EnsureSchema 执行内置的建表语句，表已存在时不做任何改动。
func (w *ReportWriter) EnsureSchema(ctx context.Context) error {
	files, err := loadSchemaFiles()
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取建表语句失败")
	}
	for _, file := range files {
		for _, stmt := range file.statements {
			if _, err := w.db.ExecContext(ctx, stmt); err != nil {
				return xerrors.Wrap(xerrors.CodeStorageFailure, err,
					fmt.Sprintf("执行建表语句 %s 失败", file.name),
					xerrors.WithMetadata("file", file.name))
			}
		}
	}
	return nil
}

// Replace 清空全部受管表后写入本周期结果，返回每张表写入的行数。
// 清空与写入在同一个会话上进行，外键检查只在清空期间关闭。写入前会就地清理行中的占位值。
func (w *ReportWriter) Replace(ctx context.Context, insights []model.LeadInsight, performance []model.UserPerformance) (map[string]int, error) {
	for i := range insights {
		insights[i].Sanitize()
	}
	for i := range performance {
		performance[i].Sanitize()
	}

	conn, err := w.db.Connx(ctx)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeLoadFailure, err, "获取报表库会话失败")
	}
	defer conn.Close()

	if err := truncateManaged(ctx, conn); err != nil {
		return nil, err
	}

	loaded := make(map[string]int, len(model.ManagedTables))
	n, err := insertBatches(ctx, w, conn, model.TableLeadInsight, model.LeadInsightColumns, insights)
	if err != nil {
		return nil, err
	}
	loaded[model.TableLeadInsight] = n

	n, err = insertBatches(ctx, w, conn, model.TableUserPerformance, model.UserPerformanceColumns, performance)
	if err != nil {
		return nil, err
	}
	loaded[model.TableUserPerformance] = n
	return loaded, nil
}

func truncateManaged(ctx context.Context, conn *sqlx.Conn) (err error) {
	if _, err := conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0"); err != nil {
		return xerrors.Wrap(xerrors.CodeLoadFailure, err, "关闭外键检查失败")
	}
	defer func() {
		// 会话会回到连接池，失败路径上也要恢复外键检查
		if _, restoreErr := conn.ExecContext(context.WithoutCancel(ctx), "SET FOREIGN_KEY_CHECKS = 1"); restoreErr != nil && err == nil {
			err = xerrors.Wrap(xerrors.CodeLoadFailure, restoreErr, "恢复外键检查失败")
		}
	}()

	for _, table := range model.ManagedTables {
		if _, err := conn.ExecContext(ctx, "TRUNCATE TABLE "+quoteIdent(table)); err != nil {
			return xerrors.Wrap(xerrors.CodeLoadFailure, err,
				fmt.Sprintf("清空 %s 失败", table),
				xerrors.WithMetadata("table", table))
		}
	}
	return nil
}

func insertBatches[T any](ctx context.Context, w *ReportWriter, conn *sqlx.Conn, table string, columns []string, rows []T) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	insert := insertSQL(table, columns)
	size := batchRows(w.batchSize, len(columns))
	written := 0
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		query, args, err := w.db.BindNamed(insert, rows[start:end])
		if err != nil {
			return written, xerrors.Wrap(xerrors.CodeLoadFailure, err,
				fmt.Sprintf("构造 %s 写入语句失败", table),
				xerrors.WithMetadata("table", table),
				xerrors.WithRetryable(false))
		}
		if _, err := conn.ExecContext(ctx, query, args...); err != nil {
			return written, xerrors.Wrap(xerrors.CodeLoadFailure, err,
				fmt.Sprintf("写入 %s 失败", table),
				xerrors.WithMetadata("table", table))
		}
		written += end - start
	}
	return written, nil
}

// batchRows 把每批行数限制在占位符上限以内。
func batchRows(batchSize, columns int) int {
	if columns <= 0 {
		return batchSize
	}
	return max(1, min(batchSize, maxPlaceholders/columns))
}

func insertSQL(table string, columns []string) string {
	quoted := make([]string, len(columns))
	named := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
		named[i] = ":" + col
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quoted, ", "), strings.Join(named, ", "))
}

type schemaFile struct {
	name       string
	statements []string
}

func loadSchemaFiles() ([]schemaFile, error) {
	entries, err := fs.ReadDir(embeddedSchema, ".")
	if err != nil {
		return nil, fmt.Errorf("读取建表目录失败: %w", err)
	}

	var files []schemaFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		name := entry.Name()
		content, err := fs.ReadFile(embeddedSchema, name)
		if err != nil {
			return nil, fmt.Errorf("读取建表文件 %s 失败: %w", name, err)
		}
		statements := splitSQLStatements(string(content))
		if len(statements) == 0 {
			continue
		}
		files = append(files, schemaFile{name: name, statements: statements})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files, nil
}

func splitSQLStatements(content string) []string {
	var statements []string
	for _, stmt := range strings.Split(stripComments(content), ";") {
		trimmed := strings.TrimSpace(stmt)
		if trimmed == "" {
			continue
		}
		statements = append(statements, trimmed)
	}
	return statements
}

func stripComments(content string) string {
	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
