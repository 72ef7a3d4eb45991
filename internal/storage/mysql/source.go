package mysql

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	xerrors "Lotus-Dashboard/internal/errors"
	"Lotus-Dashboard/internal/model"
)

// SourceReader 从业务源库整表读取快照，不做过滤、分页或水位。
type SourceReader struct {
	db *sqlx.DB
}

// NewSourceReader 返回一个读取器，源表中未建模的列会被忽略。
func NewSourceReader(db *sqlx.DB) *SourceReader {
	return &SourceReader{db: db.Unsafe()}
}

// ReadSnapshot 依次读取十张源表，任意一张失败即返回。
func (r *SourceReader) ReadSnapshot(ctx context.Context) (*model.Snapshot, error) {
	snap := &model.Snapshot{}
	reads := []struct {
		table string
		dest  any
	}{
		{model.TableLead, &snap.Leads},
		{model.TableDeal, &snap.Deals},
		{model.TableMall, &snap.Malls},
		{model.TableArea, &snap.Areas},
		{model.TableAreaDeal, &snap.AreaDeals},
		{model.TableGroup, &snap.Groups},
		{model.TableDealTask, &snap.DealTasks},
		{model.TableDealComment, &snap.DealComments},
		{model.TableUser, &snap.Users},
		{model.TableUserAccess, &snap.UserAccesses},
	}
	for _, read := range reads {
		if err := r.db.SelectContext(ctx, read.dest, selectAllSQL(read.table)); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeExtractFailure, err,
				fmt.Sprintf("读取 %s 表失败", read.table),
				xerrors.WithMetadata("table", read.table))
		}
	}
	return snap, nil
}

// lead、group、user 都是保留字，表名一律加反引号。
func selectAllSQL(table string) string {
	return "SELECT * FROM " + quoteIdent(table)
}

func quoteIdent(name string) string {
	return "`" + name + "`"
}
