package transform

import (
	"database/sql"
	"time"
)

var base = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC) // 周一

func at(hours float64) sql.NullTime {
	return sql.NullTime{Time: base.Add(time.Duration(hours * float64(time.Hour))), Valid: true}
}

func id(v int64) sql.NullInt64 { return sql.NullInt64{Int64: v, Valid: true} }

func str(v string) sql.NullString { return sql.NullString{String: v, Valid: true} }
