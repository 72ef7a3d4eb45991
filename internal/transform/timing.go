package transform

import (
	"cmp"
	"database/sql"
	"time"
)

// hoursBetween 返回 end-start 的小时数，任一端为空时结果为空。
func hoursBetween(start, end sql.NullTime) sql.NullFloat64 {
	if !start.Valid || !end.Valid {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: end.Time.Sub(start.Time).Hours(), Valid: true}
}

// NULL 排在最前。
func cmpNullInt(a, b sql.NullInt64) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return -1
	case !b.Valid:
		return 1
	}
	return cmp.Compare(a.Int64, b.Int64)
}

func cmpNullTime(a, b sql.NullTime) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return -1
	case !b.Valid:
		return 1
	}
	return a.Time.Compare(b.Time)
}

func dayOfWeek(t sql.NullTime) sql.NullString {
	if !t.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Time.Weekday().String(), Valid: true}
}

// dateOnly 去掉时分秒，保留原时区。
func dateOnly(t sql.NullTime) sql.NullTime {
	if !t.Valid {
		return t
	}
	y, m, d := t.Time.Date()
	return sql.NullTime{Time: time.Date(y, m, d, 0, 0, 0, 0, t.Time.Location()), Valid: true}
}

func validInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}

func validString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: true}
}
