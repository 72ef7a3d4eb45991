// Package transform 把一个周期的源表快照加工成 lead_insight 与 user_performance 两张报表。
//
// 所有连接都在内存中以哈希表完成，"取第一条/最后一条"类去重一律使用显式排序键，
// 结果与源表行的读取顺序无关。空连接键不与任何行匹配。
package transform

import (
	"fmt"

	xerrors "Lotus-Dashboard/internal/errors"
	"Lotus-Dashboard/internal/model"
)

// Result 是一个周期的加工结果。
type Result struct {
	LeadInsights    []model.LeadInsight
	UserPerformance []model.UserPerformance
}

// Counts 返回每张报表的行数。
func (r Result) Counts() map[string]int {
	return map[string]int{
		model.TableLeadInsight:     len(r.LeadInsights),
		model.TableUserPerformance: len(r.UserPerformance),
	}
}

// Run 校验快照后生成两张报表。主键重复的快照会让连接结果翻倍，直接拒绝。
func Run(s *model.Snapshot) (Result, error) {
	if s == nil {
		return Result{}, xerrors.New(xerrors.CodeTransformFailure, "快照为空")
	}
	if err := validateSnapshot(s); err != nil {
		return Result{}, err
	}
	idx := newIndex(s)
	return Result{
		LeadInsights:    buildLeadInsights(idx, s),
		UserPerformance: buildUserPerformance(idx, buildRoster(idx, s.UserAccesses), s),
	}, nil
}

func validateSnapshot(s *model.Snapshot) error {
	checks := []struct {
		table string
		ids   func(yield func(int64))
	}{
		{model.TableLead, func(y func(int64)) {
			for _, r := range s.Leads {
				y(r.ID)
			}
		}},
		{model.TableDeal, func(y func(int64)) {
			for _, r := range s.Deals {
				y(r.ID)
			}
		}},
		{model.TableMall, func(y func(int64)) {
			for _, r := range s.Malls {
				y(r.ID)
			}
		}},
		{model.TableArea, func(y func(int64)) {
			for _, r := range s.Areas {
				y(r.ID)
			}
		}},
		{model.TableGroup, func(y func(int64)) {
			for _, r := range s.Groups {
				y(r.ID)
			}
		}},
		{model.TableDealTask, func(y func(int64)) {
			for _, r := range s.DealTasks {
				y(r.ID)
			}
		}},
		{model.TableDealComment, func(y func(int64)) {
			for _, r := range s.DealComments {
				y(r.ID)
			}
		}},
		{model.TableUser, func(y func(int64)) {
			for _, r := range s.Users {
				y(r.ID)
			}
		}},
	}
	for _, check := range checks {
		seen := make(map[int64]struct{})
		var dup int64
		found := false
		check.ids(func(id int64) {
			if found {
				return
			}
			if _, ok := seen[id]; ok {
				dup, found = id, true
				return
			}
			seen[id] = struct{}{}
		})
		if found {
			return xerrors.New(xerrors.CodeTransformFailure,
				fmt.Sprintf("%s 表存在重复主键 %d", check.table, dup),
				xerrors.WithMetadata("table", check.table),
				xerrors.WithRetryable(false))
		}
	}
	return nil
}
