package transform

import (
	"database/sql"
	"slices"

	"Lotus-Dashboard/internal/model"
)

// fanoutRow 是某个 deal 按 task、comment 展开后的一行，两者都可能为空。
type fanoutRow struct {
	task    *model.DealTask
	comment *model.DealComment
}

func (r fanoutRow) taskID() sql.NullInt64 {
	if r.task == nil {
		return sql.NullInt64{}
	}
	return validInt(r.task.ID)
}

func (r fanoutRow) commentCreatedAt() sql.NullTime {
	if r.comment == nil {
		return sql.NullTime{}
	}
	return r.comment.CreatedAt
}

func (r fanoutRow) commentID() sql.NullInt64 {
	if r.comment == nil {
		return sql.NullInt64{}
	}
	return validInt(r.comment.ID)
}

func (r fanoutRow) commentStatus() sql.NullString {
	if r.comment == nil {
		return sql.NullString{}
	}
	return r.comment.Status
}

// compareFanout 以 (deal_task_id, comment_created_at, comment_id) 排序，NULL 最小。
func compareFanout(a, b fanoutRow) int {
	if c := cmpNullInt(a.taskID(), b.taskID()); c != 0 {
		return c
	}
	if c := cmpNullTime(a.commentCreatedAt(), b.commentCreatedAt()); c != 0 {
		return c
	}
	return cmpNullInt(a.commentID(), b.commentID())
}

func (idx *index) fanout(dealID int64) []fanoutRow {
	tasks := idx.tasksByDeal[dealID]
	if len(tasks) == 0 {
		// 没有任务的 deal 只连接 deal_task_id 为空的评论
		untasked := idx.untasked[dealID]
		if len(untasked) == 0 {
			return []fanoutRow{{}}
		}
		rows := make([]fanoutRow, 0, len(untasked))
		for _, c := range untasked {
			rows = append(rows, fanoutRow{comment: c})
		}
		return rows
	}
	rows := make([]fanoutRow, 0, len(tasks))
	for _, task := range tasks {
		comments := idx.comments(task)
		if len(comments) == 0 {
			rows = append(rows, fanoutRow{task: task})
			continue
		}
		for _, c := range comments {
			rows = append(rows, fanoutRow{task: task, comment: c})
		}
	}
	slices.SortStableFunc(rows, compareFanout)
	return rows
}

// BuildLeadInsights 为每个 (lead, deal) 生成一行；没有 deal 的 lead 单独占一行。
// 任务与评论展开后只保留排序最末的一行，三个时长指标在展开结果上计算。
func BuildLeadInsights(s *model.Snapshot) []model.LeadInsight {
	return buildLeadInsights(newIndex(s), s)
}

func buildLeadInsights(idx *index, s *model.Snapshot) []model.LeadInsight {
	out := make([]model.LeadInsight, 0, len(s.Leads))
	for i := range s.Leads {
		lead := &s.Leads[i]
		deals := idx.dealsByLead[lead.ID]
		if len(deals) == 0 {
			out = append(out, buildLeadInsight(idx, lead, nil))
			continue
		}
		for _, deal := range deals {
			out = append(out, buildLeadInsight(idx, lead, deal))
		}
	}
	slices.SortStableFunc(out, func(a, b model.LeadInsight) int {
		if c := compareInt64(a.LeadID, b.LeadID); c != 0 {
			return c
		}
		return cmpNullInt(a.DealID, b.DealID)
	})
	return out
}

func buildLeadInsight(idx *index, lead *model.Lead, deal *model.Deal) model.LeadInsight {
	row := model.LeadInsight{
		LeadID:               lead.ID,
		LeadSender:           classifySender(lead.UserID),
		Category:             lead.Category,
		StoreFormat:          lead.StoreFormat,
		Source:               lead.Source,
		BrandType:            lead.BrandType,
		RentType:             lead.RentType,
		SizeRange:            lead.SizeRange,
		LeadCreatedAt:        lead.CreatedAt,
		LeadCreatedDayOfWeek: dayOfWeek(lead.CreatedAt),
	}
	if deal != nil {
		row.DealID = validInt(deal.ID)
		row.State = deal.State
		row.DealCreatedAt = deal.CreatedAt
		if link, ok := idx.areaLinks[dealKey{leadID: lead.ID, dealID: deal.ID}]; ok {
			row.AreaType = link.area.Type
			row.AreaProvince = link.area.Province
			row.MallID = link.mallID
		}
	}
	if mall := idx.mall(row.MallID); mall != nil {
		row.MallName = mall.Name
		row.MallProvince = mall.Province
		row.MallType = mall.Type
		row.MallRegion = mall.Region
		row.MallDistrict = mall.District
	}
	row.Province = concatProvince(row.AreaProvince, row.MallProvince)

	if deal != nil {
		idx.fillActivity(&row, deal)
	}
	relabelLeadInsight(&row)
	return row
}

// fillActivity 在 deal 的任务、评论展开结果上计算时长，并用最末一行填充任务与评论列。
func (idx *index) fillActivity(row *model.LeadInsight, deal *model.Deal) {
	rows := idx.fanout(deal.ID)
	var closed, contacted *fanoutRow
	for i := range rows {
		switch status := rows[i].commentStatus(); {
		case isStatus(status, CommentWin), isStatus(status, CommentLose):
			closed = &rows[i]
		case isStatus(status, CommentContacted):
			if contacted == nil {
				contacted = &rows[i]
			}
		}
	}
	if closed != nil {
		row.DealTimeUsed = hoursBetween(deal.CreatedAt, closed.comment.CreatedAt)
	}
	if contacted != nil {
		row.FirstContactedTimeUsed = hoursBetween(deal.CreatedAt, contacted.comment.CreatedAt)
	}
	row.TimeFirstActivity = firstActivity(rows[0], deal.CreatedAt)

	last := rows[len(rows)-1]
	if t := last.task; t != nil {
		row.DealTaskID = validInt(t.ID)
		row.TaskID = t.TaskID
		row.DealTaskStatus = t.Status
		row.TaskStatus = t.TaskStatus
		row.DealTaskDueDate = t.DueDate
		row.DealTaskUpdatedAt = t.UpdatedAt
	}
	if c := last.comment; c != nil {
		row.CommentID = validInt(c.ID)
		row.CommentUserID = c.UserID
		row.CommentText = c.Text
		row.CommentStatus = c.Status
		row.CommentCreatedAt = c.CreatedAt
	}
}

// firstActivity 取展开后第一行：有评论时间用评论时间，
// 否则任务已转交时用任务更新时间，都没有则为空。
func firstActivity(first fanoutRow, dealCreatedAt sql.NullTime) sql.NullFloat64 {
	if ts := first.commentCreatedAt(); ts.Valid {
		return hoursBetween(dealCreatedAt, ts)
	}
	if first.task != nil && isStatus(first.task.TaskStatus, TaskStatusTransfer) {
		return hoursBetween(dealCreatedAt, first.task.UpdatedAt)
	}
	return sql.NullFloat64{}
}
