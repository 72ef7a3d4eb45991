package transform

import (
	"database/sql"
	"slices"

	"Lotus-Dashboard/internal/model"
)

// BuildUserPerformance 为每个 (lead, deal, deal_task) 生成一行并计算任务时长。
// 每个 deal 最新的任务在仍处于进行中或无人评论时，按负责组成员展开为多行。
func BuildUserPerformance(s *model.Snapshot) []model.UserPerformance {
	idx := newIndex(s)
	return buildUserPerformance(idx, buildRoster(idx, s.UserAccesses), s)
}

func buildUserPerformance(idx *index, members roster, s *model.Snapshot) []model.UserPerformance {
	var out []model.UserPerformance
	for i := range s.Deals {
		deal := &s.Deals[i]
		if !deal.LeadID.Valid {
			continue
		}
		lead, ok := idx.leads[deal.LeadID.Int64]
		if !ok {
			continue
		}
		tasks := idx.tasksByDeal[deal.ID]
		if len(tasks) == 0 {
			continue
		}
		recent := mostRecentTask(tasks)
		contacted := idx.firstContacted(deal, tasks)
		for _, task := range tasks {
			row := idx.performanceRow(lead, deal, task)
			row.TimeFirstContacted = contacted
			row.IsRecentTaskOnDeal = task == recent
			out = append(out, assignUsers(row, task, members)...)
		}
	}
	for i := range out {
		idx.attachUser(&out[i])
	}
	slices.SortStableFunc(out, func(a, b model.UserPerformance) int {
		if c := compareInt64(a.DealID, b.DealID); c != 0 {
			return c
		}
		if c := compareInt64(a.DealTaskID, b.DealTaskID); c != 0 {
			return c
		}
		return cmpNullInt(a.DealCommentUserID, b.DealCommentUserID)
	})
	return out
}

// mostRecentTask 取 (created_at, id) 最大的任务。
func mostRecentTask(tasks []*model.DealTask) *model.DealTask {
	recent := tasks[0]
	for _, t := range tasks[1:] {
		c := cmpNullTime(t.CreatedAt, recent.CreatedAt)
		if c > 0 || (c == 0 && t.ID > recent.ID) {
			recent = t
		}
	}
	return recent
}

// firstContacted 是 deal 创建到第一条 contacted 评论的小时数。
func (idx *index) firstContacted(deal *model.Deal, tasks []*model.DealTask) sql.NullFloat64 {
	var first *model.DealComment
	for _, task := range tasks {
		for _, c := range idx.comments(task) {
			if !isStatus(c.Status, CommentContacted) {
				continue
			}
			if first == nil || compareComments(c, first) < 0 {
				first = c
			}
		}
	}
	if first == nil {
		return sql.NullFloat64{}
	}
	return hoursBetween(deal.CreatedAt, first.CreatedAt)
}

func (idx *index) performanceRow(lead *model.Lead, deal *model.Deal, task *model.DealTask) model.UserPerformance {
	row := model.UserPerformance{
		LeadID:         lead.ID,
		LeadCreatedAt:  lead.CreatedAt,
		DealID:         deal.ID,
		DealCode:       deal.Code,
		GroupID:        deal.GroupID,
		State:          deal.State,
		LOIStatus:      deal.LOIStatus,
		DealCreatedAt:  deal.CreatedAt,
		DealUpdatedAt:  deal.UpdatedAt,
		DealTaskID:     task.ID,
		AssignedGroup:  task.AssignedGroup,
		TaskID:         task.TaskID,
		TaskGroupID:    task.GroupID,
		TaskDueDate:    task.DueDate,
		DealTaskStatus: task.Status,
		TaskStatus:     task.TaskStatus,
		TaskCreatedAt:  task.CreatedAt,
		TaskUpdatedAt:  task.UpdatedAt,
	}

	comments := idx.comments(task)
	if n := len(comments); n > 0 {
		first, last := comments[0], comments[n-1]
		row.DealCommentID = validInt(last.ID)
		row.DealCommentUserID = last.UserID
		row.Text = last.Text
		row.Status = last.Status
		row.CommentCreatedAt = last.CreatedAt
		row.TimeFirstActivity = hoursBetween(task.CreatedAt, first.CreatedAt)
		row.TimeDoingTask = hoursBetween(first.CreatedAt, last.CreatedAt)
		for i := n - 1; i >= 0; i-- {
			if hasStatus(comments[i].Status, closingCommentStatuses) {
				row.TimeCloseDealTask = hoursBetween(task.CreatedAt, comments[i].CreatedAt)
				break
			}
		}
	} else if isStatus(task.TaskStatus, TaskStatusTransfer) {
		row.TimeFirstActivity = hoursBetween(task.CreatedAt, task.UpdatedAt)
	}

	if group := idx.group(task.AssignedGroup); group != nil {
		row.GroupName = group.Name
		row.Code = group.Code
		row.Type = group.Type
		if group.Code.Valid {
			if mall, ok := idx.mallsByCode[group.Code.String]; ok {
				row.Region = mall.Region
				row.AreaCode = mall.AreaCode
				row.Province = mall.Province
			}
		}
	}
	return row
}

// assignUsers 对最新任务做负责人展开，其余任务原样返回一行。
// 负责组没有成员时该任务不产生任何行。
func assignUsers(row model.UserPerformance, task *model.DealTask, members roster) []model.UserPerformance {
	if !row.IsRecentTaskOnDeal {
		return []model.UserPerformance{row}
	}
	if !hasStatus(task.Status, activeDealTaskStatuses) && row.DealCommentUserID.Valid {
		return []model.UserPerformance{row}
	}
	group := members.members(task.AssignedGroup)
	rows := make([]model.UserPerformance, 0, len(group))
	for _, m := range group {
		r := row
		r.DealCommentUserID = validInt(m.UserID)
		r.Username = m.Username
		r.Role = m.Role
		rows = append(rows, r)
	}
	return rows
}

func (idx *index) attachUser(row *model.UserPerformance) {
	user := idx.user(row.DealCommentUserID)
	if user == nil {
		return
	}
	if !row.Username.Valid {
		row.Username = user.Username
	}
	if !row.Role.Valid {
		row.Role = user.Role
	}
	row.FirstName = user.FirstName
	row.LastName = user.LastName
	row.UserCommentLastActiveDate = dateOnly(user.LastActiveDate)
	row.UserCommentCreatedAt = user.CreatedAt
	row.UserCommentFirstLast = displayName(user.FirstName, user.LastName)
}
