package transform

import (
	"database/sql"
	"slices"

	"Lotus-Dashboard/internal/model"
)

type dealKey struct {
	leadID int64
	dealID int64
}

type taskKey struct {
	dealID     int64
	dealTaskID int64
}

// areaLink 是 (lead, deal) 选中的那条 area_deal 关联，取 area_deal.id 最大者。
type areaLink struct {
	areaDealID int64
	area       *model.Area
	mallID     sql.NullInt64
}

// index 把快照按连接键建好哈希表。空键不参与连接，
// 唯一的例外是 deal_task_id 为空的评论，它们挂在没有任务的 deal 上。
type index struct {
	leads          map[int64]*model.Lead
	dealsByLead    map[int64][]*model.Deal
	malls          map[int64]*model.Mall
	mallsByCode    map[string]*model.Mall
	areaLinks      map[dealKey]areaLink
	groups         map[int64]*model.Group
	tasksByDeal    map[int64][]*model.DealTask
	commentsByTask map[taskKey][]*model.DealComment
	untasked       map[int64][]*model.DealComment
	users          map[int64]*model.User
}

func newIndex(s *model.Snapshot) *index {
	idx := &index{
		leads:          make(map[int64]*model.Lead, len(s.Leads)),
		dealsByLead:    make(map[int64][]*model.Deal),
		malls:          make(map[int64]*model.Mall, len(s.Malls)),
		mallsByCode:    make(map[string]*model.Mall, len(s.Malls)),
		areaLinks:      make(map[dealKey]areaLink),
		groups:         make(map[int64]*model.Group, len(s.Groups)),
		tasksByDeal:    make(map[int64][]*model.DealTask),
		commentsByTask: make(map[taskKey][]*model.DealComment),
		untasked:       make(map[int64][]*model.DealComment),
		users:          make(map[int64]*model.User, len(s.Users)),
	}

	for i := range s.Leads {
		idx.leads[s.Leads[i].ID] = &s.Leads[i]
	}
	for i := range s.Deals {
		d := &s.Deals[i]
		if d.LeadID.Valid {
			idx.dealsByLead[d.LeadID.Int64] = append(idx.dealsByLead[d.LeadID.Int64], d)
		}
	}
	for i := range s.Malls {
		m := &s.Malls[i]
		idx.malls[m.ID] = m
		if !m.Code.Valid {
			continue
		}
		// 商场编码重复时取 id 最大者
		if prev, ok := idx.mallsByCode[m.Code.String]; !ok || m.ID > prev.ID {
			idx.mallsByCode[m.Code.String] = m
		}
	}

	areas := make(map[int64]*model.Area, len(s.Areas))
	for i := range s.Areas {
		areas[s.Areas[i].ID] = &s.Areas[i]
	}
	for i := range s.AreaDeals {
		ad := &s.AreaDeals[i]
		if !ad.AreaID.Valid || !ad.LeadID.Valid || !ad.DealID.Valid {
			continue
		}
		area, ok := areas[ad.AreaID.Int64]
		if !ok {
			continue
		}
		key := dealKey{leadID: ad.LeadID.Int64, dealID: ad.DealID.Int64}
		if prev, ok := idx.areaLinks[key]; ok && prev.areaDealID >= ad.ID {
			continue
		}
		idx.areaLinks[key] = areaLink{areaDealID: ad.ID, area: area, mallID: ad.MallID}
	}

	for i := range s.Groups {
		idx.groups[s.Groups[i].ID] = &s.Groups[i]
	}
	for i := range s.DealTasks {
		t := &s.DealTasks[i]
		if t.DealID.Valid {
			idx.tasksByDeal[t.DealID.Int64] = append(idx.tasksByDeal[t.DealID.Int64], t)
		}
	}
	for _, tasks := range idx.tasksByDeal {
		slices.SortFunc(tasks, func(a, b *model.DealTask) int { return compareInt64(a.ID, b.ID) })
	}
	for i := range s.DealComments {
		c := &s.DealComments[i]
		if !c.DealID.Valid {
			continue
		}
		if !c.DealTaskID.Valid {
			idx.untasked[c.DealID.Int64] = append(idx.untasked[c.DealID.Int64], c)
			continue
		}
		key := taskKey{dealID: c.DealID.Int64, dealTaskID: c.DealTaskID.Int64}
		idx.commentsByTask[key] = append(idx.commentsByTask[key], c)
	}
	for _, comments := range idx.commentsByTask {
		slices.SortFunc(comments, compareComments)
	}
	for _, comments := range idx.untasked {
		slices.SortFunc(comments, compareComments)
	}
	for i := range s.Users {
		idx.users[s.Users[i].ID] = &s.Users[i]
	}
	return idx
}

func (idx *index) mall(id sql.NullInt64) *model.Mall {
	if !id.Valid {
		return nil
	}
	return idx.malls[id.Int64]
}

func (idx *index) group(id sql.NullInt64) *model.Group {
	if !id.Valid {
		return nil
	}
	return idx.groups[id.Int64]
}

func (idx *index) user(id sql.NullInt64) *model.User {
	if !id.Valid {
		return nil
	}
	return idx.users[id.Int64]
}

func (idx *index) comments(task *model.DealTask) []*model.DealComment {
	if !task.DealID.Valid {
		return nil
	}
	return idx.commentsByTask[taskKey{dealID: task.DealID.Int64, dealTaskID: task.ID}]
}

// compareComments 按 (created_at, id) 升序，created_at 为空的排最前。
func compareComments(a, b *model.DealComment) int {
	if c := cmpNullTime(a.CreatedAt, b.CreatedAt); c != 0 {
		return c
	}
	return compareInt64(a.ID, b.ID)
}

func compareInt64(a, b int64) int {
	return cmpNullInt(validInt(a), validInt(b))
}
