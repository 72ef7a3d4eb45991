package model

import "database/sql"

// Lead 是一条入站意向记录。UserID 为空表示租户自行提交。
type Lead struct {
	ID          int64          `db:"id"`
	UserID      sql.NullInt64  `db:"user_id"`
	Category    sql.NullString `db:"category"`
	StoreFormat sql.NullString `db:"store_format"`
	Source      sql.NullString `db:"source"`
	BrandType   sql.NullString `db:"brand_type"`
	RentType    sql.NullString `db:"rent_type"`
	SizeRange   sql.NullString `db:"size_range"`
	CreatedAt   sql.NullTime   `db:"created_at"`
}

// Deal 是由 Lead 派生的销售机会。
type Deal struct {
	ID        int64          `db:"id"`
	LeadID    sql.NullInt64  `db:"lead_id"`
	UserID    sql.NullInt64  `db:"user_id"`
	Code      sql.NullString `db:"code"`
	GroupID   sql.NullInt64  `db:"group_id"`
	State     sql.NullInt64  `db:"state"`
	LOIStatus sql.NullString `db:"loi_status"`
	CreatedAt sql.NullTime   `db:"created_at"`
	UpdatedAt sql.NullTime   `db:"updated_at"`
}

// Mall 商场主数据。
type Mall struct {
	ID       int64          `db:"id"`
	Code     sql.NullString `db:"code"`
	Name     sql.NullString `db:"name"`
	Province sql.NullString `db:"province"`
	Type     sql.NullString `db:"type"`
	Region   sql.NullString `db:"region"`
	District sql.NullString `db:"district"`
	AreaCode sql.NullString `db:"area_code"`
}

// Area 意向区域。
type Area struct {
	ID       int64          `db:"id"`
	Type     sql.NullString `db:"type"`
	Province sql.NullString `db:"province"`
}

// AreaDeal 关联 Area 与 (lead, deal, mall)。
type AreaDeal struct {
	ID     int64         `db:"id"`
	AreaID sql.NullInt64 `db:"area_id"`
	LeadID sql.NullInt64 `db:"lead_id"`
	DealID sql.NullInt64 `db:"deal_id"`
	MallID sql.NullInt64 `db:"mall_id"`
}

// Group 是任务的负责组，type 为 mall 的组通过 code 对应商场。
type Group struct {
	ID   int64          `db:"id"`
	Name sql.NullString `db:"name"`
	Type sql.NullString `db:"type"`
	Code sql.NullString `db:"code"`
}

// DealTask 是挂在 Deal 上的一项跟进任务。
type DealTask struct {
	ID            int64          `db:"id"`
	DealID        sql.NullInt64  `db:"deal_id"`
	TaskID        sql.NullInt64  `db:"task_id"`
	GroupID       sql.NullInt64  `db:"group_id"`
	AssignedGroup sql.NullInt64  `db:"assigned_group"`
	Status        sql.NullString `db:"status"`
	TaskStatus    sql.NullString `db:"task_status"`
	DueDate       sql.NullTime   `db:"due_date"`
	CreatedAt     sql.NullTime   `db:"created_at"`
	UpdatedAt     sql.NullTime   `db:"updated_at"`
}

// DealComment 是任务上带状态变更的评论。
type DealComment struct {
	ID         int64          `db:"id"`
	DealID     sql.NullInt64  `db:"deal_id"`
	DealTaskID sql.NullInt64  `db:"deal_task_id"`
	UserID     sql.NullInt64  `db:"user_id"`
	Text       sql.NullString `db:"text"`
	Status     sql.NullString `db:"status"`
	CreatedAt  sql.NullTime   `db:"created_at"`
}

// User 系统用户。
type User struct {
	ID             int64          `db:"id"`
	Username       sql.NullString `db:"username"`
	FirstName      sql.NullString `db:"first_name"`
	LastName       sql.NullString `db:"last_name"`
	Role           sql.NullString `db:"role"`
	LastActiveDate sql.NullTime   `db:"last_active_date"`
	CreatedAt      sql.NullTime   `db:"created_at"`
}

// UserAccess 把用户加入某个组。
type UserAccess struct {
	ID      int64         `db:"id"`
	UserID  sql.NullInt64 `db:"user_id"`
	GroupID sql.NullInt64 `db:"group_id"`
}

// Snapshot 是单个周期内从源库读出的全部表，周期结束即丢弃。
type Snapshot struct {
	Leads        []Lead
	Deals        []Deal
	Malls        []Mall
	Areas        []Area
	AreaDeals    []AreaDeal
	Groups       []Group
	DealTasks    []DealTask
	DealComments []DealComment
	Users        []User
	UserAccesses []UserAccess
}

// Counts 返回每张源表的行数，用于日志与指标。
func (s *Snapshot) Counts() map[string]int {
	return map[string]int{
		TableLead:        len(s.Leads),
		TableDeal:        len(s.Deals),
		TableMall:        len(s.Malls),
		TableArea:        len(s.Areas),
		TableAreaDeal:    len(s.AreaDeals),
		TableGroup:       len(s.Groups),
		TableDealTask:    len(s.DealTasks),
		TableDealComment: len(s.DealComments),
		TableUser:        len(s.Users),
		TableUserAccess:  len(s.UserAccesses),
	}
}

// 源库表名。
const (
	TableLead        = "lead"
	TableDeal        = "deal"
	TableMall        = "mall"
	TableArea        = "area"
	TableAreaDeal    = "area_deal"
	TableGroup       = "group"
	TableDealTask    = "deal_task"
	TableDealComment = "deal_comment"
	TableUser        = "user"
	TableUserAccess  = "user_access"
)
