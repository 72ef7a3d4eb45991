package model

import (
	"database/sql"
	"math"
)

// 报表库中由本作业全量管理的表。
const (
	TableLeadInsight     = "lead_insight"
	TableUserPerformance = "user_performance"
)

// ManagedTables 是每个周期都会被清空重建的表。
var ManagedTables = []string{TableLeadInsight, TableUserPerformance}

// LeadInsight 对应 lead_insight 的一行，时长字段单位为小时。
type LeadInsight struct {
	LeadID                 int64           `db:"lead_id"`
	DealID                 sql.NullInt64   `db:"deal_id"`
	State                  sql.NullInt64   `db:"state"`
	LeadSender             sql.NullString  `db:"lead_sender"`
	Category               sql.NullString  `db:"category"`
	StoreFormat            sql.NullString  `db:"store_format"`
	Source                 sql.NullString  `db:"source"`
	BrandType              sql.NullString  `db:"brand_type"`
	RentType               sql.NullString  `db:"rent_type"`
	SizeRange              sql.NullString  `db:"size_range"`
	LeadCreatedAt          sql.NullTime    `db:"lead_created_at"`
	DealCreatedAt          sql.NullTime    `db:"deal_created_at"`
	LeadCreatedDayOfWeek   sql.NullString  `db:"lead_created_day_of_week"`
	AreaType               sql.NullString  `db:"area_type"`
	MallID                 sql.NullInt64   `db:"mall_id"`
	AreaProvince           sql.NullString  `db:"area_province"`
	MallName               sql.NullString  `db:"mall_name"`
	MallProvince           sql.NullString  `db:"mall_province"`
	MallType               sql.NullString  `db:"mall_type"`
	MallRegion             sql.NullString  `db:"mall_region"`
	MallDistrict           sql.NullString  `db:"mall_district"`
	Province               sql.NullString  `db:"province"`
	DealTaskID             sql.NullInt64   `db:"deal_task_id"`
	TaskID                 sql.NullInt64   `db:"task_id"`
	DealTaskStatus         sql.NullString  `db:"deal_task_status"`
	TaskStatus             sql.NullString  `db:"task_status"`
	DealTaskDueDate        sql.NullTime    `db:"deal_task_due_date"`
	DealTaskUpdatedAt      sql.NullTime    `db:"deal_task_updated_at"`
	CommentID              sql.NullInt64   `db:"comment_id"`
	CommentUserID          sql.NullInt64   `db:"comment_user_id"`
	CommentText            sql.NullString  `db:"comment_text"`
	CommentStatus          sql.NullString  `db:"comment_status"`
	CommentCreatedAt       sql.NullTime    `db:"comment_created_at"`
	TimeFirstActivity      sql.NullFloat64 `db:"time_first_activity"`
	FirstContactedTimeUsed sql.NullFloat64 `db:"first_contacted_time_used"`
	DealTimeUsed           sql.NullFloat64 `db:"deal_time_used"`
}

// LeadInsightColumns 与 LeadInsight 的 db 标签一一对应，顺序即写入顺序。
var LeadInsightColumns = []string{
	"lead_id", "deal_id", "state", "lead_sender", "category", "store_format", "source",
	"brand_type", "rent_type", "size_range", "lead_created_at", "deal_created_at",
	"lead_created_day_of_week", "area_type", "mall_id", "area_province", "mall_name",
	"mall_province", "mall_type", "mall_region", "mall_district", "province",
	"deal_task_id", "task_id", "deal_task_status", "task_status", "deal_task_due_date",
	"deal_task_updated_at", "comment_id", "comment_user_id", "comment_text",
	"comment_status", "comment_created_at", "time_first_activity",
	"first_contacted_time_used", "deal_time_used",
}

// Sanitize 把上游遗留的 NaN/NaT 占位值替换为真正的 NULL。
func (r *LeadInsight) Sanitize() {
	for _, s := range []*sql.NullString{
		&r.LeadSender, &r.Category, &r.StoreFormat, &r.Source, &r.BrandType, &r.RentType,
		&r.SizeRange, &r.LeadCreatedDayOfWeek, &r.AreaType, &r.AreaProvince, &r.MallName,
		&r.MallProvince, &r.MallType, &r.MallRegion, &r.MallDistrict, &r.Province,
		&r.DealTaskStatus, &r.TaskStatus, &r.CommentText, &r.CommentStatus,
	} {
		nullifySentinel(s)
	}
	for _, f := range []*sql.NullFloat64{&r.TimeFirstActivity, &r.FirstContactedTimeUsed, &r.DealTimeUsed} {
		nullifyNaN(f)
	}
}

// UserPerformance 对应 user_performance 的一行。
// 展开后的每一行代表 (lead, deal, task, 负责人) 组合。
type UserPerformance struct {
	LeadID                    int64           `db:"lead_id"`
	LeadCreatedAt             sql.NullTime    `db:"lead_created_at"`
	DealID                    int64           `db:"deal_id"`
	DealCode                  sql.NullString  `db:"deal_code"`
	GroupID                   sql.NullInt64   `db:"group_id"`
	State                     sql.NullInt64   `db:"state"`
	LOIStatus                 sql.NullString  `db:"loi_status"`
	DealCreatedAt             sql.NullTime    `db:"deal_created_at"`
	DealUpdatedAt             sql.NullTime    `db:"deal_updated_at"`
	DealTaskID                int64           `db:"deal_task_id"`
	AssignedGroup             sql.NullInt64   `db:"assigned_group"`
	TaskID                    sql.NullInt64   `db:"task_id"`
	TaskGroupID               sql.NullInt64   `db:"task_group_id"`
	TaskDueDate               sql.NullTime    `db:"task_due_date"`
	DealTaskStatus            sql.NullString  `db:"deal_task_status"`
	TaskStatus                sql.NullString  `db:"task_status"`
	TaskCreatedAt             sql.NullTime    `db:"task_created_at"`
	TaskUpdatedAt             sql.NullTime    `db:"task_updated_at"`
	DealCommentID             sql.NullInt64   `db:"deal_comment_id"`
	DealCommentUserID         sql.NullInt64   `db:"deal_comment_user_id"`
	Text                      sql.NullString  `db:"text"`
	Status                    sql.NullString  `db:"status"`
	CommentCreatedAt          sql.NullTime    `db:"comment_created_at"`
	TimeCloseDealTask         sql.NullFloat64 `db:"time_close_deal_task"`
	TimeFirstActivity         sql.NullFloat64 `db:"time_first_activity"`
	TimeFirstContacted        sql.NullFloat64 `db:"time_first_contacted"`
	TimeDoingTask             sql.NullFloat64 `db:"time_doing_task"`
	IsRecentTaskOnDeal        bool            `db:"is_recent_task_on_deal"`
	GroupName                 sql.NullString  `db:"group_name"`
	Code                      sql.NullString  `db:"code"`
	Type                      sql.NullString  `db:"type"`
	Region                    sql.NullString  `db:"region"`
	AreaCode                  sql.NullString  `db:"area_code"`
	Province                  sql.NullString  `db:"province"`
	Username                  sql.NullString  `db:"username"`
	Role                      sql.NullString  `db:"role"`
	UserCommentLastActiveDate sql.NullTime    `db:"user_comment_last_active_date"`
	FirstName                 sql.NullString  `db:"first_name"`
	LastName                  sql.NullString  `db:"last_name"`
	UserCommentCreatedAt      sql.NullTime    `db:"user_comment_created_at"`
	UserCommentFirstLast      sql.NullString  `db:"user_comment_first_last"`
}

// UserPerformanceColumns 与 UserPerformance 的 db 标签一一对应。
var UserPerformanceColumns = []string{
	"lead_id", "lead_created_at", "deal_id", "deal_code", "group_id", "state", "loi_status",
	"deal_created_at", "deal_updated_at", "deal_task_id", "assigned_group", "task_id",
	"task_group_id", "task_due_date", "deal_task_status", "task_status", "task_created_at",
	"task_updated_at", "deal_comment_id", "deal_comment_user_id", "text", "status",
	"comment_created_at", "time_close_deal_task", "time_first_activity",
	"time_first_contacted", "time_doing_task", "is_recent_task_on_deal", "group_name",
	"code", "type", "region", "area_code", "province", "username", "role",
	"user_comment_last_active_date", "first_name", "last_name", "user_comment_created_at",
	"user_comment_first_last",
}

// Sanitize 把 NaN/NaT 占位值替换为 NULL。
func (r *UserPerformance) Sanitize() {
	for _, s := range []*sql.NullString{
		&r.DealCode, &r.LOIStatus, &r.DealTaskStatus, &r.TaskStatus, &r.Text, &r.Status,
		&r.GroupName, &r.Code, &r.Type, &r.Region, &r.AreaCode, &r.Province, &r.Username,
		&r.Role, &r.FirstName, &r.LastName, &r.UserCommentFirstLast,
	} {
		nullifySentinel(s)
	}
	for _, f := range []*sql.NullFloat64{&r.TimeCloseDealTask, &r.TimeFirstActivity, &r.TimeFirstContacted, &r.TimeDoingTask} {
		nullifyNaN(f)
	}
}

func nullifySentinel(s *sql.NullString) {
	if !s.Valid {
		return
	}
	switch s.String {
	case "NaN", "NaT", "nan":
		*s = sql.NullString{}
	}
}

func nullifyNaN(f *sql.NullFloat64) {
	if f.Valid && (math.IsNaN(f.Float64) || math.IsInf(f.Float64, 0)) {
		*f = sql.NullFloat64{}
	}
}
