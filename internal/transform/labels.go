package transform

import (
	"database/sql"
	"strings"

	"Lotus-Dashboard/internal/model"
)

// 评论状态。
const (
	CommentWin       = "win"
	CommentLose      = "lose"
	CommentContacted = "contacted"
	CommentDone      = "done"
	CommentTransfer  = "transfer"
)

// TaskStatusTransfer 表示任务已转交其他组。
const TaskStatusTransfer = "transfer"

// 任务仍在进行中的 deal_task.status。
var activeDealTaskStatuses = map[string]struct{}{
	"new":    {},
	"active": {},
}

// 关闭任务的评论状态。
var closingCommentStatuses = map[string]struct{}{
	CommentWin:      {},
	CommentLose:     {},
	CommentDone:     {},
	CommentTransfer: {},
}

var storeFormatLabels = map[string]string{
	"hypermarket":      "Hypermarket",
	"all":              "All",
	"mini_supermarket": "Mini_Supermarket",
	"supermarket":      "Supermarket",
	"cpfm":             "CPFM",
}

const (
	senderTenant   = "tenant"
	senderEmployee = "employee"
)

var senderLabels = map[string]string{
	senderEmployee: "Employee",
	senderTenant:   "Tenant",
}

// relabelLeadInsight 对 lead、区域、商场与任务来源的文本列做展示名替换。
// 评论列在替换之后才连接进来，保持原值。
func relabelLeadInsight(row *model.LeadInsight) {
	for _, col := range []*sql.NullString{
		&row.LeadSender, &row.Category, &row.StoreFormat, &row.Source,
		&row.BrandType, &row.RentType, &row.SizeRange, &row.LeadCreatedDayOfWeek,
		&row.AreaType, &row.AreaProvince, &row.MallName, &row.MallProvince,
		&row.MallType, &row.MallRegion, &row.MallDistrict, &row.Province,
		&row.DealTaskStatus, &row.TaskStatus,
	} {
		*col = relabel(relabel(*col, storeFormatLabels), senderLabels)
	}
}

// classifySender 只保留"租户/员工"二分，原始提交人 ID 不保留。
func classifySender(userID sql.NullInt64) sql.NullString {
	if !userID.Valid {
		return validString(senderTenant)
	}
	return validString(senderEmployee)
}

// relabel 对命中映射的取值做展示名替换，未命中原样返回。
func relabel(value sql.NullString, labels map[string]string) sql.NullString {
	if !value.Valid {
		return value
	}
	if label, ok := labels[value.String]; ok {
		return validString(label)
	}
	return value
}

// concatProvince 直接拼接区域省份与商场省份，中间没有分隔符，空值按空串处理。
// 看板上现有数据就是这个格式，改动前需要业务确认。
func concatProvince(area, mall sql.NullString) sql.NullString {
	var b strings.Builder
	if area.Valid {
		b.WriteString(area.String)
	}
	if mall.Valid {
		b.WriteString(mall.String)
	}
	return validString(b.String())
}

func hasStatus(value sql.NullString, set map[string]struct{}) bool {
	if !value.Valid {
		return false
	}
	_, ok := set[value.String]
	return ok
}

func isStatus(value sql.NullString, status string) bool {
	return value.Valid && value.String == status
}

func displayName(first, last sql.NullString) sql.NullString {
	parts := make([]string, 0, 2)
	for _, p := range []sql.NullString{first, last} {
		if p.Valid && strings.TrimSpace(p.String) != "" {
			parts = append(parts, strings.TrimSpace(p.String))
		}
	}
	if len(parts) == 0 {
		return sql.NullString{}
	}
	return validString(strings.Join(parts, " "))
}
