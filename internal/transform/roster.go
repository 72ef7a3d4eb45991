package transform

import (
	"database/sql"
	"slices"

	"Lotus-Dashboard/internal/model"
)

// rosterMember 是某个组的一名成员，其余用户字段由 attachUser 补齐。
type rosterMember struct {
	UserID   int64
	Username sql.NullString
	Role     sql.NullString
}

// roster 以组 ID 为键，成员按 user id 升序。
type roster map[int64][]rosterMember

// 成员资格排除规则：管理角色不出现在与其层级不符的组里。
var rosterExclusions = []struct {
	role      string
	mallGroup bool
}{
	{role: "area_manager", mallGroup: true},
	{role: "region_manager", mallGroup: true},
	{role: "mall_manager", mallGroup: false},
}

const groupTypeMall = "mall"

func excludedFromGroup(user *model.User, group *model.Group) bool {
	if !user.Role.Valid {
		return false
	}
	isMall := isStatus(group.Type, groupTypeMall)
	for _, rule := range rosterExclusions {
		if user.Role.String == rule.role && isMall == rule.mallGroup {
			return true
		}
	}
	return false
}

func buildRoster(idx *index, accesses []model.UserAccess) roster {
	r := make(roster)
	seen := make(map[[2]int64]struct{}, len(accesses))
	for _, access := range accesses {
		user := idx.user(access.UserID)
		group := idx.group(access.GroupID)
		if user == nil || group == nil || excludedFromGroup(user, group) {
			continue
		}
		key := [2]int64{group.ID, user.ID}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		r[group.ID] = append(r[group.ID], rosterMember{
			UserID:   user.ID,
			Username: user.Username,
			Role:     user.Role,
		})
	}
	for _, members := range r {
		slices.SortFunc(members, func(a, b rosterMember) int { return compareInt64(a.UserID, b.UserID) })
	}
	return r
}

func (r roster) members(groupID sql.NullInt64) []rosterMember {
	if !groupID.Valid {
		return nil
	}
	return r[groupID.Int64]
}
