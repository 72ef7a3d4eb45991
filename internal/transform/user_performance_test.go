package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Lotus-Dashboard/internal/model"
)

func performanceSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Leads: []model.Lead{{ID: 1, CreatedAt: at(0)}},
		Deals: []model.Deal{{ID: 10, LeadID: id(1), Code: str("D-10"), CreatedAt: at(1)}},
		Malls: []model.Mall{{ID: 50, Code: str("M01"), Region: str("North"), AreaCode: str("A1"), Province: str("Chiang Mai")}},
		Groups: []model.Group{
			{ID: 20, Name: str("Mall 01"), Type: str("mall"), Code: str("M01")},
			{ID: 21, Name: str("Leasing"), Type: str("area"), Code: str("AR")},
		},
		Users: []model.User{
			{ID: 5, Username: str("som"), FirstName: str("Som"), LastName: str("Chai"), Role: str("leasing"), LastActiveDate: at(30.5)},
			{ID: 6, Username: str("nok"), FirstName: str("Nok"), Role: str("mall_manager")},
			{ID: 7, Username: str("area"), Role: str("area_manager")},
		},
		UserAccesses: []model.UserAccess{
			{ID: 1, UserID: id(5), GroupID: id(20)},
			{ID: 2, UserID: id(6), GroupID: id(20)},
			{ID: 3, UserID: id(7), GroupID: id(20)},
			{ID: 4, UserID: id(6), GroupID: id(21)},
			{ID: 5, UserID: id(7), GroupID: id(21)},
		},
		DealTasks: []model.DealTask{
			{ID: 100, DealID: id(10), AssignedGroup: id(21), Status: str("done"), CreatedAt: at(1)},
			{ID: 101, DealID: id(10), AssignedGroup: id(20), Status: str("active"), CreatedAt: at(3)},
		},
		DealComments: []model.DealComment{
			{ID: 1, DealID: id(10), DealTaskID: id(100), UserID: id(5), Status: str(CommentContacted), CreatedAt: at(2)},
			{ID: 2, DealID: id(10), DealTaskID: id(100), UserID: id(5), Status: str(CommentDone), CreatedAt: at(4)},
		},
	}
}

func TestUserPerformanceMetricsAndExplode(t *testing.T) {
	rows := BuildUserPerformance(performanceSnapshot())

	// task 100 一行；task 101 展开给 mall 组的 som、nok（area_manager 被排除）
	require.Len(t, rows, 3)

	done := rows[0]
	assert.Equal(t, int64(100), done.DealTaskID)
	assert.False(t, done.IsRecentTaskOnDeal)
	assert.Equal(t, int64(2), done.DealCommentID.Int64)
	assert.InDelta(t, 3.0, done.TimeCloseDealTask.Float64, 1e-9)
	assert.InDelta(t, 1.0, done.TimeFirstActivity.Float64, 1e-9)
	assert.InDelta(t, 2.0, done.TimeDoingTask.Float64, 1e-9)
	assert.InDelta(t, 1.0, done.TimeFirstContacted.Float64, 1e-9)
	assert.Equal(t, "som", done.Username.String)
	assert.Equal(t, "Som Chai", done.UserCommentFirstLast.String)
	assert.Equal(t, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC), done.UserCommentLastActiveDate.Time)
	assert.Equal(t, "Leasing", done.GroupName.String)

	exploded := rows[1:]
	users := []int64{exploded[0].DealCommentUserID.Int64, exploded[1].DealCommentUserID.Int64}
	assert.Equal(t, []int64{5, 6}, users)
	for _, r := range exploded {
		assert.True(t, r.IsRecentTaskOnDeal)
		assert.Equal(t, int64(101), r.DealTaskID)
		assert.Equal(t, "M01", r.Code.String)
		assert.Equal(t, "North", r.Region.String)
		assert.Equal(t, "Chiang Mai", r.Province.String)
		assert.InDelta(t, 1.0, r.TimeFirstContacted.Float64, 1e-9)
		assert.False(t, r.DealCommentID.Valid)
	}
	assert.Equal(t, "nok", exploded[1].Username.String)
	assert.Equal(t, "mall_manager", exploded[1].Role.String)
	assert.Equal(t, "Nok", exploded[1].UserCommentFirstLast.String)
}

func TestUserPerformanceExplodeWithEmptyRoster(t *testing.T) {
	snap := performanceSnapshot()
	snap.DealTasks[1].AssignedGroup = id(99)

	rows := BuildUserPerformance(snap)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(100), rows[0].DealTaskID)
}

func TestUserPerformanceRecentTaskWithCommenterIsKept(t *testing.T) {
	snap := performanceSnapshot()
	snap.DealTasks[1].Status = str("done")
	snap.DealComments = append(snap.DealComments, model.DealComment{
		ID: 3, DealID: id(10), DealTaskID: id(101), UserID: id(6), Status: str(CommentWin), CreatedAt: at(5),
	})

	rows := BuildUserPerformance(snap)
	require.Len(t, rows, 2)
	recent := rows[1]
	assert.True(t, recent.IsRecentTaskOnDeal)
	assert.Equal(t, int64(6), recent.DealCommentUserID.Int64)
	assert.Equal(t, "nok", recent.Username.String)
	assert.InDelta(t, 2.0, recent.TimeCloseDealTask.Float64, 1e-9)
}

func TestUserPerformanceExactlyOneRecentTaskPerDeal(t *testing.T) {
	snap := performanceSnapshot()
	// 同一创建时间时以 id 较大者为准
	snap.DealTasks = append(snap.DealTasks, model.DealTask{
		ID: 102, DealID: id(10), AssignedGroup: id(21), Status: str("done"), CreatedAt: at(3),
	})
	snap.DealComments = append(snap.DealComments, model.DealComment{
		ID: 4, DealID: id(10), DealTaskID: id(102), UserID: id(5), CreatedAt: at(6),
	})

	recent := map[int64]bool{}
	for _, r := range BuildUserPerformance(snap) {
		if r.IsRecentTaskOnDeal {
			recent[r.DealTaskID] = true
		}
	}
	assert.Equal(t, map[int64]bool{102: true}, recent)
}

func TestUserPerformanceSkipsDealsWithoutLeadOrTasks(t *testing.T) {
	snap := performanceSnapshot()
	snap.Deals = append(snap.Deals,
		model.Deal{ID: 11, LeadID: id(1)},
		model.Deal{ID: 12, LeadID: id(404)},
	)
	snap.DealTasks = append(snap.DealTasks, model.DealTask{ID: 200, DealID: id(12)})

	for _, r := range BuildUserPerformance(snap) {
		assert.Equal(t, int64(10), r.DealID)
	}
}

func TestRosterExclusions(t *testing.T) {
	mall := &model.Group{Type: str("mall")}
	area := &model.Group{Type: str("area")}

	cases := []struct {
		role     string
		group    *model.Group
		excluded bool
	}{
		{"area_manager", mall, true},
		{"region_manager", mall, true},
		{"mall_manager", area, true},
		{"mall_manager", mall, false},
		{"area_manager", area, false},
		{"leasing", mall, false},
	}
	for _, tc := range cases {
		user := &model.User{Role: str(tc.role)}
		assert.Equal(t, tc.excluded, excludedFromGroup(user, tc.group), "%s in %s", tc.role, tc.group.Type.String)
	}
}

func TestRunRejectsDuplicateKeys(t *testing.T) {
	snap := performanceSnapshot()
	snap.Deals = append(snap.Deals, snap.Deals[0])

	_, err := Run(snap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deal")

	res, err := Run(performanceSnapshot())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Counts()["lead_insight"])
	assert.Len(t, res.UserPerformance, 3)
}
