package wialon_sync

import (
	"fleetsync-service/service/meta"
	"fleetsync-service/service/models"
	"fleetsync-service/testutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDiscrepancyTest(t *testing.T) (*testutil.TestDB, *testutil.TestDataFactory, *DiscrepancyService) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)
	return tdb, testutil.NewTestDataFactory(tdb.DB), NewDiscrepancyService(tdb.DB)
}

func TestDiscrepancyService_List_过滤与双重统计(t *testing.T) {
	_, factory, service := setupDiscrepancyTest(t)

	first := factory.CreateSyncSession()
	second := factory.CreateSyncSession()
	factory.CreateDiscrepancy(first.ID)
	factory.CreateDiscrepancy(first.ID, testutil.WithDiscrepancyStatus(meta.DiscrepancyStatusApproved))
	factory.CreateDiscrepancy(second.ID)

	result, err := service.List(&DiscrepancyListRequest{
		SessionID: first.ID,
		Status:    meta.DiscrepancyStatusPending,
		Page:      1,
		Size:      10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
	assert.Len(t, result.Discrepancies, 1)

	// stats保留会话过滤但忽略status，保证状态页签计数一致
	require.NotNil(t, result.Stats)
	assert.Equal(t, int64(2), result.Stats.Total)
	assert.Equal(t, int64(1), result.Stats.Pending)
	assert.Equal(t, int64(1), result.Stats.Approved)

	// global_stats为全表统计
	require.NotNil(t, result.GlobalStats)
	assert.Equal(t, int64(3), result.GlobalStats.Total)
	assert.Equal(t, int64(2), result.GlobalStats.Pending)
}

func TestDiscrepancyService_List_按类型过滤(t *testing.T) {
	_, factory, service := setupDiscrepancyTest(t)

	session := factory.CreateSyncSession()
	factory.CreateDiscrepancy(session.ID)
	factory.CreateDiscrepancy(session.ID,
		testutil.WithDiscrepancyType(meta.DiscrepancyTypeNewObject, meta.DiscrepancyEntityObject))

	result, err := service.List(&DiscrepancyListRequest{
		DiscrepancyType: meta.DiscrepancyTypeNewObject,
		Page:            1,
		Size:            10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)

	result, err = service.List(&DiscrepancyListRequest{
		EntityType: meta.DiscrepancyEntityClient,
		Page:       1,
		Size:       10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
}

func TestDiscrepancyService_List_模糊搜索(t *testing.T) {
	_, factory, service := setupDiscrepancyTest(t)

	session := factory.CreateSyncSession()
	factory.CreateDiscrepancy(session.ID, func(d *models.SyncDiscrepancy) {
		d.ExternalData = models.JSONB{"wialon_id": 5001, "name": "沃尔沃卡车"}
	})
	factory.CreateDiscrepancy(session.ID,
		testutil.WithDiscrepancyType(meta.DiscrepancyTypeOwnerChanged, meta.DiscrepancyEntityObject))

	// 命中实体名称快照
	result, err := service.List(&DiscrepancyListRequest{Search: "沃尔沃", Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)

	// 命中差异类型
	result, err = service.List(&DiscrepancyListRequest{Search: "owner_changed", Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)

	result, err = service.List(&DiscrepancyListRequest{Search: "不存在的关键字", Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Total)
}

func TestDiscrepancyService_Resolve(t *testing.T) {
	tdb, factory, service := setupDiscrepancyTest(t)

	session := factory.CreateSyncSession()
	first := factory.CreateDiscrepancy(session.ID)
	second := factory.CreateDiscrepancy(session.ID)

	affected, resolved, err := service.Resolve(&ResolveRequest{
		IDs:        []string{first.ID, second.ID},
		Status:     meta.DiscrepancyStatusApproved,
		Notes:      "已核实",
		ResolvedBy: "operator",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	// 返回处理后的差异记录，状态已是目标状态
	require.Len(t, resolved, 2)
	for _, d := range resolved {
		assert.Equal(t, meta.DiscrepancyStatusApproved, d.Status)
	}

	var updated models.SyncDiscrepancy
	require.NoError(t, tdb.DB.First(&updated, "id = ?", first.ID).Error)
	assert.Equal(t, meta.DiscrepancyStatusApproved, updated.Status)
	assert.Equal(t, "已核实", updated.ResolutionNotes)
	assert.Equal(t, "operator", updated.ResolvedBy)
	assert.NotNil(t, updated.ResolvedAt)
}

func TestDiscrepancyService_Resolve_跳过非pending记录(t *testing.T) {
	tdb, factory, service := setupDiscrepancyTest(t)

	session := factory.CreateSyncSession()
	pending := factory.CreateDiscrepancy(session.ID)
	done := factory.CreateDiscrepancy(session.ID, testutil.WithDiscrepancyStatus(meta.DiscrepancyStatusRejected))

	affected, resolved, err := service.Resolve(&ResolveRequest{
		IDs:    []string{pending.ID, done.ID},
		Status: meta.DiscrepancyStatusIgnored,
	})
	require.NoError(t, err)

	// 只有pending的一条被更新，但返回结果覆盖请求的全部ID
	assert.Equal(t, int64(1), affected)
	assert.Len(t, resolved, 2)

	var unchanged models.SyncDiscrepancy
	require.NoError(t, tdb.DB.First(&unchanged, "id = ?", done.ID).Error)
	assert.Equal(t, meta.DiscrepancyStatusRejected, unchanged.Status)
}

func TestDiscrepancyService_Resolve_非法状态拒绝(t *testing.T) {
	_, factory, service := setupDiscrepancyTest(t)

	session := factory.CreateSyncSession()
	d := factory.CreateDiscrepancy(session.ID)

	_, _, err := service.Resolve(&ResolveRequest{
		IDs:    []string{d.ID},
		Status: meta.DiscrepancyStatusPending, // 不能把差异改回pending
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidResolutionStatus)

	_, _, err = service.Resolve(&ResolveRequest{
		IDs:    []string{d.ID},
		Status: "bogus",
	})
	assert.ErrorIs(t, err, ErrInvalidResolutionStatus)
}

func TestDiscrepancyService_Resolve_空ID列表拒绝(t *testing.T) {
	_, _, service := setupDiscrepancyTest(t)

	_, _, err := service.Resolve(&ResolveRequest{
		IDs:    nil,
		Status: meta.DiscrepancyStatusApproved,
	})
	assert.Error(t, err)
}

func TestDiscrepancyService_Resolve_默认处理人(t *testing.T) {
	tdb, factory, service := setupDiscrepancyTest(t)

	session := factory.CreateSyncSession()
	d := factory.CreateDiscrepancy(session.ID)

	_, _, err := service.Resolve(&ResolveRequest{
		IDs:    []string{d.ID},
		Status: meta.DiscrepancyStatusApproved,
	})
	require.NoError(t, err)

	var updated models.SyncDiscrepancy
	require.NoError(t, tdb.DB.First(&updated, "id = ?", d.ID).Error)
	assert.Equal(t, "system", updated.ResolvedBy)
}
