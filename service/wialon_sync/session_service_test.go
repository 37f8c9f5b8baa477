package wialon_sync

import (
	"fleetsync-service/service/meta"
	"fleetsync-service/service/models"
	"fleetsync-service/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSessionTest(t *testing.T) (*testutil.TestDB, *testutil.TestDataFactory, *SessionService) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)
	return tdb, testutil.NewTestDataFactory(tdb.DB), NewSessionService(tdb.DB)
}

func TestSessionService_Create(t *testing.T) {
	_, _, service := setupSessionTest(t)

	session, err := service.Create("admin")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, meta.SyncSessionStatusRunning, session.Status)
	assert.Equal(t, "admin", session.CreatedBy)
	assert.Nil(t, session.EndTime)
}

func TestSessionService_Complete(t *testing.T) {
	_, factory, service := setupSessionTest(t)

	session := factory.CreateSyncSession()

	err := service.Complete(session.ID, 10, 25, 3)
	require.NoError(t, err)

	updated, err := service.GetByID(session.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.SyncSessionStatusCompleted, updated.Status)
	assert.NotNil(t, updated.EndTime)
	assert.Equal(t, 10, updated.TotalClientsChecked)
	assert.Equal(t, 25, updated.TotalObjectsChecked)
	assert.Equal(t, 3, updated.DiscrepanciesFound)
}

func TestSessionService_Complete_终态会话拒绝流转(t *testing.T) {
	_, factory, service := setupSessionTest(t)

	session := factory.CreateSyncSession(testutil.WithSessionStatus(meta.SyncSessionStatusFailed))

	err := service.Complete(session.ID, 1, 1, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSessionTransition)
}

func TestSessionService_Fail(t *testing.T) {
	_, factory, service := setupSessionTest(t)

	session := factory.CreateSyncSession()

	service.Fail(session.ID, "外部接口超时")

	updated, err := service.GetByID(session.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.SyncSessionStatusFailed, updated.Status)
	assert.Equal(t, "外部接口超时", updated.ErrorMessage)
	assert.NotNil(t, updated.EndTime)
}

func TestSessionService_Fail_会话不存在时静默返回(t *testing.T) {
	_, _, service := setupSessionTest(t)

	// 不应panic也不应产生任何副作用
	service.Fail("missing-session-id", "whatever")
}

func TestSessionService_Fail_不覆盖已完成会话(t *testing.T) {
	_, factory, service := setupSessionTest(t)

	session := factory.CreateSyncSession(testutil.WithSessionStatus(meta.SyncSessionStatusCompleted))

	service.Fail(session.ID, "late failure")

	updated, err := service.GetByID(session.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.SyncSessionStatusCompleted, updated.Status)
	assert.Empty(t, updated.ErrorMessage)
}

func TestSessionService_Cancel(t *testing.T) {
	tdb, factory, service := setupSessionTest(t)

	session := factory.CreateSyncSession()

	cancelled, err := service.Cancel(session.ID, "operator")
	require.NoError(t, err)

	// 返回取消后的会话
	assert.Equal(t, meta.SyncSessionStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.EndTime)

	updated, err := service.GetByID(session.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.SyncSessionStatusCancelled, updated.Status)

	// 取消动作留有警告日志
	var logs []models.SyncLog
	require.NoError(t, tdb.DB.Where("session_id = ?", session.ID).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, meta.SyncLogLevelWarning, logs[0].LogLevel)
}

func TestSessionService_Cancel_非运行状态拒绝(t *testing.T) {
	_, factory, service := setupSessionTest(t)

	session := factory.CreateSyncSession(testutil.WithSessionStatus(meta.SyncSessionStatusCompleted))

	_, err := service.Cancel(session.ID, "operator")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSessionTransition)
}

func TestSessionService_AddLog(t *testing.T) {
	tdb, factory, service := setupSessionTest(t)

	session := factory.CreateSyncSession()

	service.AddLog(session.ID, meta.SyncLogLevelError, "测试错误", models.JSONB{"code": 42})
	service.AddLog(session.ID, "bogus-level", "级别非法的日志", nil)

	var logs []models.SyncLog
	require.NoError(t, tdb.DB.Where("session_id = ?", session.ID).Order("created_at ASC").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, meta.SyncLogLevelError, logs[0].LogLevel)
	// 非法级别被纠正为info
	assert.Equal(t, meta.SyncLogLevelInfo, logs[1].LogLevel)
}

func TestSessionService_List_按状态过滤(t *testing.T) {
	_, factory, service := setupSessionTest(t)

	factory.CreateSyncSession()
	factory.CreateSyncSession(testutil.WithSessionStatus(meta.SyncSessionStatusCompleted))
	factory.CreateSyncSession(testutil.WithSessionStatus(meta.SyncSessionStatusCompleted))

	result, err := service.List(&SessionListRequest{Page: 1, Size: 10, Status: meta.SyncSessionStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Total)
	assert.Len(t, result.Sessions, 2)

	// 全局统计不受过滤影响
	require.NotNil(t, result.Stats)
	assert.Equal(t, int64(3), result.Stats.Total)
	assert.Equal(t, int64(1), result.Stats.Running)
	assert.Equal(t, int64(2), result.Stats.Completed)
}

func TestSessionService_List_搜索与排序(t *testing.T) {
	_, factory, service := setupSessionTest(t)

	factory.CreateSyncSession(func(s *models.SyncSession) {
		s.CreatedBy = "alice"
		s.StartTime = time.Now().Add(-2 * time.Hour)
	})
	factory.CreateSyncSession(func(s *models.SyncSession) {
		s.CreatedBy = "bob"
		s.StartTime = time.Now().Add(-1 * time.Hour)
	})

	// 按触发人搜索
	result, err := service.List(&SessionListRequest{Page: 1, Size: 10, Search: "alice"})
	require.NoError(t, err)
	require.Equal(t, int64(1), result.Total)
	assert.Equal(t, "alice", result.Sessions[0].CreatedBy)

	// 指定排序列，正序
	result, err = service.List(&SessionListRequest{Page: 1, Size: 10, SortBy: "created_by"})
	require.NoError(t, err)
	require.Len(t, result.Sessions, 2)
	assert.Equal(t, "alice", result.Sessions[0].CreatedBy)

	// 倒序
	result, err = service.List(&SessionListRequest{Page: 1, Size: 10, SortBy: "created_by", Descending: true})
	require.NoError(t, err)
	require.Len(t, result.Sessions, 2)
	assert.Equal(t, "bob", result.Sessions[0].CreatedBy)

	// 非法排序列回退到默认的start_time倒序
	result, err = service.List(&SessionListRequest{Page: 1, Size: 10, SortBy: "drop table"})
	require.NoError(t, err)
	require.Len(t, result.Sessions, 2)
	assert.Equal(t, "bob", result.Sessions[0].CreatedBy)
}

func TestSessionService_GetDetail_附带日志(t *testing.T) {
	_, factory, service := setupSessionTest(t)

	session := factory.CreateSyncSession()
	factory.CreateSyncLog(session.ID, meta.SyncLogLevelInfo, "第一步")
	factory.CreateSyncLog(session.ID, meta.SyncLogLevelWarning, "第二步")
	other := factory.CreateSyncSession()
	factory.CreateSyncLog(other.ID, meta.SyncLogLevelInfo, "别的会话")

	detail, err := service.GetDetail(session.ID)
	require.NoError(t, err)
	require.Len(t, detail.Logs, 2)
	assert.Equal(t, "第一步", detail.Logs[0].Message)
	assert.Equal(t, "第二步", detail.Logs[1].Message)
}

func TestSessionService_GlobalStats_差异计数(t *testing.T) {
	_, factory, service := setupSessionTest(t)

	session := factory.CreateSyncSession()
	factory.CreateDiscrepancy(session.ID)
	factory.CreateDiscrepancy(session.ID, testutil.WithDiscrepancyStatus(meta.DiscrepancyStatusApproved))
	factory.CreateDiscrepancy(session.ID, testutil.WithDiscrepancyStatus(meta.DiscrepancyStatusIgnored))

	stats, err := service.GlobalStats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.PendingDiscrepancies)
	assert.Equal(t, int64(2), stats.ResolvedDiscrepancies)
}

func TestSessionService_FindStaleRunning(t *testing.T) {
	_, factory, service := setupSessionTest(t)

	stale := factory.CreateSyncSession(testutil.WithSessionStartTime(time.Now().Add(-2 * time.Hour)))
	factory.CreateSyncSession() // 刚启动的会话
	factory.CreateSyncSession(
		testutil.WithSessionStatus(meta.SyncSessionStatusCompleted),
		testutil.WithSessionStartTime(time.Now().Add(-3*time.Hour)))

	sessions, err := service.FindStaleRunning(time.Hour)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, stale.ID, sessions[0].ID)
}
