package wialon_sync

import (
	"context"
	"encoding/json"
	"fleetsync-service/service/distributed_lock"
	"fleetsync-service/service/meta"
	"fleetsync-service/service/models"
	"fleetsync-service/service/utils"
	"fleetsync-service/testutil"
	"fleetsync-service/wialon_client"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWialonServer 模拟Wialon接口，按svc分发固定响应
func fakeWialonServer(t *testing.T, responses map[string]func(params map[string]interface{}) interface{}) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		svc := r.FormValue("svc")

		var params map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("params")), &params))

		handler, ok := responses[svc]
		require.True(t, ok, "未预期的服务调用: %s", svc)

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(handler(params)))
	}))

	previous := wialon_client.GetWialonUrl()
	t.Cleanup(func() {
		wialon_client.SetWialonUrl(previous)
		server.Close()
	})

	return server
}

// searchItemsBy 按itemsType返回资源或对象条目
func searchItemsBy(resources, units []map[string]interface{}) func(params map[string]interface{}) interface{} {
	return func(params map[string]interface{}) interface{} {
		spec := params["spec"].(map[string]interface{})
		items := resources
		if spec["itemsType"] == wialon_client.ItemTypeUnit {
			items = units
		}
		return map[string]interface{}{
			"error":           0,
			"totalItemsCount": len(items),
			"items":           items,
		}
	}
}

// capturedEvents 记录发布的SSE事件
type capturedEvents struct {
	mu     sync.Mutex
	events []string
}

func (c *capturedEvents) PublishSyncEvent(eventType string, data map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, eventType)
}

func (c *capturedEvents) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

// fakeLock 固定结果的分布式锁
type fakeLock struct {
	acquired bool
}

func (l *fakeLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.acquired, nil
}
func (l *fakeLock) Unlock(ctx context.Context, key string) error { return nil }
func (l *fakeLock) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	return nil
}
func (l *fakeLock) IsLocked(ctx context.Context, key string) (bool, error) {
	return l.acquired, nil
}

type syncTestEnv struct {
	tdb     *testutil.TestDB
	factory *testutil.TestDataFactory
	crypto  *utils.CryptoUtils
	events  *capturedEvents
	service *SyncService
}

func setupSyncTest(t *testing.T, lock distributed_lock.DistributedLock) *syncTestEnv {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)

	crypto := utils.NewCryptoUtils("sync-test-key")
	sessions := NewSessionService(tdb.DB)
	events := &capturedEvents{}

	service := NewSyncService(tdb.DB, sessions,
		NewLoader(sessions, crypto), NewRuleService(tdb.DB), lock, events)

	return &syncTestEnv{
		tdb:     tdb,
		factory: testutil.NewTestDataFactory(tdb.DB),
		crypto:  crypto,
		events:  events,
		service: service,
	}
}

func (env *syncTestEnv) createIntegration(t *testing.T, apiURL string) {
	encrypted, err := env.crypto.AESEncrypt("test-wialon-token")
	require.NoError(t, err)
	env.factory.CreateIntegration(apiURL, encrypted)
}

func TestSyncService_Run_完整同步(t *testing.T) {
	env := setupSyncTest(t, nil)

	server := fakeWialonServer(t, map[string]func(map[string]interface{}) interface{}{
		"token/login": func(map[string]interface{}) interface{} {
			return map[string]interface{}{"error": 0, "eid": "sid-1"}
		},
		"core/search_items": searchItemsBy(
			[]map[string]interface{}{
				{"id": 1001, "nm": "客户A"},
				{"id": 2002, "nm": "新客户"},
			},
			[]map[string]interface{}{
				{"id": 5001, "nm": "车辆A", "bact": 1001},
			},
		),
		"core/logout": func(map[string]interface{}) interface{} {
			return map[string]interface{}{"error": 0}
		},
	})
	env.createIntegration(t, server.URL)

	// 本地已有客户A，新客户与新车辆应产生两条差异
	env.factory.CreateClient(testutil.WithClientWialonID(1001), testutil.WithClientName("客户A"))

	session, err := env.service.Run(context.Background(), "tester")
	require.NoError(t, err)
	assert.Equal(t, meta.SyncSessionStatusCompleted, session.Status)
	assert.Equal(t, 2, session.TotalClientsChecked)
	assert.Equal(t, 1, session.TotalObjectsChecked)
	assert.Equal(t, 2, session.DiscrepanciesFound)
	assert.NotNil(t, session.EndTime)

	var tempClients, tempObjects, discrepancies int64
	require.NoError(t, env.tdb.DB.Model(&models.TempWialonClient{}).Count(&tempClients).Error)
	require.NoError(t, env.tdb.DB.Model(&models.TempWialonObject{}).Count(&tempObjects).Error)
	require.NoError(t, env.tdb.DB.Model(&models.SyncDiscrepancy{}).Count(&discrepancies).Error)
	assert.Equal(t, int64(2), tempClients)
	assert.Equal(t, int64(1), tempObjects)
	assert.Equal(t, int64(2), discrepancies)

	// 集成配置的最近同步时间被更新
	var integration models.WialonIntegration
	require.NoError(t, env.tdb.DB.First(&integration).Error)
	assert.NotNil(t, integration.LastSyncTime)

	types := env.events.types()
	assert.Contains(t, types, models.SSEEventSyncStarted)
	assert.Contains(t, types, models.SSEEventSyncCompleted)
	assert.Contains(t, types, models.SSEEventDiscrepanciesFound)

	// 事务内的步骤日志随提交落库，逐步骤可追溯
	var messages []string
	require.NoError(t, env.tdb.DB.Model(&models.SyncLog{}).
		Where("session_id = ? AND log_level = ?", session.ID, meta.SyncLogLevelInfo).
		Order("created_at ASC").
		Pluck("message", &messages).Error)
	assert.Contains(t, messages, "Wialon登录成功")
	assert.Contains(t, messages, "客户暂存加载完成")
	assert.Contains(t, messages, "对象暂存加载完成")
	assert.Contains(t, messages, "暂存加载完成")
}

func TestSyncService_Run_登录失败整体回滚(t *testing.T) {
	env := setupSyncTest(t, nil)

	server := fakeWialonServer(t, map[string]func(map[string]interface{}) interface{}{
		"token/login": func(map[string]interface{}) interface{} {
			return map[string]interface{}{"error": 8, "reason": "ACCESS_DENIED"}
		},
	})
	env.createIntegration(t, server.URL)

	session, err := env.service.Run(context.Background(), "tester")
	require.NoError(t, err)
	assert.Equal(t, meta.SyncSessionStatusFailed, session.Status)
	assert.Contains(t, session.ErrorMessage, "Wialon登录失败")
	assert.NotNil(t, session.EndTime)

	// 暂存与差异整体回滚，只留下会话与日志
	var tempClients, discrepancies int64
	require.NoError(t, env.tdb.DB.Model(&models.TempWialonClient{}).Count(&tempClients).Error)
	require.NoError(t, env.tdb.DB.Model(&models.SyncDiscrepancy{}).Count(&discrepancies).Error)
	assert.Equal(t, int64(0), tempClients)
	assert.Equal(t, int64(0), discrepancies)

	var errorLogs int64
	require.NoError(t, env.tdb.DB.Model(&models.SyncLog{}).
		Where("session_id = ? AND log_level = ?", session.ID, meta.SyncLogLevelError).
		Count(&errorLogs).Error)
	assert.Greater(t, errorLogs, int64(0))

	assert.Contains(t, env.events.types(), models.SSEEventSyncFailed)
}

func TestSyncService_Run_集成配置缺失(t *testing.T) {
	env := setupSyncTest(t, nil)

	session, err := env.service.Run(context.Background(), "tester")
	require.NoError(t, err)
	assert.Equal(t, meta.SyncSessionStatusFailed, session.Status)
	assert.Contains(t, session.ErrorMessage, "不可用")
}

func TestSyncService_Run_锁被占用时拒绝(t *testing.T) {
	env := setupSyncTest(t, &fakeLock{acquired: false})

	_, err := env.service.Run(context.Background(), "tester")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyncInProgress)

	// 未创建任何会话
	var sessions int64
	require.NoError(t, env.tdb.DB.Model(&models.SyncSession{}).Count(&sessions).Error)
	assert.Equal(t, int64(0), sessions)
}

func TestSyncService_Run_自定义规则失败不影响会话(t *testing.T) {
	env := setupSyncTest(t, &fakeLock{acquired: true})

	server := fakeWialonServer(t, map[string]func(map[string]interface{}) interface{}{
		"token/login": func(map[string]interface{}) interface{} {
			return map[string]interface{}{"error": 0, "eid": "sid-1"}
		},
		"core/search_items": searchItemsBy(nil, nil),
		"core/logout": func(map[string]interface{}) interface{} {
			return map[string]interface{}{"error": 0}
		},
	})
	env.createIntegration(t, server.URL)

	env.factory.CreateSyncRule(func(r *models.SyncRule) {
		r.Name = "坏规则"
		r.SQLQuery = "UPDATE no_such_table SET x = 1"
	})

	session, err := env.service.Run(context.Background(), "tester")
	require.NoError(t, err)
	assert.Equal(t, meta.SyncSessionStatusCompleted, session.Status)

	var warnings int64
	require.NoError(t, env.tdb.DB.Model(&models.SyncLog{}).
		Where("session_id = ? AND log_level = ?", session.ID, meta.SyncLogLevelWarning).
		Count(&warnings).Error)
	assert.Greater(t, warnings, int64(0))
}
