/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify, time
 * @refs service/models
 */

package testutil

import (
	"bytes"
	"encoding/json"
	"fleetsync-service/service/meta"
	"fleetsync-service/service/models"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
// 使用命名的共享缓存内存库，保证连接池里的所有连接看到同一份数据
func NewTestDB() *TestDB {
	dsn := fmt.Sprintf("file:testdb_%s?mode=memory&cache=shared", generateSuffix())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.Client{},
		&models.WialonObject{},
		&models.WialonIntegration{},
		&models.SyncSession{},
		&models.SyncLog{},
		&models.SyncDiscrepancy{},
		&models.SyncRule{},
		&models.TempWialonClient{},
		&models.TempWialonObject{},
		&models.SSEEvent{},
		&models.SSEConnection{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	// 清空所有表的数据
	tables := []string{
		"sync_logs",
		"sync_discrepancies",
		"temp_wialon_clients",
		"temp_wialon_objects",
		"sync_sessions",
		"sync_rules",
		"wialon_objects",
		"clients",
		"wialon_integrations",
		"sse_events",
		"sse_connections",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// ClientOption 客户选项函数类型
type ClientOption func(*models.Client)

// CreateClient 创建测试客户
func (f *TestDataFactory) CreateClient(opts ...ClientOption) *models.Client {
	client := &models.Client{
		Name:      "测试客户_" + generateSuffix(),
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	// 应用选项
	for _, opt := range opts {
		opt(client)
	}

	err := f.DB.Create(client).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test client: %v", err))
	}

	return client
}

// WithClientWialonID 设置客户的Wialon资源ID
func WithClientWialonID(wialonID int64) ClientOption {
	return func(c *models.Client) {
		c.WialonID = &wialonID
	}
}

// WithClientName 设置客户名称
func WithClientName(name string) ClientOption {
	return func(c *models.Client) {
		c.Name = name
	}
}

// WialonObjectOption 监控对象选项函数类型
type WialonObjectOption func(*models.WialonObject)

// CreateWialonObject 创建测试监控对象
func (f *TestDataFactory) CreateWialonObject(opts ...WialonObjectOption) *models.WialonObject {
	object := &models.WialonObject{
		Name:      "测试对象_" + generateSuffix(),
		Status:    "active",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	// 应用选项
	for _, opt := range opts {
		opt(object)
	}

	err := f.DB.Create(object).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test wialon object: %v", err))
	}

	return object
}

// WithObjectWialonID 设置对象的Wialon单元ID
func WithObjectWialonID(wialonID int64) WialonObjectOption {
	return func(o *models.WialonObject) {
		o.WialonID = &wialonID
	}
}

// WithObjectName 设置对象名称
func WithObjectName(name string) WialonObjectOption {
	return func(o *models.WialonObject) {
		o.Name = name
	}
}

// WithObjectClientID 设置对象归属客户
func WithObjectClientID(clientID string) WialonObjectOption {
	return func(o *models.WialonObject) {
		o.ClientID = &clientID
	}
}

// SyncSessionOption 同步会话选项函数类型
type SyncSessionOption func(*models.SyncSession)

// CreateSyncSession 创建测试同步会话
func (f *TestDataFactory) CreateSyncSession(opts ...SyncSessionOption) *models.SyncSession {
	session := &models.SyncSession{
		StartTime: time.Now(),
		Status:    meta.SyncSessionStatusRunning,
		CreatedBy: "test",
	}

	// 应用选项
	for _, opt := range opts {
		opt(session)
	}

	err := f.DB.Create(session).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test sync session: %v", err))
	}

	return session
}

// WithSessionStatus 设置会话状态
func WithSessionStatus(status string) SyncSessionOption {
	return func(s *models.SyncSession) {
		s.Status = status
	}
}

// WithSessionStartTime 设置会话开始时间
func WithSessionStartTime(startTime time.Time) SyncSessionOption {
	return func(s *models.SyncSession) {
		s.StartTime = startTime
	}
}

// TempClientOption 暂存客户选项函数类型
type TempClientOption func(*models.TempWialonClient)

// CreateTempClient 创建测试暂存客户
func (f *TestDataFactory) CreateTempClient(sessionID string, wialonID int64, name string, opts ...TempClientOption) *models.TempWialonClient {
	staging := &models.TempWialonClient{
		SessionID: sessionID,
		WialonID:  wialonID,
		Name:      name,
		FullName:  name,
		RawData:   models.JSONB{"id": wialonID, "nm": name},
	}

	// 应用选项
	for _, opt := range opts {
		opt(staging)
	}

	err := f.DB.Create(staging).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test temp client: %v", err))
	}

	return staging
}

// TempObjectOption 暂存对象选项函数类型
type TempObjectOption func(*models.TempWialonObject)

// CreateTempObject 创建测试暂存对象
func (f *TestDataFactory) CreateTempObject(sessionID string, wialonID int64, name string, opts ...TempObjectOption) *models.TempWialonObject {
	staging := &models.TempWialonObject{
		SessionID: sessionID,
		WialonID:  wialonID,
		Name:      name,
		RawData:   models.JSONB{"id": wialonID, "nm": name},
	}

	// 应用选项
	for _, opt := range opts {
		opt(staging)
	}

	err := f.DB.Create(staging).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test temp object: %v", err))
	}

	return staging
}

// WithTempObjectOwner 设置暂存对象的归属资源ID
func WithTempObjectOwner(ownerWialonID int64) TempObjectOption {
	return func(o *models.TempWialonObject) {
		o.OwnerWialonID = ownerWialonID
	}
}

// DiscrepancyOption 差异选项函数类型
type DiscrepancyOption func(*models.SyncDiscrepancy)

// CreateDiscrepancy 创建测试差异
func (f *TestDataFactory) CreateDiscrepancy(sessionID string, opts ...DiscrepancyOption) *models.SyncDiscrepancy {
	discrepancy := &models.SyncDiscrepancy{
		SessionID:       sessionID,
		DiscrepancyType: meta.DiscrepancyTypeNewClient,
		EntityType:      meta.DiscrepancyEntityClient,
		ExternalData:    models.JSONB{"wialon_id": 1001, "name": "外部客户"},
		SuggestedAction: meta.SuggestedActionCreateClient,
		Status:          meta.DiscrepancyStatusPending,
	}

	// 应用选项
	for _, opt := range opts {
		opt(discrepancy)
	}

	err := f.DB.Create(discrepancy).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test discrepancy: %v", err))
	}

	return discrepancy
}

// WithDiscrepancyStatus 设置差异状态
func WithDiscrepancyStatus(status string) DiscrepancyOption {
	return func(d *models.SyncDiscrepancy) {
		d.Status = status
	}
}

// WithDiscrepancyType 设置差异类型和实体类型
func WithDiscrepancyType(discrepancyType, entityType string) DiscrepancyOption {
	return func(d *models.SyncDiscrepancy) {
		d.DiscrepancyType = discrepancyType
		d.EntityType = entityType
	}
}

// SyncRuleOption 同步规则选项函数类型
type SyncRuleOption func(*models.SyncRule)

// CreateSyncRule 创建测试同步规则
func (f *TestDataFactory) CreateSyncRule(opts ...SyncRuleOption) *models.SyncRule {
	rule := &models.SyncRule{
		Name:           "测试规则_" + generateSuffix(),
		RuleType:       meta.SyncRuleTypeSQL,
		SQLQuery:       "UPDATE sync_discrepancies SET status = status WHERE session_id = @session_id",
		ExecutionOrder: 100,
		IsActive:       true,
		CreatedBy:      "test",
	}

	// 应用选项
	for _, opt := range opts {
		opt(rule)
	}

	err := f.DB.Create(rule).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test sync rule: %v", err))
	}

	return rule
}

// CreateSyncLog 创建测试同步日志
func (f *TestDataFactory) CreateSyncLog(sessionID, level, message string) *models.SyncLog {
	entry := &models.SyncLog{
		SessionID: sessionID,
		LogLevel:  level,
		Message:   message,
	}

	err := f.DB.Create(entry).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test sync log: %v", err))
	}

	return entry
}

// IntegrationOption 集成配置选项函数类型
type IntegrationOption func(*models.WialonIntegration)

// CreateIntegration 创建测试集成配置
func (f *TestDataFactory) CreateIntegration(apiURL, encryptedToken string, opts ...IntegrationOption) *models.WialonIntegration {
	integration := &models.WialonIntegration{
		APIURL:         apiURL,
		TokenName:      "test-token",
		EncryptedToken: encryptedToken,
		IsActive:       true,
	}

	// 应用选项
	for _, opt := range opts {
		opt(integration)
	}

	err := f.DB.Create(integration).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test integration: %v", err))
	}

	return integration
}

// 辅助函数
func generateSuffix() string {
	return fmt.Sprintf("%d", time.Now().UnixNano()%100000)
}

// HTTPTestHelper HTTP测试辅助工具
type HTTPTestHelper struct{}

// NewHTTPTestHelper 创建HTTP测试辅助工具
func NewHTTPTestHelper() *HTTPTestHelper {
	return &HTTPTestHelper{}
}

// CreateJSONRequest 创建JSON请求
func (h *HTTPTestHelper) CreateJSONRequest(method, url string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// AssertJSONResponse 断言JSON响应
func (h *HTTPTestHelper) AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedBody interface{}) {
	assert.Equal(t, expectedStatus, w.Code)

	if expectedBody != nil {
		var actualBody interface{}
		err := json.Unmarshal(w.Body.Bytes(), &actualBody)
		assert.NoError(t, err)

		expectedJSON, _ := json.Marshal(expectedBody)
		actualJSON, _ := json.Marshal(actualBody)

		assert.JSONEq(t, string(expectedJSON), string(actualJSON))
	}
}
