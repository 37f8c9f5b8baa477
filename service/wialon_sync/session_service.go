/*
 * @module service/wialon_sync/session_service
 * @description 同步会话服务，管理会话生命周期、会话日志和会话统计
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow 会话创建(running) -> completed/failed/cancelled；日志随会话追加
 * @rules 事务内步骤日志随事务提交或回滚；失败收尾日志在事务外写入，回滚后仍然保留
 * @dependencies gorm.io/gorm, service/models, service/meta
 * @refs service/wialon_sync/sync_service.go
 */

package wialon_sync

import (
	"errors"
	"fleetsync-service/service/meta"
	"fleetsync-service/service/models"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
)

// ErrInvalidSessionTransition 会话当前状态不允许请求的流转
var ErrInvalidSessionTransition = errors.New("会话状态不允许该操作")

// SessionService 同步会话服务
type SessionService struct {
	db *gorm.DB
}

// NewSessionService 创建会话服务
func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{db: db}
}

// SessionListRequest 会话列表请求
type SessionListRequest struct {
	Page       int
	Size       int
	Status     string
	Search     string
	SortBy     string
	Descending bool
}

// 会话列表允许的排序列
var sessionSortColumns = map[string]string{
	"start_time":          "start_time",
	"end_time":            "end_time",
	"status":              "status",
	"created_by":          "created_by",
	"discrepancies_found": "discrepancies_found",
}

// SessionGlobalStats 会话全局统计
type SessionGlobalStats struct {
	Total                 int64 `json:"total"`
	Running               int64 `json:"running"`
	Completed             int64 `json:"completed"`
	Failed                int64 `json:"failed"`
	Cancelled             int64 `json:"cancelled"`
	PendingDiscrepancies  int64 `json:"pending_discrepancies"`
	ResolvedDiscrepancies int64 `json:"resolved_discrepancies"`
}

// SessionListResponse 会话列表响应
type SessionListResponse struct {
	Sessions []models.SyncSession `json:"sessions"`
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	Size     int                  `json:"size"`
	Stats    *SessionGlobalStats  `json:"stats"`
}

// Create 创建一个running状态的新会话
func (s *SessionService) Create(createdBy string) (*models.SyncSession, error) {
	session := &models.SyncSession{
		StartTime: time.Now(),
		Status:    meta.SyncSessionStatusRunning,
		CreatedBy: createdBy,
	}

	if err := s.db.Create(session).Error; err != nil {
		return nil, fmt.Errorf("创建同步会话失败: %w", err)
	}

	return session, nil
}

// GetByID 按ID获取会话
func (s *SessionService) GetByID(id string) (*models.SyncSession, error) {
	var session models.SyncSession
	if err := s.db.First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// GetDetail 按ID获取会话及其全部日志
func (s *SessionService) GetDetail(id string) (*models.SyncSession, error) {
	var session models.SyncSession
	err := s.db.Preload("Logs", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).First(&session, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// List 分页获取会话列表，附带全局统计
func (s *SessionService) List(req *SessionListRequest) (*SessionListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Size <= 0 || req.Size > 100 {
		req.Size = 20
	}

	query := s.db.Model(&models.SyncSession{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Search != "" {
		pattern := "%" + req.Search + "%"
		query = query.Where("created_by LIKE ? OR error_message LIKE ? OR id LIKE ?",
			pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("统计会话数量失败: %w", err)
	}

	order := "start_time DESC"
	if column, ok := sessionSortColumns[req.SortBy]; ok {
		direction := "ASC"
		if req.Descending {
			direction = "DESC"
		}
		order = column + " " + direction
	}

	var sessions []models.SyncSession
	offset := (req.Page - 1) * req.Size
	if err := query.Order(order).Offset(offset).Limit(req.Size).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("查询会话列表失败: %w", err)
	}

	stats, err := s.GlobalStats()
	if err != nil {
		return nil, err
	}

	return &SessionListResponse{
		Sessions: sessions,
		Total:    total,
		Page:     req.Page,
		Size:     req.Size,
		Stats:    stats,
	}, nil
}

// GlobalStats 汇总所有会话和差异的全局统计
func (s *SessionService) GlobalStats() (*SessionGlobalStats, error) {
	stats := &SessionGlobalStats{}

	type statusCount struct {
		Status string
		Count  int64
	}

	var sessionCounts []statusCount
	if err := s.db.Model(&models.SyncSession{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&sessionCounts).Error; err != nil {
		return nil, fmt.Errorf("统计会话状态失败: %w", err)
	}

	for _, sc := range sessionCounts {
		stats.Total += sc.Count
		switch sc.Status {
		case meta.SyncSessionStatusRunning:
			stats.Running = sc.Count
		case meta.SyncSessionStatusCompleted:
			stats.Completed = sc.Count
		case meta.SyncSessionStatusFailed:
			stats.Failed = sc.Count
		case meta.SyncSessionStatusCancelled:
			stats.Cancelled = sc.Count
		}
	}

	if err := s.db.Model(&models.SyncDiscrepancy{}).
		Where("status = ?", meta.DiscrepancyStatusPending).
		Count(&stats.PendingDiscrepancies).Error; err != nil {
		return nil, fmt.Errorf("统计待处理差异失败: %w", err)
	}

	if err := s.db.Model(&models.SyncDiscrepancy{}).
		Where("status <> ?", meta.DiscrepancyStatusPending).
		Count(&stats.ResolvedDiscrepancies).Error; err != nil {
		return nil, fmt.Errorf("统计已处理差异失败: %w", err)
	}

	return stats, nil
}

// Complete 将运行中的会话标记为完成并记录统计
func (s *SessionService) Complete(sessionID string, clientsChecked, objectsChecked, discrepanciesFound int) error {
	session, err := s.GetByID(sessionID)
	if err != nil {
		return fmt.Errorf("查询会话失败: %w", err)
	}

	if !session.CanTransitionTo(meta.SyncSessionStatusCompleted) {
		return fmt.Errorf("会话状态 %s 不允许流转到 completed: %w", session.Status, ErrInvalidSessionTransition)
	}

	now := time.Now()
	return s.db.Model(&models.SyncSession{}).
		Where("id = ? AND status = ?", sessionID, meta.SyncSessionStatusRunning).
		Updates(map[string]interface{}{
			"status":                meta.SyncSessionStatusCompleted,
			"end_time":              &now,
			"total_clients_checked": clientsChecked,
			"total_objects_checked": objectsChecked,
			"discrepancies_found":   discrepanciesFound,
			"updated_at":            now,
		}).Error
}

// Fail 将会话标记为失败
// 会话不存在时记录警告后静默返回，失败收尾不应再抛错
func (s *SessionService) Fail(sessionID, errorMessage string) {
	var session models.SyncSession
	if err := s.db.First(&session, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Warn("标记会话失败时会话不存在", "session_id", sessionID)
			return
		}
		slog.Error("标记会话失败时查询出错", "session_id", sessionID, "error", err)
		return
	}

	if !session.CanTransitionTo(meta.SyncSessionStatusFailed) {
		slog.Warn("会话已处于终止状态，跳过失败标记",
			"session_id", sessionID, "status", session.Status)
		return
	}

	now := time.Now()
	err := s.db.Model(&models.SyncSession{}).
		Where("id = ? AND status = ?", sessionID, meta.SyncSessionStatusRunning).
		Updates(map[string]interface{}{
			"status":        meta.SyncSessionStatusFailed,
			"end_time":      &now,
			"error_message": errorMessage,
			"updated_at":    now,
		}).Error
	if err != nil {
		slog.Error("标记会话失败时更新出错", "session_id", sessionID, "error", err)
	}
}

// Cancel 取消运行中的会话，返回取消后的会话
func (s *SessionService) Cancel(sessionID, cancelledBy string) (*models.SyncSession, error) {
	session, err := s.GetByID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("查询会话失败: %w", err)
	}

	if !session.CanTransitionTo(meta.SyncSessionStatusCancelled) {
		return nil, fmt.Errorf("会话状态 %s 不允许取消: %w", session.Status, ErrInvalidSessionTransition)
	}

	now := time.Now()
	if err := s.db.Model(&models.SyncSession{}).
		Where("id = ? AND status = ?", sessionID, meta.SyncSessionStatusRunning).
		Updates(map[string]interface{}{
			"status":     meta.SyncSessionStatusCancelled,
			"end_time":   &now,
			"updated_at": now,
		}).Error; err != nil {
		return nil, fmt.Errorf("取消会话失败: %w", err)
	}

	s.AddLog(sessionID, meta.SyncLogLevelWarning, "会话被手动取消", models.JSONB{"cancelled_by": cancelledBy})

	updated, err := s.GetByID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("查询取消后的会话失败: %w", err)
	}
	return updated, nil
}

// AddLog 追加会话日志，使用服务自身的连接写入
func (s *SessionService) AddLog(sessionID, level, message string, details models.JSONB) {
	s.AddLogTx(s.db, sessionID, level, message, details)
}

// AddLogTx 在指定连接或事务内追加会话日志
// 同步事务内的步骤日志走事务句柄，随事务一起提交或回滚
func (s *SessionService) AddLogTx(db *gorm.DB, sessionID, level, message string, details models.JSONB) {
	if !meta.IsValidSyncLogLevel(level) {
		level = meta.SyncLogLevelInfo
	}

	entry := &models.SyncLog{
		SessionID: sessionID,
		LogLevel:  level,
		Message:   message,
		Details:   details,
	}

	if err := db.Create(entry).Error; err != nil {
		slog.Error("写入同步日志失败",
			"session_id", sessionID, "level", level, "message", message, "error", err)
	}
}

// FindStaleRunning 查找超过给定时长仍处于running状态的会话
func (s *SessionService) FindStaleRunning(olderThan time.Duration) ([]models.SyncSession, error) {
	cutoff := time.Now().Add(-olderThan)

	var sessions []models.SyncSession
	err := s.db.Where("status = ? AND start_time < ?", meta.SyncSessionStatusRunning, cutoff).
		Order("start_time ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("查询滞留会话失败: %w", err)
	}

	return sessions, nil
}
