/*
 * @module service/wialon_sync/log_service
 * @description 同步日志查询与清理服务
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow 日志只读查询；清理按会话或按时间整批删除
 * @rules 清理操作返回删除行数，便于审计
 * @dependencies gorm.io/gorm, service/models, service/meta
 * @refs api/controllers/sync_log_controller.go
 */

package wialon_sync

import (
	"fleetsync-service/service/meta"
	"fleetsync-service/service/models"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// LogService 同步日志服务
type LogService struct {
	db *gorm.DB
}

// NewLogService 创建日志服务
func NewLogService(db *gorm.DB) *LogService {
	return &LogService{db: db}
}

// LogListRequest 日志列表请求
type LogListRequest struct {
	SessionID string
	LogLevel  string
	DateFrom  *time.Time
	DateTo    *time.Time
	Search    string
	Page      int
	Size      int
}

// LogLevelStats 按级别的日志统计
type LogLevelStats struct {
	Debug   int64 `json:"debug"`
	Info    int64 `json:"info"`
	Warning int64 `json:"warning"`
	Error   int64 `json:"error"`
}

// LogListResponse 日志列表响应，stats为过滤范围内统计，global_stats为全表统计
type LogListResponse struct {
	Logs        []models.SyncLog `json:"logs"`
	Total       int64            `json:"total"`
	Page        int              `json:"page"`
	Size        int              `json:"size"`
	Stats       *LogLevelStats   `json:"stats"`
	GlobalStats *LogLevelStats   `json:"global_stats"`
}

// List 分页查询日志
func (s *LogService) List(req *LogListRequest) (*LogListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Size <= 0 || req.Size > 500 {
		req.Size = 50
	}

	query := s.db.Model(&models.SyncLog{})
	if req.SessionID != "" {
		query = query.Where("session_id = ?", req.SessionID)
	}
	if req.LogLevel != "" {
		query = query.Where("log_level = ?", req.LogLevel)
	}
	if req.DateFrom != nil {
		query = query.Where("created_at >= ?", *req.DateFrom)
	}
	if req.DateTo != nil {
		query = query.Where("created_at <= ?", *req.DateTo)
	}
	if req.Search != "" {
		query = query.Where("message LIKE ?", "%"+req.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("统计日志数量失败: %w", err)
	}

	var logs []models.SyncLog
	offset := (req.Page - 1) * req.Size
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.Size).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("查询日志列表失败: %w", err)
	}

	stats, err := s.levelStats(req.SessionID)
	if err != nil {
		return nil, err
	}

	globalStats, err := s.levelStats("")
	if err != nil {
		return nil, err
	}

	return &LogListResponse{
		Logs:        logs,
		Total:       total,
		Page:        req.Page,
		Size:        req.Size,
		Stats:       stats,
		GlobalStats: globalStats,
	}, nil
}

// levelStats 按级别统计日志数量，sessionID为空时统计全表
func (s *LogService) levelStats(sessionID string) (*LogLevelStats, error) {
	type levelCount struct {
		LogLevel string
		Count    int64
	}

	query := s.db.Model(&models.SyncLog{})
	if sessionID != "" {
		query = query.Where("session_id = ?", sessionID)
	}

	var counts []levelCount
	if err := query.Select("log_level, count(*) as count").
		Group("log_level").
		Find(&counts).Error; err != nil {
		return nil, fmt.Errorf("统计日志级别失败: %w", err)
	}

	stats := &LogLevelStats{}
	for _, lc := range counts {
		switch lc.LogLevel {
		case meta.SyncLogLevelDebug:
			stats.Debug = lc.Count
		case meta.SyncLogLevelInfo:
			stats.Info = lc.Count
		case meta.SyncLogLevelWarning:
			stats.Warning = lc.Count
		case meta.SyncLogLevelError:
			stats.Error = lc.Count
		}
	}

	return stats, nil
}

// DeleteBySession 删除指定会话的全部日志
func (s *LogService) DeleteBySession(sessionID string) (int64, error) {
	if sessionID == "" {
		return 0, fmt.Errorf("session_id 不能为空")
	}

	result := s.db.Where("session_id = ?", sessionID).Delete(&models.SyncLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("删除会话日志失败: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// DeleteBefore 删除早于指定天数的日志
func (s *LogService) DeleteBefore(days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("days 必须为正数")
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.SyncLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("删除过期日志失败: %w", result.Error)
	}

	return result.RowsAffected, nil
}
