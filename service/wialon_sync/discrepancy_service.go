/*
 * @module service/wialon_sync/discrepancy_service
 * @description 差异队列服务，提供过滤查询、双重统计和批量处理
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow pending -> approved/rejected/ignored
 * @rules 批量处理只触达pending行并返回实际更新行数；处理只做记录不回写业务表
 * @dependencies gorm.io/gorm, service/models, service/meta
 * @refs api/controllers/discrepancy_controller.go
 */

package wialon_sync

import (
	"errors"
	"fleetsync-service/service/meta"
	"fleetsync-service/service/models"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrInvalidResolutionStatus 处理目标状态不在允许范围内
var ErrInvalidResolutionStatus = errors.New("无效的差异处理状态")

// DiscrepancyService 差异队列服务
type DiscrepancyService struct {
	db *gorm.DB
}

// NewDiscrepancyService 创建差异服务
func NewDiscrepancyService(db *gorm.DB) *DiscrepancyService {
	return &DiscrepancyService{db: db}
}

// DiscrepancyListRequest 差异列表请求
type DiscrepancyListRequest struct {
	SessionID       string
	Status          string
	DiscrepancyType string
	EntityType      string
	Search          string
	Page            int
	Size            int
}

// DiscrepancyStats 按状态的差异统计
type DiscrepancyStats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Ignored  int64 `json:"ignored"`
}

// DiscrepancyListResponse 差异列表响应
// stats 按当前过滤条件统计，global_stats 为全表统计
type DiscrepancyListResponse struct {
	Discrepancies []models.SyncDiscrepancy `json:"discrepancies"`
	Total         int64                    `json:"total"`
	Page          int                      `json:"page"`
	Size          int                      `json:"size"`
	Stats         *DiscrepancyStats        `json:"stats"`
	GlobalStats   *DiscrepancyStats        `json:"global_stats"`
}

// ResolveRequest 批量处理请求
type ResolveRequest struct {
	IDs        []string
	Status     string
	Notes      string
	ResolvedBy string
}

// List 分页查询差异
func (s *DiscrepancyService) List(req *DiscrepancyListRequest) (*DiscrepancyListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Size <= 0 || req.Size > 200 {
		req.Size = 20
	}

	query := s.filteredQuery(req)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("统计差异数量失败: %w", err)
	}

	var discrepancies []models.SyncDiscrepancy
	offset := (req.Page - 1) * req.Size
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.Size).Find(&discrepancies).Error; err != nil {
		return nil, fmt.Errorf("查询差异列表失败: %w", err)
	}

	// 过滤统计沿用除status以外的过滤条件，保证状态Tab的计数一致
	statsReq := *req
	statsReq.Status = ""
	stats, err := s.statusStats(s.filteredQuery(&statsReq))
	if err != nil {
		return nil, err
	}

	globalStats, err := s.statusStats(s.db.Model(&models.SyncDiscrepancy{}))
	if err != nil {
		return nil, err
	}

	return &DiscrepancyListResponse{
		Discrepancies: discrepancies,
		Total:         total,
		Page:          req.Page,
		Size:          req.Size,
		Stats:         stats,
		GlobalStats:   globalStats,
	}, nil
}

// filteredQuery 构造带过滤条件的查询
func (s *DiscrepancyService) filteredQuery(req *DiscrepancyListRequest) *gorm.DB {
	query := s.db.Model(&models.SyncDiscrepancy{})
	if req.SessionID != "" {
		query = query.Where("session_id = ?", req.SessionID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.DiscrepancyType != "" {
		query = query.Where("discrepancy_type = ?", req.DiscrepancyType)
	}
	if req.EntityType != "" {
		query = query.Where("entity_type = ?", req.EntityType)
	}
	if req.Search != "" {
		// 快照以JSON存储，转TEXT后模糊匹配，两种数据库下行为一致
		pattern := "%" + req.Search + "%"
		query = query.Where(
			"discrepancy_type LIKE ? OR CAST(external_data AS TEXT) LIKE ? OR CAST(local_data AS TEXT) LIKE ?",
			pattern, pattern, pattern)
	}
	return query
}

// statusStats 按状态汇总
func (s *DiscrepancyService) statusStats(query *gorm.DB) (*DiscrepancyStats, error) {
	type statusCount struct {
		Status string
		Count  int64
	}

	var counts []statusCount
	if err := query.Select("status, count(*) as count").
		Group("status").
		Find(&counts).Error; err != nil {
		return nil, fmt.Errorf("统计差异状态失败: %w", err)
	}

	stats := &DiscrepancyStats{}
	for _, sc := range counts {
		stats.Total += sc.Count
		switch sc.Status {
		case meta.DiscrepancyStatusPending:
			stats.Pending = sc.Count
		case meta.DiscrepancyStatusApproved:
			stats.Approved = sc.Count
		case meta.DiscrepancyStatusRejected:
			stats.Rejected = sc.Count
		case meta.DiscrepancyStatusIgnored:
			stats.Ignored = sc.Count
		}
	}

	return stats, nil
}

// GetByID 按ID获取差异
func (s *DiscrepancyService) GetByID(id string) (*models.SyncDiscrepancy, error) {
	var discrepancy models.SyncDiscrepancy
	if err := s.db.First(&discrepancy, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &discrepancy, nil
}

// Resolve 批量处理差异
// 只更新仍处于pending状态的行，返回实际更新行数和更新后的差异记录；
// 目标状态以外的行保持原样，调用方通过返回值与请求数对比感知跳过
func (s *DiscrepancyService) Resolve(req *ResolveRequest) (int64, []models.SyncDiscrepancy, error) {
	if len(req.IDs) == 0 {
		return 0, nil, fmt.Errorf("差异ID列表不能为空")
	}

	valid := false
	for _, status := range meta.GetResolvableDiscrepancyStatuses() {
		if req.Status == status {
			valid = true
			break
		}
	}
	if !valid {
		return 0, nil, fmt.Errorf("%w: %s", ErrInvalidResolutionStatus, req.Status)
	}

	resolvedBy := req.ResolvedBy
	if resolvedBy == "" {
		resolvedBy = "system"
	}

	now := time.Now()
	result := s.db.Model(&models.SyncDiscrepancy{}).
		Where("id IN ? AND status = ?", req.IDs, meta.DiscrepancyStatusPending).
		Updates(map[string]interface{}{
			"status":           req.Status,
			"resolution_notes": req.Notes,
			"resolved_by":      resolvedBy,
			"resolved_at":      &now,
		})
	if result.Error != nil {
		return 0, nil, fmt.Errorf("批量处理差异失败: %w", result.Error)
	}

	var updated []models.SyncDiscrepancy
	if err := s.db.Where("id IN ?", req.IDs).Order("created_at DESC").Find(&updated).Error; err != nil {
		return 0, nil, fmt.Errorf("查询处理后的差异失败: %w", err)
	}

	return result.RowsAffected, updated, nil
}
