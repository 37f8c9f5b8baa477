/*
 * @module service/models/sync_session
 * @description Wialon同步会话模型，记录一次对账运行的生命周期和统计
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow 会话创建(running) -> completed/failed/cancelled
 * @rules running为唯一非终止状态，终止状态不可再变更
 * @dependencies gorm.io/gorm, github.com/google/uuid, service/meta
 * @refs service/wialon_sync
 */

package models

import (
	"fleetsync-service/service/meta"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncSession Wialon同步会话
type SyncSession struct {
	ID                  string     `json:"id" gorm:"primaryKey;type:varchar(36)" example:"550e8400-e29b-41d4-a716-446655440000"`
	StartTime           time.Time  `json:"start_time" gorm:"not null;index"`
	EndTime             *time.Time `json:"end_time,omitempty"`
	Status              string     `json:"status" gorm:"not null;size:20;default:'running';index" example:"running"` // running, completed, failed, cancelled
	ErrorMessage        string     `json:"error_message,omitempty" gorm:"type:text"`
	TotalClientsChecked int        `json:"total_clients_checked" gorm:"default:0" example:"0"`
	TotalObjectsChecked int        `json:"total_objects_checked" gorm:"default:0" example:"0"`
	DiscrepanciesFound  int        `json:"discrepancies_found" gorm:"default:0" example:"0"`
	CreatedBy           string     `json:"created_by" gorm:"not null;default:'system';size:100" example:"admin"`
	CreatedAt           time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time  `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	Logs          []SyncLog         `json:"logs,omitempty" gorm:"foreignKey:SessionID"`
	Discrepancies []SyncDiscrepancy `json:"discrepancies,omitempty" gorm:"foreignKey:SessionID"`
}

// BeforeCreate GORM钩子，创建前生成UUID并补全默认值
func (ss *SyncSession) BeforeCreate(tx *gorm.DB) error {
	if ss.ID == "" {
		ss.ID = uuid.New().String()
	}
	if ss.Status == "" {
		ss.Status = meta.SyncSessionStatusRunning
	}
	if ss.CreatedBy == "" {
		ss.CreatedBy = "system"
	}
	if ss.StartTime.IsZero() {
		ss.StartTime = time.Now()
	}
	return nil
}

// IsRunning 判断会话是否正在运行
func (ss *SyncSession) IsRunning() bool {
	return ss.Status == meta.SyncSessionStatusRunning
}

// IsFinished 判断会话是否已进入终止状态
func (ss *SyncSession) IsFinished() bool {
	finishedStatuses := map[string]bool{
		meta.SyncSessionStatusCompleted: true,
		meta.SyncSessionStatusFailed:    true,
		meta.SyncSessionStatusCancelled: true,
	}
	return finishedStatuses[ss.Status]
}

// CanTransitionTo 判断会话能否流转到目标状态
func (ss *SyncSession) CanTransitionTo(status string) bool {
	return meta.CanTransitionSessionStatus(ss.Status, status)
}

// GetDuration 获取会话执行时长
func (ss *SyncSession) GetDuration() *time.Duration {
	if ss.EndTime != nil {
		duration := ss.EndTime.Sub(ss.StartTime)
		return &duration
	}
	return nil
}
