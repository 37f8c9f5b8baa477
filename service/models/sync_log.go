/*
 * @module service/models/sync_log
 * @description 同步日志模型，按会话追加记录同步过程的诊断信息
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow 追加写入，不支持修改
 * @rules 日志只增不改，清理按会话或按时间范围整批删除
 * @dependencies gorm.io/gorm, github.com/google/uuid, service/meta
 * @refs service/wialon_sync/session_service.go
 */

package models

import (
	"fleetsync-service/service/meta"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncLog 同步会话日志
type SyncLog struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SessionID string    `json:"session_id" gorm:"not null;type:varchar(36);index"`
	LogLevel  string    `json:"log_level" gorm:"not null;size:10;index" example:"info"` // debug, info, warning, error
	Message   string    `json:"message" gorm:"not null;type:text"`
	Details   JSONB     `json:"details,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP;index"`
}

// BeforeCreate GORM钩子，创建前生成UUID并校验日志级别
func (sl *SyncLog) BeforeCreate(tx *gorm.DB) error {
	if sl.ID == "" {
		sl.ID = uuid.New().String()
	}
	if sl.LogLevel == "" {
		sl.LogLevel = meta.SyncLogLevelInfo
	}
	return nil
}

// IsError 判断是否为错误日志
func (sl *SyncLog) IsError() bool {
	return sl.LogLevel == meta.SyncLogLevelError
}
