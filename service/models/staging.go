/*
 * @module service/models/staging
 * @description Wialon暂存表模型，保存一次会话从外部API拉取的原始客户与对象快照
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow 会话开始时按session_id清空重建，分析阶段只读
 * @rules 暂存行严格按session_id隔离，不与正式表共享主键
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/wialon_sync/loader.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TempWialonClient Wialon客户暂存行（avl_resource）
type TempWialonClient struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SessionID string    `json:"session_id" gorm:"not null;type:varchar(36);index"`
	WialonID  int64     `json:"wialon_id" gorm:"not null;index"`
	Name      string    `json:"name" gorm:"size:255"`
	FullName  string    `json:"full_name" gorm:"size:500"`
	RawData   JSONB     `json:"raw_data,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate GORM钩子
func (tc *TempWialonClient) BeforeCreate(tx *gorm.DB) error {
	if tc.ID == "" {
		tc.ID = uuid.New().String()
	}
	return nil
}

// TempWialonObject Wialon监控对象暂存行（avl_unit）
type TempWialonObject struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SessionID     string    `json:"session_id" gorm:"not null;type:varchar(36);index"`
	WialonID      int64     `json:"wialon_id" gorm:"not null;index"`
	Name          string    `json:"name" gorm:"size:255"`
	Description   string    `json:"description" gorm:"size:500"`
	TrackerID     string    `json:"tracker_id" gorm:"size:100"`
	Phone         string    `json:"phone" gorm:"size:50"`
	OwnerWialonID int64     `json:"owner_wialon_id" gorm:"index"` // 0 表示外部数据未携带归属
	RawData       JSONB     `json:"raw_data,omitempty" gorm:"type:jsonb"`
	CreatedAt     time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate GORM钩子
func (to *TempWialonObject) BeforeCreate(tx *gorm.DB) error {
	if to.ID == "" {
		to.ID = uuid.New().String()
	}
	return nil
}

// HasOwner 判断暂存对象是否携带归属信息
func (to *TempWialonObject) HasOwner() bool {
	return to.OwnerWialonID != 0
}
