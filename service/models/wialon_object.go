/*
 * @module service/models/wialon_object
 * @description 监控对象主数据模型，对账时作为本地基准与Wialon单元比对
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow 无状态流转，对账只读不回写
 * @rules wialon_id 为与外部系统关联的唯一标识；client_id 表示本地归属
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/wialon_sync/analyzer.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WialonObject 监控对象主数据
type WialonObject struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	WialonID    *int64    `json:"wialon_id,omitempty" gorm:"uniqueIndex"`
	Name        string    `json:"name" gorm:"not null;size:255;index"`
	Description string    `json:"description,omitempty" gorm:"size:500"`
	ClientID    *string   `json:"client_id,omitempty" gorm:"type:varchar(36);index"`
	TrackerID   string    `json:"tracker_id,omitempty" gorm:"size:100"`
	Phone       string    `json:"phone,omitempty" gorm:"size:50"`
	Status      string    `json:"status" gorm:"size:20;default:'active'"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	Client *Client `json:"client,omitempty" gorm:"foreignKey:ClientID"`
}

// BeforeCreate GORM钩子
func (wo *WialonObject) BeforeCreate(tx *gorm.DB) error {
	if wo.ID == "" {
		wo.ID = uuid.New().String()
	}
	return nil
}

// IsBoundToWialon 判断对象是否已绑定Wialon单元
func (wo *WialonObject) IsBoundToWialon() bool {
	return wo.WialonID != nil && *wo.WialonID != 0
}

// HasClient 判断对象是否有本地归属客户
func (wo *WialonObject) HasClient() bool {
	return wo.ClientID != nil && *wo.ClientID != ""
}
