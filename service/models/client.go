/*
 * @module service/models/client
 * @description 客户主数据模型，对账时作为本地基准与Wialon资源比对
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow 无状态流转，对账只读不回写
 * @rules wialon_id 为与外部系统关联的唯一标识，可为空表示未绑定
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/wialon_sync/analyzer.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client 客户主数据
type Client struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name           string    `json:"name" gorm:"not null;size:255;index"`
	WialonID       *int64    `json:"wialon_id,omitempty" gorm:"uniqueIndex"`
	WialonUsername string    `json:"wialon_username,omitempty" gorm:"size:255"`
	ContactPhone   string    `json:"contact_phone,omitempty" gorm:"size:50"`
	IsActive       bool      `json:"is_active" gorm:"index"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	Objects []WialonObject `json:"objects,omitempty" gorm:"foreignKey:ClientID"`
}

// BeforeCreate GORM钩子
func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// IsBoundToWialon 判断客户是否已绑定Wialon资源
func (c *Client) IsBoundToWialon() bool {
	return c.WialonID != nil && *c.WialonID != 0
}
