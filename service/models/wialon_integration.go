/*
 * @module service/models/wialon_integration
 * @description Wialon集成配置模型，保存外部API地址和加密存储的访问令牌
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow 配置创建 -> 启用/停用 -> 同步时读取凭据
 * @rules 令牌只存密文，接口返回时不回显明文
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/wialon_sync/loader.go, service/utils/crypto_utils.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WialonIntegration Wialon集成配置
type WialonIntegration struct {
	ID             string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	APIURL         string     `json:"api_url" gorm:"not null;size:500" example:"https://hst-api.wialon.com"`
	TokenName      string     `json:"token_name,omitempty" gorm:"size:100"`
	EncryptedToken string     `json:"-" gorm:"type:text"`
	IsActive       bool       `json:"is_active"`
	LastSyncTime   *time.Time `json:"last_sync_time,omitempty"`
	CreatedAt      time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate GORM钩子
func (wi *WialonIntegration) BeforeCreate(tx *gorm.DB) error {
	if wi.ID == "" {
		wi.ID = uuid.New().String()
	}
	return nil
}

// IsUsable 判断集成配置是否可用于同步
func (wi *WialonIntegration) IsUsable() bool {
	return wi.IsActive && wi.APIURL != "" && wi.EncryptedToken != ""
}
