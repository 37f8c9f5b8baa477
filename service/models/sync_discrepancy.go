/*
 * @module service/models/sync_discrepancy
 * @description 同步差异模型，记录对账发现的外部数据与本地数据的不一致
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow pending -> approved/rejected/ignored
 * @rules 差异处理只做记录，不回写业务表；跨会话不去重
 * @dependencies gorm.io/gorm, github.com/google/uuid, service/meta
 * @refs service/wialon_sync/analyzer.go, service/wialon_sync/discrepancy_service.go
 */

package models

import (
	"fleetsync-service/service/meta"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncDiscrepancy 同步差异记录
type SyncDiscrepancy struct {
	ID                string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SessionID         string     `json:"session_id" gorm:"not null;type:varchar(36);index"`
	DiscrepancyType   string     `json:"discrepancy_type" gorm:"not null;size:50;index" example:"new_client"`
	EntityType        string     `json:"entity_type" gorm:"not null;size:20;index" example:"client"` // client, object
	ExternalData      JSONB      `json:"external_data" gorm:"type:jsonb"`
	LocalData         JSONB      `json:"local_data,omitempty" gorm:"type:jsonb"`
	SuggestedClientID *string    `json:"suggested_client_id,omitempty" gorm:"type:varchar(36)"`
	SuggestedAction   string     `json:"suggested_action,omitempty" gorm:"size:50" example:"create_client"`
	Status            string     `json:"status" gorm:"not null;size:20;default:'pending';index" example:"pending"` // pending, approved, rejected, ignored
	ResolutionNotes   string     `json:"resolution_notes,omitempty" gorm:"type:text"`
	ResolvedBy        string     `json:"resolved_by,omitempty" gorm:"size:100"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP;index"`
}

// BeforeCreate GORM钩子，创建前生成UUID并补全默认状态
func (sd *SyncDiscrepancy) BeforeCreate(tx *gorm.DB) error {
	if sd.ID == "" {
		sd.ID = uuid.New().String()
	}
	if sd.Status == "" {
		sd.Status = meta.DiscrepancyStatusPending
	}
	return nil
}

// IsPending 判断差异是否待处理
func (sd *SyncDiscrepancy) IsPending() bool {
	return sd.Status == meta.DiscrepancyStatusPending
}

// CanResolve 判断差异是否可以被处理
// 只有pending状态的差异允许流转，处理后的记录保持不变
func (sd *SyncDiscrepancy) CanResolve() bool {
	return sd.Status == meta.DiscrepancyStatusPending
}
