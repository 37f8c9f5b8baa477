/*
 * @module service/models/sync_rule
 * @description 自定义同步规则模型，支持SQL规则和脚本规则两种执行方式
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow 规则创建 -> 启用/停用 -> 按execution_order批量执行
 * @rules SQL规则直接操作差异表，脚本规则在解释器沙箱内运行
 * @dependencies gorm.io/gorm, github.com/google/uuid, service/meta
 * @refs service/wialon_sync/rule_service.go
 */

package models

import (
	"errors"
	"fleetsync-service/service/meta"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncRule 自定义同步规则
type SyncRule struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name           string    `json:"name" gorm:"not null;size:255"`
	Description    string    `json:"description,omitempty" gorm:"type:text"`
	RuleType       string    `json:"rule_type" gorm:"not null;size:20;default:'sql'" example:"sql"` // sql, script
	SQLQuery       string    `json:"sql_query,omitempty" gorm:"type:text"`
	Script         string    `json:"script,omitempty" gorm:"type:text"`
	Parameters     JSONB     `json:"parameters,omitempty" gorm:"type:jsonb"`
	ExecutionOrder int       `json:"execution_order" gorm:"default:100;index" example:"100"`
	// default标签会让gorm在INSERT时丢弃零值false，停用规则会被存成启用，故不加默认值
	IsActive       bool      `json:"is_active" gorm:"index"`
	CreatedBy      string    `json:"created_by" gorm:"not null;default:'system';size:100"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate GORM钩子，创建前生成UUID并校验规则内容
func (sr *SyncRule) BeforeCreate(tx *gorm.DB) error {
	if sr.ID == "" {
		sr.ID = uuid.New().String()
	}
	if sr.CreatedBy == "" {
		sr.CreatedBy = "system"
	}
	return sr.Validate()
}

// BeforeUpdate GORM钩子，更新前校验规则内容
func (sr *SyncRule) BeforeUpdate(tx *gorm.DB) error {
	return sr.Validate()
}

// Validate 校验规则类型与规则体是否匹配
func (sr *SyncRule) Validate() error {
	if !meta.IsValidSyncRuleType(sr.RuleType) {
		return errors.New("无效的规则类型: " + sr.RuleType)
	}
	if sr.RuleType == meta.SyncRuleTypeSQL && sr.SQLQuery == "" {
		return errors.New("SQL规则缺少sql_query")
	}
	if sr.RuleType == meta.SyncRuleTypeScript && sr.Script == "" {
		return errors.New("脚本规则缺少script")
	}
	return nil
}

// IsSQLRule 判断是否为SQL规则
func (sr *SyncRule) IsSQLRule() bool {
	return sr.RuleType == meta.SyncRuleTypeSQL
}

// IsScriptRule 判断是否为脚本规则
func (sr *SyncRule) IsScriptRule() bool {
	return sr.RuleType == meta.SyncRuleTypeScript
}
