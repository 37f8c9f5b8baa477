/*
 * @module service/wialon_sync/rule_service
 * @description 自定义同步规则服务，提供规则CRUD与按序执行
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow 规则创建 -> 启停 -> 手动执行或随同步按execution_order批量执行
 * @rules SQL规则用 @session_id 占位符绑定会话；脚本规则在解释器内运行；单条规则失败不阻断批量执行
 * @dependencies gorm.io/gorm, service/models, service/meta
 * @refs api/controllers/sync_rule_controller.go, service/wialon_sync/sync_service.go
 */

package wialon_sync

import (
	"database/sql"
	"fleetsync-service/service/meta"
	"fleetsync-service/service/models"
	"fmt"

	"gorm.io/gorm"
)

// RuleService 自定义同步规则服务
type RuleService struct {
	db       *gorm.DB
	executor *ScriptExecutor
}

// NewRuleService 创建规则服务
func NewRuleService(db *gorm.DB) *RuleService {
	return &RuleService{
		db:       db,
		executor: NewScriptExecutor(),
	}
}

// CreateRuleRequest 创建规则请求
type CreateRuleRequest struct {
	Name           string
	Description    string
	RuleType       string
	SQLQuery       string
	Script         string
	Parameters     models.JSONB
	ExecutionOrder int
	IsActive       *bool
	CreatedBy      string
}

// UpdateRuleRequest 更新规则请求
type UpdateRuleRequest struct {
	Name           *string
	Description    *string
	SQLQuery       *string
	Script         *string
	Parameters     models.JSONB
	ExecutionOrder *int
	IsActive       *bool
}

// RuleExecutionResult 规则执行结果
type RuleExecutionResult struct {
	RuleID       string      `json:"rule_id"`
	RuleName     string      `json:"rule_name"`
	RuleType     string      `json:"rule_type"`
	RowsAffected int64       `json:"rows_affected"`
	Output       interface{} `json:"output,omitempty"`
	Error        string      `json:"error,omitempty"`
}

// Create 创建规则
func (s *RuleService) Create(req *CreateRuleRequest) (*models.SyncRule, error) {
	rule := &models.SyncRule{
		Name:           req.Name,
		Description:    req.Description,
		RuleType:       req.RuleType,
		SQLQuery:       req.SQLQuery,
		Script:         req.Script,
		Parameters:     req.Parameters,
		ExecutionOrder: req.ExecutionOrder,
		IsActive:       true,
		CreatedBy:      req.CreatedBy,
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	if rule.ExecutionOrder == 0 {
		rule.ExecutionOrder = 100
	}

	// 脚本规则创建时做一次语法校验，拒绝无法编译的脚本
	if rule.IsScriptRule() {
		if err := s.executor.Validate(rule.Script); err != nil {
			return nil, fmt.Errorf("脚本校验失败: %w", err)
		}
	}

	if err := s.db.Create(rule).Error; err != nil {
		return nil, fmt.Errorf("创建同步规则失败: %w", err)
	}

	return rule, nil
}

// GetByID 按ID获取规则
func (s *RuleService) GetByID(id string) (*models.SyncRule, error) {
	var rule models.SyncRule
	if err := s.db.First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// List 获取规则列表，按执行顺序排序
func (s *RuleService) List(onlyActive bool) ([]models.SyncRule, error) {
	query := s.db.Model(&models.SyncRule{})
	if onlyActive {
		query = query.Where("is_active = ?", true)
	}

	var rules []models.SyncRule
	if err := query.Order("execution_order ASC, created_at ASC").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("查询规则列表失败: %w", err)
	}

	return rules, nil
}

// Update 更新规则
func (s *RuleService) Update(id string, req *UpdateRuleRequest) (*models.SyncRule, error) {
	rule, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Description != nil {
		rule.Description = *req.Description
	}
	if req.SQLQuery != nil {
		rule.SQLQuery = *req.SQLQuery
	}
	if req.Script != nil {
		rule.Script = *req.Script
	}
	if req.Parameters != nil {
		rule.Parameters = req.Parameters
	}
	if req.ExecutionOrder != nil {
		rule.ExecutionOrder = *req.ExecutionOrder
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	if rule.IsScriptRule() {
		if err := s.executor.Validate(rule.Script); err != nil {
			return nil, fmt.Errorf("脚本校验失败: %w", err)
		}
	}

	if err := s.db.Save(rule).Error; err != nil {
		return nil, fmt.Errorf("更新同步规则失败: %w", err)
	}

	return rule, nil
}

// Delete 删除规则
func (s *RuleService) Delete(id string) error {
	result := s.db.Delete(&models.SyncRule{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("删除同步规则失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Execute 执行单条规则
func (s *RuleService) Execute(rule *models.SyncRule, sessionID string) *RuleExecutionResult {
	result := &RuleExecutionResult{
		RuleID:   rule.ID,
		RuleName: rule.Name,
		RuleType: rule.RuleType,
	}

	switch rule.RuleType {
	case meta.SyncRuleTypeSQL:
		res := s.db.Exec(rule.SQLQuery, sql.Named("session_id", sessionID))
		if res.Error != nil {
			result.Error = res.Error.Error()
			return result
		}
		result.RowsAffected = res.RowsAffected

	case meta.SyncRuleTypeScript:
		params := map[string]interface{}{
			"session_id": sessionID,
			"parameters": map[string]interface{}(rule.Parameters),
			"query":      s.scriptQuery(),
			"exec":       s.scriptExec(),
		}
		output, err := s.executor.Execute(rule.Script, params)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		result.Output = output

	default:
		result.Error = "未知的规则类型: " + rule.RuleType
	}

	return result
}

// ExecuteByID 按ID执行规则
func (s *RuleService) ExecuteByID(id, sessionID string) (*RuleExecutionResult, error) {
	rule, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	return s.Execute(rule, sessionID), nil
}

// ExecuteAll 按execution_order执行全部启用规则
// 单条失败记录在结果中，不阻断后续规则
func (s *RuleService) ExecuteAll(sessionID string) ([]RuleExecutionResult, error) {
	rules, err := s.List(true)
	if err != nil {
		return nil, err
	}

	results := make([]RuleExecutionResult, 0, len(rules))
	for i := range rules {
		results = append(results, *s.Execute(&rules[i], sessionID))
	}

	return results, nil
}

// scriptQuery 注入给脚本规则的只读查询能力
func (s *RuleService) scriptQuery() func(string) ([]map[string]interface{}, error) {
	return func(query string) ([]map[string]interface{}, error) {
		var rows []map[string]interface{}
		if err := s.db.Raw(query).Scan(&rows).Error; err != nil {
			return nil, err
		}
		return rows, nil
	}
}

// scriptExec 注入给脚本规则的写入能力
func (s *RuleService) scriptExec() func(string) (int64, error) {
	return func(query string) (int64, error) {
		res := s.db.Exec(query)
		return res.RowsAffected, res.Error
	}
}
