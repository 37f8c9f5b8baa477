/*
 * @module api/controllers/sync_rule_controller
 * @description 自定义同步规则控制器，提供规则CRUD和手动执行接口
 * @architecture 分层架构 - 控制器层
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow HTTP请求 -> 参数验证 -> 服务调用 -> 响应返回
 * @rules SQL规则与脚本规则互斥，创建和更新时校验规则体与类型匹配
 * @dependencies service/wialon_sync, service/meta, service/models
 * @refs api/routes.go
 */

package controllers

import (
	"encoding/json"
	"errors"
	"fleetsync-service/service/meta"
	"fleetsync-service/service/models"
	"fleetsync-service/service/wialon_sync"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"gorm.io/gorm"
)

// SyncRuleController 自定义同步规则控制器
type SyncRuleController struct {
	rules *wialon_sync.RuleService
}

// NewSyncRuleController 创建同步规则控制器
func NewSyncRuleController(rules *wialon_sync.RuleService) *SyncRuleController {
	return &SyncRuleController{rules: rules}
}

// CreateSyncRuleRequest 创建规则请求
type CreateSyncRuleRequest struct {
	Name           string       `json:"name" binding:"required" example:"标记测试客户"`
	Description    string       `json:"description,omitempty" example:"把名称带test的新客户差异自动忽略"`
	RuleType       string       `json:"rule_type" example:"sql"`
	SQLQuery       string       `json:"sql_query,omitempty" example:"UPDATE sync_discrepancies SET status='ignored' WHERE session_id=@session_id AND external_data->>'name' LIKE '%test%'"`
	Script         string       `json:"script,omitempty"`
	Parameters     models.JSONB `json:"parameters,omitempty"`
	ExecutionOrder int          `json:"execution_order,omitempty" example:"100"`
	IsActive       *bool        `json:"is_active,omitempty" example:"true"`
}

// UpdateSyncRuleRequest 更新规则请求
type UpdateSyncRuleRequest struct {
	Name           *string      `json:"name,omitempty"`
	Description    *string      `json:"description,omitempty"`
	SQLQuery       *string      `json:"sql_query,omitempty"`
	Script         *string      `json:"script,omitempty"`
	Parameters     models.JSONB `json:"parameters,omitempty"`
	ExecutionOrder *int         `json:"execution_order,omitempty"`
	IsActive       *bool        `json:"is_active,omitempty"`
}

// ExecuteSyncRuleRequest 手动执行规则请求
type ExecuteSyncRuleRequest struct {
	SessionID string `json:"session_id" binding:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// GetRuleList 获取同步规则列表
// @Summary 获取同步规则列表
// @Description 获取全部自定义同步规则，按execution_order排序
// @Tags Wialon同步管理
// @Produce json
// @Param only_active query bool false "只返回启用的规则"
// @Success 200 {object} APIResponse{data=[]models.SyncRule} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /sync/rules [get]
func (c *SyncRuleController) GetRuleList(w http.ResponseWriter, r *http.Request) {
	onlyActive := r.URL.Query().Get("only_active") == "true"

	rules, err := c.rules.List(onlyActive)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("获取同步规则列表失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取同步规则列表成功", rules))
}

// GetRule 获取同步规则详情
// @Summary 获取同步规则详情
// @Tags Wialon同步管理
// @Produce json
// @Param id path string true "规则ID"
// @Success 200 {object} APIResponse{data=models.SyncRule} "获取成功"
// @Failure 404 {object} APIResponse "规则不存在"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /sync/rules/{id} [get]
func (c *SyncRuleController) GetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rule, err := c.rules.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			render.JSON(w, r, NotFoundResponse("同步规则不存在", err))
			return
		}
		render.JSON(w, r, InternalErrorResponse("获取同步规则失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取同步规则成功", rule))
}

// CreateRule 创建同步规则
// @Summary 创建同步规则
// @Description 创建SQL或脚本类型的自定义同步规则
// @Description
// @Description **规则类型:**
// @Description - sql: 规则体为SQL语句，可用 @session_id 占位符引用当前会话
// @Description - script: 规则体为Go脚本，入口函数 Run(params)
// @Tags Wialon同步管理
// @Accept json
// @Produce json
// @Param rule body CreateSyncRuleRequest true "规则信息"
// @Success 200 {object} APIResponse{data=models.SyncRule} "创建成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /sync/rules [post]
func (c *SyncRuleController) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateSyncRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数解析失败", err))
		return
	}

	if req.Name == "" {
		render.JSON(w, r, BadRequestResponse("规则名称不能为空", nil))
		return
	}

	ruleType := req.RuleType
	if ruleType == "" {
		ruleType = meta.SyncRuleTypeSQL
	}
	if !meta.IsValidSyncRuleType(ruleType) {
		render.JSON(w, r, BadRequestResponse("无效的规则类型", nil))
		return
	}

	serviceReq := &wialon_sync.CreateRuleRequest{
		Name:           req.Name,
		Description:    req.Description,
		RuleType:       ruleType,
		SQLQuery:       req.SQLQuery,
		Script:         req.Script,
		Parameters:     req.Parameters,
		ExecutionOrder: req.ExecutionOrder,
		IsActive:       req.IsActive,
		CreatedBy:      currentUserName(r, "system"),
	}

	rule, err := c.rules.Create(serviceReq)
	if err != nil {
		render.JSON(w, r, BadRequestResponse("创建同步规则失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("创建同步规则成功", rule))
}

// UpdateRule 更新同步规则
// @Summary 更新同步规则
// @Description 部分更新规则字段，未提供的字段保持不变
// @Tags Wialon同步管理
// @Accept json
// @Produce json
// @Param id path string true "规则ID"
// @Param rule body UpdateSyncRuleRequest true "更新信息"
// @Success 200 {object} APIResponse{data=models.SyncRule} "更新成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 404 {object} APIResponse "规则不存在"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /sync/rules/{id} [put]
func (c *SyncRuleController) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateSyncRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数解析失败", err))
		return
	}

	serviceReq := &wialon_sync.UpdateRuleRequest{
		Name:           req.Name,
		Description:    req.Description,
		SQLQuery:       req.SQLQuery,
		Script:         req.Script,
		Parameters:     req.Parameters,
		ExecutionOrder: req.ExecutionOrder,
		IsActive:       req.IsActive,
	}

	rule, err := c.rules.Update(id, serviceReq)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			render.JSON(w, r, NotFoundResponse("同步规则不存在", err))
			return
		}
		render.JSON(w, r, BadRequestResponse("更新同步规则失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("更新同步规则成功", rule))
}

// DeleteRule 删除同步规则
// @Summary 删除同步规则
// @Tags Wialon同步管理
// @Produce json
// @Param id path string true "规则ID"
// @Success 200 {object} APIResponse "删除成功"
// @Failure 404 {object} APIResponse "规则不存在"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /sync/rules/{id} [delete]
func (c *SyncRuleController) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := c.rules.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			render.JSON(w, r, NotFoundResponse("同步规则不存在", err))
			return
		}
		render.JSON(w, r, InternalErrorResponse("删除同步规则失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("删除同步规则成功", nil))
}

// ExecuteRule 手动执行同步规则
// @Summary 手动执行同步规则
// @Description 对指定会话手动执行一条规则，返回执行结果
// @Tags Wialon同步管理
// @Accept json
// @Produce json
// @Param id path string true "规则ID"
// @Param request body ExecuteSyncRuleRequest true "执行参数"
// @Success 200 {object} APIResponse{data=wialon_sync.RuleExecutionResult} "执行完成"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 404 {object} APIResponse "规则不存在"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /sync/rules/{id}/execute [post]
func (c *SyncRuleController) ExecuteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ExecuteSyncRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数解析失败", err))
		return
	}

	if req.SessionID == "" {
		render.JSON(w, r, BadRequestResponse("会话ID不能为空", nil))
		return
	}

	result, err := c.rules.ExecuteByID(id, req.SessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			render.JSON(w, r, NotFoundResponse("同步规则不存在", err))
			return
		}
		render.JSON(w, r, InternalErrorResponse("执行同步规则失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("执行同步规则完成", result))
}
