/*
 * @module api/controllers/integration_controller
 * @description Wialon集成配置控制器，提供配置查询和更新接口
 * @architecture 分层架构 - 控制器层
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow HTTP请求 -> 参数验证 -> 服务调用 -> 响应返回
 * @rules 访问令牌只写不读，查询响应只回显是否已配置
 * @dependencies service/wialon_sync, service/models
 * @refs api/routes.go
 */

package controllers

import (
	"encoding/json"
	"errors"
	"fleetsync-service/service/models"
	"fleetsync-service/service/wialon_sync"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"gorm.io/gorm"
)

// IntegrationController Wialon集成配置控制器
type IntegrationController struct {
	integrations *wialon_sync.IntegrationService
}

// NewIntegrationController 创建集成配置控制器
func NewIntegrationController(integrations *wialon_sync.IntegrationService) *IntegrationController {
	return &IntegrationController{integrations: integrations}
}

// UpdateIntegrationRequest 更新集成配置请求
type UpdateIntegrationRequest struct {
	APIURL    *string `json:"api_url,omitempty" example:"https://hst-api.wialon.com"`
	TokenName *string `json:"token_name,omitempty" example:"fleet-sync"`
	Token     *string `json:"token,omitempty" example:"d0b5..."`
	IsActive  *bool   `json:"is_active,omitempty" example:"true"`
}

// IntegrationResponse 集成配置响应，不回显令牌
type IntegrationResponse struct {
	ID           string     `json:"id"`
	APIURL       string     `json:"api_url"`
	TokenName    string     `json:"token_name"`
	HasToken     bool       `json:"has_token"`
	IsActive     bool       `json:"is_active"`
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func toIntegrationResponse(integration *models.WialonIntegration) *IntegrationResponse {
	return &IntegrationResponse{
		ID:           integration.ID,
		APIURL:       integration.APIURL,
		TokenName:    integration.TokenName,
		HasToken:     integration.EncryptedToken != "",
		IsActive:     integration.IsActive,
		LastSyncTime: integration.LastSyncTime,
		UpdatedAt:    integration.UpdatedAt,
	}
}

// GetIntegration 获取集成配置
// @Summary 获取Wialon集成配置
// @Description 获取当前的Wialon集成配置，令牌不回显
// @Tags Wialon同步管理
// @Produce json
// @Success 200 {object} APIResponse{data=IntegrationResponse} "获取成功"
// @Failure 404 {object} APIResponse "集成配置不存在"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /sync/integration [get]
func (c *IntegrationController) GetIntegration(w http.ResponseWriter, r *http.Request) {
	integration, err := c.integrations.Get()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			render.JSON(w, r, NotFoundResponse("集成配置不存在", err))
			return
		}
		render.JSON(w, r, InternalErrorResponse("获取集成配置失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取集成配置成功", toIntegrationResponse(integration)))
}

// UpdateIntegration 更新集成配置
// @Summary 更新Wialon集成配置
// @Description 部分更新集成配置，提供token时重新加密存储
// @Tags Wialon同步管理
// @Accept json
// @Produce json
// @Param request body UpdateIntegrationRequest true "配置信息"
// @Success 200 {object} APIResponse{data=IntegrationResponse} "更新成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /sync/integration [put]
func (c *IntegrationController) UpdateIntegration(w http.ResponseWriter, r *http.Request) {
	var req UpdateIntegrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数解析失败", err))
		return
	}

	integration, err := c.integrations.Update(&wialon_sync.UpdateIntegrationRequest{
		APIURL:    req.APIURL,
		TokenName: req.TokenName,
		Token:     req.Token,
		IsActive:  req.IsActive,
	})
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("更新集成配置失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("更新集成配置成功", toIntegrationResponse(integration)))
}
