/*
 * @module api/controllers/discrepancy_controller
 * @description 同步差异控制器，提供差异查询和批量处理接口
 * @architecture 分层架构 - 控制器层
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow HTTP请求 -> 参数验证 -> 服务调用 -> 响应返回
 * @rules 处理操作只是记录决定，不回写业务数据；只有pending状态的差异可以被处理
 * @dependencies service/wialon_sync, service/meta
 * @refs api/routes.go
 */

package controllers

import (
	"encoding/json"
	"errors"
	"fleetsync-service/service/meta"
	"fleetsync-service/service/wialon_sync"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"gorm.io/gorm"
)

// DiscrepancyController 同步差异控制器
type DiscrepancyController struct {
	discrepancies *wialon_sync.DiscrepancyService
}

// NewDiscrepancyController 创建同步差异控制器
func NewDiscrepancyController(discrepancies *wialon_sync.DiscrepancyService) *DiscrepancyController {
	return &DiscrepancyController{discrepancies: discrepancies}
}

// ResolveDiscrepanciesRequest 批量处理差异请求
type ResolveDiscrepanciesRequest struct {
	IDs    []string `json:"ids" binding:"required,min=1"`
	Status string   `json:"status" binding:"required" example:"approved"`
	Notes  string   `json:"notes,omitempty" example:"已在Wialon侧核实"`
}

// GetDiscrepancyList 获取同步差异列表
// @Summary 获取同步差异列表
// @Description 分页获取同步差异，支持按会话、状态、差异类型和实体类型过滤
// @Description
// @Description **差异类型:**
// @Description - new_client / new_object: 外部存在本地缺失
// @Description - new_object_with_known_client: 新对象且归属客户可解析到本地
// @Description - client_name_changed / object_name_changed: 名称不一致
// @Description - owner_changed: 对象归属不一致
// @Description
// @Description **统计说明:**
// @Description - stats: 当前过滤条件（忽略status）下各状态数量，保证状态页签计数一致
// @Description - global_stats: 全部差异各状态数量
// @Tags Wialon同步管理
// @Produce json
// @Param session_id query string false "会话ID过滤"
// @Param status query string false "差异状态过滤" Enums(pending, approved, rejected, ignored)
// @Param discrepancy_type query string false "差异类型过滤"
// @Param entity_type query string false "实体类型过滤" Enums(client, object)
// @Param search query string false "在差异类型和实体名称快照中模糊搜索"
// @Param page query int false "页码，默认1"
// @Param size query int false "每页大小，默认10，最大100"
// @Success 200 {object} APIResponse{data=wialon_sync.DiscrepancyListResponse} "获取成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /sync/discrepancies [get]
func (c *DiscrepancyController) GetDiscrepancyList(w http.ResponseWriter, r *http.Request) {
	req := &wialon_sync.DiscrepancyListRequest{
		Page: 1,
		Size: 10,
	}

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			req.Page = page
		}
	}
	if sizeStr := r.URL.Query().Get("size"); sizeStr != "" {
		if size, err := strconv.Atoi(sizeStr); err == nil && size > 0 && size <= 100 {
			req.Size = size
		}
	}

	req.SessionID = r.URL.Query().Get("session_id")

	if status := r.URL.Query().Get("status"); status != "" {
		if !meta.IsValidDiscrepancyStatus(status) {
			render.JSON(w, r, BadRequestResponse("无效的差异状态", nil))
			return
		}
		req.Status = status
	}

	if discrepancyType := r.URL.Query().Get("discrepancy_type"); discrepancyType != "" {
		if !meta.IsValidDiscrepancyType(discrepancyType) {
			render.JSON(w, r, BadRequestResponse("无效的差异类型", nil))
			return
		}
		req.DiscrepancyType = discrepancyType
	}

	if entityType := r.URL.Query().Get("entity_type"); entityType != "" {
		if !meta.IsValidDiscrepancyEntityType(entityType) {
			render.JSON(w, r, BadRequestResponse("无效的实体类型", nil))
			return
		}
		req.EntityType = entityType
	}

	req.Search = r.URL.Query().Get("search")

	result, err := c.discrepancies.List(req)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("获取同步差异列表失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取同步差异列表成功", result))
}

// GetDiscrepancy 获取同步差异详情
// @Summary 获取同步差异详情
// @Description 根据差异ID获取差异详细信息，包含外部数据和本地数据快照
// @Tags Wialon同步管理
// @Produce json
// @Param id path string true "差异ID"
// @Success 200 {object} APIResponse{data=models.SyncDiscrepancy} "获取成功"
// @Failure 404 {object} APIResponse "差异不存在"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /sync/discrepancies/{id} [get]
func (c *DiscrepancyController) GetDiscrepancy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		render.JSON(w, r, BadRequestResponse("差异ID不能为空", nil))
		return
	}

	discrepancy, err := c.discrepancies.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			render.JSON(w, r, NotFoundResponse("同步差异不存在", err))
			return
		}
		render.JSON(w, r, InternalErrorResponse("获取同步差异失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取同步差异成功", discrepancy))
}

// ResolveDiscrepancies 批量处理同步差异
// @Summary 批量处理同步差异
// @Description 将一批pending状态的差异标记为approved/rejected/ignored
// @Description
// @Description **说明:**
// @Description - 只有pending状态的差异会被更新，其余ID被跳过
// @Description - 返回实际更新的记录数和更新后的差异记录，调用方可据此发现部分跳过
// @Description - 该操作只记录处理决定，不修改客户和对象数据
// @Tags Wialon同步管理
// @Accept json
// @Produce json
// @Param request body ResolveDiscrepanciesRequest true "处理信息"
// @Success 200 {object} APIResponse "处理成功，data包含affected与处理后的discrepancies"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /sync/discrepancies/resolve [post]
func (c *DiscrepancyController) ResolveDiscrepancies(w http.ResponseWriter, r *http.Request) {
	var req ResolveDiscrepanciesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数解析失败", err))
		return
	}

	if len(req.IDs) == 0 {
		render.JSON(w, r, BadRequestResponse("差异ID列表不能为空", nil))
		return
	}

	serviceReq := &wialon_sync.ResolveRequest{
		IDs:        req.IDs,
		Status:     req.Status,
		Notes:      req.Notes,
		ResolvedBy: currentUserName(r, "system"),
	}

	affected, updated, err := c.discrepancies.Resolve(serviceReq)
	if err != nil {
		if errors.Is(err, wialon_sync.ErrInvalidResolutionStatus) {
			render.JSON(w, r, BadRequestResponse("无效的处理状态", err))
			return
		}
		render.JSON(w, r, InternalErrorResponse("处理同步差异失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("处理同步差异成功", map[string]interface{}{
		"affected":      affected,
		"requested":     len(req.IDs),
		"discrepancies": updated,
	}))
}
