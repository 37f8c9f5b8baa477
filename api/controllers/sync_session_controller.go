/*
 * @module api/controllers/sync_session_controller
 * @description Wialon同步会话控制器，提供会话查询、手动触发和取消接口
 * @architecture 分层架构 - 控制器层
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow HTTP请求 -> 参数验证 -> 服务调用 -> 响应返回
 * @rules 同步触发为同步执行，内部失败返回failed状态的会话而不是HTTP错误
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

// SyncSessionController 同步会话控制器
type SyncSessionController struct {
	sessions    *wialon_sync.SessionService
	syncService *wialon_sync.SyncService
}

// NewSyncSessionController 创建同步会话控制器
func NewSyncSessionController(sessions *wialon_sync.SessionService, syncService *wialon_sync.SyncService) *SyncSessionController {
	return &SyncSessionController{
		sessions:    sessions,
		syncService: syncService,
	}
}

// StartSyncRequest 手动触发同步请求
type StartSyncRequest struct {
	CreatedBy string `json:"created_by" example:"admin"`
}

// GetSessionList 获取同步会话列表
// @Summary 获取同步会话列表
// @Description 分页获取同步会话列表，支持按状态过滤
// @Description
// @Description **会话状态流转:**
// @Description running → completed/failed/cancelled
// @Tags Wialon同步管理
// @Produce json
// @Param page query int false "页码，默认1"
// @Param size query int false "每页大小，默认10，最大100"
// @Param status query string false "会话状态过滤" Enums(running, completed, failed, cancelled)
// @Param search query string false "在触发人、错误信息和会话ID中模糊搜索"
// @Param sort_by query string false "排序列" Enums(start_time, end_time, status, created_by, discrepancies_found)
// @Param descending query bool false "是否倒序，默认false"
// @Success 200 {object} APIResponse{data=wialon_sync.SessionListResponse} "获取成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /sync/sessions [get]
func (c *SyncSessionController) GetSessionList(w http.ResponseWriter, r *http.Request) {
	req := &wialon_sync.SessionListRequest{
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

	if status := r.URL.Query().Get("status"); status != "" {
		if !meta.IsValidSyncSessionStatus(status) {
			render.JSON(w, r, BadRequestResponse("无效的会话状态", nil))
			return
		}
		req.Status = status
	}

	req.Search = r.URL.Query().Get("search")
	req.SortBy = r.URL.Query().Get("sort_by")
	req.Descending = r.URL.Query().Get("descending") == "true"

	result, err := c.sessions.List(req)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("获取同步会话列表失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取同步会话列表成功", result))
}

// GetSession 获取同步会话详情
// @Summary 获取同步会话详情
// @Description 根据会话ID获取同步会话详情，附带该会话的全部日志（按时间正序）
// @Tags Wialon同步管理
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} APIResponse "获取成功，data包含session和logs"
// @Failure 404 {object} APIResponse "会话不存在"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /sync/sessions/{id} [get]
func (c *SyncSessionController) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		render.JSON(w, r, BadRequestResponse("会话ID不能为空", nil))
		return
	}

	session, err := c.sessions.GetDetail(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			render.JSON(w, r, NotFoundResponse("同步会话不存在", err))
			return
		}
		render.JSON(w, r, InternalErrorResponse("获取同步会话失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取同步会话成功", map[string]interface{}{
		"session": session,
		"logs":    session.Logs,
	}))
}

// StartSync 手动触发同步
// @Summary 手动触发同步
// @Description 同步执行一次Wialon拉取与差异分析，返回终态会话
// @Description
// @Description **说明:**
// @Description - 同一时刻只允许一个同步在运行，冲突时返回409
// @Description - 同步内部失败不返回HTTP错误，而是返回status=failed的会话
// @Tags Wialon同步管理
// @Accept json
// @Produce json
// @Param request body StartSyncRequest false "触发信息"
// @Success 200 {object} APIResponse{data=models.SyncSession} "同步完成"
// @Failure 409 {object} APIResponse "已有同步在运行"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /sync/start [post]
func (c *SyncSessionController) StartSync(w http.ResponseWriter, r *http.Request) {
	var req StartSyncRequest
	if r.Body != nil {
		// 请求体可选，解析失败按默认触发人处理
		json.NewDecoder(r.Body).Decode(&req)
	}

	createdBy := req.CreatedBy
	if createdBy == "" {
		createdBy = currentUserName(r, "system")
	}

	session, err := c.syncService.Run(r.Context(), createdBy)
	if err != nil {
		if errors.Is(err, wialon_sync.ErrSyncInProgress) {
			render.JSON(w, r, ConflictResponse("已有同步会话在运行", err))
			return
		}
		render.JSON(w, r, InternalErrorResponse("触发同步失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("同步执行完成", session))
}

// CancelSession 取消同步会话
// @Summary 取消同步会话
// @Description 将运行中的同步会话标记为cancelled
// @Tags Wialon同步管理
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} APIResponse{data=models.SyncSession} "取消成功"
// @Failure 400 {object} APIResponse "会话不在运行状态"
// @Failure 404 {object} APIResponse "会话不存在"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /sync/sessions/{id}/cancel [post]
func (c *SyncSessionController) CancelSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		render.JSON(w, r, BadRequestResponse("会话ID不能为空", nil))
		return
	}

	cancelledBy := currentUserName(r, "system")

	session, err := c.sessions.Cancel(id, cancelledBy)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			render.JSON(w, r, NotFoundResponse("同步会话不存在", err))
			return
		}
		if errors.Is(err, wialon_sync.ErrInvalidSessionTransition) {
			render.JSON(w, r, BadRequestResponse("会话不在运行状态，无法取消", err))
			return
		}
		render.JSON(w, r, InternalErrorResponse("取消同步会话失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("取消同步会话成功", session))
}
