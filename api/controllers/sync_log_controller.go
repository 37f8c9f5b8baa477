/*
 * @module api/controllers/sync_log_controller
 * @description 同步日志控制器，提供日志查询和清理接口
 * @architecture 分层架构 - 控制器层
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow HTTP请求 -> 参数验证 -> 服务调用 -> 响应返回
 * @rules 日志只追加不修改，清理只支持按会话或按保留天数两种方式
 * @dependencies service/wialon_sync, service/meta
 * @refs api/routes.go
 */

package controllers

import (
	"fleetsync-service/service/meta"
	"fleetsync-service/service/wialon_sync"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"
)

// SyncLogController 同步日志控制器
type SyncLogController struct {
	logs *wialon_sync.LogService
}

// NewSyncLogController 创建同步日志控制器
func NewSyncLogController(logs *wialon_sync.LogService) *SyncLogController {
	return &SyncLogController{logs: logs}
}

// GetLogList 获取同步日志列表
// @Summary 获取同步日志列表
// @Description 分页获取同步日志，支持按会话和日志级别过滤
// @Description
// @Description **统计说明:**
// @Description - stats: 当前会话范围内各级别日志数量（未指定会话时等于全局）
// @Description - global_stats: 全部日志各级别数量
// @Tags Wialon同步管理
// @Produce json
// @Param session_id query string false "会话ID过滤"
// @Param log_level query string false "日志级别过滤" Enums(debug, info, warning, error)
// @Param date_from query string false "起始时间，RFC3339或YYYY-MM-DD"
// @Param date_to query string false "截止时间，RFC3339或YYYY-MM-DD"
// @Param search query string false "在日志消息中模糊搜索"
// @Param page query int false "页码，默认1"
// @Param size query int false "每页大小，默认10，最大100"
// @Success 200 {object} APIResponse{data=wialon_sync.LogListResponse} "获取成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /sync/logs [get]
func (c *SyncLogController) GetLogList(w http.ResponseWriter, r *http.Request) {
	req := &wialon_sync.LogListRequest{
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

	if level := r.URL.Query().Get("log_level"); level != "" {
		if !meta.IsValidSyncLogLevel(level) {
			render.JSON(w, r, BadRequestResponse("无效的日志级别", nil))
			return
		}
		req.LogLevel = level
	}

	if fromStr := r.URL.Query().Get("date_from"); fromStr != "" {
		from, err := parseLogTime(fromStr)
		if err != nil {
			render.JSON(w, r, BadRequestResponse("无效的date_from参数", err))
			return
		}
		req.DateFrom = &from
	}
	if toStr := r.URL.Query().Get("date_to"); toStr != "" {
		to, err := parseLogTime(toStr)
		if err != nil {
			render.JSON(w, r, BadRequestResponse("无效的date_to参数", err))
			return
		}
		req.DateTo = &to
	}

	req.Search = r.URL.Query().Get("search")

	result, err := c.logs.List(req)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("获取同步日志失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取同步日志成功", result))
}

// parseLogTime 解析时间参数，支持RFC3339和纯日期两种格式
func parseLogTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

// DeleteLogs 清理同步日志
// @Summary 清理同步日志
// @Description 按会话ID删除日志，或按保留天数删除过期日志，两个参数必须提供其一
// @Tags Wialon同步管理
// @Produce json
// @Param session_id query string false "删除指定会话的全部日志"
// @Param days query int false "删除N天之前的日志"
// @Success 200 {object} APIResponse "清理成功，data为删除的记录数"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /sync/logs [delete]
func (c *SyncLogController) DeleteLogs(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	daysStr := r.URL.Query().Get("days")

	if sessionID == "" && daysStr == "" {
		render.JSON(w, r, BadRequestResponse("必须提供session_id或days参数", nil))
		return
	}

	if sessionID != "" {
		deleted, err := c.logs.DeleteBySession(sessionID)
		if err != nil {
			render.JSON(w, r, InternalErrorResponse("删除会话日志失败", err))
			return
		}
		render.JSON(w, r, SuccessResponse("删除会话日志成功", map[string]interface{}{
			"deleted": deleted,
		}))
		return
	}

	days, err := strconv.Atoi(daysStr)
	if err != nil || days <= 0 {
		render.JSON(w, r, BadRequestResponse("days参数必须是正整数", err))
		return
	}

	deleted, err := c.logs.DeleteBefore(days)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("清理过期日志失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("清理过期日志成功", map[string]interface{}{
		"deleted": deleted,
	}))
}
