/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs dev_docs/model.md
 */

package api

import (
	"net/http"
	"os"

	"fleetsync-service/api/controllers"
	authmw "fleetsync-service/api/middleware"
	"fleetsync-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// 同步管理操作所需的权限标识
const syncManagePermission = "wialon_sync.manage"

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Token鉴权，AUTH_ENABLED=true时启用；白名单路径不经过鉴权
	authEnabled := os.Getenv("AUTH_ENABLED") == "true"
	manage := func(next http.Handler) http.Handler { return next }
	if authEnabled {
		auth := authmw.NewPostgRESTAuthMiddleware()
		r.Use(auth.Middleware)
		manage = authmw.RequirePermission(syncManagePermission)
	}

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// SSE事件订阅
	eventController := controllers.NewEventController(service.GlobalEventService)
	r.Get("/sse/{user_name}", eventController.HandleSSE)

	// 事件管理
	r.Route("/events", func(r chi.Router) {
		r.Post("/send", eventController.SendEvent)
		r.Post("/broadcast", eventController.BroadcastEvent)
		r.Get("/connections", eventController.GetSSEConnectionList)
		r.Get("/history", eventController.GetEventHistoryList)
	})

	// Wialon同步管理
	r.Route("/sync", func(r chi.Router) {
		sessionController := controllers.NewSyncSessionController(service.GlobalSessionService, service.GlobalSyncService)
		logController := controllers.NewSyncLogController(service.GlobalLogService)
		discrepancyController := controllers.NewDiscrepancyController(service.GlobalDiscrepancyService)
		ruleController := controllers.NewSyncRuleController(service.GlobalRuleService)
		integrationController := controllers.NewIntegrationController(service.GlobalIntegrationService)

		// 手动触发同步
		r.With(manage).Post("/start", sessionController.StartSync)

		// 同步会话
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", sessionController.GetSessionList)
			r.Get("/{id}", sessionController.GetSession)
			r.With(manage).Post("/{id}/cancel", sessionController.CancelSession)
		})

		// 同步日志
		r.Route("/logs", func(r chi.Router) {
			r.Get("/", logController.GetLogList)
			r.With(manage).Delete("/", logController.DeleteLogs)
		})

		// 同步差异
		r.Route("/discrepancies", func(r chi.Router) {
			r.Get("/", discrepancyController.GetDiscrepancyList)
			r.Get("/{id}", discrepancyController.GetDiscrepancy)
			r.With(manage).Post("/resolve", discrepancyController.ResolveDiscrepancies)
		})

		// 自定义同步规则
		r.Route("/rules", func(r chi.Router) {
			r.With(manage).Post("/", ruleController.CreateRule)
			r.Get("/", ruleController.GetRuleList)
			r.Get("/{id}", ruleController.GetRule)
			r.With(manage).Put("/{id}", ruleController.UpdateRule)
			r.With(manage).Delete("/{id}", ruleController.DeleteRule)
			r.With(manage).Post("/{id}/execute", ruleController.ExecuteRule)
		})

		// Wialon集成配置
		r.Route("/integration", func(r chi.Router) {
			r.Get("/", integrationController.GetIntegration)
			r.With(manage).Put("/", integrationController.UpdateIntegration)
		})
	})
}
