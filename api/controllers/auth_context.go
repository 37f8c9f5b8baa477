package controllers

import (
	"fleetsync-service/api/middleware"
	"net/http"
)

// currentUserName 从请求上下文获取当前用户名，未鉴权时返回fallback
func currentUserName(r *http.Request, fallback string) string {
	if userInfo, ok := middleware.GetUserInfoFromContext(r.Context()); ok && userInfo.Username != "" {
		return userInfo.Username
	}
	return fallback
}
