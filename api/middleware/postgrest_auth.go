/*
 * @module api/middleware/postgrest_auth
 * @description PostgREST Token鉴权中间件，验证Bearer Token并注入用户信息
 * @architecture 中间件模式 - HTTP请求拦截和验证
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow Token提取 -> 缓存查询/远端验证 -> 上下文注入 -> 下一个处理器
 * @rules 验证结果短期缓存；健康检查、文档、指标和SSE端点走白名单
 * @dependencies net/http, encoding/json, github.com/go-chi/render
 * @refs api/routes.go, api/controllers/auth_context.go
 */

package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/render"
)

// ContextKey 上下文键类型
type ContextKey string

const (
	// TokenKey Token在上下文中的键
	TokenKey ContextKey = "token"
	// UserInfoKey 用户信息在上下文中的键
	UserInfoKey ContextKey = "user_info"
)

// UserInfo 通过验证的用户身份
type UserInfo struct {
	Username    string    `json:"username"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenVerificationResponse verify_token RPC的响应结构
type TokenVerificationResponse struct {
	Success     bool       `json:"success"`
	Valid       bool       `json:"valid"`
	Message     string     `json:"message"`
	Username    string     `json:"username"`
	Roles       []string   `json:"roles"`
	Permissions []string   `json:"permissions"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// tokenCache 验证结果缓存，避免每个请求都打一次PostgREST
type tokenCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]tokenCacheEntry
}

type tokenCacheEntry struct {
	userInfo  *UserInfo
	expiresAt time.Time
}

func newTokenCache(ttl time.Duration) *tokenCache {
	return &tokenCache{
		ttl:     ttl,
		entries: make(map[string]tokenCacheEntry),
	}
}

func (c *tokenCache) get(token string) *UserInfo {
	c.mu.RLock()
	entry, exists := c.entries[token]
	c.mu.RUnlock()

	if !exists {
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, token)
		c.mu.Unlock()
		return nil
	}
	return entry.userInfo
}

func (c *tokenCache) put(token string, userInfo *UserInfo) {
	// 缓存寿命不超过Token自身的剩余有效期
	expiry := time.Now().Add(c.ttl)
	if userInfo.ExpiresAt.Before(expiry) {
		expiry = userInfo.ExpiresAt
	}

	c.mu.Lock()
	c.entries[token] = tokenCacheEntry{userInfo: userInfo, expiresAt: expiry}
	c.mu.Unlock()
}

// PostgRESTAuthMiddleware PostgREST认证中间件
type PostgRESTAuthMiddleware struct {
	postgrestURL   string
	httpClient     *http.Client
	cache          *tokenCache
	whitelistPaths []string
}

// NewPostgRESTAuthMiddleware 创建PostgREST认证中间件实例
// 验证端点地址取POSTGREST_URL环境变量
func NewPostgRESTAuthMiddleware() *PostgRESTAuthMiddleware {
	postgrestURL := os.Getenv("POSTGREST_URL")
	if postgrestURL == "" {
		postgrestURL = "http://postgrest:3000"
	}

	return &PostgRESTAuthMiddleware{
		postgrestURL: postgrestURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache: newTokenCache(5 * time.Minute),
		whitelistPaths: []string{
			"/health",  // 健康检查
			"/ready",   // 就绪检查
			"/swagger", // Swagger文档
			"/metrics", // Prometheus指标
			"/sse",     // SSE连接（EventSource不支持自定义请求头）
		},
	}
}

// IsWhitelistPath 检查路径是否在白名单中，前缀匹配
func (m *PostgRESTAuthMiddleware) IsWhitelistPath(path string) bool {
	for _, prefix := range m.whitelistPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Middleware 认证中间件处理函数
func (m *PostgRESTAuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.IsWhitelistPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeAuthError(w, r, http.StatusUnauthorized, "缺少Authorization头")
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeAuthError(w, r, http.StatusUnauthorized, "无效的Authorization格式，需要Bearer Token")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			writeAuthError(w, r, http.StatusUnauthorized, "Token为空")
			return
		}

		userInfo := m.cache.get(token)
		if userInfo == nil {
			verified, err := m.verifyToken(r.Context(), token)
			if err != nil {
				writeAuthError(w, r, http.StatusUnauthorized, fmt.Sprintf("Token验证失败: %v", err))
				return
			}
			m.cache.put(token, verified)
			userInfo = verified
		}

		ctx := context.WithValue(r.Context(), TokenKey, token)
		ctx = context.WithValue(ctx, UserInfoKey, userInfo)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// verifyToken 调用PostgREST的verify_token RPC验证Token
func (m *PostgRESTAuthMiddleware) verifyToken(ctx context.Context, token string) (*UserInfo, error) {
	reqBody, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return nil, fmt.Errorf("序列化验证请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.postgrestURL+"/rpc/verify_token", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("创建验证请求失败: %w", err)
	}
	req.Header.Set("Accept-Profile", "postgrest")
	req.Header.Set("Content-Profile", "postgrest")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("验证请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取验证响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("验证请求失败，状态码: %d", resp.StatusCode)
	}

	var verifyResp TokenVerificationResponse
	if err := json.Unmarshal(respBody, &verifyResp); err != nil {
		return nil, fmt.Errorf("解析验证响应失败: %w", err)
	}
	if !verifyResp.Success || !verifyResp.Valid {
		return nil, fmt.Errorf("Token无效: %s", verifyResp.Message)
	}

	userInfo := &UserInfo{
		Username:    verifyResp.Username,
		Roles:       verifyResp.Roles,
		Permissions: verifyResp.Permissions,
	}
	if verifyResp.ExpiresAt != nil {
		userInfo.ExpiresAt = *verifyResp.ExpiresAt
	} else {
		userInfo.ExpiresAt = time.Now().Add(time.Hour)
	}

	return userInfo, nil
}

// RequirePermission 要求上下文用户具备指定权限的中间件
func RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userInfo, ok := GetUserInfoFromContext(r.Context())
			if !ok {
				writeAuthError(w, r, http.StatusUnauthorized, "未找到用户信息")
				return
			}

			for _, perm := range userInfo.Permissions {
				if perm == permission {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeAuthError(w, r, http.StatusForbidden, fmt.Sprintf("缺少所需权限: %s", permission))
		})
	}
}

// GetUserInfoFromContext 从上下文中获取用户信息
func GetUserInfoFromContext(ctx context.Context) (*UserInfo, bool) {
	userInfo, ok := ctx.Value(UserInfoKey).(*UserInfo)
	return userInfo, ok
}

// GetTokenFromContext 从上下文中获取Token
func GetTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// writeAuthError 输出鉴权失败响应
func writeAuthError(w http.ResponseWriter, r *http.Request, status int, message string) {
	label := "Unauthorized"
	if status == http.StatusForbidden {
		label = "Forbidden"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	render.JSON(w, r, map[string]interface{}{
		"status":  status,
		"message": message,
		"error":   label,
	})
}
