/*
 * @module wialon_client
 * @description Wialon Remote API 客户端，提供登录、条目检索和登出能力
 * @architecture 外部服务客户端 - 包级HTTP客户端
 * @documentReference https://sdk.wialon.com/wiki/en/sidebar/remoteapi/apiref/apiref
 * @stateFlow token/login -> core/search_items -> core/logout
 * @rules 响应体中非零error字段一律视为调用失败
 * @dependencies net/http, github.com/spf13/cast
 * @refs service/wialon_sync/loader.go
 */

package wialon_client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

var WialonUrl = "https://hst-api.wialon.com"
var wialonClient = &http.Client{
	Timeout: 60 * time.Second,
}

// 条目类型常量
const (
	ItemTypeResource = "avl_resource"
	ItemTypeUnit     = "avl_unit"
)

// 检索数据标志位
const (
	// 基础属性：id、nm
	FlagsBase int64 = 0x0001
	// 计费属性：bact（归属账户）
	FlagsBilling int64 = 0x0008
	// 扩展属性：ph、ph2、uid
	FlagsAdvanced int64 = 0x0100

	ResourceSearchFlags = FlagsBase
	UnitSearchFlags     = FlagsBase | FlagsBilling | FlagsAdvanced
)

func init() {
	if envUrl := os.Getenv("WIALON_API_URL"); envUrl != "" {
		WialonUrl = envUrl
	}
}

// SetWialonUrl 设置 Wialon API 的 URL（用于测试）
func SetWialonUrl(url string) {
	WialonUrl = url
}

// GetWialonUrl 获取当前 Wialon API 的 URL
func GetWialonUrl() string {
	return WialonUrl
}

// apiError Wialon接口错误响应
type apiError struct {
	Error  int    `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// LoginResult token/login 响应
type LoginResult struct {
	Error  int    `json:"error"`
	Reason string `json:"reason,omitempty"`
	Eid    string `json:"eid"`
	User   struct {
		Nm string `json:"nm"`
		ID int64  `json:"id"`
	} `json:"user"`
}

// SearchItemsResult core/search_items 响应
type SearchItemsResult struct {
	Error      int                      `json:"error"`
	Reason     string                   `json:"reason,omitempty"`
	SearchSpec map[string]interface{}   `json:"searchSpec,omitempty"`
	DataFlags  int64                    `json:"dataFlags,omitempty"`
	TotalItems int                      `json:"totalItemsCount"`
	Items      []map[string]interface{} `json:"items"`
}

// call 调用 Wialon Remote API 的单个服务
func call(ctx context.Context, svc string, params interface{}, sid string, out interface{}) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("序列化请求参数失败: %w", err)
	}

	values := url.Values{}
	values.Add("svc", svc)
	values.Add("params", string(paramsJSON))
	if sid != "" {
		values.Add("sid", sid)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, WialonUrl+"/wialon/ajax.html",
		strings.NewReader(values.Encode()))
	if err != nil {
		return fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := wialonClient.Do(req)
	if err != nil {
		return fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP请求失败: 状态码=%d", resp.StatusCode)
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}

	return nil
}

// Login 使用访问令牌登录，返回会话ID
func Login(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", errors.New("token cannot be empty")
	}

	var result LoginResult
	params := map[string]interface{}{"token": token}
	if err := call(ctx, "token/login", params, "", &result); err != nil {
		return "", err
	}

	if result.Error != 0 {
		return "", fmt.Errorf("Wialon登录失败: error=%d reason=%s", result.Error, result.Reason)
	}
	if result.Eid == "" {
		return "", errors.New("Wialon登录失败: 响应缺少会话ID")
	}

	return result.Eid, nil
}

// SearchItems 按条目类型检索全部条目
func SearchItems(ctx context.Context, sid, itemsType string, flags int64) ([]map[string]interface{}, error) {
	if sid == "" {
		return nil, errors.New("sid cannot be empty")
	}

	params := map[string]interface{}{
		"spec": map[string]interface{}{
			"itemsType":     itemsType,
			"propName":      "sys_name",
			"propValueMask": "*",
			"sortType":      "sys_name",
		},
		"force": 1,
		"flags": flags,
		"from":  0,
		"to":    0,
	}

	var result SearchItemsResult
	if err := call(ctx, "core/search_items", params, sid, &result); err != nil {
		return nil, err
	}

	if result.Error != 0 {
		return nil, fmt.Errorf("Wialon条目检索失败: error=%d reason=%s", result.Error, result.Reason)
	}

	return result.Items, nil
}

// Logout 注销会话，失败只影响服务端会话回收，不影响调用方
func Logout(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}

	var result apiError
	if err := call(ctx, "core/logout", map[string]interface{}{}, sid, &result); err != nil {
		return err
	}

	if result.Error != 0 {
		return fmt.Errorf("Wialon注销失败: error=%d", result.Error)
	}

	return nil
}
