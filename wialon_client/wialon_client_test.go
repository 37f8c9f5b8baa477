package wialon_client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newWialonServer 启动一个模拟Wialon接口的测试服务器，按svc分发响应
func newWialonServer(t *testing.T, handler func(svc string, params map[string]interface{}, sid string) interface{}) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "/wialon/ajax.html", r.URL.Path)

		svc := r.FormValue("svc")
		sid := r.FormValue("sid")
		var params map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("params")), &params))

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(handler(svc, params, sid)))
	}))

	previous := GetWialonUrl()
	SetWialonUrl(server.URL)
	t.Cleanup(func() {
		SetWialonUrl(previous)
		server.Close()
	})

	return server
}

func TestLogin(t *testing.T) {
	newWialonServer(t, func(svc string, params map[string]interface{}, sid string) interface{} {
		assert.Equal(t, "token/login", svc)
		assert.Equal(t, "test-token", params["token"])
		assert.Empty(t, sid)
		return map[string]interface{}{
			"error": 0,
			"eid":   "session-abc",
			"user":  map[string]interface{}{"nm": "operator", "id": 77},
		}
	})

	eid, err := Login(context.Background(), "test-token")
	require.NoError(t, err)
	assert.Equal(t, "session-abc", eid)
}

func TestLogin_空token拒绝(t *testing.T) {
	_, err := Login(context.Background(), "")
	assert.Error(t, err)
}

func TestLogin_接口返回错误码(t *testing.T) {
	newWialonServer(t, func(svc string, params map[string]interface{}, sid string) interface{} {
		return map[string]interface{}{"error": 4, "reason": "INVALID_TOKEN"}
	})

	_, err := Login(context.Background(), "bad-token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error=4")
	assert.Contains(t, err.Error(), "INVALID_TOKEN")
}

func TestLogin_响应缺少会话ID(t *testing.T) {
	newWialonServer(t, func(svc string, params map[string]interface{}, sid string) interface{} {
		return map[string]interface{}{"error": 0}
	})

	_, err := Login(context.Background(), "test-token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "会话ID")
}

func TestLogin_非200状态码(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	previous := GetWialonUrl()
	SetWialonUrl(server.URL)
	t.Cleanup(func() {
		SetWialonUrl(previous)
		server.Close()
	})

	_, err := Login(context.Background(), "test-token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSearchItems(t *testing.T) {
	newWialonServer(t, func(svc string, params map[string]interface{}, sid string) interface{} {
		assert.Equal(t, "core/search_items", svc)
		assert.Equal(t, "session-abc", sid)

		spec, ok := params["spec"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, ItemTypeUnit, spec["itemsType"])
		assert.Equal(t, "*", spec["propValueMask"])
		assert.Equal(t, float64(UnitSearchFlags), params["flags"])

		return map[string]interface{}{
			"error":           0,
			"totalItemsCount": 2,
			"items": []map[string]interface{}{
				{"id": 5001, "nm": "车辆A"},
				{"id": 5002, "nm": "车辆B"},
			},
		}
	})

	items, err := SearchItems(context.Background(), "session-abc", ItemTypeUnit, UnitSearchFlags)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "车辆A", items[0]["nm"])
}

func TestSearchItems_空sid拒绝(t *testing.T) {
	_, err := SearchItems(context.Background(), "", ItemTypeResource, ResourceSearchFlags)
	assert.Error(t, err)
}

func TestSearchItems_接口返回错误码(t *testing.T) {
	newWialonServer(t, func(svc string, params map[string]interface{}, sid string) interface{} {
		return map[string]interface{}{"error": 1, "reason": "INVALID_SESSION"}
	})

	_, err := SearchItems(context.Background(), "stale-sid", ItemTypeResource, ResourceSearchFlags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error=1")
}

func TestLogout(t *testing.T) {
	called := false
	newWialonServer(t, func(svc string, params map[string]interface{}, sid string) interface{} {
		called = true
		assert.Equal(t, "core/logout", svc)
		assert.Equal(t, "session-abc", sid)
		return map[string]interface{}{"error": 0}
	})

	require.NoError(t, Logout(context.Background(), "session-abc"))
	assert.True(t, called)
}

func TestLogout_空sid不发请求(t *testing.T) {
	newWialonServer(t, func(svc string, params map[string]interface{}, sid string) interface{} {
		t.Error("空sid不应触发HTTP调用")
		return map[string]interface{}{"error": 0}
	})

	assert.NoError(t, Logout(context.Background(), ""))
}

func TestLogout_接口返回错误码(t *testing.T) {
	newWialonServer(t, func(svc string, params map[string]interface{}, sid string) interface{} {
		return map[string]interface{}{"error": 5}
	})

	assert.Error(t, Logout(context.Background(), "session-abc"))
}
