/*
 * @module service/wialon_sync/script_executor
 * @description 规则脚本执行器，基于yaegi解释器运行用户脚本规则
 * @architecture 工具层 - 解释器沙箱
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow 脚本哈希查缓存 -> 未命中则编译 -> 注入参数执行
 * @rules 脚本必须提供 Run(params) (interface{}, error) 入口；编译结果按内容哈希缓存
 * @dependencies github.com/traefik/yaegi
 * @refs service/wialon_sync/rule_service.go
 */

package wialon_sync

import (
	"crypto/sha1"
	"fmt"
	"sync"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// ScriptExecutor 规则脚本执行器，支持缓存和参数注入
type ScriptExecutor struct {
	mu    sync.RWMutex
	cache map[string]*compiledScript
}

// compiledScript 编译后的脚本
type compiledScript struct {
	fn       func(map[string]interface{}) (interface{}, error)
	compiled time.Time
	hash     string
}

// NewScriptExecutor 创建脚本执行器
func NewScriptExecutor() *ScriptExecutor {
	return &ScriptExecutor{
		cache: make(map[string]*compiledScript),
	}
}

// Execute 执行脚本（带参数注入和缓存优化）
func (e *ScriptExecutor) Execute(script string, params map[string]interface{}) (interface{}, error) {
	hash := fmt.Sprintf("%x", sha1.Sum([]byte(script)))

	e.mu.RLock()
	compiled, ok := e.cache[hash]
	e.mu.RUnlock()

	if !ok {
		var err error
		compiled, err = e.compile(script, hash)
		if err != nil {
			return nil, fmt.Errorf("脚本编译失败: %v", err)
		}

		e.mu.Lock()
		e.cache[hash] = compiled
		e.mu.Unlock()
	}

	return compiled.fn(params)
}

// Validate 验证脚本语法（快速校验）
func (e *ScriptExecutor) Validate(script string) error {
	hash := fmt.Sprintf("%x", sha1.Sum([]byte(script)))
	_, err := e.compile(script, hash)
	return err
}

// ClearCache 清理编译缓存
func (e *ScriptExecutor) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]*compiledScript)
}

// compile 编译脚本为可执行函数
func (e *ScriptExecutor) compile(script, hash string) (*compiledScript, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("加载标准库失败: %w", err)
	}

	// 包装脚本：要求脚本必须实现一个 Run 函数
	wrapped := fmt.Sprintf(`
package main

import (
	"fmt"
	"time"
	"encoding/json"
	"sort"
	"strings"
)

// 必须提供一个 Run 函数作为入口
func Run(params map[string]interface{}) (interface{}, error) {
	// 从参数中提取常用变量，方便脚本使用
	var sessionID interface{}
	if sid, exists := params["session_id"]; exists {
		sessionID = sid
	}

	var ruleParams interface{}
	if rp, exists := params["parameters"]; exists {
		ruleParams = rp
	}

	var query interface{}
	if q, exists := params["query"]; exists {
		query = q
	}

	var exec interface{}
	if ex, exists := params["exec"]; exists {
		exec = ex
	}

	// 脚本内容
%s
}
`, script)

	_, err := i.Eval(wrapped)
	if err != nil {
		return nil, fmt.Errorf("脚本编译失败: %w", err)
	}

	v, err := i.Eval("Run")
	if err != nil {
		return nil, fmt.Errorf("脚本缺少 Run 函数: %w", err)
	}

	runFunc, ok := v.Interface().(func(map[string]interface{}) (interface{}, error))
	if !ok {
		return nil, fmt.Errorf("Run 函数签名必须是 func(map[string]interface{}) (interface{}, error)")
	}

	return &compiledScript{
		fn:       runFunc,
		compiled: time.Now(),
		hash:     hash,
	}, nil
}
