/*
 * @module wialon_client/extract
 * @description Wialon条目字段的尽力提取，字段缺失或类型异常时降级为零值
 * @architecture 外部服务客户端 - 数据适配
 * @documentReference https://sdk.wialon.com/wiki/en/sidebar/remoteapi/apiref/core/search_items
 * @stateFlow 原始条目 -> 字段提取 -> 暂存行字段
 * @rules 提取永不报错，单个字段失败不影响其余字段
 * @dependencies github.com/spf13/cast
 * @refs service/wialon_sync/loader.go
 */

package wialon_client

import (
	"github.com/spf13/cast"
)

// ClientFields 从 avl_resource 条目提取的客户字段
type ClientFields struct {
	WialonID int64
	Name     string
	FullName string
}

// ObjectFields 从 avl_unit 条目提取的对象字段
type ObjectFields struct {
	WialonID      int64
	Name          string
	TrackerID     string
	Phone         string
	OwnerWialonID int64
}

// ExtractClientFields 提取客户字段
// 缺失字段以零值返回，调用方不需要区分"缺失"和"为空"
func ExtractClientFields(item map[string]interface{}) ClientFields {
	if item == nil {
		return ClientFields{}
	}

	fields := ClientFields{
		WialonID: cast.ToInt64(item["id"]),
		Name:     cast.ToString(item["nm"]),
	}

	// 资源的完整名称可能出现在 crt 账户信息或直接的 fn 字段中
	if fn := cast.ToString(item["fn"]); fn != "" {
		fields.FullName = fn
	} else {
		fields.FullName = fields.Name
	}

	return fields
}

// ExtractObjectFields 提取对象字段
func ExtractObjectFields(item map[string]interface{}) ObjectFields {
	if item == nil {
		return ObjectFields{}
	}

	fields := ObjectFields{
		WialonID:      cast.ToInt64(item["id"]),
		Name:          cast.ToString(item["nm"]),
		TrackerID:     cast.ToString(item["uid"]),
		OwnerWialonID: cast.ToInt64(item["bact"]),
	}

	// 主副两个电话字段，优先取主号
	if ph := cast.ToString(item["ph"]); ph != "" {
		fields.Phone = ph
	} else {
		fields.Phone = cast.ToString(item["ph2"])
	}

	return fields
}
