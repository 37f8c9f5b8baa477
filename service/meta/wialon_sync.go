package meta

// 同步会话状态常量
const (
	SyncSessionStatusRunning   = "running"
	SyncSessionStatusCompleted = "completed"
	SyncSessionStatusFailed    = "failed"
	SyncSessionStatusCancelled = "cancelled"
)

var SyncSessionStatuses = []MetaField{
	{
		Name:         "running",
		DisplayName:  "运行中",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
	{
		Name:         "completed",
		DisplayName:  "已完成",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
	{
		Name:         "failed",
		DisplayName:  "失败",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
	{
		Name:         "cancelled",
		DisplayName:  "已取消",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
}

// 同步日志级别常量
const (
	SyncLogLevelDebug   = "debug"
	SyncLogLevelInfo    = "info"
	SyncLogLevelWarning = "warning"
	SyncLogLevelError   = "error"
)

var SyncLogLevels = []MetaField{
	{
		Name:         "debug",
		DisplayName:  "调试",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
	{
		Name:         "info",
		DisplayName:  "信息",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
	{
		Name:         "warning",
		DisplayName:  "警告",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
	{
		Name:         "error",
		DisplayName:  "错误",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
}

// 差异类型常量
const (
	DiscrepancyTypeNewClient            = "new_client"
	DiscrepancyTypeNewObject            = "new_object"
	DiscrepancyTypeNewObjectKnownClient = "new_object_with_known_client"
	DiscrepancyTypeClientNameChanged    = "client_name_changed"
	DiscrepancyTypeObjectNameChanged    = "object_name_changed"
	DiscrepancyTypeOwnerChanged         = "owner_changed"
)

var DiscrepancyTypes = []MetaField{
	{
		Name:         "new_client",
		DisplayName:  "新客户",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
	{
		Name:         "new_object",
		DisplayName:  "新监控对象",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
	{
		Name:         "new_object_with_known_client",
		DisplayName:  "新监控对象（归属客户已知）",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
	{
		Name:         "client_name_changed",
		DisplayName:  "客户名称变更",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
	{
		Name:         "object_name_changed",
		DisplayName:  "对象名称变更",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
	{
		Name:         "owner_changed",
		DisplayName:  "归属关系变更",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
}

// 差异状态常量
const (
	DiscrepancyStatusPending  = "pending"
	DiscrepancyStatusApproved = "approved"
	DiscrepancyStatusRejected = "rejected"
	DiscrepancyStatusIgnored  = "ignored"
)

var DiscrepancyStatuses = []MetaField{
	{
		Name:         "pending",
		DisplayName:  "待处理",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
	{
		Name:         "approved",
		DisplayName:  "已确认",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
	{
		Name:         "rejected",
		DisplayName:  "已驳回",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
	{
		Name:         "ignored",
		DisplayName:  "已忽略",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
}

// 差异实体类型常量
const (
	DiscrepancyEntityClient = "client"
	DiscrepancyEntityObject = "object"
)

// 建议操作常量
const (
	SuggestedActionCreateClient     = "create_client"
	SuggestedActionCreateObject     = "create_object"
	SuggestedActionAssignToClient   = "assign_to_existing_client"
	SuggestedActionUpdateClientName = "update_client_name"
	SuggestedActionUpdateObjectName = "update_object_name"
	SuggestedActionChangeOwner      = "change_owner"
)

// 同步规则类型常量
const (
	SyncRuleTypeSQL    = "sql"
	SyncRuleTypeScript = "script"
)

var SyncRuleTypes = []MetaField{
	{
		Name:         "sql",
		DisplayName:  "SQL规则",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
	{
		Name:         "script",
		DisplayName:  "脚本规则",
		Type:         "string",
		Required:     true,
		DefaultValue: "",
	},
}

// 会话状态验证函数
func IsValidSyncSessionStatus(status string) bool {
	validStatuses := map[string]bool{
		SyncSessionStatusRunning:   true,
		SyncSessionStatusCompleted: true,
		SyncSessionStatusFailed:    true,
		SyncSessionStatusCancelled: true,
	}
	return validStatuses[status]
}

// 日志级别验证函数
func IsValidSyncLogLevel(level string) bool {
	validLevels := map[string]bool{
		SyncLogLevelDebug:   true,
		SyncLogLevelInfo:    true,
		SyncLogLevelWarning: true,
		SyncLogLevelError:   true,
	}
	return validLevels[level]
}

// 差异类型验证函数
func IsValidDiscrepancyType(discrepancyType string) bool {
	validTypes := map[string]bool{
		DiscrepancyTypeNewClient:            true,
		DiscrepancyTypeNewObject:            true,
		DiscrepancyTypeNewObjectKnownClient: true,
		DiscrepancyTypeClientNameChanged:    true,
		DiscrepancyTypeObjectNameChanged:    true,
		DiscrepancyTypeOwnerChanged:         true,
	}
	return validTypes[discrepancyType]
}

// 差异状态验证函数
func IsValidDiscrepancyStatus(status string) bool {
	validStatuses := map[string]bool{
		DiscrepancyStatusPending:  true,
		DiscrepancyStatusApproved: true,
		DiscrepancyStatusRejected: true,
		DiscrepancyStatusIgnored:  true,
	}
	return validStatuses[status]
}

// 差异实体类型验证函数
func IsValidDiscrepancyEntityType(entityType string) bool {
	validTypes := map[string]bool{
		DiscrepancyEntityClient: true,
		DiscrepancyEntityObject: true,
	}
	return validTypes[entityType]
}

// 规则类型验证函数
func IsValidSyncRuleType(ruleType string) bool {
	validTypes := map[string]bool{
		SyncRuleTypeSQL:    true,
		SyncRuleTypeScript: true,
	}
	return validTypes[ruleType]
}

// 获取差异的可处理目标状态
func GetResolvableDiscrepancyStatuses() []string {
	return []string{
		DiscrepancyStatusApproved,
		DiscrepancyStatusRejected,
		DiscrepancyStatusIgnored,
	}
}

// 会话状态流转验证
// running 是唯一的非终止状态，终止状态之间不允许互相转换
func CanTransitionSessionStatus(from, to string) bool {
	allowedTransitions := map[string][]string{
		SyncSessionStatusRunning: {
			SyncSessionStatusCompleted,
			SyncSessionStatusFailed,
			SyncSessionStatusCancelled,
		},
	}

	if allowed, exists := allowedTransitions[from]; exists {
		for _, status := range allowed {
			if status == to {
				return true
			}
		}
	}
	return false
}

var WialonSyncMetas map[string][]MetaField

func init() {
	WialonSyncMetas = make(map[string][]MetaField)
	WialonSyncMetas["sync_session_statuses"] = SyncSessionStatuses
	WialonSyncMetas["sync_log_levels"] = SyncLogLevels
	WialonSyncMetas["discrepancy_types"] = DiscrepancyTypes
	WialonSyncMetas["discrepancy_statuses"] = DiscrepancyStatuses
	WialonSyncMetas["sync_rule_types"] = SyncRuleTypes
}
