/*
 * @module service/wialon_sync/analyzer
 * @description 差异分析器，对暂存快照与本地主数据执行五条固定比对规则
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow 读取暂存与主数据 -> 逐条规则比对 -> 写入差异记录
 * @rules 规则相互独立，单条规则失败计零不影响其余规则；名称比较经规范化后进行
 * @dependencies gorm.io/gorm, golang.org/x/text/unicode/norm, service/models, service/meta
 * @refs service/wialon_sync/sync_service.go
 */

package wialon_sync

import (
	"fleetsync-service/service/meta"
	"fleetsync-service/service/models"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// Analyzer 差异分析器
type Analyzer struct{}

// NewAnalyzer 创建差异分析器
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// AnalysisResult 分析结果
type AnalysisResult struct {
	DiscrepanciesFound int
	// 规则名 -> 失败原因，失败规则在本次会话中计零
	PredicateErrors map[string]string
}

// analysisInput 规则共享的输入集
type analysisInput struct {
	stagingClients []models.TempWialonClient
	stagingObjects []models.TempWialonObject
	// 本地客户按 wialon_id 索引
	clientsByWialonID map[int64]*models.Client
	// 本地对象按 wialon_id 索引
	objectsByWialonID map[int64]*models.WialonObject
}

// Analyze 对指定会话执行全部比对规则并写入差异
func (a *Analyzer) Analyze(tx *gorm.DB, sessionID string) (*AnalysisResult, error) {
	input, err := a.loadInput(tx, sessionID)
	if err != nil {
		return nil, err
	}

	result := &AnalysisResult{
		PredicateErrors: make(map[string]string),
	}

	for _, p := range a.predicates() {
		discrepancies, perr := a.runPredicate(p.name, p.fn, input)
		if perr != nil {
			result.PredicateErrors[p.name] = perr.Error()
			continue
		}

		for i := range discrepancies {
			discrepancies[i].SessionID = sessionID
			if err := tx.Create(&discrepancies[i]).Error; err != nil {
				return nil, fmt.Errorf("写入差异记录失败: %w", err)
			}
		}
		result.DiscrepanciesFound += len(discrepancies)
	}

	return result, nil
}

// predicate 单条比对规则
type predicate struct {
	name string
	fn   func(*analysisInput) []models.SyncDiscrepancy
}

// predicates 五条固定比对规则，规则之间相互独立，执行顺序不影响结果
func (a *Analyzer) predicates() []predicate {
	return []predicate{
		{"new_clients", a.detectNewClients},
		{"new_objects", a.detectNewObjects},
		{"client_name_changed", a.detectClientNameChanges},
		{"object_name_changed", a.detectObjectNameChanges},
		{"owner_changed", a.detectOwnerChanges},
	}
}

// runPredicate 隔离执行单条规则，panic转换为规则级错误
func (a *Analyzer) runPredicate(name string, fn func(*analysisInput) []models.SyncDiscrepancy, input *analysisInput) (result []models.SyncDiscrepancy, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("规则 %s 执行异常: %v", name, r)
		}
	}()
	return fn(input), nil
}

// loadInput 一次性装载暂存与主数据
func (a *Analyzer) loadInput(tx *gorm.DB, sessionID string) (*analysisInput, error) {
	input := &analysisInput{
		clientsByWialonID: make(map[int64]*models.Client),
		objectsByWialonID: make(map[int64]*models.WialonObject),
	}

	if err := tx.Where("session_id = ?", sessionID).Find(&input.stagingClients).Error; err != nil {
		return nil, fmt.Errorf("读取客户暂存失败: %w", err)
	}
	if err := tx.Where("session_id = ?", sessionID).Find(&input.stagingObjects).Error; err != nil {
		return nil, fmt.Errorf("读取对象暂存失败: %w", err)
	}

	var clients []models.Client
	if err := tx.Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("读取客户主数据失败: %w", err)
	}
	for i := range clients {
		if clients[i].WialonID != nil && *clients[i].WialonID != 0 {
			input.clientsByWialonID[*clients[i].WialonID] = &clients[i]
		}
	}

	var objects []models.WialonObject
	if err := tx.Find(&objects).Error; err != nil {
		return nil, fmt.Errorf("读取对象主数据失败: %w", err)
	}
	for i := range objects {
		if objects[i].WialonID != nil && *objects[i].WialonID != 0 {
			input.objectsByWialonID[*objects[i].WialonID] = &objects[i]
		}
	}

	return input, nil
}

// detectNewClients 外部存在而本地未绑定的客户
func (a *Analyzer) detectNewClients(input *analysisInput) []models.SyncDiscrepancy {
	var found []models.SyncDiscrepancy

	for _, sc := range input.stagingClients {
		if _, exists := input.clientsByWialonID[sc.WialonID]; exists {
			continue
		}

		found = append(found, models.SyncDiscrepancy{
			DiscrepancyType: meta.DiscrepancyTypeNewClient,
			EntityType:      meta.DiscrepancyEntityClient,
			ExternalData: models.JSONB{
				"wialon_id": sc.WialonID,
				"name":      sc.Name,
				"full_name": sc.FullName,
			},
			SuggestedAction: meta.SuggestedActionCreateClient,
		})
	}

	return found
}

// detectNewObjects 外部存在而本地未绑定的监控对象
// 归属能解析到本地客户时升级为new_object_with_known_client并建议直接挂到该客户
func (a *Analyzer) detectNewObjects(input *analysisInput) []models.SyncDiscrepancy {
	var found []models.SyncDiscrepancy

	for _, so := range input.stagingObjects {
		if _, exists := input.objectsByWialonID[so.WialonID]; exists {
			continue
		}

		d := models.SyncDiscrepancy{
			DiscrepancyType: meta.DiscrepancyTypeNewObject,
			EntityType:      meta.DiscrepancyEntityObject,
			ExternalData: models.JSONB{
				"wialon_id":       so.WialonID,
				"name":            so.Name,
				"tracker_id":      so.TrackerID,
				"phone":           so.Phone,
				"owner_wialon_id": so.OwnerWialonID,
			},
			SuggestedAction: meta.SuggestedActionCreateObject,
		}

		if so.HasOwner() {
			if owner, ok := input.clientsByWialonID[so.OwnerWialonID]; ok {
				ownerID := owner.ID
				d.DiscrepancyType = meta.DiscrepancyTypeNewObjectKnownClient
				d.SuggestedClientID = &ownerID
				d.SuggestedAction = meta.SuggestedActionAssignToClient
			}
		}

		found = append(found, d)
	}

	return found
}

// detectClientNameChanges 双方都存在但名称规范化后不一致的客户
func (a *Analyzer) detectClientNameChanges(input *analysisInput) []models.SyncDiscrepancy {
	var found []models.SyncDiscrepancy

	for _, sc := range input.stagingClients {
		local, exists := input.clientsByWialonID[sc.WialonID]
		if !exists {
			continue
		}

		if NormalizeName(sc.Name) == NormalizeName(local.Name) {
			continue
		}

		localID := local.ID
		found = append(found, models.SyncDiscrepancy{
			DiscrepancyType: meta.DiscrepancyTypeClientNameChanged,
			EntityType:      meta.DiscrepancyEntityClient,
			ExternalData: models.JSONB{
				"wialon_id": sc.WialonID,
				"name":      sc.Name,
			},
			LocalData: models.JSONB{
				"client_id": local.ID,
				"name":      local.Name,
			},
			SuggestedClientID: &localID,
			SuggestedAction:   meta.SuggestedActionUpdateClientName,
		})
	}

	return found
}

// detectObjectNameChanges 双方都存在但名称规范化后不一致的对象
func (a *Analyzer) detectObjectNameChanges(input *analysisInput) []models.SyncDiscrepancy {
	var found []models.SyncDiscrepancy

	for _, so := range input.stagingObjects {
		local, exists := input.objectsByWialonID[so.WialonID]
		if !exists {
			continue
		}

		if NormalizeName(so.Name) == NormalizeName(local.Name) {
			continue
		}

		found = append(found, models.SyncDiscrepancy{
			DiscrepancyType: meta.DiscrepancyTypeObjectNameChanged,
			EntityType:      meta.DiscrepancyEntityObject,
			ExternalData: models.JSONB{
				"wialon_id": so.WialonID,
				"name":      so.Name,
			},
			LocalData: models.JSONB{
				"object_id": local.ID,
				"name":      local.Name,
			},
			SuggestedAction: meta.SuggestedActionUpdateObjectName,
		})
	}

	return found
}

// detectOwnerChanges 对象归属与外部账户不一致
// 外部归属缺失或无法解析到本地客户时静默跳过
func (a *Analyzer) detectOwnerChanges(input *analysisInput) []models.SyncDiscrepancy {
	var found []models.SyncDiscrepancy

	for _, so := range input.stagingObjects {
		local, exists := input.objectsByWialonID[so.WialonID]
		if !exists {
			continue
		}

		if !so.HasOwner() {
			continue
		}

		owner, resolvable := input.clientsByWialonID[so.OwnerWialonID]
		if !resolvable {
			continue
		}

		if local.ClientID != nil && *local.ClientID == owner.ID {
			continue
		}

		localData := models.JSONB{
			"object_id": local.ID,
		}
		if local.ClientID != nil {
			localData["client_id"] = *local.ClientID
		}

		ownerID := owner.ID
		found = append(found, models.SyncDiscrepancy{
			DiscrepancyType: meta.DiscrepancyTypeOwnerChanged,
			EntityType:      meta.DiscrepancyEntityObject,
			ExternalData: models.JSONB{
				"wialon_id":       so.WialonID,
				"owner_wialon_id": so.OwnerWialonID,
				"owner_name":      owner.Name,
			},
			LocalData:         localData,
			SuggestedClientID: &ownerID,
			SuggestedAction:   meta.SuggestedActionChangeOwner,
		})
	}

	return found
}

// NormalizeName 名称规范化：NFC归一、大小写折叠、首尾去空白、连续空白折叠
func NormalizeName(name string) string {
	normalized := norm.NFC.String(name)
	normalized = strings.ToLower(normalized)
	return strings.Join(strings.Fields(normalized), " ")
}
