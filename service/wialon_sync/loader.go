/*
 * @module service/wialon_sync/loader
 * @description 暂存加载器，从Wialon拉取客户与对象快照并按会话写入暂存表
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow 读取集成配置 -> 登录 -> 清空本会话暂存 -> 拉取并写入 -> 注销
 * @rules 登录或拉取失败立即中止并返回错误；字段提取尽力而为，单条异常不中止加载
 * @dependencies wialon_client, service/models, service/utils, gorm.io/gorm
 * @refs service/wialon_sync/sync_service.go
 */

package wialon_sync

import (
	"context"
	"errors"
	"fleetsync-service/service/meta"
	"fleetsync-service/service/models"
	"fleetsync-service/service/utils"
	"fleetsync-service/wialon_client"
	"fmt"

	"gorm.io/gorm"
)

// ErrIntegrationUnavailable 集成配置缺失、停用或凭据为空
var ErrIntegrationUnavailable = errors.New("Wialon集成配置不可用")

// Loader 暂存加载器
type Loader struct {
	sessions *SessionService
	crypto   *utils.CryptoUtils
}

// NewLoader 创建暂存加载器
func NewLoader(sessions *SessionService, crypto *utils.CryptoUtils) *Loader {
	return &Loader{
		sessions: sessions,
		crypto:   crypto,
	}
}

// LoadResult 加载结果
type LoadResult struct {
	ClientsLoaded int
	ObjectsLoaded int
}

// Load 在给定事务中执行清空重建式加载
// 暂存写入与步骤日志都走事务tx，失败时的收尾日志由调用方在事务外补写
func (l *Loader) Load(ctx context.Context, tx *gorm.DB, session *models.SyncSession) (*LoadResult, error) {
	integration, err := l.resolveIntegration(tx)
	if err != nil {
		l.sessions.AddLogTx(tx, session.ID, meta.SyncLogLevelError, "集成配置不可用", models.JSONB{"error": err.Error()})
		return nil, err
	}

	token, err := l.crypto.AESDecrypt(integration.EncryptedToken)
	if err != nil {
		l.sessions.AddLogTx(tx, session.ID, meta.SyncLogLevelError, "解密访问令牌失败", models.JSONB{"error": err.Error()})
		return nil, fmt.Errorf("解密访问令牌失败: %w", err)
	}

	sid, err := wialon_client.Login(ctx, token)
	if err != nil {
		l.sessions.AddLogTx(tx, session.ID, meta.SyncLogLevelError, "Wialon登录失败", models.JSONB{"error": err.Error()})
		return nil, fmt.Errorf("Wialon登录失败: %w", err)
	}
	defer func() {
		if logoutErr := wialon_client.Logout(ctx, sid); logoutErr != nil {
			l.sessions.AddLogTx(tx, session.ID, meta.SyncLogLevelWarning, "Wialon注销失败", models.JSONB{"error": logoutErr.Error()})
		}
	}()

	l.sessions.AddLogTx(tx, session.ID, meta.SyncLogLevelInfo, "Wialon登录成功", nil)

	result := &LoadResult{}

	result.ClientsLoaded, err = l.loadClients(ctx, tx, session, sid)
	if err != nil {
		return nil, err
	}

	result.ObjectsLoaded, err = l.loadObjects(ctx, tx, session, sid)
	if err != nil {
		return nil, err
	}

	l.sessions.AddLogTx(tx, session.ID, meta.SyncLogLevelInfo, "暂存加载完成", models.JSONB{
		"clients_loaded": result.ClientsLoaded,
		"objects_loaded": result.ObjectsLoaded,
	})

	return result, nil
}

// resolveIntegration 读取可用的集成配置
func (l *Loader) resolveIntegration(tx *gorm.DB) (*models.WialonIntegration, error) {
	var integration models.WialonIntegration
	err := tx.Where("is_active = ?", true).Order("updated_at DESC").First(&integration).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIntegrationUnavailable
		}
		return nil, fmt.Errorf("查询集成配置失败: %w", err)
	}

	if !integration.IsUsable() {
		return nil, ErrIntegrationUnavailable
	}

	if integration.APIURL != "" {
		wialon_client.SetWialonUrl(integration.APIURL)
	}

	return &integration, nil
}

// loadClients 清空并重建本会话的客户暂存
func (l *Loader) loadClients(ctx context.Context, tx *gorm.DB, session *models.SyncSession, sid string) (int, error) {
	items, err := wialon_client.SearchItems(ctx, sid, wialon_client.ItemTypeResource, wialon_client.ResourceSearchFlags)
	if err != nil {
		l.sessions.AddLogTx(tx, session.ID, meta.SyncLogLevelError, "拉取Wialon客户失败", models.JSONB{"error": err.Error()})
		return 0, fmt.Errorf("拉取Wialon客户失败: %w", err)
	}

	if err := tx.Where("session_id = ?", session.ID).Delete(&models.TempWialonClient{}).Error; err != nil {
		return 0, fmt.Errorf("清空客户暂存失败: %w", err)
	}

	loaded := 0
	for _, item := range items {
		fields := wialon_client.ExtractClientFields(item)
		if fields.WialonID == 0 {
			// 缺少外部标识的条目无法参与比对
			l.sessions.AddLogTx(tx, session.ID, meta.SyncLogLevelWarning, "跳过缺少ID的客户条目", models.JSONB{"raw": item})
			continue
		}

		row := &models.TempWialonClient{
			SessionID: session.ID,
			WialonID:  fields.WialonID,
			Name:      fields.Name,
			FullName:  fields.FullName,
			RawData:   models.JSONB(item),
		}
		if err := tx.Create(row).Error; err != nil {
			return 0, fmt.Errorf("写入客户暂存失败: %w", err)
		}
		loaded++
	}

	l.sessions.AddLogTx(tx, session.ID, meta.SyncLogLevelInfo, "客户暂存加载完成", models.JSONB{"count": loaded})
	return loaded, nil
}

// loadObjects 清空并重建本会话的对象暂存
func (l *Loader) loadObjects(ctx context.Context, tx *gorm.DB, session *models.SyncSession, sid string) (int, error) {
	items, err := wialon_client.SearchItems(ctx, sid, wialon_client.ItemTypeUnit, wialon_client.UnitSearchFlags)
	if err != nil {
		l.sessions.AddLogTx(tx, session.ID, meta.SyncLogLevelError, "拉取Wialon对象失败", models.JSONB{"error": err.Error()})
		return 0, fmt.Errorf("拉取Wialon对象失败: %w", err)
	}

	if err := tx.Where("session_id = ?", session.ID).Delete(&models.TempWialonObject{}).Error; err != nil {
		return 0, fmt.Errorf("清空对象暂存失败: %w", err)
	}

	loaded := 0
	for _, item := range items {
		fields := wialon_client.ExtractObjectFields(item)
		if fields.WialonID == 0 {
			l.sessions.AddLogTx(tx, session.ID, meta.SyncLogLevelWarning, "跳过缺少ID的对象条目", models.JSONB{"raw": item})
			continue
		}

		row := &models.TempWialonObject{
			SessionID:     session.ID,
			WialonID:      fields.WialonID,
			Name:          fields.Name,
			TrackerID:     fields.TrackerID,
			Phone:         fields.Phone,
			OwnerWialonID: fields.OwnerWialonID,
			RawData:       models.JSONB(item),
		}
		if err := tx.Create(row).Error; err != nil {
			return 0, fmt.Errorf("写入对象暂存失败: %w", err)
		}
		loaded++
	}

	l.sessions.AddLogTx(tx, session.ID, meta.SyncLogLevelInfo, "对象暂存加载完成", models.JSONB{"count": loaded})
	return loaded, nil
}
