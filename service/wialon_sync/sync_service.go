/*
 * @module service/wialon_sync/sync_service
 * @description 同步编排服务，串联会话、暂存加载、差异分析与自定义规则
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow 创建会话 -> 分布式锁保护 -> 事务内加载+分析 -> 完成/失败收尾
 * @rules 加载与分析在同一事务内，失败整体回滚只留下会话与日志；同一时刻全局仅允许一次同步
 * @dependencies gorm.io/gorm, service/distributed_lock, service/models, service/meta
 * @refs api/controllers/sync_session_controller.go
 */

package wialon_sync

import (
	"context"
	"errors"
	"fleetsync-service/service/distributed_lock"
	"fleetsync-service/service/meta"
	"fleetsync-service/service/models"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
)

// ErrSyncInProgress 已有同步在运行
var ErrSyncInProgress = errors.New("已有同步会话正在运行")

// 同步运行锁
const (
	syncLockKey = "wialon_sync_run"
	syncLockTTL = 15 * time.Minute
)

// EventPublisher 同步事件发布接口，由SSE事件服务实现
type EventPublisher interface {
	PublishSyncEvent(eventType string, data map[string]interface{})
}

// SyncService 同步编排服务
type SyncService struct {
	db       *gorm.DB
	sessions *SessionService
	loader   *Loader
	analyzer *Analyzer
	rules    *RuleService
	lock     distributed_lock.DistributedLock
	events   EventPublisher
}

// NewSyncService 创建同步编排服务
// lock 和 events 允许为 nil（单实例部署/测试环境）
func NewSyncService(db *gorm.DB, sessions *SessionService, loader *Loader, rules *RuleService,
	lock distributed_lock.DistributedLock, events EventPublisher) *SyncService {
	return &SyncService{
		db:       db,
		sessions: sessions,
		loader:   loader,
		analyzer: NewAnalyzer(),
		rules:    rules,
		lock:     lock,
		events:   events,
	}
}

// Run 执行一次完整同步，同步返回终止状态的会话
// 外部拉取失败时会话标记为failed并保留错误日志，暂存与差异整体回滚
func (s *SyncService) Run(ctx context.Context, createdBy string) (*models.SyncSession, error) {
	if s.lock != nil {
		locked, err := s.lock.TryLock(ctx, syncLockKey, syncLockTTL)
		if err != nil {
			return nil, fmt.Errorf("获取同步锁失败: %w", err)
		}
		if !locked {
			return nil, ErrSyncInProgress
		}
		defer func() {
			if unlockErr := s.lock.Unlock(ctx, syncLockKey); unlockErr != nil {
				slog.Error("释放同步锁失败", "error", unlockErr)
			}
		}()
	}

	session, err := s.sessions.Create(createdBy)
	if err != nil {
		return nil, err
	}

	s.sessions.AddLog(session.ID, meta.SyncLogLevelInfo, "同步会话启动", models.JSONB{"created_by": createdBy})
	s.publish(models.SSEEventSyncStarted, map[string]interface{}{
		"session_id": session.ID,
		"created_by": createdBy,
	})

	var loadResult *LoadResult
	var analysis *AnalysisResult

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		var err error

		loadResult, err = s.loader.Load(ctx, tx, session)
		if err != nil {
			return err
		}

		analysis, err = s.analyzer.Analyze(tx, session.ID)
		if err != nil {
			return err
		}

		return nil
	})

	if txErr != nil {
		s.sessions.AddLog(session.ID, meta.SyncLogLevelError, "同步失败", models.JSONB{"error": txErr.Error()})
		s.sessions.Fail(session.ID, txErr.Error())
		s.publish(models.SSEEventSyncFailed, map[string]interface{}{
			"session_id": session.ID,
			"error":      txErr.Error(),
		})
		return s.sessions.GetByID(session.ID)
	}

	// 规则级失败在分析阶段已计零，这里只留痕
	for name, reason := range analysis.PredicateErrors {
		s.sessions.AddLog(session.ID, meta.SyncLogLevelWarning, "比对规则执行失败",
			models.JSONB{"predicate": name, "error": reason})
	}

	// 自定义规则在核心事务之后执行，失败不影响会话结果
	s.runCustomRules(session.ID)

	if err := s.sessions.Complete(session.ID,
		loadResult.ClientsLoaded, loadResult.ObjectsLoaded, analysis.DiscrepanciesFound); err != nil {
		s.sessions.AddLog(session.ID, meta.SyncLogLevelError, "会话收尾失败", models.JSONB{"error": err.Error()})
		s.sessions.Fail(session.ID, err.Error())
		return s.sessions.GetByID(session.ID)
	}

	s.touchIntegration()

	s.sessions.AddLog(session.ID, meta.SyncLogLevelInfo, "同步会话完成", models.JSONB{
		"clients_checked":     loadResult.ClientsLoaded,
		"objects_checked":     loadResult.ObjectsLoaded,
		"discrepancies_found": analysis.DiscrepanciesFound,
	})

	s.publish(models.SSEEventSyncCompleted, map[string]interface{}{
		"session_id":          session.ID,
		"clients_checked":     loadResult.ClientsLoaded,
		"objects_checked":     loadResult.ObjectsLoaded,
		"discrepancies_found": analysis.DiscrepanciesFound,
	})

	if analysis.DiscrepanciesFound > 0 {
		s.publish(models.SSEEventDiscrepanciesFound, map[string]interface{}{
			"session_id": session.ID,
			"count":      analysis.DiscrepanciesFound,
		})
	}

	return s.sessions.GetByID(session.ID)
}

// runCustomRules 执行启用的自定义规则并记录结果
func (s *SyncService) runCustomRules(sessionID string) {
	if s.rules == nil {
		return
	}

	results, err := s.rules.ExecuteAll(sessionID)
	if err != nil {
		s.sessions.AddLog(sessionID, meta.SyncLogLevelWarning, "自定义规则批量执行失败", models.JSONB{"error": err.Error()})
		return
	}

	for _, r := range results {
		if r.Error != "" {
			s.sessions.AddLog(sessionID, meta.SyncLogLevelWarning, "自定义规则执行失败", models.JSONB{
				"rule_id":   r.RuleID,
				"rule_name": r.RuleName,
				"error":     r.Error,
			})
			continue
		}
		s.sessions.AddLog(sessionID, meta.SyncLogLevelInfo, "自定义规则执行完成", models.JSONB{
			"rule_id":       r.RuleID,
			"rule_name":     r.RuleName,
			"rows_affected": r.RowsAffected,
		})
	}
}

// touchIntegration 更新集成配置的最近同步时间
func (s *SyncService) touchIntegration() {
	now := time.Now()
	if err := s.db.Model(&models.WialonIntegration{}).
		Where("is_active = ?", true).
		Update("last_sync_time", &now).Error; err != nil {
		slog.Warn("更新集成配置最近同步时间失败", "error", err)
	}
}

// publish 发布SSE事件，事件服务未接入时静默跳过
func (s *SyncService) publish(eventType string, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	s.events.PublishSyncEvent(eventType, data)
}
