/**
 * @module SchedulerService
 * @description 同步调度器服务，负责滞留会话巡检和可选的定时同步
 * @architecture 基于Go协程和cron的调度器模式
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow 启动 -> 注册巡检/定时任务 -> 周期执行 -> 停止
 * @rules 滞留会话只报告不改状态；定时同步与手动同步共用同一把分布式锁
 * @dependencies robfig/cron, service/wialon_sync, service/distributed_lock
 * @refs service/init.go
 */

package scheduler

import (
	"context"
	"fleetsync-service/service/distributed_lock"
	"fleetsync-service/service/meta"
	"fleetsync-service/service/models"
	"fleetsync-service/service/wialon_sync"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
)

// 定时同步的会话归属标识
const scheduledSyncUser = "scheduler"

// SchedulerService 调度器服务
type SchedulerService struct {
	sessions    *wialon_sync.SessionService
	syncService *wialon_sync.SyncService
	executor    *distributed_lock.LockExecutor
	cron        *cron.Cron
	ctx         context.Context
	cancel      context.CancelFunc

	staleAfter time.Duration
	syncCron   string
}

// NewSchedulerService 创建调度器服务
// lock 允许为 nil，单实例部署时定时同步不加分布式锁
func NewSchedulerService(sessions *wialon_sync.SessionService, syncService *wialon_sync.SyncService,
	lock distributed_lock.DistributedLock) *SchedulerService {
	ctx, cancel := context.WithCancel(context.Background())

	staleAfter := 60 * time.Minute
	if val := os.Getenv("SYNC_STALE_AFTER_MINUTES"); val != "" {
		if minutes, err := strconv.Atoi(val); err == nil && minutes > 0 {
			staleAfter = time.Duration(minutes) * time.Minute
		}
	}

	var executor *distributed_lock.LockExecutor
	if lock != nil {
		executor = distributed_lock.NewLockExecutor(lock)
	}

	return &SchedulerService{
		sessions:    sessions,
		syncService: syncService,
		executor:    executor,
		cron:        cron.New(cron.WithSeconds()),
		ctx:         ctx,
		cancel:      cancel,
		staleAfter:  staleAfter,
		syncCron:    os.Getenv("SYNC_CRON"),
	}
}

// Start 启动调度器
func (s *SchedulerService) Start() error {
	log.Println("启动同步调度器")

	// 滞留会话巡检，每5分钟一次
	if _, err := s.cron.AddFunc("0 */5 * * * *", s.reportStaleSessions); err != nil {
		return fmt.Errorf("注册滞留会话巡检失败: %w", err)
	}

	// 可选的定时同步
	if s.syncCron != "" {
		if _, err := s.cron.AddFunc(s.syncCron, s.runScheduledSync); err != nil {
			return fmt.Errorf("注册定时同步失败: %w", err)
		}
		log.Printf("定时同步已注册: %s", s.syncCron)
	}

	s.cron.Start()

	log.Println("同步调度器启动完成")
	return nil
}

// Stop 停止调度器
func (s *SchedulerService) Stop() {
	log.Println("停止同步调度器")

	s.cancel()
	if s.cron != nil {
		s.cron.Stop()
	}

	log.Println("同步调度器已停止")
}

// reportStaleSessions 报告滞留在running状态的会话
// 只写警告日志留痕，不强制流转会话状态
func (s *SchedulerService) reportStaleSessions() {
	sessions, err := s.sessions.FindStaleRunning(s.staleAfter)
	if err != nil {
		slog.Error("滞留会话巡检失败", "error", err)
		return
	}

	for _, session := range sessions {
		runningFor := time.Since(session.StartTime)
		slog.Warn("发现滞留的同步会话",
			"session_id", session.ID,
			"created_by", session.CreatedBy,
			"running_for", runningFor.String())

		s.sessions.AddLog(session.ID, meta.SyncLogLevelWarning, "会话运行超时",
			models.JSONB{
				"running_for_minutes": int(runningFor.Minutes()),
				"threshold_minutes":   int(s.staleAfter.Minutes()),
			})
	}
}

// runScheduledSync 执行定时同步
func (s *SchedulerService) runScheduledSync() {
	run := func() error {
		session, err := s.syncService.Run(s.ctx, scheduledSyncUser)
		if err != nil {
			if err == wialon_sync.ErrSyncInProgress {
				slog.Info("定时同步跳过: 已有同步在运行")
				return nil
			}
			return err
		}
		slog.Info("定时同步完成", "session_id", session.ID, "status", session.Status)
		return nil
	}

	var err error
	if s.executor != nil {
		err = s.executor.ExecuteWithLock(s.ctx, "scheduled_sync", 15*time.Minute, run)
	} else {
		err = run()
	}

	if err != nil {
		slog.Error("定时同步失败", "error", err)
	}
}
