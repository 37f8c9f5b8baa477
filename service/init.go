/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、迁移和全局服务装配
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow 应用启动时执行初始化流程
 * @rules 确保所有依赖服务正常启动后才提供API服务；Redis不可用时退化为单实例模式
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs dev_docs/model.md
 */

package service

import (
	"fleetsync-service/service/database"
	"fleetsync-service/service/distributed_lock"
	"fleetsync-service/service/event"
	"fleetsync-service/service/scheduler"
	"fleetsync-service/service/utils"
	"fleetsync-service/service/wialon_sync"
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB                       *gorm.DB
	GlobalEventService       *event.EventService
	GlobalSessionService     *wialon_sync.SessionService
	GlobalLogService         *wialon_sync.LogService
	GlobalDiscrepancyService *wialon_sync.DiscrepancyService
	GlobalRuleService        *wialon_sync.RuleService
	GlobalIntegrationService *wialon_sync.IntegrationService
	GlobalSyncService        *wialon_sync.SyncService
	GlobalSchedulerService   *scheduler.SchedulerService
)

func init() {
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		// 使用分离的环境变量构建连接字符串
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "postgres")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=Asia/Shanghai",
			host, port, user, password, dbname, sslmode, schema)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	// 独立schema部署时先保证schema存在并注册到postgrest
	schema := getEnvWithDefault("DB_SCHEMA", "public")
	if schema != "public" && !database.CheckSchemaExists(DB, schema) {
		if err := database.CreateSchema(DB, schema); err != nil {
			log.Fatalf("创建schema失败: %v", err)
		}
	}

	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	log.Println("数据库表结构迁移完成")

	if err := database.InitializeData(DB); err != nil {
		log.Fatalf("基础数据初始化失败: %v", err)
	}
	log.Println("基础数据初始化完成")

	log.Println("所有数据库迁移任务完成")
}

// initServices 初始化服务
func initServices() {
	crypto := utils.NewCryptoUtils(os.Getenv("TOKEN_ENCRYPTION_KEY"))

	// 初始化事件服务
	GlobalEventService = event.NewEventService(DB)

	// 同步相关服务
	GlobalSessionService = wialon_sync.NewSessionService(DB)
	GlobalLogService = wialon_sync.NewLogService(DB)
	GlobalDiscrepancyService = wialon_sync.NewDiscrepancyService(DB)
	GlobalRuleService = wialon_sync.NewRuleService(DB)
	GlobalIntegrationService = wialon_sync.NewIntegrationService(DB, crypto)

	// Redis分布式锁，多实例部署时防止并发同步
	var lock distributed_lock.DistributedLock
	if redisLock, err := distributed_lock.NewRedisLock(); err != nil {
		log.Printf("Redis分布式锁初始化失败，退化为单实例模式: %v", err)
	} else {
		lock = redisLock
	}

	loader := wialon_sync.NewLoader(GlobalSessionService, crypto)
	GlobalSyncService = wialon_sync.NewSyncService(DB, GlobalSessionService, loader,
		GlobalRuleService, lock, GlobalEventService)

	// 初始化调度器服务
	GlobalSchedulerService = scheduler.NewSchedulerService(GlobalSessionService, GlobalSyncService, lock)

	// 启动调度器
	if err := GlobalSchedulerService.Start(); err != nil {
		log.Printf("启动调度器服务失败: %v", err)
	}
	log.Println("服务初始化完成")
}
