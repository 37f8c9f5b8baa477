/*
 * @module service/database/migrate
 * @description 数据库迁移模块，负责创建和更新数据库表结构
 * @architecture 数据访问层 - 迁移管理
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow 应用启动时执行数据库迁移
 * @rules 确保数据库结构与模型定义保持一致
 * @dependencies fleetsync-service/service/models, gorm.io/gorm
 * @refs service/init.go
 */

package database

import (
	"fleetsync-service/service/models"
	"log"

	"gorm.io/gorm"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	log.Println("开始数据库迁移...")

	// 主数据表
	err := db.AutoMigrate(
		&models.Client{},
		&models.WialonObject{},
		&models.WialonIntegration{},
	)
	if err != nil {
		return err
	}

	// 同步会话相关表
	err = db.AutoMigrate(
		&models.SyncSession{},
		&models.SyncLog{},
		&models.SyncDiscrepancy{},
		&models.SyncRule{},
	)
	if err != nil {
		return err
	}

	// 暂存表
	err = db.AutoMigrate(
		&models.TempWialonClient{},
		&models.TempWialonObject{},
	)
	if err != nil {
		return err
	}

	// 事件管理相关表
	err = db.AutoMigrate(
		&models.SSEEvent{},
		&models.SSEConnection{},
	)
	if err != nil {
		return err
	}

	log.Println("数据库迁移完成")
	return nil
}

// InitializeData 初始化基础数据
func InitializeData(db *gorm.DB) error {
	log.Println("开始初始化基础数据...")

	// 内置差异规则在代码中实现，不入库；这里只保证至少存在一条集成配置占位
	var count int64
	if err := db.Model(&models.WialonIntegration{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		placeholder := &models.WialonIntegration{
			APIURL:   "https://hst-api.wialon.com",
			IsActive: false,
		}
		if err := db.Create(placeholder).Error; err != nil {
			return err
		}
		log.Println("创建默认Wialon集成配置占位（未启用）")
	}

	log.Println("基础数据初始化完成")
	return nil
}
