/*
 * @module service/wialon_sync/integration_service
 * @description Wialon集成配置服务，管理API地址与加密令牌
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow 配置读取 -> 更新（令牌加密落库） -> 同步时消费
 * @rules 令牌明文只在更新请求中出现，落库前必须加密，查询响应不回显
 * @dependencies gorm.io/gorm, service/models, service/utils
 * @refs api/controllers/integration_controller.go, service/wialon_sync/loader.go
 */

package wialon_sync

import (
	"errors"
	"fleetsync-service/service/models"
	"fleetsync-service/service/utils"
	"fmt"

	"gorm.io/gorm"
)

// IntegrationService Wialon集成配置服务
type IntegrationService struct {
	db     *gorm.DB
	crypto *utils.CryptoUtils
}

// NewIntegrationService 创建集成配置服务
func NewIntegrationService(db *gorm.DB, crypto *utils.CryptoUtils) *IntegrationService {
	return &IntegrationService{db: db, crypto: crypto}
}

// UpdateIntegrationRequest 集成配置更新请求
type UpdateIntegrationRequest struct {
	APIURL    *string
	TokenName *string
	Token     *string // 明文令牌，提供时重新加密落库
	IsActive  *bool
}

// Get 获取当前集成配置
// 配置不存在时返回 gorm.ErrRecordNotFound
func (s *IntegrationService) Get() (*models.WialonIntegration, error) {
	var integration models.WialonIntegration
	if err := s.db.Order("updated_at DESC").First(&integration).Error; err != nil {
		return nil, err
	}
	return &integration, nil
}

// Update 更新集成配置，不存在时创建
func (s *IntegrationService) Update(req *UpdateIntegrationRequest) (*models.WialonIntegration, error) {
	integration, err := s.Get()
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("查询集成配置失败: %w", err)
		}
		integration = &models.WialonIntegration{IsActive: true}
	}

	if req.APIURL != nil {
		integration.APIURL = *req.APIURL
	}
	if req.TokenName != nil {
		integration.TokenName = *req.TokenName
	}
	if req.IsActive != nil {
		integration.IsActive = *req.IsActive
	}
	if req.Token != nil && *req.Token != "" {
		encrypted, err := s.crypto.AESEncrypt(*req.Token)
		if err != nil {
			return nil, fmt.Errorf("加密访问令牌失败: %w", err)
		}
		integration.EncryptedToken = encrypted
	}

	if err := s.db.Save(integration).Error; err != nil {
		return nil, fmt.Errorf("保存集成配置失败: %w", err)
	}

	return integration, nil
}
