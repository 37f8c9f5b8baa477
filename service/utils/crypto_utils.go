/**
 * @module crypto_utils
 * @description 加密工具模块，负责Wialon访问令牌的加密存储与日志脱敏
 * @architecture 加密工具集模式
 * @documentReference dev_docs/wialon_sync.md
 * @stateFlow 无状态加密：明文 -> 加密算法 -> 密文 / 密文 -> 解密算法 -> 明文
 * @rules
 *   - 令牌只以密文落库，密钥来自环境变量并经PBKDF2派生
 *   - 电话等敏感字段写日志前必须脱敏
 * @dependencies
 *   - crypto/*: 加密算法
 *   - golang.org/x/crypto/pbkdf2: 密钥派生
 * @refs
 *   - service/models/wialon_integration.go
 *   - service/wialon_sync/loader.go
 */

package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// CryptoUtils 加密工具
type CryptoUtils struct {
	defaultKey []byte
}

// NewCryptoUtils 创建新的加密工具实例
// 密钥经 PBKDF2-SHA256 派生为32字节（AES-256）
func NewCryptoUtils(key string) *CryptoUtils {
	if key == "" {
		key = "fleetsync-default-key-32-characters"
	}

	defaultKey := pbkdf2.Key([]byte(key), []byte("fleetsync-token-salt"), 4096, 32, sha256.New)

	return &CryptoUtils{
		defaultKey: defaultKey,
	}
}

// AESEncrypt AES加密
func (cu *CryptoUtils) AESEncrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(cu.defaultKey)
	if err != nil {
		return "", fmt.Errorf("创建AES块失败: %v", err)
	}

	// 生成随机IV
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("生成IV失败: %v", err)
	}

	stream := cipher.NewCFBEncrypter(block, iv)

	ciphertext := make([]byte, len(plaintext))
	stream.XORKeyStream(ciphertext, []byte(plaintext))

	// 将IV和密文合并并编码
	result := append(iv, ciphertext...)
	return base64.StdEncoding.EncodeToString(result), nil
}

// AESDecrypt AES解密
func (cu *CryptoUtils) AESDecrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("解码base64失败: %v", err)
	}

	if len(data) < aes.BlockSize {
		return "", fmt.Errorf("密文长度不足")
	}

	block, err := aes.NewCipher(cu.defaultKey)
	if err != nil {
		return "", fmt.Errorf("创建AES块失败: %v", err)
	}

	iv := data[:aes.BlockSize]
	ciphertextData := data[aes.BlockSize:]

	stream := cipher.NewCFBDecrypter(block, iv)

	plaintext := make([]byte, len(ciphertextData))
	stream.XORKeyStream(plaintext, ciphertextData)

	return string(plaintext), nil
}

// SHA256Hash SHA256哈希
func (cu *CryptoUtils) SHA256Hash(data string) string {
	hasher := sha256.New()
	hasher.Write([]byte(data))
	return hex.EncodeToString(hasher.Sum(nil))
}

// MaskPhone 手机号脱敏
func (cu *CryptoUtils) MaskPhone(phone string) string {
	if phone == "" {
		return ""
	}

	// 去除非数字字符
	re := regexp.MustCompile(`\D`)
	cleanPhone := re.ReplaceAllString(phone, "")

	if len(cleanPhone) < 7 {
		return phone // 太短，不处理
	}

	// 保留前3位和后4位
	start := cleanPhone[:3]
	end := cleanPhone[len(cleanPhone)-4:]
	middle := strings.Repeat("*", len(cleanPhone)-7)
	return start + middle + end
}

// MaskToken 令牌脱敏，用于日志输出
func (cu *CryptoUtils) MaskToken(token string) string {
	if token == "" {
		return ""
	}

	runes := []rune(token)
	if len(runes) <= 8 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:4]) + strings.Repeat("*", len(runes)-8) + string(runes[len(runes)-4:])
}

// SecureCompare 安全比较字符串（防时序攻击）
func (cu *CryptoUtils) SecureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}

	result := 0
	for i := 0; i < len(a); i++ {
		result |= int(a[i]) ^ int(b[i])
	}

	return result == 0
}
