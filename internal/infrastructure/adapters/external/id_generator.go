package external

import (
	"crypto/rand"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"

	"github.com/google/uuid"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// IDGeneratorAdapter ID生成器适配器
type IDGeneratorAdapter struct{}

// NewIDGeneratorAdapter 创建ID生成器适配器
func NewIDGeneratorAdapter() ports.IDGenerator {
	return &IDGeneratorAdapter{}
}

// GenerateUserID 生成用户ID
func (g *IDGeneratorAdapter) GenerateUserID() string {
	return uuid.NewString()
}

// GenerateMessageID 生成消息ID
func (g *IDGeneratorAdapter) GenerateMessageID() string {
	return uuid.NewString()
}

// GenerateUserCode 8 位大写字母数字，唯一性由调用方查重保证
func (g *IDGeneratorAdapter) GenerateUserCode() string {
	raw := make([]byte, entities.UserCodeLength)
	rand.Read(raw)
	buf := make([]byte, len(raw))
	for i, b := range raw {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}
