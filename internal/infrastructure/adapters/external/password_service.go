package external

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/GabrielFerreiraTelles/comu/internal/application/ports"
)

// PasswordServiceAdapter bcrypt 密码服务
type PasswordServiceAdapter struct {
	cost int
}

// NewPasswordServiceAdapter 创建密码服务适配器
func NewPasswordServiceAdapter() ports.PasswordService {
	return &PasswordServiceAdapter{cost: bcrypt.DefaultCost}
}

// NewPasswordServiceWithCost 指定 bcrypt cost，测试中用 bcrypt.MinCost 加速
func NewPasswordServiceWithCost(cost int) ports.PasswordService {
	return &PasswordServiceAdapter{cost: cost}
}

// HashPassword 加密密码
func (p *PasswordServiceAdapter) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword 验证密码
func (p *PasswordServiceAdapter) VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}
