package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims JWT 声明；ID (jti) 用于吊销
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// SignJWT 签发 HS256 令牌
func SignJWT(secret, userID string, ttl time.Duration) (string, error) {
	tok, _, err := signClaims(secret, userID, ttl, time.Now())
	return tok, err
}

func signClaims(secret, userID string, ttl time.Duration, now time.Time) (string, *Claims, error) {
	if secret == "" {
		return "", nil, errors.New("jwt secret is empty")
	}
	cl := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString([]byte(secret))
	if err != nil {
		return "", nil, err
	}
	return tok, cl, nil
}

// ParseJWT 校验签名与过期时间
func ParseJWT(secret, token string) (*Claims, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}
	cl := &Claims{}
	_, err := jwt.ParseWithClaims(token, cl, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if cl.UserID == "" {
		return nil, errors.New("token has no user id")
	}
	return cl, nil
}
