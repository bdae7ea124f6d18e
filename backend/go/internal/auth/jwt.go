// Package auth 负责签发与校验 JWT，用户服务签发，学习服务校验。
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/config"

	"github.com/golang-jwt/jwt"
)

// 令牌类型，写入 "typ" claim，防止刷新令牌被当作访问令牌使用。
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// TokenManager 使用 HS256 签发与校验令牌。
type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager 根据配置创建 TokenManager。密钥为空时返回错误。
func NewTokenManager(cfg config.AuthConfig) (*TokenManager, error) {
	if cfg.JwtSecret == "" {
		return nil, errors.New("未配置 JWT 密钥")
	}
	access := time.Duration(cfg.TokenTTL) * time.Second
	if access <= 0 {
		access = time.Hour
	}
	refresh := time.Duration(cfg.RefreshTTL) * time.Second
	if refresh <= 0 {
		refresh = 7 * 24 * time.Hour
	}
	return &TokenManager{
		secret:     []byte(cfg.JwtSecret),
		issuer:     cfg.Issuer,
		accessTTL:  access,
		refreshTTL: refresh,
		now:        time.Now,
	}, nil
}

// IssuePair 为用户签发一对访问令牌与刷新令牌。
func (m *TokenManager) IssuePair(userID uint) (access, refresh string, err error) {
	if access, err = m.issue(userID, TypeAccess, m.accessTTL); err != nil {
		return "", "", err
	}
	if refresh, err = m.issue(userID, TypeRefresh, m.refreshTTL); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// IssueAccess 只签发访问令牌，用于刷新。
func (m *TokenManager) IssueAccess(userID uint) (string, error) {
	return m.issue(userID, TypeAccess, m.accessTTL)
}

func (m *TokenManager) issue(userID uint, typ string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := jwt.MapClaims{
		"sub": userID,
		"typ": typ,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if m.issuer != "" {
		claims["iss"] = m.issuer
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("签发令牌失败: %w", err)
	}
	return signed, nil
}

// ParseAccess 校验访问令牌并返回用户 ID。
func (m *TokenManager) ParseAccess(tokenString string) (uint, error) {
	return m.parse(tokenString, TypeAccess)
}

// ParseRefresh 校验刷新令牌并返回用户 ID。
func (m *TokenManager) ParseRefresh(tokenString string) (uint, error) {
	return m.parse(tokenString, TypeRefresh)
}

func (m *TokenManager) parse(tokenString, wantType string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// 确保 token 的签名方法是我们期望的
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("非预期的签名方法")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, apperr.Wrap(apperr.Unauthorized, "invalid token", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, apperr.New(apperr.Unauthorized, "invalid token claims")
	}
	if typ, _ := claims["typ"].(string); typ != wantType {
		return 0, apperr.New(apperr.Unauthorized, "wrong token type")
	}
	// JWT 解析数字时默认为 float64
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return 0, apperr.New(apperr.Unauthorized, "invalid token claims")
	}
	return uint(sub), nil
}
