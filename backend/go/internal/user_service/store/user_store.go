// Package store 是用户服务的持久化层：MySQL 中的用户表，以及 Redis 中的验证码与重置令牌。
package store

import (
	"context"
	"errors"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/models"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/logger"

	"gorm.io/gorm"
)

// Store 封装了所有与用户服务相关的数据库操作。
type Store struct {
	DB  *gorm.DB
	log *logger.Logger
}

// NewStore 创建一个新的 Store 实例。
func NewStore(db *gorm.DB, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Discard()
	}
	return &Store{DB: db, log: log}
}

func userNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.New(apperr.NotFound, "user not found")
	}
	return apperr.Wrap(apperr.Internal, "failed to load user", err)
}

// CreateUser 创建一个新用户。用户名或邮箱已被占用时返回 Conflict。
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "failed to check username", err)
		}
		if count > 0 {
			return apperr.New(apperr.Conflict, "A user with that username already exists.")
		}
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "failed to check email", err)
		}
		if count > 0 {
			return apperr.New(apperr.Conflict, "A user with that email already exists.")
		}
		if err := tx.Create(user).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "failed to create user", err)
		}
		return nil
	})
}

// GetUserByID 通过 ID 查找用户。
func (s *Store) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, userNotFound(err)
	}
	return &user, nil
}

// GetUserByUsername 通过用户名查找用户。
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, userNotFound(err)
	}
	return &user, nil
}

// GetUserByEmail 通过邮箱地址查找用户。
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, userNotFound(err)
	}
	return &user, nil
}

// UsernameExists 查询用户名是否已被占用。
func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, apperr.Wrap(apperr.Internal, "failed to check username", err)
	}
	return count > 0, nil
}

// Usernames 逐批返回全部用户名，用于预热布隆过滤器。
func (s *Store) Usernames(ctx context.Context, fn func(names []string)) error {
	var batch []models.User
	err := s.DB.WithContext(ctx).Model(&models.User{}).Select("id", "username").
		FindInBatches(&batch, 1000, func(tx *gorm.DB, _ int) error {
			names := make([]string, len(batch))
			for i, u := range batch {
				names[i] = u.Username
			}
			fn(names)
			return nil
		}).Error
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to scan usernames", err)
	}
	return nil
}

// UpdatePassword 更新用户的密码哈希。
func (s *Store) UpdatePassword(ctx context.Context, id uint, hash string) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password", hash)
	if res.Error != nil {
		return apperr.Wrap(apperr.Internal, "failed to update password", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "user not found")
	}
	return nil
}

// TouchLogin 记录最近一次登录时间。
func (s *Store) TouchLogin(ctx context.Context, user *models.User) error {
	now := s.DB.NowFunc()
	user.LastLoginAt = &now
	return s.DB.WithContext(ctx).Model(user).Update("last_login_at", now).Error
}
