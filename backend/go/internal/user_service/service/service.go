// Package service 实现用户服务的业务逻辑：注册、登录、令牌刷新以及通过邮箱验证码重置密码。
package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/auth"
	"github.com/aimankahim/mcqsbank/backend/go/internal/config"
	"github.com/aimankahim/mcqsbank/backend/go/internal/models"
	"github.com/aimankahim/mcqsbank/backend/go/internal/user_service/store"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/logger"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/util"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	otpDigits         = 6
	resetTokenBytes   = 16
	// maxOTPAttempts 次输错后验证码作废，需要重新申请。
	maxOTPAttempts = 5
)

// Deps 是 Service 的依赖。
type Deps struct {
	Store  *store.Store
	Tokens *auth.TokenManager
	OTPs   store.OTPStore
	Mailer Mailer
}

// Service 封装了业务逻辑。
type Service struct {
	store     *store.Store
	tokens    *auth.TokenManager
	otps      store.OTPStore
	mailer    Mailer
	usernames *util.BloomFilter
	warmed    atomic.Bool // 预热成功前布隆过滤器不可信
	otpTTL    time.Duration
	log       *logger.Logger
}

// NewService 创建一个新的 Service 实例。
func NewService(deps Deps, cfg config.AuthConfig, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	if deps.Mailer == nil {
		deps.Mailer = &LogMailer{log: log}
	}
	ttl := time.Duration(cfg.OTPTTL) * time.Second
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{
		store:     deps.Store,
		tokens:    deps.Tokens,
		otps:      deps.OTPs,
		mailer:    deps.Mailer,
		usernames: util.NewBloomFilter(100000, 0.01),
		otpTTL:    ttl,
		log:       log,
	}
}

// WarmUsernames 把已有用户名载入布隆过滤器。只有预热成功后，UsernameExists 才会用过滤器跳过数据库查询。
func (s *Service) WarmUsernames(ctx context.Context) error {
	err := s.store.Usernames(ctx, func(names []string) {
		for _, n := range names {
			s.usernames.AddString(strings.ToLower(n))
		}
	})
	if err != nil {
		return err
	}
	s.warmed.Store(true)
	return nil
}

// RegisterInput 是注册所需的信息。
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// TokenPair 是一对访问令牌与刷新令牌。
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Register 创建用户并直接签发令牌。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, TokenPair, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" {
		return nil, TokenPair{}, apperr.New(apperr.BadInput, "username is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, TokenPair{}, apperr.New(apperr.BadInput, "Enter a valid email address.")
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, TokenPair{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, TokenPair{}, apperr.Wrap(apperr.Internal, "密码哈希失败", err)
	}
	user := &models.User{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Password:  string(hash),
		Status:    models.StatusActive,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, TokenPair{}, err
	}
	s.usernames.AddString(strings.ToLower(user.Username))

	pair, err := s.issue(user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.log.WithUser(fmt.Sprint(user.ID)).Info("用户注册成功")
	return user, pair, nil
}

// Login 校验用户名与密码并签发令牌。
func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, error) {
	invalid := apperr.New(apperr.Unauthorized, "No active account found with the given credentials")
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return TokenPair{}, invalid
		}
		return TokenPair{}, err
	}
	if user.Status != models.StatusActive {
		return TokenPair{}, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return TokenPair{}, invalid
	}
	if err := s.store.TouchLogin(ctx, user); err != nil {
		s.log.WithUser(fmt.Sprint(user.ID)).Warn("更新登录时间失败: " + err.Error())
	}
	return s.issue(user.ID)
}

// Refresh 用刷新令牌换取新的访问令牌。
func (s *Service) Refresh(ctx context.Context, refresh string) (string, error) {
	userID, err := s.tokens.ParseRefresh(refresh)
	if err != nil {
		return "", err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil || user.Status != models.StatusActive {
		return "", apperr.New(apperr.Unauthorized, "Token is invalid or expired")
	}
	return s.tokens.IssueAccess(user.ID)
}

// UsernameExists 检查用户名是否已被占用。过滤器预热成功后，判定不存在时不查询数据库。
// 过滤器只记录本进程注册的用户，因此假定注册只经过这一个用户服务实例；
// 多副本部署时关闭 auth.usernameFilter，不预热过滤器，每次都查询数据库。
func (s *Service) UsernameExists(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, apperr.New(apperr.BadInput, "username is required")
	}
	if s.warmed.Load() && !s.usernames.TestString(strings.ToLower(username)) {
		return false, nil
	}
	return s.store.UsernameExists(ctx, username)
}

// UsernameByEmail 返回邮箱对应的用户名。
func (s *Service) UsernameByEmail(ctx context.Context, email string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return "", apperr.New(apperr.NotFound, "No user found with this email address.")
		}
		return "", err
	}
	return user.Username, nil
}

// Me 返回当前用户。
func (s *Service) Me(ctx context.Context, userID uint) (*models.User, error) {
	return s.store.GetUserByID(ctx, userID)
}

func otpKey(email string) string      { return "otp:" + email }
func attemptsKey(email string) string { return "otp_attempts:" + email }
func resetKey(email string) string    { return "reset:" + email }

// ForgotPassword 生成 6 位验证码，缓存后发送到用户邮箱。
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.store.GetUserByEmail(ctx, email); err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return apperr.New(apperr.NotFound, "No user found with this email address.")
		}
		return err
	}
	code, err := newOTP()
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to generate code", err)
	}
	if err := s.otps.Set(ctx, otpKey(email), code, s.otpTTL); err != nil {
		return err
	}
	if err := s.otps.Delete(ctx, attemptsKey(email)); err != nil {
		s.log.WithField("email", email).Warn("重置验证码尝试次数失败: " + err.Error())
	}
	body := fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.", code, int(s.otpTTL.Minutes()))
	if err := s.mailer.Send(ctx, email, "Password reset code", body); err != nil {
		s.log.WithField("email", email).Error("发送验证码失败: " + err.Error())
		return apperr.Wrap(apperr.ServiceUnavailable, "failed to send the verification email", err)
	}
	return nil
}

// VerifyOTP 校验验证码，成功后返回一次性的重置令牌。
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	stored, err := s.otps.Get(ctx, otpKey(email))
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return "", apperr.New(apperr.BadInput, "Invalid or expired OTP")
		}
		return "", err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(strings.TrimSpace(code))) != 1 {
		s.failedAttempt(ctx, email)
		return "", apperr.New(apperr.BadInput, "Invalid or expired OTP")
	}

	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", apperr.Wrap(apperr.Internal, "failed to generate token", err)
	}
	token := hex.EncodeToString(buf)
	if err := s.otps.Set(ctx, resetKey(email), token, s.otpTTL); err != nil {
		return "", err
	}
	if err := s.otps.Delete(ctx, otpKey(email), attemptsKey(email)); err != nil {
		s.log.WithField("email", email).Warn("删除验证码失败: " + err.Error())
	}
	return token, nil
}

// failedAttempt 记录一次输错，达到上限后作废验证码。
func (s *Service) failedAttempt(ctx context.Context, email string) {
	log := s.log.WithField("email", email)
	n, err := s.otps.Incr(ctx, attemptsKey(email), s.otpTTL)
	if err != nil {
		// 无法计数时直接作废，避免无限次猜测
		log.Warn("记录验证码尝试次数失败: " + err.Error())
		n = maxOTPAttempts
	}
	if n < maxOTPAttempts {
		return
	}
	if err := s.otps.Delete(ctx, otpKey(email), attemptsKey(email)); err != nil {
		log.Warn("作废验证码失败: " + err.Error())
		return
	}
	log.Warn("验证码输错次数过多，已作废")
}

// ResetPassword 用重置令牌设置新密码，成功后清除验证码与令牌。
func (s *Service) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	stored, err := s.otps.Get(ctx, resetKey(email))
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return apperr.New(apperr.BadInput, "Invalid or expired token")
		}
		return err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(token)) != 1 {
		return apperr.New(apperr.BadInput, "Invalid or expired token")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "密码哈希失败", err)
	}
	if err := s.store.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}
	if err := s.otps.Delete(ctx, otpKey(email), resetKey(email)); err != nil {
		s.log.WithField("email", email).Warn("清除重置令牌失败: " + err.Error())
	}
	s.log.WithUser(fmt.Sprint(user.ID)).Info("密码已重置")
	return nil
}

func (s *Service) issue(userID uint) (TokenPair, error) {
	access, refresh, err := s.tokens.IssuePair(userID)
	if err != nil {
		return TokenPair{}, apperr.Wrap(apperr.Internal, "failed to issue tokens", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func validatePassword(p string) error {
	if len(p) < minPasswordLength {
		return apperr.Newf(apperr.BadInput, "This password is too short. It must contain at least %d characters.", minPasswordLength)
	}
	return nil
}

func newOTP() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}
