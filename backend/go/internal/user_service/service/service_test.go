package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"
	"github.com/aimankahim/mcqsbank/backend/go/internal/auth"
	"github.com/aimankahim/mcqsbank/backend/go/internal/config"
	"github.com/aimankahim/mcqsbank/backend/go/internal/models"
	"github.com/aimankahim/mcqsbank/backend/go/internal/user_service/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type sentMail struct {
	to, subject, body string
}

type captureMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *captureMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (m *captureMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

var otpPattern = regexp.MustCompile(`\b\d{6}\b`)

type fixture struct {
	svc    *Service
	store  *store.Store
	otps   *store.MemoryOTPStore
	mailer *captureMailer
	tokens *auth.TokenManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := config.AuthConfig{JwtSecret: "test-secret", Issuer: "mcqsbank", TokenTTL: 60, RefreshTTL: 3600, OTPTTL: 600}
	tokens, err := auth.NewTokenManager(cfg)
	require.NoError(t, err)
	otps, err := store.NewMemoryOTPStore(16)
	require.NoError(t, err)

	f := &fixture{store: store.NewStore(db, nil), otps: otps, mailer: &captureMailer{}, tokens: tokens}
	f.svc = NewService(Deps{Store: f.store, Tokens: tokens, OTPs: otps, Mailer: f.mailer}, cfg, nil)
	return f
}

func (f *fixture) register(t *testing.T, username, email string) *models.User {
	t.Helper()
	user, _, err := f.svc.Register(context.Background(), RegisterInput{Username: username, Email: email, Password: "password123"})
	require.NoError(t, err)
	return user
}

func TestRegister_IssuesTokens(t *testing.T) {
	f := newFixture(t)
	user, pair, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "alice", Email: "Alice@Example.com", Password: "password123", FirstName: " Alice ",
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "Alice", user.FirstName)
	assert.NotEqual(t, "password123", user.Password)

	id, err := f.tokens.ParseAccess(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
	id, err = f.tokens.ParseRefresh(pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []RegisterInput{
		{Username: "", Email: "a@b.co", Password: "password123"},
		{Username: "bob", Email: "not-an-email", Password: "password123"},
		{Username: "bob", Email: "a@b.co", Password: "short"},
	}
	for _, in := range cases {
		_, _, err := f.svc.Register(ctx, in)
		assert.True(t, apperr.Is(err, apperr.BadInput), "input %+v", in)
	}

	f.register(t, "bob", "bob@example.com")
	_, _, err := f.svc.Register(ctx, RegisterInput{Username: "bob", Email: "other@example.com", Password: "password123"})
	assert.True(t, apperr.Is(err, apperr.Conflict))
	_, _, err = f.svc.Register(ctx, RegisterInput{Username: "bobby", Email: "bob@example.com", Password: "password123"})
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "carol", "carol@example.com")

	pair, err := f.svc.Login(ctx, "carol", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)

	stored, err := f.store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)

	_, err = f.svc.Login(ctx, "carol", "wrong-password")
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
	_, err = f.svc.Login(ctx, "nobody", "password123")
	assert.True(t, apperr.Is(err, apperr.Unauthorized))

	require.NoError(t, f.store.DB.Model(&models.User{}).Where("id = ?", user.ID).Update("status", models.StatusSuspended).Error)
	_, err = f.svc.Login(ctx, "carol", "password123")
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, pair, err := f.svc.Register(ctx, RegisterInput{Username: "dan", Email: "dan@example.com", Password: "password123"})
	require.NoError(t, err)

	access, err := f.svc.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	id, err := f.tokens.ParseAccess(access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	// 访问令牌不能用于刷新
	_, err = f.svc.Refresh(ctx, pair.Access)
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
}

func TestUsernameExists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "erin", "erin@example.com")

	exists, err := f.svc.UsernameExists(ctx, "erin")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = f.svc.UsernameExists(ctx, "frank")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = f.svc.UsernameExists(ctx, "  ")
	assert.True(t, apperr.Is(err, apperr.BadInput))
}

func TestWarmUsernames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateUser(ctx, &models.User{Username: "grace", Email: "grace@example.com", Status: models.StatusActive}))

	// 预热前过滤器为空，必须以数据库为准
	exists, err := f.svc.UsernameExists(ctx, "grace")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, f.svc.WarmUsernames(ctx))
	exists, err = f.svc.UsernameExists(ctx, "grace")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = f.svc.UsernameExists(ctx, "heidi")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUsernameByEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "heidi", "heidi@example.com")

	name, err := f.svc.UsernameByEmail(ctx, "HEIDI@example.com")
	require.NoError(t, err)
	assert.Equal(t, "heidi", name)

	_, err = f.svc.UsernameByEmail(ctx, "nobody@example.com")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ivan", "ivan@example.com")

	require.NoError(t, f.svc.ForgotPassword(ctx, "ivan@example.com"))
	mail := f.mailer.last()
	assert.Equal(t, "ivan@example.com", mail.to)
	code := otpPattern.FindString(mail.body)
	require.Len(t, code, 6)

	_, err := f.svc.VerifyOTP(ctx, "ivan@example.com", "000000x")
	assert.True(t, apperr.Is(err, apperr.BadInput))

	token, err := f.svc.VerifyOTP(ctx, "ivan@example.com", code)
	require.NoError(t, err)
	assert.Len(t, token, 32)

	// 验证码只能使用一次
	_, err = f.svc.VerifyOTP(ctx, "ivan@example.com", code)
	assert.True(t, apperr.Is(err, apperr.BadInput))

	err = f.svc.ResetPassword(ctx, "ivan@example.com", "bad-token", "newpassword1")
	assert.True(t, apperr.Is(err, apperr.BadInput))
	err = f.svc.ResetPassword(ctx, "ivan@example.com", token, "short")
	assert.True(t, apperr.Is(err, apperr.BadInput))

	require.NoError(t, f.svc.ResetPassword(ctx, "ivan@example.com", token, "newpassword1"))
	_, err = f.otps.Get(ctx, "reset:ivan@example.com")
	assert.True(t, apperr.Is(err, apperr.NotFound))

	_, err = f.svc.Login(ctx, "ivan", "password123")
	assert.True(t, apperr.Is(err, apperr.Unauthorized))
	_, err = f.svc.Login(ctx, "ivan", "newpassword1")
	assert.NoError(t, err)
}

func TestForgotPassword_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.ForgotPassword(ctx, "ghost@example.com")
	assert.True(t, apperr.Is(err, apperr.NotFound))

	f.register(t, "judy", "judy@example.com")
	f.mailer.err = fmt.Errorf("smtp down")
	err = f.svc.ForgotPassword(ctx, "judy@example.com")
	assert.True(t, apperr.Is(err, apperr.ServiceUnavailable))
}

func TestVerifyOTP_InvalidatedAfterTooManyFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ken", "ken@example.com")

	require.NoError(t, f.svc.ForgotPassword(ctx, "ken@example.com"))
	code := otpPattern.FindString(f.mailer.last().body)
	require.Len(t, code, 6)

	wrong := "999999"
	if code == wrong {
		wrong = "000000"
	}
	for i := 0; i < maxOTPAttempts; i++ {
		_, err := f.svc.VerifyOTP(ctx, "ken@example.com", wrong)
		assert.True(t, apperr.Is(err, apperr.BadInput))
	}

	// 正确的验证码也已失效
	_, err := f.svc.VerifyOTP(ctx, "ken@example.com", code)
	assert.True(t, apperr.Is(err, apperr.BadInput))

	// 重新申请后计数清零
	require.NoError(t, f.svc.ForgotPassword(ctx, "ken@example.com"))
	code = otpPattern.FindString(f.mailer.last().body)
	wrong = "999999"
	if code == wrong {
		wrong = "000000"
	}
	for i := 0; i < maxOTPAttempts-1; i++ {
		_, err := f.svc.VerifyOTP(ctx, "ken@example.com", wrong)
		assert.True(t, apperr.Is(err, apperr.BadInput))
	}
	token, err := f.svc.VerifyOTP(ctx, "ken@example.com", code)
	require.NoError(t, err)
	assert.Len(t, token, 32)
}
