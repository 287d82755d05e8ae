// Package services содержит логику бизнес-уровня для работы с пользователями и аутентификацией.
package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/magabrotheeeer/painscope/internal/lib/jwt"
	"github.com/magabrotheeeer/painscope/internal/lib/password"
	"github.com/magabrotheeeer/painscope/internal/models"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// RegisterUser сохраняет нового пользователя и возвращает его ID.
	RegisterUser(ctx context.Context, user models.User) (string, error)

	// GetUserByUsername возвращает пользователя по имени или ошибку, если не найден.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// GetUserByEmail возвращает пользователя по почте или ошибку, если не найден.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// MarkVerified помечает почту пользователя подтверждённой.
	MarkVerified(ctx context.Context, email string) error

	// UpdatePassword заменяет хэш пароля пользователя.
	UpdatePassword(ctx context.Context, uid, passwordHash string) error
}

// CodeCache хранит одноразовые коды подтверждения и сброса пароля.
type CodeCache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// CodePublisher отправляет одноразовые коды в брокер уведомлений, откуда
// их забирает почтовый воркер.
type CodePublisher interface {
	Publish(exchange, routingKey string, message any) error
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidCode        = errors.New("invalid or expired code")
	ErrAccountLocked      = errors.New("account is locked")
)

const (
	verifyCodeTTL = 15 * time.Minute
	otpTTL        = 5 * time.Minute
	resetTokenTTL = 30 * time.Minute
)

// AuthService отвечает за регистрацию, авторизацию и валидацию JWT.
type AuthService struct {
	users     UserRepository
	cache     CodeCache
	jwtMaker  jwt.Maker
	publisher CodePublisher
	log       *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
// publisher может быть nil: коды тогда остаются только в кэше.
func NewAuthService(users UserRepository, cache CodeCache, jwtMaker jwt.Maker,
	publisher CodePublisher, log *slog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		cache:     cache,
		jwtMaker:  jwtMaker,
		publisher: publisher,
		log:       log,
	}
}

// Register создает нового пользователя с хэшированием пароля и дефолтной
// ролью "user". Возвращает ID пользователя и код подтверждения почты.
func (s *AuthService) Register(ctx context.Context, email, username, rawPassword string) (string, string, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", "", err
	}
	user := &models.User{
		Email:              email,
		Username:           username,
		PasswordHash:       hashed,
		Role:               "user", // дефолтная роль при регистрации
		SubscriptionPlan:   models.PlanFree,
		SubscriptionStatus: models.SubscriptionActive,
	}
	uid, err := s.users.RegisterUser(ctx, *user)
	if err != nil {
		return "", "", err
	}

	code, err := numericCode()
	if err != nil {
		return "", "", err
	}
	if err := s.cache.Set("verify:"+email, code, verifyCodeTTL); err != nil {
		return "", "", err
	}
	s.publishCode("verify_email", email, username, code)
	return uid, code, nil
}

// VerifyEmail проверяет код подтверждения и помечает почту подтверждённой.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	var stored string
	found, err := s.cache.Get("verify:"+email, &stored)
	if err != nil {
		return err
	}
	if !found || stored != code {
		return ErrInvalidCode
	}
	if err := s.users.MarkVerified(ctx, email); err != nil {
		return err
	}
	return s.cache.Invalidate("verify:" + email)
}

// Login проверяет пароль пользователя и генерирует JWT (доступ + refresh token).
func (s *AuthService) Login(ctx context.Context, username, rawPassword string) (token, refresh, role string, err error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return "", "", "", err
	}
	if user.IsLocked {
		return "", "", "", ErrAccountLocked
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", "", "", ErrInvalidCredentials
	}
	token, err = s.jwtMaker.GenerateToken(user.Username, user.Role, user.UUID)
	if err != nil {
		return "", "", "", err
	}
	refresh = "refresh-token-placeholder"
	return token, refresh, user.Role, nil
}

// RequestOTP генерирует одноразовый код входа и сохраняет его в кэше.
// Код доставляется пользователю письмом через очередь уведомлений.
func (s *AuthService) RequestOTP(ctx context.Context, username string) (string, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if user.IsLocked {
		return "", ErrAccountLocked
	}
	code, err := numericCode()
	if err != nil {
		return "", err
	}
	if err := s.cache.Set("otp:"+username, code, otpTTL); err != nil {
		return "", err
	}
	s.publishCode("otp_code", user.Email, user.Username, code)
	return code, nil
}

// LoginWithOTP обменивает одноразовый код на JWT. Код сгорает при успехе.
func (s *AuthService) LoginWithOTP(ctx context.Context, username, code string) (token, role string, err error) {
	var stored string
	found, err := s.cache.Get("otp:"+username, &stored)
	if err != nil {
		return "", "", err
	}
	if !found || stored != code {
		return "", "", ErrInvalidCode
	}
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return "", "", err
	}
	token, err = s.jwtMaker.GenerateToken(user.Username, user.Role, user.UUID)
	if err != nil {
		return "", "", err
	}
	if err := s.cache.Invalidate("otp:" + username); err != nil {
		return "", "", err
	}
	return token, user.Role, nil
}

// RequestPasswordReset создает токен сброса пароля и сохраняет его в кэше.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	resetToken := hex.EncodeToString(buf)
	if err := s.cache.Set("reset:"+resetToken, user.UUID, resetTokenTTL); err != nil {
		return "", err
	}
	s.publishCode("password_reset", user.Email, user.Username, resetToken)
	return resetToken, nil
}

// ResetPassword устанавливает новый пароль по токену сброса.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	var uid string
	found, err := s.cache.Get("reset:"+resetToken, &uid)
	if err != nil {
		return err
	}
	if !found {
		return ErrInvalidCode
	}
	hashed, err := password.GetHash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, uid, hashed); err != nil {
		return err
	}
	return s.cache.Invalidate("reset:" + resetToken)
}

// ValidateToken проверяет JWT и возвращает информацию о пользователе, роль и признак валидности.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*models.User, string, bool, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, "", false, err
	}
	user := &models.User{
		Username: claims.Username,
		Role:     claims.Role,
		UUID:     claims.UserUID,
	}
	return user, claims.Role, true, nil
}

// publishCode отправляет код в очередь доставки. Ошибка публикации не
// прерывает поток: код уже лежит в кэше и его можно запросить заново.
func (s *AuthService) publishCode(routingKey, email, username, code string) {
	if s.publisher == nil {
		return
	}
	message := models.AuthCodeNotification{
		Email:    email,
		Username: username,
		Code:     code,
	}
	if err := s.publisher.Publish("notifications", routingKey, message); err != nil {
		s.log.Warn("failed to publish auth code",
			slog.String("routing_key", routingKey), slog.Any("err", err))
	}
}

func numericCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
