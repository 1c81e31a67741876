package account

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"bookrag/internal/auth"
)

var (
	// ErrUsernameTaken 用户名已被注册
	ErrUsernameTaken = errors.New("用户名已被注册")
	// ErrInvalidCredentials 用户名或密码错误
	ErrInvalidCredentials = errors.New("用户名或密码错误")
)

// Service 账号服务，负责注册与登录
type Service struct {
	db  *gorm.DB
	jwt *auth.JWTService
}

// NewService 创建账号服务
func NewService(db *gorm.DB, jwt *auth.JWTService) *Service {
	return &Service{db: db, jwt: jwt}
}

// Register 注册新用户
func (s *Service) Register(username, password string) (*User, error) {
	var count int64
	if err := s.db.Model(&User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码哈希失败: %w", err)
	}

	user := &User{
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	return user, nil
}

// Login 验证用户名密码并签发令牌对
func (s *Service) Login(username, password string) (*User, *auth.TokenPair, error) {
	var user User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("查询用户失败: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.jwt.GenerateTokenPair(user.ID, user.Username)
	if err != nil {
		return nil, nil, err
	}

	return &user, pair, nil
}

// Refresh 用刷新令牌换取新令牌对
func (s *Service) Refresh(refreshToken string) (*auth.TokenPair, error) {
	return s.jwt.RefreshAccessToken(refreshToken)
}
