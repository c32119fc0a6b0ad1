package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/J3ZZ3/empcare/internal/apperr"
	"github.com/J3ZZ3/empcare/internal/authz"
	"github.com/J3ZZ3/empcare/internal/model"
	"github.com/J3ZZ3/empcare/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
)

// --- DTOs ---

type CreateUserRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type UserResponse struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// --- Interface ---

type UserService interface {
	CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (TokenPairResponse, error)
	// Refresh rotates the refresh token: the presented token is consumed and
	// a fresh pair is issued.
	Refresh(ctx context.Context, req RefreshRequest) (TokenPairResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetUser(ctx context.Context, userID string) (UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
}

type userService struct {
	userRepo repository.UserRepository

	now func() time.Time
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo, now: time.Now}
}

func jwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default_super_secret_key"
	}
	return []byte(secret)
}

// --- Implementation ---

func (s *userService) CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (UserResponse, error) {
	if err := authz.Require(actor.Role, authz.ResUser, authz.ActManage); err != nil {
		return UserResponse{}, err
	}

	if !model.ValidRole(req.Role) {
		return UserResponse{}, apperr.Validationf("unknown role %q", req.Role)
	}
	// Only super admins mint other admins.
	if (req.Role == model.RoleAdmin || req.Role == model.RoleSuperAdmin) && actor.Role != model.RoleSuperAdmin {
		return UserResponse{}, fmt.Errorf("%w: only a super admin may create %s accounts", apperr.ErrAuthorization, req.Role)
	}

	if _, err := s.userRepo.FindByEmail(ctx, req.Email); err == nil {
		return UserResponse{}, apperr.Validationf("email %q is already registered", req.Email)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return UserResponse{}, fmt.Errorf("failed to check email: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return UserResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := model.User{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: string(hashed),
		Role:     req.Role,
	}
	if err := s.userRepo.Create(ctx, &user); err != nil {
		return UserResponse{}, fmt.Errorf("failed to create user: %w", err)
	}

	return toUserResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (TokenPairResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		// Same message for unknown email and bad password.
		return TokenPairResponse{}, fmt.Errorf("%w: invalid email or password", apperr.ErrAuthorization)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return TokenPairResponse{}, fmt.Errorf("%w: invalid email or password", apperr.ErrAuthorization)
	}

	return s.issueTokenPair(ctx, user)
}

func (s *userService) Refresh(ctx context.Context, req RefreshRequest) (TokenPairResponse, error) {
	stored, err := s.userRepo.FindRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return TokenPairResponse{}, fmt.Errorf("%w: invalid refresh token", apperr.ErrAuthorization)
	}
	if s.now().After(stored.ExpiresAt) {
		_ = s.userRepo.DeleteRefreshToken(ctx, req.RefreshToken)
		return TokenPairResponse{}, fmt.Errorf("%w: refresh token expired", apperr.ErrAuthorization)
	}

	user, err := s.userRepo.FindByID(ctx, stored.UserID)
	if err != nil {
		return TokenPairResponse{}, fmt.Errorf("%w: invalid refresh token", apperr.ErrAuthorization)
	}

	if err := s.userRepo.DeleteRefreshToken(ctx, req.RefreshToken); err != nil {
		return TokenPairResponse{}, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	return s.issueTokenPair(ctx, user)
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.userRepo.DeleteRefreshToken(ctx, refreshToken)
}

func (s *userService) issueTokenPair(ctx context.Context, user *model.User) (TokenPairResponse, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(accessTokenTTL).Unix(),
	})
	access, err := token.SignedString(jwtSecret())
	if err != nil {
		return TokenPairResponse{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh := uuid.NewString() + uuid.NewString()
	if err := s.userRepo.StoreRefreshToken(ctx, &model.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: now.Add(refreshTokenTTL),
	}); err != nil {
		return TokenPairResponse{}, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return TokenPairResponse{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *userService) GetUser(ctx context.Context, userID string) (UserResponse, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return UserResponse{}, apperr.Validationf("invalid user id")
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return UserResponse{}, fmt.Errorf("%w: user %s", apperr.ErrNotFound, id)
		}
		return UserResponse{}, fmt.Errorf("failed to fetch user: %w", err)
	}
	return toUserResponse(*user), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	users, total, err := s.userRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	res := make([]UserResponse, 0, len(users))
	for _, u := range users {
		res = append(res, toUserResponse(u))
	}
	return res, total, nil
}

// --- Helpers ---

func toUserResponse(u model.User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		FullName:  u.FullName,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}
