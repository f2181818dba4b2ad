package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"detective_lab/internal/common"
	"detective_lab/internal/common/security"
	"detective_lab/internal/domain/model"
	"detective_lab/internal/domain/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxUsernameLen = 64

type AuthService struct {
	updater     *repository.Updater
	tokens      *security.TokenIssuer
	leaderboard *LeaderboardService
	log         *zap.Logger
}

func NewAuthService(updater *repository.Updater, tokens *security.TokenIssuer, leaderboard *LeaderboardService, log *zap.Logger) *AuthService {
	return &AuthService{updater: updater, tokens: tokens, leaderboard: leaderboard, log: log}
}

type RegisterRequest struct {
	Username string     `json:"username"`
	Password string     `json:"password"`
	Role     model.Role `json:"-"` // Set by trusted callers only; defaults to learner
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, common.Errorf("password is required: %w", common.ErrValidation)
	}
	role := req.Role
	if role == "" {
		role = model.RoleLearner
	}
	if !role.Valid() {
		return nil, common.Errorf("unknown role %q: %w", role, common.ErrValidation)
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hashedPassword,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}

	err = s.updater.Update(ctx, func(rs *model.RecordSet) (bool, error) {
		if _, exists := rs.Users[username]; exists {
			return false, common.Errorf("username %q is taken: %w", username, common.ErrConflict)
		}
		rs.Users[username] = user
		rs.Progress[username] = model.NewProgressRecord()
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("User registered", zap.String("username", username), zap.String("role", string(role)))
	if role == model.RoleLearner {
		s.leaderboard.Invalidate(ctx)
	}

	return s.respond(user)
}

func (s *AuthService) Authenticate(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, common.ErrBadRequest
	}

	rs, err := s.updater.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	user, ok := rs.Users[username]
	if !ok || !security.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, common.ErrUnauthorized // Same answer for unknown user and wrong password
	}

	if security.IsLegacyHash(user.PasswordHash) {
		s.upgradeHash(ctx, username, req.Password)
	}
	return s.respond(user)
}

// upgradeHash replaces a legacy SHA-256 digest with bcrypt after a successful login.
func (s *AuthService) upgradeHash(ctx context.Context, username, password string) {
	hashed, err := security.HashPassword(password)
	if err != nil {
		s.log.Warn("Password rehash failed", zap.String("username", username), zap.Error(err))
		return
	}
	err = s.updater.Update(ctx, func(rs *model.RecordSet) (bool, error) {
		user, ok := rs.Users[username]
		if !ok || !security.IsLegacyHash(user.PasswordHash) {
			return false, nil
		}
		user.PasswordHash = hashed
		return true, nil
	})
	if err != nil {
		s.log.Warn("Password rehash not saved", zap.String("username", username), zap.Error(err))
		return
	}
	s.log.Info("Upgraded legacy password hash", zap.String("username", username))
}

func (s *AuthService) respond(user *model.User) (*AuthResponse, error) {
	token, err := s.tokens.Issue(model.Session{UserID: user.ID, Username: user.Username, Role: user.Role})
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	out := *user
	out.PasswordHash = ""
	return &AuthResponse{User: &out, Token: token}, nil
}

func validateUsername(username string) error {
	if username == "" {
		return common.Errorf("username is required: %w", common.ErrValidation)
	}
	if len(username) > maxUsernameLen {
		return common.Errorf("username is longer than %d bytes: %w", maxUsernameLen, common.ErrValidation)
	}
	for _, r := range username {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return common.Errorf("username must not contain whitespace: %w", common.ErrValidation)
		}
	}
	return nil
}
