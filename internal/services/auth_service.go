package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/internal/repositories"
	"gaming_lounge_backend/pkg/utils"
)

// --- Custom Service Errors ---
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameExists     = errors.New("username already exists")
	ErrLastAdmin          = errors.New("cannot deactivate or demote the last admin")
)

// --- Data Transfer Objects (DTOs) ---

// LoginRequest DTO
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterStaffRequest DTO
type RegisterStaffRequest struct {
	Username string  `json:"username" binding:"required"`
	Password string  `json:"password" binding:"required,min=8"`
	FullName *string `json:"full_name"`
	Role     string  `json:"role"` // "Admin" or "Staff", Staff if empty
}

// UpdateStaffRequest DTO; nil fields are left unchanged.
type UpdateStaffRequest struct {
	Password *string `json:"password"`
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// AuthResponse DTO
type AuthResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
}

// AuthService manages staff accounts and issues access tokens.
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	RegisterStaff(ctx context.Context, actor models.Actor, req RegisterStaffRequest) (*models.User, error)
	UpdateStaff(ctx context.Context, actor models.Actor, id string, req UpdateStaffRequest) (*models.User, error)
	ListStaff(ctx context.Context) ([]models.User, error)
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	// EnsureAdmin creates the bootstrap admin account when no active admin exists.
	EnsureAdmin(ctx context.Context, username, password string) error
}

type authService struct {
	rt Runtime
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(rt Runtime) AuthService {
	return &authService{rt: rt.withDefaults()}
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var user *models.User
	err := s.rt.Store.WithTx(ctx, func(tx repositories.Tx) error {
		var err error
		user, err = tx.Users().GetByUsername(ctx, strings.TrimSpace(req.Username))
		return err
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login attempt failed: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := utils.GenerateAccessToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	s.rt.audit(ctx, user.Actor(), "login", "user", user.ID, user.Role+" logged in")
	return &AuthResponse{User: user, AccessToken: token}, nil
}

func (s *authService) RegisterStaff(ctx context.Context, actor models.Actor, req RegisterStaffRequest) (*models.User, error) {
	role := req.Role
	if role == "" {
		role = models.RoleStaff
	}
	if !models.IsValidRole(role) {
		return nil, validationError("invalid role '%s'", req.Role)
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, validationError("username is required")
	}
	if len(req.Password) < 8 {
		return nil, validationError("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.rt.now()
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.rt.runTx(ctx, func(tx repositories.Tx) error {
		return tx.Users().Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: '%s'", ErrUsernameExists, username)
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	s.rt.audit(ctx, actor, "user.created", "user", user.ID, fmt.Sprintf("%s (%s)", user.Username, user.Role))
	return user, nil
}

func (s *authService) UpdateStaff(ctx context.Context, actor models.Actor, id string, req UpdateStaffRequest) (*models.User, error) {
	if req.Role != nil && !models.IsValidRole(*req.Role) {
		return nil, validationError("invalid role '%s'", *req.Role)
	}
	var hash []byte
	if req.Password != nil {
		if len(*req.Password) < 8 {
			return nil, validationError("password must be at least 8 characters")
		}
		var err error
		if hash, err = bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost); err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	var user *models.User
	err := s.rt.runTx(ctx, func(tx repositories.Tx) error {
		var err error
		if user, err = tx.Users().GetByID(ctx, id); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrUserNotFound, id)
			}
			return err
		}
		wasAdmin := user.Role == models.RoleAdmin && user.IsActive
		if hash != nil {
			user.PasswordHash = string(hash)
		}
		if req.FullName != nil {
			user.FullName = req.FullName
		}
		if req.Role != nil {
			user.Role = *req.Role
		}
		if req.IsActive != nil {
			user.IsActive = *req.IsActive
		}
		if wasAdmin && (user.Role != models.RoleAdmin || !user.IsActive) {
			admins, err := tx.Users().CountAdmins(ctx)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return ErrLastAdmin
			}
		}
		user.UpdatedAt = s.rt.now()
		return tx.Users().Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	s.rt.audit(ctx, actor, "user.updated", "user", user.ID, user.Username)
	return user, nil
}

func (s *authService) ListStaff(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.rt.Store.WithTx(ctx, func(tx repositories.Tx) error {
		var err error
		users, err = tx.Users().List(ctx)
		return err
	})
	return users, err
}

func (s *authService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	var user *models.User
	err := s.rt.Store.WithTx(ctx, func(tx repositories.Tx) error {
		var err error
		user, err = tx.Users().GetByID(ctx, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to retrieve user profile: %w", err)
	}
	return user, nil
}

func (s *authService) EnsureAdmin(ctx context.Context, username, password string) error {
	var admins int
	err := s.rt.Store.WithTx(ctx, func(tx repositories.Tx) error {
		var err error
		admins, err = tx.Users().CountAdmins(ctx)
		return err
	})
	if err != nil || admins > 0 {
		return err
	}
	if username == "" || password == "" {
		utils.LogWarn(nil, "No admin account exists and ADMIN_USERNAME/ADMIN_PASSWORD are not set")
		return nil
	}
	_, err = s.RegisterStaff(ctx, models.SystemActor(), RegisterStaffRequest{Username: username, Password: password, Role: models.RoleAdmin})
	if err == nil {
		utils.LogInfo("Bootstrap admin account created", map[string]interface{}{"username": username})
	}
	return err
}
