package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/abroad-backend/internal/config"
	"github.com/stemsi/abroad-backend/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoActiveSession    = errors.New("no active session")
	ErrSessionInvalidated = errors.New("session invalidated")
)

// Claims extends JWT standard claims with the staff member's identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID      int        `json:"user_id"`
	Role        model.Role `json:"role"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	AccountID   int        `json:"account_id"`
	Permissions []string   `json:"permissions,omitempty"`
}

// Actor returns the acting staff member described by the token.
func (c *Claims) Actor() model.Actor {
	return model.Actor{
		ID:        c.UserID,
		Role:      c.Role,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		AccountID: c.AccountID,
	}
}

// StaffStore is the persistence AuthService needs.
type StaffStore interface {
	GetByID(ctx context.Context, id int) (*model.Staff, error)
	GetByEmail(ctx context.Context, email string) (*model.Staff, error)
}

// AuthService handles authentication, JWT, and session management.
type AuthService struct {
	cfg       *config.Config
	rdb       *redis.Client
	staffRepo StaffStore
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client, staffRepo StaffStore) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb, staffRepo: staffRepo}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Login verifies credentials and opens a session for the staff member.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	staff, err := s.staffRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.CheckPassword(staff.PasswordHash, password); err != nil {
		return nil, err
	}

	token, err := s.GenerateStaffToken(ctx, staff)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{
		Token:       token,
		Staff:       *staff,
		Permissions: model.PermissionsFor(staff.Role),
	}, nil
}

// GenerateStaffToken creates a JWT for a staff member and records its JTI as
// the active session. A newer login replaces the previous session.
func (s *AuthService) GenerateStaffToken(ctx context.Context, staff *model.Staff) (string, error) {
	jti := uuid.New().String()
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.Itoa(staff.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		UserID:      staff.ID,
		Role:        staff.Role,
		FirstName:   staff.FirstName,
		LastName:    staff.LastName,
		AccountID:   staff.AccountID,
		Permissions: model.PermissionsFor(staff.Role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	if err := s.rdb.Set(ctx, config.CacheKey.StaffSessionKey(staff.ID), jti, s.cfg.JWTExpiry).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}
	return claims, nil
}

// ValidateSession checks that the token's JTI is the staff member's active session.
func (s *AuthService) ValidateSession(ctx context.Context, staffID int, jti string) error {
	stored, err := s.rdb.Get(ctx, config.CacheKey.StaffSessionKey(staffID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNoActiveSession
		}
		return fmt.Errorf("check session: %w", err)
	}
	if stored != jti {
		return ErrSessionInvalidated
	}
	return nil
}

// Logout ends the staff member's session.
func (s *AuthService) Logout(ctx context.Context, staffID int) error {
	return s.rdb.Del(ctx, config.CacheKey.StaffSessionKey(staffID)).Err()
}

// Me returns the staff member behind a session.
func (s *AuthService) Me(ctx context.Context, staffID int) (*model.Staff, error) {
	staff, err := s.staffRepo.GetByID(ctx, staffID)
	if err != nil {
		return nil, notFound(err, ErrInvalidCredentials)
	}
	return staff, nil
}
