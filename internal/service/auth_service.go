package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/examdrive/examdrive-backend/internal/config"
	"github.com/examdrive/examdrive-backend/internal/model"
	"github.com/examdrive/examdrive-backend/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrSessionAlreadyActive = errors.New("another session is already active, please contact admin to reset")
	ErrSessionInvalidated   = errors.New("session invalidated")
	ErrNoActiveSession      = errors.New("no active session")
)

// TokenType distinguishes student vs operator tokens.
type TokenType string

const (
	TokenTypeStudent  TokenType = "student"
	TokenTypeOperator TokenType = "operator"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType          `json:"token_type"`
	UserID    int64              `json:"user_id"`
	DriveID   int64              `json:"drive_id,omitempty"` // Student only
	Role      model.OperatorRole `json:"role,omitempty"`     // Operator only
}

// AuthService handles authentication, JWT, and single-device student logins.
type AuthService struct {
	cfg       *config.Config
	rdb       *redis.Client
	students  repository.StudentStore
	operators repository.OperatorStore
	now       Clock
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client, students repository.StudentStore, operators repository.OperatorStore, now Clock) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb, students: students, operators: operators, now: now}
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

// StudentLogin authenticates a roster entry by email and access token.
func (s *AuthService) StudentLogin(ctx context.Context, email, accessToken string) (string, *model.Student, error) {
	st, err := s.students.FindByCredentials(ctx, strings.ToLower(strings.TrimSpace(email)), accessToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("find student: %w", err)
	}
	token, err := s.GenerateStudentToken(ctx, st.ID, st.DriveID)
	if err != nil {
		return "", nil, err
	}
	return token, st, nil
}

// OperatorLogin authenticates an operator by email and password.
func (s *AuthService) OperatorLogin(ctx context.Context, email, password string) (string, *model.Operator, error) {
	op, err := s.operators.GetOperatorByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("find operator: %w", err)
	}
	if err := s.CheckPassword(op.PasswordHash, password); err != nil {
		return "", nil, err
	}
	token, err := s.GenerateOperatorToken(op.ID, op.Role)
	if err != nil {
		return "", nil, err
	}
	return token, op, nil
}

// GenerateStudentToken creates a JWT for a student and registers the login in Redis.
// Returns an error if a login already exists (new logins are rejected).
func (s *AuthService) GenerateStudentToken(ctx context.Context, studentID, driveID int64) (string, error) {
	loginKey := config.CacheKey.StudentLoginKey(studentID)

	existing, err := s.rdb.Get(ctx, loginKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("check session: %w", err)
	}
	if existing != "" {
		return "", ErrSessionAlreadyActive
	}

	jti := uuid.New().String()
	signed, err := s.sign(Claims{
		RegisteredClaims: s.registered(jti, studentID),
		TokenType:        TokenTypeStudent,
		UserID:           studentID,
		DriveID:          driveID,
	})
	if err != nil {
		return "", err
	}

	// SetNX closes the gap between the check above and this write.
	ok, err := s.rdb.SetNX(ctx, loginKey, jti, s.cfg.JWTExpiry).Result()
	if err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	if !ok {
		return "", ErrSessionAlreadyActive
	}
	return signed, nil
}

// GenerateOperatorToken creates a JWT for an operator.
func (s *AuthService) GenerateOperatorToken(operatorID int64, role model.OperatorRole) (string, error) {
	return s.sign(Claims{
		RegisteredClaims: s.registered(uuid.New().String(), operatorID),
		TokenType:        TokenTypeOperator,
		UserID:           operatorID,
		Role:             role,
	})
}

func (s *AuthService) registered(jti string, subject int64) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		ID:        jti,
		Subject:   strconv.FormatInt(subject, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
	}
}

func (s *AuthService) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
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
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ValidateStudentSession checks that the token's JTI matches the active login in Redis.
func (s *AuthService) ValidateStudentSession(ctx context.Context, studentID int64, jti string) error {
	stored, err := s.rdb.Get(ctx, config.CacheKey.StudentLoginKey(studentID)).Result()
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

// ResetStudentSession removes a student's login from Redis, allowing a new login.
func (s *AuthService) ResetStudentSession(ctx context.Context, studentID int64) error {
	if _, err := s.students.GetStudent(ctx, studentID); err != nil {
		return storeErr("get student", err, ErrStudentNotFound)
	}
	return s.rdb.Del(ctx, config.CacheKey.StudentLoginKey(studentID)).Err()
}

// CreateOperator stores a new operator with a hashed password.
func (s *AuthService) CreateOperator(ctx context.Context, name, email, password string, role model.OperatorRole) (*model.Operator, error) {
	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	op := &model.Operator{
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := s.operators.CreateOperator(ctx, op); err != nil {
		return nil, fmt.Errorf("create operator: %w", err)
	}
	return op, nil
}
