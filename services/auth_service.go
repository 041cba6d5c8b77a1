package services

import (
	"bookstore/models"
	"bookstore/repository"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

// Claims identifies the holder of a verified bearer token. Role is read
// from the stored user, not from the token.
type Claims struct {
	UserID    primitive.ObjectID
	Role      string
	ExpiresAt time.Time
}

func (c *Claims) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

type AuthService struct {
	users  repository.UserRepository
	tokens repository.TokenRepository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(users repository.UserRepository, tokens repository.TokenRepository, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a customer account and returns it with a fresh token.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, string, error) {
	return s.createUser(ctx, name, email, password, models.RoleCustomer)
}

func (s *AuthService) createUser(ctx context.Context, name, email, password, role string) (*models.User, string, error) {
	email = normalizeEmail(email)
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, "", conflict("User already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", fmt.Errorf("find user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:        primitive.NewObjectID(),
		Name:      strings.TrimSpace(name),
		Email:     email,
		Password:  string(hashed),
		Role:      role,
		CreatedAt: s.now(),
	}
	err = s.users.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, "", conflict("User already exists")
	}
	if err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", unauthorized("Invalid email or password")
	}
	if err != nil {
		return nil, "", fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", unauthorized("Invalid email or password")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) Profile(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", userID.Hex(), err)
	}
	return user, nil
}

// EnsureAdmin creates an admin account for email unless one exists.
// It reports whether a user was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	_, _, err := s.createUser(ctx, "Administrator", email, password, models.RoleAdmin)
	var svcErr *Error
	if errors.As(err, &svcErr) && svcErr.Kind == KindConflict {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": user.ID.Hex(),
		"role":   user.Role,
		"exp":    s.now().Add(s.ttl).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature, expiry and revocation, then loads the
// user so a deleted account or a changed role takes effect immediately.
func (s *AuthService) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, unauthorized("Not authorized, token failed")
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, unauthorized("Not authorized, token failed")
	}
	rawID, _ := mc["userId"].(string)
	userID, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return nil, unauthorized("Not authorized, token failed")
	}
	exp, ok := mc["exp"].(float64)
	if !ok {
		return nil, unauthorized("Not authorized, token failed")
	}

	revoked, err := s.tokens.IsRevoked(ctx, tokenString)
	if err != nil {
		return nil, fmt.Errorf("check revoked token: %w", err)
	}
	if revoked {
		return nil, unauthorized("Token has been revoked")
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, unauthorized("Not authorized, user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", userID.Hex(), err)
	}

	return &Claims{UserID: user.ID, Role: user.Role, ExpiresAt: time.Unix(int64(exp), 0)}, nil
}

// Logout revokes tokenString until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, tokenString string, expiresAt time.Time) error {
	if err := s.tokens.Revoke(ctx, tokenString, expiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}
