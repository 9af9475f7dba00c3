package user

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const issuer = "buachat"

const (
	maxUsernameLen   = 50 // users.username VARCHAR(50)
	maxPasswordBytes = 72 // bcrypt input limit
)

var (
	ErrValidation         = errors.New("invalid registration")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenMissing       = errors.New("missing authentication token")
	ErrTokenInvalid       = errors.New("invalid or expired token")
)

// AccountStore is the durable table of users.
type AccountStore interface {
	CreateUser(ctx context.Context, user *User) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	SetAvatar(ctx context.Context, userID int, url string) error
}

type Service struct {
	repo      AccountStore
	jwtSecret []byte
	tokenTTL  time.Duration
	hashCost  int
}

type Claims struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func NewService(repo AccountStore, secret string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &Service{
		repo:      repo,
		jwtSecret: []byte(secret),
		tokenTTL:  tokenTTL,
		hashCost:  bcrypt.DefaultCost,
	}
}

func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	username := strings.TrimSpace(req.Username)
	switch {
	case username == "" || req.Password == "":
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	case utf8.RuneCountInString(username) > maxUsernameLen:
		return nil, fmt.Errorf("%w: username is longer than %d characters", ErrValidation, maxUsernameLen)
	case len(req.Password) > maxPasswordBytes:
		return nil, fmt.Errorf("%w: password is longer than %d bytes", ErrValidation, maxPasswordBytes)
	}

	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.repo.CreateUser(ctx, &User{
		Username: username,
		Password: string(hashedPwd),
	})
	if err != nil {
		return nil, err
	}

	return &RegisterResponse{ID: u.ID, Username: u.Username}, nil
}

func (s *Service) Login(ctx context.Context, req *RegisterRequest) (*LoginResponse, error) {
	u, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(u.ID, u.Username)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		Token:     token,
		ID:        u.ID,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
	}, nil
}

// IssueToken signs a token for the user that expires after the service TTL.
func (s *Service) IssueToken(id int, username string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ID:       id,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.Itoa(id),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	})

	ss, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return ss, nil
}

func (s *Service) ValidateToken(tokenString string) (int, string, error) {
	if tokenString == "" {
		return 0, "", ErrTokenMissing
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return 0, "", ErrTokenInvalid
	}

	return claims.ID, claims.Username, nil
}

func (s *Service) UpdateAvatar(ctx context.Context, userID int, url string) error {
	return s.repo.SetAvatar(ctx, userID, url)
}
