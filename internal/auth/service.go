package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"parkease/internal/db"
	"parkease/internal/shared/apperr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
	minPasswordLen  = 6

	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

var errInvalidCredentials = fmt.Errorf("invalid email or password: %w", apperr.ErrUnauthorized)

var (
	signTokenFn       = (*Service).signToken
	hashPasswordFn    = bcrypt.GenerateFromPassword
	parseWithClaimsFn = jwt.ParseWithClaims
)

type Service struct {
	secret []byte
	db     db.Querier
}

// Claims is the JWT payload. Use separates access tokens from refresh
// tokens so a refresh token is never accepted as a bearer credential.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Use    string `json:"use"`
	jwt.RegisteredClaims
}

func NewService(secret string, db db.Querier) *Service {
	return &Service{
		secret: []byte(secret),
		db:     db,
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, TokenResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return User{}, TokenResponse{}, fmt.Errorf("email and password required: %w", apperr.ErrInvalid)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, TokenResponse{}, fmt.Errorf("email is not valid: %w", apperr.ErrInvalid)
	}
	if len(req.Password) < minPasswordLen {
		return User{}, TokenResponse{}, fmt.Errorf("password must be at least %d characters: %w", minPasswordLen, apperr.ErrInvalid)
	}
	role := req.Role
	if role == "" {
		role = RoleDriver
	}
	if role != RoleDriver && role != RoleOwner {
		return User{}, TokenResponse{}, fmt.Errorf("role must be driver or owner: %w", apperr.ErrInvalid)
	}

	hash, err := hashPasswordFn([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, TokenResponse{}, err
	}

	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         role,
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO profiles (id, email, password_hash, full_name, role)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at
	`, user.ID, user.Email, user.PasswordHash, user.FullName, user.Role)
	if err := row.Scan(&user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(apperr.FromDB(err), apperr.ErrConflict) {
			return User{}, TokenResponse{}, fmt.Errorf("email already registered: %w", apperr.ErrConflict)
		}
		return User{}, TokenResponse{}, err
	}

	tokens, err := s.GenerateTokens(ctx, Session{UserID: user.ID, Role: user.Role})
	if err != nil {
		return User{}, TokenResponse{}, err
	}
	return user, tokens, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (User, TokenResponse, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, email, password_hash, COALESCE(full_name,''), COALESCE(phone,''), role, COALESCE(avatar_url,''), created_at, updated_at
		FROM profiles WHERE email = $1
	`, normalizeEmail(req.Email))

	var user User
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.Phone, &user.Role, &user.AvatarURL, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(apperr.FromDB(err), apperr.ErrNotFound) {
			return User{}, TokenResponse{}, errInvalidCredentials
		}
		return User{}, TokenResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return User{}, TokenResponse{}, errInvalidCredentials
	}

	tokens, err := s.GenerateTokens(ctx, Session{UserID: user.ID, Role: user.Role})
	if err != nil {
		return User{}, TokenResponse{}, err
	}
	return user, tokens, nil
}

// Logout revokes every outstanding refresh token of the session's user.
// Access tokens stay valid until they expire.
func (s *Service) Logout(ctx context.Context, session Session) error {
	if !session.Valid() {
		return apperr.ErrUnauthorized
	}
	_, err := s.db.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE user_id = $1 AND revoked_at IS NULL
	`, session.UserID)
	return err
}

func (s *Service) GenerateTokens(ctx context.Context, session Session) (TokenResponse, error) {
	access, err := signTokenFn(s, session, tokenAccess, accessTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	refresh, err := signTokenFn(s, session, tokenRefresh, refreshTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	if err := s.saveRefreshToken(ctx, refresh, session.UserID, refreshTokenTTL); err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
	}, nil
}

func (s *Service) ValidateRefreshToken(ctx context.Context, token string) (Session, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return Session{}, fmt.Errorf("%v: %w", err, apperr.ErrUnauthorized)
	}
	if claims.Use != tokenRefresh {
		return Session{}, fmt.Errorf("not a refresh token: %w", apperr.ErrUnauthorized)
	}

	userID, expiresAt, err := s.lookupRefreshToken(ctx, token)
	if err != nil || userID != claims.UserID || time.Now().After(expiresAt) {
		return Session{}, fmt.Errorf("refresh token invalid: %w", apperr.ErrUnauthorized)
	}
	return Session{UserID: claims.UserID, Role: claims.Role}, nil
}

func (s *Service) ValidateAccessToken(token string) (Session, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return Session{}, fmt.Errorf("%v: %w", err, apperr.ErrUnauthorized)
	}
	if claims.Use != tokenAccess {
		return Session{}, fmt.Errorf("not an access token: %w", apperr.ErrUnauthorized)
	}
	return Session{UserID: claims.UserID, Role: claims.Role}, nil
}

func (s *Service) signToken(session Session, use string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: session.UserID,
		Role:   session.Role,
		Use:    use,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	parsed, err := parseWithClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("token invalid")
	}
	return claims, nil
}

func (s *Service) saveRefreshToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at)
		VALUES ($1,$2,$3,$4)
	`, uuid.NewString(), userID, token, time.Now().Add(ttl))
	return err
}

func (s *Service) lookupRefreshToken(ctx context.Context, token string) (string, time.Time, error) {
	row := s.db.QueryRow(ctx, `
		SELECT user_id, expires_at
		FROM refresh_tokens
		WHERE token = $1 AND revoked_at IS NULL
	`, token)
	var userID string
	var expiresAt time.Time
	if err := row.Scan(&userID, &expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return userID, expiresAt, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
