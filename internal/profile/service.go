package profile

import (
	"context"
	"fmt"
	"strings"

	"parkease/internal/auth"
	"parkease/internal/db"
	"parkease/internal/shared/apperr"

	"github.com/go-playground/validator/v10"
)

type Service struct {
	db       db.Querier
	validate *validator.Validate
}

func NewService(db db.Querier) *Service {
	return &Service{db: db, validate: validator.New()}
}

func (s *Service) Get(ctx context.Context, session auth.Session) (Profile, error) {
	if !session.Valid() {
		return Profile{}, apperr.ErrUnauthorized
	}
	row := s.db.QueryRow(ctx, `
		SELECT id, email, COALESCE(full_name,''), COALESCE(phone,''), role, COALESCE(avatar_url,''), created_at, updated_at
		FROM profiles WHERE id = $1
	`, session.UserID)

	var p Profile
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Phone, &p.Role, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Profile{}, apperr.FromDB(err)
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, session auth.Session, patch UpdateRequest) (Profile, error) {
	if err := s.validate.Struct(patch); err != nil {
		return Profile{}, fmt.Errorf("%v: %w", err, apperr.ErrInvalid)
	}
	p, err := s.Get(ctx, session)
	if err != nil {
		return Profile{}, err
	}
	if patch.FullName != nil {
		p.FullName = strings.TrimSpace(*patch.FullName)
	}
	if patch.Phone != nil {
		p.Phone = strings.TrimSpace(*patch.Phone)
	}
	if patch.AvatarURL != nil {
		p.AvatarURL = *patch.AvatarURL
	}

	row := s.db.QueryRow(ctx, `
		UPDATE profiles
		SET full_name=$2, phone=$3, avatar_url=$4, updated_at=now()
		WHERE id=$1
		RETURNING updated_at
	`, p.ID, p.FullName, p.Phone, p.AvatarURL)
	if err := row.Scan(&p.UpdatedAt); err != nil {
		return Profile{}, apperr.FromDB(err)
	}
	return p, nil
}
