package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"parkease/internal/auth"
	"parkease/internal/db"
	"parkease/internal/shared/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ImageAttacher appends an image URL to a spot owned by ownerID within q.
type ImageAttacher interface {
	AppendImage(ctx context.Context, q db.Querier, ownerID, spotID, url string) error
	InvalidateListings(ctx context.Context)
}

type Service struct {
	db       db.Querier
	spots    ImageAttacher
	baseURL  string
	validate *validator.Validate
}

func NewService(db db.Querier, spots ImageAttacher, baseURL string) *Service {
	return &Service{
		db:       db,
		spots:    spots,
		baseURL:  strings.TrimRight(baseURL, "/"),
		validate: validator.New(),
	}
}

func (s *Service) SaveObject(ctx context.Context, userID, spotID, url, kind string) (string, error) {
	return saveObject(ctx, s.db, userID, spotID, url, kind)
}

func saveObject(ctx context.Context, q db.Querier, userID, spotID, url, kind string) (string, error) {
	id := uuid.NewString()
	_, err := q.Exec(ctx, `
		INSERT INTO storage_objects (id, user_id, spot_id, url, kind)
		VALUES ($1,$2,$3,$4,$5)
	`, id, userID, spotID, url, kind)
	if err != nil {
		return "", err
	}
	return id, nil
}

// AttachImage registers an image for one of the caller's spots and adds it to the spot's gallery.
func (s *Service) AttachImage(ctx context.Context, session auth.Session, spotID string, req AttachRequest) (Object, error) {
	if !session.Valid() {
		return Object{}, apperr.ErrUnauthorized
	}
	if !session.IsOwner() {
		return Object{}, fmt.Errorf("only owners can add spot images: %w", apperr.ErrForbidden)
	}
	if err := s.validate.Struct(req); err != nil {
		return Object{}, fmt.Errorf("%v: %w", err, apperr.ErrInvalid)
	}
	name := path.Base(strings.TrimSpace(req.FileName))
	if name == "." || name == "/" || name == ".." {
		return Object{}, fmt.Errorf("file_name is not valid: %w", apperr.ErrInvalid)
	}
	if req.Kind == "" {
		req.Kind = KindImage
	}

	url := s.baseURL + "/" + spotID + "/" + name

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Object{}, err
	}
	if err := s.spots.AppendImage(ctx, tx, session.UserID, spotID, url); err != nil {
		_ = tx.Rollback(ctx)
		return Object{}, err
	}
	id, err := saveObject(ctx, tx, session.UserID, spotID, url, req.Kind)
	if err != nil {
		_ = tx.Rollback(ctx)
		return Object{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Object{}, err
	}

	s.spots.InvalidateListings(ctx)
	return Object{
		ID:        id,
		SpotID:    spotID,
		URL:       url,
		Kind:      req.Kind,
		ExpiresAt: time.Now().Add(uploadWindow),
	}, nil
}
