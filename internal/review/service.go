package review

import (
	"context"
	"fmt"
	"strings"

	"parkease/internal/auth"
	"parkease/internal/db"
	"parkease/internal/shared/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ListingInvalidator drops cached listings that show rating aggregates.
type ListingInvalidator interface {
	InvalidateListings(ctx context.Context)
}

type Service struct {
	db       db.Querier
	listings ListingInvalidator
	logger   *zap.Logger
	validate *validator.Validate
}

func NewService(db db.Querier, listings ListingInvalidator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, listings: listings, logger: logger, validate: validator.New()}
}

// List returns the newest reviews of a spot with reviewer names.
func (s *Service) List(ctx context.Context, spotID string) ([]Review, error) {
	rows, err := s.db.Query(ctx, `
		SELECT r.id, r.parking_spot_id, r.user_id, COALESCE(r.booking_id::text,''), r.rating, COALESCE(r.comment,''),
			COALESCE(p.full_name,''), r.created_at
		FROM reviews r
		JOIN profiles p ON p.id = r.user_id
		WHERE r.parking_spot_id = $1
		ORDER BY r.created_at DESC
		LIMIT $2
	`, spotID, listLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []Review{}
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.SpotID, &r.UserID, &r.BookingID, &r.Rating, &r.Comment, &r.ReviewerName, &r.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// Create stores a review and recomputes the spot's rating aggregates in the same transaction.
func (s *Service) Create(ctx context.Context, session auth.Session, spotID string, req CreateRequest) (Review, error) {
	if !session.Valid() {
		return Review{}, apperr.ErrUnauthorized
	}
	if err := s.validate.Struct(req); err != nil {
		return Review{}, fmt.Errorf("rating must be between 1 and 5: %w", apperr.ErrInvalid)
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	if req.BookingID != "" {
		if err := s.checkBooking(ctx, session.UserID, spotID, req.BookingID); err != nil {
			return Review{}, err
		}
	}

	r := Review{
		ID:        uuid.NewString(),
		SpotID:    spotID,
		UserID:    session.UserID,
		BookingID: req.BookingID,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
	}
	var bookingID *string
	if r.BookingID != "" {
		bookingID = &r.BookingID
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Review{}, err
	}

	// concurrent reviews of one spot serialize here so each recompute sees the others
	var locked string
	if err := tx.QueryRow(ctx, `SELECT id FROM parking_spots WHERE id = $1 FOR UPDATE`, spotID).Scan(&locked); err != nil {
		_ = tx.Rollback(ctx)
		return Review{}, apperr.FromDB(err)
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO reviews (id, parking_spot_id, user_id, booking_id, rating, comment)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, r.ID, r.SpotID, r.UserID, bookingID, r.Rating, r.Comment)
	if err := row.Scan(&r.CreatedAt); err != nil {
		_ = tx.Rollback(ctx)
		return Review{}, apperr.FromDB(err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE parking_spots SET
			rating_avg = (SELECT COALESCE(AVG(rating), 0) FROM reviews WHERE parking_spot_id = $1),
			total_reviews = (SELECT COUNT(*) FROM reviews WHERE parking_spot_id = $1),
			updated_at = now()
		WHERE id = $1
	`, spotID)
	if err != nil {
		_ = tx.Rollback(ctx)
		return Review{}, err
	}
	if tag.RowsAffected() == 0 {
		_ = tx.Rollback(ctx)
		return Review{}, fmt.Errorf("spot %s: %w", spotID, apperr.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return Review{}, err
	}

	if s.listings != nil {
		s.listings.InvalidateListings(ctx)
	}
	s.logger.Debug("review created", zap.String("spot_id", spotID), zap.Int("rating", r.Rating))
	return r, nil
}

func (s *Service) checkBooking(ctx context.Context, userID, spotID, bookingID string) error {
	var ownerID, bookedSpot string
	err := s.db.QueryRow(ctx, `SELECT user_id, parking_spot_id FROM bookings WHERE id = $1`, bookingID).
		Scan(&ownerID, &bookedSpot)
	if err != nil {
		return apperr.FromDB(err)
	}
	if ownerID != userID || bookedSpot != spotID {
		return fmt.Errorf("booking does not belong to this spot and user: %w", apperr.ErrForbidden)
	}
	return nil
}
