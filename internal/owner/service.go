package owner

import (
	"context"
	"errors"
	"fmt"

	"parkease/internal/auth"
	"parkease/internal/booking"
	"parkease/internal/shared/apperr"
	"parkease/internal/spot"

	"go.uber.org/zap"
)

var errToggleFailed = errors.New("failed to update spot status")

type SpotStore interface {
	Get(ctx context.Context, id string) (spot.Spot, error)
	ListByOwner(ctx context.Context, ownerID string) ([]spot.Spot, error)
	SetActive(ctx context.Context, ownerID, spotID string, active bool) error
}

type BookingStore interface {
	ListForOwner(ctx context.Context, ownerID string) ([]booking.Booking, error)
}

type Service struct {
	spots    SpotStore
	bookings BookingStore
	logger   *zap.Logger
}

func NewService(spots SpotStore, bookings BookingStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{spots: spots, bookings: bookings, logger: logger}
}

func (s *Service) Inventory(ctx context.Context, session auth.Session) (Inventory, error) {
	if err := requireOwner(session); err != nil {
		return Inventory{}, err
	}
	spots, err := s.spots.ListByOwner(ctx, session.UserID)
	if err != nil {
		return Inventory{}, err
	}
	bookings, err := s.bookings.ListForOwner(ctx, session.UserID)
	if err != nil {
		return Inventory{}, err
	}
	return Inventory{Spots: spots, Bookings: bookings, Stats: Summarize(spots, bookings)}, nil
}

// ToggleSpot flips the active flag of one of the owner's spots and returns the
// refetched inventory.
func (s *Service) ToggleSpot(ctx context.Context, session auth.Session, spotID string) (Inventory, error) {
	if err := requireOwner(session); err != nil {
		return Inventory{}, err
	}

	sp, err := s.spots.Get(ctx, spotID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Inventory{}, err
		}
		s.logger.Error("toggle spot lookup failed", zap.String("spot_id", spotID), zap.String("owner_id", session.UserID), zap.Error(err))
		return Inventory{}, errToggleFailed
	}
	if sp.OwnerID != session.UserID {
		return Inventory{}, fmt.Errorf("spot %s: %w", spotID, apperr.ErrNotFound)
	}

	if err := s.spots.SetActive(ctx, session.UserID, spotID, !sp.IsActive); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Inventory{}, err
		}
		s.logger.Error("toggle spot failed", zap.String("spot_id", spotID), zap.String("owner_id", session.UserID), zap.Error(err))
		return Inventory{}, errToggleFailed
	}

	return s.Inventory(ctx, session)
}

func requireOwner(session auth.Session) error {
	if !session.Valid() {
		return apperr.ErrUnauthorized
	}
	if !session.IsOwner() {
		return fmt.Errorf("owner role required: %w", apperr.ErrForbidden)
	}
	return nil
}
