package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"parkease/internal/auth"
	"parkease/internal/db"
	"parkease/internal/pricing"
	"parkease/internal/shared/apperr"
	"parkease/internal/spot"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const bookingColumns = `b.id, b.parking_spot_id, b.user_id, b.start_time, b.end_time, b.total_price, b.status,
	b.payment_status, COALESCE(b.payment_method,''), COALESCE(b.vehicle_number,''), COALESCE(b.notes,''),
	b.created_at, b.updated_at, ps.owner_id, ps.title, ps.address, ps.city, ps.state, ps.price_per_hour, ps.images`

// SpotFinder loads the spot a booking targets.
type SpotFinder interface {
	Get(ctx context.Context, id string) (spot.Spot, error)
}

// Publisher delivers an event to every stream connection of an owner.
type Publisher interface {
	Publish(ctx context.Context, ownerID, eventType string, payload any) error
}

type Service struct {
	db          db.Querier
	spots       SpotFinder
	events      Publisher
	idempotency *Idempotency
	logger      *zap.Logger
}

func NewService(db db.Querier, spots SpotFinder, events Publisher, idempotency *Idempotency, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, spots: spots, events: events, idempotency: idempotency, logger: logger}
}

// Quote prices an interval at the spot's current hourly rate.
func (s *Service) Quote(ctx context.Context, spotID string, start, end time.Time) (pricing.Quote, error) {
	if spotID == "" {
		return pricing.Quote{}, fmt.Errorf("parking_spot_id required: %w", apperr.ErrInvalid)
	}
	sp, err := s.spots.Get(ctx, spotID)
	if err != nil {
		return pricing.Quote{}, err
	}
	q, err := pricing.Calculate(start, end, sp.PricePerHour)
	if err != nil {
		return pricing.Quote{}, fmt.Errorf("%v: %w", err, apperr.ErrInvalid)
	}
	return q, nil
}

// Create stores a confirmed, paid booking priced from the spot's current rate.
func (s *Service) Create(ctx context.Context, session auth.Session, req CreateRequest) (Booking, error) {
	if !session.Valid() {
		return Booking{}, fmt.Errorf("sign in to book: %w", apperr.ErrUnauthorized)
	}
	req.VehicleNumber = strings.TrimSpace(req.VehicleNumber)
	if req.SpotID == "" || req.StartTime.IsZero() || req.EndTime.IsZero() || req.VehicleNumber == "" {
		return Booking{}, fmt.Errorf("parking_spot_id, start_time, end_time and vehicle_number are required: %w", apperr.ErrInvalid)
	}

	sp, err := s.spots.Get(ctx, req.SpotID)
	if err != nil {
		return Booking{}, err
	}
	if !sp.IsActive {
		return Booking{}, fmt.Errorf("spot is not accepting bookings: %w", apperr.ErrConflict)
	}

	quote, err := pricing.Calculate(req.StartTime, req.EndTime, sp.PricePerHour)
	if err != nil {
		return Booking{}, fmt.Errorf("%v: %w", err, apperr.ErrInvalid)
	}

	claimed, existingID, err := s.idempotency.Claim(ctx, session.UserID, req.IdempotencyKey)
	if err != nil {
		s.logger.Warn("idempotency claim failed", zap.String("user_id", session.UserID), zap.Error(err))
		claimed = true
	}
	if !claimed {
		if existingID == "" {
			return Booking{}, fmt.Errorf("booking with this idempotency key is in progress: %w", apperr.ErrConflict)
		}
		return s.Get(ctx, session, existingID)
	}

	b := Booking{
		ID:            uuid.NewString(),
		SpotID:        sp.ID,
		UserID:        session.UserID,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		TotalPrice:    quote.Total,
		Status:        StatusConfirmed,
		PaymentStatus: PaymentPaid,
		VehicleNumber: req.VehicleNumber,
		Notes:         req.Notes,
		Spot:          summaryOf(sp),
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO bookings (id, parking_spot_id, user_id, start_time, end_time, total_price, status, payment_status, vehicle_number, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at
	`, b.ID, b.SpotID, b.UserID, b.StartTime, b.EndTime, b.TotalPrice, b.Status, b.PaymentStatus, b.VehicleNumber, b.Notes)
	if err := row.Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		s.logger.Error("create booking failed", zap.String("spot_id", sp.ID), zap.String("user_id", session.UserID), zap.Error(err))
		if relErr := s.idempotency.Release(ctx, session.UserID, req.IdempotencyKey); relErr != nil {
			s.logger.Warn("idempotency release failed", zap.Error(relErr))
		}
		return Booking{}, fmt.Errorf("failed to create booking: %w", err)
	}

	if err := s.idempotency.Complete(ctx, session.UserID, req.IdempotencyKey, b.ID); err != nil {
		s.logger.Warn("idempotency store failed", zap.String("booking_id", b.ID), zap.Error(err))
	}
	if s.events != nil {
		if err := s.events.Publish(ctx, sp.OwnerID, EventCreated, b); err != nil {
			s.logger.Warn("publish booking event failed", zap.String("booking_id", b.ID), zap.Error(err))
		}
	}
	return b, nil
}

// Get returns a booking to its driver or to the owner of the booked spot.
func (s *Service) Get(ctx context.Context, session auth.Session, id string) (Booking, error) {
	if !session.Valid() {
		return Booking{}, apperr.ErrUnauthorized
	}
	row := s.db.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings b
		JOIN parking_spots ps ON ps.id = b.parking_spot_id
		WHERE b.id = $1
	`, id)
	b, err := scanBooking(row)
	if err != nil {
		return Booking{}, apperr.FromDB(err)
	}
	if b.UserID != session.UserID && b.Spot.OwnerID != session.UserID {
		return Booking{}, fmt.Errorf("booking %s: %w", id, apperr.ErrForbidden)
	}
	return b, nil
}

// ListMine returns the caller's bookings newest first with dashboard stats.
func (s *Service) ListMine(ctx context.Context, session auth.Session) (Dashboard, error) {
	if !session.Valid() {
		return Dashboard{}, apperr.ErrUnauthorized
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings b
		JOIN parking_spots ps ON ps.id = b.parking_spot_id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC
	`, session.UserID)
	if err != nil {
		return Dashboard{}, err
	}
	bookings, err := collectBookings(rows)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{Bookings: bookings, Stats: Summarize(bookings)}, nil
}

// ListForOwner returns every booking on spots owned by ownerID, newest first.
func (s *Service) ListForOwner(ctx context.Context, ownerID string) ([]Booking, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings b
		JOIN parking_spots ps ON ps.id = b.parking_spot_id
		WHERE ps.owner_id = $1
		ORDER BY b.created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// AdvanceStatuses moves bookings along their lifecycle at now. Bookings whose
// end has passed complete first, so a fully elapsed booking skips active.
func (s *Service) AdvanceStatuses(ctx context.Context, now time.Time) (activated, completed int64, err error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings SET status = 'completed', updated_at = now()
		WHERE status IN ('confirmed', 'active') AND end_time <= $1
	`, now)
	if err != nil {
		return 0, 0, err
	}
	completed = tag.RowsAffected()

	tag, err = s.db.Exec(ctx, `
		UPDATE bookings SET status = 'active', updated_at = now()
		WHERE status = 'confirmed' AND start_time <= $1
	`, now)
	if err != nil {
		return 0, completed, err
	}
	activated = tag.RowsAffected()

	if activated > 0 || completed > 0 {
		s.logger.Info("booking lifecycle advanced", zap.Int64("activated", activated), zap.Int64("completed", completed))
	}
	return activated, completed, nil
}

func summaryOf(sp spot.Spot) *SpotSummary {
	return &SpotSummary{
		ID:           sp.ID,
		OwnerID:      sp.OwnerID,
		Title:        sp.Title,
		Address:      sp.Address,
		City:         sp.City,
		State:        sp.State,
		PricePerHour: sp.PricePerHour,
		Images:       sp.Images,
	}
}

func collectBookings(rows pgx.Rows) ([]Booking, error) {
	defer rows.Close()
	bookings := []Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanBooking(row pgx.Row) (Booking, error) {
	var b Booking
	sp := &SpotSummary{}
	err := row.Scan(&b.ID, &b.SpotID, &b.UserID, &b.StartTime, &b.EndTime, &b.TotalPrice, &b.Status,
		&b.PaymentStatus, &b.PaymentMethod, &b.VehicleNumber, &b.Notes, &b.CreatedAt, &b.UpdatedAt,
		&sp.OwnerID, &sp.Title, &sp.Address, &sp.City, &sp.State, &sp.PricePerHour, &sp.Images)
	if err != nil {
		return Booking{}, err
	}
	sp.ID = b.SpotID
	b.Spot = sp
	return b, nil
}
