package spot

import (
	"context"
	"fmt"
	"strings"

	"parkease/internal/auth"
	"parkease/internal/db"
	"parkease/internal/shared/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ListingLimit caps the active listing. There is no pagination.
const ListingLimit = 50

const spotColumns = `ps.id, ps.owner_id, ps.title, COALESCE(ps.description,''), ps.address, ps.city, ps.state,
	COALESCE(ps.zip_code,''), ps.country, ps.latitude, ps.longitude, ps.price_per_hour, ps.price_per_day,
	ps.total_spots, ps.spot_type, ps.amenities, ps.images, ps.is_active, ps.rating_avg, ps.total_reviews,
	ps.created_at, ps.updated_at, COALESCE(p.full_name,'')`

// spotDetailColumns adds the owner's contact email, shown on the detail view only.
const spotDetailColumns = spotColumns + `, p.email`

type Service struct {
	db       db.Querier
	cache    *Cache
	logger   *zap.Logger
	validate *validator.Validate
}

func NewService(db db.Querier, cache *Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, cache: cache, logger: logger, validate: validator.New()}
}

func (s *Service) Create(ctx context.Context, session auth.Session, req CreateSpotRequest) (Spot, error) {
	if !session.Valid() {
		return Spot{}, apperr.ErrUnauthorized
	}
	if !session.IsOwner() {
		return Spot{}, fmt.Errorf("only owners can list spots: %w", apperr.ErrForbidden)
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validate.Struct(req); err != nil {
		return Spot{}, fmt.Errorf("%v: %w", err, apperr.ErrInvalid)
	}
	if req.Country == "" {
		req.Country = "US"
	}
	if req.Amenities == nil {
		req.Amenities = []string{}
	}

	spot := Spot{
		ID:           uuid.NewString(),
		OwnerID:      session.UserID,
		Title:        req.Title,
		Description:  req.Description,
		Address:      req.Address,
		City:         req.City,
		State:        req.State,
		ZipCode:      req.ZipCode,
		Country:      req.Country,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		PricePerHour: req.PricePerHour,
		PricePerDay:  req.PricePerDay,
		TotalSpots:   req.TotalSpots,
		Category:     req.Category,
		Amenities:    req.Amenities,
		Images:       []string{},
		IsActive:     true,
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO parking_spots (id, owner_id, title, description, address, city, state, zip_code, country,
			latitude, longitude, price_per_hour, price_per_day, total_spots, spot_type, amenities, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,true)
		RETURNING created_at, updated_at
	`, spot.ID, spot.OwnerID, spot.Title, spot.Description, spot.Address, spot.City, spot.State, spot.ZipCode,
		spot.Country, spot.Latitude, spot.Longitude, spot.PricePerHour, spot.PricePerDay, spot.TotalSpots,
		spot.Category, spot.Amenities)
	if err := row.Scan(&spot.CreatedAt, &spot.UpdatedAt); err != nil {
		return Spot{}, err
	}

	s.cache.Invalidate(ctx)
	return spot, nil
}

func (s *Service) Get(ctx context.Context, id string) (Spot, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+spotDetailColumns+`
		FROM parking_spots ps
		JOIN profiles p ON p.id = ps.owner_id
		WHERE ps.id = $1
	`, id)
	var email string
	spot, err := scanSpot(row, &email)
	if err != nil {
		return Spot{}, apperr.FromDB(err)
	}
	spot.OwnerEmail = email
	return spot, nil
}

// ListActive returns the newest active spots with their owner's name.
func (s *Service) ListActive(ctx context.Context) ([]Spot, error) {
	if spots, ok := s.cache.Get(ctx); ok {
		return spots, nil
	}
	gen, cacheable := s.cache.Generation(ctx)

	rows, err := s.db.Query(ctx, `
		SELECT `+spotColumns+`
		FROM parking_spots ps
		JOIN profiles p ON p.id = ps.owner_id
		WHERE ps.is_active = true
		ORDER BY ps.created_at DESC
		LIMIT $1
	`, ListingLimit)
	if err != nil {
		return nil, err
	}
	spots, err := collectSpots(rows)
	if err != nil {
		return nil, err
	}

	if cacheable {
		s.cache.Set(ctx, gen, spots)
	}
	return spots, nil
}

func (s *Service) Search(ctx context.Context, f Filter) ([]Spot, error) {
	spots, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return Apply(spots, f), nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Spot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+spotColumns+`
		FROM parking_spots ps
		JOIN profiles p ON p.id = ps.owner_id
		WHERE ps.owner_id = $1
		ORDER BY ps.created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	return collectSpots(rows)
}

// SetActive changes the active flag of a spot owned by ownerID.
func (s *Service) SetActive(ctx context.Context, ownerID, spotID string, active bool) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE parking_spots SET is_active = $3, updated_at = now()
		WHERE id = $1 AND owner_id = $2
	`, spotID, ownerID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("spot %s: %w", spotID, apperr.ErrNotFound)
	}
	s.cache.Invalidate(ctx)
	return nil
}

// AppendImage adds url to the images of a spot owned by ownerID through q,
// which may be a transaction. Callers invalidate listings once it commits.
func (s *Service) AppendImage(ctx context.Context, q db.Querier, ownerID, spotID, url string) error {
	tag, err := q.Exec(ctx, `
		UPDATE parking_spots SET images = array_append(images, $3), updated_at = now()
		WHERE id = $1 AND owner_id = $2
	`, spotID, ownerID, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("spot %s: %w", spotID, apperr.ErrNotFound)
	}
	return nil
}

// InvalidateListings drops the cached active listing.
func (s *Service) InvalidateListings(ctx context.Context) {
	s.cache.Invalidate(ctx)
}

func collectSpots(rows pgx.Rows) ([]Spot, error) {
	defer rows.Close()
	spots := []Spot{}
	for rows.Next() {
		spot, err := scanSpot(rows)
		if err != nil {
			return nil, err
		}
		spots = append(spots, spot)
	}
	return spots, rows.Err()
}

// scanSpot reads spotColumns followed by any extra selected columns.
func scanSpot(row pgx.Row, extra ...any) (Spot, error) {
	var sp Spot
	dest := []any{&sp.ID, &sp.OwnerID, &sp.Title, &sp.Description, &sp.Address, &sp.City, &sp.State,
		&sp.ZipCode, &sp.Country, &sp.Latitude, &sp.Longitude, &sp.PricePerHour, &sp.PricePerDay,
		&sp.TotalSpots, &sp.Category, &sp.Amenities, &sp.Images, &sp.IsActive, &sp.RatingAvg, &sp.TotalReviews,
		&sp.CreatedAt, &sp.UpdatedAt, &sp.OwnerName}
	err := row.Scan(append(dest, extra...)...)
	return sp, err
}
