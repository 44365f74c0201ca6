package spot

import (
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
)

var spotColumnNames = []string{
	"id", "owner_id", "title", "description", "address", "city", "state", "zip_code", "country",
	"latitude", "longitude", "price_per_hour", "price_per_day", "total_spots", "spot_type", "amenities",
	"images", "is_active", "rating_avg", "total_reviews", "created_at", "updated_at", "full_name",
}

var spotDetailColumnNames = append(append([]string{}, spotColumnNames...), "email")

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func spotValues(sp Spot) []any {
	created := sp.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return []any{sp.ID, sp.OwnerID, sp.Title, "", sp.Address, sp.City, sp.State, "", "US",
		sp.Latitude, sp.Longitude, sp.PricePerHour, (*float64)(nil), 1, sp.Category, []string{},
		[]string{}, sp.IsActive, sp.RatingAvg, 0, created, created, sp.OwnerName}
}

func addSpotRow(rows *pgxmock.Rows, sp Spot) *pgxmock.Rows {
	return rows.AddRow(spotValues(sp)...)
}

func addSpotDetailRow(rows *pgxmock.Rows, sp Spot, email string) *pgxmock.Rows {
	return rows.AddRow(append(spotValues(sp), email)...)
}
