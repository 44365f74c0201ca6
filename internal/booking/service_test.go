package booking

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"parkease/internal/auth"
	"parkease/internal/shared/apperr"
	"parkease/internal/spot"

	"github.com/alicebob/miniredis/v2"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/redis/go-redis/v9"
)

var bookingColumnNames = []string{
	"id", "parking_spot_id", "user_id", "start_time", "end_time", "total_price", "status", "payment_status",
	"payment_method", "vehicle_number", "notes", "created_at", "updated_at", "owner_id", "title", "address",
	"city", "state", "price_per_hour", "images",
}

var driver = auth.Session{UserID: "driver-1", Role: auth.RoleDriver}

type fakeSpots map[string]spot.Spot

func (f fakeSpots) Get(_ context.Context, id string) (spot.Spot, error) {
	sp, ok := f[id]
	if !ok {
		return spot.Spot{}, apperr.ErrNotFound
	}
	return sp, nil
}

type published struct {
	ownerID   string
	eventType string
	payload   any
}

type fakePublisher struct {
	events []published
}

func (p *fakePublisher) Publish(_ context.Context, ownerID, eventType string, payload any) error {
	p.events = append(p.events, published{ownerID, eventType, payload})
	return nil
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func testSpots() fakeSpots {
	return fakeSpots{
		"spot-1": {ID: "spot-1", OwnerID: "owner-1", Title: "Downtown Garage", City: "Austin", PricePerHour: 8, IsActive: true},
		"spot-off": {ID: "spot-off", OwnerID: "owner-1", PricePerHour: 5, IsActive: false},
	}
}

func morning() (time.Time, time.Time) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return start, start.Add(2*time.Hour + 30*time.Minute)
}

func addBookingRow(rows *pgxmock.Rows, id, userID, ownerID, status string, price float64) *pgxmock.Rows {
	start, end := morning()
	return rows.AddRow(id, "spot-1", userID, start, end, price, status, PaymentPaid, "", "ABC-123", "",
		start, start, ownerID, "Downtown Garage", "1 Congress Ave", "Austin", "TX", 8.0, []string{})
}

func TestCreateRecomputesPrice(t *testing.T) {
	mock := newMock(t)
	start, end := morning()

	mock.ExpectQuery(`INSERT INTO bookings`).
		WithArgs(pgxmock.AnyArg(), "spot-1", "driver-1", start, end, 24.0, StatusConfirmed, PaymentPaid, "ABC-123", "").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))

	pub := &fakePublisher{}
	svc := NewService(mock, testSpots(), pub, nil, nil)
	b, err := svc.Create(context.Background(), driver, CreateRequest{
		SpotID: "spot-1", StartTime: start, EndTime: end, VehicleNumber: "  ABC-123 ",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.ID == "" || b.TotalPrice != 24 || b.Status != StatusConfirmed || b.PaymentStatus != PaymentPaid {
		t.Fatalf("unexpected booking: %+v", b)
	}
	if len(pub.events) != 1 || pub.events[0].ownerID != "owner-1" || pub.events[0].eventType != EventCreated {
		t.Fatalf("expected booking event for owner, got %+v", pub.events)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateRejections(t *testing.T) {
	start, end := morning()
	svc := NewService(nil, testSpots(), nil, nil, nil)
	cases := []struct {
		name    string
		session auth.Session
		req     CreateRequest
		want    error
	}{
		{"anonymous", auth.Session{}, CreateRequest{SpotID: "spot-1", StartTime: start, EndTime: end, VehicleNumber: "A"}, apperr.ErrUnauthorized},
		{"blank vehicle", driver, CreateRequest{SpotID: "spot-1", StartTime: start, EndTime: end, VehicleNumber: "   "}, apperr.ErrInvalid},
		{"missing end", driver, CreateRequest{SpotID: "spot-1", StartTime: start, VehicleNumber: "A"}, apperr.ErrInvalid},
		{"reversed", driver, CreateRequest{SpotID: "spot-1", StartTime: end, EndTime: start, VehicleNumber: "A"}, apperr.ErrInvalid},
		{"equal", driver, CreateRequest{SpotID: "spot-1", StartTime: start, EndTime: start, VehicleNumber: "A"}, apperr.ErrInvalid},
		{"unknown spot", driver, CreateRequest{SpotID: "nope", StartTime: start, EndTime: end, VehicleNumber: "A"}, apperr.ErrNotFound},
		{"inactive spot", driver, CreateRequest{SpotID: "spot-off", StartTime: start, EndTime: end, VehicleNumber: "A"}, apperr.ErrConflict},
	}
	for _, tc := range cases {
		if _, err := svc.Create(context.Background(), tc.session, tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestCreatePersistenceFailure(t *testing.T) {
	mock := newMock(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	start, end := morning()
	mock.ExpectQuery(`INSERT INTO bookings`).
		WithArgs(pgxmock.AnyArg(), "spot-1", "driver-1", start, end, 24.0, StatusConfirmed, PaymentPaid, "A", "").
		WillReturnError(errors.New("connection reset"))

	pub := &fakePublisher{}
	svc := NewService(mock, testSpots(), pub, NewIdempotency(client), nil)
	_, err := svc.Create(context.Background(), driver, CreateRequest{SpotID: "spot-1", StartTime: start, EndTime: end, VehicleNumber: "A", IdempotencyKey: "form-3"})
	if err == nil || !strings.Contains(err.Error(), "failed to create booking") || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected create failure from the insert, got %v", err)
	}
	if apperr.Status(err) != 500 {
		t.Fatalf("expected internal error status")
	}
	if len(pub.events) != 0 {
		t.Fatalf("expected no event on failure")
	}
	if mr.Exists(idempotencyKey("driver-1", "form-3")) {
		t.Fatalf("expected idempotency key released after failed insert")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateIdempotencyKeyReplays(t *testing.T) {
	mock := newMock(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	start, end := morning()

	mock.ExpectQuery(`INSERT INTO bookings`).
		WithArgs(pgxmock.AnyArg(), "spot-1", "driver-1", start, end, 24.0, StatusConfirmed, PaymentPaid, "A", "").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))

	svc := NewService(mock, testSpots(), nil, NewIdempotency(client), nil)
	req := CreateRequest{SpotID: "spot-1", StartTime: start, EndTime: end, VehicleNumber: "A", IdempotencyKey: "form-1"}
	first, err := svc.Create(context.Background(), driver, req)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if stored, _ := mr.Get(idempotencyKey("driver-1", "form-1")); stored != first.ID {
		t.Fatalf("expected key to remember %s, got %q", first.ID, stored)
	}

	mock.ExpectQuery(`WHERE b.id = \$1`).
		WithArgs(first.ID).
		WillReturnRows(addBookingRow(pgxmock.NewRows(bookingColumnNames), first.ID, "driver-1", "owner-1", StatusConfirmed, 24))

	second, err := svc.Create(context.Background(), driver, req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected replay to return %s, got %s", first.ID, second.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateIdempotencyKeyInFlight(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	_ = mr.Set(idempotencyKey("driver-1", "form-2"), idempotencyPending)
	start, end := morning()

	svc := NewService(nil, testSpots(), nil, NewIdempotency(client), nil)
	_, err := svc.Create(context.Background(), driver, CreateRequest{SpotID: "spot-1", StartTime: start, EndTime: end, VehicleNumber: "A", IdempotencyKey: "form-2"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestGetAuthorization(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, testSpots(), nil, nil, nil)

	for _, session := range []auth.Session{driver, {UserID: "owner-1", Role: auth.RoleOwner}} {
		mock.ExpectQuery(`WHERE b.id = \$1`).
			WithArgs("booking-1").
			WillReturnRows(addBookingRow(pgxmock.NewRows(bookingColumnNames), "booking-1", "driver-1", "owner-1", StatusConfirmed, 24))
		b, err := svc.Get(context.Background(), session, "booking-1")
		if err != nil {
			t.Fatalf("get as %s: %v", session.UserID, err)
		}
		if b.Spot == nil || b.Spot.ID != "spot-1" || b.Spot.Title != "Downtown Garage" {
			t.Fatalf("expected embedded spot, got %+v", b.Spot)
		}
	}

	mock.ExpectQuery(`WHERE b.id = \$1`).
		WithArgs("booking-1").
		WillReturnRows(addBookingRow(pgxmock.NewRows(bookingColumnNames), "booking-1", "driver-1", "owner-1", StatusConfirmed, 24))
	if _, err := svc.Get(context.Background(), auth.Session{UserID: "stranger"}, "booking-1"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	mock.ExpectQuery(`WHERE b.id = \$1`).WithArgs("missing").WillReturnRows(pgxmock.NewRows(bookingColumnNames))
	if _, err := svc.Get(context.Background(), driver, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListMineStats(t *testing.T) {
	mock := newMock(t)
	rows := pgxmock.NewRows(bookingColumnNames)
	addBookingRow(rows, "b3", "driver-1", "owner-1", StatusActive, 16)
	addBookingRow(rows, "b2", "driver-1", "owner-1", StatusConfirmed, 24)
	addBookingRow(rows, "b1", "driver-1", "owner-1", StatusCompleted, 8)
	mock.ExpectQuery(`WHERE b.user_id = \$1\s+ORDER BY b.created_at DESC`).WithArgs("driver-1").WillReturnRows(rows)

	svc := NewService(mock, testSpots(), nil, nil, nil)
	dash, err := svc.ListMine(context.Background(), driver)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	want := Stats{Total: 3, Active: 2, Completed: 1, TotalSpent: 48}
	if dash.Stats != want {
		t.Fatalf("expected %+v, got %+v", want, dash.Stats)
	}
	if dash.Bookings[0].ID != "b3" {
		t.Fatalf("expected newest first")
	}
}

func TestListForOwner(t *testing.T) {
	mock := newMock(t)
	rows := addBookingRow(pgxmock.NewRows(bookingColumnNames), "b1", "driver-1", "owner-1", StatusConfirmed, 24)
	mock.ExpectQuery(`WHERE ps.owner_id = \$1`).WithArgs("owner-1").WillReturnRows(rows)

	svc := NewService(mock, testSpots(), nil, nil, nil)
	bookings, err := svc.ListForOwner(context.Background(), "owner-1")
	if err != nil || len(bookings) != 1 {
		t.Fatalf("list for owner: %v %d", err, len(bookings))
	}
}

func TestQuote(t *testing.T) {
	start, end := morning()
	svc := NewService(nil, testSpots(), nil, nil, nil)

	q, err := svc.Quote(context.Background(), "spot-1", start, end)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.Hours != 3 || q.Total != 24 {
		t.Fatalf("expected 3h/$24, got %+v", q)
	}
	if _, err := svc.Quote(context.Background(), "spot-1", end, start); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected invalid interval, got %v", err)
	}
	if _, err := svc.Quote(context.Background(), "", start, end); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected missing spot error, got %v", err)
	}
}

func TestAdvanceStatuses(t *testing.T) {
	mock := newMock(t)
	now := time.Now()

	mock.ExpectExec(`SET status = 'completed'`).WithArgs(now).WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectExec(`SET status = 'active'`).WithArgs(now).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	svc := NewService(mock, testSpots(), nil, nil, nil)
	activated, completed, err := svc.AdvanceStatuses(context.Background(), now)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if activated != 1 || completed != 2 {
		t.Fatalf("unexpected counts: %d %d", activated, completed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSummarize(t *testing.T) {
	stats := Summarize([]Booking{
		{Status: StatusConfirmed, TotalPrice: 10},
		{Status: StatusCancelled, TotalPrice: 5},
		{Status: StatusCompleted, TotalPrice: 20},
	})
	if stats.Total != 3 || stats.Active != 1 || stats.Completed != 1 || stats.TotalSpent != 35 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestFilterByStatus(t *testing.T) {
	bookings := []Booking{{ID: "a", Status: StatusConfirmed}, {ID: "b", Status: StatusActive}, {ID: "c", Status: StatusCompleted}}
	if got := FilterByStatus(bookings, StatusActive); len(got) != 2 {
		t.Fatalf("expected confirmed and active, got %d", len(got))
	}
	if got := FilterByStatus(bookings, StatusCompleted); len(got) != 1 || got[0].ID != "c" {
		t.Fatalf("expected completed only, got %+v", got)
	}
	if got := FilterByStatus(bookings, "all"); len(got) != 3 {
		t.Fatalf("expected all bookings")
	}
}
