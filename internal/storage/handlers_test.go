package storage

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"parkease/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

func newStorageApp(svc *Service, session auth.Session) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app.Group("/spots"), svc, func(c *fiber.Ctx) error {
		auth.SetSession(c, session)
		return c.Next()
	})
	return app
}

func TestAttachImageHandler(t *testing.T) {
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO storage_objects`).
		WithArgs(pgxmock.AnyArg(), "owner-1", "spot-1", "https://storage.example/spot-1/file.jpg", KindCover).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	app := newStorageApp(NewService(mock, &fakeAttacher{}, "https://storage.example"), owner)

	body, _ := json.Marshal(map[string]string{"file_name": "file.jpg", "kind": "cover"})
	req := httptest.NewRequest(http.MethodPost, "/spots/spot-1/images", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("attach status: %v", err)
	}
}

func TestAttachImageHandlerBadPayload(t *testing.T) {
	app := newStorageApp(NewService(nil, &fakeAttacher{}, ""), owner)

	req := httptest.NewRequest(http.MethodPost, "/spots/spot-1/images", bytes.NewReader([]byte("{bad")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request")
	}
}
