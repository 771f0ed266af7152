package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docarchive/internal/backend"
	"docarchive/internal/model"
	"docarchive/internal/rolegate"
	"docarchive/internal/service"
	serviceMocks "docarchive/internal/service/mocks"
	"docarchive/internal/session"
	"docarchive/internal/taxonomy"
	"docarchive/internal/upload"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type roleFunc func(ctx context.Context) (model.Role, error)

func (f roleFunc) GetCallerUserRole(ctx context.Context) (model.Role, error) { return f(ctx) }

// rolesByPrincipal resolves "root" as admin, "visitor" as guest and anyone else as user.
var rolesByPrincipal = roleFunc(func(ctx context.Context) (model.Role, error) {
	p, _ := session.PrincipalFrom(ctx)
	switch p {
	case "root":
		return model.RoleAdmin, nil
	case "visitor":
		return model.RoleGuest, nil
	}
	return model.RoleUser, nil
})

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealthCheck(t *testing.T) {
	var pingErr error
	app := fiber.New()
	app.Get("/health", HealthCheck(pingFunc(func(context.Context) error { return pingErr })))

	t.Run("healthy", func(t *testing.T) {
		pingErr = nil

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		pingErr = &backend.TransportError{Method: "health", Err: errors.New("connection refused")}

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "docarchive_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	app := fiber.New()
	app.Get("/metrics", Metrics(reg))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "docarchive_test_total 1")
}

func TestListDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents", ListDocuments(mockSvc, time.UTC))

	t.Run("success", func(t *testing.T) {
		expectedRes := &service.DocumentListResult{
			Items:    []model.Document{{ID: "2", Title: "Invoice B"}, {ID: "1", Title: "Invoice A"}},
			Total:    45,
			Visible:  2,
			PageSize: 20,
			HasMore:  true,
		}
		want := service.ListQuery{
			Filter: model.DocumentFilter{CategoryID: "c1", Direction: model.DirectionInward},
			Search: "inv",
			Pages:  2,
		}
		mockSvc.On("List", mock.Anything, want).Return(expectedRes, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents?category=c1&direction=inward&q=inv&pages=2", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.DocumentListResult
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Len(t, result.Items, 2)
		assert.Equal(t, 45, result.Total)
		assert.True(t, result.HasMore)
		mockSvc.AssertExpectations(t)
	})

	t.Run("date filters are sent in nanoseconds", func(t *testing.T) {
		start := model.TimeOf(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
		mockSvc.On("List", mock.Anything, mock.MatchedBy(func(q service.ListQuery) bool {
			return q.Filter.Start != nil && *q.Filter.Start == start && q.Filter.End == nil && q.Pages == 1
		})).Return(&service.DocumentListResult{Items: []model.Document{}}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents?start=2024-03-01", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid pages", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/documents?pages=abc", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_PAGES", decodeError(t, resp).Error.Code)
	})

	t.Run("invalid direction is never sent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/documents?direction=sideways", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_QUERY", decodeError(t, resp).Error.Code)
	})

	t.Run("backend rejection", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, mock.Anything).
			Return(nil, &backend.RejectionError{Method: "filterDocuments", Message: "Unauthorized: Only users can filter documents"}).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "BACKEND_REJECTED", body.Error.Code)
		assert.Equal(t, "Unauthorized: Only users can filter documents", body.Error.Message)
		mockSvc.AssertExpectations(t)
	})

	t.Run("backend unavailable", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, mock.Anything).
			Return(nil, &backend.TransportError{Method: "filterDocuments", Err: errors.New("connection refused")}).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents", nil))

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, "BACKEND_UNAVAILABLE", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("backend reply too large", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, mock.Anything).
			Return(nil, &backend.TransportError{Method: "filterDocuments", Err: fmt.Errorf("%w: over 64 bytes", backend.ErrReplyTooLarge)}).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents", nil))

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, "BACKEND_REPLY_TOO_LARGE", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestExportDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	now := func() time.Time { return time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC) }
	app := fiber.New()
	app.Get("/documents/export", ExportDocuments(mockSvc, time.UTC, now))

	t.Run("selected ids", func(t *testing.T) {
		want := service.ExportQuery{Search: "memo", IDs: []string{"a", "b"}}
		mockSvc.On("Export", mock.Anything, mock.Anything, want).
			Return(func(w io.Writer) error {
				_, err := io.WriteString(w, "Title\nMemo\n")
				return err
			}).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/export?q=memo&ids=a,%20b,", nil))
		require.NoError(t, err)

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Title\nMemo\n", string(body))
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
		assert.Equal(t, `attachment; filename="documents_export_2024-03-01_10-30-00.csv"`, resp.Header.Get("Content-Disposition"))
		mockSvc.AssertExpectations(t)
	})

	t.Run("failure keeps the error envelope", func(t *testing.T) {
		mockSvc.On("Export", mock.Anything, mock.Anything, mock.Anything).
			Return(&backend.TransportError{Method: "getCategories", Err: errors.New("timeout")}).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/export", nil))

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Empty(t, resp.Header.Get("Content-Disposition"))
		mockSvc.AssertExpectations(t)
	})
}

func TestGetDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/:id", GetDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := "1700000000000-ab12cd34ef56"
		expectedDoc := &model.Document{ID: id, Filename: "memo.pdf"}
		mockSvc.On("Get", mock.Anything, id).Return(expectedDoc, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.Document
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, id, result.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, "missing").Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/missing", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, "boom").Return(nil, errors.New("unexpected")).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/boom", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "INTERNAL_ERROR", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestDocumentContent(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/:id/content", DocumentContent(mockSvc, 15*time.Minute))

	t.Run("stream", func(t *testing.T) {
		mockSvc.On("Content", mock.Anything, "doc-1").Return(&service.Content{
			Body:     io.NopCloser(strings.NewReader("%PDF-1.4")),
			MimeType: "application/pdf",
			Filename: "memo.pdf",
			Size:     8,
		}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/doc-1/content", nil))
		require.NoError(t, err)

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "%PDF-1.4", string(body))
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
		assert.Equal(t, `inline; filename="memo.pdf"`, resp.Header.Get("Content-Disposition"))
		mockSvc.AssertExpectations(t)
	})

	t.Run("redirect to presigned url", func(t *testing.T) {
		mockSvc.On("ContentURL", mock.Anything, "doc-2", 15*time.Minute).Return("http://minio.test/bucket/doc-2?sig=x", nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/doc-2/content?redirect=true", nil))

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "http://minio.test/bucket/doc-2?sig=x", resp.Header.Get("Location"))
		mockSvc.AssertExpectations(t)
	})

	t.Run("inline content cannot be presigned", func(t *testing.T) {
		mockSvc.On("ContentURL", mock.Anything, "doc-3", 15*time.Minute).Return("", service.ErrNoObject).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/doc-3/content?redirect=true", nil))

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "CONTENT_NOT_IN_STORE", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

// uploadForm builds a multipart body with a file part of the given type and the text fields.
func uploadForm(t *testing.T, filename, mimeType string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
		h.Set("Content-Type", mimeType)
		part, err := writer.CreatePart(h)
		require.NoError(t, err)
		part.Write(content)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Post("/documents", UploadDocument(mockSvc, time.UTC))

	fields := map[string]string{
		"category_id":      "finance",
		"office_id":        "head-office",
		"direction":        "inward",
		"title":            "Invoice A",
		"reference_number": "REF-1",
		"document_date":    "2024-03-01",
	}

	t.Run("success", func(t *testing.T) {
		body, ct := uploadForm(t, "invoice.pdf", "application/pdf", []byte("%PDF-1.4"), fields)

		expected := &upload.Result{ID: "1700000000000-ab12cd34ef56", BlobID: "1700000000000-ab12cd34ef56-invoice.pdf", Filename: "invoice.pdf", Size: 8}
		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(r upload.Request) bool {
			return r.File.Name == "invoice.pdf" &&
				r.File.MimeType == "application/pdf" &&
				r.CategoryID == "finance" &&
				r.OfficeID == "head-office" &&
				r.Direction == model.DirectionInward &&
				r.Title == "Invoice A" &&
				r.ReferenceNumber == "REF-1" &&
				r.DocumentDate.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
		}), mock.Anything).Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, expected.ID, result["id"])
		assert.Equal(t, expected.BlobID, result["blob_id"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/documents", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_REQUIRED", decodeError(t, resp).Error.Code)
	})

	t.Run("unsupported type", func(t *testing.T) {
		body, ct := uploadForm(t, "notes.txt", "text/plain", []byte("hello"), fields)
		mockSvc.On("Upload", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: text/plain", upload.ErrUnsupportedType)).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		payload := decodeError(t, resp)
		assert.Equal(t, "UNSUPPORTED_FILE_TYPE", payload.Error.Code)
		assert.Equal(t, upload.UnsupportedTypeMessage, payload.Error.Message)
		mockSvc.AssertExpectations(t)
	})

	t.Run("office mismatch", func(t *testing.T) {
		body, ct := uploadForm(t, "invoice.pdf", "application/pdf", []byte("%PDF"), fields)
		mockSvc.On("Upload", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("upload: %w", taxonomy.ErrOfficeMismatch)).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "OFFICE_MISMATCH", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid date", func(t *testing.T) {
		bad := map[string]string{"title": "Invoice A", "document_date": "01/03/2024"}
		body, ct := uploadForm(t, "invoice.pdf", "application/pdf", []byte("%PDF"), bad)

		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_DATE", decodeError(t, resp).Error.Code)
	})
}

func TestDeleteDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Delete("/documents/:id", DeleteDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, "doc-1").Return(nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/doc-1", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, "doc-2").Return(service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/doc-2", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("rejected by backend", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, "doc-3").
			Return(&backend.RejectionError{Method: "removeDocument", Message: "Unauthorized: Only admins can delete documents"}).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/doc-3", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDashboard(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/dashboard", Dashboard(mockSvc))

	mockSvc.On("Metrics", mock.Anything).Return(&model.DashboardMetrics{TotalDocuments: 3, InwardDocuments: 2, UniqueUserCount: 1}, nil).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var m model.DashboardMetrics
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	assert.Equal(t, int64(3), m.TotalDocuments)
	assert.Equal(t, int64(2), m.InwardDocuments)
	mockSvc.AssertExpectations(t)
}

func TestCategoryHandlers(t *testing.T) {
	mockSvc := new(serviceMocks.MockCategoryService)
	app := fiber.New()
	app.Get("/categories/:id/offices", ListOffices(mockSvc))
	app.Post("/categories", CreateCategory(mockSvc))
	app.Post("/categories/:id/offices", AddOffice(mockSvc))
	app.Put("/categories/:id/offices/:officeId", RenameOffice(mockSvc))
	app.Delete("/categories/:id", DeleteCategory(mockSvc))

	t.Run("offices", func(t *testing.T) {
		mockSvc.On("Offices", mock.Anything, "finance").
			Return([]taxonomy.Option{{Value: "head-office", Label: "Head Office"}}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/categories/finance/offices", nil))

		var opts []taxonomy.Option
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&opts))
		assert.Equal(t, []taxonomy.Option{{Value: "head-office", Label: "Head Office"}}, opts)
	})

	t.Run("create", func(t *testing.T) {
		mockSvc.On("Create", mock.Anything, "Human Resources").
			Return(&model.Category{ID: "human-resources", Name: "Human Resources", Offices: []model.Office{}}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/categories", `{"name":"Human Resources"}`))

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var cat model.Category
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&cat))
		assert.Equal(t, "human-resources", cat.ID)
	})

	t.Run("blank name", func(t *testing.T) {
		mockSvc.On("Create", mock.Anything, "  ").Return(nil, fmt.Errorf("category: %w", service.ErrNameRequired)).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/categories", `{"name":"  "}`))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "NAME_REQUIRED", decodeError(t, resp).Error.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/categories", `{"name":`))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_BODY", decodeError(t, resp).Error.Code)
	})

	t.Run("add and rename office", func(t *testing.T) {
		mockSvc.On("AddOffice", mock.Anything, "finance", "Branch").Return(&model.Office{ID: "branch", Name: "Branch"}, nil).Once()
		mockSvc.On("RenameOffice", mock.Anything, "finance", "branch", "North Branch").Return(nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/categories/finance/offices", `{"name":"Branch"}`))
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		resp, _ = app.Test(jsonRequest(http.MethodPut, "/categories/finance/offices/branch", `{"name":"North Branch"}`))
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("delete", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, "finance").Return(nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/categories/finance", nil))
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	mockSvc.AssertExpectations(t)
}

func TestLogin(t *testing.T) {
	mockSvc := new(serviceMocks.MockUserService)
	app := fiber.New()
	app.Post("/auth/login", Login(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Login", mock.Anything, "alice", "secret").
			Return(&model.UserAccount{Username: "alice", Role: model.AccountRoleAdmin}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/auth/login", `{"username":"alice","password":"secret"}`))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, map[string]string{"username": "alice", "role": "admin"}, body)
	})

	t.Run("bad credentials", func(t *testing.T) {
		mockSvc.On("Login", mock.Anything, "alice", "wrong").Return(nil, service.ErrBadCredentials).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/auth/login", `{"username":"alice","password":"wrong"}`))

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "BAD_CREDENTIALS", decodeError(t, resp).Error.Code)
	})

	mockSvc.AssertExpectations(t)
}

func TestUserHandlers(t *testing.T) {
	mockSvc := new(serviceMocks.MockUserService)
	app := fiber.New()
	app.Post("/users", CreateUser(mockSvc))
	app.Put("/users/:username", UpdateUser(mockSvc))
	app.Delete("/users/:username", DeleteUser(mockSvc))

	t.Run("create", func(t *testing.T) {
		mockSvc.On("Create", mock.Anything, "bob", "pw", model.AccountRoleSupervisor).Return(nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/users", `{"username":"bob","password":"pw","role":"supervisor"}`))
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("duplicate", func(t *testing.T) {
		mockSvc.On("Create", mock.Anything, "bob", "pw", model.AccountRoleSupervisor).Return(fmt.Errorf("%w: bob", service.ErrUserExists)).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/users", `{"username":"bob","password":"pw","role":"supervisor"}`))
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "USER_EXISTS", decodeError(t, resp).Error.Code)
	})

	t.Run("update role only", func(t *testing.T) {
		mockSvc.On("Update", mock.Anything, "bob", (*string)(nil), mock.MatchedBy(func(r *model.AccountRole) bool {
			return r != nil && *r == model.AccountRoleAdmin
		})).Return(nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPut, "/users/bob", `{"role":"admin"}`))
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("delete", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, "bob").Return(nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/users/bob", nil))
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	mockSvc.AssertExpectations(t)
}

func TestProfileHandlers(t *testing.T) {
	mockSvc := new(serviceMocks.MockProfileService)
	app := fiber.New()
	app.Get("/profile", GetProfile(mockSvc))
	app.Put("/profile", SaveProfile(mockSvc))

	mockSvc.On("Get", mock.Anything).Return(&model.UserProfile{Name: "Alice"}, nil).Once()
	mockSvc.On("Save", mock.Anything, model.UserProfile{Name: "Alice B"}).Return(nil).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/profile", nil))
	var p model.UserProfile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.Equal(t, "Alice", p.Name)

	resp, _ = app.Test(jsonRequest(http.MethodPut, "/profile", `{"name":"Alice B"}`))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	mockSvc.AssertExpectations(t)
}

func TestNavigation(t *testing.T) {
	labels := func(nav []NavItem) []string {
		out := make([]string, len(nav))
		for i, n := range nav {
			out[i] = n.Label
		}
		return out
	}

	assert.Equal(t, []string{"Dashboard", "Documents", "Upload", "Settings"}, labels(Navigation(model.RoleAdmin)))
	assert.Equal(t, []string{"Dashboard", "Documents", "Upload"}, labels(Navigation(model.RoleUser)))
	assert.Empty(t, Navigation(model.RoleGuest))
}

// newRoutedApp registers every route with mocked services and a gate registry
// that resolves roles through rolesByPrincipal.
func newRoutedApp(t *testing.T) (*fiber.App, *rolegate.Registry, *serviceMocks.MockDocumentService, *serviceMocks.MockUserService) {
	t.Helper()
	gates := rolegate.NewRegistry(rolesByPrincipal, rolegate.DefaultConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(gates.Close)

	docs := new(serviceMocks.MockDocumentService)
	users := new(serviceMocks.MockUserService)
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})
	RegisterRoutes(app, Deps{
		Backend:    pingFunc(func(context.Context) error { return nil }),
		Gates:      gates,
		Documents:  docs,
		Categories: new(serviceMocks.MockCategoryService),
		Users:      users,
		Profiles:   new(serviceMocks.MockProfileService),
	})
	return app, gates, docs, users
}

func authed(method, target, principal string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	if principal != "" {
		req.Header.Set("Authorization", "Bearer "+principal)
	}
	return req
}

func TestSession(t *testing.T) {
	app, gates, _, _ := newRoutedApp(t)

	t.Run("admin sees settings", func(t *testing.T) {
		resp, err := app.Test(authed(http.MethodGet, "/api/session?wait=true", "root"), -1)
		require.NoError(t, err)

		var body SessionResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, rolegate.StateAuthorized, body.Status.State)
		assert.Equal(t, model.RoleAdmin, body.Status.Role)
		assert.Len(t, body.Nav, 4)
		assert.Equal(t, "Settings", body.Nav[3].Label)
	})

	t.Run("guest is unauthorized", func(t *testing.T) {
		resp, err := app.Test(authed(http.MethodGet, "/api/session?wait=true", "visitor"), -1)
		require.NoError(t, err)

		var body SessionResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, rolegate.StateUnauthorized, body.Status.State)
		assert.Empty(t, body.Nav)
	})

	t.Run("anonymous", func(t *testing.T) {
		resp, err := app.Test(authed(http.MethodGet, "/api/session", ""), -1)
		require.NoError(t, err)

		var body SessionResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, rolegate.StateUnauthenticated, body.Status.State)
	})

	t.Run("retry requires identity", func(t *testing.T) {
		resp, _ := app.Test(authed(http.MethodPost, "/api/session/retry", ""))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("retry restarts the check", func(t *testing.T) {
		resp, err := app.Test(authed(http.MethodPost, "/api/session/retry", "root"), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	})

	t.Run("logout forgets the gate", func(t *testing.T) {
		require.Equal(t, 2, gates.Len())

		resp, _ := app.Test(authed(http.MethodDelete, "/api/session", "root"))

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, 1, gates.Len())
	})
}

func TestGuardedRoutes(t *testing.T) {
	app, _, docs, users := newRoutedApp(t)

	t.Run("missing identity", func(t *testing.T) {
		resp, err := app.Test(authed(http.MethodGet, "/api/documents", ""), -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "UNAUTHENTICATED", decodeError(t, resp).Error.Code)
	})

	t.Run("guest cannot list documents", func(t *testing.T) {
		resp, err := app.Test(authed(http.MethodGet, "/api/documents", "visitor"), -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "UNAUTHORIZED", decodeError(t, resp).Error.Code)
	})

	t.Run("user lists documents", func(t *testing.T) {
		docs.On("List", mock.Anything, service.ListQuery{Pages: 1}).
			Return(&service.DocumentListResult{Items: []model.Document{}}, nil).Once()

		resp, err := app.Test(authed(http.MethodGet, "/api/documents", "alice"), -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		docs.AssertExpectations(t)
	})

	t.Run("user cannot manage users", func(t *testing.T) {
		resp, err := app.Test(authed(http.MethodGet, "/api/users", "alice"), -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		users.AssertNotCalled(t, "List", mock.Anything)
	})

	t.Run("admin manages users", func(t *testing.T) {
		users.On("List", mock.Anything).Return([]model.UserAccount{{Username: "bob", Role: model.AccountRoleSupervisor}}, nil).Once()

		resp, err := app.Test(authed(http.MethodGet, "/api/users", "root"), -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		users.AssertExpectations(t)
	})

	t.Run("principal reaches the service", func(t *testing.T) {
		docs.On("Get", mock.MatchedBy(func(ctx context.Context) bool {
			p, ok := session.PrincipalFrom(ctx)
			return ok && p == "alice"
		}), "doc-1").Return(&model.Document{ID: "doc-1"}, nil).Once()

		resp, err := app.Test(authed(http.MethodGet, "/api/documents/doc-1", "alice"), -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		docs.AssertExpectations(t)
	})
}

func TestRouting(t *testing.T) {
	app, _, _, _ := newRoutedApp(t)

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp).Error.Code)
	})
}
