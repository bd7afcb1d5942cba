package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"docgate/internal/http/middleware"
	"docgate/internal/model"
	"docgate/internal/repository"
	"docgate/internal/service"
	serviceMocks "docgate/internal/service/mocks"
	"docgate/internal/session"
	"docgate/internal/validation"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// asUser stands in for middleware.Auth.
func asUser(userID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(middleware.UserIDLocalKey, userID)
		c.Locals(middleware.UsernameLocalKey, strings.ToUpper(userID))
		c.Locals(middleware.ContextIDLocalKey, "docs")
		return c.Next()
	}
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var res errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return res
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Error.Code)
	})

	t.Run("no database", func(t *testing.T) {
		app := fiber.New()
		app.Get("/health", HealthCheck(nil))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type staticCircuits []model.CircuitState

func (s staticCircuits) States() []model.CircuitState { return s }

func TestListCircuits(t *testing.T) {
	mockSvc := new(serviceMocks.MockTranslationService)
	mockSvc.On("Paused").Return(true).Once()

	app := fiber.New()
	app.Get("/circuits", ListCircuits(staticCircuits{{Name: "llm", Phase: model.CircuitOpen, ConsecutiveFailures: 5}}, mockSvc))

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/circuits", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Paused   bool                 `json:"paused"`
		Circuits []model.CircuitState `json:"circuits"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Paused)
	require.Len(t, body.Circuits, 1)
	assert.Equal(t, model.CircuitOpen, body.Circuits[0].Phase)
	mockSvc.AssertExpectations(t)
}

func TestUploadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Post("/documents", asUser("alice"), UploadDocument(mockSvc))

	multipartBody := func(path string) (*bytes.Buffer, string) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		if path != "" {
			writer.WriteField("path", path)
		}
		part, _ := writer.CreateFormFile("file", "test.md")
		part.Write([]byte("# hello world"))
		writer.Close()
		return body, writer.FormDataContentType()
	}

	t.Run("success", func(t *testing.T) {
		body, ct := multipartBody("")
		expected := &service.DocumentInfo{Path: "test.md", Key: "documents/test.md", Size: 13}
		mockSvc.On("Upload", mock.Anything, "alice", "test.md", mock.Anything, mock.Anything, mock.Anything).Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result service.DocumentInfo
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, expected.Key, result.Key)
		mockSvc.AssertExpectations(t)
	})

	t.Run("explicit path", func(t *testing.T) {
		body, ct := multipartBody("guides/setup.md")
		mockSvc.On("Upload", mock.Anything, "alice", "guides/setup.md", mock.Anything, mock.Anything, mock.Anything).
			Return(&service.DocumentInfo{Path: "guides/setup.md"}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/documents", nil)
		// Missing content-type and body
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_REQUIRED", decodeError(t, resp).Error.Code)
	})

	t.Run("rejected path", func(t *testing.T) {
		body, ct := multipartBody("../etc/passwd")
		verr := &service.ValidationError{Issues: []validation.Issue{{Code: validation.CodePathTraversal}}}
		mockSvc.On("Upload", mock.Anything, "alice", "../etc/passwd", mock.Anything, mock.Anything, mock.Anything).Return(nil, verr).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		res := decodeError(t, resp)
		assert.Equal(t, "VALIDATION_FAILED", res.Error.Code)
		assert.Equal(t, validation.CodePathTraversal, res.Error.Message)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		body, ct := multipartBody("")
		mockSvc.On("Upload", mock.Anything, "alice", "test.md", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("upload failed")).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestStatDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/stat", asUser("alice"), StatDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Stat", mock.Anything, "alice", "README.md").Return(&service.DocumentInfo{Path: "README.md", Size: 42}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/stat?path=README.md", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("missing path", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/stat", nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "PATH_REQUIRED", decodeError(t, resp).Error.Code)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Stat", mock.Anything, "alice", "gone.md").Return(nil, service.ErrDocumentNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/stat?path=gone.md", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestListDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents", asUser("alice"), ListDocuments(mockSvc))

	t.Run("success", func(t *testing.T) {
		docs := []service.DocumentInfo{{Path: "release/notes.md", Key: "documents/release/notes.md"}}
		mockSvc.On("List", mock.Anything, "alice", "release", 10).Return(docs, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents?dir=release&limit=10", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Items []service.DocumentInfo `json:"items"`
			Total int                    `json:"total"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, 1, body.Total)
		assert.Equal(t, "release/notes.md", body.Items[0].Path)
		mockSvc.AssertExpectations(t)
	})

	t.Run("default limit", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, "alice", "", service.DefaultListLimit).Return([]service.DocumentInfo{}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents?limit=abc", nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_LIMIT", decodeError(t, resp).Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, "alice", "", service.DefaultListLimit).Return(nil, errors.New("storage down")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents", nil))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestGenerateSummary(t *testing.T) {
	valid := map[string]any{"documents": []string{"README.md"}, "format": "markdown", "audience": "executives"}
	wantReq := service.GenerateRequest{Documents: []string{"README.md"}, Format: "markdown", Audience: "executives", RequestedBy: "alice"}

	tests := []struct {
		name       string
		body       any
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{name: "missing documents", body: map[string]any{"format": "markdown", "audience": "executives"}, wantStatus: http.StatusBadRequest, wantCode: "INVALID_BODY"},
		{name: "empty document name", body: map[string]any{"documents": []string{""}, "format": "markdown", "audience": "executives"}, wantStatus: http.StatusBadRequest, wantCode: "INVALID_BODY"},
		{
			name:       "validation failed",
			body:       valid,
			svcErr:     &service.ValidationError{Issues: []validation.Issue{{Code: validation.CodeFormatInvalid}}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "secret in input",
			body:       valid,
			svcErr:     &service.SecretRejection{Resource: "README.md", Stage: "input", CriticalFound: 1},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "SECRET_DETECTED",
		},
		{
			name:       "circuit open",
			body:       valid,
			svcErr:     &service.CircuitOpenError{Dependency: "llm"},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "DEPENDENCY_UNAVAILABLE",
		},
		{name: "paused", body: valid, svcErr: service.ErrServicePaused, wantStatus: http.StatusServiceUnavailable, wantCode: "SERVICE_PAUSED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(serviceMocks.MockTranslationService)
			if tt.svcErr != nil {
				mockSvc.On("Generate", mock.Anything, wantReq).Return(nil, tt.svcErr).Once()
			}
			app := fiber.New()
			app.Post("/summaries", asUser("alice"), GenerateSummary(mockSvc))

			resp, _ := app.Test(jsonRequest(http.MethodPost, "/summaries", tt.body))
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, decodeError(t, resp).Error.Code)
			mockSvc.AssertExpectations(t)
		})
	}

	t.Run("success", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockTranslationService)
		id := uuid.NewString()
		mockSvc.On("Generate", mock.Anything, wantReq).Return(&service.GenerateResult{
			SummaryID: id,
			Content:   "## Summary",
			State:     string(model.StatePendingReview),
		}, nil).Once()
		app := fiber.New()
		app.Post("/summaries", asUser("alice"), GenerateSummary(mockSvc))

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/summaries", valid))
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result service.GenerateResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, id, result.SummaryID)
		assert.Equal(t, string(model.StatePendingReview), result.State)
		mockSvc.AssertExpectations(t)
	})

	t.Run("quarantined", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockTranslationService)
		mockSvc.On("Generate", mock.Anything, wantReq).Return(nil, &service.SecurityException{
			DraftID: "draft-1",
			Issues:  []string{"secret_leak"},
			Leak:    true,
		}).Once()
		app := fiber.New()
		app.Post("/summaries", asUser("alice"), GenerateSummary(mockSvc))

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/summaries", valid))
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)

		var body quarantinedPayload
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "QUARANTINED", body.Status)
		assert.Equal(t, "draft-1", body.DraftID)
		mockSvc.AssertExpectations(t)
	})
}

func TestListPending(t *testing.T) {
	mockSvc := new(serviceMocks.MockReviewService)
	app := fiber.New()
	app.Get("/summaries/pending", asUser("bob"), ListPending(mockSvc))

	t.Run("success", func(t *testing.T) {
		res := &repository.PageResult[model.ApprovalRecord]{
			Items: []model.ApprovalRecord{{SummaryID: uuid.NewString(), CurrentState: model.StatePendingReview}},
			Total: 1,
		}
		mockSvc.On("ListPending", mock.Anything, repository.PageQuery{Limit: 5, Offset: 0}).Return(res, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/summaries/pending?limit=5", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body listResponse[model.ApprovalRecord]
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Len(t, body.Items, 1)
		assert.Equal(t, 1, body.Total)
		assert.Equal(t, 5, body.Limit)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/summaries/pending?limit=abc", nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_LIMIT", decodeError(t, resp).Error.Code)
	})

	t.Run("invalid offset", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/summaries/pending?offset=x", nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_OFFSET", decodeError(t, resp).Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("ListPending", mock.Anything, repository.PageQuery{Limit: 10, Offset: 0}).Return(nil, errors.New("db error")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/summaries/pending", nil))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestGetSummary(t *testing.T) {
	mockSvc := new(serviceMocks.MockReviewService)
	app := fiber.New()
	app.Get("/summaries/:id", GetSummary(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.NewString()
		view := &service.SummaryView{Record: model.ApprovalRecord{SummaryID: id, CurrentState: model.StateApproved}}
		mockSvc.On("Get", mock.Anything, id).Return(view, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/summaries/"+id, nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.SummaryView
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, id, result.Record.SummaryID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Get", mock.Anything, id).Return(nil, service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/summaries/"+id, nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/summaries/invalid-uuid", nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ID", decodeError(t, resp).Error.Code)
	})
}

func TestApproveSummary(t *testing.T) {
	actor := service.Actor{UserID: "bob", Username: "BOB", ContextID: "docs"}

	t.Run("success with notes", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockReviewService)
		id := uuid.NewString()
		mockSvc.On("Approve", mock.Anything, actor, id, "looks good").
			Return(&model.Approval{SummaryID: id, State: model.StateApproved, ApprovedBy: "bob"}, nil).Once()

		app := fiber.New()
		app.Post("/summaries/:id/approve", asUser("bob"), ApproveSummary(mockSvc))

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/summaries/"+id+"/approve", map[string]string{"notes": "looks good"}))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.Approval
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, model.StateApproved, result.State)
		mockSvc.AssertExpectations(t)
	})

	t.Run("empty body", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockReviewService)
		id := uuid.NewString()
		mockSvc.On("Approve", mock.Anything, actor, id, "").
			Return(&model.Approval{SummaryID: id, State: model.StateApproved}, nil).Once()

		app := fiber.New()
		app.Post("/summaries/:id/approve", asUser("bob"), ApproveSummary(mockSvc))

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/summaries/"+id+"/approve", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("notes too long", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockReviewService)
		app := fiber.New()
		app.Post("/summaries/:id/approve", asUser("bob"), ApproveSummary(mockSvc))

		body := map[string]string{"notes": strings.Repeat("n", 2001)}
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/summaries/"+uuid.NewString()+"/approve", body))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_BODY", decodeError(t, resp).Error.Code)
		mockSvc.AssertNotCalled(t, "Approve")
	})

	errs := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"forbidden", &service.AuthorizationDenied{UserID: "bob", Permission: "approve"}, http.StatusForbidden, "FORBIDDEN"},
		{"illegal transition", service.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
		{"storage unavailable", &service.CircuitOpenError{Dependency: "approval-store"}, http.StatusServiceUnavailable, "DEPENDENCY_UNAVAILABLE"},
	}
	for _, tt := range errs {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(serviceMocks.MockReviewService)
			id := uuid.NewString()
			mockSvc.On("Approve", mock.Anything, actor, id, "").Return(nil, tt.err).Once()

			app := fiber.New()
			app.Post("/summaries/:id/approve", asUser("bob"), ApproveSummary(mockSvc))

			resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/summaries/"+id+"/approve", nil))
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, decodeError(t, resp).Error.Code)
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestRejectSummary(t *testing.T) {
	mockSvc := new(serviceMocks.MockReviewService)
	id := uuid.NewString()
	actor := service.Actor{UserID: "carol", Username: "CAROL", ContextID: "docs"}
	mockSvc.On("Reject", mock.Anything, actor, id, "tone").
		Return(&model.Approval{SummaryID: id, State: model.StateRejected}, nil).Once()

	app := fiber.New()
	app.Post("/summaries/:id/reject", asUser("carol"), RejectSummary(mockSvc))

	resp, _ := app.Test(jsonRequest(http.MethodPost, "/summaries/"+id+"/reject", map[string]string{"notes": "tone"}))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	mockSvc.AssertExpectations(t)
}

func TestPublishSummary(t *testing.T) {
	actor := service.Actor{UserID: "release-bot", Username: "RELEASE-BOT", ContextID: "docs"}

	t.Run("success", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockReviewService)
		id := uuid.NewString()
		mockSvc.On("Publish", mock.Anything, actor, id).Return(&service.PublishResult{
			SummaryID: id,
			Key:       "summaries/" + id + ".md",
			URL:       "http://minio/summaries/" + id + ".md",
			Approvals: 2,
		}, nil).Once()

		app := fiber.New()
		app.Post("/summaries/:id/publish", asUser("release-bot"), PublishSummary(mockSvc))

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/summaries/"+id+"/publish", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.PublishResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, 2, result.Approvals)
		mockSvc.AssertExpectations(t)
	})

	t.Run("insufficient approvals", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockReviewService)
		id := uuid.NewString()
		mockSvc.On("Publish", mock.Anything, actor, id).Return(nil, &service.InsufficientApprovals{SummaryID: id, Have: 1, Need: 2}).Once()

		app := fiber.New()
		app.Post("/summaries/:id/publish", asUser("release-bot"), PublishSummary(mockSvc))

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/summaries/"+id+"/publish", nil))
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "INSUFFICIENT_APPROVALS", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("secret found at publish", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockReviewService)
		id := uuid.NewString()
		mockSvc.On("Publish", mock.Anything, actor, id).Return(nil, &service.SecretRejection{Resource: id, Stage: "publish", CriticalFound: 1}).Once()

		app := fiber.New()
		app.Post("/summaries/:id/publish", asUser("release-bot"), PublishSummary(mockSvc))

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/summaries/"+id+"/publish", nil))
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

type opsFunc func(ctx context.Context, userID string) bool

func (f opsFunc) CanPublish(ctx context.Context, userID string) bool { return f(ctx, userID) }

func TestResumeService(t *testing.T) {
	onlyBot := opsFunc(func(_ context.Context, userID string) bool { return userID == "release-bot" })

	t.Run("operator", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockTranslationService)
		mockSvc.On("Resume", mock.Anything, "release-bot").Return(true).Once()
		mockSvc.On("Paused").Return(false).Once()

		app := fiber.New()
		app.Post("/service/resume", asUser("release-bot"), ResumeService(mockSvc, onlyBot))

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/service/resume", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]bool
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.True(t, body["resumed"])
		assert.False(t, body["paused"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("not an operator", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockTranslationService)
		app := fiber.New()
		app.Post("/service/resume", asUser("alice"), ResumeService(mockSvc, onlyBot))

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/service/resume", nil))
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		mockSvc.AssertNotCalled(t, "Resume", mock.Anything, mock.Anything)
	})
}

type fakeSessionStore struct {
	sessions  map[string]*model.Session
	destroyed []string
}

func (f *fakeSessionStore) CreateSession(_ context.Context, userID string, metadata map[string]string) (*model.Session, error) {
	s := &model.Session{SessionID: "s-" + userID, UserID: userID, Metadata: metadata, ExpiresAt: time.Now().Add(time.Hour)}
	f.sessions[s.SessionID] = s
	return s, nil
}

func (f *fakeSessionStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return s, nil
}

func (f *fakeSessionStore) DestroySession(_ context.Context, id string) error {
	delete(f.sessions, id)
	f.destroyed = append(f.destroyed, id)
	return nil
}

func TestSessions(t *testing.T) {
	store := &fakeSessionStore{sessions: map[string]*model.Session{}}

	alice := fiber.New()
	alice.Post("/sessions", asUser("alice"), CreateSession(store))
	alice.Delete("/sessions/:id", asUser("alice"), DeleteSession(store))

	mallory := fiber.New()
	mallory.Delete("/sessions/:id", asUser("mallory"), DeleteSession(store))

	resp, _ := alice.Test(jsonRequest(http.MethodPost, "/sessions", map[string]any{"metadata": map[string]string{"client": "cli"}}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created model.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "alice", created.UserID)
	assert.Equal(t, "cli", created.Metadata["client"])

	resp, _ = mallory.Test(httptest.NewRequest(http.MethodDelete, "/sessions/"+created.SessionID, nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, store.destroyed)

	resp, _ = alice.Test(httptest.NewRequest(http.MethodDelete, "/sessions/"+created.SessionID, nil))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{created.SessionID}, store.destroyed)

	resp, _ = alice.Test(httptest.NewRequest(http.MethodDelete, "/sessions/"+created.SessionID, nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	reject := func(c *fiber.Ctx) error {
		return middleware.WriteError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
	}
	// Register all routes
	RegisterRoutes(app, Deps{
		Review:      new(serviceMocks.MockReviewService),
		Translation: new(serviceMocks.MockTranslationService),
		Auth:        reject,
	})

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Health endpoint only allows GET
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		resp, _ := app.Test(req)

		// Fiber returns 405 by default if route exists but method doesn't match
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp).Error.Code)
	})

	t.Run("probes are public", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("api requires auth", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/summaries/pending", nil))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "UNAUTHORIZED", decodeError(t, resp).Error.Code)
	})
}
