package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"provdir/internal/provider/handler/mocks"
	"provdir/internal/provider/models"
	"provdir/internal/provider/service"
	dErrors "provdir/pkg/domain-errors"
)

func newTestRouter(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	New(mockService, logger).Register(r)
	return r, mockService
}

func TestHandleSync(t *testing.T) {
	t.Run("returns the sync result", func(t *testing.T) {
		router, mockService := newTestRouter(t)
		mockService.EXPECT().SynchronizeDirectory(gomock.Any()).Return(&service.SyncResult{
			Rows:    []models.Row{{NPI: "1234567890"}},
			Created: 1,
		}, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/providers/sync", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, float64(1), resp["created"])
	})

	t.Run("maps store failures to 500", func(t *testing.T) {
		router, mockService := newTestRouter(t)
		mockService.EXPECT().SynchronizeDirectory(gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInternal, "db down"))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/providers/sync", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "internal_error", resp["error"])
		assert.Empty(t, resp["error_description"], "internals stay out of responses")
	})

	t.Run("registry failure still returns 200 with error data", func(t *testing.T) {
		router, mockService := newTestRouter(t)
		mockService.EXPECT().SynchronizeDirectory(gomock.Any()).Return(&service.SyncResult{
			Err: "registry returned 502",
		}, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/providers/sync", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "registry returned 502", resp["error"])
	})
}

func TestHandleRefresh(t *testing.T) {
	t.Run("returns the refreshed statuses", func(t *testing.T) {
		router, mockService := newTestRouter(t)
		mockService.EXPECT().RefreshRegistrations(gomock.Any()).Return(&service.RefreshResult{
			Statuses: map[string]models.RegistrationStatus{
				"remote-1": {RemoteProviderID: "remote-1", RegisteredForEmdr: true},
			},
		}, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/providers/refresh", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		statuses := resp["statuses"].(map[string]any)
		assert.Contains(t, statuses, "remote-1")
	})

	t.Run("a failed list fetch is a warning, not a failure", func(t *testing.T) {
		router, mockService := newTestRouter(t)
		mockService.EXPECT().RefreshRegistrations(gomock.Any()).Return(&service.RefreshResult{
			Statuses: map[string]models.RegistrationStatus{
				"remote-1": {RemoteProviderID: "remote-1", RegisteredForEmdr: true},
			},
			Err: "listing down",
		}, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/providers/refresh", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "listing down", resp["error"])
		statuses := resp["statuses"].(map[string]any)
		assert.Contains(t, statuses, "remote-1", "statuses stay valid alongside the warning")
	})
}

func TestHandleListProviders(t *testing.T) {
	router, mockService := newTestRouter(t)
	mockService.EXPECT().ComposeRows(gomock.Any()).Return([]models.Row{
		{NPI: "1234567890", RegistrationState: models.StateRegistered},
	}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/providers", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string][]models.Row
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp["providers"], 1)
	assert.Equal(t, models.StateRegistered, resp["providers"][0].RegistrationState)
}

func TestTransitionRoutes(t *testing.T) {
	t.Run("register routes the npi to the service", func(t *testing.T) {
		router, mockService := newTestRouter(t)
		mockService.EXPECT().Register(gomock.Any(), models.NPI("1234567890")).
			Return(&service.TransitionResult{}, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/providers/1234567890/register", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("deregister and electronic-only are wired", func(t *testing.T) {
		router, mockService := newTestRouter(t)
		mockService.EXPECT().Deregister(gomock.Any(), models.NPI("1234567890")).
			Return(&service.TransitionResult{}, nil)
		mockService.EXPECT().SetElectronicOnly(gomock.Any(), models.NPI("1234567890")).
			Return(&service.TransitionResult{}, nil)

		for _, path := range []string{
			"/providers/1234567890/deregister",
			"/providers/1234567890/electronic-only",
		} {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
			assert.Equal(t, http.StatusOK, w.Code, path)
		}
	})

	t.Run("missing remote id maps to 400", func(t *testing.T) {
		router, mockService := newTestRouter(t)
		mockService.EXPECT().Register(gomock.Any(), models.NPI("1234567890")).
			Return(nil, dErrors.New(dErrors.CodeBadRequest, "provider has no registry id; update the provider first"))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/providers/1234567890/register", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp["error_description"], "update the provider first")
	})

	t.Run("unknown provider maps to 404", func(t *testing.T) {
		router, mockService := newTestRouter(t)
		mockService.EXPECT().UpdateProvider(gomock.Any(), models.NPI("9999999999")).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "provider not found"))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/providers/9999999999/update", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandleRenameCustomer(t *testing.T) {
	t.Run("renames and returns 204", func(t *testing.T) {
		router, mockService := newTestRouter(t)
		customerID := uuid.New()
		mockService.EXPECT().RenameCustomer(gomock.Any(), customerID, "Clinic B", gomock.Any()).
			Return(nil)

		body, _ := json.Marshal(RenameCustomerRequest{Name: "  Clinic B  "})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/customers/"+customerID.String(), bytes.NewReader(body)))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("rejects an empty name before the service", func(t *testing.T) {
		router, _ := newTestRouter(t)

		body, _ := json.Marshal(RenameCustomerRequest{Name: "  "})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/customers/"+uuid.NewString(), bytes.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects an invalid customer id", func(t *testing.T) {
		router, _ := newTestRouter(t)

		body, _ := json.Marshal(RenameCustomerRequest{Name: "Clinic B"})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/customers/not-a-uuid", bytes.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("sentinel customer maps to 409", func(t *testing.T) {
		router, mockService := newTestRouter(t)
		customerID := uuid.New()
		mockService.EXPECT().RenameCustomer(gomock.Any(), customerID, "Hijacked", gomock.Any()).
			Return(dErrors.New(dErrors.CodeConflict, "the System customer cannot be renamed"))

		body, _ := json.Marshal(RenameCustomerRequest{Name: "Hijacked"})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/customers/"+customerID.String(), bytes.NewReader(body)))
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}
