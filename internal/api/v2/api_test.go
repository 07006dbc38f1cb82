package api

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/gridscreen-go/internal/conf"
	"github.com/tphakala/gridscreen-go/internal/dataset"
	"github.com/tphakala/gridscreen-go/internal/datastore"
	"github.com/tphakala/gridscreen-go/internal/errors"
	"github.com/tphakala/gridscreen-go/internal/screening"
)

const capacityHeader = "Nombre Subestación;Coordenada UTM X;Coordenada UTM Y;" +
	"Nivel de Tensión (kV);Capacidad disponible (MW);Capacidad ocupada (MW);Provincia;Municipio"

func capacityCSV(rows ...string) string {
	return capacityHeader + "\n" + strings.Join(rows, "\n") + "\n"
}

func testSettings() *conf.Settings {
	settings := &conf.Settings{}
	settings.Main.Name = "gridscreen-test"
	settings.Screening.UTMZone = 30
	settings.Screening.North = true
	settings.Screening.FallbackCenter.Latitude = 40.4168
	settings.Screening.FallbackCenter.Longitude = -3.7038
	return settings
}

func sqliteStore(t *testing.T) datastore.Interface {
	t.Helper()
	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "runs.db")

	store := datastore.New(settings)
	require.NotNil(t, store)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// newTestAPI wires a controller to a fresh Echo instance. Store and loader
// may be nil for stateless setups.
func newTestAPI(t *testing.T, settings *conf.Settings, store datastore.Interface, loader *dataset.Loader) *echo.Echo {
	t.Helper()

	svc, err := screening.New(settings, store, loader, nil)
	require.NoError(t, err)

	e := echo.New()
	controller, err := New(e, svc, settings)
	require.NoError(t, err)
	t.Cleanup(controller.Shutdown)

	return e
}

type uploadFile struct {
	name    string
	content string
}

// multipartUpload builds a multipart body with one file part per entry, all
// under the given field name. Part order follows slice order.
func multipartUpload(t *testing.T, field string, files []uploadFile) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, file := range files {
		part, err := writer.CreateFormFile(field, file.name)
		require.NoError(t, err)
		_, err = io.WriteString(part, file.content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func doRequest(e *echo.Echo, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), target),
		"response body: %s", rec.Body.String())
}

func TestNewRequiresService(t *testing.T) {
	t.Parallel()

	controller, err := New(echo.New(), nil, testSettings())
	require.Error(t, err)
	assert.Nil(t, controller)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestNewRequiresSettings(t *testing.T) {
	t.Parallel()

	svc, err := screening.New(testSettings(), nil, nil, nil)
	require.NoError(t, err)

	controller, err := New(echo.New(), svc, nil)
	require.Error(t, err)
	assert.Nil(t, controller)
}

func TestHealthCheckStateless(t *testing.T) {
	t.Parallel()

	e := newTestAPI(t, testSettings(), nil, nil)

	rec := doRequest(e, http.MethodGet, "/api/v2/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]any
	decodeJSON(t, rec, &health)

	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "gridscreen-test", health["node"])
	assert.Equal(t, "disabled", health["database_status"])
	assert.NotEmpty(t, health["version"])
	assert.NotEmpty(t, health["go_version"])
	assert.NotEmpty(t, health["timestamp"])
}

func TestHealthCheckWithStore(t *testing.T) {
	t.Parallel()

	e := newTestAPI(t, testSettings(), sqliteStore(t), nil)

	rec := doRequest(e, http.MethodGet, "/api/v2/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]any
	decodeJSON(t, rec, &health)
	assert.Equal(t, "connected", health["database_status"])
}

func TestUnknownRouteReturns404(t *testing.T) {
	t.Parallel()

	e := newTestAPI(t, testSettings(), nil, nil)

	rec := doRequest(e, http.MethodGet, "/api/v2/nonexistent", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerateCorrelationID(t *testing.T) {
	t.Parallel()

	id := generateCorrelationID()
	assert.Len(t, id, 8)
	_, err := hex.DecodeString(id)
	assert.NoError(t, err)

	assert.NotEqual(t, id, generateCorrelationID())
}

func TestStatusForError(t *testing.T) {
	t.Parallel()

	build := func(category errors.ErrorCategory) error {
		return errors.Newf("boom").Component("api").Category(category).Build()
	}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", build(errors.CategoryValidation), http.StatusBadRequest},
		{"table decode", build(errors.CategoryTableDecode), http.StatusBadRequest},
		{"missing column", build(errors.CategoryMissingColumn), http.StatusBadRequest},
		{"geometry parse", build(errors.CategoryGeometryParse), http.StatusBadRequest},
		{"not found", build(errors.CategoryNotFound), http.StatusNotFound},
		{"database", build(errors.CategoryDatabase), http.StatusInternalServerError},
		{"plain error", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func TestNewErrorResponse(t *testing.T) {
	t.Parallel()

	resp := NewErrorResponse(assert.AnError, "something failed", http.StatusBadRequest)
	assert.Equal(t, assert.AnError.Error(), resp.Error)
	assert.Equal(t, "something failed", resp.Message)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Len(t, resp.CorrelationID, 8)

	// Without an underlying error the message doubles as the error text.
	resp = NewErrorResponse(nil, "no details", http.StatusInternalServerError)
	assert.Equal(t, "no details", resp.Error)
}
