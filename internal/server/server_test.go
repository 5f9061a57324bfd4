package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tinylinker/internal/auth"
	"tinylinker/internal/config"
	"tinylinker/internal/storage"
	"tinylinker/internal/tracker"
)

func setupServer(t *testing.T) (*gin.Engine, *Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	repo, err := storage.NewBadgerRepository(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, repo.Close())
	})

	cfg := config.Config{
		ServerPort: "3000",
		BaseURL:    "http://short.test",
		JWTSecret:  "test-secret",
	}
	authSvc := auth.NewService(repo, cfg.JWTSecret, logger)
	recorder := tracker.NewRecorder(repo, logger)

	srv := New(cfg, repo, authSvc, recorder, nil, logger)
	return srv.Router(), srv
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func registerUser(t *testing.T, router *gin.Engine, email string) (userID, token string) {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/api/users/register", "", gin.H{
		"name":     "Ann",
		"email":    email,
		"password": "s3cret",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decode(t, w)
	user := body["user"].(map[string]interface{})
	return user["id"].(string), body["token"].(string)
}

func createLink(t *testing.T, router *gin.Engine, token string, payload gin.H) string {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/api/links", token, payload)
	require.Equal(t, http.StatusCreated, w.Code)
	return decode(t, w)["id"].(string)
}

func TestRegisterLoginFlow(t *testing.T) {
	router, _ := setupServer(t)

	_, token := registerUser(t, router, "ann@example.com")
	assert.NotEmpty(t, token)

	w := doJSON(t, router, http.MethodPost, "/api/users/register", "", gin.H{
		"name":     "Other",
		"email":    "ann@example.com",
		"password": "other1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/users/login", "", gin.H{
		"email":    "ann@example.com",
		"password": "s3cret",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/users/login", "", gin.H{
		"email":    "ann@example.com",
		"password": "wrong1",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequired(t *testing.T) {
	router, _ := setupServer(t)

	w := doJSON(t, router, http.MethodGet, "/api/links", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/links", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfile(t *testing.T) {
	router, _ := setupServer(t)
	userID, token := registerUser(t, router, "ann@example.com")

	w := doJSON(t, router, http.MethodGet, "/api/users/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, userID, body["id"])
	assert.Equal(t, "ann@example.com", body["email"])
	assert.NotContains(t, w.Body.String(), "password")
}

func TestCreateAndListLinks(t *testing.T) {
	router, _ := setupServer(t)
	userID, token := registerUser(t, router, "ann@example.com")

	id := createLink(t, router, token, gin.H{
		"url":               "https://example.com/landing",
		"title":             "Landing",
		"target_param_name": "src",
		"target_values": []gin.H{
			{"name": "Facebook", "value": "fb"},
		},
	})
	assert.Len(t, id, 7)

	w := doJSON(t, router, http.MethodGet, "/api/links", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	links := decode(t, w)["links"].([]interface{})
	require.Len(t, links, 1)

	first := links[0].(map[string]interface{})
	assert.Equal(t, "http://short.test/"+id, first["short_url"])

	w = doJSON(t, router, http.MethodGet, "/api/users/"+userID+"/links", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["links"].([]interface{}), 1)
}

func TestCreateLinkValidation(t *testing.T) {
	router, _ := setupServer(t)
	_, token := registerUser(t, router, "ann@example.com")

	w := doJSON(t, router, http.MethodPost, "/api/links", token, gin.H{
		"url": "not a url",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Target values without a parameter name to match against.
	w = doJSON(t, router, http.MethodPost, "/api/links", token, gin.H{
		"url": "https://example.com",
		"target_values": []gin.H{
			{"name": "Facebook", "value": "fb"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Duplicate target values.
	w = doJSON(t, router, http.MethodPost, "/api/links", token, gin.H{
		"url":               "https://example.com",
		"target_param_name": "src",
		"target_values": []gin.H{
			{"name": "Facebook", "value": "fb"},
			{"name": "Other", "value": "fb"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateLink(t *testing.T) {
	router, _ := setupServer(t)
	_, token := registerUser(t, router, "ann@example.com")

	id := createLink(t, router, token, gin.H{"url": "https://example.com/old"})

	w := doJSON(t, router, http.MethodPut, "/api/links/"+id, token, gin.H{
		"url":               "https://example.com/new",
		"target_param_name": "utm_source",
		"target_values": []gin.H{
			{"name": "Newsletter", "value": "news"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "https://example.com/new", body["original_url"])
	assert.Equal(t, "utm_source", body["target_param_name"])

	// Title-only update leaves everything else alone.
	w = doJSON(t, router, http.MethodPut, "/api/links/"+id, token, gin.H{
		"title": "Renamed",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "Renamed", body["title"])
	assert.Equal(t, "https://example.com/new", body["original_url"])
}

func TestDeleteLink(t *testing.T) {
	router, _ := setupServer(t)
	_, token := registerUser(t, router, "ann@example.com")

	id := createLink(t, router, token, gin.H{"url": "https://example.com"})

	w := doJSON(t, router, http.MethodDelete, "/api/links/"+id, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/links/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/links/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRedirectRecordsClick(t *testing.T) {
	router, _ := setupServer(t)
	_, token := registerUser(t, router, "ann@example.com")

	id := createLink(t, router, token, gin.H{
		"url":               "https://example.com/landing",
		"target_param_name": "src",
		"target_values": []gin.H{
			{"name": "Facebook", "value": "fb"},
		},
	})

	w := doJSON(t, router, http.MethodGet, "/"+id+"?src=fb", "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com/landing", w.Header().Get("Location"))

	w = doJSON(t, router, http.MethodGet, "/"+id, "", nil)
	require.Equal(t, http.StatusFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/links/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["total_clicks"])
}

func TestRedirectUnknownLink(t *testing.T) {
	router, _ := setupServer(t)

	w := doJSON(t, router, http.MethodGet, "/nope123", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLinkStats(t *testing.T) {
	router, _ := setupServer(t)
	_, token := registerUser(t, router, "ann@example.com")

	id := createLink(t, router, token, gin.H{
		"url":               "https://example.com",
		"target_param_name": "src",
		"target_values": []gin.H{
			{"name": "Facebook", "value": "fb"},
		},
	})

	for _, q := range []string{"?src=fb", "?src=fb", ""} {
		w := doJSON(t, router, http.MethodGet, "/"+id+q, "", nil)
		require.Equal(t, http.StatusFound, w.Code)
	}

	w := doJSON(t, router, http.MethodGet, "/api/links/"+id+"/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, float64(3), body["total_clicks"])

	targets := body["targets"].([]interface{})
	require.Len(t, targets, 2)
	first := targets[0].(map[string]interface{})
	second := targets[1].(map[string]interface{})
	assert.Equal(t, "fb", first["target"])
	assert.Equal(t, float64(2), first["count"])
	assert.Equal(t, "unknown", second["target"])
	assert.Equal(t, float64(1), second["count"])
}

func TestAnalyticsEndpoints(t *testing.T) {
	router, _ := setupServer(t)
	userID, token := registerUser(t, router, "ann@example.com")

	id := createLink(t, router, token, gin.H{
		"url":               "https://example.com",
		"target_param_name": "src",
		"target_values": []gin.H{
			{"name": "Facebook", "value": "fb"},
		},
	})

	w := doJSON(t, router, http.MethodGet, "/"+id+"?src=fb", "", nil)
	require.Equal(t, http.StatusFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/analytics/by-source", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	sources := decode(t, w)["sources"].([]interface{})
	require.Len(t, sources, 1)
	assert.Equal(t, "fb", sources[0].(map[string]interface{})["source"])

	w = doJSON(t, router, http.MethodGet, "/api/analytics/by-day", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	days := decode(t, w)["days"].([]interface{})
	require.Len(t, days, 1)

	w = doJSON(t, router, http.MethodGet, "/api/analytics/user-total-clicks/"+userID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["total_clicks"])
	assert.Len(t, body["links"].([]interface{}), 1)

	w = doJSON(t, router, http.MethodGet, "/api/analytics/user-total-clicks/nobody", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
