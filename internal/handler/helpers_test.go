package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/warden/warden/internal/auth"
	"github.com/warden/warden/internal/model"
	"github.com/warden/warden/internal/repository/memstore"
	"github.com/warden/warden/internal/service"
	"github.com/warden/warden/internal/testutil"
)

var handlerTestSecret = []byte("handler-test-secret-0123456789abcdef")

// apiEnv serves the full router over an in-memory store.
type apiEnv struct {
	t      *testing.T
	store  *memstore.Store
	tokens *auth.TokenService
	router http.Handler
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	tokens, err := auth.NewTokenService(handlerTestSecret, "HS256")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memstore.New()
	users := service.NewUserService(store, nil, logger, nil)
	keys := service.NewAPIKeyService(store, nil, service.APIKeyConfig{}, logger, nil)

	router := NewRouter(RouterConfig{
		Logger:      logger,
		Auth:        service.NewAuthService(store, tokens, 30*time.Minute, logger, nil),
		Users:       users,
		APIKeys:     keys,
		Resolver:    service.NewResolver(tokens, keys, store, nil, logger, nil),
		MaxBodySize: 1 << 20,
	})

	return &apiEnv{t: t, store: store, tokens: tokens, router: router}
}

// addUser stores a user whose password is testutil.TestPassword and returns a bearer token for it.
func (e *apiEnv) addUser(username string, superuser bool) (*model.User, string) {
	e.t.Helper()
	u := testutil.NewTestUser(e.t, username)
	u.IsSuperuser = superuser
	require.NoError(e.t, e.store.CreateUser(context.Background(), u))

	token, err := e.tokens.Issue(u.ID, time.Hour)
	require.NoError(e.t, err)
	return u, token
}

// do sends a JSON request. body may be nil, a string, or a value to encode.
func (e *apiEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *apiEnv) doWithKey(method, path, key string) *httptest.ResponseRecorder {
	e.t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-API-Key", key)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *apiEnv) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	e.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) errorBody {
	t.Helper()
	require.Equal(t, status, rec.Code, "body: %s", rec.Body.String())
	body := decode[errorBody](t, rec)
	require.Equal(t, code, body.Code)
	return body
}
