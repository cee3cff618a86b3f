package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/sketchrelay/internal/api"
	"github.com/mcoot/sketchrelay/internal/api/apierr"
	"github.com/mcoot/sketchrelay/internal/api/response"
	"github.com/mcoot/sketchrelay/internal/factory"
	"github.com/mcoot/sketchrelay/internal/model"
)

// testServer wraps the API router around a test app
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T, allowedOrigins ...string) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	app := factory.NewTestApp()

	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		Registry:       app.Registry,
		WebSocket:      app.WebSocket,
		AllowedOrigins: allowedOrigins,
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	switch b := body.(type) {
	case nil:
		reqBody = bytes.NewBuffer(nil)
	case string:
		reqBody = bytes.NewBufferString(b)
	default:
		encoded, _ := json.Marshal(b)
		reqBody = bytes.NewBuffer(encoded)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func TestOnline(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Server is online", rr.Body.String())
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestCreateRoom(t *testing.T) {
	ts := newTestServer(t)
	ts.app.MockRandom.QueueString("ab12cd")

	rr := ts.request(http.MethodPost, "/api/create-room", nil)

	require.Equal(t, http.StatusCreated, rr.Code)
	var resp response.CreateRoomResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ab12cd", resp.RoomID)

	exists, err := ts.app.Registry.RoomExists(context.Background(), "ab12cd")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateRoomRetriesCollisions(t *testing.T) {
	ts := newTestServer(t)
	ts.app.MockRandom.QueueString("ab12cd", "ab12cd", "ef34gh")

	first := ts.request(http.MethodPost, "/api/create-room", nil)
	second := ts.request(http.MethodPost, "/api/create-room", nil)

	assert.Contains(t, first.Body.String(), "ab12cd")
	assert.Contains(t, second.Body.String(), "ef34gh")
}

func TestCreateRoomExhausted(t *testing.T) {
	ts := newTestServer(t)
	ts.app.MockRandom.QueueString("ab12cd")
	ts.request(http.MethodPost, "/api/create-room", nil)
	for i := 0; i < 16; i++ {
		ts.app.MockRandom.QueueString("ab12cd")
	}

	rr := ts.request(http.MethodPost, "/api/create-room", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), apierr.CodeRoomCodesExhausted)
}

func TestRoomExists(t *testing.T) {
	ts := newTestServer(t)
	ts.app.MockRandom.QueueString("ab12cd")
	ts.request(http.MethodPost, "/api/create-room", nil)

	tests := []struct {
		name string
		body any
		want string
	}{
		{name: "existing room", body: map[string]string{"roomId": "ab12cd"}, want: `{"exists":true}`},
		{name: "unknown room", body: map[string]string{"roomId": "zzzz"}, want: `{"exists":false}`},
		{name: "missing room id", body: map[string]string{}, want: `{"exists":false}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request(http.MethodPost, "/api/room-exists", tt.body)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.JSONEq(t, tt.want, rr.Body.String())
		})
	}
}

func TestRoomExistsIsRepeatable(t *testing.T) {
	ts := newTestServer(t)
	ts.app.MockRandom.QueueString("ab12cd")
	ts.request(http.MethodPost, "/api/create-room", nil)

	for i := 0; i < 3; i++ {
		rr := ts.request(http.MethodPost, "/api/room-exists", map[string]string{"roomId": "ab12cd"})
		assert.JSONEq(t, `{"exists":true}`, rr.Body.String())
	}
}

func TestRoomExistsRejectsBadJSON(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/room-exists", "{not json")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, apierr.CodeInvalidRequest, resp.Error.Code)
}

func TestGetRoom(t *testing.T) {
	ts := newTestServer(t)
	ts.app.MockRandom.QueueString("ab12cd")
	ts.request(http.MethodPost, "/api/create-room", nil)
	err := ts.app.Registry.Update(context.Background(), "ab12cd", func(rm *model.Room) (bool, error) {
		rm.Players = append(rm.Players, model.Player{ConnectionID: "conn-1", Name: "Alice", IsDrawer: true})
		rm.CurrentWord = "secret"
		return true, nil
	})
	require.NoError(t, err)

	rr := ts.request(http.MethodGet, "/api/v1/rooms/ab12cd", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{
		"roomId": "ab12cd",
		"players": [{"id": "conn-1", "name": "Alice", "isDrawer": true}],
		"createdAt": "2024-01-01T12:00:00Z"
	}`, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "secret")
}

func TestGetRoomNotFound(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/rooms/nope00", nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, apierr.CodeRoomNotFound, resp.Error.Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, "https://sketch.example")

	req := httptest.NewRequest(http.MethodOptions, "/api/create-room", nil)
	req.Header.Set("Origin", "https://sketch.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://sketch.example", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type", rr.Header().Get("Access-Control-Allow-Headers"))
	assert.Empty(t, rr.Body.String())
	ids, err := ts.app.Registry.RoomIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids, "preflight must not create a room")
}

func TestCORSPreflightRejectsUnlistedMethod(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/create-room", nil)
	req.Header.Set("Origin", "https://sketch.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestCORSAllowsAnyOrigin(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
	}{
		{name: "no origins configured"},
		{name: "wildcard", origins: []string{"*"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.origins...)

			req := httptest.NewRequest(http.MethodPost, "/api/room-exists", strings.NewReader(`{"roomId":"nope00"}`))
			req.Header.Set("Origin", "https://anywhere.example")
			rr := httptest.NewRecorder()
			ts.handler.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSOmitsUnknownOrigin(t *testing.T) {
	ts := newTestServer(t, "https://sketch.example")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
