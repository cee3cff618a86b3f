package factory

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/sketchrelay/internal/api"
	"github.com/mcoot/sketchrelay/internal/model"
	"github.com/mcoot/sketchrelay/internal/protocol"
	redisstorage "github.com/mcoot/sketchrelay/internal/storage/redis"
	"github.com/mcoot/sketchrelay/internal/testutil"
)

type IntegrationSuite struct {
	suite.Suite
	app    *TestApp
	ctx    context.Context
	server *httptest.Server
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
	s.server = httptest.NewServer(api.NewRouter(api.RouterConfig{
		Logger:    testutil.NopLogger(),
		Registry:  s.app.Registry,
		WebSocket: s.app.WebSocket,
	}))
}

func (s *IntegrationSuite) TearDownTest() {
	s.app.WebSocket.Shutdown()
	s.server.Close()
}

func (s *IntegrationSuite) postJSON(path string, body any) *http.Response {
	b, err := json.Marshal(body)
	s.Require().NoError(err)
	resp, err := http.Post(s.server.URL+path, "application/json", bytes.NewReader(b))
	s.Require().NoError(err)
	return resp
}

func (s *IntegrationSuite) createRoom(code string) model.RoomID {
	s.app.MockRandom.QueueString(code)
	resp := s.postJSON("/api/create-room", nil)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var body struct {
		RoomID string `json:"roomId"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	return model.RoomID(body.RoomID)
}

type wsClient struct {
	s    *IntegrationSuite
	conn *websocket.Conn
	id   string
}

func (s *IntegrationSuite) dial() *wsClient {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })

	c := &wsClient{s: s, conn: conn}
	env := c.expect(model.EventConnected)
	var greeting protocol.ConnectedPayload
	s.Require().NoError(json.Unmarshal(env.Data, &greeting))
	c.id = greeting.SocketID
	return c
}

func (c *wsClient) send(event model.EventType, data any) {
	payload, err := json.Marshal(data)
	c.s.Require().NoError(err)
	c.s.Require().NoError(c.conn.WriteJSON(protocol.Envelope{Event: event, Data: payload}))
}

func (c *wsClient) expect(event model.EventType) protocol.Envelope {
	c.s.Require().NoError(c.conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	var env protocol.Envelope
	c.s.Require().NoError(c.conn.ReadJSON(&env))
	c.s.Require().Equal(event, env.Event, "payload: %s", string(env.Data))
	return env
}

func (c *wsClient) expectNothing() {
	c.s.Require().NoError(c.conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond)))
	_, data, err := c.conn.ReadMessage()
	c.s.Require().Error(err, "unexpected frame: %s", string(data))
}

func (c *wsClient) players(env protocol.Envelope) []protocol.Player {
	var players []protocol.Player
	c.s.Require().NoError(json.Unmarshal(env.Data, &players))
	return players
}

func (s *IntegrationSuite) TestCreateRoomAndCheckExistence() {
	roomID := s.createRoom("ab12cd")
	s.Equal(model.RoomID("ab12cd"), roomID)

	for code, want := range map[string]bool{"ab12cd": true, "zzzz": false} {
		resp := s.postJSON("/api/room-exists", map[string]string{"roomId": code})
		var body struct {
			Exists bool `json:"exists"`
		}
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		s.Equal(want, body.Exists, code)
	}
}

func (s *IntegrationSuite) TestGameRoundOverWebsocket() {
	roomID := s.createRoom("ab12cd")
	alice := s.dial()
	bob := s.dial()

	alice.send(model.EventJoinRoom, map[string]string{"roomId": string(roomID), "playerName": "Alice"})
	s.Equal([]protocol.Player{{ID: alice.id, Name: "Alice"}}, alice.players(alice.expect(model.EventUpdatePlayers)))

	bob.send(model.EventJoinRoom, map[string]string{"roomId": string(roomID), "playerName": "Bob"})
	alice.expect(model.EventUpdatePlayers)
	s.Len(bob.players(bob.expect(model.EventUpdatePlayers)), 2)

	// duplicate name goes to the sender only
	bob.send(model.EventJoinRoom, map[string]string{"roomId": string(roomID), "playerName": "Alice"})
	s.JSONEq(`"Player already exists."`, string(bob.expect(model.EventErrorMessage).Data))

	s.app.MockRandom.QueueIntn(0)
	bob.send(model.EventStartGame, map[string]string{"roomId": string(roomID)})
	for _, c := range []*wsClient{alice, bob} {
		var drawer protocol.Player
		s.Require().NoError(json.Unmarshal(c.expect(model.EventStartGame).Data, &drawer))
		s.Equal(alice.id, drawer.ID)
		s.True(drawer.IsDrawer)
		c.expect(model.EventUpdatePlayers)
	}

	alice.send(model.EventWordSelected, map[string]string{"roomId": string(roomID), "word": "apple"})
	alice.expect(model.EventWordSelected)
	bob.expect(model.EventWordSelected)

	alice.send(model.EventDrawIncremental, map[string]any{"roomId": roomID, "drawingData": map[string]int{"x": 1}})
	s.JSONEq(`{"x":1}`, string(bob.expect(model.EventDrawIncremental).Data))

	bob.send(model.EventComment, map[string]string{"roomId": string(roomID), "socketId": bob.id, "comment": "apple?"})
	for _, c := range []*wsClient{alice, bob} {
		var comment protocol.CommentPayload
		s.Require().NoError(json.Unmarshal(c.expect(model.EventComment).Data, &comment))
		s.Require().NotNil(comment.Author)
		s.Equal("Bob", comment.Author.Name)
	}

	alice.send(model.EventRoundOver, map[string]string{"roomId": string(roomID), "socketId": bob.id})
	alice.expect(model.EventRoundOver)
	bob.expect(model.EventRoundOver)

	s.Require().NoError(bob.conn.Close())
	s.Equal([]protocol.Player{{ID: alice.id, Name: "Alice", IsDrawer: true}}, alice.players(alice.expect(model.EventUpdatePlayers)))

	// the drawer never saw their own strokes
	alice.expectNothing()

	rm, err := s.app.Registry.GetRoom(s.ctx, roomID)
	s.Require().NoError(err)
	s.Equal("apple", rm.CurrentWord)
	s.Len(rm.Players, 1)
}

func (s *IntegrationSuite) TestGetRoomOverREST() {
	roomID := s.createRoom("ab12cd")
	alice := s.dial()
	alice.send(model.EventJoinRoom, map[string]string{"roomId": string(roomID), "playerName": "Alice"})
	alice.expect(model.EventUpdatePlayers)

	resp, err := http.Get(s.server.URL + "/api/v1/rooms/" + string(roomID))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	var body map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal("ab12cd", body["roomId"])
	s.Len(body["players"], 1)
	s.NotContains(body, "word")
}

func TestNewWithRedisClearsStaleMembership(t *testing.T) {
	mini := miniredis.RunT(t)
	ctx := context.Background()

	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = "redis://" + mini.Addr()

	first, err := New(ctx, Config{StorageType: StorageTypeRedis, RedisConfig: &redisCfg})
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	created, err := first.Registry.CreateRoom(ctx)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	err = first.Registry.Update(ctx, created.ID, func(rm *model.Room) (bool, error) {
		rm.Players = append(rm.Players, model.Player{ConnectionID: "old-conn", Name: "Ghost"})
		return true, nil
	})
	if err != nil {
		t.Fatalf("seed player: %v", err)
	}
	_ = first.Close()

	second, err := New(ctx, Config{StorageType: StorageTypeRedis, RedisConfig: &redisCfg})
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	defer second.Close()

	rm, err := second.Registry.GetRoom(ctx, created.ID)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if len(rm.Players) != 0 {
		t.Errorf("expected stale players cleared, got %v", rm.Players)
	}
}

func TestNewWithRedisKeepsOccupiedRoomsWhenQuiet(t *testing.T) {
	mini := miniredis.RunT(t)
	ctx := context.Background()

	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = "redis://" + mini.Addr()

	app, err := New(ctx, Config{StorageType: StorageTypeRedis, RedisConfig: &redisCfg})
	require.NoError(t, err)
	defer app.Close()

	created, err := app.Registry.CreateRoom(ctx)
	require.NoError(t, err)
	err = app.Registry.Update(ctx, created.ID, func(rm *model.Room) (bool, error) {
		rm.Players = append(rm.Players, model.Player{ConnectionID: "conn-1", Name: "Alice"})
		return true, nil
	})
	require.NoError(t, err)

	mini.FastForward(25 * time.Hour)

	exists, err := app.Registry.RoomExists(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	rm, err := app.Registry.GetRoom(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, rm.Players, 1)
}

func TestNewRejectsUnknownStorage(t *testing.T) {
	if _, err := New(context.Background(), Config{StorageType: "sqlite"}); err == nil {
		t.Error("expected error for unknown storage type")
	}
	if _, err := New(context.Background(), Config{StorageType: StorageTypeRedis}); err == nil {
		t.Error("expected error for missing redis config")
	}
}
