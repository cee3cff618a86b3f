package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/sketchrelay/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.EmptyRoomTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) newRoom(id string) *model.Room {
	return model.NewRoom(model.RoomID(id), time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
}

func (s *StorageSuite) TestSaveAndGetRoom() {
	room := s.newRoom("ab12cd")
	room.CurrentWord = "apple"
	room.Players = append(room.Players,
		model.Player{ConnectionID: "conn-1", Name: "Alice", IsDrawer: true},
		model.Player{ConnectionID: "conn-2", Name: "Bob"},
	)

	err := s.storage.SaveRoom(s.ctx, room)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetRoom(s.ctx, "ab12cd")
	s.Require().NoError(err)
	s.Equal(room.ID, retrieved.ID)
	s.Equal("apple", retrieved.CurrentWord)
	s.Equal(room.Players, retrieved.Players)
	s.True(room.CreatedAt.Equal(retrieved.CreatedAt))
}

func (s *StorageSuite) TestGetRoomWithNoPlayersHasEmptySlice() {
	_ = s.storage.SaveRoom(s.ctx, s.newRoom("ab12cd"))

	retrieved, err := s.storage.GetRoom(s.ctx, "ab12cd")
	s.Require().NoError(err)
	s.NotNil(retrieved.Players)
	s.Empty(retrieved.Players)
}

func (s *StorageSuite) TestGetRoomNotFound() {
	_, err := s.storage.GetRoom(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *StorageSuite) TestRoomExists() {
	_ = s.storage.SaveRoom(s.ctx, s.newRoom("ab12cd"))

	exists, err := s.storage.RoomExists(s.ctx, "ab12cd")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.storage.RoomExists(s.ctx, "zzzz")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *StorageSuite) TestDeleteRoom() {
	_ = s.storage.SaveRoom(s.ctx, s.newRoom("ab12cd"))

	err := s.storage.DeleteRoom(s.ctx, "ab12cd")
	s.Require().NoError(err)

	_, err = s.storage.GetRoom(s.ctx, "ab12cd")
	s.ErrorIs(err, model.ErrRoomNotFound)

	ids, err := s.storage.ListRoomIDs(s.ctx)
	s.Require().NoError(err)
	s.Empty(ids)
}

func (s *StorageSuite) TestEmptyRoomTTL() {
	_ = s.storage.SaveRoom(s.ctx, s.newRoom("ab12cd"))

	ttl := s.mini.TTL(roomKey("ab12cd"))
	s.True(ttl > 0, "Empty room should have TTL")
}

func (s *StorageSuite) TestZeroTTLKeepsRoom() {
	s.storage.cfg.EmptyRoomTTL = 0
	_ = s.storage.SaveRoom(s.ctx, s.newRoom("ab12cd"))

	s.Equal(time.Duration(0), s.mini.TTL(roomKey("ab12cd")))
}

func (s *StorageSuite) TestDefaultConfigNeverExpiresRooms() {
	s.Equal(time.Duration(0), DefaultConfig().EmptyRoomTTL)
}

func (s *StorageSuite) TestOccupiedRoomOutlivesTTL() {
	room := s.newRoom("ab12cd")
	s.Require().NoError(s.storage.SaveRoom(s.ctx, room))

	// Joining clears the expiry set while the room was empty
	room.Players = append(room.Players, model.Player{ConnectionID: "conn-1", Name: "Alice"})
	s.Require().NoError(s.storage.SaveRoom(s.ctx, room))
	s.Equal(time.Duration(0), s.mini.TTL(roomKey("ab12cd")))

	s.mini.FastForward(25 * time.Hour)

	exists, err := s.storage.RoomExists(s.ctx, "ab12cd")
	s.Require().NoError(err)
	s.True(exists)

	retrieved, err := s.storage.GetRoom(s.ctx, "ab12cd")
	s.Require().NoError(err)
	s.Len(retrieved.Players, 1)
}

func (s *StorageSuite) TestLastLeaveRestartsTTL() {
	room := s.newRoom("ab12cd")
	room.Players = append(room.Players, model.Player{ConnectionID: "conn-1", Name: "Alice"})
	s.Require().NoError(s.storage.SaveRoom(s.ctx, room))

	room.Players = room.Players[:0]
	s.Require().NoError(s.storage.SaveRoom(s.ctx, room))
	s.True(s.mini.TTL(roomKey("ab12cd")) > 0)

	s.mini.FastForward(2 * time.Hour)

	_, err := s.storage.GetRoom(s.ctx, "ab12cd")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *StorageSuite) TestListRoomIDs() {
	_ = s.storage.SaveRoom(s.ctx, s.newRoom("zz9999"))
	_ = s.storage.SaveRoom(s.ctx, s.newRoom("ab12cd"))

	ids, err := s.storage.ListRoomIDs(s.ctx)
	s.Require().NoError(err)
	s.Equal([]model.RoomID{"ab12cd", "zz9999"}, ids)
}

func (s *StorageSuite) TestListRoomIDsPrunesExpiredRooms() {
	_ = s.storage.SaveRoom(s.ctx, s.newRoom("ab12cd"))
	_ = s.storage.SaveRoom(s.ctx, s.newRoom("zz9999"))

	s.mini.FastForward(2 * time.Hour)
	_ = s.storage.SaveRoom(s.ctx, s.newRoom("fresh1"))

	ids, err := s.storage.ListRoomIDs(s.ctx)
	s.Require().NoError(err)
	s.Equal([]model.RoomID{"fresh1"}, ids)

	members, err := s.mini.Members(roomIndexKey())
	s.Require().NoError(err)
	s.Equal([]string{"fresh1"}, members)
}
