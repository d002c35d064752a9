package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/hilthontt/roomkeeper/internal/domain"
)

var baseTime = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type RoomRegistrySuite struct {
	suite.Suite
	registry domain.RoomRegistry
	ctx      context.Context
}

func (s *RoomRegistrySuite) SetupTest() {
	s.registry = NewRoomRegistry(3)
	s.ctx = context.Background()
}

func TestRoomRegistrySuite(t *testing.T) {
	suite.Run(t, new(RoomRegistrySuite))
}

func (s *RoomRegistrySuite) newRoom(name string, createdAt time.Time) *domain.Room {
	room, err := domain.NewRoom(domain.NewRoomConfig{
		ID:              uuid.NewString(),
		Name:            name,
		Capacity:        4,
		CreatorID:       uuid.NewString(),
		CreatorNickname: "owner",
		Now:             createdAt,
	})
	s.Require().NoError(err)
	return room
}

func (s *RoomRegistrySuite) dissolve(room *domain.Room, at time.Time) {
	state, err := room.Mutate(func(next *domain.RoomState) error {
		return next.Dissolve(next.CreatorID, at)
	})
	s.Require().NoError(err)
	s.Require().NoError(s.registry.Remove(s.ctx, state.ID, at))
}

// TestCreationAndLookups verifies rooms are stored and resolved by id.
func (s *RoomRegistrySuite) TestCreationAndLookups() {
	s.Run("creates and finds room by id", func() {
		room := s.newRoom("Lobby", baseTime)
		s.Require().NoError(s.registry.Create(s.ctx, room))

		found, err := s.registry.Get(s.ctx, room.ID())
		s.Require().NoError(err)
		s.Same(room, found)
	})

	s.Run("returns ErrRoomNotFound for unknown and empty ids", func() {
		_, err := s.registry.Get(s.ctx, uuid.NewString())
		s.Require().ErrorIs(err, domain.ErrRoomNotFound)

		_, err = s.registry.Get(s.ctx, "")
		s.Require().ErrorIs(err, domain.ErrNotFound)
	})

	s.Run("refuses ids it already knows", func() {
		room := s.newRoom("Twice", baseTime)
		s.Require().NoError(s.registry.Create(s.ctx, room))
		s.Require().ErrorIs(s.registry.Create(s.ctx, room), domain.ErrRoomAlreadyExists)

		s.dissolve(room, baseTime.Add(time.Minute))
		s.Require().ErrorIs(s.registry.Create(s.ctx, room), domain.ErrRoomAlreadyExists)
	})

	s.Run("rejects nil rooms", func() {
		s.Require().ErrorIs(s.registry.Create(s.ctx, nil), domain.ErrInvalidConfig)
	})
}

// TestDissolvedRoomsStayResolvable verifies removal moves rooms to the history.
func (s *RoomRegistrySuite) TestDissolvedRoomsStayResolvable() {
	room := s.newRoom("Gone", baseTime)
	s.Require().NoError(s.registry.Create(s.ctx, room))
	s.dissolve(room, baseTime.Add(time.Minute))

	found, err := s.registry.Get(s.ctx, room.ID())
	s.Require().NoError(err)
	s.Equal(domain.RoomStatusDissolved, found.Summary().Status)

	s.Require().NoError(s.registry.Remove(s.ctx, room.ID(), baseTime.Add(2*time.Minute)))
	s.Require().ErrorIs(s.registry.Remove(s.ctx, uuid.NewString(), baseTime), domain.ErrRoomNotFound)
}

// TestList verifies ordering, filtering and pagination clamps.
func (s *RoomRegistrySuite) TestList() {
	alpha := s.newRoom("Alpha study", baseTime)
	beta := s.newRoom("Beta games", baseTime.Add(time.Minute))
	gamma := s.newRoom("Gamma STUDY", baseTime.Add(2*time.Minute))
	for _, room := range []*domain.Room{alpha, beta, gamma} {
		s.Require().NoError(s.registry.Create(s.ctx, room))
	}
	s.dissolve(beta, baseTime.Add(time.Hour))

	s.Run("newest first with defaults", func() {
		page, err := s.registry.List(s.ctx, domain.RoomFilter{})
		s.Require().NoError(err)
		s.Equal(3, page.Total)
		s.Equal(1, page.Page)
		s.Equal(domain.DefaultPageSize, page.PageSize)
		s.Require().Len(page.Items, 3)
		s.Equal(gamma.ID(), page.Items[0].ID)
		s.Equal(beta.ID(), page.Items[1].ID)
		s.Equal(alpha.ID(), page.Items[2].ID)
	})

	s.Run("keyword is a case-insensitive substring", func() {
		page, err := s.registry.List(s.ctx, domain.RoomFilter{Keyword: "study"})
		s.Require().NoError(err)
		s.Equal(2, page.Total)
		s.Equal(gamma.ID(), page.Items[0].ID)
		s.Equal(alpha.ID(), page.Items[1].ID)
	})

	s.Run("status filter", func() {
		page, err := s.registry.List(s.ctx, domain.RoomFilter{Status: domain.RoomStatusDissolved})
		s.Require().NoError(err)
		s.Require().Len(page.Items, 1)
		s.Equal(beta.ID(), page.Items[0].ID)
		s.Equal(0, page.Items[0].ParticipantCount)

		page, err = s.registry.List(s.ctx, domain.RoomFilter{Status: domain.RoomStatusOpen})
		s.Require().NoError(err)
		s.Equal(2, page.Total)
	})

	s.Run("pagination", func() {
		page, err := s.registry.List(s.ctx, domain.RoomFilter{Page: 2, PageSize: 2})
		s.Require().NoError(err)
		s.Equal(3, page.Total)
		s.Require().Len(page.Items, 1)
		s.Equal(alpha.ID(), page.Items[0].ID)

		page, err = s.registry.List(s.ctx, domain.RoomFilter{Page: 9, PageSize: 2})
		s.Require().NoError(err)
		s.NotNil(page.Items)
		s.Empty(page.Items)

		page, err = s.registry.List(s.ctx, domain.RoomFilter{Page: -1, PageSize: 1000})
		s.Require().NoError(err)
		s.Equal(1, page.Page)
		s.Equal(domain.MaxPageSize, page.PageSize)
	})
}

// TestListTieBreaksOnID verifies deterministic ordering for equal timestamps.
func (s *RoomRegistrySuite) TestListTieBreaksOnID() {
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.registry.Create(s.ctx, s.newRoom(fmt.Sprintf("room %d", i), baseTime)))
	}

	page, err := s.registry.List(s.ctx, domain.RoomFilter{})
	s.Require().NoError(err)
	for i := 1; i < len(page.Items); i++ {
		s.Less(page.Items[i-1].ID, page.Items[i].ID)
	}
}

// TestStats verifies open, dissolved and participant counts.
func (s *RoomRegistrySuite) TestStats() {
	open := s.newRoom("Open", baseTime)
	closed := s.newRoom("Closed", baseTime)
	s.Require().NoError(s.registry.Create(s.ctx, open))
	s.Require().NoError(s.registry.Create(s.ctx, closed))

	_, err := open.Mutate(func(next *domain.RoomState) error {
		return next.Admit(domain.NewParticipant(uuid.NewString(), "guest", baseTime), baseTime)
	})
	s.Require().NoError(err)
	s.dissolve(closed, baseTime.Add(time.Minute))

	stats := s.registry.Stats(s.ctx)
	s.Equal(domain.Stats{OpenRooms: 1, DissolvedRooms: 1, TotalParticipants: 2}, stats)
}

// TestEvictDissolved verifies age-based and size-based history eviction.
func (s *RoomRegistrySuite) TestEvictDissolved() {
	s.Run("evicts entries older than the cutoff", func() {
		old := s.newRoom("Old", baseTime)
		fresh := s.newRoom("Fresh", baseTime)
		s.Require().NoError(s.registry.Create(s.ctx, old))
		s.Require().NoError(s.registry.Create(s.ctx, fresh))
		s.dissolve(old, baseTime.Add(time.Minute))
		s.dissolve(fresh, baseTime.Add(time.Hour))

		evicted := s.registry.EvictDissolved(s.ctx, baseTime.Add(30*time.Minute))
		s.Equal([]string{old.ID()}, evicted)

		_, err := s.registry.Get(s.ctx, old.ID())
		s.Require().ErrorIs(err, domain.ErrRoomNotFound)
		_, err = s.registry.Get(s.ctx, fresh.ID())
		s.Require().NoError(err)
	})

	s.Run("keeps at most the history limit", func() {
		registry := NewRoomRegistry(2)
		var ids []string
		for i := 0; i < 4; i++ {
			room := s.newRoom(fmt.Sprintf("room %d", i), baseTime)
			s.Require().NoError(registry.Create(s.ctx, room))
			at := baseTime.Add(time.Duration(i) * time.Minute)
			_, err := room.Mutate(func(next *domain.RoomState) error {
				return next.Dissolve(next.CreatorID, at)
			})
			s.Require().NoError(err)
			s.Require().NoError(registry.Remove(s.ctx, room.ID(), at))
			ids = append(ids, room.ID())
		}

		evicted := registry.EvictDissolved(s.ctx, baseTime)
		s.Equal(ids[:2], evicted)
		s.Equal(2, registry.Stats(s.ctx).DissolvedRooms)
	})
}

// TestRestore verifies persisted states rebuild the active set and history.
func (s *RoomRegistrySuite) TestRestore() {
	open := s.newRoom("Open", baseTime)
	closed := s.newRoom("Closed", baseTime)
	_, err := closed.Mutate(func(next *domain.RoomState) error {
		return next.Dissolve(next.CreatorID, baseTime.Add(time.Minute))
	})
	s.Require().NoError(err)

	states := []domain.RoomState{open.State(), closed.State()}
	s.Require().NoError(s.registry.Restore(s.ctx, states))

	stats := s.registry.Stats(s.ctx)
	s.Equal(1, stats.OpenRooms)
	s.Equal(1, stats.DissolvedRooms)

	s.Require().ErrorIs(s.registry.Restore(s.ctx, states[:1]), domain.ErrRoomAlreadyExists)

	evicted := s.registry.EvictDissolved(s.ctx, baseTime.Add(time.Hour))
	s.Equal([]string{closed.ID()}, evicted)
}

// TestConcurrentAccess exercises the registry lock together with room locks.
func (s *RoomRegistrySuite) TestConcurrentAccess() {
	rooms := make([]*domain.Room, 20)
	for i := range rooms {
		rooms[i] = s.newRoom(fmt.Sprintf("room %d", i), baseTime.Add(time.Duration(i)*time.Second))
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(rooms))
	for _, room := range rooms {
		wg.Add(1)
		go func(room *domain.Room) {
			defer wg.Done()
			if err := s.registry.Create(s.ctx, room); err != nil {
				errs <- err
				return
			}
			_, _ = s.registry.List(s.ctx, domain.RoomFilter{Keyword: "room"})
			_ = s.registry.Stats(s.ctx)
		}(room)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.NoError(err)
	}

	page, err := s.registry.List(s.ctx, domain.RoomFilter{PageSize: 100})
	s.Require().NoError(err)
	s.Equal(20, page.Total)
	s.Equal(rooms[19].ID(), page.Items[0].ID)
}
