package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/hilthontt/roomkeeper/internal/domain"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/crypto"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/logging"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/metrics"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// scriptedIDs hands out queued ids first and random ones afterwards.
type scriptedIDs struct {
	mu    sync.Mutex
	queue []string
}

func (s *scriptedIDs) Push(ids ...string) {
	s.mu.Lock()
	s.queue = append(s.queue, ids...)
	s.mu.Unlock()
}

func (s *scriptedIDs) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return uuid.NewString()
	}
	id := s.queue[0]
	s.queue = s.queue[1:]
	return id
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.RoomAuditLog
	fail   atomic.Bool
}

func (p *recordingPublisher) Publish(ctx context.Context, event *domain.RoomAuditLog) error {
	if p.fail.Load() {
		return errors.New("broker unavailable")
	}
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Types() []domain.RoomEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.RoomEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

// flakyStore fails every Save while failing is set.
type flakyStore struct {
	domain.RoomStore
	failing atomic.Bool
}

var errDiskFull = errors.New("disk full")

func (s *flakyStore) Save(ctx context.Context, state domain.RoomState) error {
	if s.failing.Load() {
		return errDiskFull
	}
	return s.RoomStore.Save(ctx, state)
}

type LifecycleEngineSuite struct {
	suite.Suite
	ctx       context.Context
	clock     *fakeClock
	ids       *scriptedIDs
	registry  domain.RoomRegistry
	store     *flakyStore
	publisher *recordingPublisher
	engine    LifecycleEngine
}

func TestLifecycleEngineSuite(t *testing.T) {
	suite.Run(t, new(LifecycleEngineSuite))
}

func (s *LifecycleEngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	s.ids = &scriptedIDs{}
	s.registry = repository.NewRoomRegistry(100)
	s.store = &flakyStore{RoomStore: repository.NewMemoryStore()}
	s.publisher = &recordingPublisher{}
	s.engine = s.newEngine(s.registry)
}

func (s *LifecycleEngineSuite) newEngine(registry domain.RoomRegistry) LifecycleEngine {
	return NewLifecycleEngine(
		registry,
		s.store,
		crypto.NewBcryptGuard(bcrypt.MinCost),
		s.publisher,
		logging.NewNopLogger(),
		metrics.New(prometheus.NewRegistry()),
		Options{
			MaxCapacity:        10,
			DefaultCapacity:    4,
			DissolvedRetention: 24 * time.Hour,
			Clock:              s.clock.Now,
			NewID:              s.ids.Next,
		},
	)
}

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}

func (s *LifecycleEngineSuite) create(capacity int, password string) CreateRoomResult {
	result, err := s.engine.Create(s.ctx, CreateRoomParams{
		Name:            "Book club",
		Capacity:        intPtr(capacity),
		Password:        password,
		CreatorNickname: "A",
	})
	s.Require().NoError(err)
	return result
}

func (s *LifecycleEngineSuite) TestCapacityScenario() {
	created := s.create(2, "")
	s.Require().Len(created.Room.Participants, 1)
	s.True(created.Room.Participants[0].IsCreator)
	s.Equal(created.ParticipantID, created.Room.CreatorID)

	roomID := created.Room.ID

	b, err := s.engine.Join(s.ctx, roomID, JoinRoomParams{Nickname: "B"})
	s.Require().NoError(err)
	s.Len(b.Room.Participants, 2)

	_, err = s.engine.Join(s.ctx, roomID, JoinRoomParams{Nickname: "C"})
	s.Require().ErrorIs(err, domain.ErrRoomFull)

	afterLeave, err := s.engine.Leave(s.ctx, roomID, b.ParticipantID)
	s.Require().NoError(err)
	s.Len(afterLeave.Participants, 1)

	c, err := s.engine.Join(s.ctx, roomID, JoinRoomParams{Nickname: "C"})
	s.Require().NoError(err)
	s.Len(c.Room.Participants, 2)

	s.Contains(s.publisher.Types(), domain.EventRoomFull)
}

func (s *LifecycleEngineSuite) TestPasswordScenario() {
	created := s.create(4, "secret")
	roomID := created.Room.ID
	s.True(created.Room.HasPassword)

	ok, err := s.engine.VerifyPassword(s.ctx, roomID, "wrong")
	s.Require().NoError(err)
	s.False(ok)

	_, err = s.engine.Join(s.ctx, roomID, JoinRoomParams{Nickname: "X", Password: "wrong"})
	s.Require().ErrorIs(err, domain.ErrInvalidPassword)

	joined, err := s.engine.Join(s.ctx, roomID, JoinRoomParams{Nickname: "X", Password: "secret"})
	s.Require().NoError(err)
	s.Len(joined.Room.Participants, 2)
}

func (s *LifecycleEngineSuite) TestSequentialJoinsStopAtCapacity() {
	const capacity = 5
	roomID := s.create(capacity, "").Room.ID

	for i := 1; i < capacity; i++ {
		_, err := s.engine.Join(s.ctx, roomID, JoinRoomParams{Nickname: fmt.Sprintf("guest-%d", i)})
		s.Require().NoError(err)
	}
	for i := 0; i < 3; i++ {
		_, err := s.engine.Join(s.ctx, roomID, JoinRoomParams{Nickname: "late"})
		s.Require().ErrorIs(err, domain.ErrRoomFull)
	}

	snapshot, err := s.engine.Get(s.ctx, roomID)
	s.Require().NoError(err)
	s.Len(snapshot.Participants, capacity)
	s.Equal(capacity, snapshot.ParticipantCount)
}

func (s *LifecycleEngineSuite) TestRacingJoinsForTheLastSlot() {
	const (
		rounds   = 50
		capacity = 5
		racers   = 16
	)

	for round := 0; round < rounds; round++ {
		roomID := s.create(capacity, "").Room.ID
		for i := 1; i < capacity-1; i++ {
			_, err := s.engine.Join(s.ctx, roomID, JoinRoomParams{Nickname: fmt.Sprintf("seat-%d", i)})
			s.Require().NoError(err)
		}

		var (
			wg         sync.WaitGroup
			admitted   atomic.Int32
			rejected   atomic.Int32
			unexpected atomic.Int32
		)
		start := make(chan struct{})
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, err := s.engine.Join(s.ctx, roomID, JoinRoomParams{Nickname: fmt.Sprintf("racer-%d", i)})
				switch {
				case err == nil:
					admitted.Add(1)
				case errors.Is(err, domain.ErrRoomFull):
					rejected.Add(1)
				default:
					unexpected.Add(1)
				}
			}(i)
		}
		close(start)
		wg.Wait()

		s.Require().EqualValues(1, admitted.Load(), "round %d", round)
		s.Require().EqualValues(racers-1, rejected.Load(), "round %d", round)
		s.Require().Zero(unexpected.Load(), "round %d", round)

		snapshot, err := s.engine.Get(s.ctx, roomID)
		s.Require().NoError(err)
		s.Require().Len(snapshot.Participants, capacity)
	}
}

func (s *LifecycleEngineSuite) TestDissolveTwice() {
	created := s.create(3, "")
	roomID := created.Room.ID
	_, err := s.engine.Join(s.ctx, roomID, JoinRoomParams{Nickname: "B"})
	s.Require().NoError(err)

	dissolved, err := s.engine.Dissolve(s.ctx, roomID, created.ParticipantID)
	s.Require().NoError(err)
	s.Equal(domain.RoomStatusDissolved, dissolved.Status)
	s.Empty(dissolved.Participants)
	s.Require().NotNil(dissolved.DissolvedAt)

	_, err = s.engine.Dissolve(s.ctx, roomID, created.ParticipantID)
	s.Require().ErrorIs(err, domain.ErrAlreadyDissolved)

	snapshot, err := s.engine.Get(s.ctx, roomID)
	s.Require().NoError(err)
	s.Equal(dissolved, snapshot)

	stats, err := s.engine.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(domain.Stats{OpenRooms: 0, DissolvedRooms: 1, TotalParticipants: 0}, stats)
}

func (s *LifecycleEngineSuite) TestDissolvedRoomRejectsMembershipOperations() {
	created := s.create(3, "pw")
	roomID := created.Room.ID
	_, err := s.engine.Dissolve(s.ctx, roomID, created.ParticipantID)
	s.Require().NoError(err)

	_, err = s.engine.Join(s.ctx, roomID, JoinRoomParams{Nickname: "B", Password: "pw"})
	s.ErrorIs(err, domain.ErrRoomNotFound)

	_, err = s.engine.Leave(s.ctx, roomID, created.ParticipantID)
	s.ErrorIs(err, domain.ErrRoomNotFound)

	_, err = s.engine.Update(s.ctx, roomID, UpdateRoomParams{OperatorID: created.ParticipantID, Name: strPtr("x")})
	s.ErrorIs(err, domain.ErrRoomNotFound)

	_, err = s.engine.VerifyPassword(s.ctx, roomID, "pw")
	s.ErrorIs(err, domain.ErrRoomNotFound)
}

func (s *LifecycleEngineSuite) TestUnknownRoom() {
	_, err := s.engine.Get(s.ctx, "missing")
	s.ErrorIs(err, domain.ErrRoomNotFound)

	_, err = s.engine.Join(s.ctx, "missing", JoinRoomParams{Nickname: "B"})
	s.ErrorIs(err, domain.ErrRoomNotFound)

	_, err = s.engine.Leave(s.ctx, "missing", "someone")
	s.ErrorIs(err, domain.ErrRoomNotFound)

	_, err = s.engine.Update(s.ctx, "missing", UpdateRoomParams{OperatorID: "someone"})
	s.ErrorIs(err, domain.ErrRoomNotFound)

	_, err = s.engine.Dissolve(s.ctx, "missing", "someone")
	s.ErrorIs(err, domain.ErrRoomNotFound)

	_, err = s.engine.VerifyPassword(s.ctx, "missing", "pw")
	s.ErrorIs(err, domain.ErrRoomNotFound)
}

func (s *LifecycleEngineSuite) TestLeaveUnknownParticipant() {
	roomID := s.create(3, "").Room.ID

	_, err := s.engine.Leave(s.ctx, roomID, "stranger")
	s.ErrorIs(err, domain.ErrParticipantNotFound)
	s.ErrorIs(err, domain.ErrNotFound)

	_, err = s.engine.Leave(s.ctx, roomID, "")
	s.ErrorIs(err, domain.ErrParticipantNotFound)
}

func (s *LifecycleEngineSuite) TestNonCreatorCannotUpdateOrDissolve() {
	created := s.create(4, "")
	roomID := created.Room.ID
	guest, err := s.engine.Join(s.ctx, roomID, JoinRoomParams{Nickname: "B"})
	s.Require().NoError(err)

	before, err := s.engine.Get(s.ctx, roomID)
	s.Require().NoError(err)

	name := strPtr("renamed")
	capacity := intPtr(6)
	password := strPtr("new-secret")
	announcement := strPtr("hello")

	operators := []string{guest.ParticipantID, "", "stranger"}
	for _, operator := range operators {
		for mask := 0; mask < 16; mask++ {
			params := UpdateRoomParams{OperatorID: operator}
			if mask&1 != 0 {
				params.Name = name
			}
			if mask&2 != 0 {
				params.Capacity = capacity
			}
			if mask&4 != 0 {
				params.Password = password
			}
			if mask&8 != 0 {
				params.Announcement = announcement
			}

			_, err := s.engine.Update(s.ctx, roomID, params)
			s.Require().ErrorIs(err, domain.ErrForbidden, "operator %q mask %d", operator, mask)
		}

		_, err := s.engine.Dissolve(s.ctx, roomID, operator)
		s.Require().ErrorIs(err, domain.ErrForbidden, "operator %q", operator)
	}

	after, err := s.engine.Get(s.ctx, roomID)
	s.Require().NoError(err)
	s.Equal(before, after)
}

func (s *LifecycleEngineSuite) TestForbiddenComesBeforeValidation() {
	created := s.create(4, "")
	guest, err := s.engine.Join(s.ctx, created.Room.ID, JoinRoomParams{Nickname: "B"})
	s.Require().NoError(err)

	_, err = s.engine.Update(s.ctx, created.Room.ID, UpdateRoomParams{
		OperatorID: guest.ParticipantID,
		Capacity:   intPtr(0),
		Name:       strPtr(""),
	})
	s.ErrorIs(err, domain.ErrForbidden)
}

func (s *LifecycleEngineSuite) TestCreatorUpdates() {
	created := s.create(4, "")
	roomID := created.Room.ID
	s.clock.Advance(time.Minute)

	updated, err := s.engine.Update(s.ctx, roomID, UpdateRoomParams{
		OperatorID:   created.ParticipantID,
		Name:         strPtr("  Chess club  "),
		Capacity:     intPtr(8),
		Announcement: strPtr("bring boards"),
	})
	s.Require().NoError(err)
	s.Equal("Chess club", updated.Name)
	s.Equal(8, updated.Capacity)
	s.Equal("bring boards", updated.Announcement)
	s.True(updated.UpdatedAt.After(updated.CreatedAt))
	s.Contains(s.publisher.Types(), domain.EventRoomUpdated)

	stored, err := s.store.LoadAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(stored, 1)
	s.Equal("Chess club", stored[0].Name)
}

func (s *LifecycleEngineSuite) TestEmptyUpdateIsNoop() {
	created := s.create(4, "")
	events := len(s.publisher.Types())

	snapshot, err := s.engine.Update(s.ctx, created.Room.ID, UpdateRoomParams{OperatorID: created.ParticipantID})
	s.Require().NoError(err)
	s.Equal(created.Room, snapshot)
	s.Len(s.publisher.Types(), events)
}

func (s *LifecycleEngineSuite) TestUpdateIsRepeatable() {
	created := s.create(4, "")
	params := UpdateRoomParams{OperatorID: created.ParticipantID, Capacity: intPtr(6)}

	first, err := s.engine.Update(s.ctx, created.Room.ID, params)
	s.Require().NoError(err)
	second, err := s.engine.Update(s.ctx, created.Room.ID, params)
	s.Require().NoError(err)
	s.Equal(first.Capacity, second.Capacity)
}

func (s *LifecycleEngineSuite) TestCapacityFloor() {
	created := s.create(4, "")
	roomID := created.Room.ID
	for _, nick := range []string{"B", "C"} {
		_, err := s.engine.Join(s.ctx, roomID, JoinRoomParams{Nickname: nick})
		s.Require().NoError(err)
	}

	_, err := s.engine.Update(s.ctx, roomID, UpdateRoomParams{OperatorID: created.ParticipantID, Capacity: intPtr(2)})
	s.Require().ErrorIs(err, domain.ErrInvalidConfig)

	for _, capacity := range []int{0, -1, 11} {
		_, err := s.engine.Update(s.ctx, roomID, UpdateRoomParams{OperatorID: created.ParticipantID, Capacity: intPtr(capacity)})
		s.Require().ErrorIs(err, domain.ErrInvalidConfig, "capacity %d", capacity)
	}

	snapshot, err := s.engine.Get(s.ctx, roomID)
	s.Require().NoError(err)
	s.Equal(4, snapshot.Capacity)

	snapshot, err = s.engine.Update(s.ctx, roomID, UpdateRoomParams{OperatorID: created.ParticipantID, Capacity: intPtr(3)})
	s.Require().NoError(err)
	s.Equal(3, snapshot.Capacity)
}

func (s *LifecycleEngineSuite) TestPasswordRoundTripNeverLeaksHash() {
	created := s.create(4, "hunter2")
	roomID := created.Room.ID

	ok, err := s.engine.VerifyPassword(s.ctx, roomID, "hunter2")
	s.Require().NoError(err)
	s.True(ok)

	snapshot, err := s.engine.Get(s.ctx, roomID)
	s.Require().NoError(err)
	page, err := s.engine.List(s.ctx, domain.RoomFilter{})
	s.Require().NoError(err)

	stored, err := s.store.LoadAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(stored, 1)
	hash := stored[0].PasswordHash
	s.Require().NotEmpty(hash)
	s.NotEqual("hunter2", hash)

	for _, out := range []any{created, snapshot, page} {
		raw, err := json.Marshal(out)
		s.Require().NoError(err)
		s.NotContains(string(raw), hash)
		s.NotContains(string(raw), "hunter2")
	}

	// Changing the password invalidates the old one; clearing it opens the room.
	_, err = s.engine.Update(s.ctx, roomID, UpdateRoomParams{OperatorID: created.ParticipantID, Password: strPtr("swordfish")})
	s.Require().NoError(err)
	ok, err = s.engine.VerifyPassword(s.ctx, roomID, "hunter2")
	s.Require().NoError(err)
	s.False(ok)
	_, err = s.engine.Join(s.ctx, roomID, JoinRoomParams{Nickname: "B", Password: "hunter2"})
	s.ErrorIs(err, domain.ErrInvalidPassword)

	cleared, err := s.engine.Update(s.ctx, roomID, UpdateRoomParams{OperatorID: created.ParticipantID, Password: strPtr("")})
	s.Require().NoError(err)
	s.False(cleared.HasPassword)

	ok, err = s.engine.VerifyPassword(s.ctx, roomID, "anything")
	s.Require().NoError(err)
	s.True(ok)
	_, err = s.engine.Join(s.ctx, roomID, JoinRoomParams{Nickname: "B"})
	s.NoError(err)
}

func (s *LifecycleEngineSuite) TestPasswordIgnoredForUnprotectedRoom() {
	roomID := s.create(4, "").Room.ID

	_, err := s.engine.Join(s.ctx, roomID, JoinRoomParams{Nickname: "B", Password: "whatever"})
	s.NoError(err)
}

func (s *LifecycleEngineSuite) TestCreateValidation() {
	cases := []CreateRoomParams{
		{Name: "   ", CreatorNickname: "A"},
		{Name: "ok", CreatorNickname: ""},
		{Name: "ok", CreatorNickname: "A", Password: string(make([]byte, domain.MaxPasswordBytes+1))},
	}
	for i, params := range cases {
		_, err := s.engine.Create(s.ctx, params)
		s.ErrorIs(err, domain.ErrInvalidConfig, "case %d", i)
	}

	stats, err := s.engine.Stats(s.ctx)
	s.Require().NoError(err)
	s.Zero(stats.OpenRooms)
}

func (s *LifecycleEngineSuite) TestCreateClampsCapacity() {
	cases := []struct {
		requested *int
		expected  int
	}{
		{nil, 4},
		{intPtr(0), 1},
		{intPtr(-3), 1},
		{intPtr(7), 7},
		{intPtr(99), 10},
	}
	for _, tc := range cases {
		result, err := s.engine.Create(s.ctx, CreateRoomParams{
			Name:            "clamp",
			Capacity:        tc.requested,
			CreatorNickname: "A",
		})
		s.Require().NoError(err)
		s.Equal(tc.expected, result.Room.Capacity)
	}

	lone := s.create(1, "")
	_, err := s.engine.Join(s.ctx, lone.Room.ID, JoinRoomParams{Nickname: "B"})
	s.ErrorIs(err, domain.ErrRoomFull)
}

func (s *LifecycleEngineSuite) TestCreateRetriesIDCollisions() {
	s.ids.Push("creator-1", "room-1")
	first := s.create(2, "")
	s.Equal("room-1", first.Room.ID)

	s.ids.Push("creator-2", "room-1", "room-2")
	second := s.create(2, "")
	s.Equal("room-2", second.Room.ID)

	s.ids.Push("creator-3", "room-1", "room-2", "room-1")
	_, err := s.engine.Create(s.ctx, CreateRoomParams{Name: "x", CreatorNickname: "A"})
	s.ErrorIs(err, domain.ErrRoomAlreadyExists)
}

func (s *LifecycleEngineSuite) TestStoreFailureLeavesNoTrace() {
	created := s.create(3, "")
	roomID := created.Room.ID
	before, err := s.engine.Get(s.ctx, roomID)
	s.Require().NoError(err)
	events := len(s.publisher.Types())

	s.store.failing.Store(true)

	_, err = s.engine.Create(s.ctx, CreateRoomParams{Name: "doomed", CreatorNickname: "A"})
	s.ErrorIs(err, errDiskFull)

	_, err = s.engine.Join(s.ctx, roomID, JoinRoomParams{Nickname: "B"})
	s.ErrorIs(err, errDiskFull)

	_, err = s.engine.Update(s.ctx, roomID, UpdateRoomParams{OperatorID: created.ParticipantID, Name: strPtr("renamed")})
	s.ErrorIs(err, errDiskFull)

	_, err = s.engine.Dissolve(s.ctx, roomID, created.ParticipantID)
	s.ErrorIs(err, errDiskFull)

	_, err = s.engine.Leave(s.ctx, roomID, created.ParticipantID)
	s.ErrorIs(err, errDiskFull)

	after, err := s.engine.Get(s.ctx, roomID)
	s.Require().NoError(err)
	s.Equal(before, after)

	stats, err := s.engine.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(domain.Stats{OpenRooms: 1, TotalParticipants: 1}, stats)
	s.Len(s.publisher.Types(), events)

	s.store.failing.Store(false)
	_, err = s.engine.Join(s.ctx, roomID, JoinRoomParams{Nickname: "B"})
	s.NoError(err)
}

func (s *LifecycleEngineSuite) TestPublishFailureDoesNotFailOperation() {
	s.publisher.fail.Store(true)

	created := s.create(2, "")
	_, err := s.engine.Join(s.ctx, created.Room.ID, JoinRoomParams{Nickname: "B"})
	s.NoError(err)
}

func (s *LifecycleEngineSuite) TestEventsFollowOperations() {
	created := s.create(2, "")
	roomID := created.Room.ID
	guest, err := s.engine.Join(s.ctx, roomID, JoinRoomParams{Nickname: "B"})
	s.Require().NoError(err)
	_, err = s.engine.Leave(s.ctx, roomID, guest.ParticipantID)
	s.Require().NoError(err)
	_, err = s.engine.Dissolve(s.ctx, roomID, created.ParticipantID)
	s.Require().NoError(err)

	s.Equal([]domain.RoomEventType{
		domain.EventRoomCreated,
		domain.EventMemberJoined,
		domain.EventMemberLeft,
		domain.EventRoomDissolved,
	}, s.publisher.Types())
}

func (s *LifecycleEngineSuite) TestCreatorLeavingOrphansPrivilegedOperations() {
	created := s.create(3, "")
	roomID := created.Room.ID
	guest, err := s.engine.Join(s.ctx, roomID, JoinRoomParams{Nickname: "B"})
	s.Require().NoError(err)

	snapshot, err := s.engine.Leave(s.ctx, roomID, created.ParticipantID)
	s.Require().NoError(err)
	s.Equal(domain.RoomStatusOpen, snapshot.Status)
	s.Equal(created.ParticipantID, snapshot.CreatorID)

	_, err = s.engine.Dissolve(s.ctx, roomID, created.ParticipantID)
	s.ErrorIs(err, domain.ErrForbidden)
	_, err = s.engine.Dissolve(s.ctx, roomID, guest.ParticipantID)
	s.ErrorIs(err, domain.ErrForbidden)

	_, err = s.engine.Join(s.ctx, roomID, JoinRoomParams{Nickname: "C"})
	s.NoError(err)
}

func (s *LifecycleEngineSuite) TestListAndStats() {
	for _, name := range []string{"Alpha", "beta", "Alphabet"} {
		_, err := s.engine.Create(s.ctx, CreateRoomParams{Name: name, CreatorNickname: "A"})
		s.Require().NoError(err)
		s.clock.Advance(time.Second)
	}

	page, err := s.engine.List(s.ctx, domain.RoomFilter{Keyword: "alpha"})
	s.Require().NoError(err)
	s.Equal(2, page.Total)
	s.Require().Len(page.Items, 2)
	s.Equal("Alphabet", page.Items[0].Name)

	page, err = s.engine.List(s.ctx, domain.RoomFilter{Page: 2, PageSize: 2})
	s.Require().NoError(err)
	s.Equal(3, page.Total)
	s.Len(page.Items, 1)

	stats, err := s.engine.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(domain.Stats{OpenRooms: 3, TotalParticipants: 3}, stats)
}

func (s *LifecycleEngineSuite) TestSweepDissolved() {
	created := s.create(2, "")
	roomID := created.Room.ID
	_, err := s.engine.Dissolve(s.ctx, roomID, created.ParticipantID)
	s.Require().NoError(err)

	s.Zero(s.engine.SweepDissolved(s.ctx))

	s.clock.Advance(25 * time.Hour)
	s.Equal(1, s.engine.SweepDissolved(s.ctx))

	_, err = s.engine.Get(s.ctx, roomID)
	s.ErrorIs(err, domain.ErrRoomNotFound)

	stored, err := s.store.LoadAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(stored)

	s.Contains(s.publisher.Types(), domain.EventRoomExpired)
}

func (s *LifecycleEngineSuite) TestRunJanitorStopsWithContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() {
		done <- s.engine.RunJanitor(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(2 * time.Second):
		s.Fail("janitor did not stop")
	}
}

func (s *LifecycleEngineSuite) TestRestore() {
	protected := s.create(3, "secret")
	_, err := s.engine.Join(s.ctx, protected.Room.ID, JoinRoomParams{Nickname: "B", Password: "secret"})
	s.Require().NoError(err)

	gone := s.create(2, "")
	_, err = s.engine.Dissolve(s.ctx, gone.Room.ID, gone.ParticipantID)
	s.Require().NoError(err)

	restored := s.newEngine(repository.NewRoomRegistry(100))
	n, err := restored.Restore(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)

	snapshot, err := restored.Get(s.ctx, protected.Room.ID)
	s.Require().NoError(err)
	s.Len(snapshot.Participants, 2)

	ok, err := restored.VerifyPassword(s.ctx, protected.Room.ID, "secret")
	s.Require().NoError(err)
	s.True(ok)

	stats, err := restored.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(domain.Stats{OpenRooms: 1, DissolvedRooms: 1, TotalParticipants: 2}, stats)

	_, err = restored.Dissolve(s.ctx, gone.Room.ID, gone.ParticipantID)
	s.ErrorIs(err, domain.ErrAlreadyDissolved)
}
