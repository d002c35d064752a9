package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hilthontt/roomkeeper/internal/domain"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/logging"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/metrics"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/tracing"
)

const publishTimeout = 2 * time.Second

// LifecycleEngine is the operation surface for rooms. Every mutation runs
// inside the target room's exclusive scope and is persisted before it is
// committed, so callers see all of an operation or none of it.
type LifecycleEngine interface {
	Create(ctx context.Context, params CreateRoomParams) (CreateRoomResult, error)
	Join(ctx context.Context, roomID string, params JoinRoomParams) (JoinRoomResult, error)
	Leave(ctx context.Context, roomID, participantID string) (domain.RoomSnapshot, error)
	Update(ctx context.Context, roomID string, params UpdateRoomParams) (domain.RoomSnapshot, error)
	Dissolve(ctx context.Context, roomID, operatorID string) (domain.RoomSnapshot, error)
	VerifyPassword(ctx context.Context, roomID, password string) (bool, error)
	Get(ctx context.Context, roomID string) (domain.RoomSnapshot, error)
	List(ctx context.Context, filter domain.RoomFilter) (domain.RoomPage, error)
	Stats(ctx context.Context) (domain.Stats, error)

	// Restore loads persisted rooms into the registry. Call once at startup.
	Restore(ctx context.Context) (int, error)
	// SweepDissolved drops dissolved rooms past their retention.
	SweepDissolved(ctx context.Context) int
	// RunJanitor sweeps on every interval until ctx is done.
	RunJanitor(ctx context.Context) error
}

type lifecycleEngine struct {
	registry  domain.RoomRegistry
	store     domain.RoomStore
	guard     domain.PasswordGuard
	publisher domain.RoomEventPublisher
	logger    logging.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	opts      Options
}

func NewLifecycleEngine(
	registry domain.RoomRegistry,
	store domain.RoomStore,
	guard domain.PasswordGuard,
	publisher domain.RoomEventPublisher,
	logger logging.Logger,
	m *metrics.Metrics,
	opts Options,
) LifecycleEngine {
	return &lifecycleEngine{
		registry:  registry,
		store:     store,
		guard:     guard,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
		tracer:    tracing.GetTracer("roomkeeper/rooms"),
		opts:      opts.withDefaults(),
	}
}

func (e *lifecycleEngine) Create(ctx context.Context, params CreateRoomParams) (result CreateRoomResult, err error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "room.Create")
	defer func() {
		e.metrics.ObserveOperation("create", start, err)
		endSpan(span, err)
	}()

	name, err := domain.NormalizeRoomName(params.Name)
	if err != nil {
		return CreateRoomResult{}, err
	}
	nickname, err := domain.NormalizeNickname(params.CreatorNickname)
	if err != nil {
		return CreateRoomResult{}, err
	}
	announcement, err := domain.NormalizeAnnouncement(params.Announcement)
	if err != nil {
		return CreateRoomResult{}, err
	}
	if err := domain.ValidatePassword(params.Password); err != nil {
		return CreateRoomResult{}, err
	}

	var passwordHash string
	if params.Password != "" {
		if passwordHash, err = e.guard.Hash(params.Password); err != nil {
			return CreateRoomResult{}, fmt.Errorf("hash room password: %w", err)
		}
	}

	capacity := clampCapacity(params.Capacity, e.opts.DefaultCapacity, e.opts.MaxCapacity)
	now := e.opts.Clock()
	creatorID := e.opts.NewID()

	var room *domain.Room
	for attempt := 0; attempt < maxIDAttempts && room == nil; attempt++ {
		id := e.opts.NewID()
		if _, err := e.registry.Get(ctx, id); err == nil {
			continue
		}
		room, err = domain.NewRoom(domain.NewRoomConfig{
			ID:              id,
			Name:            name,
			Capacity:        capacity,
			PasswordHash:    passwordHash,
			Announcement:    announcement,
			CreatorID:       creatorID,
			CreatorNickname: nickname,
			Now:             now,
		})
		if err != nil {
			return CreateRoomResult{}, err
		}
	}
	if room == nil {
		return CreateRoomResult{}, fmt.Errorf("allocate room id: %w", domain.ErrRoomAlreadyExists)
	}
	span.SetAttributes(attribute.String("room.id", room.ID()))

	// The initial write happens in the room's scope before the room becomes
	// reachable through the registry.
	state, err := room.Mutate(func(next *domain.RoomState) error {
		return e.persist(ctx, *next)
	})
	if err != nil {
		e.logger.Error(logging.Room, logging.Create, "failed to persist new room", map[logging.ExtraKey]any{
			logging.RoomID:       room.ID(),
			logging.ErrorMessage: err,
		})
		return CreateRoomResult{}, err
	}

	if err := e.registry.Create(ctx, room); err != nil {
		return CreateRoomResult{}, fmt.Errorf("register room: %w", err)
	}

	e.logger.Info(logging.Room, logging.Create, "room created", map[logging.ExtraKey]any{
		logging.RoomID:     state.ID,
		logging.Capacity:   state.Capacity,
		logging.OperatorID: creatorID,
	})
	e.publish(ctx, domain.NewRoomCreatedLog(state))

	return CreateRoomResult{
		Room:          state.Snapshot(),
		ParticipantID: creatorID,
	}, nil
}

func (e *lifecycleEngine) Join(ctx context.Context, roomID string, params JoinRoomParams) (result JoinRoomResult, err error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "room.Join", trace.WithAttributes(attribute.String("room.id", roomID)))
	defer func() {
		e.metrics.ObserveOperation("join", start, err)
		endSpan(span, err)
	}()

	nickname, err := domain.NormalizeNickname(params.Nickname)
	if err != nil {
		return JoinRoomResult{}, err
	}

	room, err := e.registry.Get(ctx, roomID)
	if err != nil {
		return JoinRoomResult{}, err
	}

	// The password is checked against a snapshot outside the scope. The scope
	// re-checks only if the hash moved.
	current := room.State()
	if !current.IsOpen() {
		return JoinRoomResult{}, domain.ErrRoomNotFound
	}
	if current.HasPassword() && !e.guard.Verify(params.Password, current.PasswordHash) {
		e.metrics.IncrementJoinRejected("invalid_password")
		e.logger.Warn(logging.Room, logging.Join, "join rejected: invalid password", map[logging.ExtraKey]any{
			logging.RoomID: roomID,
		})
		return JoinRoomResult{}, domain.ErrInvalidPassword
	}

	now := e.opts.Clock()
	participant := domain.NewParticipant(e.opts.NewID(), nickname, now)

	state, err := room.Mutate(func(next *domain.RoomState) error {
		if next.HasPassword() && next.PasswordHash != current.PasswordHash &&
			!e.guard.Verify(params.Password, next.PasswordHash) {
			return domain.ErrInvalidPassword
		}
		if err := next.Admit(participant, now); err != nil {
			return err
		}
		return e.persist(ctx, *next)
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRoomFull):
			e.metrics.IncrementJoinRejected("room_full")
			e.publish(ctx, domain.NewRoomFullRejectionLog(roomID, now))
		case errors.Is(err, domain.ErrInvalidPassword):
			e.metrics.IncrementJoinRejected("invalid_password")
		}
		return JoinRoomResult{}, err
	}

	e.logger.Info(logging.Room, logging.Join, "participant joined", map[logging.ExtraKey]any{
		logging.RoomID:        roomID,
		logging.ParticipantID: participant.ID,
		logging.MemberCount:   len(state.Participants),
	})
	e.publish(ctx, domain.NewMemberJoinedLog(state, participant.ID))

	return JoinRoomResult{
		Room:          state.Snapshot(),
		ParticipantID: participant.ID,
	}, nil
}

func (e *lifecycleEngine) Leave(ctx context.Context, roomID, participantID string) (snapshot domain.RoomSnapshot, err error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "room.Leave", trace.WithAttributes(attribute.String("room.id", roomID)))
	defer func() {
		e.metrics.ObserveOperation("leave", start, err)
		endSpan(span, err)
	}()

	if participantID == "" {
		return domain.RoomSnapshot{}, domain.ErrParticipantNotFound
	}

	room, err := e.registry.Get(ctx, roomID)
	if err != nil {
		return domain.RoomSnapshot{}, err
	}

	now := e.opts.Clock()
	state, err := room.Mutate(func(next *domain.RoomState) error {
		if _, err := next.RemoveParticipant(participantID, now); err != nil {
			return err
		}
		return e.persist(ctx, *next)
	})
	if err != nil {
		return domain.RoomSnapshot{}, err
	}

	if participantID == state.CreatorID {
		e.logger.Warn(logging.Room, logging.Leave, "creator left; privileged operations are no longer available for this room", map[logging.ExtraKey]any{
			logging.RoomID: roomID,
		})
	}
	e.publish(ctx, domain.NewMemberLeftLog(state, participantID))

	return state.Snapshot(), nil
}

func (e *lifecycleEngine) Update(ctx context.Context, roomID string, params UpdateRoomParams) (snapshot domain.RoomSnapshot, err error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "room.Update", trace.WithAttributes(attribute.String("room.id", roomID)))
	defer func() {
		e.metrics.ObserveOperation("update", start, err)
		endSpan(span, err)
	}()

	room, err := e.registry.Get(ctx, roomID)
	if err != nil {
		return domain.RoomSnapshot{}, err
	}

	// The creator never changes, so authorizing against a snapshot is final.
	// It keeps non-creators from getting validation feedback or burning a
	// password hash.
	current := room.State()
	if !current.IsOpen() {
		return domain.RoomSnapshot{}, domain.ErrRoomNotFound
	}
	if err := current.Authorize(params.OperatorID); err != nil {
		e.logger.Warn(logging.Room, logging.Update, "unauthorized update attempt", map[logging.ExtraKey]any{
			logging.RoomID:     roomID,
			logging.OperatorID: params.OperatorID,
		})
		return domain.RoomSnapshot{}, err
	}

	update, err := e.buildUpdate(params)
	if err != nil {
		return domain.RoomSnapshot{}, err
	}

	now := e.opts.Clock()
	state, err := room.Mutate(func(next *domain.RoomState) error {
		if err := next.ApplyUpdate(params.OperatorID, update, e.opts.MaxCapacity, now); err != nil {
			return err
		}
		if update.IsEmpty() {
			return nil
		}
		return e.persist(ctx, *next)
	})
	if err != nil {
		return domain.RoomSnapshot{}, err
	}

	if !update.IsEmpty() {
		fields := changedFields(update)
		e.logger.Info(logging.Room, logging.Update, "room updated", map[logging.ExtraKey]any{
			logging.RoomID:   roomID,
			logging.Capacity: state.Capacity,
		})
		e.publish(ctx, domain.NewRoomUpdatedLog(state, params.OperatorID, fields))
	}

	return state.Snapshot(), nil
}

// buildUpdate validates the supplied fields and hashes a new password.
func (e *lifecycleEngine) buildUpdate(params UpdateRoomParams) (domain.RoomUpdate, error) {
	update := domain.RoomUpdate{Capacity: params.Capacity}

	if params.Name != nil {
		name, err := domain.NormalizeRoomName(*params.Name)
		if err != nil {
			return domain.RoomUpdate{}, err
		}
		update.Name = &name
	}
	if params.Announcement != nil {
		announcement, err := domain.NormalizeAnnouncement(*params.Announcement)
		if err != nil {
			return domain.RoomUpdate{}, err
		}
		update.Announcement = &announcement
	}
	if params.Password != nil {
		if err := domain.ValidatePassword(*params.Password); err != nil {
			return domain.RoomUpdate{}, err
		}
		hash := ""
		if *params.Password != "" {
			var err error
			if hash, err = e.guard.Hash(*params.Password); err != nil {
				return domain.RoomUpdate{}, fmt.Errorf("hash room password: %w", err)
			}
		}
		update.PasswordHash = &hash
	}

	return update, nil
}

func (e *lifecycleEngine) Dissolve(ctx context.Context, roomID, operatorID string) (snapshot domain.RoomSnapshot, err error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "room.Dissolve", trace.WithAttributes(attribute.String("room.id", roomID)))
	defer func() {
		e.metrics.ObserveOperation("dissolve", start, err)
		endSpan(span, err)
	}()

	room, err := e.registry.Get(ctx, roomID)
	if err != nil {
		return domain.RoomSnapshot{}, err
	}

	now := e.opts.Clock()
	var memberCount int
	state, err := room.Mutate(func(next *domain.RoomState) error {
		memberCount = len(next.Participants)
		if err := next.Dissolve(operatorID, now); err != nil {
			return err
		}
		return e.persist(ctx, *next)
	})
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			e.logger.Warn(logging.Room, logging.Dissolve, "unauthorized dissolve attempt", map[logging.ExtraKey]any{
				logging.RoomID:     roomID,
				logging.OperatorID: operatorID,
			})
		}
		return domain.RoomSnapshot{}, err
	}

	// The room lock is released here, so taking the registry lock keeps the
	// room-then-registry order.
	if err := e.registry.Remove(ctx, roomID, state.DissolvedAt); err != nil {
		return domain.RoomSnapshot{}, fmt.Errorf("retire room: %w", err)
	}

	e.logger.Info(logging.Room, logging.Dissolve, "room dissolved", map[logging.ExtraKey]any{
		logging.RoomID:      roomID,
		logging.MemberCount: memberCount,
	})
	e.publish(ctx, domain.NewRoomDissolvedLog(state, memberCount))

	return state.Snapshot(), nil
}

func (e *lifecycleEngine) VerifyPassword(ctx context.Context, roomID, password string) (match bool, err error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "room.VerifyPassword", trace.WithAttributes(attribute.String("room.id", roomID)))
	defer func() {
		e.metrics.ObserveOperation("verify_password", start, err)
		endSpan(span, err)
	}()

	room, err := e.registry.Get(ctx, roomID)
	if err != nil {
		return false, err
	}

	state := room.State()
	if !state.IsOpen() {
		return false, domain.ErrRoomNotFound
	}
	if !state.HasPassword() {
		return true, nil
	}
	return e.guard.Verify(password, state.PasswordHash), nil
}

func (e *lifecycleEngine) Get(ctx context.Context, roomID string) (domain.RoomSnapshot, error) {
	room, err := e.registry.Get(ctx, roomID)
	if err != nil {
		return domain.RoomSnapshot{}, err
	}
	return room.Snapshot(), nil
}

func (e *lifecycleEngine) List(ctx context.Context, filter domain.RoomFilter) (domain.RoomPage, error) {
	return e.registry.List(ctx, filter)
}

func (e *lifecycleEngine) Stats(ctx context.Context) (domain.Stats, error) {
	return e.registry.Stats(ctx), nil
}

func (e *lifecycleEngine) Restore(ctx context.Context) (int, error) {
	states, err := e.store.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load rooms: %w", err)
	}
	if err := e.registry.Restore(ctx, states); err != nil {
		return 0, err
	}

	e.logger.Info(logging.Room, logging.Restore, "rooms restored", map[logging.ExtraKey]any{
		logging.Count: len(states),
	})
	return len(states), nil
}

func (e *lifecycleEngine) persist(ctx context.Context, state domain.RoomState) error {
	if err := e.store.Save(ctx, state); err != nil {
		return fmt.Errorf("save room: %w", err)
	}
	return nil
}

// publish emits an audit event after commit. Failures are logged and never
// fail the operation that produced the event.
func (e *lifecycleEngine) publish(ctx context.Context, event *domain.RoomAuditLog) {
	if e.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.metrics.IncrementAuditPublishFailure()
		e.logger.Error(logging.Room, logging.Audit, "failed to publish room event", map[logging.ExtraKey]any{
			logging.RoomID:       event.RoomID,
			logging.EventType:    event.EventType,
			logging.ErrorMessage: err,
		})
	}
}
