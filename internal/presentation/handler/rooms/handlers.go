package rooms

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hilthontt/roomkeeper/internal/application/usecases/room"
	"github.com/hilthontt/roomkeeper/internal/domain"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/json"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/logging"
	"github.com/hilthontt/roomkeeper/internal/presentation/utils"
)

type Handler struct {
	engine        room.LifecycleEngine
	logger        logging.Logger
	secureCookies bool
}

func NewHandler(engine room.LifecycleEngine, logger logging.Logger, secureCookies bool) *Handler {
	return &Handler{
		engine:        engine,
		logger:        logger,
		secureCookies: secureCookies,
	}
}

// ListRoomsHandler godoc
// @Summary      List rooms
// @Description  Lists rooms newest first, filtered by name keyword and status
// @Tags         rooms
// @Produce      json
// @Param        keyword  query string false "Case-insensitive name filter"
// @Param        status   query string false "open or dissolved"
// @Param        page     query int    false "Page number, starting at 1"
// @Param        pageSize query int    false "Page size, at most 100"
// @Success      200 {object} domain.RoomPage
// @Failure      400 {object} json.ErrorResponse
// @Router       /rooms [get]
func (h *Handler) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	status, err := domain.ParseRoomStatus(query.Get("status"))
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}
	page, err := intQuery(query.Get("page"))
	if err != nil {
		json.WriteBadRequestError(w, "page must be an integer")
		return
	}
	pageSize, err := intQuery(query.Get("pageSize"))
	if err != nil {
		json.WriteBadRequestError(w, "pageSize must be an integer")
		return
	}

	result, err := h.engine.List(r.Context(), domain.RoomFilter{
		Keyword:  query.Get("keyword"),
		Status:   status,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		h.writeRoomError(w, r, err)
		return
	}

	json.Write(w, http.StatusOK, result)
}

func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats(r.Context())
	if err != nil {
		h.writeRoomError(w, r, err)
		return
	}
	json.Write(w, http.StatusOK, stats)
}

// CreateRoomHandler godoc
// @Summary      Create a new room
// @Description  Creates a room with the caller as creator and first participant
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Param        request body createRoomRequest true "Room creation parameters"
// @Success      201 {object} membershipResponse
// @Failure      400 {object} json.ErrorResponse
// @Router       /rooms [post]
func (h *Handler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	result, err := h.engine.Create(r.Context(), room.CreateRoomParams{
		Name:            req.Name,
		Capacity:        req.Capacity,
		Password:        req.Password,
		Announcement:    req.Announcement,
		CreatorNickname: req.CreatorNickname,
	})
	if err != nil {
		h.writeRoomError(w, r, err)
		return
	}

	utils.SetParticipantCookie(w, result.Room.ID, result.ParticipantID, h.secureCookies)
	json.Write(w, http.StatusCreated, membershipResponse{
		Room:          result.Room,
		ParticipantID: result.ParticipantID,
	})
}

func (h *Handler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.engine.Get(r.Context(), chi.URLParam(r, "roomId"))
	if err != nil {
		h.writeRoomError(w, r, err)
		return
	}
	json.Write(w, http.StatusOK, snapshot)
}

// JoinRoomHandler godoc
// @Summary      Join a room
// @Description  Admits a new participant if the room is open, has a free slot and the password matches
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Param        roomId  path string          true "Room ID"
// @Param        request body joinRoomRequest true "Join parameters"
// @Success      200 {object} membershipResponse
// @Failure      401 {object} json.ErrorResponse "Invalid password"
// @Failure      404 {object} json.ErrorResponse "Room not found"
// @Failure      409 {object} json.ErrorResponse "Room full"
// @Router       /rooms/{roomId}/join [post]
func (h *Handler) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	var req joinRoomRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	result, err := h.engine.Join(r.Context(), roomID, room.JoinRoomParams{
		Nickname: req.Nickname,
		Password: req.Password,
	})
	if err != nil {
		h.writeRoomError(w, r, err)
		return
	}

	utils.SetParticipantCookie(w, roomID, result.ParticipantID, h.secureCookies)
	json.Write(w, http.StatusOK, membershipResponse{
		Room:          result.Room,
		ParticipantID: result.ParticipantID,
	})
}

func (h *Handler) LeaveRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	var req leaveRoomRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	snapshot, err := h.engine.Leave(r.Context(), roomID, utils.ResolveParticipantID(r, req.ParticipantID))
	if err != nil {
		h.writeRoomError(w, r, err)
		return
	}

	utils.ClearParticipantCookie(w, roomID, h.secureCookies)
	json.Write(w, http.StatusOK, snapshot)
}

// UpdateRoomHandler godoc
// @Summary      Update room settings
// @Description  Changes the supplied fields. Only the creator may update; an empty password removes protection
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Param        roomId  path string            true "Room ID"
// @Param        request body updateRoomRequest true "Fields to change"
// @Success      200 {object} domain.RoomSnapshot
// @Failure      400 {object} json.ErrorResponse
// @Failure      403 {object} json.ErrorResponse
// @Failure      404 {object} json.ErrorResponse
// @Router       /rooms/{roomId} [patch]
func (h *Handler) UpdateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req updateRoomRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	snapshot, err := h.engine.Update(r.Context(), chi.URLParam(r, "roomId"), room.UpdateRoomParams{
		OperatorID:   utils.ResolveParticipantID(r, req.OperatorID),
		Name:         req.Name,
		Capacity:     req.Capacity,
		Password:     req.Password,
		Announcement: req.Announcement,
	})
	if err != nil {
		h.writeRoomError(w, r, err)
		return
	}

	json.Write(w, http.StatusOK, snapshot)
}

func (h *Handler) DissolveRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	var req dissolveRoomRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	snapshot, err := h.engine.Dissolve(r.Context(), roomID, utils.ResolveParticipantID(r, req.OperatorID))
	if err != nil {
		h.writeRoomError(w, r, err)
		return
	}

	utils.ClearParticipantCookie(w, roomID, h.secureCookies)
	json.Write(w, http.StatusOK, snapshot)
}

func (h *Handler) VerifyPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req verifyPasswordRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	valid, err := h.engine.VerifyPassword(r.Context(), chi.URLParam(r, "roomId"), req.Password)
	if err != nil {
		h.writeRoomError(w, r, err)
		return
	}

	json.Write(w, http.StatusOK, verifyPasswordResponse{Valid: valid})
}

func (h *Handler) writeRoomError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		json.WriteError(w, http.StatusNotFound, json.CodeRoomNotFound, "Room not found")
	case errors.Is(err, domain.ErrParticipantNotFound):
		json.WriteError(w, http.StatusNotFound, json.CodeParticipantNotFound, "Participant not found in room")
	case errors.Is(err, domain.ErrForbidden):
		json.WriteError(w, http.StatusForbidden, json.CodeForbidden, "Only the room creator can do this")
	case errors.Is(err, domain.ErrRoomFull):
		json.WriteError(w, http.StatusConflict, json.CodeRoomFull, "Room is full")
	case errors.Is(err, domain.ErrInvalidPassword):
		json.WriteError(w, http.StatusUnauthorized, json.CodeInvalidPassword, "Invalid room password")
	case errors.Is(err, domain.ErrAlreadyDissolved):
		json.WriteError(w, http.StatusConflict, json.CodeAlreadyDissolved, "Room is already dissolved")
	case errors.Is(err, domain.ErrInvalidConfig):
		json.WriteErrorWithDetails(w, http.StatusBadRequest, json.CodeInvalidConfig, err.Error(), invalidConfigDetails{
			Reason: strings.TrimPrefix(err.Error(), domain.ErrInvalidConfig.Error()+": "),
		})
	default:
		h.logger.Error(logging.Room, logging.Api, "room operation failed", map[logging.ExtraKey]any{
			logging.Method:       r.Method,
			logging.Path:         r.URL.Path,
			logging.ErrorMessage: err,
		})
		json.WriteInternalError(w)
	}
}

func intQuery(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
