package api

import (
	"context"
	"net/http"

	"github.com/okian/rice/internal/adapters/records"
	service "github.com/okian/rice/internal/app"
	"github.com/okian/rice/internal/domain/model"
)

// SessionDependencies defines the session lifecycle operations.
type SessionDependencies interface {
	CreateSession(ctx context.Context, in service.CreateSessionInput) (*model.Session, error)
	GetSession(ctx context.Context, sessionID string) (service.SessionState, error)
	ListSessions(ctx context.Context) ([]*model.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	Join(ctx context.Context, sessionID string, in service.JoinInput) (model.Participant, error)
	ListParticipants(ctx context.Context, sessionID string) ([]model.Participant, error)
	Advance(ctx context.Context, sessionID, actorID string) (*model.Session, error)
	Retreat(ctx context.Context, sessionID, actorID string) (*model.Session, error)
	ForceAdvanceAll(ctx context.Context, sessionID, actorID string) (*model.Session, error)
	Reveal(ctx context.Context, sessionID, actorID string) (service.RevealOutcome, error)
	Initiative(ctx context.Context, sessionID string) (records.Initiative, error)
}

// SessionHandler handles session, participant and stage requests.
type SessionHandler struct {
	deps SessionDependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionDependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

// HandleCreate handles POST /sessions.
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSessionInput
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sess, err := h.deps.CreateSession(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// HandleList handles GET /sessions.
func (h *SessionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.deps.ListSessions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// HandleGet handles GET /sessions/{id}. Clients poll it for the full state.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	state, err := h.deps.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// HandleDelete handles DELETE /sessions/{id}.
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleJoin handles POST /sessions/{id}/participants.
func (h *SessionHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	var req service.JoinInput
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.deps.Join(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleParticipants handles GET /sessions/{id}/participants.
func (h *SessionHandler) HandleParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.deps.ListParticipants(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participants)
}

type stageMove func(ctx context.Context, sessionID, actorID string) (*model.Session, error)

func (h *SessionHandler) handleMove(w http.ResponseWriter, r *http.Request, move stageMove) {
	actor, err := actorID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := move(r.Context(), r.PathValue("id"), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// HandleAdvance handles POST /sessions/{id}/advance.
func (h *SessionHandler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	h.handleMove(w, r, h.deps.Advance)
}

// HandleRetreat handles POST /sessions/{id}/retreat.
func (h *SessionHandler) HandleRetreat(w http.ResponseWriter, r *http.Request) {
	h.handleMove(w, r, h.deps.Retreat)
}

// HandleForceAdvance handles POST /sessions/{id}/force-advance.
func (h *SessionHandler) HandleForceAdvance(w http.ResponseWriter, r *http.Request) {
	h.handleMove(w, r, h.deps.ForceAdvanceAll)
}

// HandleReveal handles POST /sessions/{id}/reveal.
func (h *SessionHandler) HandleReveal(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := h.deps.Reveal(r.Context(), r.PathValue("id"), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleInitiative handles GET /sessions/{id}/initiative.
func (h *SessionHandler) HandleInitiative(w http.ResponseWriter, r *http.Request) {
	in, err := h.deps.Initiative(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}
