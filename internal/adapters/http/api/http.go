// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/okian/rice/internal/domain/types"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// actorHeader carries the acting participant when the body does not.
const actorHeader = "X-Participant-ID"

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SessionDependencies
	VoteDependencies
	ResultDependencies
	CatalogDependencies
	EventDependencies
}

// Entry mirrors the read shape returned by report queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	sessionHandler *SessionHandler
	voteHandler    *VoteHandler
	resultHandler  *ResultHandler
	catalogHandler *CatalogHandler
	eventsHandler  *EventsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		sessionHandler: NewSessionHandler(deps),
		voteHandler:    NewVoteHandler(deps),
		resultHandler:  NewResultHandler(deps),
		catalogHandler: NewCatalogHandler(deps),
		eventsHandler:  NewEventsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	route("GET /stats", "stats", s.statsHandler.HandleStats)

	route("POST /sessions", "sessions", s.sessionHandler.HandleCreate)
	route("GET /sessions", "sessions", s.sessionHandler.HandleList)
	route("GET /sessions/{id}", "session", s.sessionHandler.HandleGet)
	route("DELETE /sessions/{id}", "session", s.sessionHandler.HandleDelete)
	route("POST /sessions/{id}/participants", "participants", s.sessionHandler.HandleJoin)
	route("GET /sessions/{id}/participants", "participants", s.sessionHandler.HandleParticipants)
	route("POST /sessions/{id}/advance", "advance", s.sessionHandler.HandleAdvance)
	route("POST /sessions/{id}/retreat", "retreat", s.sessionHandler.HandleRetreat)
	route("POST /sessions/{id}/force-advance", "force_advance", s.sessionHandler.HandleForceAdvance)
	route("POST /sessions/{id}/reveal", "reveal", s.sessionHandler.HandleReveal)
	route("GET /sessions/{id}/initiative", "initiative", s.sessionHandler.HandleInitiative)

	route("PUT /sessions/{id}/votes/{dimension}", "votes", s.voteHandler.HandlePutVote)

	route("POST /sessions/{id}/result", "result", s.resultHandler.HandleFinalize)
	route("GET /sessions/{id}/result", "result", s.resultHandler.HandleGetResult)
	route("GET /sessions/{id}/scores", "scores", s.resultHandler.HandleScores)
	route("GET /sessions/{id}/rank", "rank", s.resultHandler.HandleRank)
	route("GET /results", "results", s.resultHandler.HandleReport)
	route("GET /thresholds", "thresholds", s.resultHandler.HandleThresholds)

	route("GET /sessions/{id}/catalog", "session_catalog", s.catalogHandler.HandleSessionCatalog)
	route("GET /catalogs/{id}", "catalog", s.catalogHandler.HandleGet)
	route("PUT /catalogs/{id}", "catalog", s.catalogHandler.HandlePut)
	route("PATCH /catalogs/{id}", "catalog_patch", s.catalogHandler.HandlePatch)
	route("PUT /catalogs/{id}/{kind}", "catalog_collection", s.catalogHandler.HandleReplaceCollection)

	// The event stream is long lived; request duration metrics would only
	// measure how long clients stayed connected.
	mux.HandleFunc("GET /sessions/{id}/events", s.eventsHandler.HandleStream)
}

// actorRequest is the body of the facilitator-only session actions.
type actorRequest struct {
	ActorID string `json:"actor_id"`
}

// actorID reads the acting participant from the body or the header.
func actorID(r *http.Request) (string, error) {
	var req actorRequest
	if err := decodeOptional(r, &req); err != nil {
		return "", err
	}
	id := strings.TrimSpace(req.ActorID)
	if id == "" {
		id = strings.TrimSpace(r.Header.Get(actorHeader))
	}
	if id == "" {
		return "", fmt.Errorf("%w: actor_id or %s is required", ErrBadRequest, actorHeader)
	}
	return id, nil
}

// decode reads a JSON body into v.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

// decodeOptional is decode for bodies that may be empty.
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	err := decode(r, v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if rw, ok := w.(*responseWriter); ok {
		rw.errorCode = code
	}
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
