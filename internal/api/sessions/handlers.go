// internal/api/sessions/handlers.go
package sessions

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Shuttleicious/internal/api/apiutil"
	"github.com/codr1/Shuttleicious/internal/api/htmx"
	appdb "github.com/codr1/Shuttleicious/internal/db"
	"github.com/codr1/Shuttleicious/internal/pairing"
	"github.com/codr1/Shuttleicious/internal/roster"
	sessionsvc "github.com/codr1/Shuttleicious/internal/sessions"
)

const sessionRequestTimeout = 10 * time.Second

var (
	stateMu       sync.RWMutex
	service       *sessionsvc.Service
	provider      *roster.Provider
	defaultPolicy pairing.Policy
	maxMinGames   = pairing.MaxMinGamesPerPlayer
)

// InitHandlers must be called during server startup before handling requests.
// maxGames caps min_games on generate requests; values outside
// 1..pairing.MaxMinGamesPerPlayer fall back to the engine cap.
func InitHandlers(svc *sessionsvc.Service, rosterProvider *roster.Provider, defaults pairing.Policy, maxGames int) {
	if svc == nil || rosterProvider == nil {
		return
	}
	if maxGames < 1 || maxGames > pairing.MaxMinGamesPerPlayer {
		maxGames = pairing.MaxMinGamesPerPlayer
	}
	stateMu.Lock()
	defer stateMu.Unlock()
	service = svc
	provider = rosterProvider
	defaultPolicy = defaults
	maxMinGames = maxGames
}

func loadState() (*sessionsvc.Service, *roster.Provider, pairing.Policy) {
	stateMu.RLock()
	defer stateMu.RUnlock()
	return service, provider, defaultPolicy
}

func loadMaxMinGames() int {
	stateMu.RLock()
	defer stateMu.RUnlock()
	return maxMinGames
}

// RegisterRoutes mounts the session, profile and attendance endpoints.
// generateMiddleware wraps only the generate endpoint.
func RegisterRoutes(mux *http.ServeMux, generateMiddleware ...func(http.Handler) http.Handler) {
	var generate http.Handler = http.HandlerFunc(HandleGenerate)
	for i := len(generateMiddleware) - 1; i >= 0; i-- {
		generate = generateMiddleware[i](generate)
	}
	mux.Handle("POST /api/v1/sessions/generate", generate)
	mux.HandleFunc("GET /api/v1/sessions", HandleSessionsList)
	mux.HandleFunc("GET /api/v1/sessions/{id}", HandleSessionDetail)
	mux.HandleFunc("POST /api/v1/sessions/{id}/status", HandleSessionStatus)
	mux.HandleFunc("GET /api/v1/sessions/{id}/players/{playerID}/matches", HandlePlayerMatches)
	mux.HandleFunc("GET /api/v1/profiles", HandleProfilesList)
	mux.HandleFunc("PUT /api/v1/profiles/{id}", HandleProfileSave)
	mux.HandleFunc("POST /api/v1/attendance", HandleAttendanceRecord)
}

type generateRequest struct {
	Date       string  `json:"date"`
	Mode       *string `json:"mode,omitempty"`
	MinGames   *int    `json:"min_games,omitempty"`
	GenderRule *string `json:"gender_rule,omitempty"`
}

// pairingErrorResponse is the 422 body for rosters the engine rejects.
type pairingErrorResponse struct {
	Kind      pairing.ErrorKind `json:"kind"`
	Message   string            `json:"message"`
	PlayerIDs []string          `json:"player_ids"`
}

// POST /api/v1/sessions/generate
func HandleGenerate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	svc, _, defaults := loadState()
	if svc == nil {
		logger.Error().Msg("Session service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req generateRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid JSON body", Err: err})
		return
	}

	date, policy, err := req.params(defaults, loadMaxMinGames())
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), sessionRequestTimeout)
	defer cancel()

	session, err := svc.Generate(ctx, sessionsvc.GenerateParams{Date: date, Policy: policy})
	if err != nil {
		if genErr, ok := pairing.AsGenerationError(err); ok {
			logger.Info().
				Str("kind", string(genErr.Kind)).
				Strs("player_ids", genErr.PlayerIDs).
				Msg("Pairing request rejected")
			writeJSON(w, r, http.StatusUnprocessableEntity, pairingErrorResponse{
				Kind:      genErr.Kind,
				Message:   genErr.Message,
				PlayerIDs: nonNil(genErr.PlayerIDs),
			})
			return
		}
		apiutil.WriteError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, session)
}

func (req generateRequest) params(defaults pairing.Policy, maxGames int) (time.Time, pairing.Policy, error) {
	date, err := apiutil.ParseDate(req.Date, "date")
	if err != nil {
		return time.Time{}, pairing.Policy{}, err
	}

	policy := defaults
	if req.Mode != nil {
		mode, err := pairing.ParseMode(*req.Mode)
		if err != nil {
			return time.Time{}, pairing.Policy{}, apiutil.FieldError{Field: "mode", Reason: "must be one of by_level, random, mixed_gender"}
		}
		policy.Mode = mode
	}
	if req.MinGames != nil {
		if err := apiutil.CheckIntRange(*req.MinGames, "min_games", 1, maxGames); err != nil {
			return time.Time{}, pairing.Policy{}, err
		}
		policy.MinGamesPerPlayer = *req.MinGames
	}
	if req.GenderRule != nil {
		rule, err := pairing.ParseGenderRule(*req.GenderRule)
		if err != nil {
			return time.Time{}, pairing.Policy{}, apiutil.FieldError{Field: "gender_rule", Reason: "must be mixed or mixed_or_same_sex"}
		}
		policy.GenderRule = rule
	}
	return date, policy, nil
}

// GET /api/v1/sessions?date=YYYY-MM-DD
func HandleSessionsList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	svc, _, _ := loadState()
	if svc == nil {
		logger.Error().Msg("Session service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	date, err := apiutil.ParseDate(r.URL.Query().Get("date"), "date")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), sessionRequestTimeout)
	defer cancel()

	list, err := svc.ListByDate(ctx, date)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"sessions": list})
}

// GET /api/v1/sessions/{id}
func HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	svc, _, _ := loadState()
	if svc == nil {
		logger.Error().Msg("Session service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), sessionRequestTimeout)
	defer cancel()

	session, err := svc.Get(ctx, r.PathValue("id"))
	if err != nil {
		apiutil.WriteError(w, r, sessionError(err))
		return
	}

	if htmx.IsRequest(r) {
		renderHTMLComponent(r.Context(), w, courtSheetComponent(session), "Failed to render court sheet", "Failed to render court sheet")
		return
	}
	writeJSON(w, r, http.StatusOK, session)
}

type statusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// POST /api/v1/sessions/{id}/status
func HandleSessionStatus(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	svc, _, _ := loadState()
	if svc == nil {
		logger.Error().Msg("Session service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req statusRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid JSON body", Err: err})
		return
	}
	status, err := sessionsvc.ParseStatus(strings.TrimSpace(req.Status))
	if err != nil {
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "status", Reason: "must be one of scheduled, ongoing, completed, cancelled"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), sessionRequestTimeout)
	defer cancel()

	session, err := svc.Transition(ctx, r.PathValue("id"), status, strings.TrimSpace(req.Reason))
	if err != nil {
		apiutil.WriteError(w, r, sessionError(err))
		return
	}
	writeJSON(w, r, http.StatusOK, session)
}

// playerMatch is a match seen from one player's side of the net.
type playerMatch struct {
	pairing.Match
	Opponents pairing.Team `json:"opponents"`
}

type playerMatchesResponse struct {
	SessionID string        `json:"session_id"`
	PlayerID  string        `json:"player_id"`
	Games     int           `json:"games"`
	Matches   []playerMatch `json:"matches"`
}

// GET /api/v1/sessions/{id}/players/{playerID}/matches
func HandlePlayerMatches(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	svc, _, _ := loadState()
	if svc == nil {
		logger.Error().Msg("Session service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), sessionRequestTimeout)
	defer cancel()

	session, err := svc.Get(ctx, r.PathValue("id"))
	if err != nil {
		apiutil.WriteError(w, r, sessionError(err))
		return
	}

	playerID := r.PathValue("playerID")
	games, ok := session.Tally[playerID]
	if !ok {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusNotFound, Message: "Player was not in this session"})
		return
	}
	matches := make([]playerMatch, 0, games)
	for _, m := range session.MatchesFor(playerID) {
		opponents, _ := m.Opponents(playerID)
		matches = append(matches, playerMatch{Match: m, Opponents: opponents})
	}
	writeJSON(w, r, http.StatusOK, playerMatchesResponse{
		SessionID: session.ID,
		PlayerID:  playerID,
		Games:     games,
		Matches:   matches,
	})
}

// GET /api/v1/profiles
func HandleProfilesList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	_, rosterProvider, _ := loadState()
	if rosterProvider == nil {
		logger.Error().Msg("Roster provider not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), sessionRequestTimeout)
	defer cancel()

	profiles, err := rosterProvider.ListProfiles(ctx)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"profiles": nonNil(profiles)})
}

type profileRequest struct {
	Name       string `json:"name"`
	SkillCode  string `json:"skill_code,omitempty"`
	SkillLevel string `json:"skill_level,omitempty"`
	Gender     string `json:"gender,omitempty"`
}

// PUT /api/v1/profiles/{id}
func HandleProfileSave(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	_, rosterProvider, _ := loadState()
	if rosterProvider == nil {
		logger.Error().Msg("Roster provider not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req profileRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid JSON body", Err: err})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), sessionRequestTimeout)
	defer cancel()

	profile, err := rosterProvider.SaveProfile(ctx, roster.Profile{
		ID:         r.PathValue("id"),
		Name:       req.Name,
		SkillCode:  req.SkillCode,
		SkillLevel: req.SkillLevel,
		Gender:     req.Gender,
	})
	if err != nil {
		if errors.Is(err, roster.ErrInvalidProfile) {
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err})
			return
		}
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, profile)
}

type attendanceRequest struct {
	ProfileID string `json:"profile_id"`
	Date      string `json:"date"`
	Status    string `json:"status"`
}

// POST /api/v1/attendance
func HandleAttendanceRecord(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	_, rosterProvider, _ := loadState()
	if rosterProvider == nil {
		logger.Error().Msg("Roster provider not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req attendanceRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid JSON body", Err: err})
		return
	}
	if strings.TrimSpace(req.ProfileID) == "" {
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "profile_id", Reason: "is required"})
		return
	}
	date, err := apiutil.ParseDate(req.Date, "date")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), sessionRequestTimeout)
	defer cancel()

	err = rosterProvider.RecordAttendance(ctx, req.ProfileID, date, req.Status)
	switch {
	case errors.Is(err, roster.ErrInvalidStatus):
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "status", Reason: "must be one of present, absent, late"})
		return
	case errors.Is(err, roster.ErrProfileNotFound):
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusNotFound, Message: "Profile not found", Err: err})
		return
	case err != nil:
		apiutil.WriteError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, attendanceRequest{
		ProfileID: req.ProfileID,
		Date:      date.Format(appdb.DateLayout),
		Status:    strings.ToLower(strings.TrimSpace(req.Status)),
	})
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, sessionsvc.ErrSessionNotFound):
		return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Session not found", Err: err}
	case errors.Is(err, sessionsvc.ErrInvalidTransition):
		return apiutil.HandlerError{Status: http.StatusConflict, Message: err.Error(), Err: err}
	default:
		return err
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if err := apiutil.WriteJSON(w, status, payload); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write JSON response")
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func renderHTMLComponent(ctx context.Context, w http.ResponseWriter, component templ.Component, logMsg string, errMsg string) bool {
	logger := log.Ctx(ctx)
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		logger.Error().Err(err).Msg(logMsg)
		http.Error(w, errMsg, http.StatusInternalServerError)
		return false
	}
	w.Header().Set("Content-Type", "text/html")
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Error().Err(err).Msg("Failed to write response")
	}
	return true
}
