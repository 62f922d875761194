package admin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/pequito193/PCD-Projeto/internal/quiz"
	"github.com/pequito193/PCD-Projeto/internal/session"
)

// Handler serves the administrative HTTP surface: creating sessions and
// listing active ones.
type Handler struct {
	registry *session.Registry
	quizzes  *quiz.Repository
}

// NewHandler creates an admin handler over the registry and the loaded
// quiz repository.
func NewHandler(registry *session.Registry, quizzes *quiz.Repository) *Handler {
	return &Handler{registry: registry, quizzes: quizzes}
}

// CreateSessionRequest is the body of POST /api/sessions. Quiz is
// optional; the first quiz in the repository is the default.
type CreateSessionRequest struct {
	Teams          int    `json:"teams"`
	PlayersPerTeam int    `json:"players_per_team"`
	Quiz           string `json:"quiz,omitempty"`
}

// CreateSessionResponse carries the generated join code.
type CreateSessionResponse struct {
	Code string `json:"code"`
	Quiz string `json:"quiz"`
}

// CreateSession handles POST /api/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	qz := h.quizzes.Default()
	if req.Quiz != "" {
		var err error
		qz, err = h.quizzes.ByName(req.Quiz)
		if err != nil {
			if errors.Is(err, quiz.ErrQuizNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	sess, err := h.registry.CreateSession(req.Teams, req.PlayersPerTeam, qz)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, CreateSessionResponse{
		Code: sess.Code(),
		Quiz: sess.QuizName(),
	})
}

// ListSessions handles GET /api/sessions with current roster fill levels.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.List())
}

// ListQuizzes handles GET /api/quizzes.
func (h *Handler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.quizzes.Names())
}

// RegisterRoutes registers the admin endpoints on the router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/sessions", h.CreateSession).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions", h.ListSessions).Methods(http.MethodGet)
	r.HandleFunc("/api/quizzes", h.ListQuizzes).Methods(http.MethodGet)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode admin response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
