package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/julianstephens/habitkeep/internal/constants"
	herrors "github.com/julianstephens/habitkeep/internal/errors"
	"github.com/julianstephens/habitkeep/internal/logger"
	"github.com/julianstephens/habitkeep/internal/models"
	"github.com/julianstephens/habitkeep/internal/service"
)

type handlers struct {
	Deps
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime"`
}

// listResponse is a list in display order. Order carries the stored order
// so clients can sync it back unchanged.
type listResponse struct {
	Habits []*models.Habit `json:"habits"`
	Order  []string        `json:"order"`
}

type errorResponse struct {
	Error string            `json:"error"`
	Kind  herrors.ErrorKind `json:"kind"`
}

type nameRequest struct {
	Name string `json:"name"`
}

// habitPatch applies only the fields that are present.
type habitPatch struct {
	Name   *string `json:"name"`
	Star   *bool   `json:"star"`
	Status *string `json:"status"`
}

type tickRequest struct {
	Done bool `json:"done"`
}

// orderRequest either replaces the whole order or moves one habit.
type orderRequest struct {
	Order []string `json:"order"`
	ID    string   `json:"id"`
	Index int      `json:"index"`
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: h.Version,
		Uptime:  time.Since(h.StartTime).Round(time.Second).String(),
	})
}

func (h *handlers) listHabits(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.UserList(r.Context(), h.User)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var habits []*models.Habit
	switch view := r.URL.Query().Get("view"); view {
	case "", "active":
		habits = list.ActiveHabits()
	case "manage":
		habits = list.ManagementView()
	case "all":
		habits = list.Habits()
	default:
		writeError(w, r, fmt.Errorf("%w: unknown view %q", service.ErrInvalidRequest, view))
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Habits: habits, Order: list.Order()})
}

func (h *handlers) addHabit(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decode(w, r, &req) {
		return
	}
	habit, err := h.Service.AddHabit(r.Context(), h.User, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, habit)
}

func (h *handlers) updateHabit(w http.ResponseWriter, r *http.Request) {
	var patch habitPatch
	if !decode(w, r, &patch) {
		return
	}
	update := service.HabitUpdate{Name: patch.Name, Star: patch.Star}
	if patch.Status != nil {
		status, err := models.ParseStatus(*patch.Status)
		if err != nil {
			writeError(w, r, err)
			return
		}
		update.Status = &status
	}

	habit, err := h.Service.UpdateHabit(r.Context(), h.User, chi.URLParam(r, "id"), update)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

func (h *handlers) removeHabit(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.RemoveHabit(r.Context(), h.User, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) tickHabit(w http.ResponseWriter, r *http.Request) {
	var req tickRequest
	if !decode(w, r, &req) {
		return
	}
	day, err := models.ParseDay(chi.URLParam(r, "day"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	habit, err := h.Service.TickHabit(r.Context(), h.User, chi.URLParam(r, "id"), day, req.Done)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

func (h *handlers) setOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !decode(w, r, &req) {
		return
	}

	var (
		list *models.HabitList
		err  error
	)
	if req.ID != "" {
		list, err = h.Service.MoveHabit(r.Context(), h.User, req.ID, req.Index)
	} else {
		list, err = h.Service.SetOrder(r.Context(), h.User, req.Order)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, http.StatusOK, list)
}

func (h *handlers) sync(w http.ResponseWriter, r *http.Request) {
	var incoming models.HabitList
	if !decode(w, r, &incoming) {
		return
	}
	merged, err := h.Service.Sync(r.Context(), h.User, &incoming)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, http.StatusOK, merged)
}

func (h *handlers) importHabits(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, constants.MaxImportBytes)
	merged, err := h.Service.Import(r.Context(), h.User, body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, http.StatusOK, merged)
}

func (h *handlers) export(w http.ResponseWriter, r *http.Request) {
	// Buffer through the service first so a failure still gets a JSON error.
	var buf bytes.Buffer
	name, err := h.Service.Export(r.Context(), h.User, &buf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Warn("Failed to write export", "error", err)
	}
}

func (h *handlers) sessionHabits(w http.ResponseWriter, r *http.Request) {
	id := h.sessionID(w, r)
	list, err := h.Service.SessionList(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, http.StatusOK, list)
}

func (h *handlers) syncSession(w http.ResponseWriter, r *http.Request) {
	var incoming models.HabitList
	if !decode(w, r, &incoming) {
		return
	}
	id := h.sessionID(w, r)
	merged, err := h.Service.SyncSession(r.Context(), id, &incoming)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, http.StatusOK, merged)
}

func (h *handlers) endSession(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(constants.SessionCookieName)
	if err == nil && c.Value != "" {
		if err := h.Service.EndSession(r.Context(), c.Value); err != nil {
			writeError(w, r, err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// sessionID returns the request's session id, issuing a new cookie when
// the request carries none.
func (h *handlers) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(constants.SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := service.NewSessionID()
	http.SetCookie(w, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(constants.DefaultSessionTTL / time.Second),
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, constants.MaxImportBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty request body")
		}
		writeError(w, r, fmt.Errorf("%w: %w", service.ErrInvalidRequest, err))
		return false
	}
	return true
}

func writeList(w http.ResponseWriter, code int, list *models.HabitList) {
	writeJSON(w, code, listResponse{Habits: list.Habits(), Order: list.Order()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := herrors.Kind(err)
	code := kind.HTTPStatus()
	if errors.Is(err, service.ErrNoSessions) {
		code = http.StatusServiceUnavailable
	}
	if code >= http.StatusInternalServerError {
		logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "kind", kind, "error", err)
	}
	writeJSON(w, code, errorResponse{Error: err.Error(), Kind: kind})
}
