package learningmap

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/trailmap/trailmap/internal/auth"
	"github.com/trailmap/trailmap/internal/store"
	"github.com/trailmap/trailmap/internal/svgdoc"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	CourseID string `json:"courseId"`
	Name     string `json:"name"`
}

type saveRequest struct {
	SVG     string          `json:"svg"`
	Record  json.RawMessage `json:"record"`
	Version int64           `json:"version"`
}

type moduleRequest struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	ViewURL           string `json:"viewUrl"`
	Visible           bool   `json:"visible"`
	StealthReachable  bool   `json:"stealthReachable"`
	Available         bool   `json:"available"`
	PassGradeRequired bool   `json:"passGradeRequired"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.CourseID == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "courseId and name are required"})
		return
	}

	m, err := h.service.Create(r.Context(), req.CourseID, req.Name, userID)
	if err != nil {
		slog.Error("create map failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	mapID := mux.Vars(r)["mapId"]

	m, err := h.service.Get(r.Context(), mapID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	maps, err := h.service.List(r.Context(), userID)
	if err != nil {
		slog.Error("list maps failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, maps)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	mapID := mux.Vars(r)["mapId"]

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	version, err := h.service.Save(r.Context(), mapID, userID, req.SVG, req.Record, req.Version)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"version": version})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	mapID := mux.Vars(r)["mapId"]

	if err := h.service.Delete(r.Context(), mapID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Render serves the personalized document for the requesting learner.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	mapID := mux.Vars(r)["mapId"]
	groupID := r.URL.Query().Get("group")
	editMode := r.URL.Query().Get("edit") == "1"

	res, err := h.service.Render(r.Context(), mapID, userID, groupID, editMode)
	if err != nil {
		if errors.Is(err, svgdoc.ErrUnparsable) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "map markup is not parsable"})
			return
		}
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(res.SVG))
}

func (h *Handler) UpsertModule(w http.ResponseWriter, r *http.Request) {
	courseID := mux.Vars(r)["courseId"]

	var req moduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	mod, err := h.service.UpsertModule(r.Context(), store.CourseModule{
		ID:                req.ID,
		CourseID:          courseID,
		Name:              req.Name,
		ViewURL:           req.ViewURL,
		Visible:           req.Visible,
		StealthReachable:  req.StealthReachable,
		Available:         req.Available,
		PassGradeRequired: req.PassGradeRequired,
	})
	if err != nil {
		slog.Error("upsert module failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": mod.ID})
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, store.ErrVersionConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "map changed concurrently"})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
