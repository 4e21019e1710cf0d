package event_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	events "ms-events/internal/events/service"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/sse"
	"ms-events/internal/utils"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

const defaultMaxUploadBytes = 10 << 20

// dateLayouts are tried in order when parsing the date of a request.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	EventService   *events.EventService
	Emitter        *sse.ChangeEmitter
	DB             Pinger
	Logger         *logger.Logger
	MaxUploadBytes int64
}

func NewHandler(eventService *events.EventService, emitter *sse.ChangeEmitter, db Pinger, log *logger.Logger) *Handler {
	return &Handler{
		EventService:   eventService,
		Emitter:        emitter,
		DB:             db,
		Logger:         log,
		MaxUploadBytes: defaultMaxUploadBytes,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Health)

	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Get("/", h.ListEvents)
		r.Get("/stream", h.StreamAll)
		r.Get("/{id}", h.GetEvent)
		r.Put("/{id}", h.UpdateEvent)
		r.Delete("/{id}", h.DeleteEvent)
		r.Get("/{id}/stream", h.StreamEvent)
	})
}

// CreateEvent binds a multipart (or url-encoded) form with an optional "file" part.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.MaxUploadBytes {
		h.writeTooLarge(w, fmt.Errorf("content length %d exceeds %d bytes", r.ContentLength, h.MaxUploadBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeTooLarge(w, err)
			return
		}
		h.Logger.Warn("API", fmt.Sprintf("CreateEvent: cannot parse form: %v", err))
		utils.WriteError(w, http.StatusBadRequest, "Invalid form data", err)
		return
	}

	req := models.CreateEventRequestDto{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Location:    r.FormValue("location"),
	}

	date, err := parseDate(r.FormValue("date"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	req.Date = date

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		file.Close()
		req.File = header
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		utils.WriteError(w, http.StatusBadRequest, "Invalid file", err)
		return
	}

	dto, err := h.EventService.CreateEvent(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, "CreateEvent", err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/events/%d", dto.ID))
	h.writeJSON(w, "CreateEvent", http.StatusCreated, dto)
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	dtos, err := h.EventService.ListEvents(r.Context())
	if err != nil {
		h.writeServiceError(w, "ListEvents", err)
		return
	}
	h.writeJSON(w, "ListEvents", http.StatusOK, dtos)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(r)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	dto, err := h.EventService.GetEvent(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "GetEvent", err)
		return
	}
	h.writeJSON(w, "GetEvent", http.StatusOK, dto)
}

type updateEventBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Date        string `json:"date"`
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(r)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var body updateEventBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := parseDate(body.Date)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	dto, err := h.EventService.UpdateEvent(r.Context(), id, models.UpdateEventRequestDto{
		Name:        body.Name,
		Description: body.Description,
		Location:    body.Location,
		Date:        date,
	})
	if err != nil {
		h.writeServiceError(w, "UpdateEvent", err)
		return
	}
	h.writeJSON(w, "UpdateEvent", http.StatusOK, dto)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(r)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if err := h.EventService.DeleteEvent(r.Context(), id); err != nil {
		h.writeServiceError(w, "DeleteEvent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.DB.Ping(ctx); err != nil {
		h.Logger.Error("HEALTH", fmt.Sprintf("Database ping failed: %v", err))
		utils.WriteError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ok", nil))
}

// writeServiceError maps service errors: not found → 404 with no body,
// invalid input → 400, anything else → 500.
func (h *Handler) writeTooLarge(w http.ResponseWriter, err error) {
	h.Logger.Warn("API", fmt.Sprintf("CreateEvent: upload rejected: %v", err))
	utils.WriteError(w, http.StatusRequestEntityTooLarge, "Upload too large", err)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	var vErr *events.ValidationError
	switch {
	case errors.Is(err, models.ErrEventNotFound):
		h.Logger.Debug("API", fmt.Sprintf("%s: %v", op, err))
		w.WriteHeader(http.StatusNotFound)
	case errors.As(err, &vErr):
		h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteError(w, http.StatusBadRequest, "Invalid event", events.ErrInvalidEvent, vErr.Problems...)
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error", errors.New("an unexpected error occurred"))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, op string, status int, v interface{}) {
	if err := utils.WriteJSON(w, status, v); err != nil {
		h.Logger.Error("API", fmt.Sprintf("%s: failed to encode response: %v", op, err))
	}
}

// eventID reports false for anything that is not a decimal int64.
func eventID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// parseDate returns the zero time for an empty value so validation reports it as missing.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q is not a recognised date/time", value)
}
