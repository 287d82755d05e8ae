package update

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/painscope/internal/http/middlewarectx"
	"github.com/magabrotheeeer/painscope/internal/http/response"
	"github.com/magabrotheeeer/painscope/internal/lib/sl"
	"github.com/magabrotheeeer/painscope/internal/models"
	briefingservice "github.com/magabrotheeeer/painscope/internal/services/briefing"
)

// Service описывает интерфейс правки брифинга.
type Service interface {
	Update(ctx context.Context, userUID, briefingID string, req models.DummyBriefingUpdate) (*models.Briefing, error)
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.briefing.update"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	briefingID := chi.URLParam(r, "id")
	if briefingID == "" {
		log.Error("briefing id missing in url")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("briefing id is required"))
		return
	}

	var req models.DummyBriefingUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	briefing, err := h.service.Update(r.Context(), userUID, briefingID, req)
	if err != nil {
		if errors.Is(err, briefingservice.ErrBriefingComplete) {
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("briefing is already complete"))
			return
		}
		log.Error("failed to update briefing", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to update briefing"))
		return
	}

	log.Info("briefing updated", slog.String("briefing_id", briefingID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"briefing": briefing,
	}))
}
