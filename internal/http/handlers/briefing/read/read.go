package read

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/painscope/internal/http/middlewarectx"
	"github.com/magabrotheeeer/painscope/internal/http/response"
	"github.com/magabrotheeeer/painscope/internal/lib/sl"
	"github.com/magabrotheeeer/painscope/internal/models"
)

// Service описывает интерфейс чтения брифинга с историей диалога.
type Service interface {
	Read(ctx context.Context, userUID, briefingID string) (*models.Briefing, []*models.ChatMessage, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.briefing.read"

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
	briefing, messages, err := h.service.Read(r.Context(), userUID, briefingID)
	if err != nil {
		log.Error("failed to read briefing", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read briefing"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"briefing": briefing,
		"messages": messages,
	}))
}
