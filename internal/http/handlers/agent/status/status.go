// Package status реализует HTTP-обработчик, который отдаёт состояние
// последней фоновой задачи исследования. Клиент опрашивает его с
// небольшим интервалом, пока задача выполняется.
package status

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/painscope/internal/http/middlewarectx"
	"github.com/magabrotheeeer/painscope/internal/http/response"
	"github.com/magabrotheeeer/painscope/internal/lib/sl"
	"github.com/magabrotheeeer/painscope/internal/models"
)

// Service описывает интерфейс чтения состояния задач.
type Service interface {
	LatestWithLogs(ctx context.Context, userUID string) (*models.AgentJob, []*models.AgentLog, error)
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
	const op = "handlers.agent.status"

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

	job, logs, err := h.service.LatestWithLogs(r.Context(), userUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			render.JSON(w, r, response.StatusOKWithData(map[string]any{
				"job": nil,
			}))
			return
		}
		log.Error("failed to read agent job", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read agent status"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"job":  job,
		"logs": logs,
	}))
}
