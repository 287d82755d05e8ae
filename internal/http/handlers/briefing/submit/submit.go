// Package submit реализует HTTP-обработчик запуска исследования по брифингу.
//
// Запрос блокируется до завершения исследования: конвейер отвечает
// результатом, который сразу нормализуется и сохраняется.
package submit

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/painscope/internal/http/middlewarectx"
	"github.com/magabrotheeeer/painscope/internal/http/response"
	"github.com/magabrotheeeer/painscope/internal/lib/sl"
	"github.com/magabrotheeeer/painscope/internal/models"
	briefingservice "github.com/magabrotheeeer/painscope/internal/services/briefing"
)

// Service описывает интерфейс запуска исследования.
type Service interface {
	Submit(ctx context.Context, userUID, briefingID string) (*models.Report, error)
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

// ServeHTTP godoc
// @Summary Запустить исследование
// @Description Отправляет готовый брифинг в исследовательский конвейер и возвращает сохраненный отчет.
// @Tags Briefing
// @Produce  json
// @Param id path string true "ID брифинга"
// @Success 200 {object} map[string]any "Отчет исследования"
// @Failure 409 {object} response.ErrorResponse "Брифинг уже завершен"
// @Failure 422 {object} response.ErrorResponse "Брифинг не готов"
// @Failure 500 {object} response.ErrorResponse "Ошибка исследования"
// @Router /briefings/{id}/submit [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.briefing.submit"

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

	report, err := h.service.Submit(r.Context(), userUID, briefingID)
	if err != nil {
		switch {
		case errors.Is(err, briefingservice.ErrBriefingComplete):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("briefing is already complete"))
		case errors.Is(err, briefingservice.ErrBriefingNotReady):
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("briefing is not ready for research"))
		default:
			log.Error("research failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("research failed"))
		}
		return
	}

	log.Info("research completed", slog.String("briefing_id", briefingID),
		slog.String("report_id", report.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"report": report,
	}))
}
