// Package services реализует диалоговый сбор брифинга: последовательные
// вопросы, правки полей и однократный запуск исследования.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/magabrotheeeer/painscope/internal/models"
)

// BriefingRepository определяет методы для работы с брифингами в хранилище.
type BriefingRepository interface {
	// CreateBriefing добавляет новый брифинг и возвращает его ID.
	CreateBriefing(ctx context.Context, b models.Briefing) (string, error)
	// UpdateBriefing обновляет поля брифинга.
	UpdateBriefing(ctx context.Context, b models.Briefing) error
	// ReadBriefing возвращает брифинг пользователя по ID.
	ReadBriefing(ctx context.Context, userUID, id string) (*models.Briefing, error)
	// AttachResearchData финализирует брифинг и сохраняет сырой результат.
	AttachResearchData(ctx context.Context, briefingID string, researchData json.RawMessage) error
	// CreateChatMessage сохраняет реплику диалога.
	CreateChatMessage(ctx context.Context, m models.ChatMessage) error
	// ListChatMessages возвращает реплики диалога в порядке записи.
	ListChatMessages(ctx context.Context, briefingID string) ([]*models.ChatMessage, error)
}

// ResearchRunner запускает исследование по готовому брифингу.
type ResearchRunner interface {
	Run(ctx context.Context, userUID string, b *models.Briefing) (*models.Report, error)
}

var (
	ErrBriefingComplete = errors.New("briefing is already complete")
	ErrBriefingNotReady = errors.New("briefing is not ready for research")
)

// Turn результат обработки ответа пользователя: реплика ассистента и
// текущее состояние брифинга.
type Turn struct {
	BriefingID string           `json:"briefing_id"`
	Prompt     string           `json:"prompt"`
	Ready      bool             `json:"ready"`
	Briefing   *models.Briefing `json:"briefing"`
}

const (
	promptIndustry       = "What industry is your product in?"
	promptProductFocus   = "What is your product focus? Describe the problem you want to solve."
	promptCompetitors    = "Who are your main competitors? List them separated by commas."
	promptTargetAudience = "Who is your target audience?"
	promptNotes          = "Noted. Anything else to add, or start the research when you are ready."
)

// BriefingService ведёт диалог сбора брифинга и управляет его жизненным циклом.
type BriefingService struct {
	repo     BriefingRepository
	research ResearchRunner
	group    singleflight.Group
	log      *slog.Logger
}

// NewBriefingService создает новый экземпляр BriefingService.
func NewBriefingService(repo BriefingRepository, research ResearchRunner, log *slog.Logger) *BriefingService {
	return &BriefingService{
		repo:     repo,
		research: research,
		log:      log,
	}
}

// Answer принимает ответ пользователя, заполняет очередное поле брифинга
// и возвращает следующий вопрос. Первый ответ создаёт брифинг.
func (s *BriefingService) Answer(ctx context.Context, userUID string, req models.DummyBriefingAnswer) (*Turn, error) {
	answer := strings.TrimSpace(req.Answer)

	if req.BriefingID == "" {
		b := models.Briefing{
			UserUID:  userUID,
			Industry: answer,
		}
		id, err := s.repo.CreateBriefing(ctx, b)
		if err != nil {
			return nil, err
		}
		b.ID = id
		s.saveTurn(ctx, id, answer, promptProductFocus)
		return &Turn{BriefingID: id, Prompt: promptProductFocus, Briefing: &b}, nil
	}

	b, err := s.repo.ReadBriefing(ctx, userUID, req.BriefingID)
	if err != nil {
		return nil, err
	}
	if b.IsComplete {
		return nil, ErrBriefingComplete
	}

	var prompt string
	switch {
	case b.ProductFocus == "":
		b.ProductFocus = answer
		prompt = promptCompetitors
	case len(b.Competitors) == 0:
		b.Competitors = splitCompetitors(answer)
		prompt = promptTargetAudience
	case b.TargetAudience == "":
		b.TargetAudience = answer
		prompt = readySummary(b)
	default:
		if b.AdditionalNotes != "" {
			b.AdditionalNotes += "\n"
		}
		b.AdditionalNotes += answer
		prompt = promptNotes
	}

	if err := s.repo.UpdateBriefing(ctx, *b); err != nil {
		return nil, err
	}
	s.saveTurn(ctx, b.ID, answer, prompt)

	return &Turn{
		BriefingID: b.ID,
		Prompt:     prompt,
		Ready:      briefingReady(b),
		Briefing:   b,
	}, nil
}

// Update правит поля собранного брифинга до запуска исследования.
func (s *BriefingService) Update(ctx context.Context, userUID, briefingID string, req models.DummyBriefingUpdate) (*models.Briefing, error) {
	b, err := s.repo.ReadBriefing(ctx, userUID, briefingID)
	if err != nil {
		return nil, err
	}
	if b.IsComplete {
		return nil, ErrBriefingComplete
	}

	if req.Industry != nil {
		b.Industry = *req.Industry
	}
	if req.ProductFocus != nil {
		b.ProductFocus = *req.ProductFocus
	}
	if req.Competitors != nil {
		b.Competitors = req.Competitors
	}
	if req.TargetAudience != nil {
		b.TargetAudience = *req.TargetAudience
	}
	if req.AdditionalNotes != nil {
		b.AdditionalNotes = *req.AdditionalNotes
	}

	if err := s.repo.UpdateBriefing(ctx, *b); err != nil {
		return nil, err
	}
	return b, nil
}

// Read возвращает брифинг вместе с историей диалога.
func (s *BriefingService) Read(ctx context.Context, userUID, briefingID string) (*models.Briefing, []*models.ChatMessage, error) {
	b, err := s.repo.ReadBriefing(ctx, userUID, briefingID)
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.repo.ListChatMessages(ctx, briefingID)
	if err != nil {
		return nil, nil, err
	}
	return b, messages, nil
}

// Submit запускает исследование по готовому брифингу. Повторные и
// конкурентные вызовы по одному брифингу разделяют один запрос к
// конвейеру: вызов наружу уходит не более одного раза.
func (s *BriefingService) Submit(ctx context.Context, userUID, briefingID string) (*models.Report, error) {
	b, err := s.repo.ReadBriefing(ctx, userUID, briefingID)
	if err != nil {
		return nil, err
	}
	if b.IsComplete {
		return nil, ErrBriefingComplete
	}
	if !briefingReady(b) {
		return nil, ErrBriefingNotReady
	}

	result, err, _ := s.group.Do(briefingID, func() (any, error) {
		report, runErr := s.research.Run(ctx, userUID, b)
		if runErr != nil {
			// Брифинг финализируется и при неудаче: зависший в ожидании
			// брифинг нельзя было бы ни поправить, ни перезапустить.
			failure, _ := json.Marshal(map[string]string{"error": runErr.Error()})
			if attachErr := s.repo.AttachResearchData(ctx, briefingID, failure); attachErr != nil {
				s.log.Error("failed to finalize briefing after research error",
					slog.String("briefing_id", briefingID), slog.Any("err", attachErr))
			}
			return nil, runErr
		}
		return report, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Report), nil
}

func (s *BriefingService) saveTurn(ctx context.Context, briefingID, answer, prompt string) {
	for _, m := range []models.ChatMessage{
		{BriefingID: briefingID, Role: "user", Content: answer},
		{BriefingID: briefingID, Role: "assistant", Content: prompt},
	} {
		if err := s.repo.CreateChatMessage(ctx, m); err != nil {
			s.log.Warn("failed to save chat message",
				slog.String("briefing_id", briefingID), slog.Any("err", err))
		}
	}
}

func briefingReady(b *models.Briefing) bool {
	return b.Industry != "" && b.ProductFocus != "" &&
		len(b.Competitors) > 0 && b.TargetAudience != ""
}

func splitCompetitors(answer string) []string {
	var result []string
	for _, part := range strings.Split(answer, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func readySummary(b *models.Briefing) string {
	return fmt.Sprintf(
		"Here is your briefing: industry %q, product focus %q, competitors %s, target audience %q. "+
			"You can edit any field or start the research.",
		b.Industry, b.ProductFocus, strings.Join(b.Competitors, ", "), b.TargetAudience)
}
