package usecase

import (
	"context"
	"log/slog"
	"strings"

	"regbot/internal/adapter/analyzer"
	"regbot/internal/domain"
	"regbot/internal/logger"
	"regbot/internal/port"
)

// Messages holds the fixed replies for inputs that never reach the composer.
// Fallback is used for empty input and for questions with no matching context.
type Messages struct {
	Fallback  string
	Gibberish string
}

// QueryUseCase answers one question at a time. It holds no per-request
// state and is safe for concurrent use when its collaborators are.
type QueryUseCase struct {
	retriever port.Retriever
	composer  *Composer
	messages  Messages
	log       *slog.Logger
}

func NewQueryUseCase(retriever port.Retriever, composer *Composer, messages Messages, log *slog.Logger) *QueryUseCase {
	return &QueryUseCase{
		retriever: retriever,
		composer:  composer,
		messages:  messages,
		log:       logger.OrDiscard(log),
	}
}

// Answer runs a question through validation, retrieval and composition.
// It always returns a well-formed response.
func (u *QueryUseCase) Answer(ctx context.Context, question string) domain.Response {
	question = strings.TrimSpace(question)

	if question == "" {
		u.log.Debug("empty question")
		return u.fallback(u.messages.Fallback, domain.OutcomeEmpty)
	}

	if analyzer.IsGibberish(question) {
		u.log.Info("question rejected as gibberish", "question", question)
		return u.fallback(u.messages.Gibberish, domain.OutcomeGibberish)
	}

	result, err := u.retrieve(ctx, question)
	if err != nil {
		u.log.Error("retrieval failed", "error", err)
	}
	if result.Empty() {
		u.log.Info("no context above threshold", "question", question)
		return u.fallback(u.messages.Fallback, domain.OutcomeNoContext)
	}

	answer, generated := u.composer.Compose(ctx, question, result.Texts())

	retrieved := make([]domain.RetrievedRef, len(result.Fragments))
	for i, f := range result.Fragments {
		retrieved[i] = domain.NewRetrievedRef(f)
	}

	u.log.Info("question answered", "fragments", len(retrieved), "generated", generated)
	return domain.Response{
		Answer:    answer,
		Retrieved: retrieved,
		Outcome:   domain.OutcomeAnswered,
	}
}

func (u *QueryUseCase) retrieve(ctx context.Context, question string) (domain.RetrievalResult, error) {
	if u.retriever == nil {
		return domain.RetrievalResult{}, nil
	}
	return u.retriever.Retrieve(ctx, question)
}

func (u *QueryUseCase) fallback(message string, outcome domain.Outcome) domain.Response {
	return domain.Response{
		Answer:    message,
		Retrieved: []domain.RetrievedRef{},
		Outcome:   outcome,
	}
}
