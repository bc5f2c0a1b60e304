package usecase

import (
	"context"
	"sync"

	"regbot/internal/domain"
)

type fakeLLM struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
	block   bool
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.answer, f.err
}

func (f *fakeLLM) ModelName() string { return "fake-llm" }

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeRetriever struct {
	result    domain.RetrievalResult
	err       error
	questions []string
}

func (f *fakeRetriever) Retrieve(ctx context.Context, question string) (domain.RetrievalResult, error) {
	f.questions = append(f.questions, question)
	return f.result, f.err
}

type fakeQueryClient struct {
	responses map[string]domain.Response
	errs      map[string]error
}

func (f *fakeQueryClient) Query(ctx context.Context, question string) (domain.Response, error) {
	if err, ok := f.errs[question]; ok {
		return domain.Response{}, err
	}
	return f.responses[question], nil
}

func sim(v float64) *float64 { return &v }

func ref(v string) *string { return &v }

func fragment(r, text string, s float64) domain.RetrievedFragment {
	return domain.RetrievedFragment{Ref: r, Text: text, Similarity: sim(s)}
}
