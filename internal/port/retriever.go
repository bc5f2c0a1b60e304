package port

import (
	"context"

	"regbot/internal/domain"
)

// Retriever fetches the fragments relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string) (domain.RetrievalResult, error)
}

// QueryClient asks a running query endpoint a question.
type QueryClient interface {
	Query(ctx context.Context, question string) (domain.Response, error)
}
