package domain

import "math"

// RetrievedFragment is one candidate returned by the vector index.
// Similarity is nil when the index did not report a distance.
type RetrievedFragment struct {
	Ref        string
	Text       string
	Similarity *float64
}

// RetrievalResult holds fragments in index rank order.
type RetrievalResult struct {
	Fragments []RetrievedFragment
}

func (r RetrievalResult) Empty() bool {
	return len(r.Fragments) == 0
}

// Texts returns the fragment texts in rank order.
func (r RetrievalResult) Texts() []string {
	texts := make([]string, len(r.Fragments))
	for i, f := range r.Fragments {
		texts[i] = f.Text
	}
	return texts
}

// Outcome records which terminal state a query reached.
type Outcome string

const (
	OutcomeEmpty     Outcome = "empty"
	OutcomeGibberish Outcome = "gibberish"
	OutcomeNoContext Outcome = "no_context"
	OutcomeAnswered  Outcome = "answered"
)

// Response is the query endpoint payload.
type Response struct {
	Answer    string         `json:"answer"`
	Retrieved []RetrievedRef `json:"retrieved"`
	Outcome   Outcome        `json:"-"`
}

// RetrievedRef is a fragment reference with its rounded similarity.
type RetrievedRef struct {
	Ref *string  `json:"ref"`
	Sim *float64 `json:"sim"`
}

// NewRetrievedRef builds the response form of a fragment: an empty ref
// becomes null and the similarity is rounded to 3 decimals.
func NewRetrievedRef(f RetrievedFragment) RetrievedRef {
	var item RetrievedRef
	if f.Ref != "" {
		ref := f.Ref
		item.Ref = &ref
	}
	if f.Similarity != nil {
		sim := math.Round(*f.Similarity*1000) / 1000
		item.Sim = &sim
	}
	return item
}

// QueryRequest is the query endpoint request body.
type QueryRequest struct {
	Question string `json:"question"`
}

// ChunkRecord is one line of the chunk corpus file.
type ChunkRecord struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Ref     string `json:"ref"`
	ChunkID int    `json:"chunk_id"`
	Text    string `json:"text"`
}

// ChunkCorpus maps a fragment reference to its original text.
type ChunkCorpus map[string]string

// EvaluationRow is one fact-score result.
type EvaluationRow struct {
	ID            int
	Question      string
	Answer        string
	FactScore     float64
	RetrievedRefs []string
	RetrievedSims []string
}
