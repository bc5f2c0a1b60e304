package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"regbot/internal/domain"
	"regbot/internal/logger"
	"regbot/internal/port"
)

// judgeScorePattern matches the first 0 or 1 with an optional fraction.
var judgeScorePattern = regexp.MustCompile(`([01](?:\.\d+)?)`)

// JudgePromptData is the data passed to the judge prompt template.
type JudgePromptData struct {
	Context string
	Answer  string
}

// FactScoreResult is the outcome of a batch run.
type FactScoreResult struct {
	Rows    []domain.EvaluationRow
	Skipped int
}

// Mean returns the average fact score over the rows, each rounded to 3
// decimals first. ok is false when there are no rows.
func (r FactScoreResult) Mean() (mean float64, ok bool) {
	if len(r.Rows) == 0 {
		return 0, false
	}
	var sum float64
	for _, row := range r.Rows {
		sum += roundScore(row.FactScore)
	}
	return sum / float64(len(r.Rows)), true
}

// FactScoreUseCase scores how well each answer of the query endpoint is
// supported by the fragments it retrieved. Questions run strictly in order.
type FactScoreUseCase struct {
	client     port.QueryClient
	judge      port.LLM
	corpus     domain.ChunkCorpus
	log        *slog.Logger
	onProgress func(done, total int)
}

func NewFactScoreUseCase(client port.QueryClient, judge port.LLM, corpus domain.ChunkCorpus, log *slog.Logger) *FactScoreUseCase {
	return &FactScoreUseCase{
		client: client,
		judge:  judge,
		corpus: corpus,
		log:    logger.OrDiscard(log),
	}
}

// OnProgress registers a callback invoked after each question, processed
// or skipped.
func (u *FactScoreUseCase) OnProgress(fn func(done, total int)) {
	u.onProgress = fn
}

// Run evaluates every question. A question whose query call fails is
// logged and skipped; its id is not reused. Run stops early when ctx is
// cancelled and returns the rows gathered so far.
func (u *FactScoreUseCase) Run(ctx context.Context, questions []string) FactScoreResult {
	var result FactScoreResult

	for i, question := range questions {
		if ctx.Err() != nil {
			u.log.Warn("evaluation cancelled", "processed", i, "total", len(questions))
			break
		}

		row, err := u.Evaluate(ctx, i+1, question)
		if err != nil {
			u.log.Error("query failed, skipping question", "id", i+1, "question", question, "error", err)
			result.Skipped++
		} else {
			result.Rows = append(result.Rows, row)
		}

		if u.onProgress != nil {
			u.onProgress(i+1, len(questions))
		}
	}

	return result
}

// Evaluate asks one question and scores the answer. The only error is a
// failed query call.
func (u *FactScoreUseCase) Evaluate(ctx context.Context, id int, question string) (domain.EvaluationRow, error) {
	resp, err := u.client.Query(ctx, question)
	if err != nil {
		return domain.EvaluationRow{}, fmt.Errorf("query %d: %w", id, err)
	}

	answer := strings.TrimSpace(resp.Answer)

	refs := make([]string, 0, len(resp.Retrieved))
	sims := make([]string, 0, len(resp.Retrieved))
	for _, item := range resp.Retrieved {
		ref := ""
		if item.Ref != nil {
			ref = *item.Ref
		}
		refs = append(refs, ref)
		if item.Sim != nil {
			sims = append(sims, ref+":"+strconv.FormatFloat(*item.Sim, 'f', -1, 64))
		}
	}

	evidence := u.BuildContext(refs)
	score := u.Score(ctx, evidence, answer)

	u.log.Debug("question scored", "id", id, "fact_score", score, "refs", len(refs))
	return domain.EvaluationRow{
		ID:            id,
		Question:      question,
		Answer:        answer,
		FactScore:     score,
		RetrievedRefs: refs,
		RetrievedSims: sims,
	}, nil
}

// BuildContext joins the corpus text of each known reference. Unknown
// references are omitted.
func (u *FactScoreUseCase) BuildContext(refs []string) string {
	texts := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if text, ok := u.corpus[ref]; ok {
			texts = append(texts, text)
		}
	}
	return strings.Join(texts, FragmentSeparator)
}

// Score asks the judge how well evidence supports answer. Empty evidence
// scores 0 without calling the judge, and so does any judge failure.
func (u *FactScoreUseCase) Score(ctx context.Context, evidence, answer string) float64 {
	if strings.TrimSpace(evidence) == "" || u.judge == nil {
		return 0
	}

	prompt, err := BuildJudgePrompt(evidence, answer)
	if err != nil {
		u.log.Error("judge prompt rendering failed", "error", err)
		return 0
	}

	text, err := u.judge.Generate(ctx, prompt)
	if err != nil {
		u.log.Warn("judge call failed", "model", u.judge.ModelName(), "error", err)
		return 0
	}

	score, ok := ParseJudgeScore(text)
	if !ok {
		u.log.Warn("judge returned no score", "model", u.judge.ModelName(), "output", text)
		return 0
	}
	return score
}

// BuildJudgePrompt renders the faithfulness-judging instructions.
func BuildJudgePrompt(evidence, answer string) (string, error) {
	var buf bytes.Buffer
	if err := judgeTemplate.Execute(&buf, JudgePromptData{Context: evidence, Answer: answer}); err != nil {
		return "", fmt.Errorf("failed to render judge prompt: %w", err)
	}
	return buf.String(), nil
}

// ParseJudgeScore extracts the first score-like number from the judge
// output and clamps it into [0, 1].
func ParseJudgeScore(text string) (float64, bool) {
	match := judgeScorePattern.FindString(text)
	if match == "" {
		return 0, false
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return math.Max(0, math.Min(1, score)), true
}

func roundScore(score float64) float64 {
	return math.Round(score*1000) / 1000
}
