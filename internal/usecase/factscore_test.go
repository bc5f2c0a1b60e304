package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"regbot/internal/domain"
)

var testCorpus = domain.ChunkCorpus{
	"chunk_1": "Art. 1. O aluno pode trancar a matrícula.",
	"chunk_2": "Art. 2. O trancamento vale por um semestre.",
}

func TestParseJudgeScore(t *testing.T) {
	tests := []struct {
		text  string
		want  float64
		found bool
	}{
		{"0.85", 0.85, true},
		{"1", 1, true},
		{"0", 0, true},
		{"Nota: 0.7\n", 0.7, true},
		{"1.5 is my confidence", 1, true},
		{"0.25 ou 0.9", 0.25, true},
		{"score: 7", 0, false},
		{"", 0, false},
		{"nenhum", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ParseJudgeScore(tt.text)
			assert.Equal(t, tt.found, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestBuildJudgePrompt(t *testing.T) {
	prompt, err := BuildJudgePrompt("Art. 1", "Sim, pode.")
	require.NoError(t, err)
	assert.Contains(t, prompt, "=== CONTEXTO (trechos do regulamento) ===\nArt. 1\n")
	assert.Contains(t, prompt, "=== RESPOSTA DO BOT ===\nSim, pode.\n")
	assert.Contains(t, prompt, "=== SUA AVALIAÇÃO (APENAS O NÚMERO) ===")
}

func TestBuildContext(t *testing.T) {
	u := NewFactScoreUseCase(&fakeQueryClient{}, nil, testCorpus, nil)

	assert.Equal(t, testCorpus["chunk_1"]+FragmentSeparator+testCorpus["chunk_2"],
		u.BuildContext([]string{"chunk_1", "missing", "", "chunk_2"}))
	assert.Empty(t, u.BuildContext(nil))
}

func TestEvaluate_NoRetrievedSkipsJudge(t *testing.T) {
	judge := &fakeLLM{answer: "1"}
	client := &fakeQueryClient{responses: map[string]domain.Response{
		"q": {Answer: testFallback, Retrieved: []domain.RetrievedRef{}},
	}}
	u := NewFactScoreUseCase(client, judge, testCorpus, nil)

	row, err := u.Evaluate(context.Background(), 1, "q")
	require.NoError(t, err)
	assert.Equal(t, 0.0, row.FactScore)
	assert.Zero(t, judge.calls())
}

func TestEvaluate_UnknownRefsSkipJudge(t *testing.T) {
	judge := &fakeLLM{answer: "1"}
	client := &fakeQueryClient{responses: map[string]domain.Response{
		"q": {Answer: "a", Retrieved: []domain.RetrievedRef{{Ref: ref("chunk_99"), Sim: sim(0.9)}}},
	}}
	u := NewFactScoreUseCase(client, judge, testCorpus, nil)

	row, err := u.Evaluate(context.Background(), 1, "q")
	require.NoError(t, err)
	assert.Equal(t, 0.0, row.FactScore)
	assert.Zero(t, judge.calls())
	assert.Equal(t, []string{"chunk_99"}, row.RetrievedRefs)
}

func TestEvaluate_ScoresWithJudge(t *testing.T) {
	judge := &fakeLLM{answer: "0.8"}
	client := &fakeQueryClient{responses: map[string]domain.Response{
		"posso trancar?": {
			Answer: "  Sim, o regulamento permite.\n",
			Retrieved: []domain.RetrievedRef{
				{Ref: ref("chunk_1"), Sim: sim(0.612)},
				{Ref: ref("chunk_2"), Sim: nil},
				{Ref: nil, Sim: sim(0.5)},
			},
		},
	}}
	u := NewFactScoreUseCase(client, judge, testCorpus, nil)

	row, err := u.Evaluate(context.Background(), 3, "posso trancar?")
	require.NoError(t, err)

	assert.Equal(t, 3, row.ID)
	assert.Equal(t, "Sim, o regulamento permite.", row.Answer)
	assert.Equal(t, 0.8, row.FactScore)
	assert.Equal(t, []string{"chunk_1", "chunk_2", ""}, row.RetrievedRefs)
	assert.Equal(t, []string{"chunk_1:0.612", ":0.5"}, row.RetrievedSims)

	require.Equal(t, 1, judge.calls())
	assert.Contains(t, judge.prompts[0], testCorpus["chunk_1"]+FragmentSeparator+testCorpus["chunk_2"])
	assert.Contains(t, judge.prompts[0], "Sim, o regulamento permite.")
}

func TestEvaluate_JudgeFailuresScoreZero(t *testing.T) {
	client := &fakeQueryClient{responses: map[string]domain.Response{
		"q": {Answer: "a", Retrieved: []domain.RetrievedRef{{Ref: ref("chunk_1"), Sim: sim(0.9)}}},
	}}

	for name, judge := range map[string]*fakeLLM{
		"error":    {err: errors.New("timeout")},
		"no match": {answer: "muito bom"},
	} {
		t.Run(name, func(t *testing.T) {
			u := NewFactScoreUseCase(client, judge, testCorpus, nil)
			row, err := u.Evaluate(context.Background(), 1, "q")
			require.NoError(t, err)
			assert.Equal(t, 0.0, row.FactScore)
		})
	}
}

func TestEvaluate_QueryFailure(t *testing.T) {
	client := &fakeQueryClient{errs: map[string]error{"q": errors.New("connection refused")}}
	u := NewFactScoreUseCase(client, &fakeLLM{answer: "1"}, testCorpus, nil)

	_, err := u.Evaluate(context.Background(), 1, "q")
	assert.Error(t, err)
}

func TestRun_SkipsFailedQuestions(t *testing.T) {
	client := &fakeQueryClient{
		responses: map[string]domain.Response{
			"a": {Answer: "x", Retrieved: []domain.RetrievedRef{{Ref: ref("chunk_1"), Sim: sim(0.7)}}},
			"c": {Answer: "y", Retrieved: []domain.RetrievedRef{}},
		},
		errs: map[string]error{"b": errors.New("status 500")},
	}
	u := NewFactScoreUseCase(client, &fakeLLM{answer: "0.6666"}, testCorpus, nil)

	var progress [][2]int
	u.OnProgress(func(done, total int) { progress = append(progress, [2]int{done, total}) })

	result := u.Run(context.Background(), []string{"a", "b", "c"})
	require.Len(t, result.Rows, 2)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Rows[0].ID)
	assert.Equal(t, 3, result.Rows[1].ID, "skipped questions keep their index")
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)

	mean, ok := result.Mean()
	require.True(t, ok)
	assert.InDelta(t, (0.667+0.0)/2, mean, 1e-9)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	u := NewFactScoreUseCase(&fakeQueryClient{}, nil, testCorpus, nil)
	result := u.Run(ctx, []string{"a", "b"})
	assert.Empty(t, result.Rows)
}

func TestMean_NoRows(t *testing.T) {
	_, ok := FactScoreResult{}.Mean()
	assert.False(t, ok)
}
