package usecase

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"regbot/internal/logger"
	"regbot/internal/port"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

var (
	generativeTemplate = template.Must(template.ParseFS(promptTemplates, "templates/generative_prompt.txt"))
	judgeTemplate      = template.Must(template.ParseFS(promptTemplates, "templates/judge_prompt.txt"))
)

// FragmentSeparator joins fragment texts in prompts and extractive answers.
const FragmentSeparator = "\n\n-----\n\n"

// GenerativePromptData is the data passed to the generative prompt template.
type GenerativePromptData struct {
	Context  string
	Question string
	Fallback string
}

// Composer turns retrieved fragments into the final answer text.
type Composer struct {
	llm      port.LLM
	fallback string
	timeout  time.Duration
	log      *slog.Logger
}

// NewComposer creates a composer. A nil llm disables generation and every
// answer is extractive. A zero timeout leaves the model call bounded only by
// ctx.
func NewComposer(llm port.LLM, fallback string, timeout time.Duration, log *slog.Logger) *Composer {
	return &Composer{
		llm:      llm,
		fallback: fallback,
		timeout:  timeout,
		log:      logger.OrDiscard(log),
	}
}

// BuildExtractiveAnswer echoes the question followed by the fragment texts.
func BuildExtractiveAnswer(question string, fragments []string) string {
	var sb strings.Builder
	sb.WriteString("Pergunta do usuário:\n- ")
	sb.WriteString(question)
	sb.WriteString("\n\nTrechos relevantes do Regulamento:\n\n")
	sb.WriteString(strings.Join(fragments, FragmentSeparator))
	return sb.String()
}

// BuildGenerativePrompt renders the grounded-answer instructions for the
// question and fragments.
func (c *Composer) BuildGenerativePrompt(question string, fragments []string) (string, error) {
	data := GenerativePromptData{
		Context:  strings.Join(fragments, FragmentSeparator),
		Question: question,
		Fallback: c.fallback,
	}

	var buf bytes.Buffer
	if err := generativeTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render generative prompt: %w", err)
	}
	return buf.String(), nil
}

// CallGenerative asks the model for an answer. It reports false on any
// failure, including an empty answer, so the caller can fall back.
func (c *Composer) CallGenerative(ctx context.Context, prompt string) (string, bool) {
	if c.llm == nil {
		return "", false
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	answer, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		c.log.Warn("generative model call failed", "model", c.llm.ModelName(), "error", err, "elapsed", time.Since(start))
		return "", false
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		c.log.Warn("generative model returned an empty answer", "model", c.llm.ModelName())
		return "", false
	}

	c.log.Debug("generative answer received", "model", c.llm.ModelName(), "elapsed", time.Since(start))
	return answer, true
}

// Compose returns the generative answer when the model produces one and the
// extractive answer otherwise. generated reports which one was used.
func (c *Composer) Compose(ctx context.Context, question string, fragments []string) (answer string, generated bool) {
	if c.llm != nil {
		prompt, err := c.BuildGenerativePrompt(question, fragments)
		if err != nil {
			c.log.Error("prompt rendering failed", "error", err)
		} else if answer, ok := c.CallGenerative(ctx, prompt); ok {
			return answer, true
		}
	}
	return BuildExtractiveAnswer(question, fragments), false
}
