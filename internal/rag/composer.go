package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_generator.go -package=mocks econ-rag/internal/rag Generator

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"econ-rag/internal/contextutil"
	"econ-rag/internal/llm"
	"econ-rag/internal/service"
)

// InsufficientInfoMarker must appear in every answer that declines for lack of evidence.
const InsufficientInfoMarker = "insufficient information"

// Fixed user-facing answers.
const (
	InsufficientInformationAnswer = "I have insufficient information in the indexed documents to answer this question."
	GenerationFailedAnswer        = "Sorry, an error occurred while generating the answer. Please try again."
	SystemErrorAnswer             = "Sorry, an error occurred while processing your query. Please try again."
	InvalidQuestionAnswer         = "Please provide a valid question."
)

// Generation defaults, favoring determinism.
const (
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 5000
)

const systemPrompt = `You are an analyst of the São Paulo state economy. Answer ONLY from the numbered evidence passages below.
Rules:
- Do not use internal knowledge and do not invent figures, dates or names.
- Cite the passages you rely on with their numbers in square brackets, for example [1] or [2][3].
- If the evidence is empty, unrelated or contradictory, reply exactly: "` + InsufficientInformationAnswer + `"
- Answer in the language of the question. Be clear and specific.`

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// Generator produces a completion for a chat transcript. llm.Client satisfies it.
type Generator interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// ComposerConfig holds generation parameters.
type ComposerConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Composer writes answers grounded in ranked evidence.
type Composer struct {
	generator Generator
	cfg       ComposerConfig
}

// NewComposer creates a composer. Zero MaxTokens falls back to DefaultMaxTokens.
func NewComposer(generator Generator, cfg ComposerConfig) *Composer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &Composer{generator: generator, cfg: cfg}
}

// Compose answers query from evidence.
//
// Empty evidence returns InsufficientInformationAnswer without calling the model.
// A reply that neither cites an evidence index nor carries InsufficientInfoMarker is
// replaced by InsufficientInformationAnswer. A generation failure returns
// GenerationFailedAnswer and a *service.ExternalServiceError.
func (c *Composer) Compose(ctx context.Context, query string, evidence RankedEvidence) (string, error) {
	logger := contextutil.LoggerFromContext(ctx).With("component", "composer")

	if evidence.Len() == 0 {
		logger.InfoContext(ctx, "no evidence, declining to answer")
		return InsufficientInformationAnswer, nil
	}

	userMessage := fmt.Sprintf("Question: %s\n\n%s", query, formatEvidence(evidence))
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: userMessage},
	}

	logger.InfoContext(ctx, "sending request to LLM",
		"evidence_count", evidence.Len(),
		"user_message_length", len(userMessage),
	)

	genCtx, cancel := withTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	answer, err := c.generator.ChatWithMessages(genCtx, messages, llm.ChatParams{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to get LLM response", "error", err)
		return GenerationFailedAnswer, service.NewExternalServiceError(service.ServiceGeneration, err)
	}

	answer = strings.TrimSpace(answer)
	if !grounded(answer, evidence.Len()) {
		logger.WarnContext(ctx, "answer is not grounded in evidence, replacing", "answer_length", len(answer))
		return InsufficientInformationAnswer, nil
	}

	logger.InfoContext(ctx, "received LLM response", "answer_length", len(answer))
	return answer, nil
}

// formatEvidence renders the numbered evidence block, one "[n] (relevance s) text" entry per item.
func formatEvidence(evidence RankedEvidence) string {
	var b strings.Builder
	b.WriteString("--- Evidence ---\n\n")
	for i, item := range evidence.Items {
		fmt.Fprintf(&b, "[%d] (relevance %.3f) %s\n\n", i+1, item.Score, strings.TrimSpace(item.Text))
	}
	b.WriteString("--- End Evidence ---")
	return b.String()
}

// grounded reports whether answer cites one of the n evidence items or declines explicitly.
func grounded(answer string, n int) bool {
	if answer == "" {
		return false
	}
	if strings.Contains(strings.ToLower(answer), InsufficientInfoMarker) {
		return true
	}
	for _, m := range citationPattern.FindAllStringSubmatch(answer, -1) {
		idx, err := strconv.Atoi(m[1])
		if err == nil && idx >= 1 && idx <= n {
			return true
		}
	}
	return false
}
