package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/talentscout/talentscout/internal/ai"
)

//go:embed prompts/summary.md
var summaryPrompt string

// SummaryGenerator produces the final 130-180 word narrative over the whole
// session. The reply is free text and is returned trimmed, without any
// structural validation.
type SummaryGenerator struct {
	generator ai.Generator
	logger    *zap.Logger
}

func NewSummaryGenerator(generator ai.Generator, logger *zap.Logger) *SummaryGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryGenerator{generator: generator, logger: logger}
}

func (g *SummaryGenerator) Generate(ctx context.Context, profile map[string]string, ratings map[string]int, answers []Answer) (string, error) {
	prompt := strings.ReplaceAll(summaryPrompt, "{{INFO_JSON}}", marshalForPrompt(profile))
	prompt = strings.ReplaceAll(prompt, "{{RATINGS_JSON}}", marshalForPrompt(ratings))
	prompt = strings.ReplaceAll(prompt, "{{ANSWERS_JSON}}", marshalForPrompt(answers))

	raw, err := g.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(raw), nil
}

func marshalForPrompt(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
