package interview

import (
	"context"
	"fmt"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/talentscout/talentscout/internal/ai"
	"github.com/talentscout/talentscout/internal/textutil"
)

//go:embed prompts/questions.md
var questionsPrompt string

const (
	minQuestionsPerTech = 3
	maxQuestionsPerTech = 5
)

// QuestionGenerator asks the backend for 3-5 practical questions per
// technology and sanitizes the result. It never fails: a dead backend or
// unparseable response degrades to fixed fallback questions.
type QuestionGenerator struct {
	generator ai.Generator
	logger    *zap.Logger
}

func NewQuestionGenerator(generator ai.Generator, logger *zap.Logger) *QuestionGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuestionGenerator{generator: generator, logger: logger}
}

// Generate returns a question list for every requested tech. Each list holds
// at least 3 and at most 5 non-empty questions, padded with fallbacks when
// the model under-returns.
func (g *QuestionGenerator) Generate(ctx context.Context, techs []string) map[string][]string {
	prompt := strings.ReplaceAll(questionsPrompt, "{{TECH_LIST}}", strings.Join(techs, ", "))

	var data map[string]any
	raw, err := g.generator.GenerateContent(ctx, prompt)
	if err != nil {
		g.logger.Warn("question generation failed, falling back to generic questions",
			zap.Int("tech_count", len(techs)),
			zap.Error(err),
		)
	} else {
		var ok bool
		if data, ok = textutil.ExtractJSON(raw); !ok {
			g.logger.Warn("question generation returned no parseable json",
				zap.Int("response_length", len(raw)),
			)
		}
	}

	cleaned := make(map[string][]string, len(techs))
	for _, tech := range techs {
		questions := stringList(lookupFold(data, tech))
		if len(questions) < minQuestionsPerTech {
			questions = append(questions, fallbackQuestions(tech)...)
		}
		if len(questions) > maxQuestionsPerTech {
			questions = questions[:maxQuestionsPerTech]
		}
		cleaned[tech] = questions
	}

	return cleaned
}

// lookupFold finds a key case-insensitively, preferring an exact match. This
// absorbs model drift like "python" or "PYTHON" for a requested "Python".
func lookupFold(data map[string]any, key string) any {
	if data == nil {
		return nil
	}

	if value, ok := data[key]; ok {
		return value
	}

	for k, value := range data {
		if strings.EqualFold(k, key) {
			return value
		}
	}

	return nil
}

// stringList flattens a JSON array into trimmed non-empty strings.
func stringList(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		text, ok := item.(string)
		if !ok {
			text = fmt.Sprintf("%v", item)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		out = append(out, text)
	}

	return out
}

func fallbackQuestions(tech string) []string {
	return []string{
		fmt.Sprintf("Briefly explain a key concept in %s.", tech),
		fmt.Sprintf("How do you debug common issues in %s?", tech),
		fmt.Sprintf("Describe a challenging %s task you solved.", tech),
	}
}
