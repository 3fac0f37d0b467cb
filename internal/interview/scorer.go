package interview

import (
	"context"
	"strconv"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/talentscout/talentscout/internal/ai"
	"github.com/talentscout/talentscout/internal/textutil"
)

//go:embed prompts/score.md
var scorePrompt string

// ScoreResult carries the model's 1-10 score and short feedback for one
// answer. Both are absent when the model output could not be used.
type ScoreResult struct {
	Score    *int
	Feedback *string
}

// AnswerScorer rates one free-text answer against its question.
type AnswerScorer struct {
	generator ai.Generator
	logger    *zap.Logger
}

func NewAnswerScorer(generator ai.Generator, logger *zap.Logger) *AnswerScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnswerScorer{generator: generator, logger: logger}
}

// Score asks the backend to rate the answer. A malformed response yields an
// empty result without error; only an exhausted backend returns one. Callers
// must substitute an empty result on error rather than aborting.
func (s *AnswerScorer) Score(ctx context.Context, question, answer string) (ScoreResult, error) {
	prompt := strings.ReplaceAll(scorePrompt, "{{QUESTION}}", question)
	prompt = strings.ReplaceAll(prompt, "{{ANSWER}}", answer)

	raw, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return ScoreResult{}, err
	}

	data, ok := textutil.ExtractJSON(raw)
	if !ok {
		s.logger.Warn("score response had no parseable json",
			zap.Int("response_length", len(raw)),
		)
		return ScoreResult{}, nil
	}

	result := ScoreResult{Score: coerceInt(data["score"])}

	if feedback, ok := data["feedback"].(string); ok {
		if feedback = strings.TrimSpace(feedback); feedback != "" {
			result.Feedback = &feedback
		}
	}

	return result, nil
}

// coerceInt converts JSON number or numeric string values to an int pointer,
// returning nil when the value is missing or not coercible.
func coerceInt(v any) *int {
	switch val := v.(type) {
	case float64:
		n := int(val)
		return &n
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return nil
		}
		return &n
	default:
		return nil
	}
}
