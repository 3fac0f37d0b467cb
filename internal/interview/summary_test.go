package interview

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestSummaryReturnsTrimmedText(t *testing.T) {
	stub := staticResponse("\n  A promising backend candidate with solid Python depth.  \n")
	gen := NewSummaryGenerator(stub, zap.NewNop())

	summary, err := gen.Generate(context.Background(),
		map[string]string{FieldFullName: "J*** S****"},
		map[string]int{"Python": 7},
		[]Answer{{Tech: "Python", Question: "Q?", Answer: "A"}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary != "A promising backend candidate with solid Python depth." {
		t.Fatalf("unexpected summary: %q", summary)
	}
}

func TestSummaryPromptEmbedsContext(t *testing.T) {
	stub := staticResponse("fine")
	gen := NewSummaryGenerator(stub, zap.NewNop())

	score := 8
	if _, err := gen.Generate(context.Background(),
		map[string]string{FieldLocation: "Berlin"},
		map[string]int{"Go": 9},
		[]Answer{{Tech: "Go", Question: "Q?", Answer: "channels", Score: &score}},
	); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prompt := stub.prompts[0]
	for _, fragment := range []string{"Berlin", `"Go":9`, "channels", "130-180 words"} {
		if !strings.Contains(prompt, fragment) {
			t.Fatalf("expected prompt to contain %q, got %s", fragment, prompt)
		}
	}
}

func TestSummaryBackendFailurePropagates(t *testing.T) {
	gen := NewSummaryGenerator(failingBackend(), zap.NewNop())

	if _, err := gen.Generate(context.Background(), nil, nil, nil); err == nil {
		t.Fatal("expected error when backend is exhausted")
	}
}
