package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type fakeStore struct {
	records []any
	err     error
}

func (f *fakeStore) Append(record any) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record)
	return nil
}

// routingBackend answers each generator by prompt content, the way the real
// backend would see three distinct prompt shapes.
func routingBackend(questionsJSON, scoreJSON, summary string) *stubBackend {
	return &stubBackend{respond: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "Generate interview questions"):
			return questionsJSON, nil
		case strings.Contains(prompt, "Rate the following interview answer"):
			return scoreJSON, nil
		default:
			return summary, nil
		}
	}}
}

func newTestMachine(backend *stubBackend, st SnapshotStore) *Machine {
	return NewMachine(Deps{
		Questions:  NewQuestionGenerator(backend, zap.NewNop()),
		Scorer:     NewAnswerScorer(backend, zap.NewNop()),
		Summarizer: NewSummaryGenerator(backend, zap.NewNop()),
		Store:      st,
		Logger:     zap.NewNop(),
	})
}

var validFieldInputs = []string{
	"John Smith",
	"jdoe@example.com",
	"+1 (555) 123-4567",
	"5",
	"Backend Engineer",
	"Berlin",
	"Python",
}

func TestStartEmitsGreetingOnce(t *testing.T) {
	m := newTestMachine(staticResponse("{}"), nil)
	s := NewSession(false)

	replies := m.Start(s)
	if len(replies) != 2 || replies[0] != msgGreeting {
		t.Fatalf("unexpected start replies: %v", replies)
	}

	if s.Phase != PhaseCollectingFields {
		t.Fatalf("expected collecting_fields phase, got %s", s.Phase)
	}

	if again := m.Start(s); again != nil {
		t.Fatalf("expected second start to be a no-op, got %v", again)
	}
}

func TestFullSessionReachesDone(t *testing.T) {
	backend := routingBackend(
		`{"Python": ["P1?", "P2?", "P3?"]}`,
		`{"score": 8, "feedback": "ok"}`,
		"A solid candidate with practical Python experience.",
	)
	st := &fakeStore{}
	m := newTestMachine(backend, st)
	s := NewSession(true)
	ctx := context.Background()

	m.Start(s)

	for _, input := range validFieldInputs {
		m.HandleMessage(ctx, s, input)
	}

	if s.Phase != PhaseRatingTechs {
		t.Fatalf("expected rating_techs after all fields, got %s", s.Phase)
	}

	replies := m.HandleMessage(ctx, s, "7")
	if s.Phase != PhaseAskingQuestions {
		t.Fatalf("expected asking_questions after last rating, got %s", s.Phase)
	}

	last := replies[len(replies)-1]
	if !strings.HasPrefix(last, "Python Q1:") {
		t.Fatalf("expected first question labeled Python Q1, got %q", last)
	}

	for i := 0; !s.Ended(); i++ {
		replies = m.HandleMessage(ctx, s, fmt.Sprintf("answer %d", i))
		if i > 10 {
			t.Fatal("session did not terminate")
		}
	}

	if len(s.Answers) != len(s.Questions) {
		t.Fatalf("expected %d answers, got %d", len(s.Questions), len(s.Answers))
	}

	if s.Summary == "" {
		t.Fatal("expected a summary to be recorded")
	}

	if s.Answers[0].Score == nil || *s.Answers[0].Score != 8 {
		t.Fatalf("expected scored answer, got %+v", s.Answers[0])
	}

	if got := s.Profile[FieldFullName]; got != "J*** S****" {
		t.Fatalf("expected masked name, got %q", got)
	}

	if got := s.Profile[FieldEmail]; got != "j***@example.com" {
		t.Fatalf("expected masked email, got %q", got)
	}

	if len(st.records) != 1 {
		t.Fatalf("expected exactly one snapshot, got %d", len(st.records))
	}

	snapshot, ok := st.records[0].(Snapshot)
	if !ok {
		t.Fatalf("unexpected record type %T", st.records[0])
	}

	if snapshot.Summary == nil || *snapshot.Summary != s.Summary {
		t.Fatalf("expected snapshot summary, got %v", snapshot.Summary)
	}

	if !strings.HasSuffix(snapshot.TS, "Z") {
		t.Fatalf("expected UTC timestamp with Z suffix, got %q", snapshot.TS)
	}

	// Closing message is part of the final replies.
	if replies[len(replies)-1] != msgClosing {
		t.Fatalf("expected closing message, got %v", replies)
	}
}

func TestValidationFailureDoesNotAdvance(t *testing.T) {
	m := newTestMachine(staticResponse("{}"), nil)
	s := NewSession(false)
	ctx := context.Background()

	m.Start(s)
	m.HandleMessage(ctx, s, "John Smith")

	replies := m.HandleMessage(ctx, s, "not-an-email")

	if s.FieldIndex != 1 {
		t.Fatalf("expected field index unchanged, got %d", s.FieldIndex)
	}

	if _, stored := s.Profile[FieldEmail]; stored {
		t.Fatal("expected no email to be stored on validation failure")
	}

	if len(replies) != 1 || !strings.Contains(replies[0], "valid email") {
		t.Fatalf("expected email retry prompt, got %v", replies)
	}

	// The same field accepts a corrected value afterwards.
	m.HandleMessage(ctx, s, "jdoe@example.com")
	if s.FieldIndex != 2 {
		t.Fatalf("expected field index to advance after valid retry, got %d", s.FieldIndex)
	}
}

func TestRatingRetryDoesNotAdvance(t *testing.T) {
	m := newTestMachine(staticResponse("{}"), nil)
	s := NewSession(false)
	ctx := context.Background()

	m.Start(s)
	for _, input := range validFieldInputs {
		m.HandleMessage(ctx, s, input)
	}

	replies := m.HandleMessage(ctx, s, "100")

	if len(s.Ratings) != 0 || s.RatingIndex != 0 {
		t.Fatalf("expected no rating recorded, got %v", s.Ratings)
	}

	if len(replies) != 1 || replies[0] != msgRatingRetry {
		t.Fatalf("expected rating retry prompt, got %v", replies)
	}
}

func TestPerTechQuestionNumbering(t *testing.T) {
	backend := routingBackend(
		`{"Go": ["G1?", "G2?", "G3?"], "React": ["R1?", "R2?", "R3?"]}`,
		`{"score": 6, "feedback": "fine"}`,
		"summary",
	)
	m := newTestMachine(backend, nil)
	s := NewSession(false)
	ctx := context.Background()

	m.Start(s)
	inputs := append([]string{}, validFieldInputs...)
	inputs[len(inputs)-1] = "Go, React"
	for _, input := range inputs {
		m.HandleMessage(ctx, s, input)
	}

	m.HandleMessage(ctx, s, "7")
	replies := m.HandleMessage(ctx, s, "9")

	labels := []string{replies[len(replies)-1]}
	for !s.Ended() {
		replies = m.HandleMessage(ctx, s, "my answer")
		labels = append(labels, replies[0])
	}

	expected := []string{"Go Q1:", "Go Q2:", "Go Q3:", "React Q1:", "React Q2:", "React Q3:"}
	for i, prefix := range expected {
		if !strings.HasPrefix(labels[i], prefix) {
			t.Fatalf("expected label %d to start with %q, got %q", i, prefix, labels[i])
		}
	}
}

func TestDuplicateTechsCollapseToOneRatingEach(t *testing.T) {
	backend := routingBackend(
		`{"Go": ["G1?", "G2?", "G3?"]}`,
		`{"score": 6, "feedback": "fine"}`,
		"summary",
	)
	m := newTestMachine(backend, nil)
	s := NewSession(false)
	ctx := context.Background()

	m.Start(s)
	inputs := append([]string{}, validFieldInputs...)
	inputs[len(inputs)-1] = "Go, Go, go"
	for _, input := range inputs {
		m.HandleMessage(ctx, s, input)
	}

	if len(s.Techs) != 1 {
		t.Fatalf("expected distinct techs, got %v", s.Techs)
	}

	m.HandleMessage(ctx, s, "7")

	if len(s.Ratings) != len(s.Techs) {
		t.Fatalf("expected one rating per tech, got %v for techs %v", s.Ratings, s.Techs)
	}

	if s.Phase != PhaseAskingQuestions {
		t.Fatalf("expected asking_questions after the single rating, got %s", s.Phase)
	}

	if len(s.Questions) != 3 {
		t.Fatalf("expected 3 questions without duplication, got %d", len(s.Questions))
	}
}

func TestEndKeywordEndsSessionFromAnyPhase(t *testing.T) {
	st := &fakeStore{}
	m := newTestMachine(staticResponse("{}"), st)
	s := NewSession(true)
	ctx := context.Background()

	m.Start(s)
	m.HandleMessage(ctx, s, "John Smith")
	m.HandleMessage(ctx, s, "jdoe@example.com")

	replies := m.HandleMessage(ctx, s, "  Thank You ")

	if !s.Ended() {
		t.Fatalf("expected session to end, got %s", s.Phase)
	}

	if len(replies) != 1 || replies[0] != msgClosing {
		t.Fatalf("expected closing message, got %v", replies)
	}

	if len(st.records) != 1 {
		t.Fatalf("expected one snapshot, got %d", len(st.records))
	}

	snapshot := st.records[0].(Snapshot)
	if snapshot.Summary != nil {
		t.Fatalf("expected absent summary, got %v", *snapshot.Summary)
	}

	if snapshot.Info[FieldFullName] != "J*** S****" {
		t.Fatalf("expected collected fields in snapshot, got %v", snapshot.Info)
	}

	// Further messages only get the fixed acknowledgment and never persist
	// a second record.
	replies = m.HandleMessage(ctx, s, "hello again")
	if len(replies) != 1 || replies[0] != msgSessionDone {
		t.Fatalf("expected done acknowledgment, got %v", replies)
	}
	if len(st.records) != 1 {
		t.Fatalf("expected still one snapshot, got %d", len(st.records))
	}
}

func TestEndKeywordWithoutConsentDoesNotPersist(t *testing.T) {
	st := &fakeStore{}
	m := newTestMachine(staticResponse("{}"), st)
	s := NewSession(false)
	ctx := context.Background()

	m.Start(s)
	m.HandleMessage(ctx, s, "bye")

	if !s.Ended() {
		t.Fatal("expected session to end")
	}

	if len(st.records) != 0 {
		t.Fatalf("expected no snapshot without consent, got %d", len(st.records))
	}
}

func TestScorerFailureDoesNotAbortInterview(t *testing.T) {
	backend := &stubBackend{respond: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "Generate interview questions"):
			return `{"Python": ["P1?", "P2?", "P3?"]}`, nil
		case strings.Contains(prompt, "Rate the following interview answer"):
			return "", errors.New("backend down")
		default:
			return "summary text", nil
		}
	}}
	m := newTestMachine(backend, nil)
	s := NewSession(false)
	ctx := context.Background()

	m.Start(s)
	for _, input := range validFieldInputs {
		m.HandleMessage(ctx, s, input)
	}
	m.HandleMessage(ctx, s, "7")

	for !s.Ended() {
		m.HandleMessage(ctx, s, "my answer")
	}

	if len(s.Answers) != 3 {
		t.Fatalf("expected 3 answers, got %d", len(s.Answers))
	}

	for _, answer := range s.Answers {
		if answer.Score != nil || answer.Feedback != nil {
			t.Fatalf("expected absent score and feedback, got %+v", answer)
		}
	}

	if s.Summary != "summary text" {
		t.Fatalf("expected summary despite scoring failures, got %q", s.Summary)
	}
}

func TestBackendDownStillCompletesWithFallbacks(t *testing.T) {
	st := &fakeStore{}
	m := newTestMachine(failingBackend(), st)
	s := NewSession(true)
	ctx := context.Background()

	m.Start(s)
	for _, input := range validFieldInputs {
		m.HandleMessage(ctx, s, input)
	}

	m.HandleMessage(ctx, s, "7")

	if s.Phase != PhaseAskingQuestions {
		t.Fatalf("expected fallback questions to reach asking_questions, got %s", s.Phase)
	}

	if len(s.Questions) < 3 {
		t.Fatalf("expected at least 3 fallback questions, got %d", len(s.Questions))
	}

	for !s.Ended() {
		m.HandleMessage(ctx, s, "my answer")
	}

	if s.Summary != msgSummaryFallback {
		t.Fatalf("expected fallback summary, got %q", s.Summary)
	}

	snapshot := st.records[0].(Snapshot)
	if snapshot.Summary == nil || *snapshot.Summary != msgSummaryFallback {
		t.Fatalf("expected fallback summary persisted, got %v", snapshot.Summary)
	}
}

func TestStraySummarizingMessageAcknowledged(t *testing.T) {
	m := newTestMachine(staticResponse("{}"), nil)
	s := NewSession(false)
	s.Phase = PhaseSummarizing

	replies := m.HandleMessage(context.Background(), s, "are you there?")

	if len(replies) != 1 || replies[0] != msgAfterSummary {
		t.Fatalf("expected summary acknowledgment, got %v", replies)
	}

	if s.Phase != PhaseSummarizing {
		t.Fatalf("expected phase unchanged, got %s", s.Phase)
	}
}

func TestTranscriptRecordsBothRoles(t *testing.T) {
	m := newTestMachine(staticResponse("{}"), nil)
	s := NewSession(false)
	ctx := context.Background()

	m.Start(s)
	m.HandleMessage(ctx, s, "John Smith")

	if len(s.Transcript) != 4 {
		t.Fatalf("expected 4 transcript turns, got %d", len(s.Transcript))
	}

	if s.Transcript[0].Role != RoleAssistant || s.Transcript[2].Role != RoleUser {
		t.Fatalf("unexpected transcript roles: %+v", s.Transcript)
	}

	if s.Transcript[2].Text != "John Smith" {
		t.Fatalf("expected user text recorded, got %q", s.Transcript[2].Text)
	}
}

func TestEmptyQuestionSetFinishesOnNextMessage(t *testing.T) {
	m := newTestMachine(routingBackend("{}", "{}", "short summary"), nil)
	s := NewSession(false)
	s.Phase = PhaseAskingQuestions

	m.HandleMessage(context.Background(), s, "hello")

	if !s.Ended() {
		t.Fatalf("expected session to finish, got %s", s.Phase)
	}

	if len(s.Answers) != 0 {
		t.Fatalf("expected no answers, got %d", len(s.Answers))
	}

	if s.Summary != "short summary" {
		t.Fatalf("unexpected summary: %q", s.Summary)
	}
}
