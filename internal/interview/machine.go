package interview

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/talentscout/talentscout/internal/textutil"
)

// Assistant copy. The wording follows the product script; validators reference
// the same field names the prompts use.
const (
	msgGreeting        = "Hello! I'm your AI hiring assistant. Let's get started with your details."
	msgRatingsIntro    = "Before technical questions, please rate your confidence for each tech (1-10)."
	msgRatingRetry     = "Please enter a number 1-10."
	msgGenerating      = "Great. Generating technical questions..."
	msgNoQuestions     = "I couldn't generate questions right now. Please re-enter your Tech Stack."
	msgPreparing       = "Thanks! Preparing a brief summary..."
	msgSummaryFallback = "Summary unavailable due to a temporary issue."
	msgClosing         = "Thank you for your time! Our team will reach out soon."
	msgAfterSummary    = "Thanks again! You may close this window."
	msgSessionDone     = "Session completed. Type 'exit' to close."
	msgSkipRatings     = "Let's move to technical questions."
)

var fieldPrompts = map[string]string{
	FieldFullName:   "What is your Full Name?",
	FieldEmail:      "Please share your Email Address.",
	FieldPhone:      "What is your Phone Number?",
	FieldExperience: "How many Years of Experience do you have?",
	FieldPositions:  "What is/are your Desired Position(s)?",
	FieldLocation:   "Where are you currently located?",
	FieldTechStack:  "Please list your Tech Stack (comma-separated, e.g., Python, Django, React).",
}

// SnapshotStore persists one record per finished (or aborted) session.
type SnapshotStore interface {
	Append(record any) error
}

// Deps aggregates the machine's collaborators. Store may be nil when
// persistence is disabled.
type Deps struct {
	Questions  *QuestionGenerator
	Scorer     *AnswerScorer
	Summarizer *SummaryGenerator
	Store      SnapshotStore
	Logger     *zap.Logger
}

// Machine drives the conversation: it validates each user message against the
// current phase, invokes the generators at the right points and computes the
// assistant's replies. All session mutation happens here.
type Machine struct {
	questions  *QuestionGenerator
	scorer     *AnswerScorer
	summarizer *SummaryGenerator
	store      SnapshotStore
	logger     *zap.Logger
	now        func() time.Time
}

func NewMachine(deps Deps) *Machine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Machine{
		questions:  deps.Questions,
		scorer:     deps.Scorer,
		summarizer: deps.Summarizer,
		store:      deps.Store,
		logger:     logger,
		now:        time.Now,
	}
}

// Start emits the one-time greeting and the first field prompt, advancing the
// session out of the greeting phase. Calling it on a started session is a
// no-op.
func (m *Machine) Start(s *Session) []string {
	if s.Phase != PhaseGreeting {
		return nil
	}

	m.transition(s, PhaseCollectingFields)
	s.FieldIndex = 0

	return m.reply(s, msgGreeting, fieldPrompts[Fields[0]])
}

// HandleMessage processes one user message and returns the assistant replies.
// The end-keyword check runs before phase dispatch and ends the session from
// any phase.
func (m *Machine) HandleMessage(ctx context.Context, s *Session, input string) []string {
	if s.Ended() {
		s.record(RoleUser, input)
		return m.reply(s, msgSessionDone)
	}

	s.record(RoleUser, input)

	if textutil.IsEndMessage(input) {
		m.logger.Info("session ended by user", zap.String("phase", s.Phase.String()))
		replies := m.reply(s, msgClosing)
		m.persistSnapshot(s)
		m.transition(s, PhaseDone)
		return replies
	}

	switch s.Phase {
	case PhaseGreeting:
		// Normally Start runs first; treat the stray message as the
		// answer to the first field after greeting.
		replies := m.Start(s)
		return append(replies, m.handleField(ctx, s, input)...)
	case PhaseCollectingFields:
		return m.handleField(ctx, s, input)
	case PhaseRatingTechs:
		return m.handleRating(ctx, s, input)
	case PhaseAskingQuestions:
		return m.handleAnswer(ctx, s, input)
	case PhaseSummarizing:
		return m.reply(s, msgAfterSummary)
	default:
		return m.reply(s, msgSessionDone)
	}
}

func (m *Machine) handleField(ctx context.Context, s *Session, input string) []string {
	field := Fields[s.FieldIndex]

	if retry := m.validateAndStore(s, field, input); retry != "" {
		m.logger.Debug("field validation failed",
			zap.String("field", field),
			zap.Int("field_index", s.FieldIndex),
		)
		return m.reply(s, retry)
	}

	s.FieldIndex++

	if s.FieldIndex < len(Fields) {
		return m.reply(s, fieldPrompts[Fields[s.FieldIndex]])
	}

	replies := m.reply(s, profileRecap(s.Profile))

	if len(s.Techs) == 0 {
		// Tech Stack validation guarantees at least one entry; kept as
		// a recovery path only. The next message lands in the question
		// phase with an empty set and finishes the session.
		m.transition(s, PhaseAskingQuestions)
		s.QuestionCursor = 0
		return append(replies, m.reply(s, msgSkipRatings)...)
	}

	m.transition(s, PhaseRatingTechs)
	s.RatingIndex = 0

	return append(replies, m.reply(s,
		msgRatingsIntro,
		ratingPrompt(s.Techs[0]),
	)...)
}

func (m *Machine) handleRating(ctx context.Context, s *Session, input string) []string {
	value, ok := textutil.ParseRating(input)
	if !ok {
		return m.reply(s, msgRatingRetry)
	}

	s.Ratings[s.Techs[s.RatingIndex]] = value
	s.RatingIndex++

	if s.RatingIndex < len(s.Techs) {
		return m.reply(s, "Thanks. "+ratingPrompt(s.Techs[s.RatingIndex]))
	}

	replies := m.reply(s, msgGenerating)

	qmap := m.questions.Generate(ctx, s.Techs)
	for _, tech := range s.Techs {
		for _, text := range qmap[tech] {
			s.Questions = append(s.Questions, Question{Tech: tech, Text: text})
		}
	}
	s.QuestionCursor = 0

	m.logger.Info("questions generated",
		zap.Int("tech_count", len(s.Techs)),
		zap.Int("question_count", len(s.Questions)),
	)

	if len(s.Questions) == 0 {
		m.transition(s, PhaseCollectingFields)
		s.FieldIndex = len(Fields) - 1
		return append(replies, m.reply(s, msgNoQuestions)...)
	}

	m.transition(s, PhaseAskingQuestions)
	return append(replies, m.reply(s, questionLabel(s, 0))...)
}

func (m *Machine) handleAnswer(ctx context.Context, s *Session, input string) []string {
	if s.QuestionCursor >= len(s.Questions) {
		return m.finish(ctx, s)
	}

	current := s.Questions[s.QuestionCursor]

	result, err := m.scorer.Score(ctx, current.Text, strings.TrimSpace(input))
	if err != nil {
		m.logger.Warn("answer scoring failed, recording answer without score",
			zap.String("tech", current.Tech),
			zap.Error(err),
		)
		result = ScoreResult{}
	}

	s.Answers = append(s.Answers, Answer{
		Tech:     current.Tech,
		Question: current.Text,
		Answer:   strings.TrimSpace(input),
		Score:    result.Score,
		Feedback: result.Feedback,
	})

	s.QuestionCursor++

	if s.QuestionCursor < len(s.Questions) {
		return m.reply(s, questionLabel(s, s.QuestionCursor))
	}

	return m.finish(ctx, s)
}

// finish runs the summarizing step: generate (or fall back), emit the summary
// and closing message, persist the consent-gated snapshot and terminate.
func (m *Machine) finish(ctx context.Context, s *Session) []string {
	m.transition(s, PhaseSummarizing)

	replies := m.reply(s, msgPreparing)

	summary, err := m.summarizer.Generate(ctx, s.Profile, s.Ratings, s.Answers)
	if err != nil {
		m.logger.Warn("summary generation failed, using fallback", zap.Error(err))
		summary = msgSummaryFallback
	}
	s.Summary = summary

	replies = append(replies, m.reply(s, summary, msgClosing)...)

	m.persistSnapshot(s)
	m.transition(s, PhaseDone)

	return replies
}

// validateAndStore checks the input against the field's rule and stores the
// (possibly masked) value. It returns a corrective prompt on failure and
// leaves the session untouched in that case.
func (m *Machine) validateAndStore(s *Session, field, input string) string {
	u := strings.TrimSpace(input)

	switch field {
	case FieldFullName:
		if len(strings.Fields(u)) < 2 {
			return "Please enter your first and last name."
		}
		s.Profile[field] = textutil.MaskValue(u)
	case FieldEmail:
		if !strings.Contains(u, "@") || !strings.Contains(u, ".") {
			return "That doesn't look like a valid email. Please re-enter your Email Address."
		}
		s.Profile[field] = textutil.MaskEmail(u)
	case FieldPhone:
		if n := countDigits(u); n < 7 || n > 15 {
			return "Please enter a valid Phone Number (7-15 digits)."
		}
		s.Profile[field] = textutil.MaskValue(u)
	case FieldExperience:
		if !isDigits(u) {
			return "Please enter your experience in numbers only (e.g., 3)."
		}
		s.Profile[field] = u
	case FieldPositions:
		if len([]rune(u)) < 2 {
			return "That seems too short. Please provide your Desired Position(s)."
		}
		s.Profile[field] = u
	case FieldLocation:
		if len([]rune(u)) < 2 {
			return "Please provide a valid Current Location (city/region)."
		}
		s.Profile[field] = u
	case FieldTechStack:
		techs := textutil.ParseTechList(u)
		if len(techs) == 0 {
			return "I couldn't understand your tech stack. Please list technologies comma-separated (e.g., Python, Django)."
		}
		s.Profile[field] = strings.Join(techs, ", ")
		s.Techs = techs
	}

	return ""
}

// persistSnapshot appends one consent-gated record. It runs at most once per
// session and never fails the conversation; append errors are only logged.
func (m *Machine) persistSnapshot(s *Session) {
	if !s.Consent || m.store == nil || s.Snapshotted {
		return
	}

	snapshot := Snapshot{
		TS:      m.now().UTC().Format(time.RFC3339),
		Info:    s.Profile,
		Ratings: s.Ratings,
		Answers: s.Answers,
	}
	if s.Summary != "" {
		snapshot.Summary = &s.Summary
	}

	if err := m.store.Append(snapshot); err != nil {
		m.logger.Warn("snapshot append failed", zap.Error(err))
		return
	}

	s.Snapshotted = true
	m.logger.Info("snapshot persisted",
		zap.Int("answer_count", len(s.Answers)),
		zap.Bool("with_summary", snapshot.Summary != nil),
	)
}

func (m *Machine) transition(s *Session, to Phase) {
	m.logger.Debug("phase transition",
		zap.String("from", s.Phase.String()),
		zap.String("to", to.String()),
	)
	s.Phase = to
}

// reply records and returns assistant messages.
func (m *Machine) reply(s *Session, texts ...string) []string {
	for _, text := range texts {
		s.record(RoleAssistant, text)
	}
	return texts
}

func ratingPrompt(tech string) string {
	return fmt.Sprintf("On a scale of 1-10, how confident are you in %s?", tech)
}

// questionLabel renders a question with its tech and per-tech running number.
func questionLabel(s *Session, idx int) string {
	q := s.Questions[idx]
	n := 1
	for i := 0; i < idx; i++ {
		if s.Questions[i].Tech == q.Tech {
			n++
		}
	}
	return fmt.Sprintf("%s Q%d: %s", q.Tech, n, q.Text)
}

// profileRecap renders the stored (masked) profile as a bullet list in field
// order.
func profileRecap(profile map[string]string) string {
	lines := make([]string, 0, len(profile)+1)
	lines = append(lines, "Here is what I have so far:")

	for _, field := range Fields {
		if value, ok := profile[field]; ok {
			lines = append(lines, fmt.Sprintf("- %s: %s", field, value))
		}
	}

	return strings.Join(lines, "\n")
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
