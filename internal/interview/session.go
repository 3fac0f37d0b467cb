package interview

// Phase identifies the stage of the conversation, which determines how the
// next user message is interpreted.
type Phase int

const (
	PhaseGreeting Phase = iota
	PhaseCollectingFields
	PhaseRatingTechs
	PhaseAskingQuestions
	PhaseSummarizing
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseGreeting:
		return "greeting"
	case PhaseCollectingFields:
		return "collecting_fields"
	case PhaseRatingTechs:
		return "rating_techs"
	case PhaseAskingQuestions:
		return "asking_questions"
	case PhaseSummarizing:
		return "summarizing"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Profile field names, in interview order.
const (
	FieldFullName   = "Full Name"
	FieldEmail      = "Email Address"
	FieldPhone      = "Phone Number"
	FieldExperience = "Years of Experience"
	FieldPositions  = "Desired Position(s)"
	FieldLocation   = "Current Location"
	FieldTechStack  = "Tech Stack"
)

// Fields lists the profile fields in the order they are collected.
var Fields = []string{
	FieldFullName,
	FieldEmail,
	FieldPhone,
	FieldExperience,
	FieldPositions,
	FieldLocation,
	FieldTechStack,
}

// Question is one generated interview question for a technology.
type Question struct {
	Tech string `json:"tech"`
	Text string `json:"text"`
}

// Answer records the candidate's response to one question, with the optional
// model-assigned score and feedback.
type Answer struct {
	Tech     string  `json:"tech"`
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    *int    `json:"score"`
	Feedback *string `json:"feedback"`
}

// Message is one transcript turn.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Snapshot is the consent-gated record persisted at the end of a session.
// Summary is nil when the session ended before a summary was produced.
type Snapshot struct {
	TS      string            `json:"ts"`
	Info    map[string]string `json:"info"`
	Ratings map[string]int    `json:"ratings"`
	Answers []Answer          `json:"answers"`
	Summary *string           `json:"summary"`
}

// Session holds the mutable state of one conversation. It is mutated only by
// the Machine, one message at a time.
type Session struct {
	Phase          Phase
	FieldIndex     int
	Profile        map[string]string
	Techs          []string
	RatingIndex    int
	Ratings        map[string]int
	Questions      []Question
	QuestionCursor int
	Answers        []Answer
	Consent        bool
	Summary        string
	Snapshotted    bool
	Transcript     []Message
}

// NewSession creates an empty session in the greeting phase.
func NewSession(consent bool) *Session {
	return &Session{
		Phase:   PhaseGreeting,
		Profile: make(map[string]string),
		Ratings: make(map[string]int),
		Consent: consent,
	}
}

// Ended reports whether the session reached its terminal phase.
func (s *Session) Ended() bool {
	return s.Phase == PhaseDone
}

func (s *Session) record(role, text string) {
	s.Transcript = append(s.Transcript, Message{Role: role, Text: text})
}
