package domain

import "time"

type Intent string

const (
	// IntentFrameData marks questions asking for exact numeric move
	// statistics (startup, damage, advantage).
	IntentFrameData Intent = "frame_data"
	// IntentTheory marks strategy/psychology/matchup questions answered
	// from the knowledge base.
	IntentTheory Intent = "theory"
)

// QuestionAnalysis is the classifier output: an intent tag plus optional
// entity hints. Entities may be blank; routing tolerates that.
type QuestionAnalysis struct {
	Intent    Intent `json:"intent"`
	Character string `json:"character"`
	Move      string `json:"move"`
}

// RequiresFactLookup applies the routing rule: exact lookup only when the
// question is numeric AND a subject entity was extracted. Everything else
// goes to semantic retrieval, including numeric questions with no resolvable
// subject.
func (a QuestionAnalysis) RequiresFactLookup() bool {
	return a.Intent == IntentFrameData && a.Character != ""
}

type AskRequest struct {
	Question string `json:"question"`
	History  string `json:"history,omitempty"`
}

type AnswerMode string

const (
	ModeGrounded AnswerMode = "grounded"
	ModeAnalysis AnswerMode = "analysis_advice"
	ModeDeclined AnswerMode = "declined"
)

// CoachingAnswer is the terminal artifact returned to the caller. Analysis
// is present only in analysis_advice mode. Violations carries numbers the
// grounded answer used that the source records never stated; it stays out of
// the wire payload and feeds observability.
type CoachingAnswer struct {
	Mode     AnswerMode       `json:"mode"`
	Analysis string           `json:"analysis,omitempty"`
	Advice   string           `json:"advice"`
	Context  string           `json:"context,omitempty"`
	Sources  []RetrievedChunk `json:"sources,omitempty"`

	Violations []string `json:"-"`
}

// AskLimits bounds each pipeline phase. Zero values are backfilled with
// defaults by the use case.
type AskLimits struct {
	ClassifyTimeout  time.Duration `json:"classify_timeout"`
	ExpandTimeout    time.Duration `json:"expand_timeout"`
	RetrieveTimeout  time.Duration `json:"retrieve_timeout"`
	RerankTimeout    time.Duration `json:"rerank_timeout"`
	SynthesisTimeout time.Duration `json:"synthesis_timeout"`
	SummaryTimeout   time.Duration `json:"summary_timeout"`

	MaxExpansions       int     `json:"max_expansions"`
	PerQueryK           int     `json:"per_query_k"`
	RerankTopN          int     `json:"rerank_top_n"`
	SearchConcurrency   int     `json:"search_concurrency"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	HistoryCharBudget   int     `json:"history_char_budget"`
}
