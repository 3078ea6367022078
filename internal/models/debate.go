package models

// Role is one of the three fixed analytical personas a model is
// prompted to adopt during a debate run.
type Role string

const (
	RoleBull  Role = "bull"
	RoleBear  Role = "bear"
	RoleJudge Role = "judge"
)

// Stage is one phase of the debate state machine. Stages only advance
// forward; "failed" is reachable from bull, bear or judge when the
// whole stage produced nothing, and from context when the snapshot
// fetch failed.
type Stage string

const (
	StageContext Stage = "context"
	StageBull    Stage = "bull"
	StageBear    Stage = "bear"
	StageJudge   Stage = "judge"
	StageDone    Stage = "done"
	StageFailed  Stage = "failed"
)

// TradingPlan carries the structured plan extracted from the judge
// verdict when quant mode is active.
type TradingPlan struct {
	Action string `json:"action,omitempty"`
	Entry  string `json:"entry,omitempty"`
	Stop   string `json:"stop,omitempty"`
}

// ExtractedFields is the typed view of one persona's free-text output.
type ExtractedFields struct {
	Thesis     string       `json:"thesis"`
	Confidence int          `json:"confidence"`
	Plan       *TradingPlan `json:"plan,omitempty"`
}

// PersonaResult is the settled outcome of one model call. Immutable
// once produced.
type PersonaResult struct {
	Role      Role            `json:"role"`
	ModelName string          `json:"model_name"`
	RawText   string          `json:"raw_text"`
	Fields    ExtractedFields `json:"fields"`
	OK        bool            `json:"ok"`
	ErrReason string          `json:"err_reason,omitempty"`
}

// DebateState is the orchestrator's mutable run state for a single
// request. It never outlives the request and is never shared between
// concurrent runs.
type DebateState struct {
	Ticker string
	Stage  Stage
	Bulls  []PersonaResult
	Bears  []PersonaResult
	Judge  *PersonaResult
}

// SuccessfulResults returns the settled bull and bear results that
// actually produced output, in stage order.
func (s *DebateState) SuccessfulResults() []PersonaResult {
	out := make([]PersonaResult, 0, len(s.Bulls)+len(s.Bears))
	for _, r := range s.Bulls {
		if r.OK {
			out = append(out, r)
		}
	}
	for _, r := range s.Bears {
		if r.OK {
			out = append(out, r)
		}
	}
	return out
}

// ConsensusReport is the terminal aggregate of one debate run.
type ConsensusReport struct {
	Ticker            string  `json:"ticker"`
	PriceContext      float64 `json:"price_context"`
	Summary           string  `json:"summary"`
	BullishCase       string  `json:"bullish_case"`
	BearishCase       string  `json:"bearish_case"`
	ConfidenceScore   int     `json:"confidence_score"`
	SentimentAnalysis string  `json:"sentiment_analysis"`
}
