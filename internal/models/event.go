package models

// EventStatus describes what a streamed event reports about its stage.
type EventStatus string

const (
	StatusFetching EventStatus = "fetching"
	StatusThinking EventStatus = "thinking"
	StatusComplete EventStatus = "complete"
	StatusError    EventStatus = "error"
)

// Event is one record of the debate event stream. Per-call events carry
// the model name and its settled result; stage-boundary events carry
// only stage and status. The terminal event has Stage=done with the
// full report, or Stage=failed with a human-readable message.
type Event struct {
	Stage   Stage            `json:"stage"`
	Status  EventStatus      `json:"status"`
	Model   string           `json:"model,omitempty"`
	Content string           `json:"content,omitempty"`
	Message string           `json:"message,omitempty"`
	Result  *ConsensusReport `json:"result,omitempty"`
}

// Terminal reports whether no further events follow this one. Per-call
// failures are emitted under their own stage (bull/bear/judge); only the
// closing done/failed records end the stream.
func (e Event) Terminal() bool {
	return e.Stage == StageDone || e.Stage == StageFailed
}
