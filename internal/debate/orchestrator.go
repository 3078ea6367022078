// Package debate implements the consensus engine: a staged state
// machine that fans one analysis request out to every configured model
// twice (bull and bear), then runs a single judge synthesis over the
// surviving output. The engine is transport-agnostic; it reports
// progress through an event callback and the same run path serves both
// the streaming and the sync response modes.
package debate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/investlens/lenscore/config"
	"github.com/investlens/lenscore/internal/extract"
	"github.com/investlens/lenscore/internal/llm"
	"github.com/investlens/lenscore/internal/logger"
	"github.com/investlens/lenscore/internal/models"
)

// MarketDataProvider is the read-only market context collaborator.
type MarketDataProvider interface {
	GetSnapshot(ctx context.Context, ticker string) (*models.MarketSnapshot, error)
}

// NewsProvider supplies best-effort headline context for prompts. A nil
// provider or a failed fetch degrades to "no recent news".
type NewsProvider interface {
	Headlines(ctx context.Context, ticker string, limit int) (string, error)
}

// Request is one debate run. Model configs are explicit per-request
// state; the engine never reads credentials from anywhere else.
type Request struct {
	Ticker     string
	FocusAreas []string
	Configs    []models.ModelConfig
	Quant      bool
}

// ErrContextUnavailable aborts a run whose market snapshot could not be
// fetched. No model calls are issued after it.
var ErrContextUnavailable = errors.New("market context unavailable")

// StageExhaustedError marks a stage in which every model call failed.
type StageExhaustedError struct {
	Stage models.Stage
}

func (e *StageExhaustedError) Error() string {
	return fmt.Sprintf("every model call failed in the %s stage", e.Stage)
}

// Orchestrator drives debate runs. One instance is safe for concurrent
// use: all run state lives in per-call locals.
type Orchestrator struct {
	market    MarketDataProvider
	news      NewsProvider
	factory   llm.Factory
	extractor *extract.Extractor

	callTimeout time.Duration
	retry       retryPolicy
	newsItems   int
}

func NewOrchestrator(cfg *config.Config, market MarketDataProvider, news NewsProvider, factory llm.Factory) *Orchestrator {
	return &Orchestrator{
		market:      market,
		news:        news,
		factory:     factory,
		extractor:   extract.New(cfg.NeutralConfidence),
		callTimeout: cfg.CallTimeout,
		retry:       defaultRetryPolicy(cfg.CallRetries, cfg.RetryBackoff),
		newsItems:   cfg.NewsMaxItems,
	}
}

// Run executes the debate and streams events on the returned channel.
// The channel closes after the terminal done/failed event. The caller
// must drain it; an abandoned stream does not stall in-flight calls
// because the channel is serviced until close regardless of transport
// state (the writer simply stops forwarding).
func (o *Orchestrator) Run(ctx context.Context, req Request) <-chan models.Event {
	events := make(chan models.Event, 16)
	go func() {
		defer close(events)
		_, _ = o.run(ctx, req, func(e models.Event) {
			events <- e
		})
	}()
	return events
}

// Analyze runs the debate to completion without incremental emission
// and returns the terminal report.
func (o *Orchestrator) Analyze(ctx context.Context, req Request) (*models.ConsensusReport, error) {
	return o.run(ctx, req, func(models.Event) {})
}

func (o *Orchestrator) run(ctx context.Context, req Request, emit func(models.Event)) (*models.ConsensusReport, error) {
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	state := &models.DebateState{Ticker: ticker, Stage: models.StageContext}

	configs := models.EnabledConfigs(req.Configs)
	if len(configs) == 0 {
		state.Stage = models.StageFailed
		err := errors.New("no enabled model configs")
		emit(models.Event{Stage: models.StageFailed, Status: models.StatusError, Message: err.Error()})
		return nil, err
	}

	// Stage: context. A missing snapshot is fatal; there is nothing to
	// debate without market data.
	emit(models.Event{Stage: models.StageContext, Status: models.StatusFetching, Message: "fetching market context for " + ticker})

	snapshot, err := o.market.GetSnapshot(ctx, ticker)
	if err != nil {
		state.Stage = models.StageFailed
		logger.ErrorWithErr(ctx, "market context fetch failed", err, "ticker", ticker)
		emit(models.Event{Stage: models.StageFailed, Status: models.StatusError, Message: fmt.Sprintf("market context unavailable for %s", ticker)})
		return nil, fmt.Errorf("%w: %s", ErrContextUnavailable, ticker)
	}

	input := PromptInput{
		Snapshot:   *snapshot,
		FocusAreas: req.FocusAreas,
		News:       o.fetchNews(ctx, ticker),
		Quant:      req.Quant,
	}

	emit(models.Event{Stage: models.StageContext, Status: models.StatusComplete,
		Content: fmt.Sprintf("%s %s %s (%s%%)", ticker, snapshot.Price.StringFixed(2), snapshot.Currency, snapshot.ChangePercent.StringFixed(2))})

	// Stage: bull.
	state.Stage = models.StageBull
	state.Bulls = o.fanOut(ctx, models.RoleBull, configs, input, emit)
	if countOK(state.Bulls) == 0 {
		state.Stage = models.StageFailed
		stageErr := &StageExhaustedError{Stage: models.StageBull}
		emit(models.Event{Stage: models.StageFailed, Status: models.StatusError, Message: stageErr.Error()})
		return nil, stageErr
	}
	emit(models.Event{Stage: models.StageBull, Status: models.StatusComplete})

	// Stage: bear. Bear prompts do not see bull output; the stages are
	// sequential only so clients render bull before bear.
	state.Stage = models.StageBear
	state.Bears = o.fanOut(ctx, models.RoleBear, configs, input, emit)
	if countOK(state.Bears) == 0 {
		state.Stage = models.StageFailed
		stageErr := &StageExhaustedError{Stage: models.StageBear}
		emit(models.Event{Stage: models.StageFailed, Status: models.StatusError, Message: stageErr.Error()})
		return nil, stageErr
	}
	emit(models.Event{Stage: models.StageBear, Status: models.StatusComplete})

	// Stage: judge. Exactly one call; its failure is non-fatal because
	// the raw debate content still has value.
	state.Stage = models.StageJudge
	judgeCfg, _ := models.JudgeConfig(req.Configs)
	input.Priors = state.SuccessfulResults()

	emit(models.Event{Stage: models.StageJudge, Status: models.StatusThinking, Model: judgeCfg.Name})

	judge := o.callPersona(ctx, models.RoleJudge, judgeCfg, input)
	state.Judge = &judge
	if judge.OK {
		emit(models.Event{Stage: models.StageJudge, Status: models.StatusComplete, Model: judge.ModelName, Content: judge.RawText})
	} else {
		logger.Warn(ctx, "judge call failed, assembling fallback verdict", "ticker", ticker, "reason", judge.ErrReason)
		emit(models.Event{Stage: models.StageJudge, Status: models.StatusError, Model: judge.ModelName, Message: judge.ErrReason})
	}

	state.Stage = models.StageDone
	report := o.buildReport(state, snapshot)
	emit(models.Event{Stage: models.StageDone, Status: models.StatusComplete, Result: report})
	return report, nil
}

func (o *Orchestrator) fetchNews(ctx context.Context, ticker string) string {
	if o.news == nil {
		return ""
	}
	headlines, err := o.news.Headlines(ctx, ticker, o.newsItems)
	if err != nil {
		logger.Warn(ctx, "news context unavailable", "ticker", ticker, "error", err)
		return ""
	}
	return headlines
}

// fanOut issues one call per config concurrently and collects results
// in completion order. The stage settles only when every call has
// succeeded, exhausted its retries, or timed out.
func (o *Orchestrator) fanOut(ctx context.Context, role models.Role, configs []models.ModelConfig, input PromptInput, emit func(models.Event)) []models.PersonaResult {
	stage := models.Stage(role)
	emit(models.Event{Stage: stage, Status: models.StatusThinking})

	settled := make(chan models.PersonaResult)
	for _, cfg := range configs {
		go func(cfg models.ModelConfig) {
			settled <- o.callPersona(ctx, role, cfg, input)
		}(cfg)
	}

	results := make([]models.PersonaResult, 0, len(configs))
	for range configs {
		r := <-settled
		results = append(results, r)
		if r.OK {
			emit(models.Event{Stage: stage, Status: models.StatusComplete, Model: r.ModelName, Content: r.RawText})
		} else {
			emit(models.Event{Stage: stage, Status: models.StatusError, Model: r.ModelName, Message: r.ErrReason})
		}
	}
	return results
}

// callPersona performs one persona call end to end: client build,
// bounded retry, structured extraction. Failures are absorbed into the
// result, never raised.
func (o *Orchestrator) callPersona(ctx context.Context, role models.Role, cfg models.ModelConfig, input PromptInput) models.PersonaResult {
	result := models.PersonaResult{Role: role, ModelName: cfg.Name}
	if result.ModelName == "" {
		result.ModelName = cfg.Model
	}

	client, err := o.factory(ctx, cfg, o.callTimeout)
	if err != nil {
		result.ErrReason = "model backend misconfigured"
		logger.ErrorWithErr(ctx, "model client build failed", err, "model", result.ModelName, "role", string(role))
		return result
	}

	prompt := BuildPrompt(role, input)

	var raw string
	err = withRetry(ctx, o.retry, func() error {
		var callErr error
		raw, callErr = client.Complete(ctx, prompt)
		return callErr
	})
	if err != nil {
		result.ErrReason = llm.Classify(err).Reason()
		logger.Warn(ctx, "persona call failed", "model", result.ModelName, "role", string(role), "reason", result.ErrReason)
		return result
	}

	result.RawText = raw
	fields, err := o.extractor.Extract(raw, role, input.Quant)
	result.Fields = fields
	if err != nil {
		// Only empty output fails extraction; partial parses succeed
		// with defaults.
		result.ErrReason = err.Error()
		return result
	}

	result.OK = true
	return result
}

// buildReport derives the terminal aggregate from the settled state.
// When the judge verdict is missing, the report carries the raw debate
// content with a placeholder judge section.
func (o *Orchestrator) buildReport(state *models.DebateState, snapshot *models.MarketSnapshot) *models.ConsensusReport {
	price, _ := snapshot.Price.Float64()
	report := &models.ConsensusReport{
		Ticker:       state.Ticker,
		PriceContext: price,
	}

	if state.Judge != nil && state.Judge.OK {
		sections := extract.Sections(state.Judge.RawText)
		report.Summary = sections["SUMMARY"]
		report.BullishCase = sections["BULL"]
		report.BearishCase = sections["BEAR"]
		report.SentimentAnalysis = sections["SENTIMENT"]
		report.ConfidenceScore = state.Judge.Fields.Confidence

		// A verdict that ignored the delimiter contract still has value
		// as prose.
		if report.Summary == "" {
			report.Summary = state.Judge.RawText
		}
		if report.SentimentAnalysis == "" {
			report.SentimentAnalysis = "Market sentiment is neutral/mixed."
		}
		if report.BullishCase == "" {
			report.BullishCase = joinTheses(state.Bulls)
		}
		if report.BearishCase == "" {
			report.BearishCase = joinTheses(state.Bears)
		}
		return report
	}

	report.Summary = fmt.Sprintf("The judge synthesis for %s was unavailable; the report below carries the unreconciled bull and bear arguments.", state.Ticker)
	report.BullishCase = joinTheses(state.Bulls)
	report.BearishCase = joinTheses(state.Bears)
	report.SentimentAnalysis = "Judge verdict unavailable."
	report.ConfidenceScore = o.extractor.Neutral()
	return report
}

func joinTheses(results []models.PersonaResult) string {
	var b strings.Builder
	for _, r := range results {
		if !r.OK {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "**%s**:\n%s", r.ModelName, strings.TrimSpace(r.Fields.Thesis))
	}
	return b.String()
}

func countOK(results []models.PersonaResult) int {
	n := 0
	for _, r := range results {
		if r.OK {
			n++
		}
	}
	return n
}
