package debate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/investlens/lenscore/config"
	"github.com/investlens/lenscore/internal/llm"
	"github.com/investlens/lenscore/internal/models"
)

const judgeVerdict = `---SUMMARY---
Setup is constructive but stretched.
---BULL---
Growth drivers intact.
---BEAR---
Valuation risk.
---SENTIMENT---
Cautiously optimistic.
---SCORE---
72`

func testConfig() *config.Config {
	return &config.Config{
		CallTimeout:       time.Second,
		CallRetries:       0,
		RetryBackoff:      time.Millisecond,
		NeutralConfidence: 50,
		NewsMaxItems:      5,
	}
}

func testSnapshot() *models.MarketSnapshot {
	return &models.MarketSnapshot{
		Symbol:        "AAPL",
		Name:          "Apple Inc.",
		Price:         decimal.NewFromFloat(190.50),
		Change:        decimal.NewFromFloat(1.25),
		ChangePercent: decimal.NewFromFloat(0.66),
		Currency:      "USD",
		Volume:        51000000,
		FetchedAt:     time.Now(),
	}
}

type fakeMarket struct {
	snapshot *models.MarketSnapshot
	err      error
}

func (m *fakeMarket) GetSnapshot(ctx context.Context, ticker string) (*models.MarketSnapshot, error) {
	return m.snapshot, m.err
}

// fakeClient routes each completion through a scripted handler keyed on
// the persona detectable from the system prompt.
type fakeClient struct {
	name string
	fn   func(role models.Role) (string, error)
}

func (c *fakeClient) ModelName() string { return c.name }

func (c *fakeClient) Complete(ctx context.Context, p llm.Prompt) (string, error) {
	return c.fn(promptRole(p))
}

func promptRole(p llm.Prompt) models.Role {
	switch {
	case strings.Contains(p.System, "'The Bull'"):
		return models.RoleBull
	case strings.Contains(p.System, "'The Bear'"):
		return models.RoleBear
	default:
		return models.RoleJudge
	}
}

// callCounter tallies completions per persona across goroutines.
type callCounter struct {
	mu     sync.Mutex
	counts map[models.Role]int
}

func newCallCounter() *callCounter {
	return &callCounter{counts: map[models.Role]int{}}
}

func (c *callCounter) inc(role models.Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[role]++
}

func (c *callCounter) get(role models.Role) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[role]
}

func scriptedFactory(counter *callCounter, fn func(role models.Role) (string, error)) llm.Factory {
	return func(ctx context.Context, cfg models.ModelConfig, timeout time.Duration) (llm.Client, error) {
		return &fakeClient{
			name: cfg.Name,
			fn: func(role models.Role) (string, error) {
				counter.inc(role)
				return fn(role)
			},
		}, nil
	}
}

func twoConfigs() []models.ModelConfig {
	return []models.ModelConfig{
		{ID: "1", Name: "model-a", Provider: "openai", BaseURL: "http://x", APIKey: "k", Model: "a", Enabled: true},
		{ID: "2", Name: "model-b", Provider: "openai", BaseURL: "http://x", APIKey: "k", Model: "b", Enabled: true},
	}
}

func collectEvents(t *testing.T, ch <-chan models.Event) []models.Event {
	t.Helper()
	var events []models.Event
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-deadline:
			t.Fatal("timed out waiting for event channel to close")
		}
	}
}

func TestRunHappyPathTwoModels(t *testing.T) {
	counter := newCallCounter()
	factory := scriptedFactory(counter, func(role models.Role) (string, error) {
		if role == models.RoleJudge {
			return judgeVerdict, nil
		}
		return "Solid thesis.\nConfidence Score: 70", nil
	})

	o := NewOrchestrator(testConfig(), &fakeMarket{snapshot: testSnapshot()}, nil, factory)
	events := collectEvents(t, o.Run(context.Background(), Request{Ticker: "aapl", Configs: twoConfigs()}))

	terminal := 0
	var last models.Event
	for _, ev := range events {
		if ev.Terminal() {
			terminal++
			last = ev
		}
	}
	if terminal != 1 {
		t.Fatalf("terminal events = %d, want exactly 1", terminal)
	}
	if last.Stage != models.StageDone {
		t.Fatalf("terminal stage = %s, want done", last.Stage)
	}
	if last.Result == nil {
		t.Fatal("done event carries no result")
	}

	report := last.Result
	if report.Ticker != "AAPL" {
		t.Errorf("Ticker = %q, want normalized AAPL", report.Ticker)
	}
	if report.ConfidenceScore != 72 {
		t.Errorf("ConfidenceScore = %d, want 72 from judge verdict", report.ConfidenceScore)
	}
	if report.Summary != "Setup is constructive but stretched." {
		t.Errorf("Summary = %q", report.Summary)
	}
	if report.PriceContext != 190.50 {
		t.Errorf("PriceContext = %v, want 190.50", report.PriceContext)
	}

	if got := counter.get(models.RoleBull); got != 2 {
		t.Errorf("bull calls = %d, want 2", got)
	}
	if got := counter.get(models.RoleBear); got != 2 {
		t.Errorf("bear calls = %d, want 2", got)
	}
	if got := counter.get(models.RoleJudge); got != 1 {
		t.Errorf("judge calls = %d, want 1", got)
	}

	// Per-model completion events surface inside each fan-out stage.
	bullCompletes := 0
	for _, ev := range events {
		if ev.Stage == models.StageBull && ev.Status == models.StatusComplete && ev.Model != "" {
			bullCompletes++
		}
	}
	if bullCompletes != 2 {
		t.Errorf("bull per-model complete events = %d, want 2", bullCompletes)
	}
}

func TestRunPartialBullFailureStillCompletes(t *testing.T) {
	counter := newCallCounter()
	var mu sync.Mutex
	bullFailed := false
	factory := scriptedFactory(counter, func(role models.Role) (string, error) {
		if role == models.RoleJudge {
			return judgeVerdict, nil
		}
		if role == models.RoleBull {
			mu.Lock()
			defer mu.Unlock()
			if !bullFailed {
				bullFailed = true
				return "", errors.New("401 unauthorized")
			}
		}
		return "Thesis.\nConfidence: 65", nil
	})

	o := NewOrchestrator(testConfig(), &fakeMarket{snapshot: testSnapshot()}, nil, factory)
	report, err := o.Analyze(context.Background(), Request{Ticker: "AAPL", Configs: twoConfigs()})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.ConfidenceScore != 72 {
		t.Errorf("ConfidenceScore = %d, want 72", report.ConfidenceScore)
	}
}

func TestRunAllBullCallsFail(t *testing.T) {
	counter := newCallCounter()
	factory := scriptedFactory(counter, func(role models.Role) (string, error) {
		return "", errors.New("401 unauthorized")
	})

	o := NewOrchestrator(testConfig(), &fakeMarket{snapshot: testSnapshot()}, nil, factory)
	events := collectEvents(t, o.Run(context.Background(), Request{Ticker: "AAPL", Configs: twoConfigs()}))

	terminal := 0
	var last models.Event
	for _, ev := range events {
		if ev.Terminal() {
			terminal++
			last = ev
		}
	}
	if terminal != 1 {
		t.Fatalf("terminal events = %d, want exactly 1", terminal)
	}
	if last.Stage != models.StageFailed {
		t.Fatalf("terminal stage = %s, want failed", last.Stage)
	}

	// The run must stop at the bull stage.
	if got := counter.get(models.RoleBear); got != 0 {
		t.Errorf("bear calls = %d, want 0 after bull exhaustion", got)
	}
	if got := counter.get(models.RoleJudge); got != 0 {
		t.Errorf("judge calls = %d, want 0 after bull exhaustion", got)
	}
	// Auth failures are not retried.
	if got := counter.get(models.RoleBull); got != 2 {
		t.Errorf("bull calls = %d, want 2 (one per config, no retries)", got)
	}
}

func TestAnalyzeStageExhaustedError(t *testing.T) {
	counter := newCallCounter()
	factory := scriptedFactory(counter, func(role models.Role) (string, error) {
		return "", errors.New("internal server error")
	})

	o := NewOrchestrator(testConfig(), &fakeMarket{snapshot: testSnapshot()}, nil, factory)
	_, err := o.Analyze(context.Background(), Request{Ticker: "AAPL", Configs: twoConfigs()})

	var stageErr *StageExhaustedError
	if !errors.As(err, &stageErr) {
		t.Fatalf("err = %v, want StageExhaustedError", err)
	}
	if stageErr.Stage != models.StageBull {
		t.Errorf("Stage = %s, want bull", stageErr.Stage)
	}
}

func TestRunMarketContextUnavailable(t *testing.T) {
	counter := newCallCounter()
	factory := scriptedFactory(counter, func(role models.Role) (string, error) {
		return "never reached", nil
	})

	o := NewOrchestrator(testConfig(), &fakeMarket{err: errors.New("no data found")}, nil, factory)
	_, err := o.Analyze(context.Background(), Request{Ticker: "ZZZZ", Configs: twoConfigs()})

	if !errors.Is(err, ErrContextUnavailable) {
		t.Fatalf("err = %v, want ErrContextUnavailable", err)
	}
	for _, role := range []models.Role{models.RoleBull, models.RoleBear, models.RoleJudge} {
		if got := counter.get(role); got != 0 {
			t.Errorf("%s calls = %d, want 0 when market context is missing", role, got)
		}
	}
}

func TestRunJudgeFailureNonFatal(t *testing.T) {
	counter := newCallCounter()
	factory := scriptedFactory(counter, func(role models.Role) (string, error) {
		if role == models.RoleJudge {
			return "", context.DeadlineExceeded
		}
		return "Thesis.\nConfidence: 60", nil
	})

	o := NewOrchestrator(testConfig(), &fakeMarket{snapshot: testSnapshot()}, nil, factory)
	events := collectEvents(t, o.Run(context.Background(), Request{Ticker: "AAPL", Configs: twoConfigs()}))

	var last models.Event
	for _, ev := range events {
		if ev.Terminal() {
			last = ev
		}
	}
	if last.Stage != models.StageDone {
		t.Fatalf("terminal stage = %s, want done despite judge failure", last.Stage)
	}
	report := last.Result
	if report == nil {
		t.Fatal("done event carries no result")
	}
	if report.ConfidenceScore != 50 {
		t.Errorf("ConfidenceScore = %d, want neutral 50", report.ConfidenceScore)
	}
	if !strings.Contains(report.Summary, "unavailable") {
		t.Errorf("Summary = %q, want placeholder mentioning the missing verdict", report.Summary)
	}
	if !strings.Contains(report.BullishCase, "Thesis.") {
		t.Errorf("BullishCase = %q, want joined bull theses", report.BullishCase)
	}
}

func TestRunRetriesTimeoutOnce(t *testing.T) {
	cfg := testConfig()
	cfg.CallRetries = 1

	counter := newCallCounter()
	var mu sync.Mutex
	timedOut := false
	factory := scriptedFactory(counter, func(role models.Role) (string, error) {
		if role == models.RoleBull {
			mu.Lock()
			defer mu.Unlock()
			if !timedOut {
				timedOut = true
				return "", context.DeadlineExceeded
			}
		}
		if role == models.RoleJudge {
			return judgeVerdict, nil
		}
		return "Thesis.\nConfidence: 60", nil
	})

	o := NewOrchestrator(cfg, &fakeMarket{snapshot: testSnapshot()}, nil, factory)
	configs := twoConfigs()[:1]
	report, err := o.Analyze(context.Background(), Request{Ticker: "AAPL", Configs: configs})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report == nil {
		t.Fatal("nil report")
	}
	// One initial bull call plus one retry after the timeout.
	if got := counter.get(models.RoleBull); got != 2 {
		t.Errorf("bull calls = %d, want 2 (timeout retried once)", got)
	}
}

func TestRunNoEnabledConfigs(t *testing.T) {
	o := NewOrchestrator(testConfig(), &fakeMarket{snapshot: testSnapshot()}, nil, scriptedFactory(newCallCounter(), nil))
	_, err := o.Analyze(context.Background(), Request{
		Ticker:  "AAPL",
		Configs: []models.ModelConfig{{ID: "1", Enabled: false}},
	})
	if err == nil {
		t.Fatal("expected error when no configs are enabled")
	}
}

func TestJudgeUsesDesignatedConfig(t *testing.T) {
	var mu sync.Mutex
	var judgeModel string
	factory := func(ctx context.Context, cfg models.ModelConfig, timeout time.Duration) (llm.Client, error) {
		return &fakeClient{
			name: cfg.Name,
			fn: func(role models.Role) (string, error) {
				if role == models.RoleJudge {
					mu.Lock()
					judgeModel = cfg.Name
					mu.Unlock()
					return judgeVerdict, nil
				}
				return "Thesis.\nConfidence: 60", nil
			},
		}, nil
	}

	configs := twoConfigs()
	configs[1].Judge = true

	o := NewOrchestrator(testConfig(), &fakeMarket{snapshot: testSnapshot()}, nil, factory)
	if _, err := o.Analyze(context.Background(), Request{Ticker: "AAPL", Configs: configs}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if judgeModel != "model-b" {
		t.Errorf("judge model = %q, want the flagged config (model-b)", judgeModel)
	}
}

func TestBuildPromptQuantGatesPlanSection(t *testing.T) {
	in := PromptInput{Snapshot: *testSnapshot()}

	plain := BuildPrompt(models.RoleJudge, in)
	if strings.Contains(plain.User, "High Risk Trading Plan") {
		t.Error("plan section present without quant mode")
	}
	if !strings.Contains(plain.User, "Market Sentiment") {
		t.Error("sentiment section missing without quant mode")
	}

	in.Quant = true
	quant := BuildPrompt(models.RoleJudge, in)
	if !strings.Contains(quant.User, "High Risk Trading Plan") {
		t.Error("plan section missing in quant mode")
	}
}

func TestBuildPromptJudgeSeesPriors(t *testing.T) {
	in := PromptInput{
		Snapshot: *testSnapshot(),
		Priors: []models.PersonaResult{
			{Role: models.RoleBull, ModelName: "model-a", RawText: "bull text", OK: true},
			{Role: models.RoleBear, ModelName: "model-b", RawText: "bear text", OK: true},
		},
	}

	p := BuildPrompt(models.RoleJudge, in)
	if !strings.Contains(p.User, "The Bull Case, via model-a") {
		t.Error("bull perspective missing from judge prompt")
	}
	if !strings.Contains(p.User, "The Bear Case, via model-b") {
		t.Error("bear perspective missing from judge prompt")
	}
	if !strings.Contains(p.User, "bull text") || !strings.Contains(p.User, "bear text") {
		t.Error("prior raw text missing from judge prompt")
	}
}
