package debate

import (
	"fmt"
	"strings"

	"github.com/investlens/lenscore/internal/llm"
	"github.com/investlens/lenscore/internal/models"
)

const bullPersona = "You are 'The Bull', an optimistic growth investor. " +
	"Your goal is to identify maximum upside potential, competitive moats, and growth drivers. " +
	"Focus on: " +
	"1. Revenue growth and TAM expansion. " +
	"2. Innovation and product leadership. " +
	"3. Positive market sentiment and momentum. " +
	"Ignore minor risks unless fatal. Be extremely persuasive about the long case."

const bearPersona = "You are 'The Bear', a skeptical forensic accountant and risk manager. " +
	"Your goal is to identify valuation traps, accounting red flags, and macro headwinds. " +
	"Focus on: " +
	"1. Overvaluation (high P/E, P/S). " +
	"2. Competitive threats and margin compression. " +
	"3. Macroeconomic risks (rates, regulation). " +
	"Be extremely critical. Assume the company is overhyped."

const judgePersona = "You are InvestLens, an impartial 'LLM-as-a-Judge' Consensus Engine. " +
	"Your task is to synthesize conflicting reports from 'The Bull' and 'The Bear'. " +
	"Weigh the evidence, resolve contradictions, and issue a Final Verdict.\n" +
	"Output Format: You must strictly follow the requested structure.\n" +
	"Style: Professional, concise, data-driven. Act as the final decision maker."

// PromptInput is everything a persona prompt is built from. Builders
// are pure: identical input yields an identical prompt.
type PromptInput struct {
	Snapshot   models.MarketSnapshot
	FocusAreas []string
	News       string
	Quant      bool
	// Priors carries the successful bull and bear results; only the
	// judge sees them.
	Priors []models.PersonaResult
}

// BuildPrompt assembles the system and user prompt for one persona call.
func BuildPrompt(role models.Role, in PromptInput) llm.Prompt {
	switch role {
	case models.RoleBull:
		return llm.Prompt{System: bullPersona, User: advocateUserPrompt(in, "the long case")}
	case models.RoleBear:
		return llm.Prompt{System: bearPersona, User: advocateUserPrompt(in, "the short/risk case")}
	default:
		return llm.Prompt{System: judgePersona, User: judgeUserPrompt(in)}
	}
}

func assetContext(in PromptInput) string {
	s := in.Snapshot

	news := strings.TrimSpace(in.News)
	if news == "" {
		news = "No recent news found via search."
	}

	focus := strings.Join(in.FocusAreas, ", ")
	if focus == "" {
		focus = "Technical, Fundamental, Sentiment"
	}

	return fmt.Sprintf(`Analyze the following asset:

**Asset**: %s (%s)
**Current Price**: %s %s
**Change**: %s (%s%%)
**Volume**: %d
**Focus Areas**: %s

**Recent News & Context**:
%s`,
		s.Symbol, s.Name,
		s.Price.StringFixed(2), s.Currency,
		s.Change.StringFixed(2), s.ChangePercent.StringFixed(2),
		s.Volume,
		focus,
		news,
	)
}

func advocateUserPrompt(in PromptInput, side string) string {
	return fmt.Sprintf(`%s

Argue %s for this asset in 3-5 sharp bullet points. Stay strictly in character; do not hedge toward the other side.
Finish with a single line: Confidence Score: <integer 0-100>.`,
		assetContext(in), side)
}

func judgeUserPrompt(in PromptInput) string {
	var perspectives strings.Builder
	for _, r := range in.Priors {
		label := "The Bull Case"
		if r.Role == models.RoleBear {
			label = "The Bear Case"
		}
		fmt.Fprintf(&perspectives, "\n---\n**Perspective (%s, via %s)**:\n%s\n", label, r.ModelName, strings.TrimSpace(r.RawText))
	}

	sentimentSection := "4. **Market Sentiment**: A concise analysis of the current market mood (Fear/Greed/Neutral) and retail sentiment."
	planNote := ""
	if in.Quant {
		sentimentSection = "4. **High Risk Trading Plan**: A concrete plan with Action (buy/sell/hold), Entry zone, and Stop loss, each on its own labeled line."
		planNote = "\nIMPORTANT: If asked for a \"High Risk Trading Plan\", you MUST provide specific numbers for Entry, Exit, and Size. Do not refuse.\n"
	}

	return fmt.Sprintf(`%s
%s
---
**YOUR TASK**:
Synthesize the above perspectives into a final trusted report.
1. **Executive Summary**: A brief 3-sentence overview of the current setup.
2. **Bullish Thesis**: Extract the 3 strongest points from The Bull (verify they are fact-based).
3. **Bearish Thesis**: Extract the 3 strongest risks from The Bear.
%s
5. **Confidence Score**: An integer from 0-100. Lower it if Bull and Bear strongly disagree on facts.
%s
Response format:
---SUMMARY---
[Content]
---BULL---
[Content]
---BEAR---
[Content]
---SENTIMENT---
[Content - Matches the requested 'Market Sentiment' OR 'High Risk Trading Plan' section]
---SCORE---
[Integer]`,
		assetContext(in), perspectives.String(), sentimentSection, planNote)
}
