// Package extract turns free-text model output into typed persona
// fields. Parsing is best effort by design: models routinely ignore
// format instructions, so every gap degrades to a default instead of
// an error. Empty output is the only hard failure.
package extract

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/investlens/lenscore/internal/models"
)

// ErrEmptyOutput marks the one extraction failure: the model returned
// nothing usable at all.
var ErrEmptyOutput = errors.New("empty model output")

var (
	scoreRe  = regexp.MustCompile(`(?i)confidence(?:\s*score)?\s*[:：]?\s*\**\s*(\d{1,3})`)
	digitsRe = regexp.MustCompile(`\d{1,3}`)

	actionRe = regexp.MustCompile(`(?im)^\s*\**\s*action\s*\**\s*[:：]\s*(.+)$`)
	entryRe  = regexp.MustCompile(`(?im)^\s*\**\s*entry(?:\s*(?:zone|price|point))?\s*\**\s*[:：]\s*(.+)$`)
	stopRe   = regexp.MustCompile(`(?im)^\s*\**\s*stop(?:[\s-]*loss)?\s*\**\s*[:：]\s*(.+)$`)
)

// Extractor parses model prose with a configurable neutral fallback for
// the confidence score.
type Extractor struct {
	neutral int
}

func New(neutralConfidence int) *Extractor {
	if neutralConfidence < 0 || neutralConfidence > 100 {
		neutralConfidence = 50
	}
	return &Extractor{neutral: neutralConfidence}
}

// Neutral is the configured fallback confidence score.
func (e *Extractor) Neutral() int {
	return e.neutral
}

// Extract parses raw model output into typed fields for the given role.
// Quant gates trading-plan extraction, which only the judge emits.
func (e *Extractor) Extract(raw string, role models.Role, quant bool) (models.ExtractedFields, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.ExtractedFields{Confidence: e.neutral}, ErrEmptyOutput
	}

	fields := models.ExtractedFields{
		Thesis:     e.thesis(raw, role),
		Confidence: e.Confidence(raw),
	}

	if quant && role == models.RoleJudge {
		if plan := extractPlan(raw); plan != nil {
			fields.Plan = plan
		}
	}

	return fields, nil
}

func (e *Extractor) thesis(raw string, role models.Role) string {
	if role == models.RoleJudge {
		if summary := Sections(raw)["SUMMARY"]; summary != "" {
			return summary
		}
	}
	return raw
}

// Confidence pulls a labeled score out of the text. Checks the
// ---SCORE--- section first, then any "Confidence: N" style label.
// Missing or out-of-range values fall back to the neutral default.
func (e *Extractor) Confidence(raw string) int {
	if section := Sections(raw)["SCORE"]; section != "" {
		// Handle "85 (High)" style answers by taking the first integer.
		if m := digitsRe.FindString(section); m != "" {
			if n, err := strconv.Atoi(m); err == nil && n >= 0 && n <= 100 {
				return n
			}
		}
	}

	if m := scoreRe.FindStringSubmatch(raw); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 0 && n <= 100 {
			return n
		}
	}

	return e.neutral
}

// Sections splits delimiter-formatted output ("---SUMMARY--- ...") into
// a token→content map. Tolerates missing delimiters, reordered
// sections, and stray whitespace; unknown tokens are ignored.
func Sections(raw string) map[string]string {
	out := map[string]string{}
	parts := strings.Split(raw, "---")
	known := []string{"SUMMARY", "BULL", "BEAR", "SENTIMENT", "SCORE"}

	for i, part := range parts {
		token := strings.ToUpper(strings.TrimSpace(part))
		for _, k := range known {
			if strings.HasPrefix(token, k) && i+1 < len(parts) {
				out[k] = strings.TrimSpace(parts[i+1])
			}
		}
	}
	return out
}

func extractPlan(raw string) *models.TradingPlan {
	plan := &models.TradingPlan{}
	if m := actionRe.FindStringSubmatch(raw); m != nil {
		plan.Action = strings.TrimSpace(m[1])
	}
	if m := entryRe.FindStringSubmatch(raw); m != nil {
		plan.Entry = strings.TrimSpace(m[1])
	}
	if m := stopRe.FindStringSubmatch(raw); m != nil {
		plan.Stop = strings.TrimSpace(m[1])
	}
	if plan.Action == "" && plan.Entry == "" && plan.Stop == "" {
		return nil
	}
	return plan
}
