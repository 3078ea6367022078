package models

// ModelConfig describes one configured LLM backend. Configs are supplied
// per request (headers or body) or derived from server defaults; the
// debate engine treats them as read-only.
type ModelConfig struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai" (any OpenAI-compatible endpoint) or "deepseek"
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"-"`
	Model    string `json:"model"`
	Enabled  bool   `json:"enabled"`
	Judge    bool   `json:"judge"` // designated synthesis model; first enabled wins if none set
}

// EnabledConfigs filters configs down to the ones eligible for fan-out.
func EnabledConfigs(configs []ModelConfig) []ModelConfig {
	out := make([]ModelConfig, 0, len(configs))
	for _, c := range configs {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out
}

// JudgeConfig picks the designated judge model, falling back to the
// first enabled config.
func JudgeConfig(configs []ModelConfig) (ModelConfig, bool) {
	enabled := EnabledConfigs(configs)
	for _, c := range enabled {
		if c.Judge {
			return c, true
		}
	}
	if len(enabled) > 0 {
		return enabled[0], true
	}
	return ModelConfig{}, false
}
