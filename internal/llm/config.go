package llm

// ModelTier represents the complexity level of a model.
type ModelTier string

const (
	// TierLite is for simple tasks: link triage, industry classification.
	TierLite ModelTier = "lite"
	// TierStandard is for structured extraction across the knowledge categories.
	TierStandard ModelTier = "standard"
)

// Config holds the model configuration for the engine.
type Config struct {
	Models map[ModelTier]string
}

// DefaultConfig returns the default Gemini model configuration.
func DefaultConfig() *Config {
	return &Config{
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
		},
	}
}

// GetModel returns the model name for a given tier, falling back to the lite
// tier when the requested tier is not configured.
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}
