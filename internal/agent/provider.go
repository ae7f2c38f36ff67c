package agent

import (
	"os"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/duplocloud/dcaf-sub001/internal/config"
	"github.com/duplocloud/dcaf-sub001/internal/types"
)

// NewModel creates the langchaingo model selected by configuration. API keys
// fall back to the provider's conventional environment variable when not set
// in config.
func NewModel(cfg config.AgentConfig) (llms.Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		opts := []openai.Option{}
		if key := apiKey(cfg, "OPENAI_API_KEY"); key != "" {
			opts = append(opts, openai.WithToken(key))
		}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		model, err := openai.New(opts...)
		if err != nil {
			return nil, types.WrapError(types.AGENT_RUN_FAILED, "failed to create openai model", err)
		}
		return model, nil

	case "anthropic":
		opts := []anthropic.Option{}
		if key := apiKey(cfg, "ANTHROPIC_API_KEY"); key != "" {
			opts = append(opts, anthropic.WithToken(key))
		}
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		model, err := anthropic.New(opts...)
		if err != nil {
			return nil, types.WrapError(types.AGENT_RUN_FAILED, "failed to create anthropic model", err)
		}
		return model, nil

	case "ollama":
		opts := []ollama.Option{}
		if cfg.Model != "" {
			opts = append(opts, ollama.WithModel(cfg.Model))
		}
		model, err := ollama.New(opts...)
		if err != nil {
			return nil, types.WrapError(types.AGENT_RUN_FAILED, "failed to create ollama model", err)
		}
		return model, nil

	default:
		return nil, types.NewError(types.AGENT_RUN_FAILED,
			"unsupported agent provider: "+cfg.Provider)
	}
}

func apiKey(cfg config.AgentConfig, envVar string) string {
	if cfg.APIKey != "" {
		return cfg.APIKey
	}
	return os.Getenv(envVar)
}
