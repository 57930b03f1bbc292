package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datafix-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/datafix-cli/internal/config"
	"github.com/KaramelBytes/datafix-cli/internal/suggest"
)

// aiFlags are shared by the commands that call a model.
type aiFlags struct {
	provider    string
	model       string
	ollamaHost  string
	maxTokens   int
	temperature float64
	sampleRows  int
	promptLimit int
	timeoutSec  int
}

func (f *aiFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&f.provider, "provider", "", "model provider: openrouter | ollama (default from config)")
	c.Flags().StringVar(&f.model, "model", "", "model name (default from config)")
	c.Flags().StringVar(&f.ollamaHost, "ollama-host", "", "Ollama host URL (overrides config)")
	c.Flags().IntVar(&f.maxTokens, "max-tokens", 0, "reply token budget (default from config)")
	c.Flags().Float64Var(&f.temperature, "temperature", -1, "sampling temperature (default from config)")
	c.Flags().IntVar(&f.sampleRows, "sample-rows", 0, "sample rows included in the prompt (default from config)")
	c.Flags().IntVar(&f.promptLimit, "prompt-limit", 0, "cap the prompt at this many tokens (default from config)")
	c.Flags().IntVar(&f.timeoutSec, "timeout-sec", 180, "overall request timeout in seconds")
}

// withTimeout bounds parent by --timeout-sec.
func (f *aiFlags) withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	sec := f.timeoutSec
	if sec <= 0 {
		sec = 180
	}
	return context.WithTimeout(parent, time.Duration(sec)*time.Second)
}

// generator builds the suggestion generator for dataset and reports the
// provider and model it will use.
func (f *aiFlags) generator(dataset string) (*suggest.LLM, string, string, error) {
	c, err := settings()
	if err != nil {
		return nil, "", "", err
	}
	rt, provider, err := buildRuntime(c, f.provider, f.ollamaHost)
	if err != nil {
		return nil, "", "", err
	}
	model := strings.TrimSpace(f.model)
	if model == "" {
		model = c.DefaultModel
	}
	if provider == ai.ProviderOllama && strings.Contains(model, "/") {
		return nil, provider, model, fmt.Errorf("%q looks like an OpenRouter model; pass --model or set default_model to a model installed in Ollama", model)
	}

	maxTokens := c.MaxTokens
	if f.maxTokens > 0 {
		maxTokens = f.maxTokens
	}
	temp := c.Temperature
	if f.temperature >= 0 {
		temp = f.temperature
	}
	sampleRows := c.SampleRows
	if f.sampleRows > 0 {
		sampleRows = f.sampleRows
	}
	limit := c.PromptTokenLimit
	if f.promptLimit > 0 {
		limit = f.promptLimit
	}
	gen := suggest.NewLLM(rt,
		suggest.WithModel(model),
		suggest.WithMaxTokens(maxTokens),
		suggest.WithTemperature(temp),
		suggest.WithSampleRows(sampleRows),
		suggest.WithPromptTokenLimit(limit),
		suggest.WithDatasetName(filepath.Base(dataset)),
		suggest.WithLogger(logger),
	)
	return gen, provider, model, nil
}

// buildRuntime picks the provider from the flag or config and builds its
// client with the configured HTTP and retry settings.
func buildRuntime(c *cfgpkg.Global, providerFlag, ollamaHost string) (ai.Runtime, string, error) {
	httpTimeout := 60 * time.Second
	retryMax := 3
	baseDelay := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	if c != nil {
		if c.HTTPTimeoutSec > 0 {
			httpTimeout = time.Duration(c.HTTPTimeoutSec) * time.Second
		}
		if c.RetryMaxAttempts > 0 {
			retryMax = c.RetryMaxAttempts
		}
		if c.RetryBaseDelayMs > 0 {
			baseDelay = time.Duration(c.RetryBaseDelayMs) * time.Millisecond
		}
		if c.RetryMaxDelayMs > 0 {
			maxDelay = time.Duration(c.RetryMaxDelayMs) * time.Millisecond
		}
	}

	providerName := strings.ToLower(strings.TrimSpace(providerFlag))
	if providerName == "" && c != nil && c.DefaultProvider != "" {
		providerName = strings.ToLower(c.DefaultProvider)
	}
	switch providerName {
	case "", "openai", "anthropic", "google":
		providerName = ai.ProviderOpenRouter
	case "local":
		providerName = ai.ProviderOllama
	}

	rc := ai.RuntimeConfig{
		HTTPTimeout: httpTimeout,
		RetryMax:    retryMax,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		Logger:      logger,
		BaseURL:     os.Getenv("DATAFIX_OPENROUTER_BASE_URL"),
	}
	if c != nil {
		rc.APIKey = c.APIKey
	}
	if rc.APIKey == "" {
		rc.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}

	if providerName == ai.ProviderOllama {
		host := strings.TrimSpace(ollamaHost)
		if host == "" && c != nil {
			host = c.OllamaHost
		}
		rc.Host = host
		if c != nil && c.OllamaTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(c.OllamaTimeoutSec) * time.Second
		}
	}

	client, ok := ai.GetRuntime(providerName, rc)
	if !ok {
		return nil, providerName, fmt.Errorf("provider not supported: %s (use openrouter or ollama)", providerName)
	}
	return client, providerName, nil
}
