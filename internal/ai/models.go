package ai

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ModelInfo carries the context window and pricing used to size prompts
// and estimate cost. Prices are illustrative.
type ModelInfo struct {
	Name          string  `yaml:"name"`
	ContextTokens int     `yaml:"context_tokens"`
	InputPerK     float64 `yaml:"input_per_k"`  // USD per 1K input tokens
	OutputPerK    float64 `yaml:"output_per_k"` // USD per 1K output tokens
}

// DefaultContextTokens is assumed for models missing from the catalog.
const DefaultContextTokens = 8192

var models = map[string]ModelInfo{
	"openai/gpt-4o-mini":               {Name: "openai/gpt-4o-mini", ContextTokens: 128000, InputPerK: 0.00015, OutputPerK: 0.0006},
	"openai/gpt-4.1-mini":              {Name: "openai/gpt-4.1-mini", ContextTokens: 128000, InputPerK: 0.0004, OutputPerK: 0.0016},
	"anthropic/claude-3.5-sonnet":      {Name: "anthropic/claude-3.5-sonnet", ContextTokens: 200000, InputPerK: 0.003, OutputPerK: 0.015},
	"anthropic/claude-3-haiku":         {Name: "anthropic/claude-3-haiku", ContextTokens: 200000, InputPerK: 0.00025, OutputPerK: 0.00125},
	"google/gemini-1.5-flash":          {Name: "google/gemini-1.5-flash", ContextTokens: 1000000, InputPerK: 0.0002, OutputPerK: 0.0008},
	"meta-llama/llama-3.1-8b-instruct": {Name: "meta-llama/llama-3.1-8b-instruct", ContextTokens: 131072},
	"deepseek/deepseek-r1:free":        {Name: "deepseek/deepseek-r1:free", ContextTokens: 128000},
	// Common local (Ollama) tags
	"llama3.1:8b":         {Name: "llama3.1:8b", ContextTokens: 8192},
	"qwen2.5:7b-instruct": {Name: "qwen2.5:7b-instruct", ContextTokens: 32768},
	"mistral:7b-instruct": {Name: "mistral:7b-instruct", ContextTokens: 8192},
	"phi3:mini":           {Name: "phi3:mini", ContextTokens: 4096},
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// Catalog returns the known models sorted by name.
func Catalog() []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	for _, mi := range models {
		out = append(out, mi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ContextWindow returns the model's context size or DefaultContextTokens.
func ContextWindow(model string) int {
	if mi, ok := models[model]; ok && mi.ContextTokens > 0 {
		return mi.ContextTokens
	}
	return DefaultContextTokens
}

// EstimateCostUSD estimates total cost in USD for the given token counts.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	return float64(promptTokens)/1000*mi.InputPerK + float64(completionTokens)/1000*mi.OutputPerK, true
}

// LoadCatalog reads a YAML map of model name to ModelInfo, e.g.
//
//	openai/gpt-4o-mini: {context_tokens: 128000, input_per_k: 0.00015, output_per_k: 0.0006}
func LoadCatalog(path string) (map[string]ModelInfo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]ModelInfo
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse model catalog %s: %w", path, err)
	}
	for k, v := range m {
		if v.Name == "" {
			v.Name = k
			m[k] = v
		}
	}
	return m, nil
}

// MergeCatalog merges or overrides entries in the in-memory catalog.
func MergeCatalog(m map[string]ModelInfo) {
	for k, v := range m {
		models[k] = v
	}
}
