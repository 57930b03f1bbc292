// Package suggest asks a language model for cleaning actions on a table and
// answers read-only questions about it.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/KaramelBytes/datafix-cli/internal/ai"
	"github.com/KaramelBytes/datafix-cli/internal/analysis"
	"github.com/KaramelBytes/datafix-cli/internal/engine"
	"github.com/KaramelBytes/datafix-cli/internal/table"
	"github.com/KaramelBytes/datafix-cli/internal/utils"
)

// Suggestion is a batch of proposed actions plus the model's explanation.
type Suggestion struct {
	Explanation string          `json:"explanation"`
	Actions     []engine.Action `json:"actions"`
	Model       string          `json:"model,omitempty"`
	Usage       ai.Usage        `json:"usage"`
	RequestID   string          `json:"requestId,omitempty"`
}

// Generator produces actions for a table and answers questions about it.
type Generator interface {
	Suggest(ctx context.Context, t *table.Table, instruction string) (*Suggestion, error)
	Answer(ctx context.Context, t *table.Table, question string) (string, error)
}

// ErrNoJSON is returned when the model reply holds no decodable payload.
var ErrNoJSON = errors.New("model reply did not contain a JSON object")

// LLM implements Generator on top of an ai.Runtime.
type LLM struct {
	rt          ai.Runtime
	model       string
	maxTokens   int
	temperature float64
	tokenLimit  int
	sampleRows  int
	name        string
	log         *zap.Logger
}

// Option configures an LLM.
type Option func(*LLM)

func WithModel(m string) Option { return func(l *LLM) { l.model = m } }
func WithMaxTokens(n int) Option { return func(l *LLM) { l.maxTokens = n } }
func WithTemperature(f float64) Option { return func(l *LLM) { l.temperature = f } }
func WithSampleRows(n int) Option { return func(l *LLM) { l.sampleRows = n } }
func WithDatasetName(name string) Option { return func(l *LLM) { l.name = name } }
func WithLogger(log *zap.Logger) Option { return func(l *LLM) { l.log = log } }

// WithPromptTokenLimit caps the estimated prompt size. It is further capped
// by the model's context window minus the reply budget.
func WithPromptTokenLimit(n int) Option { return func(l *LLM) { l.tokenLimit = n } }

// NewLLM returns a generator using rt.
func NewLLM(rt ai.Runtime, opts ...Option) *LLM {
	l := &LLM{rt: rt, maxTokens: 2048, temperature: 0.2, tokenLimit: 6000, sampleRows: 10, log: zap.NewNop()}
	for _, o := range opts {
		o(l)
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	return l
}

// Suggest profiles t, asks the model for actions and decodes its reply.
// instruction may be empty for a general cleanup pass.
func (l *LLM) Suggest(ctx context.Context, t *table.Table, instruction string) (*Suggestion, error) {
	if t == nil {
		return nil, errors.New("no table loaded")
	}
	user := l.fit(suggestSystemPrompt, l.profile(t), "\n[REQUEST]\n"+requestText(instruction)+"\n")
	resp, err := l.rt.Generate(ctx, ai.GenerateRequest{
		Model:       l.model,
		Messages:    []ai.Message{{Role: "system", Content: suggestSystemPrompt}, {Role: "user", Content: user}},
		MaxTokens:   l.maxTokens,
		Temperature: l.temperature,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}
	s, err := Extract(resp.Content())
	if err != nil {
		l.log.Debug("Undecodable model reply", zap.String("content", resp.Content()))
		return nil, err
	}
	s.Model = l.model
	s.Usage = resp.Usage
	s.RequestID = resp.RequestID
	l.log.Info("Received suggestions",
		zap.Int("actions", len(s.Actions)),
		zap.Int("promptTokens", resp.Usage.PromptTokens),
		zap.String("requestID", resp.RequestID))
	return s, nil
}

// Answer sends a read-only question, typically a SELECT statement, together
// with the profile and as many rows as fit the prompt budget.
func (l *LLM) Answer(ctx context.Context, t *table.Table, question string) (string, error) {
	if t == nil {
		return "", errors.New("no table loaded")
	}
	var rows bytes.Buffer
	if err := table.WriteCSV(&rows, t, ','); err != nil {
		return "", fmt.Errorf("serialize table: %w", err)
	}
	tail := "\n[QUESTION]\n" + strings.TrimSpace(question) + "\n"
	body := l.profile(t) + "\n[DATA AS CSV]\n" + rows.String()
	resp, err := l.rt.Generate(ctx, ai.GenerateRequest{
		Model:       l.model,
		Messages:    []ai.Message{{Role: "system", Content: answerSystemPrompt}, {Role: "user", Content: l.fit(answerSystemPrompt, body, tail)}},
		MaxTokens:   l.maxTokens,
		Temperature: l.temperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content()), nil
}

func (l *LLM) profile(t *table.Table) string {
	opt := analysis.DefaultOptions()
	opt.Name = l.name
	opt.SampleRows = l.sampleRows
	return analysis.Profile(t, opt).Markdown()
}

// fit truncates body so body+tail stays within the prompt budget left after
// the system prompt and the reply; tail is never cut.
func (l *LLM) fit(system, body, tail string) string {
	limit := l.tokenLimit
	if window := ai.ContextWindow(l.model) - l.maxTokens - utils.CountTokens(system); limit <= 0 || window < limit {
		limit = window
	}
	budget := limit - utils.CountTokens(tail)
	if utils.CountTokens(body) > budget {
		l.log.Warn("Prompt truncated to fit the token budget",
			zap.Any("tokens", utils.TokenBreakdown(map[string]string{"body": body, "tail": tail})),
			zap.Int("limit", limit))
		body = utils.TruncateToTokenLimit(body, budget) + "\n[NOTE] context truncated\n"
	}
	return body + tail
}

func requestText(instruction string) string {
	if s := strings.TrimSpace(instruction); s != "" {
		return s
	}
	return "Propose the cleaning actions this dataset needs."
}

// Extract decodes a model reply into a Suggestion. It tolerates Markdown
// code fences, prose around the JSON, and a bare array of actions.
func Extract(content string) (*Suggestion, error) {
	payload := stripFences(strings.TrimSpace(content))
	start := strings.IndexAny(payload, "{[")
	if start < 0 {
		return nil, ErrNoJSON
	}
	closer := byte('}')
	if payload[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(payload, closer)
	if end <= start {
		return nil, ErrNoJSON
	}
	payload = payload[start : end+1]

	s := &Suggestion{}
	if payload[0] == '{' {
		var env struct {
			Explanation string `json:"explanation"`
		}
		if err := json.Unmarshal([]byte(payload), &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoJSON, err)
		}
		s.Explanation = env.Explanation
	}
	actions, err := engine.DecodeActions([]byte(payload))
	if err != nil {
		return nil, err
	}
	s.Actions = actions
	if s.Actions == nil {
		s.Actions = []engine.Action{}
	}
	return s, nil
}

func stripFences(s string) string {
	i := strings.Index(s, "```")
	if i < 0 {
		return s
	}
	rest := s[i+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	}
	if j := strings.Index(rest, "```"); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

const suggestSystemPrompt = `You are a data cleaning assistant. You receive a profile of a table and a request.
Reply with a single JSON object and nothing else:
{"explanation": "<one short paragraph>", "actions": [<action>, ...]}

Each action has:
- "actionType": one of FILL_MISSING, FILL_MISSING_NUMERIC, MODIFY_CELL, STANDARDIZE_FORMAT, REMOVE_ROW, REVIEW_CONSISTENCY
- "columnName": exact header name
- "rowNumber": 1-based row number, or omit it to apply to the whole column
- "originalFragment": the current cell value being changed (string)
- "suggestedFragment": the new value (string)
- "imputationMethod": mean, median or mode (FILL_MISSING_NUMERIC only)
- "description": why the change is needed

Rules:
- Row numbers refer to the table after every REMOVE_ROW in the same batch has been applied.
- FILL_MISSING writes suggestedFragment into empty cells only.
- FILL_MISSING_NUMERIC with imputationMethod fills empty or non-numeric cells with the column statistic.
- MODIFY_CELL replaces originalFragment with suggestedFragment.
- STANDARDIZE_FORMAT uses suggestedFragment as a format keyword: uppercase, lowercase, title case, trim or YYYY-MM-DD.
- Only reference columns that exist in the profile. Return an empty actions list if nothing needs fixing.`

const answerSystemPrompt = `You answer questions about a table. You receive its profile, its rows as CSV and a question,
often written as a SQL SELECT statement. Answer concisely from the data; show small result sets as a Markdown table.
Say so when the data shown was truncated and the answer may be incomplete.`
