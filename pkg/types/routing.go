// Package types defines the shared request, response, and decision types
// exchanged between the routing engine and its callers.
package types

// TaskType identifies the kind of work a prompt represents. Quality tables
// in provider profiles are keyed by task type.
type TaskType = string

// Common task types. The set is open; unknown task types fall back to a
// provider's default quality score.
const (
	TaskTextGeneration TaskType = "text-generation"
	TaskCodeGeneration TaskType = "code-generation"
	TaskSummarization  TaskType = "summarization"
	TaskConversation   TaskType = "conversation"
	TaskReasoning      TaskType = "reasoning"
)

// Weights holds the caller-supplied scoring weights. A nil field means
// "use the default". Weights are applied as supplied, without
// renormalization; the decision's confidence is clamped downstream instead.
type Weights struct {
	Cost        *float64 `json:"cost_weight,omitempty"`
	Latency     *float64 `json:"latency_weight,omitempty"`
	Reliability *float64 `json:"reliability_weight,omitempty"`
	Quality     *float64 `json:"quality_weight,omitempty"`
}

// RouteRequest is the logical shape consumed by the router.
type RouteRequest struct {
	Prompt      string   `json:"prompt"`
	TaskType    TaskType `json:"task_type,omitempty"`
	Provider    string   `json:"provider,omitempty"` // explicit provider pin, optional
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Preferences Weights  `json:"preferences,omitempty"`
}

// ScoreBreakdown carries the component metrics behind a provider's final
// score. Exposed for observability and debugging, never used for ranking
// after the fact.
type ScoreBreakdown struct {
	Score        float64 `json:"score"`
	CostScore    float64 `json:"cost_score"`
	LatencyScore float64 `json:"latency_score"`
	Reliability  float64 `json:"reliability"`
	Quality      float64 `json:"quality"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	CostPer1K    float64 `json:"cost_per_1k_input"`
	RateLimited  bool    `json:"rate_limited"`
}

// Decision is the outcome of a single routing call. It is transient,
// created per request and never persisted.
type Decision struct {
	RecommendedProvider string                    `json:"recommended_provider"`
	Confidence          float64                   `json:"confidence"`
	Fallbacks           []string                  `json:"fallbacks"`
	Reasoning           string                    `json:"reasoning"`
	AllScores           map[string]ScoreBreakdown `json:"all_scores"`
}

// TokenUsage reports the token counts of a completed provider call.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// DispatchResult is the provider's reply annotated with cost and latency.
type DispatchResult struct {
	Text      string     `json:"content"`
	Provider  string     `json:"provider"`
	Tokens    TokenUsage `json:"tokens_used"`
	Cost      float64    `json:"cost"`
	LatencyMs int64      `json:"latency_ms"`
	RequestID string     `json:"request_id,omitempty"`
}
