package usecase

import (
	"encoding/json"
	"log/slog"

	"modelwire/internal/domain"
)

// TokenEstimator approximates the token cost of a conversation before it is
// submitted. Exact counting is model-specific and lives with the caller.
type TokenEstimator interface {
	EstimateTurns(turns []domain.Turn) int
}

// EstimatorFunc adapts a function to the TokenEstimator interface.
type EstimatorFunc func(turns []domain.Turn) int

func (f EstimatorFunc) EstimateTurns(turns []domain.Turn) int { return f(turns) }

// bytesPerToken is the coarse heuristic ratio used by the default estimator.
const bytesPerToken = 4

// HeuristicEstimator estimates tokens from the serialized byte size of the
// turns. Good enough to catch runaway contexts; not a billing counter.
func HeuristicEstimator() TokenEstimator {
	return EstimatorFunc(func(turns []domain.Turn) int {
		total := 0
		for _, turn := range turns {
			if data, err := json.Marshal(turn); err == nil {
				total += len(data)
			}
		}
		return total / bytesPerToken
	})
}

// ContextGuard fails fast with ErrContextOverflow before a submission whose
// estimated size exceeds the window, instead of letting the server reject it
// mid-loop.
type ContextGuard struct {
	maxTokens     int
	reserveTokens int
	safetyMargin  float64
	estimator     TokenEstimator
	logger        *slog.Logger
}

// ContextGuardConfig holds settings for the context guard.
type ContextGuardConfig struct {
	MaxTokens     int
	ReserveTokens int
	SafetyMargin  float64 // e.g. 0.15 = 15%
}

// NewContextGuard creates a context guard. estimator may be nil, in which
// case the byte-size heuristic is used.
func NewContextGuard(cfg ContextGuardConfig, estimator TokenEstimator, logger *slog.Logger) *ContextGuard {
	if cfg.SafetyMargin <= 0 {
		cfg.SafetyMargin = 0.15
	}
	if cfg.SafetyMargin > 0.5 {
		cfg.SafetyMargin = 0.5 // clamp: >50% safety margin is unreasonable
	}
	if cfg.ReserveTokens <= 0 {
		cfg.ReserveTokens = 1000
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 128000
	}
	if estimator == nil {
		estimator = HeuristicEstimator()
	}
	return &ContextGuard{
		maxTokens:     cfg.MaxTokens,
		reserveTokens: cfg.ReserveTokens,
		safetyMargin:  cfg.SafetyMargin,
		estimator:     estimator,
		logger:        logger,
	}
}

// Check evaluates the conversation's estimated token usage against limits.
func (g *ContextGuard) Check(turns []domain.Turn) error {
	tokens := g.estimator.EstimateTurns(turns)
	limit := int(float64(g.maxTokens)*(1-g.safetyMargin)) - g.reserveTokens

	if tokens <= limit {
		return nil
	}

	g.logger.Error("context guard: estimated context overflow",
		"tokens", tokens,
		"limit", limit,
		"max_tokens", g.maxTokens,
	)
	return domain.NewDomainError("ContextGuard.Check", domain.ErrContextOverflow,
		"estimated tokens exceed window")
}
