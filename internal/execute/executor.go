// Package execute runs a routed completion with bounded retries and
// provider failover.
package execute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/quaestio/internal/errs"
	"github.com/ppiankov/quaestio/internal/llm"
	"github.com/ppiankov/quaestio/internal/logging"
	"github.com/ppiankov/quaestio/internal/model"
	"go.uber.org/zap"
)

// Result is the outcome of an execution, successful or not
type Result struct {
	Response *llm.CallResponse
	Provider model.ProviderProfile // The provider that produced Response
	Attempts []model.ProviderCallAttempt
}

// Executor calls providers for a routing decision
type Executor struct {
	providers  map[string]llm.Provider
	cfg        model.RetryConfig
	production bool
	limiter    *Limiter
	logger     *zap.Logger

	// sleep waits between same-provider retries (injectable for tests)
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an executor. In production the last allowed attempt always
// goes to a different provider when one is available.
func New(providers map[string]llm.Provider, cfg model.RetryConfig, production bool, limiter *Limiter, logger *zap.Logger) *Executor {
	if limiter == nil {
		limiter = NewLimiter(0, cfg.Burst)
	}
	return &Executor{
		providers:  providers,
		cfg:        cfg,
		production: production,
		limiter:    limiter,
		logger:     logging.OrNop(logger),
		sleep:      sleepContext,
	}
}

// Execute runs the request against the selected provider, retrying
// transient failures on the same provider up to SameProviderRetries times
// and then failing over down the decision's failover list. Once no
// failover is left the last provider is retried until MaxRetries+1 calls
// have been made in total. Fatal failures and cancellation end
// the sequence immediately.
func (e *Executor) Execute(ctx context.Context, decision model.RoutingDecision, req llm.CallRequest) (*Result, error) {
	candidates := append([]model.ProviderProfile{decision.Selected}, decision.Failover...)
	maxAttempts := max(e.cfg.MaxRetries, 0) + 1

	result := &Result{}
	current, sameRetries := 0, 0

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return result, errs.E(errs.KindCanceled, "request canceled", err)
		}

		profile := candidates[current]
		outcome, resp, err := e.call(ctx, profile, req)
		record := model.ProviderCallAttempt{
			ProviderID: profile.ID,
			Attempt:    attempt,
			Outcome:    outcome,
			Latency:    resp.latency,
		}
		if err != nil {
			record.Error = err.Error()
		}

		if outcome == "" {
			// Canceled mid-call; the attempt is not recorded
			return result, errs.E(errs.KindCanceled, "request canceled", err)
		}
		result.Attempts = append(result.Attempts, record)

		e.logger.Debug("provider call",
			zap.String("provider", profile.ID),
			zap.Int("attempt", attempt),
			zap.String("outcome", string(outcome)),
			zap.Duration("latency", resp.latency),
			zap.Error(err))

		switch outcome {
		case model.OutcomeSuccess:
			result.Response = resp.response
			result.Provider = profile
			return result, nil
		case model.OutcomeFatal:
			return result, errs.E(errs.KindProviderFatal, fmt.Sprintf("provider %s failed", profile.ID), err)
		}

		// RETRY_CHECK
		if attempt >= maxAttempts {
			return result, errs.E(errs.KindRetriesExhausted, fmt.Sprintf("gave up after %d attempts", attempt), err)
		}

		hasFailover := current+1 < len(candidates)
		forceFailover := e.production && attempt+1 == maxAttempts && hasFailover

		if hasFailover && (sameRetries >= e.cfg.SameProviderRetries || forceFailover) {
			e.logger.Info("failing over",
				zap.String("from", profile.ID),
				zap.String("to", candidates[current+1].ID),
				zap.Int("attempt", attempt))
			current++
			sameRetries = 0
			continue
		}

		// RETRY_SAME; the last candidate keeps the remaining attempts
		sameRetries++
		if err := e.sleep(ctx, e.backoff(sameRetries)); err != nil {
			return result, errs.E(errs.KindCanceled, "request canceled during backoff", err)
		}
	}
}

type callResult struct {
	response *llm.CallResponse
	latency  time.Duration
}

// call makes one rate-limited, time-boxed provider call. An empty outcome
// means the parent context ended.
func (e *Executor) call(ctx context.Context, profile model.ProviderProfile, req llm.CallRequest) (model.CallOutcome, callResult, error) {
	provider, ok := e.providers[profile.ID]
	if !ok || provider == nil {
		return model.OutcomeFatal, callResult{}, fmt.Errorf("provider %s is not configured", profile.ID)
	}

	if err := e.limiter.Wait(ctx, profile.ID); err != nil {
		if ctx.Err() != nil {
			return "", callResult{}, ctx.Err()
		}
		return model.OutcomeTransient, callResult{}, fmt.Errorf("rate limit: %w", err)
	}

	callCtx := ctx
	if e.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.cfg.CallTimeout)
		defer cancel()
	}

	if profile.Model != "" {
		req.Model = profile.Model
	}

	start := time.Now()
	resp, err := provider.Call(callCtx, req)
	res := callResult{response: resp, latency: time.Since(start)}

	switch {
	case err == nil && resp != nil:
		return model.OutcomeSuccess, res, nil
	case err == nil:
		return model.OutcomeTransient, res, errors.New("empty response")
	case ctx.Err() != nil:
		return "", res, ctx.Err()
	case llm.IsTransient(err), errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return model.OutcomeTransient, res, err
	default:
		return model.OutcomeFatal, res, err
	}
}

// backoff returns base * 2^(n-1), capped at MaxBackoff
func (e *Executor) backoff(n int) time.Duration {
	d := e.cfg.BaseBackoff
	for i := 1; i < n && (e.cfg.MaxBackoff <= 0 || d < e.cfg.MaxBackoff); i++ {
		d *= 2
	}
	if e.cfg.MaxBackoff > 0 && d > e.cfg.MaxBackoff {
		d = e.cfg.MaxBackoff
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
