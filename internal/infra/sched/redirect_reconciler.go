// File: internal/infra/sched/redirect_reconciler.go
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"course-marketplace-checkout/internal/domain/ports/repository"
	"course-marketplace-checkout/internal/infra/metrics"
	"course-marketplace-checkout/internal/infra/worker"
	"course-marketplace-checkout/internal/usecase"
)

// RedirectReconciler periodically scans for attempts stuck in
// awaiting-redirect and tries to finalize them through the same resume path
// the return callback uses. This covers a buyer who paid at the provider but
// whose browser never came back, and a process that crashed mid-finalize.
type RedirectReconciler struct {
	uc         usecase.CheckoutUseCase
	attempts   repository.SessionRepository
	pool       *worker.Pool
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old an awaiting attempt must be to retry
	log        *zerolog.Logger
}

func NewRedirectReconciler(uc usecase.CheckoutUseCase, attempts repository.SessionRepository, pool *worker.Pool, interval, staleAfter time.Duration, logger *zerolog.Logger) *RedirectReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &RedirectReconciler{uc: uc, attempts: attempts, pool: pool, interval: interval, staleAfter: staleAfter, log: logger}
}

func (w *RedirectReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *RedirectReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	stale, err := w.attempts.ListAwaitingOlderThan(ctx, nil, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("reconciler: list awaiting failed")
		return
	}
	for _, s := range stale {
		if s.ProviderRef == "" {
			continue
		}
		ref := s.ProviderRef
		id := s.ID
		task := func(ctx context.Context) error {
			// approved=true: the provider verify decides the real outcome.
			res, err := w.uc.ResumeRedirect(ctx, ref, true)
			if err != nil {
				metrics.IncReconciled("error")
				return err
			}
			metrics.IncReconciled(string(res.Status))
			w.log.Info().Str("session_id", id).Str("provider_ref", ref).
				Str("status", string(res.Status)).Msg("reconciler: attempt finalized")
			return nil
		}
		if err := w.pool.Submit(task); err != nil {
			w.log.Warn().Err(err).Str("session_id", id).Msg("reconciler: submit failed")
		}
	}
}
