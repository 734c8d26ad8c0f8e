package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/rs/zerolog"
)

// WaitReady pings a dependency until it answers, backing off exponentially.
// It gives up after maxWait or when ctx ends.
func WaitReady(ctx context.Context, name string, ping func(context.Context) error, maxWait time.Duration, log zerolog.Logger) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = maxWait

	attempt := 0
	op := func() error {
		attempt++
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err := ping(pctx)
		if err != nil {
			log.Warn().Err(err).Str("dependency", name).Int("attempt", attempt).Msg("dependency not ready")
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return fmt.Errorf("%s not reachable: %w", name, err)
	}
	log.Info().Str("dependency", name).Msg("dependency ready")
	return nil
}
