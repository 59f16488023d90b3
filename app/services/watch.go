package services

import (
	"context"
	"fmt"

	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/logger"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/metrics"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/notify"
)

// Subscriber is the read side of a notifier.
type Subscriber interface {
	Subscribe(collection string, h notify.Handler) (notify.Subscription, error)
}

// watch re-runs refresh whenever any of collections changes. Bursts of
// notifications collapse into one pending refresh, and refreshes run one at a
// time on a single goroutine. Cancelling ctx unsubscribes and stops the loop.
func watch(ctx context.Context, sub Subscriber, name string, collections []string, refresh func(context.Context) error) error {
	trigger := make(chan struct{}, 1)
	poke := func(notify.Change) {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	subs := make([]notify.Subscription, 0, len(collections))
	for _, c := range collections {
		s, err := sub.Subscribe(c, poke)
		if err != nil {
			for _, done := range subs {
				done.Unsubscribe()
			}
			return fmt.Errorf("%s: subscribe %s: %w", name, c, err)
		}
		subs = append(subs, s)
	}

	go func() {
		defer func() {
			for _, s := range subs {
				s.Unsubscribe()
			}
		}()

		log := logger.WithCtx(ctx).With("component", name)
		for {
			select {
			case <-ctx.Done():
				return
			case <-trigger:
				err := refresh(ctx)
				if ctx.Err() != nil {
					return
				}
				metrics.ListRefreshes.WithLabelValues(name, metrics.Result(err)).Inc()
				if err != nil {
					log.Error("refresh after change failed", "error", err)
				}
			}
		}
	}()
	return nil
}
