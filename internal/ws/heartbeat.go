package ws

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// runHeartbeat probes every registered connection once per interval. A
// connection that never answered the previous probe is force-closed; its
// reader loop then deregisters it. This is the only reclamation path for
// connections lost without a clean close, so staleness is bounded to one
// interval.
func runHeartbeat(ctx context.Context, reg *registry, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, c := range reg.snapshot() {
					if !c.alive.Load() {
						zap.L().Debug("ws.heartbeat_prune", zap.String("conn", c.id))
						_ = c.close()
						continue
					}
					c.alive.Store(false)
					if err := c.ping(); err != nil {
						_ = c.close()
					}
				}
			}
		}
	}()
}
