package quickcan

import (
	"context"
	"fmt"
	"time"

	"github.com/quickcan/goquickcan/pkg/frame"
)

// DefaultHeartbeatInterval is how often Heartbeat keeps the adapter link alive.
const DefaultHeartbeatInterval = time.Second

// Heartbeat sends a HEARTBEAT with a rolling counter every interval until ctx
// is done. The first heartbeat goes out immediately. A failed send stops the
// loop and is returned.
func Heartbeat(ctx context.Context, s CommandSender, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	var counter uint8
	for {
		if err := s.SendCommand(frame.CmdHeartbeat, counter); err != nil {
			return fmt.Errorf("heartbeat %d: %w", counter, err)
		}
		counter++
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
