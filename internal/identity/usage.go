package identity

import (
	"context"
	"time"

	"github.com/yskhub/TaskVault/pkg/logger"
	"go.uber.org/zap"
)

// UsageRecorder ships usage events to the hosted usage_events table.
// Recording detaches from the request context and never propagates
// failure to the caller.
type UsageRecorder struct {
	client *Client
}

func NewUsageRecorder(client *Client) *UsageRecorder {
	return &UsageRecorder{client: client}
}

func (r *UsageRecorder) RecordEvent(ctx context.Context, event string, metadata map[string]any) {
	l := logger.FromContext(ctx)

	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if err := r.client.InsertUsageEvent(sendCtx, event, metadata); err != nil {
			l.Warn("usage event dropped", zap.String("event", event), zap.Error(err))
		}
	}()
}
