package service

import "context"

// UsageRecorder forwards product usage events to the analytics sink.
// Implementations must be best-effort: recording never fails the
// triggering request.
type UsageRecorder interface {
	RecordEvent(ctx context.Context, event string, metadata map[string]any)
}

type noopUsageRecorder struct{}

func (noopUsageRecorder) RecordEvent(context.Context, string, map[string]any) {}

// NopUsageRecorder is used when analytics is disabled by configuration.
func NopUsageRecorder() UsageRecorder {
	return noopUsageRecorder{}
}
