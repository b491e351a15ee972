package channels

import (
	"context"
	"fmt"
	"log/slog"
)

// FallbackOrder is the fixed global sequence tried after any preferred
// channels when sending with fallback.
var FallbackOrder = []string{"email", "sms", "linkedin"}

// Dispatcher resolves logical channel names to adapters. It is constructed
// with its full adapter set and holds no other state, so it is safe for
// concurrent use by many workers.
type Dispatcher struct {
	adapters map[string]Adapter
	logger   *slog.Logger
}

// NewDispatcher builds a dispatcher over the given adapters, keyed by name.
func NewDispatcher(logger *slog.Logger, adapters ...Adapter) *Dispatcher {
	byName := make(map[string]Adapter, len(adapters))
	for _, adapter := range adapters {
		byName[adapter.Name()] = adapter
	}

	return &Dispatcher{
		adapters: byName,
		logger:   logger.With("module", "channel_dispatcher"),
	}
}

// Send delivers through one named channel with no fallback.
func (d *Dispatcher) Send(ctx context.Context, channel string, message Message) (*SendResult, error) {
	adapter, ok := d.adapters[channel]
	if !ok {
		return nil, fmt.Errorf("unknown channel: %s", channel)
	}

	if !adapter.Available(ctx) {
		return nil, fmt.Errorf("channel %s is not configured or unavailable", channel)
	}

	return adapter.Send(ctx, message)
}

// SendWithFallback tries the preferred channels followed by the global
// fallback order, de-duplicated preserving first occurrence, skipping
// unavailable channels and stopping at the first successful send. When every
// candidate is exhausted the last observed error is carried in the failure.
func (d *Dispatcher) SendWithFallback(ctx context.Context, message Message, preferred []string) (*SendResult, error) {
	candidates := dedupe(append(append([]string{}, preferred...), FallbackOrder...))

	var lastErr error

	for _, channel := range candidates {
		adapter, ok := d.adapters[channel]
		if !ok {
			d.logger.WarnContext(ctx, "Unknown channel adapter", "channel", channel)

			continue
		}

		if !adapter.Available(ctx) {
			d.logger.InfoContext(ctx, "Channel not available, trying next", "channel", channel)
			lastErr = fmt.Errorf("%s not configured", channel)

			continue
		}

		result, err := adapter.Send(ctx, message)
		if err == nil {
			d.logger.InfoContext(ctx, "Message sent", "channel", channel, "message_id", result.MessageID)

			return result, nil
		}

		d.logger.WarnContext(ctx, "Channel send failed", "channel", channel, "error", err)
		lastErr = err
	}

	return nil, fmt.Errorf("all channels failed, last error: %w", lastErr)
}

// AvailableChannels lists the channels whose providers are currently usable.
func (d *Dispatcher) AvailableChannels(ctx context.Context) []string {
	available := make([]string, 0, len(d.adapters))

	for name, adapter := range d.adapters {
		if adapter.Available(ctx) {
			available = append(available, name)
		}
	}

	return available
}

func dedupe(channels []string) []string {
	seen := make(map[string]struct{}, len(channels))
	out := make([]string, 0, len(channels))

	for _, channel := range channels {
		if _, dup := seen[channel]; dup {
			continue
		}

		seen[channel] = struct{}{}
		out = append(out, channel)
	}

	return out
}
