// Package dispatch is the trust boundary between model-generated intent and
// program action. Every tool call requested by a model goes through Dispatch,
// which enforces, in order:
//
//  1. allow-list membership (before any argument processing, so disallowed
//     tools cannot probe the validation logic)
//  2. argument sanitation (trimming, length caps, per-field normalization)
//  3. bounded execution under a hard wall-clock timeout
//  4. a uniform result envelope (JSON on success, one of four classified
//     errors on failure)
//  5. unconditional metrics emission, even when the dispatch fails
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medkit-ai/diagnon/pkg/contracts"
	"github.com/medkit-ai/diagnon/pkg/models"
)

// Tool is an invocable capability. Implementations must honor ctx
// cancellation; a tool body that ignores it is abandoned on timeout and its
// result discarded.
type Tool func(ctx context.Context, args map[string]any) (any, error)

// Registry is the closed allow-list of tools a model may invoke.
type Registry map[string]Tool

// DefaultTimeout bounds tool execution when the caller passes zero.
const DefaultTimeout = 60 * time.Second

// MaxArgLength caps every string-valued argument, bounding adversarial
// payload size.
const MaxArgLength = 1000

// Dispatcher executes allow-listed tool calls.
type Dispatcher struct {
	metrics contracts.MetricsSink
}

// New creates a dispatcher emitting per-invocation records to sink.
func New(sink contracts.MetricsSink) *Dispatcher {
	return &Dispatcher{metrics: sink}
}

// Dispatch validates, sanitizes, times out and executes the named tool,
// returning its result serialized as JSON. All failures are *Error values
// with one of the four kinds.
func (d *Dispatcher) Dispatch(ctx context.Context, toolName string, args map[string]any, allowed Registry, timeout time.Duration) (result string, err error) {
	start := time.Now()
	defer func() {
		status := models.StatusSuccess
		var derr *Error
		if errors.As(err, &derr) && derr.Kind == KindTimeout {
			status = models.StatusTimeout
		} else if err != nil {
			status = models.StatusError
		}
		d.metrics.Emit(models.MetricsRecord{
			Operation: "tool_dispatch",
			Tool:      toolName,
			Status:    status,
			Duration:  time.Since(start),
		})
	}()

	log.Info().Str("tool", toolName).Msg("DISPATCHER: processing tool call")

	tool, ok := allowed[toolName]
	if !ok {
		log.Error().Str("tool", toolName).Msg("SECURITY: not allowed tool requested")
		return "", NotFoundError(toolName)
	}

	sanitized, err := SanitizeArgs(toolName, args)
	if err != nil {
		log.Error().Err(err).Str("tool", toolName).Msg("tool argument validation failed")
		return "", err
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	value, err := d.run(ctx, toolName, tool, sanitized, timeout)
	if err != nil {
		var derr *Error
		if errors.As(err, &derr) {
			log.Error().Err(derr.Err).Str("tool", toolName).Str("kind", string(derr.Kind)).Msg("tool call failed")
			return "", derr
		}
		// Classify anything a tool let escape.
		log.Error().Err(err).Str("tool", toolName).Msg("unexpected tool error")
		return "", ExecutionError(toolName, err)
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return "", ExecutionError(toolName, err)
	}
	return string(payload), nil
}

// run executes the tool under a deadline. The tool runs in its own
// goroutine; on timeout its context is cancelled and the pending result is
// discarded. Whether the body actually stops depends on it honoring ctx.
func (d *Dispatcher) run(ctx context.Context, name string, tool Tool, args map[string]any, timeout time.Duration) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		v, err := tool(ctx, args)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Error().Str("tool", name).Dur("timeout", timeout).Msg("TIMEOUT: tool execution exceeded bound")
			return nil, TimeoutError(name, ctx.Err())
		}
		return nil, ExecutionError(name, ctx.Err())
	}
}

// SanitizeArgs trims string arguments, enforces the length cap and applies
// per-field normalization. The input map is not mutated.
func SanitizeArgs(tool string, args map[string]any) (map[string]any, error) {
	sanitized := make(map[string]any, len(args))
	for key, value := range args {
		switch v := value.(type) {
		case string:
			if len(v) > MaxArgLength {
				return nil, ValidationError(tool, "argument %q exceeds maximum length of %d", key, MaxArgLength)
			}
			s := strings.TrimSpace(v)
			if key == "gender" {
				s = strings.ToLower(s)
			}
			sanitized[key] = s
		case []any:
			items := make([]string, 0, len(v))
			for i, elem := range v {
				s, ok := elem.(string)
				if !ok {
					return nil, ValidationError(tool, "argument %q element %d is not a string", key, i)
				}
				if len(s) > MaxArgLength {
					return nil, ValidationError(tool, "argument %q element %d exceeds maximum length of %d", key, i, MaxArgLength)
				}
				items = append(items, strings.TrimSpace(s))
			}
			sanitized[key] = items
		default:
			sanitized[key] = value
		}
	}
	return sanitized, nil
}
