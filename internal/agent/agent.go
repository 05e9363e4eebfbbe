// Package agent implements the conversational orchestrator: a turn-based
// loop that collects patient data over a chat session and routes the model's
// tool calls through the dispatcher.
//
// An Agent owns its conversation history exclusively and is not safe for
// concurrent calls; concurrent sessions get one Agent instance each (see
// internal/sessions).
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medkit-ai/diagnon/internal/dispatch"
	"github.com/medkit-ai/diagnon/internal/guardrails"
	"github.com/medkit-ai/diagnon/pkg/contracts"
	"github.com/medkit-ai/diagnon/pkg/models"
)

// Agent is a stateful conversational orchestrator. History always starts
// with exactly one system turn and is mutated only by appending; Reset
// replaces it with the initial system turn again.
type Agent struct {
	model      contracts.ChatModel
	dispatcher *dispatch.Dispatcher
	registry   dispatch.Registry
	timeout    time.Duration
	metrics    contracts.MetricsSink
	history    []models.ChatMessage
}

// New creates an orchestrator over the given model and tool registry.
func New(model contracts.ChatModel, d *dispatch.Dispatcher, registry dispatch.Registry, timeout time.Duration, sink contracts.MetricsSink) *Agent {
	return &Agent{
		model:      model,
		dispatcher: d,
		registry:   registry,
		timeout:    timeout,
		metrics:    sink,
		history:    []models.ChatMessage{{Role: models.RoleSystem, Content: systemPrompt}},
	}
}

// Reset discards all history except the initial system turn.
func (a *Agent) Reset() {
	a.history = a.history[:1]
}

// History returns a copy of the conversation so far.
func (a *Agent) History() []models.ChatMessage {
	out := make([]models.ChatMessage, len(a.history))
	copy(out, a.history)
	return out
}

// Chat runs one user turn through the full pipeline: guardrails, model,
// tool-call parsing, dispatch, and a final formatting pass. On guardrail
// rejection the returned error is a *guardrails.SecurityError and the
// rejected input is not recorded in history.
func (a *Agent) Chat(ctx context.Context, input string) (reply string, err error) {
	start := time.Now()
	toolInvoked := false
	defer func() {
		status := models.StatusSuccess
		var serr *guardrails.SecurityError
		if errors.As(err, &serr) {
			status = models.StatusDenied
		} else if err != nil {
			status = models.StatusError
		}
		a.metrics.Emit(models.MetricsRecord{
			Operation:   "chat_turn",
			Status:      status,
			Duration:    time.Since(start),
			ToolInvoked: toolInvoked,
		})
	}()

	if err := guardrails.Check(input); err != nil {
		return "", err
	}

	a.history = append(a.history, models.ChatMessage{Role: models.RoleUser, Content: input})

	completion, err := a.model.Generate(ctx, a.history)
	if err != nil {
		return "", fmt.Errorf("model call: %w", err)
	}
	a.history = append(a.history, models.ChatMessage{Role: models.RoleAssistant, Content: completion.Content})

	parsed := ParseToolCall(completion.Content)
	switch parsed.Kind {
	case ParsePlainText:
		return completion.Content, nil

	case ParseMalformed:
		// Give the model the parse failure as context for the next turn;
		// this turn is not retried.
		log.Warn().Err(parsed.Err).Msg("malformed tool call in model output")
		a.history = append(a.history, models.ChatMessage{
			Role:    models.RoleUser,
			Content: "Bad tool call format, JSON parsing failed. Please try again.",
		})
		return completion.Content, nil
	}

	toolInvoked = true
	result, derr := a.dispatcher.Dispatch(ctx, parsed.Call.Tool, parsed.Call.Arguments, a.registry, a.timeout)
	if derr != nil {
		a.history = append(a.history, models.ChatMessage{
			Role:    models.RoleTool,
			Content: correctiveFor(parsed.Call.Tool, derr),
		})
	} else {
		a.history = append(a.history, models.ChatMessage{
			Role:    models.RoleTool,
			Content: fmt.Sprintf("TOOL %q OUTPUT: %s\n\n%s", parsed.Call.Tool, result, formatInstruction),
		})
	}

	final, err := a.model.Generate(ctx, a.history)
	if err != nil {
		return "", fmt.Errorf("formatting model call: %w", err)
	}
	a.history = append(a.history, models.ChatMessage{Role: models.RoleAssistant, Content: final.Content})
	return final.Content, nil
}

// correctiveFor maps each dispatcher failure kind to a distinct instruction
// the model can act on next turn.
func correctiveFor(tool string, err error) string {
	var derr *dispatch.Error
	if !errors.As(err, &derr) {
		return fmt.Sprintf("TOOL %q FAILED: %v. You may retry once.", tool, err)
	}
	switch derr.Kind {
	case dispatch.KindValidation:
		return fmt.Sprintf("TOOL %q REJECTED THE ARGUMENTS: %v. Ask the user again for the missing or invalid information, one question at a time.", tool, derr.Err)
	case dispatch.KindNotFound:
		return fmt.Sprintf("TOOL %q DOES NOT EXIST. Never invent tool names; only get_diagnosis_tool is available.", tool)
	case dispatch.KindTimeout:
		return fmt.Sprintf("TOOL %q TIMED OUT. Tell the user the diagnosis service is slow and suggest trying again.", tool)
	default:
		return fmt.Sprintf("TOOL %q FAILED: %v. You may retry once.", tool, derr.Err)
	}
}
