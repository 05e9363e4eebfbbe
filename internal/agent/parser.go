package agent

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ToolCall is a structured tool invocation parsed from model output.
type ToolCall struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// ParseKind tags the outcome of tool-call extraction. "No JSON present" and
// "JSON present but malformed" are distinct cases because the orchestrator
// recovers from them differently.
type ParseKind int

const (
	// ParsePlainText: the output contains no JSON object; treat it as a
	// regular answer.
	ParsePlainText ParseKind = iota
	// ParseCall: a structurally valid tool call was extracted.
	ParseCall
	// ParseMalformed: a JSON object is present but cannot be decoded into a
	// valid tool call.
	ParseMalformed
)

// ParseResult is the tagged outcome of ParseToolCall.
type ParseResult struct {
	Kind ParseKind
	Call *ToolCall
	Err  error
}

// ParseToolCall extracts an embedded tool call from raw model output. It
// tolerates markdown code fences and surrounding prose, and attempts a JSON
// repair pass before giving up on a malformed object.
func ParseToolCall(raw string) ParseResult {
	candidate := extractJSONObject(raw)
	if candidate == "" {
		return ParseResult{Kind: ParsePlainText}
	}

	call, err := decodeCall(candidate)
	if err != nil {
		// Models frequently emit almost-JSON (trailing commas, single
		// quotes). Try repairing before classifying as malformed.
		if fixed, rerr := jsonrepair.JSONRepair(candidate); rerr == nil {
			if call, err = decodeCall(fixed); err == nil {
				return ParseResult{Kind: ParseCall, Call: call}
			}
		}
		return ParseResult{Kind: ParseMalformed, Err: err}
	}
	return ParseResult{Kind: ParseCall, Call: call}
}

// decodeCall unmarshals a candidate object and checks the required keys.
func decodeCall(s string) (*ToolCall, error) {
	var call ToolCall
	if err := json.Unmarshal([]byte(s), &call); err != nil {
		return nil, err
	}
	if call.Tool == "" {
		return nil, errMissingTool
	}
	if call.Arguments == nil {
		return nil, errMissingArguments
	}
	return &call, nil
}

var (
	errMissingTool      = jsonError("tool call is missing the \"tool\" key")
	errMissingArguments = jsonError("tool call is missing the \"arguments\" key")
)

type jsonError string

func (e jsonError) Error() string { return string(e) }

// extractJSONObject strips markdown fencing and returns the outermost
// {...} span, or "" when none exists.
func extractJSONObject(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return ""
	}
	return cleaned[start : end+1]
}
