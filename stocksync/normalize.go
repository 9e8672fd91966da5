package stocksync

import (
	"encoding/json"
	"errors"
)

// Provider deployments wrap payloads inconsistently. Each shapeMatcher is a
// predicate-plus-extractor tried in order; the first match wins. Adding a new
// envelope shape means appending a matcher, not touching existing ones.
type shapeMatcher struct {
	name    string
	extract func(body []byte) ([]StockRow, bool, error)
}

type stockEnvelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

var shapeMatchers = []shapeMatcher{
	{name: "message-wrapped envelope", extract: extractMessageEnvelope},
	{name: "message-wrapped list", extract: extractMessageList},
	{name: "direct envelope", extract: extractDirectEnvelope},
}

// normalizeStockResponse unwraps a raw provider body into a canonical row
// list. Undecodable bodies return a decode_error carrying a bounded snippet.
func normalizeStockResponse(body []byte) ([]StockRow, *SyncError) {
	for _, m := range shapeMatchers {
		rows, matched, err := m.extract(body)
		if !matched {
			continue
		}
		if err != nil {
			return nil, &SyncError{Type: ErrTypeRequest, Message: err.Error()}
		}
		return rows, nil
	}
	return nil, &SyncError{
		Type:    ErrTypeDecode,
		Message: "could not parse stock response: unrecognized body shape",
		Snippet: snippet(body, 500),
	}
}

// Shape 1: {"message": {"success": ..., "data": [...], "error": ...}}.
func extractMessageEnvelope(body []byte) ([]StockRow, bool, error) {
	var outer struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &outer); err != nil || len(outer.Message) == 0 {
		return nil, false, nil
	}
	return unwrapEnvelope(outer.Message)
}

// Shape 2: {"message": [ ...rows... ]}.
func extractMessageList(body []byte) ([]StockRow, bool, error) {
	var outer struct {
		Message []StockRow `json:"message"`
	}
	if err := json.Unmarshal(body, &outer); err != nil || outer.Message == nil {
		return nil, false, nil
	}
	return outer.Message, true, nil
}

// Shape 3: {"success": ..., "data": [...], "error": ...} with no wrapper.
func extractDirectEnvelope(body []byte) ([]StockRow, bool, error) {
	return unwrapEnvelope(body)
}

func unwrapEnvelope(raw []byte) ([]StockRow, bool, error) {
	var env stockEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false, nil
	}
	if env.Success == nil && env.Data == nil {
		return nil, false, nil
	}
	if env.Success != nil && !*env.Success {
		msg := env.Error
		if msg == "" {
			msg = "remote site reported an unspecified error"
		}
		return nil, true, errors.New(msg)
	}
	if env.Data == nil {
		return []StockRow{}, true, nil
	}
	var rows []StockRow
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, false, nil
	}
	return rows, true, nil
}
