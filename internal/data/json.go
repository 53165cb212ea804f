package data

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"evm-report/internal/model"
)

var (
	// ErrMalformedPayload means the upstream body could not be parsed at all.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrNotArray means ResultData parsed but is not a JSON array. Callers
	// treat it as an empty result.
	ErrNotArray = errors.New("result data is not an array")
)

// envelope is the wrapper every Ray endpoint returns. ResultData is
// usually a JSON-encoded string holding the real array.
type envelope struct {
	ResultData json.RawMessage `json:"ResultData"`
}

// DecodeEnvelope parses a full response body and decodes its ResultData.
func DecodeEnvelope[T any](body []byte) ([]T, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return DecodeResultData[T](env.ResultData)
}

// DecodeResultData accepts ResultData either as a JSON string containing an
// array or as the array itself.
func DecodeResultData[T any](raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrNotArray
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		raw = bytes.TrimSpace([]byte(inner))
		if len(raw) == 0 {
			return nil, ErrNotArray
		}
	}
	if raw[0] != '[' {
		if !json.Valid(raw) {
			return nil, ErrMalformedPayload
		}
		return nil, ErrNotArray
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return out, nil
}

// DecodeRecords decodes a saved report payload: the full envelope, or a
// bare array of records.
func DecodeRecords(body []byte) ([]model.RawPeriodRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return DecodeResultData[model.RawPeriodRecord](trimmed)
	}
	return DecodeEnvelope[model.RawPeriodRecord](trimmed)
}

// LoadRecordsJSON reads a saved report payload from disk.
func LoadRecordsJSON(path string) ([]model.RawPeriodRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	recs, err := DecodeRecords(raw)
	if errors.Is(err, ErrNotArray) {
		return []model.RawPeriodRecord{}, nil
	}
	return recs, err
}
