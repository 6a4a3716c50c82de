package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"jobmonitor-engine/internal/domain"
)

// Extractor turns one fetched payload into postings. Implementations are
// selected by descriptor kind/provider and must not mutate the descriptor.
type Extractor interface {
	Extract(d domain.SourceDescriptor, raw domain.RawFetchResult) ([]domain.Posting, error)
}

type ExtractorFunc func(d domain.SourceDescriptor, raw domain.RawFetchResult) ([]domain.Posting, error)

func (f ExtractorFunc) Extract(d domain.SourceDescriptor, raw domain.RawFetchResult) ([]domain.Posting, error) {
	return f(d, raw)
}

var ErrEmptyPayload = errors.New("empty response")

// DecodeJSON decodes a structured-API payload. An HTML page where JSON was
// expected usually means bad credentials or a block page.
func DecodeJSON(payload []byte, v any) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return ErrEmptyPayload
	}
	if trimmed[0] == '<' {
		return errors.New("got HTML instead of JSON (check API credentials)")
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// SourceName is the display name a posting carries: query override first,
// then descriptor name, then id.
func SourceName(d domain.SourceDescriptor, q domain.Query) string {
	switch {
	case q.Source != "":
		return q.Source
	case d.Name != "":
		return d.Name
	default:
		return d.ID
	}
}
