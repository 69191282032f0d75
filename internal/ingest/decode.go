package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/taxonomy"
)

// BatchDocument is the JSON form of a batch, used by HTTP submissions and
// batch files alike. A bare JSON array of records is accepted too.
type BatchDocument struct {
	Records []json.RawMessage      `json:"records"`
	Blobs   map[string]domain.Blob `json:"blobs,omitempty"`
	Mode    string                 `json:"mode,omitempty"`
}

// DecodeBatch parses a batch document. Only the envelope can fail the batch:
// each record is decoded on its own, and a record that does not decode is
// kept at its index with the error in Batch.Malformed.
func DecodeBatch(data []byte) (*Batch, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, domainerrors.Validation("batch is empty")
	}

	var doc BatchDocument
	if data[0] == '[' {
		if err := json.Unmarshal(data, &doc.Records); err != nil {
			return nil, domainerrors.Validationf("invalid batch: %v", err)
		}
	} else if err := json.Unmarshal(data, &doc); err != nil {
		return nil, domainerrors.Validationf("invalid batch: %v", err)
	}

	batch := &Batch{Records: make([]domain.BookRecord, len(doc.Records)), Blobs: doc.Blobs}
	for i, raw := range doc.Records {
		// Unmarshal keeps filling the fields it can after a type mismatch, so
		// the record's title usually survives for the report.
		if err := json.Unmarshal(raw, &batch.Records[i]); err != nil {
			if batch.Malformed == nil {
				batch.Malformed = make(map[int]error)
			}
			batch.Malformed[i] = recordDecodeError(err)
		}
	}
	// An omitted mode leaves the engine's default in place.
	if doc.Mode != "" {
		mode, err := taxonomy.ParseMode(doc.Mode)
		if err != nil {
			return nil, domainerrors.Validation(err.Error())
		}
		batch.Mode = mode
	}
	return batch, nil
}

func recordDecodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field == "" {
			return fmt.Errorf("record must be a JSON object, not %s", typeErr.Value)
		}
		return fmt.Errorf("field %s must be %s, not %s", typeErr.Field, typeErr.Type, typeErr.Value)
	}
	return fmt.Errorf("malformed record: %w", err)
}
