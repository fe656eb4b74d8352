package sandbox

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vango-dev/pagefiles/pkg/pagefile"
)

// message is the one JSON value an extraction script sends back.
type message struct {
	OK          bool            `json:"ok"`
	Error       string          `json:"error,omitempty"`
	HasMeta     bool            `json:"hasMeta"`
	Meta        json.RawMessage `json:"meta,omitempty"`
	HasDefault  bool            `json:"hasDefault"`
	DefaultName string          `json:"defaultName,omitempty"`
	DisplayName string          `json:"displayName,omitempty"`
}

// decode turns a response into a record for file.
func decode(file string, data []byte) (pagefile.Record, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return pagefile.Record{}, fmt.Errorf("malformed sandbox response: %w", err)
	}
	if !msg.OK {
		if msg.Error == "" {
			msg.Error = "extraction failed"
		}
		return pagefile.Record{}, errors.New(msg.Error)
	}

	rec := pagefile.Record{
		FilePath:                 file,
		HasDefaultExport:         msg.HasDefault,
		DefaultExportName:        msg.DefaultName,
		DefaultExportDisplayName: msg.DisplayName,
	}

	// A Meta export that yields null or undefined counts as missing.
	if msg.HasMeta && len(msg.Meta) > 0 {
		if err := json.Unmarshal(msg.Meta, &rec.Meta); err != nil {
			return pagefile.Record{}, fmt.Errorf("malformed meta: %w", err)
		}
	}

	return rec, nil
}
