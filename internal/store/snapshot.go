package store

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/daybookhq/daybook/internal/model"
)

// snapshotPrefix identifies the export encoding. The digit leaves room for
// a future format change without breaking old exports.
const snapshotPrefix = "daybook1:"

// Snapshot is the whole-database export: every durable account plus its
// workspace.
type Snapshot struct {
	Accounts   []AccountRecord             `json:"accounts"`
	Workspaces map[string]*model.Workspace `json:"workspaces"`
}

// Validate checks snapshot integrity before it may replace a database.
func (s *Snapshot) Validate() error {
	ids := make(map[string]bool, len(s.Accounts))
	contacts := make(map[string]bool, len(s.Accounts))
	for _, rec := range s.Accounts {
		if rec.Account.ID == "" {
			return fmt.Errorf("account with empty id")
		}
		if rec.Account.Ephemeral {
			return fmt.Errorf("ephemeral account %s in snapshot", rec.Account.ID)
		}
		if ids[rec.Account.ID] {
			return fmt.Errorf("duplicate account id %s", rec.Account.ID)
		}
		if rec.Account.Contact != "" && contacts[rec.Account.Contact] {
			return fmt.Errorf("duplicate contact %s", rec.Account.Contact)
		}
		ids[rec.Account.ID] = true
		contacts[rec.Account.Contact] = true
	}
	for id, ws := range s.Workspaces {
		if ws == nil {
			return fmt.Errorf("nil workspace for account %s", id)
		}
		if err := ws.Validate(); err != nil {
			return fmt.Errorf("workspace %s: %w", id, err)
		}
	}
	return nil
}

// EncodeSnapshot serializes a snapshot to its transportable string form:
// the format prefix followed by base64-encoded gzipped JSON.
func EncodeSnapshot(s *Snapshot) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("failed to compress snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to compress snapshot: %w", err)
	}

	return snapshotPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeSnapshot parses and validates an exported snapshot string.
// Any defect yields ErrBadSnapshot; callers must not have touched their
// database before this returns.
func DecodeSnapshot(encoded string) (*Snapshot, error) {
	encoded = strings.TrimSpace(encoded)
	if !strings.HasPrefix(encoded, snapshotPrefix) {
		return nil, fmt.Errorf("%w: missing %q prefix", ErrBadSnapshot, snapshotPrefix)
	}

	compressed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(encoded, snapshotPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if err := zr.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}

	var s Snapshot
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if s.Workspaces == nil {
		s.Workspaces = map[string]*model.Workspace{}
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}

	return &s, nil
}
