package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows a later algorithm change.
const (
	DomainEntry   = "stepwise/entry/v1"
	DomainOutcome = "stepwise/outcome/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EntryID computes the content-addressed ID of a trace entry within a run.
// Run ID plus path is already unique; seq and input text are included so a
// corrupted store cannot alias two different steps.
func EntryID(runID string, path SeqPath, seq int64, in string) (string, error) {
	obj := Object{
		"run_id": String(runID),
		"path":   String(path.String()),
		"seq":    Int(seq),
		"in":     String(in),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EntryID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEntry, canonical), nil
}

// OutcomeID computes the ID of an outcome-graph record.
func OutcomeID(runID, kind, key string, seq int64) (string, error) {
	obj := Object{
		"run_id": String(runID),
		"kind":   String(kind),
		"key":    String(key),
		"seq":    Int(seq),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("OutcomeID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainOutcome, canonical), nil
}
