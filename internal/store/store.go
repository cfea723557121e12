// Package store persists check results and gate verdicts so earlier runs can
// be listed and compared.
package store

import (
	"context"
	"errors"

	"github.com/routable/routable-lint/internal/sarif"
)

// ErrNotFound is returned when no result or verdict exists for an ID.
var ErrNotFound = errors.New("not found")

const (
	DecisionPass   = "pass"
	DecisionReject = "reject"
)

type Verdict struct {
	Decision         string                 `json:"decision"`
	Reason           string                 `json:"reason"`
	Counts           map[string]int         `json:"counts,omitempty"`
	RelevantFindings []sarif.Result         `json:"relevant_findings,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// Rejected reports whether the gate failed the run.
func (v *Verdict) Rejected() bool {
	return v != nil && v.Decision == DecisionReject
}

type Store interface {
	WriteSARIF(ctx context.Context, doc *sarif.Log) (string, error)
	WriteVerdict(ctx context.Context, sarifID string, verdict *Verdict) error
	ReadSARIF(ctx context.Context, id string) (*sarif.Log, error)
	ReadVerdict(ctx context.Context, sarifID string) (*Verdict, error)
	// List returns stored IDs, newest first.
	List(ctx context.Context) ([]string, error)
	Close() error
}
