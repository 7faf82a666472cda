package domain

import (
	"fmt"
	"strings"
)

// Status is the approval state of an entity that has a review workflow.
//
// The string values are the ones persisted by the platform and must not be
// translated.
type Status string

const (
	StatusActive   Status = "Ativo"
	StatusPending  Status = "Pendente"
	StatusRejected Status = "Rejeitado"
	StatusDraft    Status = "Rascunho"
)

var statusAliases = map[string]Status{
	"ativo":     StatusActive,
	"active":    StatusActive,
	"pendente":  StatusPending,
	"pending":   StatusPending,
	"rejeitado": StatusRejected,
	"rejected":  StatusRejected,
	"rascunho":  StatusDraft,
	"draft":     StatusDraft,
}

// ParseStatus resolves a status from its persisted value or English alias,
// case-insensitively.
func ParseStatus(s string) (Status, error) {
	if st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPending, StatusRejected, StatusDraft:
		return true
	}
	return false
}

// IsActive treats a missing status as active, so kinds without an approval
// workflow are always visible.
func (s Status) IsActive() bool {
	return s == "" || s == StatusActive
}

// UnmarshalText rejects unknown statuses at the boundary. An empty value
// stays empty (no workflow state).
func (s *Status) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = ""
		return nil
	}
	st, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}
