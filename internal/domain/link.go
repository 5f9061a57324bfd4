package domain

import (
	"fmt"
	"strings"
	"time"
)

// Link is the stored document for one short link. The click history is
// embedded in the document and is append-only: clicks are never edited or
// removed, and every analytics query recomputes from the raw records.
type Link struct {
	// ID is the short identifier, used as the URL path segment.
	ID string `json:"id"`

	// OriginalURL is the redirect destination. Required, non-empty.
	OriginalURL string `json:"original_url"`

	// Title is scraped best-effort from the destination page; may be empty.
	Title string `json:"title,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// TargetParamName is the query parameter inspected on redirect for
	// attribution. Empty means no parameter is inspected.
	TargetParamName string `json:"target_param_name,omitempty"`

	// TargetValues is the catalogue of recognized attribution values.
	// It labels traffic at aggregation time only; click capture never
	// checks incoming values against it.
	TargetValues []TargetValue `json:"target_values,omitempty"`

	Clicks []Click `json:"clicks"`
}

// TargetValue is one named, recognized value for the attribution parameter.
type TargetValue struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Click records a single redirect visit. Immutable once appended.
type Click struct {
	ID         string    `json:"id"`
	InsertedAt time.Time `json:"inserted_at"`

	// IPAddress is whatever client address the transport layer observed.
	// Informational only: not validated, not deduplicated.
	IPAddress string `json:"ip_address"`

	// TargetParamValue is the raw attribution value resolved at record
	// time, or empty if the request carried none.
	TargetParamValue string `json:"target_param_value,omitempty"`
}

// ValidationError reports a rejected target configuration.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidateTargets checks a target configuration before it is persisted.
// Validation happens only at the configuration-update boundary; clicks
// already recorded against values that are later removed stay untouched.
func ValidateTargets(paramName string, values []TargetValue) error {
	if len(values) > 0 && strings.TrimSpace(paramName) == "" {
		return &ValidationError{Field: "target_param_name", Reason: "must not be empty when target values are set"}
	}

	seen := make(map[string]struct{}, len(values))
	for _, tv := range values {
		if strings.TrimSpace(tv.Name) == "" {
			return &ValidationError{Field: "target_values", Reason: "entry name must not be empty"}
		}
		if strings.TrimSpace(tv.Value) == "" {
			return &ValidationError{Field: "target_values", Reason: "entry value must not be empty"}
		}
		if _, dup := seen[tv.Value]; dup {
			return &ValidationError{Field: "target_values", Reason: fmt.Sprintf("duplicate value %q", tv.Value)}
		}
		seen[tv.Value] = struct{}{}
	}
	return nil
}
