package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Common errors.
var (
	ErrEmptyDescription = errors.New("project description cannot be empty")
	ErrAlreadySet       = errors.New("field already set")
	ErrPhaseIncomplete  = errors.New("phase producing field has not completed")
	ErrInvalidFilter    = errors.New("filtered list is not an ordered subset")
)

// Record is the shared, phase-by-phase project state of one pipeline run.
// It is not safe for concurrent mutation; the orchestrator hands it to one
// agent at a time.
type Record struct {
	description    string
	scope          *ScopeDecision
	externalURLs   []string
	urlsSet        bool
	code           *string
	endpointSchema []RouteDescriptor
	schemaSet      bool
}

// NewRecord creates a Record for a normalized project description.
func NewRecord(description string) (*Record, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}
	return &Record{description: description}, nil
}

// Description returns the normalized user goal.
func (r *Record) Description() string {
	return r.description
}

// Scope returns the scope decision and whether it was set.
func (r *Record) Scope() (ScopeDecision, bool) {
	if r.scope == nil {
		return ScopeDecision{}, false
	}
	return *r.scope, true
}

// RequireScope returns the scope or ErrPhaseIncomplete.
func (r *Record) RequireScope() (ScopeDecision, error) {
	s, ok := r.Scope()
	if !ok {
		return ScopeDecision{}, fmt.Errorf("%w: project_scope", ErrPhaseIncomplete)
	}
	return s, nil
}

// SetScope stores the scope decision. It may only be called once.
func (r *Record) SetScope(s ScopeDecision) error {
	if r.scope != nil {
		return fmt.Errorf("%w: project_scope", ErrAlreadySet)
	}
	r.scope = &s
	return nil
}

// ExternalURLs returns a copy of the external resources and whether they were set.
func (r *Record) ExternalURLs() ([]string, bool) {
	if !r.urlsSet {
		return nil, false
	}
	return slices.Clone(r.externalURLs), true
}

// SetExternalURLs stores the candidate external resources. It may only be
// called once; later changes go through ReplaceExternalURLs.
func (r *Record) SetExternalURLs(urls []string) error {
	if r.urlsSet {
		return fmt.Errorf("%w: external_urls", ErrAlreadySet)
	}
	r.externalURLs = slices.Clone(urls)
	r.urlsSet = true
	return nil
}

// ReplaceExternalURLs narrows the external resources. kept must be an
// ordered subsequence of the current list, so URLs are never reordered or
// re-added.
func (r *Record) ReplaceExternalURLs(kept []string) error {
	if !r.urlsSet {
		return fmt.Errorf("%w: external_urls", ErrPhaseIncomplete)
	}
	if !isSubsequence(kept, r.externalURLs) {
		return fmt.Errorf("%w: external_urls", ErrInvalidFilter)
	}
	r.externalURLs = slices.Clone(kept)
	return nil
}

// Code returns the latest generated code and whether any was stored.
func (r *Record) Code() (string, bool) {
	if r.code == nil {
		return "", false
	}
	return *r.code, true
}

// RequireCode returns the latest code or ErrPhaseIncomplete.
func (r *Record) RequireCode() (string, error) {
	c, ok := r.Code()
	if !ok {
		return "", fmt.Errorf("%w: backend_code", ErrPhaseIncomplete)
	}
	return c, nil
}

// SetCode replaces the generated code.
func (r *Record) SetCode(code string) {
	r.code = &code
}

// EndpointSchema returns a copy of the extracted routes and whether they were set.
func (r *Record) EndpointSchema() ([]RouteDescriptor, bool) {
	if !r.schemaSet {
		return nil, false
	}
	return slices.Clone(r.endpointSchema), true
}

// SetEndpointSchema stores the extracted routes. It may only be called once.
func (r *Record) SetEndpointSchema(routes []RouteDescriptor) error {
	if r.schemaSet {
		return fmt.Errorf("%w: api_endpoint_schema", ErrAlreadySet)
	}
	r.endpointSchema = slices.Clone(routes)
	r.schemaSet = true
	return nil
}

// Snapshot is the JSON view of a Record. Unset fields are null.
type Snapshot struct {
	ProjectDescription string            `json:"project_description"`
	ProjectScope       *ScopeDecision    `json:"project_scope"`
	ExternalURLs       []string          `json:"external_urls"`
	BackendCode        *string           `json:"backend_code"`
	APIEndpointSchema  []RouteDescriptor `json:"api_endpoint_schema"`
}

// Snapshot returns a copy of the record's current state.
func (r *Record) Snapshot() Snapshot {
	s := Snapshot{ProjectDescription: r.description}
	if sc, ok := r.Scope(); ok {
		s.ProjectScope = &sc
	}
	if urls, ok := r.ExternalURLs(); ok {
		s.ExternalURLs = urls
		if s.ExternalURLs == nil {
			s.ExternalURLs = []string{}
		}
	}
	if c, ok := r.Code(); ok {
		s.BackendCode = &c
	}
	if routes, ok := r.EndpointSchema(); ok {
		s.APIEndpointSchema = routes
		if s.APIEndpointSchema == nil {
			s.APIEndpointSchema = []RouteDescriptor{}
		}
	}
	return s
}

// MarshalJSON implements json.Marshaler.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Snapshot())
}

func isSubsequence(sub, seq []string) bool {
	i := 0
	for _, s := range seq {
		if i < len(sub) && sub[i] == s {
			i++
		}
	}
	return i == len(sub)
}
