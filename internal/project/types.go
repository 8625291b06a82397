package project

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ScopeDecision is the scoping phase's verdict on what the backend needs.
type ScopeDecision struct {
	IsCRUDRequired         bool `json:"is_crud_required"`
	IsUserLoginAndLogout   bool `json:"is_user_login_and_logout"`
	IsExternalURLsRequired bool `json:"is_external_urls_required"`
}

// UnmarshalJSON requires every key and rejects unknown ones.
func (s *ScopeDecision) UnmarshalJSON(data []byte) error {
	var raw struct {
		IsCRUDRequired         *bool `json:"is_crud_required"`
		IsUserLoginAndLogout   *bool `json:"is_user_login_and_logout"`
		IsExternalURLsRequired *bool `json:"is_external_urls_required"`
	}
	if err := decodeStrict(data, &raw); err != nil {
		return fmt.Errorf("project scope: %w", err)
	}
	if err := requireKeys(map[string]bool{
		"is_crud_required":          raw.IsCRUDRequired != nil,
		"is_user_login_and_logout":  raw.IsUserLoginAndLogout != nil,
		"is_external_urls_required": raw.IsExternalURLsRequired != nil,
	}); err != nil {
		return fmt.Errorf("project scope: %w", err)
	}

	*s = ScopeDecision{
		IsCRUDRequired:         *raw.IsCRUDRequired,
		IsUserLoginAndLogout:   *raw.IsUserLoginAndLogout,
		IsExternalURLsRequired: *raw.IsExternalURLsRequired,
	}
	return nil
}

// RouteDescriptor describes one REST route of the generated server.
type RouteDescriptor struct {
	IsRouteDynamic FlexBool `json:"is_route_dynamic"`
	Method         string   `json:"method"`
	RequestBody    any      `json:"request_body"`
	Response       any      `json:"response"`
	Route          string   `json:"route"`
}

// UnmarshalJSON requires is_route_dynamic, method and route and rejects
// unknown keys. The body fields may be absent or null.
func (r *RouteDescriptor) UnmarshalJSON(data []byte) error {
	var raw struct {
		IsRouteDynamic *FlexBool `json:"is_route_dynamic"`
		Method         *string   `json:"method"`
		RequestBody    any       `json:"request_body"`
		Response       any       `json:"response"`
		Route          *string   `json:"route"`
	}
	if err := decodeStrict(data, &raw); err != nil {
		return fmt.Errorf("route descriptor: %w", err)
	}
	if err := requireKeys(map[string]bool{
		"is_route_dynamic": raw.IsRouteDynamic != nil,
		"method":           raw.Method != nil,
		"route":            raw.Route != nil,
	}); err != nil {
		return fmt.Errorf("route descriptor: %w", err)
	}

	*r = RouteDescriptor{
		IsRouteDynamic: *raw.IsRouteDynamic,
		Method:         *raw.Method,
		RequestBody:    raw.RequestBody,
		Response:       raw.Response,
		Route:          *raw.Route,
	}
	return nil
}

func decodeStrict(data []byte, v any) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return errors.New("unexpected null")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// requireKeys reports the first missing key in a stable order.
func requireKeys(present map[string]bool) error {
	var missing []string
	for key, ok := range present {
		if !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("missing field %q", missing[0])
}

// FlexBool decodes from a JSON boolean or from the strings "true"/"false".
// It always encodes as a boolean.
type FlexBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = FlexBool(v)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected boolean or boolean string, got %s", data)
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		*b = true
	case "false":
		*b = false
	default:
		return fmt.Errorf("invalid boolean string %q", s)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (b FlexBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(b))
}
