package project

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	r, err := NewRecord("  build a website that tracks todos \n")
	require.NoError(t, err)
	assert.Equal(t, "build a website that tracks todos", r.Description())

	_, err = NewRecord("   ")
	assert.ErrorIs(t, err, ErrEmptyDescription)
}

func TestRecord_ScopeSetOnce(t *testing.T) {
	r, _ := NewRecord("goal")

	_, err := r.RequireScope()
	assert.ErrorIs(t, err, ErrPhaseIncomplete)

	want := ScopeDecision{IsCRUDRequired: true}
	require.NoError(t, r.SetScope(want))

	got, err := r.RequireScope()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	err = r.SetScope(ScopeDecision{IsUserLoginAndLogout: true})
	assert.ErrorIs(t, err, ErrAlreadySet)
	got, _ = r.Scope()
	assert.Equal(t, want, got, "scope must not be overwritten")
}

func TestRecord_ExternalURLs(t *testing.T) {
	r, _ := NewRecord("goal")

	_, ok := r.ExternalURLs()
	assert.False(t, ok)
	assert.ErrorIs(t, r.ReplaceExternalURLs(nil), ErrPhaseIncomplete)

	urls := []string{"https://a.example", "https://b.example", "https://c.example"}
	require.NoError(t, r.SetExternalURLs(urls))
	assert.ErrorIs(t, r.SetExternalURLs(urls), ErrAlreadySet)

	// Caller mutations do not leak into the record.
	urls[0] = "https://mutated.example"
	got, ok := r.ExternalURLs()
	require.True(t, ok)
	assert.Equal(t, "https://a.example", got[0])

	require.NoError(t, r.ReplaceExternalURLs([]string{"https://a.example", "https://c.example"}))
	got, _ = r.ExternalURLs()
	assert.Equal(t, []string{"https://a.example", "https://c.example"}, got)
}

func TestRecord_ReplaceExternalURLsRejectsReorderAndReadd(t *testing.T) {
	r, _ := NewRecord("goal")
	require.NoError(t, r.SetExternalURLs([]string{"https://a.example", "https://b.example"}))
	require.NoError(t, r.ReplaceExternalURLs([]string{"https://a.example"}))

	tests := map[string][]string{
		"re-add excluded": {"https://a.example", "https://b.example"},
		"unknown url":     {"https://z.example"},
	}
	for name, kept := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, r.ReplaceExternalURLs(kept), ErrInvalidFilter)
		})
	}

	r2, _ := NewRecord("goal")
	require.NoError(t, r2.SetExternalURLs([]string{"https://a.example", "https://b.example"}))
	assert.ErrorIs(t, r2.ReplaceExternalURLs([]string{"https://b.example", "https://a.example"}), ErrInvalidFilter)
}

func TestRecord_CodeReplaced(t *testing.T) {
	r, _ := NewRecord("goal")

	_, err := r.RequireCode()
	assert.ErrorIs(t, err, ErrPhaseIncomplete)

	r.SetCode("v1")
	r.SetCode("v2")
	code, err := r.RequireCode()
	require.NoError(t, err)
	assert.Equal(t, "v2", code)
}

func TestRecord_EndpointSchemaSetOnce(t *testing.T) {
	r, _ := NewRecord("goal")
	routes := []RouteDescriptor{{Method: "get", Route: "/item/{id}", IsRouteDynamic: true}}

	require.NoError(t, r.SetEndpointSchema(routes))
	assert.ErrorIs(t, r.SetEndpointSchema(nil), ErrAlreadySet)

	got, ok := r.EndpointSchema()
	require.True(t, ok)
	assert.Equal(t, routes, got)
}

func TestRecord_MarshalJSON(t *testing.T) {
	r, _ := NewRecord("build a todo site")

	raw, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"project_description": "build a todo site",
		"project_scope": null,
		"external_urls": null,
		"backend_code": null,
		"api_endpoint_schema": null
	}`, string(raw))

	require.NoError(t, r.SetScope(ScopeDecision{IsCRUDRequired: true, IsUserLoginAndLogout: true}))
	require.NoError(t, r.SetExternalURLs(nil))
	r.SetCode("fn main() {}")

	raw, err = json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"project_description": "build a todo site",
		"project_scope": {"is_crud_required": true, "is_user_login_and_logout": true, "is_external_urls_required": false},
		"external_urls": [],
		"backend_code": "fn main() {}",
		"api_endpoint_schema": null
	}`, string(raw))
}

func TestRouteDescriptor_FlexibleDynamicFlag(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    FlexBool
		wantErr bool
	}{
		{"bool true", `{"is_route_dynamic": true, "method": "get", "route": "/a"}`, true, false},
		{"bool false", `{"is_route_dynamic": false, "method": "get", "route": "/a"}`, false, false},
		{"string true", `{"is_route_dynamic": "true", "method": "get", "route": "/a"}`, true, false},
		{"string False", `{"is_route_dynamic": "False", "method": "get", "route": "/a"}`, false, false},
		{"garbage string", `{"is_route_dynamic": "maybe", "method": "get", "route": "/a"}`, false, true},
		{"number", `{"is_route_dynamic": 1, "method": "get", "route": "/a"}`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rd RouteDescriptor
			err := json.Unmarshal([]byte(tt.in), &rd)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rd.IsRouteDynamic)
		})
	}
}

func TestRouteDescriptor_UntypedBodies(t *testing.T) {
	in := `[{"is_route_dynamic":"true","method":"post","request_body":{"name":"x","tags":["a"]},"response":null,"route":"/item/{id}"}]`

	var routes []RouteDescriptor
	require.NoError(t, json.Unmarshal([]byte(in), &routes))
	require.Len(t, routes, 1)
	assert.Equal(t, map[string]any{"name": "x", "tags": []any{"a"}}, routes[0].RequestBody)
	assert.Nil(t, routes[0].Response)

	out, err := json.Marshal(routes[0])
	require.NoError(t, err)
	assert.Contains(t, string(out), `"is_route_dynamic":true`)
}

func TestRouteDescriptor_RequiredKeys(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr string
	}{
		{"missing method", `{"is_route_dynamic": true, "route": "/a"}`, `missing field "method"`},
		{"missing route", `{"is_route_dynamic": true, "method": "get"}`, `missing field "route"`},
		{"null dynamic flag", `{"is_route_dynamic": null, "method": "get", "route": "/a"}`, `missing field "is_route_dynamic"`},
		{"unknown key", `{"is_route_dynamic": true, "method": "get", "route": "/a", "path": "/a"}`, "unknown field"},
		{"null", `null`, "unexpected null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rd RouteDescriptor
			err := rd.UnmarshalJSON([]byte(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	var rd RouteDescriptor
	require.NoError(t, json.Unmarshal([]byte(`{"is_route_dynamic": false, "method": "get", "route": "/a"}`), &rd))
	assert.Nil(t, rd.RequestBody)
	assert.Nil(t, rd.Response)
}

func TestScopeDecision_RequiredKeys(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr string
	}{
		{"wrong keys", `{"crud": true, "login": true, "external": true}`, "unknown field"},
		{"missing key", `{"is_crud_required": true, "is_user_login_and_logout": true}`, `missing field "is_external_urls_required"`},
		{"null value", `{"is_crud_required": null, "is_user_login_and_logout": true, "is_external_urls_required": false}`, `missing field "is_crud_required"`},
		{"null", `null`, "unexpected null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s ScopeDecision
			err := s.UnmarshalJSON([]byte(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	var s ScopeDecision
	require.NoError(t, json.Unmarshal([]byte(`{"is_crud_required": false, "is_user_login_and_logout": true, "is_external_urls_required": false}`), &s))
	assert.Equal(t, ScopeDecision{IsUserLoginAndLogout: true}, s)
}
