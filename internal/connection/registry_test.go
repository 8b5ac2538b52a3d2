// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package connection

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconnerrors "github.com/tombee/appconn/pkg/errors"
	"github.com/tombee/appconn/pkg/security"
)

type stubValidator struct {
	app    App
	name   string
	result Result
	err    error
	calls  int
}

func (s *stubValidator) App() App { return s.app }

func (s *stubValidator) ListItem() ListItem {
	return ListItem{Name: s.name, App: s.app, Methods: []Method{MethodAdminKey}}
}

func (s *stubValidator) Check(_ context.Context, cfg Config) (Result, error) {
	s.calls++
	if s.err != nil {
		return Result{}, s.err
	}
	res := s.result
	res.Credentials = cfg.Credentials
	return res, nil
}

func validationCount(app App, outcome Outcome) float64 {
	return testutil.ToFloat64(validationsTotal.With(prometheus.Labels{
		"app":     string(app),
		"outcome": string(outcome),
	}))
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry(nil)

	require.NoError(t, r.Register(&stubValidator{app: "alpha", name: "Alpha"}))

	err := r.Register(&stubValidator{app: "alpha", name: "Alpha"})
	assert.ErrorIs(t, err, ErrValidatorAlreadyRegistered)

	assert.ErrorIs(t, r.Register(nil), ErrInvalidValidator)
	assert.ErrorIs(t, r.Register(&stubValidator{}), ErrInvalidValidator)
}

func TestRegistry_Get_NotFound(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Get("missing")
	var notFound *appconnerrors.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "app", notFound.Resource)
	assert.Equal(t, "missing", notFound.ID)
}

func TestRegistry_ListItems_SortedByName(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(&stubValidator{app: "zeta", name: "Zeta"}))
	require.NoError(t, r.Register(&stubValidator{app: "convex", name: "Convex"}))
	require.NoError(t, r.Register(&stubValidator{app: "alpha", name: "Alpha"}))

	want := []ListItem{
		{Name: "Alpha", App: "alpha", Methods: []Method{MethodAdminKey}},
		{Name: "Convex", App: "convex", Methods: []Method{MethodAdminKey}},
		{Name: "Zeta", App: "zeta", Methods: []Method{MethodAdminKey}},
	}
	if diff := cmp.Diff(want, r.ListItems()); diff != "" {
		t.Errorf("ListItems mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_Validate(t *testing.T) {
	const app App = "registry-test-ok"
	stub := &stubValidator{app: app, name: "OK", result: Result{Outcome: OutcomeVerified}}
	r := NewRegistry(nil)
	require.NoError(t, r.Register(stub))

	before := validationCount(app, OutcomeVerified)

	cfg := Config{App: app, Method: MethodAdminKey, Credentials: Credentials{AdminKey: "k"}}
	res, err := r.Validate(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, OutcomeVerified, res.Outcome)
	assert.Equal(t, cfg.Credentials, res.Credentials)
	assert.Equal(t, before+1, validationCount(app, OutcomeVerified))
}

func TestRegistry_Validate_UnsupportedMethod(t *testing.T) {
	const app App = "registry-test-method"
	stub := &stubValidator{app: app, name: "Method"}
	r := NewRegistry(nil)
	require.NoError(t, r.Register(stub))

	before := validationCount(app, OutcomeInvalid)

	_, err := r.Validate(context.Background(), Config{App: app, Method: "oauth"})
	var validation *appconnerrors.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "method", validation.Field)
	assert.Zero(t, stub.calls)
	assert.Equal(t, before+1, validationCount(app, OutcomeInvalid))
}

func TestRegistry_Validate_UnknownApp(t *testing.T) {
	r := NewRegistry(nil)

	before := validationCount("registry-test-unknown", OutcomeInvalid)
	_, err := r.Validate(context.Background(), Config{App: "registry-test-unknown", Method: MethodAdminKey})

	var notFound *appconnerrors.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, before+1, validationCount("registry-test-unknown", OutcomeInvalid))
}

func TestRegistry_Validate_ErrorOutcomes(t *testing.T) {
	tests := []struct {
		name string
		app  App
		err  error
		want Outcome
	}{
		{name: "unsafe", app: "registry-test-unsafe", err: &security.UnsafeAddressError{Host: "x", Reason: "blocked"}, want: OutcomeUnsafeAddress},
		{name: "rejected", app: "registry-test-rejected", err: appconnerrors.NewBadRequest("Failed to validate credentials: nope"), want: OutcomeRejected},
		{name: "other", app: "registry-test-other", err: errors.New("boom"), want: OutcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(nil)
			require.NoError(t, r.Register(&stubValidator{app: tt.app, name: tt.name, err: tt.err}))

			before := validationCount(tt.app, tt.want)

			res, err := r.Validate(context.Background(), Config{App: tt.app, Method: MethodAdminKey})
			assert.Same(t, tt.err, err)
			assert.Equal(t, tt.want, res.Outcome)
			assert.Equal(t, before+1, validationCount(tt.app, tt.want))
		})
	}
}

func TestWriteMetrics(t *testing.T) {
	recordValidation("registry-test-textfile", OutcomeSkipped, 0.01)

	path := filepath.Join(t.TempDir(), "appconn.prom")
	require.NoError(t, WriteMetrics(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `appconn_validations_total{app="registry-test-textfile",outcome="skipped"} 1`)
	assert.Contains(t, string(data), "appconn_validation_duration_seconds")
}
