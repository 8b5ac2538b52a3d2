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
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/tombee/appconn/internal/log"
	appconnerrors "github.com/tombee/appconn/pkg/errors"
	"github.com/tombee/appconn/pkg/security"
)

var (
	// ErrValidatorAlreadyRegistered indicates a validator for the app already exists.
	ErrValidatorAlreadyRegistered = errors.New("validator already registered")

	// ErrInvalidValidator indicates the validator implementation is invalid.
	ErrInvalidValidator = errors.New("invalid validator")
)

// Registry holds one Validator per app. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	validators map[App]Validator
	logger     *slog.Logger
}

// NewRegistry creates an empty registry. A nil logger discards output.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = log.Discard()
	}
	return &Registry{
		validators: make(map[App]Validator),
		logger:     log.WithComponent(logger, "connection"),
	}
}

// Register adds a validator.
func (r *Registry) Register(v Validator) error {
	if v == nil {
		return ErrInvalidValidator
	}

	app := v.App()
	if app == "" {
		return fmt.Errorf("%w: app cannot be empty", ErrInvalidValidator)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.validators[app]; exists {
		return fmt.Errorf("%w: %s", ErrValidatorAlreadyRegistered, app)
	}

	r.validators[app] = v
	return nil
}

// Get returns the validator for app, or a NotFoundError.
func (r *Registry) Get(app App) (Validator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, exists := r.validators[app]
	if !exists {
		return nil, &appconnerrors.NotFoundError{
			Resource: "app",
			ID:       string(app),
		}
	}
	return v, nil
}

// ListItems returns the descriptors of all registered apps sorted by name.
func (r *Registry) ListItems() []ListItem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]ListItem, 0, len(r.validators))
	for _, v := range r.validators {
		items = append(items, v.ListItem())
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	return items
}

// Validate checks cfg against the validator registered for cfg.App.
// The method must be one the app supports.
func (r *Registry) Validate(ctx context.Context, cfg Config) (Result, error) {
	start := time.Now()

	res, err := r.validate(ctx, cfg)
	outcome := res.Outcome
	if err != nil {
		outcome = classifyOutcome(err)
	}
	recordValidation(cfg.App, outcome, time.Since(start).Seconds())

	logger := log.WithApp(r.logger, string(cfg.App))
	if err != nil {
		logger.WarnContext(ctx, "credential validation failed",
			"outcome", string(outcome),
			log.Error(err),
		)
		return Result{Outcome: outcome}, err
	}

	logger.DebugContext(ctx, "credential validation finished", "outcome", string(outcome))
	return res, nil
}

func (r *Registry) validate(ctx context.Context, cfg Config) (Result, error) {
	v, err := r.Get(cfg.App)
	if err != nil {
		return Result{}, err
	}

	item := v.ListItem()
	if !slices.Contains(item.Methods, cfg.Method) {
		return Result{}, &appconnerrors.ValidationError{
			Field:   "method",
			Message: fmt.Sprintf("unsupported method %q for %s", cfg.Method, item.Name),
			Hint:    fmt.Sprintf("supported methods: %v", item.Methods),
		}
	}

	return v.Check(ctx, cfg)
}

// classifyOutcome maps a validation error onto an Outcome.
func classifyOutcome(err error) Outcome {
	var unsafe *security.UnsafeAddressError
	var validation *appconnerrors.ValidationError
	var notFound *appconnerrors.NotFoundError

	switch {
	case errors.As(err, &unsafe):
		return OutcomeUnsafeAddress
	case appconnerrors.IsBadRequest(err):
		return OutcomeRejected
	case errors.As(err, &validation), errors.As(err, &notFound):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}
