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

// Package connection defines app connections and the registry that
// validates their credentials before they are saved.
package connection

import (
	"context"
)

// App identifies a third-party service a connection targets.
type App string

const (
	// AppConvex is a Convex backend deployment.
	AppConvex App = "convex"
)

// Method identifies how a connection authenticates with its app.
type Method string

const (
	// MethodAdminKey authenticates with a deployment admin key.
	MethodAdminKey Method = "admin-key"
)

// Credentials holds the secret material for a connection.
// Validators never modify it.
type Credentials struct {
	AdminKey string `json:"adminKey" yaml:"admin_key"`
}

// Config is the input to credential validation.
type Config struct {
	App         App         `json:"app" yaml:"app"`
	Method      Method      `json:"method" yaml:"method"`
	Credentials Credentials `json:"credentials" yaml:"credentials"`
}

// ListItem describes a supported app for connection listings.
type ListItem struct {
	Name    string   `json:"name"`
	App     App      `json:"app"`
	Methods []Method `json:"methods"`
}

// Outcome is the result class of one validation.
type Outcome string

const (
	// OutcomeVerified means the remote service accepted the credentials.
	OutcomeVerified Outcome = "verified"

	// OutcomeSkipped means the credentials could not be checked over the
	// network and were accepted unchanged.
	OutcomeSkipped Outcome = "skipped"

	// OutcomeUnsafeAddress means the derived endpoint was blocked.
	OutcomeUnsafeAddress Outcome = "unsafe_address"

	// OutcomeRejected means the probe failed.
	OutcomeRejected Outcome = "rejected"

	// OutcomeInvalid means the input was malformed.
	OutcomeInvalid Outcome = "invalid"

	// OutcomeError covers anything else.
	OutcomeError Outcome = "error"
)

// Result pairs the returned credentials with how they were validated.
type Result struct {
	Credentials Credentials `json:"-"`
	Outcome     Outcome     `json:"outcome"`
}

// Validator validates credentials for one app.
type Validator interface {
	// App returns the app this validator handles.
	App() App

	// ListItem returns the listing descriptor for the app.
	ListItem() ListItem

	// Check validates cfg. On success the returned Result carries
	// cfg.Credentials unchanged.
	Check(ctx context.Context, cfg Config) (Result, error)
}
