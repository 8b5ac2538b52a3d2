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

package secrets

import (
	"context"
	"os"
)

// EnvProvider resolves env: references from the process environment.
type EnvProvider struct{}

// NewEnvProvider creates an environment variable provider.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

// Scheme returns "env".
func (e *EnvProvider) Scheme() string {
	return "env"
}

// Resolve returns the value of the environment variable key. Unset and
// empty variables are reported as not found.
func (e *EnvProvider) Resolve(_ context.Context, key string) (string, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", newResolutionError("env", key, CategoryNotFound, "environment variable not set", nil)
	}
	return value, nil
}
