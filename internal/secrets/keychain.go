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
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

// DefaultKeychainService is the keychain service appconn entries live under.
const DefaultKeychainService = "appconn"

// KeychainProvider resolves keychain: references from the system keychain.
//
// Supported platforms:
//   - macOS: Keychain Access
//   - Linux: Secret Service API (GNOME Keyring, KWallet)
//   - Windows: Credential Manager
type KeychainProvider struct {
	service string
}

// NewKeychainProvider creates a keychain provider for service.
func NewKeychainProvider(service string) *KeychainProvider {
	if service == "" {
		service = DefaultKeychainService
	}
	return &KeychainProvider{service: service}
}

// Scheme returns "keychain".
func (k *KeychainProvider) Scheme() string {
	return "keychain"
}

// Resolve returns the keychain entry named key.
func (k *KeychainProvider) Resolve(_ context.Context, key string) (string, error) {
	value, err := keyring.Get(k.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", newResolutionError("keychain", key, CategoryNotFound, "keychain entry not found", nil)
		}
		if isKeychainUnavailableError(err) {
			return "", newResolutionError("keychain", key, CategoryAccessDenied, "keychain is locked or inaccessible", err)
		}
		return "", newResolutionError("keychain", key, CategoryAccessDenied, "keychain access error", err)
	}
	return value, nil
}

// Store saves value under key. Used by `appconn secrets set`.
func (k *KeychainProvider) Store(key, value string) error {
	if err := keyring.Set(k.service, key, value); err != nil {
		return newResolutionError("keychain", key, CategoryAccessDenied, "failed to store keychain entry", err)
	}
	return nil
}

// isKeychainUnavailableError checks if an error indicates the keychain is
// locked, missing or refusing access.
func isKeychainUnavailableError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, keyword := range []string{"locked", "not available", "no such interface", "dbus", "access denied", "permission"} {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}
