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
	"strings"
	"sync"
)

// minMaskLength avoids masking short values that would match ordinary text.
const minMaskLength = 4

// Masker replaces known secret values in text before it is printed.
type Masker struct {
	mu      sync.RWMutex
	secrets map[string]bool
}

// NewMasker creates an empty masker.
func NewMasker() *Masker {
	return &Masker{secrets: make(map[string]bool)}
}

// AddSecret registers value for masking. Values shorter than four
// characters are ignored.
func (m *Masker) AddSecret(value string) {
	if len(value) < minMaskLength {
		return
	}
	m.mu.Lock()
	m.secrets[value] = true
	m.mu.Unlock()
}

// Mask returns s with every registered secret replaced by "***".
func (m *Masker) Mask(s string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := s
	for secret := range m.secrets {
		if strings.Contains(result, secret) {
			result = strings.ReplaceAll(result, secret, "***")
		}
	}
	return result
}
