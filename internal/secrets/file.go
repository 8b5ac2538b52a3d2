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
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileSize is the default maximum secret file size (64KB).
const MaxFileSize = 64 * 1024

// FileProviderConfig controls file provider security settings.
type FileProviderConfig struct {
	// FollowSymlinks allows the reference to be a symlink.
	// Default: false
	FollowSymlinks bool

	// MaxSize is the maximum file size in bytes.
	// Default: 64KB
	MaxSize int64
}

// FileProvider resolves file: references. Paths must be absolute.
type FileProvider struct {
	config FileProviderConfig
}

// NewFileProvider creates a file provider.
func NewFileProvider(config FileProviderConfig) *FileProvider {
	if config.MaxSize == 0 {
		config.MaxSize = MaxFileSize
	}
	return &FileProvider{config: config}
}

// Scheme returns "file".
func (f *FileProvider) Scheme() string {
	return "file"
}

// Resolve returns the contents of the file at path with surrounding
// whitespace trimmed.
func (f *FileProvider) Resolve(_ context.Context, path string) (string, error) {
	if !filepath.IsAbs(path) {
		return "", newResolutionError("file", path, CategoryInvalidSyntax, "path must be absolute", nil)
	}
	path = filepath.Clean(path)

	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", newResolutionError("file", path, CategoryNotFound, "file not found", err)
		}
		return "", newResolutionError("file", path, CategoryAccessDenied, "file stat failed", err)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		if !f.config.FollowSymlinks {
			return "", newResolutionError("file", path, CategoryAccessDenied, "symlinks not allowed", nil)
		}
		if info, err = os.Stat(path); err != nil {
			return "", newResolutionError("file", path, CategoryNotFound, "symlink target not found", err)
		}
	}

	if !info.Mode().IsRegular() {
		return "", newResolutionError("file", path, CategoryInvalidSyntax, "not a regular file", nil)
	}

	if info.Size() > f.config.MaxSize {
		return "", newResolutionError("file", path, CategoryInvalidSyntax,
			fmt.Sprintf("file too large (max %d bytes)", f.config.MaxSize), nil)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return "", newResolutionError("file", path, CategoryAccessDenied, "permission denied", err)
		}
		return "", newResolutionError("file", path, CategoryNotFound, "failed to read file", err)
	}

	value := strings.TrimSpace(string(contents))
	if value == "" {
		return "", newResolutionError("file", path, CategoryNotFound, "file is empty", nil)
	}
	return value, nil
}
