// Glance Core
// Copyright (c) 2025 The Glance Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Glance Core.
//
// Glance Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Glance Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Glance Core.  If not, see <http://www.gnu.org/licenses/>.

package helpers

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// pngHeader is the magic prefix of a PNG file, enough for fixtures that only
// need to look like screenshots.
var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// FSHelper provides utilities for filesystem mocking in tests.
type FSHelper struct {
	Fs afero.Fs
}

// NewMemoryFS creates a new in-memory filesystem for testing.
func NewMemoryFS() *FSHelper {
	return &FSHelper{
		Fs: afero.NewMemMapFs(),
	}
}

// NewOSFS creates a filesystem helper using the real filesystem, for
// integration tests exercising the watcher or reconciler.
func NewOSFS() *FSHelper {
	return &FSHelper{
		Fs: afero.NewOsFs(),
	}
}

// CreateWatchDirectory creates a watch directory populated with fake
// screenshot files named like common capture tools produce them.
func (h *FSHelper) CreateWatchDirectory(basePath string) error {
	if err := h.Fs.MkdirAll(basePath, 0o755); err != nil {
		return fmt.Errorf("failed to create watch directory: %w", err)
	}

	screenshots := []string{
		"Screenshot 2025-03-01 at 10.15.22.png",
		"Screenshot 2025-03-01 at 10.17.45.png",
		"Screenshot from 2025-03-02 14-03-11.png",
		"capture_20250302_141500.png",
	}

	for _, name := range screenshots {
		path := filepath.Join(basePath, name)
		if err := afero.WriteFile(h.Fs, path, pngHeader, 0o644); err != nil {
			return fmt.Errorf("failed to create screenshot file %s: %w", path, err)
		}
	}

	return nil
}

// CreateDirectoryStructure creates a nested directory structure. Map values
// may be string or []byte file content, a nested map for a subdirectory, or
// nil for an empty directory.
func (h *FSHelper) CreateDirectoryStructure(structure map[string]any) error {
	return h.createStructureRecursive("", structure)
}

func (h *FSHelper) createStructureRecursive(basePath string, structure map[string]any) error {
	for name, content := range structure {
		fullPath := filepath.Join(basePath, name)

		switch v := content.(type) {
		case string:
			if err := h.Fs.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
				return fmt.Errorf("failed to create directory for file %s: %w", fullPath, err)
			}
			if err := afero.WriteFile(h.Fs, fullPath, []byte(v), 0o644); err != nil {
				return fmt.Errorf("failed to write file %s: %w", fullPath, err)
			}
		case []byte:
			if err := h.Fs.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
				return fmt.Errorf("failed to create directory for binary file %s: %w", fullPath, err)
			}
			if err := afero.WriteFile(h.Fs, fullPath, v, 0o644); err != nil {
				return fmt.Errorf("failed to write binary file %s: %w", fullPath, err)
			}
		case map[string]any:
			if err := h.Fs.MkdirAll(fullPath, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", fullPath, err)
			}
			if err := h.createStructureRecursive(fullPath, v); err != nil {
				return err
			}
		case nil:
			if err := h.Fs.MkdirAll(fullPath, 0o755); err != nil {
				return fmt.Errorf("failed to create empty directory %s: %w", fullPath, err)
			}
		}
	}
	return nil
}

// FileExists checks if a file exists.
func (h *FSHelper) FileExists(path string) bool {
	exists, err := afero.Exists(h.Fs, path)
	if err != nil {
		return false
	}
	return exists
}

// ReadFile reads a file and returns its content.
func (h *FSHelper) ReadFile(path string) ([]byte, error) {
	data, err := afero.ReadFile(h.Fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return data, nil
}

// WriteFile writes content to a file, creating parent directories.
func (h *FSHelper) WriteFile(path string, content []byte) error {
	if err := h.Fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for file %s: %w", path, err)
	}
	if err := afero.WriteFile(h.Fs, path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return nil
}

// ListFiles lists all file names in a directory.
func (h *FSHelper) ListFiles(path string) ([]string, error) {
	files, err := afero.ReadDir(h.Fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}

	fileNames := make([]string, len(files))
	for i, file := range files {
		fileNames[i] = file.Name()
	}

	return fileNames, nil
}

// CleanupDir removes all contents from a directory.
func (h *FSHelper) CleanupDir(path string) error {
	if err := h.Fs.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove directory %s: %w", path, err)
	}
	return nil
}

// GetBasicTestStructure returns a directory layout resembling a configured
// install: a config dir, one watch directory with screenshots, and data dirs.
func GetBasicTestStructure() map[string]any {
	return map[string]any{
		"config": map[string]any{
			"config.toml": "config_schema = 1\n",
		},
		"screenshots": map[string]any{
			"Screenshot 2025-03-01 at 10.15.22.png": pngHeader,
			"Screenshot 2025-03-01 at 10.17.45.png": pngHeader,
			"notes.txt":                             "not a screenshot\n",
		},
		"data": nil,
		"logs": nil,
	}
}

// SetupMemoryFilesystem creates an in-memory filesystem helper preloaded
// with the basic directory structure.
func SetupMemoryFilesystem() *FSHelper {
	helper := NewMemoryFS()

	structure := GetBasicTestStructure()
	if err := helper.CreateDirectoryStructure(structure); err != nil {
		_ = helper.Fs.MkdirAll("/config", 0o755)
		_ = helper.Fs.MkdirAll("/screenshots", 0o755)
		_ = helper.Fs.MkdirAll("/data", 0o755)
	}

	return helper
}
