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
	"os"
	"path/filepath"

	"github.com/GlanceProject/glance-core/pkg/config"
	"github.com/adrg/xdg"
)

// ConfigDir returns the directory where the config file lives.
// GLANCE_CFG overrides the file path directly and is handled by config.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, config.AppName)
}

// DataDir returns the directory for persistent service data (database).
func DataDir() string {
	return filepath.Join(xdg.DataHome, config.AppName)
}

// TempDir returns the directory for logs and other disposable state.
func TempDir() string {
	return filepath.Join(os.TempDir(), config.AppName)
}
