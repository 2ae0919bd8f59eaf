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
	"github.com/GlanceProject/glance-core/pkg/config"
)

// NewTestConfig creates a config instance backed by a config file in
// configDir, using the standard defaults. The fs helper is accepted so
// callers can share one fixture for config and file setup; the config file
// itself always lands on the real filesystem, which is what the config
// package reads.
func NewTestConfig(_ *FSHelper, configDir string) (*config.Instance, error) {
	return config.NewConfig(configDir, config.BaseDefaults)
}

// NewTestConfigWithPort creates a test config listening on the given API
// port. Port 0 picks a free port at bind time, which keeps parallel tests
// from colliding.
func NewTestConfigWithPort(fs *FSHelper, configDir string, port int) (*config.Instance, error) {
	cfg, err := NewTestConfig(fs, configDir)
	if err != nil {
		return nil, err
	}
	cfg.SetAPIPort(port)
	return cfg, nil
}
