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

package methods

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/GlanceProject/glance-core/pkg/api/models"
	"github.com/GlanceProject/glance-core/pkg/api/models/requests"
	"github.com/GlanceProject/glance-core/pkg/config"
	"github.com/GlanceProject/glance-core/pkg/database"
	"github.com/GlanceProject/glance-core/pkg/library"
	"github.com/GlanceProject/glance-core/pkg/service/reconciler"
	"github.com/GlanceProject/glance-core/pkg/service/state"
	"github.com/GlanceProject/glance-core/pkg/testing/helpers"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testFixture bundles the live pieces behind a RequestEnv so tests can seed
// and inspect them directly.
type testFixture struct {
	cfg      *config.Instance
	st       *state.State
	db       *database.Database
	rec      *reconciler.Reconciler
	notifCh  <-chan models.Notification
	watchDir string
}

// newTestEnv builds a handler environment around a real state, store and
// running reconciler, with one temp watch directory configured.
func newTestEnv(t *testing.T) (requests.RequestEnv, *testFixture, func()) {
	t.Helper()

	watchDir := t.TempDir()
	cfg, err := config.NewConfig(t.TempDir(), config.BaseDefaults)
	require.NoError(t, err)
	cfg.SetWatchDirs([]string{watchDir})

	st, notifCh := state.NewState(cfg)
	db, dbCleanup := helpers.NewTestDatabase(t)

	rec := reconciler.New(cfg, st, db, clockwork.NewRealClock())
	rec.Start()

	fix := &testFixture{
		cfg:      cfg,
		st:       st,
		db:       db,
		rec:      rec,
		notifCh:  notifCh,
		watchDir: watchDir,
	}
	env := requests.RequestEnv{
		Config:     cfg,
		State:      st,
		Database:   db,
		Reconciler: rec,
		IsLocal:    true,
	}
	cleanup := func() {
		st.StopService()
		rec.Stop()
		dbCleanup()
	}
	return env, fix, cleanup
}

// seedEntries installs entries in both the in-memory library and the store,
// the way the reconciler would have left them.
func seedEntries(t *testing.T, fix *testFixture, entries ...library.Entry) {
	t.Helper()

	all := append(fix.st.Entries(), entries...)
	library.SortEntries(all)
	fix.st.SetEntries(all)
	for i := range entries {
		require.NoError(t, fix.db.Library.UpsertEntry(&entries[i]))
	}
}

func libEntry(path, text string, createdAt time.Time, tags ...string) library.Entry {
	return library.Entry{
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
		Path:      path,
		Text:      text,
		Tags:      tags,
	}
}

// writeFile creates a file with content under the fixture's watch dir and
// returns its path.
func writeFile(t *testing.T, fix *testFixture, name, content string) string {
	t.Helper()

	path := filepath.Join(fix.watchDir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func drainNotifications(ch <-chan models.Notification) []models.Notification {
	var out []models.Notification
	for {
		select {
		case n := <-ch:
			out = append(out, n)
		default:
			return out
		}
	}
}

func notificationMethods(ns []models.Notification) []string {
	methods := make([]string, 0, len(ns))
	for i := range ns {
		methods = append(methods, ns[i].Method)
	}
	return methods
}

func TestHandleVersion(t *testing.T) {
	t.Parallel()

	env, _, cleanup := newTestEnv(t)
	defer cleanup()

	result, err := HandleVersion(env)
	require.NoError(t, err)

	resp, ok := result.(models.VersionResponse)
	require.True(t, ok, "response should be VersionResponse")
	assert.Equal(t, config.AppVersion, resp.Version)
	assert.Equal(t, runtime.GOOS, resp.Platform)
}
