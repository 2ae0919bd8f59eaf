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

package watcher

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GlanceProject/glance-core/pkg/api/models"
	"github.com/GlanceProject/glance-core/pkg/config"
	"github.com/GlanceProject/glance-core/pkg/database"
	"github.com/GlanceProject/glance-core/pkg/library"
	"github.com/GlanceProject/glance-core/pkg/service/reconciler"
	"github.com/GlanceProject/glance-core/pkg/service/state"
	"github.com/GlanceProject/glance-core/pkg/testing/helpers"
	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T) *config.Instance {
	t.Helper()
	cfg, err := config.NewConfig(t.TempDir(), config.BaseDefaults)
	require.NoError(t, err)
	return cfg
}

// newWatcherFixture wires a watcher to a real reconciler, state and store.
// The returned selfCh stands in for the broker subscription feeding the
// self-delete tracker.
func newWatcherFixture(t *testing.T) (
	w *Watcher,
	st *state.State,
	notifCh <-chan models.Notification,
	db *database.Database,
	watchDir string,
	selfCh chan models.Notification,
	cleanup func(),
) {
	t.Helper()

	watchDir = t.TempDir()
	cfg := newTestConfig(t)
	cfg.SetWatchDirs([]string{watchDir})

	st, notifCh = state.NewState(cfg)
	db, dbCleanup := helpers.NewTestDatabase(t)

	rec := reconciler.New(cfg, st, db, clockwork.NewRealClock())
	rec.Start()

	selfCh = make(chan models.Notification, 10)
	w = New(cfg, st, rec, selfCh)

	cleanup = func() {
		w.Stop()
		st.StopService()
		rec.Stop()
		dbCleanup()
	}
	return w, st, notifCh, db, watchDir, selfCh, cleanup
}

func writeScreenshot(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("fake png bytes"), 0o600))
}

func seedEntry(t *testing.T, st *state.State, db *database.Database, path string) {
	t.Helper()
	entry := library.Entry{
		CreatedAt: time.Now().Add(-time.Hour),
		UpdatedAt: time.Now().Add(-time.Hour),
		Path:      path,
		Text:      "seeded entry",
		Tags:      []string{"Other"},
	}
	entries := append(st.Entries(), entry)
	st.SetEntries(entries)
	require.NoError(t, db.Library.UpsertEntry(&entry))
}

// drainNotifications empties the channel and returns everything seen,
// without blocking. Use after the producing code has returned.
func drainNotifications(ch <-chan models.Notification) []models.Notification {
	var out []models.Notification
	for {
		select {
		case notif := <-ch:
			out = append(out, notif)
		default:
			return out
		}
	}
}

func TestRelevant(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	w := New(cfg, nil, nil, nil)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"png file", "/shots/capture.png", true},
		{"uppercase extension", "/shots/CAPTURE.PNG", true},
		{"jpeg file", "/shots/photo.jpeg", true},
		{"text file", "/shots/notes.txt", false},
		{"no extension", "/shots/README", false},
		{"dotfile", "/shots/.incoming.png", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, w.relevant(tt.path))
		})
	}
}

func TestFileCreatedAt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "shot.png")
	writeScreenshot(t, path)

	got := fileCreatedAt(path)
	assert.WithinDuration(t, time.Now(), got, 5*time.Second)

	missing := fileCreatedAt(filepath.Join(t.TempDir(), "nope.png"))
	assert.WithinDuration(t, time.Now(), missing, 5*time.Second)
}

func TestWaitStable(t *testing.T) {
	t.Parallel()

	t.Run("stable file", func(t *testing.T) {
		t.Parallel()
		w := New(newTestConfig(t), nil, nil, nil)
		path := filepath.Join(t.TempDir(), "done.png")
		writeScreenshot(t, path)
		info, err := os.Stat(path)
		require.NoError(t, err)

		assert.True(t, w.waitStable(path, info.Size()))
	})

	t.Run("file vanishes mid probe", func(t *testing.T) {
		t.Parallel()
		w := New(newTestConfig(t), nil, nil, nil)
		path := filepath.Join(t.TempDir(), "gone.png")
		writeScreenshot(t, path)
		info, err := os.Stat(path)
		require.NoError(t, err)
		require.NoError(t, os.Remove(path))

		assert.False(t, w.waitStable(path, info.Size()))
	})

	t.Run("stopped watcher gives up", func(t *testing.T) {
		t.Parallel()
		w := New(newTestConfig(t), nil, nil, nil)
		close(w.stopChan)
		path := filepath.Join(t.TempDir(), "late.png")
		writeScreenshot(t, path)

		assert.False(t, w.waitStable(path, 1))
	})
}

func TestSelfDeleteBookkeeping(t *testing.T) {
	t.Parallel()

	w := New(newTestConfig(t), nil, nil, nil)

	w.rememberSelfDeletes([]string{"/Shots/Gone.PNG"})
	assert.True(t, w.isSelfDeleted("/shots/gone.png"), "lookup is case-insensitive")
	assert.False(t, w.isSelfDeleted("/shots/other.png"))

	w.mu.Lock()
	w.selfDeleted[library.PathKey("/shots/gone.png")] = time.Now().Add(-2 * selfDeleteTTL)
	w.mu.Unlock()
	assert.False(t, w.isSelfDeleted("/shots/gone.png"), "expired entries are pruned")
}

func TestTrackSelfDeletes(t *testing.T) {
	t.Parallel()

	selfCh := make(chan models.Notification, 4)
	w := New(newTestConfig(t), nil, nil, selfCh)
	w.wg.Add(1)
	go w.trackSelfDeletes()

	// Unrelated methods pass through without touching the ignore list.
	selfCh <- models.Notification{Method: models.NotificationLibraryStatus}

	params, err := json.Marshal(models.RemovedParams{Paths: []string{"/shots/bye.png"}})
	require.NoError(t, err)
	selfCh <- models.Notification{Method: models.NotificationLibraryRemoved, Params: params}

	require.Eventually(t, func() bool {
		return w.isSelfDeleted("/shots/bye.png")
	}, 2*time.Second, 10*time.Millisecond, "removed path should land on the ignore list")

	w.Stop()
}

func TestMaybeWatchNewDir(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	w := New(cfg, nil, nil, nil)
	fsw, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer func() { _ = fsw.Close() }()
	w.fsw = fsw

	root := t.TempDir()
	newDir := filepath.Join(root, "imports")
	writeScreenshot(t, filepath.Join(newDir, "shot.png"))
	writeScreenshot(t, filepath.Join(newDir, "sub", "deep.png"))
	writeScreenshot(t, filepath.Join(newDir, ".cache", "thumb.png"))
	require.NoError(t, os.WriteFile(filepath.Join(newDir, "notes.txt"), []byte("x"), 0o600))

	handled, files := w.maybeWatchNewDir(newDir)
	assert.True(t, handled)
	assert.ElementsMatch(t, []string{
		filepath.Join(newDir, "shot.png"),
		filepath.Join(newDir, "sub", "deep.png"),
	}, files, "library files in the new subtree are queued, hidden dirs are not")

	handled, files = w.maybeWatchNewDir(filepath.Join(newDir, "shot.png"))
	assert.False(t, handled, "plain files are not directories")
	assert.Empty(t, files)

	hidden := filepath.Join(root, ".stash")
	require.NoError(t, os.MkdirAll(hidden, 0o750))
	handled, files = w.maybeWatchNewDir(hidden)
	assert.True(t, handled, "hidden dirs are handled by ignoring them")
	assert.Empty(t, files)
}

//nolint:paralleltest // Cannot use t.Parallel() due to goose global state race condition
func TestWatcherDetectsNewFile(t *testing.T) {
	w, st, notifCh, _, watchDir, _, cleanup := newWatcherFixture(t)
	defer cleanup()

	require.NoError(t, w.Start())

	path := filepath.Join(watchDir, "fresh.png")
	writeScreenshot(t, path)

	require.Eventually(t, func() bool {
		status, statusPath := st.Status()
		return status == state.StatusProcessing && statusPath == path
	}, 5*time.Second, 50*time.Millisecond, "new file should reach processing status")

	require.Eventually(t, func() bool {
		for _, notif := range drainNotifications(notifCh) {
			if notif.Method != models.NotificationLibraryDetected {
				continue
			}
			var params models.DetectedParams
			if err := json.Unmarshal(notif.Params, &params); err != nil {
				continue
			}
			if params.Path == path {
				return true
			}
		}
		return false
	}, 2*time.Second, 50*time.Millisecond, "detected notification should be sent")
}

//nolint:paralleltest // Cannot use t.Parallel() due to goose global state race condition
func TestWatcherRemovesVanishedFile(t *testing.T) {
	w, st, notifCh, db, watchDir, _, cleanup := newWatcherFixture(t)
	defer cleanup()

	path := filepath.Join(watchDir, "doomed.png")
	writeScreenshot(t, path)
	seedEntry(t, st, db, path)

	require.NoError(t, w.Start())
	require.NoError(t, os.Remove(path))

	require.Eventually(t, func() bool {
		return st.EntryCount() == 0
	}, 5*time.Second, 50*time.Millisecond, "entry for deleted file should be pruned")

	count, err := db.Library.CountEntries()
	require.NoError(t, err)
	assert.Zero(t, count)

	var removed []string
	for _, notif := range drainNotifications(notifCh) {
		if notif.Method != models.NotificationLibraryRemoved {
			continue
		}
		var params models.RemovedParams
		require.NoError(t, json.Unmarshal(notif.Params, &params))
		removed = append(removed, params.Paths...)
	}
	assert.Contains(t, removed, path)
}

//nolint:paralleltest // Cannot use t.Parallel() due to goose global state race condition
func TestHandleGoneSkipsSelfDeletes(t *testing.T) {
	w, st, _, db, watchDir, _, cleanup := newWatcherFixture(t)
	defer cleanup()

	path := filepath.Join(watchDir, "ours.png")
	seedEntry(t, st, db, path)

	w.rememberSelfDeletes([]string{path})
	w.handleGone(path)
	assert.Equal(t, 1, st.EntryCount(), "own deletes are not re-processed")

	other := filepath.Join(watchDir, "theirs.png")
	seedEntry(t, st, db, other)
	w.handleGone(other)
	assert.Equal(t, 1, st.EntryCount(), "external deletes prune the entry")
}
