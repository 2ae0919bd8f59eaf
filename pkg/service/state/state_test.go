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

package state

import (
	"testing"
	"time"

	"github.com/GlanceProject/glance-core/pkg/api/models"
	"github.com/GlanceProject/glance-core/pkg/config"
	"github.com/GlanceProject/glance-core/pkg/library"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState(t *testing.T) (*State, <-chan models.Notification) {
	t.Helper()
	cfg, err := config.NewConfig(t.TempDir(), config.BaseDefaults)
	require.NoError(t, err)
	st, ns := NewState(cfg)
	t.Cleanup(st.StopService)
	return st, ns
}

func entryAt(path string, createdAt time.Time) library.Entry {
	return library.Entry{Path: path, CreatedAt: createdAt}
}

func TestSetEntriesSnapshot(t *testing.T) {
	t.Parallel()
	st, _ := newTestState(t)

	now := time.Now()
	st.SetEntries([]library.Entry{
		entryAt("/shots/a.png", now),
		entryAt("/shots/b.png", now.Add(-time.Minute)),
	})

	assert.Equal(t, 2, st.EntryCount())

	snapshot := st.Entries()
	snapshot[0].Path = "/mutated.png"
	assert.Equal(t, "/shots/a.png", st.Entries()[0].Path)
}

func TestToggleSelect(t *testing.T) {
	t.Parallel()
	st, _ := newTestState(t)

	st.SetEntries([]library.Entry{entryAt("/shots/a.png", time.Now())})

	selected, known := st.ToggleSelect("/shots/a.png")
	assert.True(t, selected)
	assert.True(t, known)
	assert.Equal(t, []string{"/shots/a.png"}, st.Selection())

	// Selecting through a differently cased spelling hits the same entry.
	selected, known = st.ToggleSelect("/SHOTS/A.PNG")
	assert.False(t, selected)
	assert.True(t, known)
	assert.Empty(t, st.Selection())

	_, known = st.ToggleSelect("/shots/unknown.png")
	assert.False(t, known)
}

func TestSetEntriesPrunesSelection(t *testing.T) {
	t.Parallel()
	st, _ := newTestState(t)

	now := time.Now()
	st.SetEntries([]library.Entry{
		entryAt("/shots/a.png", now),
		entryAt("/shots/b.png", now),
	})
	_, _ = st.ToggleSelect("/shots/a.png")
	_, _ = st.ToggleSelect("/shots/b.png")
	require.Len(t, st.Selection(), 2)

	st.SetEntries([]library.Entry{entryAt("/shots/b.png", now)})
	assert.Equal(t, []string{"/shots/b.png"}, st.Selection())
}

func TestSetQueryClearsSelectionOnChange(t *testing.T) {
	t.Parallel()
	st, _ := newTestState(t)

	st.SetEntries([]library.Entry{entryAt("/shots/a.png", time.Now())})
	st.SetQuery(library.Query{Text: "cat"})
	_, _ = st.ToggleSelect("/shots/a.png")
	require.Len(t, st.Selection(), 1)

	// Same query again keeps the selection.
	st.SetQuery(library.Query{Text: "cat"})
	assert.Len(t, st.Selection(), 1)

	st.SetQuery(library.Query{Text: "dog"})
	assert.Empty(t, st.Selection())
	assert.Equal(t, library.Query{Text: "dog"}, st.LastQuery())
}

func TestSetBatchNotifies(t *testing.T) {
	t.Parallel()
	st, ns := newTestState(t)

	progress := library.BatchProgress{Total: 10, Completed: 4, Percent: 40, InProgress: true}
	st.SetBatch(progress)

	assert.Equal(t, progress, st.Batch())

	select {
	case notification := <-ns:
		assert.Equal(t, models.NotificationLibraryBatch, notification.Method)
		assert.Contains(t, string(notification.Params), `"completed":4`)
	case <-time.After(time.Second):
		t.Fatal("expected batch notification")
	}
}

func TestStatusTransitions(t *testing.T) {
	t.Parallel()
	st, ns := newTestState(t)

	st.SetProcessing("/shots/busy.png")
	status, path := st.Status()
	assert.Equal(t, StatusProcessing, status)
	assert.Equal(t, "/shots/busy.png", path)

	st.SetIdle()
	status, path = st.Status()
	assert.Equal(t, StatusIdle, status)
	assert.Empty(t, path)

	// Both transitions fan out.
	for range 2 {
		select {
		case notification := <-ns:
			assert.Equal(t, models.NotificationLibraryStatus, notification.Method)
		case <-time.After(time.Second):
			t.Fatal("expected status notification")
		}
	}
}

func TestSetErrorAndClear(t *testing.T) {
	t.Parallel()
	st, ns := newTestState(t)

	st.SetProcessing("/shots/busy.png")
	<-ns

	st.SetError("ocr failed: unreadable image")

	status, _ := st.Status()
	assert.Equal(t, StatusIdle, status)
	assert.Equal(t, "ocr failed: unreadable image", st.LastError())

	select {
	case notification := <-ns:
		assert.Equal(t, models.NotificationLibraryStatus, notification.Method)
		assert.Contains(t, string(notification.Params), "unreadable image")
	case <-time.After(time.Second):
		t.Fatal("expected error notification")
	}

	st.clearError()
	assert.Empty(t, st.LastError())

	select {
	case notification := <-ns:
		assert.Equal(t, models.NotificationLibraryStatus, notification.Method)
		assert.NotContains(t, string(notification.Params), "unreadable image")
	case <-time.After(time.Second):
		t.Fatal("expected cleared status notification")
	}

	// A second clear with nothing to clear stays silent.
	st.clearError()
	select {
	case notification := <-ns:
		t.Fatalf("unexpected notification: %s", notification.Method)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStopService(t *testing.T) {
	t.Parallel()
	cfg, err := config.NewConfig(t.TempDir(), config.BaseDefaults)
	require.NoError(t, err)
	st, _ := NewState(cfg)

	ctx := st.GetContext()
	require.NoError(t, ctx.Err())
	assert.False(t, st.ShouldStopService())

	st.StopService()
	assert.True(t, st.ShouldStopService())

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not canceled by StopService")
	}
}
