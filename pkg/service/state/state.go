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
	"context"
	"sort"
	"time"

	"github.com/GlanceProject/glance-core/pkg/api/models"
	"github.com/GlanceProject/glance-core/pkg/api/notifications"
	"github.com/GlanceProject/glance-core/pkg/config"
	"github.com/GlanceProject/glance-core/pkg/helpers/syncutil"
	"github.com/GlanceProject/glance-core/pkg/library"
)

const (
	StatusIdle       = library.StatusIdle
	StatusProcessing = library.StatusProcessing
)

// State holds the runtime state of the Glance service: the canonical entry
// set, the user's selection, batch progress and the transient producer
// status. The reconciler is the only writer of the canonical set; everything
// else reads snapshots.
//
// LOCKING RULES: The mu mutex protects all mutable fields. To prevent deadlocks:
//   - Never send to channels while holding the lock (notifications)
//   - Pattern: lock → modify state → copy needed data → unlock → send notifications
//
// See SetBatch, SetProcessing, SetError for examples.
type State struct {
	ctx           context.Context
	cfg           *config.Instance
	ctxCancelFunc context.CancelFunc
	selection     map[string]string
	errorClear    *time.Timer
	Notifications chan<- models.Notification
	status        string
	statusPath    string
	lastError     string
	entries       []library.Entry
	lastQuery     library.Query
	batchProgress library.BatchProgress
	mu            syncutil.RWMutex
	stopService   bool
}

func NewState(cfg *config.Instance) (state *State, notificationCh <-chan models.Notification) {
	// Buffer size of 500 provides headroom for event bursts (catch-up scans,
	// batch ingestion) without dropping user-facing status notifications
	ns := make(chan models.Notification, 500)
	ctx, ctxCancelFunc := context.WithCancel(context.Background())
	return &State{
		cfg:           cfg,
		ctx:           ctx,
		ctxCancelFunc: ctxCancelFunc,
		selection:     make(map[string]string),
		Notifications: ns,
		status:        StatusIdle,
	}, ns
}

// SetEntries replaces the canonical snapshot and drops selection members
// whose paths no longer exist. No notification is sent here; the reconciler
// emits the specific indexed/removed notifications for what changed.
func (s *State) SetEntries(entries []library.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = entries

	keys := make(map[string]struct{}, len(entries))
	for i := range entries {
		keys[library.PathKey(entries[i].Path)] = struct{}{}
	}
	for key := range s.selection {
		if _, ok := keys[key]; !ok {
			delete(s.selection, key)
		}
	}
}

// Entries returns a copy of the canonical snapshot.
func (s *State) Entries() []library.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return library.CloneEntries(s.entries)
}

func (s *State) EntryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// SetQuery records the active query. Changing the query clears the
// selection, so a selection never refers to results the user can no longer
// see.
func (s *State) SetQuery(q library.Query) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q != s.lastQuery {
		s.selection = make(map[string]string)
	}
	s.lastQuery = q
}

func (s *State) LastQuery() library.Query {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastQuery
}

// ToggleSelect flips selection membership for a canonical path. Paths not in
// the canonical set are not selectable; returns the new selected status and
// whether the path was known.
func (s *State) ToggleSelect(path string) (selected, known bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := library.PathKey(path)
	canonical := ""
	for i := range s.entries {
		if library.PathKey(s.entries[i].Path) == key {
			canonical = s.entries[i].Path
			break
		}
	}
	if canonical == "" {
		return false, false
	}

	if _, ok := s.selection[key]; ok {
		delete(s.selection, key)
		return false, true
	}
	s.selection[key] = canonical
	return true, true
}

func (s *State) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = make(map[string]string)
}

// Selection returns the selected canonical paths in a stable order.
func (s *State) Selection() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.selection))
	for _, path := range s.selection {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// SetBatch stores producer batch progress verbatim and fans it out. The
// counters are advisory; nothing in the core gates on them.
func (s *State) SetBatch(progress library.BatchProgress) {
	s.mu.Lock()
	s.batchProgress = progress
	payload := models.BatchParams{
		Total:      progress.Total,
		Completed:  progress.Completed,
		Percent:    progress.Percent,
		EtaSeconds: progress.EtaSeconds,
		InProgress: progress.InProgress,
	}
	s.mu.Unlock()

	notifications.LibraryBatch(s.Notifications, payload)
}

func (s *State) Batch() library.BatchProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batchProgress
}

// SetProcessing marks a file as being worked on by a producer.
func (s *State) SetProcessing(path string) {
	s.mu.Lock()
	s.status = StatusProcessing
	s.statusPath = path
	payload := models.StatusParams{Status: s.status, Path: path, Error: s.lastError}
	s.mu.Unlock()

	notifications.LibraryStatus(s.Notifications, payload)
}

// SetIdle returns the transient status to idle.
func (s *State) SetIdle() {
	s.mu.Lock()
	s.status = StatusIdle
	s.statusPath = ""
	payload := models.StatusParams{Status: s.status, Error: s.lastError}
	s.mu.Unlock()

	notifications.LibraryStatus(s.Notifications, payload)
}

// SetError surfaces a producer error and schedules its auto-clear after the
// configured display window. The status drops back to idle; errors never
// halt the service.
func (s *State) SetError(message string) {
	s.mu.Lock()
	s.status = StatusIdle
	s.statusPath = ""
	s.lastError = message
	if s.errorClear != nil {
		s.errorClear.Stop()
	}
	s.errorClear = time.AfterFunc(s.cfg.ErrorDisplay(), s.clearError)
	payload := models.StatusParams{Status: s.status, Error: message}
	s.mu.Unlock()

	notifications.LibraryStatus(s.Notifications, payload)
}

func (s *State) clearError() {
	s.mu.Lock()
	if s.lastError == "" {
		s.mu.Unlock()
		return
	}
	s.lastError = ""
	s.errorClear = nil
	payload := models.StatusParams{Status: s.status, Path: s.statusPath}
	s.mu.Unlock()

	notifications.LibraryStatus(s.Notifications, payload)
}

// Status returns the transient status and the path it refers to, if any.
func (s *State) Status() (status, path string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.statusPath
}

func (s *State) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

func (s *State) StopService() {
	s.mu.Lock()
	s.stopService = true
	if s.errorClear != nil {
		s.errorClear.Stop()
		s.errorClear = nil
	}
	s.mu.Unlock()
	s.ctxCancelFunc()
}

func (s *State) ShouldStopService() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopService
}

func (s *State) GetContext() context.Context {
	return s.ctx
}
