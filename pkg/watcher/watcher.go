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

// Package watcher is the filesystem producer. It watches the configured
// screenshot directories and turns file activity into reconciler events:
// a new screenshot becomes a processing-status event plus a
// library.detected notification for whichever OCR producer is listening,
// and a file that disappears from disk is removed from the library.
//
// The watcher never reads pixels and never runs OCR itself. It only
// reports that a file exists and is done being written.
package watcher

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/GlanceProject/glance-core/pkg/api/models"
	"github.com/GlanceProject/glance-core/pkg/api/notifications"
	"github.com/GlanceProject/glance-core/pkg/config"
	"github.com/GlanceProject/glance-core/pkg/files"
	"github.com/GlanceProject/glance-core/pkg/helpers/syncutil"
	"github.com/GlanceProject/glance-core/pkg/library"
	"github.com/GlanceProject/glance-core/pkg/service/reconciler"
	"github.com/GlanceProject/glance-core/pkg/service/state"
	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const (
	// debounceInterval is how long a path must be quiet before it is
	// checked. Screenshot tools fire several events per capture.
	debounceInterval = 750 * time.Millisecond

	// Screenshots are flushed in chunks by some capture tools, so a file
	// counts as ready only after two size probes agree on a non-zero size.
	stabilityProbes   = 12
	stabilityInterval = 200 * time.Millisecond

	// selfDeleteTTL is how long a path removed by the service itself stays
	// on the ignore list. The fsnotify remove event for our own delete
	// arrives well within this window.
	selfDeleteTTL = 5 * time.Second
)

type Watcher struct {
	cfg           *config.Instance
	st            *state.State
	rec           *reconciler.Reconciler
	fsw           *fsnotify.Watcher
	notifications <-chan models.Notification
	stopChan      chan struct{}
	selfDeleted   map[string]time.Time
	mu            syncutil.Mutex
	wg            sync.WaitGroup
	stopOnce      sync.Once
}

// New creates a watcher over the configured watch dirs. The notifications
// channel is a broker subscription; the watcher listens on it for
// library.removed so deletes requested through the API are not re-reported
// as external file activity.
func New(
	cfg *config.Instance,
	st *state.State,
	rec *reconciler.Reconciler,
	ns <-chan models.Notification,
) *Watcher {
	return &Watcher{
		cfg:           cfg,
		st:            st,
		rec:           rec,
		notifications: ns,
		stopChan:      make(chan struct{}),
		selfDeleted:   make(map[string]time.Time),
	}
}

// Start registers the watch dirs and launches the event loop and the
// startup catch-up scan. Dirs that cannot be created or watched are logged
// and skipped so one bad configured path does not take down the rest.
// Watching is recursive: subdirectories present at startup are registered
// here, ones created later are picked up by the event loop.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	w.fsw = fsw

	watched := 0
	for _, dir := range w.cfg.WatchDirs() {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("cannot create watch dir, skipping")
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("cannot watch dir, skipping")
			continue
		}
		w.watchSubdirs(dir)
		log.Info().Str("dir", dir).Msg("watching directory")
		watched++
	}
	if watched == 0 {
		log.Info().Msg("no watch dirs configured, filesystem producer idle")
	}

	w.wg.Add(2)
	go w.watchLoop()
	go w.trackSelfDeletes()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.CatchUp()
	}()

	return nil
}

// Stop shuts down the event loop and waits for in-flight checks to finish.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		if w.fsw != nil {
			if err := w.fsw.Close(); err != nil {
				log.Warn().Err(err).Msg("error closing fsnotify watcher")
			}
		}
		w.wg.Wait()
	})
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()

	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := make(map[string]bool)

	for {
		select {
		case <-w.stopChan:
			debounce.Stop()
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				if handled, files := w.maybeWatchNewDir(event.Name); handled {
					for _, f := range files {
						pending[f] = true
					}
					if len(files) > 0 {
						debounce.Reset(debounceInterval)
					}
					continue
				}
			}
			if !w.relevant(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			pending[event.Name] = true
			debounce.Reset(debounceInterval)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("fsnotify error")

		case <-debounce.C:
			// Stability waits can take seconds, keep the event loop free.
			batch := pending
			pending = make(map[string]bool)
			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				for path := range batch {
					w.checkPath(path)
				}
			}()
		}
	}
}

// relevant filters to library file types and skips dotfiles, which capture
// tools use for in-progress writes.
func (w *Watcher) relevant(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return w.cfg.IsLibraryExtension(filepath.Ext(path))
}

// watchSubdirs registers every subdirectory of root with fsnotify, which
// only watches a single level per registration. Hidden subtrees are left
// out entirely.
func (w *Watcher) watchSubdirs(root string) {
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() || path == root {
			return nil
		}
		if strings.HasPrefix(filepath.Base(path), ".") {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			log.Warn().Err(addErr).Str("dir", path).Msg("cannot watch subdir")
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("dir", root).Msg("subdir walk failed")
	}
}

// maybeWatchNewDir handles a create event that turned out to be a
// directory: the new subtree is registered and any library files already
// inside it (moved in wholesale, for example) are returned so the caller
// can queue them. Reports false when the path is not a directory.
func (w *Watcher) maybeWatchNewDir(path string) (handled bool, files []string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false, nil
	}
	if strings.HasPrefix(filepath.Base(path), ".") {
		return true, nil
	}
	if err := w.fsw.Add(path); err != nil {
		log.Warn().Err(err).Str("dir", path).Msg("cannot watch new subdir")
		return true, nil
	}
	log.Debug().Str("dir", path).Msg("watching new subdirectory")

	var mu sync.Mutex
	conf := fastwalk.Config{Follow: false}
	walkErr := fastwalk.Walk(&conf, path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p == path {
				return nil
			}
			if strings.HasPrefix(filepath.Base(p), ".") {
				return filepath.SkipDir
			}
			if addErr := w.fsw.Add(p); addErr != nil {
				log.Warn().Err(addErr).Str("dir", p).Msg("cannot watch new subdir")
			}
			return nil
		}
		if w.relevant(p) {
			mu.Lock()
			files = append(files, p)
			mu.Unlock()
		}
		return nil
	})
	if walkErr != nil {
		log.Warn().Err(walkErr).Str("dir", path).Msg("new subdir walk failed")
	}
	return true, files
}

// checkPath decides, after the debounce window, what a burst of events for
// one path amounted to: a file that exists and is stable is reported as
// detected, a file that is gone was deleted or renamed away.
func (w *Watcher) checkPath(path string) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			w.handleGone(path)
		}
		return
	}
	if info.IsDir() {
		return
	}
	if w.isSelfDeleted(path) {
		return
	}
	if w.isKnown(path) {
		return
	}
	if !w.waitStable(path, info.Size()) {
		log.Warn().Str("path", path).Msg("file never stabilized, skipping")
		return
	}
	w.reportDetected(path, fileCreatedAt(path))
}

// handleGone removes a vanished file from the library, unless the service
// deleted it itself a moment ago.
func (w *Watcher) handleGone(path string) {
	if w.isSelfDeleted(path) {
		log.Debug().Str("path", path).Msg("ignoring fsnotify event for own delete")
		return
	}
	log.Debug().Str("path", path).Msg("watched file gone")
	w.rec.RemoveMissing([]string{path})
}

// reportDetected pushes a processing-status event into the reconciler and
// tells OCR producers about the new file.
func (w *Watcher) reportDetected(path string, createdAt time.Time) {
	log.Info().Str("path", path).Msg("new screenshot detected")
	err := w.rec.Enqueue(reconciler.Event{Ocr: &library.OcrEvent{
		Status:    library.StatusProcessing,
		Path:      path,
		CreatedAt: createdAt,
	}})
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to enqueue detected file")
		return
	}
	notifications.LibraryDetected(w.st.Notifications, path)
}

// waitStable polls the file size until two consecutive probes agree on a
// non-zero value. Returns false when the file keeps changing or vanishes
// mid-probe.
func (w *Watcher) waitStable(path string, size int64) bool {
	for range stabilityProbes {
		select {
		case <-w.stopChan:
			return false
		case <-time.After(stabilityInterval):
		}
		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		if info.Size() == size && size > 0 {
			return true
		}
		size = info.Size()
	}
	return false
}

// isKnown reports whether the library already has an entry for this path.
// Re-detecting known files would send producers into an OCR loop every
// time a file's metadata is touched.
func (w *Watcher) isKnown(path string) bool {
	key := library.PathKey(path)
	for _, entry := range w.st.Entries() {
		if library.PathKey(entry.Path) == key {
			return true
		}
	}
	return false
}

// trackSelfDeletes follows the notification stream and records every path
// in a library.removed payload. Those removals originate from this process
// (API deletes, missing-file pruning), so the matching fsnotify events
// carry no new information.
func (w *Watcher) trackSelfDeletes() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopChan:
			return
		case notif, ok := <-w.notifications:
			if !ok {
				return
			}
			if notif.Method != models.NotificationLibraryRemoved {
				continue
			}
			var params models.RemovedParams
			if err := json.Unmarshal(notif.Params, &params); err != nil {
				log.Warn().Err(err).Msg("malformed library.removed payload")
				continue
			}
			w.rememberSelfDeletes(params.Paths)
		}
	}
}

func (w *Watcher) rememberSelfDeletes(paths []string) {
	now := time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, path := range paths {
		w.selfDeleted[library.PathKey(path)] = now
	}
}

func (w *Watcher) isSelfDeleted(path string) bool {
	cutoff := time.Now().Add(-selfDeleteTTL)
	w.mu.Lock()
	defer w.mu.Unlock()
	for key, seen := range w.selfDeleted {
		if seen.Before(cutoff) {
			delete(w.selfDeleted, key)
		}
	}
	_, ok := w.selfDeleted[library.PathKey(path)]
	return ok
}

// fileCreatedAt is the capture timestamp for a screenshot. Capture tools
// write the file at capture time, so the filesystem birth time (or mtime
// where none is recorded) is it; producers report the same value, which
// keeps rename resolution working.
func fileCreatedAt(path string) time.Time {
	meta, err := files.GetMetadata(path)
	if err != nil {
		return time.Now()
	}
	return meta.CreatedAt
}
