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

// Package service boots and tears down the whole stack: database, state,
// reconciler, watcher, API server, discovery and publishers.
package service

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/GlanceProject/glance-core/pkg/api"
	"github.com/GlanceProject/glance-core/pkg/config"
	"github.com/GlanceProject/glance-core/pkg/database"
	"github.com/GlanceProject/glance-core/pkg/database/librarydb"
	"github.com/GlanceProject/glance-core/pkg/helpers"
	"github.com/GlanceProject/glance-core/pkg/service/broker"
	"github.com/GlanceProject/glance-core/pkg/service/discovery"
	"github.com/GlanceProject/glance-core/pkg/service/publishers"
	"github.com/GlanceProject/glance-core/pkg/service/reconciler"
	"github.com/GlanceProject/glance-core/pkg/service/state"
	"github.com/GlanceProject/glance-core/pkg/watcher"
	"github.com/jonboulle/clockwork"
	"github.com/mackerelio/go-osstat/uptime"
	"github.com/rs/zerolog/log"
)

func setupEnvironment() error {
	log.Info().Msg("creating service directories")
	dirs := []string{
		helpers.ConfigDir(),
		helpers.DataDir(),
		helpers.TempDir(),
	}
	for _, dir := range dirs {
		err := os.MkdirAll(dir, 0o750)
		if err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

func makeDatabase(ctx context.Context) (*database.Database, error) {
	db := &database.Database{
		Library: nil,
	}

	log.Debug().Msg("opening library database")
	libraryDB, err := librarydb.OpenLibraryDB(ctx)
	if err != nil {
		return db, fmt.Errorf("failed to open library database: %w", err)
	}

	log.Debug().Msg("running library database migrations")
	err = libraryDB.MigrateUp()
	if err != nil {
		return db, fmt.Errorf("error migrating librarydb: %w", err)
	}

	db.Library = libraryDB

	return db, nil
}

// startPublishers starts one MQTT publisher per enabled config entry, each
// on its own broker subscription. Publishers that fail to connect are
// skipped and their subscription released, so a dead broker config never
// backs up the notification stream.
func startPublishers(
	notifBroker *broker.Broker,
	cfg *config.Instance,
) []*publishers.MQTTPublisher {
	activePublishers := make([]*publishers.MQTTPublisher, 0)

	for _, mqttCfg := range cfg.GetMQTTPublishers() {
		// Skip if explicitly disabled (nil = enabled by default)
		if mqttCfg.Enabled != nil && !*mqttCfg.Enabled {
			continue
		}

		log.Info().Msgf("starting MQTT publisher: %s (topic: %s)", mqttCfg.Broker, mqttCfg.Topic)

		publisher := publishers.NewMQTTPublisher(mqttCfg.Broker, mqttCfg.Topic, mqttCfg.Filter)
		publisherNotifications, subID := notifBroker.Subscribe(100)
		if err := publisher.Start(publisherNotifications); err != nil {
			log.Error().Err(err).Msgf("failed to start MQTT publisher for %s", mqttCfg.Broker)
			notifBroker.Unsubscribe(subID)
			continue
		}

		activePublishers = append(activePublishers, publisher)
	}

	if len(activePublishers) > 0 {
		log.Info().Msgf("started %d MQTT publisher(s)", len(activePublishers))
	}

	return activePublishers
}

// Start brings up the full service and returns a stop function plus a done
// channel that closes once cleanup has finished. Stop may be called from any
// goroutine; it blocks until shutdown completes.
func Start(cfg *config.Instance) (stop func() error, done <-chan struct{}, err error) {
	log.Info().Msgf("version: %s", config.AppVersion)

	if systemUptime, uptimeErr := uptime.Get(); uptimeErr == nil {
		log.Info().Msgf("system uptime: %s", systemUptime.Round(time.Second))
	} else {
		log.Debug().Err(uptimeErr).Msg("could not read system uptime")
	}

	st, ns := state.NewState(cfg) // global state, notification queue (source)

	// Fan the single notification stream out to all consumers
	notifBroker := broker.NewBroker(st.GetContext(), ns)
	notifBroker.Start()

	err = setupEnvironment()
	if err != nil {
		log.Error().Err(err).Msg("error setting up environment")
		return nil, nil, err
	}

	log.Info().Msg("opening library database")
	db, err := makeDatabase(st.GetContext())
	if err != nil {
		log.Error().Err(err).Msg("error opening library database")
		return nil, nil, err
	}

	log.Info().Msg("loading library from store")
	rec := reconciler.New(cfg, st, db, clockwork.NewRealClock())
	if err = rec.LoadFromStore(); err != nil {
		log.Error().Err(err).Msg("error loading library from store")
		return nil, nil, err
	}
	rec.Start()

	log.Info().Msg("starting mDNS discovery service")
	discoveryService := discovery.New(cfg, runtime.GOOS)
	if discoveryErr := discoveryService.Start(); discoveryErr != nil {
		log.Error().Err(discoveryErr).Msg("mDNS discovery failed to start (continuing without discovery)")
	}

	log.Info().Msg("starting API service")
	apiNotifications, _ := notifBroker.Subscribe(100)
	go api.Start(cfg, st, db, rec, apiNotifications)

	log.Info().Msg("starting publishers")
	activePublishers := startPublishers(notifBroker, cfg)

	log.Info().Msg("starting filesystem watcher")
	watcherNotifications, _ := notifBroker.Subscribe(100)
	watch := watcher.New(cfg, st, rec, watcherNotifications)
	if watchErr := watch.Start(); watchErr != nil {
		log.Error().Err(watchErr).Msg("filesystem watcher failed to start (continuing without watching)")
	}

	log.Info().Msg("service fully initialized")

	doneCh := make(chan struct{})
	go func() {
		<-st.GetContext().Done()
		log.Info().Msg("service context cancelled, running cleanup")

		watch.Stop()
		discoveryService.Stop()
		for _, publisher := range activePublishers {
			publisher.Stop()
		}
		rec.Stop()
		notifBroker.Stop()
		if closeErr := db.Library.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing library database")
		}

		log.Info().Msg("service cleanup completed")
		close(doneCh)
	}()

	stop = func() error {
		st.StopService()
		<-doneCh
		return nil
	}
	done = doneCh
	return stop, done, nil
}
