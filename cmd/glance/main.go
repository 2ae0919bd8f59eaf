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

//go:build linux || darwin

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/GlanceProject/glance-core/internal/telemetry"
	"github.com/GlanceProject/glance-core/pkg/api/client"
	"github.com/GlanceProject/glance-core/pkg/cli"
	"github.com/GlanceProject/glance-core/pkg/config"
	"github.com/GlanceProject/glance-core/pkg/service"
	"github.com/GlanceProject/glance-core/pkg/service/daemon"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags()

	serviceFlag := flag.String(
		"service",
		"",
		"manage the background service (start|stop|restart|status)",
	)

	flags.Pre()

	if os.Geteuid() == 0 {
		return errors.New("glance cannot be run as root")
	}

	// The detached service process logs only to file, everything else
	// also logs to the terminal.
	var logWriters []io.Writer
	if *serviceFlag != "exec" {
		logWriters = []io.Writer{os.Stderr}
	}

	cfg := cli.Setup(
		config.BaseDefaults,
		logWriters,
	)
	defer telemetry.Close()

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	flags.Post(cfg)

	svc, err := daemon.NewService(daemon.ServiceArgs{
		Cfg: cfg,
		Entry: func() (func() error, <-chan struct{}, error) {
			return service.Start(cfg)
		},
	})
	if err != nil {
		return fmt.Errorf("error creating service: %w", err)
	}

	err = svc.ServiceHandler(serviceFlag)
	if err != nil {
		return err
	}

	// No action flags given: run the service in the foreground.
	if client.IsServiceRunning(cfg) {
		_, _ = fmt.Printf("Glance service is already running on port %d\n", cfg.APIPort())
		return nil
	}

	stopSvc, done, err := service.Start(cfg)
	if err != nil {
		log.Error().Msgf("error starting service: %s", err)
		return fmt.Errorf("error starting service: %w", err)
	}

	defer func() {
		if stopErr := stopSvc(); stopErr != nil {
			log.Error().Msgf("error stopping service: %s", stopErr)
		}
	}()

	sigs := make(chan os.Signal, 1)
	defer close(sigs)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigs:
	case <-done:
	}

	return nil
}
