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

package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/GlanceProject/glance-core/internal/telemetry"
	"github.com/GlanceProject/glance-core/pkg/api/client"
	"github.com/GlanceProject/glance-core/pkg/api/models"
	"github.com/GlanceProject/glance-core/pkg/config"
	"github.com/GlanceProject/glance-core/pkg/helpers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Flags struct {
	Search     *string
	API        *string
	Version    *bool
	Config     *bool
	Stats      *bool
	Reclassify *bool
}

// SetupFlags defines all common CLI flags.
func SetupFlags() *Flags {
	return &Flags{
		Search: flag.String(
			"search",
			"",
			"search the library and print matching entries",
		),
		API: flag.String(
			"api",
			"",
			"send method and params to API and print response",
		),
		Version: flag.Bool(
			"version",
			false,
			"print version and exit",
		),
		Config: flag.Bool(
			"config",
			false,
			"print the active config file path and exit",
		),
		Stats: flag.Bool(
			"stats",
			false,
			"print library statistics",
		),
		Reclassify: flag.Bool(
			"reclassify",
			false,
			"re-run classification over all library entries",
		),
	}
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// Pre runs flag parsing and actions any immediate flags that don't
// require environment setup. Add any custom flags before running this.
func (f *Flags) Pre() {
	flag.Parse()

	if *f.Version {
		_, _ = fmt.Printf("Glance v%s (%s)\n", config.AppVersion, runtime.GOOS)
		os.Exit(0)
	}
}

func searchFlag(cfg *config.Instance, query string) {
	data, err := json.Marshal(&models.SearchParams{
		Query: query,
	})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error encoding params: %v\n", err)
		os.Exit(1)
	}

	resp, err := client.LocalClient(context.Background(), cfg, models.MethodLibrarySearch, string(data))
	if err != nil {
		log.Error().Err(err).Msg("error searching library")
		_, _ = fmt.Fprintf(os.Stderr, "Error searching: %v\n", err)
		os.Exit(1)
	}

	_, _ = fmt.Println(resp)
	os.Exit(0)
}

// Post actions all remaining common flags that require the environment to be
// set up. Logging is allowed.
func (f *Flags) Post(cfg *config.Instance) {
	switch {
	case *f.Config:
		_, _ = fmt.Println(cfg.ConfigPath())
		os.Exit(0)
	case isFlagPassed("search"):
		if *f.Search == "" {
			_, _ = fmt.Fprint(os.Stderr, "Error: search flag requires a value\n")
			os.Exit(1)
		}
		searchFlag(cfg, *f.Search)
	case *f.Stats:
		resp, err := client.LocalClient(context.Background(), cfg, models.MethodLibraryStats, "")
		if err != nil {
			log.Error().Err(err).Msg("error getting library stats")
			_, _ = fmt.Fprintf(os.Stderr, "Error getting stats: %v\n", err)
			os.Exit(1)
		}

		_, _ = fmt.Println(resp)
		os.Exit(0)
	case *f.Reclassify:
		resp, err := client.LocalClient(context.Background(), cfg, models.MethodLibraryReclassify, "")
		if err != nil {
			log.Error().Err(err).Msg("error reclassifying library")
			_, _ = fmt.Fprintf(os.Stderr, "Error reclassifying: %v\n", err)
			os.Exit(1)
		}

		_, _ = fmt.Println(resp)
		os.Exit(0)
	case isFlagPassed("api"):
		if *f.API == "" {
			_, _ = fmt.Fprint(os.Stderr, "Error: api flag requires a value\n")
			os.Exit(1)
		}

		ps := strings.SplitN(*f.API, ":", 2)
		method := ps[0]
		params := ""
		if len(ps) > 1 {
			params = ps[1]
		}

		resp, err := client.LocalClient(context.Background(), cfg, method, params)
		if err != nil {
			log.Error().Err(err).Msg("error calling API")
			_, _ = fmt.Fprintf(os.Stderr, "Error calling API: %v\n", err)
			os.Exit(1)
		}

		_, _ = fmt.Println(resp)
		os.Exit(0)
	}
}

// Setup initializes the user config and logging. Returns a user config object.
//
//nolint:gocritic // config struct copied for immutability
func Setup(defaultConfig config.Values, writers []io.Writer) *config.Instance {
	err := helpers.InitLogging(writers)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.NewConfig(helpers.ConfigDir(), defaultConfig)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Initialize error reporting (opt-in)
	if err := telemetry.Init(
		cfg.ErrorReporting(),
		cfg.DeviceID(),
		config.AppVersion,
		runtime.GOOS,
	); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg
}
