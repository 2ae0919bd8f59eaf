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

// Package client implements a websocket JSON-RPC client for the local API
// service. It is used by the CLI flags and anything else that needs to talk
// to an already running instance.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/GlanceProject/glance-core/pkg/api/models"
	"github.com/GlanceProject/glance-core/pkg/config"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrRequestTimeout   = errors.New("request timed out")
	ErrInvalidParams    = errors.New("invalid params")
	ErrRequestCancelled = errors.New("request cancelled")
)

const APIPath = "/api/v0.1"

func localWebsocketURL(cfg *config.Instance) url.URL {
	return url.URL{
		Scheme: "ws",
		Host:   "localhost:" + strconv.Itoa(cfg.APIPort()),
		Path:   APIPath,
	}
}

// LocalClient sends a single method with params to the local running API
// service, waits for a response until timeout then disconnects.
func LocalClient(
	ctx context.Context,
	cfg *config.Instance,
	method string,
	params string,
) (string, error) {
	wsURL := localWebsocketURL(cfg)

	id, err := uuid.NewUUID()
	if err != nil {
		return "", fmt.Errorf("failed to generate request id: %w", err)
	}

	req := models.RequestObject{
		JSONRPC: "2.0",
		ID:      &id,
		Method:  method,
	}

	if len(params) == 0 {
		req.Params = nil
	} else if json.Valid([]byte(params)) {
		req.Params = []byte(params)
	} else {
		return "", ErrInvalidParams
	}

	c, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to dial websocket: %w", err)
	}
	defer func(c *websocket.Conn) {
		if closeErr := c.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing websocket")
		}
	}(c)

	done := make(chan struct{})
	var resp *models.ResponseObject

	go func() {
		defer close(done)
		for {
			_, message, readErr := c.ReadMessage()
			if readErr != nil {
				log.Error().Err(readErr).Msg("error reading message")
				return
			}

			var m models.ResponseObject
			if unmarshalErr := json.Unmarshal(message, &m); unmarshalErr != nil {
				continue
			}

			if m.JSONRPC != "2.0" {
				log.Error().Msg("invalid jsonrpc version")
				continue
			}

			if m.ID != id {
				continue
			}

			resp = &m
			return
		}
	}()

	if err := c.WriteJSON(req); err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	timer := time.NewTimer(config.APIRequestTimeout)
	select {
	case <-done:
	case <-timer.C:
		if closeErr := c.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing websocket")
		}
		return "", ErrRequestTimeout
	case <-ctx.Done():
		if closeErr := c.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing websocket")
		}
		return "", ErrRequestCancelled
	}

	if resp == nil {
		return "", ErrRequestTimeout
	}

	if resp.Error != nil {
		return "", errors.New(resp.Error.Message)
	}

	b, err := json.Marshal(resp.Result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}

	return string(b), nil
}

// WaitNotification connects to the local API service and blocks until a
// notification with the given method arrives, the timeout elapses or ctx is
// cancelled. It returns the params of the matched notification.
func WaitNotification(
	ctx context.Context,
	timeout time.Duration,
	cfg *config.Instance,
	method string,
) (string, error) {
	_, params, err := WaitNotifications(ctx, timeout, cfg, method)
	return params, err
}

// WaitNotifications connects to the local API service and blocks until a
// notification matching any of the given methods arrives, the timeout
// elapses or ctx is cancelled. It returns the method and params of the
// matched notification. A timeout of 0 uses the default API request timeout
// and a negative timeout waits until ctx is done.
func WaitNotifications(
	ctx context.Context,
	timeout time.Duration,
	cfg *config.Instance,
	methods ...string,
) (string, string, error) {
	wsURL := localWebsocketURL(cfg)

	wanted := make(map[string]struct{}, len(methods))
	for _, method := range methods {
		wanted[method] = struct{}{}
	}

	c, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to dial websocket: %w", err)
	}
	defer func(c *websocket.Conn) {
		if closeErr := c.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing websocket")
		}
	}(c)

	done := make(chan struct{})
	var resp *models.RequestObject

	go func() {
		defer close(done)
		for {
			_, message, readErr := c.ReadMessage()
			if readErr != nil {
				log.Error().Err(readErr).Msg("error reading message")
				return
			}

			var m models.RequestObject
			if unmarshalErr := json.Unmarshal(message, &m); unmarshalErr != nil {
				continue
			}

			if m.JSONRPC != "2.0" {
				log.Error().Msg("invalid jsonrpc version")
				continue
			}

			// requests carry an id, notifications never do
			if m.ID != nil {
				continue
			}

			if _, ok := wanted[m.Method]; !ok {
				continue
			}

			resp = &m
			return
		}
	}()

	var timerChan <-chan time.Time
	if timeout == 0 {
		timer := time.NewTimer(config.APIRequestTimeout)
		timerChan = timer.C
	} else if timeout > 0 {
		timer := time.NewTimer(timeout)
		timerChan = timer.C
	}
	// or else leave chan nil, which will never receive

	select {
	case <-done:
	case <-timerChan:
		if closeErr := c.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing websocket")
		}
		return "", "", ErrRequestTimeout
	case <-ctx.Done():
		if closeErr := c.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing websocket")
		}
		return "", "", ErrRequestCancelled
	}

	if resp == nil {
		return "", "", ErrRequestTimeout
	}

	params, err := json.Marshal(resp.Params)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal notification params: %w", err)
	}

	return resp.Method, string(params), nil
}

// IsServiceRunning reports whether a service instance is responding on the
// configured API port.
func IsServiceRunning(cfg *config.Instance) bool {
	_, err := LocalClient(context.Background(), cfg, models.MethodVersion, "")
	if err != nil {
		log.Debug().Err(err).Msg("error checking if service running")
		return false
	}
	return true
}

// WaitForAPI polls the local API until it responds or the timeout elapses.
func WaitForAPI(cfg *config.Instance, timeout, interval time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if IsServiceRunning(cfg) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(interval)
	}
}
