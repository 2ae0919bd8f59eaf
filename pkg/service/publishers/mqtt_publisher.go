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

// Package publishers forwards library notifications to external sinks.
// Publishers subscribe to the broker like any other consumer, so a dead
// broker connection never backs up into the service.
package publishers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/GlanceProject/glance-core/pkg/api/models"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MQTTPublisher publishes library notifications to an MQTT broker.
type MQTTPublisher struct {
	client mqtt.Client
	stopCh chan struct{}
	broker string
	topic  string
	filter []string
}

// NewMQTTPublisher creates a publisher for the given broker and topic. An
// empty filter publishes every notification; a non-empty filter publishes
// only the listed methods.
func NewMQTTPublisher(broker, topic string, filter []string) *MQTTPublisher {
	return &MQTTPublisher{
		broker: broker,
		topic:  topic,
		filter: filter,
		stopCh: make(chan struct{}),
	}
}

// Start connects to the MQTT broker and begins forwarding from the
// notification channel.
func (p *MQTTPublisher) Start(notifications <-chan models.Notification) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", p.broker))
	opts.SetClientID("glance-publisher-" + uuid.New().String()[:8])
	// The initial connect fails fast so a dead broker config is skipped at
	// startup; drops after that reconnect automatically.
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)

	opts.OnConnect = func(_ mqtt.Client) {
		log.Info().Msgf("mqtt publisher: connected to %s", p.broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt publisher: connection lost")
	}

	p.client = mqtt.NewClient(opts)

	token := p.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Info().Msgf("mqtt publisher: connected to %s (topic: %s)", p.broker, p.topic)

	go p.publishNotifications(notifications)

	return nil
}

// Stop disconnects from the MQTT broker and stops publishing.
func (p *MQTTPublisher) Stop() {
	close(p.stopCh)

	if p.client != nil && p.client.IsConnected() {
		log.Debug().Msg("mqtt publisher: disconnecting")
		p.client.Disconnect(250)
	}
}

func (p *MQTTPublisher) publishNotifications(notifications <-chan models.Notification) {
	log.Debug().Msg("mqtt publisher: starting notification publisher goroutine")

	for {
		select {
		case <-p.stopCh:
			log.Debug().Msg("mqtt publisher: stopping notification publisher")
			return
		case notif, ok := <-notifications:
			if !ok {
				log.Debug().Msg("mqtt publisher: notification channel closed")
				return
			}

			if !p.matchesFilter(notif.Method) {
				continue
			}

			// direct params payload, no JSON-RPC wrapper
			payload, err := json.Marshal(notif.Params)
			if err != nil {
				log.Error().Err(err).Msgf("mqtt publisher: failed to marshal notification")
				continue
			}

			token := p.client.Publish(p.topic, 0, false, payload)
			if token.Wait() && token.Error() != nil {
				log.Error().Err(token.Error()).Msgf("mqtt publisher: failed to publish message")
				continue
			}

			log.Debug().Msgf("mqtt publisher: published %s notification", notif.Method)
		}
	}
}

// matchesFilter reports whether a notification method passes the configured
// filter. An empty filter passes everything.
func (p *MQTTPublisher) matchesFilter(method string) bool {
	if len(p.filter) == 0 {
		return true
	}
	for _, f := range p.filter {
		if f == method {
			return true
		}
	}
	return false
}
