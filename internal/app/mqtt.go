// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/log"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/sensor_monitor/internal/config"
	"github.com/relabs-tech/sensor_monitor/internal/env"
	"github.com/relabs-tech/sensor_monitor/internal/store"
)

const publishTimeout = 2 * time.Second

// ReadingMessage is the MQTT payload for one accepted reading.
type ReadingMessage struct {
	SessionID string          `json:"session_id"`
	Reading   env.Reading     `json:"reading"`
	Averages  *store.Averages `json:"averages,omitempty"`
}

// publisher is the part of mqtt.Client the publisher needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher mirrors accepted readings to an MQTT topic.
type MQTTPublisher struct {
	client    publisher
	topic     string
	sessionID func() string
	logger    *log.Logger
}

// ConnectMQTT connects to the broker configured in cfg.
func ConnectMQTT(cfg *config.Config, logger *log.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", "err", err)
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	logger.Info("connected to mqtt broker", "broker", cfg.MQTTBroker)
	return client, nil
}

func NewMQTTPublisher(client publisher, topic string, sessionID func() string, logger *log.Logger) *MQTTPublisher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &MQTTPublisher{client: client, topic: topic, sessionID: sessionID, logger: logger}
}

// Publish is a session.DisplayFunc. It never blocks the read loop on the
// broker: delivery is confirmed in the background.
func (p *MQTTPublisher) Publish(r env.Reading, avg *store.Averages) {
	payload, err := json.Marshal(ReadingMessage{
		SessionID: p.sessionID(),
		Reading:   r,
		Averages:  avg,
	})
	if err != nil {
		p.logger.Error("mqtt payload marshal", "err", err)
		return
	}

	token := p.client.Publish(p.topic, 0, false, payload)
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			p.logger.Warn("mqtt publish timed out", "topic", p.topic)
			return
		}
		if err := token.Error(); err != nil {
			p.logger.Warn("mqtt publish error", "topic", p.topic, "err", err)
		}
	}()
}

// AttachMQTT connects to the broker and subscribes a publisher to the
// session. It returns a func that disconnects the client.
func AttachMQTT(a *App) (func(), error) {
	logger := a.Logger.WithPrefix("mqtt")
	client, err := ConnectMQTT(a.Config, logger)
	if err != nil {
		return nil, err
	}
	pub := NewMQTTPublisher(client, a.Config.MQTTTopic, a.Session.SessionID, logger)
	a.Session.OnReading(pub.Publish)
	return func() { client.Disconnect(250) }, nil
}
