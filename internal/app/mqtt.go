// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/sinefit/internal/config"
	"github.com/relabs-tech/sinefit/internal/estimator"
)

// FitMessage is the payload on the fit topic.
type FitMessage struct {
	Time        time.Time `json:"time"`
	Cycle       uint64    `json:"cycle"`
	Amplitude   float64   `json:"amplitude"`
	Phase       float64   `json:"phase"`
	Offset      float64   `json:"offset"`
	Frequency   float64   `json:"frequency"`
	ResidualRMS float64   `json:"residual_rms"`
	Samples     int       `json:"samples"`
	Updated     bool      `json:"updated"`
	DominantHz  float64   `json:"dominant_hz,omitempty"`
}

// StatusMessage is the payload on the status topic.
type StatusMessage struct {
	Time    time.Time            `json:"time"`
	Kind    estimator.StatusKind `json:"kind"`
	Message string               `json:"message,omitempty"`
}

// WindowMessage is the payload on the window topic: the samples the
// published fit came from and the fitted curve at the same times.
type WindowMessage struct {
	Cycle   uint64    `json:"cycle"`
	Version uint64    `json:"version"`
	Times   []float64 `json:"times"`
	Values  []float64 `json:"values"`
	Curve   []float64 `json:"curve,omitempty"`
}

func newFitMessage(f estimator.Frame) FitMessage {
	m := FitMessage{
		Time:        f.Time,
		Cycle:       f.Cycle,
		Amplitude:   f.Fit.Amplitude,
		Phase:       f.Fit.Phase,
		Offset:      f.Fit.Offset,
		Frequency:   f.Fit.Frequency,
		ResidualRMS: f.Fit.ResidualRMS,
		Samples:     f.Fit.Samples,
		Updated:     f.Updated,
	}
	if f.HavePeak {
		m.DominantHz = f.Peak.Frequency
	}
	return m
}

// publisher is the part of mqtt.Client the presenter needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPresenter publishes every frame as retained messages.
type MQTTPresenter struct {
	client      publisher
	topicFit    string
	topicStatus string
	topicWindow string
	log         *zap.SugaredLogger
}

func newMQTTPresenter(client publisher, cfg *config.Config, log *zap.SugaredLogger) *MQTTPresenter {
	return &MQTTPresenter{
		client:      client,
		topicFit:    cfg.TopicFit,
		topicStatus: cfg.TopicStatus,
		topicWindow: cfg.TopicWindow,
		log:         log,
	}
}

// Present publishes status always, and fit and window once a fit exists.
func (p *MQTTPresenter) Present(_ context.Context, f estimator.Frame) error {
	if err := p.publish(p.topicStatus, StatusMessage{Time: f.Time, Kind: f.Status.Kind, Message: f.Status.Message}); err != nil {
		return err
	}
	if !f.HaveFit {
		return nil
	}
	if err := p.publish(p.topicFit, newFitMessage(f)); err != nil {
		return err
	}
	return p.publish(p.topicWindow, WindowMessage{
		Cycle:   f.Cycle,
		Version: f.Snapshot.Version,
		Times:   f.Snapshot.Times,
		Values:  f.Snapshot.Values,
		Curve:   f.Curve(),
	})
}

func (p *MQTTPresenter) publish(topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("mqtt: marshal %s: %w", topic, err)
	}
	if token := p.client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt: publish %s: %w", topic, token.Error())
	}
	return nil
}

func connectMQTT(broker, clientID string, log *zap.SugaredLogger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warnf("mqtt: connection lost: %v", err)
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", broker, token.Error())
	}
	log.Infof("mqtt: connected to %s as %s", broker, clientID)
	return client, nil
}
