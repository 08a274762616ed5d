// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/sinefit/internal/config"
)

// RunConsoleMQTT prints fits and status changes published by an estimator
// until ctx is cancelled.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, out io.Writer, log *zap.SugaredLogger) error {
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole, log)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	subs := map[string]mqtt.MessageHandler{
		cfg.TopicFit:    fitPrinter(out, log),
		cfg.TopicStatus: statusPrinter(out, log),
	}
	for topic, handler := range subs {
		token := client.Subscribe(topic, 0, handler)
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("console: subscribe %s: %w", topic, token.Error())
		}
		log.Infof("console: subscribed to %s", topic)
	}

	<-ctx.Done()
	log.Info("console: shutting down")
	return nil
}

func fitPrinter(out io.Writer, log *zap.SugaredLogger) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		var m FitMessage
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.Warnf("console: fit unmarshal error: %v", err)
			return
		}
		mark := " "
		if !m.Updated {
			mark = "="
		}
		fmt.Fprintf(out,
			"[FIT %s] #%d AMP=%7.4f  PHASE=%6.3f  OFFSET=%7.4f  f=%.2fHz  rms=%.4f  n=%d\n",
			mark, m.Cycle, m.Amplitude, m.Phase, m.Offset, m.Frequency, m.ResidualRMS, m.Samples,
		)
	}
}

// statusPrinter prints only when the status changes.
func statusPrinter(out io.Writer, log *zap.SugaredLogger) mqtt.MessageHandler {
	var last StatusMessage
	return func(_ mqtt.Client, msg mqtt.Message) {
		var m StatusMessage
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.Warnf("console: status unmarshal error: %v", err)
			return
		}
		if m.Kind == last.Kind && m.Message == last.Message {
			return
		}
		last = m
		if m.Message == "" {
			fmt.Fprintf(out, "[STATUS] %s\n", m.Kind)
			return
		}
		fmt.Fprintf(out, "[STATUS] %s: %s\n", m.Kind, m.Message)
	}
}
