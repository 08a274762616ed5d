// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
	"go.uber.org/zap"

	"github.com/relabs-tech/sinefit/internal/imu"
)

// TypeXYZ is the sentence type of the accelerometer stream, e.g.
//
//	$ACXYZ,0.012,-0.998,0.031*4F
//
// with X, Y, Z in g.
const TypeXYZ = "XYZ"

// XYZ is one parsed accelerometer sentence.
type XYZ struct {
	nmea.BaseSentence
	X float64
	Y float64
	Z float64
}

var sentenceParser = nmea.SentenceParser{
	CustomParsers: map[string]nmea.ParserFunc{
		TypeXYZ: func(s nmea.BaseSentence) (nmea.Sentence, error) {
			p := nmea.NewParser(s)
			return XYZ{
				BaseSentence: s,
				X:            p.Float64(0, "x"),
				Y:            p.Float64(1, "y"),
				Z:            p.Float64(2, "z"),
			}, p.Err()
		},
	},
}

// ParseXYZ parses one line of the stream. Sentences of other types are
// reported with ok == false and no error.
func ParseXYZ(line string) (imu.Reading, bool, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return imu.Reading{}, false, nil
	}
	sentence, err := sentenceParser.Parse(line)
	if err != nil {
		return imu.Reading{}, false, err
	}
	m, ok := sentence.(XYZ)
	if !ok {
		return imu.Reading{}, false, nil
	}
	return imu.Reading{Source: SourceSerial, X: m.X, Y: m.Y, Z: m.Z}, true, nil
}

var errNoFreshSentence = errors.New("no new sentence since last read")

// serialSource reads sentences in the background and hands out the latest
// one. A reading is returned at most once; a Read with nothing new fails
// with imu.ErrIO so the sampler never records a duplicate.
type serialSource struct {
	port io.ReadCloser
	log  *zap.SugaredLogger

	mu      sync.Mutex
	latest  imu.Reading
	fresh   bool
	readErr error

	done chan struct{}
}

// OpenSerial opens the serial port and starts the line reader.
func OpenSerial(portName string, baud int, log *zap.SugaredLogger) (imu.Source, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w: %w", portName, imu.ErrConnect, err)
	}
	log.Infof("serial: port opened on %s at %d baud", portName, baud)
	return newSerialSource(port, log), nil
}

func newSerialSource(port io.ReadCloser, log *zap.SugaredLogger) *serialSource {
	s := &serialSource{
		port: port,
		log:  log,
		done: make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *serialSource) readLoop() {
	defer close(s.done)

	reader := bufio.NewReader(s.port)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			s.mu.Lock()
			s.readErr = err
			s.mu.Unlock()
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				s.log.Warnf("serial: read error: %v", err)
			}
			return
		}

		r, ok, err := ParseXYZ(line)
		if err != nil {
			// partial or corrupted sentences are expected on a noisy line
			s.log.Debugf("serial: parse error: %v (line: %q)", err, strings.TrimSpace(line))
			continue
		}
		if !ok {
			continue
		}

		s.mu.Lock()
		s.latest = r
		s.fresh = true
		s.mu.Unlock()
	}
}

// Read returns the newest sentence not yet handed out.
func (s *serialSource) Read() (imu.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fresh {
		s.fresh = false
		return s.latest, nil
	}
	if s.readErr != nil {
		return imu.Reading{}, fmt.Errorf("serial: %w: %w", imu.ErrIO, s.readErr)
	}
	return imu.Reading{}, fmt.Errorf("serial: %w: %w", imu.ErrIO, errNoFreshSentence)
}

// Close closes the port and waits for the reader to stop.
func (s *serialSource) Close() error {
	err := s.port.Close()
	<-s.done
	return err
}
