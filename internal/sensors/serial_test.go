// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relabs-tech/sinefit/internal/imu"
)

// sentence appends the NMEA checksum to body (without '$').
func sentence(body string) string {
	var cs byte
	for i := 0; i < len(body); i++ {
		cs ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X", body, cs)
}

func TestParseXYZ(t *testing.T) {
	r, ok, err := ParseXYZ(sentence("ACXYZ,0.125,-0.998,1.5") + "\r\n")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, imu.Reading{Source: SourceSerial, X: 0.125, Y: -0.998, Z: 1.5}, r)
}

func TestParseXYZIgnoresOtherLines(t *testing.T) {
	_, ok, err := ParseXYZ("boot: firmware 1.2")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = ParseXYZ("")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = ParseXYZ(sentence("GPGLL,3723.2475,N,12158.3416,W,161229.487,A,A"))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestParseXYZRejectsBadChecksumAndFields(t *testing.T) {
	_, _, err := ParseXYZ("$ACXYZ,0.1,0.2,0.3*00")
	assert.Error(t, err)

	_, _, err = ParseXYZ(sentence("ACXYZ,0.1,abc,0.3"))
	assert.Error(t, err)
}

func TestSerialSourceHandsOutEachReadingOnce(t *testing.T) {
	pr, pw := io.Pipe()
	src := newSerialSource(pr, zap.NewNop().Sugar())

	_, err := src.Read()
	assert.ErrorIs(t, err, imu.ErrIO)

	_, err = io.WriteString(pw, "garbage\n"+sentence("ACXYZ,1,2,3")+"\r\n")
	require.NoError(t, err)

	var got imu.Reading
	require.Eventually(t, func() bool {
		r, err := src.Read()
		if err != nil {
			return false
		}
		got = r
		return true
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, imu.Reading{Source: SourceSerial, X: 1, Y: 2, Z: 3}, got)

	// nothing new
	_, err = src.Read()
	assert.ErrorIs(t, err, imu.ErrIO)

	require.NoError(t, pw.Close())
	require.NoError(t, src.Close())

	_, err = src.Read()
	assert.ErrorIs(t, err, imu.ErrIO)
}
