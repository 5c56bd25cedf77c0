package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{" error ", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tc := range tests {
		got, err := ParseLevel(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
		} else {
			assert.NoError(t, err, tc.in)
		}
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestZapAdapter_FieldsAndCounters(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core))

	errorsBefore := TotalErrors.Load()
	warningsBefore := TotalWarnings.Load()

	log.WithFields(map[string]interface{}{"upload_id": 7}).Info("stored", map[string]interface{}{"rows": 3})
	log.WithError(errors.New("boom")).Error("failed", nil)
	log.Warn("slow", nil)

	require.Equal(t, 3, logs.Len())
	first := logs.All()[0].ContextMap()
	assert.EqualValues(t, 7, first["upload_id"])
	assert.EqualValues(t, 3, first["rows"])
	assert.Equal(t, "boom", logs.All()[1].ContextMap()["error"])

	assert.Equal(t, errorsBefore+1, TotalErrors.Load())
	assert.Equal(t, warningsBefore+1, TotalWarnings.Load())
}

func TestRecordHTTPStatus(t *testing.T) {
	before := Snapshot()

	RecordHTTPStatus(200)
	RecordHTTPStatus(404)
	RecordHTTPStatus(503)

	after := Snapshot()
	assert.Equal(t, before["http_4xx"]+1, after["http_4xx"])
	assert.Equal(t, before["http_5xx"]+1, after["http_5xx"])
}

func TestNewNoOpLogger(t *testing.T) {
	log := NewNoOpLogger()
	assert.NotPanics(t, func() {
		log.Debug("ignored", map[string]interface{}{"k": "v"})
		log.WithFields(nil).Info("ignored", nil)
	})
}
