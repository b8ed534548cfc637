package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/lifesync/pkg/utils/logging"
)

func TestLevelFiltering(t *testing.T) {
	testCases := []struct {
		level     string
		visible   []string
		invisible []string
	}{
		{"debug", []string{"debug msg", "info msg", "warn msg"}, nil},
		{"info", []string{"info msg", "warn msg"}, []string{"debug msg"}},
		{"WARNING", []string{"warn msg", "error msg"}, []string{"info msg"}},
		{"error", []string{"error msg"}, []string{"warn msg"}},
		{"bogus", []string{"info msg"}, []string{"debug msg"}},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := logging.New(tc.level, logging.FormatConsole, buf)

			logger.Debug("debug msg")
			logger.Info("info msg")
			logger.Warn("warn msg")
			logger.Error("error msg")

			for _, s := range tc.visible {
				gt.S(t, buf.String()).Contains(s)
			}
			for _, s := range tc.invisible {
				gt.S(t, buf.String()).NotContains(s)
			}
		})
	}
}

func TestJSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("info", logging.FormatJSON, buf)
	logger.Info("entry saved", "id", "e-1")

	var record map[string]any
	gt.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	gt.Equal(t, record["msg"], any("entry saved"))
	gt.Equal(t, record["id"], any("e-1"))
}

func TestParseLevel(t *testing.T) {
	gt.Equal(t, logging.ParseLevel("debug"), slog.LevelDebug)
	gt.Equal(t, logging.ParseLevel(""), slog.LevelInfo)
	gt.Equal(t, logging.ParseLevel("Warn"), slog.LevelWarn)
}

func TestContextLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("info", logging.FormatConsole, buf).With("component", "regenerate")

	ctx := logging.With(context.Background(), logger)
	gt.Equal(t, logging.From(ctx), logger)

	logging.From(ctx).Info("progress")
	gt.S(t, buf.String()).Contains("progress")
	gt.S(t, buf.String()).Contains("regenerate")
}

func TestFromFallsBackToDefault(t *testing.T) {
	original := logging.Default()
	defer logging.SetDefault(original)

	buf := &bytes.Buffer{}
	custom := logging.New("warn", logging.FormatConsole, buf)
	logging.SetDefault(custom)

	retrieved := logging.From(context.Background())
	gt.Equal(t, retrieved, custom)
	retrieved.Warn("from default")
	gt.S(t, buf.String()).Contains("from default")
}
