package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"voxquery/internal/config"
	"voxquery/internal/domain"
)

func askWith(t *testing.T, backendURL string, audio string, dryRun bool) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VOXQUERY_BACKEND_URL", backendURL)

	loaded, err := config.Load("")
	require.NoError(t, err)

	prevCfg, prevLogger, prevAudio, prevDryRun := cfg, logger, askAudio, askDryRun
	cfg, logger, askAudio, askDryRun = loaded, zap.NewNop(), audio, dryRun
	t.Cleanup(func() {
		cfg, logger, askAudio, askDryRun = prevCfg, prevLogger, prevAudio, prevDryRun
	})
}

func TestRunAskPrintsQueryAndResult(t *testing.T) {
	server := queryBackend(t)
	askWith(t, server.URL, "", false)

	var out, status bytes.Buffer
	require.NoError(t, runAsk(context.Background(), &out, &status, "show red products"))
	assert.Equal(t, "SELECT * FROM products WHERE color = 'red'\n\nid,name\n1,apple\n", out.String())
}

func TestRunAskDryRunStopsAtFormalQuery(t *testing.T) {
	server := queryBackend(t)
	askWith(t, server.URL, "", true)

	var out, status bytes.Buffer
	require.NoError(t, runAsk(context.Background(), &out, &status, "show red products"))
	assert.Equal(t, "SELECT * FROM products WHERE color = 'red'\n", out.String())
}

func TestRunAskReportsMissingAudioFile(t *testing.T) {
	server := queryBackend(t)
	askWith(t, server.URL, filepath.Join(t.TempDir(), "missing.wav"), false)

	var out, status bytes.Buffer
	err := runAsk(context.Background(), &out, &status, "")
	assert.ErrorIs(t, err, domain.ErrTranscriptionFailed)
	assert.Empty(t, out.String())
}

func TestRunAskRejectsBlankQuestion(t *testing.T) {
	server := queryBackend(t)
	askWith(t, server.URL, "", false)

	var out, status bytes.Buffer
	assert.ErrorIs(t, runAsk(context.Background(), &out, &status, "   "), domain.ErrEmptyInput)
}
