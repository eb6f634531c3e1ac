package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/config"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/processing"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/server"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/session"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/storage"
)

type cli struct {
	t       *testing.T
	apiURL  string
	session string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("CAREPLAN_LOG_LEVEL", "error")
	t.Setenv("CAREPLAN_ARCHIVE_ENDPOINT", "")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	store := storage.NewMemoryStore()
	srv := server.New(config.StubConfig{}, store, processing.New(store, nil, 1, 0, zerolog.Nop()), zerolog.Nop())
	srv.Start(ctx)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &cli{t: t, apiURL: ts.URL, session: filepath.Join(t.TempDir(), "session.yaml")}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	a := &app{}
	defer a.close()
	root := newRootCommand(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--api-url", c.apiURL, "--session-file", c.session}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

var submitArgs = []string{
	"submit",
	"--first-name", "Jane", "--last-name", "Doe", "--dob", "1980-01-01", "--mrn", "123456",
	"--provider", "Dr. Smith", "--npi", "1234567890",
	"--medication", "Pyridostigmine", "--diagnosis", "G70.00",
	"--additional-diagnoses", "I10, K21.9",
}

func TestSubmitRefreshDownload(t *testing.T) {
	c := newCLI(t)

	out, err := c.run(submitArgs...)
	require.NoError(t, err)
	assert.Contains(t, out, "PENDING - Queued for processing")

	sess, err := session.Load(c.session)
	require.NoError(t, err)
	require.NotNil(t, sess.Order)
	orderID := sess.Order.OrderID
	require.NotEmpty(t, orderID)

	require.Eventually(t, func() bool {
		out, err := c.run("refresh")
		return err == nil && strings.Contains(out, "COMPLETED")
	}, 3*time.Second, 20*time.Millisecond)

	out, err = c.run("status", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"order_id": "`+orderID+`"`)

	dir := t.TempDir()
	out, err = c.run("download", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved ")
	matches, err := filepath.Glob(filepath.Join(dir, "careplan_123456_Pyridostigmine_*.txt"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Care Plan: Pyridostigmine")
}

func TestSubmitMissingFieldsSendsNothing(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("submit", "--first-name", "Jane")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "patient last name")

	_, statErr := os.Stat(c.session)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSubmitRejectedByServerKeepsFailedRecord(t *testing.T) {
	c := newCLI(t)
	args := append([]string(nil), submitArgs...)
	for i, a := range args {
		if a == "--npi" {
			args[i+1] = "123"
		}
	}
	out, err := c.run(args...)
	require.Error(t, err)
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "Request validation failed.")

	out, err = c.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "FAILED")
}

func TestSearchAndSelect(t *testing.T) {
	c := newCLI(t)
	_, err := c.run(submitArgs...)
	require.NoError(t, err)
	sess, err := session.Load(c.session)
	require.NoError(t, err)
	orderID := sess.Order.OrderID

	_, err = c.run("clear")
	require.NoError(t, err)
	out, err := c.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "No active order.")

	out, err = c.run("search", "doe")
	require.NoError(t, err)
	assert.Contains(t, out, orderID)
	assert.Contains(t, out, "1 order(s)")

	_, err = c.run("search", "  ")
	assert.EqualError(t, err, "please enter a search term")

	out, err = c.run("select", orderID)
	require.NoError(t, err)
	assert.Contains(t, out, "Jane Doe (MRN 123456)")

	sess, err = session.Load(c.session)
	require.NoError(t, err)
	assert.Equal(t, "doe", sess.LastQuery)
}

func TestRefreshWithoutActiveOrder(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("refresh")
	assert.EqualError(t, err, "no active order; submit or select one first")
}

func TestDownloadBeforeCompletion(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("download")
	assert.EqualError(t, err, "tracker: no completed care plan to export")
}
