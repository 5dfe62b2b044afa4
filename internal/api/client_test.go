package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"proctord/internal/activity"
	"proctord/internal/logging"
)

func TestReportActivity(t *testing.T) {
	var gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, logging.Discard())
	ev := activity.New(activity.TypeVisibilityChange, time.UnixMilli(1700000000000), map[string]any{"hidden": true})

	require.NoError(t, c.ReportActivity(context.Background(), "42", ev))
	require.Equal(t, "/api/sessions/42/activity", gotPath)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	require.Equal(t, "visibility_change", payload["type"])
	require.EqualValues(t, 1700000000000, payload["timestamp"])
	details, ok := payload["details"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, true, details["hidden"])
}

func TestReportActivityServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, logging.Discard())
	ev := activity.New(activity.TypeCopy, time.Now(), nil)

	// The error is returned for logging; it never reaches the
	// candidate because the monitor swallows it.
	err := c.ReportActivity(context.Background(), "42", ev)
	require.Error(t, err)
}

func TestRegisterDevice(t *testing.T) {
	var gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, logging.Discard())
	require.NoError(t, c.RegisterDevice(context.Background(), "sess-9", "abc123"))
	require.Equal(t, "/api/sessions/sess-9/register-device", gotPath)
	require.JSONEq(t, `{"fingerprint":"abc123"}`, string(gotBody))
}

func TestCompleteInterview(t *testing.T) {
	var gotPath string
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, logging.Discard())
	require.NoError(t, c.CompleteInterview(context.Background(), "interview-7"))
	require.Equal(t, "/api/interviews/interview-7/complete", gotPath)
	require.Equal(t, 1, calls)
}

func TestCompleteInterviewNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	c := NewClient(srv.URL, time.Second, logging.Discard())
	require.Error(t, c.CompleteInterview(context.Background(), "interview-7"))
}

func TestActivityPayloadSchema(t *testing.T) {
	valid := `{"type":"copy","timestamp":1700000000000,"details":{"text":"x"}}`
	require.NoError(t, validateActivityPayload([]byte(valid)))

	cases := map[string]string{
		"unknown type":       `{"type":"mouse_move","timestamp":1}`,
		"missing timestamp":  `{"type":"copy"}`,
		"negative timestamp": `{"type":"copy","timestamp":-5}`,
		"extra field":        `{"type":"copy","timestamp":1,"severity":3}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, validateActivityPayload([]byte(payload)))
		})
	}
}
