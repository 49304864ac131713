// Package testutil holds helpers shared by provider tests.
package testutil

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/dnaeon/go-vcr.v2/cassette"
	"gopkg.in/dnaeon/go-vcr.v2/recorder"
)

// Recording reports whether cassettes are being re-recorded (VCR_MODE=record).
func Recording() bool {
	return os.Getenv("VCR_MODE") == "record"
}

// APIKey returns the real key from envVar when recording and a placeholder
// otherwise. Recording without a key skips the test.
func APIKey(t *testing.T, envVar string) string {
	t.Helper()

	key := os.Getenv(envVar)
	if Recording() && key == "" {
		t.Skipf("Skipping test: %s not set", envVar)
	}
	if key == "" {
		key = "test-key"
	}
	return key
}

// NewVCRRecorder creates a recorder backed by testdata/fixtures/<name>.yaml.
// Requests match on method and URL only; bodies and auth headers are ignored.
func NewVCRRecorder(t *testing.T, cassetteName string) (*recorder.Recorder, func()) {
	t.Helper()

	mode := recorder.ModeReplaying
	if Recording() {
		mode = recorder.ModeRecording
	}

	cassettePath := filepath.Join("testdata", "fixtures", cassetteName)

	r, err := recorder.NewAsMode(cassettePath, mode, nil)
	if err != nil {
		t.Fatalf("Failed to create VCR recorder: %v", err)
	}

	r.SetMatcher(func(r *http.Request, i cassette.Request) bool {
		return r.Method == i.Method && r.URL.String() == i.URL
	})

	// Keys must never reach a cassette.
	r.AddFilter(func(i *cassette.Interaction) error {
		for _, h := range []string{"Authorization", "X-Api-Key", "X-Goog-Api-Key"} {
			delete(i.Request.Headers, h)
		}
		return nil
	})

	cleanup := func() {
		if err := r.Stop(); err != nil {
			t.Errorf("Failed to stop VCR recorder: %v", err)
		}
	}

	return r, cleanup
}

// VCRHTTPClient returns an HTTP client that routes through the recorder.
func VCRHTTPClient(r *recorder.Recorder) *http.Client {
	return &http.Client{
		Transport: r,
	}
}
