package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// captureOutput redirects logger output to a buffer and returns a
// cleanup restoring the original writer.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	original := output
	output = buf
	mu.Unlock()
	reconfigure()

	return buf, func() {
		mu.Lock()
		output = original
		mu.Unlock()
		reconfigure()
	}
}

func TestLevelFiltering(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("WARN")
	defer SetLevel("INFO")

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

func TestSetFormat_JSON(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetFormat("json")
	defer SetFormat("text")

	Info("structured", "resource", "/cal")

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "{"), "json output: %s", out)
	assert.Contains(t, out, `"resource":"/cal"`)
}

func TestInvalidLevelIgnored(t *testing.T) {
	SetLevel("INFO")
	SetLevel("LOUD")

	buf, cleanup := captureOutput()
	defer cleanup()

	Info("still info")
	assert.Contains(t, buf.String(), "still info")
}

func TestContextFields(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	ctx := WithContext(context.Background(), &LogContext{
		RequestID: "req-1",
		Method:    "PROPFIND",
		Resource:  "/cal",
		Principal: "href:/principals/users/alice",
	})
	InfoCtx(ctx, "handled")

	out := buf.String()
	assert.Contains(t, out, "req-1")
	assert.Contains(t, out, "PROPFIND")
	assert.Contains(t, out, "/cal")
	assert.Contains(t, out, "alice")

	// A context without log fields logs the bare record.
	buf.Reset()
	InfoCtx(context.Background(), "bare")
	assert.Contains(t, buf.String(), "bare")
}
