package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
)

// captureExit swaps osExit for the duration of the test and returns the
// recorded exit code (-1 when never called).
func captureExit(t *testing.T) *int {
	t.Helper()
	code := -1
	prev := osExit
	osExit = func(c int) { code = c }
	t.Cleanup(func() { osExit = prev })
	return &code
}

func testContext(errOut *bytes.Buffer) *cli.Context {
	app := &cli.App{ErrWriter: errOut}
	return cli.NewContext(app, nil, nil)
}

func TestExitErrHandler_NilError(t *testing.T) {
	code := captureExit(t)
	exitErrHandler(nil, nil)
	if *code != -1 {
		t.Errorf("osExit called with %d for nil error", *code)
	}
}

func TestExitErrHandler_ExitCoder(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"usage error", cli.Exit("--url is required", 1), 1, "--url is required"},
		{"transport failure", cli.Exit("redis: dial refused", 2), 2, "redis: dial refused"},
		{"segmentation refused", cli.Exit("message needs 140 segments", 3), 3, "message needs 140 segments"},
		{"bare code", cli.Exit("", 2), 2, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := captureExit(t)
			var errOut bytes.Buffer

			exitErrHandler(testContext(&errOut), tt.err)

			if *code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", *code, tt.wantCode)
			}
			got := strings.TrimSpace(errOut.String())
			if got != tt.wantMsg {
				t.Errorf("stderr = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestExitErrHandler_WrappedExitCoder(t *testing.T) {
	code := captureExit(t)
	var errOut bytes.Buffer

	wrapped := errors.Join(errors.New("context"), cli.Exit("inner error", 3))
	exitErrHandler(testContext(&errOut), wrapped)

	if *code != 3 {
		t.Errorf("exit code = %d, want 3", *code)
	}
}

func TestExitErrHandler_RegularError(t *testing.T) {
	code := captureExit(t)
	var errOut bytes.Buffer

	exitErrHandler(testContext(&errOut), errors.New("regular error"))

	if *code != 1 {
		t.Errorf("exit code = %d, want 1", *code)
	}
	if !strings.Contains(errOut.String(), "Error: regular error") {
		t.Errorf("stderr = %q, want it to contain %q", errOut.String(), "Error: regular error")
	}
}

func TestNewApp_Commands(t *testing.T) {
	app := newApp()
	want := []string{"split", "join", "send", "listen", "inspect", "stats", "version"}
	for _, name := range want {
		if app.Command(name) == nil {
			t.Errorf("command %q not registered", name)
		}
	}
}
