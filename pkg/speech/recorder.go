package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/xhad/askpdf/internal/models"
)

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		slog.Error("exec failed",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
			"error", err,
			"stderr", truncate(errb.String(), 8<<10),
		)
	} else {
		slog.Debug("exec ok",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
			"stdout_bytes", out.Len(),
		)
	}

	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

type RecorderConfig struct {
	Command    string // SoX "rec" binary; if empty -> "rec"
	SampleRate int    // default 16000
}

// CommandRecorder captures one utterance from the default input device with
// SoX. Recording starts on sound and stops after a second of silence; the
// device is held only while the child process runs.
type CommandRecorder struct {
	config RecorderConfig
	runner Runner
}

func NewCommandRecorder(config RecorderConfig) *CommandRecorder {
	if config.Command == "" {
		config.Command = "rec"
	}
	if config.SampleRate == 0 {
		config.SampleRate = 16000
	}
	return &CommandRecorder{config: config, runner: execRunner{}}
}

// WithRunner swaps the command runner.
func (c *CommandRecorder) WithRunner(r Runner) *CommandRecorder {
	c.runner = r
	return c
}

func (c *CommandRecorder) args() []string {
	return []string{
		"-q",
		"-t", "wav",
		"-c", "1",
		"-b", "16",
		"-r", strconv.Itoa(c.config.SampleRate),
		"-",
		"silence", "1", "0.1", "1%", "1", "1.0", "1%",
	}
}

func (c *CommandRecorder) Record(ctx context.Context) (models.Audio, error) {
	out, errb, err := c.runner.Run(ctx, c.config.Command, c.args()...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return models.Audio{}, fmt.Errorf("%s exited with %d: %s", c.config.Command, exitErr.ExitCode(), strings.TrimSpace(string(errb)))
		}
		return models.Audio{}, fmt.Errorf("failed to run %s: %w", c.config.Command, err)
	}
	if len(out) == 0 {
		return models.Audio{}, fmt.Errorf("%s produced no audio", c.config.Command)
	}

	return models.Audio{
		Data:        out,
		ContentType: "audio/wav",
		SampleRate:  c.config.SampleRate,
	}, nil
}
