package netsight

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"
	"unicode/utf8"

	"firestige.xyz/pcapbench/internal/core"
)

// DefaultTimeout bounds a single tool invocation.
const DefaultTimeout = 5 * time.Minute

const stderrExcerpt = 512

// Tool runs the NetSight compressor binary as a subprocess:
// "<Path> <hex text file>".
type Tool struct {
	Path    string
	Timeout time.Duration // zero means DefaultTimeout
}

var _ ExternalCodec = (*Tool)(nil)

// NewTool returns a Tool for the binary at path.
func NewTool(path string, timeout time.Duration) *Tool {
	return &Tool{Path: path, Timeout: timeout}
}

// Encode writes payloads as hex text, one packet per line.
func (t *Tool) Encode(w io.Writer, payloads [][]byte) error {
	return EncodeHexText(w, payloads)
}

// Invoke runs the tool on path and returns its standard output.
func (t *Tool) Invoke(ctx context.Context, path string) (RawReport, error) {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.Path, path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %s timed out after %s", core.ErrSubprocessFailed, t.Path, timeout)
		}
		return "", fmt.Errorf("%w: %s: %v%s", core.ErrSubprocessFailed, t.Path, err, excerpt(stderr.Bytes()))
	}
	if !utf8.Valid(stdout.Bytes()) {
		return "", fmt.Errorf("%w: %s: output is not valid UTF-8", core.ErrSubprocessFailed, t.Path)
	}

	slog.Debug("external codec finished", "tool", t.Path, "input", path, "elapsed", elapsed)
	return RawReport(stdout.String()), nil
}

// ParseReport parses the tool's fixed "<label>: <value>" report.
func (t *Tool) ParseReport(raw RawReport) (Report, error) {
	return ParseReport(raw)
}

func excerpt(stderr []byte) string {
	stderr = bytes.TrimSpace(stderr)
	if len(stderr) == 0 {
		return ""
	}
	if len(stderr) > stderrExcerpt {
		stderr = stderr[:stderrExcerpt]
	}
	return ": " + string(stderr)
}
