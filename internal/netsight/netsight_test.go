package netsight

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pcapbench/internal/core"
)

const sampleReport = "netsight_gzip compression rate: 71.25%\n" +
	"netsight_gzip time consumption: 1532 μs\n" +
	"netsight_zstd compression rate: 80.5%\n" +
	"netsight_zstd time consumption: 2210 μs\n"

// writeScript creates an executable shell script and returns its path.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "ns_compress")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestEncodeHexString(t *testing.T) {
	got := EncodeHexString([][]byte{make([]byte, 14)})
	assert.Equal(t, strings.Repeat("00", 14)+"\n", got)

	got = EncodeHexString([][]byte{{0xde, 0xad, 0xBE, 0xEF}, {}, {0x0a}})
	assert.Equal(t, "deadbeef\n\n0a\n", got)

	assert.Empty(t, EncodeHexString(nil))
}

func TestHexTextRoundTrip(t *testing.T) {
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	payloads := [][]byte{
		{0x00},
		{0xff},
		{0x00, 0xff, 0x00, 0xff},
		{},
		all,
		bytes.Repeat([]byte{0x0a}, 70000), // newline bytes and a long line
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeHexText(&buf, payloads))
	assert.Equal(t, len(payloads), strings.Count(buf.String(), "\n"))
	assert.Equal(t, strings.ToLower(buf.String()), buf.String())

	back, err := DecodeHexText(&buf)
	require.NoError(t, err)
	require.Len(t, back, len(payloads))
	for i := range payloads {
		assert.Equal(t, len(payloads[i]), len(back[i]), "payload %d", i)
		assert.True(t, bytes.Equal(payloads[i], back[i]), "payload %d", i)
	}
}

func TestDecodeHexTextErrors(t *testing.T) {
	_, err := DecodeHexText(strings.NewReader("00ff"))
	assert.ErrorContains(t, err, "missing trailing newline")

	_, err = DecodeHexText(strings.NewReader("00\nzz\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = DecodeHexText(strings.NewReader("abc\n"))
	assert.Error(t, err)
}

func TestParseReport(t *testing.T) {
	rep, err := ParseReport(RawReport(sampleReport))
	require.NoError(t, err)
	require.Len(t, rep.Lines, 4)
	assert.Equal(t, Line{Number: 1, Label: LabelGzipRate, Value: "71.25%"}, rep.Lines[0])

	v, ok := rep.Value(LabelZstdTime)
	assert.True(t, ok)
	assert.Equal(t, "2210 μs", v)

	rate, err := rep.Metric(LabelGzipRate)
	require.NoError(t, err)
	assert.InDelta(t, 71.25, rate, 1e-9)

	results, err := rep.Results()
	require.NoError(t, err)
	assert.Equal(t, core.MethodResult{Method: core.MethodNetSightGzip, RatioPercent: 71.25, ElapsedMicros: 1532}, results[core.MethodNetSightGzip])
	assert.Equal(t, core.MethodResult{Method: core.MethodNetSightZstd, RatioPercent: 80.5, ElapsedMicros: 2210}, results[core.MethodNetSightZstd])
}

func TestParseReportTrailingBlankLine(t *testing.T) {
	rep, err := ParseReport(RawReport(sampleReport + "\n"))
	require.NoError(t, err)
	assert.Len(t, rep.Lines, 4)
}

func TestParseReportNegativeRatio(t *testing.T) {
	raw := strings.Replace(sampleReport, "71.25%", "-12.5%", 1)
	rep, err := ParseReport(RawReport(raw))
	require.NoError(t, err)
	rate, err := rep.Metric(LabelGzipRate)
	require.NoError(t, err)
	assert.InDelta(t, -12.5, rate, 1e-9)
}

func TestParseReportMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"only newline", "\n"},
		{"no trailing newline", strings.TrimSuffix(sampleReport, "\n")},
		{"no colon", "netsight compression rate 71%\n"},
		{"empty label", ": 71%\n"},
		{"empty value", "netsight_gzip compression rate:\n"},
		{"blank line inside", "a: 1\n\nb: 2\n"},
		{"duplicate label", "a: 1\na: 2\n"},
		{"error text", "Error opening file\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReport(RawReport(tt.raw))
			assert.ErrorIs(t, err, core.ErrMalformedReport)
		})
	}
}

func TestReportResultsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing zstd", "netsight_gzip compression rate: 1%\nnetsight_gzip time consumption: 2 μs\n"},
		{"not a number", strings.Replace(sampleReport, "80.5%", "fast%", 1)},
		{"nan", strings.Replace(sampleReport, "80.5%", "nan%", 1)},
		{"renamed label", strings.Replace(sampleReport, "netsight_zstd time", "netsight_zstd wall", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := ParseReport(RawReport(tt.raw))
			require.NoError(t, err)
			_, err = rep.Results()
			assert.ErrorIs(t, err, core.ErrMalformedReport)
		})
	}
}

func TestToolInvoke(t *testing.T) {
	tool := NewTool(writeScript(t, fmt.Sprintf("test -f \"$1\" || exit 9\nprintf '%%s' '%s'\n", sampleReport)), time.Minute)

	input := filepath.Join(t.TempDir(), "in.ns")
	require.NoError(t, os.WriteFile(input, []byte("00\n"), 0o644))

	raw, err := tool.Invoke(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, RawReport(sampleReport), raw)

	rep, err := tool.ParseReport(raw)
	require.NoError(t, err)
	assert.Len(t, rep.Lines, 4)
}

func TestToolInvokeFailures(t *testing.T) {
	input := filepath.Join(t.TempDir(), "in.ns")
	require.NoError(t, os.WriteFile(input, []byte("00\n"), 0o644))

	t.Run("missing binary", func(t *testing.T) {
		tool := NewTool(filepath.Join(t.TempDir(), "does-not-exist"), time.Minute)
		_, err := tool.Invoke(context.Background(), input)
		assert.ErrorIs(t, err, core.ErrSubprocessFailed)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		tool := NewTool(writeScript(t, "echo 'Error opening file' >&2\nexit 3\n"), time.Minute)
		_, err := tool.Invoke(context.Background(), input)
		require.ErrorIs(t, err, core.ErrSubprocessFailed)
		assert.Contains(t, err.Error(), "Error opening file")
	})

	t.Run("timeout", func(t *testing.T) {
		tool := NewTool(writeScript(t, "exec sleep 10\n"), 100*time.Millisecond)
		start := time.Now()
		_, err := tool.Invoke(context.Background(), input)
		require.ErrorIs(t, err, core.ErrSubprocessFailed)
		assert.Contains(t, err.Error(), "timed out")
		assert.Less(t, time.Since(start), 5*time.Second)
	})
}

func TestRunRemovesSideFile(t *testing.T) {
	dir := t.TempDir()
	seen := filepath.Join(dir, "seen.txt")
	script := fmt.Sprintf("cp \"$1\" '%s'\nprintf '%%s' '%s'\n", seen, sampleReport)
	tool := NewTool(writeScript(t, script), time.Minute)

	side := SidePath(filepath.Join(dir, "trace.pcap"))
	assert.Equal(t, filepath.Join(dir, "trace.pcap.ns"), side)

	rep, err := Run(context.Background(), tool, side, [][]byte{{0x00, 0x01}, {0xff}})
	require.NoError(t, err)
	assert.Len(t, rep.Lines, 4)

	assert.NoFileExists(t, side)
	data, err := os.ReadFile(seen)
	require.NoError(t, err)
	assert.Equal(t, "0001\nff\n", string(data))
}

func TestRunRemovesSideFileOnFailure(t *testing.T) {
	dir := t.TempDir()
	side := filepath.Join(dir, "bad.pcap.ns")

	tool := NewTool(writeScript(t, "exit 1\n"), time.Minute)
	_, err := Run(context.Background(), tool, side, [][]byte{{0x00}})
	assert.ErrorIs(t, err, core.ErrSubprocessFailed)
	assert.NoFileExists(t, side)

	tool = NewTool(writeScript(t, "echo garbage\n"), time.Minute)
	_, err = Run(context.Background(), tool, side, [][]byte{{0x00}})
	assert.ErrorIs(t, err, core.ErrMalformedReport)
	assert.NoFileExists(t, side)
}
