package netsight

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"firestige.xyz/pcapbench/internal/core"
)

// Labels printed by the NetSight tool, one rate and one time per variant.
const (
	LabelGzipRate = "netsight_gzip compression rate"
	LabelGzipTime = "netsight_gzip time consumption"
	LabelZstdRate = "netsight_zstd compression rate"
	LabelZstdTime = "netsight_zstd time consumption"
)

// RawReport is the tool's standard output, untouched.
type RawReport string

// Line is one "<label>: <value>" line of a report.
type Line struct {
	Number int
	Label  string
	Value  string
}

// Report is a parsed tool report. Lines keep the order the tool printed.
type Report struct {
	Lines []Line
}

// ParseReport splits raw into label/value lines. The text must end with a
// newline; one extra blank line at the very end is tolerated. Any other
// line that is not "<label>: <value>" fails the whole report.
func ParseReport(raw RawReport) (Report, error) {
	text := string(raw)
	if !strings.HasSuffix(text, "\n") {
		return Report{}, malformed(0, "report does not end with a newline")
	}
	lines := strings.Split(text, "\n")
	lines = lines[:len(lines)-1]
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	if len(lines) == 0 {
		return Report{}, malformed(0, "report is empty")
	}

	rep := Report{Lines: make([]Line, 0, len(lines))}
	seen := make(map[string]bool, len(lines))
	for i, l := range lines {
		num := i + 1
		label, value, ok := strings.Cut(l, ":")
		if !ok {
			return Report{}, malformed(num, "no ':' in %q", l)
		}
		label = strings.TrimSpace(label)
		if label == "" {
			return Report{}, malformed(num, "empty label in %q", l)
		}
		value = strings.TrimPrefix(value, " ")
		if value == "" {
			return Report{}, malformed(num, "empty value for %q", label)
		}
		if seen[label] {
			return Report{}, malformed(num, "duplicate label %q", label)
		}
		seen[label] = true
		rep.Lines = append(rep.Lines, Line{Number: num, Label: label, Value: value})
	}
	return rep, nil
}

// Value returns the raw value text for label.
func (r Report) Value(label string) (string, bool) {
	for _, l := range r.Lines {
		if l.Label == label {
			return l.Value, true
		}
	}
	return "", false
}

// Metric returns label's value as a number, with any "%" or "μs" unit
// removed.
func (r Report) Metric(label string) (float64, error) {
	for _, l := range r.Lines {
		if l.Label != label {
			continue
		}
		v, err := parseValue(l.Value)
		if err != nil {
			return 0, malformed(l.Number, "%s: %v", label, err)
		}
		return v, nil
	}
	return 0, malformed(0, "missing %q", label)
}

// Results maps the report onto the ns_gzip and ns_zstd methods. Every one
// of the four expected labels must be present.
func (r Report) Results() (map[core.Method]core.MethodResult, error) {
	variants := []struct {
		method     core.Method
		rate, time string
	}{
		{core.MethodNetSightGzip, LabelGzipRate, LabelGzipTime},
		{core.MethodNetSightZstd, LabelZstdRate, LabelZstdTime},
	}
	out := make(map[core.Method]core.MethodResult, len(variants))
	for _, s := range variants {
		rate, err := r.Metric(s.rate)
		if err != nil {
			return nil, err
		}
		elapsed, err := r.Metric(s.time)
		if err != nil {
			return nil, err
		}
		out[s.method] = core.MethodResult{Method: s.method, RatioPercent: rate, ElapsedMicros: elapsed}
	}
	return out, nil
}

var units = []string{"%", "μs", "us"}

func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	for _, u := range units {
		if strings.HasSuffix(s, u) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u))
			break
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

func malformed(line int, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if line > 0 {
		return fmt.Errorf("%w: line %d: %s", core.ErrMalformedReport, line, msg)
	}
	return fmt.Errorf("%w: %s", core.ErrMalformedReport, msg)
}
