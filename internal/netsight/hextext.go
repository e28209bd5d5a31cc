package netsight

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// EncodeHexText writes every payload as lowercase hex followed by '\n'.
// An empty payload becomes an empty line.
func EncodeHexText(w io.Writer, payloads [][]byte) error {
	bw := bufio.NewWriter(w)
	var line []byte
	for _, p := range payloads {
		line = hex.AppendEncode(line[:0], p)
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// EncodeHexString is EncodeHexText into a string.
func EncodeHexString(payloads [][]byte) string {
	var sb strings.Builder
	_ = EncodeHexText(&sb, payloads)
	return sb.String()
}

// DecodeHexText reverses EncodeHexText. Every line, including the last,
// must be newline-terminated.
func DecodeHexText(r io.Reader) ([][]byte, error) {
	br := bufio.NewReader(r)
	var payloads [][]byte
	for n := 1; ; n++ {
		line, err := br.ReadString('\n')
		if errors.Is(err, io.EOF) {
			if line != "" {
				return nil, fmt.Errorf("line %d: missing trailing newline", n)
			}
			return payloads, nil
		}
		if err != nil {
			return nil, err
		}
		p, err := hex.DecodeString(line[:len(line)-1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		payloads = append(payloads, p)
	}
}
