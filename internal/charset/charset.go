// Package charset detects and converts between the byte encodings found in
// spreadsheet exports (Shift_JIS and UTF-8) and Go strings.
package charset

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

type Encoding string

const (
	UTF8     Encoding = "UTF-8"
	ShiftJIS Encoding = "Shift_JIS"
	Auto     Encoding = "auto"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseEncoding maps a user supplied encoding name to an Encoding.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return Auto, nil
	case "utf8", "utf-8":
		return UTF8, nil
	case "sjis", "shift_jis", "shift-jis", "shiftjis", "cp932", "windows-31j":
		return ShiftJIS, nil
	}
	return "", fmt.Errorf("unsupported encoding: %s", name)
}

// Detect guesses the encoding of raw file bytes. It never fails: when the
// bytes are neither valid UTF-8 nor well formed Shift_JIS it returns Auto.
func Detect(b []byte) Encoding {
	if bytes.HasPrefix(b, utf8BOM) {
		return UTF8
	}
	if len(b) == 0 {
		return Auto
	}
	if utf8.Valid(b) {
		return UTF8
	}
	if validShiftJIS(b) {
		return ShiftJIS
	}
	return Auto
}

// validShiftJIS checks lead/trail byte structure only; it does not verify
// that every code point is assigned.
func validShiftJIS(b []byte) bool {
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case c < 0x80:
		case c >= 0xA1 && c <= 0xDF:
		case (c >= 0x81 && c <= 0x9F) || (c >= 0xE0 && c <= 0xFC):
			if i+1 >= len(b) {
				return false
			}
			t := b[i+1]
			if t < 0x40 || t == 0x7F || t > 0xFC {
				return false
			}
			i++
		default:
			return false
		}
	}
	return true
}

// Decode converts raw bytes to a string using hint. Auto runs Detect first
// and falls back to UTF-8 with invalid sequences replaced.
func Decode(b []byte, hint Encoding) string {
	switch hint {
	case ShiftJIS:
		out, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), b)
		if err != nil {
			return strings.ToValidUTF8(string(b), string(utf8.RuneError))
		}
		return string(out)
	case UTF8:
		return strings.ToValidUTF8(string(bytes.TrimPrefix(b, utf8BOM)), string(utf8.RuneError))
	}

	detected := Detect(b)
	if detected == Auto {
		detected = UTF8
	}
	return Decode(b, detected)
}

func shiftJISEncoder() *encoding.Encoder {
	return encoding.ReplaceUnsupported(japanese.ShiftJIS.NewEncoder())
}

// EncodeShiftJIS converts text to Shift_JIS. Characters outside the
// Shift_JIS repertoire are replaced with the SUB control byte.
func EncodeShiftJIS(text string) ([]byte, error) {
	out, _, err := transform.Bytes(shiftJISEncoder(), []byte(text))
	if err != nil {
		return nil, fmt.Errorf("failed to encode Shift_JIS: %w", err)
	}
	return out, nil
}

// NewWriter returns a writer that encodes everything written to it with enc
// before passing it to w. UTF-8 output starts with a BOM so spreadsheet
// tools pick the right encoding. Close flushes buffered output but does
// not close w.
func NewWriter(w io.Writer, enc Encoding) (io.WriteCloser, error) {
	switch enc {
	case ShiftJIS, Auto:
		return transform.NewWriter(w, shiftJISEncoder()), nil
	case UTF8:
		if _, err := w.Write(utf8BOM); err != nil {
			return nil, fmt.Errorf("failed to write BOM: %w", err)
		}
		return nopCloser{w}, nil
	}
	return nil, fmt.Errorf("unsupported encoding: %s", enc)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
