package core

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
)

func TestBOMSkippingReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("object,name")...),
			expected: "object,name",
		},
		{
			name:     "file without BOM",
			input:    []byte("object,name"),
			expected: "object,name",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "partial BOM at start",
			input:    []byte{0xEF, 0xBB, 'a', 'b', 'c'},
			expected: string([]byte{0xEF, 0xBB, 'a', 'b', 'c'}),
		},
		{
			name:     "two bytes only",
			input:    []byte("ab"),
			expected: "ab",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewBOMSkippingReader(bytes.NewReader(tt.input))
			result, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestStreamingUTF8Sanitizer(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"valid ASCII", []byte("object,name"), "object,name"},
		{"valid multibyte", []byte("Größe,名前"), "Größe,名前"},
		{"invalid byte replaced", []byte{'h', 'e', 0x80, 'l', 'o'}, "he?lo"},
		{"truncated rune at EOF", []byte{'a', 0xE5, 0x90}, "a??"},
		{"empty input", []byte{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(NewStreamingUTF8Sanitizer(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestStreamingUTF8Sanitizer_SplitRunes(t *testing.T) {
	input := []byte("名前,Größe,ok")

	// OneByteReader forces every multi-byte rune to straddle reads.
	result, err := io.ReadAll(NewStreamingUTF8Sanitizer(iotest.OneByteReader(bytes.NewReader(input))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != string(input) {
		t.Errorf("got %q, want %q", result, input)
	}
}

func TestNewlineNormalizer(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"LF unchanged", "a,b\nc,d\n", "a,b\nc,d\n"},
		{"CRLF to LF", "a,b\r\nc,d\r\n", "a,b\nc,d\n"},
		{"lone CR to LF", "a,b\rc,d\r", "a,b\nc,d\n"},
		{"mixed endings", "a\rb\r\nc\nd", "a\nb\nc\nd"},
		{"blank CR lines kept", "a\r\rb", "a\n\nb"},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(NewNewlineNormalizer(strings.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestNewlineNormalizer_CRLFSplitAcrossReads(t *testing.T) {
	// OneByteReader delivers the LF of each CRLF in its own read.
	r := NewNewlineNormalizer(iotest.OneByteReader(strings.NewReader("a\r\nb\r\n")))
	result, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != "a\nb\n" {
		t.Errorf("got %q, want %q", result, "a\nb\n")
	}
}

func TestWrapForStreaming(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("object,name\n")...)
	input = append(input, 'x', 0xFF, '\n')

	wrapped := WrapForStreaming(bytes.NewReader(input))
	result, err := io.ReadAll(wrapped)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "object,name\nx?\n"
	if string(result) != want {
		t.Errorf("got %q, want %q", result, want)
	}
	if wrapped.BytesRead != int64(len(want)) {
		t.Errorf("BytesRead = %d, want %d", wrapped.BytesRead, len(want))
	}
}

func TestPackageSourcesHaveNoEmbeddedBOM(t *testing.T) {
	files, err := filepath.Glob("*.go")
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatal(err)
		}
		if i := bytes.Index(data, utf8BOM); i > 0 {
			t.Errorf("%s: byte order mark at offset %d", f, i)
		}
	}
}
