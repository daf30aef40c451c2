package core

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestWrapForStreaming(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("Student ID,Amount")...),
			expected: "Student ID,Amount",
		},
		{
			name:     "file without BOM",
			input:    []byte("Student ID,Amount"),
			expected: "Student ID,Amount",
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
			name:     "partial BOM is sanitized, not stripped",
			input:    []byte{0xEF, 0xBB, 'a', 'b', 'c'},
			expected: "??abc",
		},
		{
			name:     "invalid single byte replaced",
			input:    []byte{'h', 'e', 0x80, 'l', 'o'},
			expected: "he?lo",
		},
		{
			name:     "valid multibyte kept",
			input:    []byte("Zoë Ângelo,1000"),
			expected: "Zoë Ângelo,1000",
		},
		{
			name:     "BOM and invalid byte together",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte{'h', 'e', 0x80, 'l', 'o'}...),
			expected: "he?lo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := WrapForStreaming(bytes.NewReader(tt.input), int64(len(tt.input)))
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

func TestWrapForStreaming_SmallReads(t *testing.T) {
	input := strings.Repeat("ñ", 50)
	reader := iotest.OneByteReader(WrapForStreaming(strings.NewReader(input), 0))

	result, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != input {
		t.Errorf("multibyte runes split across reads were corrupted: %q", result)
	}
}
