package machpatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplacePattern(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		pattern     string
		replacement string
		wantCount   int
		wantContent string
		wantErr     error
	}{
		{
			name:        "same length",
			content:     "/usr/lib/libA.dylib",
			pattern:     "libA",
			replacement: "libB",
			wantCount:   1,
			wantContent: "/usr/lib/libB.dylib",
		},
		{
			name:        "shorter is zero padded",
			content:     "hello world hello",
			pattern:     "hello",
			replacement: "hi",
			wantCount:   2,
			wantContent: "hi\x00\x00\x00 world hi\x00\x00\x00",
		},
		{
			name:        "no match",
			content:     "nothing here",
			pattern:     "xyz",
			replacement: "abc",
			wantCount:   0,
			wantContent: "nothing here",
		},
		{
			name:        "longer is rejected",
			content:     "abc",
			pattern:     "abc",
			replacement: "abcd",
			wantContent: "abc",
			wantErr:     ErrReplacementTooLong,
		},
		{
			name:        "empty pattern",
			content:     "abc",
			pattern:     "",
			replacement: "",
			wantContent: "abc",
			wantErr:     ErrEmptyPattern,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemp(t, "bin", []byte(tt.content))

			n, err := ReplacePattern(path, []byte(tt.pattern), []byte(tt.replacement))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantCount, n)
			}

			got, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantContent, string(got))
		})
	}
}

func TestReplacePatternMissingFile(t *testing.T) {
	_, err := ReplacePattern(filepath.Join(t.TempDir(), "missing"), []byte("a"), []byte("b"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
