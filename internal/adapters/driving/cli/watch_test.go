package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docmodel/internal/core/domain"
)

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   domain.Event
		want string
	}{
		{
			name: "content",
			ev:   domain.Event{Type: domain.EventContentChanged, ID: "untitled://a", Version: 4, Dirty: true},
			want: "untitled://a changed  v4",
		},
		{
			name: "metadata",
			ev:   domain.Event{Type: domain.EventMetadataChanged, ID: "untitled://a", Encoding: "gbk", LineEnding: domain.LineEndingCRLF},
			want: "untitled://a metadata gbk CRLF -",
		},
		{
			name: "created",
			ev:   domain.Event{Type: domain.EventModelCreated, ID: "untitled://a"},
			want: "untitled://a opened",
		},
		{
			name: "disposed",
			ev:   domain.Event{Type: domain.EventModelDisposed, ID: "untitled://a"},
			want: "untitled://a closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, formatEvent(tt.ev), tt.want)
		})
	}
}

func TestWatchCmd_PrintsUntilCancelled(t *testing.T) {
	ts := setupTestServices(t)
	ts.content.Put("untitled://a", "x")

	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"watch", "a"})
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.ExecuteContext(ctx)

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "watching untitled://a")
}
