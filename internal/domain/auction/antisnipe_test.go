package auction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMaybeExtend(t *testing.T) {
	end := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		acceptedAt time.Time
		want       time.Time
	}{
		{
			name:       "bid well before the window leaves the end alone",
			acceptedAt: end.Add(-10 * time.Minute),
			want:       end,
		},
		{
			name:       "bid just outside the window leaves the end alone",
			acceptedAt: end.Add(-2*time.Minute - time.Second),
			want:       end,
		},
		{
			name:       "bid exactly at the window boundary extends",
			acceptedAt: end.Add(-2 * time.Minute),
			want:       end, // acceptedAt+2m == end, never shrinks, stays
		},
		{
			name:       "bid 30s before close pushes the end out",
			acceptedAt: end.Add(-30 * time.Second),
			want:       end.Add(90 * time.Second),
		},
		{
			name:       "bid at the expiry instant extends a full window",
			acceptedAt: end,
			want:       end.Add(2 * time.Minute),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaybeExtend(end, tt.acceptedAt, DefaultSnipeWindow, DefaultSnipeExtension)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}

func TestMaybeExtend_NeverShrinks(t *testing.T) {
	end := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// A short extension inside the window must not pull the end earlier
	got := MaybeExtend(end, end.Add(-90*time.Second), 2*time.Minute, 10*time.Second)
	assert.True(t, got.Equal(end))
}

func TestMaybeExtend_GuaranteesWindow(t *testing.T) {
	end := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, offset := range []time.Duration{0, -time.Second, -30 * time.Second, -119 * time.Second} {
		acceptedAt := end.Add(offset)
		got := MaybeExtend(end, acceptedAt, DefaultSnipeWindow, DefaultSnipeExtension)
		assert.False(t, got.Before(acceptedAt.Add(DefaultSnipeExtension)),
			"accepted at end%s leaves less than the extension on the clock", offset)
	}
}
