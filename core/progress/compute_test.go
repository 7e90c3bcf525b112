package progress

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeProgress(t *testing.T) {
	tests := []struct {
		name    string
		index   int
		total   int
		want    int
		wantErr bool
	}{
		{name: "single lesson", index: 0, total: 1, want: 100},
		{name: "first of three", index: 0, total: 3, want: 33},
		{name: "second of three", index: 1, total: 3, want: 67},
		{name: "last of three", index: 2, total: 3, want: 100},
		{name: "half rounds up", index: 0, total: 8, want: 13},
		{name: "first of four", index: 0, total: 4, want: 25},
		{name: "no lessons", index: 0, total: 0, wantErr: true},
		{name: "negative index", index: -1, total: 3, wantErr: true},
		{name: "index past the end", index: 3, total: 3, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeProgress(tt.index, tt.total)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ErrInvalidRange, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeProgress_monotonicAndComplete(t *testing.T) {
	for total := 1; total <= 50; total++ {
		prev := 0
		for i := 0; i < total; i++ {
			got, err := ComputeProgress(i, total)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, got, prev, "total=%d index=%d", total, i)
			assert.True(t, got >= 0 && got <= 100)
			prev = got
		}
		assert.Equal(t, 100, prev, "last lesson of %d must complete the course", total)
	}
}

func TestClampPercent(t *testing.T) {
	assert.Equal(t, 0, ClampPercent(-5))
	assert.Equal(t, 0, ClampPercent(0))
	assert.Equal(t, 42, ClampPercent(42))
	assert.Equal(t, 100, ClampPercent(100))
	assert.Equal(t, 100, ClampPercent(150))
}

func TestClampPage(t *testing.T) {
	tests := []struct {
		page, total, want int
		wantErr           bool
	}{
		{page: 0, total: 120, want: 1},
		{page: -3, total: 120, want: 1},
		{page: 1, total: 120, want: 1},
		{page: 37, total: 120, want: 37},
		{page: 120, total: 120, want: 120},
		{page: 500, total: 120, want: 120},
		{page: 1, total: 0, wantErr: true},
	}
	for _, tt := range tests {
		got, err := ClampPage(tt.page, tt.total)
		if tt.wantErr {
			assert.Equal(t, ErrInvalidRange, errors.Cause(err))
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "ClampPage(%d, %d)", tt.page, tt.total)
	}
}
