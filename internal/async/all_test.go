package async

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll_KeepsInputOrder(t *testing.T) {
	delays := []time.Duration{30 * time.Millisecond, 0, 10 * time.Millisecond}
	futures := make([]*Future[int], len(delays))
	for i, d := range delays {
		futures[i] = Run(context.Background(), func(ctx context.Context) (int, error) {
			time.Sleep(d)
			return i, nil
		})
	}

	got, err := All(context.Background(), futures...)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, got)
}

func TestAll_ReturnsFirstError(t *testing.T) {
	wantErr := errors.New("second failed")
	release := make(chan struct{})
	slow := Run(context.Background(), func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})
	defer func() {
		close(release)
		<-slow.Done()
	}()

	_, err := All(context.Background(), slow, Rejected[int](wantErr))
	assert.ErrorIs(t, err, wantErr)
}

func TestAll_Empty(t *testing.T) {
	got, err := All[string](context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}
