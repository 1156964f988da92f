package tx

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromWithoutTx(t *testing.T) {
	_, ok := From(context.Background())
	assert.False(t, ok)

	_, ok = From(WithTx(context.Background(), (*sql.Tx)(nil)))
	assert.False(t, ok)
}

func TestMutexRunner(t *testing.T) {
	t.Run("propagates fn error", func(t *testing.T) {
		r := NewMutexRunner()
		boom := errors.New("boom")
		err := r.RunInTx(context.Background(), func(context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("nested calls do not deadlock", func(t *testing.T) {
		r := NewMutexRunner()
		calls := 0
		err := r.RunInTx(context.Background(), func(ctx context.Context) error {
			calls++
			return r.RunInTx(ctx, func(context.Context) error {
				calls++
				return nil
			})
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("serializes concurrent callers", func(t *testing.T) {
		r := NewMutexRunner()
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			inside  int
			maxSeen int
		)
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = r.RunInTx(context.Background(), func(context.Context) error {
					mu.Lock()
					inside++
					if inside > maxSeen {
						maxSeen = inside
					}
					mu.Unlock()
					time.Sleep(time.Millisecond)
					mu.Lock()
					inside--
					mu.Unlock()
					return nil
				})
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, maxSeen)
	})

	t.Run("honours cancelled context while waiting", func(t *testing.T) {
		r := NewMutexRunner()
		release := make(chan struct{})
		started := make(chan struct{})
		go func() {
			_ = r.RunInTx(context.Background(), func(context.Context) error {
				close(started)
				<-release
				return nil
			})
		}()
		<-started

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := r.RunInTx(ctx, func(context.Context) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
		close(release)
	})
}
