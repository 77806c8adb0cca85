package closer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClose_LIFO(t *testing.T) {
	c := NewCloser(0)

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) Func {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	c.Add("store", record("store"))
	c.Add("kafka", record("kafka"))
	c.AddNoErr("http", func() { _ = record("http")(context.Background()) })

	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, []string{"http", "kafka", "store"}, order)
}

func TestClose_CollectsNamedErrors(t *testing.T) {
	c := NewCloser(0)
	c.Add("redis", func(context.Context) error { return errors.New("connection reset") })
	c.Add("grpc", func(context.Context) error { return nil })

	err := c.Close(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis: connection reset")
}

func TestClose_ForcesRemainingAfterTimeout(t *testing.T) {
	c := NewCloser(time.Second)

	forced := make(chan struct{}, 1)
	c.Add("store", func(context.Context) error {
		select {
		case forced <- struct{}{}:
		default:
		}
		return nil
	})
	c.Add("slow", func(context.Context) error {
		time.Sleep(300 * time.Millisecond)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Close(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shutdown interrupted")

	select {
	case <-forced:
	case <-time.After(2 * time.Second):
		t.Fatal("remaining closer was not forced")
	}
}

func TestClose_Once(t *testing.T) {
	c := NewCloser(0)
	calls := 0
	c.Add("once", func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, 1, calls)
}
