package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, []byte, []byte) error { return nil }

func TestNewValidation(t *testing.T) {
	pool := &pgxpool.Pool{}

	_, err := New(nil, nopPublisher{}, "results")
	assert.ErrorContains(t, err, "pgx pool is required")

	_, err = New(pool, nil, "results")
	assert.ErrorContains(t, err, "publisher is required")

	_, err = New(pool, nopPublisher{}, "")
	assert.ErrorContains(t, err, "topic is required")
}

func TestOptions(t *testing.T) {
	r, err := New(&pgxpool.Pool{}, nopPublisher{}, "results",
		WithInterval(250*time.Millisecond),
		WithBatchSize(10),
		WithInterval(0),
		WithBatchSize(-1),
	)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, r.interval, "non-positive values keep the previous setting")
	assert.Equal(t, 10, r.batchSize)
}
