package producer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresBrokers(t *testing.T) {
	_, err := New(nil)
	assert.ErrorContains(t, err, "at least one broker")
}

func TestNewDoesNotDial(t *testing.T) {
	// kgo connects lazily, so construction succeeds without a broker.
	p, err := New([]string{"127.0.0.1:1"}, WithClientID("test"))
	require.NoError(t, err)
	p.client.Close()
}
