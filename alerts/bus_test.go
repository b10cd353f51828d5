package alerts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ruteri/shard-integrity-enforcer/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBusDeliversToAllSinks(t *testing.T) {
	bus := NewBus(testLogger())

	var first, second []interfaces.Alert
	bus.Register(interfaces.AlertSinkFunc(func(ctx context.Context, a interfaces.Alert) error {
		first = append(first, a)
		return nil
	}))
	bus.Register(interfaces.AlertSinkFunc(func(ctx context.Context, a interfaces.Alert) error {
		second = append(second, a)
		return nil
	}))

	alert := interfaces.NewRegularityAlert("/shards/shard_0.bin")
	require.NoError(t, bus.Deliver(context.Background(), alert))

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, alert.ID, first[0].ID)
	assert.Equal(t, alert.ID, second[0].ID)
}

func TestBusIsolatesPanickingSink(t *testing.T) {
	bus := NewBus(testLogger())

	bus.Register(interfaces.AlertSinkFunc(func(ctx context.Context, a interfaces.Alert) error {
		panic("sink exploded")
	}))

	var delivered int
	bus.Register(interfaces.AlertSinkFunc(func(ctx context.Context, a interfaces.Alert) error {
		delivered++
		return nil
	}))

	alert := interfaces.NewEntropyViolationAlert("/shards/shard_0.bin", 3.0, 7.2)
	require.NotPanics(t, func() {
		_ = bus.Deliver(context.Background(), alert)
	})
	assert.Equal(t, 1, delivered)
}

func TestBusSwallowsSinkErrors(t *testing.T) {
	bus := NewBus(testLogger())

	bus.Register(interfaces.AlertSinkFunc(func(ctx context.Context, a interfaces.Alert) error {
		return errors.New("sink offline")
	}))

	err := bus.Deliver(context.Background(), interfaces.NewRegularityAlert("/shards/shard_0.bin"))
	assert.NoError(t, err)
}

func TestBusWithoutSinks(t *testing.T) {
	bus := NewBus(testLogger())
	assert.NoError(t, bus.Deliver(context.Background(), interfaces.NewRegularityAlert("x")))
}
