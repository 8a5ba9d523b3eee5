package eventbus_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerocal/gaugecore/internal/eventbus"
)

func TestPublishDispatchesToExactNameMatchOnly(t *testing.T) {
	bus := eventbus.New(nil, nil)
	var got []string
	bus.Subscribe("gauge.created", func(ctx context.Context, evt eventbus.Event) error {
		got = append(got, evt.Name)
		return nil
	})
	bus.Subscribe("gauge.updated", func(ctx context.Context, evt eventbus.Event) error {
		got = append(got, evt.Name)
		return nil
	})

	bus.Publish(context.Background(), eventbus.Event{Name: "gauge.created"})
	assert.Equal(t, []string{"gauge.created"}, got)
}

func TestPublishDispatchesToWildcardSubscribers(t *testing.T) {
	bus := eventbus.New(nil, nil)
	var got []string
	bus.Subscribe("*", func(ctx context.Context, evt eventbus.Event) error {
		got = append(got, evt.Name)
		return nil
	})

	bus.Publish(context.Background(), eventbus.Event{Name: "batch.sent"})
	bus.Publish(context.Background(), eventbus.Event{Name: "certificate.uploaded"})
	assert.Equal(t, []string{"batch.sent", "certificate.uploaded"}, got)
}

func TestPublishRunsSubscribersInRegistrationOrder(t *testing.T) {
	bus := eventbus.New(nil, nil)
	var order []int
	bus.Subscribe("x", func(ctx context.Context, evt eventbus.Event) error {
		order = append(order, 1)
		return nil
	})
	bus.Subscribe("x", func(ctx context.Context, evt eventbus.Event) error {
		order = append(order, 2)
		return nil
	})
	bus.Subscribe("x", func(ctx context.Context, evt eventbus.Event) error {
		order = append(order, 3)
		return nil
	})

	bus.Publish(context.Background(), eventbus.Event{Name: "x"})
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestUnsubscribeStopsFurtherDelivery(t *testing.T) {
	bus := eventbus.New(nil, nil)
	calls := 0
	id := bus.Subscribe("x", func(ctx context.Context, evt eventbus.Event) error {
		calls++
		return nil
	})

	bus.Publish(context.Background(), eventbus.Event{Name: "x"})
	bus.Unsubscribe(id)
	bus.Publish(context.Background(), eventbus.Event{Name: "x"})
	assert.Equal(t, 1, calls)
}

func TestPublishRecoversASubscriberPanicAndContinuesDispatch(t *testing.T) {
	bus := eventbus.New(nil, nil)
	second := false
	bus.Subscribe("x", func(ctx context.Context, evt eventbus.Event) error {
		panic("boom")
	})
	bus.Subscribe("x", func(ctx context.Context, evt eventbus.Event) error {
		second = true
		return nil
	})

	require.NotPanics(t, func() {
		bus.Publish(context.Background(), eventbus.Event{Name: "x"})
	})
	assert.True(t, second)
}

func TestPublishSwallowsASubscriberErrorAndContinuesDispatch(t *testing.T) {
	bus := eventbus.New(nil, nil)
	second := false
	bus.Subscribe("x", func(ctx context.Context, evt eventbus.Event) error {
		return errors.New("handler failed")
	})
	bus.Subscribe("x", func(ctx context.Context, evt eventbus.Event) error {
		second = true
		return nil
	})

	bus.Publish(context.Background(), eventbus.Event{Name: "x"})
	assert.True(t, second)
}
