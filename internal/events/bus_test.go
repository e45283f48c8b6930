package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/aranya-labs/backend-vastra/internal/events"
)

type memStore struct {
	events []events.Event
	err    error
}

func (m *memStore) InsertEvent(_ context.Context, ev events.Event) (events.Event, error) {
	if m.err != nil {
		return events.Event{}, m.err
	}
	m.events = append(m.events, ev)
	return ev, nil
}

type recordingNotifier struct {
	seen []events.Event
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, ev events.Event) error {
	n.seen = append(n.seen, ev)
	return n.err
}

func TestEmitPersistsAndNotifies(t *testing.T) {
	store := &memStore{}
	notifier := &recordingNotifier{}
	bus := &events.Bus{Store: store, Notifiers: []events.Notifier{notifier}}

	orderID := uuid.New()
	ev, err := bus.Emit(context.Background(), events.TopicOrderCreated, orderID, map[string]string{"paymentMethod": "cod"})
	require.NoError(t, err)
	require.Equal(t, events.TopicOrderCreated, ev.Topic)
	require.Equal(t, orderID, ev.AggregateID)
	require.JSONEq(t, `{"paymentMethod":"cod"}`, string(ev.Payload))
	require.Len(t, store.events, 1)
	require.Len(t, notifier.seen, 1)
}

func TestEmitRejectsMissingTopicAndAggregate(t *testing.T) {
	bus := &events.Bus{Store: &memStore{}}

	_, err := bus.Emit(context.Background(), "  ", uuid.New(), nil)
	require.Error(t, err)

	_, err = bus.Emit(context.Background(), events.TopicOrderPaid, uuid.Nil, nil)
	require.Error(t, err)
}

func TestEmitNotifierFailureKeepsEvent(t *testing.T) {
	store := &memStore{}
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	bus := &events.Bus{Store: store, Notifiers: []events.Notifier{notifier}}

	_, err := bus.Emit(context.Background(), events.TopicOrderPaid, uuid.New(), nil)
	require.Error(t, err)
	require.Len(t, store.events, 1)
}

func TestEmitRejectsInvalidRawPayload(t *testing.T) {
	bus := &events.Bus{Store: &memStore{}}

	_, err := bus.Emit(context.Background(), events.TopicOrderCreated, uuid.New(), []byte("{not json"))
	require.Error(t, err)
}
