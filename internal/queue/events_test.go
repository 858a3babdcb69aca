package queue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusEventHidesCapacityWhenClosed(t *testing.T) {
	ev := statusEvent(&Queue{VenueID: "v1", IsOpen: false, MaxLength: 20})
	data, err := json.Marshal(ev.Payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"venueId":"v1","isOpen":false}`, string(data))

	ev = statusEvent(&Queue{VenueID: "v1", IsOpen: true, MaxLength: 20})
	data, err = json.Marshal(ev.Payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"venueId":"v1","isOpen":true,"maxLength":20}`, string(data))
}

func TestUpdatedEventCopiesMembers(t *testing.T) {
	q := &Queue{VenueID: "v1", IsOpen: true, Members: []Member{{UserID: "a"}, {UserID: "b"}}}
	ev := updatedEvent(q)
	q.Members[0].UserID = "changed"

	payload := ev.Payload.(UpdatedPayload)
	assert.Equal(t, "a", payload.Members[0].UserID)
	assert.Equal(t, 2, payload.Length)

	data, err := json.Marshal(updatedEvent(&Queue{VenueID: "v2"}).Payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"venueId":"v2","members":[],"length":0}`, string(data))
}

func TestErrorKinds(t *testing.T) {
	wrapped := storeUnavailable(assert.AnError)
	assert.ErrorIs(t, wrapped, ErrStoreUnavailable)
	assert.ErrorIs(t, wrapped, assert.AnError)
	assert.True(t, IsRetryable(wrapped))
	assert.Equal(t, KindStoreUnavailable, KindOf(wrapped))

	assert.Same(t, ErrFull, storeUnavailable(ErrFull))
	assert.Nil(t, storeUnavailable(nil))
	assert.Equal(t, Kind(""), KindOf(assert.AnError))
	assert.ErrorIs(t, ErrClosed, ErrForbidden, "closed queue is a forbidden kind")
}
