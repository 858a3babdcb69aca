package queue_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leap/internal/logging"
	"leap/internal/queue"
	"leap/internal/storage"
)

var (
	admin    = queue.Caller{UserID: "admin-1", DisplayName: "Admin", Role: queue.RoleAdmin}
	employee = queue.Caller{UserID: "emp-1", DisplayName: "Bartender", Role: queue.RoleEmployee, VenueID: "bar-1"}
	stranger = queue.Caller{UserID: "emp-2", DisplayName: "Other", Role: queue.RoleEmployee, VenueID: "bar-2"}
	guest    = queue.Caller{UserID: "u-1", DisplayName: "Guest", Role: queue.RoleUser}
)

// recorder keeps every emitted event in order.
type recorder struct {
	mu     sync.Mutex
	events []queue.Event
}

func (r *recorder) Emit(ev queue.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []queue.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) last(t *testing.T) queue.Event {
	t.Helper()
	events := r.all()
	require.NotEmpty(t, events)
	return events[len(events)-1]
}

// failingStore fails every call.
type failingStore struct{}

var errDown = errors.New("connection refused")

func (failingStore) Get(context.Context, string) (*queue.Queue, error) { return nil, errDown }
func (failingStore) Put(context.Context, *queue.Queue) error          { return errDown }
func (failingStore) Mutate(context.Context, string, func(*queue.Queue, bool) error) (*queue.Queue, error) {
	return nil, errDown
}

func newService(t *testing.T, opts ...queue.Option) (*queue.Service, *storage.MemoryQueueStore, *recorder) {
	t.Helper()
	store := storage.NewMemoryQueueStore()
	rec := &recorder{}
	return queue.NewService(store, rec, logging.Discard(), opts...), store, rec
}

func openVenue(t *testing.T, s *queue.Service, maxLength int) {
	t.Helper()
	_, err := s.Open(context.Background(), admin, "bar-1", maxLength)
	require.NoError(t, err)
}

func join(t *testing.T, s *queue.Service, users ...string) {
	t.Helper()
	for _, u := range users {
		_, err := s.Join(context.Background(), "bar-1", u, "name-"+u)
		require.NoError(t, err)
	}
}

func memberIDs(members []queue.Member) []string {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids
}

func TestOpenCreatesEmptyQueue(t *testing.T) {
	s, _, rec := newService(t)
	ctx := context.Background()

	length, err := s.Open(ctx, employee, "bar-1", 10)
	require.NoError(t, err)
	assert.Equal(t, 0, length)

	st, err := s.Status(ctx, admin, "bar-1")
	require.NoError(t, err)
	assert.True(t, st.IsOpen)
	assert.Equal(t, 10, st.MaxLength)
	assert.Empty(t, st.Members)

	ev := rec.last(t)
	assert.Equal(t, queue.EventQueueStatus, ev.Name)
	assert.Equal(t, queue.StatusPayload{VenueID: "bar-1", IsOpen: true, MaxLength: 10}, ev.Payload)
}

func TestOpenUsesDefaultCapacity(t *testing.T) {
	s, _, _ := newService(t)
	openVenue(t, s, 0)

	st, err := s.Status(context.Background(), admin, "bar-1")
	require.NoError(t, err)
	assert.Equal(t, queue.DefaultMaxLength, st.MaxLength)

	s2, _, _ := newService(t, queue.WithDefaultMaxLength(7))
	openVenue(t, s2, -1)
	st, err = s2.Status(context.Background(), admin, "bar-1")
	require.NoError(t, err)
	assert.Equal(t, 7, st.MaxLength)
}

func TestReopenDropsMembers(t *testing.T) {
	s, _, _ := newService(t)
	openVenue(t, s, 5)
	join(t, s, "a", "b")

	length, err := s.Open(context.Background(), admin, "bar-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 0, length)

	st, err := s.Status(context.Background(), admin, "bar-1")
	require.NoError(t, err)
	assert.Empty(t, st.Members)
}

func TestValidateKeepsJoinOrderAcrossRemovals(t *testing.T) {
	s, store, _ := newService(t)
	ctx := context.Background()
	openVenue(t, s, 10)
	join(t, s, "a", "b", "c", "d", "e")

	_, err := s.Leave(ctx, "bar-1", "b")
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		n, err := s.RemoveMember(ctx, employee, "bar-1", "d")
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	}

	for _, next := range []string{"a", "c", "e"} {
		require.NoError(t, s.ValidateNext(ctx, employee, "bar-1", next), next)
	}
	err = s.ValidateNext(ctx, employee, "bar-1", "e")
	assert.ErrorIs(t, err, queue.ErrInvalidTurn)

	join(t, s, "f", "g")
	length, err := s.Open(ctx, admin, "bar-1", 10)
	require.NoError(t, err)
	assert.Equal(t, 0, length)

	st, err := s.Status(ctx, admin, "bar-1")
	require.NoError(t, err)
	assert.Empty(t, st.Members)

	stored, err := store.Get(ctx, "bar-1")
	require.NoError(t, err)
	assert.Empty(t, stored.Members)
}

func TestOpenForbidden(t *testing.T) {
	s, store, rec := newService(t)
	ctx := context.Background()

	for _, c := range []queue.Caller{guest, stranger} {
		_, err := s.Open(ctx, c, "bar-1", 5)
		assert.ErrorIs(t, err, queue.ErrForbidden)
	}
	_, err := store.Get(ctx, "bar-1")
	assert.ErrorIs(t, err, queue.ErrNotFound)
	assert.Empty(t, rec.all())
}

func TestCloseKeepsMembers(t *testing.T) {
	s, _, rec := newService(t)
	ctx := context.Background()
	openVenue(t, s, 5)
	join(t, s, "a")

	require.NoError(t, s.Close(ctx, employee, "bar-1"))

	st, err := s.Status(ctx, admin, "bar-1")
	require.NoError(t, err)
	assert.False(t, st.IsOpen)
	assert.Equal(t, []string{"a"}, memberIDs(st.Members))
	assert.Equal(t, queue.StatusPayload{VenueID: "bar-1", IsOpen: false}, rec.last(t).Payload)
}

func TestCloseErrors(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Close(ctx, admin, "nowhere"), queue.ErrNotFound)

	openVenue(t, s, 5)
	assert.ErrorIs(t, s.Close(ctx, guest, "bar-1"), queue.ErrForbidden)
	assert.ErrorIs(t, s.Close(ctx, stranger, "bar-1"), queue.ErrForbidden)
}

func TestStatusVisibility(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	_, err := s.Status(ctx, admin, "bar-1")
	assert.ErrorIs(t, err, queue.ErrNotFound)

	openVenue(t, s, 5)
	_, err = s.Status(ctx, guest, "bar-1")
	assert.NoError(t, err)
	_, err = s.Status(ctx, stranger, "bar-1")
	assert.ErrorIs(t, err, queue.ErrForbidden)

	require.NoError(t, s.Close(ctx, admin, "bar-1"))
	_, err = s.Status(ctx, guest, "bar-1")
	assert.ErrorIs(t, err, queue.ErrClosed)
	assert.Equal(t, queue.KindForbidden, queue.KindOf(err))
	_, err = s.Status(ctx, employee, "bar-1")
	assert.NoError(t, err)
}

func TestJoinAppendsInOrder(t *testing.T) {
	s, _, rec := newService(t)
	ctx := context.Background()
	openVenue(t, s, 5)

	n, err := s.Join(ctx, "bar-1", "a", "Ann")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = s.Join(ctx, "bar-1", "b", "Bob")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ev := rec.last(t)
	assert.Equal(t, queue.EventQueueUpdated, ev.Name)
	payload := ev.Payload.(queue.UpdatedPayload)
	assert.Equal(t, 2, payload.Length)
	assert.Equal(t, []queue.Member{{UserID: "a", DisplayName: "Ann"}, {UserID: "b", DisplayName: "Bob"}}, payload.Members)
}

func TestJoinErrors(t *testing.T) {
	s, _, rec := newService(t)
	ctx := context.Background()

	_, err := s.Join(ctx, "bar-1", "a", "A")
	assert.ErrorIs(t, err, queue.ErrNotOpen, "missing queue")

	openVenue(t, s, 2)
	join(t, s, "a")
	_, err = s.Join(ctx, "bar-1", "a", "A")
	assert.ErrorIs(t, err, queue.ErrAlreadyJoined)

	join(t, s, "b")
	before := len(rec.all())
	_, err = s.Join(ctx, "bar-1", "c", "C")
	assert.ErrorIs(t, err, queue.ErrFull)
	assert.Len(t, rec.all(), before, "failed join emits nothing")

	require.NoError(t, s.Close(ctx, admin, "bar-1"))
	_, err = s.Join(ctx, "bar-1", "c", "C")
	assert.ErrorIs(t, err, queue.ErrNotOpen)
}

func TestJoinAlreadyJoinedBeforeFull(t *testing.T) {
	s, _, _ := newService(t)
	openVenue(t, s, 1)
	join(t, s, "a")

	_, err := s.Join(context.Background(), "bar-1", "a", "A")
	assert.ErrorIs(t, err, queue.ErrAlreadyJoined)
}

func TestLeave(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()
	openVenue(t, s, 5)
	join(t, s, "a", "b", "c")

	n, err := s.Leave(ctx, "bar-1", "b")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	st, err := s.Status(ctx, admin, "bar-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, memberIDs(st.Members))

	_, err = s.Leave(ctx, "bar-1", "b")
	assert.ErrorIs(t, err, queue.ErrNotInQueue)

	require.NoError(t, s.Close(ctx, admin, "bar-1"))
	_, err = s.Leave(ctx, "bar-1", "a")
	assert.ErrorIs(t, err, queue.ErrNotOpen)
}

func TestRemoveMember(t *testing.T) {
	s, _, rec := newService(t)
	ctx := context.Background()

	_, err := s.RemoveMember(ctx, admin, "bar-1", "a")
	assert.ErrorIs(t, err, queue.ErrNotFound)

	openVenue(t, s, 5)
	join(t, s, "a", "b")

	_, err = s.RemoveMember(ctx, guest, "bar-1", "a")
	assert.ErrorIs(t, err, queue.ErrForbidden)

	n, err := s.RemoveMember(ctx, employee, "bar-1", "a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	before := len(rec.all())
	n, err = s.RemoveMember(ctx, employee, "bar-1", "ghost")
	require.NoError(t, err, "removing an absent member is a no-op")
	assert.Equal(t, 1, n)
	assert.Len(t, rec.all(), before+1)

	require.NoError(t, s.Close(ctx, admin, "bar-1"))
	_, err = s.RemoveMember(ctx, admin, "bar-1", "b")
	assert.ErrorIs(t, err, queue.ErrNotOpen)
}

func TestValidateNext(t *testing.T) {
	s, _, rec := newService(t)
	ctx := context.Background()
	openVenue(t, s, 5)
	join(t, s, "a", "b")

	assert.ErrorIs(t, s.ValidateNext(ctx, employee, "bar-1", "b"), queue.ErrInvalidTurn)
	assert.ErrorIs(t, s.ValidateNext(ctx, employee, "bar-1", ""), queue.ErrInvalidTurn)
	assert.ErrorIs(t, s.ValidateNext(ctx, guest, "bar-1", "a"), queue.ErrForbidden)
	assert.ErrorIs(t, s.ValidateNext(ctx, stranger, "bar-1", "a"), queue.ErrForbidden)

	require.NoError(t, s.ValidateNext(ctx, employee, "bar-1", "a"))
	payload := rec.last(t).Payload.(queue.UpdatedPayload)
	assert.Equal(t, []string{"b"}, memberIDs(payload.Members))

	require.NoError(t, s.ValidateNext(ctx, admin, "bar-1", "b"))
	assert.ErrorIs(t, s.ValidateNext(ctx, admin, "bar-1", "b"), queue.ErrInvalidTurn, "empty queue")
}

func TestValidateNextClosedOrMissing(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.ValidateNext(ctx, admin, "bar-1", "a"), queue.ErrNotFound)

	openVenue(t, s, 5)
	join(t, s, "a")
	require.NoError(t, s.Close(ctx, admin, "bar-1"))
	assert.ErrorIs(t, s.ValidateNext(ctx, admin, "bar-1", "a"), queue.ErrNotOpen)
}

func TestPosition(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	_, _, err := s.Position(ctx, "bar-1", "a")
	assert.ErrorIs(t, err, queue.ErrNotOpen)

	openVenue(t, s, 5)
	join(t, s, "a", "b", "c")

	pos, length, err := s.Position(ctx, "bar-1", "c")
	require.NoError(t, err)
	assert.Equal(t, 3, pos)
	assert.Equal(t, 3, length)

	_, _, err = s.Position(ctx, "bar-1", "z")
	assert.ErrorIs(t, err, queue.ErrNotInQueue)
}

func TestRejoinCooldown(t *testing.T) {
	now := time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)
	clock := queue.ResetClock{Hour: 2, Location: time.UTC}
	s, _, _ := newService(t,
		queue.WithServedLedger(storage.NewMemoryServedLedger(), clock),
		queue.WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()
	openVenue(t, s, 5)
	join(t, s, "a")
	require.NoError(t, s.ValidateNext(ctx, admin, "bar-1", "a"))

	_, err := s.Join(ctx, "bar-1", "a", "A")
	assert.ErrorIs(t, err, queue.ErrRecentlyServed)

	// other venues are unaffected
	_, err = s.Open(ctx, admin, "bar-9", 5)
	require.NoError(t, err)
	_, err = s.Join(ctx, "bar-9", "a", "A")
	assert.NoError(t, err)

	now = time.Date(2026, 3, 15, 2, 0, 0, 0, time.UTC)
	_, err = s.Join(ctx, "bar-1", "a", "A")
	assert.NoError(t, err, "allowed again after the reset")
}

func TestStoreUnavailable(t *testing.T) {
	s := queue.NewService(failingStore{}, nil, nil)
	ctx := context.Background()

	_, err := s.Open(ctx, admin, "bar-1", 5)
	assert.ErrorIs(t, err, queue.ErrStoreUnavailable)
	assert.True(t, queue.IsRetryable(err))
	assert.ErrorIs(t, err, errDown)

	_, err = s.Join(ctx, "bar-1", "a", "A")
	assert.ErrorIs(t, err, queue.ErrStoreUnavailable)
	_, err = s.Status(ctx, admin, "bar-1")
	assert.ErrorIs(t, err, queue.ErrStoreUnavailable)
	_, _, err = s.Position(ctx, "bar-1", "a")
	assert.ErrorIs(t, err, queue.ErrStoreUnavailable)

	assert.False(t, queue.IsRetryable(queue.ErrFull))
}

func TestCancelledContext(t *testing.T) {
	s, _, rec := newService(t)
	openVenue(t, s, 5)
	before := len(rec.all())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Join(ctx, "bar-1", "a", "A")
	assert.ErrorIs(t, err, queue.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, rec.all(), before)
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	s, _, rec := newService(t)
	ctx := context.Background()
	openVenue(t, s, 20)

	var ok, full atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Join(ctx, "bar-1", fmt.Sprintf("u%03d", i), "")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, queue.ErrFull):
				full.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 20, ok.Load())
	assert.EqualValues(t, 80, full.Load())

	st, err := s.Status(ctx, admin, "bar-1")
	require.NoError(t, err)
	assert.Len(t, st.Members, 20)

	// each emitted length is one more than the previous one
	length := 0
	for _, ev := range rec.all() {
		if p, ok := ev.Payload.(queue.UpdatedPayload); ok {
			assert.Equal(t, length+1, p.Length)
			length = p.Length
		}
	}
	assert.Equal(t, 20, length)
}

func TestConcurrentJoinSameUser(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()
	openVenue(t, s, 50)

	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Join(ctx, "bar-1", "same", ""); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, ok.Load())
}

func TestVenuesAreIndependent(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()
	openVenue(t, s, 5)
	_, err := s.Open(ctx, admin, "bar-2", 5)
	require.NoError(t, err)

	join(t, s, "a")
	require.NoError(t, s.Close(ctx, admin, "bar-2"))

	st, err := s.Status(ctx, admin, "bar-1")
	require.NoError(t, err)
	assert.True(t, st.IsOpen)
	assert.Len(t, st.Members, 1)
}
