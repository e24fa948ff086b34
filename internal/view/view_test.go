package view_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/airdash/internal/apiclient"
	"github.com/Domenick1991/airdash/internal/domain"
	"github.com/Domenick1991/airdash/internal/events"
	"github.com/Domenick1991/airdash/internal/logger"
	"github.com/Domenick1991/airdash/internal/notify"
	"github.com/Domenick1991/airdash/internal/realtime/realtimetest"
	"github.com/Domenick1991/airdash/internal/reducer"
	"github.com/Domenick1991/airdash/internal/view"
)

type fakeCatalog struct {
	mu       sync.Mutex
	buckets  map[domain.Bucket][]domain.Flight
	airlines []domain.Airline
	calls    atomic.Int32
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{buckets: make(map[domain.Bucket][]domain.Flight)}
}

func (f *fakeCatalog) ListFlights(_ context.Context, bk domain.Bucket) ([]domain.Flight, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Flight{}, f.buckets[bk]...), nil
}

func (f *fakeCatalog) ListAirlines(context.Context) ([]domain.Airline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.airlines, nil
}

func (f *fakeCatalog) set(bk domain.Bucket, flights ...domain.Flight) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets[bk] = flights
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message{}, n.msgs...)
}

type countingRecorder struct {
	ignored    atomic.Int32
	reconciled atomic.Int32
}

func (r *countingRecorder) FrameReceived(string, string)               {}
func (r *countingRecorder) FrameRejected(string, string)               {}
func (r *countingRecorder) Reconnecting(string)                        {}
func (r *countingRecorder) EventIgnored(string, string)                { r.ignored.Add(1) }
func (r *countingRecorder) ReconcileDone(string, time.Duration, error) { r.reconciled.Add(1) }

type MockBooker struct {
	mock.Mock
}

func (m *MockBooker) BookFlight(ctx context.Context, flight domain.Flight) (*apiclient.PurchaseReceipt, error) {
	args := m.Called(ctx, flight)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apiclient.PurchaseReceipt), args.Error(1)
}

type MockModerator struct {
	mock.Mock
}

func (m *MockModerator) Approve(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockModerator) Reject(ctx context.Context, id int64, reason string) (*domain.Flight, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

type MockProfile struct {
	mock.Mock
}

func (m *MockProfile) RefreshProfile(ctx context.Context) (domain.User, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.User), args.Error(1)
}

func flight(id int64, status domain.FlightStatus) domain.Flight {
	return domain.Flight{ID: id, Name: "Let " + string(rune('A'+id%26)), Status: status, Price: 75}
}

func ids(flights []domain.Flight) []int64 {
	out := make([]int64, 0, len(flights))
	for _, f := range flights {
		out = append(out, f.ID)
	}
	return out
}

func waitDialed(t *testing.T, lb *realtimetest.Loopback, ns string) {
	t.Helper()
	select {
	case got := <-lb.Dialed():
		require.Equal(t, ns, got)
	case <-time.After(2 * time.Second):
		t.Fatal("view never connected")
	}
}

func options(lb *realtimetest.Loopback, n *recordingNotifier, rec *countingRecorder, interval time.Duration) view.Options {
	return view.Options{
		Transport:    lb,
		Notifier:     n,
		Recorder:     rec,
		Logger:       logger.Discard(),
		PollInterval: interval,
	}
}

func TestFlightsView_AppliesEvents(t *testing.T) {
	lb := realtimetest.New()
	cat := newFakeCatalog()
	cat.set(domain.BucketUpcoming, flight(1, domain.FlightStatusApproved))
	cat.set(domain.BucketInProgress, flight(2, domain.FlightStatusInProgress))
	n := &recordingNotifier{}

	v := view.NewFlightsView(cat, &MockBooker{}, reducer.Viewer{UserID: 7}, options(lb, n, &countingRecorder{}, 0))
	require.NoError(t, v.Mount(context.Background()))
	defer v.Unmount()
	waitDialed(t, lb, events.NamespaceFlights)

	assert.False(t, v.Snapshot().Loading)
	assert.Equal(t, []int64{1}, ids(v.Board().Upcoming))

	lb.Publish(events.NamespaceFlights, "flight_approved", map[string]interface{}{"flight": flight(42, domain.FlightStatusApproved)})
	require.Eventually(t, func() bool { return len(v.Board().Upcoming) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []int64{42, 1}, ids(v.Board().Upcoming))

	lb.Publish(events.NamespaceFlights, "flight_status_changed", map[string]interface{}{"flight_id": 2, "status": domain.FlightStatusFinished})
	require.Eventually(t, func() bool { return len(v.Board().Finished) == 1 }, 2*time.Second, 10*time.Millisecond)
	b := v.Board()
	assert.Empty(t, b.InProgress)
	assert.Equal(t, domain.FlightStatusFinished, b.Finished[0].Status)

	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, notify.Info("New flight approved", flight(42, "").Name), msgs[0])
}

func TestFlightsView_ForeignUserIgnored(t *testing.T) {
	lb := realtimetest.New()
	rec := &countingRecorder{}
	n := &recordingNotifier{}
	v := view.NewFlightsView(newFakeCatalog(), &MockBooker{}, reducer.Viewer{UserID: 7}, options(lb, n, rec, 0))
	require.NoError(t, v.Mount(context.Background()))
	defer v.Unmount()
	waitDialed(t, lb, events.NamespaceFlights)

	lb.Publish(events.NamespaceFlights, "flight_approved", map[string]interface{}{"user_id": 8, "flight": flight(42, domain.FlightStatusApproved)})

	require.Eventually(t, func() bool { return rec.ignored.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, v.Board().Upcoming)
	assert.Empty(t, n.messages())
}

func TestFlightsView_PollerConverges(t *testing.T) {
	lb := realtimetest.New()
	cat := newFakeCatalog()
	rec := &countingRecorder{}
	v := view.NewFlightsView(cat, &MockBooker{}, reducer.Viewer{UserID: 7}, options(lb, &recordingNotifier{}, rec, 20*time.Millisecond))
	require.NoError(t, v.Mount(context.Background()))
	defer v.Unmount()
	waitDialed(t, lb, events.NamespaceFlights)

	// A missed cancel and an event the server never confirmed.
	lb.Publish(events.NamespaceFlights, "flight_approved", map[string]interface{}{"flight": flight(99, domain.FlightStatusApproved)})
	cat.set(domain.BucketUpcoming, flight(3, domain.FlightStatusApproved))
	cat.set(domain.BucketFinished, flight(5, domain.FlightStatusCancelled))

	require.Eventually(t, func() bool {
		b := v.Board()
		return assert.ObjectsAreEqual([]int64{3}, ids(b.Upcoming)) &&
			assert.ObjectsAreEqual([]int64{5}, ids(b.Finished))
	}, 2*time.Second, 10*time.Millisecond)
	assert.Positive(t, rec.reconciled.Load())
	assert.False(t, v.Snapshot().Loading)
}

func TestFlightsView_NoUpdatesAfterUnmount(t *testing.T) {
	lb := realtimetest.New()
	cat := newFakeCatalog()
	cat.set(domain.BucketUpcoming, flight(1, domain.FlightStatusApproved))
	n := &recordingNotifier{}
	v := view.NewFlightsView(cat, &MockBooker{}, reducer.Viewer{UserID: 7}, options(lb, n, &countingRecorder{}, 10*time.Millisecond))
	require.NoError(t, v.Mount(context.Background()))
	waitDialed(t, lb, events.NamespaceFlights)
	updates, _ := v.Watch()

	v.Unmount()
	callsAtUnmount := cat.calls.Load()
	cat.set(domain.BucketUpcoming, flight(2, domain.FlightStatusApproved))

	assert.Zero(t, lb.Open(events.NamespaceFlights))
	assert.Zero(t, lb.Publish(events.NamespaceFlights, "flight_approved", map[string]interface{}{"flight": flight(42, domain.FlightStatusApproved)}))
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, []int64{1}, ids(v.Board().Upcoming))
	assert.Equal(t, callsAtUnmount, cat.calls.Load())
	assert.Empty(t, n.messages())
	assert.ErrorIs(t, v.Mount(context.Background()), view.ErrUnmounted)
	for range updates {
	}
}

func TestFlightsView_FilterAndBook(t *testing.T) {
	cat := newFakeCatalog()
	paris := flight(1, domain.FlightStatusApproved)
	paris.Name, paris.Origin, paris.Destination, paris.AirlineID = "JU500", "BEG", "CDG", 2
	rome := flight(2, domain.FlightStatusApproved)
	rome.Name, rome.Origin, rome.Destination, rome.AirlineID = "JU400", "BEG", "FCO", 3
	cat.set(domain.BucketUpcoming, paris, rome)

	booker := &MockBooker{}
	booker.On("BookFlight", mock.Anything, rome).Return(&apiclient.PurchaseReceipt{Message: "processing"}, nil).Once()

	v := view.NewFlightsView(cat, booker, reducer.Viewer{UserID: 7}, view.Options{Logger: logger.Discard()})
	require.NoError(t, v.Mount(context.Background()))
	defer v.Unmount()

	v.SetFilter(view.FlightFilter{Query: "cdg"})
	assert.Equal(t, []int64{1}, ids(v.Snapshot().Upcoming))
	v.SetFilter(view.FlightFilter{Query: "beg", AirlineID: 3})
	assert.Equal(t, []int64{2}, ids(v.Snapshot().Upcoming))

	receipt, err := v.Book(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "processing", receipt.Message)

	_, err = v.Book(context.Background(), 404)
	assert.ErrorIs(t, err, view.ErrFlightNotFound)
	booker.AssertExpectations(t)
}

func TestFlightsView_DiscardStaleEvents(t *testing.T) {
	lb := realtimetest.New()
	cat := newFakeCatalog()
	cat.set(domain.BucketUpcoming, flight(1, domain.FlightStatusApproved))
	opts := options(lb, &recordingNotifier{}, &countingRecorder{}, 0)
	opts.DiscardStale = true
	v := view.NewFlightsView(cat, &MockBooker{}, reducer.Viewer{UserID: 7}, opts)
	require.NoError(t, v.Mount(context.Background()))
	defer v.Unmount()
	waitDialed(t, lb, events.NamespaceFlights)

	lb.Publish(events.NamespaceFlights, "flight_status_changed", map[string]interface{}{"flight_id": 1, "status": domain.FlightStatusFinished, "version": 2})
	lb.Publish(events.NamespaceFlights, "flight_status_changed", map[string]interface{}{"flight_id": 1, "status": domain.FlightStatusInProgress, "version": 1})
	lb.Publish(events.NamespaceFlights, "flight_status_changed", map[string]interface{}{"flight_id": 1, "status": domain.FlightStatusCancelled, "version": 3})

	require.Eventually(t, func() bool {
		fs := v.Board().Finished
		return len(fs) == 1 && fs[0].Status == domain.FlightStatusCancelled
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, v.Board().InProgress)
}

func TestPendingView_ApproveRemovesLocally(t *testing.T) {
	cat := newFakeCatalog()
	cat.set(domain.BucketPending, flight(42, domain.FlightStatusAwaitingApproval), flight(43, domain.FlightStatusAwaitingApproval))
	approved := flight(42, domain.FlightStatusApproved)
	mod := &MockModerator{}
	mod.On("Approve", mock.Anything, int64(42)).Return(&approved, nil).Once()
	mod.On("Reject", mock.Anything, int64(43), "short").Return(nil, assert.AnError).Once()

	v := view.NewPendingView(cat, mod, reducer.Viewer{UserID: 1}, view.Options{Logger: logger.Discard()})
	require.NoError(t, v.Mount(context.Background()))
	defer v.Unmount()

	got, err := v.Approve(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, domain.FlightStatusApproved, got.Status)
	assert.Equal(t, []int64{43}, ids(v.Pending()))

	_, err = v.Reject(context.Background(), 43, "short")
	assert.Error(t, err)
	assert.Equal(t, []int64{43}, ids(v.Pending()))
	mod.AssertExpectations(t)
}

func TestPendingView_AdminEvents(t *testing.T) {
	lb := realtimetest.New()
	cat := newFakeCatalog()
	cat.set(domain.BucketPending, flight(1, domain.FlightStatusAwaitingApproval))
	n := &recordingNotifier{}
	v := view.NewPendingView(cat, &MockModerator{}, reducer.Viewer{UserID: 1}, options(lb, n, &countingRecorder{}, 0))
	require.NoError(t, v.Mount(context.Background()))
	defer v.Unmount()
	waitDialed(t, lb, events.NamespaceAdmin)

	lb.Publish(events.NamespaceAdmin, "new_flight_pending", map[string]interface{}{"flight": flight(2, domain.FlightStatusAwaitingApproval)})
	lb.Publish(events.NamespaceAdmin, "new_flight_pending", map[string]interface{}{"flight": flight(2, domain.FlightStatusAwaitingApproval)})
	edited := flight(1, domain.FlightStatusAwaitingApproval)
	edited.Price = 120
	lb.Publish(events.NamespaceAdmin, "flight_updated", map[string]interface{}{"flight": edited})

	require.Eventually(t, func() bool {
		p := v.Pending()
		return len(p) == 2 && p[1].Price == 120
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []int64{2, 1}, ids(v.Pending()))
}

func TestUserChannel_PurchaseSuccessRefreshesProfile(t *testing.T) {
	lb := realtimetest.New()
	n := &recordingNotifier{}
	profile := &MockProfile{}
	refreshed := make(chan struct{})
	profile.On("RefreshProfile", mock.Anything).Return(domain.User{ID: 7, Balance: 25}, nil).Once().
		Run(func(mock.Arguments) { close(refreshed) })

	c := view.NewUserChannel(profile, reducer.Viewer{UserID: 7}, options(lb, n, &countingRecorder{}, 0))
	require.NoError(t, c.Mount(context.Background()))
	defer c.Unmount()
	waitDialed(t, lb, events.NamespaceUser)

	ticket := domain.Ticket{ID: 1, FlightID: 42, Flight: &domain.Flight{ID: 42, Name: "JU500"}}
	lb.Publish(events.NamespaceUser, "purchase_success", map[string]interface{}{"user_id": 7, "ticket": ticket})
	lb.Publish(events.NamespaceUser, "purchase_failed", map[string]interface{}{"user_id": 7, "reason": "Insufficient funds"})

	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("profile was not refreshed")
	}
	require.Eventually(t, func() bool { return len(n.messages()) == 2 }, 2*time.Second, 10*time.Millisecond)
	msgs := n.messages()
	assert.Equal(t, notify.Success("Purchase successful", "Ticket for JU500 purchased successfully."), msgs[0])
	assert.Equal(t, notify.Error("Purchase failed", "Insufficient funds"), msgs[1])
	profile.AssertExpectations(t)
}

// blockingNotifier holds every Notify until its context is canceled.
type blockingNotifier struct {
	entered chan struct{}
}

func (n *blockingNotifier) Notify(ctx context.Context, _ notify.Message) {
	select {
	case n.entered <- struct{}{}:
	default:
	}
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}
}

func TestUserChannel_UnmountWhileNotifierBlocked(t *testing.T) {
	lb := realtimetest.New()
	n := &blockingNotifier{entered: make(chan struct{}, 1)}
	opts := view.Options{Transport: lb, Notifier: n, Logger: logger.Discard()}

	c := view.NewUserChannel(&MockProfile{}, reducer.Viewer{UserID: 7}, opts)
	require.NoError(t, c.Mount(context.Background()))
	waitDialed(t, lb, events.NamespaceUser)

	lb.Publish(events.NamespaceUser, "purchase_failed", map[string]interface{}{"user_id": 7, "reason": "Insufficient funds"})
	select {
	case <-n.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("notification never delivered")
	}

	start := time.Now()
	c.Unmount()
	assert.Less(t, time.Since(start), time.Second)
}

func TestUserChannel_UnmountWhileProfileRefreshBlocked(t *testing.T) {
	lb := realtimetest.New()
	profile := &MockProfile{}
	entered := make(chan struct{})
	profile.On("RefreshProfile", mock.Anything).Return(domain.User{}, context.Canceled).Once().
		Run(func(args mock.Arguments) {
			close(entered)
			<-args.Get(0).(context.Context).Done()
		})

	c := view.NewUserChannel(profile, reducer.Viewer{UserID: 7}, options(lb, &recordingNotifier{}, &countingRecorder{}, 0))
	require.NoError(t, c.Mount(context.Background()))
	waitDialed(t, lb, events.NamespaceUser)

	lb.Publish(events.NamespaceUser, "purchase_success", map[string]interface{}{"user_id": 7, "ticket": domain.Ticket{ID: 1, FlightID: 42}})
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("profile refresh never started")
	}

	done := make(chan struct{})
	go func() {
		c.Unmount()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Unmount waited for the profile refresh")
	}
	profile.AssertExpectations(t)
}

func TestFlightsView_BackToApprovalLeavesBoard(t *testing.T) {
	lb := realtimetest.New()
	cat := newFakeCatalog()
	cat.set(domain.BucketUpcoming, flight(1, domain.FlightStatusApproved), flight(2, domain.FlightStatusApproved))

	v := view.NewFlightsView(cat, &MockBooker{}, reducer.Viewer{UserID: 7}, options(lb, &recordingNotifier{}, &countingRecorder{}, 0))
	require.NoError(t, v.Mount(context.Background()))
	defer v.Unmount()
	waitDialed(t, lb, events.NamespaceFlights)

	lb.Publish(events.NamespaceFlights, "flight_status_changed", map[string]interface{}{"flight_id": 2, "status": domain.FlightStatusAwaitingApproval})
	require.Eventually(t, func() bool { return len(v.Board().Upcoming) == 1 }, 2*time.Second, 10*time.Millisecond)

	b := v.Board()
	assert.Empty(t, b.Pending)
	assert.Zero(t, b.Count(2))
	assert.Equal(t, 1, b.Count(1))
}
