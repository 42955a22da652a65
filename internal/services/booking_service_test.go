package services

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/railbook/railway-booking-backend/internal/database"
	"github.com/railbook/railway-booking-backend/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memLedger is an in-memory stand-in for the bookings ledger. It honors the
// same contracts as the Postgres implementation: LockTrain blocks until no
// other transaction holds the train, counts see only committed rows, inserts
// enforce uniqueness on (user, train, date), and rollback discards all
// pending writes.
type memLedger struct {
	mu       sync.Mutex
	trains   map[int64]models.Train
	bookings []models.Booking
	nextID   int64

	trainLocks map[int64]*sync.Mutex

	failCommit bool
	failCount  bool
}

func newMemLedger(trains ...models.Train) *memLedger {
	l := &memLedger{
		trains:     make(map[int64]models.Train),
		trainLocks: make(map[int64]*sync.Mutex),
	}
	for _, t := range trains {
		l.trains[t.ID] = t
		l.trainLocks[t.ID] = &sync.Mutex{}
	}
	return l
}

func (l *memLedger) Begin() (database.BookingTx, error) {
	return &memTx{ledger: l}, nil
}

func (l *memLedger) countCommitted(trainID int64, date time.Time) int {
	count := 0
	for _, b := range l.bookings {
		if b.TrainID == trainID && b.BookingDate.Equal(date) {
			count++
		}
	}
	return count
}

// TrainStore / BookingCounter implementations so the availability service can
// run against the same data set.

func (l *memLedger) GetByID(trainID int64) (*models.Train, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	train, ok := l.trains[trainID]
	if !ok {
		return nil, database.ErrTrainNotFound
	}
	return &train, nil
}

func (l *memLedger) ListByRoute(source, destination string) ([]models.Train, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	trains := []models.Train{}
	for _, t := range l.trains {
		if t.SourceStation == source && t.DestinationStation == destination {
			trains = append(trains, t)
		}
	}
	return trains, nil
}

func (l *memLedger) CountBookings(trainID int64, date time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.countCommitted(trainID, date), nil
}

type memTx struct {
	ledger  *memLedger
	lock    *sync.Mutex
	pending []models.Booking
	done    bool
}

func (t *memTx) LockTrain(trainID int64) (*models.Train, error) {
	t.ledger.mu.Lock()
	train, ok := t.ledger.trains[trainID]
	if !ok {
		t.ledger.mu.Unlock()
		return nil, database.ErrTrainNotFound
	}
	lock := t.ledger.trainLocks[trainID]
	t.ledger.mu.Unlock()

	lock.Lock()
	t.lock = lock
	return &train, nil
}

func (t *memTx) CountBookings(trainID int64, date time.Time) (int, error) {
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()
	if t.ledger.failCount {
		return 0, fmt.Errorf("connection reset")
	}
	return t.ledger.countCommitted(trainID, date), nil
}

func (t *memTx) InsertBooking(trainID, userID int64, date time.Time) (*models.Booking, error) {
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()

	for _, b := range t.ledger.bookings {
		if b.UserID == userID && b.TrainID == trainID && b.BookingDate.Equal(date) {
			return nil, database.ErrDuplicateBooking
		}
	}
	for _, b := range t.pending {
		if b.UserID == userID && b.TrainID == trainID && b.BookingDate.Equal(date) {
			return nil, database.ErrDuplicateBooking
		}
	}

	t.ledger.nextID++
	booking := models.Booking{
		ID:          t.ledger.nextID,
		TrainID:     trainID,
		UserID:      userID,
		BookingDate: date,
		CreatedAt:   time.Now(),
	}
	t.pending = append(t.pending, booking)
	return &booking, nil
}

func (t *memTx) Commit() error {
	if t.done {
		return fmt.Errorf("transaction already closed")
	}
	t.done = true
	defer t.release()

	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()
	if t.ledger.failCommit {
		return fmt.Errorf("connection reset during commit")
	}
	t.ledger.bookings = append(t.ledger.bookings, t.pending...)
	t.pending = nil
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.pending = nil
	t.release()
	return nil
}

func (t *memTx) release() {
	if t.lock != nil {
		t.lock.Unlock()
		t.lock = nil
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testTrain(id int64, seats int) models.Train {
	return models.Train{
		ID:                 id,
		TrainName:          "Night Mail",
		SourceStation:      "Colombo",
		DestinationStation: "Kandy",
		TotalSeats:         seats,
	}
}

func TestBookSeatCapacityInvariant(t *testing.T) {
	const capacity = 5
	const extra = 3

	ledger := newMemLedger(testTrain(1, capacity))
	svc := NewBookingService(ledger, testLogger())

	var wg sync.WaitGroup
	results := make(chan error, capacity+extra)

	for i := 0; i < capacity+extra; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := svc.BookSeat(1, userID, "2024-06-01")
			results <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(results)

	succeeded, rejected := 0, 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, ErrNoSeatsAvailable)
			rejected++
		}
	}

	assert.Equal(t, capacity, succeeded)
	assert.Equal(t, extra, rejected)

	date, _ := time.Parse(BookingDateLayout, "2024-06-01")
	count, err := ledger.CountBookings(1, date)
	require.NoError(t, err)
	assert.Equal(t, capacity, count)
}

func TestBookSeatDifferentDatesIndependent(t *testing.T) {
	ledger := newMemLedger(testTrain(1, 1))
	svc := NewBookingService(ledger, testLogger())

	_, err := svc.BookSeat(1, 10, "2024-06-01")
	require.NoError(t, err)

	// Same train, different date: capacity applies per date
	_, err = svc.BookSeat(1, 10, "2024-06-02")
	require.NoError(t, err)

	_, err = svc.BookSeat(1, 11, "2024-06-01")
	assert.ErrorIs(t, err, ErrNoSeatsAvailable)
}

func TestBookSeatDuplicateUser(t *testing.T) {
	t.Run("Sequential", func(t *testing.T) {
		ledger := newMemLedger(testTrain(1, 10))
		svc := NewBookingService(ledger, testLogger())

		booking, err := svc.BookSeat(1, 42, "2024-06-01")
		require.NoError(t, err)
		assert.NotZero(t, booking.ID)

		_, err = svc.BookSeat(1, 42, "2024-06-01")
		assert.ErrorIs(t, err, ErrDuplicateBooking)

		date, _ := time.Parse(BookingDateLayout, "2024-06-01")
		count, err := ledger.CountBookings(1, date)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("Concurrent", func(t *testing.T) {
		ledger := newMemLedger(testTrain(1, 10))
		svc := NewBookingService(ledger, testLogger())

		var wg sync.WaitGroup
		results := make(chan error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.BookSeat(1, 42, "2024-06-01")
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		succeeded, duplicates := 0, 0
		for err := range results {
			if err == nil {
				succeeded++
			} else {
				require.ErrorIs(t, err, ErrDuplicateBooking)
				duplicates++
			}
		}

		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, duplicates)
	})
}

func TestBookSeatTrainNotFound(t *testing.T) {
	ledger := newMemLedger(testTrain(1, 10))
	svc := NewBookingService(ledger, testLogger())

	_, err := svc.BookSeat(99, 1, "2024-06-01")
	assert.ErrorIs(t, err, ErrTrainNotFound)
}

func TestBookSeatInvalidDate(t *testing.T) {
	ledger := newMemLedger(testTrain(1, 10))
	svc := NewBookingService(ledger, testLogger())

	for _, date := range []string{"", "June 1st", "2024-13-40", "01-06-2024"} {
		_, err := svc.BookSeat(1, 1, date)
		assert.ErrorIs(t, err, ErrInvalidBookingDate, "date %q", date)
	}
}

func TestBookSeatAbortLeavesNoState(t *testing.T) {
	ledger := newMemLedger(testTrain(1, 10))
	svc := NewBookingService(ledger, testLogger())
	date, _ := time.Parse(BookingDateLayout, "2024-06-01")

	t.Run("Failure After Capacity Check", func(t *testing.T) {
		ledger.failCommit = true

		_, err := svc.BookSeat(1, 7, "2024-06-01")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStoreUnavailable)

		count, err := ledger.CountBookings(1, date)
		require.NoError(t, err)
		assert.Equal(t, 0, count, "aborted attempt must leave no booking row")
	})

	t.Run("Retry After Abort Is Safe", func(t *testing.T) {
		ledger.failCommit = false

		// The train lock must have been released by the abort; the retry with
		// identical arguments re-evaluates current state and succeeds once.
		booking, err := svc.BookSeat(1, 7, "2024-06-01")
		require.NoError(t, err)
		assert.NotZero(t, booking.ID)

		count, err := ledger.CountBookings(1, date)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestBookSeatCountFailure(t *testing.T) {
	ledger := newMemLedger(testTrain(1, 10))
	ledger.failCount = true
	svc := NewBookingService(ledger, testLogger())

	_, err := svc.BookSeat(1, 1, "2024-06-01")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	ledger.failCount = false
	_, err = svc.BookSeat(1, 1, "2024-06-01")
	assert.NoError(t, err)
}

func TestConcurrentBookingScenario(t *testing.T) {
	// capacity=2, three users race; exactly two seats are granted and a
	// subsequent availability query reports zero.
	ledger := newMemLedger(testTrain(1, 2))
	svc := NewBookingService(ledger, testLogger())
	availability := NewAvailabilityService(ledger, ledger)

	var wg sync.WaitGroup
	results := make(chan error, 3)
	for _, userID := range []int64{101, 102, 103} {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := svc.BookSeat(1, id, "2024-06-01")
			results <- err
		}(userID)
	}
	wg.Wait()
	close(results)

	succeeded, rejected := 0, 0
	for err := range results {
		if err == nil {
			succeeded++
		} else if errors.Is(err, ErrNoSeatsAvailable) {
			rejected++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, rejected)

	date, _ := time.Parse(BookingDateLayout, "2024-06-01")
	available, err := availability.AvailableSeats(1, date)
	require.NoError(t, err)
	assert.Equal(t, 0, available)
}

func TestAvailabilityAccounting(t *testing.T) {
	ledger := newMemLedger(testTrain(1, 5))
	svc := NewBookingService(ledger, testLogger())
	availability := NewAvailabilityService(ledger, ledger)
	date, _ := time.Parse(BookingDateLayout, "2024-06-01")

	available, err := availability.AvailableSeats(1, date)
	require.NoError(t, err)
	assert.Equal(t, 5, available)

	for _, userID := range []int64{1, 2, 3} {
		_, err := svc.BookSeat(1, userID, "2024-06-01")
		require.NoError(t, err)
	}

	available, err = availability.AvailableSeats(1, date)
	require.NoError(t, err)
	assert.Equal(t, 2, available)
}

func TestSearchByRoute(t *testing.T) {
	express := testTrain(1, 3)
	local := testTrain(2, 50)
	local.TrainName = "Slow Local"
	other := testTrain(3, 10)
	other.DestinationStation = "Galle"

	ledger := newMemLedger(express, local, other)
	svc := NewBookingService(ledger, testLogger())
	availability := NewAvailabilityService(ledger, ledger)
	date, _ := time.Parse(BookingDateLayout, "2024-06-01")

	for _, userID := range []int64{1, 2} {
		_, err := svc.BookSeat(1, userID, "2024-06-01")
		require.NoError(t, err)
	}

	results, err := availability.SearchByRoute("Colombo", "Kandy", date)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := map[int64]models.TrainAvailability{}
	for _, r := range results {
		byID[r.TrainID] = r
	}
	assert.Equal(t, 1, byID[1].AvailableSeats)
	assert.Equal(t, 50, byID[2].AvailableSeats)
}

func TestAvailabilityFlooredAtZero(t *testing.T) {
	// An over-allocated ledger must never surface negative availability.
	ledger := newMemLedger(testTrain(1, 2))
	availability := NewAvailabilityService(ledger, overCounter{count: 5})

	date, _ := time.Parse(BookingDateLayout, "2024-06-01")
	available, err := availability.AvailableSeats(1, date)
	require.NoError(t, err)
	assert.Equal(t, 0, available)
}

type overCounter struct {
	count int
}

func (c overCounter) CountBookings(trainID int64, date time.Time) (int, error) {
	return c.count, nil
}
