package usecase_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"hotel-booking/internal/data/entity"
	"hotel-booking/internal/data/memstore"
	"hotel-booking/internal/data/repository"
	"hotel-booking/internal/dto/request"
	"hotel-booking/internal/integration/guard"
	"hotel-booking/internal/integration/notify"
	"hotel-booking/internal/integration/processor"
	"hotel-booking/internal/usecase"
	"hotel-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

var (
	fixedNow = time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

	unitU    = uuid.MustParse("11111111-1111-4111-8111-111111111111")
	unitS    = uuid.MustParse("22222222-2222-4222-8222-222222222222")
	unitBig  = uuid.MustParse("33333333-3333-4333-8333-333333333333")
	guestUID = uuid.MustParse("44444444-4444-4444-8444-444444444444")
)

func testConfig() *utils.Config {
	return &utils.Config{
		App: utils.AppConfig{Name: "hotel-booking-test"},
		Booking: utils.BookingConfig{
			TaxRate:         decimal.RequireFromString("0.08"),
			Currency:        "usd",
			DefaultPageSize: 20,
		},
		Payment:  utils.PaymentConfig{Timeout: 200 * time.Millisecond},
		Dispatch: utils.DispatchConfig{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxRedeliveries: 2},
	}
}

// seededStore holds three units: U (cap 2, 100.00), S (cap 2, 80.00 suite) and
// Big (cap 6, 300.00 suite).
func seededStore() *memstore.Store {
	store := memstore.New(2 * time.Second)
	store.AddUnit(entity.Unit{ID: unitU, RoomNumber: "101", Type: "standard", Capacity: 2,
		NightlyRate: decimal.RequireFromString("100.00"), Status: entity.UnitStatusAvailable})
	store.AddUnit(entity.Unit{ID: unitS, RoomNumber: "102", Type: "suite", Capacity: 2,
		NightlyRate: decimal.RequireFromString("80.00"), Status: entity.UnitStatusAvailable})
	store.AddUnit(entity.Unit{ID: unitBig, RoomNumber: "301", Type: "suite", Capacity: 6,
		NightlyRate: decimal.RequireFromString("300.00"), Status: entity.UnitStatusCleaning})
	return store
}

type fixture struct {
	store  *memstore.Store
	repo   *repository.Repository
	svc    *usecase.Service
	sender *recordingSender
}

func newFixture(deps usecase.Dependencies) *fixture {
	store := seededStore()
	repo := store.Repository()

	sender := &recordingSender{}
	if deps.Notifier == nil {
		deps.Notifier = sender
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return fixedNow }
	}

	return &fixture{
		store:  store,
		repo:   repo,
		svc:    usecase.NewService(repo, deps, testConfig(), zap.NewNop()),
		sender: sender,
	}
}

func bookingRequest(unitID uuid.UUID, checkIn, checkOut string, guests int) *request.CreateReservationRequest {
	return &request.CreateReservationRequest{
		UnitID:    unitID.String(),
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Guests:    guests,
	}
}

// recordingSender records delivered messages. The first failures calls fail.
type recordingSender struct {
	mu       sync.Mutex
	failures int
	err      error
	sent     []notify.Message
	calls    int
}

func (s *recordingSender) Send(_ context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.failures > 0 {
		s.failures--
		if s.err != nil {
			return s.err
		}
		return errors.New("broker unavailable")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.sent))
	for _, m := range s.sent {
		out = append(out, m.Kind)
	}
	return out
}

func (s *recordingSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// memGuard is an in-process SubmissionGuard.
type memGuard struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemGuard() *memGuard { return &memGuard{keys: make(map[string]string)} }

func (g *memGuard) Begin(_ context.Context, key string) (uuid.UUID, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	val, ok := g.keys[key]
	if !ok {
		g.keys[key] = "pending"
		return uuid.Nil, true, nil
	}
	if val == "pending" {
		return uuid.Nil, false, guard.ErrInFlight
	}
	return uuid.MustParse(val), false, nil
}

func (g *memGuard) Complete(_ context.Context, key string, id uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.keys[key] = id.String()
	return nil
}

func (g *memGuard) Abort(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
	return nil
}

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) CreateIntent(ctx context.Context, req processor.IntentRequest) (*processor.Intent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*processor.Intent), args.Error(1)
}
