package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"hotel-booking/internal/apperror"
	"hotel-booking/internal/data/entity"
	"hotel-booking/internal/dto/request"
	"hotel-booking/internal/usecase"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type ReservationServiceTestSuite struct {
	suite.Suite
	ctx context.Context
	fx  *fixture
}

func (s *ReservationServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.fx = newFixture(usecase.Dependencies{})
}

func (s *ReservationServiceTestSuite) create(req *request.CreateReservationRequest) string {
	res, err := s.fx.svc.Reservation.Create(s.ctx, req, usecase.CreateOptions{})
	s.Require().NoError(err)
	return res.ID
}

func (s *ReservationServiceTestSuite) TestCreate_PricesStayWithFlatTax() {
	res, err := s.fx.svc.Reservation.Create(s.ctx, bookingRequest(unitU, "2025-06-01", "2025-06-03", 2), usecase.CreateOptions{})

	s.Require().NoError(err)
	s.Equal("200.00", res.Subtotal)
	s.Equal("16.00", res.Tax)
	s.Equal("216.00", res.Total)
	s.Equal(2, res.Nights)
	s.Equal(entity.ReservationStatusPending, res.Status)
	s.False(res.Paid)
	s.Len(res.ConfirmationCode, 10)
}

func (s *ReservationServiceTestSuite) TestCreate_TaxPolicyOverride() {
	res, err := s.fx.svc.Reservation.Create(s.ctx, bookingRequest(unitU, "2025-06-01", "2025-06-03", 2), usecase.CreateOptions{
		Tax: usecase.FlatRateTax{Rate: decimal.Zero},
	})

	s.Require().NoError(err)
	s.Equal("0.00", res.Tax)
	s.Equal("200.00", res.Total)
}

func (s *ReservationServiceTestSuite) TestCreate_OverlapIsConflict() {
	s.create(bookingRequest(unitU, "2025-06-01", "2025-06-03", 2))

	_, err := s.fx.svc.Reservation.Create(s.ctx, bookingRequest(unitU, "2025-06-02", "2025-06-04", 1), usecase.CreateOptions{})

	s.Require().Error(err)
	s.True(errors.Is(err, apperror.ErrConflict))
}

func (s *ReservationServiceTestSuite) TestCreate_TouchingStaysDoNotOverlap() {
	s.create(bookingRequest(unitU, "2025-06-01", "2025-06-03", 2))

	_, err := s.fx.svc.Reservation.Create(s.ctx, bookingRequest(unitU, "2025-06-03", "2025-06-05", 2), usecase.CreateOptions{})
	s.NoError(err)

	_, err = s.fx.svc.Reservation.Create(s.ctx, bookingRequest(unitU, "2025-05-30", "2025-06-01", 2), usecase.CreateOptions{})
	s.NoError(err)
}

func (s *ReservationServiceTestSuite) TestCreate_ConcurrentOverlappingExactlyOneWins() {
	const n = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			// all ranges share the night of 2025-06-02
			checkIn := []string{"2025-06-01", "2025-06-02"}[i%2]
			_, err := s.fx.svc.Reservation.Create(context.Background(), bookingRequest(unitU, checkIn, "2025-06-03", 1), usecase.CreateOptions{})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperror.ErrConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	s.Empty(others)
	s.Equal(1, successes)
	s.Equal(n-1, conflicts)

	active, total, err := s.fx.repo.Reservation.List(s.ctx, entity.ReservationFilter{Limit: 100})
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Len(active, 1)
}

func (s *ReservationServiceTestSuite) TestCreate_ValidationFailures() {
	cases := []struct {
		name  string
		req   *request.CreateReservationRequest
		field string
	}{
		{"check-in in the past", bookingRequest(unitU, "2025-04-30", "2025-05-02", 1), "check_in"},
		{"check-out before check-in", bookingRequest(unitU, "2025-06-03", "2025-06-03", 1), "check_out"},
		{"malformed date", bookingRequest(unitU, "06/01/2025", "2025-06-03", 1), "check_in"},
		{"no guests", bookingRequest(unitU, "2025-06-01", "2025-06-03", 0), "guests"},
		{"over capacity", bookingRequest(unitU, "2025-06-01", "2025-06-03", 3), "guests"},
		{"bad email", func() *request.CreateReservationRequest {
			r := bookingRequest(unitU, "2025-06-01", "2025-06-03", 1)
			r.Email = "not-an-email"
			return r
		}(), "email"},
		{"blank name", func() *request.CreateReservationRequest {
			r := bookingRequest(unitU, "2025-06-01", "2025-06-03", 1)
			r.FirstName = "   "
			return r
		}(), "first_name"},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.fx.svc.Reservation.Create(s.ctx, tc.req, usecase.CreateOptions{})

			var appErr *apperror.Error
			s.Require().True(errors.As(err, &appErr), "got %v", err)
			s.Equal(apperror.KindValidation, appErr.Kind)
			s.Contains(appErr.Fields, tc.field)
		})
	}
}

func (s *ReservationServiceTestSuite) TestCreate_UnknownUnit() {
	_, err := s.fx.svc.Reservation.Create(s.ctx, bookingRequest(uuid.New(), "2025-06-01", "2025-06-03", 1), usecase.CreateOptions{})

	s.True(errors.Is(err, apperror.ErrNotFound))
}

func (s *ReservationServiceTestSuite) TestCreate_IdempotencyKeyReturnsFirstReservation() {
	fx := newFixture(usecase.Dependencies{Guard: newMemGuard()})
	opts := usecase.CreateOptions{IdempotencyKey: "form-123", UserID: &guestUID}

	first, err := fx.svc.Reservation.Create(s.ctx, bookingRequest(unitU, "2025-06-01", "2025-06-03", 2), opts)
	s.Require().NoError(err)

	second, err := fx.svc.Reservation.Create(s.ctx, bookingRequest(unitU, "2025-06-01", "2025-06-03", 2), opts)
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.Equal(first.ConfirmationCode, second.ConfirmationCode)
}

func (s *ReservationServiceTestSuite) TestCreate_FailedSubmissionReleasesKey() {
	fx := newFixture(usecase.Dependencies{Guard: newMemGuard()})
	opts := usecase.CreateOptions{IdempotencyKey: "form-456"}

	_, err := fx.svc.Reservation.Create(s.ctx, bookingRequest(unitU, "2025-06-01", "2025-06-03", 5), opts)
	s.Require().Error(err)

	_, err = fx.svc.Reservation.Create(s.ctx, bookingRequest(unitU, "2025-06-01", "2025-06-03", 2), opts)
	s.NoError(err)
}

func (s *ReservationServiceTestSuite) TestTransition_RoundTrip() {
	created, err := s.fx.svc.Reservation.Create(s.ctx, bookingRequest(unitU, "2025-06-01", "2025-06-03", 2), usecase.CreateOptions{})
	s.Require().NoError(err)

	_, err = s.fx.svc.Reservation.Transition(s.ctx, created.ID, &request.TransitionReservationRequest{Status: "confirmed"})
	s.Require().NoError(err)
	s.fx.svc.Dispatch.Wait()

	got, err := s.fx.svc.Reservation.GetReservation(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(entity.ReservationStatusConfirmed, got.Status)
	s.Equal(created.Paid, got.Paid)
	s.Equal(created.ConfirmationCode, got.ConfirmationCode)

	s.Equal([]string{string(entity.DispatchBookingConfirmed)}, s.fx.sender.kinds())
	s.Require().Len(got.Notifications, 1)
	s.Equal(entity.DispatchOutcomeSent, got.Notifications[0].Outcome)
}

func (s *ReservationServiceTestSuite) TestTransition_FullLifecycle() {
	id := s.create(bookingRequest(unitU, "2025-06-01", "2025-06-03", 2))

	for _, next := range []string{"confirmed", "checked_in", "checked_out"} {
		res, err := s.fx.svc.Reservation.Transition(s.ctx, id, &request.TransitionReservationRequest{Status: next})
		s.Require().NoError(err, next)
		s.Equal(entity.ReservationStatus(next), res.Status)
	}
	s.fx.svc.Dispatch.Wait()
}

func (s *ReservationServiceTestSuite) TestTransition_ClosedStatesStayClosed() {
	all := []string{"pending", "confirmed", "checked_in", "checked_out", "cancelled"}

	checkedOut := s.create(bookingRequest(unitU, "2025-06-01", "2025-06-03", 2))
	for _, next := range []string{"confirmed", "checked_in", "checked_out"} {
		_, err := s.fx.svc.Reservation.Transition(s.ctx, checkedOut, &request.TransitionReservationRequest{Status: next})
		s.Require().NoError(err)
	}
	cancelled := s.create(bookingRequest(unitS, "2025-06-01", "2025-06-03", 2))
	_, err := s.fx.svc.Reservation.Cancel(s.ctx, cancelled, &request.CancelReservationRequest{})
	s.Require().NoError(err)

	for _, id := range []string{checkedOut, cancelled} {
		before, err := s.fx.svc.Reservation.GetReservation(s.ctx, id)
		s.Require().NoError(err)

		for _, next := range all {
			_, err := s.fx.svc.Reservation.Transition(s.ctx, id, &request.TransitionReservationRequest{Status: next})
			s.True(errors.Is(err, apperror.ErrInvalidTransition), "%s -> %s: %v", before.Status, next, err)
		}

		after, err := s.fx.svc.Reservation.GetReservation(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(before.Status, after.Status)
	}
	s.fx.svc.Dispatch.Wait()
}

func (s *ReservationServiceTestSuite) TestTransition_InvalidMoveIsRejected() {
	id := s.create(bookingRequest(unitU, "2025-06-01", "2025-06-03", 2))

	_, err := s.fx.svc.Reservation.Transition(s.ctx, id, &request.TransitionReservationRequest{Status: "checked_out"})

	s.True(errors.Is(err, apperror.ErrInvalidTransition))
}

func (s *ReservationServiceTestSuite) TestTransition_UnknownReservation() {
	_, err := s.fx.svc.Reservation.Transition(s.ctx, uuid.NewString(), &request.TransitionReservationRequest{Status: "confirmed"})

	s.True(errors.Is(err, apperror.ErrNotFound))
}

func (s *ReservationServiceTestSuite) TestTransition_RacingConfirmsOneWins() {
	id := s.create(bookingRequest(unitU, "2025-06-01", "2025-06-03", 2))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.fx.svc.Reservation.Transition(context.Background(), id, &request.TransitionReservationRequest{Status: "confirmed"})
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()
	s.fx.svc.Dispatch.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		s.True(errors.Is(err, apperror.ErrInvalidTransition), "%v", err)
	}
	s.Equal(1, ok)
	s.Equal(1, s.fx.sender.callCount())
}

func (s *ReservationServiceTestSuite) TestCancel_RecordsReasonAndFreesDates() {
	id := s.create(bookingRequest(unitU, "2025-06-01", "2025-06-03", 2))

	res, err := s.fx.svc.Reservation.Cancel(s.ctx, id, &request.CancelReservationRequest{})
	s.Require().NoError(err)
	s.Equal(entity.ReservationStatusCancelled, res.Status)
	s.Require().NotNil(res.CancellationReason)
	s.Equal(entity.DefaultCancellationReason, *res.CancellationReason)

	_, err = s.fx.svc.Reservation.Create(s.ctx, bookingRequest(unitU, "2025-06-02", "2025-06-04", 1), usecase.CreateOptions{})
	s.NoError(err)

	s.fx.svc.Dispatch.Wait()
	s.Equal([]string{string(entity.DispatchBookingCancelled)}, s.fx.sender.kinds())
}

func (s *ReservationServiceTestSuite) TestCancel_CustomReasonAndSecondCancelRejected() {
	id := s.create(bookingRequest(unitU, "2025-06-01", "2025-06-03", 2))
	reason := "guest request"

	res, err := s.fx.svc.Reservation.Cancel(s.ctx, id, &request.CancelReservationRequest{Reason: &reason})
	s.Require().NoError(err)
	s.Equal(reason, *res.CancellationReason)

	_, err = s.fx.svc.Reservation.Cancel(s.ctx, id, &request.CancelReservationRequest{})
	s.True(errors.Is(err, apperror.ErrInvalidTransition))
	s.fx.svc.Dispatch.Wait()
}

func (s *ReservationServiceTestSuite) TestLookup_ByCodeAndEmail() {
	created, err := s.fx.svc.Reservation.Create(s.ctx, bookingRequest(unitU, "2025-06-01", "2025-06-03", 2), usecase.CreateOptions{})
	s.Require().NoError(err)

	got, err := s.fx.svc.Reservation.Lookup(s.ctx, &request.LookupReservationRequest{
		Code:  created.ConfirmationCode,
		Email: "ADA@example.com",
	})
	s.Require().NoError(err)
	s.Equal(created.ID, got.ID)

	_, err = s.fx.svc.Reservation.Lookup(s.ctx, &request.LookupReservationRequest{
		Code:  created.ConfirmationCode,
		Email: "someone@example.com",
	})
	s.True(errors.Is(err, apperror.ErrNotFound))
}

func (s *ReservationServiceTestSuite) TestListReservations_FilterAndSearch() {
	first := s.create(bookingRequest(unitU, "2025-06-01", "2025-06-03", 2))
	other := bookingRequest(unitS, "2025-06-01", "2025-06-03", 2)
	other.FirstName, other.LastName, other.Email = "Grace", "Hopper", "grace@example.com"
	s.create(other)

	_, err := s.fx.svc.Reservation.Transition(s.ctx, first, &request.TransitionReservationRequest{Status: "confirmed"})
	s.Require().NoError(err)
	s.fx.svc.Dispatch.Wait()

	confirmed, err := s.fx.svc.Reservation.ListReservations(s.ctx, &request.ListReservationsRequest{Status: "confirmed"})
	s.Require().NoError(err)
	s.EqualValues(1, confirmed.Pagination.Total)
	s.Equal(first, confirmed.Data[0].ID)

	search, err := s.fx.svc.Reservation.ListReservations(s.ctx, &request.ListReservationsRequest{Search: "hopp"})
	s.Require().NoError(err)
	s.EqualValues(1, search.Pagination.Total)
	s.Equal("Grace", search.Data[0].Guest.FirstName)

	all, err := s.fx.svc.Reservation.ListReservations(s.ctx, &request.ListReservationsRequest{
		PaginatedRequest: request.PaginatedRequest{PageSize: 1},
	})
	s.Require().NoError(err)
	s.EqualValues(2, all.Pagination.Total)
	s.Equal(5, all.Pagination.PageSize)
	s.Len(all.Data, 2)
}

func (s *ReservationServiceTestSuite) TestGuestHistory_Scopes() {
	opts := usecase.CreateOptions{UserID: &guestUID}
	_, err := s.fx.svc.Reservation.Create(s.ctx, bookingRequest(unitU, "2025-06-01", "2025-06-03", 2), opts)
	s.Require().NoError(err)
	_, err = s.fx.svc.Reservation.Create(s.ctx, bookingRequest(unitS, "2025-07-01", "2025-07-03", 2), usecase.CreateOptions{})
	s.Require().NoError(err)

	upcoming, err := s.fx.svc.Reservation.GuestHistory(s.ctx, guestUID, &request.GuestHistoryRequest{Scope: "upcoming"})
	s.Require().NoError(err)
	s.Len(upcoming, 1)

	past, err := s.fx.svc.Reservation.GuestHistory(s.ctx, guestUID, &request.GuestHistoryRequest{Scope: "past"})
	s.Require().NoError(err)
	s.Empty(past)

	_, err = s.fx.svc.Reservation.GuestHistory(s.ctx, guestUID, &request.GuestHistoryRequest{Scope: "someday"})
	s.True(errors.Is(err, apperror.ErrValidation))
}

func TestReservationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReservationServiceTestSuite))
}
