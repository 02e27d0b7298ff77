package usecase

import (
	"context"
	"time"

	"hotel-booking/internal/apperror"
	"hotel-booking/internal/data/entity"
	"hotel-booking/internal/data/repository"
	"hotel-booking/internal/dto/request"
	"hotel-booking/internal/dto/response"
	"hotel-booking/pkg/utils"

	"go.uber.org/zap"
)

type AvailabilityService interface {
	// Search returns one page of units free for the whole stay, cheapest first.
	Search(ctx context.Context, req *request.SearchAvailabilityRequest) (*response.AvailabilityResponse, error)
}

type availabilityService struct {
	repo repository.UnitRepository
	now  func() time.Time
	log  *zap.Logger
}

func NewAvailabilityService(repo repository.UnitRepository, now func() time.Time, log *zap.Logger) AvailabilityService {
	return &availabilityService{
		repo: repo,
		now:  now,
		log:  log.With(zap.String("service", "availability")),
	}
}

func (s *availabilityService) Search(ctx context.Context, req *request.SearchAvailabilityRequest) (*response.AvailabilityResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = req.Limit()
	}

	errs := utils.ValidateStruct(req)
	stay, stayErrs := validateStay(req.CheckIn, req.CheckOut, utils.Today(s.now()))
	if len(stayErrs) > 0 {
		errs = mergeErrors(errs, stayErrs)
	}
	if len(errs) > 0 {
		s.log.Warn("Availability search validation failed", zap.Any("errors", errs))
		return nil, apperror.Validation(errs)
	}

	units, total, err := s.repo.SearchAvailable(ctx, entity.AvailabilityQuery{
		Stay:   stay,
		Guests: req.Guests,
		Type:   req.Type,
		Limit:  req.Limit(),
		Offset: req.Offset(),
	})
	if err != nil {
		return nil, storageError("search availability", err)
	}

	items := make([]response.AvailableUnitResponse, 0, len(units))
	for _, u := range units {
		quote := PriceStay(u, stay, nil)
		items = append(items, response.AvailableUnitResponse{
			UnitResponse: response.UnitToResponse(u),
			Nights:       quote.Nights,
			Subtotal:     quote.Subtotal.StringFixed(2),
		})
	}

	s.log.Debug("Availability search",
		zap.String("check_in", req.CheckIn),
		zap.String("check_out", req.CheckOut),
		zap.Int("guests", req.Guests),
		zap.Int64("total", total),
	)

	return &response.AvailabilityResponse{
		CheckIn:           req.CheckIn,
		CheckOut:          req.CheckOut,
		Guests:            req.Guests,
		PaginatedResponse: response.NewPaginatedResponse(items, req.Page, req.Limit(), total),
	}, nil
}
