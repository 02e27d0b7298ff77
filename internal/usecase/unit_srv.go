package usecase

import (
	"context"

	"hotel-booking/internal/apperror"
	"hotel-booking/internal/data/entity"
	"hotel-booking/internal/data/repository"
	"hotel-booking/internal/dto/response"

	"go.uber.org/zap"
)

type UnitService interface {
	ListUnits(ctx context.Context, minCapacity int, unitType string) ([]response.UnitResponse, error)
	GetUnit(ctx context.Context, id string) (*response.UnitResponse, error)
}

type unitService struct {
	repo repository.UnitRepository
	log  *zap.Logger
}

func NewUnitService(repo repository.UnitRepository, log *zap.Logger) UnitService {
	return &unitService{
		repo: repo,
		log:  log.With(zap.String("service", "unit")),
	}
}

func (s *unitService) ListUnits(ctx context.Context, minCapacity int, unitType string) ([]response.UnitResponse, error) {
	units, err := s.repo.List(ctx, entity.UnitFilter{MinCapacity: minCapacity, Type: unitType})
	if err != nil {
		return nil, storageError("list units", err)
	}

	out := make([]response.UnitResponse, 0, len(units))
	for _, u := range units {
		out = append(out, response.UnitToResponse(u))
	}
	return out, nil
}

func (s *unitService) GetUnit(ctx context.Context, id string) (*response.UnitResponse, error) {
	unitID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}

	unit, err := s.repo.FindByID(ctx, unitID)
	if err != nil {
		return nil, storageError("get unit", err)
	}
	if unit == nil {
		return nil, apperror.NotFound("unit", id)
	}

	resp := response.UnitToResponse(unit)
	return &resp, nil
}
