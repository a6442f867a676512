package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"feeledger_backend/internals/features/finance/fees/dto"
	"feeledger_backend/internals/features/finance/fees/model"
	"feeledger_backend/internals/helpers/apperror"
	"feeledger_backend/internals/logger"
)

var errAssignmentSurvived = errors.New("fee assignment still present after delete")

// FeeService is the administrator side: fee definitions and their assignments.
type FeeService struct {
	store Store
	log   zerolog.Logger
}

func NewFeeService(store Store) *FeeService {
	return &FeeService{store: store, log: logger.WithComponent("fee_admin")}
}

func (s *FeeService) CreateDefinition(ctx context.Context, req dto.CreateFeeDefinitionRequest) (*model.FeeDefinition, error) {
	def, err := req.ToModel()
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateDefinition(ctx, &def); err != nil {
		return nil, apperror.Internal(err, "create fee definition")
	}
	s.log.Info().Str("fee_definition_id", def.FeeDefinitionID.String()).Str("name", def.FeeDefinitionName).Msg("fee definition created")
	return &def, nil
}

func (s *FeeService) GetDefinition(ctx context.Context, id uuid.UUID) (*model.FeeDefinition, error) {
	def, err := s.store.GetDefinition(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err, "load fee definition")
	}
	return def, nil
}

func (s *FeeService) ListDefinitions(ctx context.Context, limit, offset int) ([]model.FeeDefinition, int64, error) {
	rows, total, err := s.store.ListDefinitions(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperror.Internal(err, "list fee definitions")
	}
	return rows, total, nil
}

// UpdateDefinition replaces the definition, installments included. Schedules
// already built keep their snapshot; only later builds see the change.
func (s *FeeService) UpdateDefinition(ctx context.Context, id uuid.UUID, req dto.UpdateFeeDefinitionRequest) (*model.FeeDefinition, error) {
	next, err := req.ToModel()
	if err != nil {
		return nil, err
	}
	var out *model.FeeDefinition
	err = s.store.Transaction(ctx, func(st Store) error {
		cur, err := st.GetDefinition(ctx, id)
		if err != nil {
			return err
		}
		next.FeeDefinitionID = cur.FeeDefinitionID
		next.FeeDefinitionCreatedAt = cur.FeeDefinitionCreatedAt
		for i := range next.FeeDefinitionInstallments {
			next.FeeDefinitionInstallments[i].FeeInstallmentFeeDefinitionID = cur.FeeDefinitionID
		}
		if err := st.UpdateDefinition(ctx, &next); err != nil {
			return err
		}
		out = &next
		return nil
	})
	if err != nil {
		return nil, apperror.Internal(err, "update fee definition")
	}
	return out, nil
}

func (s *FeeService) CreateAssignment(ctx context.Context, req dto.CreateFeeAssignmentRequest) (*model.FeeAssignment, error) {
	a, err := req.ToModel()
	if err != nil {
		return nil, err
	}
	err = s.store.Transaction(ctx, func(st Store) error {
		def, err := st.GetDefinition(ctx, a.FeeAssignmentFeeDefinitionID)
		if err != nil {
			return err
		}
		if a.FeeAssignmentStudentID != nil {
			if _, err := st.GetStudent(ctx, *a.FeeAssignmentStudentID); err != nil {
				return err
			}
		}
		if err := st.CreateAssignment(ctx, &a); err != nil {
			return err
		}
		a.FeeDefinition = def
		return nil
	})
	if err != nil {
		return nil, apperror.Internal(err, "create fee assignment")
	}
	s.log.Info().Str("fee_assignment_id", a.FeeAssignmentID.String()).Msg("fee assignment created")
	return &a, nil
}

func (s *FeeService) ListAssignments(ctx context.Context, f AssignmentFilter) ([]model.FeeAssignment, error) {
	rows, err := s.store.FindAssignments(ctx, f)
	if err != nil {
		return nil, apperror.Internal(err, "list fee assignments")
	}
	return Applicable(rows, nil, nil), nil
}

// DeleteAssignment removes the row for good and reads it back to make sure it is gone.
func (s *FeeService) DeleteAssignment(ctx context.Context, id uuid.UUID) error {
	if _, err := s.store.GetAssignment(ctx, id); err != nil {
		return apperror.Internal(err, "load fee assignment")
	}
	if err := s.store.DeleteAssignment(ctx, id); err != nil {
		return apperror.Internal(err, "delete fee assignment")
	}

	_, err := s.store.GetAssignment(ctx, id)
	if err == nil {
		return apperror.Internal(errAssignmentSurvived, "verify fee assignment delete")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return apperror.Internal(err, "verify fee assignment delete")
	}
	s.log.Info().Str("fee_assignment_id", id.String()).Msg("fee assignment deleted")
	return nil
}
