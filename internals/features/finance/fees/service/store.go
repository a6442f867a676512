package service

import (
	"context"

	"github.com/google/uuid"

	"feeledger_backend/internals/features/finance/fees/model"
	schoolModel "feeledger_backend/internals/features/school/enrollments/model"
)

// AssignmentFilter selects fee assignments. StudentID and ClassID together match
// either target (union); a nil field does not constrain. The zero filter matches all.
type AssignmentFilter struct {
	StudentID       *uuid.UUID
	ClassID         *uuid.UUID
	FeeDefinitionID *uuid.UUID
}

// Catalog is the read side the resolver and the schedule builder need.
// Assignments come back with FeeDefinition and its installments loaded.
type Catalog interface {
	GetStudent(ctx context.Context, id uuid.UUID) (*schoolModel.Student, error)
	// GetActiveEnrollment returns the most recent active enrollment, or nil when there is none.
	GetActiveEnrollment(ctx context.Context, studentID uuid.UUID) (*schoolModel.Enrollment, error)
	FindAssignments(ctx context.Context, f AssignmentFilter) ([]model.FeeAssignment, error)
}

// Store is the persistence FeeService needs. Lookups by id return an
// apperror NotFound when the row is missing.
type Store interface {
	Catalog

	Transaction(ctx context.Context, fn func(Store) error) error

	CreateDefinition(ctx context.Context, def *model.FeeDefinition) error
	GetDefinition(ctx context.Context, id uuid.UUID) (*model.FeeDefinition, error)
	ListDefinitions(ctx context.Context, limit, offset int) ([]model.FeeDefinition, int64, error)
	// UpdateDefinition saves the row and replaces its installments.
	UpdateDefinition(ctx context.Context, def *model.FeeDefinition) error

	CreateAssignment(ctx context.Context, a *model.FeeAssignment) error
	GetAssignment(ctx context.Context, id uuid.UUID) (*model.FeeAssignment, error)
	DeleteAssignment(ctx context.Context, id uuid.UUID) error
}
