package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	inmemdb "feeledger_backend/internals/databases/inmem"
	"feeledger_backend/internals/features/finance/fees/model"
	schoolModel "feeledger_backend/internals/features/school/enrollments/model"
	"feeledger_backend/internals/helpers/apperror"
)

// MemoryStore implements Store on the in-memory database.
type MemoryStore struct {
	db *inmemdb.DB
	tx *inmemdb.Tables // set inside Transaction
}

func NewMemoryStore(db *inmemdb.DB) *MemoryStore { return &MemoryStore{db: db} }

// BindMemoryStore returns a store that works inside an already open write.
func BindMemoryStore(db *inmemdb.DB, tx *inmemdb.Tables) *MemoryStore {
	return &MemoryStore{db: db, tx: tx}
}

func (s *MemoryStore) read(fn func(t *inmemdb.Tables) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	return s.db.Read(fn)
}

func (s *MemoryStore) write(fn func(t *inmemdb.Tables) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	return s.db.Write(fn)
}

func (s *MemoryStore) Transaction(ctx context.Context, fn func(Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx != nil {
		return fn(s)
	}
	return s.db.Write(func(t *inmemdb.Tables) error {
		return fn(&MemoryStore{db: s.db, tx: t})
	})
}

func (s *MemoryStore) GetStudent(_ context.Context, id uuid.UUID) (*schoolModel.Student, error) {
	var out *schoolModel.Student
	err := s.read(func(t *inmemdb.Tables) error {
		m, ok := t.Students[id]
		if !ok {
			return apperror.NotFound("student %s not found", id)
		}
		out = &m
		return nil
	})
	return out, err
}

func (s *MemoryStore) GetActiveEnrollment(_ context.Context, studentID uuid.UUID) (*schoolModel.Enrollment, error) {
	var out *schoolModel.Enrollment
	err := s.read(func(t *inmemdb.Tables) error {
		for _, e := range t.Enrollments {
			if e.EnrollmentStudentID != studentID || e.EnrollmentStatus != schoolModel.EnrollmentStatusActive {
				continue
			}
			if out == nil || e.EnrollmentStartedAt.After(out.EnrollmentStartedAt) {
				out = &e
			}
		}
		return nil
	})
	return out, err
}

// definition returns a copy with its installments attached.
func definition(t *inmemdb.Tables, id uuid.UUID) (*model.FeeDefinition, bool) {
	def, ok := t.FeeDefinitions[id]
	if !ok {
		return nil, false
	}
	def.FeeDefinitionInstallments = append([]model.FeeInstallment(nil), t.FeeInstallments[id]...)
	return &def, true
}

func (s *MemoryStore) FindAssignments(_ context.Context, f AssignmentFilter) ([]model.FeeAssignment, error) {
	var out []model.FeeAssignment
	err := s.read(func(t *inmemdb.Tables) error {
		for _, a := range t.FeeAssignments {
			if !f.matches(a) {
				continue
			}
			a.FeeDefinition, _ = definition(t, a.FeeAssignmentFeeDefinitionID)
			out = append(out, a)
		}
		return nil
	})
	return out, err
}

func (f AssignmentFilter) matches(a model.FeeAssignment) bool {
	if f.FeeDefinitionID != nil && a.FeeAssignmentFeeDefinitionID != *f.FeeDefinitionID {
		return false
	}
	if f.StudentID == nil && f.ClassID == nil {
		return true
	}
	if f.StudentID != nil && a.FeeAssignmentStudentID != nil && *a.FeeAssignmentStudentID == *f.StudentID {
		return true
	}
	return f.ClassID != nil && a.FeeAssignmentClassID != nil && *a.FeeAssignmentClassID == *f.ClassID
}

func (s *MemoryStore) CreateDefinition(_ context.Context, def *model.FeeDefinition) error {
	return s.write(func(t *inmemdb.Tables) error {
		now := time.Now()
		if def.FeeDefinitionID == uuid.Nil {
			def.FeeDefinitionID = uuid.New()
		}
		def.FeeDefinitionCreatedAt, def.FeeDefinitionUpdatedAt = now, now
		putDefinition(t, *def)
		return nil
	})
}

func putDefinition(t *inmemdb.Tables, def model.FeeDefinition) {
	insts := make([]model.FeeInstallment, len(def.FeeDefinitionInstallments))
	for i, in := range def.FeeDefinitionInstallments {
		if in.FeeInstallmentID == uuid.Nil {
			in.FeeInstallmentID = uuid.New()
		}
		in.FeeInstallmentFeeDefinitionID = def.FeeDefinitionID
		insts[i] = in
	}
	sort.SliceStable(insts, func(i, j int) bool { return insts[i].FeeInstallmentIndex < insts[j].FeeInstallmentIndex })
	def.FeeDefinitionInstallments = nil
	t.FeeDefinitions[def.FeeDefinitionID] = def
	t.FeeInstallments[def.FeeDefinitionID] = insts
}

func (s *MemoryStore) GetDefinition(_ context.Context, id uuid.UUID) (*model.FeeDefinition, error) {
	var out *model.FeeDefinition
	err := s.read(func(t *inmemdb.Tables) error {
		def, ok := definition(t, id)
		if !ok {
			return apperror.NotFound("fee definition %s not found", id)
		}
		out = def
		return nil
	})
	return out, err
}

func (s *MemoryStore) ListDefinitions(_ context.Context, limit, offset int) ([]model.FeeDefinition, int64, error) {
	var all []model.FeeDefinition
	err := s.read(func(t *inmemdb.Tables) error {
		for id := range t.FeeDefinitions {
			def, _ := definition(t, id)
			all = append(all, *def)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].FeeDefinitionCreatedAt.Equal(all[j].FeeDefinitionCreatedAt) {
			return all[i].FeeDefinitionCreatedAt.After(all[j].FeeDefinitionCreatedAt)
		}
		return all[i].FeeDefinitionID.String() < all[j].FeeDefinitionID.String()
	})
	return page(all, limit, offset), int64(len(all)), nil
}

func page[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func (s *MemoryStore) UpdateDefinition(_ context.Context, def *model.FeeDefinition) error {
	return s.write(func(t *inmemdb.Tables) error {
		if _, ok := t.FeeDefinitions[def.FeeDefinitionID]; !ok {
			return apperror.NotFound("fee definition %s not found", def.FeeDefinitionID)
		}
		def.FeeDefinitionUpdatedAt = time.Now()
		putDefinition(t, *def)
		return nil
	})
}

func (s *MemoryStore) CreateAssignment(_ context.Context, a *model.FeeAssignment) error {
	return s.write(func(t *inmemdb.Tables) error {
		if a.FeeAssignmentID == uuid.Nil {
			a.FeeAssignmentID = uuid.New()
		}
		a.FeeAssignmentCreatedAt = time.Now()
		row := *a
		row.FeeDefinition = nil
		t.FeeAssignments[row.FeeAssignmentID] = row
		return nil
	})
}

func (s *MemoryStore) GetAssignment(_ context.Context, id uuid.UUID) (*model.FeeAssignment, error) {
	var out *model.FeeAssignment
	err := s.read(func(t *inmemdb.Tables) error {
		a, ok := t.FeeAssignments[id]
		if !ok {
			return apperror.NotFound("fee assignment %s not found", id)
		}
		a.FeeDefinition, _ = definition(t, a.FeeAssignmentFeeDefinitionID)
		out = &a
		return nil
	})
	return out, err
}

func (s *MemoryStore) DeleteAssignment(_ context.Context, id uuid.UUID) error {
	return s.write(func(t *inmemdb.Tables) error {
		if _, ok := t.FeeAssignments[id]; !ok {
			return apperror.NotFound("fee assignment %s not found", id)
		}
		delete(t.FeeAssignments, id)
		return nil
	})
}
