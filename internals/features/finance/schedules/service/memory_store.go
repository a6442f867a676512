package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	inmemdb "feeledger_backend/internals/databases/inmem"
	feeModel "feeledger_backend/internals/features/finance/fees/model"
	feeService "feeledger_backend/internals/features/finance/fees/service"
	"feeledger_backend/internals/features/finance/schedules/model"
	schoolModel "feeledger_backend/internals/features/school/enrollments/model"
	"feeledger_backend/internals/helpers/apperror"
)

// MemoryStore implements Store on the in-memory database.
type MemoryStore struct {
	db *inmemdb.DB
	tx *inmemdb.Tables
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
		return fn(BindMemoryStore(s.db, t))
	})
}

func (s *MemoryStore) GetEnrollment(_ context.Context, id uuid.UUID) (*schoolModel.Enrollment, error) {
	var out *schoolModel.Enrollment
	err := s.read(func(t *inmemdb.Tables) error {
		e, ok := t.Enrollments[id]
		if !ok {
			return apperror.NotFound("enrollment %s not found", id)
		}
		out = &e
		return nil
	})
	return out, err
}

func (s *MemoryStore) FindAssignments(ctx context.Context, f feeService.AssignmentFilter) ([]feeModel.FeeAssignment, error) {
	return feeService.BindMemoryStore(s.db, s.tx).FindAssignments(ctx, f)
}

func (s *MemoryStore) GetSchedule(_ context.Context, id uuid.UUID) (*model.PaymentSchedule, error) {
	var out *model.PaymentSchedule
	err := s.read(func(t *inmemdb.Tables) error {
		m, ok := t.Schedules[id]
		if !ok {
			return apperror.NotFound("payment schedule %s not found", id)
		}
		out = &m
		return nil
	})
	return out, err
}

// LockSchedule is GetSchedule: a write already holds the whole database.
func (s *MemoryStore) LockSchedule(ctx context.Context, id uuid.UUID) (*model.PaymentSchedule, error) {
	return s.GetSchedule(ctx, id)
}

func (s *MemoryStore) FindScheduleByEnrollment(_ context.Context, enrollmentID uuid.UUID) (*model.PaymentSchedule, error) {
	var out *model.PaymentSchedule
	err := s.read(func(t *inmemdb.Tables) error {
		out = scheduleByEnrollment(t, enrollmentID)
		return nil
	})
	return out, err
}

func scheduleByEnrollment(t *inmemdb.Tables, enrollmentID uuid.UUID) *model.PaymentSchedule {
	for _, m := range t.Schedules {
		if m.PaymentScheduleEnrollmentID == enrollmentID {
			return &m
		}
	}
	return nil
}

func (s *MemoryStore) ListSchedules(_ context.Context, f ScheduleFilter, limit, offset int) ([]model.PaymentSchedule, int64, error) {
	var all []model.PaymentSchedule
	err := s.read(func(t *inmemdb.Tables) error {
		for _, m := range t.Schedules {
			if f.StudentID != nil && m.PaymentScheduleStudentID != *f.StudentID {
				continue
			}
			if f.Status != nil && m.PaymentScheduleStatus != *f.Status {
				continue
			}
			all = append(all, m)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].PaymentScheduleGeneratedAt.Equal(all[j].PaymentScheduleGeneratedAt) {
			return all[i].PaymentScheduleGeneratedAt.After(all[j].PaymentScheduleGeneratedAt)
		}
		return all[i].PaymentScheduleID.String() < all[j].PaymentScheduleID.String()
	})
	total := int64(len(all))
	if offset >= len(all) {
		return []model.PaymentSchedule{}, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (s *MemoryStore) CreateSchedule(_ context.Context, sched *model.PaymentSchedule) error {
	return s.write(func(t *inmemdb.Tables) error {
		if scheduleByEnrollment(t, sched.PaymentScheduleEnrollmentID) != nil {
			return apperror.Conflict("enrollment %s already has a payment schedule", sched.PaymentScheduleEnrollmentID)
		}
		if sched.PaymentScheduleID == uuid.Nil {
			sched.PaymentScheduleID = uuid.New()
		}
		sched.PaymentScheduleUpdatedAt = time.Now()
		putItems(t, sched.PaymentScheduleID, sched.PaymentScheduleItems)

		row := *sched
		row.PaymentScheduleItems = nil
		t.Schedules[row.PaymentScheduleID] = row
		return nil
	})
}

// putItems inserts items for a schedule, filling ids and timestamps in place.
func putItems(t *inmemdb.Tables, scheduleID uuid.UUID, items []model.PaymentItem) {
	now := time.Now()
	for i := range items {
		items[i].PaymentItemID = uuid.New()
		items[i].PaymentItemScheduleID = scheduleID
		items[i].PaymentItemCreatedAt, items[i].PaymentItemUpdatedAt = now, now
		t.Items[items[i].PaymentItemID] = items[i]
	}
}

func (s *MemoryStore) SaveSchedule(_ context.Context, sched *model.PaymentSchedule) error {
	return s.write(func(t *inmemdb.Tables) error {
		if _, ok := t.Schedules[sched.PaymentScheduleID]; !ok {
			return apperror.NotFound("payment schedule %s not found", sched.PaymentScheduleID)
		}
		sched.PaymentScheduleUpdatedAt = time.Now()
		row := *sched
		row.PaymentScheduleItems = nil
		t.Schedules[row.PaymentScheduleID] = row
		return nil
	})
}

func (s *MemoryStore) DeleteSchedule(_ context.Context, id uuid.UUID) error {
	return s.write(func(t *inmemdb.Tables) error {
		if _, ok := t.Schedules[id]; !ok {
			return apperror.NotFound("payment schedule %s not found", id)
		}
		dropItems(t, id)
		delete(t.Schedules, id)
		return nil
	})
}

func dropItems(t *inmemdb.Tables, scheduleID uuid.UUID) {
	for id, it := range t.Items {
		if it.PaymentItemScheduleID == scheduleID {
			delete(t.Items, id)
		}
	}
}

func itemsOf(t *inmemdb.Tables, scheduleID uuid.UUID, keep func(model.PaymentItem) bool) []model.PaymentItem {
	var out []model.PaymentItem
	for _, it := range t.Items {
		if it.PaymentItemScheduleID == scheduleID && keep(it) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentItemPosition < out[j].PaymentItemPosition })
	return out
}

func (s *MemoryStore) ListItems(_ context.Context, scheduleID uuid.UUID) ([]model.PaymentItem, error) {
	var out []model.PaymentItem
	err := s.read(func(t *inmemdb.Tables) error {
		out = itemsOf(t, scheduleID, func(model.PaymentItem) bool { return true })
		return nil
	})
	return out, err
}

func (s *MemoryStore) LockItems(_ context.Context, scheduleID uuid.UUID, ids []uuid.UUID) ([]model.PaymentItem, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.PaymentItem
	err := s.read(func(t *inmemdb.Tables) error {
		out = itemsOf(t, scheduleID, func(it model.PaymentItem) bool { return want[it.PaymentItemID] })
		return nil
	})
	return out, err
}

func (s *MemoryStore) ReplaceItems(_ context.Context, scheduleID uuid.UUID, items []model.PaymentItem) error {
	return s.write(func(t *inmemdb.Tables) error {
		dropItems(t, scheduleID)
		putItems(t, scheduleID, items)
		return nil
	})
}

func (s *MemoryStore) SaveItems(_ context.Context, items []model.PaymentItem) error {
	return s.write(func(t *inmemdb.Tables) error {
		now := time.Now()
		for i := range items {
			if _, ok := t.Items[items[i].PaymentItemID]; !ok {
				return apperror.NotFound("payment item %s not found", items[i].PaymentItemID)
			}
			items[i].PaymentItemUpdatedAt = now
			t.Items[items[i].PaymentItemID] = items[i]
		}
		return nil
	})
}

func (s *MemoryStore) MarkOverdue(_ context.Context, day time.Time) (int64, error) {
	var n int64
	err := s.write(func(t *inmemdb.Tables) error {
		now := time.Now()
		for id, it := range t.Items {
			sched, ok := t.Schedules[it.PaymentItemScheduleID]
			if !ok || sched.PaymentScheduleStatus != model.ScheduleStatusActive {
				continue
			}
			if !it.PaymentItemPaidAmount.IsZero() || !it.IsOverdueOn(day) {
				continue
			}
			it.PaymentItemStatus = model.ItemStatusOverdue
			it.PaymentItemUpdatedAt = now
			t.Items[id] = it
			n++
		}
		return nil
	})
	return n, err
}
