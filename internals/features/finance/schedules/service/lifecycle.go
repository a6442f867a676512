package service

import (
	"context"

	"github.com/google/uuid"

	"feeledger_backend/internals/features/finance/schedules/model"
	"feeledger_backend/internals/helpers/apperror"
)

func (b *Builder) GetSchedule(ctx context.Context, id uuid.UUID) (*model.PaymentSchedule, error) {
	s, err := b.store.GetSchedule(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err, "get payment schedule")
	}
	if s.PaymentScheduleItems, err = b.store.ListItems(ctx, id); err != nil {
		return nil, apperror.Internal(err, "list payment items")
	}
	return s, nil
}

func (b *Builder) ListSchedules(ctx context.Context, f ScheduleFilter, limit, offset int) ([]model.PaymentSchedule, int64, error) {
	rows, total, err := b.store.ListSchedules(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, apperror.Internal(err, "list payment schedules")
	}
	return rows, total, nil
}

// transition locks the schedule and its items, runs fn, then persists both.
func (b *Builder) transition(ctx context.Context, id uuid.UUID, op string, fn func(s *model.PaymentSchedule, items []model.PaymentItem) ([]model.PaymentItem, error)) (*model.PaymentSchedule, error) {
	var out *model.PaymentSchedule
	err := b.store.Transaction(ctx, func(st Store) error {
		s, err := st.LockSchedule(ctx, id)
		if err != nil {
			return err
		}
		items, err := st.ListItems(ctx, id)
		if err != nil {
			return err
		}
		from := s.PaymentScheduleStatus
		changed, err := fn(s, items)
		if err != nil {
			return err
		}
		if len(changed) > 0 {
			if err := st.SaveItems(ctx, changed); err != nil {
				return err
			}
		}
		if err := st.SaveSchedule(ctx, s); err != nil {
			return err
		}
		if s.PaymentScheduleItems, err = st.ListItems(ctx, id); err != nil {
			return err
		}
		b.log.Info().
			Str("payment_schedule_id", id.String()).
			Str("from", string(from)).
			Str("to", string(s.PaymentScheduleStatus)).
			Msg(op)
		out = s
		return nil
	})
	if err != nil {
		return nil, apperror.Internal(err, op)
	}
	return out, nil
}

// Activate opens a draft for collection. A draft with nothing to pay completes immediately.
func (b *Builder) Activate(ctx context.Context, id uuid.UUID) (*model.PaymentSchedule, error) {
	return b.transition(ctx, id, "activate payment schedule", func(s *model.PaymentSchedule, items []model.PaymentItem) ([]model.PaymentItem, error) {
		if s.PaymentScheduleStatus != model.ScheduleStatusDraft {
			return nil, apperror.InvalidState("only a draft schedule can be activated (status %s)", s.PaymentScheduleStatus)
		}
		s.Reconcile(items, b.opts.Now())
		return nil, nil
	})
}

func (b *Builder) Suspend(ctx context.Context, id uuid.UUID) (*model.PaymentSchedule, error) {
	return b.transition(ctx, id, "suspend payment schedule", func(s *model.PaymentSchedule, _ []model.PaymentItem) ([]model.PaymentItem, error) {
		if s.PaymentScheduleStatus != model.ScheduleStatusActive {
			return nil, apperror.InvalidState("only an active schedule can be suspended (status %s)", s.PaymentScheduleStatus)
		}
		s.PaymentScheduleStatus = model.ScheduleStatusSuspended
		return nil, nil
	})
}

func (b *Builder) Resume(ctx context.Context, id uuid.UUID) (*model.PaymentSchedule, error) {
	return b.transition(ctx, id, "resume payment schedule", func(s *model.PaymentSchedule, items []model.PaymentItem) ([]model.PaymentItem, error) {
		if s.PaymentScheduleStatus != model.ScheduleStatusSuspended {
			return nil, apperror.InvalidState("only a suspended schedule can be resumed (status %s)", s.PaymentScheduleStatus)
		}
		s.Reconcile(items, b.opts.Now())
		return nil, nil
	})
}

// Cancel closes the schedule. Items that never received money are cancelled
// with it; partially paid items keep their state for the record.
func (b *Builder) Cancel(ctx context.Context, id uuid.UUID) (*model.PaymentSchedule, error) {
	return b.transition(ctx, id, "cancel payment schedule", func(s *model.PaymentSchedule, items []model.PaymentItem) ([]model.PaymentItem, error) {
		switch s.PaymentScheduleStatus {
		case model.ScheduleStatusCompleted, model.ScheduleStatusCancelled:
			return nil, apperror.InvalidState("schedule is already %s", s.PaymentScheduleStatus)
		}
		s.PaymentScheduleStatus = model.ScheduleStatusCancelled

		var changed []model.PaymentItem
		for _, it := range items {
			if !it.PaymentItemPaidAmount.IsZero() {
				continue
			}
			if it.PaymentItemStatus == model.ItemStatusPending || it.PaymentItemStatus == model.ItemStatusOverdue {
				it.PaymentItemStatus = model.ItemStatusCancelled
				changed = append(changed, it)
			}
		}
		return changed, nil
	})
}

// DeleteSchedule removes a schedule and its items. Refused once money was received.
func (b *Builder) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	err := b.store.Transaction(ctx, func(st Store) error {
		if _, err := st.LockSchedule(ctx, id); err != nil {
			return err
		}
		items, err := st.ListItems(ctx, id)
		if err != nil {
			return err
		}
		if hasPayments(items) {
			return apperror.InvalidState("schedule %s has payments and cannot be deleted", id)
		}
		return st.DeleteSchedule(ctx, id)
	})
	if err != nil {
		return apperror.Internal(err, "delete payment schedule")
	}
	b.log.Info().Str("payment_schedule_id", id.String()).Msg("payment schedule deleted")
	return nil
}

// SweepOverdue marks every pending, unpaid item of an active schedule whose
// due date lies before today (business timezone) as overdue.
func (b *Builder) SweepOverdue(ctx context.Context) (int64, error) {
	day := b.Today()
	n, err := b.store.MarkOverdue(ctx, day)
	if err != nil {
		return 0, apperror.Internal(err, "mark overdue items")
	}
	b.log.Info().Str("day", day.Format("2006-01-02")).Int64("items", n).Msg("overdue sweep finished")
	return n, nil
}
