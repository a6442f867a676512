// file: internals/features/finance/schedules/controller/payment_schedule_controller.go
package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"feeledger_backend/internals/features/finance/schedules/dto"
	"feeledger_backend/internals/features/finance/schedules/model"
	"feeledger_backend/internals/features/finance/schedules/service"
	helper "feeledger_backend/internals/helpers"
)

type Handler struct {
	Builder *service.Builder
}

func NewHandler(b *service.Builder) *Handler { return &Handler{Builder: b} }

// bindDiscounts: body kosong berarti tanpa diskon.
func bindDiscounts(c *fiber.Ctx) ([]dto.DiscountInput, bool, error) {
	if len(c.Body()) == 0 {
		return nil, true, nil
	}
	var in dto.BuildScheduleRequest
	if ok, err := helper.BindAndValidate(c, &in); !ok {
		return nil, false, err
	}
	return in.Discounts, true, nil
}

// POST /enrollments/:id/payment-schedule
func (h *Handler) Build(c *fiber.Ctx) error {
	enrollmentID, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.FromError(c, err)
	}
	discounts, ok, err := bindDiscounts(c)
	if !ok {
		return err
	}
	s, err := h.Builder.BuildSchedule(c.UserContext(), enrollmentID, discounts)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonCreated(c, "payment schedule built", dto.ToPaymentScheduleResponse(*s))
}

// POST /enrollments/:id/payment-schedule/preview
func (h *Handler) Preview(c *fiber.Ctx) error {
	enrollmentID, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.FromError(c, err)
	}
	discounts, ok, err := bindDiscounts(c)
	if !ok {
		return err
	}
	s, err := h.Builder.PreviewSchedule(c.UserContext(), enrollmentID, discounts)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.ToPaymentScheduleResponse(*s))
}

// POST /payment-schedules/:id/regenerate
func (h *Handler) Regenerate(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.FromError(c, err)
	}
	discounts, ok, err := bindDiscounts(c)
	if !ok {
		return err
	}
	s, err := h.Builder.RegenerateSchedule(c.UserContext(), id, discounts)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonUpdated(c, "payment schedule regenerated", dto.ToPaymentScheduleResponse(*s))
}

// GET /payment-schedules?student_id=&status=
func (h *Handler) List(c *fiber.Ctx) error {
	var (
		f   service.ScheduleFilter
		err error
	)
	if f.StudentID, err = helper.ParseOptionalUUIDQuery(c, "student_id"); err != nil {
		return helper.FromError(c, err)
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		st := model.ScheduleStatus(strings.ToLower(raw))
		f.Status = &st
	}

	p := helper.ParseFiber(c, "generated_at", "desc", helper.DefaultOpts)
	rows, total, err := h.Builder.ListSchedules(c.UserContext(), f, p.Limit(), p.Offset())
	if err != nil {
		return helper.FromError(c, err)
	}
	meta := helper.BuildMeta(total, p)
	return helper.JsonList(c, "ok", dto.ToPaymentScheduleResponses(rows), &meta)
}

// GET /payment-schedules/:id
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.FromError(c, err)
	}
	s, err := h.Builder.GetSchedule(c.UserContext(), id)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.ToPaymentScheduleResponse(*s))
}

func (h *Handler) transition(c *fiber.Ctx, msg string, fn func(*fiber.Ctx, *service.Builder) (*model.PaymentSchedule, error)) error {
	s, err := fn(c, h.Builder)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonUpdated(c, msg, dto.ToPaymentScheduleResponse(*s))
}

// POST /payment-schedules/:id/activate
func (h *Handler) Activate(c *fiber.Ctx) error {
	return h.transition(c, "payment schedule activated", func(c *fiber.Ctx, b *service.Builder) (*model.PaymentSchedule, error) {
		id, err := helper.ParseUUIDParam(c, "id")
		if err != nil {
			return nil, err
		}
		return b.Activate(c.UserContext(), id)
	})
}

// POST /payment-schedules/:id/suspend
func (h *Handler) Suspend(c *fiber.Ctx) error {
	return h.transition(c, "payment schedule suspended", func(c *fiber.Ctx, b *service.Builder) (*model.PaymentSchedule, error) {
		id, err := helper.ParseUUIDParam(c, "id")
		if err != nil {
			return nil, err
		}
		return b.Suspend(c.UserContext(), id)
	})
}

// POST /payment-schedules/:id/resume
func (h *Handler) Resume(c *fiber.Ctx) error {
	return h.transition(c, "payment schedule resumed", func(c *fiber.Ctx, b *service.Builder) (*model.PaymentSchedule, error) {
		id, err := helper.ParseUUIDParam(c, "id")
		if err != nil {
			return nil, err
		}
		return b.Resume(c.UserContext(), id)
	})
}

// POST /payment-schedules/:id/cancel
func (h *Handler) Cancel(c *fiber.Ctx) error {
	return h.transition(c, "payment schedule cancelled", func(c *fiber.Ctx, b *service.Builder) (*model.PaymentSchedule, error) {
		id, err := helper.ParseUUIDParam(c, "id")
		if err != nil {
			return nil, err
		}
		return b.Cancel(c.UserContext(), id)
	})
}

// DELETE /payment-schedules/:id
func (h *Handler) Delete(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.FromError(c, err)
	}
	if err := h.Builder.DeleteSchedule(c.UserContext(), id); err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonDeleted(c, "payment schedule deleted", fiber.Map{"payment_schedule_id": id})
}

// POST /payment-schedules/sweep-overdue
func (h *Handler) SweepOverdue(c *fiber.Ctx) error {
	n, err := h.Builder.SweepOverdue(c.UserContext())
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "overdue sweep finished", fiber.Map{"items_marked": n})
}
