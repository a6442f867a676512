// file: internals/features/finance/transactions/controller/transaction_controller.go
package controller

import (
	"github.com/gofiber/fiber/v2"

	"feeledger_backend/internals/features/finance/transactions/dto"
	"feeledger_backend/internals/features/finance/transactions/service"
	helper "feeledger_backend/internals/helpers"
)

type Handler struct {
	Ledger *service.PaymentLedger
}

func NewHandler(l *service.PaymentLedger) *Handler { return &Handler{Ledger: l} }

// POST /payment-schedules/:id/payments
func (h *Handler) ProcessPayment(c *fiber.Ctx) error {
	scheduleID, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.FromError(c, err)
	}
	var in dto.ProcessPaymentRequest
	if ok, err := helper.BindAndValidate(c, &in); !ok {
		return err
	}
	if in.IdempotencyKey == nil {
		if k := c.Get("Idempotency-Key"); k != "" {
			in.IdempotencyKey = &k
		}
	}
	if uid, err := helper.GetUserIDFromToken(c); err == nil {
		if in.Metadata == nil {
			in.Metadata = map[string]any{}
		}
		in.Metadata["recorded_by"] = uid.String()
	}

	trx, replayed, err := h.Ledger.ProcessPayment(c.UserContext(), dto.ProcessPayment{ScheduleID: scheduleID, ProcessPaymentRequest: in})
	if err != nil {
		return helper.FromError(c, err)
	}
	if replayed {
		return helper.JsonOK(c, "payment already recorded", dto.ToTransactionResponse(*trx, true))
	}
	return helper.JsonCreated(c, "payment recorded", dto.ToTransactionResponse(*trx, false))
}

// GET /payment-schedules/:id/transactions
func (h *Handler) ListBySchedule(c *fiber.Ctx) error {
	scheduleID, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.FromError(c, err)
	}
	p := helper.ParseFiber(c, "paid_at", "desc", helper.DefaultOpts)
	rows, total, err := h.Ledger.ListBySchedule(c.UserContext(), scheduleID, p.Limit(), p.Offset())
	if err != nil {
		return helper.FromError(c, err)
	}
	meta := helper.BuildMeta(total, p)
	return helper.JsonList(c, "ok", dto.ToTransactionResponses(rows), &meta)
}

// GET /transactions/:number
func (h *Handler) GetByNumber(c *fiber.Ctx) error {
	trx, err := h.Ledger.GetByNumber(c.UserContext(), c.Params("number"))
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.ToTransactionResponse(*trx, false))
}
