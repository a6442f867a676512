// file: internals/features/finance/gateway/controller/gateway_controller.go
package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"feeledger_backend/internals/features/finance/gateway/dto"
	"feeledger_backend/internals/features/finance/gateway/service"
	helper "feeledger_backend/internals/helpers"
	"feeledger_backend/internals/helpers/apperror"
	"feeledger_backend/internals/logger"
)

type Handler struct {
	Gateway *service.Gateway
}

func NewHandler(g *service.Gateway) *Handler { return &Handler{Gateway: g} }

// POST /payment-schedules/:id/checkout
func (h *Handler) Checkout(c *fiber.Ctx) error {
	scheduleID, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.FromError(c, err)
	}
	var in dto.CheckoutRequest
	if ok, err := helper.BindAndValidate(c, &in); !ok {
		return err
	}
	intent, err := h.Gateway.Checkout(c.UserContext(), scheduleID, in)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonCreated(c, "checkout created", intent)
}

// GET /payment-schedules/:id/checkouts
func (h *Handler) ListBySchedule(c *fiber.Ctx) error {
	scheduleID, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.FromError(c, err)
	}
	rows, err := h.Gateway.ListIntents(c.UserContext(), scheduleID)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "ok", rows)
}

// GET /checkouts/:order_id
func (h *Handler) Get(c *fiber.Ctx) error {
	intent, err := h.Gateway.GetIntent(c.UserContext(), c.Params("order_id"))
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "ok", intent)
}

// POST /payments/midtrans/notification
//
// Midtrans retries anything but 2xx, so unknown orders and refused
// settlements still answer 200; only bad signatures and internal failures don't.
func (h *Handler) Notification(c *fiber.Ctx) error {
	var n dto.Notification
	if err := c.BodyParser(&n); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid payload")
	}
	intent, err := h.Gateway.HandleNotification(c.UserContext(), n)
	switch {
	case errors.Is(err, service.ErrInvalidSignature):
		return helper.JsonError(c, fiber.StatusUnauthorized, "invalid signature")
	case errors.Is(err, apperror.ErrNotFound), errors.Is(err, apperror.ErrInvalidInput):
		lg := logger.WithComponent("payment_gateway")
		lg.Warn().Err(err).Str("order_id", n.OrderID).Msg("notification ignored")
		return c.JSON(fiber.Map{"status": "ignored", "reason": err.Error()})
	case err != nil:
		return helper.FromError(c, err)
	}
	return c.JSON(fiber.Map{
		"status":                "ok",
		"payment_intent_id":     intent.PaymentIntentID,
		"payment_intent_status": intent.PaymentIntentStatus,
		"transaction_status":    n.TransactionStatus,
	})
}
