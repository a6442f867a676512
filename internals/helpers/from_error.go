package helper

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"feeledger_backend/internals/helpers/apperror"
	"feeledger_backend/internals/logger"
)

// FromError mengubah error dari service (apperror / *fiber.Error) menjadi response JSON konsisten.
// Pesan untuk error internal tidak pernah dikirim ke client, hanya di-log.
func FromError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return JsonError(c, fe.Code, fe.Message)
	}

	var ae *apperror.Error
	if !errors.As(err, &ae) {
		ae = &apperror.Error{Kind: apperror.KindInternal, Err: err}
	}

	switch ae.Kind {
	case apperror.KindNotFound:
		return jsonErrorWithCode(c, fiber.StatusNotFound, ae.Message, "NOT_FOUND")
	case apperror.KindInvalidInput:
		return jsonErrorWithCode(c, fiber.StatusBadRequest, ae.Message, "INVALID_INPUT")
	case apperror.KindInvalidState:
		return jsonErrorWithCode(c, fiber.StatusConflict, ae.Message, "INVALID_STATE")
	case apperror.KindInsufficientFunds:
		return jsonErrorWithCode(c, fiber.StatusUnprocessableEntity, ae.Message, "INSUFFICIENT_FUNDS")
	case apperror.KindConflict:
		return jsonErrorWithCode(c, fiber.StatusConflict, ae.Message, "CONFLICT")
	}

	reqID, _ := c.Locals("reqid").(string)
	log := logger.WithRequestID(reqID)
	log.Error().Err(err).Str("path", c.Path()).Msg("internal error")
	return jsonErrorWithCode(c, fiber.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}
