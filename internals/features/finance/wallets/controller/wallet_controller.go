// file: internals/features/finance/wallets/controller/wallet_controller.go
package controller

import (
	"github.com/gofiber/fiber/v2"

	"feeledger_backend/internals/features/finance/wallets/dto"
	"feeledger_backend/internals/features/finance/wallets/model"
	"feeledger_backend/internals/features/finance/wallets/service"
	helper "feeledger_backend/internals/helpers"
)

type Handler struct {
	Ledger *service.Ledger
}

func NewHandler(l *service.Ledger) *Handler { return &Handler{Ledger: l} }

func entryResponse(e *model.WalletTransaction, w *model.StudentWallet) dto.WalletEntryResponse {
	return dto.WalletEntryResponse{Entry: *e, Wallet: dto.ToWalletResponse(*w)}
}

// POST /wallets
func (h *Handler) Create(c *fiber.Ctx) error {
	var in dto.CreateWalletRequest
	if ok, err := helper.BindAndValidate(c, &in); !ok {
		return err
	}
	w, err := h.Ledger.CreateWallet(c.UserContext(), in)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonCreated(c, "wallet created", dto.ToWalletResponse(*w))
}

// GET /wallets/:id
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.FromError(c, err)
	}
	w, err := h.Ledger.GetWallet(c.UserContext(), id)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.ToWalletResponse(*w))
}

// GET /students/:student_id/wallet
func (h *Handler) GetByStudent(c *fiber.Ctx) error {
	studentID, err := helper.ParseUUIDParam(c, "student_id")
	if err != nil {
		return helper.FromError(c, err)
	}
	w, err := h.Ledger.GetWalletByStudent(c.UserContext(), studentID)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.ToWalletResponse(*w))
}

// PATCH /wallets/:id/status
func (h *Handler) SetStatus(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.FromError(c, err)
	}
	var in dto.SetStatusRequest
	if ok, err := helper.BindAndValidate(c, &in); !ok {
		return err
	}
	w, err := h.Ledger.SetStatus(c.UserContext(), id, in.Status)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonUpdated(c, "wallet "+string(w.StudentWalletStatus), dto.ToWalletResponse(*w))
}

// POST /wallets/:id/topup
func (h *Handler) Topup(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.FromError(c, err)
	}
	var in dto.TopupRequest
	if ok, err := helper.BindAndValidate(c, &in); !ok {
		return err
	}
	e, w, err := h.Ledger.Topup(c.UserContext(), id, in.Amount, in.PaymentMethod)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonCreated(c, "wallet topped up", entryResponse(e, w))
}

// POST /wallets/:id/withdraw
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.FromError(c, err)
	}
	var in dto.WithdrawRequest
	if ok, err := helper.BindAndValidate(c, &in); !ok {
		return err
	}
	e, w, err := h.Ledger.Withdraw(c.UserContext(), id, in.Amount, in.PaymentMethod)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonCreated(c, "withdrawal recorded", entryResponse(e, w))
}

// POST /wallets/:id/purchase
func (h *Handler) Purchase(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.FromError(c, err)
	}
	var in dto.PurchaseRequest
	if ok, err := helper.BindAndValidate(c, &in); !ok {
		return err
	}
	e, w, err := h.Ledger.Purchase(c.UserContext(), id, in.Amount, in.Category, in.Description)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonCreated(c, "purchase recorded", entryResponse(e, w))
}

// POST /wallets/:id/refund
func (h *Handler) Refund(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.FromError(c, err)
	}
	var in dto.RefundRequest
	if ok, err := helper.BindAndValidate(c, &in); !ok {
		return err
	}
	e, w, err := h.Ledger.Refund(c.UserContext(), id, in.Amount, in.Reason, in.Reference)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonCreated(c, "refund recorded", entryResponse(e, w))
}

// GET /wallets/:id/transactions
func (h *Handler) History(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.FromError(c, err)
	}
	p := helper.ParseFiber(c, "created_at", "asc", helper.DefaultOpts)
	rows, total, err := h.Ledger.History(c.UserContext(), id, p.Limit(), p.Offset())
	if err != nil {
		return helper.FromError(c, err)
	}
	meta := helper.BuildMeta(total, p)
	return helper.JsonList(c, "ok", rows, &meta)
}

// GET /wallets/:id/statement?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handler) Statement(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.FromError(c, err)
	}
	start, err := helper.ParseOptionalDateQuery(c, "start")
	if err != nil {
		return helper.FromError(c, err)
	}
	end, err := helper.ParseOptionalDateQuery(c, "end")
	if err != nil {
		return helper.FromError(c, err)
	}
	st, err := h.Ledger.Statement(c.UserContext(), id, start, end)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "ok", st)
}
