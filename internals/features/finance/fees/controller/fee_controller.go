// file: internals/features/finance/fees/controller/fee_controller.go
package controller

import (
	"github.com/gofiber/fiber/v2"

	"feeledger_backend/internals/features/finance/fees/dto"
	"feeledger_backend/internals/features/finance/fees/service"
	helper "feeledger_backend/internals/helpers"
)

type Handler struct {
	Fees     *service.FeeService
	Resolver *service.Resolver
}

func NewHandler(fees *service.FeeService, resolver *service.Resolver) *Handler {
	return &Handler{Fees: fees, Resolver: resolver}
}

/* =======================================================
   FEE DEFINITIONS
======================================================= */

// POST /fee-definitions
func (h *Handler) CreateDefinition(c *fiber.Ctx) error {
	var in dto.CreateFeeDefinitionRequest
	if ok, err := helper.BindAndValidate(c, &in); !ok {
		return err
	}
	def, err := h.Fees.CreateDefinition(c.UserContext(), in)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonCreated(c, "fee definition created", dto.ToFeeDefinitionResponse(*def))
}

// GET /fee-definitions
func (h *Handler) ListDefinitions(c *fiber.Ctx) error {
	p := helper.ParseFiber(c, "created_at", "desc", helper.AdminOpts)
	rows, total, err := h.Fees.ListDefinitions(c.UserContext(), p.Limit(), p.Offset())
	if err != nil {
		return helper.FromError(c, err)
	}
	out := make([]dto.FeeDefinitionResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.ToFeeDefinitionResponse(r))
	}
	meta := helper.BuildMeta(total, p)
	return helper.JsonList(c, "ok", out, &meta)
}

// GET /fee-definitions/:id
func (h *Handler) GetDefinition(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.FromError(c, err)
	}
	def, err := h.Fees.GetDefinition(c.UserContext(), id)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.ToFeeDefinitionResponse(*def))
}

// PUT /fee-definitions/:id
func (h *Handler) UpdateDefinition(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.FromError(c, err)
	}
	var in dto.UpdateFeeDefinitionRequest
	if ok, err := helper.BindAndValidate(c, &in); !ok {
		return err
	}
	def, err := h.Fees.UpdateDefinition(c.UserContext(), id, in)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonUpdated(c, "fee definition updated", dto.ToFeeDefinitionResponse(*def))
}

/* =======================================================
   FEE ASSIGNMENTS
======================================================= */

// POST /fee-assignments
func (h *Handler) CreateAssignment(c *fiber.Ctx) error {
	var in dto.CreateFeeAssignmentRequest
	if ok, err := helper.BindAndValidate(c, &in); !ok {
		return err
	}
	a, err := h.Fees.CreateAssignment(c.UserContext(), in)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonCreated(c, "fee assignment created", dto.ToFeeAssignmentResponse(*a))
}

// GET /fee-assignments?class_id=&student_id=&fee_definition_id=
func (h *Handler) ListAssignments(c *fiber.Ctx) error {
	var (
		f   service.AssignmentFilter
		err error
	)
	if f.ClassID, err = helper.ParseOptionalUUIDQuery(c, "class_id"); err != nil {
		return helper.FromError(c, err)
	}
	if f.StudentID, err = helper.ParseOptionalUUIDQuery(c, "student_id"); err != nil {
		return helper.FromError(c, err)
	}
	if f.FeeDefinitionID, err = helper.ParseOptionalUUIDQuery(c, "fee_definition_id"); err != nil {
		return helper.FromError(c, err)
	}

	rows, err := h.Fees.ListAssignments(c.UserContext(), f)
	if err != nil {
		return helper.FromError(c, err)
	}
	out := make([]dto.FeeAssignmentResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.ToFeeAssignmentResponse(r))
	}
	return helper.JsonList(c, "ok", out, nil)
}

// DELETE /fee-assignments/:id
func (h *Handler) DeleteAssignment(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.FromError(c, err)
	}
	if err := h.Fees.DeleteAssignment(c.UserContext(), id); err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonDeleted(c, "fee assignment deleted", fiber.Map{"fee_assignment_id": id})
}

/* =======================================================
   APPLICABLE FEES
======================================================= */

// GET /students/:id/applicable-fees?period_start=&period_end=
func (h *Handler) ApplicableFees(c *fiber.Ctx) error {
	studentID, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.FromError(c, err)
	}
	start, err := helper.ParseOptionalDateQuery(c, "period_start")
	if err != nil {
		return helper.FromError(c, err)
	}
	end, err := helper.ParseOptionalDateQuery(c, "period_end")
	if err != nil {
		return helper.FromError(c, err)
	}

	res, err := h.Resolver.Resolve(c.UserContext(), service.ResolveInput{
		StudentID:   studentID,
		PeriodStart: start,
		PeriodEnd:   end,
	})
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "ok", res)
}
