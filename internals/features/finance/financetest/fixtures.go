// Package financetest seeds the in-memory database for the finance package tests.
package financetest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	inmemdb "feeledger_backend/internals/databases/inmem"
	feeModel "feeledger_backend/internals/features/finance/fees/model"
	schoolModel "feeledger_backend/internals/features/school/enrollments/model"
)

// D parses a decimal literal and panics on a typo.
func D(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Date is midnight UTC, the shape date columns come back in.
func Date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func DatePtr(y int, m time.Month, d int) *time.Time {
	t := Date(y, m, d)
	return &t
}

func AddStudent(t testing.TB, db *inmemdb.DB, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, db.Write(func(tb *inmemdb.Tables) error {
		tb.Students[id] = schoolModel.Student{StudentID: id, StudentFullName: name, StudentCreatedAt: time.Now()}
		return nil
	}))
	return id
}

func AddClass(t testing.TB, db *inmemdb.DB, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, db.Write(func(tb *inmemdb.Tables) error {
		tb.Classes[id] = schoolModel.Class{ClassID: id, ClassName: name, ClassCreatedAt: time.Now()}
		return nil
	}))
	return id
}

// Enroll adds an active enrollment and returns its id.
func Enroll(t testing.TB, db *inmemdb.DB, studentID, classID uuid.UUID, startedAt time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, db.Write(func(tb *inmemdb.Tables) error {
		tb.Enrollments[id] = schoolModel.Enrollment{
			EnrollmentID:           id,
			EnrollmentStudentID:    studentID,
			EnrollmentClassID:      classID,
			EnrollmentAcademicYear: "2024/2025",
			EnrollmentStatus:       schoolModel.EnrollmentStatusActive,
			EnrollmentStartedAt:    startedAt,
			EnrollmentCreatedAt:    time.Now(),
		}
		return nil
	}))
	return id
}

// AddDefinition stores def (and its installments) and returns it with ids filled in.
func AddDefinition(t testing.TB, db *inmemdb.DB, def feeModel.FeeDefinition) feeModel.FeeDefinition {
	t.Helper()
	if def.FeeDefinitionID == uuid.Nil {
		def.FeeDefinitionID = uuid.New()
	}
	if def.FeeDefinitionCurrency == "" {
		def.FeeDefinitionCurrency = "IDR"
	}
	if def.FeeDefinitionFrequency == "" {
		def.FeeDefinitionFrequency = feeModel.FeeFrequencyYearly
	}
	if def.FeeDefinitionCalculationMethod == "" {
		def.FeeDefinitionCalculationMethod = feeModel.FeeCalculationFlat
	}
	insts := make([]feeModel.FeeInstallment, len(def.FeeDefinitionInstallments))
	for i, in := range def.FeeDefinitionInstallments {
		in.FeeInstallmentID = uuid.New()
		in.FeeInstallmentFeeDefinitionID = def.FeeDefinitionID
		insts[i] = in
	}
	def.FeeDefinitionInstallments = insts

	row := def
	row.FeeDefinitionInstallments = nil
	require.NoError(t, db.Write(func(tb *inmemdb.Tables) error {
		tb.FeeDefinitions[def.FeeDefinitionID] = row
		tb.FeeInstallments[def.FeeDefinitionID] = insts
		return nil
	}))
	return def
}

// Flat is a definition without installments.
func Flat(name, amount string) feeModel.FeeDefinition {
	return feeModel.FeeDefinition{FeeDefinitionName: name, FeeDefinitionBaseAmount: D(amount)}
}

func Installment(index int, label, amount string, due *time.Time) feeModel.FeeInstallment {
	return feeModel.FeeInstallment{
		FeeInstallmentIndex:   index,
		FeeInstallmentLabel:   label,
		FeeInstallmentAmount:  D(amount),
		FeeInstallmentDueDate: due,
	}
}

func AssignToClass(t testing.TB, db *inmemdb.DB, defID, classID uuid.UUID, priority int, start, end *time.Time) uuid.UUID {
	t.Helper()
	return assign(t, db, feeModel.FeeAssignment{
		FeeAssignmentFeeDefinitionID: defID,
		FeeAssignmentClassID:         &classID,
		FeeAssignmentPriority:        priority,
		FeeAssignmentStartDate:       start,
		FeeAssignmentEndDate:         end,
	})
}

func AssignToStudent(t testing.TB, db *inmemdb.DB, defID, studentID uuid.UUID, priority int, start, end *time.Time) uuid.UUID {
	t.Helper()
	return assign(t, db, feeModel.FeeAssignment{
		FeeAssignmentFeeDefinitionID: defID,
		FeeAssignmentStudentID:       &studentID,
		FeeAssignmentPriority:        priority,
		FeeAssignmentStartDate:       start,
		FeeAssignmentEndDate:         end,
	})
}

func assign(t testing.TB, db *inmemdb.DB, a feeModel.FeeAssignment) uuid.UUID {
	t.Helper()
	a.FeeAssignmentID = uuid.New()
	a.FeeAssignmentCreatedAt = time.Now()
	require.NoError(t, db.Write(func(tb *inmemdb.Tables) error {
		tb.FeeAssignments[a.FeeAssignmentID] = a
		return nil
	}))
	return a.FeeAssignmentID
}
