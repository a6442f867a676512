package seeds

import (
	"context"
	_ "embed"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gorm.io/gorm"

	inmemdb "feeledger_backend/internals/databases/inmem"
	feeDto "feeledger_backend/internals/features/finance/fees/dto"
	feeModel "feeledger_backend/internals/features/finance/fees/model"
	feeService "feeledger_backend/internals/features/finance/fees/service"
	"feeledger_backend/internals/logger"
)

//go:embed data_finance.json
var defaultData []byte

const academicYear = "2024/2025"

type StudentSeed struct {
	FullName  string `json:"full_name"`
	NIS       string `json:"nis"`
	Class     string `json:"class"`
	StartedAt string `json:"started_at"`
}

type ClassSeed struct {
	Name string `json:"name"`
}

// FeeSeed is a definition plus the classes (by name) and students (by NIS)
// it is assigned to.
type FeeSeed struct {
	Definition feeDto.CreateFeeDefinitionRequest `json:"definition"`
	Classes    []string                          `json:"classes"`
	Students   []string                          `json:"students"`
	Priority   int                               `json:"priority"`
}

type Dataset struct {
	Classes  []ClassSeed   `json:"classes"`
	Students []StudentSeed `json:"students"`
	Fees     []FeeSeed     `json:"fees"`
}

// Summary counts what a run wrote. Definitions and Assignments count new rows
// only; Enrollments counts every enrollment ensured.
type Summary struct {
	Enrollments int
	Definitions int
	Assignments int
}

// LoadDataset reads a dataset from filePath, or the bundled sample when filePath is empty.
func LoadDataset(filePath string) (Dataset, error) {
	raw := defaultData
	if filePath != "" {
		b, err := os.ReadFile(filePath)
		if err != nil {
			return Dataset{}, errors.Wrap(err, "read seed file")
		}
		raw = b
	}
	var ds Dataset
	if err := sonic.Unmarshal(raw, &ds); err != nil {
		return Dataset{}, errors.Wrap(err, "decode seed file")
	}
	return ds, nil
}

// Run writes ds through roster and fees. Fee definitions whose name already
// exists are skipped along with their assignments, so running twice is safe.
func Run(ctx context.Context, roster Roster, fees *feeService.FeeService, ds Dataset) (Summary, error) {
	log := logger.WithComponent("seed")
	var sum Summary

	classes := make(map[string]uuid.UUID, len(ds.Classes))
	for _, c := range ds.Classes {
		id, err := roster.EnsureClass(ctx, c.Name)
		if err != nil {
			return sum, err
		}
		classes[c.Name] = id
	}

	students := make(map[string]uuid.UUID, len(ds.Students))
	for _, s := range ds.Students {
		classID, ok := classes[s.Class]
		if !ok {
			return sum, errors.Errorf("student %s: unknown class %q", s.NIS, s.Class)
		}
		started, err := time.Parse("2006-01-02", s.StartedAt)
		if err != nil {
			return sum, errors.Wrapf(err, "student %s: started_at", s.NIS)
		}
		sid, err := roster.EnsureStudent(ctx, s.FullName, s.NIS)
		if err != nil {
			return sum, err
		}
		if _, err := roster.EnsureEnrollment(ctx, sid, classID, academicYear, started); err != nil {
			return sum, err
		}
		students[s.NIS] = sid
		sum.Enrollments++
	}

	existing, _, err := fees.ListDefinitions(ctx, -1, 0)
	if err != nil {
		return sum, err
	}
	known := lo.SliceToMap(existing, func(d feeModel.FeeDefinition) (string, struct{}) {
		return d.FeeDefinitionName, struct{}{}
	})

	for _, f := range ds.Fees {
		if _, dup := known[f.Definition.Name]; dup {
			log.Info().Str("name", f.Definition.Name).Msg("fee definition exists, skipped")
			continue
		}
		def, err := fees.CreateDefinition(ctx, f.Definition)
		if err != nil {
			return sum, errors.Wrapf(err, "fee %q", f.Definition.Name)
		}
		sum.Definitions++

		var targets []feeDto.CreateFeeAssignmentRequest
		for _, name := range f.Classes {
			id, ok := classes[name]
			if !ok {
				return sum, errors.Errorf("fee %q: unknown class %q", f.Definition.Name, name)
			}
			targets = append(targets, feeDto.CreateFeeAssignmentRequest{FeeDefinitionID: def.FeeDefinitionID, ClassID: &id, Priority: f.Priority})
		}
		for _, nis := range f.Students {
			id, ok := students[nis]
			if !ok {
				return sum, errors.Errorf("fee %q: unknown student %s", f.Definition.Name, nis)
			}
			targets = append(targets, feeDto.CreateFeeAssignmentRequest{FeeDefinitionID: def.FeeDefinitionID, StudentID: &id, Priority: f.Priority})
		}
		for _, req := range targets {
			if _, err := fees.CreateAssignment(ctx, req); err != nil {
				return sum, errors.Wrapf(err, "assign %q", f.Definition.Name)
			}
			sum.Assignments++
		}
	}

	log.Info().
		Int("enrollments", sum.Enrollments).
		Int("definitions", sum.Definitions).
		Int("assignments", sum.Assignments).
		Msg("seed finished")
	return sum, nil
}

// RunAllSeeds loads filePath (or the bundled sample) into postgres.
func RunAllSeeds(ctx context.Context, db *gorm.DB, filePath string) (Summary, error) {
	ds, err := LoadDataset(filePath)
	if err != nil {
		return Summary{}, err
	}
	return Run(ctx, NewGormRoster(db), feeService.NewFeeService(feeService.NewGormStore(db)), ds)
}

// RunMemorySeeds loads the bundled sample into the in-memory database.
func RunMemorySeeds(ctx context.Context, db *inmemdb.DB) (Summary, error) {
	ds, err := LoadDataset("")
	if err != nil {
		return Summary{}, err
	}
	return Run(ctx, NewMemoryRoster(db), feeService.NewFeeService(feeService.NewMemoryStore(db)), ds)
}
