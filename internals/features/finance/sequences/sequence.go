// Package sequences hands out gap-free per-day document numbers
// (TRX-20240501-000001 and friends) from the ledger_sequences table.
package sequences

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Kind string

const (
	KindTransaction       Kind = "TRX"
	KindReceipt           Kind = "RCP"
	KindWalletTransaction Kind = "WLT"
)

// LedgerSequence is one counter row per (kind, day).
type LedgerSequence struct {
	SequenceKind  string `gorm:"column:sequence_kind;type:varchar(10);primaryKey"`
	SequenceDay   string `gorm:"column:sequence_day;type:char(8);primaryKey"`
	SequenceValue int64  `gorm:"column:sequence_value;not null"`
}

func (LedgerSequence) TableName() string { return "ledger_sequences" }

// Day is the counter key for at, in the business location.
func Day(at time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return at.In(loc).Format("20060102")
}

func Format(kind Kind, day string, n int64) string {
	return fmt.Sprintf("%s-%s-%06d", kind, day, n)
}

// Next increments the counter and returns the formatted number. tx must be the
// transaction that writes the document: the row lock taken by the upsert is held
// until it commits, so two writers never see the same value.
func Next(ctx context.Context, tx *gorm.DB, kind Kind, day string) (string, error) {
	var n int64
	err := tx.WithContext(ctx).Raw(`
		INSERT INTO ledger_sequences (sequence_kind, sequence_day, sequence_value)
		VALUES (?, ?, 1)
		ON CONFLICT (sequence_kind, sequence_day)
		DO UPDATE SET sequence_value = ledger_sequences.sequence_value + 1
		RETURNING sequence_value`, string(kind), day).Scan(&n).Error
	if err != nil {
		return "", errors.Wrapf(err, "next %s sequence", kind)
	}
	return Format(kind, day, n), nil
}
