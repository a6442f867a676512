package inmemdb

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	schoolModel "feeledger_backend/internals/features/school/enrollments/model"
)

func TestWriteRollsBackOnError(t *testing.T) {
	db := Open()
	kept := uuid.New()
	require.NoError(t, db.Write(func(tb *Tables) error {
		tb.Students[kept] = schoolModel.Student{StudentID: kept, StudentFullName: "Kept"}
		return nil
	}))

	boom := errors.New("boom")
	err := db.Write(func(tb *Tables) error {
		id := uuid.New()
		tb.Students[id] = schoolModel.Student{StudentID: id, StudentFullName: "Dropped"}
		delete(tb.Students, kept)
		tb.NextSequence("TRX", "20240501")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_ = db.Read(func(tb *Tables) error {
		assert.Len(t, tb.Students, 1)
		assert.Contains(t, tb.Students, kept)
		assert.Empty(t, tb.Sequences)
		return nil
	})
}

func TestNextSequenceIsPerKindAndDay(t *testing.T) {
	db := Open()
	_ = db.Write(func(tb *Tables) error {
		assert.EqualValues(t, 1, tb.NextSequence("TRX", "20240501"))
		assert.EqualValues(t, 2, tb.NextSequence("TRX", "20240501"))
		assert.EqualValues(t, 1, tb.NextSequence("RCP", "20240501"))
		assert.EqualValues(t, 1, tb.NextSequence("TRX", "20240502"))
		return nil
	})
}
