package sequences

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "TRX-20240501-000001", Format(KindTransaction, "20240501", 1))
	assert.Equal(t, "RCP-20240501-123456", Format(KindReceipt, "20240501", 123456))
	assert.Equal(t, "WLT-20240501-1234567", Format(KindWalletTransaction, "20240501", 1234567))
}

func TestDay(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	at := time.Date(2024, 4, 30, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		loc  *time.Location
		want string
	}{
		{"utc", time.UTC, "20240430"},
		{"nil location falls back to utc", nil, "20240430"},
		{"business day rolls over", jakarta, "20240501"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Day(at, tc.loc))
		})
	}
}
