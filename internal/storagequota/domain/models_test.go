package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumenis/lumenis/internal/storagequota/domain"
)

func TestStatusFor(t *testing.T) {
	assert.Equal(t, domain.PurchaseStatusActive, domain.StatusFor(0, 100))
	assert.Equal(t, domain.PurchaseStatusActive, domain.StatusFor(79, 100))
	assert.Equal(t, domain.PurchaseStatusLow, domain.StatusFor(80, 100))
	assert.Equal(t, domain.PurchaseStatusLow, domain.StatusFor(99, 100))
	assert.Equal(t, domain.PurchaseStatusExhausted, domain.StatusFor(100, 100))
	assert.Equal(t, domain.PurchaseStatusExhausted, domain.StatusFor(150, 100))
}

func TestStatusForDegenerateTotals(t *testing.T) {
	assert.Equal(t, domain.PurchaseStatusExhausted, domain.StatusFor(0, 0))
	assert.Equal(t, domain.PurchaseStatusExhausted, domain.StatusFor(10, -1))
}

func TestStatusForLargeTotals(t *testing.T) {
	// Terabyte-scale purchases must not overflow the percentage math.
	const tb = int64(1) << 40
	assert.Equal(t, domain.PurchaseStatusActive, domain.StatusFor(tb/2, tb))
	assert.Equal(t, domain.PurchaseStatusLow, domain.StatusFor(tb-tb/100, tb))
}
