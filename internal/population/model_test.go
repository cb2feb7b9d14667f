package population_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alertarea/alertarea/internal/population"
)

func TestEstimateSmartphones(t *testing.T) {
	counts := []population.AgeCount{
		{Age: 10, People: 1000},
		{Age: 20, People: 1000},
		{Age: 70, People: 1000},
	}
	// 0.50 + 1.00 + 0.40 of a thousand each
	assert.InDelta(t, 1900, population.EstimateSmartphones(counts), 1e-9)
}

func TestEstimatedBleedMetres(t *testing.T) {
	// below one phone per square mile the approximation applies
	assert.Equal(t, 1500.0, population.EstimatedBleedMetres(0.5))

	// clamped to the floor for very dense areas
	assert.Equal(t, 500.0, population.EstimatedBleedMetres(1e6))

	// clamped to the ceiling for the sparsest areas
	assert.Equal(t, 5000.0, population.EstimatedBleedMetres(1))

	// 5900 - 1250*log10(100) = 3400
	assert.InDelta(t, 3400, population.EstimatedBleedMetres(100), 1e-9)
}

func TestBleedForArea(t *testing.T) {
	// one phone over 10 km2 is well under a phone per square mile
	assert.Equal(t, 1500.0, population.BleedForArea(1, 1e7))

	// a dense city centre clamps to the floor
	assert.Equal(t, 500.0, population.BleedForArea(100000, 1e6))

	// zero-area polygons fall back to the approximation too
	assert.Equal(t, 1500.0, population.BleedForArea(10000, 0))
}

func TestIsCityOfLondonWard(t *testing.T) {
	assert.True(t, population.IsCityOfLondonWard("E05009288"))
	assert.True(t, population.IsCityOfLondonWard("E05009312"))
	assert.False(t, population.IsCityOfLondonWard("E05009997"))
}

func TestRoundToSignificantFigures(t *testing.T) {
	assert.Equal(t, 12000, population.RoundToSignificantFigures(12345, 2))
	assert.Equal(t, 13000, population.RoundToSignificantFigures(12500, 2))
	assert.Equal(t, 8000, population.RoundToSignificantFigures(7999.7, 1))
	assert.Equal(t, 0, population.RoundToSignificantFigures(0, 3))
	assert.Equal(t, -460, population.RoundToSignificantFigures(-456.7, 2))
}

func TestSquareMetresToSquareMiles(t *testing.T) {
	assert.InDelta(t, 0.386, population.SquareMetresToSquareMiles(1e6), 1e-6)
}
