package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestStatusForCategory(t *testing.T) {
	tests := []struct {
		code   string
		status models.Status
		score  int
	}{
		{"EX", models.StatusCR, 100},
		{"EW", models.StatusCR, 98},
		{"CR", models.StatusCR, 95},
		{"EN", models.StatusEN, 80},
		{"VU", models.StatusVU, 65},
		{"NT", models.StatusNT, 45},
		{"LC", models.StatusLC, 20},
		{"DD", models.StatusLC, 25},
		{"NE", models.StatusLC, 25},
		{"", models.StatusLC, 25},
		{"ZZ", models.StatusLC, 25},
		{"vu", models.StatusLC, 25},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, score := StatusForCategory(tt.code)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.score, score)
		})
	}
}

func TestEndangermentLabel(t *testing.T) {
	assert.Equal(t, "Critically Endangered", EndangermentLabel(models.StatusCR))
	assert.Equal(t, "Endangered", EndangermentLabel(models.StatusEN))
	assert.Equal(t, "Vulnerable", EndangermentLabel(models.StatusVU))
	assert.Equal(t, "Not endangered", EndangermentLabel(models.StatusNT))
	assert.Equal(t, "Not endangered", EndangermentLabel(models.StatusLC))
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, "VU", NormalizeCategory(" vu "))
	assert.Equal(t, "CR", NormalizeCategory("CR(PE)"))
	assert.Equal(t, "NE", NormalizeCategory(""))
	assert.Equal(t, "NE", NormalizeCategory(nil))
	assert.Equal(t, "NE", NormalizeCategory(42.0))
}

func TestCandidateNames(t *testing.T) {
	assert.Equal(t, []string{"Loxodonta africana africana", "Loxodonta africana"}, candidateNames(" Loxodonta  africana africana "))
	assert.Equal(t, []string{"Panthera leo"}, candidateNames("Panthera leo"))
	assert.Equal(t, []string{"Lion"}, candidateNames("Lion"))
	assert.Nil(t, candidateNames("  "))
}
