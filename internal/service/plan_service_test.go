package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/resumegate/internal/models"
)

func TestPlanServiceList(t *testing.T) {
	plans := NewPlanService().List()
	require.Len(t, plans, 3)

	assert.Equal(t, models.PackageBasic, plans[0].PackageType)
	assert.Equal(t, 9900, plans[0].AmountPaise)
	assert.Equal(t, "INR", plans[0].Currency)
	assert.Equal(t, models.InitialCredits, plans[0].Credits)

	assert.Equal(t, "full", plans[2].Tier)
	assert.Len(t, plans[2].Fields, 8)
}

func TestPlanServiceGetUnknown(t *testing.T) {
	_, err := NewPlanService().Get("GOLD")
	assert.Error(t, err)
}
