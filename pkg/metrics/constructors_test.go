package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsReturnNilWhenDisabled(t *testing.T) {
	resetRegistryForTest(t)
	assert.Nil(t, NewSharkClientMetrics())
	assert.Nil(t, NewPlacementMetrics())
	assert.Nil(t, NewFanoutMetrics())
}
