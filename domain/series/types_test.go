package series

import (
	"math"
	"testing"

	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/core"

	"github.com/stretchr/testify/assert"
)

func TestWindowLen(t *testing.T) {
	assert.Equal(t, 0, Window{Start: 10, End: 0}.Len())
	assert.Equal(t, 1, Window{Start: 0, End: 0}.Len())
	assert.Equal(t, 31, Window{Start: 0, End: 30 * core.MinuteMs}.Len())

	wide := Window{Start: -5e18, End: 5e18}.Len()
	assert.Positive(t, wide)
	assert.Positive(t, Window{Start: math.MinInt64, End: math.MaxInt64}.Len())
}
