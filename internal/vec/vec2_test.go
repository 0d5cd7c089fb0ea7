package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec2String(t *testing.T) {
	assert.Equal(t, "1:2", Vec2{X: 1, Y: 2}.String())
	assert.Equal(t, "-3:0", Vec2{X: -3}.String())
}
