package rank_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/klagrassa/prog-tm-bmv2/internal/rank"
)

func TestNewCollapsesZeroToNull(t *testing.T) {
	assert.Equal(t, rank.Null, rank.New(0, 0))
	assert.True(t, rank.New(0, 0).IsNull())
}

func TestLess(t *testing.T) {
	assert.True(t, rank.New(1, 1).Less(rank.New(1, 2)))
	assert.True(t, rank.New(1, 5).Less(rank.New(2, 1)))
	assert.False(t, rank.New(2, 1).Less(rank.New(1, 5)))
	assert.False(t, rank.New(1, 1).Less(rank.New(1, 1)))
}

func TestEqual(t *testing.T) {
	assert.True(t, rank.New(3, 4).Equal(rank.New(3, 4)))
	assert.False(t, rank.New(3, 4).Equal(rank.New(3, 5)))
}

func TestValid(t *testing.T) {
	assert.True(t, rank.Null.Valid())
	assert.True(t, rank.New(1, 1).Valid())
	assert.False(t, rank.Rank{Day: 1, Time: 0}.Valid())
}
