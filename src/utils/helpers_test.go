package utils

import (
	"errors"
	"rifa/src/types"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound2(t *testing.T) {
	assert.Equal(t, 33.33, Round2(100.0/3.0))
	assert.Equal(t, 50.0, Round2(50.0))
	assert.Equal(t, 0.1, Round2(0.104))
	assert.Equal(t, 0.0, Round2(0))
}

func TestMakeSlugBase(t *testing.T) {
	assert.Equal(t, "rifa-do-notebook", MakeSlugBase("Rifa do Notebook!"))
	assert.Equal(t, "acao-de-natal", MakeSlugBase("Ação de Natal"))

	long := MakeSlugBase(strings.Repeat("rifa ", 50))
	assert.LessOrEqual(t, len(long), 100)
	assert.False(t, strings.HasSuffix(long, "-"))
}

func TestPickWinner(t *testing.T) {
	t.Run("single candidate", func(t *testing.T) {
		n, err := PickWinner([]uint{42})
		assert.Nil(t, err)
		assert.Equal(t, uint(42), n)
	})

	t.Run("no candidates", func(t *testing.T) {
		_, err := PickWinner([]uint{})
		assert.True(t, errors.Is(err, types.ErrInvalidState))
	})

	t.Run("winner is always a candidate", func(t *testing.T) {
		numbers := []uint{3, 17, 42, 99}
		members := map[uint]bool{}
		for _, n := range numbers {
			members[n] = true
		}
		for i := 0; i < 100; i++ {
			n, err := PickWinner(numbers)
			assert.Nil(t, err)
			assert.True(t, members[n], "picked %d", n)
		}
	})
}
