package board_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/happybomber/arena-server/internal/board"
)

func TestMain(m *testing.M) {
	board.Log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	m.Run()
}

func TestGenerateDeterministic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		seed  string
		size  int
		bombs int
	}{
		{name: "10x10(25)", seed: "1337", size: 10, bombs: 25},
		{name: "10x10(25) hashed seed", seed: "d00dfeed-cafe", size: 10, bombs: 25},
		{name: "9x9(10)", seed: "42", size: 9, bombs: 10},
		{name: "16x16(99)", seed: "abc", size: 16, bombs: 99},
		{name: "4x4(15) near-full", seed: "7", size: 4, bombs: 15},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			a, err := board.Generate(test.seed, test.size, test.bombs)
			require.NoError(t, err)
			b, err := board.Generate(test.seed, test.size, test.bombs)
			require.NoError(t, err)
			require.Equal(t, a.BombIndices(), b.BombIndices())
			require.Equal(t, a.Cells(), b.Cells())
		})
	}
}

func TestGenerateBombCountExact(t *testing.T) {
	b, err := board.Generate("555", 10, 25)
	require.NoError(t, err)
	require.Len(t, b.BombIndices(), 25)
}

func TestGenerateAdjacencyCorrect(t *testing.T) {
	b, err := board.Generate("90210", 10, 25)
	require.NoError(t, err)
	for _, c := range b.Cells() {
		if c.Bomb {
			continue
		}
		want := 0
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				x, y := c.X+dx, c.Y+dy
				if x < 0 || x >= b.Size || y < 0 || y >= b.Size {
					continue
				}
				n, err := b.Cell(x, y)
				require.NoError(t, err)
				if n.Bomb {
					want++
				}
			}
		}
		require.Equal(t, want, c.Adjacent, "cell %d:%d", c.X, c.Y)
	}
}

func TestGenerateRejectsBadParams(t *testing.T) {
	_, err := board.Generate("1", 0, 0)
	require.ErrorIs(t, err, board.ErrBadDimensions)
	_, err = board.Generate("1", 10, 100)
	require.ErrorIs(t, err, board.ErrTooManyBombs)
	_, err = board.Generate("1", 10, -1)
	require.ErrorIs(t, err, board.ErrTooManyBombs)
}

func TestVerifyMatchesGenerate(t *testing.T) {
	seeds := []string{"0", "1", "99999999", "not-a-number", "match:7:entropy"}
	for _, seed := range seeds {
		b, err := board.Generate(seed, 10, 25)
		require.NoError(t, err)
		bombs, err := board.Verify(seed, 10, 25)
		require.NoError(t, err)
		require.Equal(t, b.BombIndices(), bombs, "seed %q", seed)
	}
}

func TestVerifyRejectsBadParams(t *testing.T) {
	_, err := board.Verify("1", -1, 0)
	require.ErrorIs(t, err, board.ErrBadDimensions)
	_, err = board.Verify("1", 5, 25)
	require.ErrorIs(t, err, board.ErrTooManyBombs)
}
