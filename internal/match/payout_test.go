package match

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputePayouts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		stake  int64
		roster int
		feeBP  int64
		winner int64
		house  int64
	}{
		{name: "canonical", stake: 100, roster: 5, feeBP: 500, winner: 475, house: 25},
		{name: "no fee", stake: 100, roster: 5, feeBP: 0, winner: 500, house: 0},
		{name: "full fee", stake: 100, roster: 5, feeBP: 10000, winner: 0, house: 500},
		{name: "house rounds down", stake: 33, roster: 3, feeBP: 500, winner: 95, house: 4},
		{name: "free match", stake: 0, roster: 5, feeBP: 500, winner: 0, house: 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			winner, house := ComputePayouts(test.stake, test.roster, test.feeBP)
			require.Equal(t, test.winner, winner)
			require.Equal(t, test.house, house)
			require.Equal(t, test.stake*int64(test.roster), winner+house,
				"split must conserve the pool exactly")
		})
	}
}
