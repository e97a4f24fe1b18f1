package match

// ComputePayouts splits the prize pool of a settled match. The pool is
// stake times roster size; the house takes feeBasisPoints of it rounded
// down; the winner takes the rest. winner + house always equals the
// exact pool, so no lamport is ever minted or burnt by settlement.
func ComputePayouts(stake int64, rosterSize int, feeBasisPoints int64) (winner, house int64) {
	pool := stake * int64(rosterSize)
	house = pool * feeBasisPoints / 10000
	winner = pool - house
	return winner, house
}
