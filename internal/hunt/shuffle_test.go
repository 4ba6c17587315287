package hunt

import (
	"sort"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func campusPool(t *testing.T) Pool {
	t.Helper()
	p, err := BuiltinPool("campus")
	require.NoError(t, err)
	return p
}

func TestShuffle_KnownOrders(t *testing.T) {
	pool := campusPool(t)

	tests := []struct {
		team string
		want []int
	}{
		{"0", []int{6, 1, 13, 4, 101, 10, 7, 16, 14, 102, 12, 2, 15, 5, 103, 11, 9, 8, 17, 104, 3, 18}},
		{"1", []int{11, 12, 6, 7, 101, 10, 17, 4, 15, 102, 9, 1, 8, 3, 103, 14, 5, 16, 13, 104, 2, 18}},
		{"7", []int{8, 10, 13, 15, 101, 2, 6, 17, 5, 102, 12, 9, 14, 1, 103, 16, 3, 4, 7, 104, 11, 18}},
	}
	for _, tt := range tests {
		t.Run("team "+tt.team, func(t *testing.T) {
			assert.Equal(t, tt.want, Shuffle(tt.team, pool).IDs())
		})
	}
}

func TestShuffle_Deterministic(t *testing.T) {
	pool := campusPool(t)
	for _, team := range []string{"0", "7", "42", "team-blue", ""} {
		assert.Equal(t, Shuffle(team, pool), Shuffle(team, pool), "team %q", team)
	}
}

func TestShuffle_PinnedSlotsForManyTeams(t *testing.T) {
	pool := campusPool(t)
	for team := 0; team < 1000; team++ {
		seq := Shuffle(strconv.Itoa(team), pool)
		require.Len(t, seq, 22)

		assert.Equal(t, 18, seq[21].ID, "team %d", team)
		assert.Equal(t, 101, seq[4].ID, "team %d", team)
		assert.Equal(t, 102, seq[9].ID, "team %d", team)
		assert.Equal(t, 103, seq[14].ID, "team %d", team)
		assert.Equal(t, 104, seq[19].ID, "team %d", team)

		for i, step := range seq {
			assert.Equal(t, i+1, step.SequenceNo)
		}
	}
}

func TestShuffle_Coverage(t *testing.T) {
	pool := campusPool(t)
	var want []int
	for _, q := range pool.Riddles {
		want = append(want, q.ID)
	}
	for _, q := range pool.Checkpoints {
		want = append(want, q.ID)
	}
	sort.Ints(want)

	for _, team := range []string{"3", "99", "512"} {
		got := Shuffle(team, pool).IDs()
		sort.Ints(got)
		assert.Equal(t, want, got)
	}
}

func TestShuffle_TeamsDiffer(t *testing.T) {
	pool := campusPool(t)
	assert.NotEqual(t, Shuffle("1", pool).IDs(), Shuffle("2", pool).IDs())
}

func TestShuffle_NonNumericTeamsSpread(t *testing.T) {
	pool := campusPool(t)
	assert.NotEqual(t, Shuffle("red", pool).IDs(), Shuffle("blue", pool).IDs())
	assert.Equal(t, Shuffle("007", pool).IDs(), Shuffle("7", pool).IDs())
}

func TestShuffle_FlatPool(t *testing.T) {
	pool, err := BuiltinPool("flat")
	require.NoError(t, err)

	for team := 0; team < 50; team++ {
		seq := Shuffle(strconv.Itoa(team), pool)
		require.Len(t, seq, 7)
		assert.Equal(t, 1, seq[0].ID)
		assert.Equal(t, 7, seq[6].ID)
	}
}

func TestShuffle_AbsolutePositions(t *testing.T) {
	pool := Pool{
		Name: "abs",
		Riddles: []Question{
			{ID: 1, Pin: PinFirst},
			{ID: 2},
			{ID: 3, Position: 3},
			{ID: 4},
			{ID: 5},
			{ID: 6, Position: 5},
			{ID: 7, Pin: PinLast},
		},
	}
	require.NoError(t, pool.Validate())

	for team := 0; team < 100; team++ {
		seq := Shuffle(strconv.Itoa(team), pool)
		require.Len(t, seq, 7)
		assert.Equal(t, 1, seq[0].ID)
		assert.Equal(t, 3, seq[2].ID)
		assert.Equal(t, 6, seq[4].ID)
		assert.Equal(t, 7, seq[6].ID)
	}
}

func TestShuffle_EmptyPool(t *testing.T) {
	assert.Empty(t, Shuffle("1", Pool{}))
}

func TestSeedFor(t *testing.T) {
	assert.Equal(t, uint32(872341), SeedFor("0", defaultSalt))
	assert.Equal(t, uint32(1103515245+872341), SeedFor("1", defaultSalt))
	assert.Equal(t, SeedFor(" 12 ", defaultSalt), SeedFor("12", defaultSalt))
}

func TestXorshift_ZeroSeedStillMoves(t *testing.T) {
	rng := newXorshift(0)
	a, b := rng.Float(), rng.Float()
	assert.NotEqual(t, a, b)
}

func TestPoolValidate(t *testing.T) {
	tests := []struct {
		name string
		pool Pool
	}{
		{"duplicate id", Pool{Riddles: []Question{{ID: 1}, {ID: 1}}}},
		{"unknown policy", Pool{Policy: "fuzzy"}},
		{"unknown pin", Pool{Riddles: []Question{{ID: 1, Pin: "middle"}}}},
		{"pin and position", Pool{Riddles: []Question{{ID: 1, Pin: PinFirst, Position: 1}}}},
		{"checkpoint without rank", Pool{
			Riddles:     []Question{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}},
			Checkpoints: []Question{{ID: 100}},
		}},
		{"too many checkpoints", Pool{
			Riddles:     []Question{{ID: 1}, {ID: 2}, {ID: 3}},
			Checkpoints: []Question{{ID: 100, CheckpointRank: 1}},
		}},
		{"position inside first pins", Pool{Riddles: []Question{{ID: 1, Pin: PinFirst}, {ID: 2, Position: 1}, {ID: 3}}}},
		{"position twice", Pool{Riddles: []Question{{ID: 1, Position: 2}, {ID: 2, Position: 2}, {ID: 3}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.pool.Validate())
		})
	}

	assert.NoError(t, campusPool(t).Validate())
}
