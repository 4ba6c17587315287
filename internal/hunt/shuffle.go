package hunt

import (
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

const seedMultiplier uint32 = 1103515245

// SeedFor derives the 32-bit shuffle seed for a team. Numeric team ids use the
// linear mix directly; anything else is hashed first so it still spreads out.
func SeedFor(teamID string, salt uint32) uint32 {
	var base uint32
	trimmed := strings.TrimSpace(teamID)
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		base = uint32(n)
	} else if trimmed != "" {
		h := fnv.New32a()
		_, _ = h.Write([]byte(trimmed))
		base = h.Sum32()
	}
	return base*seedMultiplier + salt
}

// xorshift is a tiny deterministic generator; the same seed always yields the
// same stream on every platform.
type xorshift struct {
	state uint32
}

func newXorshift(seed uint32) *xorshift {
	if seed == 0 {
		// zero is a fixed point of xorshift
		seed = defaultSalt
	}
	return &xorshift{state: seed}
}

// Float returns the next draw in [0,1).
func (x *xorshift) Float() float64 {
	x.state ^= x.state << 13
	x.state ^= x.state >> 17
	x.state ^= x.state << 5
	return float64(x.state%1000000) / 1000000
}

// Shuffle builds the ordered sequence for a team. It is pure: identical inputs
// give identical output across processes and restarts.
func Shuffle(teamID string, pool Pool) Sequence {
	pool = pool.withDefaults()

	var (
		firsts, lasts, free, absolute []Question
	)
	for _, q := range pool.Riddles {
		switch {
		case q.Position > 0:
			absolute = append(absolute, q)
		case q.Pin == PinFirst:
			firsts = append(firsts, q)
		case q.Pin == PinLast:
			lasts = append(lasts, q)
		default:
			free = append(free, q)
		}
	}

	rng := newXorshift(SeedFor(teamID, pool.Salt))
	for i := len(free) - 1; i > 0; i-- {
		j := int(rng.Float() * float64(i+1))
		free[i], free[j] = free[j], free[i]
	}

	checkpoints := pool.sortedCheckpoints()
	flow := make([]Question, 0, pool.Size())
	flow = append(flow, firsts...)
	next := 0
	for i, q := range free {
		flow = append(flow, q)
		if (i+1)%pool.CheckpointEvery == 0 && next < len(checkpoints) {
			flow = append(flow, checkpoints[next])
			next++
		}
	}
	flow = append(flow, lasts...)

	// Ascending insertion keeps earlier absolute slots stable.
	sort.SliceStable(absolute, func(i, j int) bool { return absolute[i].Position < absolute[j].Position })
	for _, q := range absolute {
		idx := q.Position - 1
		if idx > len(flow) {
			idx = len(flow)
		}
		flow = append(flow, Question{})
		copy(flow[idx+1:], flow[idx:])
		flow[idx] = q
	}

	return number(flow)
}

func number(items []Question) Sequence {
	seq := make(Sequence, len(items))
	for i, q := range items {
		seq[i] = Step{Question: q, SequenceNo: i + 1}
	}
	return seq
}
