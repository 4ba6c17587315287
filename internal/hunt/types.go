package hunt

import (
	"fmt"
	"sort"
)

// Pin constants describe relative placement of a question in a sequence.
const (
	PinNone  = ""
	PinFirst = "first"
	PinLast  = "last"
)

// Normalization policies for answer comparison.
const (
	PolicyAlnum    = "alnum"
	PolicyCollapse = "collapse"
)

const (
	defaultSalt            uint32 = 872341
	defaultCheckpointEvery        = 4
)

// Question is an immutable riddle or checkpoint definition.
type Question struct {
	ID             int    `json:"id" yaml:"id"`
	Prompt         string `json:"question" yaml:"prompt"`
	Answer         string `json:"-" yaml:"answer"`
	Pin            string `json:"-" yaml:"pin,omitempty"`
	Position       int    `json:"-" yaml:"position,omitempty"` // absolute 1-based slot, 0 = free
	CheckpointRank int    `json:"checkpointRank,omitempty" yaml:"rank,omitempty"`
}

// IsCheckpoint reports whether the question is an interleaved non-riddle waypoint.
func (q Question) IsCheckpoint() bool {
	return q.CheckpointRank > 0
}

// Pool is the full set of items configured for one hunt variant.
type Pool struct {
	Name            string     `yaml:"name"`
	Policy          string     `yaml:"policy"`
	Salt            uint32     `yaml:"salt"`
	CheckpointEvery int        `yaml:"checkpointEvery"`
	Riddles         []Question `yaml:"riddles"`
	Checkpoints     []Question `yaml:"checkpoints"`
}

// Step is a question placed at a 1-based position in a team's sequence.
type Step struct {
	Question
	SequenceNo int `json:"sequenceNo"`
}

// Sequence is the ordered list of steps a team walks through.
type Sequence []Step

// IDs returns the question ids in sequence order.
func (s Sequence) IDs() []int {
	ids := make([]int, len(s))
	for i, step := range s {
		ids[i] = step.ID
	}
	return ids
}

// withDefaults fills zero-valued tunables.
func (p Pool) withDefaults() Pool {
	if p.Salt == 0 {
		p.Salt = defaultSalt
	}
	if p.CheckpointEvery <= 0 {
		p.CheckpointEvery = defaultCheckpointEvery
	}
	if p.Policy == "" {
		p.Policy = PolicyAlnum
	}
	return p
}

// Size is the length of every sequence derived from the pool.
func (p Pool) Size() int {
	return len(p.Riddles) + len(p.Checkpoints)
}

// Lookup returns the question with the given id from riddles or checkpoints.
func (p Pool) Lookup(id int) (Question, bool) {
	for _, q := range p.Riddles {
		if q.ID == id {
			return q, true
		}
	}
	for _, q := range p.Checkpoints {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// sortedCheckpoints returns checkpoints ordered by rank, ties by id.
func (p Pool) sortedCheckpoints() []Question {
	cps := append([]Question(nil), p.Checkpoints...)
	sort.SliceStable(cps, func(i, j int) bool {
		if cps[i].CheckpointRank != cps[j].CheckpointRank {
			return cps[i].CheckpointRank < cps[j].CheckpointRank
		}
		return cps[i].ID < cps[j].ID
	})
	return cps
}

// Validate checks that every sequence derived from the pool can honor its pins
// and place every checkpoint exactly once.
func (p Pool) Validate() error {
	p = p.withDefaults()
	if p.Policy != PolicyAlnum && p.Policy != PolicyCollapse {
		return fmt.Errorf("pool %q: unknown policy %q", p.Name, p.Policy)
	}

	seen := make(map[int]bool, p.Size())
	var first, last, free int
	var positions []int
	for _, q := range p.Riddles {
		if seen[q.ID] {
			return fmt.Errorf("pool %q: duplicate question id %d", p.Name, q.ID)
		}
		seen[q.ID] = true
		if q.IsCheckpoint() {
			return fmt.Errorf("pool %q: riddle %d carries a checkpoint rank", p.Name, q.ID)
		}
		switch {
		case q.Position > 0:
			if q.Pin != PinNone {
				return fmt.Errorf("pool %q: question %d has both pin and position", p.Name, q.ID)
			}
			positions = append(positions, q.Position)
		case q.Pin == PinFirst:
			first++
		case q.Pin == PinLast:
			last++
		case q.Pin == PinNone:
			free++
		default:
			return fmt.Errorf("pool %q: question %d has unknown pin %q", p.Name, q.ID, q.Pin)
		}
	}
	for _, q := range p.Checkpoints {
		if seen[q.ID] {
			return fmt.Errorf("pool %q: duplicate question id %d", p.Name, q.ID)
		}
		seen[q.ID] = true
		if !q.IsCheckpoint() {
			return fmt.Errorf("pool %q: checkpoint %d needs a positive rank", p.Name, q.ID)
		}
	}

	if fit := free / p.CheckpointEvery; len(p.Checkpoints) > fit {
		return fmt.Errorf("pool %q: %d checkpoints but only %d fit between %d shuffled riddles",
			p.Name, len(p.Checkpoints), fit, free)
	}

	total := p.Size()
	taken := make(map[int]bool, len(positions))
	for _, pos := range positions {
		if pos <= first || pos > total-last {
			return fmt.Errorf("pool %q: absolute position %d collides with pinned boundaries", p.Name, pos)
		}
		if taken[pos] {
			return fmt.Errorf("pool %q: absolute position %d used twice", p.Name, pos)
		}
		taken[pos] = true
	}
	return nil
}
