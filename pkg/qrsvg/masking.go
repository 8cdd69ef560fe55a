package qrsvg

// maskFormula returns whether mask pattern p flips the module at (x, y).
// The eight formulas are fixed by ISO/IEC 18004 §8.8.1.
func maskFormula(p, x, y int) bool {
	switch p {
	case 0:
		return (y+x)%2 == 0
	case 1:
		return y%2 == 0
	case 2:
		return x%3 == 0
	case 3:
		return (y+x)%3 == 0
	case 4:
		return (y/2+x/3)%2 == 0
	case 5:
		return (y*x)%2+(y*x)%3 == 0
	case 6:
		return ((y*x)%2+(y*x)%3)%2 == 0
	case 7:
		return ((y+x)%2+(y*x)%3)%2 == 0
	default:
		return false
	}
}

// applyMask flips every non-function module for which maskFormula
// returns true, producing a new matrix (leaving m untouched so the
// caller can try every pattern against the same base layout).
func (m *matrix) applyMask(pattern int) *matrix {
	out := &matrix{size: m.size, dark: make([]bool, len(m.dark)), function: m.function}
	copy(out.dark, m.dark)
	for y := 0; y < m.size; y++ {
		for x := 0; x < m.size; x++ {
			if m.isFn(x, y) {
				continue
			}
			if maskFormula(pattern, x, y) {
				i := m.idx(x, y)
				out.dark[i] = !out.dark[i]
			}
		}
	}
	return out
}

// penalty computes the ISO/IEC 18004 §8.8.2 mask-evaluation score: the
// lower the total, the better the mask. Chosen mask is whichever
// minimizes this across patterns 0-7.
func (m *matrix) penalty() int {
	return m.penaltyRuns() + m.penaltyBlocks() + m.penaltyPatterns() + m.penaltyBalance()
}

func (m *matrix) penaltyRuns() int {
	total := 0
	for y := 0; y < m.size; y++ {
		total += runPenaltyLine(func(i int) bool { return m.get(i, y) }, m.size)
	}
	for x := 0; x < m.size; x++ {
		total += runPenaltyLine(func(i int) bool { return m.get(x, i) }, m.size)
	}
	return total
}

func runPenaltyLine(at func(int) bool, n int) int {
	total, run := 0, 1
	prev := at(0)
	for i := 1; i < n; i++ {
		v := at(i)
		if v == prev {
			run++
			continue
		}
		if run >= 5 {
			total += 3 + (run - 5)
		}
		run = 1
		prev = v
	}
	if run >= 5 {
		total += 3 + (run - 5)
	}
	return total
}

func (m *matrix) penaltyBlocks() int {
	total := 0
	for y := 0; y < m.size-1; y++ {
		for x := 0; x < m.size-1; x++ {
			c := m.get(x, y)
			if m.get(x+1, y) == c && m.get(x, y+1) == c && m.get(x+1, y+1) == c {
				total += 3
			}
		}
	}
	return total
}

// finderLikePattern is true if modules seq[0:11] match
// dark-light-dark-dark-dark-light-dark-light-light-light-light (or its
// reverse), the 1:1:3:1:1 ratio rule.
func finderLikePattern(seq []bool) bool {
	pattern := []bool{true, false, true, true, true, false, true, false, false, false, false}
	return matchesSeq(seq, pattern) || matchesSeq(seq, reverseSeq(pattern))
}

func matchesSeq(seq, pattern []bool) bool {
	if len(seq) != len(pattern) {
		return false
	}
	for i := range seq {
		if seq[i] != pattern[i] {
			return false
		}
	}
	return true
}

func reverseSeq(in []bool) []bool {
	out := make([]bool, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

func (m *matrix) penaltyPatterns() int {
	total := 0
	const windowLen = 11
	for y := 0; y < m.size; y++ {
		for x := 0; x+windowLen <= m.size; x++ {
			seq := make([]bool, windowLen)
			for i := 0; i < windowLen; i++ {
				seq[i] = m.get(x+i, y)
			}
			if finderLikePattern(seq) {
				total += 40
			}
		}
	}
	for x := 0; x < m.size; x++ {
		for y := 0; y+windowLen <= m.size; y++ {
			seq := make([]bool, windowLen)
			for i := 0; i < windowLen; i++ {
				seq[i] = m.get(x, y+i)
			}
			if finderLikePattern(seq) {
				total += 40
			}
		}
	}
	return total
}

func (m *matrix) penaltyBalance() int {
	dark := 0
	for _, v := range m.dark {
		if v {
			dark++
		}
	}
	total := m.size * m.size
	percent := dark * 100 / total
	deviation := percent - 50
	if deviation < 0 {
		deviation = -deviation
	}
	return (deviation / 5) * 10
}

// chooseBestMask applies every mask pattern to base and returns the
// pattern index and resulting matrix with the lowest penalty score.
func chooseBestMask(base *matrix) (int, *matrix) {
	bestPattern := 0
	var best *matrix
	bestScore := -1
	for p := 0; p < 8; p++ {
		candidate := base.applyMask(p)
		score := candidate.penalty()
		if bestScore < 0 || score < bestScore {
			bestScore = score
			bestPattern = p
			best = candidate
		}
	}
	return bestPattern, best
}
