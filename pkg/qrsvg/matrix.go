package qrsvg

// matrix is a square grid of modules. dark holds the module color;
// function marks modules that are part of a fixed pattern (finder,
// timing, alignment, format/version reservation) and so must never be
// touched by data placement or masking.
type matrix struct {
	size     int
	dark     []bool
	function []bool
}

func newMatrix(size int) *matrix {
	return &matrix{size: size, dark: make([]bool, size*size), function: make([]bool, size*size)}
}

func (m *matrix) idx(x, y int) int { return y*m.size + x }

func (m *matrix) set(x, y int, dark, fn bool) {
	i := m.idx(x, y)
	m.dark[i] = dark
	m.function[i] = fn
}

func (m *matrix) get(x, y int) bool     { return m.dark[m.idx(x, y)] }
func (m *matrix) isFn(x, y int) bool    { return m.function[m.idx(x, y)] }
func (m *matrix) inBounds(x, y int) bool {
	return x >= 0 && x < m.size && y >= 0 && y < m.size
}

// placeFinderPattern draws the 7x7 finder plus its 1-module white
// separator border, anchored at (x, y) = the finder's top-left corner.
func (m *matrix) placeFinderPattern(x, y int) {
	for dy := -1; dy <= 7; dy++ {
		for dx := -1; dx <= 7; dx++ {
			px, py := x+dx, y+dy
			if !m.inBounds(px, py) {
				continue
			}
			dark := false
			switch {
			case dx >= 0 && dx <= 6 && dy >= 0 && dy <= 6:
				ring := dx == 0 || dx == 6 || dy == 0 || dy == 6
				inner := dx >= 2 && dx <= 4 && dy >= 2 && dy <= 4
				dark = ring || inner
			default:
				dark = false // separator
			}
			m.set(px, py, dark, true)
		}
	}
}

func (m *matrix) placeTimingPatterns() {
	for i := 8; i < m.size-8; i++ {
		dark := i%2 == 0
		if !m.isFn(i, 6) {
			m.set(i, 6, dark, true)
		}
		if !m.isFn(6, i) {
			m.set(6, i, dark, true)
		}
	}
}

// placeAlignmentPatterns draws a 5x5 alignment pattern centered at
// every (row, col) combination from coords, skipping any center that
// would overlap a finder pattern.
func (m *matrix) placeAlignmentPatterns(coords []int) {
	for _, cy := range coords {
		for _, cx := range coords {
			if m.overlapsFinder(cx, cy) {
				continue
			}
			for dy := -2; dy <= 2; dy++ {
				for dx := -2; dx <= 2; dx++ {
					ring := dx == -2 || dx == 2 || dy == -2 || dy == 2
					center := dx == 0 && dy == 0
					m.set(cx+dx, cy+dy, ring || center, true)
				}
			}
		}
	}
}

func (m *matrix) overlapsFinder(cx, cy int) bool {
	corners := [][2]int{{3, 3}, {m.size - 4, 3}, {3, m.size - 4}}
	for _, c := range corners {
		if abs(cx-c[0]) <= 4 && abs(cy-c[1]) <= 4 {
			return true
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// reserveFormatAreas marks (without yet writing) the two format-info
// strips flanking the top-left finder, plus the dark module fixed at
// (8, size-8).
func (m *matrix) reserveFormatAreas() {
	for i := 0; i <= 8; i++ {
		if i != 6 {
			m.set(8, i, false, true) // vertical strip near top-left finder
			m.set(i, 8, false, true) // horizontal strip near top-left finder
		}
	}
	for i := 0; i < 8; i++ {
		m.set(m.size-1-i, 8, false, true) // horizontal strip near top-right finder
		m.set(8, m.size-1-i, false, true) // vertical strip near bottom-left finder
	}
	m.set(8, m.size-8, true, true) // the permanently dark module
}

func (m *matrix) reserveVersionAreas() {
	if m.size < modules(7) {
		return
	}
	for i := 0; i < 6; i++ {
		for j := 0; j < 3; j++ {
			m.set(i, m.size-11+j, false, true)
			m.set(m.size-11+j, i, false, true)
		}
	}
}

// writeFormatInfo writes the 15-bit format word around the top-left
// finder and mirrored alongside the top-right/bottom-left finders.
func (m *matrix) writeFormatInfo(word uint32) {
	bit := func(i int) bool { return (word>>uint(i))&1 == 1 }

	row := []int{0, 1, 2, 3, 4, 5, 7, 8, 8, 8, 8, 8, 8, 8, 8}
	col := []int{8, 8, 8, 8, 8, 8, 8, 8, 7, 5, 4, 3, 2, 1, 0}
	for i := 0; i < 15; i++ {
		m.set(col[i], row[i], bit(i), true)
	}

	for i := 0; i < 8; i++ {
		m.set(m.size-1-i, 8, bit(i), true)
	}
	for i := 8; i < 15; i++ {
		m.set(8, m.size-15+i, bit(i), true)
	}
}

func (m *matrix) writeVersionInfo(word uint32) {
	if m.size < modules(7) {
		return
	}
	bit := func(i int) bool { return (word>>uint(i))&1 == 1 }
	k := 0
	for i := 0; i < 6; i++ {
		for j := 0; j < 3; j++ {
			m.set(i, m.size-11+j, bit(k), true)
			m.set(m.size-11+j, i, bit(k), true)
			k++
		}
	}
}

// placeData fills every non-function module with codeword bits in the
// standard QR zigzag order: two-column strides moving bottom-to-top
// then top-to-bottom, right to left, skipping the vertical timing
// column.
func (m *matrix) placeData(codewords []byte) {
	bitIdx := 0
	totalBits := len(codewords) * 8
	nextBit := func() bool {
		if bitIdx >= totalBits {
			return false
		}
		b := codewords[bitIdx/8]
		bit := (b >> uint(7-bitIdx%8)) & 1
		bitIdx++
		return bit == 1
	}

	upward := true
	for x := m.size - 1; x > 0; x -= 2 {
		if x == 6 {
			x-- // skip the timing column entirely
		}
		if upward {
			for y := m.size - 1; y >= 0; y-- {
				m.tryPlaceBit(x, y, nextBit)
				m.tryPlaceBit(x-1, y, nextBit)
			}
		} else {
			for y := 0; y < m.size; y++ {
				m.tryPlaceBit(x, y, nextBit)
				m.tryPlaceBit(x-1, y, nextBit)
			}
		}
		upward = !upward
	}
}

func (m *matrix) tryPlaceBit(x, y int, nextBit func() bool) {
	if !m.inBounds(x, y) || m.isFn(x, y) {
		return
	}
	m.set(x, y, nextBit(), false)
}
