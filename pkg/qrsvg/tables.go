package qrsvg

// Supported versions and error-correction-level M block layout (ISO/IEC
// 18004 Table 9, Error Correction Level M only). The payload this
// package encodes — a "mediabus://pair?..." URL — never exceeds a few
// hundred bytes, so versions 1-10 (max 213 byte-mode data bytes at
// level M) are the only ones implemented; a longer payload is a
// Validation-kind error from Encode, not a silent truncation.
type versionSpec struct {
	version             int
	eccCodewordsPerBlock int
	g1Blocks, g1Data     int
	g2Blocks, g2Data     int
	alignmentCoords      []int
}

var versionTable = []versionSpec{
	{1, 10, 1, 16, 0, 0, nil},
	{2, 16, 1, 28, 0, 0, []int{6, 18}},
	{3, 26, 1, 44, 0, 0, []int{6, 22}},
	{4, 18, 2, 32, 0, 0, []int{6, 26}},
	{5, 24, 2, 43, 0, 0, []int{6, 30}},
	{6, 16, 4, 27, 0, 0, []int{6, 34}},
	{7, 18, 4, 31, 0, 0, []int{6, 22, 38}},
	{8, 22, 2, 38, 2, 39, []int{6, 24, 42}},
	{9, 22, 3, 36, 2, 37, []int{6, 26, 46}},
	{10, 26, 4, 43, 1, 44, []int{6, 28, 50}},
}

func versionByNumber(v int) versionSpec {
	return versionTable[v-1]
}

// totalDataCodewords is the byte capacity available to the mode
// indicator, count indicator, payload, and padding.
func (v versionSpec) totalDataCodewords() int {
	return v.g1Blocks*v.g1Data + v.g2Blocks*v.g2Data
}

// modules returns the side length of the version's matrix, including
// the 1-module-wide alternating timing pattern border logic baked into
// the standard 17+4*version formula.
func modules(version int) int {
	return 17 + 4*version
}

// byteModeCountBits is the bit width of byte mode's character-count
// indicator for this version (8 for versions 1-9, 16 for 10-26).
func byteModeCountBits(version int) int {
	if version <= 9 {
		return 8
	}
	return 16
}

// formatGeneratorPoly and its fixed XOR mask, ISO/IEC 18004 §8.9.
const (
	formatGeneratorPoly = 0x537
	formatXORMask       = 0x5412
	formatBCHBits       = 15
	formatDataBits      = 5
)

// eccLevelIndicatorM is the 2-bit format-info field for EC level M.
const eccLevelIndicatorM = 0x0

// versionGeneratorPoly is used for versions 7 and up.
const (
	versionGeneratorPoly = 0x1F25
	versionBCHBits       = 18
	versionDataBits      = 6
)

// bchRemainder computes the BCH error-correction remainder of data
// (left-shifted by eccBits) divided by poly, over GF(2) (i.e. XOR
// polynomial division, not GF(256) — a distinct, smaller field used
// only for format/version info, per spec).
func bchRemainder(data uint32, eccBits int, poly uint32) uint32 {
	dividend := data << uint(eccBits)
	polyBitLen := bitLength(poly)
	for bitLength(dividend) >= polyBitLen {
		shift := bitLength(dividend) - polyBitLen
		dividend ^= poly << uint(shift)
	}
	return dividend
}

func bitLength(v uint32) int {
	n := 0
	for v != 0 {
		v >>= 1
		n++
	}
	return n
}

// encodeFormatInfo returns the 15-bit format info word for EC level M
// and the given mask pattern (0-7).
func encodeFormatInfo(maskPattern int) uint32 {
	data := uint32(eccLevelIndicatorM<<3 | maskPattern)
	rem := bchRemainder(data, formatBCHBits-formatDataBits, formatGeneratorPoly)
	word := (data << uint(formatBCHBits-formatDataBits)) | rem
	return word ^ formatXORMask
}

// encodeVersionInfo returns the 18-bit version info word for versions
// 7 and up.
func encodeVersionInfo(version int) uint32 {
	data := uint32(version)
	rem := bchRemainder(data, versionBCHBits-versionDataBits, versionGeneratorPoly)
	return (data << uint(versionBCHBits-versionDataBits)) | rem
}
