package qrsvg

import (
	"fmt"
	"strings"
)

const (
	moduleSize = 4
	quietZone  = 4
)

// renderSVG draws m as a minimal SVG document: a white background rect
// and a single path holding one square subpath per dark module, with a
// quietZone-module white border on every
// side as the QR spec requires for reliable scanning.
func renderSVG(m *matrix) string {
	dim := (m.size + 2*quietZone) * moduleSize

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d" shape-rendering="crispEdges">`,
		dim, dim, dim, dim)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="#fff"/>`, dim, dim)

	b.WriteString(`<path fill="#000" d="`)
	for y := 0; y < m.size; y++ {
		for x := 0; x < m.size; x++ {
			if !m.get(x, y) {
				continue
			}
			px := (x + quietZone) * moduleSize
			py := (y + quietZone) * moduleSize
			fmt.Fprintf(&b, "M%d %dh%dv%dh-%dz", px, py, moduleSize, moduleSize, moduleSize)
		}
	}
	b.WriteString(`"/>`)
	b.WriteString(`</svg>`)
	return b.String()
}
