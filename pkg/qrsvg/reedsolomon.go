package qrsvg

// GF(256) arithmetic over the QR code's field, primitive polynomial
// x^8 + x^4 + x^3 + x^2 + 1 (0x11D), generator 2 — the exact field
// ISO/IEC 18004 specifies for Reed-Solomon error correction.

var gfExp [512]byte
var gfLog [256]byte

func init() {
	x := 1
	for i := 0; i < 255; i++ {
		gfExp[i] = byte(x)
		gfLog[x] = byte(i)
		x <<= 1
		if x&0x100 != 0 {
			x ^= 0x11D
		}
	}
	for i := 255; i < 512; i++ {
		gfExp[i] = gfExp[i-255]
	}
}

func gfMul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return gfExp[int(gfLog[a])+int(gfLog[b])]
}

// rsGeneratorPoly returns the coefficients (highest degree first) of
// the generator polynomial of degree n: product over i=0..n-1 of
// (x - 2^i), built incrementally the standard way.
func rsGeneratorPoly(n int) []byte {
	poly := []byte{1}
	for i := 0; i < n; i++ {
		poly = polyMulMonomial(poly, gfExp[i])
	}
	return poly
}

// polyMulMonomial multiplies poly by (x + root) in GF(256).
func polyMulMonomial(poly []byte, root byte) []byte {
	out := make([]byte, len(poly)+1)
	for i, c := range poly {
		out[i] ^= c
		out[i+1] ^= gfMul(c, root)
	}
	return out
}

// rsEncode returns the eccLen error-correction codewords for data,
// computed as the remainder of data*x^eccLen divided by the generator
// polynomial of degree eccLen, all in GF(256).
func rsEncode(data []byte, eccLen int) []byte {
	gen := rsGeneratorPoly(eccLen)
	remainder := make([]byte, len(data)+eccLen)
	copy(remainder, data)

	for i := 0; i < len(data); i++ {
		coef := remainder[i]
		if coef == 0 {
			continue
		}
		for j, g := range gen {
			remainder[i+j] ^= gfMul(g, coef)
		}
	}

	return remainder[len(data):]
}
