package pdfdoc

import (
	"math"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// Rect is an axis-aligned box in PDF user space (origin bottom-left).
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Union returns the smallest Rect covering r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X0: math.Min(r.X0, o.X0),
		Y0: math.Min(r.Y0, o.Y0),
		X1: math.Max(r.X1, o.X1),
		Y1: math.Max(r.Y1, o.Y1),
	}
}

// Color is an RGB color with components in [0,1].
type Color struct {
	R, G, B float64
}

var Yellow = Color{R: 1, G: 1, B: 0}

const (
	defaultFontSize = 10.0
	// Advance used when the font carries no width table.
	estAdvance = 0.5
	// Baseline drop, in font sizes, above which a new paragraph starts.
	paragraphGap = 1.5
	// Horizontal gap, in font sizes, treated as a word break.
	wordGap = 0.25
)

type glyph struct {
	box  Rect
	line int
}

// pageLayout is the reconstructed reading-order text of a page plus the
// glyph behind every byte of it (-1 for inserted separators).
type pageLayout struct {
	text    string
	glyphAt []int
	glyphs  []glyph
}

// buildLayout turns positioned glyphs into text. Lines break when the
// baseline moves, and a baseline drop larger than paragraphGap font sizes
// becomes a blank line.
func buildLayout(texts []pdflib.Text) pageLayout {
	var (
		sb      strings.Builder
		l       pageLayout
		line    = -1
		lineY   float64
		lastEnd float64
		rawX    = math.NaN()
		rawY    = math.NaN()
	)

	write := func(s string, g int) {
		sb.WriteString(s)
		for range len(s) {
			l.glyphAt = append(l.glyphAt, g)
		}
	}

	for _, t := range texts {
		if t.S == "" || strings.Trim(t.S, "\r\n") == "" {
			continue
		}
		size := t.FontSize
		if size <= 0 {
			size = defaultFontSize
		}

		w := t.W
		x := t.X
		if w <= 0 {
			w = size * estAdvance
			// Same origin as the previous glyph: the font had no widths, so
			// keep advancing from where that glyph ended.
			if t.X == rawX && t.Y == rawY {
				x = lastEnd
			}
		}
		rawX, rawY = t.X, t.Y

		switch {
		case line < 0:
			line = 0
			lineY = t.Y
		case math.Abs(t.Y-lineY) > size*0.5:
			drop := lineY - t.Y
			if drop > size*paragraphGap || drop < 0 {
				write("\n\n", -1)
			} else {
				write("\n", -1)
			}
			line++
			lineY = t.Y
		case x-lastEnd > size*wordGap && !endsWithSpace(sb.String()) && t.S != " ":
			write(" ", -1)
		}

		l.glyphs = append(l.glyphs, glyph{
			box:  Rect{X0: x, Y0: t.Y - 0.2*size, X1: x + w, Y1: t.Y + 0.8*size},
			line: line,
		})
		write(t.S, len(l.glyphs)-1)
		lastEnd = x + w
	}

	l.text = sb.String()
	return l
}

func endsWithSpace(s string) bool {
	return s == "" || strings.HasSuffix(s, " ") || strings.HasSuffix(s, "\n")
}

// boxes returns every occurrence of exact in the page text, one Rect per
// covered line per occurrence.
func (l pageLayout) boxes(exact string) []Rect {
	if exact == "" {
		return nil
	}
	var out []Rect
	for off := 0; off < len(l.text); {
		i := strings.Index(l.text[off:], exact)
		if i < 0 {
			break
		}
		start := off + i
		end := start + len(exact)
		out = append(out, l.spanBoxes(start, end)...)
		off = end
	}
	return out
}

func (l pageLayout) spanBoxes(start, end int) []Rect {
	var (
		out  []Rect
		cur  Rect
		line = -1
		prev = -1
	)
	for b := start; b < end; b++ {
		g := l.glyphAt[b]
		if g < 0 || g == prev {
			continue
		}
		prev = g
		gl := l.glyphs[g]
		if gl.line != line {
			if line >= 0 {
				out = append(out, cur)
			}
			line = gl.line
			cur = gl.box
			continue
		}
		cur = cur.Union(gl.box)
	}
	if line >= 0 {
		out = append(out, cur)
	}
	return out
}
