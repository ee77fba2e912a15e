package document

// Layout describes the page geometry used by the pagination pass, in
// millimetres.
type Layout struct {
	PageWidth    float64
	PageHeight   float64
	MarginTop    float64
	MarginBottom float64
	MarginLeft   float64
	MarginRight  float64

	HeadingHeight    [2]float64 // level 1, level 2
	PairHeight       float64
	TableHeaderHeight float64
	TableRowHeight   float64
}

// A4 is the default portrait layout.
func A4() Layout {
	return Layout{
		PageWidth:    210,
		PageHeight:   297,
		MarginTop:    15,
		MarginBottom: 15,
		MarginLeft:   12,
		MarginRight:  12,

		HeadingHeight:     [2]float64{14, 9},
		PairHeight:        6,
		TableHeaderHeight: 8,
		TableRowHeight:    7,
	}
}

// Usable returns the drawable height of one page.
func (l Layout) Usable() float64 {
	return l.PageHeight - l.MarginTop - l.MarginBottom
}

// UsableWidth returns the drawable width of one page.
func (l Layout) UsableWidth() float64 {
	return l.PageWidth - l.MarginLeft - l.MarginRight
}

func (l Layout) headingHeight(level int) float64 {
	if level <= 1 {
		return l.HeadingHeight[0]
	}
	return l.HeadingHeight[1]
}

// height returns the vertical space a block occupies. Tables are measured
// whole here; Paginate handles splitting them.
func (l Layout) height(b Block) float64 {
	switch v := b.(type) {
	case Heading:
		return l.headingHeight(v.Level)
	case KeyValues:
		return float64(len(v.Pairs)) * l.PairHeight
	case Table:
		return l.TableHeaderHeight + float64(len(v.Rows))*l.TableRowHeight
	case Spacer:
		return v.Height
	case Image:
		return v.Height + l.PairHeight // caption line
	case PageBreak:
		return 0
	}
	return 0
}

// Paginate slices blocks into pages. A block that would overflow the
// remaining space moves to the next page; tables too tall for a whole page
// are split, with the header row re-emitted on each continuation. A table
// split never leaves a bare header at the bottom of a page.
func Paginate(blocks []Block, l Layout) [][]Block {
	usable := l.Usable()

	var pages [][]Block
	var page []Block
	remaining := usable

	flush := func() {
		if len(page) > 0 {
			pages = append(pages, page)
			page = nil
		}
		remaining = usable
	}

	for _, b := range blocks {
		if _, ok := b.(PageBreak); ok {
			flush()
			continue
		}

		if t, ok := b.(Table); ok {
			page, pages, remaining = placeTable(t, page, pages, remaining, usable, l)
			continue
		}

		h := l.height(b)
		if h > remaining && len(page) > 0 {
			flush()
		}
		page = append(page, b)
		remaining -= h
	}
	flush()

	if len(pages) == 0 {
		pages = [][]Block{{}}
	}
	return pages
}

func placeTable(t Table, page []Block, pages [][]Block, remaining, usable float64, l Layout) ([]Block, [][]Block, float64) {
	rows := t.Rows
	for {
		// Space for the header plus at least one row, or the whole table
		// when it is small enough.
		need := l.TableHeaderHeight + l.TableRowHeight
		if len(rows) == 0 {
			need = l.TableHeaderHeight
		}
		if need > remaining && len(page) > 0 {
			pages = append(pages, page)
			page = nil
			remaining = usable
		}

		fit := int((remaining - l.TableHeaderHeight) / l.TableRowHeight)
		if fit >= len(rows) {
			page = append(page, Table{Headers: t.Headers, Rows: rows, Widths: t.Widths})
			remaining -= l.TableHeaderHeight + float64(len(rows))*l.TableRowHeight
			return page, pages, remaining
		}
		if fit < 1 {
			fit = 1
		}
		page = append(page, Table{Headers: t.Headers, Rows: rows[:fit], Widths: t.Widths})
		pages = append(pages, page)
		page = nil
		remaining = usable
		rows = rows[fit:]
	}
}
