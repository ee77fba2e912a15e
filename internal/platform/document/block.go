// Package document assembles paginated PDF documents from typed content
// blocks. Callers build a flat block list, a layout pass slices it into
// pages, and a renderer draws the pages. Assembly is pure so the same input
// always produces the same block stream.
package document

// Block is one typed unit of document content.
type Block interface {
	blockNode()
}

// Heading is a section or document title. Level 1 is the document title,
// level 2 a section header.
type Heading struct {
	Text  string
	Level int
}

// Pair is a labelled value in a KeyValues block.
type Pair struct {
	Key   string
	Value string
}

// KeyValues renders labelled values in two columns.
type KeyValues struct {
	Pairs []Pair
}

// Table renders a header row plus data rows. Widths are fractions of the
// usable page width; when empty the columns share the width evenly. The
// layout pass may split a Table across pages, re-emitting the header row.
type Table struct {
	Headers []string
	Rows    [][]string
	Widths  []float64
}

// Spacer adds vertical whitespace, in millimetres.
type Spacer struct {
	Height float64
}

// Image embeds a base64-encoded PNG or JPEG. When the data cannot be
// decoded the renderer falls back to the caption text so document
// generation never fails on a bad signature upload.
type Image struct {
	B64     string
	Caption string
	Width   float64
	Height  float64
}

// PageBreak forces the next block onto a new page.
type PageBreak struct{}

func (Heading) blockNode()   {}
func (KeyValues) blockNode() {}
func (Table) blockNode()     {}
func (Spacer) blockNode()    {}
func (Image) blockNode()     {}
func (PageBreak) blockNode() {}
