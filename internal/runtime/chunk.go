package runtime

import "sort"

// LineStart records the first bytecode offset emitted for a source line.
// The records are sorted by offset because instructions are only ever
// appended during the single-pass compile.
type LineStart struct {
	Offset int
	Line   int
}

// Chunk is a growable sequence of bytecode instructions plus the constants
// and source-line metadata they reference.
type Chunk struct {
	Code      []byte
	Lines     []LineStart
	Constants ValueArray
}

const chunkInitialCap = 256

// Write appends an instruction byte, recording the line on first use.
func (c *Chunk) Write(b byte, line int) {
	if c.Code == nil {
		c.Code = make([]byte, 0, chunkInitialCap)
	}
	if len(c.Lines) == 0 || c.Lines[len(c.Lines)-1].Line != line {
		c.Lines = append(c.Lines, LineStart{Offset: len(c.Code), Line: line})
	}
	c.Code = append(c.Code, b)
}

// AddConstant appends a constant and returns its index.
func (c *Chunk) AddConstant(v Value) int {
	c.Constants.Write(v)
	return c.Constants.Count() - 1
}

// Line returns the source line of the instruction at offset using binary
// search over the sorted line records.
func (c *Chunk) Line(offset int) int {
	if len(c.Lines) == 0 {
		return 0
	}
	// First record with Offset > offset, then step back one
	i := sort.Search(len(c.Lines), func(i int) bool {
		return c.Lines[i].Offset > offset
	})
	if i == 0 {
		return c.Lines[0].Line
	}
	return c.Lines[i-1].Line
}

// Count returns the number of instruction bytes.
func (c *Chunk) Count() int {
	return len(c.Code)
}
