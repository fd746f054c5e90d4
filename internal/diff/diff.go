// internal/diff/diff.go
package diff

import (
	"bytes"
	"fmt"
)

// LineType indicates whether a line was added, removed, or is context
type LineType int

const (
	Context LineType = iota
	Addition
	Deletion
)

// Line is one line of a diff. OldNum and NewNum are 1-based and zero on
// the side the line does not exist in.
type Line struct {
	Type    LineType
	Content string
	OldNum  int
	NewNum  int
}

// Hunk represents a continuous section of changes
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

type Result struct {
	Hunks     []Hunk
	Additions int
	Deletions int
}

func (r *Result) Empty() bool { return len(r.Hunks) == 0 }

// Engine provides line diffs with a fixed amount of context
type Engine struct {
	contextLines int
}

func NewEngine(contextLines int) *Engine {
	if contextLines < 0 {
		contextLines = 0
	}
	return &Engine{contextLines: contextLines}
}

// Diff compares oldContent with newContent line by line.
func (e *Engine) Diff(oldContent, newContent []byte) *Result {
	lines := walk(splitLines(oldContent), splitLines(newContent))

	result := &Result{}
	for _, l := range lines {
		switch l.Type {
		case Addition:
			result.Additions++
		case Deletion:
			result.Deletions++
		}
	}
	result.Hunks = e.hunks(lines)
	return result
}

func splitLines(content []byte) [][]byte {
	if len(content) == 0 {
		return nil
	}
	return bytes.Split(bytes.TrimSuffix(content, []byte{'\n'}), []byte{'\n'})
}

// walk produces the full edit script from a longest common subsequence
// table built over suffixes.
func walk(oldLines, newLines [][]byte) []Line {
	n, m := len(oldLines), len(newLines)
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if bytes.Equal(oldLines[i], newLines[j]) {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	var lines []Line
	i, j := 0, 0
	for i < n || j < m {
		switch {
		case i < n && j < m && bytes.Equal(oldLines[i], newLines[j]):
			lines = append(lines, Line{Type: Context, Content: string(oldLines[i]), OldNum: i + 1, NewNum: j + 1})
			i++
			j++
		case i < n && (j == m || lcs[i+1][j] >= lcs[i][j+1]):
			lines = append(lines, Line{Type: Deletion, Content: string(oldLines[i]), OldNum: i + 1})
			i++
		default:
			lines = append(lines, Line{Type: Addition, Content: string(newLines[j]), NewNum: j + 1})
			j++
		}
	}
	return lines
}

// hunks groups changes whose context would overlap into one hunk.
func (e *Engine) hunks(lines []Line) []Hunk {
	var changes []int
	for i, l := range lines {
		if l.Type != Context {
			changes = append(changes, i)
		}
	}

	var hunks []Hunk
	for k := 0; k < len(changes); {
		start := max(0, changes[k]-e.contextLines)
		last := changes[k]
		for k++; k < len(changes) && changes[k]-last <= 2*e.contextLines+1; k++ {
			last = changes[k]
		}
		end := min(len(lines), last+e.contextLines+1)
		hunks = append(hunks, newHunk(lines, start, end))
	}
	return hunks
}

func newHunk(lines []Line, start, end int) Hunk {
	h := Hunk{Lines: lines[start:end]}
	oldBefore, newBefore := 0, 0
	for _, l := range lines[:start] {
		if l.Type != Addition {
			oldBefore++
		}
		if l.Type != Deletion {
			newBefore++
		}
	}
	for _, l := range h.Lines {
		if l.Type != Addition {
			h.OldLines++
		}
		if l.Type != Deletion {
			h.NewLines++
		}
	}
	h.OldStart, h.NewStart = oldBefore, newBefore
	if h.OldLines > 0 {
		h.OldStart++
	}
	if h.NewLines > 0 {
		h.NewStart++
	}
	return h
}

// Format renders the result in unified diff hunk syntax.
func (r *Result) Format() string {
	var buf bytes.Buffer

	for _, hunk := range r.Hunks {
		fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n",
			hunk.OldStart, hunk.OldLines,
			hunk.NewStart, hunk.NewLines)

		for _, line := range hunk.Lines {
			switch line.Type {
			case Addition:
				buf.WriteString("+")
			case Deletion:
				buf.WriteString("-")
			case Context:
				buf.WriteString(" ")
			}
			buf.WriteString(line.Content)
			buf.WriteString("\n")
		}
	}

	return buf.String()
}
