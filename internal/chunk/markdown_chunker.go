package chunk

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Doc chunk size defaults.
const (
	MaxChunkSize = 1000
	Overlap      = 100
	MinChunkSize = 50
)

// DocParser segments a prose file into retrieval-sized chunks by heading hierarchy, using
// goldmark to find heading boundaries so fenced code blocks containing "#" never get mistaken
// for headings.
type DocParser struct {
	md goldmark.Markdown
}

// NewDocParser creates a new doc parser.
func NewDocParser() *DocParser {
	return &DocParser{md: goldmark.New()}
}

type docSection struct {
	title     string
	level     int // 0 for the preamble
	lineStart int // 1-indexed
	lineEnd   int // 1-indexed, inclusive
}

// Parse splits source into retrieval chunks per the heading-hierarchy + character-overlap
// algorithm: each heading opens a section extending to the next heading of equal or higher
// level (or EOF); a preamble section before any heading is emitted too. Oversized sections are
// further split into overlapping sub-chunks preferring ". " boundaries, then newlines, then a
// hard cut; sub-chunks shorter than MinChunkSize are discarded.
func (p *DocParser) Parse(source []byte) []*ParsedDocChunk {
	if len(strings.TrimSpace(string(source))) == 0 {
		return nil
	}

	lines := splitKeepLines(source)
	sections := p.sections(source, lines)

	var chunks []*ParsedDocChunk
	for _, sec := range sections {
		body := strings.Join(lines[sec.lineStart-1:sec.lineEnd], "")
		body = strings.TrimRight(body, "\n")
		if strings.TrimSpace(body) == "" {
			continue
		}

		split := len(body) > MaxChunkSize
		for _, piece := range chunkContent(body, MaxChunkSize, Overlap) {
			if split && len(piece) < MinChunkSize {
				continue
			}
			chunks = append(chunks, &ParsedDocChunk{
				SectionTitle: sec.title,
				Content:      piece,
				LineStart:    sec.lineStart,
				LineEnd:      sec.lineEnd,
			})
		}
	}
	return chunks
}

// sections walks the goldmark AST to find heading positions, then derives section boundaries:
// each section runs from its heading line to the line before the next heading of equal-or-higher
// level (or EOF). A preamble section covers any content before the first heading.
func (p *DocParser) sections(source []byte, lines []string) []*docSection {
	reader := text.NewReader(source)
	root := p.md.Parser().Parse(reader)

	type heading struct {
		level int
		title string
		line  int // 1-indexed
	}
	var headings []heading

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		segs := h.Lines()
		line := 1
		if segs.Len() > 0 {
			line = lineNumberAt(source, segs.At(0).Start)
		}
		headings = append(headings, heading{level: h.Level, title: headingText(h, source), line: line})
		return ast.WalkSkipChildren, nil
	})

	if len(headings) == 0 {
		return []*docSection{{title: "", level: 0, lineStart: 1, lineEnd: len(lines)}}
	}

	var result []*docSection
	if headings[0].line > 1 {
		result = append(result, &docSection{title: "", level: 0, lineStart: 1, lineEnd: headings[0].line - 1})
	}

	for i, h := range headings {
		end := len(lines)
		for j := i + 1; j < len(headings); j++ {
			if headings[j].level <= h.level {
				end = headings[j].line - 1
				break
			}
		}
		result = append(result, &docSection{title: h.title, level: h.level, lineStart: h.line, lineEnd: end})
	}
	return result
}

// chunkContent splits content into overlapping chunks when it exceeds maxSize, preferring a
// ". " boundary in the second half of the window, then a newline, then a hard cut.
func chunkContent(content string, maxSize, overlap int) []string {
	if len(content) <= maxSize {
		return []string{content}
	}

	var chunks []string
	start := 0
	for start < len(content) {
		end := start + maxSize
		if end > len(content) {
			end = len(content)
		}

		if end < len(content) {
			window := content[start:end]
			half := maxSize / 2
			if idx := strings.LastIndex(window, ". "); idx > half {
				end = start + idx + 1
			} else if idx := strings.LastIndex(window, "\n"); idx > half {
				end = start + idx
			}
		}

		piece := strings.TrimSpace(content[start:end])
		if piece != "" {
			chunks = append(chunks, piece)
		}

		if end >= len(content) {
			break
		}
		start = end - overlap
		if start < 0 {
			start = 0
		}
	}
	return chunks
}

func splitKeepLines(source []byte) []string {
	var lines []string
	for _, l := range bytes.SplitAfter(source, []byte("\n")) {
		if len(l) == 0 {
			continue
		}
		lines = append(lines, string(l))
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}

// headingText concatenates the raw text segments of a heading's inline children.
func headingText(h *ast.Heading, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(h, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			seg := t.Segment
			sb.Write(seg.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

func lineNumberAt(source []byte, offset int) int {
	if offset > len(source) {
		offset = len(source)
	}
	return bytes.Count(source[:offset], []byte("\n")) + 1
}
