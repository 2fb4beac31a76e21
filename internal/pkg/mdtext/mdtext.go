package mdtext

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Strip renders markdown down to plain text so markup tokens ("##", "```",
// link targets) never leak into the relevance index. Documents are stored
// verbatim; only indexing goes through here.
func Strip(src string) string {
	source := []byte(src)
	root := goldmark.New().Parser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				buf.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.CodeBlock:
			writeLines(&buf, source, node)
		case *ast.FencedCodeBlock:
			writeLines(&buf, source, node)
		case *ast.AutoLink:
			buf.Write(node.URL(source))
			buf.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(buf.String()), " ")
}

func writeLines(buf *bytes.Buffer, source []byte, node ast.Node) {
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		buf.Write(segment.Value(source))
		buf.WriteByte(' ')
	}
}
