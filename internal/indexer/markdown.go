package indexer

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// markdownRenderer flattens markdown into plain text using goldmark AST parsing.
// Blocks are separated by blank lines so the splitter can break on them.
type markdownRenderer struct {
	parser goldmark.Markdown
}

func newMarkdownRenderer() *markdownRenderer {
	return &markdownRenderer{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// PlainText returns the text content of a markdown document without markup.
func (r *markdownRenderer) PlainText(content []byte) string {
	if len(content) == 0 {
		return ""
	}

	doc := r.parser.Parser().Parse(text.NewReader(content))

	var blocks []string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if block := renderBlock(n, content); block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func renderBlock(n ast.Node, content []byte) string {
	switch node := n.(type) {
	case *ast.Heading, *ast.Paragraph, *ast.TextBlock:
		return extractTextFromNode(node, content)

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		var b strings.Builder
		lines := node.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			b.Write(line.Value(content))
		}
		return strings.TrimSpace(b.String())

	case *ast.List:
		var items []string
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			if t := extractTextFromNode(item, content); t != "" {
				items = append(items, "- "+t)
			}
		}
		return strings.Join(items, "\n")

	case *ast.Blockquote:
		var parts []string
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			if t := renderBlock(child, content); t != "" {
				parts = append(parts, t)
			}
		}
		return strings.Join(parts, "\n")

	case *ast.ThematicBreak, *ast.HTMLBlock:
		return ""
	}

	// Table extension nodes are matched by kind name
	if strings.Contains(n.Kind().String(), "Table") {
		var rows []string
		for row := n.FirstChild(); row != nil; row = row.NextSibling() {
			if t := extractTableRowText(row, content); t != "" {
				rows = append(rows, t)
			}
		}
		return strings.Join(rows, "\n")
	}

	return extractTextFromNode(n, content)
}

// extractTextFromNode extracts text content from a node and its children.
// Soft and hard line breaks inside a paragraph become spaces and newlines.
func extractTextFromNode(n ast.Node, content []byte) string {
	var textBuilder strings.Builder

	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch v := node.(type) {
		case *ast.Text:
			textBuilder.Write(v.Segment.Value(content))
			if v.HardLineBreak() {
				textBuilder.WriteString("\n")
			} else if v.SoftLineBreak() {
				textBuilder.WriteString(" ")
			}
		case *ast.String:
			textBuilder.Write(v.Value)
		case *ast.Paragraph, *ast.TextBlock:
			if textBuilder.Len() > 0 {
				textBuilder.WriteString(" ")
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(textBuilder.String())
}

// extractTableRowText extracts text from a table row, formatting cells with pipe separators.
func extractTableRowText(row ast.Node, content []byte) string {
	var rowBuilder strings.Builder
	cellCount := 0

	_ = ast.Walk(row, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		if strings.Contains(node.Kind().String(), "TableCell") {
			if cellCount > 0 {
				rowBuilder.WriteString(" | ")
			}
			rowBuilder.WriteString(extractTextFromNode(node, content))
			cellCount++
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return rowBuilder.String()
}
