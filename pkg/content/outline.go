package content

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type Heading struct {
	Text  string
	Level int
}

// Outline returns the headings of a chapter's markdown content in document order.
func Outline(markdown string) ([]Heading, error) {
	var ret []Heading
	source := []byte(markdown)

	document := goldmark.DefaultParser().Parse(text.NewReader(source))
	err := ast.Walk(document, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			ret = append(ret, Heading{
				Text:  strings.TrimSpace(string(h.Text(source))),
				Level: h.Level,
			})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}
