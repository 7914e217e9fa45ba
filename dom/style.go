package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
)

// SetStyle sets an inline style property on every node in sel, keeping the
// other declarations of each node's style attribute in place.
func SetStyle(sel *goquery.Selection, prop, value string) {
	sel.Each(func(_ int, s *goquery.Selection) {
		current, _ := s.Attr("style")
		next := setDeclaration(current, prop, value)
		if next != current {
			s.SetAttr("style", next)
		}
	})
}

// Style returns the inline value of prop on n, or "".
func Style(n *html.Node, prop string) string {
	decls, err := parser.ParseDeclarations(Attr(n, "style"))
	if err != nil {
		return ""
	}
	for _, decl := range decls {
		if decl.Property == prop {
			return decl.Value
		}
	}
	return ""
}

func setDeclaration(style, prop, value string) string {
	decls, err := parser.ParseDeclarations(style)
	if err != nil {
		// Unparseable inline style: start over with just this property
		decls = nil
	}

	found := false
	for _, decl := range decls {
		if decl.Property == prop {
			decl.Value = value
			found = true
		}
	}
	if !found {
		decls = append(decls, &css.Declaration{Property: prop, Value: value})
	}

	parts := make([]string, len(decls))
	for i, decl := range decls {
		parts[i] = decl.String()
	}
	return strings.Join(parts, " ")
}
