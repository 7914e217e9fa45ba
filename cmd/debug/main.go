// Debug tool to check which fixup targets a littr page carries
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"littrfix/config"
	"littrfix/fetcher"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: debug <file|url>")
		os.Exit(2)
	}

	cfg := config.Default()
	f := fetcher.New(fetcher.Options{UserAgent: cfg.Fetcher.UserAgent}, nil)
	d, location, err := f.Document(context.Background(), os.Args[1], false)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	fmt.Printf("%s (%s)\n\n", d.Title(), location)

	targets := []struct{ name, selector string }{
		{"posts", cfg.Selectors.Text},
		{"post links", cfg.Selectors.Anchors},
		{"share", cfg.Selectors.ShareTarget},
		{"mode switch", cfg.Selectors.ModeSwitch},
		{"username", cfg.Selectors.Username},
		{"password", cfg.Selectors.Password},
		{"login", cfg.Selectors.Submit},
		{"users table", "#table-users"},
		{"stats table", "#table-stats-flow"},
		{"poll table", "#table-poll"},
		{"bottom nav", "#nav-bottom > a"},
	}

	d.View(func(doc *goquery.Document) {
		for _, t := range targets {
			sel, err := cascadia.Compile(t.selector)
			if err != nil {
				fmt.Printf("%-12s %-48s bad selector: %v\n", t.name, t.selector, err)
				continue
			}
			fmt.Printf("%-12s %-48s %d\n", t.name, t.selector, doc.FindMatcher(sel).Length())
		}

		main := doc.Find("main").First()
		if main.Length() == 0 {
			fmt.Println("\nNo main found!")
			return
		}
		fmt.Println("\nmain, analyzing children...")
		analyzeNode(main.Get(0), 0, 3) // max depth 3
	})
}

func analyzeNode(n *html.Node, depth, maxDepth int) {
	if depth > maxDepth {
		return
	}

	indent := strings.Repeat("  ", depth)

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		attrs := ""
		for _, a := range c.Attr {
			if a.Key == "id" || a.Key == "class" {
				attrs += fmt.Sprintf(" %s=%q", a.Key, a.Val)
			}
		}
		fmt.Printf("%s<%s%s>\n", indent, c.Data, attrs)
		analyzeNode(c, depth+1, maxDepth)
	}
}
