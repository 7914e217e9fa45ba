// Package share builds share requests for a page and hands them to a
// platform share capability.
package share

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"littrfix/dom"
	"littrfix/term"

	"github.com/PuerkitoBio/goquery"
	"github.com/skip2/go-qrcode"
)

// Request is what gets shared.
type Request struct {
	Title string
	Text  string
	URL   string
}

// FromDocument builds a request for the page. The URL is the canonical link
// if the page declares one, otherwise location; the text defaults to the title.
func FromDocument(d *dom.Document, location string) Request {
	req := Request{URL: location}
	d.View(func(doc *goquery.Document) {
		if href, ok := doc.Find("link[rel=canonical]").First().Attr("href"); ok && href != "" {
			req.URL = href
		}
		req.Title = strings.TrimSpace(doc.Find("title").First().Text())
	})
	req.Text = req.Title
	return req
}

// Sharer hands a request to whatever the platform offers for sharing.
type Sharer interface {
	Share(ctx context.Context, req Request) error
}

// Func adapts a function to Sharer.
type Func func(ctx context.Context, req Request) error

func (f Func) Share(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// QRSharer shares by rendering the URL as a QR code: as text when writing
// to a terminal, otherwise as a PNG file in Dir.
type QRSharer struct {
	Out  *os.File
	Dir  string
	Size int // PNG edge length in pixels
}

// NewQRSharer writes to stdout, falling back to PNGs in the temp dir.
func NewQRSharer() *QRSharer {
	return &QRSharer{Out: os.Stdout, Dir: os.TempDir(), Size: 256}
}

func (q *QRSharer) Share(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if req.URL == "" {
		return fmt.Errorf("share: empty URL")
	}

	code, err := qrcode.New(req.URL, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("encoding QR code: %w", err)
	}

	if q.Out != nil && term.IsTerminal(q.Out) {
		return WriteText(q.Out, req, code.ToSmallString(false))
	}

	path := filepath.Join(q.Dir, "share-"+slug(req.Title)+".png")
	if err := code.WriteFile(q.Size, path); err != nil {
		return fmt.Errorf("writing QR code: %w", err)
	}
	if q.Out != nil {
		fmt.Fprintf(q.Out, "%s\n%s\n", req.URL, path)
	}
	return nil
}

// WriteText prints a request with a rendered code beneath it.
func WriteText(w io.Writer, req Request, code string) error {
	_, err := fmt.Fprintf(w, "%s\n%s\n%s", req.Title, req.URL, code)
	return err
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "page"
	}
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteByte('-')
		}
	}
	return strings.Trim(sb.String(), "-")
}
