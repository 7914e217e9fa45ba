// Package annotate rewrites post content: bare URLs, hashtags and mentions
// become links, and links to images become inline images.
package annotate

import (
	"regexp"
	"strings"
	"unicode"
)

// Routes are the path prefixes hashtag and mention links point at.
type Routes struct {
	Hashtag string
	User    string
}

// DefaultRoutes returns the flow routes.
func DefaultRoutes() Routes {
	return Routes{
		Hashtag: "/flow/hashtags/",
		User:    "/flow/users/",
	}
}

// tokenRegex finds, in priority order: an https URL, a #hashtag, an @mention.
var tokenRegex = regexp.MustCompile(`(https://[\w?=&./:;#~%-]+)|#(\w+)|@(\w+)`)

const minURLLen = len("https://") + 1

// Linkify rewrites URLs, hashtags and mentions found in markup into anchors.
// Tags and the content of existing anchors are left untouched, so applying
// Linkify to its own output changes nothing.
func Linkify(markup string, routes Routes) string {
	var sb strings.Builder
	sb.Grow(len(markup))

	anchors := 0
	i := 0
	for i < len(markup) {
		if markup[i] == '<' {
			end := tagEnd(markup, i)
			tag := markup[i:end]
			switch {
			case isAnchorOpen(tag):
				anchors++
			case isAnchorClose(tag) && anchors > 0:
				anchors--
			}
			sb.WriteString(tag)
			i = end
			continue
		}

		next := strings.IndexByte(markup[i:], '<')
		if next < 0 {
			next = len(markup)
		} else {
			next += i
		}
		if anchors > 0 {
			sb.WriteString(markup[i:next])
		} else {
			linkifyText(&sb, markup, i, next, routes)
		}
		i = next
	}
	return sb.String()
}

// linkifyText rewrites markup[start:end]. The whole markup is passed so URL
// matches can look past the end of the text run.
func linkifyText(sb *strings.Builder, markup string, start, end int, routes Routes) {
	text := markup[start:end]
	last := 0
	for _, m := range tokenRegex.FindAllStringSubmatchIndex(text, -1) {
		switch {
		case m[2] >= 0:
			urlEnd := urlMatchEnd(markup, start+m[2], start+m[3])
			if urlEnd < 0 {
				continue
			}
			url := markup[start+m[2] : urlEnd]
			sb.WriteString(text[last:m[2]])
			writeAnchor(sb, url, url)
			last = urlEnd - start

		case m[4] >= 0:
			// "&#39;" and friends are character references, not hashtags
			if m[0] > 0 && text[m[0]-1] == '&' {
				continue
			}
			word := text[m[4]:m[5]]
			sb.WriteString(text[last:m[0]])
			writeAnchor(sb, routes.Hashtag+word, "#"+word)
			last = m[1]

		case m[6] >= 0:
			word := text[m[6]:m[7]]
			sb.WriteString(text[last:m[0]])
			writeAnchor(sb, routes.User+word, "@"+word)
			last = m[1]
		}
	}
	sb.WriteString(text[last:])
}

// urlMatchEnd returns where a URL match starting at start should end, or -1
// if it sits inside markup. Starting from the greedy end it gives back
// characters until the remainder no longer runs straight into a '>'.
func urlMatchEnd(markup string, start, greedyEnd int) int {
	for end := greedyEnd; end-start >= minURLLen; end-- {
		if !insideMarkup(markup[end:]) {
			return end
		}
	}
	return -1
}

// insideMarkup reports whether rest reaches a '>' through attribute-ish
// characters only, meaning the text before it was part of a tag.
func insideMarkup(rest string) bool {
	for _, r := range rest {
		switch {
		case r == '>':
			return true
		case r < unicode.MaxASCII && (isWordByte(byte(r)) || strings.ContainsRune(`?&./;#~%"=-`, r)):
		case unicode.IsSpace(r):
		default:
			return false
		}
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func writeAnchor(sb *strings.Builder, href, text string) {
	sb.WriteString(`<a class="red-text" target="_blank" href="`)
	sb.WriteString(href)
	sb.WriteString(`">`)
	sb.WriteString(text)
	sb.WriteString(`</a>`)
}

// tagEnd returns the index just past the tag or comment starting at i.
func tagEnd(markup string, i int) int {
	if strings.HasPrefix(markup[i:], "<!--") {
		if end := strings.Index(markup[i+4:], "-->"); end >= 0 {
			return i + 4 + end + 3
		}
		return len(markup)
	}
	if end := strings.IndexByte(markup[i:], '>'); end >= 0 {
		return i + end + 1
	}
	return len(markup)
}

func isAnchorOpen(tag string) bool {
	if len(tag) < 3 || (tag[1] != 'a' && tag[1] != 'A') {
		return false
	}
	c := tag[2]
	return c == '>' || c == '/' || unicode.IsSpace(rune(c))
}

func isAnchorClose(tag string) bool {
	if len(tag) < 4 || tag[1] != '/' || (tag[2] != 'a' && tag[2] != 'A') {
		return false
	}
	c := tag[3]
	return c == '>' || unicode.IsSpace(rune(c))
}
