package releasenotes

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/cases"

	"git.home.luguber.info/inful/relkit/internal/config"
)

// ParserClass selects how a parser's content is treated.
type ParserClass string

const (
	// ChangeNotes collects free-form change notes.
	ChangeNotes ParserClass = config.ParserChangeNotes
	// GithubIssues collects issue references; skipped when the repository has issues disabled.
	GithubIssues ParserClass = config.ParserGitHubIssues
)

// Parser extracts the section titled Title from pull request bodies.
type Parser struct {
	Class ParserClass
	Title string

	lines []string
}

// ParsersFromConfig builds parsers in configured order.
func ParsersFromConfig(pcs []config.ParserConfig) []*Parser {
	out := make([]*Parser, 0, len(pcs))
	for _, pc := range pcs {
		out = append(out, &Parser{Class: ParserClass(pc.Class), Title: pc.Title})
	}
	return out
}

// Lines returns the content collected so far.
func (p *Parser) Lines() []string { return p.lines }

// Parse appends the lines of p's section in body. When link is non-empty it is
// appended to every line.
func (p *Parser) Parse(body, link string) {
	for _, line := range ExtractSection(body, p.Title) {
		if link != "" {
			line += " " + link
		}
		p.lines = append(p.lines, line)
	}
}

// Render returns "# <title>" followed by the collected lines, or "" when the
// parser found nothing.
func (p *Parser) Render() string {
	if len(p.lines) == 0 {
		return ""
	}
	return fmt.Sprintf("# %s\n\n%s", p.Title, strings.Join(p.lines, "\n"))
}

var fold = cases.Fold()

func sameTitle(a, b string) bool {
	return fold.String(strings.TrimSpace(a)) == fold.String(strings.TrimSpace(b))
}

// ExtractSection returns the content under the first heading matching title
// (case-insensitive) up to the next heading of the same or higher level. List
// items become "* item" lines; other blocks keep their source lines.
func ExtractSection(body, title string) []string {
	src := []byte(strings.ReplaceAll(body, "\r\n", "\n"))
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	var out []string
	level := 0
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*gmast.Heading); ok {
			if level > 0 && h.Level <= level {
				break
			}
			if level == 0 && sameTitle(segmentsText(h.Lines(), src, " "), title) {
				level = h.Level
				continue
			}
			if level == 0 {
				continue
			}
		}
		if level > 0 {
			out = append(out, blockLines(n, src, "")...)
		}
	}
	return out
}

func blockLines(n gmast.Node, src []byte, indent string) []string {
	switch node := n.(type) {
	case *gmast.List:
		var out []string
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			out = append(out, listItemLines(item, src, indent)...)
		}
		return out
	case *gmast.Heading:
		return []string{indent + strings.Repeat("#", node.Level) + " " + segmentsText(node.Lines(), src, " ")}
	case *gmast.FencedCodeBlock, *gmast.CodeBlock, *gmast.HTMLBlock:
		var out []string
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			out = append(out, indent+strings.TrimRight(string(seg.Value(src)), "\n"))
		}
		return out
	case *gmast.ThematicBreak:
		return nil
	}
	if n.Type() == gmast.TypeBlock && n.Lines().Len() > 0 {
		var out []string
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			if s := strings.TrimSpace(string(seg.Value(src))); s != "" {
				out = append(out, indent+s)
			}
		}
		return out
	}
	var out []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		out = append(out, blockLines(c, src, indent)...)
	}
	return out
}

func listItemLines(item gmast.Node, src []byte, indent string) []string {
	var head []string
	var rest []string
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*gmast.List); ok {
			rest = append(rest, blockLines(c, src, indent+"  ")...)
			continue
		}
		if len(head) == 0 && c.Lines().Len() > 0 {
			head = append(head, segmentsText(c.Lines(), src, " "))
			continue
		}
		rest = append(rest, blockLines(c, src, indent+"  ")...)
	}
	out := []string{indent + "* " + strings.Join(head, " ")}
	return append(out, rest...)
}

func segmentsText(lines *text.Segments, src []byte, sep string) string {
	var buf bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		s := bytes.TrimSpace(seg.Value(src))
		if len(s) == 0 {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString(sep)
		}
		buf.Write(s)
	}
	return buf.String()
}
