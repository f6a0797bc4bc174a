// Package doctags parses Go doc comments into prose, tags, examples and
// cross-reference links.
//
// Besides Go's own conventions (a "Deprecated:" paragraph and [Name] doc
// links) the parser understands a tag dialect for structured facts:
//
//	@param {int} a the first operand
//	@param [opts] optional settings
//	@returns {int} the sum
//	@throws {ErrOverflow} when the sum overflows
//	@typeParam T {constraints.Ordered}
//	@property {string} Name display name
//	@deprecated use Sum instead
//	@internal
//	@async
//	@see Sum
//	@example
//	    fmt.Println(calc.Add(1, 2))
//
// Text of a tag runs until the next line that starts with a tag.
package doctags

import (
	"go/doc/comment"
	"regexp"
	"strings"

	"doccov/internal/openpkg"
)

// Link sources.
const (
	LinkDoc    = "doclink"
	LinkInline = "link"
	LinkSee    = "see"
)

// Link is a cross-reference found in a doc comment.
type Link struct {
	Target     string // Name, Recv.Name or importpath.Name
	ImportPath string // set for links into another package
	Source     string
}

// Doc is a parsed doc comment.
type Doc struct {
	Description    string
	Tags           []openpkg.Tag
	Examples       []openpkg.Example
	Links          []Link
	Deprecated     bool // a canonical "Deprecated:" paragraph is present
	DeprecatedNote string
}

var (
	tagLine    = regexp.MustCompile(`^@([A-Za-z]+)\b\s*(.*)$`)
	inlineLink = regexp.MustCompile(`\{@link\s+([^}\s|]+)[^}]*\}`)
)

// Canonical tag names for aliases.
var aliases = map[string]string{
	"return":    "returns",
	"error":     "throws",
	"exception": "throws",
	"template":  "typeParam",
	"typeparam": "typeParam",
	"prop":      "property",
	"arg":       "param",
	"argument":  "param",
}

// Parse parses the text of a doc comment (as returned by ast.CommentGroup.Text).
func Parse(text string) *Doc {
	d := &Doc{}
	if strings.TrimSpace(text) == "" {
		return d
	}

	prose, blocks := split(text)
	d.Description, d.Deprecated, d.DeprecatedNote = splitDeprecated(prose)

	for _, b := range blocks {
		if b.name == "example" {
			d.Examples = append(d.Examples, parseExample(b))
			d.Tags = append(d.Tags, openpkg.Tag{Name: "example", Text: strings.TrimSpace(b.first)})
			continue
		}
		tag := parseTag(b)
		d.Tags = append(d.Tags, tag)
		if tag.Name == "see" {
			if target := firstWord(tag.Text); target != "" {
				d.Links = append(d.Links, Link{Target: strings.Trim(target, "[]"), Source: LinkSee})
			}
		}
	}

	d.Links = append(d.Links, docLinks(prose)...)
	for _, m := range inlineLink.FindAllStringSubmatch(text, -1) {
		d.Links = append(d.Links, Link{Target: m[1], Source: LinkInline})
	}
	return d
}

type block struct {
	name  string
	first string   // text on the tag line
	rest  []string // continuation lines, untrimmed
}

// split separates leading prose from tag blocks.
func split(text string) (string, []block) {
	var prose []string
	var blocks []block
	for _, line := range strings.Split(text, "\n") {
		if m := tagLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			name := m[1]
			if alias, ok := aliases[strings.ToLower(name)]; ok {
				name = alias
			}
			blocks = append(blocks, block{name: name, first: m[2]})
			continue
		}
		if len(blocks) == 0 {
			prose = append(prose, line)
			continue
		}
		last := &blocks[len(blocks)-1]
		last.rest = append(last.rest, line)
	}
	return strings.TrimSpace(strings.Join(prose, "\n")), blocks
}

func (b block) text() string {
	parts := []string{strings.TrimSpace(b.first)}
	for _, l := range b.rest {
		if t := strings.TrimSpace(l); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// splitDeprecated removes a "Deprecated:" paragraph from prose.
func splitDeprecated(prose string) (desc string, deprecated bool, note string) {
	paras := strings.Split(prose, "\n\n")
	kept := paras[:0]
	for _, p := range paras {
		trimmed := strings.TrimSpace(p)
		if strings.HasPrefix(trimmed, "Deprecated:") {
			deprecated = true
			note = strings.TrimSpace(strings.TrimPrefix(trimmed, "Deprecated:"))
			continue
		}
		kept = append(kept, p)
	}
	return strings.TrimSpace(strings.Join(kept, "\n\n")), deprecated, note
}

func parseTag(b block) openpkg.Tag {
	tag := openpkg.Tag{Name: b.name}
	text := b.text()

	switch b.name {
	case "param", "property", "typeParam":
		typ, rest := takeType(text)
		name, rest := takeName(rest)
		if typ == "" {
			// "@typeParam T {constraint}" and "@param name {type}" orders.
			typ, rest = takeType(rest)
		}
		tag.Type = typ
		tag.Param, tag.Optional = optionalName(name)
		tag.Text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), "-"))
	case "returns", "throws":
		tag.Type, text = takeType(text)
		tag.Text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "-"))
	default:
		tag.Text = text
	}
	return tag
}

// takeType consumes a leading {type}, honouring nested braces.
func takeType(s string) (string, string) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return "", s
	}
	depth := 0
	for i, r := range s {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[1:i]), s[i+1:]
			}
		}
	}
	return "", s
}

func takeName(s string) (string, string) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		if end := strings.IndexByte(s, ']'); end > 0 {
			return s[:end+1], s[end+1:]
		}
	}
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}

// optionalName unwraps "[name]" and "[name=default]".
func optionalName(name string) (string, bool) {
	if strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]") {
		inner := name[1 : len(name)-1]
		if eq := strings.IndexByte(inner, '='); eq >= 0 {
			inner = inner[:eq]
		}
		return strings.TrimSpace(inner), true
	}
	return name, false
}

func parseExample(b block) openpkg.Example {
	ex := openpkg.Example{Title: strings.TrimSpace(b.first), Source: openpkg.ExampleFromDoc}
	code := StripFences(strings.Join(b.rest, "\n"))
	ex.Code, ex.Output, ex.Unordered = SplitOutput(code)
	return ex
}

func docLinks(prose string) []Link {
	if prose == "" {
		return nil
	}
	p := comment.Parser{
		LookupSym: func(recv, name string) bool { return true },
	}
	var links []Link
	var walkText func([]comment.Text)
	walkText = func(texts []comment.Text) {
		for _, t := range texts {
			switch t := t.(type) {
			case *comment.DocLink:
				target := t.Name
				if t.Recv != "" {
					target = t.Recv + "." + t.Name
				}
				links = append(links, Link{Target: target, ImportPath: t.ImportPath, Source: LinkDoc})
			case *comment.Link:
				walkText(t.Text)
			case comment.Italic, comment.Plain:
			}
		}
	}
	var walk func([]comment.Block)
	walk = func(blocks []comment.Block) {
		for _, b := range blocks {
			switch b := b.(type) {
			case *comment.Paragraph:
				walkText(b.Text)
			case *comment.Heading:
				walkText(b.Text)
			case *comment.List:
				for _, item := range b.Items {
					walk(item.Content)
				}
			}
		}
	}
	walk(p.Parse(prose).Content)
	return links
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimRight(fields[0], ".,;:")
}
