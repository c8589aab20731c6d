package resolver

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// slotExpr captures a quoted term or the shortest text up to the next literal.
const slotExpr = "(\"[^\"]*\"|`[^`]*`|.+?)"

// maxSplits bounds the alternative splits Splits offers for one text.
const maxSplits = 64

var slotName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
var domainName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Slot is a typed capture position in a template.
type Slot struct {
	Name   string
	Domain string
}

// Capture is the text captured for one slot.
type Capture struct {
	Slot     Slot
	Original string
	Term     string
}

type segment struct {
	literal  string
	elidable bool
	slot     int
}

// Pattern is a compiled template.
type Pattern struct {
	Source   string
	Stripped string

	segments []segment
	slots    []Slot
	re       *regexp.Regexp
}

// CompileTemplate compiles a template into literal segments and capture
// slots. Errors are *ConfigError with code MALFORMED_TEMPLATE.
func CompileTemplate(tmpl string) (*Pattern, error) {
	p := &Pattern{Source: tmpl}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			p.segments = append(p.segments, segment{literal: lit.String(), slot: -1})
			lit.Reset()
		}
	}
	seen := make(map[string]bool)

	for i := 0; i < len(tmpl); {
		c := tmpl[i]
		switch c {
		case '{':
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return nil, malformed(tmpl, "unterminated placeholder at offset %d", i)
			}
			s, err := parseSlot(tmpl[i+1 : i+1+end])
			if err != nil {
				return nil, malformed(tmpl, "%v", err)
			}
			if seen[s.Name] {
				return nil, malformed(tmpl, "placeholder {%s} appears twice", s.Name)
			}
			seen[s.Name] = true
			flush()
			p.segments = append(p.segments, segment{slot: len(p.slots)})
			p.slots = append(p.slots, s)
			i += end + 2
		case '}':
			return nil, malformed(tmpl, "unmatched } at offset %d", i)
		case '(':
			if end := strings.Index(tmpl[i:], ")?"); end > 0 {
				inner := tmpl[i+1 : i+end]
				if !strings.Contains(inner, "(") {
					if strings.ContainsAny(inner, "{}") {
						return nil, malformed(tmpl, "placeholder inside elidable fragment %q", inner)
					}
					flush()
					p.segments = append(p.segments, segment{literal: inner, elidable: true, slot: -1})
					i += end + 2
					continue
				}
			}
			lit.WriteByte(c)
			i++
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()

	var expr, stripped strings.Builder
	expr.WriteString("^")
	for _, seg := range p.segments {
		switch {
		case seg.slot >= 0:
			expr.WriteString(slotExpr)
			stripped.WriteString(p.slots[seg.slot].String())
		case seg.elidable:
			expr.WriteString("(?:" + regexp.QuoteMeta(seg.literal) + ")?")
		default:
			expr.WriteString(regexp.QuoteMeta(seg.literal))
			stripped.WriteString(seg.literal)
		}
	}
	expr.WriteString("$")

	re, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, malformed(tmpl, "%v", err)
	}
	p.re = re
	p.Stripped = stripped.String()
	return p, nil
}

func parseSlot(inner string) (Slot, error) {
	name, domain, _ := strings.Cut(inner, ":")
	if !slotName.MatchString(name) {
		return Slot{}, fmt.Errorf("invalid placeholder name %q", name)
	}
	if domain != "" && !domainName.MatchString(domain) {
		return Slot{}, fmt.Errorf("invalid domain %q in placeholder {%s}", domain, inner)
	}
	if strings.HasSuffix(inner, ":") {
		return Slot{}, fmt.Errorf("empty domain in placeholder {%s}", inner)
	}
	return Slot{Name: name, Domain: domain}, nil
}

func malformed(tmpl, format string, args ...any) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMalformedTemplate,
		Message: fmt.Sprintf("template %q: %s", tmpl, fmt.Sprintf(format, args...)),
	}
}

func (s Slot) String() string {
	if s.Domain == "" {
		return "{" + s.Name + "}"
	}
	return "{" + s.Name + ":" + s.Domain + "}"
}

// Slots returns the capture slots in template order.
func (p *Pattern) Slots() []Slot {
	return p.slots
}

// Match matches the whole of text and returns one capture per slot.
func (p *Pattern) Match(text string) ([]Capture, bool) {
	m := p.re.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	caps := make([]Capture, len(p.slots))
	for i, s := range p.slots {
		caps[i] = Capture{Slot: s, Original: m[i+1], Term: Unquote(m[i+1])}
	}
	return caps, true
}

// Render fills each slot with terms[name] and drops elidable fragments.
// Slots without a term are rendered as their placeholder.
func (p *Pattern) Render(terms map[string]string) string {
	var b strings.Builder
	for _, seg := range p.segments {
		switch {
		case seg.slot >= 0:
			s := p.slots[seg.slot]
			if t, ok := terms[s.Name]; ok {
				b.WriteString(t)
			} else {
				b.WriteString(s.String())
			}
		case seg.elidable:
		default:
			b.WriteString(seg.literal)
		}
	}
	return b.String()
}

// Splits calls yield with each way text matches the pattern, in the order
// Match prefers them: quoted terms first, then shorter captures before
// longer ones, elidable fragments present before absent. The first split
// is the one Match returns. Iteration stops when yield returns false or
// after maxSplits splits.
func (p *Pattern) Splits(text string, yield func([]Capture) bool) {
	caps := make([]Capture, len(p.slots))
	n := 0
	p.split(text, 0, 0, caps, func(c []Capture) bool {
		n++
		return yield(append([]Capture(nil), c...)) && n < maxSplits
	})
}

func (p *Pattern) split(text string, seg, pos int, caps []Capture, yield func([]Capture) bool) bool {
	if seg == len(p.segments) {
		if pos != len(text) {
			return true
		}
		return yield(caps)
	}

	s := p.segments[seg]
	rest := text[pos:]
	switch {
	case s.elidable:
		if strings.HasPrefix(rest, s.literal) && !p.split(text, seg+1, pos+len(s.literal), caps, yield) {
			return false
		}
		return p.split(text, seg+1, pos, caps, yield)
	case s.slot < 0:
		if !strings.HasPrefix(rest, s.literal) {
			return true
		}
		return p.split(text, seg+1, pos+len(s.literal), caps, yield)
	}

	take := func(original string) bool {
		caps[s.slot] = Capture{Slot: p.slots[s.slot], Original: original, Term: Unquote(original)}
		return p.split(text, seg+1, pos+len(original), caps, yield)
	}
	if q := quotedPrefix(rest); q != "" && !take(q) {
		return false
	}
	for end := 1; end <= len(rest); end++ {
		if rest[end-1] == '\n' {
			break
		}
		if end < len(rest) && !utf8.RuneStart(rest[end]) {
			continue
		}
		if !take(rest[:end]) {
			return false
		}
	}
	return true
}

// quotedPrefix returns the double-quoted or backquoted term s starts with.
func quotedPrefix(s string) string {
	if s == "" || (s[0] != '"' && s[0] != '`') {
		return ""
	}
	end := strings.IndexByte(s[1:], s[0])
	if end < 0 {
		return ""
	}
	return s[:end+2]
}
