package ecommerce

import (
	"bytes"
	"encoding/xml"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// element is a node of a leniently parsed feed document.
// Names are lower-cased local names.
type element struct {
	name     string
	attrs    map[string]string
	text     strings.Builder
	children []*element
	// broken is the decoder error that cut this element short
	broken error
}

// voidTags are HTML elements written without a closing tag when kept as markup
var voidTags = map[string]bool{"br": true, "hr": true, "img": true, "wbr": true}

// attr returns the value of an attribute, "" when absent
func (e *element) attr(name string) string {
	if e == nil || name == "" {
		return ""
	}
	return e.attrs[name]
}

// value returns the trimmed text content
func (e *element) value() string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.text.String())
}

// child returns the first direct child with the given name
func (e *element) child(name string) *element {
	if e == nil {
		return nil
	}
	for _, c := range e.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// childrenNamed returns all direct children with the given name
func (e *element) childrenNamed(name string) []*element {
	if e == nil {
		return nil
	}
	var out []*element
	for _, c := range e.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

// find returns all descendants with the given name in document order.
// The search does not descend into matching elements.
func (e *element) find(name string) []*element {
	if e == nil {
		return nil
	}
	var out []*element
	var walk func(n *element)
	walk = func(n *element) {
		for _, c := range n.children {
			if c.name == name {
				out = append(out, c)
				continue
			}
			walk(c)
		}
	}
	walk(e)
	return out
}

// field returns the attribute or, failing that, the child element text with the given name
func (e *element) field(name string) string {
	if v := strings.TrimSpace(e.attr(name)); v != "" {
		return v
	}
	return e.child(name).value()
}

// parseDocument parses data into an element tree without failing.
// Decoding is lenient (unknown entities, unclosed HTML tags, declared
// charsets). On a syntax error the open itemTag element, if any, is marked
// broken and parsing resumes at the next itemTag start. markupTags lists
// elements whose nested tags are preserved as markup in their text.
func parseDocument(data []byte, markupTags map[string]bool, itemTag string) *element {
	root := &element{name: "#document", attrs: map[string]string{}}
	if len(bytes.TrimSpace(data)) == 0 {
		return root
	}
	data = toUTF8(data)

	b := &treeBuilder{stack: []*element{root}, markupTags: markupTags}
	offset := 0
	for offset < len(data) {
		dec := xml.NewDecoder(bytes.NewReader(data[offset:]))
		dec.Strict = false
		dec.AutoClose = xml.HTMLAutoClose
		dec.Entity = xml.HTMLEntity

		err := b.consume(dec)
		if err == nil {
			break
		}
		failedAt := offset + int(dec.InputOffset())
		b.abandon(itemTag, err)

		next := nextStartTag(data, max(failedAt, offset+1), itemTag)
		if next < 0 {
			break
		}
		offset = next
	}
	return root
}

// treeBuilder accumulates decoder tokens into an element tree across decoder restarts
type treeBuilder struct {
	stack      []*element
	markupTags map[string]bool
	// markupDepth > 0 while inside an element that collects markup
	markupDepth int
	markupOwner *element
	// markupBase is the stack length below the markup owner
	markupBase int
}

// consume reads tokens until EOF (nil) or the first decoder error
func (b *treeBuilder) consume(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		top := b.stack[len(b.stack)-1]

		switch t := tok.(type) {
		case xml.StartElement:
			name := strings.ToLower(t.Name.Local)
			if b.markupDepth > 0 {
				b.markupOwner.text.WriteString("<" + name + ">")
				b.markupDepth++
				b.stack = append(b.stack, &element{name: name, attrs: map[string]string{}})
				continue
			}
			el := &element{name: name, attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				el.attrs[strings.ToLower(a.Name.Local)] = a.Value
			}
			if b.markupTags[name] {
				b.markupOwner = el
				b.markupDepth = 1
				b.markupBase = len(b.stack)
			}
			top.children = append(top.children, el)
			b.stack = append(b.stack, el)

		case xml.EndElement:
			if len(b.stack) == 1 {
				continue
			}
			if name := strings.ToLower(t.Name.Local); b.markupDepth > 1 && !voidTags[name] {
				b.markupOwner.text.WriteString("</" + name + ">")
			}
			if b.markupDepth > 0 {
				b.markupDepth--
				if b.markupDepth == 0 {
					b.markupOwner = nil
				}
			}
			b.stack = b.stack[:len(b.stack)-1]

		case xml.CharData:
			if b.markupDepth > 0 {
				b.markupOwner.text.Write(t)
				continue
			}
			top.text.Write(t)
		}
	}
}

// abandon marks the innermost open itemTag element broken and closes it along
// with everything opened inside it
func (b *treeBuilder) abandon(itemTag string, cause error) {
	if b.markupDepth > 0 {
		b.stack = b.stack[:b.markupBase]
		b.markupDepth = 0
		b.markupOwner = nil
	}
	if itemTag == "" {
		return
	}
	for i := len(b.stack) - 1; i > 0; i-- {
		if b.stack[i].name == itemTag {
			b.stack[i].broken = cause
			b.stack = b.stack[:i]
			return
		}
	}
}

// nextStartTag returns the offset of the next "<name" start tag at or after
// from, matching name case-insensitively, or -1
func nextStartTag(data []byte, from int, name string) int {
	if name == "" {
		return -1
	}
	n := len(name) + 1
	for i := from; i+n <= len(data); i++ {
		if data[i] != '<' || !asciiEqualFold(data[i+1:i+n], name) {
			continue
		}
		if i+n == len(data) {
			return -1
		}
		switch data[i+n] {
		case ' ', '\t', '\n', '\r', '>', '/':
			return i
		}
	}
	return -1
}

func asciiEqualFold(b []byte, s string) bool {
	for i := 0; i < len(s); i++ {
		c := b[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != s[i] {
			return false
		}
	}
	return true
}

var xmlEncodingDecl = regexp.MustCompile(`^\s*<\?xml[^>]*?encoding\s*=\s*["']([^"']+)["']`)

// toUTF8 transcodes a document with a declared non-UTF-8 encoding and rewrites
// the declaration. Unknown encodings are left for the decoder to reject.
func toUTF8(data []byte) []byte {
	m := xmlEncodingDecl.FindSubmatchIndex(data)
	if m == nil {
		return data
	}
	label := string(data[m[2]:m[3]])
	enc, err := htmlindex.Get(label)
	if err != nil || enc == nil {
		return data
	}
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return data
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return data
	}
	dm := xmlEncodingDecl.FindSubmatchIndex(decoded)
	if dm == nil {
		return decoded
	}
	out := make([]byte, 0, len(decoded))
	out = append(out, decoded[:dm[2]]...)
	out = append(out, "UTF-8"...)
	return append(out, decoded[dm[3]:]...)
}
