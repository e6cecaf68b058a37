package evidence

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"sort"
	"strings"
)

const (
	wmlNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	relNamespace = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	xmlNamespace = "http://www.w3.org/XML/1998/namespace"
)

// node is a mutable WordprocessingML element or character data.
type node struct {
	Name     xml.Name
	Attr     []xml.Attr
	Children []*node
	Text     string
	IsText   bool
}

var xmlDeclPattern = regexp.MustCompile(`(?s)^\s*(<\?xml[^>]+\?>)`)

// parsePart parses an OOXML part and returns its root and the XML declaration.
func parsePart(xmlText string) (*node, string, error) {
	decl := ""
	if m := xmlDeclPattern.FindStringSubmatch(xmlText); len(m) > 0 {
		decl = m[1]
		xmlText = strings.TrimSpace(xmlText[len(m[0]):])
	}

	dec := xml.NewDecoder(strings.NewReader(xmlText))
	var stack []*node
	var root *node

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{Name: t.Name, Attr: t.Attr}
			if len(stack) == 0 {
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) == 0 || len(t) == 0 {
				continue
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, &node{IsText: true, Text: string(t)})
		}
	}

	if root == nil {
		return nil, "", errors.New("part has no root element")
	}
	return root, decl, nil
}

// encodePart serialises root using the original root start/end tags so the
// namespace declarations Word relies on survive the round trip.
func encodePart(decl string, root *node, rootStart, rootEnd string) (string, error) {
	var buf bytes.Buffer
	if decl != "" {
		buf.WriteString(decl)
		if !strings.HasSuffix(decl, "\n") {
			buf.WriteByte('\n')
		}
	}

	out := cloneNode(root)
	flattenXMLNSAttrs(out)
	applyPrefixes(out, prefixesByURI(root))
	buf.WriteString(ensureRootNamespaces(rootStart, requiredNamespaces(usedPrefixes(out), root)))

	enc := xml.NewEncoder(&buf)
	for _, child := range out.Children {
		if err := encodeNode(enc, child); err != nil {
			return "", err
		}
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}

	buf.WriteString(rootEnd)
	return buf.String(), nil
}

func encodeNode(enc *xml.Encoder, n *node) error {
	if n.IsText {
		return enc.EncodeToken(xml.CharData(n.Text))
	}
	start := xml.StartElement{Name: n.Name, Attr: n.Attr}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, child := range n.Children {
		if err := encodeNode(enc, child); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func walk(n *node, visit func(*node) bool) bool {
	if n == nil {
		return true
	}
	if !visit(n) {
		return false
	}
	for _, child := range n.Children {
		if !walk(child, visit) {
			return false
		}
	}
	return true
}

// isElement matches a w: element (or an unqualified one) by local name.
func isElement(n *node, local string) bool {
	if n == nil || n.IsText || n.Name.Local != local {
		return false
	}
	return n.Name.Space == "" || n.Name.Space == wmlNamespace
}

func cloneNode(n *node) *node {
	if n == nil {
		return nil
	}
	c := &node{
		Name:   n.Name,
		Attr:   append([]xml.Attr(nil), n.Attr...),
		Text:   n.Text,
		IsText: n.IsText,
	}
	if len(n.Children) > 0 {
		c.Children = make([]*node, 0, len(n.Children))
		for _, child := range n.Children {
			c.Children = append(c.Children, cloneNode(child))
		}
	}
	return c
}

func cloneNodes(nodes []*node) []*node {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]*node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, cloneNode(n))
	}
	return out
}

// textElements returns every w:t below n in document order.
func textElements(n *node) []*node {
	var out []*node
	walk(n, func(c *node) bool {
		if isElement(c, "t") {
			out = append(out, c)
		}
		return true
	})
	return out
}

func elementText(n *node) string {
	var b strings.Builder
	for _, child := range n.Children {
		if child.IsText {
			b.WriteString(child.Text)
		}
	}
	return b.String()
}

func setElementText(n *node, text string) {
	n.Children = n.Children[:0]
	if text == "" {
		return
	}
	n.Children = append(n.Children, &node{IsText: true, Text: text})
	if strings.TrimSpace(text) != text || strings.Contains(text, "  ") {
		preserveSpace(n)
	}
}

func preserveSpace(n *node) {
	for i, a := range n.Attr {
		if a.Name.Local == "space" && (a.Name.Space == xmlNamespace || a.Name.Space == "xml") {
			n.Attr[i].Value = "preserve"
			return
		}
	}
	n.Attr = append(n.Attr, xml.Attr{Name: xml.Name{Space: xmlNamespace, Local: "space"}, Value: "preserve"})
}

// plainText concatenates the w:t content below n.
func plainText(n *node) string {
	var b strings.Builder
	for _, t := range textElements(n) {
		b.WriteString(elementText(t))
	}
	return b.String()
}

// rewriteParagraph applies fn to the merged text of a paragraph. Tokens that
// Word split across runs are therefore still matched; the result lands in
// the first run and the remaining runs are emptied.
func rewriteParagraph(p *node, fn func(string) string) {
	texts := textElements(p)
	if len(texts) == 0 {
		return
	}
	var b strings.Builder
	for _, t := range texts {
		b.WriteString(elementText(t))
	}
	combined := b.String()
	updated := fn(combined)
	if updated == combined {
		return
	}
	setElementText(texts[0], updated)
	for _, t := range texts[1:] {
		setElementText(t, "")
	}
}

// rewriteText applies fn to every paragraph below root.
func rewriteText(root *node, fn func(string) string) {
	walk(root, func(n *node) bool {
		if isElement(n, "p") {
			rewriteParagraph(n, fn)
			return false
		}
		return true
	})
}

func prefixesByURI(root *node) map[string]string {
	out := make(map[string]string)
	for _, a := range root.Attr {
		switch {
		case a.Name.Space == "xmlns":
			out[a.Value] = a.Name.Local
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			out[a.Value] = ""
		case a.Name.Space == "" && strings.HasPrefix(a.Name.Local, "xmlns:"):
			out[a.Value] = strings.TrimPrefix(a.Name.Local, "xmlns:")
		}
	}
	return out
}

func declaredNamespaces(root *node) map[string]string {
	out := make(map[string]string)
	for uri, prefix := range prefixesByURI(root) {
		out[prefix] = uri
	}
	return out
}

func usedPrefixes(n *node) map[string]struct{} {
	out := make(map[string]struct{})
	walk(n, func(c *node) bool {
		if c.IsText {
			return true
		}
		if p := qualifiedPrefix(c.Name.Local); p != "" {
			out[p] = struct{}{}
		}
		for _, a := range c.Attr {
			if p := qualifiedPrefix(a.Name.Local); p != "" {
				out[p] = struct{}{}
			}
		}
		return true
	})
	return out
}

func qualifiedPrefix(name string) string {
	if name == "xmlns" || strings.HasPrefix(name, "xmlns:") {
		return ""
	}
	if idx := strings.IndexByte(name, ':'); idx > 0 {
		return name[:idx]
	}
	return ""
}

var knownNamespaces = map[string]string{
	"w":   wmlNamespace,
	"r":   relNamespace,
	"a":   "http://schemas.openxmlformats.org/drawingml/2006/main",
	"wp":  "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing",
	"pic": "http://schemas.openxmlformats.org/drawingml/2006/picture",
	"mc":  "http://schemas.openxmlformats.org/markup-compatibility/2006",
	"w14": "http://schemas.microsoft.com/office/word/2010/wordml",
	"w15": "http://schemas.microsoft.com/office/word/2012/wordml",
}

func requiredNamespaces(prefixes map[string]struct{}, root *node) map[string]string {
	declared := declaredNamespaces(root)
	required := map[string]string{"w": wmlNamespace, "r": relNamespace}
	for p := range prefixes {
		if uri, ok := declared[p]; ok {
			required[p] = uri
		} else if uri, ok := knownNamespaces[p]; ok {
			required[p] = uri
		}
	}
	return required
}

var xmlnsPattern = regexp.MustCompile(`\s+xmlns(?::([A-Za-z0-9._-]+))?="([^"]+)"`)

func rootStartNamespaces(rootStart string) map[string]string {
	out := make(map[string]string)
	for _, m := range xmlnsPattern.FindAllStringSubmatch(rootStart, -1) {
		out[m[1]] = m[2]
	}
	return out
}

func ensureRootNamespaces(rootStart string, required map[string]string) string {
	existing := rootStartNamespaces(rootStart)
	var missing []string
	for p, uri := range required {
		if cur, ok := existing[p]; ok && cur == uri {
			continue
		}
		if _, ok := existing[p]; ok {
			// prefix already bound to something else; leave the template alone
			continue
		}
		missing = append(missing, p)
	}
	if len(missing) == 0 {
		return rootStart
	}
	sort.Strings(missing)

	var b strings.Builder
	for _, p := range missing {
		if p == "" {
			b.WriteString(` xmlns="` + required[p] + `"`)
			continue
		}
		b.WriteString(` xmlns:` + p + `="` + required[p] + `"`)
	}

	if strings.HasSuffix(rootStart, "/>") {
		return rootStart[:len(rootStart)-2] + b.String() + "/>"
	}
	if idx := strings.LastIndex(rootStart, ">"); idx != -1 {
		return rootStart[:idx] + b.String() + rootStart[idx:]
	}
	return rootStart
}

// splitRootTags returns the literal root start and end tags of xmlText.
func splitRootTags(xmlText string) (string, string, error) {
	start, end, name, err := locateRootStart(xmlText)
	if err != nil {
		return "", "", err
	}
	closing := "</" + name + ">"
	pos := strings.LastIndex(xmlText, closing)
	if pos == -1 {
		return "", "", errors.New("root end tag not found")
	}
	return xmlText[start : end+1], closing, nil
}

func locateRootStart(xmlText string) (int, int, string, error) {
	i := 0
	for i < len(xmlText) {
		idx := strings.IndexByte(xmlText[i:], '<')
		if idx == -1 {
			return 0, 0, "", errors.New("root start tag not found")
		}
		i += idx
		rest := xmlText[i:]
		var skip string
		switch {
		case strings.HasPrefix(rest, "<?"):
			skip = "?>"
		case strings.HasPrefix(rest, "<!--"):
			skip = "-->"
		case strings.HasPrefix(rest, "<!"):
			skip = ">"
		}
		if skip == "" {
			break
		}
		end := strings.Index(rest, skip)
		if end == -1 {
			return 0, 0, "", errors.New("unterminated prolog construct")
		}
		i += end + len(skip)
	}

	start := i
	var quote byte
	for i = start + 1; i < len(xmlText); i++ {
		c := xmlText[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '"' || c == '\'' {
			quote = c
			continue
		}
		if c == '>' {
			name := strings.TrimSpace(xmlText[start+1 : i])
			if cut := strings.IndexAny(name, " \t\r\n/"); cut != -1 {
				name = name[:cut]
			}
			if name == "" {
				return 0, 0, "", errors.New("root tag name missing")
			}
			return start, i, name, nil
		}
	}
	return 0, 0, "", errors.New("root start tag not terminated")
}

func applyPrefixes(n *node, prefixes map[string]string) {
	if n == nil || len(prefixes) == 0 {
		return
	}
	if !n.IsText {
		if p, ok := prefixes[n.Name.Space]; ok && p != "" {
			n.Name = xml.Name{Local: p + ":" + n.Name.Local}
		}
		for i, a := range n.Attr {
			if a.Name.Space == "" && (a.Name.Local == "xmlns" || strings.HasPrefix(a.Name.Local, "xmlns:")) {
				continue
			}
			if p, ok := prefixes[a.Name.Space]; ok && p != "" {
				n.Attr[i].Name = xml.Name{Local: p + ":" + a.Name.Local}
			}
		}
	}
	for _, child := range n.Children {
		applyPrefixes(child, prefixes)
	}
}

// flattenXMLNSAttrs turns decoded xmlns attributes back into literal names.
func flattenXMLNSAttrs(n *node) {
	if n == nil {
		return
	}
	if !n.IsText {
		for i, a := range n.Attr {
			if a.Name.Space != "xmlns" {
				continue
			}
			if a.Name.Local == "" {
				n.Attr[i].Name = xml.Name{Local: "xmlns"}
			} else {
				n.Attr[i].Name = xml.Name{Local: "xmlns:" + a.Name.Local}
			}
		}
	}
	for _, child := range n.Children {
		flattenXMLNSAttrs(child)
	}
}
