package evidence

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"evidence-stamp/internal/domain/entity"
)

// LoopName is the repeat region bound to the index entries.
const LoopName = "evidences"

// Loops are written either as {{#evidences}} ... {{/evidences}} with
// {{no}} style fields, or in the docxtpl form used by existing 証拠説明書
// templates: {%tr for e in evidences %} ... {%tr endfor %} with {{ e.no }}.
var (
	tokenPattern     = regexp.MustCompile(`\{\{\s*([#/]?)\s*([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)?)\s*\}\}`)
	leftoverPattern  = regexp.MustCompile(`\{\{[^}]*\}\}|\{%[^%]*%\}`)
	loopStartPattern = regexp.MustCompile(`\{\{\s*#\s*` + LoopName + `\s*\}\}|\{%-?\s*(?:tr|tc|p|r)?\s*for\s+([A-Za-z_][A-Za-z0-9_]*)\s+in\s+` + LoopName + `\s*-?%\}`)
	loopEndPattern   = regexp.MustCompile(`\{\{\s*/\s*` + LoopName + `\s*\}\}|\{%-?\s*(?:tr|tc|p|r)?\s*endfor\s*-?%\}`)
)

// RenderTemplate fills a DOCX template. word/document.xml gets the evidences
// loop expanded and header fields substituted; headers and footers get the
// header fields only. Every other zip member is copied verbatim.
func RenderTemplate(template []byte, entries []entity.IndexEntry, ictx entity.IndexContext) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(template), int64(len(template)))
	if err != nil {
		return nil, fmt.Errorf("template is not a DOCX archive: %w", err)
	}

	fields := contextFields(ictx)
	found := false

	var out bytes.Buffer
	writer := zip.NewWriter(&out)

	for _, file := range reader.File {
		name := zipName(file.Name)
		content, err := readZipMember(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		switch {
		case name == "word/document.xml":
			found = true
			content, err = renderPart(content, entries, fields, true)
		case isHeaderOrFooter(name):
			content, err = renderPart(content, nil, fields, false)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		if err := writeZipMember(writer, file, content); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	if !found {
		return nil, fmt.Errorf("template has no word/document.xml")
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func renderPart(content []byte, entries []entity.IndexEntry, fields map[string]string, loops bool) ([]byte, error) {
	xmlText := string(content)
	if !strings.Contains(xmlText, "{{") && !strings.Contains(xmlText, "{%") {
		return content, nil
	}

	rootStart, rootEnd, err := splitRootTags(xmlText)
	if err != nil {
		return nil, err
	}
	root, decl, err := parsePart(xmlText)
	if err != nil {
		return nil, err
	}

	if loops {
		expandEntries(root, entries)
	}
	rewriteText(root, func(s string) string { return substitute(s, fields) })

	rendered, err := encodePart(decl, root, rootStart, rootEnd)
	if err != nil {
		return nil, err
	}
	if err := checkWellFormed(rendered); err != nil {
		return nil, err
	}
	if token := leftoverPattern.FindString(rendered); token != "" {
		return nil, fmt.Errorf("unresolved template token %s", token)
	}
	return []byte(rendered), nil
}

// maxRegions bounds the number of regions expanded per container.
const maxRegions = 32

// expandEntries expands every evidences region. Containers are visited
// innermost first, so a region inside a table cell or a table is handled
// before one spanning body paragraphs.
func expandEntries(root *node, entries []entity.IndexEntry) {
	var containers []*node
	collectContainers(root, &containers)

	for _, c := range containers {
		for i := 0; i < maxRegions; i++ {
			if !expandRegion(c, entries) {
				break
			}
		}
	}
}

func collectContainers(n *node, out *[]*node) {
	if n == nil || n.IsText {
		return
	}
	for _, child := range n.Children {
		collectContainers(child, out)
	}
	if isElement(n, "body") || isElement(n, "tbl") || isElement(n, "tc") {
		*out = append(*out, n)
	}
}

// expandRegion expands the first evidences region among the direct children
// of container. Marker-only paragraphs and rows are dropped; when both
// markers sit in one child, that child itself is the repeated template.
// A start marker without an end in the same container is left for an
// enclosing container; markers nobody consumes surface as unresolved tokens.
func expandRegion(container *node, entries []entity.IndexEntry) bool {
	startIdx, endIdx := -1, -1
	loopVar := ""
	for i, child := range container.Children {
		text := blockText(child)
		if startIdx == -1 {
			loc := loopStartPattern.FindStringSubmatchIndex(text)
			if loc == nil {
				continue
			}
			startIdx = i
			if loc[2] >= 0 {
				loopVar = text[loc[2]:loc[3]]
			}
			if loopEndPattern.MatchString(text[loc[1]:]) {
				endIdx = i
				break
			}
			continue
		}
		if loopEndPattern.MatchString(text) {
			endIdx = i
			break
		}
	}

	if startIdx == -1 || endIdx == -1 {
		return false
	}

	var head, tail []*node
	var body []*node

	if startIdx == endIdx {
		tpl := stripMarkers(cloneNode(container.Children[startIdx]))
		if tpl != nil {
			body = []*node{tpl}
		}
	} else {
		if keep := stripMarkers(container.Children[startIdx]); keep != nil {
			head = append(head, keep)
		}
		body = container.Children[startIdx+1 : endIdx]
		if keep := stripMarkers(container.Children[endIdx]); keep != nil {
			tail = append(tail, keep)
		}
	}

	rendered := make([]*node, 0, len(entries)*len(body))
	for _, e := range entries {
		fields := entryFields(e, loopVar)
		for _, n := range cloneNodes(body) {
			rewriteText(n, func(s string) string { return substitute(s, fields) })
			rendered = append(rendered, n)
		}
	}

	children := make([]*node, 0, len(container.Children)+len(rendered))
	children = append(children, container.Children[:startIdx]...)
	children = append(children, head...)
	children = append(children, rendered...)
	children = append(children, tail...)
	children = append(children, container.Children[endIdx+1:]...)
	container.Children = children
	return true
}

// blockText returns the text a marker could live in: a paragraph, a table
// row or bare character data.
func blockText(n *node) string {
	switch {
	case n == nil:
		return ""
	case n.IsText:
		return n.Text
	case isElement(n, "p"), isElement(n, "tr"):
		return plainText(n)
	}
	return ""
}

// stripMarkers removes loop markers from n and returns nil when nothing but
// whitespace remains.
func stripMarkers(n *node) *node {
	strip := func(s string) string {
		s = loopStartPattern.ReplaceAllString(s, "")
		return loopEndPattern.ReplaceAllString(s, "")
	}

	switch {
	case n.IsText:
		n.Text = strip(n.Text)
		if strings.TrimSpace(n.Text) == "" {
			return nil
		}
	case isElement(n, "p"), isElement(n, "tr"):
		rewriteText(n, strip)
		if strings.TrimSpace(plainText(n)) == "" {
			return nil
		}
	}
	return n
}

// substitute replaces {{name}} tokens found in fields and leaves the rest.
func substitute(s string, fields map[string]string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	return tokenPattern.ReplaceAllStringFunc(s, func(tok string) string {
		m := tokenPattern.FindStringSubmatch(tok)
		if m[1] != "" {
			return tok
		}
		if v, ok := fields[m[2]]; ok {
			return v
		}
		return tok
	})
}

// entryFields maps the entry's columns by bare name and, inside a docxtpl
// loop, also as loopVar.name.
func entryFields(e entity.IndexEntry, loopVar string) map[string]string {
	fields := map[string]string{
		"no":      e.No,
		"caption": e.Caption,
		"copy":    e.Copy,
		"created": e.Created,
		"author":  e.Author,
		"purpose": e.Purpose,
		"note":    e.Note,
	}
	if loopVar == "" {
		return fields
	}
	dotted := make(map[string]string, 2*len(fields))
	for k, v := range fields {
		dotted[k] = v
		dotted[loopVar+"."+k] = v
	}
	return dotted
}

func contextFields(c entity.IndexContext) map[string]string {
	return map[string]string{
		"bundle_title":   c.BundleTitle,
		"doc_prefix":     c.DocPrefix,
		"first":          c.First,
		"last":           c.Last,
		"court":          c.Court,
		"case_name":      c.CaseName,
		"submitted_date": c.SubmittedDate,
	}
}

func checkWellFormed(xmlText string) error {
	dec := xml.NewDecoder(strings.NewReader(xmlText))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("rendered XML is malformed: %w", err)
		}
	}
}

func isHeaderOrFooter(name string) bool {
	if !strings.HasPrefix(name, "word/") || !strings.HasSuffix(name, ".xml") {
		return false
	}
	base := strings.TrimPrefix(name, "word/")
	return !strings.Contains(base, "/") && (strings.HasPrefix(base, "header") || strings.HasPrefix(base, "footer"))
}

func readZipMember(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func writeZipMember(w *zip.Writer, src *zip.File, content []byte) error {
	header := src.FileHeader
	header.Name = zipName(src.Name)

	dst, err := w.CreateHeader(&header)
	if err != nil {
		return err
	}
	_, err = dst.Write(content)
	return err
}

func zipName(name string) string {
	return strings.ReplaceAll(name, "\\", "/")
}
