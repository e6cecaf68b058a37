package pdfstamp

import (
	"path/filepath"
	"strings"
	"unicode"

	"evidence-stamp/internal/domain/entity"
)

// Placeholders accepted in output_filename_template.
const (
	PlaceholderText             = "text"
	PlaceholderOriginalBasename = "original_basename"
)

// SanitizeLabel keeps letters (including CJK), digits, '-' and '_' and
// replaces every other rune with '_'.
func SanitizeLabel(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, s)
}

// OriginalBasename returns the file name of path without its extension.
func OriginalBasename(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FormatOutputName expands template with vars. Only names in vars are
// accepted; "{{" and "}}" are literal braces. When the template is empty,
// malformed or names an unknown placeholder the default template is used
// and fallback is true.
func FormatOutputName(template string, vars map[string]string) (name string, fallback bool) {
	if out, ok := expand(template, vars); ok && strings.TrimSpace(out) != "" {
		return out, false
	}
	out, _ := expand(entity.DefaultOutputFilenameTemplate, vars)
	return out, true
}

func expand(template string, vars map[string]string) (string, bool) {
	var b strings.Builder
	for i := 0; i < len(template); i++ {
		c := template[i]
		switch c {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return "", false
			}
			key := template[i+1 : i+1+end]
			val, ok := vars[key]
			if !ok {
				return "", false
			}
			b.WriteString(val)
			i += end + 1
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", false
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), true
}

// OutputFileName builds the stamped PDF's file name for label text and source path.
func OutputFileName(template, text, sourcePath string) (string, bool) {
	name, fallback := FormatOutputName(template, map[string]string{
		PlaceholderText:             SanitizeLabel(text),
		PlaceholderOriginalBasename: OriginalBasename(sourcePath),
	})
	// keep the output inside the target directory
	name = strings.NewReplacer("/", "_", `\`, "_").Replace(name)
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name, fallback
}
