// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package naming parses and renders output file name templates.
//
// A template is literal text with brace placeholders. Two placeholders are
// required: {original_filename} (the input base name without directory or
// extension) and {exported_channel} (the zero-based channel index). The
// channel placeholder accepts an integer format spec, {exported_channel:03d}
// or {exported_channel:3d}. Literal braces are written {{ and }}.
package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Placeholder names.
const (
	FieldFilename = "original_filename"
	FieldChannel  = "exported_channel"
)

// OutputExt is appended to every rendered name.
const OutputExt = ".tiff"

var intSpec = regexp.MustCompile(`^(0?)([0-9]*)d$`)

// PatternError lists every problem found in a template.
type PatternError struct {
	Pattern  string
	Problems []string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid naming pattern %q: %s", e.Pattern, strings.Join(e.Problems, "; "))
}

type part struct {
	literal string
	field   string
	width   int
	zeroPad bool
}

// Template is a parsed naming pattern.
type Template struct {
	pattern string
	parts   []part
}

// Parse validates pattern and returns the parsed template. On failure the
// error is a *PatternError holding all problems, not just the first.
func Parse(pattern string) (*Template, error) {
	var (
		parts    []part
		problems []string
		lit      strings.Builder
		seen     = map[string]bool{}
	)

	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, part{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '{':
			if i+1 < len(pattern) && pattern[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(pattern[i+1:], '}')
			if end < 0 {
				problems = append(problems, fmt.Sprintf("unclosed '{' at offset %d", i))
				i = len(pattern)
				continue
			}
			body := pattern[i+1 : i+1+end]
			i += end + 1

			p, err := parseField(body)
			if err != nil {
				problems = append(problems, err.Error())
				continue
			}
			flush()
			parts = append(parts, p)
			seen[p.field] = true
		case '}':
			if i+1 < len(pattern) && pattern[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			problems = append(problems, fmt.Sprintf("single '}' at offset %d", i))
		case '/', '\\':
			problems = append(problems, fmt.Sprintf("path separator %q at offset %d", c, i))
		default:
			lit.WriteByte(c)
		}
	}
	flush()

	for _, f := range []string{FieldFilename, FieldChannel} {
		if !seen[f] {
			problems = append(problems, fmt.Sprintf("missing required placeholder {%s}", f))
		}
	}

	if len(problems) > 0 {
		return nil, &PatternError{Pattern: pattern, Problems: problems}
	}
	return &Template{pattern: pattern, parts: parts}, nil
}

func parseField(body string) (part, error) {
	name, spec, hasSpec := strings.Cut(body, ":")
	switch name {
	case FieldFilename:
		if hasSpec {
			return part{}, fmt.Errorf("placeholder {%s} takes no format spec, got %q", name, spec)
		}
		return part{field: name}, nil
	case FieldChannel:
		p := part{field: name}
		if !hasSpec {
			return p, nil
		}
		m := intSpec.FindStringSubmatch(spec)
		if m == nil {
			return part{}, fmt.Errorf("unsupported format spec %q for {%s}", spec, name)
		}
		p.zeroPad = m[1] == "0"
		if m[2] != "" {
			w, err := strconv.Atoi(m[2])
			if err != nil {
				return part{}, fmt.Errorf("unsupported format spec %q for {%s}", spec, name)
			}
			p.width = w
		}
		return p, nil
	case "":
		return part{}, fmt.Errorf("empty placeholder {}")
	default:
		return part{}, fmt.Errorf("unknown placeholder {%s}", name)
	}
}

// String returns the original pattern.
func (t *Template) String() string {
	return t.pattern
}

// Render substitutes the placeholders and returns the name without extension.
func (t *Template) Render(originalFilename string, channel int) string {
	var b strings.Builder
	for _, p := range t.parts {
		switch p.field {
		case "":
			b.WriteString(p.literal)
		case FieldFilename:
			b.WriteString(originalFilename)
		case FieldChannel:
			switch {
			case p.zeroPad:
				fmt.Fprintf(&b, "%0*d", p.width, channel)
			case p.width > 0:
				fmt.Fprintf(&b, "%*d", p.width, channel)
			default:
				b.WriteString(strconv.Itoa(channel))
			}
		}
	}
	return b.String()
}

// FileName returns the rendered name with the output extension appended.
func (t *Template) FileName(originalFilename string, channel int) string {
	return t.Render(originalFilename, channel) + OutputExt
}

// OriginalFilename derives the {original_filename} value from an input path:
// the base name with its directory and extension removed.
func OriginalFilename(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
