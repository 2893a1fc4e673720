package translation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/datalens-tech/datalens-backend-sub013/internal/formerr"
)

// Translator renders a call from already-rendered argument texts.
type Translator func(args []string) (string, error)

type templatePart struct {
	literal string
	index   int // -1: literal, -2: all arguments
}

const (
	partLiteral = -1
	partAll     = -2
)

// ParseTemplate compiles a translation template. "{N}" is replaced with the
// N-th argument and "{*}" with all arguments joined by ", ". "{{" and "}}"
// stand for literal braces.
func ParseTemplate(template string) (Translator, error) {
	var parts []templatePart
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, templatePart{literal: lit.String(), index: partLiteral})
			lit.Reset()
		}
	}

	for i := 0; i < len(template); i++ {
		c := template[i]
		switch {
		case c == '{' && i+1 < len(template) && template[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(template) && template[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(template[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("template %q: unclosed placeholder at offset %d", template, i)
			}
			ref := template[i+1 : i+end]
			flush()
			if ref == "*" {
				parts = append(parts, templatePart{index: partAll})
			} else {
				n, err := strconv.Atoi(ref)
				if err != nil || n < 0 {
					return nil, fmt.Errorf("template %q: bad placeholder {%s}", template, ref)
				}
				parts = append(parts, templatePart{index: n})
			}
			i += end
		case c == '}':
			return nil, fmt.Errorf("template %q: unmatched '}' at offset %d", template, i)
		default:
			lit.WriteByte(c)
		}
	}
	flush()

	return func(args []string) (string, error) {
		var sb strings.Builder
		for _, p := range parts {
			switch p.index {
			case partLiteral:
				sb.WriteString(p.literal)
			case partAll:
				sb.WriteString(strings.Join(args, ", "))
			default:
				if p.index >= len(args) {
					return "", formerr.Newf(formerr.KindTranslation,
						"template %q references argument %d of %d", template, p.index, len(args))
				}
				sb.WriteString(args[p.index])
			}
		}
		return sb.String(), nil
	}, nil
}

// MustTemplate is like ParseTemplate but panics on malformed templates.
// Use only for static tables and tests.
func MustTemplate(template string) Translator {
	t, err := ParseTemplate(template)
	if err != nil {
		panic(err)
	}
	return t
}
