package legacy

import (
	"bytes"
	"encoding/xml"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"
)

// RootElement wraps feeds that arrive as a list of sibling records.
const RootElement = "Root"

// entityRef matches the references an XML parser accepts without a DTD.
var entityRef = regexp.MustCompile(`^&(?:amp|lt|gt|quot|apos|#[0-9]+|#x[0-9A-Fa-f]+);`)

// verbatim sections are copied untouched by the ampersand pass.
var verbatim = []struct{ open, close string }{
	{"<![CDATA[", "]]>"},
	{"<!--", "-->"},
	{"<?", "?>"},
}

// Repair turns a legacy export into a document encoding/xml accepts: bare
// ampersands are escaped and sibling top-level elements get a synthetic root.
// Repair(Repair(x)) == Repair(x), and well-formed input comes back unchanged.
func Repair(raw string) string {
	fixed := escapeAmpersands(raw)
	if !needsRoot(fixed) {
		return fixed
	}
	decl, body := splitDeclaration(fixed)
	return decl + "<" + RootElement + ">" + body + "</" + RootElement + ">"
}

func escapeAmpersands(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 16)

	for i := 0; i < len(s); {
		if s[i] == '<' {
			if n := verbatimLen(s[i:]); n > 0 {
				b.WriteString(s[i : i+n])
				i += n
				continue
			}
		}
		if s[i] == '&' && !entityRef.MatchString(s[i:]) {
			b.WriteString("&amp;")
			i++
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

// verbatimLen returns the length of the CDATA section, comment or processing
// instruction starting at s, or 0. An unterminated section runs to the end.
func verbatimLen(s string) int {
	for _, v := range verbatim {
		if !strings.HasPrefix(s, v.open) {
			continue
		}
		end := strings.Index(s[len(v.open):], v.close)
		if end < 0 {
			return len(s)
		}
		return len(v.open) + end + len(v.close)
	}
	return 0
}

// needsRoot reports whether the document lacks a single top-level element
// other than a record. A lone record is a one-row feed and gets the same
// wrapper, as does text at the top level. When the tokenizer gives up
// part way, only the elements seen so far count, which keeps Repair stable
// on documents that are broken in ways it does not fix.
func needsRoot(doc string) bool {
	dec := newDecoder(strings.NewReader(doc))
	depth, roots, records := 0, 0, 0
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return roots != 1 || records > 0
			}
			return roots > 1 || records > 0
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				roots++
				if strings.EqualFold(t.Name.Local, RecordElement) {
					records++
				}
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return true
			}
		}
	}
}

// splitDeclaration keeps an <?xml ...?> declaration in front of the synthetic root.
func splitDeclaration(doc string) (decl, body string) {
	trimmed := strings.TrimLeft(doc, " \t\r\n\ufeff")
	if !strings.HasPrefix(trimmed, "<?xml") {
		return "", doc
	}
	end := strings.Index(trimmed, "?>")
	if end < 0 {
		return "", doc
	}
	offset := len(doc) - len(trimmed) + end + len("?>")
	return doc[:offset], doc[offset:]
}

func newDecoder(r io.Reader) *xml.Decoder {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	return dec
}
