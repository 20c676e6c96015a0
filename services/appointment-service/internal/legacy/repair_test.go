package legacy

import (
	"encoding/xml"
	"io"
	"strings"
	"testing"
)

func wellFormed(t *testing.T, doc string) {
	t.Helper()
	dec := newDecoder(strings.NewReader(doc))
	for {
		_, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return
			}
			t.Fatalf("document is not well-formed: %v\n%s", err, doc)
		}
	}
}

func TestRepair_EscapesBareAmpersands(t *testing.T) {
	in := `<Appointment><CustomerName>Smith & Sons</CustomerName><Note a="R&D">x &amp; y &#38; &#x26; &lt;</Note></Appointment>`
	got := Repair(in)
	want := `<Root><Appointment><CustomerName>Smith &amp; Sons</CustomerName><Note a="R&amp;D">x &amp; y &#38; &#x26; &lt;</Note></Appointment></Root>`
	if got != want {
		t.Fatalf("unexpected repair\n got: %s\nwant: %s", got, want)
	}
	wellFormed(t, got)
}

func TestRepair_UnknownNamedEntityIsEscaped(t *testing.T) {
	got := Repair(`<A>caf&eacute; &nbsp</A>`)
	if got != `<A>caf&amp;eacute; &amp;nbsp</A>` {
		t.Fatalf("unexpected repair %s", got)
	}
}

func TestRepair_WrapsMultipleRoots(t *testing.T) {
	in := "<Appointment><CustomerName>Alice</CustomerName></Appointment>\n<Appointment><CustomerName>Bob</CustomerName></Appointment>"
	got := Repair(in)
	if !strings.HasPrefix(got, "<Root>") || !strings.HasSuffix(got, "</Root>") {
		t.Fatalf("expected synthetic root, got %s", got)
	}
	wellFormed(t, got)
}

func TestRepair_WrapsLoneRecord(t *testing.T) {
	in := "\n<appointment><CustomerName>Smith & Sons</CustomerName></appointment>\n"
	got := Repair(in)
	want := "<Root>\n<appointment><CustomerName>Smith &amp; Sons</CustomerName></appointment>\n</Root>"
	if got != want {
		t.Fatalf("unexpected repair\n got: %q\nwant: %q", got, want)
	}
	wellFormed(t, got)
	if Repair(got) != got {
		t.Fatalf("wrapped record should be stable: %q", Repair(got))
	}
}

func TestRepair_KeepsDeclarationInFront(t *testing.T) {
	in := `<?xml version="1.0" encoding="UTF-8"?>
<Appointment/><Appointment/>`
	got := Repair(in)
	if !strings.HasPrefix(got, `<?xml version="1.0" encoding="UTF-8"?><Root>`) {
		t.Fatalf("declaration must precede the root: %s", got)
	}
	wellFormed(t, got)
}

func TestRepair_LeavesWellFormedInputAlone(t *testing.T) {
	in := `<?xml version="1.0"?>
<Root>
    <Appointment><CustomerName>Jane &amp; John</CustomerName></Appointment>
    <!-- R&D export -->
    <Appointment><Notes><![CDATA[cut & shave]]></Notes></Appointment>
</Root>`
	if got := Repair(in); got != in {
		t.Fatalf("well-formed input changed:\n%s", got)
	}
}

func TestRepair_IsIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"<Appointment><CustomerName>Smith & Jones</CustomerName></Appointment><Appointment/>",
		"<Root><Appointment>& &amp; &#1;</Appointment></Root>",
		"<Appointment><CustomerName>Smith & Sons</CustomerName></Appointment>",
		"stray text <A/>",
		"<A><B></A>",
		"<A/><B><C></B>",
	}
	for _, in := range inputs {
		once := Repair(in)
		twice := Repair(once)
		if once != twice {
			t.Fatalf("repair not idempotent for %q:\n once: %q\ntwice: %q", in, once, twice)
		}
	}
}

func TestRepair_EmptyInputGetsEmptyRoot(t *testing.T) {
	got := Repair("  \n")
	var root struct {
		XMLName xml.Name
	}
	if err := xml.Unmarshal([]byte(got), &root); err != nil {
		t.Fatalf("expected parseable root, got %q: %v", got, err)
	}
	if root.XMLName.Local != RootElement {
		t.Fatalf("expected %s, got %s", RootElement, root.XMLName.Local)
	}
}
