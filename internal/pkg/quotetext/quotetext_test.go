package quotetext

import (
	"strings"
	"testing"
)

const alternativeEML = `From: Justin <justin@example.com>
To: Jane <jane@example.com>
Subject: Kitchen
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/plain; charset=utf-8

Oak cabinets, soft-close drawers, $4000, 30% deposit
--b1
Content-Type: text/html; charset=utf-8

<p>Oak cabinets <b>HTML</b></p>
--b1--
`

const nestedEML = `Subject: Media Unit
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: multipart/alternative; boundary="inner"

--inner
Content-Type: text/plain; charset=utf-8

Walnut veneer, $1800, 50% deposit
--inner
Content-Type: text/html; charset=utf-8

<p>Walnut veneer</p>
--inner--
--outer
Content-Type: text/plain; charset=utf-8
Content-Disposition: attachment; filename="notes.txt"

second plain part
--outer--
`

const singlePartEML = `Subject: Vanity
MIME-Version: 1.0
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: quoted-printable

Maple vanity =3D $2200
`

const htmlOnlyEML = `Subject: Pantry
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b2"

--b2
Content-Type: text/html; charset=utf-8

<html><head><style>p { color: red }</style></head><body><p>Hi Jane,</p><p>Pull-out pantry: $900</p></body></html>
--b2--
`

func TestFromEML(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		subject  string
		contains []string
		excludes []string
	}{
		{"first plain part", alternativeEML, "Kitchen", []string{"Oak cabinets, soft-close drawers, $4000, 30% deposit"}, []string{"<p>", "HTML"}},
		{"depth first", nestedEML, "Media Unit", []string{"Walnut veneer, $1800"}, []string{"second plain part"}},
		{"single part decoded", singlePartEML, "Vanity", []string{"Maple vanity = $2200"}, []string{"=3D"}},
		{"html fallback", htmlOnlyEML, "Pantry", []string{"Hi Jane,", "Pull-out pantry: $900"}, []string{"<p>", "color: red"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromEML([]byte(tt.raw))
			if err != nil {
				t.Fatalf("FromEML: %v", err)
			}
			prefix := "Subject: " + tt.subject + "\n\n"
			if !strings.HasPrefix(got, prefix) {
				t.Errorf("document %q does not start with %q", got, prefix)
			}
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("document %q missing %q", got, s)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("document %q should not contain %q", got, s)
				}
			}
		})
	}
}

func TestHTMLToText(t *testing.T) {
	got, err := HTMLToText("<div>Hi Jane,<br>Thanks for your time.</div><ul><li>Oak doors</li><li>Brass pulls</li></ul><script>x()</script>")
	if err != nil {
		t.Fatalf("HTMLToText: %v", err)
	}
	for _, line := range []string{"Hi Jane,", "Thanks for your time.", "Oak doors", "Brass pulls"} {
		if !strings.Contains(got, line+"\n") && !strings.HasSuffix(got, line) {
			t.Errorf("%q not on its own line in %q", line, got)
		}
	}
	if strings.Contains(got, "x()") {
		t.Errorf("script text leaked: %q", got)
	}
}

func TestIsSupported(t *testing.T) {
	tests := map[string]bool{
		"Kitchen - Jane.eml":  true,
		"Quote.PDF":           true,
		"archive.eml.bak":     true,
		"notes.txt":           false,
		"Kitchen spreadsheet": false,
	}
	for name, want := range tests {
		if got := IsSupported(name); got != want {
			t.Errorf("IsSupported(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestFromPDF_RejectsGarbage(t *testing.T) {
	if _, err := FromPDF("Kitchen.pdf", nil); err == nil {
		t.Error("empty pdf should fail")
	}
	if _, err := Extract("Kitchen.pdf", []byte("not a pdf")); err == nil {
		t.Error("invalid pdf should fail")
	}
}
