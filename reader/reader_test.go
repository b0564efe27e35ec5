package reader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tsawler/deedscan/core"
)

// cjkFontPDF has two pages shown with an Identity-H font whose ToUnicode
// map covers 建物所有權部 and a few address characters.
func cjkFontPDF() *testPDF {
	p := &testPDF{}
	catalog := p.add("")
	tree := p.add("")
	cmap := p.stream("", []byte(`/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
1 begincodespacerange <0000> <FFFF> endcodespacerange
9 beginbfchar
<0001> <5EFA>
<0002> <7269>
<0003> <6240>
<0004> <6709>
<0005> <6B0A>
<0006> <90E8>
<0007> <571F>
<0008> <5730>
<0009> <4EBA>
endbfchar
endcmap
end end`))
	font := p.add(fmt.Sprintf("<< /Type /Font /Subtype /Type0 /BaseFont /MingLiU /Encoding /Identity-H /ToUnicode %d 0 R >>", cmap))
	page1 := p.stream("", []byte("BT /F1 12 Tf 72 760 Td <0007000800040005> Tj ET"))
	page2 := p.stream("", []byte("BT /F1 12 Tf 72 760 Td <000100020003000400050006> Tj 0 -20 Td <00030004000500090003> Tj ET"))
	p1 := p.add(fmt.Sprintf("<< /Type /Page /Parent %d 0 R /Contents %d 0 R >>", tree, page1))
	p2 := p.add(fmt.Sprintf("<< /Type /Page /Parent %d 0 R /Contents %d 0 R >>", tree, page2))
	p.set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", tree))
	p.set(tree, fmt.Sprintf("<< /Type /Pages /Kids [%d 0 R %d 0 R] /Count 2 /MediaBox [0 0 595 842] /Resources << /Font << /F1 %d 0 R >> >> >>",
		p1, p2, font))
	return p
}

func TestNewReader(t *testing.T) {
	r, err := NewReader(cjkFontPDF().bytes(1))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if r.Version().String() != "1.4" {
		t.Errorf("Version = %s", r.Version())
	}
	if r.Repaired() {
		t.Error("a well-formed file should not need repair")
	}
	if r.PageCount() != 2 {
		t.Fatalf("PageCount = %d, want 2", r.PageCount())
	}

	got, err := r.PageText(1)
	if err != nil {
		t.Fatal(err)
	}
	if got != "建物所有權部\n所有權人所" {
		t.Errorf("PageText(1) = %q", got)
	}

	all, err := r.Text()
	if err != nil {
		t.Fatal(err)
	}
	if all[0] != "土地有權" {
		t.Errorf("page 0 text = %q", all[0])
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deed.pdf")
	if err := os.WriteFile(path, cjkFontPDF().bytes(1), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if r.PageCount() != 2 {
		t.Errorf("PageCount = %d", r.PageCount())
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestNewReaderRepairsBrokenXRef(t *testing.T) {
	data := cjkFontPDF().bytes(1)
	// Point startxref into the middle of the file.
	idx := bytes.LastIndex(data, []byte("startxref"))
	broken := append(append([]byte{}, data[:idx]...), []byte("startxref\n17\n%%EOF\n")...)

	r, err := NewReader(broken)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if !r.Repaired() {
		t.Error("expected the xref to be rebuilt")
	}
	got, err := r.PageText(1)
	if err != nil || !strings.Contains(got, "建物所有權部") {
		t.Errorf("PageText(1) = %q, %v", got, err)
	}
}

func TestNewReaderShiftedOffsets(t *testing.T) {
	data := cjkFontPDF().bytes(1)
	// Junk before the header shifts every offset in the table.
	shifted := append([]byte("garbage\n"), data...)
	r, err := NewReader(shifted)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if r.PageCount() != 2 {
		t.Errorf("PageCount = %d", r.PageCount())
	}
}

func TestNewReaderErrors(t *testing.T) {
	if _, err := NewReader([]byte("hello world")); !errors.Is(err, ErrNotPDF) {
		t.Errorf("err = %v, want ErrNotPDF", err)
	}

	p := pagesPDF("<< >>", "")
	enc := p.add("<< /Filter /Standard /V 1 >>")
	p.trailer = fmt.Sprintf("/Encrypt %d 0 R", enc)
	if _, err := NewReader(p.bytes(1)); !errors.Is(err, ErrEncrypted) {
		t.Errorf("err = %v, want ErrEncrypted", err)
	}
}

func TestPageRange(t *testing.T) {
	r, err := NewReader(pagesPDF("<< >>", "").bytes(1))
	if err != nil {
		t.Fatal(err)
	}
	for _, i := range []int{-1, 1} {
		if _, err := r.PageText(i); !errors.Is(err, ErrPageRange) {
			t.Errorf("PageText(%d) err = %v", i, err)
		}
		if _, err := r.PageImages(i); !errors.Is(err, ErrPageRange) {
			t.Errorf("PageImages(%d) err = %v", i, err)
		}
	}
	text, err := r.PageText(0)
	if err != nil || text != "" {
		t.Errorf("empty page text = %q, %v", text, err)
	}
}

func TestGetObjectMissingIsNull(t *testing.T) {
	r, err := NewReader(pagesPDF("<< >>", "").bytes(1))
	if err != nil {
		t.Fatal(err)
	}
	obj, err := r.GetObject(999)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := obj.(core.Null); !ok {
		t.Errorf("missing object = %v", obj)
	}
	if r.Info() != nil {
		t.Error("Info should be nil without /Info")
	}
}
