package reader

import (
	"bytes"
	"fmt"
)

// testPDF assembles small PDF files with a correct classic xref table.
type testPDF struct {
	objects [][]byte
	trailer string
}

// add appends an object body and returns its number.
func (p *testPDF) add(body string) int {
	p.objects = append(p.objects, []byte(body))
	return len(p.objects)
}

// stream appends a stream object with /Length filled in.
func (p *testPDF) stream(dict string, data []byte) int {
	var b bytes.Buffer
	fmt.Fprintf(&b, "<< %s /Length %d >>\nstream\n", dict, len(data))
	b.Write(data)
	b.WriteString("\nendstream")
	p.objects = append(p.objects, b.Bytes())
	return len(p.objects)
}

// set replaces the body of object num, for objects that refer forward.
func (p *testPDF) set(num int, body string) {
	p.objects[num-1] = []byte(body)
}

func (p *testPDF) bytes(root int) []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(p.objects))
	for i, body := range p.objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n", i+1)
		b.Write(body)
		b.WriteString("\nendobj\n")
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(p.objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root %d 0 R %s >>\nstartxref\n%d\n%%%%EOF\n",
		len(p.objects)+1, root, p.trailer, xref)
	return b.Bytes()
}

// pagesPDF builds a document whose pages have the given content streams and
// share one resources dictionary.
func pagesPDF(resources string, contents ...string) *testPDF {
	p := &testPDF{}
	catalog := p.add("")
	tree := p.add("")
	var kids string
	for _, c := range contents {
		content := p.stream("", []byte(c))
		page := p.add(fmt.Sprintf("<< /Type /Page /Parent %d 0 R /Contents %d 0 R >>", tree, content))
		kids += fmt.Sprintf("%d 0 R ", page)
	}
	p.set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", tree))
	p.set(tree, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 595 842] /Resources %s >>",
		kids, len(contents), resources))
	return p
}
