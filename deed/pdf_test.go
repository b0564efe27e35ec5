package deed

import (
	"bytes"
	"fmt"
	"strings"
)

// testImage is a raw 8-bit gray image XObject painted on a page.
type testImage struct {
	name   string
	width  int
	height int
	pixels []byte
	// filter, when set, is written as /Filter without encoding pixels.
	filter string
}

// testPage is one page: lines of text and images painted in order.
type testPage struct {
	lines  []string
	images []testImage
}

// deedPDF writes a PDF whose text uses one Identity-H font with a
// ToUnicode CMap built from the runes on the pages.
func deedPDF(pages ...testPage) []byte {
	codes := map[rune]int{}
	var runes []rune
	for _, p := range pages {
		for _, l := range p.lines {
			for _, r := range l {
				if _, ok := codes[r]; !ok {
					runes = append(runes, r)
					codes[r] = len(runes)
				}
			}
		}
	}

	var cmap strings.Builder
	cmap.WriteString("/CIDInit /ProcSet findresource begin 12 dict begin begincmap\n")
	cmap.WriteString("1 begincodespacerange <0000> <FFFF> endcodespacerange\n")
	for start := 0; start < len(runes); start += 100 {
		end := min(start+100, len(runes))
		fmt.Fprintf(&cmap, "%d beginbfchar\n", end-start)
		for i := start; i < end; i++ {
			fmt.Fprintf(&cmap, "<%04X> <%04X>\n", i+1, runes[i])
		}
		cmap.WriteString("endbfchar\n")
	}
	cmap.WriteString("endcmap CMapName currentdict /CMap defineresource pop end end")

	var objects []string
	add := func(body string) int {
		objects = append(objects, body)
		return len(objects)
	}
	stream := func(dict string, data []byte) int {
		return add(fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data))
	}

	catalog := add("")
	tree := add("")
	toUnicode := stream("", []byte(cmap.String()))
	desc := add("<< /Type /Font /Subtype /CIDFontType0 /BaseFont /MingLiU /CIDSystemInfo << /Registry (Adobe) /Ordering (CNS1) /Supplement 0 >> /DW 1000 >>")
	font := add(fmt.Sprintf("<< /Type /Font /Subtype /Type0 /BaseFont /MingLiU /Encoding /Identity-H /DescendantFonts [%d 0 R] /ToUnicode %d 0 R >>", desc, toUnicode))

	var kids []string
	for _, p := range pages {
		var content strings.Builder
		var xobjects strings.Builder
		y := 800
		for i, img := range p.images {
			dict := fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d /BitsPerComponent 8 /ColorSpace /DeviceGray", img.width, img.height)
			if img.filter != "" {
				dict += " /Filter /" + img.filter
			}
			num := stream(dict, img.pixels)
			fmt.Fprintf(&xobjects, "/%s %d 0 R ", img.name, num)
			fmt.Fprintf(&content, "q %d 0 0 %d 50 %d cm /%s Do Q\n", img.width*10, img.height*10, 400-i*100, img.name)
		}
		content.WriteString("BT /F1 12 Tf\n")
		for i, l := range p.lines {
			if i == 0 {
				fmt.Fprintf(&content, "50 %d Td ", y)
			} else {
				content.WriteString("0 -20 Td ")
			}
			content.WriteString("<")
			for _, r := range l {
				fmt.Fprintf(&content, "%04X", codes[r])
			}
			content.WriteString("> Tj\n")
		}
		content.WriteString("ET")
		c := stream("", []byte(content.String()))
		page := add(fmt.Sprintf("<< /Type /Page /Parent %d 0 R /Contents %d 0 R /Resources << /Font << /F1 %d 0 R >> /XObject << %s>> >> >>",
			tree, c, font, xobjects.String()))
		kids = append(kids, fmt.Sprintf("%d 0 R", page))
	}
	objects[catalog-1] = fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", tree)
	objects[tree-1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 595 842] >>", strings.Join(kids, " "), len(pages))

	var b bytes.Buffer
	b.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, catalog, xref)
	return b.Bytes()
}

// grayImage returns a w×h raw gray image with a dark bar on white.
func grayImage(name string, w, h int) testImage {
	px := bytes.Repeat([]byte{0xFF}, w*h)
	for x := 1; x < w-1; x++ {
		px[(h/2)*w+x] = 0x10
	}
	return testImage{name: name, width: w, height: h, pixels: px}
}
