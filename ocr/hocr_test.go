package ocr

import (
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tesseractHOCR = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
 <head><title></title><meta name='ocr-system' content='tesseract 5.3.0' /></head>
 <body>
  <div class='ocr_page' id='page_1' title='image "unknown"; bbox 0 0 900 120; ppageno 0'>
   <div class='ocr_carea' id='block_1_1' title="bbox 12 20 880 96">
    <p class='ocr_par' id='par_1_1' lang='chi_tra'>
     <span class='ocr_line' id='line_1_1' title="bbox 12 20 880 96; baseline 0 -8; x_size 76">
      <span class='ocrx_word' id='word_1_1' title='bbox 12 20 300 96; x_wconf 91'>新北市</span>
      <span class='ocrx_word' id='word_1_2' title='bbox 310 20 600 96; x_wconf 85'>淡水區</span>
      <span class='ocrx_word' id='word_1_3' title='bbox 610 20 880 96; x_wconf 60'>LL_</span>
     </span>
    </p>
   </div>
  </div>
 </body>
</html>`

func TestParseHOCR(t *testing.T) {
	res, err := ParseHOCR(strings.NewReader(tesseractHOCR))
	require.NoError(t, err)

	require.Len(t, res.Lines, 1)
	line := res.Lines[0]
	assert.Equal(t, "新北市淡水區LL_", line.Text)
	require.Len(t, line.Words, 3)
	assert.Equal(t, image.Rect(12, 20, 300, 96), line.Words[0].Bounds)
	assert.InDelta(t, 0.91, line.Words[0].Confidence, 1e-9)
	assert.Equal(t, "新北市淡水區LL_", res.Text)
	assert.InDelta(t, (0.91+0.85+0.60)/3, res.Confidence, 1e-9)
}

func TestParseHOCRLatinWordsKeepSpaces(t *testing.T) {
	doc := `<div class='ocr_page'><span class='ocr_line'>
<span class='ocrx_word' title='bbox 0 0 10 10; x_wconf 90'>Lot</span>
<span class='ocrx_word' title='bbox 12 0 20 10; x_wconf 90'>12</span></span>
<span class='ocr_line'><span class='ocrx_word'>二</span><span class='ocrx_word'>樓</span></span></div>`
	res, err := ParseHOCR(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "Lot 12\n二樓", res.Text)
}

func TestParseHOCRLineWithoutWords(t *testing.T) {
	doc := `<div class='ocr_page'><span class='ocr_line'> 中正路一段 </span></div>`
	res, err := ParseHOCR(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "中正路一段", res.Text)
	assert.Zero(t, res.Confidence)
}

func TestParseHOCREmptyPage(t *testing.T) {
	res, err := ParseHOCR(strings.NewReader(`<div class='ocr_page' title='bbox 0 0 10 10'></div>`))
	require.NoError(t, err)
	assert.Empty(t, res.Text)
	assert.Empty(t, res.Lines)
}

func TestParseHOCRNoPages(t *testing.T) {
	_, err := ParseHOCR(strings.NewReader(`<p>plain html</p>`))
	assert.True(t, errors.Is(err, ErrNoPages))
}

func TestParseTitle(t *testing.T) {
	props := parseTitle("bbox 1 2 3 4; x_wconf 95;;baseline 0.01 -3")
	assert.Equal(t, []string{"1", "2", "3", "4"}, props["bbox"])
	assert.Equal(t, []string{"95"}, props["x_wconf"])
	assert.Equal(t, []string{"0.01", "-3"}, props["baseline"])
}
