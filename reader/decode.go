package reader

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/tsawler/deedscan/core"
	"github.com/tsawler/deedscan/internal/filters"
)

// MaxImagePixels bounds the pixel count of an image Decode will allocate.
// It covers an A4 page scanned at 600dpi.
const MaxImagePixels = 1 << 26

// checkSize rejects sizes that are not positive or exceed MaxImagePixels.
func checkSize(name string, w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("image %s: invalid size %dx%d", name, w, h)
	}
	if w > MaxImagePixels/h {
		return fmt.Errorf("image %s: %dx%d: %w", name, w, h, ErrImageTooLarge)
	}
	return nil
}

// Decode decodes the image to an image.Image. JPEG data is decoded by
// image/jpeg; CCITT fax and raw samples at 1, 2, 4, 8 or 16 bits per
// component become *image.Gray, *image.RGBA or *image.CMYK depending on the
// colour space. JPEG 2000 and JBIG2 are not supported.
func (img *PageImage) Decode() (image.Image, error) {
	if img.stream == nil {
		return nil, fmt.Errorf("image %s has no data", img.Name)
	}
	if err := checkSize(img.Name, img.Width, img.Height); err != nil {
		return nil, err
	}
	data, codec, err := img.stream.DecodeForImage()
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", img.Name, err)
	}

	if codec != nil {
		switch codec.Name {
		case "DCTDecode":
			cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("image %s: jpeg: %w", img.Name, err)
			}
			if err := checkSize(img.Name, cfg.Width, cfg.Height); err != nil {
				return nil, err
			}
			out, err := jpeg.Decode(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("image %s: jpeg: %w", img.Name, err)
			}
			if img.inverted() {
				invert(out)
			}
			return out, nil
		case "CCITTFaxDecode":
			params := core.FilterParams(codec.Params)
			if params == nil {
				params = filters.Params{}
			}
			if _, ok := params["Columns"]; !ok {
				params["Columns"] = img.Width
			}
			if _, ok := params["Rows"]; !ok {
				params["Rows"] = img.Height
			}
			data, err = filters.CCITTFaxDecode(data, params)
			if err != nil {
				return nil, fmt.Errorf("image %s: ccitt: %w", img.Name, err)
			}
		default:
			return nil, fmt.Errorf("image %s: %s: %w", img.Name, codec.Name, ErrUnsupportedImage)
		}
	}
	return img.samples(data)
}

// decodeArray returns the image's /Decode array, or nil.
func (img *PageImage) decodeArray() []float64 {
	arr, ok := img.stream.Dict.GetArray("Decode")
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(arr))
	for _, v := range arr {
		f, ok := core.Number(v)
		if !ok {
			return nil
		}
		out = append(out, f)
	}
	return out
}

// inverted reports a /Decode array that starts [1 0], the usual way of
// flipping a bilevel or Adobe CMYK image.
func (img *PageImage) inverted() bool {
	d := img.decodeArray()
	return len(d) >= 2 && d[0] == 1 && d[1] == 0
}

// sampleReader pulls components out of packed rows.
type sampleReader struct {
	data     []byte
	bpc      int
	rowBytes int
	maxVal   float64
}

func (s *sampleReader) raw(x, y, comps, c int) uint32 {
	bit := (x*comps + c) * s.bpc
	off := y*s.rowBytes + bit/8
	switch s.bpc {
	case 8:
		return uint32(s.data[off])
	case 16:
		return uint32(s.data[off])<<8 | uint32(s.data[off+1])
	}
	shift := 8 - s.bpc - bit%8
	return uint32(s.data[off]>>shift) & (1<<s.bpc - 1)
}

const (
	// maxComponents bounds DeviceN colour spaces.
	maxComponents = 32
	// Data shorter than need/minDataFraction is refused rather than padded.
	minDataFraction = 8
)

func (img *PageImage) samples(data []byte) (image.Image, error) {
	bpc := img.BitsPerComponent
	switch bpc {
	case 1, 2, 4, 8, 16:
	default:
		return nil, fmt.Errorf("image %s: %d bits per component: %w", img.Name, bpc, ErrUnsupportedImage)
	}

	comps := 1
	if img.cs != nil {
		comps = img.cs.comps
	}
	if comps < 1 || comps > maxComponents {
		return nil, fmt.Errorf("image %s: %d components: %w", img.Name, comps, ErrUnsupportedImage)
	}
	if err := checkSize(img.Name, img.Width, img.Height); err != nil {
		return nil, err
	}
	rowBytes := (img.Width*comps*bpc + 7) / 8
	need := rowBytes * img.Height
	if len(data) < need {
		if len(data) < need/minDataFraction {
			return nil, fmt.Errorf("image %s: %d of %d bytes: truncated", img.Name, len(data), need)
		}
		// Short data: the missing rows read as zero samples.
		padded := make([]byte, need)
		copy(padded, data)
		data = padded
	}
	s := &sampleReader{data: data, bpc: bpc, rowBytes: rowBytes, maxVal: float64(uint32(1)<<bpc - 1)}
	decode := img.decodeArray()
	rect := image.Rect(0, 0, img.Width, img.Height)

	if img.ColorSpace == "ImageMask" {
		// Sample 0 marks painted pixels unless /Decode is [1 0].
		paint := uint32(0)
		if img.inverted() {
			paint = 1
		}
		out := image.NewGray(rect)
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				if s.raw(x, y, 1, 0) == paint {
					out.Pix[y*out.Stride+x] = 0
				} else {
					out.Pix[y*out.Stride+x] = 255
				}
			}
		}
		return out, nil
	}

	cs := img.cs
	if cs == nil {
		return nil, fmt.Errorf("image %s: no colour space", img.Name)
	}

	// level maps component c of a sample through /Decode to 0..255.
	level := func(x, y, c int) uint8 {
		v := float64(s.raw(x, y, comps, c))
		lo, hi := 0.0, 1.0
		if len(decode) >= 2*(c+1) {
			lo, hi = decode[2*c], decode[2*c+1]
		}
		f := lo + v*(hi-lo)/s.maxVal
		return clampUnit(f)
	}

	switch cs.family {
	case "DeviceGray", "CalGray", "Separation", "Lab":
		out := image.NewGray(rect)
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				g := level(x, y, 0)
				if cs.family == "Separation" {
					// Tint 1 is full ink.
					g = 255 - g
				}
				out.Pix[y*out.Stride+x] = g
			}
		}
		return out, nil
	case "ICCBased", "DeviceRGB", "CalRGB", "DeviceCMYK":
		switch comps {
		case 1:
			out := image.NewGray(rect)
			for y := 0; y < img.Height; y++ {
				for x := 0; x < img.Width; x++ {
					out.Pix[y*out.Stride+x] = level(x, y, 0)
				}
			}
			return out, nil
		case 4:
			out := image.NewCMYK(rect)
			for y := 0; y < img.Height; y++ {
				for x := 0; x < img.Width; x++ {
					i := y*out.Stride + x*4
					for c := 0; c < 4; c++ {
						out.Pix[i+c] = level(x, y, c)
					}
				}
			}
			return out, nil
		default:
			out := image.NewRGBA(rect)
			for y := 0; y < img.Height; y++ {
				for x := 0; x < img.Width; x++ {
					i := y*out.Stride + x*4
					out.Pix[i] = level(x, y, 0)
					out.Pix[i+1] = level(x, y, 1)
					out.Pix[i+2] = level(x, y, 2)
					out.Pix[i+3] = 255
				}
			}
			return out, nil
		}
	case "Indexed":
		return img.indexed(s, decode, rect), nil
	}
	return nil, fmt.Errorf("image %s: colour space %s: %w", img.Name, cs.family, ErrUnsupportedImage)
}

func (img *PageImage) indexed(s *sampleReader, decode []float64, rect image.Rectangle) image.Image {
	cs := img.cs
	baseComps := cs.base.comps
	out := image.NewRGBA(rect)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			idx := int(s.raw(x, y, 1, 0))
			if len(decode) >= 2 {
				idx = int(decode[0] + float64(idx)*(decode[1]-decode[0])/s.maxVal + 0.5)
			}
			idx = min(max(idx, 0), cs.hival)

			var c color.RGBA
			off := idx * baseComps
			if off+baseComps <= len(cs.lookup) {
				entry := cs.lookup[off : off+baseComps]
				switch baseComps {
				case 1:
					c = color.RGBA{entry[0], entry[0], entry[0], 255}
				case 4:
					r, g, b := color.CMYKToRGB(entry[0], entry[1], entry[2], entry[3])
					c = color.RGBA{r, g, b, 255}
				default:
					c = color.RGBA{entry[0], entry[1], entry[2], 255}
				}
			} else {
				c = color.RGBA{0, 0, 0, 255}
			}
			i := y*out.Stride + x*4
			out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = c.R, c.G, c.B, c.A
		}
	}
	return out
}

func clampUnit(f float64) uint8 {
	switch {
	case f <= 0:
		return 0
	case f >= 1:
		return 255
	}
	return uint8(f*255 + 0.5)
}

// invert flips the samples of the pixel formats image/jpeg produces.
func invert(m image.Image) {
	switch t := m.(type) {
	case *image.Gray:
		for i := range t.Pix {
			t.Pix[i] = 255 - t.Pix[i]
		}
	case *image.CMYK:
		for i := range t.Pix {
			t.Pix[i] = 255 - t.Pix[i]
		}
	}
}
