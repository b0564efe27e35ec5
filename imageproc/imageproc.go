// Package imageproc prepares scanned image crops for OCR: upscaling,
// sharpening, grayscale conversion and Otsu binarization.
package imageproc

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Options controls Preprocess.
type Options struct {
	// Scale is the integer upscale factor. Values below 2 skip upscaling.
	Scale    int  `yaml:"scale"`
	Sharpen  bool `yaml:"sharpen"`
	Binarize bool `yaml:"binarize"`
}

// DefaultOptions upscales three times, sharpens and binarizes.
func DefaultOptions() Options {
	return Options{Scale: 3, Sharpen: true, Binarize: true}
}

// Preprocess runs the enabled steps in order: upscale, sharpen, grayscale,
// binarize. The result is always grayscale.
func Preprocess(img image.Image, opts Options) *image.Gray {
	rgba := Upscale(img, opts.Scale)
	if opts.Sharpen {
		rgba = Sharpen(rgba)
	}
	gray := Grayscale(rgba)
	if opts.Binarize {
		gray = Binarize(gray, Otsu(gray))
	}
	return gray
}

// MaxPixels bounds the output of Upscale.
const MaxPixels = 1 << 26

// Upscale resizes img by factor with Catmull-Rom interpolation. A factor
// below 2 returns an RGBA copy at the original size. The factor is lowered
// until the output fits in MaxPixels.
func Upscale(img image.Image, factor int) *image.RGBA {
	b := img.Bounds()
	factor = scaleFactor(b.Dx(), b.Dy(), factor)
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	if factor == 1 {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func scaleFactor(w, h, factor int) int {
	factor = max(factor, 1)
	area := w * h
	for factor > 1 && area > MaxPixels/(factor*factor) {
		factor--
	}
	return factor
}

// sharpenKernel is the 3×3 kernel [[-1 -1 -1] [-1 9 -1] [-1 -1 -1]].
var sharpenKernel = [3][3]int{
	{-1, -1, -1},
	{-1, 9, -1},
	{-1, -1, -1},
}

// Sharpen convolves each colour channel with the sharpen kernel and clamps
// to 0..255. Edges are reflected without repeating the border pixel.
func Sharpen(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum [3]int
			for ky := -1; ky <= 1; ky++ {
				sy := reflect101(y+ky, h)
				for kx := -1; kx <= 1; kx++ {
					sx := reflect101(x+kx, w)
					k := sharpenKernel[ky+1][kx+1]
					i := sy*src.Stride + sx*4
					sum[0] += k * int(src.Pix[i])
					sum[1] += k * int(src.Pix[i+1])
					sum[2] += k * int(src.Pix[i+2])
				}
			}
			o := y*dst.Stride + x*4
			dst.Pix[o] = clamp(sum[0])
			dst.Pix[o+1] = clamp(sum[1])
			dst.Pix[o+2] = clamp(sum[2])
			dst.Pix[o+3] = src.Pix[y*src.Stride+x*4+3]
		}
	}
	return dst
}

func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	switch {
	case i < 0:
		return -i
	case i >= n:
		return 2*n - i - 2
	}
	return i
}

func clamp(v int) uint8 {
	return uint8(min(max(v, 0), 255))
}

// Grayscale converts img with BT.601 luma weights: 0.299 R + 0.587 G +
// 0.114 B.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if g, ok := img.(*image.Gray); ok {
		draw.Draw(dst, dst.Bounds(), g, b.Min, draw.Src)
		return dst
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			luma := (299*int(c.R) + 587*int(c.G) + 114*int(c.B) + 500) / 1000
			dst.Pix[(y-b.Min.Y)*dst.Stride+(x-b.Min.X)] = uint8(luma)
		}
	}
	return dst
}

// Otsu returns the threshold that maximizes the between-class variance of
// the grayscale histogram. Pixels above it are foreground.
func Otsu(g *image.Gray) uint8 {
	var hist [256]int
	b := g.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[(y-b.Min.Y)*g.Stride:]
		for x := 0; x < b.Dx(); x++ {
			hist[row[x]]++
		}
	}
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}

	var sumAll float64
	for i, n := range hist {
		sumAll += float64(i * n)
	}
	total64 := float64(total)
	var best uint8
	var bestVar, sumBg float64
	weightBg := 0
	for t := 0; t < 256; t++ {
		weightBg += hist[t]
		if weightBg == 0 {
			continue
		}
		weightFg := total - weightBg
		if weightFg == 0 {
			break
		}
		sumBg += float64(t * hist[t])
		meanBg := sumBg / float64(weightBg)
		meanFg := (sumAll - sumBg) / float64(weightFg)
		between := float64(weightBg) * float64(weightFg) * (meanBg - meanFg) * (meanBg - meanFg) / (total64 * total64)
		if between > bestVar {
			bestVar = between
			best = uint8(t)
		}
	}
	return best
}

// Binarize maps pixels above threshold to 255 and the rest to 0.
func Binarize(g *image.Gray, threshold uint8) *image.Gray {
	b := g.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if g.Pix[y*g.Stride+x] > threshold {
				dst.Pix[y*dst.Stride+x] = 255
			}
		}
	}
	return dst
}
