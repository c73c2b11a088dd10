package detect

import (
	"image"

	"golang.org/x/image/draw"
)

// LetterboxInfo records the transform applied by Letterbox so detections
// can be mapped back into the original image's coordinate system (the
// inverse of the letterbox transform).
type LetterboxInfo struct {
	Scale   float64
	PadX    float64
	PadY    float64
	OrigW   int
	OrigH   int
	DstW    int
	DstH    int
}

// padGray is the 114/255 gray fill value used to pad the letterbox.
const padGray = 114

// Letterbox resizes src to dstW x dstH, preserving aspect ratio when
// maintainAspect is set (padding with 114/255 gray), or stretching
// otherwise.
func Letterbox(src image.Image, dstW, dstH int, maintainAspect bool) (*image.RGBA, LetterboxInfo) {
	b := src.Bounds()
	origW, origH := b.Dx(), b.Dy()

	if !maintainAspect {
		dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		return dst, LetterboxInfo{
			Scale: 1, OrigW: origW, OrigH: origH, DstW: dstW, DstH: dstH,
		}
	}

	scale := min(float64(dstW)/float64(origW), float64(dstH)/float64(origH))
	scaledW := int(float64(origW) * scale)
	scaledH := int(float64(origH) * scale)
	padX := (dstW - scaledW) / 2
	padY := (dstH - scaledH) / 2

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	gray := image.NewUniform(image.Gray{Y: padGray})
	draw.Draw(dst, dst.Bounds(), gray, image.Point{}, draw.Src)

	scaledRect := image.Rect(padX, padY, padX+scaledW, padY+scaledH)
	draw.NearestNeighbor.Scale(dst, scaledRect, src, b, draw.Over, nil)

	return dst, LetterboxInfo{
		Scale: scale, PadX: float64(padX), PadY: float64(padY),
		OrigW: origW, OrigH: origH, DstW: dstW, DstH: dstH,
	}
}

// InverseBox maps a box in letterboxed-image coordinates back to the
// original image's coordinate system.
func (l LetterboxInfo) InverseBox(left, top, width, height float64) (float64, float64, float64, float64) {
	if l.Scale == 0 {
		return left, top, width, height
	}
	ol := (left - l.PadX) / l.Scale
	ot := (top - l.PadY) / l.Scale
	ow := width / l.Scale
	oh := height / l.Scale
	return ol, ot, ow, oh
}

// Tensor is a dense planar float32 CHW tensor, RGB channel order, scaled
// to [0,1] (1/255 per channel).
type Tensor struct {
	Data          []float32
	Width, Height int
	Channels      int
}

// ToTensor converts img (already resized to the model's input size) into a
// planar CHW float32 tensor.
func ToTensor(img *image.RGBA) Tensor {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	data := make([]float32, 3*w*h)
	plane := w * h
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := img.PixOffset(x, y)
			r := img.Pix[idx]
			g := img.Pix[idx+1]
			bch := img.Pix[idx+2]
			pos := y*w + x
			data[pos] = float32(r) / 255.0
			data[plane+pos] = float32(g) / 255.0
			data[2*plane+pos] = float32(bch) / 255.0
		}
	}
	return Tensor{Data: data, Width: w, Height: h, Channels: 3}
}

// Preprocess composes Letterbox + ToTensor, the single entry point the
// engine calls per frame.
func Preprocess(img image.Image, cfg Config) (Tensor, LetterboxInfo) {
	resized, info := Letterbox(img, cfg.InputWidth, cfg.InputHeight, cfg.MaintainAspectRatio)
	return ToTensor(resized), info
}
