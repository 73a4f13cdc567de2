package classify

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// PixelValues is a normalized image tensor in NCHW layout with N = 1
type PixelValues struct {
	Shape []int
	Data  []float32
}

// FeatureExtractor converts an image into model input the way ResNet-style
// image processors do: resize the shortest edge, center crop, rescale to
// [0, 1] and normalize per channel.
type FeatureExtractor struct {
	CropSize int
	CropPct  float64
	Mean     [3]float32
	Std      [3]float32
}

// DefaultFeatureExtractor returns the ImageNet preprocessing used by microsoft/resnet-50
func DefaultFeatureExtractor() FeatureExtractor {
	return FeatureExtractor{
		CropSize: 224,
		CropPct:  0.875,
		Mean:     [3]float32{0.485, 0.456, 0.406},
		Std:      [3]float32{0.229, 0.224, 0.225},
	}
}

// Extract resizes, crops and normalizes img
func (e FeatureExtractor) Extract(img image.Image) PixelValues {
	resized := e.resize(img)
	size := e.CropSize
	b := resized.Bounds()
	x0 := b.Min.X + (b.Dx()-size)/2
	y0 := b.Min.Y + (b.Dy()-size)/2

	plane := size * size
	data := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := resized.RGBAAt(x0+x, y0+y)
			i := y*size + x
			data[i] = (float32(c.R)/255 - e.Mean[0]) / e.Std[0]
			data[plane+i] = (float32(c.G)/255 - e.Mean[1]) / e.Std[1]
			data[2*plane+i] = (float32(c.B)/255 - e.Mean[2]) / e.Std[2]
		}
	}

	return PixelValues{
		Shape: []int{1, 3, size, size},
		Data:  data,
	}
}

// resize scales img so its shortest edge is CropSize/CropPct pixels
func (e FeatureExtractor) resize(img image.Image) *image.RGBA {
	shortest := int(float64(e.CropSize) / e.CropPct)
	src := img.Bounds()

	w, h := shortest, shortest
	if src.Dx() > src.Dy() {
		w = src.Dx() * shortest / src.Dy()
	} else if src.Dy() > src.Dx() {
		h = src.Dy() * shortest / src.Dx()
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, src, xdraw.Src, nil)
	return dst
}
