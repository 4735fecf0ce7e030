package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"gonum.org/v1/gonum/spatial/r2"
)

// ParseColor reads a "#rrggbb" or "#rgb" color.
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// Rasterize paints sc onto a new RGBA image. Shapes are not anti-aliased.
func Rasterize(sc Scene) (*image.RGBA, error) {
	w, h := int(math.Ceil(sc.Width)), int(math.Ceil(sc.Height))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("scene has no area: %vx%v", sc.Width, sc.Height)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	for i, op := range sc.Ops {
		if err := paint(img, op); err != nil {
			return nil, fmt.Errorf("op %d (%s): %w", i, op.Kind, err)
		}
	}
	return img, nil
}

// EncodePNG rasterizes sc and writes it to w as PNG
func EncodePNG(w io.Writer, sc Scene) error {
	img, err := Rasterize(sc)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

func paint(img *image.RGBA, op Op) error {
	switch op.Kind {
	case OpClear:
		draw.Draw(img, img.Bounds(), image.Transparent, image.Point{}, draw.Src)
	case OpRect:
		c, err := ParseColor(op.Fill)
		if err != nil {
			return err
		}
		r := image.Rect(int(op.X), int(op.Y), int(math.Ceil(op.X+op.W)), int(math.Ceil(op.Y+op.H)))
		draw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
	case OpLine:
		c, err := ParseColor(op.Stroke)
		if err != nil {
			return err
		}
		a, b := r2.Vec{X: op.X, Y: op.Y}, r2.Vec{X: op.X2, Y: op.Y2}
		half := op.LineWidth / 2
		// round caps fall out of measuring distance to the segment
		fillWhere(img, c, boundsAround(math.Min(a.X, b.X), math.Min(a.Y, b.Y),
			math.Max(a.X, b.X), math.Max(a.Y, b.Y), half), func(p r2.Vec) bool {
			return segmentDistance(p, a, b) <= half
		})
	case OpCircle:
		center := r2.Vec{X: op.X, Y: op.Y}
		half := op.LineWidth / 2
		box := boundsAround(op.X, op.Y, op.X, op.Y, op.R+half)
		if op.Fill != "" {
			c, err := ParseColor(op.Fill)
			if err != nil {
				return err
			}
			fillWhere(img, c, box, func(p r2.Vec) bool {
				return r2.Norm(r2.Sub(p, center)) <= op.R
			})
		}
		if op.Stroke != "" && op.LineWidth > 0 {
			c, err := ParseColor(op.Stroke)
			if err != nil {
				return err
			}
			fillWhere(img, c, box, func(p r2.Vec) bool {
				d := r2.Norm(r2.Sub(p, center))
				return d >= op.R-half && d <= op.R+half
			})
		}
	case OpText:
		c, err := ParseColor(op.Fill)
		if err != nil {
			return err
		}
		drawLabel(img, c, op.X, op.Y, op.Text, strings.Contains(op.Font, "bold"))
	default:
		return fmt.Errorf("unknown op kind %q", op.Kind)
	}
	return nil
}

func boundsAround(minX, minY, maxX, maxY, pad float64) image.Rectangle {
	return image.Rect(
		int(math.Floor(minX-pad)), int(math.Floor(minY-pad)),
		int(math.Ceil(maxX+pad))+1, int(math.Ceil(maxY+pad))+1,
	)
}

// fillWhere sets every pixel in box whose center satisfies inside.
func fillWhere(img *image.RGBA, c color.RGBA, box image.Rectangle, inside func(r2.Vec) bool) {
	box = box.Intersect(img.Bounds())
	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			if inside(r2.Vec{X: float64(x) + 0.5, Y: float64(y) + 0.5}) {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

func segmentDistance(p, a, b r2.Vec) float64 {
	ab := r2.Sub(b, a)
	l2 := r2.Dot(ab, ab)
	if l2 == 0 {
		return r2.Norm(r2.Sub(p, a))
	}
	t := math.Max(0, math.Min(1, r2.Dot(r2.Sub(p, a), ab)/l2))
	return r2.Norm(r2.Sub(p, r2.Add(a, r2.Scale(t, ab))))
}

// drawLabel centers text on (x, y) with the built-in bitmap face. Bold is
// faked by drawing twice one pixel apart.
func drawLabel(img *image.RGBA, c color.RGBA, x, y float64, text string, bold bool) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(c), Face: face}

	width := d.MeasureString(text)
	m := face.Metrics()
	baseline := fixed.I(int(y)) + (m.Ascent-m.Descent)/2
	d.Dot = fixed.Point26_6{X: fixed.I(int(x)) - width/2, Y: baseline}
	d.DrawString(text)
	if bold {
		d.Dot = fixed.Point26_6{X: fixed.I(int(x)) - width/2 + fixed.I(1), Y: baseline}
		d.DrawString(text)
	}
}
