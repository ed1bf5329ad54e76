package ws2812

import (
	"fmt"
	"image"
	"image/color"

	"periph.io/x/conn/v3/display"
)

// String implements conn.Resource.
func (d *Driver) String() string {
	return fmt.Sprintf("ws2812{%d}", d.Len())
}

// Halt turns every LED off and pushes the dark frame. Implements
// conn.Resource.
func (d *Driver) Halt() error {
	if err := d.Clear(); err != nil {
		return err
	}
	return d.Show()
}

// ColorModel implements display.Drawer. The alpha channel is ignored.
func (d *Driver) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer. The chain is a single row of Len()
// pixels.
func (d *Driver) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.Len(), 1)
}

// Draw implements display.Drawer. Only the first row of r is used; the
// pixels it covers are replaced and the whole store is shown.
func (d *Driver) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	if err := d.check(); err != nil {
		return err
	}
	// Clipping happens before sp is applied, so a negative r.Min.X does not
	// shift the source.
	r = r.Intersect(d.Bounds())
	srcR := src.Bounds()
	srcR.Min = srcR.Min.Add(sp)
	if dX := r.Dx(); dX < srcR.Dx() {
		srcR.Max.X = srcR.Min.X + dX
	}
	if srcR.Empty() {
		return d.Show()
	}
	for x := srcR.Min.X; x < srcR.Max.X; x++ {
		c := color.NRGBAModel.Convert(src.At(x, srcR.Min.Y)).(color.NRGBA)
		d.pixels[r.Min.X+x-srcR.Min.X] = RGB(c.R, c.G, c.B)
	}
	return d.Show()
}

var _ display.Drawer = &Driver{}
