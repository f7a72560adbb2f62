package display

import (
	"image"
	"image/color"
	"image/png"
	"os"

	vnc "github.com/mitchellh/go-vnc"
)

// apply paints an update's rectangles into the local frame. Only raw
// encoded rectangles carry pixel data; anything else is skipped.
func (c *Client) apply(update *vnc.FramebufferUpdateMessage) {
	for i := range update.Rectangles {
		rect := &update.Rectangles[i]
		raw, ok := rect.Enc.(*vnc.RawEncoding)
		if !ok {
			continue
		}
		idx := 0
		for y := 0; y < int(rect.Height); y++ {
			for x := 0; x < int(rect.Width); x++ {
				if idx >= len(raw.Colors) {
					return
				}
				px := raw.Colors[idx]
				idx++
				c.frame.SetRGBA(int(rect.X)+x, int(rect.Y)+y, color.RGBA{
					R: scaleChannel(px.R, c.rfb.PixelFormat.RedMax),
					G: scaleChannel(px.G, c.rfb.PixelFormat.GreenMax),
					B: scaleChannel(px.B, c.rfb.PixelFormat.BlueMax),
					A: 0xff,
				})
			}
		}
	}
}

// scaleChannel widens a channel value to the 8-bit range the comparison and
// PNG output use. The emulator normally serves 8-bit channels already.
func scaleChannel(v, max uint16) uint8 {
	if max == 0 || max == 0xff {
		return uint8(v)
	}
	return uint8(uint32(v) * 0xff / uint32(max))
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readPNG(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, err
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			rgba.Set(x, y, img.At(x, y))
		}
	}
	return rgba, nil
}
