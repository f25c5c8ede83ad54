package grid_world

import (
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"io"
	"strings"
)

// FromImage reads a map image where each pixel is one cell: dark pixels are walls,
// green is the start, red is the goal and anything else is free.
func FromImage(r io.Reader) (*GridMap, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", ErrInvalidMap, err)
	}

	bounds := img.Bounds()
	track := make([]string, 0, bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		var sb strings.Builder
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			sb.WriteRune(classifyPixel(img.At(x, y)))
		}
		track = append(track, sb.String())
	}

	return Convert(track)
}

func classifyPixel(c color.Color) rune {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	r, g, b := int(rgba.R), int(rgba.G), int(rgba.B)
	switch {
	case r < 64 && g < 64 && b < 64:
		return WALL
	case g >= 128 && r < 100 && b < 100:
		return START
	case r >= 128 && g < 100 && b < 100:
		return GOAL
	}
	return FREE
}
