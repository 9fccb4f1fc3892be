// Package preview renders card combinations into contact-sheet images so
// generated datasets can be eyeballed without a board client.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	xdraw "golang.org/x/image/draw"
)

const cellGap = 8

// ContactSheet lays the card images out in one horizontal strip, each scaled
// to fit a square cell while keeping its aspect ratio.
// Parameters:
//   - images: decoded card images in combination order; must be non-empty.
//   - cell: cell edge length in pixels.
//
// Returns:
//   - *image.RGBA: composed sheet on a white background.
//   - error: non-nil for an empty input or a non-positive cell size.
func ContactSheet(images []image.Image, cell int) (*image.RGBA, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images to compose")
	}
	if cell <= 0 {
		return nil, fmt.Errorf("cell size must be positive, got %d", cell)
	}

	width := len(images)*cell + (len(images)+1)*cellGap
	height := cell + 2*cellGap
	sheet := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(sheet, sheet.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)

	for i, img := range images {
		cellRect := image.Rect(
			cellGap+i*(cell+cellGap),
			cellGap,
			cellGap+i*(cell+cellGap)+cell,
			cellGap+cell,
		)
		xdraw.CatmullRom.Scale(sheet, fitRect(cellRect, img.Bounds()), img, img.Bounds(), xdraw.Over, nil)
	}
	return sheet, nil
}

// fitRect centers src's aspect ratio inside cell.
func fitRect(cell image.Rectangle, src image.Rectangle) image.Rectangle {
	cw, ch := cell.Dx(), cell.Dy()
	sw, sh := src.Dx(), src.Dy()
	if sw == 0 || sh == 0 {
		return cell
	}

	w, h := cw, ch
	if sw*ch > sh*cw {
		h = sh * cw / sw
	} else {
		w = sw * ch / sh
	}

	x := cell.Min.X + (cw-w)/2
	y := cell.Min.Y + (ch-h)/2
	return image.Rect(x, y, x+w, y+h)
}

// WritePNG encodes a composed sheet.
func WritePNG(w io.Writer, sheet image.Image) error {
	if err := png.Encode(w, sheet); err != nil {
		return fmt.Errorf("failed to encode sheet: %w", err)
	}
	return nil
}
