package bill

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"github.com/tiffindesk/api/internal/model"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	pngWidth   = 420
	pngMargin  = 14
	pngRow     = 18
	pngColumns = "%-26s %4s %9s %10s"
)

// PNGRenderer draws the bill with a fixed-width bitmap font. Scale enlarges
// the finished image; values below 1 mean 1.
type PNGRenderer struct {
	Title string
	Scale int
}

func (PNGRenderer) Ext() string         { return "png" }
func (PNGRenderer) ContentType() string { return "image/png" }

func (p PNGRenderer) Render(w io.Writer, o model.Order) error {
	rows := billLines(o)
	head := header(o)
	height := pngMargin*2 + pngRow*(len(rows)+len(head)+3)

	canvas := imaging.New(pngWidth, height, color.White)
	d := &font.Drawer{Dst: canvas, Src: image.Black, Face: basicfont.Face7x13}
	y := pngMargin + pngRow
	text := func(s string) {
		d.Dot = fixed.P(pngMargin, y)
		d.DrawString(s)
		y += pngRow
	}

	text(p.Title)
	for _, h := range head {
		text(h)
	}
	y += pngRow / 2
	for _, r := range rows {
		label := r.label
		if len(label) > 26 {
			label = label[:25] + "~"
		}
		text(fmt.Sprintf(pngColumns, label, r.qty, r.price, r.amount))
	}

	var img image.Image = canvas
	if p.Scale > 1 {
		img = imaging.Resize(canvas, pngWidth*p.Scale, 0, imaging.NearestNeighbor)
	}
	return imaging.Encode(w, img, imaging.PNG)
}
