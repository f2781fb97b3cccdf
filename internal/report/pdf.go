package report

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/signintech/gopdf"
)

// ErrNoFont is returned when none of the configured TTF fonts can be loaded.
var ErrNoFont = errors.New("no usable PDF font")

// DefaultFontPaths are the usual DejaVu locations on Alpine and Debian images.
var DefaultFontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

const (
	fontName   = "DejaVu"
	pageLeft   = 50.0
	textWidth  = 495.0
	barMaxW    = 300.0
	barHeight  = 10.0
	labelWidth = 160.0
	pageTop    = 40.0
	pageBottom = 800.0
)

// PDFRenderer draws a one-page participant summary.
type PDFRenderer struct {
	FontPaths []string
}

func (r PDFRenderer) loadFont(pdf *gopdf.GoPdf) error {
	paths := r.FontPaths
	if len(paths) == 0 {
		paths = DefaultFontPaths
	}
	var lastErr error
	for _, p := range paths {
		if err := pdf.AddTTFFont(fontName, p); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("%w (tried %d paths): %v", ErrNoFont, len(paths), lastErr)
}

// Render returns the PDF bytes for g.
func (r PDFRenderer) Render(g Guidance, generated time.Time) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := r.loadFont(&pdf); err != nil {
		return nil, err
	}
	pdf.SetY(pageTop)

	pdf.SetX(pageLeft)
	if err := pdf.SetFont(fontName, "", 20); err != nil {
		return nil, err
	}
	pdf.Cell(nil, g.Titles.Guidance)
	pdf.Br(30)

	if err := pdf.SetFont(fontName, "", 11); err != nil {
		return nil, err
	}
	line := func(text string) {
		lines, err := pdf.SplitText(text, textWidth)
		if err != nil {
			lines = []string{text}
		}
		for _, l := range lines {
			breakPage(&pdf)
			pdf.SetX(pageLeft)
			pdf.Cell(nil, l)
			pdf.Br(14)
		}
	}
	line(fmt.Sprintf("%s / %s / %s", g.DeviceID, g.RunID, generated.Format("02.01.2006 15:04")))
	pdf.Br(10)

	for _, f := range g.Snapshot {
		line(fmt.Sprintf("%s: %s", f.Label, f.Value))
	}
	pdf.Br(15)

	if err := pdf.SetFont(fontName, "", 14); err != nil {
		return nil, err
	}
	line(g.Titles.Anticipated)
	if err := pdf.SetFont(fontName, "", 10); err != nil {
		return nil, err
	}
	line(g.Titles.NRS)
	for _, e := range g.Difficulty {
		bar(&pdf, e.Name, float64(e.Score)/5, e.Label, 0x4c, 0x78, 0xa8)
	}
	pdf.Br(15)

	if err := pdf.SetFont(fontName, "", 14); err != nil {
		return nil, err
	}
	line(g.Titles.Traits)
	if err := pdf.SetFont(fontName, "", 10); err != nil {
		return nil, err
	}
	for _, tr := range g.Personality {
		bar(&pdf, tr.Name+" ("+g.Titles.User+")", tr.User/7, fmt.Sprintf("%.2f", tr.User), 0xf5, 0x85, 0x18)
		bar(&pdf, tr.Name+" ("+g.Titles.Norm+")", tr.Norm/7, fmt.Sprintf("%.2f", tr.Norm), 0x9d, 0x9d, 0x9d)
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// bar draws one labelled horizontal bar whose length is frac of barMaxW.
func bar(pdf *gopdf.GoPdf, label string, frac float64, value string, red, green, blue uint8) {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	breakPage(pdf)
	y := pdf.GetY()
	pdf.SetX(pageLeft)
	pdf.Cell(&gopdf.Rect{W: labelWidth, H: barHeight}, label)

	pdf.SetFillColor(red, green, blue)
	pdf.RectFromUpperLeftWithStyle(pageLeft+labelWidth, y, barMaxW*frac, barHeight, "F")

	pdf.SetXY(pageLeft+labelWidth+barMaxW*frac+5, y)
	pdf.Cell(nil, value)
	pdf.Br(14)
}

func breakPage(pdf *gopdf.GoPdf) {
	if pdf.GetY() > pageBottom {
		pdf.AddPage()
		pdf.SetY(pageTop)
	}
}
