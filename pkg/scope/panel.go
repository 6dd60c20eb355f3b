package scope

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/gofreq/pkg/oled"
)

// PanelView shows a bitmap of the board display.
type PanelView struct {
	widget.BaseWidget

	image *canvas.Image
	scale float32
}

// NewPanelView creates a blank view. Each panel pixel is drawn scale units wide.
func NewPanelView(scale float32) *PanelView {
	if scale <= 0 {
		scale = 3
	}
	img := canvas.NewImageFromImage(image.NewGray(image.Rect(0, 0, oled.Columns, oled.Pages*8)))
	img.ScaleMode = canvas.ImageScalePixels
	img.FillMode = canvas.ImageFillContain

	v := &PanelView{image: img, scale: scale}
	v.ExtendBaseWidget(v)
	return v
}

// Update shows img. Call from the UI goroutine.
func (v *PanelView) Update(img image.Image) {
	v.image.Image = img
	v.image.Refresh()
}

// CreateRenderer implements fyne.Widget.
func (v *PanelView) CreateRenderer() fyne.WidgetRenderer {
	r := widget.NewSimpleRenderer(v.image)
	return &panelRenderer{WidgetRenderer: r, view: v}
}

type panelRenderer struct {
	fyne.WidgetRenderer
	view *PanelView
}

func (r *panelRenderer) MinSize() fyne.Size {
	return fyne.NewSize(oled.Columns*r.view.scale, oled.Pages*8*r.view.scale)
}
