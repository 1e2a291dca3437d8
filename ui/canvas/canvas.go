// Package canvas provides the interactive mask drawing surface.
package canvas

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"maskstudio/internal/mask"
	"maskstudio/internal/render"
	"maskstudio/internal/session"
	"maskstudio/pkg/geometry"
)

// MaskCanvas displays the current image with its mask overlay and turns
// mouse events into drawing operations on the session. All positions it
// reports are in display space; the session converts to source space at
// commit time.
type MaskCanvas struct {
	widget.BaseWidget

	session *session.Session

	raster  *fynecanvas.Raster
	content *interactiveContent
	scroll  *container.Scroll

	// Pointer position in display space, for the rectangle preview.
	pointer *geometry.Point2D

	// Index of the committed mask under the pointer, -1 when none.
	hovered int

	onError func(error)
	onHover func(maskIdx int)
}

// NewMaskCanvas creates the drawing surface bound to a session. The canvas
// subscribes to session events and refreshes itself when state changes.
func NewMaskCanvas(s *session.Session) *MaskCanvas {
	mc := &MaskCanvas{session: s, hovered: -1}

	mc.raster = fynecanvas.NewRaster(mc.draw)
	mc.raster.ScaleMode = fynecanvas.ImageScalePixels
	mc.raster.SetMinSize(fyne.NewSize(400, 300))

	mc.content = newInteractiveContent(mc, mc.raster)
	mc.scroll = container.NewScroll(mc.content)
	mc.scroll.Direction = container.ScrollBoth

	for _, ev := range []session.EventType{
		session.EventImagesChanged,
		session.EventDrawingChanged,
		session.EventRegionCommitted,
		session.EventPhaseChanged,
		session.EventReset,
	} {
		s.On(ev, func(interface{}) { mc.Refresh() })
	}

	mc.ExtendBaseWidget(mc)
	return mc
}

// OnError sets the callback invoked when a drawing operation is rejected.
func (mc *MaskCanvas) OnError(fn func(error)) {
	mc.onError = fn
}

// OnHover sets the callback invoked when the pointer enters or leaves a
// committed mask. The index is the mask's position on the current image,
// or -1 when the pointer is over none.
func (mc *MaskCanvas) OnHover(fn func(maskIdx int)) {
	mc.onHover = fn
}

// Container returns the scrollable wrapper for embedding in layouts.
func (mc *MaskCanvas) Container() fyne.CanvasObject {
	return mc.scroll
}

// CreateRenderer implements fyne.Widget.
func (mc *MaskCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(mc.scroll)
}

// Refresh re-renders the raster to match the current session state.
func (mc *MaskCanvas) Refresh() {
	snap, ok := mc.session.Snapshot()
	if ok {
		w := float32(snap.Image.Bounds().Dx()) * float32(snap.Scale)
		h := float32(snap.Image.Bounds().Dy()) * float32(snap.Scale)
		mc.raster.SetMinSize(fyne.NewSize(w, h))
	}
	mc.raster.Refresh()
	mc.BaseWidget.Refresh()
}

// draw produces the composited frame for the raster. Fyne calls this on
// every refresh with the raster's pixel dimensions.
func (mc *MaskCanvas) draw(w, h int) image.Image {
	snap, ok := mc.session.Snapshot()
	if !ok {
		return placeholder(w, h)
	}

	view := render.View{
		Base:       snap.Image,
		Scale:      snap.Scale,
		Committed:  snap.Committed,
		InProgress: snap.InProgress,
	}
	if snap.Mode == mask.ModeRectangle && snap.Anchor != nil {
		view.Anchor = snap.Anchor
		view.Pointer = mc.pointer
	}
	return render.Project(view)
}

// placeholder fills the raster before any image is staged.
func placeholder(w, h int) image.Image {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	bg := color.RGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xFF}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, bg)
		}
	}
	return img
}

// handleClick forwards a display-space click to the session.
func (mc *MaskCanvas) handleClick(x, y float64) {
	if err := mc.session.Click(geometry.Point2D{X: x, Y: y}); err != nil {
		mc.reportError(err)
		return
	}
	mc.Refresh()
}

// handleUndo removes the most recent vertex or pending anchor.
func (mc *MaskCanvas) handleUndo() {
	if err := mc.session.UndoPoint(); err != nil {
		mc.reportError(err)
		return
	}
	mc.Refresh()
}

// setPointer tracks the mouse for the rectangle preview and the committed
// mask hit-test.
func (mc *MaskCanvas) setPointer(p *geometry.Point2D) {
	mc.pointer = p

	snap, ok := mc.session.Snapshot()
	if !ok {
		mc.setHovered(-1)
		return
	}
	mc.setHovered(hitTest(snap.Committed, p, snap.Scale))
	if snap.Mode == mask.ModeRectangle && snap.Anchor != nil {
		mc.raster.Refresh()
	}
}

// hitTest returns the index of the topmost committed mask containing the
// display-space point, or -1. Later commits are drawn on top, so the scan
// runs backwards.
func hitTest(committed []mask.Region, p *geometry.Point2D, scale float64) int {
	if p == nil || scale <= 0 {
		return -1
	}
	src := geometry.ToSource(*p, scale)
	for i := len(committed) - 1; i >= 0; i-- {
		if committed[i].Contains(src) {
			return i
		}
	}
	return -1
}

func (mc *MaskCanvas) setHovered(idx int) {
	if idx == mc.hovered {
		return
	}
	mc.hovered = idx
	if mc.onHover != nil {
		mc.onHover(idx)
	}
}

func (mc *MaskCanvas) reportError(err error) {
	if mc.onError != nil {
		mc.onError(err)
	}
}

// interactiveContent wraps the raster to receive mouse events.
type interactiveContent struct {
	widget.BaseWidget
	canvas *MaskCanvas
	raster *fynecanvas.Raster
}

var _ desktop.Hoverable = (*interactiveContent)(nil)

func newInteractiveContent(mc *MaskCanvas, raster *fynecanvas.Raster) *interactiveContent {
	ic := &interactiveContent{canvas: mc, raster: raster}
	ic.ExtendBaseWidget(ic)
	return ic
}

func (ic *interactiveContent) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(ic.raster)
}

func (ic *interactiveContent) MinSize() fyne.Size {
	return ic.raster.MinSize()
}

// Tapped places a vertex or rectangle corner at the click position.
func (ic *interactiveContent) Tapped(ev *fyne.PointEvent) {
	if !ic.inBounds(ev.Position) {
		return
	}
	pos := ic.contentPosition(ev.Position)
	ic.canvas.handleClick(float64(pos.X), float64(pos.Y))
}

// TappedSecondary undoes the most recent point.
func (ic *interactiveContent) TappedSecondary(ev *fyne.PointEvent) {
	ic.canvas.handleUndo()
}

func (ic *interactiveContent) MouseIn(ev *desktop.MouseEvent) {
	ic.trackPointer(ev.Position)
}

func (ic *interactiveContent) MouseMoved(ev *desktop.MouseEvent) {
	ic.trackPointer(ev.Position)
}

func (ic *interactiveContent) MouseOut() {
	ic.canvas.setPointer(nil)
}

func (ic *interactiveContent) trackPointer(pos fyne.Position) {
	p := ic.contentPosition(pos)
	ic.canvas.setPointer(&geometry.Point2D{X: float64(p.X), Y: float64(p.Y)})
}

// inBounds rejects tap events fyne occasionally delivers outside the widget.
func (ic *interactiveContent) inBounds(pos fyne.Position) bool {
	size := ic.Size()
	return pos.X >= 0 && pos.Y >= 0 && pos.X <= size.Width && pos.Y <= size.Height
}

// contentPosition converts a viewport-relative position to display space by
// adding the scroll offset.
func (ic *interactiveContent) contentPosition(pos fyne.Position) fyne.Position {
	offset := ic.canvas.scroll.Offset
	return fyne.Position{X: pos.X + offset.X, Y: pos.Y + offset.Y}
}
