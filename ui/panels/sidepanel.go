// Package panels provides UI panels for the application.
package panels

import (
	"context"
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"maskstudio/internal/app"
	"maskstudio/internal/imageset"
	"maskstudio/internal/session"
	"maskstudio/ui/canvas"
	"maskstudio/ui/prefs"
)

// SidePanel provides the main side panel with tabbed sections.
type SidePanel struct {
	state     *app.State
	canvas    *canvas.MaskCanvas
	container *container.AppTabs

	imagesPanel  *ImagesPanel
	drawingPanel *DrawingPanel
	catalogPanel *CatalogPanel
}

// NewSidePanel creates a new side panel.
func NewSidePanel(state *app.State, cvs *canvas.MaskCanvas) *SidePanel {
	sp := &SidePanel{
		state:  state,
		canvas: cvs,
	}

	sp.imagesPanel = NewImagesPanel(state)
	sp.drawingPanel = NewDrawingPanel(state, cvs)
	sp.catalogPanel = NewCatalogPanel(state)

	sp.container = container.NewAppTabs(
		container.NewTabItem("Images", sp.imagesPanel.Container()),
		container.NewTabItem("Masks", sp.drawingPanel.Container()),
		container.NewTabItem("Catalog", sp.catalogPanel.Container()),
	)

	return sp
}

// Container returns the panel container.
func (sp *SidePanel) Container() fyne.CanvasObject {
	return sp.container
}

// SetWindow sets the parent window for dialogs.
func (sp *SidePanel) SetWindow(w fyne.Window) {
	sp.imagesPanel.SetWindow(w)
	sp.drawingPanel.SetWindow(w)
	sp.catalogPanel.SetWindow(w)
}

// ShowAddImages opens the image file picker, as used by the File menu.
func (sp *SidePanel) ShowAddImages() {
	sp.container.SelectIndex(0)
	sp.imagesPanel.showAddDialog()
}

// ImagesPanel stages images and their mask counts before drawing starts.
type ImagesPanel struct {
	state     *app.State
	window    fyne.Window
	container fyne.CanvasObject

	list        *widget.List
	targetEntry *widget.Entry
	statusLabel *widget.Label
	selected    int
}

// NewImagesPanel creates the image staging panel.
func NewImagesPanel(state *app.State) *ImagesPanel {
	ip := &ImagesPanel{
		state:    state,
		selected: -1,
	}
	s := state.Session()

	ip.statusLabel = widget.NewLabel("")
	ip.statusLabel.Wrapping = fyne.TextWrapWord

	ip.list = widget.NewList(
		func() int { return s.ImageCount() },
		func() fyne.CanvasObject { return widget.NewLabel("image") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			slot := s.Slot(id)
			if slot == nil {
				return
			}
			obj.(*widget.Label).SetText(fmt.Sprintf("%s (%d/%d masks)",
				slot.Source.Name, len(slot.Regions), slot.TargetCount))
		},
	)
	ip.list.OnSelected = func(id widget.ListItemID) {
		ip.selected = id
		if slot := s.Slot(id); slot != nil {
			ip.targetEntry.SetText(strconv.Itoa(slot.TargetCount))
		}
	}

	addButton := widget.NewButton("Add Images...", func() {
		ip.showAddDialog()
	})

	removeButton := widget.NewButton("Remove Selected", func() {
		if ip.selected < 0 {
			return
		}
		if err := s.RemoveImage(ip.selected); err != nil {
			ip.statusLabel.SetText(err.Error())
			return
		}
		ip.selected = -1
		ip.list.UnselectAll()
		ip.list.Refresh()
	})

	ip.targetEntry = widget.NewEntry()
	ip.targetEntry.SetPlaceHolder("masks per image")
	ip.targetEntry.OnSubmitted = func(text string) {
		ip.applyTargetCount(text)
	}
	applyButton := widget.NewButton("Apply", func() {
		ip.applyTargetCount(ip.targetEntry.Text)
	})

	startButton := widget.NewButton("Start Drawing", func() {
		if err := s.StartDefining(); err != nil {
			ip.statusLabel.SetText(err.Error())
			return
		}
		ip.statusLabel.SetText("Click the canvas to place mask points.")
	})

	for _, ev := range []session.EventType{
		session.EventImagesChanged,
		session.EventRegionCommitted,
		session.EventReset,
	} {
		s.On(ev, func(interface{}) { ip.list.Refresh() })
	}

	ip.container = container.NewBorder(
		container.NewVBox(
			addButton,
			removeButton,
		),
		container.NewVBox(
			widget.NewLabel("Masks for selected image:"),
			container.NewBorder(nil, nil, nil, applyButton, ip.targetEntry),
			startButton,
			ip.statusLabel,
		),
		nil, nil,
		ip.list,
	)

	return ip
}

// SetWindow sets the parent window for dialogs.
func (ip *ImagesPanel) SetWindow(w fyne.Window) {
	ip.window = w
}

// Container returns the panel container.
func (ip *ImagesPanel) Container() fyne.CanvasObject {
	return ip.container
}

func (ip *ImagesPanel) showAddDialog() {
	if ip.window == nil {
		return
	}
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		defer reader.Close()

		path := reader.URI().Path()
		slot, err := imageset.Load(path)
		if err != nil {
			ip.statusLabel.SetText(err.Error())
			return
		}
		if err := ip.state.Session().AddImage(slot); err != nil {
			ip.statusLabel.SetText(err.Error())
			return
		}
		if target := ip.state.Prefs.IntWithFallback(prefs.KeyDefaultTarget, 1); target > 1 {
			_ = ip.state.Session().SetTargetCount(ip.state.Session().ImageCount()-1, target)
		}
		ip.statusLabel.SetText(fmt.Sprintf("Added %s (%dx%d)",
			slot.Name, slot.Width(), slot.Height()))
	}, ip.window)
	fd.SetFilter(storage.NewExtensionFileFilter(imageset.SupportedFormats()))
	fd.Show()
}

func (ip *ImagesPanel) applyTargetCount(text string) {
	if ip.selected < 0 {
		ip.statusLabel.SetText("Select an image first")
		return
	}
	count, err := strconv.Atoi(text)
	if err != nil {
		ip.statusLabel.SetText("Mask count must be a number")
		return
	}
	if err := ip.state.Session().SetTargetCount(ip.selected, count); err != nil {
		ip.statusLabel.SetText(err.Error())
		return
	}
	ip.list.Refresh()
}

// DrawingPanel drives region drawing, per-region options, and submission.
type DrawingPanel struct {
	state     *app.State
	canvas    *canvas.MaskCanvas
	window    fyne.Window
	container fyne.CanvasObject

	modeSelect     *widget.RadioGroup
	progressLabel  *widget.Label
	statusLabel    *widget.Label
	cropCheck      *widget.Check
	alignSelect    *widget.Select
	finalizeButton *widget.Button
}

// NewDrawingPanel creates the mask drawing panel.
func NewDrawingPanel(state *app.State, cvs *canvas.MaskCanvas) *DrawingPanel {
	dp := &DrawingPanel{
		state:  state,
		canvas: cvs,
	}
	s := state.Session()

	dp.progressLabel = widget.NewLabel("No image staged")
	dp.statusLabel = widget.NewLabel("")
	dp.statusLabel.Wrapping = fyne.TextWrapWord

	dp.modeSelect = widget.NewRadioGroup([]string{"Polygon", "Rectangle"}, func(selected string) {
		mode := maskModeFor(selected)
		if err := s.SetMode(mode); err != nil {
			dp.statusLabel.SetText(err.Error())
		}
	})
	dp.modeSelect.SetSelected("Polygon")
	dp.modeSelect.Horizontal = true

	commitButton := widget.NewButton("Commit Mask", func() {
		if err := s.CommitRegion(); err != nil {
			dp.statusLabel.SetText(err.Error())
			return
		}
		dp.statusLabel.SetText("")
	})

	undoButton := widget.NewButton("Undo Point", func() {
		if err := s.UndoPoint(); err != nil {
			dp.statusLabel.SetText(err.Error())
		}
	})

	clearButton := widget.NewButton("Clear Points", func() {
		if err := s.ResetRegion(); err != nil {
			dp.statusLabel.SetText(err.Error())
		}
	})

	suggestButton := widget.NewButton("Suggest Outline", func() {
		dp.suggestOutline()
	})

	dp.cropCheck = widget.NewCheck("Crop to mask", func(checked bool) {
		dp.applyRegionMeta()
	})
	dp.alignSelect = widget.NewSelect([]string{"left", "center", "right"}, func(string) {
		dp.applyRegionMeta()
	})
	dp.alignSelect.SetSelected("center")

	dp.finalizeButton = widget.NewButton("Submit Masks", func() {
		dp.finalize()
	})

	resetButton := widget.NewButton("Reset Session", func() {
		dp.confirmReset()
	})

	cvs.OnError(func(err error) {
		dp.statusLabel.SetText(err.Error())
	})

	for _, ev := range []session.EventType{
		session.EventPhaseChanged,
		session.EventRegionCommitted,
		session.EventImagesChanged,
		session.EventReset,
	} {
		s.On(ev, func(interface{}) { dp.updateProgress() })
	}
	s.On(session.EventSubmittingChanged, func(data interface{}) {
		if submitting, ok := data.(bool); ok && submitting {
			dp.finalizeButton.Disable()
			dp.statusLabel.SetText("Submitting masks...")
		} else {
			dp.finalizeButton.Enable()
		}
		dp.updateProgress()
	})
	s.On(session.EventReset, func(interface{}) {
		dp.finalizeButton.Enable()
		dp.statusLabel.SetText("")
	})

	dp.container = container.NewVBox(
		widget.NewCard("Progress", "", dp.progressLabel),
		widget.NewCard("Drawing", "", container.NewVBox(
			dp.modeSelect,
			container.NewHBox(commitButton, undoButton),
			container.NewHBox(clearButton, suggestButton),
		)),
		widget.NewCard("Last Mask", "", container.NewVBox(
			dp.cropCheck,
			widget.NewLabel("Alignment:"),
			dp.alignSelect,
		)),
		widget.NewCard("Session", "", container.NewVBox(
			dp.finalizeButton,
			resetButton,
		)),
		dp.statusLabel,
	)

	dp.updateProgress()
	return dp
}

// SetWindow sets the parent window for dialogs.
func (dp *DrawingPanel) SetWindow(w fyne.Window) {
	dp.window = w
}

// Container returns the panel container.
func (dp *DrawingPanel) Container() fyne.CanvasObject {
	return dp.container
}

func (dp *DrawingPanel) updateProgress() {
	s := dp.state.Session()
	switch s.Phase() {
	case session.PhaseSelectingImages:
		dp.progressLabel.SetText(fmt.Sprintf("%d images staged", s.ImageCount()))
	case session.PhaseDefiningRegions:
		imageIdx, regionIdx := s.Cursor()
		slot := s.Slot(imageIdx)
		if slot == nil {
			return
		}
		dp.progressLabel.SetText(fmt.Sprintf("Image %d of %d: %s\nMask %d of %d",
			imageIdx+1, s.ImageCount(), slot.Source.Name, regionIdx+1, slot.TargetCount))
	case session.PhaseReadyToFinalize:
		dp.progressLabel.SetText("All masks drawn. Ready to submit.")
	case session.PhaseSubmitted:
		dp.progressLabel.SetText("Masks submitted.")
		dp.statusLabel.SetText("")
	}
}

// applyRegionMeta pushes crop and alignment onto the most recently
// committed region.
func (dp *DrawingPanel) applyRegionMeta() {
	s := dp.state.Session()
	imageIdx, regionIdx := lastCommitted(s)
	if imageIdx < 0 {
		return
	}
	alignment := maskAlignmentFor(dp.alignSelect.Selected)
	if err := s.SetRegionMeta(imageIdx, regionIdx, dp.cropCheck.Checked, alignment); err != nil {
		dp.statusLabel.SetText(err.Error())
	}
}

// suggestOutline runs shape detection on the current image and seeds the
// builder with the result, converted to display space.
func (dp *DrawingPanel) suggestOutline() {
	s := dp.state.Session()
	imageIdx, _ := s.Cursor()
	slot := s.Slot(imageIdx)
	if slot == nil || s.Phase() != session.PhaseDefiningRegions {
		dp.statusLabel.SetText("Start drawing before requesting a suggestion")
		return
	}

	dp.statusLabel.SetText("Detecting outline...")
	go func() {
		points, err := suggestPoints(slot)
		if err != nil {
			dp.statusLabel.SetText(err.Error())
			return
		}
		if err := s.SeedPoints(points); err != nil {
			dp.statusLabel.SetText(err.Error())
			return
		}
		dp.statusLabel.SetText(fmt.Sprintf("Suggested %d points. Adjust and commit.", len(points)))
		dp.canvas.Refresh()
	}()
}

func (dp *DrawingPanel) finalize() {
	s := dp.state.Session()
	go func() {
		err := s.Finalize(context.Background(), dp.state.Backend())
		if err != nil {
			dp.statusLabel.SetText("Submit failed: " + err.Error())
			return
		}
		if s.Phase() == session.PhaseSubmitted {
			dp.statusLabel.SetText("")
		}
	}()
}

func (dp *DrawingPanel) confirmReset() {
	if dp.window == nil {
		dp.state.Session().ResetAll()
		return
	}
	dialog.ShowConfirm("Reset Session",
		"Discard all staged images and masks?",
		func(confirmed bool) {
			if confirmed {
				dp.state.Session().ResetAll()
			}
		}, dp.window)
}

// lastCommitted returns the location of the most recently committed region,
// or (-1, -1) when nothing has been committed yet.
func lastCommitted(s *session.Session) (imageIdx, regionIdx int) {
	for i := s.ImageCount() - 1; i >= 0; i-- {
		slot := s.Slot(i)
		if slot != nil && len(slot.Regions) > 0 {
			return i, len(slot.Regions) - 1
		}
	}
	return -1, -1
}
