package panels

import (
	"context"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"maskstudio/internal/api"
	"maskstudio/internal/app"
	"maskstudio/internal/imageset"
)

// CatalogPanel browses the backend's template and base-mockup catalogs so
// a stock image can be staged without leaving the application.
type CatalogPanel struct {
	state     *app.State
	window    fyne.Window
	container fyne.CanvasObject

	templateSelect *widget.Select
	imageList      *widget.List
	statusLabel    *widget.Label
	selected       int
}

// NewCatalogPanel creates the catalog browser panel.
func NewCatalogPanel(state *app.State) *CatalogPanel {
	cp := &CatalogPanel{
		state:    state,
		selected: -1,
	}

	cp.statusLabel = widget.NewLabel("")
	cp.statusLabel.Wrapping = fyne.TextWrapWord

	cp.templateSelect = widget.NewSelect(nil, func(template string) {
		cp.loadBaseImages(template)
	})
	cp.templateSelect.PlaceHolder = "Select template"

	refreshButton := widget.NewButton("Refresh Templates", func() {
		cp.refreshTemplates()
	})

	cp.imageList = widget.NewList(
		func() int { return len(state.BaseImages()) },
		func() fyne.CanvasObject { return widget.NewLabel("base image") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			images := state.BaseImages()
			if id < len(images) {
				obj.(*widget.Label).SetText(images[id].Name)
			}
		},
	)
	cp.imageList.OnSelected = func(id widget.ListItemID) {
		cp.selected = id
	}

	addButton := widget.NewButton("Add to Session", func() {
		cp.addSelected()
	})

	state.On(app.EventTemplatesLoaded, func(data interface{}) {
		if templates, ok := data.([]string); ok {
			cp.templateSelect.Options = templates
			cp.templateSelect.Refresh()
		}
	})
	state.On(app.EventBaseImagesLoaded, func(interface{}) {
		cp.selected = -1
		cp.imageList.UnselectAll()
		cp.imageList.Refresh()
	})

	cp.container = container.NewBorder(
		container.NewVBox(
			refreshButton,
			cp.templateSelect,
		),
		container.NewVBox(
			addButton,
			cp.statusLabel,
		),
		nil, nil,
		cp.imageList,
	)

	return cp
}

// SetWindow sets the parent window for dialogs.
func (cp *CatalogPanel) SetWindow(w fyne.Window) {
	cp.window = w
}

// Container returns the panel container.
func (cp *CatalogPanel) Container() fyne.CanvasObject {
	return cp.container
}

func (cp *CatalogPanel) refreshTemplates() {
	cp.statusLabel.SetText("Loading templates...")
	go func() {
		err := cp.state.RefreshTemplates(context.Background())
		if err != nil {
			cp.statusLabel.SetText(err.Error())
			return
		}
		cp.statusLabel.SetText(fmt.Sprintf("%d templates", len(cp.state.Templates())))
	}()
}

func (cp *CatalogPanel) loadBaseImages(template string) {
	cp.statusLabel.SetText("Loading base images...")
	go func() {
		err := cp.state.LoadBaseImages(context.Background(), template)
		if err != nil {
			cp.statusLabel.SetText(err.Error())
			return
		}
		cp.statusLabel.SetText(fmt.Sprintf("%d base images", len(cp.state.BaseImages())))
	}()
}

// addSelected downloads the chosen base image and stages it like a local
// file pick. Downloaded slots have no path, so they are excluded from
// project saves.
func (cp *CatalogPanel) addSelected() {
	images := cp.state.BaseImages()
	if cp.selected < 0 || cp.selected >= len(images) {
		cp.statusLabel.SetText("Select a base image first")
		return
	}
	img := images[cp.selected]

	cp.statusLabel.SetText("Downloading " + img.Name + "...")
	go func() {
		slot, err := cp.download(img)
		if err != nil {
			cp.statusLabel.SetText(err.Error())
			return
		}
		if err := cp.state.Session().AddImage(slot); err != nil {
			cp.statusLabel.SetText(err.Error())
			return
		}
		cp.statusLabel.SetText("Added " + img.Name)
	}()
}

func (cp *CatalogPanel) download(img api.BaseImage) (*imageset.Slot, error) {
	data, err := cp.state.Backend().DownloadImage(context.Background(), img.URL)
	if err != nil {
		return nil, err
	}
	return imageset.FromBytes(img.Name, data)
}
