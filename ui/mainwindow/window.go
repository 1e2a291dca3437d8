// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"maskstudio/internal/app"
	"maskstudio/internal/session"
	"maskstudio/internal/version"
	"maskstudio/ui/canvas"
	"maskstudio/ui/panels"
	"maskstudio/ui/prefs"
)

const projectExt = ".maskproj"

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app        fyne.App
	state      *app.State
	canvas     *canvas.MaskCanvas
	sidePanel  *panels.SidePanel
	statusBar  *widget.Label
	hoverLabel *widget.Label
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State) *MainWindow {
	win := fyneApp.NewWindow("Mask Studio")

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewMaskCanvas(mw.state.Session())

	mw.sidePanel = panels.NewSidePanel(mw.state, mw.canvas)
	mw.sidePanel.SetWindow(mw.Window)

	mw.statusBar = widget.NewLabel("Ready")
	mw.hoverLabel = widget.NewLabel("")
	mw.canvas.OnHover(func(maskIdx int) {
		if maskIdx < 0 {
			mw.hoverLabel.SetText("")
			return
		}
		mw.hoverLabel.SetText(fmt.Sprintf("Mask %d", maskIdx+1))
	})

	split := container.NewHSplit(
		mw.sidePanel.Container(),
		mw.canvas.Container(),
	)
	split.SetOffset(0.28)

	content := container.NewBorder(
		nil,
		container.NewPadded(container.NewBorder(nil, nil, nil, mw.hoverLabel, mw.statusBar)),
		nil, nil,
		split,
	)

	mw.SetContent(content)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Add Images...", func() { mw.sidePanel.ShowAddImages() }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Open Project...", mw.onOpenProject),
		fyne.NewMenuItem("Save Project As...", mw.onSaveProjectAs),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Submit Masks", mw.onFinalize),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	sessionMenu := fyne.NewMenu("Session",
		fyne.NewMenuItem("Start Drawing", mw.onStartDefining),
		fyne.NewMenuItem("Reset Session", mw.onResetSession),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Preferences...", mw.onPreferences),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, sessionMenu, helpMenu))
}

// setupEventHandlers registers for session events that affect the window
// chrome; the canvas and panels subscribe on their own.
func (mw *MainWindow) setupEventHandlers() {
	s := mw.state.Session()

	s.On(session.EventPhaseChanged, func(data interface{}) {
		if phase, ok := data.(session.Phase); ok {
			mw.updateStatus(phaseStatus(phase))
		}
	})
	s.On(session.EventRegionCommitted, func(interface{}) {
		imageIdx, regionIdx := s.Cursor()
		mw.updateStatus(fmt.Sprintf("Mask committed. Now on image %d, mask %d.",
			imageIdx+1, regionIdx+1))
	})
	s.On(session.EventSubmittingChanged, func(data interface{}) {
		if submitting, ok := data.(bool); ok && submitting {
			mw.updateStatus("Submitting masks to backend...")
		}
	})
	s.On(session.EventReset, func(interface{}) {
		mw.updateStatus("Session reset")
	})
}

func phaseStatus(phase session.Phase) string {
	switch phase {
	case session.PhaseDefiningRegions:
		return "Drawing masks. Left click adds a point, right click undoes."
	case session.PhaseReadyToFinalize:
		return "All masks drawn. Submit when ready."
	case session.PhaseSubmitted:
		return "Masks submitted."
	default:
		return "Stage images to begin."
	}
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// lastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) lastDir() fyne.ListableURI {
	path := mw.state.Prefs.String(prefs.KeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir remembers the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.state.Prefs.SetString(prefs.KeyLastDir, filepath.Dir(filePath))
	if err := mw.state.Prefs.Save(); err != nil {
		mw.updateStatus("Could not save preferences: " + err.Error())
	}
}

// Menu action handlers

func (mw *MainWindow) onOpenProject() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		mw.loadProject(path)
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{projectExt}))
	if loc := mw.lastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// OpenProjectPath restores a saved session from the given path, as used by
// the command line argument at startup.
func (mw *MainWindow) OpenProjectPath(path string) {
	mw.loadProject(path)
}

// loadProject replaces the current session with one restored from disk.
func (mw *MainWindow) loadProject(path string) {
	maxW, maxH := mw.state.Prefs.MaxDisplay()
	restored, err := session.LoadProject(path, maxW, maxH)
	if err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}

	mw.state.ReplaceSession(restored)
	mw.setupUI()
	mw.setupEventHandlers()
	mw.SetTitle("Mask Studio - " + filepath.Base(path))
	mw.updateStatus("Project loaded: " + path)
}

func (mw *MainWindow) onSaveProjectAs() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != projectExt {
			path += projectExt
		}
		mw.saveLastDir(path)
		if err := mw.state.Session().Save(path); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.SetTitle("Mask Studio - " + filepath.Base(path))
		mw.updateStatus("Project saved: " + path)
	}, mw.Window)
	fd.SetFileName("session" + projectExt)
	if loc := mw.lastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onStartDefining() {
	if err := mw.state.Session().StartDefining(); err != nil {
		mw.updateStatus(err.Error())
	}
}

func (mw *MainWindow) onFinalize() {
	go func() {
		if err := mw.state.Session().Finalize(context.Background(), mw.state.Backend()); err != nil {
			mw.updateStatus("Submit failed: " + err.Error())
		}
	}()
}

func (mw *MainWindow) onResetSession() {
	dialog.ShowConfirm("Reset Session",
		"Discard all staged images and masks?",
		func(confirmed bool) {
			if confirmed {
				mw.state.Session().ResetAll()
			}
		}, mw.Window)
}

func (mw *MainWindow) onPreferences() {
	p := mw.state.Prefs

	urlEntry := widget.NewEntry()
	urlEntry.SetText(p.BackendURL())

	widthEntry := widget.NewEntry()
	heightEntry := widget.NewEntry()
	curW, curH := p.MaxDisplay()
	widthEntry.SetText(strconv.FormatFloat(curW, 'f', -1, 64))
	heightEntry.SetText(strconv.FormatFloat(curH, 'f', -1, 64))

	targetEntry := widget.NewEntry()
	targetEntry.SetText(strconv.Itoa(p.IntWithFallback(prefs.KeyDefaultTarget, 1)))

	dialog.ShowForm("Preferences", "Save", "Cancel",
		[]*widget.FormItem{
			widget.NewFormItem("Backend URL", urlEntry),
			widget.NewFormItem("Max display width", widthEntry),
			widget.NewFormItem("Max display height", heightEntry),
			widget.NewFormItem("Default masks per image", targetEntry),
		},
		func(save bool) {
			if !save {
				return
			}
			if w, err := strconv.ParseFloat(widthEntry.Text, 64); err == nil && w > 0 {
				p.SetFloat(prefs.KeyMaxDisplayW, w)
			}
			if h, err := strconv.ParseFloat(heightEntry.Text, 64); err == nil && h > 0 {
				p.SetFloat(prefs.KeyMaxDisplayH, h)
			}
			if n, err := strconv.Atoi(targetEntry.Text); err == nil && n > 0 {
				p.SetInt(prefs.KeyDefaultTarget, n)
			}
			// Display bounds are fixed per session; new values apply to
			// the next loaded project or restart.
			if err := mw.state.SetBackendURL(urlEntry.Text); err != nil {
				dialog.ShowError(err, mw.Window)
				return
			}
			mw.updateStatus("Preferences saved")
		}, mw.Window)
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Mask Studio",
		fmt.Sprintf("Mask Studio v%s\n\n"+
			"Define print-area masks on product images and\n"+
			"submit them to the mockup service.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
