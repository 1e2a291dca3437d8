// Package main provides the entry point for the Mask Studio application.
package main

import (
	"log"
	"os"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"

	"maskstudio/internal/app"
	"maskstudio/internal/version"
	"maskstudio/ui/mainwindow"
	"maskstudio/ui/prefs"
)

const appTitle = "Mask Studio"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s v%s", appTitle, version.Version)

	fyneApp := fyneapp.NewWithID("maskstudio")
	fyneApp.Settings().SetTheme(&app.MaskStudioTheme{})

	appPrefs := prefs.Load()
	state := app.NewState(appPrefs)

	win := mainwindow.New(fyneApp, state)
	win.Resize(windowSize(appPrefs))

	if len(os.Args) > 1 {
		win.OpenProjectPath(os.Args[1])
	}

	setupHotReload(win)

	win.ShowAndRun()
}

// windowSize leaves room for the side panel and status bar around the
// largest possible display image.
func windowSize(p *prefs.Prefs) fyne.Size {
	w, h := p.MaxDisplay()
	return fyne.NewSize(float32(w)+340, float32(h)+80)
}

// setupHotReload configures automatic restart detection when the binary is
// recompiled.
func setupHotReload(win *mainwindow.MainWindow) {
	watcher := app.NewBinaryWatcher(2 * time.Second)
	if watcher == nil {
		log.Println("Hot reload: unable to determine executable path")
		return
	}

	watcher.OnUpdate(func() {
		log.Println("Hot reload: newer binary detected")
		dialog.ShowConfirm("New Version Available",
			"The application binary has been updated.\nRestart now?",
			func(restart bool) {
				if !restart {
					watcher.Dismiss()
					watcher.Start()
					return
				}
				log.Println("Hot reload: restarting...")
				if err := watcher.Restart(); err != nil {
					log.Printf("Hot reload: restart failed: %v", err)
				}
			}, win)
	})
	watcher.Start()
}
