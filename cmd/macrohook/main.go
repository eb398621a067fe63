package main

import (
	"os"

	"golang.design/x/hotkey/mainthread"

	"github.com/offlinefirst/macrohook/internal/cmd"
)

// Global hotkeys on macOS are delivered on the main thread, so the CLI runs
// under mainthread.Init.
func main() {
	mainthread.Init(run)
}

func run() {
	root := cmd.NewRootCommand()
	if err := root.Execute(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
