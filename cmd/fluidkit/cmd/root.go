// Package cmd implements fluidkit's Cobra CLI (spec Component L: a thin
// cobra entry point over package app), grounded on the teacher pack's
// inference-sim-inference-sim/cmd/root.go layout -- package-level command
// vars, an exported Execute, and flags wired in init.
package cmd

import (
	"os"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gekko3d/fluidkit/app"
	"github.com/gekko3d/fluidkit/config"
	"github.com/gekko3d/fluidkit/renderer"
	"github.com/gekko3d/fluidkit/sph"
)

func init() {
	runtime.LockOSThread()
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "fluidkit",
	Short: "GPU-accelerated SPH/FLIP fluid simulation",
	Run: func(cmd *cobra.Command, args []string) {
		runSimulation(configPath)
	},
}

// Execute runs the root command, exiting the process with a non-zero
// status on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "fluidkit.yaml", "path to the simulation config file")
	rootCmd.AddCommand(configCmd)
}

// runSimulation opens the window, brings up the App, and drives the
// poll/update/render loop until the window closes (spec §4.K: the
// window/input glue is a thin collaborator over package app).
func runSimulation(configPath string) {
	loader, err := config.NewLoader(configPath)
	if err != nil {
		logrus.Fatalf("fluidkit: %v", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		logrus.Fatalf("fluidkit: %v", err)
	}

	a := app.New()
	if err := a.Init(cfg, 1280, 720, "fluidkit"); err != nil {
		logrus.Fatalf("fluidkit: %v", err)
	}
	defer a.Destroy()
	defer glfw.Terminate()

	loader.Watch(func(updated *config.Config) {
		if err := a.UpdateConfig(updated); err != nil {
			logrus.Errorf("fluidkit: reload config: %v", err)
		}
	})

	win := a.Window.Handle()
	win.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		a.Resize(uint32(width), uint32(height))
	})

	renderers := []renderer.Name{renderer.Billboard, renderer.ScreenSpace, renderer.MarchingCubes, renderer.Raymarch}
	win.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeyR:
			if err := a.Reset(); err != nil {
				logrus.Errorf("fluidkit: reset: %v", err)
			}
		case glfw.Key1, glfw.Key2, glfw.Key3, glfw.Key4:
			idx := int(key - glfw.Key1)
			if idx < len(renderers) {
				if err := a.SwitchRenderer(renderers[idx]); err != nil {
					logrus.Errorf("fluidkit: switch renderer: %v", err)
				}
			}
		}
	})

	interaction := &sph.Interaction{}
	win.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		interaction.Active = action == glfw.Press
		interaction.Pull = button == glfw.MouseButtonLeft
		interaction.Push = button == glfw.MouseButtonRight
	})

	for !win.ShouldClose() {
		glfw.PollEvents()
		if err := a.Update(interaction); err != nil {
			logrus.Errorf("fluidkit: update: %v", err)
			break
		}
		if err := a.Render(); err != nil {
			logrus.Errorf("fluidkit: render: %v", err)
			break
		}
	}
}
