//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Runs go vet over every package.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Runs the unit tests with the race detector after vetting.
func Test() error {
	mg.Deps(Vet)
	if _, err := executeCmd("go", withArgs("test", "-race", "-count=1", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

// Opens a window and renders the default scene. Set OXY_CONFIG to point at a TOML config file.
func Example() error {
	args := []string{"run", "examples/default_scene.go"}
	if cfg := envOr("OXY_CONFIG", ""); cfg != "" {
		args = append(args, "-config", cfg)
	}
	fmt.Println("Run default scene...")
	if _, err := executeCmd("go", withArgs(args...), withStream()); err != nil {
		return err
	}
	return nil
}
