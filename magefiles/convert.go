//go:build mage

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Convert batch-converts every file under dir into markdown/.
func Convert(dir string) error {
	mg.Deps(Build)
	return sh.RunV(binPath, "convert", "--batch", "--output-dir", "markdown", dir)
}

// Serve builds the CLI and serves conversions on :8080.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "serve", "--addr", ":8080")
}
