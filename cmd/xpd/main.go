// Package main is the single-binary entrypoint for xpd.
package main

import "github.com/studyplatform/xpd/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
