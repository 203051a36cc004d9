package main

import (
	"github.com/hpcforge/atlasbuild/cmd/atlasbuild/internal"
)

func main() {
	internal.Execute()
}
