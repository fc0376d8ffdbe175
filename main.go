// The main package for the menucrawler executable.
package main

import (
	"github.com/JakeFAU/place-menu-crawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
