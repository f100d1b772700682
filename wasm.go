//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/cottand/tsz/project"
)

func main() {
	js.Global().Set("CheckAndShowTypes", js.FuncOf(project.CheckAndShowTypes))
	js.Global().Set("CheckWithOptions", project.CheckWithOptions)

	// wait indefinitely so that Go does not terminate execution
	// and the function remains available
	<-make(chan struct{})
}
