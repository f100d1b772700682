//go:build js && wasm

package project

import (
	"fmt"
	"strings"
	"syscall/js"

	"github.com/pkg/errors"
)

// CheckAndShowTypes checks program and prints the declared types of its
// top-level values, or alternatively displays the diagnostics if it has any
func CheckAndShowTypes(_ js.Value, args []js.Value) (ret any) {
	defer func() {
		if r := recover(); r != nil {
			ret = "checker panicked: " + fmt.Sprint(r)
		}
	}()

	program := args[0].String()
	prog, err := NewProgramFromBytes("program.yaml", []byte(program), nil)
	if err != nil {
		return fmt.Sprintf("the program could not be read:\n\n%s", err)
	}
	if prog.Result.Errors.HasError() {
		sb := strings.Builder{}
		sb.WriteString("the program has the following errors:\n")
		for _, d := range prog.Diagnostics() {
			sb.WriteString(d)
			sb.WriteByte('\n')
		}
		return sb.String()
	}
	return prog.DisplayTypes()
}

// checkWithOptions checks program under the options object in args[1] and
// resolves to { types: string, diagnostics: string[] }
func checkWithOptions(_ js.Value, args []js.Value) (any, error) {
	if len(args) != 2 {
		return nil, errors.Errorf("expected 2 arguments, got %d", len(args))
	}
	overrides := make(map[string]bool)
	opts := args[1]
	keys := js.Global().Get("Object").Call("keys", opts)
	for i := 0; i < keys.Length(); i++ {
		k := keys.Index(i).String()
		overrides[k] = opts.Get(k).Truthy()
	}
	prog, err := NewProgramFromBytes("program.yaml", []byte(args[0].String()), overrides)
	if err != nil {
		return nil, err
	}
	diags := make([]any, 0)
	for _, d := range prog.Diagnostics() {
		diags = append(diags, d)
	}
	return map[string]any{
		"types":       prog.DisplayTypes(),
		"diagnostics": diags,
	}, nil
}

// asPromise implemented based on
// https://stackoverflow.com/questions/67437284/how-to-throw-js-error-from-go-web-assembly
//
// It takes a normal JS-API function that also returns an error, and returns function
// that returns a promise which
// completes when the function completes, and can be used to catch errors, if any
func asPromise(function func(js.Value, []js.Value) (any, error)) any {
	return js.FuncOf(func(this js.Value, args []js.Value) any {
		handler := js.FuncOf(func(_ js.Value, promiseArgs []js.Value) any {
			resolve := promiseArgs[0]
			reject := promiseArgs[1]

			go func() {
				defer func() {
					if r := recover(); r != nil {
						errorConstructor := js.Global().Get("Error")
						errorObject := errorConstructor.New(fmt.Sprintf("%s", r))
						reject.Invoke(errorObject)
					}
				}()

				data, err := function(this, args)
				if err != nil {
					errorConstructor := js.Global().Get("Error")
					errorObject := errorConstructor.New(err.Error())
					reject.Invoke(errorObject)
				} else {
					resolve.Invoke(js.ValueOf(data))
				}
			}()

			return nil
		})
		promiseConstructor := js.Global().Get("Promise")
		return promiseConstructor.New(handler)
	})
}

var CheckWithOptions = asPromise(checkWithOptions)
