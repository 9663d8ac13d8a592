//go:build js && wasm

// Command wasm exposes the simulator to the browser via WebAssembly.
// After loading, it registers a global JavaScript function:
//
//	runScenario(jsonString) -> jsonString
//
// The input and output are a JSON-encoded Scenario and RunLog respectively,
// matching the same contract used by the CLI.
package main

import (
	"syscall/js"

	"github.com/YoRyan/dtg-m3-pack/internal/sim"
)

func main() {
	js.Global().Set("runScenario", js.FuncOf(runScenario))
	select {} // keep the WASM module alive until the page is closed
}

func runScenario(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return map[string]any{"error": "no input provided"}
	}

	result, err := sim.RunJSON(args[0].String())
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return result
}
