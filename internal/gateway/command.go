// Package gateway serializes and normalizes all traffic to the external
// command gateway that fronts the authoritative content store.
package gateway

// Command is one unit of work submitted to the command gateway.
type Command struct {
	// Tool names the gateway tool to invoke.
	Tool string
	// Arguments carries the tool call arguments.
	Arguments map[string]any
}
