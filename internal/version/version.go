// ABOUTME: Product and version identification
// ABOUTME: Shown in the TUI, the startup log and -version output
package version

import "fmt"

const (
	Version      = "0.3.0"
	Product      = "utauplay"
	Manufacturer = "Resonate Protocol"
)

// String returns "product version"
func String() string {
	return fmt.Sprintf("%s %s", Product, Version)
}
