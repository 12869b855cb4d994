// ABOUTME: Version and product information
// ABOUTME: Reported in logs and the TUI header
package version

const (
	// Version is the release version
	Version = "0.1.0"

	// Product is the product name
	Product = "Resonate Synth"

	// Manufacturer is the vendor name
	Manufacturer = "Resonate"
)

// String returns the product name with its version
func String() string {
	return Product + " " + Version
}
