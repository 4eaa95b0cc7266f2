// ABOUTME: Build and product identification
// ABOUTME: Reported by the version command, remote status and mDNS records
package version

const (
	// Version is the release version
	Version = "0.3.0"
	// Product is the human-readable product name
	Product = "termvid"
	// Manufacturer identifies the publisher
	Manufacturer = "harperreed"
	// Binary is the executable and config directory name
	Binary = "termvid"
)

// String returns "Product Version"
func String() string {
	return Product + " " + Version
}
