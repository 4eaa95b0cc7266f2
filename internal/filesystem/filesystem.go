// ABOUTME: Swappable filesystem backend built on afero
// ABOUTME: The OS filesystem in production, an in-memory one in tests
package filesystem

import "github.com/spf13/afero"

var backend = afero.Afero{Fs: afero.NewOsFs()}

// API returns the active filesystem
func API() afero.Afero {
	return backend
}

// SetOsFs restores the native filesystem backend
func SetOsFs() {
	backend = afero.Afero{Fs: afero.NewOsFs()}
}

// SetMemMapFs switches to a volatile in-memory backend
func SetMemMapFs() {
	backend = afero.Afero{Fs: afero.NewMemMapFs()}
}
