// Package version reports the build version of a streamop pipeline binary.
//
// Set Version at build time:
//
//	go build -ldflags "-X github.com/kbukum/streamop/version.Version=1.4.0"
//
// The commit and dirty flag are read from the Go build info when available.
package version
