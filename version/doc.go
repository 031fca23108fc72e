// Package version reports build information for the parbuild binary.
//
// Version, commit and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/parbuild/version.Version=v0.3.0 \
//	    -X github.com/kbukum/parbuild/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/parbuild
//
// Values not set through ldflags fall back to the VCS stamps in
// runtime/debug.BuildInfo.
package version
