// Package version holds the build-time identity of the outpack-server
// binary: its module path, released version, and VCS revision. The
// version and revision vars are meant to be overridden at build time via
// -ldflags "-X .../internal/version.version=... -X .../internal/version.revision=...".
package version

import (
	"fmt"
	"io"
	"os"
)

// mainpkg is the canonical module path this binary is built from.
var mainpkg = "github.com/mrc-ide/outpack-server"

// version is the released version, suffixed "+unknown" until overridden
// by a real build.
var version = "v0.0.0+unknown"

// revision is the VCS revision the binary was built from, if known.
var revision = ""

// Package returns the module path the running binary was built from.
func Package() string {
	return mainpkg
}

// Version returns the module version the running binary was built from.
func Version() string {
	return version
}

// Revision returns the VCS revision the running binary was built from,
// or the empty string if it was not set at link time.
func Revision() string {
	return revision
}

// FprintVersion writes a single line identifying cmd, Package and
// Version to w, followed by the revision if known.
func FprintVersion(w io.Writer, cmd string) {
	fmt.Fprintf(w, "%s %s %s", cmd, Package(), Version())
	if revision != "" {
		fmt.Fprintf(w, " (%s)", revision)
	}
	fmt.Fprintln(w)
}

// PrintVersion writes FprintVersion's output to stdout, using os.Args[0]
// as the command name.
func PrintVersion() {
	FprintVersion(os.Stdout, os.Args[0])
}
