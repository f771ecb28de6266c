package quickinstall

import (
	"fmt"
	"strings"
)

// Request is a crate as asked for on the command line.
// An empty Version means the latest stable release.
type Request struct {
	Crate   string
	Version string
}

// ParseRequest parses `name` or `name@version`.
func ParseRequest(spec string) (Request, error) {
	name, version, pinned := strings.Cut(spec, "@")
	if name == "" || (pinned && version == "") || strings.Contains(version, "@") {
		return Request{}, fmt.Errorf("invalid crate %q, expected CRATE or CRATE@VERSION", spec)
	}
	return Request{Crate: name, Version: version}, nil
}

func (r Request) String() string {
	if r.Version == "" {
		return r.Crate
	}
	return r.Crate + "@" + r.Version
}

// Target is a fully resolved installation: every url and command of an
// install attempt is derived from it. Passed by value, never modified.
type Target struct {
	Crate   string
	Version string
	Triple  string
}

func (t Target) String() string {
	return fmt.Sprintf("%s@%s for %s", t.Crate, t.Version, t.Triple)
}
