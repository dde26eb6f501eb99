package engine

import (
	"fmt"
	"strings"

	"github.com/coreos/go-semver/semver"
)

// RollForward is the version roll-forward policy a runtime config
// declares. It governs both which installed engine version resolution
// selects and whether an already-running engine satisfies a later
// request.
type RollForward int

const (
	// RollForwardMinor accepts the requested minor or any higher minor
	// within the same major. The default.
	RollForwardMinor RollForward = iota
	// RollForwardDisable requires the exact requested version.
	RollForwardDisable
	// RollForwardLatestPatch accepts only the requested major.minor,
	// at the requested patch or higher.
	RollForwardLatestPatch
	// RollForwardLatestMinor prefers the highest minor within the
	// requested major.
	RollForwardLatestMinor
	// RollForwardMajor accepts the requested major or any higher major.
	RollForwardMajor
	// RollForwardLatestMajor prefers the highest installed version.
	RollForwardLatestMajor
)

var rollForwardNames = map[RollForward]string{
	RollForwardMinor:       "minor",
	RollForwardDisable:     "disable",
	RollForwardLatestPatch: "latestPatch",
	RollForwardLatestMinor: "latestMinor",
	RollForwardMajor:       "major",
	RollForwardLatestMajor: "latestMajor",
}

func (r RollForward) String() string {
	if name, ok := rollForwardNames[r]; ok {
		return name
	}
	return fmt.Sprintf("rollForward(%d)", int(r))
}

// ParseRollForward parses a roll-forward policy name. Empty means the
// default. Matching is case-insensitive.
func ParseRollForward(s string) (RollForward, error) {
	if s == "" {
		return RollForwardMinor, nil
	}
	for policy, name := range rollForwardNames {
		if strings.EqualFold(name, s) {
			return policy, nil
		}
	}
	return RollForwardMinor, fmt.Errorf("unknown rollForward policy %q", s)
}

// Config is the engine configuration a policy library boots with.
// Version is the installed engine version resolution selected;
// Requested is what the runtime config asked for, kept for
// compatibility checks against a live engine.
type Config struct {
	Provider    string
	Version     semver.Version
	Requested   semver.Version
	RollForward RollForward
	Properties  map[string]string
}

// Satisfies reports whether an engine already running at version live
// satisfies this config's request under its roll-forward policy.
func (c Config) Satisfies(live semver.Version) bool {
	req := c.Requested
	switch c.RollForward {
	case RollForwardDisable:
		return sameVersion(live, req)
	case RollForwardLatestPatch:
		return live.Major == req.Major && live.Minor == req.Minor && live.Patch >= req.Patch
	case RollForwardMajor, RollForwardLatestMajor:
		return !live.LessThan(req)
	default: // minor, latestMinor
		return live.Major == req.Major && !live.LessThan(req)
	}
}

func sameVersion(a, b semver.Version) bool {
	return !a.LessThan(b) && !b.LessThan(a)
}
