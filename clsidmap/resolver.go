package clsidmap

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hostware/comhost/errors"
)

// Options adjusts manifest discovery for one shim.
type Options struct {
	// Embedded injects a manifest payload directly, the go:embed route
	// for hosts built from source. Takes precedence over trailer
	// records.
	Embedded []byte

	// Signed overrides signature detection. When nil, the shim counts
	// as signed if it carries a signature trailer record or a .sig
	// sibling file.
	Signed *bool
}

// DiskPath derives the on-disk manifest sibling for a shim binary:
// the shim path with its last extension replaced by .clsidmap.
func DiskPath(shimPath string) string {
	return strings.TrimSuffix(shimPath, filepath.Ext(shimPath)) + ".clsidmap"
}

// SignaturePath derives the detached signature sibling for a shim
// binary.
func SignaturePath(shimPath string) string {
	return shimPath + ".sig"
}

// Resolve discovers and parses the manifest for the shim at shimPath.
//
// Precedence: an injected payload, then a trailer record in the binary,
// then the disk sibling. Signed shims never fall back to disk; a signed
// shim without an embedded manifest fails with a signed-fallback-denied
// error even when a disk sibling exists.
func Resolve(shimPath string, opts Options) (*Manifest, error) {
	var records map[string][]byte
	if opts.Embedded == nil || opts.Signed == nil {
		// The shim binary may not be readable as a file (unit tests,
		// unusual embedding); that simply means no trailer.
		records, _ = Records(shimPath)
	}

	embedded := opts.Embedded
	if embedded == nil {
		embedded = records[MagicManifest]
	}

	signed := false
	if opts.Signed != nil {
		signed = *opts.Signed
	} else if _, ok := records[MagicSignature]; ok {
		signed = true
	} else if _, err := os.Stat(SignaturePath(shimPath)); err == nil {
		signed = true
	}

	if embedded != nil {
		m, err := Parse(embedded, shimPath)
		if err != nil {
			return nil, err
		}
		m.src = SourceEmbedded
		m.signed = signed
		return m, nil
	}

	if signed {
		return nil, errors.SignedFallbackDenied(shimPath)
	}

	diskPath := DiskPath(shimPath)
	data, err := os.ReadFile(diskPath)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.ManifestNotFound(diskPath)
		}
		return nil, errors.ManifestParse(diskPath, "read manifest", err)
	}

	m, err := Parse(data, diskPath)
	if err != nil {
		return nil, err
	}
	m.src = SourceDisk
	return m, nil
}
