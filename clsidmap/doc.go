// Package clsidmap discovers and parses the class manifest that ships
// with a shim binary.
//
// The manifest is a single JSON object mapping braced CLSIDs to the
// managed class that services them:
//
//	{
//	  "{DA39A3EE-5E6B-5B0D-B255-BFEF95601890}": {
//	    "assembly": "Server",
//	    "type": "Server.Widget",
//	    "progid": "Server.Widget.1"
//	  }
//	}
//
// Discovery prefers a manifest embedded in the shim binary (either an
// explicitly injected payload or a trailer record appended to the
// binary) over the on-disk sibling <shim-without-extension>.clsidmap.
// A signed shim with no embedded manifest refuses the disk fallback
// outright; tampering with a sibling file must not redirect activation
// for signed binaries.
//
// Keys are normalized during parsing, so lookups are case-insensitive
// and duplicate keys are rejected no matter how they are spelled.
package clsidmap
