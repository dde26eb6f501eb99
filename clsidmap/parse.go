package clsidmap

import (
	"bytes"
	"encoding/json"
	"io"

	comhost "github.com/hostware/comhost"
	"github.com/hostware/comhost/errors"
)

type entryJSON struct {
	Assembly string `json:"assembly"`
	Type     string `json:"type"`
	ProgID   string `json:"progid"`
}

// Parse decodes a manifest document. The path is carried into errors
// only. Parsing is strict where it matters for identity: the document
// must be a single JSON object, every key must be a well-formed GUID,
// and two keys that normalize to the same GUID are a duplicate even
// when their spellings differ.
func Parse(data []byte, path string) (*Manifest, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, errors.ManifestParse(path, "not a JSON document", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.ManifestParse(path, "top-level value must be an object", nil)
	}

	entries := make(map[comhost.CLSID]Entry)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, errors.ManifestParse(path, "malformed object key", err)
		}
		key, _ := keyTok.(string)

		clsid, err := comhost.ParseGUID(key)
		if err != nil {
			return nil, errors.New(errors.OpManifest, errors.KindManifestParse).
				Path(path).
				Detail("malformed CLSID key %q", key).
				Cause(err).
				Build()
		}

		var raw entryJSON
		if err := dec.Decode(&raw); err != nil {
			return nil, errors.New(errors.OpManifest, errors.KindManifestParse).
				Path(path).
				Class(clsid.String()).
				Detail("malformed entry").
				Cause(err).
				Build()
		}
		if raw.Assembly == "" {
			return nil, parseFieldMissing(path, clsid, "assembly")
		}
		if raw.Type == "" {
			return nil, parseFieldMissing(path, clsid, "type")
		}

		if _, dup := entries[clsid]; dup {
			return nil, errors.New(errors.OpManifest, errors.KindManifestParse).
				Path(path).
				Class(clsid.String()).
				Detail("duplicate key %q", key).
				Build()
		}
		entries[clsid] = Entry{
			CLSID:    clsid,
			Assembly: raw.Assembly,
			Type:     raw.Type,
			ProgID:   raw.ProgID,
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, errors.ManifestParse(path, "unterminated manifest object", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.ManifestParse(path, "trailing data after manifest object", nil)
	}

	return &Manifest{entries: entries, path: path}, nil
}

func parseFieldMissing(path string, clsid comhost.CLSID, field string) *errors.Error {
	return errors.New(errors.OpManifest, errors.KindManifestParse).
		Path(path).
		Class(clsid.String()).
		Detail("entry missing required field %q", field).
		Build()
}
