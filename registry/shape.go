package registry

import (
	"context"
	"strings"

	"go.uber.org/zap"

	comhost "github.com/hostware/comhost"
	"github.com/hostware/comhost/clsidmap"
	"github.com/hostware/comhost/errors"
)

const (
	clsidRoot      = "CLSID"
	inprocServer32 = "InprocServer32"
	threadingModel = "Both"
)

// ClassKey returns the hive key of one class registration.
func ClassKey(clsid comhost.CLSID) string {
	return clsidRoot + Separator + clsid.String()
}

// Install writes the in-proc server shape for the given manifest
// entries. shimPath becomes the server path in every InprocServer32
// key. A failure stops at the failing entry; registration is not
// transactional, matching self-registration semantics, and a repeated
// Install overwrites cleanly.
func Install(ctx context.Context, s Store, shimPath string, entries ...clsidmap.Entry) error {
	if shimPath == "" {
		return errors.New(errors.OpRegister, errors.KindRegistration).
			Detail("server path is empty").
			Build()
	}
	for _, e := range entries {
		if err := installEntry(ctx, s, shimPath, e); err != nil {
			return err
		}
	}
	return nil
}

func installEntry(ctx context.Context, s Store, shimPath string, e clsidmap.Entry) error {
	key := ClassKey(e.CLSID)
	values := []Value{
		{Key: key, Name: "", Data: e.Type},
		{Key: key + Separator + inprocServer32, Name: "", Data: shimPath},
		{Key: key + Separator + inprocServer32, Name: "ThreadingModel", Data: threadingModel},
	}
	if e.ProgID != "" {
		values = append(values,
			Value{Key: key + Separator + "ProgID", Name: "", Data: e.ProgID},
			Value{Key: e.ProgID, Name: "", Data: e.Type},
			Value{Key: e.ProgID + Separator + clsidRoot, Name: "", Data: e.CLSID.String()},
		)
	}

	for _, v := range values {
		if err := s.Set(ctx, v.Key, v.Name, v.Data); err != nil {
			return errors.New(errors.OpRegister, errors.KindRegistration).
				Class(e.CLSID.String()).
				Path(v.Key).
				Detail("writing registration value").
				Cause(err).
				Build()
		}
	}

	Logger().Info("class registered",
		zap.String("clsid", e.CLSID.String()),
		zap.String("server", shimPath),
		zap.String("progid", e.ProgID))
	return nil
}

// Remove deletes the registration shape for the given manifest
// entries. Absent keys are ignored, so Remove after a partial or
// repeated Install is safe.
func Remove(ctx context.Context, s Store, entries ...clsidmap.Entry) error {
	for _, e := range entries {
		keys := []string{ClassKey(e.CLSID)}
		if e.ProgID != "" {
			keys = append(keys, e.ProgID)
		}
		for _, key := range keys {
			if err := s.DeleteKey(ctx, key); err != nil {
				return errors.New(errors.OpRegister, errors.KindRegistration).
					Class(e.CLSID.String()).
					Path(key).
					Detail("removing registration key").
					Cause(err).
					Build()
			}
		}
		Logger().Info("class unregistered",
			zap.String("clsid", e.CLSID.String()))
	}
	return nil
}

// InstalledClasses lists the CLSIDs registered in a hive, sorted by
// braced form.
func InstalledClasses(ctx context.Context, s Store) ([]comhost.CLSID, error) {
	keys, err := s.Keys(ctx, clsidRoot+Separator)
	if err != nil {
		return nil, errors.New(errors.OpRegister, errors.KindRegistration).
			Detail("listing registered classes").
			Cause(err).
			Build()
	}

	var out []comhost.CLSID
	for _, key := range keys {
		rest := strings.TrimPrefix(key, clsidRoot+Separator)
		if strings.Contains(rest, Separator) {
			continue // subkey of a class, not a class
		}
		clsid, err := comhost.ParseGUID(rest)
		if err != nil {
			continue
		}
		out = append(out, clsid)
	}
	return out, nil
}

// ServerPath reads the registered in-proc server path for a class.
func ServerPath(ctx context.Context, s Store, clsid comhost.CLSID) (string, bool, error) {
	return s.Get(ctx, ClassKey(clsid)+Separator+inprocServer32, "")
}
