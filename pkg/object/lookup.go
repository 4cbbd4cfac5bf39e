package object

import (
	"context"
	"strings"
	"time"

	"github.com/nimbusstore/gateway/pkg/gwerr"
)

type existingKind int

const (
	existingNone existingKind = iota
	existingObject
	existingDirectory
)

// existingEntry describes whatever currently occupies a path: nothing, an object,
// or a directory. Object and directory keys live in disjoint namespaces, so at most
// one of obj/dir is populated.
type existingEntry struct {
	kind    existingKind
	etag    string
	modTime time.Time
	obj     ObjectRecord
	dir     DirectoryRecord
}

func (e existingEntry) exists() bool { return e.kind != existingNone }

// loadExisting looks up whatever record (object or directory) currently lives at
// path. Directories and objects occupy disjoint key namespaces so both lookups are
// attempted; a directory hit takes priority since a path cannot be both.
func loadExisting(ctx context.Context, app *Application, account, path string) (existingEntry, error) {
	dirKey := DirectoryKey(account, path)
	dirRec, err := app.Metadata.Get(ctx, dirKey)
	switch {
	case err == nil:
		dir, decodeErr := decodeDirectoryRecord(dirRec)
		if decodeErr != nil {
			return existingEntry{}, decodeErr
		}
		return existingEntry{
			kind:    existingDirectory,
			etag:    dirRec.Etag,
			modTime: millisToTime(dir.ModifiedAtMs),
			dir:     dir,
		}, nil
	case gwerr.IsNotFound(err):
		// fall through to the object lookup
	default:
		return existingEntry{}, err
	}

	objKey := ObjectKey(account, path)
	objRec, err := app.Metadata.Get(ctx, objKey)
	switch {
	case err == nil:
		obj, decodeErr := DecodeObjectRecord(objRec)
		if decodeErr != nil {
			return existingEntry{}, decodeErr
		}
		return existingEntry{
			kind:    existingObject,
			etag:    objRec.Etag,
			modTime: millisToTime(obj.ModifiedAtMs),
			obj:     obj,
		}, nil
	case gwerr.IsNotFound(err):
		return existingEntry{kind: existingNone}, nil
	default:
		return existingEntry{}, err
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func millisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func normalizeHeaders(h map[string]string) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[strings.ToLower(k)] = v
	}
	return out
}

func normalizeCopies(requested, maxCopies int) int {
	if maxCopies <= 0 {
		maxCopies = 9
	}
	if requested <= 0 {
		return 1
	}
	if requested > maxCopies {
		return maxCopies
	}
	return requested
}

func accountInList(accounts []string, account string) bool {
	for _, a := range accounts {
		if a == account {
			return true
		}
	}
	return false
}
