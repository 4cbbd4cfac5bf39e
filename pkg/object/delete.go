package object

import (
	"context"
	"log/slog"

	"github.com/nimbusstore/gateway/internal/logger"
	"github.com/nimbusstore/gateway/internal/telemetry"
	"github.com/nimbusstore/gateway/pkg/gwerr"
	"github.com/nimbusstore/gateway/pkg/metadatastore"
)

// DeleteRequest is the parsed input to Delete.
type DeleteRequest struct {
	Account string
	Path    string
}

// Delete removes the object or directory at path (§4.6). Directories require zero
// child entries; objects are removed unconditionally, since orphaned replica bytes
// are reclaimed by an external sweeper (outside this core's scope).
func Delete(ctx context.Context, app *Application, req DeleteRequest) error {
	path := normalizePath(req.Path)
	ctx, span := telemetry.StartObjectSpan(ctx, "object.delete", req.Account, path)
	defer span.End()

	existing, err := loadExisting(ctx, app, req.Account, path)
	if err != nil {
		return err
	}
	if !existing.exists() {
		return gwerr.NewResourceNotFound(path)
	}

	if existing.kind == existingDirectory {
		empty, err := directoryIsEmpty(ctx, app, req.Account, path)
		if err != nil {
			return err
		}
		if !empty {
			return gwerr.New(gwerr.Conflict, "directory is not empty")
		}
		return app.Metadata.Del(ctx, DirectoryKey(req.Account, path), metadatastore.Cond())
	}

	// The snaplinks-disabled hint has no defined effect in this core; it is surfaced
	// opaquely as a log attribute rather than threaded through the metadata client
	// contract, since no backend here implements snaplink semantics.
	snaplinksDisabled := accountInList(app.Config.AccountsSnaplinksDisabled, req.Account)
	logger.DebugCtx(ctx, "object delete", logger.Account(req.Account), logger.Path(path),
		slog.Bool("snaplinks_disabled", snaplinksDisabled))

	return app.Metadata.Del(ctx, ObjectKey(req.Account, path), metadatastore.Cond())
}

// directoryIsEmpty reports whether path has zero object or directory children,
// via a bounded prefix scan rather than a full listing.
func directoryIsEmpty(ctx context.Context, app *Application, account, path string) (bool, error) {
	prefixes := []string{
		ObjectKey(account, path) + "/",
		DirectoryKey(account, path) + "/",
	}
	for _, prefix := range prefixes {
		n, err := app.Metadata.CountPrefix(ctx, prefix, 1)
		if err != nil {
			return false, err
		}
		if n > 0 {
			return false, nil
		}
	}
	return true, nil
}
