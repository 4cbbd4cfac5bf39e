package mpu

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nimbusstore/gateway/internal/logger"
	"github.com/nimbusstore/gateway/internal/telemetry"
	"github.com/nimbusstore/gateway/pkg/gwerr"
	"github.com/nimbusstore/gateway/pkg/metadatastore"
)

// CreateRequest is the parsed input to Create.
type CreateRequest struct {
	Account    string
	TargetPath string
	TargetKey  string // metadata-tier key the eventual object record will occupy
	Headers    map[string]string

	// DeclaredSize and HasDeclaredSize mirror object.PutRequest's chunked-upload
	// handling: a missing declared size is always valid (§9 open question).
	DeclaredSize    int64
	HasDeclaredSize bool
	Copies          int
	Operator        bool
	Subuser         bool
}

// CreateResult describes the outcome of a successful Create.
type CreateResult struct {
	UploadID   string
	UploadPath string
	Record     UploadRecord
}

// Create runs MPU-create (§4.7): authorizes, mints an upload id, plans placement,
// ensures the upload's prefix directory exists, and persists the upload record.
func Create(ctx context.Context, app *Application, req CreateRequest) (CreateResult, error) {
	ctx, span := telemetry.StartMPUSpan(ctx, "create", "")
	defer span.End()

	// 1. authorize: subusers forbidden against the top-level uploads resource.
	if req.Subuser {
		return CreateResult{}, gwerr.NewUnauthorized("subusers may not create multipart uploads")
	}

	// 2. generate upload id; derive prefix directory length from configuration,
	// encoded in the id's last hex digit.
	prefixLen := app.Config.MultipartUpload.PrefixDirLen
	if prefixLen <= 0 {
		prefixLen = 1
	}
	uploadID := newUploadID(prefixLen)

	uploadPath := fmt.Sprintf("uploads/%s/%s/%s", req.Account, PrefixDir(uploadID, prefixLen), uploadID)

	// 3. normalize already done by caller (req.TargetPath/TargetKey supplied normalized).

	// 4. plan placement; zero-byte uploads carry an empty replica set. A missing
	// declared size is planned against the configured default cap, mirroring
	// object.Put's chunked-upload handling, since part bodies still need somewhere
	// to land regardless of whether the final total is known up front.
	copies := req.Copies
	if copies <= 0 {
		copies = 1
	}
	var replicaSet []string
	switch {
	case req.HasDeclaredSize && req.DeclaredSize > 0:
		candidates, err := app.Planner.Plan(ctx, req.DeclaredSize, copies, req.Operator)
		if err != nil {
			return CreateResult{}, err
		}
		replicaSet = candidates[0].IDs()
	case !req.HasDeclaredSize:
		planSize := app.Config.Storage.DefaultMaxStreamingSize.Int64()
		candidates, err := app.Planner.Plan(ctx, planSize, copies, req.Operator)
		if err != nil {
			return CreateResult{}, err
		}
		replicaSet = candidates[0].IDs()
	}

	// 5. ensure the prefix directory exists (logical bookkeeping only; the prefix
	// directory has no separate metadata record in this implementation, since the
	// upload record's own key already encodes the full sharded path).
	logger.DebugCtx(ctx, "mpu create", logger.Account(req.Account), logger.UploadID(uploadID))

	objectID := uuid.NewString()
	rec := UploadRecord{
		UploadID:        uploadID,
		State:           StateCreated,
		FinalizingType:  FinalizingNone,
		TargetPath:      req.TargetPath,
		UploadPath:      uploadPath,
		Headers:         normalizeUploadHeaders(req.Headers),
		ReplicaSet:      replicaSet,
		ObjectID:        objectID,
		DeclaredSize:    req.DeclaredSize,
		HasDeclaredSize: req.HasDeclaredSize,
		Owner:           req.Account,
		CreatedAtMs:     nowMillisMPU(),
	}

	// 6. persist the upload record.
	encoded, err := encodeUploadRecord(rec, uuid.NewString())
	if err != nil {
		return CreateResult{}, err
	}
	key := UploadKey(req.Account, uploadID)
	if err := app.Metadata.Put(ctx, key, encoded, metadatastore.CondIfAbsent()); err != nil {
		return CreateResult{}, err
	}

	return CreateResult{UploadID: uploadID, UploadPath: uploadPath, Record: rec}, nil
}

// newUploadID mints a fresh upload id with prefixLen encoded into its last hex digit.
func newUploadID(prefixLen int) string {
	id := uuid.NewString()
	return id[:len(id)-1] + fmt.Sprintf("%x", prefixLen%16)
}

func normalizeUploadHeaders(h map[string]string) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
