package mpu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListUploadsReturnsOnlyMatchingAccount(t *testing.T) {
	app := testApp(t, "")
	ctx := context.Background()

	_, err := Create(ctx, app, CreateRequest{Account: "acct-a", TargetPath: "f1", DeclaredSize: 1, HasDeclaredSize: true})
	require.NoError(t, err)
	_, err = Create(ctx, app, CreateRequest{Account: "acct-a", TargetPath: "f2", DeclaredSize: 1, HasDeclaredSize: true})
	require.NoError(t, err)
	_, err = Create(ctx, app, CreateRequest{Account: "acct-b", TargetPath: "f3", DeclaredSize: 1, HasDeclaredSize: true})
	require.NoError(t, err)

	results, err := ListUploads(ctx, app, ListRequest{Account: "acct-a"})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, StateCreated, r.State)
	}
}

func TestListUploadsEmptyAccount(t *testing.T) {
	app := testApp(t, "")
	ctx := context.Background()

	results, err := ListUploads(ctx, app, ListRequest{Account: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, results)
}
