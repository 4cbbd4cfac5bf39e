package s3

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/stretchr/testify/require"

	"github.com/nimbusstore/gateway/pkg/placement"
)

// newTestShark spins up an in-memory fake S3 server and returns a Shark wired
// to it, with its shark-1 bucket already created.
func newTestShark(t *testing.T) (*Shark, func()) {
	t.Helper()

	backend := s3mem.New()
	faker := gofakes3.New(backend)
	srv := httptest.NewServer(faker.Server())

	cfg := Config{
		Endpoint:        srv.URL,
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		ForcePathStyle:  true,
		BucketPrefix:    "shark",
		KeyPrefix:       "objects",
		PartSize:        minPartSize,
	}
	client, err := NewS3ClientFromConfig(context.Background(), cfg)
	require.NoError(t, err)

	shark := NewShark(client, cfg)

	_, err = client.CreateBucket(context.Background(), &awss3.CreateBucketInput{
		Bucket: aws.String(shark.bucketFor("shark-1")),
	})
	require.NoError(t, err)

	return shark, srv.Close
}

func testNode() placement.Node {
	return placement.Node{ID: "shark-1"}
}

func TestVerifyBucketSucceedsForExistingBucket(t *testing.T) {
	shark, closeFn := newTestShark(t)
	defer closeFn()

	require.NoError(t, shark.VerifyBucket(context.Background(), "shark-1"))
}

func TestCheckHealthReflectsBucketReachability(t *testing.T) {
	shark, closeFn := newTestShark(t)
	defer closeFn()

	updated, err := shark.CheckHealth(context.Background(), testNode())
	require.NoError(t, err)
	require.Equal(t, placement.CircuitClosed, updated.Circuit)

	_, err = shark.CheckHealth(context.Background(), placement.Node{ID: "missing"})
	require.Error(t, err)
}

func TestOpenWriteCloseIsReadableAtCanonicalKey(t *testing.T) {
	shark, closeFn := newTestShark(t)
	defer closeFn()

	ctx := context.Background()
	node := testNode()
	payload := []byte("hello from a solo whole-object write")

	stream, err := shark.Open(ctx, node, "obj-solo", int64(len(payload)))
	require.NoError(t, err)
	n, err := stream.Write(payload)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	digest, err := stream.Close()
	require.NoError(t, err)
	require.NotEmpty(t, digest)

	body, err := NewReader(shark).Open(ctx, node, "obj-solo", 0, int64(len(payload)-1))
	require.NoError(t, err)
	defer body.Close()
	got, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestFinalizeSinglePartPromotesToCanonicalKey(t *testing.T) {
	shark, closeFn := newTestShark(t)
	defer closeFn()

	ctx := context.Background()
	node := testNode()
	payload := []byte("a single mpu part")

	stream, err := shark.Open(ctx, node, "obj-mpu-one", int64(len(payload)))
	require.NoError(t, err)
	_, err = stream.Write(payload)
	require.NoError(t, err)
	digest, err := stream.Close()
	require.NoError(t, err)

	finalDigest, err := shark.Finalize(ctx, node, "upload-one", "acct", "obj-mpu-one", int64(len(payload)), []string{digest})
	require.NoError(t, err)
	require.NotEmpty(t, finalDigest)

	body, err := NewReader(shark).Open(ctx, node, "obj-mpu-one", 0, int64(len(payload)-1))
	require.NoError(t, err)
	defer body.Close()
	got, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestFinalizeMultiPartAssemblesInOrder(t *testing.T) {
	shark, closeFn := newTestShark(t)
	defer closeFn()

	ctx := context.Background()
	node := testNode()

	part1 := bytes.Repeat([]byte("a"), minPartSize)
	part2 := []byte("tail-bytes-shorter-than-minimum")

	digests := make([]string, 0, 2)
	for _, part := range [][]byte{part1, part2} {
		stream, err := shark.Open(ctx, node, "obj-mpu-two", int64(len(part)))
		require.NoError(t, err)
		_, err = stream.Write(part)
		require.NoError(t, err)
		digest, err := stream.Close()
		require.NoError(t, err)
		digests = append(digests, digest)
	}

	total := int64(len(part1) + len(part2))
	finalDigest, err := shark.Finalize(ctx, node, "upload-two", "acct", "obj-mpu-two", total, digests)
	require.NoError(t, err)
	require.NotEmpty(t, finalDigest)

	body, err := NewReader(shark).Open(ctx, node, "obj-mpu-two", 0, total-1)
	require.NoError(t, err)
	defer body.Close()
	got, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, append(append([]byte{}, part1...), part2...), got)
}

func TestFinalizeUnknownDigestFails(t *testing.T) {
	shark, closeFn := newTestShark(t)
	defer closeFn()

	_, err := shark.Finalize(context.Background(), testNode(), "upload-missing", "acct", "obj-missing", 10, []string{"does-not-exist"})
	require.Error(t, err)
}
