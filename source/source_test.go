package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	bucket, key string
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket, f.key = *params.Bucket, *params.Key
	if f.key == "missing.csv" {
		return nil, fmt.Errorf("no such key")
	}

	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("a,b\n1,2\n"))}, nil
}

func TestSplitS3(t *testing.T) {
	b, k, e := SplitS3("s3://bucket/dir/cps.csv")
	assert.Nil(t, e)
	assert.Equal(t, "bucket", b)
	assert.Equal(t, "dir/cps.csv", k)

	for _, bad := range []string{"s3://bucket", "s3://bucket/", "s3:///key"} {
		_, _, e = SplitS3(bad)
		assert.NotNil(t, e, bad)
	}
}

func TestOpener_S3(t *testing.T) {
	fake := &fakeS3{}
	o := &Opener{S3: fake}
	rc, e := o.Open(context.Background(), "s3://data/asec/2023.csv")
	require.Nil(t, e)
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "a,b\n1,2\n", string(b))
	assert.Equal(t, "data", fake.bucket)
	assert.Equal(t, "asec/2023.csv", fake.key)

	_, e = o.Open(context.Background(), "s3://data/missing.csv")
	assert.NotNil(t, e)
}

func TestOpener_Local(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "x.csv")
	require.Nil(t, os.WriteFile(fn, []byte("x\n1\n"), 0o600))
	rc, e := Open(context.Background(), fn)
	require.Nil(t, e)
	defer func() { _ = rc.Close() }()
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "x\n1\n", string(b))

	_, e = Open(context.Background(), filepath.Join(t.TempDir(), "none.csv"))
	assert.NotNil(t, e)
}
