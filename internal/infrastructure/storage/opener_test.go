package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		raw     string
		want    Location
		wantErr bool
	}{
		{raw: "data/po.tsv", want: Location{Raw: "data/po.tsv", Path: "data/po.tsv"}},
		{raw: " /tmp/po.xlsx ", want: Location{Raw: "/tmp/po.xlsx", Path: "/tmp/po.xlsx"}},
		{raw: "s3://imports/2025/po.tsv", want: Location{Raw: "s3://imports/2025/po.tsv", Bucket: "imports", Key: "2025/po.tsv"}},
		{raw: "S3://imports/po.tsv", want: Location{Raw: "S3://imports/po.tsv", Bucket: "imports", Key: "po.tsv"}},
		{raw: "s3://imports/", wantErr: true},
		{raw: "s3:///po.tsv", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseLocation(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocation_Name(t *testing.T) {
	obj, err := ParseLocation("s3://imports/2025/jan/po.xlsx")
	require.NoError(t, err)
	assert.True(t, obj.IsObject())
	assert.Equal(t, "po.xlsx", obj.Name())

	local, err := ParseLocation("po.tsv")
	require.NoError(t, err)
	assert.False(t, local.IsObject())
	assert.Equal(t, "po.tsv", local.Name())
}

type fakeObjects struct {
	data map[string]string
}

func (f *fakeObjects) Open(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.data[bucket+"/"+key])), nil
}

func (f *fakeObjects) ObjectExists(_ context.Context, bucket, key string) (bool, error) {
	_, ok := f.data[bucket+"/"+key]
	return ok, nil
}

func TestOpener_Local(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	file := filepath.Join(dir, "po.tsv")
	require.NoError(t, os.WriteFile(file, []byte("PO No.\n"), 0o644))
	o := NewOpener(nil)

	ok, err := o.Exists(ctx, Location{Path: file})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = o.Exists(ctx, Location{Path: filepath.Join(dir, "missing.tsv")})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = o.Exists(ctx, Location{Path: dir})
	assert.ErrorContains(t, err, "is a directory")

	rc, err := o.Open(ctx, Location{Path: file})
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "PO No.\n", string(data))
}

func TestOpener_Object(t *testing.T) {
	ctx := context.Background()
	loc := Location{Bucket: "imports", Key: "po.tsv"}

	t.Run("delegates to object storage", func(t *testing.T) {
		o := NewOpener(&fakeObjects{data: map[string]string{"imports/po.tsv": "rows"}})
		ok, err := o.Exists(ctx, loc)
		require.NoError(t, err)
		assert.True(t, ok)

		rc, err := o.Open(ctx, loc)
		require.NoError(t, err)
		data, _ := io.ReadAll(rc)
		assert.Equal(t, "rows", string(data))
	})

	t.Run("without object storage", func(t *testing.T) {
		o := NewOpener(nil)
		_, err := o.Exists(ctx, loc)
		assert.ErrorIs(t, err, errObjectStorageDisabled)
		_, err = o.Open(ctx, loc)
		assert.ErrorIs(t, err, errObjectStorageDisabled)
	})
}
