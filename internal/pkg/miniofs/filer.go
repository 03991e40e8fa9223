package miniofs

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Options is minio connection configuration
type Options struct {
	URL    string
	User   string
	Key    string
	Bucket string
	SSL    bool
}

// Filer saves and loads objects in a minio bucket
type Filer struct {
	client *minio.Client
	opts   Options
}

// NewFiler creates minio backed file storage
func NewFiler(ctx context.Context, opts Options) (*Filer, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("no URL")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("no bucket")
	}
	cl, err := minio.New(opts.URL, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.User, opts.Key, ""),
		Secure: opts.SSL,
	})
	if err != nil {
		return nil, fmt.Errorf("can't init minio client: %w", err)
	}
	res := &Filer{client: cl, opts: opts}
	ctxInt, cf := context.WithTimeout(ctx, time.Second*30)
	defer cf()
	exists, err := cl.BucketExists(ctxInt, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("can't check bucket: %w", err)
	}
	if !exists {
		if err := cl.MakeBucket(ctxInt, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("can't create bucket '%s': %w", opts.Bucket, err)
		}
		goapp.Log.Info().Str("bucket", opts.Bucket).Msg("created bucket")
	}
	return res, nil
}

// SaveFile stores an object
func (f *Filer) SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error {
	goapp.Log.Info().Str("name", name).Int64("size", fileSize).Msg("save file")
	_, err := f.client.PutObject(ctx, f.opts.Bucket, name, r, fileSize,
		minio.PutObjectOptions{ContentType: contentTypeByExt(name)})
	if err != nil {
		return fmt.Errorf("can't save '%s': %w", name, err)
	}
	return nil
}

// LoadFile returns an object reader
func (f *Filer) LoadFile(ctx context.Context, name string) (io.ReadSeekCloser, error) {
	goapp.Log.Info().Str("name", name).Msg("load file")
	obj, err := f.client.GetObject(ctx, f.opts.Bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("can't load '%s': %w", name, err)
	}
	// force a stat so a missing object fails here, not on first read
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, fmt.Errorf("can't load '%s': %w", name, err)
	}
	return obj, nil
}

// Remove deletes an object
func (f *Filer) Remove(ctx context.Context, name string) error {
	goapp.Log.Info().Str("name", name).Msg("remove file")
	if err := f.client.RemoveObject(ctx, f.opts.Bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("can't remove '%s': %w", name, err)
	}
	return nil
}

// PublicURL returns a retrievable URL for an object
func (f *Filer) PublicURL(name string) string {
	scheme := "http"
	if f.opts.SSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, f.opts.URL, f.opts.Bucket, name)
}

func contentTypeByExt(name string) string {
	res := mime.TypeByExtension(filepath.Ext(name))
	if res == "" {
		return "application/octet-stream"
	}
	return res
}
