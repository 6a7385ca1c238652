// Package snapshot persists named byte snapshots. The reference server
// uses it to keep its documents across restarts.
package snapshot

import (
	"context"
	"errors"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	coded "github.com/vango-dev/bindsync/internal/errors"
)

// ErrNotFound is returned by Load when nothing was saved under a name.
var ErrNotFound = errors.New("snapshot: not found")

// Store saves and loads snapshots by name.
type Store interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
	Close() error
}

// Options selects and configures a store for Open.
type Options struct {
	// Kind is memory, bolt or s3.
	Kind string
	// Path is the bolt database file.
	Path string
	// Bucket and Prefix locate S3 objects.
	Bucket string
	Prefix string
	// Region overrides the region from the default AWS configuration.
	Region string
}

// Open creates the store named by opts.Kind. S3 credentials come from the
// default AWS configuration chain.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "bolt":
		return OpenBolt(opts.Path)
	case "s3":
		var loadOpts []func(*awsconfig.LoadOptions) error
		if opts.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, coded.New("S002").WithOp("s3").Wrap(err)
		}
		return NewS3Store(s3.NewFromConfig(cfg), opts.Bucket, opts.Prefix), nil
	default:
		return nil, coded.New("S003").WithOp(opts.Kind)
	}
}

func storeErr(op string, err error) error {
	return coded.New("S002").WithOp(op).Wrap(err)
}
