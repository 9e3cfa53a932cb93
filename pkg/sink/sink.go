package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidName = errors.New("invalid artifact name")

// Sink is the destination of artifacts. Names are flat file names; a sink
// never exposes a partially written artifact under its final name.
type Sink interface {
	Exists(ctx context.Context, name string) (bool, error)
	Write(ctx context.Context, name string, data []byte) error
	String() string
}

// New returns an S3 sink for s3://bucket/prefix destinations and a local
// directory sink otherwise.
func New(dest, region string) (Sink, error) {
	if strings.HasPrefix(dest, "s3://") {
		return NewS3(dest, region)
	}
	return NewDir(dest)
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
