// Package datasource defines where pipeline input comes from.
package datasource

import (
	"context"
	"io"
)

// Source opens the input for one run. Each call starts from the beginning.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// Name identifies the input in logs.
	Name() string
}

// Sizer is implemented by sources that know their length up front.
type Sizer interface {
	Size() (int64, error)
}
