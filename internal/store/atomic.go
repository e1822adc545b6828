package store

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Retry policy for transient I/O: 100ms initial interval, doubling, at
// most 3 attempts. Missing files and parse errors are permanent.
const (
	retryInitialInterval = 100 * time.Millisecond
	retryMultiplier      = 2.0
	retryMaxAttempts     = 3
)

// retryIO runs op with the store retry policy.
func retryIO[T any](ctx context.Context, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.Multiplier = retryMultiplier
	return backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(retryMaxAttempts))
}

// writeFileAtomic writes data to path via a temp file in the same
// directory, fsynced and renamed over the target. A crash at any point
// leaves either the old content or the new content, never a partial
// file. The temp file is removed on every failure path.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-")
	if err != nil {
		return fmt.Errorf("%w: create temp in %s: %v", ErrIO, dir, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrIO, tmpName, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %v", ErrIO, tmpName, err)
	}
	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", ErrIO, tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrIO, tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename %s: %v", ErrIO, path, err)
	}
	return nil
}
