//go:build !unix

package ledger

import "os"

// lockPath only creates the lock file; cross-process locking is unix-only
func lockPath(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return func() { f.Close() }, nil
}
