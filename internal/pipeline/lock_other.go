//go:build !unix

package pipeline

import (
	"fmt"
	"os"
)

// acquireLock emulates an exclusive lock with an O_EXCL lock file on
// platforms without flock. A crashed run can leave the file behind; the
// error message names it so the operator can remove it.
func acquireLock(path string) (release func(), err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("output root is locked by another run; remove %s if that run is gone", path)
		}
		return nil, err
	}
	f.Close()
	return func() {
		os.Remove(path)
	}, nil
}
