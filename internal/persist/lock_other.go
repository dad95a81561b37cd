//go:build !unix && !windows

package persist

import (
	"os"
	"sync"
)

// Without flock the lock only serializes writers inside this process.
var fileMu sync.Mutex

func lockFile(*os.File) error {
	fileMu.Lock()
	return nil
}

func unlockFile(*os.File) error {
	fileMu.Unlock()
	return nil
}
