package scene

import (
	"fmt"
	"os"
	"sync"
)

// FailLog appends one line per scene failure to a plain text file so an
// operator can review what went wrong after a run. Writes are
// serialized because scenes are processed concurrently.
type FailLog struct {
	mu   sync.Mutex
	path string
}

// NewFailLog returns a failure log writing to path. An empty path
// disables the log; Record becomes a no-op.
func NewFailLog(path string) *FailLog {
	return &FailLog{path: path}
}

// Record appends a "Scene <id>: <message>" line. Logging must never
// break processing, so write errors are returned for the caller to log
// and ignore.
func (fl *FailLog) Record(sceneID, message string) error {
	if fl == nil || fl.path == "" {
		return nil
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()

	f, err := os.OpenFile(fl.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "Scene %s: %s\n", sceneID, message)
	return err
}
