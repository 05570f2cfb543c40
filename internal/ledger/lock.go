package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

const (
	lockMaxRetries   = 10
	lockRetryDelay   = 100 * time.Millisecond
	lockStaleAfter   = 30 * time.Second
	ledgerDirPerm    = 0o750
	ledgerFilePerm   = 0o600
	lockFileSuffix   = ".lock"
	tempFileSuffix   = ".tmp"
	defaultLedgerDir = ".fluxi"
)

// acquireFileLock takes a cross-process advisory lock next to path so two
// CLI invocations never interleave a read-modify-write of the ledger.
// The returned function releases the lock.
func acquireFileLock(path string) (func(), error) {
	lockPath := path + lockFileSuffix

	if err := os.MkdirAll(filepath.Dir(lockPath), ledgerDirPerm); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	for range lockMaxRetries {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, ledgerFilePerm)
		if err == nil {
			_, _ = fmt.Fprintf(f, "%d", os.Getpid())
			_ = f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}

		if removeStaleLock(lockPath) {
			continue
		}
		time.Sleep(lockRetryDelay)
	}

	return nil, fmt.Errorf("could not acquire lock on %s after retries", lockPath)
}

// removeStaleLock removes a lock older than lockStaleAfter whose owner is gone.
// Returns true if the caller should retry immediately.
func removeStaleLock(lockPath string) bool {
	info, err := os.Stat(lockPath)
	if err != nil || time.Since(info.ModTime()) <= lockStaleAfter {
		return false
	}
	if lockOwnerAlive(lockPath) {
		return false
	}
	_ = os.Remove(lockPath)
	return true
}

// lockOwnerAlive reads the PID in a lock file and checks the process exists.
func lockOwnerAlive(lockPath string) bool {
	data, err := os.ReadFile(lockPath)
	if err != nil || len(data) == 0 {
		return false
	}
	var pid int
	if _, scanErr := fmt.Sscanf(string(data), "%d", &pid); scanErr != nil || pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 probes for existence without delivering anything.
	return proc.Signal(syscall.Signal(0)) == nil
}

// writeFileAtomic writes data to path through a temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), ledgerDirPerm); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}

	tmpPath := path + tempFileSuffix
	if err := os.WriteFile(tmpPath, data, ledgerFilePerm); err != nil {
		return fmt.Errorf("writing ledger temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming ledger temp file: %w", err)
	}
	return nil
}
