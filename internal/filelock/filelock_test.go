package filelock

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
)

func TestNewFileLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "test.lock")

	lock := NewFileLock(lockPath)
	if lock == nil {
		t.Fatal("NewFileLock should not return nil")
	}
	if lock.Path() != lockPath {
		t.Errorf("Expected lock path %s, got %s", lockPath, lock.Path())
	}
}

func TestLockUnlock(t *testing.T) {
	lock := NewFileLock(filepath.Join(t.TempDir(), "test.lock"))

	if err := lock.Lock(); err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("Failed to release lock: %v", err)
	}
}

func TestAcquireRefusesSecondHolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	first, err := Acquire(dir, ".dicomsort.lock")
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	defer first.Unlock()

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("Acquire should create the directory: %v", err)
	}

	_, err = Acquire(dir, ".dicomsort.lock")
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	second, err := Acquire(dir, ".dicomsort.lock")
	if err != nil {
		t.Fatalf("Acquire after unlock failed: %v", err)
	}
	second.Unlock()
}

func TestReleaseRemovesLockFile(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir, ".dicomsort.lock")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(lock.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("lock file should be removed, stat returned %v", err)
	}

	again, err := Acquire(dir, ".dicomsort.lock")
	if err != nil {
		t.Fatalf("Acquire after Release failed: %v", err)
	}
	again.Release()
}

func TestAtomicWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "patterns.yaml")

	if err := AtomicWrite(path, []byte("first")); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}
	if err := AtomicWrite(path, []byte("second")); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("expected 'second', got %q", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if e.Name() != "patterns.yaml" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestWithLockSerializesReadModifyWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.txt")
	if err := os.WriteFile(path, []byte("0"), 0644); err != nil {
		t.Fatal(err)
	}

	const goroutines = 5
	const iterations = 10

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				err := WithLock(path, func() error {
					data, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					n, err := strconv.Atoi(string(data))
					if err != nil {
						return err
					}
					return AtomicWrite(path, []byte(strconv.Itoa(n+1)))
				})
				if err != nil {
					t.Errorf("WithLock: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	data, _ := os.ReadFile(path)
	if string(data) != strconv.Itoa(goroutines*iterations) {
		t.Errorf("expected %d, got %s", goroutines*iterations, data)
	}
}

func TestLockAndWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	if err := LockAndWrite(path, []byte("idis: x")); err != nil {
		t.Fatalf("LockAndWrite: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "idis: x" {
		t.Errorf("unexpected content %q", data)
	}
}
