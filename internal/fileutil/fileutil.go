package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to a temp file beside path, syncs it, and
// renames it into place so readers never see a partial file. Parent
// directories are created as needed.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := fillAndClose(tmp, bytes.NewReader(data), mode); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func fillAndClose(f *os.File, r io.Reader, mode os.FileMode) error {
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	return f.Close()
}

// CopyFileVerified copies src to dst with SHA256 and size verification. The
// copy lands in a temp file first, so dst is either the complete verified
// copy or untouched.
func CopyFileVerified(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = os.Remove(tmpPath)
		return err
	}

	srcHash := sha256.New()
	if err := fillAndClose(tmp, io.TeeReader(in, srcHash), info.Mode().Perm()); err != nil {
		return fail(err)
	}

	copied, err := os.Open(tmpPath)
	if err != nil {
		return fail(err)
	}
	dstHash := sha256.New()
	written, err := io.Copy(dstHash, copied)
	_ = copied.Close()
	if err != nil {
		return fail(fmt.Errorf("verify copy: %w", err))
	}
	if written != info.Size() {
		return fail(fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written))
	}
	if !bytes.Equal(srcHash.Sum(nil), dstHash.Sum(nil)) {
		return fail(fmt.Errorf("copy hash mismatch: file changed or corrupted during copy"))
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fail(fmt.Errorf("rename temp file: %w", err))
	}
	return nil
}
