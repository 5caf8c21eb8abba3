package transfer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// linkFunc is swapped in tests to simulate EXDEV and filesystems without
// hard links.
var linkFunc = os.Link

type NativeTransferer struct {
	bufferSize int
}

func NewNativeTransferer(bufferSize int) *NativeTransferer {
	if bufferSize <= 0 {
		bufferSize = 4 * 1024 * 1024
	}
	return &NativeTransferer{bufferSize: bufferSize}
}

func (n *NativeTransferer) Name() string {
	return "native"
}

func (n *NativeTransferer) Move(src, dst string, opts TransferOptions) (*TransferResult, error) {
	start := time.Now()
	result := &TransferResult{}

	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return result, fmt.Errorf("%w: %s", ErrSourceNotFound, src)
		}
		return result, err
	}
	result.BytesTotal = info.Size()

	if _, err := os.Lstat(dst); err == nil {
		return result, fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return result, fmt.Errorf("%w: %v", ErrDestinationNotWritable, err)
	}

	err = renameNoClobber(src, dst)
	if err == nil {
		result.Renamed = true
		result.SourceRemoved = true
		result.Duration = time.Since(start)
		return result, nil
	}
	if !isEXDEV(err) {
		return result, err
	}

	copied, err := n.copyFile(src, dst, info, opts)
	result.BytesCopied = copied
	if errors.Is(err, ErrDestinationExists) {
		return result, err
	}
	if err != nil {
		os.Remove(dst)
		return result, err
	}
	if copied != info.Size() {
		os.Remove(dst)
		return result, fmt.Errorf("%w: copied %d of %d bytes", ErrSizeMismatch, copied, info.Size())
	}

	if err := os.Remove(src); err != nil {
		return result, fmt.Errorf("copied but failed to remove source: %w", err)
	}
	result.SourceRemoved = true
	result.Duration = time.Since(start)
	return result, nil
}

// renameNoClobber moves src to dst and never replaces an existing dst: the
// hard link fails with EEXIST even when dst appeared after the Lstat check.
// Filesystems without hard links get a checked rename.
func renameNoClobber(src, dst string) error {
	err := linkFunc(src, dst)
	switch {
	case err == nil:
		if err := os.Remove(src); err != nil {
			os.Remove(dst)
			return fmt.Errorf("failed to remove source after link: %w", err)
		}
		return nil
	case errors.Is(err, os.ErrExist):
		return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	case isEXDEV(err):
		return err
	}

	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	}
	return os.Rename(src, dst)
}

func (n *NativeTransferer) copyFile(src, dst string, info os.FileInfo, opts TransferOptions) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if errors.Is(err, os.ErrExist) {
		return 0, fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to create destination: %w", err)
	}
	defer out.Close()

	var w io.Writer = out
	if opts.Progress != nil {
		w = &progressWriter{w: out, total: info.Size(), report: opts.Progress}
	}

	copied, err := io.CopyBuffer(w, in, make([]byte, n.bufferSize))
	if err != nil {
		return copied, fmt.Errorf("copy error: %w", err)
	}
	if err := out.Sync(); err != nil {
		return copied, fmt.Errorf("sync error: %w", err)
	}
	if err := out.Close(); err != nil {
		return copied, err
	}

	os.Chtimes(dst, info.ModTime(), info.ModTime())
	return copied, nil
}

type progressWriter struct {
	w       io.Writer
	written int64
	total   int64
	report  func(current, total int64)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	p.report(p.written, p.total)
	return n, err
}
