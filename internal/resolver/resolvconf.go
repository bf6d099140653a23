package resolver

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/hamed0406/dnsoptimizer/internal/domain"
)

// FileReader returns the first nameserver in a resolv.conf file.
type FileReader struct {
	Path   string
	Logger *zap.Logger
}

func (r *FileReader) Read(ctx context.Context) domain.Snapshot {
	f, err := os.Open(r.Path)
	if err != nil {
		orNop(r.Logger).Debug("resolver_read_failed", zap.String("path", r.Path), zap.Error(err))
		return domain.UnknownSnapshot()
	}
	defer f.Close()

	cc, err := dns.ClientConfigFromReader(f)
	if err != nil || len(cc.Servers) == 0 {
		orNop(r.Logger).Debug("resolver_parse_empty", zap.String("path", r.Path), zap.Error(err))
		return domain.UnknownSnapshot()
	}
	return domain.Snapshot{Address: cc.Servers[0]}
}

// FileApplier replaces the resolv.conf with a single nameserver line. The
// line is written to a temporary file beside the target and renamed over
// it, so a failed write leaves the old content in place. A symlinked
// resolv.conf keeps its link; the file it points to is replaced.
type FileApplier struct {
	Path   string
	Logger *zap.Logger

	// CreateTemp and Rename default to the os functions.
	CreateTemp func(dir, pattern string) (*os.File, error)
	Rename     func(oldpath, newpath string) error
}

func (a *FileApplier) Apply(ctx context.Context, address string) error {
	if address == "" {
		return nil
	}
	if err := checkAddress("write "+a.Path, address); err != nil {
		return err
	}
	createTemp, rename := a.CreateTemp, a.Rename
	if createTemp == nil {
		createTemp = os.CreateTemp
	}
	if rename == nil {
		rename = os.Rename
	}

	target := a.Path
	if resolved, err := filepath.EvalSymlinks(target); err == nil {
		target = resolved
	}
	mode := fs.FileMode(0o644)
	if fi, err := os.Stat(target); err == nil {
		mode = fi.Mode().Perm()
	}
	content := "nameserver " + address + "\n"

	tmp, err := createTemp(filepath.Dir(target), ".resolv.conf-*")
	if err != nil {
		return fileError("create temp for "+target, err)
	}
	tmpName := tmp.Name()
	_, werr := tmp.WriteString(content)
	if werr == nil {
		werr = tmp.Chmod(mode)
	}
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(tmpName)
		return fileError("write "+tmpName, werr)
	}

	if err := rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		if !errors.Is(err, syscall.EBUSY) && !errors.Is(err, syscall.EXDEV) {
			return fileError("rename "+target, err)
		}
		// Bind-mounted files (containers) can only be rewritten in place.
		if err := os.WriteFile(target, []byte(content), mode); err != nil {
			return fileError("write "+target, err)
		}
	}
	orNop(a.Logger).Info("resolver_file_written", zap.String("path", target), zap.String("address", address))
	return nil
}

func fileError(op string, err error) error {
	kind := KindIoFailure
	if errors.Is(err, fs.ErrPermission) {
		kind = KindPermissionDenied
	}
	return &ApplyError{Kind: kind, Op: op, Err: err}
}
