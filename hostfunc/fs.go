package hostfunc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MountMode defines the permission level for a mount point.
type MountMode int

const (
	// MountReadOnly allows only read operations.
	MountReadOnly MountMode = iota
	// MountReadWrite allows read and write operations on existing files.
	MountReadWrite
	// MountReadWriteCreate additionally allows creating files and directories.
	MountReadWriteCreate
)

// Mount maps a virtual path visible to scripts onto a host path with a
// permission level.
type Mount struct {
	VirtualPath string // path as seen by scripts, e.g. "/data"
	HostPath    string // actual path on the host filesystem
	Mode        MountMode
}

const (
	DefaultMaxFileSize    = 4 << 20 // 4MB
	DefaultMaxListEntries = 1024    // directory listing cap
)

// FSOption configures limits on an FS.
type FSOption func(*FS)

// WithMaxFileSize caps the size of files read or written through the FS.
func WithMaxFileSize(n int64) FSOption {
	return func(f *FS) { f.maxFileSize = n }
}

// WithMaxListEntries caps the number of entries a directory listing returns.
func WithMaxListEntries(n int) FSOption {
	return func(f *FS) { f.maxEntries = n }
}

// FS provides filesystem operations restricted to explicit mount points.
// Mounts are fixed at construction.
type FS struct {
	mounts      []Mount
	maxFileSize int64
	maxEntries  int
}

// NewFS creates a filesystem handler with the given mount points.
// Virtual paths are normalized and host paths resolved to absolute;
// mounts whose host path cannot be resolved are dropped.
func NewFS(mounts []Mount, opts ...FSOption) *FS {
	f := &FS{
		mounts:      make([]Mount, 0, len(mounts)),
		maxFileSize: DefaultMaxFileSize,
		maxEntries:  DefaultMaxListEntries,
	}
	for _, m := range mounts {
		hp, err := filepath.Abs(m.HostPath)
		if err != nil {
			continue
		}
		f.mounts = append(f.mounts, Mount{
			VirtualPath: "/" + strings.Trim(m.VirtualPath, "/"),
			HostPath:    hp,
			Mode:        m.Mode,
		})
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var errNotMounted = errors.New("permission denied: path not in any mount")

// pathArg extracts the required path argument.
func pathArg(args map[string]any) (string, error) {
	path, ok := args["path"].(string)
	if !ok {
		return "", errors.New("path required")
	}
	return path, nil
}

// mountFor returns the mount covering the cleaned virtual path, or nil.
func (f *FS) mountFor(vp string) *Mount {
	for i := range f.mounts {
		m := &f.mounts[i]
		if vp == m.VirtualPath || strings.HasPrefix(vp, m.VirtualPath+"/") {
			return m
		}
	}
	return nil
}

// resolve maps a virtual path to a host path, enforcing mount
// permissions and rejecting escapes via "..".
func (f *FS) resolve(virtualPath string, needWrite bool) (string, *Mount, error) {
	vp := filepath.Clean("/" + strings.TrimPrefix(virtualPath, "/"))

	m := f.mountFor(vp)
	if m == nil {
		return "", nil, errNotMounted
	}
	if needWrite && m.Mode == MountReadOnly {
		return "", nil, errors.New("permission denied: read-only mount")
	}

	rel := strings.TrimPrefix(vp, m.VirtualPath)
	host, err := filepath.Abs(filepath.Join(m.HostPath, rel))
	if err != nil {
		return "", nil, errors.New("invalid path")
	}
	if host != m.HostPath && !strings.HasPrefix(host, m.HostPath+string(os.PathSeparator)) {
		return "", nil, errors.New("permission denied: path escape attempt")
	}
	return host, m, nil
}

// Read returns the contents of a file.
func (f *FS) Read(ctx context.Context, args map[string]any) (any, error) {
	path, err := pathArg(args)
	if err != nil {
		return nil, err
	}
	host, _, err := f.resolve(path, false)
	if err != nil {
		return nil, err
	}

	if info, statErr := os.Stat(host); statErr == nil && info.Size() > f.maxFileSize {
		return nil, fmt.Errorf("file exceeds max size (%d bytes)", f.maxFileSize)
	}

	data, err := os.ReadFile(host)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("read %s: %v", path, err)
	}
	return string(data), nil
}

// Write writes content to a file. Creating a new file requires a
// MountReadWriteCreate mount.
func (f *FS) Write(ctx context.Context, args map[string]any) (any, error) {
	path, err := pathArg(args)
	if err != nil {
		return nil, err
	}
	content, ok := args["content"].(string)
	if !ok {
		return nil, errors.New("content required")
	}
	if int64(len(content)) > f.maxFileSize {
		return nil, fmt.Errorf("content exceeds max size (%d bytes)", f.maxFileSize)
	}

	host, mount, err := f.resolve(path, true)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(host); os.IsNotExist(statErr) && mount.Mode != MountReadWriteCreate {
		return nil, errors.New("permission denied: cannot create new files")
	}

	if err := os.WriteFile(host, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %v", path, err)
	}
	return "ok", nil
}

// List returns the contents of a directory as name/is_dir/size entries.
func (f *FS) List(ctx context.Context, args map[string]any) (any, error) {
	path, err := pathArg(args)
	if err != nil {
		return nil, err
	}
	host, _, err := f.resolve(path, false)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(host)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory not found: %s", path)
		}
		return nil, fmt.Errorf("list %s: %v", path, err)
	}
	if len(entries) > f.maxEntries {
		entries = entries[:f.maxEntries]
	}

	listing := make([]any, 0, len(entries))
	for _, entry := range entries {
		item := map[string]any{
			"name":   entry.Name(),
			"is_dir": entry.IsDir(),
		}
		if info, infoErr := entry.Info(); infoErr == nil {
			item["size"] = info.Size()
		}
		listing = append(listing, item)
	}
	return listing, nil
}

// Exists reports whether a path exists. Paths outside any mount read
// as absent rather than erroring.
func (f *FS) Exists(ctx context.Context, args map[string]any) (any, error) {
	path, err := pathArg(args)
	if err != nil {
		return nil, err
	}
	host, _, err := f.resolve(path, false)
	if err != nil {
		return false, nil
	}
	_, err = os.Stat(host)
	return err == nil, nil
}

// Mkdir creates a directory, including parents.
func (f *FS) Mkdir(ctx context.Context, args map[string]any) (any, error) {
	path, err := pathArg(args)
	if err != nil {
		return nil, err
	}
	host, mount, err := f.resolve(path, true)
	if err != nil {
		return nil, err
	}
	if mount.Mode != MountReadWriteCreate {
		return nil, errors.New("permission denied: cannot create directories")
	}

	if err := os.MkdirAll(host, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %v", path, err)
	}
	return "ok", nil
}

// Remove deletes a file or empty directory.
func (f *FS) Remove(ctx context.Context, args map[string]any) (any, error) {
	path, err := pathArg(args)
	if err != nil {
		return nil, err
	}
	host, _, err := f.resolve(path, true)
	if err != nil {
		return nil, err
	}

	if err := os.Remove(host); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("remove %s: %v", path, err)
	}
	return "ok", nil
}

// Stat returns name, size, is_dir, and mod_time for a path.
func (f *FS) Stat(ctx context.Context, args map[string]any) (any, error) {
	path, err := pathArg(args)
	if err != nil {
		return nil, err
	}
	host, _, err := f.resolve(path, false)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(host)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("stat %s: %v", path, err)
	}

	return map[string]any{
		"name":     info.Name(),
		"size":     info.Size(),
		"is_dir":   info.IsDir(),
		"mod_time": info.ModTime().Unix(),
	}, nil
}
