package document

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"docgate/internal/model"
)

// FSResolver reads documents from a set of allow-listed directories. The
// first root holding the path wins. Symlinks are followed and the target
// must stay inside the root.
type FSResolver struct {
	roots []string
}

func NewFSResolver(roots ...string) (*FSResolver, error) {
	if len(roots) == 0 {
		return nil, errors.New("at least one document root is required")
	}
	abs := make([]string, 0, len(roots))
	for _, r := range roots {
		a, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("document root %q: %w", r, err)
		}
		if real, err := filepath.EvalSymlinks(a); err == nil {
			a = real
		}
		abs = append(abs, a)
	}
	return &FSResolver{roots: abs}, nil
}

func (r *FSResolver) Resolve(_ context.Context, path string) Resolution {
	res := Resolution{Name: path}
	for _, root := range r.roots {
		candidate := filepath.Join(root, filepath.FromSlash(path))
		real, err := filepath.EvalSymlinks(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			res.Err = err
			return res
		}
		if !within(root, real) {
			res.Err = ErrOutsideRoots
			return res
		}
		info, err := os.Stat(real)
		if err != nil {
			res.Err = err
			return res
		}
		if info.IsDir() {
			res.Err = fmt.Errorf("%s is a directory", path)
			return res
		}
		res.Exists = true
		res.Path = real
		return res
	}
	res.Err = ErrNotFound
	return res
}

func (r *FSResolver) Read(_ context.Context, res Resolution) (model.Document, error) {
	if !res.Exists {
		if res.Err != nil {
			return model.Document{}, res.Err
		}
		return model.Document{}, ErrNotFound
	}
	info, err := os.Stat(res.Path)
	if err != nil {
		return model.Document{}, fmt.Errorf("stat %s: %w", res.Name, err)
	}
	// #nosec G304 -- path was confined to an allowed root by Resolve.
	data, err := os.ReadFile(res.Path)
	if err != nil {
		return model.Document{}, fmt.Errorf("read %s: %w", res.Name, err)
	}
	content := string(data)
	return model.Document{
		Name:       res.Name,
		Content:    content,
		SizeBytes:  info.Size(),
		PageCount:  estimatePages(content),
		ModifiedAt: info.ModTime(),
	}, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
