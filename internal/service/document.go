package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"docgate/internal/audit"
	"docgate/internal/breaker"
	"docgate/internal/storage"
	"docgate/internal/validation"
)

var ErrReaderNil = errors.New("reader is nil")

// DocumentInfo describes a stored source document.
type DocumentInfo struct {
	Path        string `json:"path"`
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// DocumentService manages the source documents that summaries are built from.
type DocumentService interface {
	// Upload stores content under the validated relative path. The same path
	// is later passed to Generate.
	Upload(ctx context.Context, userID, docPath string, r io.Reader, contentType string, size int64) (*DocumentInfo, error)

	// Stat returns metadata of a stored document.
	Stat(ctx context.Context, userID, docPath string) (*DocumentInfo, error)

	// List returns up to limit stored documents whose path starts with dir.
	List(ctx context.Context, userID, dir string, limit int) ([]DocumentInfo, error)
}

// Listing bounds.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store     storage.Storage
	prefix    string
	validator *validation.Validator
	maxBytes  int64
	cb        *breaker.Breaker
	audit     *audit.Logger
}

// NewDocumentService constructs a new DocumentService. prefix must match the
// object resolver's prefix.
func NewDocumentService(store storage.Storage, prefix string, v *validation.Validator, maxBytes int64, cb *breaker.Breaker, a *audit.Logger) DocumentService {
	if v == nil {
		v = validation.New(validation.Config{})
	}
	return &documentService{store: store, prefix: prefix, validator: v, maxBytes: maxBytes, cb: cb, audit: a}
}

func (s *documentService) key(p string) string { return path.Join(s.prefix, p) }

func (s *documentService) checkPath(ctx context.Context, userID, docPath, command string) (string, error) {
	res := s.validator.ValidatePath(docPath)
	if !res.Valid {
		verr := &ValidationError{Issues: res.Errors, Warnings: res.Warnings}
		s.audit.CommandBlocked(ctx, userID, command, res.Errors[0].Code)
		return "", verr
	}
	return res.Sanitized, nil
}

func (s *documentService) Upload(ctx context.Context, userID, docPath string, r io.Reader, contentType string, size int64) (*DocumentInfo, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	clean, err := s.checkPath(ctx, userID, docPath, "upload_document")
	if err != nil {
		return nil, err
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		s.audit.DocumentRejectedSize(ctx, userID, clean, "bytes", size, s.maxBytes)
		return nil, &ValidationError{
			Issues: []validation.Issue{{Code: CodeDocumentTooLarge, Message: fmt.Sprintf("document exceeds %d bytes", s.maxBytes)}},
			Err:    validation.ErrSizeLimit,
		}
	}

	key := s.key(clean)
	info, err := s.call(ctx, func(ctx context.Context) (storage.ObjectInfo, error) {
		return s.store.Put(ctx, key, r, storage.PutObjectOptions{
			Size:        size,
			ContentType: contentType,
			Metadata:    map[string]string{"uploaded-by": userID},
		})
	})
	if err != nil {
		s.audit.CommandFailed(ctx, userID, "upload_document", err)
		return nil, s.storageError("upload to storage", err)
	}
	s.audit.CommandInvoked(ctx, userID, "upload_document", []string{clean})
	return &DocumentInfo{Path: clean, Key: info.Key, Size: info.Size, ContentType: info.ContentType}, nil
}

func (s *documentService) Stat(ctx context.Context, userID, docPath string) (*DocumentInfo, error) {
	clean, err := s.checkPath(ctx, userID, docPath, "stat_document")
	if err != nil {
		return nil, err
	}
	info, err := s.call(ctx, func(ctx context.Context) (storage.ObjectInfo, error) {
		return s.store.Stat(ctx, s.key(clean))
	})
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, s.storageError("stat document", err)
	}
	s.audit.DocumentAccessed(ctx, userID, clean)
	return &DocumentInfo{Path: clean, Key: info.Key, Size: info.Size, ContentType: info.ContentType}, nil
}

func (s *documentService) List(ctx context.Context, userID, dir string, limit int) ([]DocumentInfo, error) {
	dir = strings.Trim(strings.TrimSpace(dir), "/")
	if dir != "" {
		for _, seg := range strings.Split(dir, "/") {
			if seg == ".." || seg == "." {
				s.audit.CommandBlocked(ctx, userID, "list_documents", validation.CodePathTraversal)
				return nil, &ValidationError{Issues: []validation.Issue{{Code: validation.CodePathTraversal, Message: "directory must not contain . or .. segments"}}}
			}
		}
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	root := ""
	if p := strings.Trim(s.prefix, "/"); p != "" {
		root = p + "/"
	}
	prefix := root
	if dir != "" {
		prefix = root + dir + "/"
	}
	var objects []storage.ObjectInfo
	call := func(ctx context.Context) (err error) {
		objects, err = s.store.List(ctx, prefix, limit)
		return err
	}
	var err error
	if s.cb == nil {
		err = call(ctx)
	} else {
		err = s.cb.Execute(ctx, call)
	}
	if err != nil {
		return nil, s.storageError("list documents", err)
	}

	out := make([]DocumentInfo, 0, len(objects))
	for _, o := range objects {
		out = append(out, DocumentInfo{
			Path:        strings.TrimPrefix(o.Key, root),
			Key:         o.Key,
			Size:        o.Size,
			ContentType: o.ContentType,
		})
	}
	s.audit.CommandInvoked(ctx, userID, "list_documents", []string{dir})
	return out, nil
}

func (s *documentService) call(ctx context.Context, fn func(context.Context) (storage.ObjectInfo, error)) (storage.ObjectInfo, error) {
	if s.cb == nil {
		return fn(ctx)
	}
	return breaker.Do(ctx, s.cb, fn)
}

func (s *documentService) storageError(op string, err error) error {
	if errors.Is(err, breaker.ErrOpen) {
		return &CircuitOpenError{Dependency: s.cb.Name(), Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
