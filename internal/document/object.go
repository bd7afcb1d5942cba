package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"docgate/internal/breaker"
	"docgate/internal/model"
	"docgate/internal/storage"
)

// ObjectResolver reads documents from object storage under a key prefix.
// Calls go through the storage breaker when one is set.
type ObjectResolver struct {
	store    storage.Storage
	prefix   string
	maxBytes int64
	cb       *breaker.Breaker
}

// NewObjectResolver returns a resolver reading at most maxBytes+1 bytes per
// object, so oversized documents still reach the size guard without being
// loaded whole.
func NewObjectResolver(store storage.Storage, prefix string, maxBytes int64, cb *breaker.Breaker) *ObjectResolver {
	return &ObjectResolver{store: store, prefix: prefix, maxBytes: maxBytes, cb: cb}
}

func (r *ObjectResolver) key(p string) string { return path.Join(r.prefix, p) }

func (r *ObjectResolver) Resolve(ctx context.Context, p string) Resolution {
	res := Resolution{Name: p, Path: r.key(p)}
	_, err := r.call(ctx, func(ctx context.Context) (any, error) {
		return r.store.Stat(ctx, res.Path)
	})
	switch {
	case errors.Is(err, storage.ErrObjectNotFound):
		res.Err = ErrNotFound
	case err != nil:
		res.Err = err
	default:
		res.Exists = true
	}
	return res
}

func (r *ObjectResolver) Read(ctx context.Context, res Resolution) (model.Document, error) {
	if !res.Exists {
		if res.Err != nil {
			return model.Document{}, res.Err
		}
		return model.Document{}, ErrNotFound
	}
	out, err := r.call(ctx, func(ctx context.Context) (any, error) {
		body, info, err := r.store.Get(ctx, res.Path)
		if err != nil {
			return nil, err
		}
		defer body.Close()

		var src io.Reader = body
		if r.maxBytes > 0 {
			src = io.LimitReader(body, r.maxBytes+1)
		}
		data, err := io.ReadAll(src)
		if err != nil {
			return nil, err
		}
		content := string(data)
		return model.Document{
			Name:       res.Name,
			Content:    content,
			SizeBytes:  info.Size,
			PageCount:  estimatePages(content),
			ModifiedAt: info.LastModified,
		}, nil
	})
	if err != nil {
		return model.Document{}, fmt.Errorf("read %s: %w", res.Name, err)
	}
	return out.(model.Document), nil
}

func (r *ObjectResolver) call(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	if r.cb == nil {
		return fn(ctx)
	}
	return breaker.Do(ctx, r.cb, fn)
}
