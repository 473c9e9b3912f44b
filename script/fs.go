package script

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/risor-io/risor/object"
)

// MaxReadBytes caps a single fs.read call.
const MaxReadBytes = 1 << 20

// fileAccess is the path-scoped, read-only filesystem capability.
type fileAccess struct {
	patterns []string
}

func newFileAccess(patterns []string) *fileAccess {
	fa := &fileAccess{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) {
			if abs, err := filepath.Abs(p); err == nil {
				p = abs
			}
		}
		fa.patterns = append(fa.patterns, filepath.Clean(p))
	}
	return fa
}

// Allowed reports whether path, and the file it resolves to through any
// symlinks, falls under one of the read patterns.
func (fa *fileAccess) Allowed(path string) (string, bool) {
	if path == "" || len(fa.patterns) == 0 {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	abs = filepath.Clean(abs)
	if !fa.match(abs) {
		return "", false
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil && resolved != abs {
		if !fa.match(resolved) {
			return "", false
		}
	}
	return abs, true
}

func (fa *fileAccess) match(path string) bool {
	for _, pattern := range fa.patterns {
		if root, ok := strings.CutSuffix(pattern, string(filepath.Separator)+"**"); ok && path == root {
			return true
		}
		if ok, err := doublestar.PathMatch(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

func (fa *fileAccess) read(path string) (string, error) {
	abs, ok := fa.Allowed(path)
	if !ok {
		return "", fmt.Errorf("access to %s is not permitted", path)
	}
	f, err := os.Open(abs)
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxReadBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > MaxReadBytes {
		return "", fmt.Errorf("%s exceeds the %d byte read limit", path, MaxReadBytes)
	}
	return string(data), nil
}

func (fa *fileAccess) stat(path string) (os.FileInfo, bool) {
	abs, ok := fa.Allowed(path)
	if !ok {
		return nil, false
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, false
	}
	return info, true
}

func (fa *fileAccess) list(dir string) ([]object.Object, error) {
	abs, ok := fa.Allowed(dir)
	if !ok {
		return nil, fmt.Errorf("access to %s is not permitted", dir)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}
	items := make([]object.Object, 0, len(entries))
	for _, entry := range entries {
		items = append(items, object.NewMap(map[string]object.Object{
			"name":   object.NewString(entry.Name()),
			"path":   object.NewString(filepath.Join(abs, entry.Name())),
			"is_dir": object.NewBool(entry.IsDir()),
		}))
	}
	return items, nil
}

func (fa *fileAccess) module() *object.Module {
	pathArg := func(name string, args []object.Object) (string, *object.Error) {
		if len(args) != 1 {
			return "", object.TypeErrorf("type error: fs.%s() takes exactly 1 argument (%d given)", name, len(args))
		}
		return object.AsString(args[0])
	}
	predicate := func(name string, test func(string) bool) *object.Builtin {
		return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
			path, errObj := pathArg(name, args)
			if errObj != nil {
				return errObj
			}
			return object.NewBool(test(path))
		})
	}
	return object.NewBuiltinsModule("fs", map[string]object.Object{
		"allowed": predicate("allowed", func(p string) bool {
			_, ok := fa.Allowed(p)
			return ok
		}),
		"exists": predicate("exists", func(p string) bool {
			_, ok := fa.stat(p)
			return ok
		}),
		"is_file": predicate("is_file", func(p string) bool {
			info, ok := fa.stat(p)
			return ok && info.Mode().IsRegular()
		}),
		"is_dir": predicate("is_dir", func(p string) bool {
			info, ok := fa.stat(p)
			return ok && info.IsDir()
		}),
		"read": object.NewBuiltin("read", func(ctx context.Context, args ...object.Object) object.Object {
			path, errObj := pathArg("read", args)
			if errObj != nil {
				return errObj
			}
			content, err := fa.read(path)
			if err != nil {
				return object.NewError(err)
			}
			return object.NewString(content)
		}),
		"list": object.NewBuiltin("list", func(ctx context.Context, args ...object.Object) object.Object {
			path, errObj := pathArg("list", args)
			if errObj != nil {
				return errObj
			}
			items, err := fa.list(path)
			if err != nil {
				return object.NewError(err)
			}
			return object.NewList(items)
		}),
	})
}
