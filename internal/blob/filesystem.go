// filesystem.go
//
// A document persistence store for wikis, with versioning, attachments and a recycle bin
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of docstore.
// docstore is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// docstore is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with docstore.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

const (
	tempSuffix   = "~tmp"
	backupSuffix = "~bak"
)

// Filesystem stores blobs as files under a root directory. Writes land in a temporary
// file renamed over the target, so readers never see a partial payload.
type Filesystem struct {
	root string
	log  zerolog.Logger
}

// NewFilesystem creates the root directory if needed
func NewFilesystem(root string, log zerolog.Logger) (*Filesystem, error) {
	if root == "" {
		return nil, fmt.Errorf("blob: filesystem root is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Filesystem{root: root, log: log.With().Str("component", "blob-fs").Logger()}, nil
}

// Root returns the directory holding the blobs
func (f *Filesystem) Root() string {
	return f.root
}

func (f *Filesystem) path(key string) (string, error) {
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("blob: invalid key %q", key)
		}
	}
	return filepath.Join(f.root, filepath.FromSlash(key)), nil
}

// Put writes r to key. An existing payload is kept as a backup until the new one is in place.
func (f *Filesystem) Put(_ context.Context, key string, r io.Reader, _ int64) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}

	tmp := p + tempSuffix
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	bak := p + backupSuffix
	hadBackup := false
	if err := os.Rename(p, bak); err == nil {
		hadBackup = true
	} else if !errors.Is(err, fs.ErrNotExist) {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		if hadBackup {
			if rerr := os.Rename(bak, p); rerr != nil {
				f.log.Error().Err(rerr).Str("key", key).Msg("failed to restore backup")
			}
		}
		os.Remove(tmp)
		return err
	}
	if hadBackup {
		if err := os.Remove(bak); err != nil {
			f.log.Warn().Err(err).Str("key", key).Msg("failed to remove backup")
		}
	}
	return nil
}

// Get opens the payload of key
func (f *Filesystem) Get(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	return file, err
}

// Delete removes key and the directories it leaves empty
func (f *Filesystem) Delete(_ context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	f.prune(filepath.Dir(p))
	return nil
}

// prune removes empty directories from dir up to the root
func (f *Filesystem) prune(dir string) {
	root := filepath.Clean(f.root)
	for dir != root && strings.HasPrefix(dir, root) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// Exists reports whether key holds a payload
func (f *Filesystem) Exists(_ context.Context, key string) (bool, error) {
	p, err := f.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Move renames from to to
func (f *Filesystem) Move(_ context.Context, from, to string) error {
	src, err := f.path(from)
	if err != nil {
		return err
	}
	dst, err := f.path(to)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotExist
		}
		return err
	}
	f.prune(filepath.Dir(src))
	return nil
}
