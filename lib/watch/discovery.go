// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// InitialScan returns root and every directory below it. Nothing is
// registered during the walk; registering while walking would generate
// events for, and race with, the walk itself.
func InitialScan(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}

	// WalkDir does not follow a symlinked root, its contents are read
	// through the path with a trailing separator instead.
	walkRoot := root
	if !strings.HasSuffix(walkRoot, string(filepath.Separator)) {
		walkRoot += string(filepath.Separator)
	}

	dirs := []string{root}
	err = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if path == walkRoot {
			return err
		}
		if err != nil {
			l.Infof("Skipping %s during scan: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}

// RegisterAll registers every path with the registry and returns the number
// of paths that are watched afterwards. Failures are logged and skipped.
func RegisterAll(paths []string, reg *Registry) int {
	registered := 0
	for _, path := range paths {
		if _, err := reg.Register(path); err != nil {
			l.Warnln("Not watching directory:", err)
			continue
		}
		registered++
	}
	l.Debugf("Registered %d of %d directories", registered, len(paths))
	return registered
}

// HandleNewDirectory registers a directory that was created inside a
// watched one. Subdirectories that appeared before the watch was in place
// have no event of their own, so they are registered as well.
func HandleNewDirectory(parent, child string, reg *Registry) error {
	path := filepath.Join(parent, child)
	if _, err := reg.Register(path); err != nil {
		l.Warnln("Not watching new directory:", err)
		return err
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		l.Debugf("Reading new directory %s: %v", path, err)
		return nil
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, ok := reg.Lookup(filepath.Join(path, entry.Name())); ok {
			continue
		}
		_ = HandleNewDirectory(path, entry.Name(), reg)
	}
	return nil
}
