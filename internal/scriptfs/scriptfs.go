// Package scriptfs abstracts the file system access of the batch runner.
package scriptfs

import (
	"fmt"
	i_fs "io/fs"
	"os"
	"path/filepath"
	"slices"
)

// Ext is the extension of script files picked up from directories.
const Ext = ".coral"

// FS is the subset of file system operations the runner uses.
// Tests substitute it to simulate unreadable files.
type FS interface {
	Stat(name string) (i_fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WalkDir(root string, fn i_fs.WalkDirFunc) error
}

type osFS struct{}

// NewOSFS returns an FS backed by the os package.
func NewOSFS() FS {
	return &osFS{}
}

func (f *osFS) Stat(name string) (i_fs.FileInfo, error) {
	return os.Stat(name)
}

func (f *osFS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

func (f *osFS) WalkDir(root string, fn i_fs.WalkDirFunc) error {
	return filepath.WalkDir(root, fn)
}

// Expand replaces every directory in args with the script files below it,
// sorted by path. Other arguments are kept as given, even when they do not
// exist, so that the read error is reported for that file.
func Expand(fsys FS, args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := fsys.Stat(arg)
		if err != nil || !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		var found []string
		err = fsys.WalkDir(arg, func(path string, d i_fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && len(d.Name()) > 1 && d.Name()[0] == '.' {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) == Ext {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no %s files in %s", Ext, arg)
		}
		slices.Sort(found)
		paths = append(paths, found...)
	}
	return paths, nil
}
