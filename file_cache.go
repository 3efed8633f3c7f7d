package cfddns

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/gofrs/flock"
)

// DefaultStateFile is where FileCache keeps the last published address unless told otherwise.
const DefaultStateFile = "/tmp/ip.txt"

// FileCache stores the last published address in a one-line text file.
//
// The file holds exactly the address with no header or trailing newline.
// It is never deleted.
type FileCache struct {
	Path string
}

// NewFileCache returns a FileCache backed by path, or DefaultStateFile when path is empty.
func NewFileCache(path string) *FileCache {
	if path == "" {
		path = DefaultStateFile
	}
	return &FileCache{Path: path}
}

// Previous implements Cache.
// A missing file is not an error.
func (c *FileCache) Previous() (string, error) {
	b, err := os.ReadFile(c.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", &Error{Kind: KindIO, Op: "read previous IP", Err: err}
	}
	return strings.TrimSpace(string(b)), nil
}

// Save implements Cache.
func (c *FileCache) Save(ip string) error {
	if err := os.WriteFile(c.Path, []byte(ip), 0644); err != nil {
		return &Error{Kind: KindIO, Op: "save IP", Err: err}
	}
	return nil
}

// Lock implements Locker using an advisory lock on a sibling ".lock" file.
// It does not wait: ok is false when another process holds the lock.
func (c *FileCache) Lock(ctx context.Context) (unlock func() error, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	fl := flock.New(c.Path + ".lock")
	ok, err = fl.TryLock()
	if err != nil {
		return nil, false, &Error{Kind: KindIO, Op: "lock", Err: fmt.Errorf("error locking %s: %w", fl.Path(), err)}
	}
	if !ok {
		return nil, false, nil
	}
	return fl.Unlock, true, nil
}
