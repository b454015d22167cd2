package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalClient serves the storage contract from a directory tree on disk.
// Remote paths use forward slashes rooted at the client's root directory.
type LocalClient struct {
	root string
}

// NewLocalClient creates a client rooted at the given directory, which must
// exist.
func NewLocalClient(root string) (*LocalClient, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot access storage root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage root is not a directory: %s", abs)
	}
	return &LocalClient{root: abs}, nil
}

// resolve maps a remote-style path onto the local tree. Rooting the path
// before cleaning strips any ".." escape attempts.
func (c *LocalClient) resolve(remotePath string) string {
	rel := strings.TrimPrefix(path.Clean("/"+remotePath), "/")
	return filepath.Join(c.root, filepath.FromSlash(rel))
}

// List returns the folder's immediate children. Listing is non-recursive.
func (c *LocalClient) List(ctx context.Context, folder string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := c.resolve(folder)
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder %s: %w", folder, err)
	}

	remoteFolder := path.Clean("/" + strings.Trim(folder, "/"))
	entries := make([]Entry, 0, len(dirEntries))
	for _, e := range dirEntries {
		entries = append(entries, Entry{
			Path:   path.Join(remoteFolder, e.Name()),
			Name:   e.Name(),
			IsFile: !e.IsDir(),
		})
	}
	return entries, nil
}

// Download copies a remote file to the given local path.
func (c *LocalClient) Download(ctx context.Context, remotePath, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := copyFile(c.resolve(remotePath), localPath); err != nil {
		return fmt.Errorf("failed to download %s: %w", remotePath, err)
	}
	return nil
}

// Upload copies a local file into the tree, replacing any existing file.
// Parent folders are created as needed.
func (c *LocalClient) Upload(ctx context.Context, localPath, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dest := c.resolve(remotePath)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create folder for %s: %w", remotePath, err)
	}
	if err := copyFile(localPath, dest); err != nil {
		return fmt.Errorf("failed to upload %s: %w", remotePath, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
