package storage

import "context"

// Entry is one item of a remote folder listing.
type Entry struct {
	Path   string // full remote path, exactly as the backend lists it
	Name   string // base name of the entry
	IsFile bool
}

// Client is the storage collaborator contract: list a folder, download a
// remote file to a local path, upload a local file to a remote path.
// Uploads always overwrite. Authentication is entirely the implementation's
// concern.
type Client interface {
	List(ctx context.Context, folder string) ([]Entry, error)
	Download(ctx context.Context, remotePath, localPath string) error
	Upload(ctx context.Context, localPath, remotePath string) error
}

var (
	_ Client = (*LocalClient)(nil)
	_ Client = (*DropboxClient)(nil)
)
