package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/users"
	"github.com/sirupsen/logrus"
)

// tokenEndpoint is where refresh tokens are exchanged for access tokens.
const tokenEndpoint = "https://api.dropbox.com/oauth2/token"

// Credentials carries the supported Dropbox credential variants: a static
// access token, or an app key/secret pair with a refresh token exchanged
// once at startup.
type Credentials struct {
	AccessToken  string
	AppKey       string
	AppSecret    string
	RefreshToken string
}

// DropboxClient implements the storage contract against a Dropbox folder.
// Listings report Dropbox's lowercased paths, which downloads accept
// unchanged.
type DropboxClient struct {
	files files.Client
	users users.Client
}

// NewDropboxClient builds a client from the given credentials and verifies
// them by asking for the account they belong to.
func NewDropboxClient(ctx context.Context, creds Credentials, logger *logrus.Logger) (*DropboxClient, error) {
	token := creds.AccessToken
	if token == "" {
		if creds.RefreshToken == "" || creds.AppKey == "" || creds.AppSecret == "" {
			return nil, fmt.Errorf("dropbox credentials missing: set an access token, or app key and secret plus refresh token")
		}
		refreshed, err := refreshAccessToken(ctx, tokenEndpoint, creds)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh access token: %w", err)
		}
		token = refreshed
	}

	cfg := dropbox.Config{Token: token, LogLevel: dropbox.LogOff}
	client := &DropboxClient{
		files: files.New(cfg),
		users: users.New(cfg),
	}

	account, err := client.users.GetCurrentAccount()
	if err != nil {
		return nil, fmt.Errorf("dropbox authentication failed: %w", err)
	}
	logger.WithField("account", account.Name.DisplayName).Info("Connected to Dropbox")

	return client, nil
}

// refreshAccessToken performs the one-shot refresh-token exchange. The SDK
// only accepts ready-made access tokens, so the exchange goes straight to
// the OAuth endpoint.
func refreshAccessToken(ctx context.Context, endpoint string, creds Credentials) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", creds.RefreshToken)
	form.Set("client_id", creds.AppKey)
	form.Set("client_secret", creds.AppSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access token")
	}
	return payload.AccessToken, nil
}

// normalizeFolder maps a folder path to Dropbox's convention: the root is
// the empty string, everything else is slash-prefixed without a trailing
// slash.
func normalizeFolder(folder string) string {
	folder = strings.TrimSuffix(folder, "/")
	if folder == "" {
		return ""
	}
	if !strings.HasPrefix(folder, "/") {
		return "/" + folder
	}
	return folder
}

// List returns the folder's immediate children, following listing cursors
// until the listing is complete.
func (c *DropboxClient) List(ctx context.Context, folder string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := c.files.ListFolder(files.NewListFolderArg(normalizeFolder(folder)))
	if err != nil {
		return nil, fmt.Errorf("failed to list folder %s: %w", folder, err)
	}

	var entries []Entry
	for {
		for _, md := range res.Entries {
			switch m := md.(type) {
			case *files.FileMetadata:
				entries = append(entries, Entry{Path: m.PathLower, Name: m.Name, IsFile: true})
			case *files.FolderMetadata:
				entries = append(entries, Entry{Path: m.PathLower, Name: m.Name, IsFile: false})
			}
		}
		if !res.HasMore {
			return entries, nil
		}
		res, err = c.files.ListFolderContinue(files.NewListFolderContinueArg(res.Cursor))
		if err != nil {
			return nil, fmt.Errorf("failed to continue folder listing: %w", err)
		}
	}
}

// Download streams a remote file to the given local path.
func (c *DropboxClient) Download(ctx context.Context, remotePath, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, content, err := c.files.Download(files.NewDownloadArg(remotePath))
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", remotePath, err)
	}
	defer content.Close()

	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", localPath, err)
	}
	if _, err := io.Copy(out, content); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", localPath, err)
	}
	return out.Close()
}

// Upload sends a local file to the given remote path, replacing any
// existing file.
func (c *DropboxClient) Upload(ctx context.Context, localPath, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	in, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer in.Close()

	arg := files.NewUploadArg(remotePath)
	arg.Mode = &files.WriteMode{Tagged: dropbox.Tagged{Tag: files.WriteModeOverwrite}}

	if _, err := c.files.Upload(arg, in); err != nil {
		return fmt.Errorf("failed to upload %s: %w", remotePath, err)
	}
	return nil
}
