// Package integrations wraps the third-party services the back office talks to: Google Drive
// folders for event media, the livestream platform and the organization search behind the lead finder.
// Each client is optional; an unconfigured one answers with an explanation instead of an error.
package integrations

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// ErrNotConfigured is returned by clients built without credentials.
var ErrNotConfigured = errors.New("integration is not configured")

// Folder is a created Drive folder.
type Folder struct {
	ID  string `json:"folder_id"`
	URL string `json:"folder_url"`
}

// FolderCreator makes Drive folders. *Drive implements it.
type FolderCreator interface {
	CreateFolder(ctx context.Context, name string) (*Folder, error)
}

// Drive creates folders under one parent with a service account.
type Drive struct {
	files    *drive.FilesService
	parentID string
	logger   *zap.Logger
}

// NewDrive builds a Drive client from a service account key file. It returns ErrNotConfigured
// when credentialsFile is empty.
func NewDrive(ctx context.Context, credentialsFile, parentID string, logger *zap.Logger) (*Drive, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if credentialsFile == "" {
		return nil, ErrNotConfigured
	}
	if _, err := os.Stat(credentialsFile); err != nil {
		return nil, fmt.Errorf("google credentials file %s: %w", credentialsFile, err)
	}
	srv, err := drive.NewService(ctx, option.WithCredentialsFile(credentialsFile), option.WithScopes(drive.DriveFileScope))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	logger.Info("google drive integration enabled", zap.Bool("has_parent", parentID != ""))
	return &Drive{files: srv.Files, parentID: parentID, logger: logger}, nil
}

func (d *Drive) CreateFolder(ctx context.Context, name string) (*Folder, error) {
	f := &drive.File{Name: name, MimeType: folderMimeType}
	if d.parentID != "" {
		f.Parents = []string{d.parentID}
	}
	created, err := d.files.Create(f).SupportsAllDrives(true).Fields("id", "webViewLink").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("create drive folder: %w", err)
	}
	url := created.WebViewLink
	if url == "" {
		url = "https://drive.google.com/drive/folders/" + created.Id
	}
	return &Folder{ID: created.Id, URL: url}, nil
}
