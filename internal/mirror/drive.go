package mirror

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DriveStore uploads images into a Drive folder and shares them publicly.
type DriveStore struct {
	svc    *drive.Service
	folder string
}

func NewDriveStore(ctx context.Context, ts oauth2.TokenSource, folderID string) (*DriveStore, error) {
	svc, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("creating drive client: %w", err)
	}
	return &DriveStore{svc: svc, folder: folderID}, nil
}

func (d *DriveStore) UploadImage(ctx context.Context, localPath, displayName string) (string, error) {
	if d == nil || d.folder == "" {
		return "", ErrNotConfigured
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	created, err := d.svc.Files.Create(&drive.File{Name: displayName, Parents: []string{d.folder}}).
		Media(f, googleapi.ContentType("image/jpeg")).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("drive create: %w", err)
	}

	if _, err := d.svc.Permissions.Create(created.Id, &drive.Permission{Type: "anyone", Role: "reader"}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("drive share: %w", err)
	}

	got, err := d.svc.Files.Get(created.Id).Fields("webContentLink").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive link: %w", err)
	}
	return got.WebContentLink, nil
}
