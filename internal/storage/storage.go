// Package storage uploads and deletes project file blobs.
package storage

import (
	"context"
	"crypto/rand"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/oklog/ulid/v2"
)

const GeneralFolder = "general"

var (
	ErrObjectNotFound = errors.New("storage_object_not_found")
	ErrEmptyRemoteID  = errors.New("storage_empty_remote_id")
)

type Object struct {
	URL      string
	RemoteID string
	Size     int64
}

type UploadRequest struct {
	Folder      string
	Filename    string
	ContentType string
	Data        []byte
}

// Provider is the blob storage collaborator.
type Provider interface {
	Upload(ctx context.Context, req UploadRequest) (Object, error)
	Delete(ctx context.Context, remoteID string) error
}

// FolderPath returns "{tenantID}/{projectID}" or "{tenantID}/general" when the
// file is not attached to a project.
func FolderPath(tenantID string, projectID string) string {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" || projectID == "0" {
		projectID = GeneralFolder
	}
	return strings.TrimSpace(tenantID) + "/" + projectID
}

// ObjectKey builds a collision-free key that keeps a readable file name.
func ObjectKey(folder, filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	base := slug.Make(strings.TrimSuffix(path.Base(filename), path.Ext(filename)))
	if base == "" {
		base = "file"
	}
	id := ulid.MustNew(ulid.Timestamp(now), rand.Reader)
	return strings.Trim(folder, "/") + "/" + strings.ToLower(id.String()) + "-" + base + ext
}
