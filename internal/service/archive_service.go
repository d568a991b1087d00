package service

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"equipment-tracker/internal/storage"
)

// ArchiveService copies inventory exports to object storage.
type ArchiveService interface {
	Archive(ctx context.Context) (string, error)
	List(ctx context.Context) ([]storage.ObjectInfo, error)
}

type archiveService struct {
	exports   ExportService
	store     storage.Service
	bucket    string
	keyPrefix string
	now       func() time.Time
}

func NewArchiveService(exports ExportService, store storage.Service, bucket, keyPrefix string) ArchiveService {
	return &archiveService{
		exports:   exports,
		store:     store,
		bucket:    bucket,
		keyPrefix: strings.Trim(keyPrefix, "/"),
		now:       time.Now,
	}
}

func (s *archiveService) Archive(ctx context.Context) (string, error) {
	export, err := s.exports.ExportAll(ctx)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("inventory-%s.xlsx", s.now().UTC().Format("20060102T150405Z"))
	location, err := s.store.Put(ctx, bytes.NewReader(export.Data), storage.PutOptions{
		Bucket:      s.bucket,
		Key:         path.Join(s.keyPrefix, name),
		ContentType: export.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("archive export: %w", err)
	}
	return location, nil
}

func (s *archiveService) List(ctx context.Context) ([]storage.ObjectInfo, error) {
	prefix := s.keyPrefix
	if prefix != "" {
		prefix += "/"
	}
	return s.store.ListObjects(ctx, s.bucket, prefix)
}
