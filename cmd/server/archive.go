package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"skirmish.gg/internal/persistence/r2s3"
)

// openArchiveMirror returns nil unless SK_ARCHIVE_MIRROR is set. Keys are relative to dataDir,
// so files land under <prefix>/servers/<id>/events/.
func openArchiveMirror(dataDir string, logger *log.Logger) (*r2s3.Mirror, error) {
	if !envBool("SK_ARCHIVE_MIRROR", false) {
		return nil, nil
	}

	cfg := r2s3.Config{
		Endpoint:        strings.TrimSpace(os.Getenv("SK_ARCHIVE_ENDPOINT")),
		Bucket:          strings.TrimSpace(os.Getenv("SK_ARCHIVE_BUCKET")),
		Region:          strings.TrimSpace(os.Getenv("SK_ARCHIVE_REGION")),
		AccessKeyID:     strings.TrimSpace(os.Getenv("SK_ARCHIVE_ACCESS_KEY_ID")),
		SecretAccessKey: strings.TrimSpace(os.Getenv("SK_ARCHIVE_SECRET_ACCESS_KEY")),
	}
	if cfg.Endpoint == "" || cfg.Bucket == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("SK_ARCHIVE_MIRROR=true but SK_ARCHIVE_ENDPOINT/SK_ARCHIVE_BUCKET/SK_ARCHIVE_ACCESS_KEY_ID/SK_ARCHIVE_SECRET_ACCESS_KEY are not fully set")
	}
	client, err := r2s3.New(cfg)
	if err != nil {
		return nil, err
	}

	m := r2s3.NewMirror(client, r2s3.MirrorConfig{
		DataDir:       dataDir,
		Prefix:        strings.TrimSpace(os.Getenv("SK_ARCHIVE_PREFIX")),
		Workers:       envInt("SK_ARCHIVE_UPLOAD_WORKERS", 1),
		QueueCapacity: envInt("SK_ARCHIVE_QUEUE", 256),
		Logger:        logger,
	})
	logger.Printf("combat log archive enabled endpoint=%s bucket=%s", cfg.Endpoint, cfg.Bucket)
	return m, nil
}
