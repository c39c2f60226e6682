package stores

import (
	"collab-docs/config"
	"collab-docs/core"
	"collab-docs/stores/aws"
	"collab-docs/stores/filesystem"
	"collab-docs/stores/memory"
	"collab-docs/stores/remote"
	"collab-docs/stores/sqlite"
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Store bundles the document and template backends of one storage type.
type Store struct {
	Documents core.DocumentStore
	Templates core.TemplateStore

	close func() error
}

// Close releases the backend's resources, if it holds any.
func (s Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func GetStore(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	var store Store

	storageField := logrus.Fields{
		"storageType": cfg.Type,
	}

	switch cfg.Type {
	case "filesystem":
		storageField["basePath"] = cfg.LocalPath
		docs, err := filesystem.NewDocumentStore(cfg.LocalPath)
		if err != nil {
			return Store{}, err
		}
		tpls, err := filesystem.NewTemplateStore(cfg.LocalPath)
		if err != nil {
			return Store{}, err
		}
		store = Store{Documents: docs, Templates: tpls}
	case "sqlite":
		storageField["dataSourceName"] = cfg.DataSourceName
		db, err := sqlite.Open(ctx, cfg.DataSourceName)
		if err != nil {
			return Store{}, err
		}
		store = Store{
			Documents: sqlite.NewDocumentStore(db),
			Templates: sqlite.NewTemplateStore(db),
			close:     db.Close,
		}
	case "s3":
		if cfg.S3BucketName == "" {
			return Store{}, fmt.Errorf("S3_BUCKET_NAME environment variable must be set for s3 storage type")
		}
		storageField["bucketName"] = cfg.S3BucketName
		client, err := aws.NewClient(ctx)
		if err != nil {
			return Store{}, err
		}
		store = Store{
			Documents: aws.NewDocumentStore(client, cfg.S3BucketName),
			Templates: aws.NewTemplateStore(client, cfg.S3BucketName),
		}
	case "remote":
		storageField["remoteURL"] = cfg.RemoteAPIURL
		client := remote.NewClient(cfg.RemoteAPIURL, cfg.RemoteAPITimeout)
		store = Store{
			Documents: remote.NewDocumentStore(client),
			Templates: remote.NewTemplateStore(client),
		}
	default:
		store = Store{
			Documents: memory.NewDocumentStore(),
			Templates: memory.NewTemplateStore(),
		}
		storageField["storageType"] = "in-memory"
	}
	logrus.WithFields(storageField).Info("Use storage")
	return store, nil
}
