package aws

import (
	"bytes"
	"collab-docs/core"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

const (
	documentsPrefix = "documents/"
	templatesPrefix = "templates/"
)

// ObjectAPI is the part of the S3 client the stores use.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// NewClient builds an S3 client from the default AWS configuration chain.
func NewClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// bucket stores one JSON object per entity below prefix.
type bucket struct {
	client ObjectAPI
	name   string
	prefix string
}

func (b *bucket) key(id string) (string, error) {
	// ids are plain names, never paths
	if id == "" || id == "." || id == ".." || path.Base(id) != id {
		return "", fmt.Errorf("invalid id %q: %w", id, core.ErrNotFound)
	}
	return b.prefix + id + ".json", nil
}

func (b *bucket) get(ctx context.Context, id string, v any) error {
	key, err := b.key(id)
	if err != nil {
		return err
	}
	return b.getKey(ctx, key, v)
}

func (b *bucket) getKey(ctx context.Context, key string, v any) error {
	resp, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return fmt.Errorf("%s: %w", path.Base(key), core.ErrNotFound)
		}
		return fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return json.Unmarshal(data, v)
}

func (b *bucket) put(ctx context.Context, id string, v any) error {
	key, err := b.key(id)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.name),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return nil
}

// remove deletes the object after checking it exists; S3 deletes are idempotent.
func (b *bucket) remove(ctx context.Context, id string, v any) error {
	if err := b.get(ctx, id, v); err != nil {
		return err
	}
	key, _ := b.key(id)
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// each decodes every object under the prefix, skipping unreadable ones.
func (b *bucket) each(ctx context.Context, decode func(key string) error) error {
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.name),
		Prefix: aws.String(b.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list objects under %s: %w", b.prefix, err)
		}
		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			if path.Ext(key) != ".json" {
				continue
			}
			if err := decode(key); err != nil {
				logrus.WithField("key", key).WithError(err).Warn("Failed to read object, skipping")
			}
		}
	}
	return nil
}

type documentStore struct {
	bucket *bucket
}

// NewDocumentStore keeps documents as JSON objects under documents/ in bucketName.
func NewDocumentStore(client ObjectAPI, bucketName string) core.DocumentStore {
	return &documentStore{&bucket{client: client, name: bucketName, prefix: documentsPrefix}}
}

func (s *documentStore) List(ctx context.Context) ([]*core.Document, error) {
	docs := []*core.Document{}
	err := s.bucket.each(ctx, func(key string) error {
		var doc core.Document
		if err := s.bucket.getKey(ctx, key, &doc); err != nil {
			return err
		}
		docs = append(docs, &doc)
		return nil
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to list documents")
		return nil, err
	}
	core.SortNewestFirst(docs)
	return docs, nil
}

func (s *documentStore) Get(ctx context.Context, id string) (*core.Document, error) {
	var doc core.Document
	if err := s.bucket.get(ctx, id, &doc); err != nil {
		return nil, fmt.Errorf("document %w", err)
	}
	return &doc, nil
}

func (s *documentStore) Create(ctx context.Context, document *core.Document) (*core.Document, error) {
	doc := *document
	doc.ID = ulid.Make().String()
	doc.CreatedAt = time.Now().UTC()
	doc.UpdatedAt = doc.CreatedAt

	log := logrus.WithFields(logrus.Fields{"document_id": doc.ID, "bucket": s.bucket.name})
	if err := s.bucket.put(ctx, doc.ID, &doc); err != nil {
		log.WithError(err).Error("Failed to create document")
		return nil, err
	}
	log.Info("Document created successfully")
	return &doc, nil
}

func (s *documentStore) Update(ctx context.Context, id string, patch core.DocumentPatch) (*core.Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(doc)
	doc.UpdatedAt = time.Now().UTC()
	if err := s.bucket.put(ctx, id, doc); err != nil {
		logrus.WithField("document_id", id).WithError(err).Error("Failed to update document")
		return nil, err
	}
	return doc, nil
}

func (s *documentStore) Delete(ctx context.Context, id string) error {
	if err := s.bucket.remove(ctx, id, &core.Document{}); err != nil {
		return fmt.Errorf("document %w", err)
	}
	logrus.WithField("document_id", id).Info("Document deleted successfully")
	return nil
}

type templateStore struct {
	bucket *bucket
}

// NewTemplateStore keeps templates as JSON objects under templates/ in bucketName.
func NewTemplateStore(client ObjectAPI, bucketName string) core.TemplateStore {
	return &templateStore{&bucket{client: client, name: bucketName, prefix: templatesPrefix}}
}

func (s *templateStore) GetAll(ctx context.Context) ([]*core.Template, error) {
	tpls := []*core.Template{}
	err := s.bucket.each(ctx, func(key string) error {
		var tpl core.Template
		if err := s.bucket.getKey(ctx, key, &tpl); err != nil {
			return err
		}
		tpls = append(tpls, &tpl)
		return nil
	})
	if err != nil {
		return nil, err
	}
	core.SortOldestFirst(tpls)
	return tpls, nil
}

func (s *templateStore) GetByID(ctx context.Context, id string) (*core.Template, error) {
	var tpl core.Template
	if err := s.bucket.get(ctx, id, &tpl); err != nil {
		return nil, fmt.Errorf("template %w", err)
	}
	return &tpl, nil
}

func (s *templateStore) Save(ctx context.Context, template *core.Template) (*core.Template, error) {
	tpl := *template
	tpl.ID = ulid.Make().String()
	tpl.CreatedAt = time.Now().UTC()
	tpl.UpdatedAt = tpl.CreatedAt
	if err := s.bucket.put(ctx, tpl.ID, &tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (s *templateStore) Update(ctx context.Context, template *core.Template) (*core.Template, error) {
	existing, err := s.GetByID(ctx, template.ID)
	if err != nil {
		return nil, err
	}
	tpl := *template
	tpl.CreatedAt = existing.CreatedAt
	tpl.UpdatedAt = time.Now().UTC()
	if err := s.bucket.put(ctx, tpl.ID, &tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (s *templateStore) Delete(ctx context.Context, id string) error {
	if err := s.bucket.remove(ctx, id, &core.Template{}); err != nil {
		return fmt.Errorf("template %w", err)
	}
	return nil
}
