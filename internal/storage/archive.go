// Package storage archives delivered documents to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/digkill/resumegate/internal/models"
)

type Config struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	UsePathStyle bool
	Prefix       string
}

// Archive writes one private JSON object per delivered document.
type Archive struct {
	cfg    Config
	client *s3.Client
	now    func() time.Time
}

func NewArchive(cfg Config) (*Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 region is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3 credentials are required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "documents"
	}

	options := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		options.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	return &Archive{
		cfg:    cfg,
		client: s3.New(options),
		now:    time.Now,
	}, nil
}

type archivedDocument struct {
	HashedID   string                 `json:"hashedId"`
	ArchivedAt time.Time              `json:"archivedAt"`
	Document   *models.DocumentResult `json:"document"`
}

// ArchiveDocument stores doc under the hashed identifier and returns the object key.
func (a *Archive) ArchiveDocument(ctx context.Context, hashedID string, doc *models.DocumentResult) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("no document to archive")
	}
	now := a.now().UTC()
	body, err := json.Marshal(archivedDocument{HashedID: hashedID, ArchivedAt: now, Document: doc})
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}

	key := a.objectKey(hashedID, now)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(a.cfg.Bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(body),
		ContentType:          aws.String("application/json"),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
		Metadata: map[string]string{
			"hashed-id": hashedID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload to s3: %w", err)
	}
	return key, nil
}

func (a *Archive) objectKey(hashedID string, now time.Time) string {
	prefix := strings.Trim(a.cfg.Prefix, "/")
	return path.Join(prefix, hashedID, fmt.Sprintf("%04d/%02d/%02d", now.Year(), now.Month(), now.Day()), uuid.NewString()+".json")
}
