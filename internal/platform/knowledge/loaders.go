package knowledge

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// DirLoader reads every *.json file in a directory. A missing directory
// yields an empty set; undecodable files are skipped.
type DirLoader struct {
	Dir    string
	Logger zerolog.Logger
}

func (l DirLoader) Load(ctx context.Context) ([]Document, error) {
	entries, err := os.ReadDir(l.Dir)
	if os.IsNotExist(err) {
		l.Logger.Warn().Str("dir", l.Dir).Msg("knowledge base directory not found")
		return []Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.Dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	docs := make([]Document, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := os.ReadFile(filepath.Join(l.Dir, name))
		if err != nil {
			l.Logger.Error().Err(err).Str("file", name).Msg("read knowledge document")
			continue
		}
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			l.Logger.Error().Err(err).Str("file", name).Msg("decode knowledge document")
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

func NewMinioClient(cfg MinioConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return client, nil
}

// BucketLoader reads every .json object in a MinIO bucket.
type BucketLoader struct {
	Client *minio.Client
	Bucket string
	Prefix string
	Logger zerolog.Logger
}

func (l BucketLoader) Load(ctx context.Context) ([]Document, error) {
	var docs []Document
	objects := l.Client.ListObjects(ctx, l.Bucket, minio.ListObjectsOptions{Prefix: l.Prefix, Recursive: true})
	for info := range objects {
		if info.Err != nil {
			return nil, fmt.Errorf("list bucket %s: %w", l.Bucket, info.Err)
		}
		if !strings.HasSuffix(info.Key, ".json") {
			continue
		}
		doc, err := l.fetch(ctx, info.Key)
		if err != nil {
			l.Logger.Error().Err(err).Str("object", info.Key).Msg("load knowledge document")
			continue
		}
		docs = append(docs, doc)
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, nil
}

func (l BucketLoader) fetch(ctx context.Context, key string) (Document, error) {
	obj, err := l.Client.GetObject(ctx, l.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return Document{}, err
	}
	defer obj.Close()

	raw, err := io.ReadAll(obj)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}
