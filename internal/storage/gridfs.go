package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoClient holds the connection behind GridFSStore.
type MongoClient struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongoConnection connects and pings MongoDB.
func NewMongoConnection(ctx context.Context, uri, database string) (*MongoClient, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &MongoClient{Client: client, Database: client.Database(database)}, nil
}

// Close disconnects the client.
func (mc *MongoClient) Close(ctx context.Context) error {
	return mc.Client.Disconnect(ctx)
}

// Ping checks the connection, used by readiness checks.
func (mc *MongoClient) Ping(ctx context.Context) error {
	return mc.Client.Ping(ctx, nil)
}

// GridFSStore maps each storage bucket to a GridFS bucket of the same name.
// Object paths are stored as GridFS filenames.
type GridFSStore struct {
	db      *mongo.Database
	mu      sync.Mutex
	buckets map[string]*gridfs.Bucket
}

// NewGridFSStore returns a store over the client's database.
func NewGridFSStore(mc *MongoClient) *GridFSStore {
	return &GridFSStore{db: mc.Database, buckets: make(map[string]*gridfs.Bucket)}
}

func (s *GridFSStore) bucket(name string) (*gridfs.Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buckets[name]; ok {
		return b, nil
	}
	b, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(name))
	if err != nil {
		return nil, fmt.Errorf("failed to create GridFSBucket %s: %w", name, err)
	}
	s.buckets[name] = b
	return b, nil
}

type gridFile struct {
	ID         primitive.ObjectID `bson:"_id"`
	Length     int64              `bson:"length"`
	UploadDate time.Time          `bson:"uploadDate"`
	Name       string             `bson:"filename"`
	Metadata   bson.M             `bson:"metadata"`
}

func (f gridFile) object() Object {
	uploaded := f.UploadDate.UTC()
	obj := Object{
		Name:      f.Name[strings.LastIndex(f.Name, "/")+1:],
		Path:      f.Name,
		Size:      f.Length,
		CreatedAt: &uploaded,
		UpdatedAt: &uploaded,
	}
	if ct, ok := f.Metadata["content_type"].(string); ok {
		obj.ContentType = ct
	}
	return obj
}

// Put uploads body as objectPath, replacing any previous version.
func (s *GridFSStore) Put(ctx context.Context, bucket, objectPath, contentType string, body io.Reader) (*Object, error) {
	p, err := CleanPath(objectPath)
	if err != nil {
		return nil, err
	}
	b, err := s.bucket(bucket)
	if err != nil {
		return nil, err
	}
	if err := s.Remove(ctx, bucket, []string{p}); err != nil {
		return nil, err
	}

	opts := options.GridFSUpload().SetMetadata(bson.M{
		"content_type": contentType,
		"uploaded_at":  time.Now().UTC(),
	})
	counter := &countingReader{r: body}
	if _, err := b.UploadFromStream(p, counter, opts); err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	now := time.Now().UTC()
	return &Object{
		Name:        p[strings.LastIndex(p, "/")+1:],
		Path:        p,
		ContentType: contentType,
		Size:        counter.n,
		CreatedAt:   &now,
		UpdatedAt:   &now,
	}, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// List pages through filenames starting with prefix.
func (s *GridFSStore) List(ctx context.Context, bucket, prefix string, opts ListOptions) ([]Object, error) {
	b, err := s.bucket(bucket)
	if err != nil {
		return nil, err
	}
	order := 1
	if opts.Order == SortDesc {
		order = -1
	}
	find := options.GridFSFind().
		SetSort(bson.D{{Key: "filename", Value: order}}).
		SetSkip(int32(opts.Offset))
	if opts.Limit > 0 {
		find.SetLimit(int32(opts.Limit))
	}
	filter := bson.M{"filename": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}

	cursor, err := b.FindContext(ctx, filter, find)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", bucket, err)
	}
	defer cursor.Close(ctx)

	var files []gridFile
	if err := cursor.All(ctx, &files); err != nil {
		return nil, fmt.Errorf("list %s: %w", bucket, err)
	}
	out := make([]Object, 0, len(files))
	for _, f := range files {
		out = append(out, f.object())
	}
	return out, nil
}

// Remove deletes every stored revision of the given paths.
func (s *GridFSStore) Remove(ctx context.Context, bucket string, paths []string) error {
	b, err := s.bucket(bucket)
	if err != nil {
		return err
	}
	for _, p := range paths {
		cursor, err := b.FindContext(ctx, bson.M{"filename": p})
		if err != nil {
			return fmt.Errorf("remove %s/%s: %w", bucket, p, err)
		}
		var files []gridFile
		if err := cursor.All(ctx, &files); err != nil {
			return fmt.Errorf("remove %s/%s: %w", bucket, p, err)
		}
		for _, f := range files {
			if err := b.DeleteContext(ctx, f.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
				return fmt.Errorf("remove %s/%s: %w", bucket, p, err)
			}
		}
	}
	return nil
}

// Open streams the latest revision of objectPath.
func (s *GridFSStore) Open(ctx context.Context, bucket, objectPath string) (io.ReadCloser, *Object, error) {
	b, err := s.bucket(bucket)
	if err != nil {
		return nil, nil, err
	}
	stream, err := b.OpenDownloadStreamByName(objectPath)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("download failed: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetReadDeadline(deadline)
	}

	file := stream.GetFile()
	meta := gridFile{Length: file.Length, UploadDate: file.UploadDate, Name: file.Name}
	if file.Metadata != nil {
		_ = bson.Unmarshal(file.Metadata, &meta.Metadata)
	}
	obj := meta.object()
	return stream, &obj, nil
}
