// Package mongo persists catalog collections in a MongoDB collection, one
// document per key.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/MrSnakeDoc/catalogd/internal/connect"
	"github.com/MrSnakeDoc/catalogd/internal/logger"
	"github.com/MrSnakeDoc/catalogd/internal/store"
)

const (
	defaultCollection = "catalog_cache"
	defaultTimeout    = 5 * time.Second
)

// Options configures the backend.
type Options struct {
	Client     *mongodriver.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

type document struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type Backend struct {
	client  *mongodriver.Client
	coll    *mongodriver.Collection
	timeout time.Duration
}

// NewBackend returns a Backend over an already connected client.
func NewBackend(opts Options) (*Backend, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	collection := opts.Collection
	if collection == "" {
		collection = defaultCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Backend{
		client:  opts.Client,
		coll:    opts.Client.Database(opts.Database).Collection(collection),
		timeout: timeout,
	}, nil
}

// Connect dials uri and verifies the connection with a single ping.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongodriver.Client, error) {
	client, err := newClient(uri, timeout)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// ConnectWithRetry dials uri and pings it until it answers or
// opts.ConnectTimeout elapses.
func ConnectWithRetry(ctx context.Context, uri string, opts connect.Options, log logger.Logger) (*mongodriver.Client, error) {
	client, err := newClient(uri, opts.PingTimeout)
	if err != nil {
		return nil, err
	}

	ping := func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}
	if _, err := connect.WithRetry(ctx, "mongo", redactURI(uri), opts, ping, log); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func newClient(uri string, timeout time.Duration) (*mongodriver.Client, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	client, err := mongodriver.Connect(options.Client().ApplyURI(uri).SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	return client, nil
}

// redactURI strips credentials so the address can be logged.
func redactURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "mongodb"
	}
	return u.Redacted()
}

func (b *Backend) Name() string { return "mongo" }

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var doc document
	if err := b.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, store.ErrMiss
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return []byte(doc.Value), nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	doc := document{Key: key, Value: string(value), UpdatedAt: time.Now().UTC()}
	_, err := b.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.client.Ping(ctx, readpref.Primary())
}

func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	filter := bson.M{"_id": bson.M{"$regex": "^" + store.KeyPrefix}}
	cur, err := b.coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var keys []string
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode key: %w", err)
		}
		keys = append(keys, doc.Key)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}
