package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore is a DocumentStore backed by Google Cloud Firestore
type FirestoreStore struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreStore connects to projectID. credentialsFile may be empty to
// use application default credentials (or the emulator when
// FIRESTORE_EMULATOR_HOST is set).
func NewFirestoreStore(ctx context.Context, projectID, credentialsFile string, logger *zap.Logger) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, errors.New("firestore project id is not configured")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	logger.Info("Firestore client created", zap.String("project_id", projectID))
	return &FirestoreStore{client: client, logger: logger}, nil
}

func (s *FirestoreStore) Write(ctx context.Context, collection, id string, fields map[string]any) (string, error) {
	coll := s.client.Collection(collection)
	if id == "" {
		ref, _, err := coll.Add(ctx, fields)
		if err != nil {
			return "", fmt.Errorf("failed to add document: %w", err)
		}
		return ref.ID, nil
	}

	if _, err := coll.Doc(id).Set(ctx, fields); err != nil {
		return "", fmt.Errorf("failed to set document %s: %w", id, err)
	}
	return id, nil
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return snap.Data(), nil
}

func (s *FirestoreStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	q := s.client.Collection(collection).Query
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		q = q.Where(f.Field, string(f.Op), f.Value)
	}

	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}

	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, Document{ID: snap.Ref.ID, Fields: snap.Data()})
	}
	return docs, nil
}

func (s *FirestoreStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close firestore client: %w", err)
	}
	return nil
}
