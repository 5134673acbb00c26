package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zombor/betslip-tracker/internal/blobstore"
)

// ErrNotFound is returned by Repository.Load when the user has no credential
var ErrNotFound = errors.New("credential not found")

// Repository persists one credential per user identity
type Repository interface {
	Load(ctx context.Context, userID string) (*Credential, error)
	Save(ctx context.Context, userID string, cred *Credential) error
	Delete(ctx context.Context, userID string) error
	Exists(ctx context.Context, userID string) (bool, error)
}

// BlobRepository stores credentials as JSON blobs in a bucket
type BlobRepository struct {
	store  blobstore.Store
	bucket string
}

// NewBlobRepository creates a repository over store/bucket
func NewBlobRepository(store blobstore.Store, bucket string) *BlobRepository {
	return &BlobRepository{store: store, bucket: bucket}
}

// TokenKey is the blob key holding userID's credential
func TokenKey(userID string) string {
	return fmt.Sprintf("bot_user_tokens/%s/token.json", userID)
}

// Load reads and decodes the credential blob
func (r *BlobRepository) Load(ctx context.Context, userID string) (*Credential, error) {
	data, err := r.store.Get(ctx, r.bucket, TokenKey(userID))
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("downloading token: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("decoding token: %w", err)
	}
	return &cred, nil
}

// Save encodes and overwrites the credential blob
func (r *BlobRepository) Save(ctx context.Context, userID string, cred *Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if err := r.store.Put(ctx, r.bucket, TokenKey(userID), data); err != nil {
		return fmt.Errorf("uploading token: %w", err)
	}
	return nil
}

// Delete removes the credential blob
func (r *BlobRepository) Delete(ctx context.Context, userID string) error {
	if err := r.store.Delete(ctx, r.bucket, TokenKey(userID)); err != nil {
		return fmt.Errorf("deleting token: %w", err)
	}
	return nil
}

// Exists checks for the credential blob
func (r *BlobRepository) Exists(ctx context.Context, userID string) (bool, error) {
	return r.store.Exists(ctx, r.bucket, TokenKey(userID))
}
