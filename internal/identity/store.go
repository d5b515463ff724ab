// Package identity binds the service to the identity provider's user records.
// The provider owns identity lifecycle; the service only reads identities and
// replaces their metadata blob.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/employee-service/internal/domain"
)

var (
	// ErrNotFound is returned for unknown identities.
	ErrNotFound = errors.New("identity not found")
	// ErrEmailTaken is returned when registering an email twice.
	ErrEmailTaken = errors.New("email already registered")
)

// Store reads identities and replaces their metadata.
type Store interface {
	Create(ctx context.Context, identity *domain.Identity) error
	GetByExternalID(ctx context.Context, externalID string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	GetMetadata(ctx context.Context, externalID string) (domain.IdentityMetadata, error)
	// SetMetadata merges meta into the stored blob. It is idempotent, and a
	// write older than the stored UpdatedAt is ignored.
	SetMetadata(ctx context.Context, externalID string, meta domain.IdentityMetadata) error
}

const (
	fieldEmail        = "email"
	fieldPasswordHash = "password_hash"
	fieldMetadata     = "metadata"
	fieldMetadataAt   = "metadata_updated_at"
	fieldCreatedAt    = "created_at"
)

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a Store keeping identities in Redis hashes.
func NewRedisStore(client *redis.Client, prefix string) Store {
	if prefix == "" {
		prefix = "identity"
	}
	return &redisStore{client: client, prefix: prefix}
}

func (s *redisStore) identityKey(externalID string) string {
	return s.prefix + ":" + externalID
}

func (s *redisStore) emailKey(email string) string {
	return s.prefix + ":email:" + strings.ToLower(strings.TrimSpace(email))
}

func (s *redisStore) Create(ctx context.Context, identity *domain.Identity) error {
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now().UTC()
	}
	reserved, err := s.client.SetNX(ctx, s.emailKey(identity.Email), identity.ExternalID, 0).Result()
	if err != nil {
		return err
	}
	if !reserved {
		return ErrEmailTaken
	}

	meta, err := json.Marshal(identity.Metadata)
	if err != nil {
		return err
	}
	err = s.client.HSet(ctx, s.identityKey(identity.ExternalID),
		fieldEmail, identity.Email,
		fieldPasswordHash, identity.PasswordHash,
		fieldMetadata, meta,
		fieldCreatedAt, identity.CreatedAt.Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		_ = s.client.Del(ctx, s.emailKey(identity.Email)).Err()
		return err
	}
	return nil
}

func (s *redisStore) GetByExternalID(ctx context.Context, externalID string) (*domain.Identity, error) {
	fields, err := s.client.HGetAll(ctx, s.identityKey(externalID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	identity := &domain.Identity{
		ExternalID:   externalID,
		Email:        fields[fieldEmail],
		PasswordHash: fields[fieldPasswordHash],
	}
	if raw := fields[fieldCreatedAt]; raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			identity.CreatedAt = ts
		}
	}
	if raw := fields[fieldMetadata]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &identity.Metadata); err != nil {
			return nil, err
		}
	}
	return identity, nil
}

func (s *redisStore) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	externalID, err := s.client.Get(ctx, s.emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.GetByExternalID(ctx, externalID)
}

func (s *redisStore) GetMetadata(ctx context.Context, externalID string) (domain.IdentityMetadata, error) {
	var meta domain.IdentityMetadata
	raw, err := s.client.HGet(ctx, s.identityKey(externalID), fieldMetadata).Result()
	if errors.Is(err, redis.Nil) {
		return meta, ErrNotFound
	}
	if err != nil {
		return meta, err
	}
	err = json.Unmarshal([]byte(raw), &meta)
	return meta, err
}

// setMetadataScript merges the JSON patch in ARGV[2] into the metadata field
// of an existing identity unless the stored write time (unix micros, field
// ARGV[3]) is newer than ARGV[4]. Returns 0 for a missing identity, 2 for a
// stale write and 1 otherwise.
var setMetadataScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return 0
	end
	local stored = redis.call('HGET', KEYS[1], ARGV[3])
	if stored and tonumber(stored) > tonumber(ARGV[4]) then
		return 2
	end
	local current = {}
	local raw = redis.call('HGET', KEYS[1], ARGV[1])
	if raw then
		current = cjson.decode(raw)
	end
	for k, v in pairs(cjson.decode(ARGV[2])) do
		current[k] = v
	end
	redis.call('HSET', KEYS[1], ARGV[1], cjson.encode(current), ARGV[3], ARGV[4])
	return 1
`)

func (s *redisStore) SetMetadata(ctx context.Context, externalID string, meta domain.IdentityMetadata) error {
	if meta.UpdatedAt.IsZero() {
		meta.UpdatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	writtenAt := strconv.FormatInt(meta.UpdatedAt.UnixMicro(), 10)
	result, err := setMetadataScript.Run(ctx, s.client, []string{s.identityKey(externalID)},
		fieldMetadata, raw, fieldMetadataAt, writtenAt).Int()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrNotFound
	}
	return nil
}
