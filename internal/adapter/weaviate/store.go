package weaviate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/fault"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"ragseed/internal/seed"
	"ragseed/internal/vector"
)

// hashNamespace derives stable object IDs from chunk hashes, so the object ID
// is the dedup key and Weaviate enforces uniqueness.
var hashNamespace = uuid.MustParse("6f1c3c1e-5b0e-4d7a-9a44-2f0f6c2b8d11")

func ObjectID(hash string) string {
	return uuid.NewSHA1(hashNamespace, []byte(hash)).String()
}

type Store struct {
	client *weaviate.Client
	now    func() time.Time
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client, now: time.Now}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	return vector.NewSchema(s.client).Ensure(ctx)
}

// Upsert creates the object under the hash-derived ID. Weaviate answers 422
// when the ID is taken; that case leaves the first record untouched.
func (s *Store) Upsert(ctx context.Context, hash, content string, vec []float32, source string) error {
	_, err := s.client.Data().Creator().
		WithClassName(vector.ClassName).
		WithID(ObjectID(hash)).
		WithProperties(map[string]interface{}{
			"hash":      hash,
			"text":      content,
			"source":    source,
			"createdAt": s.now().UTC().Format(time.RFC3339Nano),
		}).
		WithVector(vec).
		Do(ctx)
	if err == nil {
		return nil
	}

	var werr *fault.WeaviateClientError
	if errors.As(err, &werr) && werr.StatusCode == http.StatusUnprocessableEntity {
		exists, cerr := s.Exists(ctx, hash)
		if cerr == nil && exists {
			return nil
		}
	}
	return err
}

func (s *Store) Exists(ctx context.Context, hash string) (bool, error) {
	return s.client.Data().Checker().
		WithClassName(vector.ClassName).
		WithID(ObjectID(hash)).
		Do(ctx)
}

// Get returns nil, nil when the hash is unknown.
func (s *Store) Get(ctx context.Context, hash string) (*seed.Record, error) {
	objs, err := s.client.Data().ObjectsGetter().
		WithClassName(vector.ClassName).
		WithID(ObjectID(hash)).
		WithVector().
		Do(ctx)
	if err != nil {
		var werr *fault.WeaviateClientError
		if errors.As(err, &werr) && werr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	if len(objs) == 0 {
		return nil, nil
	}

	obj := objs[0]
	props, _ := obj.Properties.(map[string]interface{})
	rec := &seed.Record{Hash: hash, Vector: obj.Vector}
	if v, ok := props["text"].(string); ok {
		rec.Text = v
	}
	if v, ok := props["source"].(string); ok {
		rec.Source = v
	}
	if v, ok := props["createdAt"].(string); ok {
		if dt, err := strfmt.ParseDateTime(v); err == nil {
			rec.CreatedAt = time.Time(dt)
		}
	}
	return rec, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(vector.ClassName).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	if agg, ok := res.Data["Aggregate"].(map[string]interface{}); ok {
		if rows, ok := agg[vector.ClassName].([]interface{}); ok && len(rows) > 0 {
			if row, ok := rows[0].(map[string]interface{}); ok {
				if meta, ok := row["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						return int(count), nil
					}
				}
			}
		}
	}
	return 0, nil
}
