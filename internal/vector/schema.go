package vector

import (
	"context"
	"log/slog"

	"github.com/weaviate/weaviate/entities/models"
)

// ClassName holds one object per unique chunk hash.
const ClassName = "SeedChunk"

// Distance is fixed for the life of the class; Weaviate cannot change it
// after creation.
const Distance = "dot"

// SchemaClient defines the Weaviate schema operations EnsureSchema needs.
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

func properties() []*models.Property {
	return []*models.Property{
		{
			Name:         "hash",
			DataType:     []string{"text"},
			Tokenization: "field",
		},
		{
			Name:     "text",
			DataType: []string{"text"},
		},
		{
			Name:         "source",
			DataType:     []string{"text"},
			Tokenization: "field",
		},
		{
			Name:     "createdAt",
			DataType: []string{"date"},
		},
	}
}

// EnsureSchema creates the chunk class when missing and adds any property an
// older deployment lacks.
func EnsureSchema(ctx context.Context, client SchemaClient) error {
	exists, err := client.ClassExists(ctx, ClassName)
	if err != nil {
		return err
	}

	props := properties()
	if !exists {
		class := &models.Class{
			Class:       ClassName,
			Description: "A unique chunk of seeded content keyed by its hash",
			Vectorizer:  "none",
			VectorIndexConfig: map[string]interface{}{
				"distance": Distance,
			},
			Properties: props,
		}
		return client.CreateClass(ctx, class)
	}

	class, err := client.GetClass(ctx, ClassName)
	if err != nil {
		return err
	}
	if cfg, ok := class.VectorIndexConfig.(map[string]interface{}); ok {
		if d, ok := cfg["distance"].(string); ok && d != Distance {
			slog.WarnContext(ctx, "existing class uses a different distance metric", "class", ClassName, "distance", d)
		}
	}

	existing := make(map[string]bool)
	for _, p := range class.Properties {
		existing[p.Name] = true
	}
	for _, p := range props {
		if !existing[p.Name] {
			if err := client.AddProperty(ctx, ClassName, p); err != nil {
				return err
			}
		}
	}
	return nil
}
