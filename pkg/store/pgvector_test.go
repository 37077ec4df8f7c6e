package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/sitekb/internal/models"
)

type fixedEmbedder struct {
	dim   int
	calls int
}

func (f *fixedEmbedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, f.dim)
		v[0] = float32(len(t))
		v[1] = 1
		out[i] = v
	}
	return out, nil
}

func testStore(t *testing.T, emb *fixedEmbedder) *KnowledgeStore {
	t.Helper()
	conn := os.Getenv("DATABASE_URL")
	if conn == "" {
		t.Skip("DATABASE_URL not set")
	}

	config := KnowledgeStoreConfig{
		ConnString: conn,
		TableName:  fmt.Sprintf("kb_test_%d", time.Now().UnixNano()),
		VectorDim:  8,
		BatchSize:  2,
	}
	if emb != nil {
		config.Embedder = emb
	}

	ctx := context.Background()
	ks, err := NewWithConfig(ctx, config)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = ks.pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+ks.table)
		ks.Close()
	})
	return ks
}

func records(n int) []models.Record {
	out := make([]models.Record, n)
	for i := range out {
		out[i] = models.Record{
			Question:  fmt.Sprintf("¿Pregunta %d?", i),
			Answer:    fmt.Sprintf("Respuesta %d", i),
			Category:  "servicios",
			Source:    "Web (HTML)",
			SourceURL: "https://deseguridad.net/servicios",
		}
	}
	return out
}

func TestImportAddAndReplace(t *testing.T) {
	ks := testStore(t, nil)
	ctx := context.Background()

	n, err := ks.Import(ctx, records(5), false)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = ks.Import(ctx, records(3), false)
	require.NoError(t, err)
	count, err := ks.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, count)

	_, err = ks.Import(ctx, records(2), true)
	require.NoError(t, err)
	count, err = ks.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestImportWithEmbeddings(t *testing.T) {
	emb := &fixedEmbedder{dim: 8}
	ks := testStore(t, emb)
	ctx := context.Background()

	n, err := ks.Import(ctx, records(5), false)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 3, emb.calls, "one embedding call per batch")

	query := make([]float32, 8)
	query[0], query[1] = float32(len("¿Pregunta 3?")), 1
	found, err := ks.Search(ctx, query, 1)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(found), 1)
	for _, r := range found {
		assert.Equal(t, "servicios", r.Category)
	}
}

func TestImportRejectsWrongDimension(t *testing.T) {
	ks := testStore(t, &fixedEmbedder{dim: 4})
	_, err := ks.Import(context.Background(), records(1), false)
	assert.Error(t, err)
}

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "ok", sanitizeUTF8("o\xffk"))
	assert.Equal(t, "canción", sanitizeUTF8("canción"))
}
