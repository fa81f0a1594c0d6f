package nested_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nested"
	"github.com/hupe1980/nested/blobstore"
	"github.com/hupe1980/nested/resource"
	"github.com/hupe1980/nested/typedesc"
)

func eventType() *typedesc.Type {
	return typedesc.FixedDim(8, typedesc.Record(
		typedesc.Field{Name: "id", Type: typedesc.Scalar(typedesc.Int64)},
		typedesc.Field{Name: "score", Type: typedesc.Optional(typedesc.Scalar(typedesc.Float64))},
	))
}

func TestNew_Unlimited(t *testing.T) {
	c, err := nested.New(eventType())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.SetInt(42, 3, 0))
	v, err := c.Int(3, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	// Optional fields start NA, non-optional ones are always valid.
	na, err := c.IsNA(3, 1)
	require.NoError(t, err)
	assert.True(t, na)

	valid, err := c.IsValid(3, 0)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestNew_MemoryLimit(t *testing.T) {
	_, err := nested.New(eventType(), nested.WithMemoryLimit(16))
	assert.ErrorIs(t, err, nested.ErrOutOfMemory)
}

func TestNew_SharedController(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})

	a, err := nested.New(eventType(), nested.WithController(rc))
	require.NoError(t, err)
	b, err := nested.New(eventType(), nested.WithController(rc))
	require.NoError(t, err)

	assert.Positive(t, rc.MemoryUsage())

	a.Close()
	b.Close()
	assert.Zero(t, rc.MemoryUsage())
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	c, err := nested.New(eventType())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.SetFloat(0.87, 5, 1))
	require.NoError(t, c.SetValid(5, 1))

	require.NoError(t, nested.Save(ctx, store, "events", c, nested.WithCompression("lz4")))

	got, err := nested.Load(ctx, store, "events")
	require.NoError(t, err)
	defer got.Close()

	score, err := got.Float(5, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.87, score, 1e-12)

	valid, err := got.IsValid(5, 1)
	require.NoError(t, err)
	assert.True(t, valid)

	na, err := got.IsNA(4, 1)
	require.NoError(t, err)
	assert.True(t, na)
}
