package persistence

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/plugin"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormPluginInstanceRepository(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormPluginInstanceRepository(db.DB)
	tenantID := uuid.New()
	ctx := ctxForTenant(tenantID)

	def := plugin.Definition{
		Slug:     "stripe",
		Category: plugin.CategoryPayment,
		Config:   []plugin.ConfigField{{Key: "publishable_key", Required: true}},
	}
	inst, err := plugin.NewInstance(tenantID, def, map[string]string{"publishable_key": "pk_test"}, "lic")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, inst))

	got, err := repo.FindBySlug(ctx, "stripe")
	require.NoError(t, err)
	assert.Equal(t, "pk_test", got.Config["publishable_key"])
	assert.True(t, got.Enabled)

	got.Disable()
	require.NoError(t, repo.Update(ctx, got))
	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].Enabled)

	_, err = repo.FindBySlug(ctxForTenant(uuid.New()), "stripe")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, inst.ID))
	assert.ErrorIs(t, repo.Delete(ctx, inst.ID), shared.ErrNotFound)
}
