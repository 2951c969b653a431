package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ynput/ayon-backend-sub000/internal/domain/events"
	"github.com/ynput/ayon-backend-sub000/internal/domain/models"
	appErrors "github.com/ynput/ayon-backend-sub000/pkg/errors"
	"github.com/ynput/ayon-backend-sub000/pkg/settings"
)

const prod = models.VariantProduction

func freezeMaya(version string) FreezeRequest {
	return FreezeRequest{Addons: addons("maya", version)}
}

func TestFreezeMaterializesSettings(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(newTestLibrary(t))
	env.db.addProject("demo")
	env.db.put(models.StudioKey("maya", "1.0", prod), settings.Document{"fps": int64(30)})

	require.NoError(t, env.projects.Freeze(ctx, admin, "demo", freezeMaya("1.0")))

	assert.Equal(t, settings.Document{
		"fps":     int64(30),
		"codec":   "exr",
		"license": "",
		"root":    "",
	}, env.db.row(models.ProjectKey("maya", "1.0", prod, "demo")))

	bundleName := models.ProjectBundleName("demo", prod)
	b, ok := env.db.bundle(bundleName)
	require.True(t, ok)
	assert.True(t, b.IsProject)
	assert.Equal(t, []string{"maya"}, b.AddonNames())

	refs, err := env.projects.Get(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{prod: bundleName}, refs)

	// later studio edits no longer reach the project
	require.NoError(t, env.settings.SetSettings(ctx, manager, models.StudioKey("maya", "1.0", prod), settings.Document{"fps": 50}))
	res, err := env.settings.GetSettings(ctx, admin, models.ProjectKey("maya", "1.0", prod, "demo"))
	require.NoError(t, err)
	assert.Equal(t, int64(30), res.Value["fps"])

	assert.Contains(t, env.events.topics(), events.SettingsChanged)
}

func TestFreezeUnfreezeRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(newTestLibrary(t))
	env.db.addProject("demo")
	env.db.put(models.StudioKey("maya", "1.0", prod), settings.Document{"fps": int64(30)})

	require.NoError(t, env.projects.Freeze(ctx, admin, "demo", freezeMaya("1.0")))
	require.NoError(t, env.projects.Unfreeze(ctx, admin, "demo", ""))

	assert.Nil(t, env.db.row(models.ProjectKey("maya", "1.0", prod, "demo")))
	_, ok := env.db.bundle(models.ProjectBundleName("demo", prod))
	assert.False(t, ok)

	refs, err := env.projects.Get(ctx, "demo")
	require.NoError(t, err)
	assert.Empty(t, refs)
	assert.NotContains(t, env.db.projects["demo"], "bundle")
}

func TestUnfreezeKeepsProjectDifferences(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(newTestLibrary(t))
	env.db.addProject("demo")
	env.db.put(models.StudioKey("maya", "1.0", prod), settings.Document{"fps": int64(30)})
	env.db.put(models.ProjectKey("maya", "1.0", prod, "demo"), settings.Document{"fps": int64(24)})

	require.NoError(t, env.projects.Freeze(ctx, admin, "demo", freezeMaya("1.0")))
	require.NoError(t, env.projects.Unfreeze(ctx, admin, "demo", prod))

	assert.Equal(t, settings.Document{"fps": int64(24)}, env.db.row(models.ProjectKey("maya", "1.0", prod, "demo")))
}

func TestUnfreezeRendersForStudioVersion(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(newTestLibrary(t))
	env.db.addProject("demo")
	env.db.addBundle(models.Bundle{Name: "studio", IsProduction: true, Addons: addons("maya", "1.1")})
	env.db.put(models.StudioKey("maya", "1.0", prod), settings.Document{"fps": int64(30)})
	env.db.put(models.ProjectKey("maya", "1.0", prod, "demo"), settings.Document{"fps": int64(24), "codec": "png"})

	require.NoError(t, env.projects.Freeze(ctx, admin, "demo", freezeMaya("1.0")))
	require.NoError(t, env.projects.Unfreeze(ctx, admin, "demo", prod))

	assert.Equal(t,
		settings.Document{"fps": int64(24), "codec": "png"},
		env.db.row(models.ProjectKey("maya", "1.0", prod, "demo")))
	assert.Equal(t,
		settings.Document{"fps": int64(24), "codec": "png"},
		env.db.row(models.ProjectKey("maya", "1.1", prod, "demo")))
}

func TestUnfreezeMergesIntoExistingTargetRow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(newTestLibrary(t))
	env.db.addProject("demo")
	env.db.addBundle(models.Bundle{Name: "studio", IsProduction: true, Addons: addons("maya", "1.1")})
	env.db.put(models.ProjectKey("maya", "1.1", prod, "demo"), settings.Document{"colorspace": "srgb", "fps": int64(50)})
	env.db.put(models.ProjectKey("maya", "1.0", prod, "demo"), settings.Document{"codec": "png"})

	require.NoError(t, env.projects.Freeze(ctx, admin, "demo", freezeMaya("1.0")))
	env.db.put(models.ProjectKey("maya", "1.0", prod, "demo"), settings.Document{"codec": "png", "fps": int64(24)})
	require.NoError(t, env.projects.Unfreeze(ctx, admin, "demo", prod))

	assert.Equal(t,
		settings.Document{"colorspace": "srgb", "fps": int64(24), "codec": "png"},
		env.db.row(models.ProjectKey("maya", "1.1", prod, "demo")))
}

func TestFreezeRejects(t *testing.T) {
	ctx := context.Background()

	t.Run("addon without project override rolls back", func(t *testing.T) {
		env := newTestEnv(newTestLibrary(t))
		env.db.addProject("demo")

		err := env.projects.Freeze(ctx, admin, "demo", FreezeRequest{Addons: addons("maya", "1.0", "core", "1.0")})
		require.Error(t, err)
		assert.True(t, appErrors.IsValidation(err))

		_, ok := env.db.bundle(models.ProjectBundleName("demo", prod))
		assert.False(t, ok)
		assert.Nil(t, env.db.row(models.ProjectKey("maya", "1.0", prod, "demo")))
		assert.Empty(t, env.events.events)
	})

	t.Run("dev variant", func(t *testing.T) {
		env := newTestEnv(newTestLibrary(t))
		env.db.addProject("demo")
		err := env.projects.Freeze(ctx, admin, "demo", FreezeRequest{Variant: "dev1", Addons: addons("maya", "1.0")})
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("no project permission", func(t *testing.T) {
		env := newTestEnv(newTestLibrary(t))
		env.db.addProject("secret")
		err := env.projects.Freeze(ctx, artist, "secret", freezeMaya("1.0"))
		assert.True(t, appErrors.IsPermission(err))
		assert.True(t, appErrors.IsPermission(env.projects.Unfreeze(ctx, artist, "secret", "")))
	})

	t.Run("unknown project", func(t *testing.T) {
		env := newTestEnv(newTestLibrary(t))
		err := env.projects.Freeze(ctx, admin, "missing", freezeMaya("1.0"))
		assert.True(t, appErrors.IsNotFound(err))
	})
}

func TestUnfreezeWithoutBundle(t *testing.T) {
	env := newTestEnv(newTestLibrary(t))
	env.db.addProject("demo")
	require.NoError(t, env.projects.Unfreeze(context.Background(), artist, "demo", ""))
	assert.Empty(t, env.events.events)
}
