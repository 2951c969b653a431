package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ynput/ayon-backend-sub000/pkg/settings"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.2.0", "1.10.0", -1},
		{"2.0", "1.9.9", 1},
		{"1.0", "1.0.0", 0},
		{"1.0.0-dev", "1.0.0", -1},
		{"1.0.0+build.1", "1.0.0", 0},
		{"v3.1", "3.0", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompareVersions(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestAddonDefinitionLatest(t *testing.T) {
	def := &AddonDefinition{Name: "core", Versions: map[string]*Addon{
		"1.2.0":  {Name: "core", Version: "1.2.0"},
		"1.10.0": {Name: "core", Version: "1.10.0"},
		"1.9.0":  {Name: "core", Version: "1.9.0"},
	}}
	assert.Equal(t, []string{"1.2.0", "1.9.0", "1.10.0"}, def.VersionList())
	assert.Equal(t, "1.10.0", def.Latest().Version)
	assert.Nil(t, (&AddonDefinition{}).Latest())
}

func TestAddonConvertOverrides(t *testing.T) {
	v2 := &Addon{Name: "a", Version: "2.0", Schema: settings.NewSchema(settings.Integer("y", 0))}

	// no hook: best-effort field-name match drops x
	got, err := v2.ConvertOverrides("1.0", settings.Document{"x": 5})
	require.NoError(t, err)
	assert.Equal(t, settings.Document{}, got)

	v2.AddConversion("1.0", func(doc settings.Document) (settings.Document, error) {
		doc["y"] = doc["x"]
		delete(doc, "x")
		return doc, nil
	})
	src := settings.Document{"x": 5}
	got, err = v2.ConvertOverrides("1.0", src)
	require.NoError(t, err)
	assert.Equal(t, settings.Document{"y": int64(5)}, got)
	assert.Equal(t, settings.Document{"x": 5}, src, "input is not mutated")

	// same version skips hooks
	got, err = v2.ConvertOverrides("2.0", settings.Document{"y": 1, "x": 2})
	require.NoError(t, err)
	assert.Equal(t, settings.Document{"y": int64(1)}, got)

	v2.AddConversion(AnyVersion, func(settings.Document) (settings.Document, error) {
		return nil, errors.New("boom")
	})
	_, err = v2.ConvertOverrides("0.5", settings.Document{})
	assert.Error(t, err)
}

func TestAddonWithoutSettings(t *testing.T) {
	a := &Addon{Name: "tools", Version: "1.0"}
	assert.False(t, a.HasSettings())
	assert.Nil(t, a.DefaultSettings())
	got, err := a.ConvertOverrides("0.9", settings.Document{"x": 1})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBundleHelpers(t *testing.T) {
	b := &Bundle{Name: "b", Addons: map[string]*string{
		"core":  StrPtr("1.0"),
		"maya":  nil,
		"nuke":  StrPtr("2.0"),
		"empty": StrPtr(""),
	}, IsStaging: true}

	assert.Equal(t, map[string]string{"core": "1.0", "nuke": "2.0"}, b.EnabledAddons())
	assert.Equal(t, []string{"core", "nuke"}, b.AddonNames())
	_, ok := b.AddonVersion("maya")
	assert.False(t, ok)
	assert.Equal(t, VariantStaging, b.Status())
}

func TestBundleNames(t *testing.T) {
	assert.NoError(t, ValidateBundleName("Prod-2024.1_a"))
	assert.Error(t, ValidateBundleName("-bad"))
	assert.Error(t, ValidateBundleName("bad name"))

	name := ProjectBundleName("demo", VariantProduction)
	assert.Equal(t, "__project__demo__production", name)
	assert.True(t, IsProjectBundleName(name))
	assert.True(t, IsStandardVariant("staging"))
	assert.False(t, IsStandardVariant("dev_bundle"))
}

func TestProjectBundleRefs(t *testing.T) {
	p := &Project{Name: "demo"}
	p.SetBundle(VariantProduction, "__project__demo__production")
	p.SetBundle(VariantStaging, "__project__demo__staging")

	name, ok := p.BundleFor(VariantProduction)
	assert.True(t, ok)
	assert.Equal(t, "__project__demo__production", name)

	_, ok = p.ClearBundle(VariantProduction)
	assert.True(t, ok)
	assert.Contains(t, p.Data, "bundle")

	_, ok = p.ClearBundle(VariantStaging)
	assert.True(t, ok)
	assert.NotContains(t, p.Data, "bundle")

	_, ok = p.ClearBundle(VariantStaging)
	assert.False(t, ok)
}

func TestSettingsKey(t *testing.T) {
	assert.Equal(t, settings.ScopeStudio, StudioKey("a", "1", "production").Level())
	assert.Equal(t, settings.ScopeProject, ProjectKey("a", "1", "production", "p").Level())
	site := SiteKey("a", "1", "p", "s1", "u")
	assert.Equal(t, settings.ScopeSite, site.Level())
	assert.NoError(t, site.Validate())
	assert.Error(t, SettingsKey{AddonName: "a", AddonVersion: "1"}.Validate())
	assert.Equal(t, "2", site.WithVersion("2").AddonVersion)
}
