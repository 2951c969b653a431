package settings

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *Schema {
	return NewSchema(
		String("name", "default"),
		Integer("count", 3).Range(0, 10),
		Boolean("enabled", true),
		Enum("mode", "fast", "fast", "slow"),
		List("tags", String("", ""), "a", "b"),
		Object("render",
			Number("fps", 24),
			String("codec", "h264").WithScope(ScopeStudio),
			Object("output",
				String("dir", "/tmp"),
				Integer("padding", 4),
			),
		),
		Group("color", Integer("r", 0), Integer("g", 0), Integer("b", 0)),
		List("profiles", Object("", String("name", ""), Integer("priority", 50))),
		String("studio_only", "x").WithScope(ScopeStudio),
		String("site_root", "").WithScope(ScopeSite),
	)
}

func TestSchemaCheck(t *testing.T) {
	require.NoError(t, testSchema().Check())

	bad := []*Schema{
		NewSchema(String("a", ""), Integer("a", 0)),
		NewSchema(&Field{Name: "l", Kind: KindList}),
		NewSchema(&Field{Name: "e", Kind: KindEnum}),
		NewSchema(&Field{Name: "x", Kind: "blob"}),
		NewSchema(Integer("n", 0).WithScope("galaxy")),
		NewSchema(String("p", "").WithPattern("([")),
		NewSchema(&Field{Name: "i", Kind: KindInteger, Default: "nope"}),
	}
	for i, s := range bad {
		assert.Error(t, s.Check(), "schema %d", i)
	}
}

func TestDefaults(t *testing.T) {
	d := testSchema().Defaults()

	assert.Equal(t, "default", d["name"])
	assert.Equal(t, int64(3), d["count"])
	assert.Equal(t, []any{"a", "b"}, d["tags"])
	assert.Equal(t, []any{}, d["profiles"])
	assert.Equal(t, float64(24), d["render"].(map[string]any)["fps"])
	assert.Equal(t, Document{"dir": "/tmp", "padding": int64(4)}, d["render"].(map[string]any)["output"])
	assert.Equal(t, Document{"r": int64(0), "g": int64(0), "b": int64(0)}, d["color"])
}

func TestSchemaFromJSON(t *testing.T) {
	raw := `{"fields": [
		{"name": "count", "type": "integer", "default": 3, "minimum": 0},
		{"name": "paths", "type": "list", "item": {"type": "string"}, "default": ["/a"]},
		{"name": "opts", "type": "object", "isGroup": true, "scope": ["studio"], "fields": [
			{"name": "on", "type": "boolean", "default": true}
		]}
	]}`
	var s Schema
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	require.NoError(t, s.Check())

	d := s.Defaults()
	assert.Equal(t, int64(3), d["count"])
	assert.Equal(t, []any{"/a"}, d["paths"])
	assert.Equal(t, Document{"on": true}, d["opts"])
	assert.True(t, s.Field("opts").IsGroup)
}

func TestApply(t *testing.T) {
	s := testSchema()
	base := s.Defaults()

	out := s.Apply(base, Document{
		"count":   "7",
		"enabled": "not-a-bool",
		"mode":    "turbo",
		"render": map[string]any{
			"fps":    float64(30),
			"output": map[string]any{"padding": float64(2)},
		},
		"unknown": 1,
	})

	assert.Equal(t, int64(7), out["count"])
	assert.Equal(t, true, out["enabled"], "invalid override keeps base")
	assert.Equal(t, "fast", out["mode"], "non-member keeps base")
	assert.NotContains(t, out, "unknown")
	render := out["render"].(map[string]any)
	assert.Equal(t, float64(30), render["fps"])
	assert.Equal(t, Document{"dir": "/tmp", "padding": int64(2)}, render["output"])

	// base is not modified
	assert.Equal(t, int64(3), base["count"])
	assert.Equal(t, float64(24), base["render"].(map[string]any)["fps"])
}

func TestApplyNonObjectOverrideForObject(t *testing.T) {
	s := testSchema()
	out := s.Apply(s.Defaults(), Document{"render": "flat"})
	assert.Equal(t, float64(24), out["render"].(map[string]any)["fps"])
}

func TestExtractRoundTrip(t *testing.T) {
	s := testSchema()
	defaults := s.Defaults()
	modified := s.Apply(defaults, Document{
		"name":     "beauty",
		"tags":     []any{"x"},
		"render":   map[string]any{"output": map[string]any{"dir": "/mnt"}},
		"color":    map[string]any{"r": 255},
		"profiles": []any{map[string]any{"name": "p1"}},
	})

	ov := s.Extract(defaults, modified, ExtractOptions{})

	assert.Equal(t, Document{
		"name":     "beauty",
		"tags":     []any{"x"},
		"render":   Document{"output": Document{"dir": "/mnt"}},
		"color":    Document{"r": int64(255), "g": int64(0), "b": int64(0)},
		"profiles": []any{Document{"name": "p1", "priority": int64(50)}},
	}, ov)
	assert.True(t, Equal(modified, s.Apply(defaults, ov)))
}

func TestExtractRoundTripLargeInteger(t *testing.T) {
	s := NewSchema(Integer("n", 9007199254740992))
	defaults := s.Defaults()
	modified := s.Apply(defaults, Document{"n": int64(9007199254740993)})

	ov := s.Extract(defaults, modified, ExtractOptions{})
	assert.Equal(t, Document{"n": int64(9007199254740993)}, ov)
}

func TestCoerceIntegerBounds(t *testing.T) {
	f := Integer("n", 0)

	v, err := f.Coerce(json.Number("9223372036854775807"))
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), v)

	v, err = f.Coerce(int(9007199254740993))
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), v)

	_, err = f.Coerce(float64(1 << 63))
	assert.Error(t, err)
	_, err = f.Coerce(uint64(math.MaxUint64))
	assert.Error(t, err)
	_, err = f.Coerce(2.5)
	assert.Error(t, err)
}

func TestExtractIdempotent(t *testing.T) {
	s := testSchema()
	defaults := s.Defaults()
	ov := s.Extract(defaults, s.Apply(defaults, Document{
		"count":  5,
		"render": map[string]any{"output": map[string]any{"dir": "/mnt"}},
	}), ExtractOptions{})

	again := s.Extract(defaults, s.Apply(defaults, ov), ExtractOptions{Existing: ov})
	assert.Equal(t, ov, again)
}

func TestExtractKeepsExistingEqualValues(t *testing.T) {
	s := testSchema()
	defaults := s.Defaults()

	// count equals the default but is already overridden at this level
	ov := s.Extract(defaults, defaults, ExtractOptions{Existing: Document{"count": 3}})
	assert.Equal(t, Document{"count": int64(3)}, ov)
}

func TestExtractListReplacedWhole(t *testing.T) {
	s := testSchema()
	defaults := s.Defaults()
	modified := s.Apply(defaults, Document{"tags": []any{"a", "b", "c"}})

	ov := s.Extract(defaults, modified, ExtractOptions{})
	assert.Equal(t, Document{"tags": []any{"a", "b", "c"}}, ov)
}

func TestExtractScopeEnforcement(t *testing.T) {
	s := testSchema()
	defaults := s.Defaults()
	modified := s.Apply(defaults, Document{
		"name":        "shot",
		"studio_only": "y",
		"site_root":   "/site",
		"render":      map[string]any{"codec": "vp9"},
	})

	ov := s.Extract(defaults, modified, ExtractOptions{Level: ScopeProject})
	assert.Equal(t, Document{"name": "shot"}, ov)

	site := s.Extract(defaults, modified, ExtractOptions{Level: ScopeSite})
	assert.Equal(t, Document{"site_root": "/site"}, site)
}

func TestExtractPinned(t *testing.T) {
	s := testSchema()
	defaults := s.Defaults()

	ov := s.Extract(defaults, defaults, ExtractOptions{
		Pinned: [][]string{{"count"}, {"render", "output", "dir"}},
	})
	assert.Equal(t, Document{
		"count":  int64(3),
		"render": Document{"output": Document{"dir": "/tmp"}},
	}, ov)
}

func TestExtractUnpinned(t *testing.T) {
	s := testSchema()
	defaults := s.Defaults()
	existing := Document{
		"count":  5,
		"render": map[string]any{"output": map[string]any{"dir": "/mnt"}},
	}
	modified := s.Apply(defaults, existing)

	ov := s.Extract(defaults, modified, ExtractOptions{
		Existing: existing,
		Unpinned: [][]string{{"render", "output", "dir"}, {"does", "not", "exist"}},
	})
	assert.Equal(t, Document{"count": int64(5)}, ov, "empty ancestors are pruned")
}

func TestListOverrides(t *testing.T) {
	s := testSchema()
	defaults := s.Defaults()
	ov := Document{
		"name":     "beauty",
		"tags":     []any{"x"},
		"render":   map[string]any{"output": map[string]any{"dir": "/mnt"}},
		"color":    map[string]any{"r": 255, "g": 0, "b": 0},
		"profiles": []any{map[string]any{"name": "p1", "priority": 50}},
	}
	instance := s.Apply(defaults, ov)

	got := s.ListOverrides(instance, ov, ScopeProject)

	assert.Equal(t, OverrideInfo{
		Path: []string{"name"}, Type: OverrideLeaf, Value: "beauty",
		Level: ScopeProject, InGroup: []string{}, Scope: DefaultScope,
	}, got["root_name"])
	assert.Equal(t, OverrideBranch, got["root_render"].Type)
	assert.Equal(t, OverrideBranch, got["root_render_output"].Type)
	assert.Equal(t, "/mnt", got["root_render_output_dir"].Value)
	assert.Equal(t, OverrideGroup, got["root_color"].Type)
	assert.Equal(t, []string{"color"}, got["root_color_r"].InGroup)
	assert.Equal(t, int64(255), got["root_color_r"].Value)
	assert.Equal(t, OverrideList, got["root_tags"].Type)
	assert.Equal(t, []string{"tags"}, got["root_tags_0"].InGroup)
	assert.Equal(t, "x", got["root_tags_0"].Value)
	assert.Equal(t, []string{"profiles", "0", "name"}, got["root_profiles_0_name"].Path)
	assert.Equal(t, []string{"profiles"}, got["root_profiles_0_priority"].InGroup)

	assert.NotContains(t, got, "root_count")
	assert.NotContains(t, got, "root_render_fps")
	assert.Len(t, got, 13)
}

func TestListOverridesScopeInheritance(t *testing.T) {
	s := testSchema()
	ov := Document{"render": map[string]any{"codec": "vp9"}}
	got := s.ListOverrides(s.Apply(s.Defaults(), ov), ov, ScopeStudio)

	assert.Equal(t, []Scope{ScopeStudio}, got["root_render_codec"].Scope)
	assert.Equal(t, DefaultScope, got["root_render"].Scope)
}

func TestParse(t *testing.T) {
	s := testSchema()

	doc, err := s.Parse(Document{"count": "4"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), doc["count"])
	assert.Equal(t, "default", doc["name"])

	_, err = s.Parse(Document{
		"count":  11,
		"tags":   "nope",
		"render": map[string]any{"fps": "abc"},
	})
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 3)
	assert.Equal(t, []string{"count"}, verrs[0].Loc)
	assert.Contains(t, verrs[0].Msg, "less than or equal to 10")
	assert.Equal(t, []string{"tags"}, verrs[1].Loc)
	assert.Equal(t, []string{"render", "fps"}, verrs[2].Loc)
}

func TestParseStringConstraints(t *testing.T) {
	s := NewSchema(
		String("code", "ab").Length(2, 4).WithPattern("^[a-z]+$"),
		List("items", Integer("", 0), 1).Items(1, 2),
	)

	_, err := s.Parse(Document{"code": "ABC"})
	assert.ErrorContains(t, err, "does not match")

	_, err = s.Parse(Document{"code": "abcde"})
	assert.ErrorContains(t, err, "at most 4 characters")

	_, err = s.Parse(Document{"items": []any{}})
	assert.ErrorContains(t, err, "at least 1 items")

	doc, err := s.Parse(Document{"code": "abc", "items": []any{1, "2"}})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, doc["items"])
}

func TestMigrateOverrides(t *testing.T) {
	s := testSchema()

	got := s.MigrateOverrides(Document{
		"x":        1,
		"count":    "5",
		"render":   map[string]any{"fps": "bad", "codec": "vp9"},
		"profiles": []any{map[string]any{"name": "p", "gone": true}, "junk"},
	})

	assert.Equal(t, Document{
		"count":    int64(5),
		"render":   Document{"codec": "vp9"},
		"profiles": []any{Document{"name": "p", "priority": int64(50)}},
	}, got)
}

func TestStripInherited(t *testing.T) {
	s := testSchema()
	inherited := s.Apply(s.Defaults(), Document{"name": "studio"})

	got := s.StripInherited(Document{
		"name":        "studio",
		"count":       5,
		"studio_only": "zz",
		"render":      map[string]any{"fps": 24},
		"color":       map[string]any{"r": 0, "g": 0, "b": 0},
		"bogus":       true,
	}, inherited, ScopeProject)

	assert.Equal(t, Document{"count": int64(5)}, got)
}

func TestPinPath(t *testing.T) {
	s := testSchema()
	instance := s.Apply(s.Defaults(), Document{"render": map[string]any{"output": map[string]any{"dir": "/mnt"}}})

	ov := Document{}
	require.NoError(t, s.PinPath(instance, ov, []string{"render", "output", "dir"}))
	assert.Equal(t, Document{"render": Document{"output": Document{"dir": "/mnt"}}}, ov)

	require.NoError(t, s.PinPath(instance, ov, []string{"color", "r"}))
	assert.Equal(t, Document{"r": int64(0), "g": int64(0), "b": int64(0)}, ov["color"])

	assert.Error(t, s.PinPath(instance, ov, []string{"render", "nope"}))

	assert.True(t, RemovePath(ov, []string{"render", "output", "dir"}))
	assert.NotContains(t, ov, "render")
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(int64(5), float64(5)))
	assert.True(t, Equal(json.Number("5"), 5))
	assert.True(t, Equal([]string{"a"}, []any{"a"}))
	assert.True(t, Equal(map[string]any{"a": 1}, map[string]any{"a": 1.0}))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal("5", 5))
	assert.False(t, Equal([]any{1}, []any{1, 2}))
	assert.False(t, Equal(map[string]any{"a": 1}, map[string]any{"b": 1}))
	assert.False(t, Equal(true, 1))

	// above 2^53 float64 cannot tell these apart
	assert.False(t, Equal(int64(9007199254740993), int64(9007199254740992)))
	assert.False(t, Equal(json.Number("9007199254740993"), int64(9007199254740992)))
	assert.True(t, Equal(json.Number("9007199254740993"), uint64(9007199254740993)))
	assert.True(t, Equal(json.Number("2.5"), 2.5))
}

func TestMerge(t *testing.T) {
	base := Document{"a": int64(1), "render": map[string]any{"fps": int64(25), "codec": "exr"}, "tags": []any{"x"}}
	out := Merge(base, Document{"render": map[string]any{"fps": int64(24)}, "tags": []any{"y"}, "b": true})

	assert.Equal(t, Document{
		"a":      int64(1),
		"b":      true,
		"render": map[string]any{"fps": int64(24), "codec": "exr"},
		"tags":   []any{"y"},
	}, out)
	assert.Equal(t, int64(25), base["render"].(map[string]any)["fps"])
	assert.Equal(t, Document{"a": 1}, Merge(nil, Document{"a": 1}))
}

func TestPaths(t *testing.T) {
	doc := Document{}
	SetPath(doc, []string{"a", "b", "c"}, 1)
	v, ok := GetPath(doc, []string{"a", "b", "c"})
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	doc["list"] = []any{"x", "y"}
	v, ok = GetPath(doc, []string{"list", "1"})
	assert.True(t, ok)
	assert.Equal(t, "y", v)
	_, ok = GetPath(doc, []string{"list", "7"})
	assert.False(t, ok)

	assert.True(t, DeletePath(doc, []string{"a", "b", "c"}))
	assert.NotContains(t, doc, "a")
	assert.False(t, DeletePath(doc, []string{"a"}))

	assert.Equal(t, "root", PathKey(nil))
	assert.Equal(t, "root_a_0_b", PathKey([]string{"a", "0", "b"}))
}

func TestLookup(t *testing.T) {
	s := testSchema()
	f, ok := s.Lookup([]string{"render", "output", "padding"})
	require.True(t, ok)
	assert.Equal(t, KindInteger, f.Kind)

	f, ok = s.Lookup([]string{"profiles", "0", "priority"})
	require.True(t, ok)
	assert.Equal(t, "priority", f.Name)

	_, ok = s.Lookup([]string{"render", "missing"})
	assert.False(t, ok)
}
