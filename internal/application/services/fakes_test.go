package services

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ynput/ayon-backend-sub000/internal/domain/events"
	"github.com/ynput/ayon-backend-sub000/internal/domain/models"
	"github.com/ynput/ayon-backend-sub000/internal/domain/ports"
	"github.com/ynput/ayon-backend-sub000/internal/infrastructure/addonlib"
	"github.com/ynput/ayon-backend-sub000/pkg/auth"
	appErrors "github.com/ynput/ayon-backend-sub000/pkg/errors"
	"github.com/ynput/ayon-backend-sub000/pkg/settings"
)

// memDB is an in-memory stand-in for the database. Transactions
// snapshot the state and restore it when the callback fails.
type memDB struct {
	settings map[models.SettingsKey]settings.Document
	bundles  map[string]models.Bundle
	projects map[string]map[string]any
}

func newMemDB() *memDB {
	return &memDB{
		settings: make(map[models.SettingsKey]settings.Document),
		bundles:  make(map[string]models.Bundle),
		projects: make(map[string]map[string]any),
	}
}

func normalizeKey(k models.SettingsKey) models.SettingsKey {
	if k.IsSite() {
		k.Variant = ""
	}
	return k
}

func (db *memDB) snapshot() *memDB {
	cp := newMemDB()
	for k, v := range db.settings {
		cp.settings[k] = settings.CloneDocument(v)
	}
	for k, v := range db.bundles {
		cp.bundles[k] = v
	}
	for k, v := range db.projects {
		cp.projects[k] = settings.CloneDocument(v)
	}
	return cp
}

func (db *memDB) restore(s *memDB) {
	db.settings = s.settings
	db.bundles = s.bundles
	db.projects = s.projects
}

// row returns the stored document, or nil
func (db *memDB) row(k models.SettingsKey) settings.Document {
	return db.settings[normalizeKey(k)]
}

func (db *memDB) put(k models.SettingsKey, doc settings.Document) {
	db.settings[normalizeKey(k)] = doc
}

func (db *memDB) addBundle(b models.Bundle) {
	db.bundles[b.Name] = b
}

func (db *memDB) bundle(name string) (models.Bundle, bool) {
	b, ok := db.bundles[name]
	return b, ok
}

func (db *memDB) addProject(name string) {
	db.projects[name] = map[string]any{}
}

type memTx struct{ db *memDB }

func (t memTx) Executor() ports.Executor { return nil }

func (t memTx) WithTransaction(ctx context.Context, fn func(exec ports.Executor) error) error {
	snap := t.db.snapshot()
	if err := fn(nil); err != nil {
		t.db.restore(snap)
		return err
	}
	return nil
}

type memSettings struct{ db *memDB }

func (m memSettings) Get(ctx context.Context, exec ports.Executor, key models.SettingsKey) (settings.Document, error) {
	if doc, ok := m.db.settings[normalizeKey(key)]; ok {
		return settings.CloneDocument(doc), nil
	}
	return settings.Document{}, nil
}

func (m memSettings) Exists(ctx context.Context, exec ports.Executor, key models.SettingsKey) (bool, error) {
	_, ok := m.db.settings[normalizeKey(key)]
	return ok, nil
}

func (m memSettings) Upsert(ctx context.Context, exec ports.Executor, key models.SettingsKey, doc settings.Document) error {
	if err := key.Validate(); err != nil {
		return err
	}
	m.db.settings[normalizeKey(key)] = settings.CloneDocument(doc)
	return nil
}

func (m memSettings) Delete(ctx context.Context, exec ports.Executor, key models.SettingsKey) error {
	delete(m.db.settings, normalizeKey(key))
	return nil
}

func (m memSettings) ListSites(ctx context.Context, exec ports.Executor, addon, version, project string) ([]models.SiteRef, error) {
	var out []models.SiteRef
	for k := range m.db.settings {
		if k.IsSite() && k.AddonName == addon && k.AddonVersion == version && k.ProjectName == project {
			out = append(out, models.SiteRef{SiteID: k.SiteID, UserName: k.UserName})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SiteID+out[i].UserName < out[j].SiteID+out[j].UserName })
	return out, nil
}

type memBundles struct{ db *memDB }

func (m memBundles) Get(ctx context.Context, exec ports.Executor, name string, forUpdate bool) (*models.Bundle, error) {
	b, ok := m.db.bundles[name]
	if !ok {
		return nil, appErrors.NewNotFoundError("Bundle", name)
	}
	return &b, nil
}

func (m memBundles) List(ctx context.Context, exec ports.Executor, includeArchived bool) ([]*models.Bundle, error) {
	var out []*models.Bundle
	for _, b := range m.db.bundles {
		if b.IsArchived && !includeArchived {
			continue
		}
		b := b
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m memBundles) Insert(ctx context.Context, exec ports.Executor, b *models.Bundle) error {
	if _, ok := m.db.bundles[b.Name]; ok {
		return appErrors.NewConflictError("Bundle", "name", b.Name)
	}
	m.db.bundles[b.Name] = *b
	return nil
}

func (m memBundles) Save(ctx context.Context, exec ports.Executor, b *models.Bundle) error {
	m.db.bundles[b.Name] = *b
	return nil
}

func (m memBundles) Delete(ctx context.Context, exec ports.Executor, name string) error {
	if _, ok := m.db.bundles[name]; !ok {
		return appErrors.NewNotFoundError("Bundle", name)
	}
	delete(m.db.bundles, name)
	return nil
}

func (m memBundles) flagged(pred func(models.Bundle) bool) *models.Bundle {
	for _, b := range m.db.bundles {
		if pred(b) {
			b := b
			return &b
		}
	}
	return nil
}

func (m memBundles) Production(ctx context.Context, exec ports.Executor) (*models.Bundle, error) {
	return m.flagged(func(b models.Bundle) bool { return b.IsProduction }), nil
}

func (m memBundles) Staging(ctx context.Context, exec ports.Executor) (*models.Bundle, error) {
	return m.flagged(func(b models.Bundle) bool { return b.IsStaging }), nil
}

func (m memBundles) ClearProduction(ctx context.Context, exec ports.Executor) error {
	for name, b := range m.db.bundles {
		b.IsProduction = false
		m.db.bundles[name] = b
	}
	return nil
}

func (m memBundles) ClearStaging(ctx context.Context, exec ports.Executor) error {
	for name, b := range m.db.bundles {
		b.IsStaging = false
		m.db.bundles[name] = b
	}
	return nil
}

func (m memBundles) ClearActiveUser(ctx context.Context, exec ports.Executor, user string) error {
	for name, b := range m.db.bundles {
		if b.ActiveUser != nil && *b.ActiveUser == user {
			b.ActiveUser = nil
			m.db.bundles[name] = b
		}
	}
	return nil
}

type memProjects struct{ db *memDB }

func (m memProjects) ListNames(ctx context.Context, exec ports.Executor) ([]string, error) {
	var names []string
	for name := range m.db.projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m memProjects) Get(ctx context.Context, exec ports.Executor, name string, forUpdate bool) (*models.Project, error) {
	data, ok := m.db.projects[name]
	if !ok {
		return nil, appErrors.NewNotFoundError("Project", name)
	}
	return &models.Project{Name: name, Data: settings.CloneDocument(data)}, nil
}

func (m memProjects) SaveData(ctx context.Context, exec ports.Executor, p *models.Project) error {
	m.db.projects[p.Name] = settings.CloneDocument(p.Data)
	return nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingDispatcher) topics() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Topic
	}
	return out
}

// testEnv wires every service against the in-memory fakes
type testEnv struct {
	db       *memDB
	addons   ports.AddonRegistry
	events   *recordingDispatcher
	settings *SettingsService
	bundles  *BundleService
	projects *ProjectBundleService
	migrate  *MigrationService
}

func newTestEnv(addons ports.AddonRegistry) *testEnv {
	db := newMemDB()
	tx := memTx{db}
	store := memSettings{db}
	bundles := memBundles{db}
	projects := memProjects{db}
	rec := &recordingDispatcher{}
	resolver := NewResolver(addons, store)

	return &testEnv{
		db:       db,
		addons:   addons,
		events:   rec,
		settings: NewSettingsService(tx, store, addons, bundles, projects, resolver, rec, true),
		bundles:  NewBundleService(tx, bundles, store, projects, addons, rec),
		projects: NewProjectBundleService(tx, bundles, store, projects, addons, resolver, rec, false),
		migrate:  NewMigrationService(tx, bundles, store, projects, addons, resolver, rec, false),
	}
}

var (
	admin   = auth.UserSession{Name: "admin", IsAdmin: true}
	manager = auth.UserSession{Name: "manager", IsManager: true}
	artist  = auth.UserSession{Name: "artist", WritableProjects: []string{"demo"}}
)

func mayaSchema(extra ...*settings.Field) *settings.Schema {
	fields := []*settings.Field{
		settings.Integer("fps", 25),
		settings.String("codec", "exr"),
		settings.String("license", "").WithScope(settings.ScopeStudio),
		settings.String("root", "").WithScope(settings.ScopeSite),
	}
	return settings.NewSchema(append(fields, extra...)...)
}

// newTestLibrary installs:
//
//	maya 1.0, 1.1  project overridable
//	core 1.0, 2.0  x renamed to y in 2.0
//	ftrack 1.0     no settings
//	sys 0.1        system addon
func newTestLibrary(t *testing.T) *addonlib.Library {
	t.Helper()
	lib := addonlib.NewLibrary()
	for _, a := range []*models.Addon{
		{Name: "maya", Version: "1.0", Schema: mayaSchema(), ProjectCanOverrideVersion: true},
		{Name: "maya", Version: "1.1", Schema: mayaSchema(settings.String("colorspace", "aces")), ProjectCanOverrideVersion: true},
		{Name: "core", Version: "1.0", Schema: settings.NewSchema(settings.Integer("x", 0))},
		{Name: "core", Version: "2.0", Schema: settings.NewSchema(settings.Integer("y", 0))},
		{Name: "ftrack", Version: "1.0"},
		{Name: "sys", Version: "0.1", IsSystem: true},
	} {
		require.NoError(t, lib.Register(a))
	}
	require.NoError(t, lib.RegisterConversion("core", "1.0", "2.0", func(doc settings.Document) (settings.Document, error) {
		if v, ok := doc["x"]; ok {
			doc["y"] = v
			delete(doc, "x")
		}
		return doc, nil
	}))
	return lib
}
