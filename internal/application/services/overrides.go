package services

import (
	"context"
	"fmt"

	"github.com/ynput/ayon-backend-sub000/internal/domain/events"
	"github.com/ynput/ayon-backend-sub000/internal/domain/models"
	"github.com/ynput/ayon-backend-sub000/internal/domain/ports"
	"github.com/ynput/ayon-backend-sub000/pkg/settings"
)

// overrideChange is one settings row rewritten inside a transaction
type overrideChange struct {
	Key      models.SettingsKey
	Original settings.Document
	New      settings.Document
}

// writeOverrides stores doc under key, deleting the row when doc is
// empty. It returns nil when the stored row already matches.
func writeOverrides(ctx context.Context, exec ports.Executor, store ports.SettingsStore, key models.SettingsKey, doc settings.Document) (*overrideChange, error) {
	original, err := store.Get(ctx, exec, key)
	if err != nil {
		return nil, err
	}

	if len(doc) == 0 {
		if len(original) == 0 {
			exists, err := store.Exists(ctx, exec, key)
			if err != nil || !exists {
				return nil, err
			}
		}
		if err := store.Delete(ctx, exec, key); err != nil {
			return nil, err
		}
		return &overrideChange{Key: key, Original: original, New: settings.Document{}}, nil
	}

	if len(original) > 0 && settings.Equal(original, doc) {
		return nil, nil
	}
	if err := store.Upsert(ctx, exec, key, doc); err != nil {
		return nil, err
	}
	return &overrideChange{Key: key, Original: original, New: doc}, nil
}

// changeEvent builds the settings.changed event for a rewritten row
func changeEvent(c *overrideChange, user, action string, auditTrail bool) events.Event {
	key := c.Key
	var head string
	switch key.Level() {
	case settings.ScopeSite:
		head = fmt.Sprintf("%s %s site %s overrides", key.AddonName, key.AddonVersion, key.SiteID)
	case settings.ScopeProject:
		head = fmt.Sprintf("%s %s %s project overrides", key.AddonName, key.AddonVersion, key.Variant)
	default:
		head = fmt.Sprintf("%s %s %s studio overrides", key.AddonName, key.AddonVersion, key.Variant)
	}

	verb := "changed"
	if len(c.New) == 0 {
		verb = "removed"
	}
	description := head + " " + verb
	if action != "" {
		description += " " + action
	}

	summary := map[string]any{
		"addon_name":    key.AddonName,
		"addon_version": key.AddonVersion,
	}
	if key.Variant != "" {
		summary["variant"] = key.Variant
	}
	if key.IsSite() {
		summary["site_id"] = key.SiteID
		summary["user_name"] = key.UserName
	}

	ev := events.Event{
		Topic:       events.SettingsChanged,
		Description: description,
		Summary:     summary,
		User:        user,
		Project:     key.ProjectName,
	}
	if auditTrail {
		original := c.Original
		if original == nil {
			original = settings.Document{}
		}
		ev.Payload = map[string]any{
			"originalValue": original,
			"newValue":      c.New,
		}
	}
	return ev
}
