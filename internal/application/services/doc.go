// Package services provides the business logic layer for addon settings.
//
// This package contains:
//   - layered settings resolution with provenance (Resolver)
//   - settings reads and writes at studio, project and site level (SettingsService)
//   - bundle management and promotion (BundleService)
//   - project bundle freeze and unfreeze (ProjectBundleService)
//   - cross-version settings migration between bundles (MigrationService)
//   - event recording and in-process fan-out (EventStream, EventBus)
//
// Services depend on the narrow interfaces in domain/ports and run every
// multi-row change inside one transaction. Events are dispatched only
// after the transaction committed.
package services
