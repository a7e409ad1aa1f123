// Package store is the persistence layer over the MongoDB collections. The
// interfaces here are what the services program against; Mongo-backed
// implementations live alongside, and in-memory fakes for tests live in
// storetest.
package store

import (
	"context"

	"drivebridge/backend/internal/models"
)

// Page bounds a children listing. Limit is capped at MaxPageSize.
type Page struct {
	Skip    int64
	Limit   int64
	SortKey string
	// 1 ascending, -1 descending.
	Order int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 25
)

// Normalize fills in the listing defaults.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.SortKey == "" {
		p.SortKey = "name"
	}
	if p.Order != -1 {
		p.Order = 1
	}
	return p
}

// BulkResult reports what one delta page application did.
type BulkResult struct {
	Inserted int64
	Updated  int64
	Deleted  int64
}

type DriveStore interface {
	FindMany(ctx context.Context) ([]models.Drive, error)
	FindByID(ctx context.Context, id string) (*models.Drive, error)
	FindByOwnerLocalID(ctx context.Context, localAccountID string) (*models.Drive, error)

	// Upsert merges the fetched payload into the stored document by remote id
	// and returns the merged result. Locally-maintained fields (deltaLink,
	// shareBaseUrl, entireUpdateTag) are left untouched.
	Upsert(ctx context.Context, drive *models.Drive) (*models.Drive, error)

	// SaveSyncState persists the new delta cursor and, when entireUpdateTag
	// is non-empty, the new generation tag.
	SaveSyncState(ctx context.Context, id, deltaLink, entireUpdateTag string) error

	SaveShareBaseURL(ctx context.Context, id, shareBaseURL string) error

	Delete(ctx context.Context, id string) error
}

type DriveItemStore interface {
	FindByID(ctx context.Context, id string) (*models.DriveItem, error)
	FindRoot(ctx context.Context, driveID string) (*models.DriveItem, error)
	FindChildren(ctx context.Context, parentID string, page Page) ([]models.DriveItem, error)
	FindChildByName(ctx context.Context, parentID, name string) (*models.DriveItem, error)

	// BulkApply writes one delta page as a single ordered bulk operation:
	// upserts by remote id plus tombstone deletes.
	BulkApply(ctx context.Context, upserts []models.DriveItem, deleteIDs []string) (BulkResult, error)

	// DeleteStale removes every item of the drive whose entireUpdateTag
	// differs from keepTag. Used after a full resync to purge items the
	// remote no longer reports.
	DeleteStale(ctx context.Context, driveID, keepTag string) (int64, error)

	DeleteByDrive(ctx context.Context, driveID string) (int64, error)

	// SetSharePermission stores perm on the item; nil clears it.
	SetSharePermission(ctx context.Context, id string, perm *models.SharePermission) error
}

type SettingsStore interface {
	Find(ctx context.Context, driveID string) (*models.DriveSettings, error)
	Create(ctx context.Context, driveID string) (*models.DriveSettings, error)

	SetRootPath(ctx context.Context, driveID string, enabled *bool, rootPath *string) error

	// PushRule appends the rule unless another rule already holds the same
	// path; it reports whether the settings document matched (false means
	// path conflict).
	PushRule(ctx context.Context, driveID string, rule models.AccessRule) (bool, error)

	// SetRule replaces the rule with the given id in place; it reports
	// whether such a rule existed.
	SetRule(ctx context.Context, driveID string, rule models.AccessRule) (bool, error)

	// PullRule removes the rule with the given id; it reports whether such a
	// rule existed.
	PullRule(ctx context.Context, driveID, ruleID string) (bool, error)
}

type TaskStore interface {
	Create(ctx context.Context, name string) (string, error)
	FindByID(ctx context.Context, id string) (*models.UpdateTask, error)
	SetProgress(ctx context.Context, id string, progress float64) error
	SetCompleted(ctx context.Context, id string, status models.TaskStatus, errMsg string) error
}

type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

type AccountStore interface {
	FindByLocalID(ctx context.Context, localAccountID string) (*models.Account, error)
	FindAll(ctx context.Context) ([]models.Account, error)
	Upsert(ctx context.Context, account *models.Account) error
}
