package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Identity and Quota mirror the shapes returned by the Microsoft Graph drive
// resources; they are stored as fetched.
// https://docs.microsoft.com/en-us/graph/api/resources/drive

type Identity struct {
	DisplayName string `bson:"displayName,omitempty" json:"displayName,omitempty"`
	ID          string `bson:"id,omitempty" json:"id,omitempty"`
}

type IdentitySet struct {
	Application *Identity `bson:"application,omitempty" json:"application,omitempty"`
	Device      *Identity `bson:"device,omitempty" json:"device,omitempty"`
	User        *Identity `bson:"user,omitempty" json:"user,omitempty"`
}

type Quota struct {
	Total     int64  `bson:"total" json:"total"`
	Used      int64  `bson:"used" json:"used"`
	Remaining int64  `bson:"remaining" json:"remaining"`
	Deleted   int64  `bson:"deleted" json:"deleted"`
	State     string `bson:"state,omitempty" json:"state,omitempty"`
}

// Drive is one remote storage account's root container. DeltaLink,
// ShareBaseURL and EntireUpdateTag are maintained locally and never come from
// the remote payload, so drive writes must merge instead of replace.
type Drive struct {
	ID                   string       `bson:"id" json:"id"`
	Name                 string       `bson:"name,omitempty" json:"name,omitempty"`
	DriveType            string       `bson:"driveType,omitempty" json:"driveType,omitempty"`
	Owner                *IdentitySet `bson:"owner,omitempty" json:"owner,omitempty"`
	Quota                *Quota       `bson:"quota,omitempty" json:"quota,omitempty"`
	WebURL               string       `bson:"webUrl,omitempty" json:"webUrl,omitempty"`
	CreatedDateTime      time.Time    `bson:"createdDateTime,omitempty" json:"createdDateTime,omitempty"`
	LastModifiedDateTime time.Time    `bson:"lastModifiedDateTime,omitempty" json:"lastModifiedDateTime,omitempty"`

	DeltaLink       string `bson:"deltaLink,omitempty" json:"-"`
	ShareBaseURL    string `bson:"shareBaseUrl,omitempty" json:"-"`
	EntireUpdateTag string `bson:"entireUpdateTag,omitempty" json:"-"`

	UpdatedAt time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// OwnerLocalID returns the local account id of the drive owner, or "" when
// the owner identity is incomplete.
func (d *Drive) OwnerLocalID() string {
	if d.Owner == nil || d.Owner.User == nil {
		return ""
	}
	return d.Owner.User.ID
}

type Hashes struct {
	SHA1Hash     string `bson:"sha1Hash,omitempty" json:"sha1Hash,omitempty"`
	SHA256Hash   string `bson:"sha256Hash,omitempty" json:"sha256Hash,omitempty"`
	QuickXorHash string `bson:"quickXorHash,omitempty" json:"quickXorHash,omitempty"`
}

type FileFacet struct {
	MimeType string  `bson:"mimeType,omitempty" json:"mimeType,omitempty"`
	Hashes   *Hashes `bson:"hashes,omitempty" json:"hashes,omitempty"`
}

type FolderFacet struct {
	ChildCount int64 `bson:"childCount" json:"childCount"`
}

type DeletedFacet struct {
	State string `bson:"state,omitempty" json:"state,omitempty"`
}

// ItemReference points an item at its drive and parent item. An empty ID
// marks the drive's root item.
type ItemReference struct {
	DriveID   string `bson:"driveId" json:"driveId"`
	DriveType string `bson:"driveType,omitempty" json:"driveType,omitempty"`
	ID        string `bson:"id,omitempty" json:"id,omitempty"`
	Path      string `bson:"path,omitempty" json:"path,omitempty"`
}

type ShareLink struct {
	WebURL string `bson:"webUrl" json:"webUrl"`
	Type   string `bson:"type,omitempty" json:"type,omitempty"`
	Scope  string `bson:"scope,omitempty" json:"scope,omitempty"`
}

// SharePermission is the cached public share link of a file.
type SharePermission struct {
	ID                 string     `bson:"id" json:"id"`
	ExpirationDateTime *time.Time `bson:"expirationDateTime,omitempty" json:"expirationDateTime,omitempty"`
	Link               ShareLink  `bson:"link" json:"link"`
}

// Expired reports whether the permission carries an expiry in the past. A
// permission without an expiry never expires.
func (p *SharePermission) Expired(now time.Time) bool {
	return p.ExpirationDateTime != nil && !p.ExpirationDateTime.After(now)
}

// DriveItem is a file or folder inside a drive, stored as delivered by the
// delta feed. Exactly one of File/Folder is set on regular items; the drive
// root carries the Root marker and an empty ParentReference.ID.
type DriveItem struct {
	ID                   string           `bson:"id" json:"id"`
	Name                 string           `bson:"name" json:"name"`
	Size                 int64            `bson:"size" json:"size"`
	WebURL               string           `bson:"webUrl,omitempty" json:"webUrl,omitempty"`
	CTag                 string           `bson:"cTag,omitempty" json:"cTag,omitempty"`
	ETag                 string           `bson:"eTag,omitempty" json:"eTag,omitempty"`
	CreatedDateTime      time.Time        `bson:"createdDateTime,omitempty" json:"createdDateTime,omitempty"`
	LastModifiedDateTime time.Time        `bson:"lastModifiedDateTime,omitempty" json:"lastModifiedDateTime,omitempty"`
	ParentReference      ItemReference    `bson:"parentReference" json:"parentReference"`
	File                 *FileFacet       `bson:"file,omitempty" json:"file,omitempty"`
	Folder               *FolderFacet     `bson:"folder,omitempty" json:"folder,omitempty"`
	Root                 *struct{}        `bson:"root,omitempty" json:"root,omitempty"`
	Deleted              *DeletedFacet    `bson:"deleted,omitempty" json:"deleted,omitempty"`
	SharePermission      *SharePermission `bson:"sharePermission,omitempty" json:"sharePermission,omitempty"`

	// EntireUpdateTag is stamped on every item written during a full resync.
	// Items still carrying an older tag afterwards are stale and get purged.
	EntireUpdateTag string `bson:"entireUpdateTag,omitempty" json:"-"`

	// Set on read responses only, never persisted.
	AccessDenied     bool   `bson:"-" json:"accessDenied,omitempty"`
	RequiredPassword bool   `bson:"-" json:"requiredPassword,omitempty"`
	ShareLink        string `bson:"-" json:"shareLink,omitempty"`
}

// IsRoot reports whether the item is its drive's root.
func (i *DriveItem) IsRoot() bool {
	return i.Root != nil || i.ParentReference.ID == ""
}

type AccessRuleAction string

const (
	ActionAllow    AccessRuleAction = "allow"
	ActionDeny     AccessRuleAction = "deny"
	ActionPassword AccessRuleAction = "passwd"
)

// AccessRule gates one absolute path and, via inheritance, its subtree.
type AccessRule struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Path     string             `bson:"path" json:"path"`
	Action   AccessRuleAction   `bson:"action" json:"action"`
	Password string             `bson:"password,omitempty" json:"-"`
}

// DriveSettings is the per-drive access-control configuration. RootPath
// offsets caller-facing logical paths onto the real tree when enabled.
type DriveSettings struct {
	DriveID         string       `bson:"driveId" json:"driveId"`
	RootPathEnabled bool         `bson:"rootPathEnabled" json:"rootPathEnabled"`
	RootPath        string       `bson:"rootPath" json:"rootPath"`
	AccessRules     []AccessRule `bson:"accessRules,omitempty" json:"accessRules"`
	CreatedAt       time.Time    `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt       time.Time    `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskSuccess TaskStatus = "success"
	TaskFailed  TaskStatus = "failed"
)

// UpdateTask tracks the progress of one sync run. Rows expire automatically a
// few minutes after their last update via a TTL index on updatedAt.
type UpdateTask struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Progress  float64            `bson:"progress" json:"progress"`
	Completed TaskStatus         `bson:"completed" json:"completed"`
	Error     string             `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// User is a local credential holder for the app's own API.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username  string             `bson:"username" json:"username"`
	Password  string             `bson:"password" json:"-"`
	Roles     []string           `bson:"roles" json:"roles"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Account is one linked Microsoft identity whose drive gets synced.
type Account struct {
	LocalAccountID string    `bson:"localAccountId" json:"localAccountId"`
	Username       string    `bson:"username,omitempty" json:"username,omitempty"`
	Name           string    `bson:"name,omitempty" json:"name,omitempty"`
	TenantID       string    `bson:"tenantId,omitempty" json:"tenantId,omitempty"`
	CreatedAt      time.Time `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt      time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}
