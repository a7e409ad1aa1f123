package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivebridge/backend/internal/apperrors"
	"drivebridge/backend/internal/models"
	"drivebridge/backend/internal/store/storetest"
)

const testContentURL = "https://tenant.files.1drv.com/y4m/download.aspx?UniqueId=abc&access_token=xyz"

func newShareFixture(t *testing.T) (*ShareLinkService, *storetest.Drives, *storetest.DriveItems, *fakeRemote) {
	t.Helper()
	drives := storetest.NewDrives()
	items := storetest.NewDriveItems()
	seedTree(items)

	_, err := drives.Upsert(context.Background(), testDrive("drive-1", "acct-1"))
	require.NoError(t, err)

	creds := &fakeCreds{accounts: map[string]models.Account{"acct-1": {LocalAccountID: "acct-1"}}}
	remote := &fakeRemote{
		contentURL: func(ctx context.Context, token, itemID string) (string, error) {
			return testContentURL, nil
		},
	}
	return NewShareLinkService(drives, items, creds, remote), drives, items, remote
}

func sharePermission(id, token string, expiry *time.Time) *models.SharePermission {
	return &models.SharePermission{
		ID:                 id,
		ExpirationDateTime: expiry,
		Link: models.ShareLink{
			WebURL: "https://1drv.ms/t/s!" + token,
			Type:   "view",
			Scope:  "anonymous",
		},
	}
}

func TestShareLinkGetOrCreate(t *testing.T) {
	svc, drives, items, remote := newShareFixture(t)
	ctx := context.Background()

	var created []string
	remote.createLink = func(ctx context.Context, token, itemID string, expiry time.Time) (*models.SharePermission, error) {
		created = append(created, itemID)
		assert.InDelta(t, time.Until(expiry).Hours(), (7 * 24 * time.Hour).Hours(), 1)
		return sharePermission("perm-1", "AAAA", &expiry), nil
	}

	url, err := svc.GetOrCreate(ctx, "file-note")
	require.NoError(t, err)
	assert.Equal(t, "https://tenant.files.1drv.com/y4m/download.aspx/note.txt?share=s!AAAA", url)
	assert.Equal(t, []string{"file-note"}, created)

	// The permission is cached on the item and the base URL on the drive.
	item, err := items.FindByID(ctx, "file-note")
	require.NoError(t, err)
	require.NotNil(t, item.SharePermission)
	assert.Equal(t, "perm-1", item.SharePermission.ID)

	drive, err := drives.FindByID(ctx, "drive-1")
	require.NoError(t, err)
	assert.Equal(t, "https://tenant.files.1drv.com/y4m/download.aspx?share=", drive.ShareBaseURL)

	// A second call reuses the cached permission instead of creating another.
	url2, err := svc.GetOrCreate(ctx, "file-note")
	require.NoError(t, err)
	assert.Equal(t, url, url2)
	assert.Len(t, created, 1)
}

func TestShareLinkFolderYieldsNothing(t *testing.T) {
	svc, _, _, _ := newShareFixture(t)

	url, err := svc.GetOrCreate(context.Background(), "dir-docs")
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestShareLinkUnknownItem(t *testing.T) {
	svc, _, _, _ := newShareFixture(t)

	_, err := svc.GetOrCreate(context.Background(), "no-such-item")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestShareLinkExpiredPermissionRenewed(t *testing.T) {
	svc, _, items, remote := newShareFixture(t)
	ctx := context.Background()

	expired := time.Now().Add(-time.Hour)
	require.NoError(t, items.SetSharePermission(ctx, "file-note", sharePermission("perm-old", "OLD", &expired)))

	remote.createLink = func(ctx context.Context, token, itemID string, expiry time.Time) (*models.SharePermission, error) {
		return sharePermission("perm-new", "NEW", &expiry), nil
	}

	url, err := svc.GetOrCreate(ctx, "file-note")
	require.NoError(t, err)
	assert.Contains(t, url, "?share=s!NEW")

	item, err := items.FindByID(ctx, "file-note")
	require.NoError(t, err)
	assert.Equal(t, "perm-new", item.SharePermission.ID)
}

func TestShareLinkBaseURLDerivedOnce(t *testing.T) {
	svc, _, _, remote := newShareFixture(t)
	ctx := context.Background()

	contentCalls := 0
	remote.contentURL = func(ctx context.Context, token, itemID string) (string, error) {
		contentCalls++
		return testContentURL, nil
	}
	remote.createLink = func(ctx context.Context, token, itemID string, expiry time.Time) (*models.SharePermission, error) {
		return sharePermission("perm-"+itemID, "T", &expiry), nil
	}

	_, err := svc.GetOrCreate(ctx, "file-note")
	require.NoError(t, err)
	_, err = svc.GetOrCreate(ctx, "file-open")
	require.NoError(t, err)

	assert.Equal(t, 1, contentCalls, "the share base URL is derived once per drive")
}

func TestShareLinkBadContentURL(t *testing.T) {
	svc, _, _, remote := newShareFixture(t)

	remote.contentURL = func(ctx context.Context, token, itemID string) (string, error) {
		return "https://tenant.files.1drv.com/y4m/other.aspx?id=1", nil
	}

	_, err := svc.GetOrCreate(context.Background(), "file-note")
	require.ErrorIs(t, err, apperrors.ErrUpstream)
}

func TestShareLinkGetCached(t *testing.T) {
	svc, drives, items, remote := newShareFixture(t)
	ctx := context.Background()

	// Reads must never reach out: any remote call is a failure.
	remote.contentURL = func(ctx context.Context, token, itemID string) (string, error) {
		t.Error("cached lookup must not fetch the content URL")
		return "", nil
	}
	remote.createLink = func(ctx context.Context, token, itemID string, expiry time.Time) (*models.SharePermission, error) {
		t.Error("cached lookup must not create a link")
		return nil, nil
	}

	item, err := items.FindByID(ctx, "file-note")
	require.NoError(t, err)

	// No cached permission yet.
	url, err := svc.GetCached(ctx, item)
	require.NoError(t, err)
	assert.Empty(t, url)

	// Permission cached but the drive's base URL is still unknown.
	require.NoError(t, items.SetSharePermission(ctx, "file-note", sharePermission("perm-1", "AAAA", nil)))
	item, err = items.FindByID(ctx, "file-note")
	require.NoError(t, err)
	url, err = svc.GetCached(ctx, item)
	require.NoError(t, err)
	assert.Empty(t, url)

	// Both on hand: the URL is derived locally.
	require.NoError(t, drives.SaveShareBaseURL(ctx, "drive-1", "https://tenant.files.1drv.com/y4m/download.aspx?share="))
	url, err = svc.GetCached(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, "https://tenant.files.1drv.com/y4m/download.aspx/note.txt?share=s!AAAA", url)

	// Expired permissions yield nothing instead of a dead link.
	expired := time.Now().Add(-time.Hour)
	require.NoError(t, items.SetSharePermission(ctx, "file-note", sharePermission("perm-1", "AAAA", &expired)))
	item, err = items.FindByID(ctx, "file-note")
	require.NoError(t, err)
	url, err = svc.GetCached(ctx, item)
	require.NoError(t, err)
	assert.Empty(t, url)

	// Folders never carry links.
	folder, err := items.FindByID(ctx, "dir-docs")
	require.NoError(t, err)
	url, err = svc.GetCached(ctx, folder)
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestShareLinkDelete(t *testing.T) {
	svc, _, items, remote := newShareFixture(t)
	ctx := context.Background()

	require.NoError(t, items.SetSharePermission(ctx, "file-note", sharePermission("perm-1", "AAAA", nil)))

	var revoked []string
	remote.deletePerm = func(ctx context.Context, token, itemID, permID string) error {
		revoked = append(revoked, itemID+"/"+permID)
		// The local cache must already be cleared when the remote call runs.
		item, err := items.FindByID(ctx, itemID)
		require.NoError(t, err)
		assert.Nil(t, item.SharePermission)
		return nil
	}

	existed, err := svc.Delete(ctx, "file-note")
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, []string{"file-note/perm-1"}, revoked)

	existed, err = svc.Delete(ctx, "file-note")
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Len(t, revoked, 1)
}

func TestShareLinkOwnerlessDrive(t *testing.T) {
	svc, drives, items, _ := newShareFixture(t)
	ctx := context.Background()

	// A drive whose owner identity never made it into the synced snapshot.
	_, err := drives.Upsert(ctx, &models.Drive{ID: "drive-2", Name: "Orphan"})
	require.NoError(t, err)
	items.Seed(
		rootRecord("root-2", "drive-2").DriveItem,
		fileRecord("file-orphan", "root-2", "drive-2", "o.txt").DriveItem,
	)

	_, err = svc.GetOrCreate(ctx, "file-orphan")
	require.ErrorIs(t, err, apperrors.ErrDataIntegrity)
}
