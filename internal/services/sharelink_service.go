package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"drivebridge/backend/internal/apperrors"
	"drivebridge/backend/internal/models"
	"drivebridge/backend/internal/store"
)

// shareLinkTTL is the fixed lifetime of created share links. Re-creating a
// link close to expiry renews it without changing the URL.
const shareLinkTTL = 7 * 24 * time.Hour

// shareURLMarker is where the content redirect URL gets truncated to derive
// the drive's stable share base URL.
const shareURLMarker = "download.aspx"

// ShareLinkService creates, caches and revokes time-limited public links for
// individual files.
type ShareLinkService struct {
	drives store.DriveStore
	items  store.DriveItemStore
	creds  CredentialProvider
	remote RemoteDrive
}

func NewShareLinkService(
	drives store.DriveStore,
	items store.DriveItemStore,
	creds CredentialProvider,
	remote RemoteDrive,
) *ShareLinkService {
	return &ShareLinkService{drives: drives, items: items, creds: creds, remote: remote}
}

// GetOrCreate returns a public URL for the file, reusing the cached
// non-expired permission when one exists. Folders get "" without error.
func (s *ShareLinkService) GetOrCreate(ctx context.Context, itemID string) (string, error) {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return "", err
	}
	if item == nil {
		return "", fmt.Errorf("%w: invalid drive item id %s", apperrors.ErrNotFound, itemID)
	}
	if item.File == nil {
		// Only files can be shared.
		return "", nil
	}

	drive, err := s.drives.FindByID(ctx, item.ParentReference.DriveID)
	if err != nil {
		return "", err
	}
	if drive == nil {
		return "", fmt.Errorf("%w: invalid drive id %s", apperrors.ErrNotFound, item.ParentReference.DriveID)
	}

	baseURL, err := s.shareBaseURL(ctx, drive, item.ID)
	if err != nil {
		return "", err
	}

	if perm := item.SharePermission; perm != nil && !perm.Expired(time.Now()) {
		return convertToShareLink(item.Name, baseURL, perm.Link.WebURL), nil
	}

	accessToken, err := s.ownerToken(ctx, drive)
	if err != nil {
		return "", err
	}

	perm, err := s.remote.CreateShareLink(ctx, accessToken, item.ID, time.Now().Add(shareLinkTTL))
	if err != nil {
		return "", err
	}
	if err := s.items.SetSharePermission(ctx, item.ID, perm); err != nil {
		return "", err
	}

	return convertToShareLink(item.Name, baseURL, perm.Link.WebURL), nil
}

// GetCached derives the public URL from state already on hand: a file with a
// non-expired cached permission on a drive whose share base URL is known.
// Anything missing yields "" — reads never create links or call the remote.
func (s *ShareLinkService) GetCached(ctx context.Context, item *models.DriveItem) (string, error) {
	if item == nil || item.File == nil {
		return "", nil
	}
	perm := item.SharePermission
	if perm == nil || perm.Expired(time.Now()) {
		return "", nil
	}

	drive, err := s.drives.FindByID(ctx, item.ParentReference.DriveID)
	if err != nil {
		return "", err
	}
	if drive == nil || drive.ShareBaseURL == "" {
		return "", nil
	}

	return convertToShareLink(item.Name, drive.ShareBaseURL, perm.Link.WebURL), nil
}

// Delete clears the cached permission first so readers never observe revoked
// state, then revokes it remotely. It reports whether a permission existed.
func (s *ShareLinkService) Delete(ctx context.Context, itemID string) (bool, error) {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return false, err
	}
	if item == nil || item.SharePermission == nil {
		return false, nil
	}

	drive, err := s.drives.FindByID(ctx, item.ParentReference.DriveID)
	if err != nil {
		return false, err
	}
	if drive == nil {
		return false, fmt.Errorf("%w: invalid drive id %s", apperrors.ErrNotFound, item.ParentReference.DriveID)
	}

	if err := s.items.SetSharePermission(ctx, item.ID, nil); err != nil {
		return false, err
	}

	accessToken, err := s.ownerToken(ctx, drive)
	if err != nil {
		return false, err
	}

	if err := s.remote.DeletePermission(ctx, accessToken, item.ID, item.SharePermission.ID); err != nil {
		return false, err
	}
	return true, nil
}

// shareBaseURL returns the drive's cached share base URL, deriving it once
// by truncating the content redirect URL at the download marker.
func (s *ShareLinkService) shareBaseURL(ctx context.Context, drive *models.Drive, itemID string) (string, error) {
	if drive.ShareBaseURL != "" {
		return drive.ShareBaseURL, nil
	}

	accessToken, err := s.ownerToken(ctx, drive)
	if err != nil {
		return "", err
	}

	contentURL, err := s.remote.ContentRedirectURL(ctx, accessToken, itemID)
	if err != nil {
		return "", err
	}

	idx := strings.Index(contentURL, shareURLMarker)
	if idx < 0 {
		return "", fmt.Errorf("%w: content url carries no %q marker", apperrors.ErrUpstream, shareURLMarker)
	}
	baseURL := contentURL[:idx] + shareURLMarker + "?share="

	if err := s.drives.SaveShareBaseURL(ctx, drive.ID, baseURL); err != nil {
		return "", err
	}
	drive.ShareBaseURL = baseURL
	return baseURL, nil
}

// ownerToken resolves the drive owner's credential. A drive without an
// owning account reference is corrupt synced state.
func (s *ShareLinkService) ownerToken(ctx context.Context, drive *models.Drive) (string, error) {
	localID := drive.OwnerLocalID()
	if localID == "" {
		return "", fmt.Errorf("%w: drive %s has no owning account", apperrors.ErrDataIntegrity, drive.ID)
	}

	account, err := s.creds.GetAccount(ctx, localID)
	if err != nil {
		return "", err
	}
	if account == nil {
		return "", fmt.Errorf("%w: account %s of drive %s is not linked", apperrors.ErrDataIntegrity, localID, drive.ID)
	}

	return s.creds.AccessToken(ctx, account)
}

// convertToShareLink substitutes the file name into the share base URL. The
// share token is the last path segment of the permission's web URL; anything
// after "download.aspx/" is accepted by the endpoint, so the file name is
// added purely for readability.
func convertToShareLink(name, baseURL, shareWebURL string) string {
	share := shareWebURL
	if idx := strings.LastIndexByte(shareWebURL, '/'); idx >= 0 {
		share = shareWebURL[idx+1:]
	}
	return strings.Replace(baseURL, "?share=", "/"+name+"?share="+share, 1)
}
