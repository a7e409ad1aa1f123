package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"drivebridge/backend/internal/apperrors"
	"drivebridge/backend/internal/graph"
	"drivebridge/backend/internal/models"
	"drivebridge/backend/internal/store"
)

// SyncService drives delta synchronization of remote trees into the local
// collections. It is the only writer of drives, drive items and update
// tasks.
type SyncService struct {
	drives store.DriveStore
	items  store.DriveItemStore
	tasks  store.TaskStore
	creds  CredentialProvider
	remote RemoteDrive
}

func NewSyncService(
	drives store.DriveStore,
	items store.DriveItemStore,
	tasks store.TaskStore,
	creds CredentialProvider,
	remote RemoteDrive,
) *SyncService {
	return &SyncService{
		drives: drives,
		items:  items,
		tasks:  tasks,
		creds:  creds,
		remote: remote,
	}
}

// SyncAccounts creates an update task and kicks off the actual sync work in
// a detached goroutine; callers poll the returned task id for progress. An
// empty id list means every linked account. Unknown ids are skipped, not
// errors.
func (s *SyncService) SyncAccounts(ctx context.Context, localAccountIDs []string, entire bool) (string, error) {
	var accounts []models.Account

	if len(localAccountIDs) == 0 {
		all, err := s.creds.GetAllAccounts(ctx)
		if err != nil {
			return "", err
		}
		accounts = all
	} else {
		for _, localID := range localAccountIDs {
			account, err := s.creds.GetAccount(ctx, localID)
			if err != nil {
				return "", err
			}
			if account != nil {
				accounts = append(accounts, *account)
			}
		}
	}

	taskID, err := s.tasks.Create(ctx, "updateTask")
	if err != nil {
		return "", err
	}

	// Detached from the request; the task row is the only progress channel.
	go s.syncAll(context.Background(), accounts, taskID, entire)

	return taskID, nil
}

// syncAll processes accounts strictly sequentially. A failing account aborts
// the rest of the batch and marks the task failed; already-synced accounts
// keep their durable state.
func (s *SyncService) syncAll(ctx context.Context, accounts []models.Account, taskID string, entire bool) {
	log.Printf("[SyncService] [%s] starting (%d accounts)", taskID, len(accounts))

	for i := range accounts {
		if err := s.syncOne(ctx, &accounts[i], entire); err != nil {
			log.Printf("[SyncService] [%s] failed: %v", taskID, err)
			if terr := s.tasks.SetCompleted(ctx, taskID, models.TaskFailed, err.Error()); terr != nil {
				log.Printf("[SyncService] [%s] failed to record task failure: %v", taskID, terr)
			}
			return
		}

		progress := float64(i+1) / float64(len(accounts)) * 100
		if err := s.tasks.SetProgress(ctx, taskID, progress); err != nil {
			log.Printf("[SyncService] [%s] failed to update progress: %v", taskID, err)
		}
	}

	if err := s.tasks.SetCompleted(ctx, taskID, models.TaskSuccess, ""); err != nil {
		log.Printf("[SyncService] [%s] failed to record task success: %v", taskID, err)
	}
	log.Printf("[SyncService] [%s] succeeded", taskID)
}

// syncOne synchronizes a single account's drive. Without a stored delta
// cursor (or when forced) it runs a full enumeration stamped with a fresh
// generation tag, then purges items the remote no longer reports.
func (s *SyncService) syncOne(ctx context.Context, account *models.Account, entire bool) error {
	accessToken, err := s.creds.AccessToken(ctx, account)
	if err != nil {
		return err
	}

	snapshot, err := s.remote.GetDrive(ctx, accessToken)
	if err != nil {
		return err
	}

	drive, err := s.drives.Upsert(ctx, snapshot)
	if err != nil {
		return err
	}
	log.Printf("[SyncService] updating drive %s", drive.ID)

	cursor := ""
	if !entire {
		cursor = drive.DeltaLink
	}
	entire = entire || cursor == ""

	lastTag := drive.EntireUpdateTag
	newTag := uuid.NewString()

	deltaLink := ""
	for deltaLink == "" {
		page, err := s.remote.Delta(ctx, accessToken, cursor)
		if err != nil {
			return err
		}
		cursor = page.NextLink
		deltaLink = page.DeltaLink
		if cursor == "" && deltaLink == "" {
			return fmt.Errorf("%w: delta page carried neither a next nor a delta cursor", apperrors.ErrUpstream)
		}

		result, err := s.applyPage(ctx, page, entire, newTag)
		if err != nil {
			return err
		}
		log.Printf("[SyncService] drive %s: %d inserted, %d updated, %d deleted",
			drive.ID, result.Inserted, result.Updated, result.Deleted)
	}

	// After a full resync every surviving item carries the new tag; anything
	// still on an older tag was not reported by the remote and is stale.
	// A first-ever full sync has no previous tag and nothing can be stale.
	if entire && lastTag != "" {
		purged, err := s.items.DeleteStale(ctx, drive.ID, newTag)
		if err != nil {
			return err
		}
		if purged > 0 {
			log.Printf("[SyncService] drive %s: purged %d stale items", drive.ID, purged)
		}
	}

	tag := ""
	if entire {
		tag = newTag
	}
	return s.drives.SaveSyncState(ctx, drive.ID, deltaLink, tag)
}

// applyPage turns one delta page into a single bulk write. Bad records are
// skipped with a warning; they never fail the page.
func (s *SyncService) applyPage(ctx context.Context, page *graph.DeltaPage, entire bool, tag string) (store.BulkResult, error) {
	var upserts []models.DriveItem
	var deleteIDs []string

	for _, record := range page.Items {
		if record.ODataType != graph.DriveItemType {
			log.Printf("[SyncService] skipping record with wrong @odata.type %q (id=%s)", record.ODataType, record.ID)
			continue
		}
		if record.ID == "" {
			log.Printf("[SyncService] skipping record without id (name=%s)", record.Name)
			continue
		}

		if record.Deleted != nil {
			deleteIDs = append(deleteIDs, record.ID)
			continue
		}

		item := record.DriveItem
		if entire {
			item.EntireUpdateTag = tag
		}
		upserts = append(upserts, item)
	}

	return s.items.BulkApply(ctx, upserts, deleteIDs)
}

// DeleteDrive removes the drive owned by the given local account together
// with all of its items. It reports whether a drive existed.
func (s *SyncService) DeleteDrive(ctx context.Context, localAccountID string) (bool, error) {
	drive, err := s.drives.FindByOwnerLocalID(ctx, localAccountID)
	if err != nil {
		return false, err
	}
	if drive == nil {
		return false, nil
	}

	if _, err := s.items.DeleteByDrive(ctx, drive.ID); err != nil {
		return false, err
	}
	if err := s.drives.Delete(ctx, drive.ID); err != nil {
		return false, err
	}
	return true, nil
}
