// Package storetest provides in-memory store implementations for service
// tests. They mirror the Mongo stores' observable behavior, including the
// merge semantics of drive upserts and the path guard on rule pushes.
package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"drivebridge/backend/internal/models"
	"drivebridge/backend/internal/store"
)

type Drives struct {
	mu     sync.Mutex
	drives map[string]models.Drive
}

func NewDrives() *Drives {
	return &Drives{drives: make(map[string]models.Drive)}
}

func (s *Drives) FindMany(ctx context.Context) ([]models.Drive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Drive, 0, len(s.drives))
	for _, d := range s.drives {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Drives) FindByID(ctx context.Context, id string) (*models.Drive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.drives[id]; ok {
		return &d, nil
	}
	return nil, nil
}

func (s *Drives) FindByOwnerLocalID(ctx context.Context, localAccountID string) (*models.Drive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.drives {
		if d.OwnerLocalID() == localAccountID {
			out := d
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Drives) Upsert(ctx context.Context, drive *models.Drive) (*models.Drive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := *drive
	if existing, ok := s.drives[drive.ID]; ok {
		// Fetched payloads never carry local sync state.
		merged.DeltaLink = existing.DeltaLink
		merged.ShareBaseURL = existing.ShareBaseURL
		merged.EntireUpdateTag = existing.EntireUpdateTag
	}
	merged.UpdatedAt = time.Now().UTC()
	s.drives[drive.ID] = merged
	out := merged
	return &out, nil
}

func (s *Drives) SaveSyncState(ctx context.Context, id, deltaLink, entireUpdateTag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.drives[id]
	d.DeltaLink = deltaLink
	if entireUpdateTag != "" {
		d.EntireUpdateTag = entireUpdateTag
	}
	s.drives[id] = d
	return nil
}

func (s *Drives) SaveShareBaseURL(ctx context.Context, id, shareBaseURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.drives[id]
	d.ShareBaseURL = shareBaseURL
	s.drives[id] = d
	return nil
}

func (s *Drives) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drives, id)
	return nil
}

type DriveItems struct {
	mu    sync.Mutex
	items map[string]models.DriveItem
}

func NewDriveItems() *DriveItems {
	return &DriveItems{items: make(map[string]models.DriveItem)}
}

// Seed inserts items directly, bypassing the bulk path.
func (s *DriveItems) Seed(items ...models.DriveItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.items[item.ID] = item
	}
}

// All returns a snapshot of every stored item keyed by id.
func (s *DriveItems) All() map[string]models.DriveItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]models.DriveItem, len(s.items))
	for id, item := range s.items {
		out[id] = item
	}
	return out
}

func (s *DriveItems) FindByID(ctx context.Context, id string) (*models.DriveItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.items[id]; ok {
		return &item, nil
	}
	return nil, nil
}

func (s *DriveItems) FindRoot(ctx context.Context, driveID string) (*models.DriveItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ParentReference.DriveID == driveID && item.Root != nil {
			out := item
			return &out, nil
		}
	}
	return nil, nil
}

func (s *DriveItems) FindChildren(ctx context.Context, parentID string, page store.Page) ([]models.DriveItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	page = page.Normalize()

	var children []models.DriveItem
	for _, item := range s.items {
		if item.ParentReference.ID == parentID {
			children = append(children, item)
		}
	}
	sort.Slice(children, func(i, j int) bool {
		if page.Order == -1 {
			return strings.Compare(children[i].Name, children[j].Name) > 0
		}
		return children[i].Name < children[j].Name
	})

	if page.Skip >= int64(len(children)) {
		return []models.DriveItem{}, nil
	}
	children = children[page.Skip:]
	if int64(len(children)) > page.Limit {
		children = children[:page.Limit]
	}
	return children, nil
}

func (s *DriveItems) FindChildByName(ctx context.Context, parentID, name string) (*models.DriveItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ParentReference.ID == parentID && item.Name == name {
			out := item
			return &out, nil
		}
	}
	return nil, nil
}

func (s *DriveItems) BulkApply(ctx context.Context, upserts []models.DriveItem, deleteIDs []string) (store.BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result store.BulkResult
	for _, item := range upserts {
		if existing, ok := s.items[item.ID]; ok {
			result.Updated++
			// Mirrors the $set/omitempty behavior of the Mongo store: an
			// upsert without a tag leaves the stored tag untouched.
			if item.EntireUpdateTag == "" {
				item.EntireUpdateTag = existing.EntireUpdateTag
			}
			if item.SharePermission == nil {
				item.SharePermission = existing.SharePermission
			}
		} else {
			result.Inserted++
		}
		s.items[item.ID] = item
	}
	for _, id := range deleteIDs {
		if _, ok := s.items[id]; ok {
			delete(s.items, id)
			result.Deleted++
		}
	}
	return result, nil
}

func (s *DriveItems) DeleteStale(ctx context.Context, driveID, keepTag string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, item := range s.items {
		if item.ParentReference.DriveID == driveID && item.EntireUpdateTag != keepTag {
			delete(s.items, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *DriveItems) DeleteByDrive(ctx context.Context, driveID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, item := range s.items {
		if item.ParentReference.DriveID == driveID {
			delete(s.items, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *DriveItems) SetSharePermission(ctx context.Context, id string, perm *models.SharePermission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil
	}
	item.SharePermission = perm
	s.items[id] = item
	return nil
}

type Settings struct {
	mu       sync.Mutex
	settings map[string]models.DriveSettings
}

func NewSettings() *Settings {
	return &Settings{settings: make(map[string]models.DriveSettings)}
}

// Seed stores the settings document directly.
func (s *Settings) Seed(settings models.DriveSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[settings.DriveID] = settings
}

func (s *Settings) Find(ctx context.Context, driveID string) (*models.DriveSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.settings[driveID]; ok {
		out := doc
		out.AccessRules = append([]models.AccessRule(nil), doc.AccessRules...)
		return &out, nil
	}
	return nil, nil
}

func (s *Settings) Create(ctx context.Context, driveID string) (*models.DriveSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := models.DriveSettings{DriveID: driveID, RootPath: "/"}
	s.settings[driveID] = doc
	return &doc, nil
}

func (s *Settings) SetRootPath(ctx context.Context, driveID string, enabled *bool, rootPath *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.settings[driveID]
	if enabled != nil {
		doc.RootPathEnabled = *enabled
	}
	if rootPath != nil {
		doc.RootPath = *rootPath
	}
	s.settings[driveID] = doc
	return nil
}

func (s *Settings) PushRule(ctx context.Context, driveID string, rule models.AccessRule) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.settings[driveID]
	if !ok {
		return false, nil
	}
	for _, existing := range doc.AccessRules {
		if existing.Path == rule.Path {
			return false, nil
		}
	}
	doc.AccessRules = append(doc.AccessRules, rule)
	sort.Slice(doc.AccessRules, func(i, j int) bool {
		return doc.AccessRules[i].Path < doc.AccessRules[j].Path
	})
	s.settings[driveID] = doc
	return true, nil
}

func (s *Settings) SetRule(ctx context.Context, driveID string, rule models.AccessRule) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.settings[driveID]
	if !ok {
		return false, nil
	}
	for i, existing := range doc.AccessRules {
		if existing.ID == rule.ID {
			doc.AccessRules[i] = rule
			s.settings[driveID] = doc
			return true, nil
		}
	}
	return false, nil
}

func (s *Settings) PullRule(ctx context.Context, driveID, ruleID string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(ruleID)
	if err != nil {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.settings[driveID]
	if !ok {
		return false, nil
	}
	for i, existing := range doc.AccessRules {
		if existing.ID == oid {
			doc.AccessRules = append(doc.AccessRules[:i], doc.AccessRules[i+1:]...)
			s.settings[driveID] = doc
			return true, nil
		}
	}
	return false, nil
}

type Tasks struct {
	mu    sync.Mutex
	tasks map[string]models.UpdateTask
}

func NewTasks() *Tasks {
	return &Tasks{tasks: make(map[string]models.UpdateTask)}
}

func (s *Tasks) Create(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := models.UpdateTask{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Completed: models.TaskPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.tasks[task.ID.Hex()] = task
	return task.ID.Hex(), nil
}

func (s *Tasks) FindByID(ctx context.Context, id string) (*models.UpdateTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[id]; ok {
		return &task, nil
	}
	return nil, nil
}

func (s *Tasks) SetProgress(ctx context.Context, id string, progress float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := s.tasks[id]
	task.Progress = progress
	task.UpdatedAt = time.Now().UTC()
	s.tasks[id] = task
	return nil
}

func (s *Tasks) SetCompleted(ctx context.Context, id string, status models.TaskStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := s.tasks[id]
	task.Completed = status
	task.Error = errMsg
	task.UpdatedAt = time.Now().UTC()
	s.tasks[id] = task
	return nil
}

type Accounts struct {
	mu       sync.Mutex
	accounts map[string]models.Account
}

func NewAccounts() *Accounts {
	return &Accounts{accounts: make(map[string]models.Account)}
}

func (s *Accounts) FindByLocalID(ctx context.Context, localAccountID string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account, ok := s.accounts[localAccountID]; ok {
		return &account, nil
	}
	return nil, nil
}

func (s *Accounts) FindAll(ctx context.Context) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		out = append(out, account)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocalAccountID < out[j].LocalAccountID })
	return out, nil
}

func (s *Accounts) Upsert(ctx context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.LocalAccountID] = *account
	return nil
}

type Users struct {
	mu    sync.Mutex
	users map[string]models.User
}

func NewUsers() *Users {
	return &Users{users: make(map[string]models.User)}
}

func (s *Users) Seed(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Username] = user
}

func (s *Users) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[username]; ok {
		return &user, nil
	}
	return nil, nil
}
