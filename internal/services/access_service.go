package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"drivebridge/backend/internal/apperrors"
	"drivebridge/backend/internal/models"
	"drivebridge/backend/internal/store"
)

// AccessService resolves drive items from paths and enforces the
// hierarchical access rules. Rules inherit downward: the deepest rule on the
// way from an item up to the root wins, and a tree without any matching rule
// is closed by default.
type AccessService struct {
	items    store.DriveItemStore
	settings store.SettingsStore
}

func NewAccessService(items store.DriveItemStore, settings store.SettingsStore) *AccessService {
	return &AccessService{items: items, settings: settings}
}

// NormalizePath collapses repeated separators and strips the trailing one.
// The result always starts with '/'; the empty path is the root.
func NormalizePath(path string) string {
	var b strings.Builder
	b.WriteByte('/')
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		if b.Len() > 1 {
			b.WriteByte('/')
		}
		b.WriteString(segment)
	}
	return b.String()
}

// parentPath strips the last segment; the parent of "/" is "/".
func parentPath(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx <= 0 {
		return "/"
	}
	return path[:idx]
}

// ResolveLogicalPath maps a caller-facing absolute path onto the real tree,
// prefixing the drive's configured root path when enabled, and descends to
// the matching item.
func (s *AccessService) ResolveLogicalPath(ctx context.Context, driveID, logicalPath string) (*models.DriveItem, error) {
	settings, err := s.settings.Find(ctx, driveID)
	if err != nil {
		return nil, err
	}

	prefix := "/"
	if settings != nil && settings.RootPathEnabled && settings.RootPath != "" {
		prefix = settings.RootPath
	}

	return s.ResolveRealPath(ctx, driveID, prefix+"/"+logicalPath)
}

// ResolveRealPath walks the real tree from the drive root one segment at a
// time, matching children by exact name. The root path resolves to the root
// item directly.
func (s *AccessService) ResolveRealPath(ctx context.Context, driveID, path string) (*models.DriveItem, error) {
	current, err := s.items.FindRoot(ctx, driveID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("%w: no root item for drive %s", apperrors.ErrNotFound, driveID)
	}

	path = NormalizePath(path)
	if path == "/" {
		return current, nil
	}

	for _, segment := range strings.Split(path[1:], "/") {
		next, err := s.items.FindChildByName(ctx, current.ID, segment)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, fmt.Errorf("%w: no item at %s in drive %s", apperrors.ErrNotFound, path, driveID)
		}
		current = next
	}
	return current, nil
}

// ComputeRealPath walks parent references upward and returns the item's
// absolute path within its drive: "/" for the root, otherwise
// "/name/.../name" with no trailing separator.
func (s *AccessService) ComputeRealPath(ctx context.Context, itemID string) (string, error) {
	path := ""
	currentID := itemID

	for {
		item, err := s.items.FindByID(ctx, currentID)
		if err != nil {
			return "", err
		}
		if item == nil {
			return "", fmt.Errorf("%w: invalid drive item id %s", apperrors.ErrNotFound, currentID)
		}

		parentID := item.ParentReference.ID
		if parentID == "" {
			// Reached the drive root; its name is not part of the path.
			break
		}

		path = "/" + item.Name + path
		currentID = parentID
	}

	if path == "" {
		return "/", nil
	}
	return path, nil
}

// CheckAccess resolves the item's real path and walks it upward, consulting
// the drive's rule set at each level. The first rule found decides; no rule
// anywhere means deny.
func (s *AccessService) CheckAccess(ctx context.Context, itemID, password string) error {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("%w: invalid drive item id %s", apperrors.ErrNotFound, itemID)
	}

	path, err := s.ComputeRealPath(ctx, itemID)
	if err != nil {
		return err
	}

	rules, err := s.ruleMap(ctx, item.ParentReference.DriveID)
	if err != nil {
		return err
	}

	return checkPathAccess(path, rules, password)
}

// ListChildren checks full inherited access on the parent, then returns its
// children annotated with the rule (if any) sitting exactly at each child's
// path. The annotation is deliberately shallow; only direct item access does
// the full upward walk.
func (s *AccessService) ListChildren(ctx context.Context, parent *models.DriveItem, password string, page store.Page) ([]models.DriveItem, error) {
	if parent.Folder == nil && !parent.IsRoot() {
		return []models.DriveItem{}, nil
	}

	path, err := s.ComputeRealPath(ctx, parent.ID)
	if err != nil {
		return nil, err
	}

	rules, err := s.ruleMap(ctx, parent.ParentReference.DriveID)
	if err != nil {
		return nil, err
	}

	if err := checkPathAccess(path, rules, password); err != nil {
		return nil, err
	}

	children, err := s.items.FindChildren(ctx, parent.ID, page)
	if err != nil {
		return nil, err
	}

	base := path
	if base == "/" {
		base = ""
	}
	for i := range children {
		rule, ok := rules[base+"/"+children[i].Name]
		if !ok {
			continue
		}
		switch rule.Action {
		case models.ActionDeny:
			children[i].AccessDenied = true
		case models.ActionPassword:
			children[i].RequiredPassword = true
		}
	}
	return children, nil
}

// ruleMap loads the drive's rules keyed by normalized path. A configured
// logical root without an explicit rule of its own gets an implicit ALLOW so
// it stays reachable by default.
func (s *AccessService) ruleMap(ctx context.Context, driveID string) (map[string]models.AccessRule, error) {
	settings, err := s.settings.Find(ctx, driveID)
	if err != nil {
		return nil, err
	}

	rules := make(map[string]models.AccessRule)
	if settings == nil {
		return rules, nil
	}

	for _, rule := range settings.AccessRules {
		rule.Path = NormalizePath(rule.Path)
		rules[rule.Path] = rule
	}

	if settings.RootPathEnabled && settings.RootPath != "" {
		rootPath := NormalizePath(settings.RootPath)
		if _, ok := rules[rootPath]; !ok {
			rules[rootPath] = models.AccessRule{Path: rootPath, Action: models.ActionAllow}
		}
	}
	return rules, nil
}

// checkPathAccess walks from the path itself up to "/" (inclusive) and stops
// at the first level holding a rule. The walk shortens the path each step,
// so the deepest rule wins.
func checkPathAccess(path string, rules map[string]models.AccessRule, password string) error {
	for p := NormalizePath(path); ; p = parentPath(p) {
		if rule, ok := rules[p]; ok {
			switch rule.Action {
			case models.ActionAllow:
				return nil
			case models.ActionDeny:
				return fmt.Errorf("%w: path %s", apperrors.ErrForbidden, p)
			case models.ActionPassword:
				if subtle.ConstantTimeCompare([]byte(rule.Password), []byte(password)) == 1 {
					return nil
				}
				return fmt.Errorf("%w: path %s", apperrors.ErrAuthenticationFailed, p)
			}
		}
		if p == "/" {
			break
		}
	}
	// No rule anywhere on the chain: closed by default.
	return fmt.Errorf("%w: no access rule matches", apperrors.ErrForbidden)
}
