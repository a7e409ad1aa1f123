package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"drivebridge/backend/internal/apperrors"
	"drivebridge/backend/internal/models"
	"drivebridge/backend/internal/store"
)

// SettingsService owns the drive settings mutations: the logical root path
// and the access-rule CRUD. Every path accepted here must resolve to a real
// item under the drive.
type SettingsService struct {
	drives   store.DriveStore
	settings store.SettingsStore
	access   *AccessService
}

func NewSettingsService(drives store.DriveStore, settings store.SettingsStore, access *AccessService) *SettingsService {
	return &SettingsService{drives: drives, settings: settings, access: access}
}

// GetOrCreate returns the drive's settings, creating the document on first
// access. The drive itself must exist.
func (s *SettingsService) GetOrCreate(ctx context.Context, driveID string) (*models.DriveSettings, error) {
	settings, err := s.settings.Find(ctx, driveID)
	if err != nil {
		return nil, err
	}
	if settings != nil {
		return settings, nil
	}

	drive, err := s.drives.FindByID(ctx, driveID)
	if err != nil {
		return nil, err
	}
	if drive == nil {
		return nil, fmt.Errorf("%w: invalid drive id %s", apperrors.ErrNotFound, driveID)
	}

	return s.settings.Create(ctx, driveID)
}

// UpdateRootPath updates the logical root configuration. A new root path is
// normalized and must resolve to an existing item.
func (s *SettingsService) UpdateRootPath(ctx context.Context, driveID string, enabled *bool, rootPath *string) (*models.DriveSettings, error) {
	if _, err := s.GetOrCreate(ctx, driveID); err != nil {
		return nil, err
	}

	if rootPath != nil {
		normalized := NormalizePath(*rootPath)
		if _, err := s.access.ResolveRealPath(ctx, driveID, normalized); err != nil {
			return nil, err
		}
		rootPath = &normalized
	}

	if err := s.settings.SetRootPath(ctx, driveID, enabled, rootPath); err != nil {
		return nil, err
	}
	return s.settings.Find(ctx, driveID)
}

// AddRule validates and appends a new access rule. The normalized path must
// resolve to a real item and must not already carry a rule.
func (s *SettingsService) AddRule(ctx context.Context, driveID string, action models.AccessRuleAction, path, password string) (*models.AccessRule, error) {
	if err := validateRule(action, password); err != nil {
		return nil, err
	}

	if _, err := s.GetOrCreate(ctx, driveID); err != nil {
		return nil, err
	}

	normalized := NormalizePath(path)
	if _, err := s.access.ResolveRealPath(ctx, driveID, normalized); err != nil {
		return nil, err
	}

	rule := models.AccessRule{
		ID:       primitive.NewObjectID(),
		Path:     normalized,
		Action:   action,
		Password: password,
	}
	matched, err := s.settings.PushRule(ctx, driveID, rule)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, fmt.Errorf("%w: access rule already exists at %s", apperrors.ErrConflict, normalized)
	}
	return &rule, nil
}

// UpdateRule replaces an existing rule in place.
func (s *SettingsService) UpdateRule(ctx context.Context, driveID, ruleID string, action models.AccessRuleAction, path, password string) (*models.AccessRule, error) {
	if err := validateRule(action, password); err != nil {
		return nil, err
	}

	oid, err := primitive.ObjectIDFromHex(ruleID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid access rule id %s", apperrors.ErrNotFound, ruleID)
	}

	normalized := NormalizePath(path)
	if _, err := s.access.ResolveRealPath(ctx, driveID, normalized); err != nil {
		return nil, err
	}

	rule := models.AccessRule{
		ID:       oid,
		Path:     normalized,
		Action:   action,
		Password: password,
	}
	matched, err := s.settings.SetRule(ctx, driveID, rule)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, fmt.Errorf("%w: invalid access rule id %s", apperrors.ErrNotFound, ruleID)
	}
	return &rule, nil
}

// DeleteRule removes a rule by id.
func (s *SettingsService) DeleteRule(ctx context.Context, driveID, ruleID string) error {
	matched, err := s.settings.PullRule(ctx, driveID, ruleID)
	if err != nil {
		return err
	}
	if !matched {
		return fmt.Errorf("%w: invalid access rule id %s", apperrors.ErrNotFound, ruleID)
	}
	return nil
}

func validateRule(action models.AccessRuleAction, password string) error {
	switch action {
	case models.ActionAllow, models.ActionDeny:
		return nil
	case models.ActionPassword:
		if password == "" {
			return fmt.Errorf("%w: missing property password", apperrors.ErrValidation)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown access rule action %q", apperrors.ErrValidation, action)
	}
}
