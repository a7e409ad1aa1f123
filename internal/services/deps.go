// Package services holds the drive synchronization engine, the path-based
// access control resolver, the settings mutations and the share link manager.
package services

import (
	"context"
	"time"

	"drivebridge/backend/internal/graph"
	"drivebridge/backend/internal/models"
)

// RemoteDrive is what the services need from the remote drive API. Satisfied
// by graph.Client.
type RemoteDrive interface {
	GetDrive(ctx context.Context, accessToken string) (*models.Drive, error)
	Delta(ctx context.Context, accessToken, cursor string) (*graph.DeltaPage, error)
	CreateShareLink(ctx context.Context, accessToken, itemID string, expiry time.Time) (*models.SharePermission, error)
	ContentRedirectURL(ctx context.Context, accessToken, itemID string) (string, error)
	DeletePermission(ctx context.Context, accessToken, itemID, permID string) error
}

// CredentialProvider resolves linked accounts and bearer tokens. Satisfied by
// msauth.Provider.
type CredentialProvider interface {
	GetAccount(ctx context.Context, localAccountID string) (*models.Account, error)
	GetAllAccounts(ctx context.Context) ([]models.Account, error)
	AccessToken(ctx context.Context, account *models.Account) (string, error)
}
