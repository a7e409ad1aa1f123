package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDriveItemIsRoot(t *testing.T) {
	root := DriveItem{ID: "root-1", Root: &struct{}{}, ParentReference: ItemReference{DriveID: "drive-1"}}
	assert.True(t, root.IsRoot())

	// A root delivered without its marker still has no parent item.
	bare := DriveItem{ID: "root-2", ParentReference: ItemReference{DriveID: "drive-1"}}
	assert.True(t, bare.IsRoot())

	child := DriveItem{ID: "file-1", ParentReference: ItemReference{DriveID: "drive-1", ID: "root-1"}}
	assert.False(t, child.IsRoot())
}

func TestSharePermissionExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.False(t, (&SharePermission{}).Expired(now), "no expiry never expires")
	assert.True(t, (&SharePermission{ExpirationDateTime: &past}).Expired(now))
	assert.False(t, (&SharePermission{ExpirationDateTime: &future}).Expired(now))
}

func TestDriveOwnerLocalID(t *testing.T) {
	assert.Empty(t, (&Drive{}).OwnerLocalID())
	assert.Empty(t, (&Drive{Owner: &IdentitySet{}}).OwnerLocalID())
	drive := &Drive{Owner: &IdentitySet{User: &Identity{ID: "acct-1"}}}
	assert.Equal(t, "acct-1", drive.OwnerLocalID())
}
