package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"drivebridge/backend/internal/models"
	"drivebridge/backend/internal/services"
	"drivebridge/backend/internal/store/storetest"
)

func newItemRouter(t *testing.T) (*gin.Engine, *storetest.Drives, *storetest.DriveItems) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	drives := storetest.NewDrives()
	items := storetest.NewDriveItems()
	settings := storetest.NewSettings()

	_, err := drives.Upsert(context.Background(), &models.Drive{
		ID:    "drive-1",
		Owner: &models.IdentitySet{User: &models.Identity{ID: "acct-1"}},
	})
	require.NoError(t, err)

	items.Seed(
		models.DriveItem{
			ID:              "root-1",
			Name:            "root",
			Root:            &struct{}{},
			ParentReference: models.ItemReference{DriveID: "drive-1"},
		},
		models.DriveItem{
			ID:              "file-note",
			Name:            "note.txt",
			File:            &models.FileFacet{MimeType: "text/plain"},
			ParentReference: models.ItemReference{DriveID: "drive-1", ID: "root-1"},
		},
	)
	settings.Seed(models.DriveSettings{
		DriveID:  "drive-1",
		RootPath: "/",
		AccessRules: []models.AccessRule{
			{ID: primitive.NewObjectID(), Path: "/", Action: models.ActionAllow},
		},
	})

	access := services.NewAccessService(items, settings)
	shareLink := services.NewShareLinkService(drives, items, nil, nil)
	handler := NewItemHandler(items, access, shareLink)

	r := gin.New()
	r.GET("/items", handler.Get)
	return r, drives, items
}

func getItem(router *gin.Engine, query string) *httptest.ResponseRecorder {
	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/items?"+query, nil)
	router.ServeHTTP(res, req)
	return res
}

func TestItemGetIncludesCachedShareLink(t *testing.T) {
	router, drives, items := newItemRouter(t)
	ctx := context.Background()

	// Before any link exists the field is absent.
	res := getItem(router, "id=file-note")
	require.Equal(t, http.StatusOK, res.Code)
	assert.NotContains(t, res.Body.String(), "shareLink")

	require.NoError(t, drives.SaveShareBaseURL(ctx, "drive-1", "https://tenant.files.1drv.com/y4m/download.aspx?share="))
	require.NoError(t, items.SetSharePermission(ctx, "file-note", &models.SharePermission{
		ID:   "perm-1",
		Link: models.ShareLink{WebURL: "https://1drv.ms/t/s!AAAA", Type: "view", Scope: "anonymous"},
	}))

	res = getItem(router, "id=file-note")
	require.Equal(t, http.StatusOK, res.Code)

	var body struct {
		ID        string `json:"id"`
		ShareLink string `json:"shareLink"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, "file-note", body.ID)
	assert.Equal(t, "https://tenant.files.1drv.com/y4m/download.aspx/note.txt?share=s!AAAA", body.ShareLink)
}

func TestItemGetByPath(t *testing.T) {
	router, _, _ := newItemRouter(t)

	res := getItem(router, "driveId=drive-1&path=/note.txt")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"id":"file-note"`)

	res = getItem(router, "driveId=drive-1&path=/missing.txt")
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = getItem(router, "")
	assert.Equal(t, http.StatusBadRequest, res.Code)
}
