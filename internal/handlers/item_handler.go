package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"drivebridge/backend/internal/models"
	"drivebridge/backend/internal/services"
	"drivebridge/backend/internal/store"
)

type ItemHandler struct {
	items     store.DriveItemStore
	access    *services.AccessService
	shareLink *services.ShareLinkService
}

func NewItemHandler(items store.DriveItemStore, access *services.AccessService, shareLink *services.ShareLinkService) *ItemHandler {
	return &ItemHandler{items: items, access: access, shareLink: shareLink}
}

// resolve finds the target item from either a direct id or a driveId plus
// logical path.
func (h *ItemHandler) resolve(c *gin.Context) (*models.DriveItem, bool) {
	id := c.Query("id")
	driveID := c.Query("driveId")
	path := c.Query("path")

	switch {
	case id != "":
		item, err := h.items.FindByID(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return nil, false
		}
		if item == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Drive item not found"})
			return nil, false
		}
		return item, true
	case driveID != "" && path != "":
		item, err := h.access.ResolveLogicalPath(c.Request.Context(), driveID, path)
		if err != nil {
			abortWithError(c, err)
			return nil, false
		}
		return item, true
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Either id or driveId and path are required"})
		return nil, false
	}
}

// Get returns one item after full access-rule resolution on its real path.
// Files with a live cached share permission carry their public URL.
func (h *ItemHandler) Get(c *gin.Context) {
	item, ok := h.resolve(c)
	if !ok {
		return
	}

	if err := h.access.CheckAccess(c.Request.Context(), item.ID, c.Query("password")); err != nil {
		abortWithError(c, err)
		return
	}

	url, err := h.shareLink.GetCached(c.Request.Context(), item)
	if err != nil {
		abortWithError(c, err)
		return
	}
	item.ShareLink = url

	c.JSON(http.StatusOK, item)
}

// Children lists a folder's children. The parent gets the full inherited
// access check; each child is annotated with the rule sitting exactly at its
// own path, if any.
func (h *ItemHandler) Children(c *gin.Context) {
	parent, ok := h.resolve(c)
	if !ok {
		return
	}

	page := store.Page{SortKey: c.Query("sortKey")}
	if skip, err := strconv.ParseInt(c.Query("skip"), 10, 64); err == nil {
		page.Skip = skip
	}
	if limit, err := strconv.ParseInt(c.Query("limit"), 10, 64); err == nil {
		page.Limit = limit
	}
	if c.Query("order") == "desc" {
		page.Order = -1
	}

	children, err := h.access.ListChildren(c.Request.Context(), parent, c.Query("password"), page)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, children)
}

// CreateShareLink creates (or reuses) a public link for a file.
func (h *ItemHandler) CreateShareLink(c *gin.Context) {
	url, err := h.shareLink.GetOrCreate(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if url == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Only files can be shared"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"shareLink": url})
}

// DeleteShareLink revokes a file's public link.
func (h *ItemHandler) DeleteShareLink(c *gin.Context) {
	deleted, err := h.shareLink.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "No share link to delete"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Share link deleted successfully"})
}
