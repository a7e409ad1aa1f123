package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"drivebridge/backend/internal/services"
	"drivebridge/backend/internal/store"
)

// SyncPayload selects which accounts to sync. An empty Accounts list means
// every linked account; Entire forces a full resync.
type SyncPayload struct {
	Accounts []string `json:"accounts"`
	Entire   bool     `json:"entire"`
}

type DriveHandler struct {
	drives store.DriveStore
	sync   *services.SyncService
}

func NewDriveHandler(drives store.DriveStore, sync *services.SyncService) *DriveHandler {
	return &DriveHandler{drives: drives, sync: sync}
}

// List returns every synced drive.
func (h *DriveHandler) List(c *gin.Context) {
	drives, err := h.drives.FindMany(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, drives)
}

// Sync creates an update task and returns its id immediately; the sync work
// runs detached.
func (h *DriveHandler) Sync(c *gin.Context) {
	var payload SyncPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
		return
	}

	taskID, err := h.sync.SyncAccounts(c.Request.Context(), payload.Accounts, payload.Entire)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"taskId": taskID})
}

// Delete removes the drive owned by the given local account along with all
// of its items.
func (h *DriveHandler) Delete(c *gin.Context) {
	deleted, err := h.sync.DeleteDrive(c.Request.Context(), c.Param("localAccountId"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Drive not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Drive deleted successfully"})
}

type TaskHandler struct {
	tasks store.TaskStore
}

func NewTaskHandler(tasks store.TaskStore) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// Get returns the progress record of one sync run. Finished tasks expire a
// few minutes after their last update, after which this turns 404.
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.tasks.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	c.JSON(http.StatusOK, task)
}
