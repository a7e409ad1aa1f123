package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivebridge/backend/internal/apperrors"
)

func TestGetDrive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/drive", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"drive-1","name":"OneDrive","owner":{"user":{"id":"acct-1"}}}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	drive, err := client.GetDrive(context.Background(), "token-1")
	require.NoError(t, err)
	assert.Equal(t, "drive-1", drive.ID)
	assert.Equal(t, "acct-1", drive.OwnerLocalID())
}

func TestDeltaPaging(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/drive/root/delta", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("token") {
		case "":
			json.NewEncoder(w).Encode(map[string]any{
				"@odata.nextLink": srv.URL + "/me/drive/root/delta?token=page2",
				"value": []map[string]any{
					{"@odata.type": "#microsoft.graph.driveItem", "id": "root-1", "name": "root", "root": map[string]any{}, "parentReference": map[string]any{"driveId": "drive-1"}},
				},
			})
		case "page2":
			json.NewEncoder(w).Encode(map[string]any{
				"@odata.deltaLink": srv.URL + "/me/drive/root/delta?token=final",
				"value": []map[string]any{
					{"@odata.type": "#microsoft.graph.driveItem", "id": "file-1", "name": "a.txt", "parentReference": map[string]any{"driveId": "drive-1", "id": "root-1"}},
				},
			})
		default:
			t.Errorf("unexpected delta token %q", r.URL.Query().Get("token"))
		}
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	ctx := context.Background()

	page, err := client.Delta(ctx, "token-1", "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "root-1", page.Items[0].ID)
	assert.Equal(t, DriveItemType, page.Items[0].ODataType)
	assert.NotEmpty(t, page.NextLink)
	assert.Empty(t, page.DeltaLink)

	page, err = client.Delta(ctx, "token-1", page.NextLink)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "file-1", page.Items[0].ID)
	assert.Empty(t, page.NextLink)
	assert.Contains(t, page.DeltaLink, "token=final")
}

func TestDeltaSkipsMalformedRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"@odata.deltaLink": "delta-1",
			"value": [
				{"@odata.type": "#microsoft.graph.driveItem", "id": "ok-1", "name": "a.txt", "parentReference": {"driveId": "drive-1", "id": "root-1"}},
				{"@odata.type": "#microsoft.graph.driveItem", "id": "bad-1", "size": "not-a-number"},
				{"@odata.type": "#microsoft.graph.driveItem", "id": "ok-2", "name": "b.txt", "parentReference": {"driveId": "drive-1", "id": "root-1"}}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	page, err := client.Delta(context.Background(), "token-1", "")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, 1, page.Skipped)
	assert.Equal(t, "ok-1", page.Items[0].ID)
	assert.Equal(t, "ok-2", page.Items[1].ID)
}

func TestDoRetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "burp", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"drive-1"}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	drive, err := client.GetDrive(context.Background(), "token-1")
	require.NoError(t, err)
	assert.Equal(t, "drive-1", drive.ID)
	assert.Equal(t, 2, calls)
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":{"code":"itemNotFound"}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	_, err := client.GetDrive(context.Background(), "token-1")
	require.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.Equal(t, 1, calls)
}

func TestDoHonorsContextDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	client := NewClientWithBaseURL(srv.URL)
	_, err := client.GetDrive(ctx, "token-1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCreateShareLink(t *testing.T) {
	expiry := time.Date(2026, 9, 6, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/me/drive/items/file-1/createLink", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "view", body["type"])
		assert.Equal(t, "anonymous", body["scope"])
		assert.Equal(t, "2026-09-06T12:00:00Z", body["expirationDateTime"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"perm-1","link":{"webUrl":"https://1drv.ms/t/s!AAAA","type":"view","scope":"anonymous"}}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	perm, err := client.CreateShareLink(context.Background(), "token-1", "file-1", expiry)
	require.NoError(t, err)
	assert.Equal(t, "perm-1", perm.ID)
	assert.Equal(t, "https://1drv.ms/t/s!AAAA", perm.Link.WebURL)
}

func TestContentRedirectURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/drive/items/file-1/content", r.URL.Path)
		w.Header().Set("Location", "https://tenant.files.1drv.com/y4m/download.aspx?id=1")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	location, err := client.ContentRedirectURL(context.Background(), "token-1", "file-1")
	require.NoError(t, err)
	assert.Equal(t, "https://tenant.files.1drv.com/y4m/download.aspx?id=1", location)
}

func TestContentRedirectURLWithoutLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	_, err := client.ContentRedirectURL(context.Background(), "token-1", "file-1")
	require.ErrorIs(t, err, apperrors.ErrUpstream)
}

func TestDeletePermission(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/me/drive/items/file-1/permissions/perm-1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	err := client.DeletePermission(context.Background(), "token-1", "file-1", "perm-1")
	require.NoError(t, err)
}
