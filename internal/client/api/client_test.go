package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securecloudx/securecloudx/internal/common"
)

func TestRegisterAndLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/register":
			require.Equal(t, http.MethodPost, r.Method)
			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "alice", req["username"])
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"user_id":"u-1","public_key":"-----BEGIN PUBLIC KEY-----"}`)
		case "/api/login":
			fmt.Fprint(w, `{"access_token":"tok-123"}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	userID, publicKey, err := c.Register(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u-1", userID)
	assert.Contains(t, publicKey, "PUBLIC KEY")

	require.False(t, c.IsLoggedIn())
	require.NoError(t, c.Login(context.Background(), "alice", "pw"))
	assert.True(t, c.IsLoggedIn())

	c.Logout()
	assert.False(t, c.IsLoggedIn())
}

func TestLogin_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid credentials"}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	err := c.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestUpload_SendsTokenAndMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/upload", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get(common.AccessTokenHeaderName))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		part, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer part.Close()
		assert.Equal(t, "notes.txt", header.Filename)

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"file_id":"f-1","ledger_index":5}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.token = "tok-123"

	fileID, index, err := c.Upload(context.Background(), "notes.txt", []byte("content"))
	require.NoError(t, err)
	assert.Equal(t, "f-1", fileID)
	assert.Equal(t, 5, index)
}

func TestDownload_FilenameFromHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/download/f-1", r.URL.Path)
		w.Header().Set("Content-Disposition", `attachment; filename="notes.txt"`)
		_, _ = w.Write([]byte("file content"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	filename, content, err := c.Download(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", filename)
	assert.Equal(t, []byte("file content"), content)
}

func TestShare_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":"access denied"}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Share(context.Background(), "f-1", "bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestFilesAndUsersAndChain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/files":
			fmt.Fprint(w, `{"owned":[{"file_id":"f-1","filename":"a.txt"}],"shared_with_me":[]}`)
		case "/api/users":
			fmt.Fprint(w, `{"users":[{"user_id":"u-1","username":"alice"}]}`)
		case "/api/chain":
			fmt.Fprint(w, `{"length":2,"is_valid":true,"records":[{"index":0,"previous_hash":"0","hash":"aa"},{"index":1,"previous_hash":"aa","hash":"bb"}]}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()

	owned, shared, err := c.Files(ctx)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "a.txt", owned[0].Filename)
	assert.Empty(t, shared)

	users, err := c.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)

	chain, err := c.Chain(ctx)
	require.NoError(t, err)
	assert.True(t, chain.IsValid)
	assert.Equal(t, 2, chain.Length)
	require.Len(t, chain.Records, 2)
	assert.Equal(t, "0", chain.Records[0].PreviousHash)
}
