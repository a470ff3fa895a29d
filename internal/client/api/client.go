// Package api is the HTTP client for the SecureCloudX server API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/securecloudx/securecloudx/internal/common"
)

// Client talks to the server's JSON API. It keeps the access token obtained
// by Login and attaches it to authenticated calls.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// FileInfo mirrors the server's file listing entries.
type FileInfo struct {
	FileID      string `json:"file_id"`
	Filename    string `json:"filename"`
	OwnerID     string `json:"owner_id"`
	LedgerIndex int    `json:"ledger_index"`
}

// UserInfo mirrors the server's user listing entries.
type UserInfo struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// ChainRecord is the client-side view of one ledger record.
type ChainRecord struct {
	Index        int             `json:"index"`
	Timestamp    float64         `json:"timestamp"`
	Data         json.RawMessage `json:"data"`
	PreviousHash string          `json:"previous_hash"`
	Hash         string          `json:"hash"`
}

// ChainInfo is the audit view returned by the chain endpoint.
type ChainInfo struct {
	Length            int           `json:"length"`
	IsValid           bool          `json:"is_valid"`
	FirstInvalidIndex *int          `json:"first_invalid_index,omitempty"`
	Records           []ChainRecord `json:"records"`
}

// IsLoggedIn reports whether a Login call has stored a token.
func (c *Client) IsLoggedIn() bool {
	return c.token != ""
}

// Logout discards the stored token.
func (c *Client) Logout() {
	c.token = ""
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set(common.AccessTokenHeaderName, "Bearer "+c.token)
	}
	return req, nil
}

// apiError extracts the server's error message from a non-2xx response.
func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", common.ErrorUnauthorized, body.Error)
	}
	return fmt.Errorf("server error: %s", body.Error)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(b), "application/json")
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Register creates an account and returns its ID and public key.
func (c *Client) Register(ctx context.Context, username, password string) (userID, publicKey string, err error) {
	var out struct {
		UserID    string `json:"user_id"`
		PublicKey string `json:"public_key"`
	}
	if err := c.postJSON(ctx, "/api/register", map[string]string{"username": username, "password": password}, &out); err != nil {
		return "", "", err
	}
	return out.UserID, out.PublicKey, nil
}

// Login authenticates and stores the access token for subsequent calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.postJSON(ctx, "/api/login", map[string]string{"username": username, "password": password}, &out); err != nil {
		return err
	}
	c.token = out.AccessToken
	return nil
}

// Upload sends file content and returns the new file ID and ledger index.
func (c *Client) Upload(ctx context.Context, filename string, content []byte) (fileID string, ledgerIndex int, err error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", 0, err
	}
	if _, err := part.Write(content); err != nil {
		return "", 0, err
	}
	if err := mw.Close(); err != nil {
		return "", 0, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload", &buf, mw.FormDataContentType())
	if err != nil {
		return "", 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", 0, apiError(resp)
	}

	var out struct {
		FileID      string `json:"file_id"`
		LedgerIndex int    `json:"ledger_index"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, err
	}
	return out.FileID, out.LedgerIndex, nil
}

// Download fetches and returns the decrypted file content. The filename is
// taken from the Content-Disposition header.
func (c *Client) Download(ctx context.Context, fileID string) (filename string, content []byte, err error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/download/"+fileID, nil, "")
	if err != nil {
		return "", nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", nil, apiError(resp)
	}

	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		filename = params["filename"]
	}
	content, err = io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, err
	}
	return filename, content, nil
}

// Share grants a recipient access to a file and returns the ledger index of
// the grant record.
func (c *Client) Share(ctx context.Context, fileID, recipient string) (int, error) {
	var out struct {
		LedgerIndex int `json:"ledger_index"`
	}
	if err := c.postJSON(ctx, "/api/share", map[string]string{"file_id": fileID, "recipient": recipient}, &out); err != nil {
		return 0, err
	}
	return out.LedgerIndex, nil
}

// Files lists the caller's own files and the files shared with them.
func (c *Client) Files(ctx context.Context) (owned, shared []FileInfo, err error) {
	var out struct {
		Owned        []FileInfo `json:"owned"`
		SharedWithMe []FileInfo `json:"shared_with_me"`
	}
	if err := c.getJSON(ctx, "/api/files", &out); err != nil {
		return nil, nil, err
	}
	return out.Owned, out.SharedWithMe, nil
}

// Users lists registered accounts.
func (c *Client) Users(ctx context.Context) ([]UserInfo, error) {
	var out struct {
		Users []UserInfo `json:"users"`
	}
	if err := c.getJSON(ctx, "/api/users", &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// Chain fetches the full ledger with its validation verdict.
func (c *Client) Chain(ctx context.Context) (*ChainInfo, error) {
	out := &ChainInfo{}
	if err := c.getJSON(ctx, "/api/chain", out); err != nil {
		return nil, err
	}
	return out, nil
}
