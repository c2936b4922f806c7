package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"platelog/internal/config"
	"platelog/internal/model"
	"platelog/internal/review"
)

// HTTPDoer describes the HTTP client used by the GitHub store.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	defaultAPIBase = "https://api.github.com"
	defaultRawBase = "https://raw.githubusercontent.com"
)

// GitHub stores the collection document and media artifacts as files in a
// repository through the contents API. Writes are conditional on the
// version token (blob sha) read immediately before each write; the provider
// rejects a stale token, which is the only defense against lost updates.
type GitHub struct {
	owner          string
	repo           string
	branch         string
	collectionPath string
	mediaDir       string
	apiBase        string
	rawBase        string
	client         HTTPDoer
	fetchTimeout   time.Duration
	uploadTimeout  time.Duration
	logger         review.Logger
}

var (
	_ review.CollectionStore = (*GitHub)(nil)
	_ review.ArtifactStore   = (*GitHub)(nil)
)

// NewGitHub creates a GitHub store from remote configuration.
func NewGitHub(remote config.RemoteConfig, timeouts config.TimeoutConfig, client HTTPDoer, logger review.Logger) *GitHub {
	g := &GitHub{
		owner:          remote.Owner,
		repo:           remote.Repo,
		branch:         remote.Branch,
		collectionPath: remote.CollectionPath,
		mediaDir:       remote.MediaDir,
		apiBase:        strings.TrimRight(remote.APIBaseURL, "/"),
		rawBase:        strings.TrimRight(remote.RawBaseURL, "/"),
		client:         client,
		fetchTimeout:   time.Duration(timeouts.FetchSeconds) * time.Second,
		uploadTimeout:  time.Duration(timeouts.UploadSeconds) * time.Second,
		logger:         logger,
	}
	if g.branch == "" {
		g.branch = "main"
	}
	if g.collectionPath == "" {
		g.collectionPath = "reviews.json"
	}
	if g.mediaDir == "" {
		g.mediaDir = "images"
	}
	if g.apiBase == "" {
		g.apiBase = defaultAPIBase
	}
	if g.rawBase == "" {
		g.rawBase = defaultRawBase
	}
	if g.client == nil {
		g.client = http.DefaultClient
	}
	if g.fetchTimeout <= 0 {
		g.fetchTimeout = 15 * time.Second
	}
	if g.uploadTimeout <= 0 {
		g.uploadTimeout = 60 * time.Second
	}
	return g
}

// escapePath escapes each path segment while keeping separators.
func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

func (g *GitHub) apiURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", g.apiBase, g.owner, g.repo, escapePath(path))
}

// rawURL carries a cache-busting query so the static mirror never serves a
// stale document.
func (g *GitHub) rawURL(path string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s?t=%d", g.rawBase, g.owner, g.repo, g.branch, escapePath(path), time.Now().UnixMilli())
}

func (g *GitHub) do(ctx context.Context, method, rawurl string, body []byte, cred review.Credential) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawurl, r)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if cred.Valid() {
		req.Header.Set("Authorization", "Bearer "+string(cred))
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote request: %w", err)
	}
	return resp, nil
}

// contentsDocument is the contents API file descriptor.
type contentsDocument struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
	Path     string `json:"path"`
}

// putRequest is the contents API write body. SHA is omitted when the file
// is being created.
type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA  string `json:"sha"`
		Path string `json:"path"`
	} `json:"content"`
}

// readContents fetches a file through the contents API, decoding its
// base64 payload. Returns the bytes and the version token.
func (g *GitHub) readContents(ctx context.Context, path string, cred review.Credential) ([]byte, string, error) {
	resp, err := g.do(ctx, http.MethodGet, g.apiURL(path), nil, cred)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, "", fmt.Errorf("%s: %w", path, review.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", &review.StatusError{Op: "read " + path, Status: resp.StatusCode}
	}

	var doc contentsDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, "", fmt.Errorf("parsing contents response: %w", err)
	}

	// The API wraps base64 payloads across lines.
	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(doc.Content, "\n", ""))
	if err != nil {
		return nil, "", fmt.Errorf("decoding %s content: %w", path, err)
	}
	return data, doc.SHA, nil
}

// readRaw fetches a file from the unauthenticated static mirror.
func (g *GitHub) readRaw(ctx context.Context, path string) ([]byte, error) {
	resp, err := g.do(ctx, http.MethodGet, g.rawURL(path), nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", path, review.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &review.StatusError{Op: "read " + path, Status: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

// FetchBlob retrieves an arbitrary repository file, used for the encrypted
// credential blob. Reads prefer the mirror so no credential is needed.
func (g *GitHub) FetchBlob(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.fetchTimeout)
	defer cancel()
	return g.readRaw(ctx, path)
}

// Fetch retrieves the collection document. A missing document resolves to
// an empty collection.
func (g *GitHub) Fetch(ctx context.Context, cred review.Credential) (model.Collection, error) {
	ctx, cancel := context.WithTimeout(ctx, g.fetchTimeout)
	defer cancel()

	var data []byte
	var err error
	if cred.Valid() {
		data, _, err = g.readContents(ctx, g.collectionPath, cred)
	} else {
		data, err = g.readRaw(ctx, g.collectionPath)
	}
	if err != nil {
		if isNotFound(err) {
			return model.Collection{}, nil
		}
		return nil, err
	}
	return model.UnmarshalCollection(data)
}

// version reads the current version token of a path. A missing file yields
// an empty token, meaning "create new".
func (g *GitHub) version(ctx context.Context, path string, cred review.Credential) (string, error) {
	_, sha, err := g.readContents(ctx, path, cred)
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return sha, nil
}

// Save writes the collection conditionally on the version token read just
// before the write. The provider rejects a stale token; that rejection
// surfaces as ErrVersionConflict and is never merged here.
func (g *GitHub) Save(ctx context.Context, col model.Collection, cred review.Credential) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.uploadTimeout)
	defer cancel()

	data, err := col.Marshal()
	if err != nil {
		return "", err
	}

	sha, err := g.version(ctx, g.collectionPath, cred)
	if err != nil {
		return "", fmt.Errorf("reading version token: %w", err)
	}

	return g.put(ctx, g.collectionPath, data, sha, "Update reviews", cred)
}

// put issues a single conditional write.
func (g *GitHub) put(ctx context.Context, path string, data []byte, sha, message string, cred review.Credential) (string, error) {
	body, err := json.Marshal(putRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(data),
		Branch:  g.branch,
		SHA:     sha,
	})
	if err != nil {
		return "", fmt.Errorf("encoding write request: %w", err)
	}

	resp, err := g.do(ctx, http.MethodPut, g.apiURL(path), body, cred)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict, http.StatusUnprocessableEntity:
		// The token went stale between the read and this write.
		return "", fmt.Errorf("writing %s: %w", path, review.ErrVersionConflict)
	default:
		return "", &review.StatusError{Op: "write " + path, Status: resp.StatusCode}
	}

	var pr putResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", fmt.Errorf("parsing write response: %w", err)
	}
	g.logger.Debug("remote file written", "path", path, "sha", pr.Content.SHA)
	return pr.Content.SHA, nil
}

// Put uploads an artifact at a freshly derived path. The timestamp
// component makes the path collision-resistant, so no version token is
// sent and nothing is ever overwritten.
func (g *GitHub) Put(ctx context.Context, art *review.Artifact, when time.Time, cred review.Credential) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.uploadTimeout)
	defer cancel()

	ref := fmt.Sprintf("%s/%d_%s", g.mediaDir, when.UnixMilli(), SanitizeName(art.Name))
	if _, err := g.put(ctx, ref, art.Bytes, "", "Add image "+ref, cred); err != nil {
		return "", err
	}
	return ref, nil
}

// Get retrieves an artifact's bytes. Missing objects and rejected
// credentials wrap ErrNotFound so rendering degrades instead of crashing.
func (g *GitHub) Get(ctx context.Context, ref string, cred review.Credential) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.fetchTimeout)
	defer cancel()

	var data []byte
	var err error
	if cred.Valid() {
		data, _, err = g.readContents(ctx, ref, cred)
	} else {
		data, err = g.readRaw(ctx, ref)
	}
	if err != nil {
		var se *review.StatusError
		if errors.As(err, &se) && (se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden) {
			return nil, fmt.Errorf("%s: %w", ref, review.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, review.ErrNotFound)
}
