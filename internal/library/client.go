package library

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"media-enricher/internal/logging"
)

const (
	findScenesQuery = `query FindScenes($filter: FindFilterType, $scene_filter: SceneFilterType) {
  findScenes(filter: $filter, scene_filter: $scene_filter) {
    count
    scenes {
      id
      files { id path fingerprints { type value } }
      paths { screenshot }
    }
  }
}`

	countScenesQuery = `query CountScenes($filter: FindFilterType, $scene_filter: SceneFilterType) {
  findScenes(filter: $filter, scene_filter: $scene_filter) {
    count
  }
}`

	bulkSceneUpdateMutation = `mutation BulkSceneUpdate($input: BulkSceneUpdateInput!) {
  bulkSceneUpdate(input: $input) { id }
}`

	setFingerprintsMutation = `mutation FileSetFingerprints($input: FileSetFingerprintsInput!) {
  fileSetFingerprints(input: $input)
}`

	sceneUpdateMutation = `mutation SceneUpdate($input: SceneUpdateInput!) {
  sceneUpdate(input: $input) { id }
}`
)

// Options configure a Client.
type Options struct {
	// URL is the GraphQL endpoint, e.g. http://host:9999/graphql.
	URL string
	// APIKey is sent as the ApiKey header when non-empty.
	APIKey string
	// Timeout bounds a single request. Zero means 60 seconds.
	Timeout time.Duration
	// ExcludeTags are the workflow tag IDs that remove a scene from
	// selection (claim marker plus both error markers).
	ExcludeTags []string
}

// Client is a typed client for the media-library service's GraphQL API.
// It is safe for concurrent use; per-scene tag mutations are atomic on
// the service side.
type Client struct {
	url         string
	apiKey      string
	http        *http.Client
	excludeTags []string
}

// New builds a Client from Options.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		url:         opts.URL,
		apiKey:      opts.APIKey,
		http:        &http.Client{Timeout: timeout},
		excludeTags: opts.ExcludeTags,
	}
}

type graphqlRequest struct {
	Query     string      `json:"query"`
	Variables interface{} `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// do posts one GraphQL document and decodes the data payload into out.
func (c *Client) do(ctx context.Context, query string, variables interface{}, out interface{}) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("ApiKey", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("library request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Debug("closing response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("library returned status %d", resp.StatusCode)
	}

	var decoded graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return fmt.Errorf("library error: %s", decoded.Errors[0].Message)
	}
	if out != nil {
		if err := json.Unmarshal(decoded.Data, out); err != nil {
			return fmt.Errorf("decoding data payload: %w", err)
		}
	}
	return nil
}

func (c *Client) selectionFilter() sceneFilter {
	return sceneFilter{
		PHash: stringCriterion{Value: "", Modifier: "IS_NULL"},
		Tags:  multiCriterion{Value: c.excludeTags, Modifier: "EXCLUDES"},
	}
}

// FindScenes fetches one page of eligible scenes, newest first, along
// with the total count of scenes still matching the filter.
func (c *Client) FindScenes(ctx context.Context, page, perPage int) (ScenePage, error) {
	variables := struct {
		Filter      findFilter  `json:"filter"`
		SceneFilter sceneFilter `json:"scene_filter"`
	}{
		Filter: findFilter{
			Sort:      "created_at",
			Direction: "DESC",
			PerPage:   perPage,
			Page:      page,
		},
		SceneFilter: c.selectionFilter(),
	}

	var data struct {
		FindScenes ScenePage `json:"findScenes"`
	}
	if err := c.do(ctx, findScenesQuery, variables, &data); err != nil {
		return ScenePage{}, err
	}
	return data.FindScenes, nil
}

// TotalCount returns how many scenes currently match the selection
// filter, without fetching any scene data.
func (c *Client) TotalCount(ctx context.Context) (int, error) {
	variables := struct {
		Filter      findFilter  `json:"filter"`
		SceneFilter sceneFilter `json:"scene_filter"`
	}{
		Filter:      findFilter{Sort: "created_at", Direction: "DESC", PerPage: 1},
		SceneFilter: c.selectionFilter(),
	}

	var data struct {
		FindScenes struct {
			Count int `json:"count"`
		} `json:"findScenes"`
	}
	if err := c.do(ctx, countScenesQuery, variables, &data); err != nil {
		return 0, err
	}
	return data.FindScenes.Count, nil
}

func (c *Client) updateTags(ctx context.Context, sceneIDs []string, tagID, mode string) error {
	variables := struct {
		Input bulkSceneUpdateInput `json:"input"`
	}{
		Input: bulkSceneUpdateInput{
			IDs:    sceneIDs,
			TagIDs: bulkUpdateIDs{IDs: []string{tagID}, Mode: mode},
		},
	}
	return c.do(ctx, bulkSceneUpdateMutation, variables, nil)
}

// AddTag adds a tag to the given scenes. Re-adding an existing tag is a
// no-op on the service side, which makes claims idempotent.
func (c *Client) AddTag(ctx context.Context, sceneIDs []string, tagID string) error {
	return c.updateTags(ctx, sceneIDs, tagID, "ADD")
}

// RemoveTag removes a tag from the given scenes.
func (c *Client) RemoveTag(ctx context.Context, sceneIDs []string, tagID string) error {
	return c.updateTags(ctx, sceneIDs, tagID, "REMOVE")
}

// SetFingerprints replaces the fingerprint list of a file record.
func (c *Client) SetFingerprints(ctx context.Context, fileID string, fps []Fingerprint) error {
	variables := struct {
		Input setFingerprintsInput `json:"input"`
	}{
		Input: setFingerprintsInput{ID: fileID, Fingerprints: fps},
	}
	return c.do(ctx, setFingerprintsMutation, variables, nil)
}

// SetCover submits a new cover image for a scene as a base64 data URI.
func (c *Client) SetCover(ctx context.Context, sceneID, dataURI string) error {
	variables := struct {
		Input sceneUpdateInput `json:"input"`
	}{
		Input: sceneUpdateInput{ID: sceneID, CoverImage: dataURI},
	}
	return c.do(ctx, sceneUpdateMutation, variables, nil)
}

// FetchImage downloads an asset URL the service handed out (such as the
// current cover screenshot), passing the API key along.
func (c *Client) FetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("ApiKey", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Debug("closing image body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
