package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	. "glbackup/internal/log"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

const DefaultPageSize = 100

// APIError is returned for any non-2xx answer of the GitLab API.
type APIError struct {
	StatusCode int
	Status     string
	URL        string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("GitLab API request on %s failed with status: %s (%s)", e.URL, e.Status, e.Message)
	}
	return fmt.Sprintf("GitLab API request on %s failed with status: %s", e.URL, e.Status)
}

func IsNotFound(err error) bool {
	return HasStatus(err, http.StatusNotFound)
}

func IsUnauthorized(err error) bool {
	return HasStatus(err, http.StatusUnauthorized) || HasStatus(err, http.StatusForbidden)
}

func HasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		URL:        resp.Request.URL.Redacted(),
	}
	var body struct {
		Message any    `json:"message"`
		Error   string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(raw, &body) == nil {
		switch {
		case body.Message != nil:
			apiErr.Message = fmt.Sprint(body.Message)
		case body.Error != "":
			apiErr.Message = body.Error
		}
	}
	return apiErr
}

func closeBody(body io.ReadCloser) {
	err := body.Close()
	if err != nil {
		Log.Errorf("Failed to close response body: %v", err)
	}
}

// get performs a GET on an API path and returns the open response when the status is 2xx.
func (labApi *APIClient) get(ctx context.Context, path string, query url.Values, accept string) (*http.Response, error) {
	target := labApi.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if labApi.tokenType != TokenTypeOAuth {
		req.Header.Set("PRIVATE-TOKEN", labApi.token)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := labApi.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer closeBody(resp.Body)
		return nil, newAPIError(resp)
	}
	return resp, nil
}

func gitlabGet[T any](ctx context.Context, labApi *APIClient, path string, query url.Values) (T, http.Header, error) {
	var emptyResult T
	resp, err := labApi.get(ctx, path, query, "application/json")
	if err != nil {
		return emptyResult, nil, err
	}
	defer closeBody(resp.Body)

	var decodedResult T
	if err := json.NewDecoder(resp.Body).Decode(&decodedResult); err != nil {
		return emptyResult, nil, fmt.Errorf("failed to decode response of %s: %w", path, err)
	}
	return decodedResult, resp.Header, nil
}

// gitlabGetAll follows the X-Next-Page header until the last page.
func gitlabGetAll[T any](ctx context.Context, labApi *APIClient, path string, query url.Values) ([]T, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("per_page", strconv.Itoa(labApi.pageSize))

	var all []T
	page := 1
	for {
		query.Set("page", strconv.Itoa(page))
		items, header, err := gitlabGet[[]T](ctx, labApi, path, query)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)

		next, err := strconv.Atoi(header.Get("X-Next-Page"))
		if err != nil || next <= page {
			return all, nil
		}
		Log.Debugf("Fetching page %d of %s", next, path)
		page = next
	}
}
