package gitlab

import (
	"context"
	"fmt"
	"golang.org/x/oauth2"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

/* APIClient manages access to the GitLab API.
It adheres to the Repository pattern - it is at the boundary to external data (GitLab API).
All methods are synchronous.
*/

type APIClient struct {
	baseURL    string
	token      string
	tokenType  TokenType
	pageSize   int
	httpClient *http.Client
}

func NewAPIClient(token string, config GitLabConfig) *APIClient {
	labApi := &APIClient{
		baseURL:    config.apiBaseURL(),
		token:      token,
		tokenType:  config.TokenType,
		pageSize:   DefaultPageSize,
		httpClient: &http.Client{},
	}
	if config.TokenType == TokenTypeOAuth {
		tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		labApi.httpClient = oauth2.NewClient(context.Background(), tokenSource)
	}
	return labApi
}

// Authenticate resolves the user owning the token. It is the first call of every run.
func (labApi *APIClient) Authenticate(ctx context.Context) (*User, error) {
	user, _, err := gitlabGet[*User](ctx, labApi, "/user", nil)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	return user, nil
}

// FetchGroup accepts a numeric ID or a full path such as "parent/child".
func (labApi *APIClient) FetchGroup(ctx context.Context, groupID string) (*Group, error) {
	group, _, err := gitlabGet[*Group](ctx, labApi, "/groups/"+url.PathEscape(groupID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch group %s: %w", groupID, err)
	}
	return group, nil
}

func (labApi *APIClient) ListGroupProjects(ctx context.Context, groupID int, includeSubgroups bool) ([]Project, error) {
	query := url.Values{}
	query.Set("order_by", "id")
	query.Set("sort", "asc")
	if includeSubgroups {
		query.Set("include_subgroups", "true")
	}
	projects, err := gitlabGetAll[Project](ctx, labApi, fmt.Sprintf("/groups/%d/projects", groupID), query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects of group %d: %w", groupID, err)
	}
	return projects, nil
}

func (labApi *APIClient) FetchProject(ctx context.Context, projectID int) (*Project, error) {
	project, _, err := gitlabGet[*Project](ctx, labApi, "/projects/"+strconv.Itoa(projectID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch project %d: %w", projectID, err)
	}
	return project, nil
}

// DownloadArchive streams the repository archive of the default branch into w.
func (labApi *APIClient) DownloadArchive(ctx context.Context, projectID int, format string, w io.Writer) (int64, error) {
	resp, err := labApi.get(ctx, fmt.Sprintf("/projects/%d/repository/archive.%s", projectID, format), nil, "")
	if err != nil {
		return 0, err
	}
	defer closeBody(resp.Body)

	written, err := io.Copy(w, resp.Body)
	if err != nil {
		return written, fmt.Errorf("failed to read archive of project %d: %w", projectID, err)
	}
	return written, nil
}
