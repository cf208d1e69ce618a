package gitlab

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "glpat-test"

func newTestClient(t *testing.T, handler http.Handler, tokenType TokenType) *APIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewAPIClient(testToken, GitLabConfig{URL: server.URL + "/", TokenType: tokenType})
}

func TestServerURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"gitlab.example.com", "https://gitlab.example.com"},
		{"https://gitlab.example.com/", "https://gitlab.example.com"},
		{"http://localhost:8080", "http://localhost:8080"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, GitLabConfig{URL: tt.in}.ServerURL())
		})
	}
}

func TestAuthenticate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("PRIVATE-TOKEN") != testToken {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"message":"401 Unauthorized"}`)
			return
		}
		fmt.Fprint(w, `{"id":7,"username":"backup-bot","name":"Backup Bot"}`)
	})

	t.Run("ValidToken", func(t *testing.T) {
		client := newTestClient(t, mux, TokenTypePrivate)
		user, err := client.Authenticate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "backup-bot", user.Username)
	})

	t.Run("InvalidToken", func(t *testing.T) {
		client := newTestClient(t, mux, TokenTypePrivate)
		client.token = "wrong"
		_, err := client.Authenticate(context.Background())
		require.Error(t, err)
		assert.True(t, IsUnauthorized(err))
		assert.Contains(t, err.Error(), "401 Unauthorized")
	})
}

func TestOAuthTokenUsesBearerHeader(t *testing.T) {
	var gotAuth, gotPrivate string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/user", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPrivate = r.Header.Get("PRIVATE-TOKEN")
		fmt.Fprint(w, `{"id":1,"username":"oauth-user"}`)
	})
	client := newTestClient(t, mux, TokenTypeOAuth)

	_, err := client.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+testToken, gotAuth)
	assert.Empty(t, gotPrivate)
}

func TestFetchGroupByFullPath(t *testing.T) {
	var gotPath string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		fmt.Fprint(w, `{"id":248,"name":"Platform","path":"platform","full_path":"acme/platform"}`)
	})
	client := newTestClient(t, handler, TokenTypePrivate)

	group, err := client.FetchGroup(context.Background(), "acme/platform")
	require.NoError(t, err)
	assert.Equal(t, "/api/v4/groups/acme%2Fplatform", gotPath)
	assert.Equal(t, Group{ID: 248, Name: "Platform", Path: "platform", FullPath: "acme/platform"}, *group)
}

func TestFetchGroupNotFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"404 Group Not Found"}`)
	})
	client := newTestClient(t, handler, TokenTypePrivate)

	_, err := client.FetchGroup(context.Background(), "999")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "failed to fetch group 999")
}

func TestListGroupProjectsFollowsPagination(t *testing.T) {
	var requestedPages []string
	var includeSubgroups string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/groups/240/projects", r.URL.Path)
		page := r.URL.Query().Get("page")
		includeSubgroups = r.URL.Query().Get("include_subgroups")
		requestedPages = append(requestedPages, page+"/"+r.URL.Query().Get("per_page"))
		switch page {
		case "1":
			w.Header().Set("X-Next-Page", "2")
			fmt.Fprint(w, `[{"id":1,"name":"api"},{"id":2,"name":"web"}]`)
		case "2":
			w.Header().Set("X-Next-Page", "")
			fmt.Fprint(w, `[{"id":3,"name":"docs"}]`)
		default:
			t.Errorf("unexpected page %s", page)
		}
	})
	client := newTestClient(t, handler, TokenTypePrivate)

	projects, err := client.ListGroupProjects(context.Background(), 240, true)
	require.NoError(t, err)

	names := make([]string, 0, len(projects))
	for _, p := range projects {
		names = append(names, strconv.Itoa(p.ID)+":"+p.Name)
	}
	if diff := cmp.Diff([]string{"1:api", "2:web", "3:docs"}, names); diff != "" {
		t.Errorf("projects mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"1/100", "2/100"}, requestedPages)
	assert.Equal(t, "true", includeSubgroups)
}

func TestFetchProject(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/12", r.URL.Path)
		fmt.Fprint(w, `{"id":12,"name":"api","empty_repo":true,"http_url_to_repo":"https://gitlab.example.com/acme/api.git","path_with_namespace":"acme/api"}`)
	})
	client := newTestClient(t, handler, TokenTypePrivate)

	project, err := client.FetchProject(context.Background(), 12)
	require.NoError(t, err)
	assert.True(t, project.EmptyRepo)
	assert.Equal(t, "https://gitlab.example.com/acme/api.git", project.HTTPURLToRepo)
}

func TestDownloadArchive(t *testing.T) {
	payload := bytes.Repeat([]byte("zipdata"), 1000)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v4/projects/5/repository/archive.zip":
			assert.Empty(t, r.Header.Get("Accept"))
			w.Header().Set("Content-Type", "application/zip")
			_, _ = w.Write(payload)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"404 Project Not Found"}`)
		}
	})
	client := newTestClient(t, handler, TokenTypePrivate)

	t.Run("Streams", func(t *testing.T) {
		var buf bytes.Buffer
		n, err := client.DownloadArchive(context.Background(), 5, "zip", &buf)
		require.NoError(t, err)
		assert.Equal(t, int64(len(payload)), n)
		assert.Equal(t, payload, buf.Bytes())
	})

	t.Run("NotFound", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := client.DownloadArchive(context.Background(), 6, "zip", &buf)
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
		assert.Zero(t, buf.Len())
	})
}

func TestTokenTypeValidate(t *testing.T) {
	assert.NoError(t, TokenType("").Validate())
	assert.NoError(t, TokenTypeOAuth.Validate())
	assert.Error(t, TokenType("basic").Validate())
}
