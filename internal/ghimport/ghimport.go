// Package ghimport pulls BEL documents out of GitHub repositories and feeds
// them into the compilation pipeline.
package ghimport

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/belfry-bio/belfry/internal/models"
	"github.com/belfry-bio/belfry/internal/reports"
	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// contentsGetter is the slice of the GitHub API the importer needs.
type contentsGetter interface {
	GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error)
}

// Importer fetches repository files and creates reports from them.
type Importer struct {
	contents contentsGetter
	db       *gorm.DB
}

// New builds an Importer. An empty token gives unauthenticated access, which
// is enough for public repositories.
func New(db *gorm.DB, token string) *Importer {
	var client *github.Client
	if token == "" {
		client = github.NewClient(nil)
	} else {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = github.NewClient(oauth2.NewClient(context.Background(), src))
	}
	return &Importer{contents: client.Repositories, db: db}
}

// Ref names a file in a repository, optionally pinned to a branch or tag.
type Ref struct {
	Owner string
	Repo  string
	Path  string
	Rev   string
}

// ParseRef parses "owner/repo/path/to/file.bel" with an optional "@rev"
// suffix.
func ParseRef(s string) (Ref, error) {
	rev := ""
	if i := strings.LastIndex(s, "@"); i >= 0 {
		rev = s[i+1:]
		s = s[:i]
	}
	parts := strings.SplitN(s, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Ref{}, fmt.Errorf("ghimport: ref %q must be owner/repo/path", s)
	}
	return Ref{Owner: parts[0], Repo: parts[1], Path: parts[2], Rev: rev}, nil
}

// Import downloads the file named by ref and enqueues it for compilation on
// behalf of userID. The report's source name is the file's base name.
func (im *Importer) Import(ctx context.Context, userID uint, ref Ref) (*models.Report, error) {
	var opts *github.RepositoryContentGetOptions
	if ref.Rev != "" {
		opts = &github.RepositoryContentGetOptions{Ref: ref.Rev}
	}

	file, _, _, err := im.contents.GetContents(ctx, ref.Owner, ref.Repo, ref.Path, opts)
	if err != nil {
		return nil, fmt.Errorf("ghimport: fetch %s/%s/%s: %w", ref.Owner, ref.Repo, ref.Path, err)
	}
	if file == nil {
		return nil, fmt.Errorf("ghimport: %s/%s/%s is a directory", ref.Owner, ref.Repo, ref.Path)
	}

	document, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("ghimport: decode %s: %w", ref.Path, err)
	}

	return reports.Create(im.db, userID, path.Base(ref.Path), []byte(document))
}
