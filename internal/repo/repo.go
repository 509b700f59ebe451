// Package repo classifies the docs repository checked out in a local folder.
package repo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strings"

	"github.com/cleverdata/docsbuild/internal/config"
)

var (
	ErrNoRemote          = errors.New("repository has no origin remote")
	ErrUnsupportedRemote = errors.New("only GitHub and Azure DevOps repositories are supported")
)

// Info is the auxiliary repository metadata returned alongside the type.
type Info struct {
	URL    string // Normalized https URL
	Owner  string // GitHub owner or Azure DevOps organization
	Name   string
	Branch string
	Commit string
}

// Inspector reads repository metadata by shelling out to git.
type Inspector struct {
	GitPath string
}

func NewInspector() *Inspector {
	return &Inspector{GitPath: "git"}
}

// Inspect classifies the repository at folder from its origin remote.
func (i *Inspector) Inspect(ctx context.Context, folder string) (config.RepoType, Info, error) {
	remote, err := i.git(ctx, folder, "config", "--get", "remote.origin.url")
	if err != nil || remote == "" {
		return "", Info{}, fmt.Errorf("%w: %s", ErrNoRemote, folder)
	}

	repoType, info, err := ParseRemote(remote)
	if err != nil {
		return "", Info{}, err
	}

	// Branch and commit are best effort; a fresh repository has neither.
	if branch, err := i.git(ctx, folder, "rev-parse", "--abbrev-ref", "HEAD"); err == nil {
		info.Branch = branch
	}
	if commit, err := i.git(ctx, folder, "rev-parse", "HEAD"); err == nil {
		info.Commit = commit
	}
	return repoType, info, nil
}

func (i *Inspector) git(ctx context.Context, dir string, args ...string) (string, error) {
	gitPath := i.GitPath
	if gitPath == "" {
		gitPath = "git"
	}
	cmd := exec.CommandContext(ctx, gitPath, append([]string{"-C", dir}, args...)...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// ParseRemote classifies a git remote URL. Both https and scp-style ssh
// remotes are accepted.
func ParseRemote(remote string) (config.RepoType, Info, error) {
	host, path, err := splitRemote(remote)
	if err != nil {
		return "", Info{}, err
	}
	host = strings.ToLower(host)
	parts := strings.Split(strings.Trim(strings.TrimSuffix(path, ".git"), "/"), "/")

	switch {
	case host == "github.com" || strings.HasSuffix(host, ".github.com"):
		if len(parts) < 2 {
			break
		}
		return config.RepoTypeGitHub, Info{
			URL:   fmt.Sprintf("https://github.com/%s/%s", parts[0], parts[1]),
			Owner: parts[0],
			Name:  parts[1],
		}, nil

	case host == "ssh.dev.azure.com" || host == "vs-ssh.visualstudio.com":
		// v3/{org}/{project}/{repo}
		if len(parts) != 4 || parts[0] != "v3" {
			break
		}
		return azureInfo(parts[1], parts[2], parts[3])

	case host == "dev.azure.com":
		// {org}/{project}/_git/{repo}
		if len(parts) != 4 || parts[2] != "_git" {
			break
		}
		return azureInfo(parts[0], parts[1], parts[3])

	case strings.HasSuffix(host, ".visualstudio.com"):
		// {org}.visualstudio.com/{project}/_git/{repo}
		if len(parts) < 3 || parts[len(parts)-2] != "_git" {
			break
		}
		org := strings.TrimSuffix(host, ".visualstudio.com")
		return azureInfo(org, parts[len(parts)-3], parts[len(parts)-1])
	}

	return "", Info{}, fmt.Errorf("%w: %s", ErrUnsupportedRemote, remote)
}

func azureInfo(org, project, name string) (config.RepoType, Info, error) {
	return config.RepoTypeAzureDevOps, Info{
		URL:   fmt.Sprintf("https://dev.azure.com/%s/%s/_git/%s", org, project, name),
		Owner: org,
		Name:  name,
	}, nil
}

func splitRemote(remote string) (host, path string, err error) {
	remote = strings.TrimSpace(remote)
	if strings.Contains(remote, "://") {
		u, err := url.Parse(remote)
		if err != nil {
			return "", "", fmt.Errorf("%w: %s", ErrUnsupportedRemote, remote)
		}
		return u.Hostname(), u.Path, nil
	}

	// git@host:path
	at := strings.Index(remote, "@")
	colon := strings.Index(remote, ":")
	if colon < 0 || colon < at {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedRemote, remote)
	}
	return remote[at+1 : colon], remote[colon+1:], nil
}
