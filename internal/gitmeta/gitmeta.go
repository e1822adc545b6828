// Package gitmeta derives project metadata from a git checkout. It is
// used only for defaulting; every function degrades to a zero value
// rather than an error when the directory is not a repository.
package gitmeta

import (
	"regexp"
	"strings"

	git "github.com/go-git/go-git/v5"
)

// sshRemote matches scp-like remote URLs: git@host:owner/repo.git
var sshRemote = regexp.MustCompile(`^(?:ssh://)?git@([^:/]+)[:/](.+?)(?:\.git)?$`)

// RemoteURL returns the https form of the origin remote of the
// repository at path, or "" when path is not a repository or has no
// origin remote.
func RemoteURL(path string) string {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return ""
	}
	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		return ""
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return ""
	}
	return normalizeRemote(urls[0])
}

// normalizeRemote rewrites ssh/scp remotes to https and strips a
// trailing .git from https remotes. Unrecognized forms pass through.
func normalizeRemote(url string) string {
	if m := sshRemote.FindStringSubmatch(url); m != nil {
		return "https://" + m[1] + "/" + m[2]
	}
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return strings.TrimSuffix(url, ".git")
	}
	return url
}
