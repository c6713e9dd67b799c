package git

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	ferrors "git.home.luguber.info/inful/relkit/internal/foundation/errors"
)

var mergePullRequest = regexp.MustCompile(`^Merge pull request #(\d+)\b`)

// ParseMergeMessage returns the pull request number named by a GitHub merge
// commit message.
func ParseMergeMessage(msg string) (int, bool) {
	m := mergePullRequest.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// PullRequestsBetween scans the repository at repoPath for GitHub merge
// commits reachable from toTag but not from fromTag and returns their pull
// request numbers, oldest first. An empty fromTag scans the full history.
func PullRequestsBetween(repoPath, fromTag, toTag string) ([]int, error) {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, classify(err, "open", repoPath)
	}

	to, err := resolveTag(repo, toTag)
	if err != nil {
		return nil, err
	}

	exclude := map[plumbing.Hash]struct{}{}
	if fromTag != "" {
		from, err := resolveTag(repo, fromTag)
		if err != nil {
			return nil, err
		}
		iter, err := repo.Log(&git.LogOptions{From: from.Hash})
		if err != nil {
			return nil, classify(err, "log", fromTag)
		}
		err = iter.ForEach(func(c *object.Commit) error {
			exclude[c.Hash] = struct{}{}
			return nil
		})
		if err != nil {
			return nil, classify(err, "log", fromTag)
		}
	}

	iter, err := repo.Log(&git.LogOptions{From: to.Hash, Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, classify(err, "log", toTag)
	}
	var numbers []int
	seen := map[int]struct{}{}
	err = iter.ForEach(func(c *object.Commit) error {
		if _, ok := exclude[c.Hash]; ok {
			return nil
		}
		if n, ok := ParseMergeMessage(c.Message); ok {
			if _, dup := seen[n]; !dup {
				seen[n] = struct{}{}
				numbers = append(numbers, n)
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, classify(err, "log", toTag)
	}
	slices.Reverse(numbers)
	return numbers, nil
}

// resolveTag returns the commit a lightweight or annotated tag points at.
func resolveTag(repo *git.Repository, name string) (*object.Commit, error) {
	ref, err := repo.Tag(name)
	if err != nil {
		if errors.Is(err, git.ErrTagNotFound) {
			return nil, ferrors.WrapError(err, ferrors.CategoryNotFound, fmt.Sprintf("tag %s not found", name)).
				WithContext("tag", name).
				Build()
		}
		return nil, classify(err, "tag", name)
	}
	if tagObj, err := repo.TagObject(ref.Hash()); err == nil {
		commit, err := tagObj.Commit()
		if err != nil {
			return nil, classify(err, "peel", name)
		}
		return commit, nil
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, classify(err, "commit", name)
	}
	return commit, nil
}

func classify(err error, op, subject string) error {
	if _, ok := ferrors.AsClassified(err); ok {
		return err
	}
	return ferrors.WrapError(err, ferrors.CategoryGit, "git "+op+" failed").
		WithContext("op", op).
		WithContext("subject", subject).
		Build()
}
