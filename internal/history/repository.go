package history

import (
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	codeerr "github.com/kapillamba4/codememory/internal/errors"
)

const shortHashLength = 7

// Repository wraps a read-only handle on the version-control repository containing the indexed
// project.
type Repository struct {
	repo *git.Repository
}

// Resolve finds the repository rooted at or above path. go-git's PlainOpenWithOptions with
// DetectDotGit walks up the directory tree looking for a .git directory, matching the resolution
// behavior every other git porcelain uses.
func Resolve(path string) (*Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, codeerr.New(codeerr.KindGit, codeerr.CodeGitNoRepository, "no git repository found").
			WithDetail("path", path).
			WithDetail("cause", err.Error())
	}
	return &Repository{repo: repo}, nil
}

// Root returns the repository's working-tree root: the directory every path go-git resolves
// (LogOptions.FileName, Blame, DiffTree change names) is relative to.
func (r *Repository) Root() (string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", gitFail(err)
	}
	return wt.Filesystem.Root(), nil
}

func gitFail(err error) *codeerr.Error {
	return codeerr.Wrap(codeerr.KindGit, codeerr.CodeGitOperation, err)
}

func shortHash(h plumbing.Hash) string {
	s := h.String()
	if len(s) > shortHashLength {
		return s[:shortHashLength]
	}
	return s
}

func toCommit(c *object.Commit) Commit {
	return Commit{
		Hash:      c.Hash.String(),
		ShortHash: shortHash(c.Hash),
		Author:    c.Author.Name,
		Email:     c.Author.Email,
		Date:      c.Author.When.UTC().Format("2006-01-02T15:04:05Z"),
		Message:   strings.TrimRight(c.Message, "\n"),
	}
}

// touchesFile reports whether commit c's tree differs from its first parent (or from the empty
// tree, for a root commit) at the given path.
func touchesFile(c *object.Commit, path string) (bool, error) {
	stats, err := c.Stats()
	if err != nil {
		return false, err
	}
	for _, s := range stats {
		if s.Name == path {
			return true, nil
		}
	}
	return false, nil
}

// SearchCommits walks recent history looking for commits whose message contains query
// case-insensitively, optionally restricted to commits touching file. The underlying traversal is
// bounded to limit*searchMultiplier commits so an unmatched query cannot walk the whole history.
func (r *Repository) SearchCommits(query string, file string, limit int) ([]Commit, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, gitFail(err)
	}
	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, gitFail(err)
	}
	defer iter.Close()

	needle := strings.ToLower(query)
	maxWalk := limit * searchMultiplier
	walked := 0
	var out []Commit

	err = iter.ForEach(func(c *object.Commit) error {
		if walked >= maxWalk || len(out) >= limit {
			return storer.ErrStop
		}
		walked++

		if file != "" {
			touched, statErr := touchesFile(c, file)
			if statErr != nil {
				return nil
			}
			if !touched {
				return nil
			}
		}

		if strings.Contains(strings.ToLower(c.Message), needle) {
			out = append(out, toCommit(c))
		}
		return nil
	})
	if err != nil {
		return nil, gitFail(err)
	}
	return out, nil
}

// FileHistory returns the log of commits affecting path, following simple renames: once the
// file's earliest visible change in the walk is an add, the commit immediately before it is
// inspected for a same-blob delete under a different name, and the walk continues under that
// name.
func (r *Repository) FileHistory(path string, limit int) ([]Commit, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, gitFail(err)
	}

	current := path
	var out []Commit
	from := head.Hash()

	for len(out) < limit {
		iter, err := r.repo.Log(&git.LogOptions{From: from, FileName: &current})
		if err != nil {
			return nil, gitFail(err)
		}

		var batch []*object.Commit
		err = iter.ForEach(func(c *object.Commit) error {
			if len(out)+len(batch) >= limit {
				return storer.ErrStop
			}
			batch = append(batch, c)
			return nil
		})
		iter.Close()
		if err != nil {
			return nil, gitFail(err)
		}
		if len(batch) == 0 {
			break
		}
		for _, c := range batch {
			out = append(out, toCommit(c))
		}
		if len(out) >= limit {
			break
		}

		oldest := batch[len(batch)-1]
		renamedFrom, parentHash, found := findRenameSource(oldest, current)
		if !found {
			break
		}
		current = renamedFrom
		from = parentHash
	}
	return out, nil
}

// findRenameSource inspects c's diff against its first parent for a file that was deleted in a
// way consistent with current having been added in the same commit (same blob content), and
// returns the old path plus the parent's hash to resume the walk from.
func findRenameSource(c *object.Commit, current string) (oldPath string, parentHash plumbing.Hash, found bool) {
	if c.NumParents() == 0 {
		return "", plumbing.ZeroHash, false
	}
	parent, err := c.Parent(0)
	if err != nil {
		return "", plumbing.ZeroHash, false
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return "", plumbing.ZeroHash, false
	}
	tree, err := c.Tree()
	if err != nil {
		return "", plumbing.ZeroHash, false
	}
	changes, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return "", plumbing.ZeroHash, false
	}

	var addedBlob plumbing.Hash
	haveAdded := false
	for _, ch := range changes {
		if ch.To.Name == current && ch.From.Name == "" {
			addedBlob = ch.To.TreeEntry.Hash
			haveAdded = true
		}
	}
	if !haveAdded {
		return "", plumbing.ZeroHash, false
	}
	for _, ch := range changes {
		if ch.From.Name != "" && ch.To.Name == "" && ch.From.TreeEntry.Hash == addedBlob {
			return ch.From.Name, parent.Hash, true
		}
	}
	return "", plumbing.ZeroHash, false
}

// CommitDetail resolves hash (a full or abbreviated SHA) and returns its parent short hashes,
// per-file change stats, and — when file is non-empty — the unified diff restricted to that file.
func (r *Repository) CommitDetail(hash string, file string) (*CommitDetail, error) {
	c, err := r.repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return nil, codeerr.New(codeerr.KindGit, codeerr.CodeGitRevision, "commit not found").
			WithDetail("hash", hash)
	}

	detail := &CommitDetail{Commit: toCommit(c)}

	err = c.Parents().ForEach(func(p *object.Commit) error {
		detail.ParentHashes = append(detail.ParentHashes, shortHash(p.Hash))
		return nil
	})
	if err != nil {
		return nil, gitFail(err)
	}

	stats, err := c.Stats()
	if err != nil {
		return nil, gitFail(err)
	}
	for _, s := range stats {
		detail.Stats = append(detail.Stats, FileStat{Path: s.Name, Insertions: s.Addition, Deletions: s.Deletion})
	}

	if file == "" {
		return detail, nil
	}

	diff, err := r.fileDiff(c, file)
	if err != nil {
		return nil, err
	}
	detail.Diff = diff
	return detail, nil
}

func (r *Repository) fileDiff(c *object.Commit, file string) (string, error) {
	var parentTree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return "", gitFail(err)
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return "", gitFail(err)
		}
	}
	tree, err := c.Tree()
	if err != nil {
		return "", gitFail(err)
	}

	var changes object.Changes
	if parentTree != nil {
		changes, err = object.DiffTree(parentTree, tree)
	} else {
		changes, err = object.DiffTree(nil, tree)
	}
	if err != nil {
		return "", gitFail(err)
	}

	var buf strings.Builder
	for _, ch := range changes {
		if ch.From.Name != file && ch.To.Name != file {
			continue
		}
		patch, err := ch.Patch()
		if err != nil {
			return "", gitFail(err)
		}
		buf.WriteString(patch.String())
	}
	return buf.String(), nil
}

// Blame runs line-level blame on HEAD for path, then groups consecutive lines attributed to the
// same commit into single entries, finally filtering to the [start,end] range if given.
func (r *Repository) Blame(path string, start, end int) ([]BlameEntry, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, gitFail(err)
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, gitFail(err)
	}

	result, err := git.Blame(commit, path)
	if err != nil {
		return nil, codeerr.New(codeerr.KindGit, codeerr.CodeGitOperation, "blame failed").
			WithDetail("path", path).
			WithDetail("cause", err.Error())
	}

	var grouped []BlameEntry
	for i, line := range result.Lines {
		lineNo := i + 1
		if len(grouped) > 0 {
			last := &grouped[len(grouped)-1]
			if last.CommitHash == line.Hash.String() && last.EndLine == lineNo-1 {
				last.EndLine = lineNo
				last.Content += "\n" + line.Text
				continue
			}
		}
		grouped = append(grouped, BlameEntry{
			StartLine:  lineNo,
			EndLine:    lineNo,
			CommitHash: line.Hash.String(),
			ShortHash:  shortHash(line.Hash),
			Author:     line.Author,
			Date:       line.Date.UTC().Format("2006-01-02T15:04:05Z"),
			Content:    line.Text,
		})
	}

	if start <= 0 && end <= 0 {
		return grouped, nil
	}
	var filtered []BlameEntry
	for _, g := range grouped {
		if end > 0 && g.StartLine > end {
			continue
		}
		if start > 0 && g.EndLine < start {
			continue
		}
		filtered = append(filtered, g)
	}
	return filtered, nil
}
