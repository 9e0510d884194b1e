package github

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/custodia-labs/docmodel/internal/adapters/driven/content/textcodec"
	"github.com/custodia-labs/docmodel/internal/core/domain"
	"github.com/custodia-labs/docmodel/internal/core/ports/driven"
)

// Scheme is the URI scheme served by this provider.
const Scheme = "github"

// Ensure Provider implements the interfaces.
var (
	_ driven.ContentProvider      = (*Provider)(nil)
	_ driven.DocumentPersister    = (*Provider)(nil)
	_ driven.ReadonlyReporter     = (*Provider)(nil)
	_ driven.ContentFingerprinter = (*Provider)(nil)
)

// Provider serves files from GitHub repositories.
type Provider struct {
	client *Client
	branch string

	mu   sync.Mutex
	seen map[domain.ResourceID]blob
}

// blob is what the provider last read or wrote for an id: the blob SHA
// GitHub reported, the digest of the decoded text and its encoding.
type blob struct {
	sha      string
	digest   domain.Digest
	encoding string
}

// New creates a provider reading and committing on branch.
// An empty branch uses each repository's default branch.
func New(client *Client, branch string) *Provider {
	return &Provider{
		client: client,
		branch: branch,
		seen:   make(map[domain.ResourceID]blob),
	}
}

// Location is a parsed github:// resource id.
type Location struct {
	Owner string
	Repo  string
	Path  string
}

// ParseResourceID splits "github://owner/repo/path" into its parts.
func ParseResourceID(id domain.ResourceID) (Location, error) {
	if id.Scheme() != Scheme {
		return Location{}, fmt.Errorf("%w: %s", ErrInvalidResource, id)
	}
	parts := strings.SplitN(strings.Trim(id.Path(), "/"), "/", 3)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Location{}, fmt.Errorf("%w: %s", ErrInvalidResource, id)
	}
	return Location{Owner: parts[0], Repo: parts[1], Path: parts[2]}, nil
}

// Name returns "github".
func (p *Provider) Name() string {
	return "github"
}

// Handles returns true for "github://" ids.
func (p *Provider) Handles(id domain.ResourceID) bool {
	return id.Scheme() == Scheme
}

// LoadContent fetches and decodes the file, remembering its blob SHA for
// the next save.
func (p *Provider) LoadContent(ctx context.Context, id domain.ResourceID, encoding string) (string, error) {
	loc, err := ParseResourceID(id)
	if err != nil {
		return "", err
	}
	c, err := textcodec.Lookup(encoding)
	if err != nil {
		return "", err
	}

	file, err := p.client.GetFile(ctx, loc.Owner, loc.Repo, loc.Path, p.branch)
	if err != nil {
		if IsNotFound(err) {
			return "", fmt.Errorf("%w: %s: %w", domain.ErrNotFound, id, err)
		}
		return "", err
	}
	content, err := c.Decode(file.Content)
	if err != nil {
		return "", err
	}

	p.remember(id, blob{sha: file.SHA, digest: domain.Fingerprint(content), encoding: encoding})
	return content, nil
}

// SaveDocument commits req.Content. Without req.Overwrite the commit is
// conditional on the SHA last seen; with it the current SHA is fetched first.
func (p *Provider) SaveDocument(ctx context.Context, req domain.SaveRequest) error {
	loc, err := ParseResourceID(req.ID)
	if err != nil {
		return err
	}
	c, err := textcodec.Lookup(req.Encoding)
	if err != nil {
		return err
	}
	data, err := c.Encode(req.Content)
	if err != nil {
		return err
	}

	sha := p.sha(req.ID)
	if req.Overwrite {
		current, err := p.client.GetFile(ctx, loc.Owner, loc.Repo, loc.Path, p.branch)
		switch {
		case err == nil:
			sha = current.SHA
		case IsNotFound(err):
			sha = ""
		default:
			return err
		}
	}

	message := "Update " + path.Base(loc.Path)
	if sha == "" {
		message = "Create " + path.Base(loc.Path)
	}
	newSHA, err := p.client.PutFile(ctx, loc.Owner, loc.Repo, loc.Path, p.branch, message, data, sha)
	if err != nil {
		if IsConflict(err) {
			return fmt.Errorf("%w: %s: %w", domain.ErrSaveConflict, req.ID, err)
		}
		return err
	}

	p.remember(req.ID, blob{sha: newSHA, digest: domain.Fingerprint(req.Content), encoding: req.Encoding})
	return nil
}

// IsReadonly reports whether the user lacks push access to the repository.
func (p *Provider) IsReadonly(ctx context.Context, id domain.ResourceID) (bool, error) {
	loc, err := ParseResourceID(id)
	if err != nil {
		return false, err
	}
	canPush, err := p.client.CanPush(ctx, loc.Owner, loc.Repo)
	if err != nil {
		return false, err
	}
	return !canPush, nil
}

// ContentFingerprint checks the blob SHA from the parent directory listing.
// While it matches the blob last read or written, the digest recorded then
// is returned and nothing is downloaded; otherwise the file is fetched and
// decoded with the encoding it was last read with.
func (p *Provider) ContentFingerprint(ctx context.Context, id domain.ResourceID) (domain.Digest, error) {
	loc, err := ParseResourceID(id)
	if err != nil {
		return "", err
	}
	last, known := p.lastSeen(id)

	sha, err := p.client.FileSHA(ctx, loc.Owner, loc.Repo, loc.Path, p.branch)
	if err != nil {
		if IsNotFound(err) {
			return "", fmt.Errorf("%w: %s: %w", domain.ErrNotFound, id, err)
		}
		return "", err
	}
	if known && sha == last.sha {
		return last.digest, nil
	}

	c, err := textcodec.Lookup(last.encoding)
	if err != nil {
		return "", err
	}
	file, err := p.client.GetFile(ctx, loc.Owner, loc.Repo, loc.Path, p.branch)
	if err != nil {
		return "", err
	}
	content, err := c.Decode(file.Content)
	if err != nil {
		return "", err
	}
	return domain.Fingerprint(content), nil
}

func (p *Provider) sha(id domain.ResourceID) string {
	b, _ := p.lastSeen(id)
	return b.sha
}

func (p *Provider) lastSeen(id domain.ResourceID) (blob, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.seen[id]
	return b, ok
}

func (p *Provider) remember(id domain.ResourceID, b blob) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen[id] = b
}
