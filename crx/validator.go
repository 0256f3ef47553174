package crx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/axonbase/extcore/types"
)

// Validator is the package-validation boundary the install coordinator
// depends on. Fetching, unpacking and signature verification happen behind
// this interface, off the coordinator's thread; the coordinator only sees
// the decoded manifest or a failure.
type Validator interface {
	Validate(ctx context.Context, path string) (*types.Manifest, error)
}

// rawManifest is the on-disk manifest.json subset the core reads.
type rawManifest struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Key          string   `json:"key,omitempty"`
	Permissions  []string `json:"permissions,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
}

// DirValidator validates unpacked extension directories by reading their
// manifest.json. It backs developer-mode loads; packed-archive validation
// is a separate collaborator.
type DirValidator struct{}

// NewDirValidator returns a validator for unpacked directories.
func NewDirValidator() *DirValidator {
	return &DirValidator{}
}

// Validate reads and decodes manifest.json under the given directory. When
// the manifest carries no key, the extension id is derived from the
// directory path, so reloading the same directory yields the same id.
func (v *DirValidator) Validate(ctx context.Context, dir string) (*types.Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if raw.Name == "" {
		return nil, fmt.Errorf("manifest has no name")
	}

	version, err := types.ParseVersion(raw.Version)
	if err != nil {
		return nil, fmt.Errorf("manifest version: %w", err)
	}

	var id string
	if raw.Key != "" {
		id = types.GenerateID([]byte(raw.Key))
	} else {
		abs, err := filepath.Abs(dir)
		if err != nil {
			abs = dir
		}
		id = types.GenerateID([]byte(abs))
	}

	return &types.Manifest{
		ID:           id,
		Version:      version,
		Name:         raw.Name,
		Permissions:  types.NewPermissionSet(raw.Permissions...),
		Requirements: raw.Requirements,
	}, nil
}
