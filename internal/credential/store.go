/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package credential

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"gopkg.in/ini.v1"

	"github.com/mikelane/selfdestruct/internal/errdefs"
)

const (
	// FileName is the name of the credential file inside the configuration directory.
	FileName = "self-destruct"

	section         = "self-destruct"
	keyClientID     = "client-id"
	keyClientSecret = "client-secret"
	keyTenantID     = "tenant-id"
)

// Store persists a single delegated credential in an INI file.
// There is no locking: the last writer wins.
type Store struct {
	path   string
	issuer Issuer
}

// NewStore creates a store backed by the file at path. The issuer is used by
// Configure when no credential fields are supplied; it may be nil if callers
// always supply all three fields.
func NewStore(path string, issuer Issuer) *Store {
	return &Store{
		path:   path,
		issuer: issuer,
	}
}

// DefaultPath returns the credential file location inside configDir.
func DefaultPath(configDir string) string {
	return filepath.Join(configDir, FileName)
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// Configure saves a delegated credential. Supplying none of the fields asks the
// issuer for a new principal; supplying some but not all of them is rejected.
// An existing credential is only replaced when opts.Force is set, and only once
// the new one is complete.
func (s *Store) Configure(ctx context.Context, opts Options) (Credential, error) {
	logger := logr.FromContextOrDiscard(ctx)

	if !opts.Force {
		existing, err := s.load()
		if err != nil {
			return Credential{}, err
		}
		if existing.any() {
			return Credential{}, errdefs.New(errdefs.KindConfiguration, errdefs.ReasonAlreadyConfigured,
				"self-destruct is already configured. Run with --force to force reconfiguration")
		}
	}

	cred := Credential{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TenantID:     opts.TenantID,
	}

	switch {
	case cred.Complete():
	case cred.any():
		return Credential{}, errdefs.InvalidInput(errdefs.ReasonIncompleteCredential,
			"if specifying service principal information, --client-id --client-secret and --tenant-id are all required")
	default:
		if s.issuer == nil {
			return Credential{}, errdefs.New(errdefs.KindConfiguration, errdefs.ReasonNotConfigured,
				"no principal issuer is available; supply --client-id --client-secret and --tenant-id")
		}
		issued, err := s.issuer.Issue(ctx)
		if err != nil {
			return Credential{}, fmt.Errorf("failed to issue service principal: %w", err)
		}
		if !issued.Complete() {
			return Credential{}, errdefs.New(errdefs.KindExternalService, errdefs.ReasonIncompleteCredential,
				"issued service principal is missing client id, secret or tenant")
		}
		cred = issued
	}

	if err := s.save(cred); err != nil {
		return Credential{}, err
	}

	logger.V(1).Info("Saved delegated credential", "path", s.path, "clientId", cred.ClientID)
	return cred, nil
}

// Read returns the stored credential, or a NotConfigured error when the file is
// missing or does not hold all three fields.
func (s *Store) Read() (Credential, error) {
	cred, err := s.load()
	if err != nil {
		return Credential{}, err
	}
	if !cred.Complete() {
		return Credential{}, errdefs.New(errdefs.KindConfiguration, errdefs.ReasonNotConfigured,
			"please run `selfdestruct configure` to configure self-destruct mode")
	}
	return cred, nil
}

// load reads whatever is in the file. A missing file yields an empty credential.
func (s *Store) load() (Credential, error) {
	f, err := ini.Load(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Credential{}, nil
		}
		return Credential{}, errdefs.Wrap(errdefs.KindConfiguration, err, "failed to read credential file %s", s.path)
	}

	sec, err := f.GetSection(section)
	if err != nil {
		return Credential{}, nil
	}

	return Credential{
		ClientID:     sec.Key(keyClientID).String(),
		ClientSecret: sec.Key(keyClientSecret).String(),
		TenantID:     sec.Key(keyTenantID).String(),
	}, nil
}

func (s *Store) save(cred Credential) error {
	f := ini.Empty()
	sec, err := f.NewSection(section)
	if err != nil {
		return fmt.Errorf("failed to build credential file: %w", err)
	}
	for _, kv := range [][2]string{
		{keyClientID, cred.ClientID},
		{keyClientSecret, cred.ClientSecret},
		{keyTenantID, cred.TenantID},
	} {
		if _, err := sec.NewKey(kv[0], kv[1]); err != nil {
			return fmt.Errorf("failed to build credential file: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create configuration directory: %w", err)
	}

	// Write beside the target and rename so a failed write leaves the old file intact.
	out, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to open credential file: %w", err)
	}
	tmp := out.Name()
	defer func() { _ = os.Remove(tmp) }()

	if err := out.Chmod(0o600); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to restrict credential file: %w", err)
	}
	if _, err := f.WriteTo(out); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace credential file: %w", err)
	}
	return nil
}
