// SPDX-License-Identifier: MPL-2.0

package registrar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/Bakobiibizo/module-validator-rust/pkg/keys"
	"github.com/Bakobiibizo/module-validator-rust/pkg/packager"
	"github.com/Bakobiibizo/module-validator-rust/pkg/registry"
	"github.com/Bakobiibizo/module-validator-rust/pkg/types"
)

const (
	DefaultModulesDir   = "modules"
	DefaultStorageDir   = "modules"
	DefaultKeyDir       = "keys"
	DefaultRegistryFile = "registry.json"
)

// ErrSourceNotFound is returned when a module source is missing or is not a
// directory.
var ErrSourceNotFound = errors.New("module source not found")

type (
	// Options configures a Registrar. Zero values select the defaults.
	Options struct {
		// ModulesDir receives installed module files (modules/<name>/).
		ModulesDir string
		// StorageDir holds the registry file and per-module installers.
		StorageDir string
		// KeyDir holds private_key.pem and public_key.pub.
		KeyDir string
		// RegistryFile is the registry file name inside StorageDir.
		RegistryFile string
		// Passphrase encrypts the private key when set.
		Passphrase []byte
		// Ignore and Extensions are passed to packager.Walk.
		Ignore     []string
		Extensions []string
		Logger     *log.Logger
	}

	// Registrar owns the registry and the installers stored next to it.
	Registrar struct {
		opts   Options
		store  *registry.Store
		keys   *keys.KeyPair
		logger *log.Logger

		// mu serializes mutations so an installer file and its registry
		// entry are written together.
		mu sync.Mutex
	}
)

// New prepares the directories, loads the registry and ensures key material
// exists, generating it when the private key is absent.
func New(opts Options) (*Registrar, error) {
	if opts.ModulesDir == "" {
		opts.ModulesDir = DefaultModulesDir
	}
	if opts.StorageDir == "" {
		opts.StorageDir = DefaultStorageDir
	}
	if opts.KeyDir == "" {
		opts.KeyDir = DefaultKeyDir
	}
	if opts.RegistryFile == "" {
		opts.RegistryFile = DefaultRegistryFile
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	for _, dir := range []string{opts.StorageDir, opts.ModulesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	kp, created, err := keys.Ensure(opts.KeyDir, opts.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("ensure key material: %w", err)
	}
	if created {
		logger.Info("generated key material", "dir", opts.KeyDir, "address", kp.Address())
	}

	store := registry.NewStore(
		filepath.Join(opts.StorageDir, opts.RegistryFile),
		registry.WithPublicKeyFile(keys.PublicKeyPath(opts.KeyDir)),
		registry.WithLogger(logger),
	)
	if err := store.Load(); err != nil {
		return nil, err
	}

	return &Registrar{opts: opts, store: store, keys: kp, logger: logger}, nil
}

// Store returns the underlying registry store.
func (r *Registrar) Store() *registry.Store { return r.store }

// Keys returns the loaded key pair.
func (r *Registrar) Keys() *keys.KeyPair { return r.keys }

// Options returns the effective options, defaults applied.
func (r *Registrar) Options() Options { return r.opts }

// InstallerPath returns where the plain installer for name is stored.
func (r *Registrar) InstallerPath(name types.ModuleName) string {
	return filepath.Join(r.opts.StorageDir, name.String(), "setup_"+name.String()+".sh")
}

// ModuleDir returns the installed module directory for name.
func (r *Registrar) ModuleDir(name types.ModuleName) string {
	return filepath.Join(r.opts.ModulesDir, name.String())
}

// AddModule packages source into an installer, stores it and registers it
// under name. An empty source registers an empty module and creates its
// directory. Adding an existing name replaces it.
func (r *Registrar) AddModule(ctx context.Context, name types.ModuleName, source string) error {
	if err := name.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var entries []packager.FileEntry
	if source == "" {
		if err := os.MkdirAll(r.ModuleDir(name), 0o755); err != nil {
			return fmt.Errorf("create module directory: %w", err)
		}
	} else {
		info, err := os.Stat(source)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, source)
		}
		entries, err = packager.Walk(source, packager.WalkOptions{
			Ignore:     r.opts.Ignore,
			Extensions: r.opts.Extensions,
			Logger:     r.logger,
		})
		if err != nil {
			return err
		}
	}

	r.logger.Info("generating installer", "module", name, "source", source, "files", len(entries))
	script, err := packager.GenerateInstaller(name, entries, packager.WithModulesDir(filepath.Base(r.opts.ModulesDir)))
	if err != nil {
		return err
	}
	return r.register(ctx, name, script)
}

// UpdateModule re-packages source for an existing or new module.
func (r *Registrar) UpdateModule(ctx context.Context, name types.ModuleName, source string) error {
	return r.AddModule(ctx, name, source)
}

// Import registers an installer script obtained elsewhere, such as one
// returned by Fetch.
func (r *Registrar) Import(ctx context.Context, name types.ModuleName, script string) error {
	if err := name.Validate(); err != nil {
		return err
	}
	if _, err := packager.ParseInstaller(script); err != nil {
		return err
	}
	return r.register(ctx, name, script)
}

// RemoveModule drops name from the registry and deletes its module
// directory. A missing entry or directory is not an error.
func (r *Registrar) RemoveModule(name types.ModuleName) error {
	if err := name.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Remove(name.String()); err != nil {
		return err
	}
	if err := os.RemoveAll(r.ModuleDir(name)); err != nil {
		return fmt.Errorf("remove module directory: %w", err)
	}
	r.logger.Info("removed module", "module", name)
	return nil
}

// ListModules returns the registered module names in sorted order, without
// reserved registry fields.
func (r *Registrar) ListModules() []string {
	return slices.DeleteFunc(r.store.List(), func(k string) bool {
		return k == types.ReservedPublicKeyField
	})
}

// Installer returns the installer script registered under name.
func (r *Registrar) Installer(name types.ModuleName) (string, error) {
	payload, ok := r.store.GetString(name.String())
	if !ok || name.String() == types.ReservedPublicKeyField {
		return "", fmt.Errorf("%w: %s", registry.ErrNotFound, name)
	}
	script, err := packager.Decode(payload)
	if err != nil {
		return "", fmt.Errorf("decode installer for %s: %w", name, err)
	}
	return string(script), nil
}

// EncodedEntry returns the registry value of a module exactly as stored on
// disk: the JSON text of its base64 installer.
func (r *Registrar) EncodedEntry(name types.ModuleName) (string, error) {
	if name.String() == types.ReservedPublicKeyField {
		return "", fmt.Errorf("%w: %s", registry.ErrNotFound, name)
	}
	return r.store.Encoded(name.String())
}

// PublicKey returns the operator's public key in authorized_keys format.
func (r *Registrar) PublicKey() (string, error) {
	return r.keys.AuthorizedKey()
}

// Entries lists the files carried by the installer registered under name.
func (r *Registrar) Entries(name types.ModuleName) ([]packager.FileEntry, error) {
	script, err := r.Installer(name)
	if err != nil {
		return nil, err
	}
	return packager.ParseInstaller(script)
}

// InstallModule runs the registered installer in-process, recreating the
// module's files under the modules directory.
func (r *Registrar) InstallModule(ctx context.Context, name types.ModuleName, stdout, stderr io.Writer) error {
	script, err := r.Installer(name)
	if err != nil {
		return err
	}
	dir := filepath.Dir(r.opts.ModulesDir)
	r.logger.Debug("running installer", "module", name, "dir", dir)
	return packager.RunInstaller(ctx, script, dir, stdout, stderr)
}

func (r *Registrar) register(ctx context.Context, name types.ModuleName, script string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.InstallerPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create installer directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		return fmt.Errorf("write installer: %w", err)
	}
	if err := r.store.Set(name.String(), packager.Encode([]byte(script))); err != nil {
		return err
	}
	r.logger.Info("registered module", "module", name, "installer", path)
	return nil
}
