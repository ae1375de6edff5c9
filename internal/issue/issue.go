// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"maps"
	"slices"

	"github.com/charmbracelet/glamour"
)

// Id identifies a catalog entry. The zero value means "no issue".
type Id int

const (
	RegistryLoadFailedId Id = iota + 1
	ModuleNotFoundId
	InvalidModuleNameId
	SourceNotFoundId
	KeyMaterialFailedId
	InstallerFailedId
	HookFailedId
	FetchFailedId
	ConfigLoadFailedId
	ServerStartFailedId
	VoteFailedId
)

type (
	// MarkdownMsg is Markdown guidance shown to the user.
	MarkdownMsg string

	// Issue is a catalog entry with long-form guidance.
	Issue struct {
		id    Id
		mdMsg MarkdownMsg
	}
)

// Id returns the catalog identifier.
func (i *Issue) Id() Id { return i.id }

// MarkdownMsg returns the raw Markdown guidance.
func (i *Issue) MarkdownMsg() MarkdownMsg { return i.mdMsg }

// Render renders the guidance for a terminal using the named glamour style
// ("dark", "light", "notty", ...).
func (i *Issue) Render(style string) (string, error) {
	return render(string(i.mdMsg), style)
}

var (
	render = glamour.Render

	issues = map[Id]*Issue{
		RegistryLoadFailedId: {id: RegistryLoadFailedId, mdMsg: `
# The module registry could not be read

The registry file exists but is not a JSON object of module names to
JSON-encoded payloads.

## Things you can try
- Inspect the file under your storage directory (default ` + "`modules/registry.json`" + `)
- Move it aside; the registrar starts with an empty registry when the file is absent:
~~~
$ mv modules/registry.json modules/registry.json.bak
~~~`},
		ModuleNotFoundId: {id: ModuleNotFoundId, mdMsg: `
# Module not registered

No registry entry exists for this module name.

## Things you can try
- List the registered modules:
~~~
$ registrar module list
~~~
- Register it from its source directory:
~~~
$ registrar module add <name> <source>
~~~`},
		InvalidModuleNameId: {id: InvalidModuleNameId, mdMsg: `
# Invalid module name

Module names become directory names and registry keys. A name must be a
single path segment, must not start with a dash and must not be the reserved
field ` + "`public_key`" + `.`},
		SourceNotFoundId: {id: SourceNotFoundId, mdMsg: `
# Module source not found

The source directory to package does not exist or is not a directory.

## Things you can try
- Check the path you passed to ` + "`module add`" + `
- Pass no source at all to register an empty module`},
		KeyMaterialFailedId: {id: KeyMaterialFailedId, mdMsg: `
# Key material unavailable

The registrar keeps an ed25519 key pair in its key directory
(` + "`private_key.pem`" + ` and ` + "`public_key.pub`" + `). Keys are generated
once and never overwritten.

## Things you can try
- Check the key directory (` + "`key_dir`" + ` in config, or ` + "`KEY_FOLDER`" + `)
- If the private key is encrypted, export ` + "`REGISTRAR_KEY_PASSPHRASE`" + `
- Create keys explicitly:
~~~
$ registrar keys init
~~~`},
		InstallerFailedId: {id: InstallerFailedId, mdMsg: `
# Installer failed

The module installer script exited with an error while recreating files.

## Things you can try
- Show the files the installer carries:
~~~
$ registrar module show <name>
~~~
- Re-register the module from its source with ` + "`module update`"},
		HookFailedId: {id: HookFailedId, mdMsg: `
# Module hook failed

A lifecycle hook script of the module could not be run.

## Things you can try
- Run it with ` + "`hook_runtime: \"virtual\"`" + ` to use the built-in shell
- Check that the module's virtual environment or ` + "`python3`" + ` is available`},
		FetchFailedId: {id: FetchFailedId, mdMsg: `
# Fetching the module failed

The registry server did not return the module installer.

## Things you can try
- Check the server address passed with ` + "`--from`" + `
- Ask the operator to run ` + "`registrar serve`" + ` and list modules:
~~~
$ curl <url>/modules
~~~`},
		ConfigLoadFailedId: {id: ConfigLoadFailedId, mdMsg: `
# Configuration could not be loaded

The configuration file failed CUE parsing or schema validation.

## Things you can try
- Print the effective configuration:
~~~
$ registrar config show
~~~
- Write a fresh default file with ` + "`registrar config init`"},
		ServerStartFailedId: {id: ServerStartFailedId, mdMsg: `
# Registry server failed to start

## Things you can try
- Pick another address with ` + "`--addr`" + `
- Check that no other process listens on the port`},
		VoteFailedId: {id: VoteFailedId, mdMsg: `
# Voting failed

The subnet node rejected or did not answer the weight queries.

## Things you can try
- Check ` + "`subnet.node_url`" + ` in your configuration
- Run a single round with ` + "`registrar vote --once`" + ` to see per-subnet errors`},
	}
)

// Values returns all catalog entries ordered by Id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return cmp.Compare(a.id, b.id)
	})
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
