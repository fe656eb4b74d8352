package sandbox

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	pferrors "github.com/vango-dev/pagefiles/internal/errors"
)

const inertNamespace = "pagefiles-inert"

// inertModule stands in for every import of the target file. Any property
// read, call or construction returns the same proxy, so top-level code that
// touches imported values keeps running without loading them.
const inertModule = `const handler = {
  get(target, key) {
    if (key === "__esModule") return false;
    if (key === "then") return undefined;
    if (key === Symbol.toPrimitive) return () => "";
    if (key === Symbol.iterator) return function* () {};
    return inert;
  },
  apply() { return inert; },
  construct() { return inert; },
  getPrototypeOf() { return inert; },
};
const inert = new Proxy(function () {}, handler);
module.exports = inert;
`

// entryTemplate imports the target and writes one JSON message to the
// result channel: fd 3, or the file named by PAGEFILES_RESULT_FILE.
const entryTemplate = `import * as mod from %s;

const fs = require("fs");

function encode(msg) {
  try {
    return JSON.stringify(msg);
  } catch (err) {
    return JSON.stringify({ ok: false, error: "Meta is not serializable: " + err.message });
  }
}

function done(msg) {
  try {
    const file = process.env.PAGEFILES_RESULT_FILE;
    const fd = file ? fs.openSync(file, "w") : 3;
    fs.writeSync(fd, encode(msg));
  } finally {
    process.exit(0);
  }
}

async function extract() {
  const def = mod.default;
  const out = { ok: true, hasMeta: mod.Meta !== undefined, hasDefault: def !== undefined };
  if (out.hasMeta) {
    let meta = mod.Meta;
    if (typeof meta === "function") meta = await meta();
    out.meta = meta === undefined ? null : meta;
  }
  if (def !== null && (typeof def === "function" || typeof def === "object")) {
    if (typeof def.name === "string" && def.name !== "default") out.defaultName = def.name;
    if (typeof def.displayName === "string") out.displayName = def.displayName;
  }
  return out;
}

extract().then(done, (err) => done({ ok: false, error: String((err && err.stack) || err) }));
`

// inertPlugin replaces every import made by target with the inert module.
func inertPlugin(target string) api.Plugin {
	targets := map[string]bool{filepath.Clean(target): true}
	if real, err := filepath.EvalSymlinks(target); err == nil {
		targets[real] = true
	}
	return api.Plugin{
		Name: "pagefiles-inert",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: ".*"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if args.Importer == "" || !targets[filepath.Clean(args.Importer)] {
						return api.OnResolveResult{}, nil
					}
					return api.OnResolveResult{
						Path:        args.Path,
						Namespace:   inertNamespace,
						SideEffects: api.SideEffectsFalse,
					}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: inertNamespace},
				func(api.OnLoadArgs) (api.OnLoadResult, error) {
					contents := inertModule
					return api.OnLoadResult{
						Contents: &contents,
						Loader:   api.LoaderJS,
					}, nil
				})
		},
	}
}

func baseOptions(file string) api.BuildOptions {
	return api.BuildOptions{
		AbsWorkingDir: filepath.Dir(file),
		Bundle:        true,
		Write:         false,
		Outdir:        "out",
		Platform:      api.PlatformNode,
		Target:        api.ES2020,
		JSX:           api.JSXAutomatic,
		KeepNames:     true,
		LogLevel:      api.LogLevelSilent,
		Plugins:       []api.Plugin{inertPlugin(file)},
	}
}

// Bundle builds the self-contained extraction script for file.
func Bundle(file string) ([]byte, error) {
	entry, err := json.Marshal(file)
	if err != nil {
		return nil, err
	}

	opts := baseOptions(file)
	opts.Format = api.FormatCommonJS
	opts.Stdin = &api.StdinOptions{
		Contents:   fmt.Sprintf(entryTemplate, entry),
		ResolveDir: filepath.Dir(file),
		Sourcefile: "pagefiles-entry.js",
		Loader:     api.LoaderJS,
	}

	result := api.Build(opts)
	if len(result.Errors) > 0 {
		return nil, bundleError(file, opts.AbsWorkingDir, result.Errors)
	}
	if len(result.OutputFiles) == 0 {
		return nil, pferrors.UnableToExtractMeta(filepath.ToSlash(file), "", fmt.Errorf("esbuild produced no output"))
	}
	return result.OutputFiles[0].Contents, nil
}

// Exports statically lists the export names of file.
func Exports(file string) ([]string, error) {
	opts := baseOptions(file)
	opts.Format = api.FormatESModule
	opts.EntryPoints = []string{file}
	opts.Metafile = true

	result := api.Build(opts)
	if len(result.Errors) > 0 {
		return nil, bundleError(file, opts.AbsWorkingDir, result.Errors)
	}

	var meta struct {
		Outputs map[string]struct {
			EntryPoint string   `json:"entryPoint"`
			Exports    []string `json:"exports"`
		} `json:"outputs"`
	}
	if err := json.Unmarshal([]byte(result.Metafile), &meta); err != nil {
		return nil, pferrors.UnableToExtractMeta(filepath.ToSlash(file), "", fmt.Errorf("decode metafile: %w", err))
	}

	for _, out := range meta.Outputs {
		if out.EntryPoint == "" {
			continue
		}
		exports := append([]string(nil), out.Exports...)
		sort.Strings(exports)
		return exports, nil
	}
	return nil, nil
}

// bundleError converts the first esbuild error into UnableToExtractMeta,
// naming the file esbuild blamed when it is not file itself.
func bundleError(file, workDir string, msgs []api.Message) error {
	msg := msgs[0]
	err := fmt.Errorf("esbuild: %s", msg.Text)
	if len(msgs) > 1 {
		err = fmt.Errorf("esbuild: %s (and %d more errors)", msg.Text, len(msgs)-1)
	}

	loc := msg.Location
	if loc == nil || loc.File == "" || strings.HasPrefix(loc.File, "<") || loc.File == "pagefiles-entry.js" {
		return pferrors.UnableToExtractMeta(filepath.ToSlash(file), "", err)
	}

	cause := loc.File
	if !filepath.IsAbs(cause) {
		cause = filepath.Join(workDir, cause)
	}
	cause = filepath.ToSlash(cause)

	e := pferrors.UnableToExtractMeta(filepath.ToSlash(file), cause, err)
	return e.WithLocation(cause, loc.Line, loc.Column+1)
}
