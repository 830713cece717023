// Package esbuildengine bundles virtual files in-process with esbuild.
package esbuildengine

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/bhandras/replbox/internal/engine"
	"github.com/bhandras/replbox/pkg/logger"
	"github.com/bhandras/replbox/pkg/types"
	"github.com/evanw/esbuild/pkg/api"
)

const (
	namespace = "vfs"
	outdir    = "/dist"
)

var loaders = map[string]api.Loader{
	".js":   api.LoaderJS,
	".mjs":  api.LoaderJS,
	".cjs":  api.LoaderJS,
	".jsx":  api.LoaderJSX,
	".ts":   api.LoaderTS,
	".mts":  api.LoaderTS,
	".tsx":  api.LoaderTSX,
	".css":  api.LoaderCSS,
	".json": api.LoaderJSON,
	".txt":  api.LoaderText,
	".svg":  api.LoaderDataURL,
	".png":  api.LoaderDataURL,
}

var resolveSuffixes = []string{"", ".js", ".jsx", ".ts", ".tsx", ".json", ".css", "/index.js", "/index.ts"}

var targets = map[string]api.Target{
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

// Engine implements engine.Engine on top of esbuild's build API.
type Engine struct {
	ready chan struct{}

	// esbuild builds are independent, but Snapshot must reflect the latest
	// completed one.
	mu       sync.Mutex
	snapshot map[string]string
}

var _ engine.Engine = (*Engine)(nil)

// New returns an engine and starts a warm-up build. Ready closes once the
// warm-up has finished.
func New() *Engine {
	e := &Engine{ready: make(chan struct{})}
	go e.warmUp()
	return e
}

func (e *Engine) warmUp() {
	defer close(e.ready)
	warm := []types.VirtualFile{{Name: "warmup.js", Content: "export const ok = true;", IsEntry: true}}
	if _, err := build(warm, types.DefaultBuildOptions()); err != nil {
		logger.Warnf("[engine] esbuild warm-up failed: %v", err)
		return
	}
	logger.Debugf("[engine] esbuild ready")
}

// Ready implements engine.Engine.
func (e *Engine) Ready() <-chan struct{} {
	return e.ready
}

// Bundle implements engine.Engine. esbuild cannot be interrupted, so a
// canceled context abandons the build and returns ctx.Err().
func (e *Engine) Bundle(ctx context.Context, files []types.VirtualFile, opts types.BuildOptions) ([]types.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case <-e.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	files = types.CloneFiles(files)
	if len(files) == 0 {
		return nil, engine.Errorf("no files")
	}

	type result struct {
		artifacts []types.Artifact
		err       error
	}
	done := make(chan result, 1)
	go func() {
		artifacts, err := build(files, opts)
		done <- result{artifacts: artifacts, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		e.mu.Lock()
		e.snapshot = engine.SnapshotOf(files, res.artifacts)
		e.mu.Unlock()
		return res.artifacts, nil
	}
}

// Snapshot implements engine.Engine.
func (e *Engine) Snapshot(ctx context.Context) (map[string]string, error) {
	_ = ctx
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snapshot == nil {
		return nil, fmt.Errorf("no build yet")
	}
	out := make(map[string]string, len(e.snapshot))
	for k, v := range e.snapshot {
		out[k] = v
	}
	return out, nil
}

func build(files []types.VirtualFile, opts types.BuildOptions) ([]types.Artifact, error) {
	var entries []string
	for _, f := range files {
		if f.IsEntry {
			entries = append(entries, f.Name)
		}
	}
	if len(entries) == 0 {
		return nil, engine.ErrNoEntryPoints
	}

	res := api.Build(buildOptions(files, entries, opts))
	if len(res.Errors) > 0 {
		return nil, &engine.BuildError{Messages: api.FormatMessages(res.Errors, api.FormatMessagesOptions{
			Kind: api.ErrorMessage,
		})}
	}

	artifacts := make([]types.Artifact, 0, len(res.OutputFiles))
	for _, out := range res.OutputFiles {
		name := strings.TrimPrefix(path.Clean(strings.ReplaceAll(out.Path, "\\", "/")), outdir+"/")
		artifacts = append(artifacts, types.Artifact{Name: name, Content: string(out.Contents)})
	}
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Name < artifacts[j].Name })
	return artifacts, nil
}

func buildOptions(files []types.VirtualFile, entries []string, opts types.BuildOptions) api.BuildOptions {
	names := "[name]"
	if opts.ContentHash {
		names = "[name]-[hash]"
	}

	bo := api.BuildOptions{
		EntryPoints:       entries,
		Bundle:            true,
		Write:             false,
		AbsWorkingDir:     "/",
		Outdir:            outdir,
		EntryNames:        names,
		AssetNames:        names,
		ChunkNames:        names,
		LogLevel:          api.LogLevelSilent,
		MinifyWhitespace:  opts.Minify,
		MinifyIdentifiers: opts.Minify,
		MinifySyntax:      opts.Minify,
		PublicPath:        opts.PublicURL,
		Sourcemap:         api.SourceMapNone,
		Format:            api.FormatESModule,
		Platform:          api.PlatformBrowser,
		Plugins:           []api.Plugin{vfsPlugin(files)},
	}
	if opts.SourceMaps {
		bo.Sourcemap = api.SourceMapExternal
	}
	if !opts.ScopeHoist || opts.Global != "" {
		bo.Format = api.FormatIIFE
		bo.GlobalName = opts.Global
	}
	switch opts.Platform {
	case types.PlatformNode:
		bo.Platform = api.PlatformNode
	case types.PlatformElectron:
		bo.Platform = api.PlatformNode
		bo.External = []string{"electron"}
	}
	if t, ok := targets[strings.ToLower(strings.TrimSpace(opts.Environment))]; ok {
		bo.Target = t
	}
	return bo
}

// vfsPlugin serves every import from the session's files. Relative imports
// must resolve to a file; bare specifiers are left external.
func vfsPlugin(files []types.VirtualFile) api.Plugin {
	byName := make(map[string]string, len(files))
	for _, f := range files {
		byName[strings.TrimPrefix(path.Clean("/"+f.Name), "/")] = f.Content
	}

	return api.Plugin{
		Name: namespace,
		Setup: func(b api.PluginBuild) {
			b.OnResolve(api.OnResolveOptions{Filter: ".*"}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				spec := args.Path
				if args.Kind != api.ResolveEntryPoint && !isRelative(spec) {
					return api.OnResolveResult{Path: spec, External: true}, nil
				}

				base := "/"
				if args.Namespace == namespace && args.Importer != "" {
					base = path.Dir("/" + args.Importer)
				}
				target := strings.TrimPrefix(path.Clean(path.Join(base, spec)), "/")
				for _, suffix := range resolveSuffixes {
					if _, ok := byName[target+suffix]; ok {
						return api.OnResolveResult{Path: target + suffix, Namespace: namespace}, nil
					}
				}
				return api.OnResolveResult{}, fmt.Errorf("cannot resolve %q", spec)
			})

			b.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: namespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				content, ok := byName[args.Path]
				if !ok {
					return api.OnLoadResult{}, fmt.Errorf("file %q not found", args.Path)
				}
				loader, ok := loaders[strings.ToLower(path.Ext(args.Path))]
				if !ok {
					loader = api.LoaderText
				}
				return api.OnLoadResult{Contents: &content, Loader: loader}, nil
			})
		},
	}
}

func isRelative(spec string) bool {
	return strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || strings.HasPrefix(spec, "/")
}
