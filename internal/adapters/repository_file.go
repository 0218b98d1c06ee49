package adapters

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"

	"stackforge/internal/ports"
	"stackforge/internal/types"
)

var skippedRobotDirs = map[string]bool{
	".git":        true,
	".svn":        true,
	"__archive__": true,
}

// FileRepository serves descriptions found under an ordered list of robot
// paths. When two paths hold an equivalent description the earlier path
// wins. The paths are scanned once, on first use.
type FileRepository struct {
	RobotPaths []string
	Loader     DescriptionFileAdapter

	mu      sync.Mutex
	loaded  bool
	scanErr error
	loadErr error
	records []types.DescriptionRecord
	byName  map[string][]int
	byKey   map[types.SpecKey]int
	files   []string
}

func NewFileRepository(robotPaths []string) *FileRepository {
	return &FileRepository{
		RobotPaths: robotPaths,
		Loader:     NewDescriptionFileAdapter(),
	}
}

func (r *FileRepository) Lookup(ctx context.Context, partial types.PartialSpec) ([]types.Candidate, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	var out []types.Candidate
	for _, idx := range r.byName[partial.Name] {
		out = append(out, candidateFromRecord(r.records[idx]))
	}
	return out, nil
}

func (r *FileRepository) LoadDependencies(ctx context.Context, spec types.PackageSpec) ([]types.DependencyDecl, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	idx, ok := r.byKey[spec.Key()]
	if !ok {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("no description provides %s", spec.ModuleName()))
	}
	desc := r.records[idx].Description
	decls := make([]types.DependencyDecl, 0, len(desc.Dependencies)+len(desc.BuildDependencies))
	for _, entry := range desc.Dependencies {
		decls = append(decls, entry.Decl(types.DependencyKindRuntime))
	}
	for _, entry := range desc.BuildDependencies {
		decls = append(decls, entry.Decl(types.DependencyKindBuild))
	}
	return decls, nil
}

func (r *FileRepository) Components(ctx context.Context, toolchain types.Toolchain) ([]types.PartialSpec, error) {
	desc, err := r.toolchainDescription(ctx, toolchain)
	if err != nil {
		return nil, err
	}
	out := make([]types.PartialSpec, 0, len(desc.ToolchainComponents))
	for _, entry := range desc.ToolchainComponents {
		partial := entry.Partial()
		if partial.Toolchain == nil {
			partial.Toolchain = &types.Toolchain{Name: types.ToolchainSystem}
		}
		out = append(out, partial)
	}
	return out, nil
}

func (r *FileRepository) Subtoolchains(ctx context.Context, toolchain types.Toolchain) ([]types.Toolchain, error) {
	desc, err := r.toolchainDescription(ctx, toolchain)
	if err != nil {
		return nil, err
	}
	return append([]types.Toolchain(nil), desc.Subtoolchains...), nil
}

// Search returns the description paths whose path contains query, ignoring
// case. An empty query lists everything.
func (r *FileRepository) Search(ctx context.Context, query string) ([]string, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	var out []string
	for _, path := range r.files {
		if needle == "" || strings.Contains(strings.ToLower(path), needle) {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Descriptions returns every parsed description together with the combined
// parse errors of the files that could not be read.
func (r *FileRepository) Descriptions(ctx context.Context) ([]types.DescriptionRecord, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return append([]types.DescriptionRecord(nil), r.records...), r.loadErr
}

func (r *FileRepository) toolchainDescription(ctx context.Context, toolchain types.Toolchain) (types.DescriptionFile, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return types.DescriptionFile{}, err
	}
	tc := toolchain.Normalized()
	found := -1
	for _, idx := range r.byName[tc.Name] {
		desc := r.records[idx].Description
		if desc.Version != tc.Version {
			continue
		}
		if strings.TrimSpace(desc.Easyblock) == "Toolchain" {
			found = idx
			break
		}
		if found < 0 {
			found = idx
		}
	}
	if found < 0 {
		return types.DescriptionFile{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("no description for toolchain %s", tc.String()))
	}
	return r.records[found].Description, nil
}

func (r *FileRepository) ensureLoaded(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return r.scanErr
	}
	r.loaded = true
	r.scanErr = r.scan(ctx)
	return r.scanErr
}

func (r *FileRepository) scan(ctx context.Context) error {
	if len(r.RobotPaths) == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("no robot paths configured")
	}
	r.byName = map[string][]int{}
	r.byKey = map[types.SpecKey]int{}
	for _, root := range r.RobotPaths {
		info, err := os.Stat(root)
		if err == nil && !info.IsDir() {
			err = fmt.Errorf("%s is a file", root)
		}
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("robot path is not a directory: %s", root)).
				WithCause(err)
		}
		files, err := descriptionFiles(root)
		if err != nil {
			return err
		}
		for _, path := range files {
			r.files = append(r.files, path)
			r.add(ctx, path)
		}
	}
	log.Ctx(ctx).Debug().
		Strs("robot_paths", r.RobotPaths).
		Int("descriptions", len(r.records)).
		Msg("robot paths scanned")
	return nil
}

func (r *FileRepository) add(ctx context.Context, path string) {
	desc, err := r.Loader.Load(path)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("skipping unreadable description")
		r.loadErr = multierr.Append(r.loadErr, err)
		return
	}
	if strings.TrimSpace(desc.Name) == "" || strings.TrimSpace(desc.Version) == "" {
		err := errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("%s: description needs a name and a version", path))
		log.Ctx(ctx).Warn().Err(err).Msg("skipping incomplete description")
		r.loadErr = multierr.Append(r.loadErr, err)
		return
	}
	key := desc.Spec().Key()
	if prev, exists := r.byKey[key]; exists {
		log.Ctx(ctx).Debug().
			Str("path", path).
			Str("shadowed_by", r.records[prev].Path).
			Msg("description shadowed by an earlier robot path")
		return
	}
	idx := len(r.records)
	r.records = append(r.records, types.DescriptionRecord{Path: path, Description: desc})
	r.byKey[key] = idx
	r.byName[desc.Name] = append(r.byName[desc.Name], idx)
}

func descriptionFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skippedRobotDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if IsDescriptionFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to walk robot path %s", root)).
			WithCause(err)
	}
	return files, nil
}

func candidateFromRecord(record types.DescriptionRecord) types.Candidate {
	desc := record.Description
	var steps types.BuildSteps
	if desc.Steps != nil {
		steps = *desc.Steps
	}
	return types.Candidate{
		Spec:      desc.Spec(),
		Path:      record.Path,
		Easyblock: desc.Easyblock,
		Steps:     steps,
		Sources:   desc.SourceFiles(),
	}
}

var (
	_ ports.RepositoryPort         = (*FileRepository)(nil)
	_ ports.ToolchainPort          = (*FileRepository)(nil)
	_ ports.SearchPort             = (*FileRepository)(nil)
	_ ports.DescriptionCatalogPort = (*FileRepository)(nil)
)
