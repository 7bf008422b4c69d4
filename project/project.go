package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"lowc/common"
	"lowc/report"

	"github.com/pelletier/go-toml"
)

// Project is a lowc project: a set of build profiles selecting which programs
// to build and how to emit them.
type Project struct {
	// Dir is the absolute path of the directory containing the project file.
	Dir string

	Name        string
	LowcVersion string

	// Caching enables the output fingerprint cache.
	Caching  bool
	CacheDir string

	Profiles []*Profile
}

// Profile is a build profile.
type Profile struct {
	Name string

	// Format is one of the output formats enumerated in common.
	Format string

	// OutputDir is the absolute path of the directory outputs are written to.
	OutputDir string

	// Target is the QBE target.  It is empty for the host.
	Target string

	Default bool

	// Programs are the names of the catalog programs to build.  An empty list
	// builds every program.
	Programs []string
}

// -----------------------------------------------------------------------------

// tomlProjectFile represents a project file as it is encoded in TOML.
type tomlProjectFile struct {
	Project  *tomlProject   `toml:"project"`
	Profiles []*tomlProfile `toml:"profiles"`
}

type tomlProject struct {
	Name           string `toml:"name"`
	LowcVersion    string `toml:"lowc-version"`
	ShouldCache    bool   `toml:"caching"`
	CacheDirectory string `toml:"cache-directory,omitempty"`
}

type tomlProfile struct {
	Name     string   `toml:"name"`
	Format   string   `toml:"format"`
	Output   string   `toml:"output"`
	Target   string   `toml:"target,omitempty"`
	Default  bool     `toml:"default"`
	Programs []string `toml:"programs"`
}

// Load loads and validates the project in dir.
func Load(dir string) (*Project, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	buff, err := os.ReadFile(filepath.Join(absDir, common.ProjectFileName))
	if err != nil {
		return nil, fmt.Errorf("unable to open project file at `%s`: %w", absDir, err)
	}

	tomlFile := &tomlProjectFile{}
	if err := toml.Unmarshal(buff, tomlFile); err != nil {
		return nil, fmt.Errorf("error parsing project file at `%s`: %w", absDir, err)
	}

	return validateProject(absDir, tomlFile)
}

// validateProject checks the decoded project file and converts it into a
// project.  Relative paths are resolved against the project directory.
func validateProject(absDir string, tomlFile *tomlProjectFile) (*Project, error) {
	tp := tomlFile.Project
	if tp == nil {
		return nil, errors.New("missing [project] table")
	}

	if tp.Name == "" {
		return nil, errors.New("missing project name")
	}

	if !IsValidIdentifier(tp.Name) {
		return nil, errors.New("project name must be a valid identifier")
	}

	if tp.LowcVersion != common.LowcVersion {
		report.ReportWarning(
			tp.Name,
			"version of project `%s` (v%s) does not match current lowc version (v%s)",
			tp.Name,
			tp.LowcVersion,
			common.LowcVersion,
		)
	}

	proj := &Project{
		Dir:         absDir,
		Name:        tp.Name,
		LowcVersion: tp.LowcVersion,
		Caching:     tp.ShouldCache,
	}

	if tp.ShouldCache {
		if tp.CacheDirectory == "" {
			return nil, errors.New("caching is enabled but no cache directory is specified")
		}

		proj.CacheDir = resolvePath(absDir, tp.CacheDirectory)
	}

	if len(tomlFile.Profiles) == 0 {
		return nil, errors.New("project must define at least one profile")
	}

	formats := make([]string, 0, len(common.FormatExtensions))
	for format := range common.FormatExtensions {
		formats = append(formats, format)
	}

	seen := make(map[string]struct{})
	defaultCount := 0
	for _, tprof := range tomlFile.Profiles {
		if tprof.Name == "" {
			return nil, errors.New("profile is missing a name")
		}

		if _, ok := seen[tprof.Name]; ok {
			return nil, fmt.Errorf("multiple profiles named `%s`", tprof.Name)
		}
		seen[tprof.Name] = struct{}{}

		if !slices.Contains(formats, tprof.Format) {
			return nil, fmt.Errorf("profile `%s` has unknown output format `%s`", tprof.Name, tprof.Format)
		}

		if tprof.Format != common.FormatASM && tprof.Target != "" {
			report.ReportWarning(tp.Name, "target of profile `%s` is ignored for %s output", tprof.Name, tprof.Format)
		}

		if tprof.Default {
			defaultCount++
		}

		output := tprof.Output
		if output == "" {
			output = "out"
		}

		proj.Profiles = append(proj.Profiles, &Profile{
			Name:      tprof.Name,
			Format:    tprof.Format,
			OutputDir: resolvePath(absDir, output),
			Target:    tprof.Target,
			Default:   tprof.Default,
			Programs:  tprof.Programs,
		})
	}

	if defaultCount > 1 {
		return nil, errors.New("project has more than one default profile")
	}

	return proj, nil
}

func resolvePath(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(base, path)
}

// SelectProfile returns the named profile.  An empty name selects the default
// profile, or the only profile of a project with just one.
func (p *Project) SelectProfile(name string) (*Profile, error) {
	if name != "" {
		for _, prof := range p.Profiles {
			if prof.Name == name {
				return prof, nil
			}
		}

		return nil, fmt.Errorf("project `%s` has no profile named `%s`", p.Name, name)
	}

	for _, prof := range p.Profiles {
		if prof.Default {
			return prof, nil
		}
	}

	if len(p.Profiles) == 1 {
		return p.Profiles[0], nil
	}

	return nil, fmt.Errorf("project `%s` has no default profile: a profile must be specified", p.Name)
}

// -----------------------------------------------------------------------------

// Init creates a new project with the given name in dir.  The project gets a
// default LLVM debug profile and an assembly release profile.
func Init(dir, name string, caching bool) error {
	projFilePath := filepath.Join(dir, common.ProjectFileName)

	_, err := os.Stat(projFilePath)
	if err == nil {
		return errors.New("project file already exists")
	}

	if !os.IsNotExist(err) {
		return fmt.Errorf("project file error: %w", err)
	}

	if !IsValidIdentifier(name) {
		return errors.New("project name must be a valid identifier")
	}

	tomlFile := &tomlProjectFile{
		Project: &tomlProject{
			Name:        name,
			LowcVersion: common.LowcVersion,
			ShouldCache: caching,
		},
		Profiles: []*tomlProfile{
			{Name: "debug", Format: common.FormatLLVM, Output: "out/debug", Default: true, Programs: []string{}},
			{Name: "release", Format: common.FormatASM, Output: "out/release", Programs: []string{}},
		},
	}

	if caching {
		tomlFile.Project.CacheDirectory = common.DefaultCacheDir
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.Create(projFilePath)
	if err != nil {
		return fmt.Errorf("error creating project file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(tomlFile); err != nil {
		return fmt.Errorf("error encoding TOML: %w", err)
	}

	return nil
}

// IsValidIdentifier returns whether or not a given string would be a valid
// identifier (project name, program name, etc.).
func IsValidIdentifier(idstr string) bool {
	if idstr == "" {
		return false
	}

	if idstr[0] == '_' || ('a' <= idstr[0] && idstr[0] <= 'z') || ('A' <= idstr[0] && idstr[0] <= 'Z') {
		for _, c := range idstr[1:] {
			if c == '_' || c == '-' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
				continue
			}

			return false
		}

		return true
	}

	return false
}
