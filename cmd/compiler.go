package cmd

import (
	"fmt"
	"path/filepath"
	"sync"

	"lowc/common"
	"lowc/emit"
	"lowc/generate"
	"lowc/project"
	"lowc/report"
	"lowc/samples"

	"github.com/llir/llvm/ir"
)

// Compiler represents the state of a project build.
type Compiler struct {
	proj    *project.Project
	profile *project.Profile

	// programs are the catalog programs selected by the profile.
	programs []*samples.Sample

	// target is the QBE target used for assembly output.
	target string

	cache *emit.Cache
}

// NewCompiler loads the project in projDir and selects the named profile.  An
// empty profile name selects the default profile.
func NewCompiler(projDir, profileName string) (*Compiler, error) {
	proj, err := project.Load(projDir)
	if err != nil {
		return nil, err
	}

	prof, err := proj.SelectProfile(profileName)
	if err != nil {
		return nil, err
	}

	names := prof.Programs
	if len(names) == 0 {
		names = samples.Names()
	}

	c := &Compiler{
		proj:    proj,
		profile: prof,
		target:  prof.Target,
	}

	for _, name := range names {
		s, ok := samples.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("profile `%s` names unknown program `%s`", prof.Name, name)
		}

		c.programs = append(c.programs, s)
	}

	if c.target == "" {
		c.target = emit.DefaultTarget()
	}

	c.cache, err = emit.OpenCache(proj.CacheDir, proj.Caching)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// OutputDir returns the directory the build writes to.
func (c *Compiler) OutputDir() string {
	return c.profile.OutputDir
}

// lowered is a program that was successfully lowered.
type lowered struct {
	name string
	mod  *ir.Module
}

// Build lowers every selected program concurrently and then writes their
// outputs.  Errors are reported per program so that one failing program does
// not stop the others.  It returns the number of outputs written and the
// number left untouched because they were unchanged.
func (c *Compiler) Build() (written, unchanged int) {
	phase := report.ReportBeginPhase("Lowering")

	results := make([]*lowered, len(c.programs))
	wg := &sync.WaitGroup{}
	for i, s := range c.programs {
		wg.Add(1)

		go func(i int, s *samples.Sample) {
			defer wg.Done()
			defer report.CatchErrors(s.Name)

			if mod, ok := lowerSample(s); ok {
				results[i] = &lowered{name: s.Name, mod: mod}
			}
		}(i, s)
	}

	wg.Wait()
	report.ReportEndPhase(phase)

	phase = report.ReportBeginPhase("Emitting")

	ext, ok := common.FormatExtensions[c.profile.Format]
	if !ok {
		report.ReportICE("profile `%s` has no extension for format `%s`", c.profile.Name, c.profile.Format)
	}

	for _, res := range results {
		if res == nil {
			continue
		}

		path := filepath.Join(c.profile.OutputDir, res.name+ext)
		wasWritten, err := c.emitProgram(res, path)
		if err != nil {
			report.ReportStdError(res.name, err)
			continue
		}

		if wasWritten {
			written++
		} else {
			unchanged++
			report.ReportInfo("Unchanged", "%s", path)
		}
	}

	if err := c.cache.Save(); err != nil {
		report.ReportStdError(c.proj.Name, fmt.Errorf("saving cache: %w", err))
	}

	report.ReportEndPhase(phase)
	return
}

// emitProgram renders a lowered program and writes it to path through the
// cache.
func (c *Compiler) emitProgram(res *lowered, path string) (written bool, err error) {
	// the backends panic on malformed modules
	defer func() {
		if x := recover(); x != nil {
			err = fmt.Errorf("emitting %s output: %v", c.profile.Format, x)
		}
	}()

	data, err := render(c.profile.Format, res.mod, c.target)
	if err != nil {
		return false, err
	}

	return c.cache.WriteFile(path, data)
}

// -----------------------------------------------------------------------------

// lowerSample lowers a catalog program, reporting its warnings and its error
// if it fails.
func lowerSample(s *samples.Sample) (*ir.Module, bool) {
	prog := s.Build()
	g := generate.NewGenerator(prog.Name)

	mod, err := g.Generate(prog)

	for _, warning := range g.Warnings() {
		report.ReportWarning(s.Name, "%s", warning)
	}

	if err != nil {
		report.ReportLowerError(s.Name, err)
		return nil, false
	}

	return mod, true
}

// render converts a module into the given output format.
func render(format string, mod *ir.Module, target string) ([]byte, error) {
	switch format {
	case common.FormatLLVM:
		return emit.LLVMText(mod)
	case common.FormatQBE, common.FormatASM:
		il, err := emit.TranslateQBE(mod, emit.WordTypeFor(target))
		if err != nil {
			return nil, err
		}

		if format == common.FormatQBE {
			return []byte(il), nil
		}

		return emit.Assemble(il, target)
	default:
		return nil, fmt.Errorf("unknown output format `%s`", format)
	}
}
