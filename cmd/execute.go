package cmd

import (
	"os"
	"path/filepath"

	"lowc/common"
	"lowc/emit"
	"lowc/interp"
	"lowc/project"
	"lowc/report"
	"lowc/samples"

	"github.com/ComedicChimera/olive"
	"github.com/pterm/pterm"
)

// Execute is the main entry point for the `lowc` CLI utility
func Execute() {
	// set up the argument parser and all its extended commands and arguments
	cli := olive.NewCLI("lowc", "lowc lowers programs into LLVM and QBE IR", true)
	logLvlArg := cli.AddSelectorArg("loglevel", "ll", "the compiler log level", false, []string{"silent", "error", "warn", "verbose"})
	logLvlArg.SetDefaultValue("verbose")

	buildCmd := cli.AddSubcommand("build", "build the programs of a project", true)
	buildCmd.AddPrimaryArg("project-path", "the path to the project to build", true)
	buildCmd.AddStringArg("profile", "p", "the name of the profile to build", false)

	runCmd := cli.AddSubcommand("run", "lower and interpret a catalog program", true)
	runCmd.AddPrimaryArg("program", "the name of the program to run", true)

	emitCmd := cli.AddSubcommand("emit", "print the lowered form of a catalog program", true)
	emitCmd.AddPrimaryArg("program", "the name of the program to emit", true)
	formatArg := emitCmd.AddSelectorArg("format", "f", "the output format", false, []string{common.FormatLLVM, common.FormatQBE, common.FormatASM})
	formatArg.SetDefaultValue(common.FormatLLVM)

	cli.AddSubcommand("list", "list the catalog programs", false)

	initCmd := cli.AddSubcommand("init", "initialize a project", true)
	initCmd.AddPrimaryArg("project-path", "the path to the project directory", true)
	initCmd.AddFlag("caching", "ch", "indicate whether output caching should be enabled for this project")

	cli.AddSubcommand("version", "print the lowc version", false)

	// run the argument parser
	result, err := olive.ParseArgs(cli, os.Args)
	if err != nil {
		report.ReportFatal(err.Error())
	}

	logLevel, _ := report.LogLevelFromName(result.Arguments["loglevel"].(string))
	report.InitReporter(logLevel)

	// process the inputed command line
	subcmdName, subResult, _ := result.Subcommand()
	switch subcmdName {
	case "build":
		execBuildCommand(subResult)
	case "run":
		execRunCommand(subResult)
	case "emit":
		execEmitCommand(subResult)
	case "list":
		execListCommand()
	case "init":
		execInitCommand(subResult)
	case "version":
		report.ReportInfo("lowc Version", common.LowcVersion)
	}
}

// execBuildCommand executes the build subcommand and handles all errors
func execBuildCommand(result *olive.ArgParseResult) {
	projPath, _ := result.PrimaryArg()

	selectedProfile := ""
	if profArgVal, ok := result.Arguments["profile"]; ok {
		selectedProfile = profArgVal.(string)
	}

	c, err := NewCompiler(projPath, selectedProfile)
	if err != nil {
		report.ReportFatal("failed to load project: %s", err)
	}

	c.Build()

	report.ReportCompilationFinished(c.OutputDir())

	if report.AnyErrors() {
		os.Exit(1)
	}
}

// execRunCommand lowers a catalog program and runs it in the interpreter.
func execRunCommand(result *olive.ArgParseResult) {
	s := lookupProgram(result)

	mod, ok := lowerSample(s)
	if !ok {
		os.Exit(1)
	}

	code, err := interp.Run(mod, os.Stdout)
	if err != nil {
		report.ReportFatal("failed to run `%s`: %s", s.Name, err)
	}

	report.ReportInfo("Exit Code", "%d", code)
}

// execEmitCommand prints the lowered form of a catalog program.
func execEmitCommand(result *olive.ArgParseResult) {
	s := lookupProgram(result)
	format := result.Arguments["format"].(string)

	mod, ok := lowerSample(s)
	if !ok {
		os.Exit(1)
	}

	data, err := render(format, mod, emit.DefaultTarget())
	if err != nil {
		report.ReportFatal("failed to emit `%s`: %s", s.Name, err)
	}

	os.Stdout.Write(data)
}

// execListCommand prints the catalog as a table.
func execListCommand() {
	data := pterm.TableData{{"Program", "Description", "Output"}}
	for _, name := range samples.Names() {
		s, _ := samples.Lookup(name)
		data = append(data, []string{s.Name, s.Description, pterm.Sprintf("%q", s.Output)})
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		report.ReportFatal("failed to print catalog: %s", err)
	}
}

// execInitCommand creates a new project named after its directory.
func execInitCommand(result *olive.ArgParseResult) {
	projPath, _ := result.PrimaryArg()

	absPath, err := filepath.Abs(projPath)
	if err != nil {
		report.ReportFatal("error calculating absolute path: %s", err)
	}

	name := filepath.Base(absPath)
	if err := project.Init(absPath, name, result.HasFlag("caching")); err != nil {
		report.ReportFatal("failed to initialize project `%s`: %s", name, err)
	}

	report.ReportInfo("Initialized", "project `%s` at %s", name, absPath)
}

// lookupProgram returns the catalog program named by the primary argument.
func lookupProgram(result *olive.ArgParseResult) *samples.Sample {
	name, _ := result.PrimaryArg()

	s, ok := samples.Lookup(name)
	if !ok {
		report.ReportFatal("no program named `%s`: run `lowc list` to see the catalog", name)
	}

	return s
}
