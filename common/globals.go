package common

// LowcVersion is the current lowc version as a string.
const LowcVersion string = "0.1.0"

// ProjectFileName is the name of lowc project files.
const ProjectFileName string = "lowc.toml"

// DefaultCacheDir is the default compilation caching directory name.
const DefaultCacheDir string = ".lowc"

// Enumeration of output formats.
const (
	FormatLLVM = "llvm" // LLVM IR text (.ll)
	FormatQBE  = "qbe"  // QBE intermediate language (.ssa)
	FormatASM  = "asm"  // Target assembly assembled by QBE (.s)
)

// FormatExtensions maps each output format to its file extension.
var FormatExtensions = map[string]string{
	FormatLLVM: ".ll",
	FormatQBE:  ".ssa",
	FormatASM:  ".s",
}
