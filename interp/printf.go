package interp

import (
	"fmt"
	"io"
	"strings"

	"github.com/llir/llvm/ir"
)

// callExternal calls a function with no body.  Only printf is provided.
func (m *Machine) callExternal(fn *ir.Func, args []Value) (Value, error) {
	switch fn.Name() {
	case "printf":
		if len(args) == 0 {
			return Value{}, fmt.Errorf("printf requires a format string")
		}

		if args[0].Kind != KindPtr {
			return Value{}, fmt.Errorf("printf format is not a pointer")
		}

		format, err := args[0].Ptr.cString()
		if err != nil {
			return Value{}, err
		}

		s, err := m.sprintf(format, args[1:])
		if err != nil {
			return Value{}, err
		}

		n, err := io.WriteString(m.out, s)
		if err != nil {
			return Value{}, err
		}

		return Int(int64(n)), nil
	}

	return Value{}, fmt.Errorf("call to undefined external function `%s`", fn.Name())
}

// sprintf formats according to a C format string.  Flags, width and precision
// are supported; length modifiers are accepted and ignored since arguments
// arrive already promoted.
func (m *Machine) sprintf(format string, args []Value) (string, error) {
	var sb strings.Builder
	argNdx := 0

	nextArg := func(verb byte) (Value, error) {
		if argNdx >= len(args) {
			return Value{}, fmt.Errorf("missing argument for `%%%c`", verb)
		}

		arg := args[argNdx]
		argNdx++
		return arg, nil
	}

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			sb.WriteByte(c)
			continue
		}

		// spec is the Go form of the directive: flags, width and precision
		start := i + 1
		j := start
		for j < len(format) && strings.IndexByte("-+ #0123456789.", format[j]) >= 0 {
			j++
		}

		spec := format[start:j]

		for j < len(format) && strings.IndexByte("hljztL", format[j]) >= 0 {
			j++
		}

		if j >= len(format) {
			return "", fmt.Errorf("incomplete format directive at end of `%s`", format)
		}

		verb := format[j]
		i = j

		switch verb {
		case '%':
			sb.WriteByte('%')
		case 'd', 'i':
			arg, err := nextArg(verb)
			if err != nil {
				return "", err
			}

			fmt.Fprintf(&sb, "%"+spec+"d", int32(arg.Int))
		case 'u':
			arg, err := nextArg(verb)
			if err != nil {
				return "", err
			}

			fmt.Fprintf(&sb, "%"+spec+"d", uint32(arg.Int))
		case 'x', 'X', 'o':
			arg, err := nextArg(verb)
			if err != nil {
				return "", err
			}

			fmt.Fprintf(&sb, "%"+spec+string(verb), uint32(arg.Int))
		case 'c':
			arg, err := nextArg(verb)
			if err != nil {
				return "", err
			}

			fmt.Fprintf(&sb, "%"+spec+"c", rune(byte(arg.Int)))
		case 's':
			arg, err := nextArg(verb)
			if err != nil {
				return "", err
			}

			if arg.Kind != KindPtr {
				return "", fmt.Errorf("`%%s` expects a string argument")
			}

			str, err := arg.Ptr.cString()
			if err != nil {
				return "", err
			}

			fmt.Fprintf(&sb, "%"+spec+"s", str)
		case 'f', 'F', 'e', 'E', 'g', 'G':
			arg, err := nextArg(verb)
			if err != nil {
				return "", err
			}

			goVerb := verb
			if goVerb == 'F' {
				goVerb = 'f'
			}

			// C defaults to six digits of precision for every float verb
			if !strings.Contains(spec, ".") {
				spec += ".6"
			}

			fmt.Fprintf(&sb, "%"+spec+string(goVerb), arg.Float)
		default:
			return "", fmt.Errorf("unsupported format verb `%%%c`", verb)
		}
	}

	return sb.String(), nil
}
