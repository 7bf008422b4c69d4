package interp

import (
	"errors"
	"fmt"
)

// ErrNullPointer is returned when a null pointer is dereferenced.
var ErrNullPointer = errors.New("null pointer dereference")

// cell is a unit of memory: a global or a stack allocation.  Aggregates are
// stored whole and addressed by a path of element indices.
type cell struct {
	name string
	val  Value
}

// Pointer is an address: a cell and a path of element indices into it.
type Pointer struct {
	cell *cell
	path []int
}

// elem returns a pointer to the element at ndx of the value pointed to.
func (p Pointer) elem(ndx int) Pointer {
	path := make([]int, len(p.path), len(p.path)+1)
	copy(path, p.path)

	return Pointer{cell: p.cell, path: append(path, ndx)}
}

// offset moves the pointer ndx elements forward within its enclosing array.
func (p Pointer) offset(ndx int) (Pointer, error) {
	if ndx == 0 {
		return p, nil
	}

	if len(p.path) == 0 {
		return p, fmt.Errorf("pointer arithmetic outside of an array on `%s`", p.cell.name)
	}

	path := make([]int, len(p.path))
	copy(path, p.path)
	path[len(path)-1] += ndx

	return Pointer{cell: p.cell, path: path}, nil
}

// slot returns the address of the value pointed to.
func (p Pointer) slot() (*Value, error) {
	if p.cell == nil {
		return nil, ErrNullPointer
	}

	v := &p.cell.val
	for _, ndx := range p.path {
		if v.Kind != KindAgg || ndx < 0 || ndx >= len(v.Fields) {
			return nil, fmt.Errorf("out of bounds access to `%s` at %v", p.cell.name, p.path)
		}

		v = &v.Fields[ndx]
	}

	return v, nil
}

func (p Pointer) load() (Value, error) {
	v, err := p.slot()
	if err != nil {
		return Value{}, err
	}

	return v.clone(), nil
}

func (p Pointer) store(val Value) error {
	v, err := p.slot()
	if err != nil {
		return err
	}

	*v = val.clone()
	return nil
}

// cString reads the null terminated string starting at the pointer.
func (p Pointer) cString() (string, error) {
	if p.cell == nil {
		return "", ErrNullPointer
	}

	if len(p.path) == 0 {
		return "", fmt.Errorf("`%s` is not a character array", p.cell.name)
	}

	arr, err := Pointer{cell: p.cell, path: p.path[:len(p.path)-1]}.slot()
	if err != nil {
		return "", err
	}

	var buf []byte
	for i := p.path[len(p.path)-1]; i < len(arr.Fields); i++ {
		c := arr.Fields[i].Int
		if c == 0 {
			return string(buf), nil
		}

		buf = append(buf, byte(c))
	}

	return "", fmt.Errorf("unterminated string in `%s`", p.cell.name)
}
