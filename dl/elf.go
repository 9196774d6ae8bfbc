package dl

import (
	"debug/elf"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Symbol is a named address in a module file.
type Symbol struct {
	Name  string
	Value uintptr
	Func  bool
}

// Symbols lists the defined symbols of an ELF file, from .dynsym and
// .symtab, sorted by name. Duplicate names keep the .dynsym entry.
func Symbols(path string) ([]Symbol, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open elf %s: %w", path, err)
	}
	defer f.Close()

	seen := make(map[string]bool)
	var out []Symbol
	add := func(syms []elf.Symbol) {
		for _, s := range syms {
			if s.Value == 0 || s.Name == "" || seen[s.Name] {
				continue
			}
			seen[s.Name] = true
			out = append(out, Symbol{
				Name:  s.Name,
				Value: uintptr(s.Value),
				Func:  elf.ST_TYPE(s.Info) == elf.STT_FUNC,
			})
		}
	}

	dyn, dynErr := f.DynamicSymbols()
	add(dyn)
	static, staticErr := f.Symbols()
	add(static)
	if dynErr != nil && staticErr != nil {
		return nil, fmt.Errorf("%s: %w", path, errors.Join(dynErr, staticErr))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// symbolValue finds a symbol's link-time address in the file, trying
// .dynsym before .symtab.
func symbolValue(path string, symbol string) (uintptr, error) {
	f, err := elf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open elf %s: %w", path, err)
	}
	defer f.Close()

	if syms, err := f.DynamicSymbols(); err == nil {
		if v, ok := matchSymbol(syms, symbol); ok {
			return v, nil
		}
	}
	if syms, err := f.Symbols(); err == nil {
		if v, ok := matchSymbol(syms, symbol); ok {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %s in %s", ErrSymbolNotFound, symbol, path)
}

func matchSymbol(symbols []elf.Symbol, want string) (uintptr, bool) {
	for _, s := range symbols {
		if s.Value == 0 {
			continue
		}
		if s.Name == want || strings.HasPrefix(s.Name, want+"@") {
			return uintptr(s.Value), true
		}
	}
	return 0, false
}

// loadBias returns the difference between run-time and link-time addresses
// for a module whose first page is mapped at start.
func loadBias(path string, start uintptr) (uintptr, error) {
	f, err := elf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open elf %s: %w", path, err)
	}
	defer f.Close()

	for _, prog := range f.Progs {
		if prog.Type == elf.PT_LOAD && prog.Off == 0 {
			return start - uintptr(prog.Vaddr&^0xfff), nil
		}
	}
	return 0, fmt.Errorf("%s: no loadable segment at offset 0", path)
}
