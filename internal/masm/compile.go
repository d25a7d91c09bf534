// Package masm assembles and executes the stack-machine programs that
// drive account and note scripts.
package masm

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var ErrCompile = errors.New("masm compile failed")

var (
	identPattern   = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	libPathPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*(::[a-z_][a-z0-9_]*)+$`)
)

// CompileLibrary parses library source into exported procedures under the
// given path. The path must have at least two "::" separated segments.
func CompileLibrary(source, path string) (*Library, error) {
	if !libPathPattern.MatchString(path) {
		return nil, fmt.Errorf("%w: invalid library path %q", ErrCompile, path)
	}
	lib := &Library{Path: path, procs: make(map[string][]Op)}

	var (
		current string
		body    []Op
		inProc  bool
	)
	for lineNo, line := range sourceLines(source) {
		for _, tok := range strings.Fields(line) {
			switch {
			case strings.HasPrefix(tok, "export.") || strings.HasPrefix(tok, "proc."):
				if inProc {
					return nil, compileErr(lineNo, "nested procedure %q", tok)
				}
				name := tok[strings.IndexByte(tok, '.')+1:]
				if !identPattern.MatchString(name) {
					return nil, compileErr(lineNo, "invalid procedure name %q", name)
				}
				if _, exists := lib.procs[name]; exists {
					return nil, compileErr(lineNo, "duplicate procedure %q", name)
				}
				current, body, inProc = name, nil, true
			case tok == "end":
				if !inProc {
					return nil, compileErr(lineNo, "unexpected end")
				}
				lib.procs[current] = body
				inProc = false
			case strings.HasPrefix(tok, "exec."):
				if !inProc {
					return nil, compileErr(lineNo, "instruction outside procedure")
				}
				callee := tok[len("exec."):]
				inlined, ok := lib.procs[callee]
				if !ok {
					return nil, compileErr(lineNo, "exec of undefined procedure %q", callee)
				}
				body = append(body, inlined...)
			default:
				if !inProc {
					return nil, compileErr(lineNo, "instruction outside procedure")
				}
				op, err := parseOp(tok, lineNo)
				if err != nil {
					return nil, err
				}
				body = append(body, op)
			}
		}
	}
	if inProc {
		return nil, fmt.Errorf("%w: procedure %q missing end", ErrCompile, current)
	}
	if len(lib.procs) == 0 {
		return nil, fmt.Errorf("%w: library %q exports no procedures", ErrCompile, path)
	}
	lib.Digest = libraryDigest(lib)
	return lib, nil
}

// CompileScript parses a begin/end script body. call.<libpath>::<proc>
// instructions are resolved against the linked libraries and inlined, so
// the resulting artifact is self-contained.
func CompileScript(source string, libraries ...*Library) (*Artifact, error) {
	linked := make(map[string]*Library, len(libraries))
	for _, lib := range libraries {
		if lib == nil {
			return nil, fmt.Errorf("%w: nil linked library", ErrCompile)
		}
		linked[lib.Path] = lib
	}

	var (
		ops   []Op
		began bool
		ended bool
	)
	for lineNo, line := range sourceLines(source) {
		for _, tok := range strings.Fields(line) {
			switch {
			case tok == "begin":
				if began {
					return nil, compileErr(lineNo, "duplicate begin")
				}
				began = true
			case tok == "end":
				if !began || ended {
					return nil, compileErr(lineNo, "unexpected end")
				}
				ended = true
			case strings.HasPrefix(tok, "call."):
				if !began || ended {
					return nil, compileErr(lineNo, "instruction outside begin/end")
				}
				inlined, err := resolveCall(tok[len("call."):], linked, lineNo)
				if err != nil {
					return nil, err
				}
				ops = append(ops, inlined...)
			default:
				if !began || ended {
					return nil, compileErr(lineNo, "instruction outside begin/end")
				}
				op, err := parseOp(tok, lineNo)
				if err != nil {
					return nil, err
				}
				ops = append(ops, op)
			}
		}
	}
	if !began || !ended {
		return nil, fmt.Errorf("%w: script missing begin/end", ErrCompile)
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("%w: script body is empty", ErrCompile)
	}
	return &Artifact{Ops: ops, Digest: digestOps("weft/artifact/v1", ops)}, nil
}

func resolveCall(target string, linked map[string]*Library, lineNo int) ([]Op, error) {
	idx := strings.LastIndex(target, "::")
	if idx <= 0 {
		return nil, compileErr(lineNo, "malformed call target %q", target)
	}
	libPath, proc := target[:idx], target[idx+2:]
	lib, ok := linked[libPath]
	if !ok {
		return nil, compileErr(lineNo, "unresolved library path %q", libPath)
	}
	ops, ok := lib.Proc(proc)
	if !ok {
		return nil, compileErr(lineNo, "library %q has no procedure %q", libPath, proc)
	}
	return ops, nil
}

func parseOp(tok string, lineNo int) (Op, error) {
	switch tok {
	case "add":
		return Op{Code: OpAdd}, nil
	case "sub":
		return Op{Code: OpSub}, nil
	case "swap":
		return Op{Code: OpSwap}, nil
	case "drop":
		return Op{Code: OpDrop}, nil
	}
	switch {
	case strings.HasPrefix(tok, "push."):
		v, err := strconv.ParseUint(tok[len("push."):], 10, 64)
		if err != nil {
			return Op{}, compileErr(lineNo, "invalid push immediate %q", tok)
		}
		return Op{Code: OpPush, Imm: v}, nil
	case strings.HasPrefix(tok, "storage.get."):
		return storageOp(OpStorageGet, tok[len("storage.get."):], tok, lineNo)
	case strings.HasPrefix(tok, "storage.set."):
		return storageOp(OpStorageSet, tok[len("storage.set."):], tok, lineNo)
	}
	return Op{}, compileErr(lineNo, "unknown instruction %q", tok)
}

func storageOp(code OpCode, raw, tok string, lineNo int) (Op, error) {
	idx, err := strconv.ParseUint(raw, 10, 8)
	if err != nil {
		return Op{}, compileErr(lineNo, "invalid storage index %q", tok)
	}
	return Op{Code: code, Imm: idx}, nil
}

func sourceLines(source string) []string {
	raw := strings.Split(source, "\n")
	lines := make([]string, len(raw))
	for i, line := range raw {
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		lines[i] = line
	}
	return lines
}

func libraryDigest(lib *Library) [32]byte {
	names := make([]string, 0, len(lib.procs))
	for name := range lib.procs {
		names = append(names, name)
	}
	sort.Strings(names)
	flat := []Op{{Code: 0, Imm: uint64(len(lib.Path))}}
	for _, name := range names {
		flat = append(flat, Op{Code: 0, Imm: uint64(len(name))})
		flat = append(flat, lib.procs[name]...)
	}
	return digestOps("weft/library/v1/"+lib.Path, flat)
}

func compileErr(lineNo int, format string, args ...any) error {
	detail := fmt.Sprintf(format, args...)
	return fmt.Errorf("%w: line %d: %s", ErrCompile, lineNo+1, detail)
}
