package masm

import (
	"errors"
	"testing"

	"weft-ledger/go-client/internal/field"
)

const counterLibrarySource = `
# counter contract
export.increment
    storage.get.0
    push.1
    add
    storage.set.0
end
`

const incrementScriptSource = `
begin
    call.contracts::counter::increment
end
`

func TestCompileLibraryAndScript(t *testing.T) {
	lib, err := CompileLibrary(counterLibrarySource, "contracts::counter")
	if err != nil {
		t.Fatalf("compile library failed: %v", err)
	}
	if _, ok := lib.Proc("increment"); !ok {
		t.Fatal("increment procedure not exported")
	}

	artifact, err := CompileScript(incrementScriptSource, lib)
	if err != nil {
		t.Fatalf("compile script failed: %v", err)
	}
	if artifact.Empty() {
		t.Fatal("artifact should not be empty")
	}
}

func TestCompileDeterministicDigest(t *testing.T) {
	lib, _ := CompileLibrary(counterLibrarySource, "contracts::counter")
	a1, err := CompileScript(incrementScriptSource, lib)
	if err != nil {
		t.Fatalf("compile 1 failed: %v", err)
	}
	a2, err := CompileScript(incrementScriptSource, lib)
	if err != nil {
		t.Fatalf("compile 2 failed: %v", err)
	}
	if a1.Digest != a2.Digest {
		t.Fatal("artifact digests should be deterministic")
	}
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		name   string
		source string
		path   string
	}{
		{"bad path", counterLibrarySource, "counter"},
		{"missing end", "export.broken\npush.1", "contracts::broken"},
		{"unknown instruction", "export.bad\nfrobnicate\nend", "contracts::bad"},
		{"empty library", "# nothing here", "contracts::empty"},
		{"instruction outside proc", "push.1", "contracts::loose"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := CompileLibrary(tc.source, tc.path); !errors.Is(err, ErrCompile) {
				t.Fatalf("expected ErrCompile, got %v", err)
			}
		})
	}

	if _, err := CompileScript("begin\ncall.contracts::missing::proc\nend"); !errors.Is(err, ErrCompile) {
		t.Fatalf("unresolved call should fail compile, got %v", err)
	}
	if _, err := CompileScript("push.1"); !errors.Is(err, ErrCompile) {
		t.Fatalf("script without begin/end should fail, got %v", err)
	}
	if _, err := CompileScript("begin\nend"); !errors.Is(err, ErrCompile) {
		t.Fatalf("empty script body should fail, got %v", err)
	}
}

func TestExecuteIncrement(t *testing.T) {
	lib, _ := CompileLibrary(counterLibrarySource, "contracts::counter")
	artifact, _ := CompileScript(incrementScriptSource, lib)

	storage := []field.Word{field.ZeroWord()}
	out, err := Execute(artifact, storage)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !out[0].Equal(field.WordFromUints(0, 0, 0, 1)) {
		t.Fatalf("expected [0,0,0,1], got %v", out[0])
	}
	// Input storage is untouched.
	if !storage[0].Equal(field.ZeroWord()) {
		t.Fatal("execute must not mutate the input storage")
	}

	out, err = Execute(artifact, out)
	if err != nil {
		t.Fatalf("second execute failed: %v", err)
	}
	if !out[0].Equal(field.WordFromUints(0, 0, 0, 2)) {
		t.Fatalf("expected [0,0,0,2], got %v", out[0])
	}
}

func TestExecuteErrors(t *testing.T) {
	underflow, err := CompileScript("begin\nadd\nend")
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if _, err := Execute(underflow, nil); !errors.Is(err, ErrExecution) {
		t.Fatalf("expected ErrExecution on underflow, got %v", err)
	}

	badSlot, err := CompileScript("begin\nstorage.get.7\ndrop\ndrop\ndrop\ndrop\nend")
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if _, err := Execute(badSlot, []field.Word{field.ZeroWord()}); !errors.Is(err, ErrExecution) {
		t.Fatalf("expected ErrExecution on bad slot, got %v", err)
	}

	if _, err := Execute(&Artifact{}, nil); !errors.Is(err, ErrExecution) {
		t.Fatalf("expected ErrExecution on empty artifact, got %v", err)
	}
}
