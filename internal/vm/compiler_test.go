package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/filipefalcaos/falcon/internal/runtime"
)

// compileSource compiles without executing and returns the diagnostics,
// failing the test unless compilation ends in ErrCompile.
func compileError(t *testing.T, source string) string {
	t.Helper()

	heap := runtime.NewHeap()
	compiler := NewCompiler(heap, source, "test")

	var errOut bytes.Buffer
	compiler.SetErrOut(&errOut)

	_, err := compiler.Compile()
	if err == nil {
		t.Fatalf("expected a compile error for %q, got none", source)
	}
	if !errors.Is(err, ErrCompile) {
		t.Fatalf("expected ErrCompile for %q, got %v", source, err)
	}
	return errOut.String()
}

func testCompileError(t *testing.T, source, message string) {
	t.Helper()

	errOut := compileError(t, source)
	if !strings.Contains(errOut, "CompilerError: "+message) {
		t.Errorf("%q diagnostics missing %q:\n%s", source, message, errOut)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{"1 = 2;", "Invalid assignment target."},
		{"var a; var b; a + b = 1;", "Invalid assignment target."},
		{"{ var a = a; }", "Cannot read variable 'a' in its own initializer."},
		{"{ var a = 1; var a = 2; }", "Variable 'a' is already declared in this scope."},
		{"fn f(a, a) {}", "Variable 'a' is already declared in this scope."},
		{"this;", "Cannot use 'this' outside of a class."},
		{"fn f() { return this; }", "Cannot use 'this' outside of a class."},
		{"super.m();", "Cannot use 'super' outside of a class."},
		{"class C { fn m() { return super.m(); } }", "Cannot use 'super' in a class with no superclass."},
		{"return 1;", "Cannot return from top-level code."},
		{"class C { fn init() { return 1; } }", "Cannot return a value from an initializer."},
		{"class C { fn init() { return; } }", ""}, // bare return is allowed in init
		{"break;", "Cannot use 'break' outside of a loop."},
		{"next;", "Cannot use 'next' outside of a loop."},
		{"fn f() { break; }", "Cannot use 'break' outside of a loop."},
		{"class C < C {}", "A class cannot inherit from itself."},
		{"if true print(1);", "Expected '{' after condition."},
		{"while true print(1);", "Expected '{' after condition."},
		{"for var i = 0, i < 3 {}", "Expected ',' after loop condition."},
		{"var = 1;", "Expected variable name."},
		{"var a = 1", "Expected ';' after variable declaration."},
		{"print(1)", "Expected ';' after expression."},
		{"(1 + 2;", "Expected ')' after expression."},
		{"[1, 2;", "Expected ']' after list elements."},
		{`var m = {"a" 1};`, "Expected ':' after map key."},
		{"1 ? 2;", "Expected ':' in conditional expression."},
		{"+ 1;", "Expected expression."},
		{"switch 1 { when 2 print(1); }", "Expected '->' after case value."},
		{"class C { m() {} }", "Expected method declaration."},
	}

	for _, tt := range tests {
		if tt.message == "" {
			// Sanity cases that must compile
			heap := runtime.NewHeap()
			compiler := NewCompiler(heap, tt.input, "test")
			compiler.SetErrOut(&bytes.Buffer{})
			if _, err := compiler.Compile(); err != nil {
				t.Errorf("%q should compile, got %v", tt.input, err)
			}
			continue
		}
		testCompileError(t, tt.input, tt.message)
	}
}

func TestLexerErrorsSurfaceAsCompileErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{"!true;", "Unexpected character '!'."},
		{"@;", "Unexpected character '@'."},
		{`var s = "unterminated;`, "Unterminated string."},
		{`var s = "bad \q escape";`, "Invalid escape character in string."},
		{"var n = 1" + strings.Repeat("0", 400) + ";", "Number literal is too large."},
	}

	for _, tt := range tests {
		testCompileError(t, tt.input, tt.message)
	}
}

func TestCompileErrorFormat(t *testing.T) {
	errOut := compileError(t, "var x = 1;\nvar = 2;\n")

	lines := strings.Split(strings.TrimRight(errOut, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 diagnostic lines, got %d:\n%s", len(lines), errOut)
	}
	if !strings.HasPrefix(lines[0], "test:2:") {
		t.Errorf("diagnostic should name file and line, got %q", lines[0])
	}
	if !strings.Contains(lines[0], "=> CompilerError: Expected variable name.") {
		t.Errorf("unexpected diagnostic %q", lines[0])
	}
	if lines[1] != "var = 2;" {
		t.Errorf("diagnostic should echo the source line, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "^") {
		t.Errorf("diagnostic should carry a caret, got %q", lines[2])
	}
}

func TestPanicModeRecovery(t *testing.T) {
	// Independent statements report independent errors
	errOut := compileError(t, "var = 1;\nbreak;\n")

	if !strings.Contains(errOut, "Expected variable name.") {
		t.Errorf("first error missing:\n%s", errOut)
	}
	if !strings.Contains(errOut, "Cannot use 'break' outside of a loop.") {
		t.Errorf("second error missing after recovery:\n%s", errOut)
	}
}

func TestCompileSucceeds(t *testing.T) {
	sources := []string{
		"",
		"# just a comment",
		"var a = 1, b = 2; print(a + b);",
		"fn f(a, b, c) { return a; } f(1, 2, 3);",
		"class A {} class B < A { fn m() { return super.m; } }",
		"for var i = 0, i < 3, i = i + 1 { if i == 1 { next; } break; }",
		`switch 1 { when 1 -> print(1); else -> print(2); }`,
		"var l = [1, [2, 3], {\"k\": 4}];",
		"fn outer() { var x = 1; fn inner() { return x; } return inner; }",
	}

	for _, source := range sources {
		heap := runtime.NewHeap()
		compiler := NewCompiler(heap, source, "test")
		compiler.SetErrOut(&bytes.Buffer{})
		fn, err := compiler.Compile()
		if err != nil {
			t.Errorf("%q failed to compile: %v", source, err)
			continue
		}
		if fn == nil || fn.Name != nil {
			t.Errorf("%q should yield the unnamed script function", source)
		}
	}
}
