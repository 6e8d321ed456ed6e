package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/filipefalcaos/falcon/internal/runtime"
)

func testRuntimeError(t *testing.T, source, message string) {
	t.Helper()

	errOut := runScriptError(t, source)
	if !strings.Contains(errOut, "RuntimeError: "+message) {
		t.Errorf("%q diagnostics missing %q:\n%s", source, message, errOut)
	}
	if !strings.Contains(errOut, "Stack trace (last call first):") {
		t.Errorf("%q diagnostics missing the stack trace header:\n%s", source, errOut)
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{`1 + "x";`, "Operands must be two numbers or two strings."},
		{`1 < "x";`, "Operands must be two numbers or two strings."},
		{"1 - true;", "Operands must be numbers."},
		{"-true;", "Operand must be a number."},
		{"null * 2;", "Operands must be numbers."},
		{"1 / 0;", "Cannot perform a division by zero."},
		{"1 % 0;", "Cannot perform a division by zero."},
		{"missing;", "Undefined variable 'missing'."},
		{"missing = 1;", "Undefined variable 'missing'."},
		{"var x = 1; x();", "Cannot call value of type 'number'."},
		{`"s"();`, "Cannot call value of type 'string'."},
		{"fn f(a) {} f();", "Expected 1 arguments but got 0."},
		{"fn f() {} f(1, 2);", "Expected 0 arguments but got 2."},
		{"class C {} C(1);", "Expected 0 arguments but got 1."},
		{"class C { fn init(a) {} } C();", "Expected 1 arguments but got 0."},
		{"var x = 1; x.field;", "Only instances have properties."},
		{"var x = 1; x.field = 2;", "Only instances have fields."},
		{"var x = 1; x.m();", "Only instances have methods."},
		{"class C {} C().nope();", "Undefined property 'nope'."},
		{"class C {} C().nope;", "Undefined property 'nope'."},
		{"var NotAClass = 1; class C < NotAClass {}", "Superclass must be a class."},
		{`[1, 2]["x"];`, "List index must be a number."},
		{"[1, 2][5];", "List index out of bounds."},
		{"[1, 2][-3];", "List index out of bounds."},
		{"[1, 2][0.5];", "List index out of bounds."},
		{"var l = [1, 2]; l[1.5] = 3;", "List index out of bounds."},
		{`"abc"[0.5];`, "String index out of bounds."},
		{"var m = {}; m[0];", "Map key must be a string."},
		{`"abc"[9];`, "String index out of bounds."},
		{`"abc"[0] = "z";`, "Strings are immutable."},
		{"true[0];", "Cannot subscript value of type 'bool'."},
		{"var m = {1: 2};", "Map keys must be strings."},
	}

	for _, tt := range tests {
		testRuntimeError(t, tt.input, tt.message)
	}
}

func TestNativeErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{"print(1, 2);", "'print' expected 1 arguments but got 2."},
		{"len(5);", "Value of type 'number' has no length."},
		{`num("abc");`, "Could not convert string to number."},
		{"num([]);", "Cannot convert value of type 'list' to number."},
		{`abs("x");`, "'abs' expected a number argument."},
		{"hasField(1, \"x\");", "'hasField' expected an instance argument."},
		{"class C {} getField(C(), 1);", "'getField' expected a string argument."},
		{`input("a", "b");`, "'input' expected at most 1 argument but got 2."},
	}

	for _, tt := range tests {
		testRuntimeError(t, tt.input, tt.message)
	}
}

func TestStackTraceFrames(t *testing.T) {
	errOut := runScriptError(t, `fn a() { b(); } fn b() { 1 + "x"; } a();`)

	lines := strings.Split(strings.TrimRight(errOut, "\n"), "\n")
	if len(lines) < 5 {
		t.Fatalf("expected at least 5 diagnostic lines, got %d:\n%s", len(lines), errOut)
	}
	if lines[0] != "RuntimeError: Operands must be two numbers or two strings." {
		t.Errorf("unexpected error line %q", lines[0])
	}
	if lines[1] != "Stack trace (last call first):" {
		t.Errorf("unexpected trace header %q", lines[1])
	}
	// Innermost frame first
	if !strings.Contains(lines[2], "in b()") {
		t.Errorf("first frame should be b(), got %q", lines[2])
	}
	if !strings.Contains(lines[3], "in a()") {
		t.Errorf("second frame should be a(), got %q", lines[3])
	}
	if !strings.Contains(lines[4], "in script") {
		t.Errorf("last frame should be the script, got %q", lines[4])
	}
}

func TestStackTraceLineNumbers(t *testing.T) {
	source := "fn f() {\n    1 + \"x\";\n}\nf();\n"
	errOut := runScriptError(t, source)
	if !strings.Contains(errOut, "[Line 2] in f()") {
		t.Errorf("trace should point at line 2:\n%s", errOut)
	}
	if !strings.Contains(errOut, "[Line 4] in script") {
		t.Errorf("trace should point at the call on line 4:\n%s", errOut)
	}
}

func TestLongStackTraceElision(t *testing.T) {
	// A deep recursion overflows the frame stack; the trace must elide
	// the middle frames.
	errOut := runScriptError(t, "fn f(n) { return f(n + 1); } f(0);")

	if !strings.Contains(errOut, "RuntimeError: Stack overflow.") {
		t.Fatalf("expected a stack overflow:\n%s", errOut)
	}
	if !strings.Contains(errOut, "more)") {
		t.Errorf("long trace should elide middle frames:\n%s", errOut)
	}

	frames := strings.Count(errOut, "[Line ")
	if frames != stackTraceMax {
		t.Errorf("elided trace printed %d frames, want %d", frames, stackTraceMax)
	}
}

func TestVMUsableAfterError(t *testing.T) {
	// The stack resets after a reported error so the same VM can keep
	// interpreting, which is what the REPL relies on.
	heap := runtime.NewHeap()
	machine := New(heap)
	defer machine.Free()

	var out, errOut bytes.Buffer
	machine.SetOutput(&out)
	machine.SetErrOut(&errOut)

	if err := machine.Interpret("undefinedThing;", "test"); !errors.Is(err, ErrRuntime) {
		t.Fatalf("expected ErrRuntime, got %v", err)
	}
	if !strings.Contains(errOut.String(), "Undefined variable 'undefinedThing'.") {
		t.Fatalf("unexpected diagnostics:\n%s", errOut.String())
	}

	if err := machine.Interpret("print(1 + 1);", "test"); err != nil {
		t.Fatalf("VM unusable after error: %v\n%s", err, errOut.String())
	}
	if out.String() != "2\n" {
		t.Errorf("second run printed %q, want \"2\\n\"", out.String())
	}
}
