package compiler_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/salmon-lang/salmon/lang/compiler"
	"github.com/salmon-lang/salmon/lang/machine"
)

// run compiles src and executes it to completion, returning stdout. Test
// failures surface as a non-nil error from Compile or a non-OK Interpret
// result, both asserted immediately so later output assertions run
// against a program that actually finished.
func run(t *testing.T, src string) string {
	t.Helper()
	var out, errOut bytes.Buffer
	vm := machine.New(machine.WithStdio(&out, &errOut))

	fn, err := compiler.Compile(vm.Heap(), "test.salmon", src)
	require.NoError(t, err)

	res := vm.Interpret(fn, "test.salmon")
	require.Equal(t, machine.InterpretOK, res, "stderr: %s", errOut.String())
	return out.String()
}

func TestArithmeticPrecedence(t *testing.T) {
	require.Equal(t, "14\n", run(t, `_print(2 + 3 * 4);`))
}

func TestVarDeclarationAndAssignment(t *testing.T) {
	out := run(t, `
		var a := 1;
		a := a + 41;
		_print(a);
	`)
	require.Equal(t, "42\n", out)
}

func TestIfElseAndZeroIsFalsey(t *testing.T) {
	out := run(t, `
		if (0) {
			_print("truthy");
		} else {
			_print("falsey");
		}
	`)
	require.Equal(t, "falsey\n", out)
}

func TestWhileLoop(t *testing.T) {
	out := run(t, `
		var i := 0;
		var sum := 0;
		while (i < 5) {
			sum := sum + i;
			i := i + 1;
		}
		_print(sum);
	`)
	require.Equal(t, "10\n", out)
}

func TestForLoop(t *testing.T) {
	out := run(t, `
		var sum := 0;
		for (var i := 0; i < 5; i := i + 1) {
			sum := sum + i;
		}
		_print(sum);
	`)
	require.Equal(t, "10\n", out)
}

func TestFunctionCallAndReturn(t *testing.T) {
	out := run(t, `
		function add(a, b) {
			return a + b;
		}
		_print(add(3, 4));
	`)
	require.Equal(t, "7\n", out)
}

func TestClosureCapturesIndependently(t *testing.T) {
	out := run(t, `
		function makeCounter() {
			var count := 0;
			function increment() {
				count := count + 1;
				return count;
			}
			return increment;
		}

		var c1 := makeCounter();
		var c2 := makeCounter();
		_print(c1());
		_print(c1());
		_print(c2());
	`)
	require.Equal(t, "1\n2\n1\n", out)
}

func TestLambdaExpression(t *testing.T) {
	out := run(t, `
		var double := | x | => { return x * 2; };
		_print(double(21));
	`)
	require.Equal(t, "42\n", out)
}

func TestClassInstanceAndMethod(t *testing.T) {
	out := run(t, `
		class Greeter {
			init(name) {
				this.name := name;
			}
			greet() {
				_print("hello, " + this.name);
			}
		}
		var g := Greeter("salmon");
		g.greet();
	`)
	require.Equal(t, "hello, salmon\n", out)
}

func TestInheritanceOverrideAndSuper(t *testing.T) {
	out := run(t, `
		class Animal {
			speak() {
				_print("...");
			}
		}
		class Dog < Animal {
			speak() {
				super.speak();
				_print("woof");
			}
		}
		Dog().speak();
	`)
	require.Equal(t, "...\nwoof\n", out)
}

func TestSuperCallInvokesSuperclassInitializer(t *testing.T) {
	out := run(t, `
		class A {
			init(x) {
				this.x := x;
			}
		}
		class B < A {
			init(x) {
				super(x+1);
			}
		}
		_print(B(10).x);
	`)
	require.Equal(t, "11\n", out)
}

func TestStringLiteralHasNoSurroundingQuotes(t *testing.T) {
	out := run(t, `_print("hi");`)
	require.Equal(t, "hi\n", out)
}

func TestTernaryWithAndWithoutElse(t *testing.T) {
	out := run(t, `
		_print(1 < 2 ? "yes" : "no");
		_print(1 > 2 ? "yes");
	`)
	require.Equal(t, "yes\nnil\n", out)
}

func TestLogicalOrAndAndShortCircuit(t *testing.T) {
	out := run(t, `
		_print(false | "fallback");
		_print("first" & "second");
	`)
	require.Equal(t, "fallback\nsecond\n", out)
}

func TestArrayLiteralAndIndexing(t *testing.T) {
	out := run(t, `
		var arr := [1, 2, 3];
		_print(arr[1]);
	`)
	require.Equal(t, "2\n", out)
}

func TestArrayFunctionalSetElementWriteback(t *testing.T) {
	out := run(t, `
		var arr := [1, 2, 3];
		arr[0] := 99;
		_print(arr[0]);
	`)
	require.Equal(t, "99\n", out)
}

func TestCompoundAssignment(t *testing.T) {
	out := run(t, `
		var a := 10;
		a += 5;
		_print(a);
	`)
	require.Equal(t, "15\n", out)
}

func TestPrivateMethodIsCallableFromInstance(t *testing.T) {
	out := run(t, `
		class Account {
			init(balance) {
				this.#balance := balance;
			}
			private deposit(amount) {
				this.#balance := this.#balance + amount;
			}
			add(amount) {
				this.deposit(amount);
				_print(this.#balance);
			}
		}
		Account(10).add(5);
	`)
	require.Equal(t, "15\n", out)
}

func TestCompileErrorReportsFileAndLine(t *testing.T) {
	_, err := compiler.Compile(machine.NewHeap(0, false, false, nil), "broken.salmon", "var;")
	require.Error(t, err)
	require.Contains(t, err.Error(), "broken.salmon")
	require.Contains(t, err.Error(), "line 1")
}

func TestPathStatementRetargetsFile(t *testing.T) {
	out := run(t, "____path____ ~/lib.salmon\n_print(1);\n")
	require.Equal(t, "1\n", out)
}

func TestNativeArityMismatchIsRuntimeErrorNotPanic(t *testing.T) {
	var out, errOut bytes.Buffer
	vm := machine.New(machine.WithStdio(&out, &errOut))

	fn, err := compiler.Compile(vm.Heap(), "test.salmon", `_length();`)
	require.NoError(t, err)

	require.NotPanics(t, func() {
		res := vm.Interpret(fn, "test.salmon")
		require.Equal(t, machine.InterpretRuntimeError, res)
	})
	require.Contains(t, errOut.String(), "Expected 1 arguments but got 0")
}
