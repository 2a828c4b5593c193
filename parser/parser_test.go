package parser

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/podhmo/coral/ast"
	"github.com/podhmo/coral/lexer"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := New(lexer.New(input))
	program := p.ParseProgram()
	checkParserErrors(t, p)
	return program
}

func checkParserErrors(t *testing.T, p *Parser) {
	t.Helper()
	errors := p.Errors()
	if len(errors) == 0 {
		return
	}
	t.Errorf("parser has %d errors", len(errors))
	for _, msg := range errors {
		t.Errorf("parser error: %q", msg)
	}
	t.FailNow()
}

func TestRendering(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"let x = 5;", "let x =  5;"},
		{"return 10;", "return 10;"},
		{"5 + 10;", "( 5 + 10 )"},
		{"5 + 10", "( 5 + 10 )"},
		{"-5;", "(-5)"},
		{"true;", "true"},
		{"(5 + 2) * 3;", "( ( 5 + 2 ) * 3 )"},
		{"add(1, 2 * 3, 4 + 5);", "add(1, ( 2 * 3 ), ( 4 + 5 ))"},
		{"fn(x, y) { x + y; }", "fn(x, y) { ( x + y ) }"},
		{"fn() { }", "fn() { }"},
		{`"hello world"`, `"hello world"`},
		{"[1, 2 * 2, 3 + 3]", "[1, ( 2 * 2 ), ( 3 + 3 )]"},
		{`{"one": 1, "two": 2}`, `{"one": 1, "two": 2}`},
		{"{}", "{}"},
		{"if (x < y) { x }", "if (( x < y )) { x }"},
		{"if (x < y) { x } else { y }", "if (( x < y )) { x } else { y }"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			program := parse(t, tt.input)
			if got := strings.TrimSpace(program.String()); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOperatorPrecedenceParsing(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"-a * b", "( (-a) * b )"},
		{"!-a", "(!(-a))"},
		{"a + b + c", "( ( a + b ) + c )"},
		{"a + b - c", "( ( a + b ) - c )"},
		{"a * b * c", "( ( a * b ) * c )"},
		{"a * b / c", "( ( a * b ) / c )"},
		{"a + b / c", "( a + ( b / c ) )"},
		{"a + b * c + d / e - f", "( ( ( a + ( b * c ) ) + ( d / e ) ) - f )"},
		{"5 > 4 == 3 < 4", "( ( 5 > 4 ) == ( 3 < 4 ) )"},
		{"5 < 4 != 3 > 4", "( ( 5 < 4 ) != ( 3 > 4 ) )"},
		{"3 + 4 * 5 == 3 * 1 + 4 * 5", "( ( 3 + ( 4 * 5 ) ) == ( ( 3 * 1 ) + ( 4 * 5 ) ) )"},
		{"3 > 5 == false", "( ( 3 > 5 ) == false )"},
		{"1 + (2 + 3) + 4", "( ( 1 + ( 2 + 3 ) ) + 4 )"},
		{"-(5 + 5)", "(-( 5 + 5 ))"},
		{"!(true == true)", "(!( true == true ))"},
		{"a + add(b * c) + d", "( ( a + add(( b * c )) ) + d )"},
		{"add(a, b, 1, 2 * 3, 4 + 5, add(6, 7 * 8))", "add(a, b, 1, ( 2 * 3 ), ( 4 + 5 ), add(6, ( 7 * 8 )))"},
		{"a * [1, 2, 3, 4][b * c] * d", "( ( a * ([1, 2, 3, 4][( b * c )]) ) * d )"},
		{"add(a * b[2], b[1], 2 * [1, 2][1])", "add(( a * (b[2]) ), (b[1]), ( 2 * ([1, 2][1]) ))"},
		{"arr.push(1 + 2).length()", "arr.push(( 1 + 2 )).length()"},
		{"-arr.length()", "(-arr.length())"},
		{"a + h.keys[0]", "( a + h.keys[0] )"},
		{"x.reverse()[0]", "(x.reverse()[0])"},
		{"s.length", "s.length"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			program := parse(t, tt.input)
			if got := strings.TrimSpace(program.String()); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLetStatements(t *testing.T) {
	tests := []struct {
		input     string
		wantName  string
		wantValue string
	}{
		{"let x = 5;", "x", "5"},
		{"let y = true;", "y", "true"},
		{"let foobar = y", "foobar", "y"},
	}

	for _, tt := range tests {
		program := parse(t, tt.input)
		if len(program.Statements) != 1 {
			t.Fatalf("program.Statements does not contain 1 statement. got=%d", len(program.Statements))
		}
		stmt, ok := program.Statements[0].(*ast.LetStatement)
		if !ok {
			t.Fatalf("statement is not *ast.LetStatement. got=%T", program.Statements[0])
		}
		if stmt.Name.Value != tt.wantName {
			t.Errorf("stmt.Name.Value = %q, want %q", stmt.Name.Value, tt.wantName)
		}
		if got := stmt.Value.String(); got != tt.wantValue {
			t.Errorf("stmt.Value = %q, want %q", got, tt.wantValue)
		}
	}
}

func TestIfExpression_NoElse(t *testing.T) {
	program := parse(t, "if (x < y) { x }")
	stmt := program.Statements[0].(*ast.ExpressionStatement)
	exp, ok := stmt.Expression.(*ast.IfExpression)
	if !ok {
		t.Fatalf("expression is not *ast.IfExpression. got=%T", stmt.Expression)
	}
	if exp.Alternative != nil {
		t.Errorf("exp.Alternative was not nil. got=%+v", exp.Alternative)
	}
	if len(exp.Consequence.Statements) != 1 {
		t.Errorf("consequence is not 1 statement. got=%d", len(exp.Consequence.Statements))
	}
}

func TestFunctionParameterParsing(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"fn() {};", []string{}},
		{"fn(x) {};", []string{"x"}},
		{"fn(x, y, z) {};", []string{"x", "y", "z"}},
	}

	for _, tt := range tests {
		program := parse(t, tt.input)
		stmt := program.Statements[0].(*ast.ExpressionStatement)
		fn := stmt.Expression.(*ast.FunctionLiteral)
		got := []string{}
		for _, p := range fn.Parameters {
			got = append(got, p.Value)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("parameters mismatch for %q (-want +got):\n%s", tt.input, diff)
		}
	}
}

func TestChainExpressionParsing(t *testing.T) {
	program := parse(t, "a.b(1).c()")
	stmt := program.Statements[0].(*ast.ExpressionStatement)

	outer, ok := stmt.Expression.(*ast.ChainExpression)
	if !ok {
		t.Fatalf("expression is not *ast.ChainExpression. got=%T", stmt.Expression)
	}
	if outer.MethodName() != "c" {
		t.Errorf("outer method = %q, want %q", outer.MethodName(), "c")
	}
	inner, ok := outer.Receiver.(*ast.ChainExpression)
	if !ok {
		t.Fatalf("receiver is not *ast.ChainExpression. got=%T", outer.Receiver)
	}
	if inner.MethodName() != "b" {
		t.Errorf("inner method = %q, want %q", inner.MethodName(), "b")
	}
	call, ok := inner.Member.(*ast.CallExpression)
	if !ok || len(call.Arguments) != 1 {
		t.Fatalf("inner member is not a call with one argument. got=%T", inner.Member)
	}
}

func TestHashLiteralParsing(t *testing.T) {
	program := parse(t, `{"one": 0 + 1, true: 2, 3: "three"}`)
	stmt := program.Statements[0].(*ast.ExpressionStatement)
	hash, ok := stmt.Expression.(*ast.HashLiteral)
	if !ok {
		t.Fatalf("expression is not *ast.HashLiteral. got=%T", stmt.Expression)
	}
	var got [][2]string
	for _, pair := range hash.Pairs {
		got = append(got, [2]string{pair.Key.String(), pair.Value.String()})
	}
	want := [][2]string{
		{`"one"`, "( 0 + 1 )"},
		{"true", "2"},
		{"3", `"three"`},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pairs mismatch (-want +got):\n%s", diff)
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{
			input: "let = 5;",
			want: []string{
				"1:5: expected next token to be IDENT, got = instead",
				"1:5: no prefix parse function for = found",
			},
		},
		{
			input: "let x 5;",
			want:  []string{"1:7: expected next token to be =, got INT instead"},
		},
		{
			input: "let 838383;",
			want:  []string{"1:5: expected next token to be IDENT, got INT instead"},
		},
		{
			input: "99999999999999999999",
			want:  []string{`1:1: could not parse "99999999999999999999" as integer`},
		},
		{
			input: "let x = @;",
			want: []string{
				`1:9: illegal token "@"`,
				"1:10: no prefix parse function for ; found",
			},
		},
		{
			input: "(1 + 2",
			want:  []string{"1:7: expected next token to be ), got EOF instead"},
		},
		{
			input: "if (x) { 1 } else 2",
			want: []string{
				"1:19: expected next token to be {, got INT instead",
			},
		},
		{
			input: "fn(1) {}",
			want: []string{
				"1:4: expected next token to be IDENT, got INT instead",
				"1:5: no prefix parse function for ) found",
			},
		},
		{
			input: "fn(x) { x",
			want:  []string{"1:10: expected next token to be }, got EOF instead"},
		},
		{
			input: "a.1",
			want: []string{
				"1:3: expected next token to be IDENT, got INT instead",
			},
		},
		{
			input: `{"a" 1}`,
			want: []string{
				"1:6: expected next token to be :, got INT instead",
				"1:7: no prefix parse function for } found",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p := New(lexer.New(tt.input))
			p.ParseProgram()
			if diff := cmp.Diff(tt.want, p.Errors()); diff != "" {
				t.Errorf("Errors() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParserRecovery(t *testing.T) {
	p := New(lexer.New("let = 1; let y = 2;"))
	program := p.ParseProgram()
	if len(p.Errors()) == 0 {
		t.Fatalf("expected errors")
	}
	last, ok := program.Statements[len(program.Statements)-1].(*ast.LetStatement)
	if !ok {
		t.Fatalf("last statement is not *ast.LetStatement. got=%T", program.Statements[len(program.Statements)-1])
	}
	if last.Name.Value != "y" {
		t.Errorf("last.Name.Value = %q, want %q", last.Name.Value, "y")
	}
}

func TestFailedBlockDropsEnclosingStatement(t *testing.T) {
	p := New(lexer.New("let f = fn(x) { let = 1; x }; f"))
	program := p.ParseProgram()
	if len(p.Errors()) == 0 {
		t.Fatalf("expected errors")
	}
	for _, stmt := range program.Statements {
		if _, ok := stmt.(*ast.LetStatement); ok {
			t.Errorf("let statement with a broken function body was kept: %s", stmt)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"let add = fn(a, b) { return a + b; }; add(1, 2 * 3)",
		"let x = 1; -x; [1, 2][0]",
		`let h = {"a": 1, 2: [3]}; h["a"]; h.keys()[0]`,
		"if (1 < 2) { 10 } else { 20 }; !true",
		"let f = fn(x) { fn(y) { x + y } }; f(1)(2)",
		"let a = [3, 1, 2]; a.push(4).reverse(); a.map(fn(x) { x * 2 }).reduce(fn(acc, x) { acc + x }, 0)",
		`"abc".reverse().length()`,
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			first := parse(t, input).String()
			second := parse(t, first).String()
			if first != second {
				t.Errorf("rendering is not stable:\nfirst:  %q\nsecond: %q", first, second)
			}
		})
	}
}
