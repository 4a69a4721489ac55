// cmd/hvm is the CLI surface: run, eval, test, bench, parse, examples.
// Exit code 0 on success, non-zero on parse or runtime error; no
// environment variables are consulted.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"hvm/internal/hvm"
	"hvm/internal/term"
)

const version = "0.1.0"

var buildDate = time.Now().Format("2006-01-02")

var commandAliases = map[string]string{
	"r": "run",
	"e": "eval",
	"t": "test",
	"b": "bench",
	"p": "parse",
	"x": "examples",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		os.Exit(1)
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}
	rest := args[1:]

	switch cmd {
	case "help", "--help", "-h":
		showUsage()
	case "version", "--version", "-v":
		fmt.Printf("hvm %s (built %s)\n", version, buildDate)
	case "run":
		runFile(rest)
	case "eval":
		evalExpr(rest)
	case "test":
		runTests(rest)
	case "bench":
		runBench(rest)
	case "parse":
		parseFile(rest)
	case "examples":
		showExamples()
	default:
		fmt.Fprintf(os.Stderr, "hvm: unknown command %q\n", cmd)
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println("hvm - Higher-Order Virtual Machine")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  hvm run <file>      Evaluate a program file to normal form  (alias: r)")
	fmt.Println("  hvm eval <expr>     Evaluate an expression on the command line (alias: e)")
	fmt.Println("  hvm test <files...> Evaluate each file, report pass/fail     (alias: t)")
	fmt.Println("  hvm bench <expr>    Repeat-evaluate an expression, report throughput (alias: b)")
	fmt.Println("  hvm parse <file>    Parse without reducing, print the term shape (alias: p)")
	fmt.Println("  hvm examples        Print sample programs in surface syntax  (alias: x)")
}

func newState() *hvm.State {
	return hvm.Init(hvm.DefaultConfig())
}

func runFile(args []string) {
	if len(args) < 1 {
		log.Fatal("usage: hvm run <file>")
	}
	source, err := os.ReadFile(args[0])
	if err != nil {
		log.Fatalf("could not read file: %v", err)
	}
	evaluate(string(source))
}

func evalExpr(args []string) {
	if len(args) < 1 {
		log.Fatal("usage: hvm eval <expr>")
	}
	evaluate(strings.Join(args, " "))
}

func evaluate(source string) {
	s := newState()
	result, err := s.Eval(source, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Println(formatTerm(result))
}

// runTests evaluates every given file and reports how many ran without
// error; there is no ground-truth expectation format, so this is a smoke
// runner rather than an assertion framework.
func runTests(args []string) {
	if len(args) == 0 {
		log.Fatal("usage: hvm test <files...>")
	}
	passed, failed := 0, 0
	for _, path := range args {
		source, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("FAIL %s: %v\n", path, err)
			failed++
			continue
		}
		s := newState()
		if _, err := s.Eval(string(source), nil); err != nil {
			fmt.Printf("FAIL %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Printf("PASS %s\n", path)
		passed++
	}
	fmt.Printf("\n%d passed, %d failed\n", passed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// runBench repeat-evaluates the same expression against fresh State
// instances, reporting interaction throughput.
func runBench(args []string) {
	if len(args) < 1 {
		log.Fatal("usage: hvm bench <expr>")
	}
	source := strings.Join(args, " ")
	const iterations = 1000

	start := time.Now()
	var totalInteractions uint64
	for i := 0; i < iterations; i++ {
		s := newState()
		if _, err := s.Eval(source, nil); err != nil {
			log.Fatalf("bench expression failed: %v", err)
		}
		totalInteractions += s.Stats().Interactions
	}
	elapsed := time.Since(start)

	fmt.Printf("%s iterations in %s\n", humanize.Comma(int64(iterations)), elapsed)
	fmt.Printf("%s total interactions\n", humanize.Comma(int64(totalInteractions)))
	if elapsed > 0 {
		perSec := float64(totalInteractions) / elapsed.Seconds()
		fmt.Printf("%s interactions/sec\n", humanize.Comma(int64(perSec)))
	}
}

func parseFile(args []string) {
	if len(args) < 1 {
		log.Fatal("usage: hvm parse <file>")
	}
	source, err := os.ReadFile(args[0])
	if err != nil {
		log.Fatalf("could not read file: %v", err)
	}
	s := newState()
	root, err := s.Parse(string(source), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Println(formatTerm(root))
}

func showExamples() {
	examples := []struct{ name, source string }{
		{"Arithmetic", "(add #21 #21)"},
		{"Beta reduction", `(\x.x #7)`},
		{"Auto-dup over a doubled parameter", `(\x.(add x x) #9)`},
		{"Switch on a number", `(?#5 #0 \n.n)`},
		{"Structural equality", `(=== #3 #3)`},
		{"Superposition and duplication", `!&0{a,b}=&0{#3,#4};(add a b)`},
	}
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for _, ex := range examples {
		fmt.Fprintf(w, "%s:\n  %s\n\n", ex.name, ex.source)
	}
}

// formatTerm renders a term's tag and value for CLI output; it does not
// attempt to pretty-print heap structure, since run/eval/parse normalize
// (or merely build) a single root term, not a full graph dump.
func formatTerm(t term.Term) string {
	switch t.Tag() {
	case term.Num:
		return fmt.Sprintf("#%d", t.Val())
	case term.Era:
		return "*"
	default:
		return fmt.Sprintf("%s(ext=%d, val=%d)", tagName(t.Tag()), t.Ext(), t.Val())
	}
}

func tagName(tag term.Tag) string {
	names := map[term.Tag]string{
		term.Var: "VAR", term.Lam: "LAM", term.App: "APP", term.Dup: "DUP",
		term.Co0: "CO0", term.Co1: "CO1", term.Sup: "SUP", term.Era: "ERA",
		term.Num: "NUM", term.Mat: "MAT", term.Swi: "SWI", term.Ref: "REF",
		term.Alo: "ALO", term.Use: "USE", term.Eql: "EQL", term.Ann: "ANN",
	}
	if n, ok := names[tag]; ok {
		return n
	}
	if term.IsCtor(tag) {
		return fmt.Sprintf("C%02d", term.CtorArity(tag))
	}
	if term.IsPrim(tag) {
		return fmt.Sprintf("P%02d", tag-term.P00)
	}
	return fmt.Sprintf("TAG(%d)", tag)
}
