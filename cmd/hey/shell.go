package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/wudi/heyrt/classruntime"
	"github.com/wudi/heyrt/runtime"
	"github.com/wudi/heyrt/symbol"
	"github.com/wudi/heyrt/values"
)

// shell is a minimal interactive session over a Runtime: since the
// bytecode evaluator and its parser are out of scope for this core,
// the shell speaks a tiny line command language instead of a real
// script syntax, built directly against classruntime/runtime the way
// an embedding host would drive the library from Go.
//
// Commands:
//
//	:class Name [ivar ...]       define a class with no superclass
//	:new Name                    allocate an instance into a $N slot
//	:send $N selector [arg ...]  send selector to workspace slot $N
//	:vars                        list workspace bindings
//	:quit                        leave the shell
type shell struct {
	rt   *runtime.Runtime
	rl   *readline.Instance
	vars []values.Value
}

func newShell(rt *runtime.Runtime) (*shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "hey> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return nil, fmt.Errorf("starting shell: %w", err)
	}
	return &shell{rt: rt, rl: rl}, nil
}

func (s *shell) Close() error { return s.rl.Close() }

// run drives the read-eval-print loop until EOF, an interrupt, or
// :quit.
func (s *shell) run() error {
	fmt.Printf("heyrt session %s — type :quit to leave\n", s.rt.ID())

	for {
		line, err := s.rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case ":quit", ":exit":
			return nil
		case ":vars":
			s.printVars()
		case ":class":
			s.defineClass(fields[1:])
		case ":new":
			s.instantiate(fields[1:])
		case ":send":
			s.send(fields[1:])
		default:
			fmt.Printf("unrecognised command %q (try :class, :new, :send, :vars, :quit)\n", fields[0])
		}
	}
}

func (s *shell) printVars() {
	for i, v := range s.vars {
		fmt.Printf("$%d = %s\n", i, v.String())
	}
}

func (s *shell) defineClass(args []string) {
	if len(args) < 1 {
		fmt.Println(":class needs a name")
		return
	}
	cls, err := s.rt.Context().Classes().Subclass(args[0], nil, args[1:])
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("defined %s (class id %d) with ivars %v\n", cls.Name, cls.ID, cls.InstanceVarNames)
}

func (s *shell) instantiate(args []string) {
	if len(args) != 1 {
		fmt.Println(":new needs exactly a class name")
		return
	}
	cls, ok := s.rt.Context().Classes().Lookup(args[0])
	if !ok {
		fmt.Printf("no such class %q\n", args[0])
		return
	}
	n := s.rt.Context().Interner()
	result := s.rt.Send(classruntime.ClassValue(cls.ID), n.Unary("new"), nil)
	s.bind(result)
}

func (s *shell) send(args []string) {
	if len(args) < 2 {
		fmt.Println(":send needs a receiver and a selector")
		return
	}
	recv, ok := s.parseLiteral(args[0])
	if !ok {
		fmt.Printf("cannot parse receiver %q\n", args[0])
		return
	}

	argTokens := args[2:]
	argVals := make([]values.Value, 0, len(argTokens))
	for _, tok := range argTokens {
		v, ok := s.parseLiteral(tok)
		if !ok {
			fmt.Printf("cannot parse argument %q\n", tok)
			return
		}
		argVals = append(argVals, v)
	}

	n := s.rt.Context().Interner()
	var sig symbol.SignatureID
	if len(argTokens) == 0 {
		sig = n.Unary(args[1])
	} else {
		sig = n.Keyword(keywordParts(args[1])...)
	}

	result := s.rt.Send(recv, sig, argVals)
	s.bind(result)
}

func (s *shell) bind(v values.Value) {
	idx := len(s.vars)
	s.vars = append(s.vars, v)
	fmt.Printf("$%d = %s\n", idx, v.String())
}

// keywordParts splits a selector token like "at:put:" typed as one
// word into the per-part slice symbol.Interner.Keyword expects
// ("at:", "put:"), so a multi-keyword send still only costs the user
// one token on the command line.
func keywordParts(sel string) []string {
	segs := strings.Split(sel, ":")
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if s == "" {
			continue
		}
		parts = append(parts, s+":")
	}
	return parts
}

func (s *shell) parseLiteral(tok string) (values.Value, bool) {
	switch {
	case tok == "nil":
		return values.Nil, true
	case tok == "true":
		return values.NewBool(true), true
	case tok == "false":
		return values.NewBool(false), true
	case strings.HasPrefix(tok, "$"):
		idx, err := strconv.Atoi(tok[1:])
		if err != nil || idx < 0 || idx >= len(s.vars) {
			return values.Nil, false
		}
		return s.vars[idx], true
	case strings.HasPrefix(tok, "#"):
		return values.NewSymbol(s.rt.Context().Interner().Symbol(tok[1:])), true
	case strings.HasPrefix(tok, "'") && strings.HasSuffix(tok, "'") && len(tok) >= 2:
		return values.NewString(tok[1 : len(tok)-1]), true
	default:
		if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
			return values.NewInt(i), true
		}
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			return values.NewFloat(f), true
		}
		return values.Nil, false
	}
}
