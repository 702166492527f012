package monitor

import (
	"context"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/opencode-ai/sessionwatch/pkg/types"
)

// ShellCommand is a parsed shell command with its arguments.
type ShellCommand struct {
	Name string
	Args []string
}

// parseShell parses a shell snippet into its commands. Variable expansions
// and command substitutions become placeholders.
func parseShell(snippet string) ([]ShellCommand, error) {
	parser := syntax.NewParser(
		syntax.Variant(syntax.LangBash),
		syntax.KeepComments(false),
	)

	file, err := parser.Parse(strings.NewReader(snippet), "")
	if err != nil {
		return nil, fmt.Errorf("failed to parse snippet: %w", err)
	}

	var commands []ShellCommand
	syntax.Walk(file, func(node syntax.Node) bool {
		if call, ok := node.(*syntax.CallExpr); ok {
			if cmd := extractShellCommand(call); cmd != nil {
				commands = append(commands, *cmd)
			}
		}
		return true
	})
	return commands, nil
}

func extractShellCommand(call *syntax.CallExpr) *ShellCommand {
	if len(call.Args) == 0 {
		return nil
	}

	cmd := &ShellCommand{Name: shellWordToString(call.Args[0])}
	if cmd.Name == "" {
		return nil
	}
	for _, arg := range call.Args[1:] {
		cmd.Args = append(cmd.Args, shellWordToString(arg))
	}
	return cmd
}

func shellWordToString(word *syntax.Word) string {
	var sb strings.Builder
	for _, part := range word.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, qp := range p.Parts {
				if lit, ok := qp.(*syntax.Lit); ok {
					sb.WriteString(lit.Value)
				}
			}
		case *syntax.ParamExp:
			sb.WriteString("$" + p.Param.Value)
		case *syntax.CmdSubst:
			sb.WriteString("$()")
		}
	}
	return sb.String()
}

// isDestructive reports whether a parsed command is destructive and why.
func isDestructive(cmd ShellCommand) (bool, string) {
	switch cmd.Name {
	case "rm":
		var recursive, force bool
		for _, arg := range cmd.Args {
			if !strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "--") {
				switch arg {
				case "--recursive":
					recursive = true
				case "--force":
					force = true
				}
				continue
			}
			flags := arg[1:]
			recursive = recursive || strings.ContainsAny(flags, "rR")
			force = force || strings.Contains(flags, "f")
		}
		if recursive && force {
			return true, "rm with recursive and force flags"
		}
	case "dd":
		for _, arg := range cmd.Args {
			if strings.HasPrefix(arg, "of=/dev/") {
				return true, "dd writing to a device"
			}
		}
	case "shred":
		return true, "shred"
	}
	if strings.HasPrefix(cmd.Name, "mkfs") {
		return true, "filesystem format"
	}
	return false, ""
}

// CommandDetector parses shell snippets embedded in model text (fenced code
// blocks and "$ "-prefixed lines) and flags destructive commands. Unlike
// plain substring matching it understands flag grouping, so "rm -fr" or
// "rm -r -f" still match while prose mentioning "rm" does not.
type CommandDetector struct {
	// Budget, when set, is consumed before a message is produced.
	Budget *Budget
}

// NewCommandDetector creates a shell command detector.
func NewCommandDetector(budget *Budget) *CommandDetector {
	return &CommandDetector{Budget: budget}
}

func (d *CommandDetector) Name() string { return "command" }

func (d *CommandDetector) Classify(ctx context.Context, events []types.Event, sess *types.Session) (Outcome, error) {
	base := len(sess.Events) - len(events)

	for i, ev := range events {
		if ev.Role != types.RoleModel {
			continue
		}
		for _, part := range ev.Parts {
			tp, ok := part.(*types.TextPart)
			if !ok {
				continue
			}
			for _, snippet := range extractSnippets(tp.Text) {
				commands, err := parseShell(snippet)
				if err != nil {
					// Not every snippet is valid shell; skip it.
					continue
				}
				for _, cmd := range commands {
					destructive, reason := isDestructive(cmd)
					if !destructive {
						continue
					}
					out := Outcome{
						Matched:    true,
						EventIndex: base + i,
						Trigger:    reason,
						Message: fmt.Sprintf("%s The script contains a destructive command (%s).",
							DefaultWarning, reason),
					}
					if d.Budget != nil && !d.Budget.TryConsume() {
						out.Message = ""
					}
					return out, nil
				}
			}
		}
	}
	return Outcome{}, nil
}

// extractSnippets pulls candidate shell snippets out of free-form model text:
// fenced code blocks, "$ "-prefixed lines, and as a fallback the whole text.
func extractSnippets(text string) []string {
	var snippets []string

	lines := strings.Split(text, "\n")
	var fence []string
	inFence := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inFence {
				snippets = append(snippets, strings.Join(fence, "\n"))
				fence = nil
			}
			inFence = !inFence
			continue
		}
		if inFence {
			fence = append(fence, line)
			continue
		}
		if strings.HasPrefix(trimmed, "$ ") {
			snippets = append(snippets, strings.TrimPrefix(trimmed, "$ "))
		}
	}

	if len(snippets) == 0 {
		snippets = append(snippets, text)
	}
	return snippets
}
