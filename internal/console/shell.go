// Package console implements the hbnb line-oriented command shell.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"

	"hbnb/internal/core"
	"hbnb/pkg/domain"
)

// Prompt is printed before each line in interactive mode.
const Prompt = "(hbnb) "

// User-facing messages.
const (
	msgClassMissing  = "** class name missing **"
	msgClassUnknown  = "** class doesn't exist **"
	msgIDMissing     = "** instance id missing **"
	msgNotFound      = "** no instance found **"
	msgAttrMissing   = "** attribute name missing **"
	msgValueMissing  = "** value missing **"
	msgAttrReadOnly  = "** attribute can't be updated **"
	msgValueMismatch = "** value type mismatch **"
	msgUnknownSyntax = "*** Unknown syntax: "
	msgNoHelp        = "*** No help on "
	msgSaveFailedFmt = "** save failed: %v **"
)

type command struct {
	usage string
	help  string
	run   func(sh *Shell, ctx context.Context, args string) (stop bool)
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"create":  {"create <Type>", "Creates a new instance, saves it and prints its id.", (*Shell).doCreate},
		"show":    {"show <Type> <id>", "Prints the string representation of an instance.", (*Shell).doShow},
		"destroy": {"destroy <Type> <id>", "Deletes an instance and saves the change.", (*Shell).doDestroy},
		"all":     {"all [<Type>]", "Prints every instance, optionally only those of one type.", (*Shell).doAll},
		"update":  {"update <Type> <id> <attribute> <value>", "Sets one attribute on an instance and saves it.", (*Shell).doUpdate},
		"count":   {"count <Type>", "Prints the number of instances of a type.", (*Shell).doCount},
		"help":    {"help [<command>]", "Lists commands or shows help for one.", (*Shell).doHelp},
		"quit":    {"quit", "Exits the program.", stop},
		"EOF":     {"EOF", "Exits the program.", stop},
	}
}

func stop(*Shell, context.Context, string) bool { return true }

// Shell dispatches command lines to a Store.
type Shell struct {
	store       *core.Store
	out         io.Writer
	logger      *zap.Logger
	interactive bool
}

// Option customises a Shell.
type Option func(*Shell)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(sh *Shell) {
		if l != nil {
			sh.logger = l
		}
	}
}

// WithInteractive enables the prompt.
func WithInteractive(on bool) Option {
	return func(sh *Shell) { sh.interactive = on }
}

// New returns a shell writing to out.
func New(store *core.Store, out io.Writer, opts ...Option) *Shell {
	sh := &Shell{store: store, out: out, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(sh)
	}
	return sh
}

// Run reads lines from in until quit, EOF or ctx cancellation. Reading
// happens on its own goroutine so cancellation also interrupts a pending
// read; that goroutine exits once in returns.
func (sh *Shell) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		errc <- sc.Err()
	}()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if sh.interactive {
			fmt.Fprint(sh.out, Prompt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if sh.interactive {
					fmt.Fprintln(sh.out)
				}
				return <-errc
			}
			if sh.Execute(ctx, line) {
				return nil
			}
		}
	}
}

// Execute runs one command line and reports whether the shell should stop.
func (sh *Shell) Execute(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	sh.logger.Debug("command", zap.String("line", line))
	name, args, _ := strings.Cut(line, " ")
	if cmd, ok := commands[name]; ok {
		return cmd.run(sh, ctx, strings.TrimSpace(args))
	}
	sh.dotted(ctx, line)
	return false
}

func (sh *Shell) println(a ...any) { fmt.Fprintln(sh.out, a...) }

// report prints the message for a store or attribute error.
func (sh *Shell) report(err error) {
	var unknown domain.UnknownKindError
	var notFound core.ErrNotFound
	var mismatch domain.TypeMismatchError
	switch {
	case errors.Is(err, domain.ErrMissingKind):
		sh.println(msgClassMissing)
	case errors.As(err, &unknown):
		sh.println(msgClassUnknown)
	case errors.Is(err, core.ErrMissingID):
		sh.println(msgIDMissing)
	case errors.As(err, &notFound):
		sh.println(msgNotFound)
	case errors.Is(err, domain.ErrMissingAttribute):
		sh.println(msgAttrMissing)
	case errors.Is(err, domain.ErrMissingValue):
		sh.println(msgValueMissing)
	case errors.Is(err, domain.ErrReadOnlyAttribute):
		sh.println(msgAttrReadOnly)
	case errors.As(err, &mismatch):
		sh.println(msgValueMismatch)
	default:
		sh.logger.Error("command failed", zap.Error(err))
		sh.println(fmt.Sprintf(msgSaveFailedFmt, err))
	}
}

func (sh *Shell) doCreate(ctx context.Context, args string) bool {
	fields := splitFields(args)
	if len(fields) == 0 {
		sh.println(msgClassMissing)
		return false
	}
	rec, err := sh.store.New(fields[0])
	if err != nil {
		sh.report(err)
		return false
	}
	if err := sh.store.Persist(ctx); err != nil {
		sh.report(err)
		return false
	}
	sh.println(rec.Meta().ID)
	return false
}

func (sh *Shell) doShow(_ context.Context, args string) bool {
	kind, id := kindAndID(splitFields(args))
	rec, err := sh.store.Get(kind, id)
	if err != nil {
		sh.report(err)
		return false
	}
	sh.println(domain.Display(rec))
	return false
}

func (sh *Shell) doDestroy(ctx context.Context, args string) bool {
	kind, id := kindAndID(splitFields(args))
	if err := sh.store.Delete(kind, id); err != nil {
		sh.report(err)
		return false
	}
	if err := sh.store.Persist(ctx); err != nil {
		sh.report(err)
	}
	return false
}

func (sh *Shell) doAll(_ context.Context, args string) bool {
	var kind string
	if fields := splitFields(args); len(fields) > 0 {
		kind = fields[0]
	}
	recs, err := sh.store.List(kind)
	if err != nil {
		sh.report(err)
		return false
	}
	for _, rec := range recs {
		sh.println(domain.Display(rec))
	}
	return false
}

func (sh *Shell) doCount(_ context.Context, args string) bool {
	fields := splitFields(args)
	if len(fields) == 0 {
		sh.println(msgClassMissing)
		return false
	}
	n, err := sh.store.Count(fields[0])
	if err != nil {
		sh.report(err)
		return false
	}
	sh.println(n)
	return false
}

func (sh *Shell) doUpdate(ctx context.Context, args string) bool {
	fields := splitFields(args)
	kind, id := kindAndID(fields)
	var attr, value string
	hasValue := len(fields) > 3
	if len(fields) > 2 {
		attr = fields[2]
	}
	if hasValue {
		value = fields[3]
	}
	sh.update(ctx, kind, id, attr, value, hasValue)
	return false
}

// update validates in the same order the messages are documented: class,
// id, instance, attribute, value.
func (sh *Shell) update(ctx context.Context, kind, id, attr, value string, hasValue bool) {
	rec, err := sh.store.Get(kind, id)
	if err != nil {
		sh.report(err)
		return
	}
	if attr == "" {
		sh.report(domain.ErrMissingAttribute)
		return
	}
	if !hasValue {
		sh.report(domain.ErrMissingValue)
		return
	}
	if err := domain.SetAttr(rec, attr, value); err != nil {
		sh.report(err)
		return
	}
	if err := sh.store.Save(ctx, rec); err != nil {
		sh.report(err)
	}
}

// updateDict applies every pair or none of them, then saves once.
func (sh *Shell) updateDict(ctx context.Context, kind, id string, values map[string]any) {
	rec, err := sh.store.Get(kind, id)
	if err != nil {
		sh.report(err)
		return
	}
	if len(values) == 0 {
		sh.report(domain.ErrMissingAttribute)
		return
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	trial, err := sh.store.Registry().Construct(string(rec.Kind()), domain.ToDict(rec))
	if err != nil {
		sh.report(err)
		return
	}
	if err := applyValues(trial, keys, values); err != nil {
		sh.report(err)
		return
	}
	if err := applyValues(rec, keys, values); err != nil {
		sh.report(err)
		return
	}
	if err := sh.store.Save(ctx, rec); err != nil {
		sh.report(err)
	}
}

func applyValues(rec domain.Record, keys []string, values map[string]any) error {
	for _, k := range keys {
		var err error
		if s, ok := values[k].(string); ok {
			err = domain.SetAttr(rec, k, s)
		} else {
			err = domain.SetValue(rec, k, values[k])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (sh *Shell) doHelp(_ context.Context, args string) bool {
	if args != "" {
		cmd, ok := commands[args]
		if !ok {
			sh.println(msgNoHelp + args)
			return false
		}
		sh.println(cmd.usage)
		sh.println("  " + cmd.help)
		return false
	}
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	sh.println("Documented commands (type help <topic>):")
	sh.println("========================================")
	sh.println(strings.Join(names, "  "))
	sh.println()
	sh.println("Dotted form: <Type>.all()  <Type>.count()  <Type>.show(<id>)  <Type>.destroy(<id>)")
	sh.println("             <Type>.update(<id>, <attribute>, <value>)  <Type>.update(<id>, {<attribute>: <value>, ...})")
	return false
}

func kindAndID(fields []string) (kind, id string) {
	if len(fields) > 0 {
		kind = fields[0]
	}
	if len(fields) > 1 {
		id = fields[1]
	}
	return kind, id
}
