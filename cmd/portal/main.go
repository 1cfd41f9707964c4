// Command portal is a command line client for the Student Activity Portal.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/Nguyentram30/activity-portal/internal/apiclient"
	"github.com/Nguyentram30/activity-portal/internal/authgate"
	"github.com/Nguyentram30/activity-portal/internal/config"
	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/Nguyentram30/activity-portal/internal/portal"
	"github.com/Nguyentram30/activity-portal/internal/session"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// errUsage means the command line was wrong; the flag package already said why.
var errUsage = errors.New("usage")

type app struct {
	store  *session.Store
	gate   *authgate.Gate
	api    *portal.Services
	log    *zap.Logger
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("portal", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgDir := fs.String("config", config.Dir(), "config directory")
	apiURL := fs.String("api", "", "API base URL, e.g. http://localhost:8080/api")
	verbose := fs.Bool("v", false, "log requests to stderr")
	ephemeral := fs.Bool("ephemeral", false, "keep the session in memory only")
	fs.Usage = func() { usage(stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		usage(stderr)
		return 2
	}
	if fs.Arg(0) == "version" {
		fmt.Fprintf(stdout, "portal %s (%s)\n", version, buildDate)
		return 0
	}

	cfg, err := config.LoadClient(*cfgDir)
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}
	if *apiURL != "" {
		cfg.APIURL = *apiURL
	}

	log := zap.NewNop()
	if *verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			log = l
		}
	}
	defer func() { _ = log.Sync() }()

	var storage session.Storage = session.NewFileStorage(cfg.SessionFile)
	if *ephemeral {
		storage = session.NewMemoryStorage(nil)
	}
	nav := session.NavigatorFunc(func(route string) { fmt.Fprintln(stderr, "route:", route) })
	store := session.Open(storage, nav, log)

	client, err := apiclient.New(cfg.APIURL,
		apiclient.WithTokenSource(store),
		apiclient.WithLogger(log),
		apiclient.WithTimeout(cfg.Timeout),
	)
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}

	a := &app{
		store:  store,
		gate:   authgate.New(store, nav),
		api:    portal.NewServices(client),
		log:    log,
		in:     stdin,
		out:    stdout,
		errOut: stderr,
	}
	if err := a.dispatch(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		a.report(err)
		return 1
	}
	return 0
}

type command func(ctx context.Context, args []string) error

func (a *app) commands() map[string]command {
	return map[string]command{
		"signup":           a.cmdSignUp,
		"signin":           a.cmdSignIn,
		"signout":          a.cmdSignOut,
		"refresh":          a.cmdRefresh,
		"whoami":           a.cmdWhoAmI,
		"activities":       a.cmdActivities,
		"activity":         a.cmdActivity,
		"register":         a.cmdRegister,
		"my-registrations": a.cmdMyRegistrations,
		"cancel":           a.cmdCancel,
		"checkin":          a.cmdCheckIn,
		"feedback":         a.cmdFeedback,
		"inbox":            a.cmdInbox,
		"admin":            a.cmdAdmin,
		"manager":          a.cmdManager,
	}
}

func (a *app) dispatch(ctx context.Context, name string, args []string) error {
	cmd, ok := a.commands()[name]
	if !ok {
		fmt.Fprintf(a.errOut, "unknown command %q\n", name)
		usage(a.errOut)
		return errUsage
	}
	return cmd(ctx, args)
}

// report prints one line per failure, classified, plus any field messages.
func (a *app) report(err error) {
	fmt.Fprintf(a.errOut, "error (%s): %v\n", apiclient.Classify(err), err)

	var fields map[string]string
	var se *apiclient.StatusError
	var ve *errs.ValidationError
	switch {
	case errors.As(err, &se):
		fields = se.Fields
	case errors.As(err, &ve):
		fields = ve.Fields
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(a.errOut, "  %s: %s\n", k, fields[k])
	}
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readAll reads a file, or stdin for "-".
func (a *app) readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(a.in)
	}
	return os.ReadFile(p)
}

// readJSON decodes the document at p (a path or "-") into out.
func (a *app) readJSON(p string, out any) error {
	if p == "" {
		return errs.Invalid("json", "required")
	}
	b, err := a.readAll(p)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return errs.Invalid("json", err.Error())
	}
	return nil
}

// writeBlob saves an export to path, or to its server-suggested name when path is empty.
func (a *app) writeBlob(b *model.Blob, path string) error {
	if path == "" {
		path = filepath.Base(b.FileName)
	}
	if path == "-" {
		_, err := a.out.Write(b.Data)
		return err
	}
	if err := os.WriteFile(path, b.Data, 0o600); err != nil {
		return err
	}
	fmt.Fprintf(a.errOut, "saved %s (%d bytes)\n", path, len(b.Data))
	return nil
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.FromString(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, errs.Invalid(field, "invalid id")
	}
	return id, nil
}

// parseQuery turns a raw "k=v&k2=v2" filter into a validated query; empty means none.
func parseQuery[T any](raw string, parseFn func(url.Values) (T, error)) (*T, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return nil, errs.Invalid("q", "malformed query")
	}
	q, err := parseFn(vals)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func usage(w io.Writer) {
	fmt.Fprint(w, `portal CLI
Usage:
  portal [-api URL] [-config DIR] [-ephemeral] [-v] <cmd> [args]

Account:
  version
  signup   -name <name> -email <email> -password <pw> [-student-id ID] [-faculty F]
  signin   -email <email> -password <pw>               (saves session)
  signout  [-refresh <token>]
  refresh  -token <refresh token>
  whoami   [-remote]

Student:
  activities        [-q "status=approved&search=..."]
  activity          -id <uuid>
  register          -activity <uuid> [-note text]
  my-registrations
  cancel            -id <registration uuid>
  checkin           -code <code>
  feedback          -activity <uuid> -rating 1..5 [-comment text]
  inbox             [-q "page=2"]

Back office (admin and manager):
  admin|manager activities [-q ...] | activity -id | activity-create -json F
  admin|manager activity-update -id -json F | activity-delete -id
  admin|manager students [-q ...] | students-export [-q ...] [-o file]
  admin|manager notifications [-q ...] | notification-create -json F
  admin|manager notification-update -id -json F | notification-delete -id
  admin|manager notification-schedule -id -at RFC3339
  admin|manager report [-q ...] | report-export [-q ...] [-o file] | dashboard
  admin|manager upload -file F [-title T]

Admin only:
  admin users [-q ...] | user -id | user-create -json F | user-update -id -json F
  admin user-delete -id | approve -id [-note] | reject -id -note | request-edit -id -note
  admin documents [-q ...] | document-upload -file F -title T | document-delete -id
  admin logs [-q ...] | features | feature-set -key K [-enabled bool]
  admin widgets | widget-set -key K [-enabled bool] [-title T] [-position N]

Manager only:
  manager registration-status -id <uuid> -status <status>
  manager feedbacks -activity <uuid>
  manager qr-code -activity <uuid>
`)
}
