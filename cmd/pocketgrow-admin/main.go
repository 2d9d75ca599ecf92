// Command pocketgrow-admin is a terminal companion to the web app. It talks
// to the same remote savings API, keeps its token in a session file, and
// drives the shared ledger and mutation machinery from the command line.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"pocketgrow/internal/api"
	"pocketgrow/internal/config"
	"pocketgrow/internal/core"
	"pocketgrow/internal/ledger"
	"pocketgrow/internal/log"
	"pocketgrow/internal/savings"
	"pocketgrow/internal/session"
)

const usage = `Usage: pocketgrow-admin <command> [flags]

Commands:
  login     -email <addr>                     authenticate and store the session
  logout                                      forget the stored session
  list      [-user <id>] [-page N] [-size N]  list contributions
  total     [-user <id>]                      ledger totals
  users                                       per-user summaries from the server
  add       -user <id> -amount N -date D      record a contribution
  update    -id <id> [-user] [-amount] [-date] change a contribution
  delete    -id <id>                          remove a contribution
`

type app struct {
	client *api.Client
	store  *session.File
	logger *log.Logger
	cfg    *config.Config
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.New(log.Config{Level: cfg.SlogLevel()}).WithComponent(log.ComponentCLI)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	sessionPath := cfg.SessionFile
	if sessionPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fatal("resolve home directory: %v", err)
		}
		sessionPath = filepath.Join(home, ".pocketgrow", "session.json")
	}
	store, err := session.NewFile(sessionPath)
	if err != nil {
		fatal("open session file: %v", err)
	}

	client, err := api.NewClient(api.Options{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.APITimeout,
		Tokens:  store,
		Logger:  logger.WithComponent(log.ComponentAPI),
	})
	if err != nil {
		fatal("%v", err)
	}

	a := &app{client: client, store: store, logger: logger, cfg: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch cmd := os.Args[1]; cmd {
	case "login":
		err = a.login(ctx, os.Args[2:])
	case "logout":
		err = a.logout()
	case "list":
		err = a.list(ctx, os.Args[2:])
	case "total":
		err = a.total(ctx, os.Args[2:])
	case "users":
		err = a.users(ctx)
	case "add":
		err = a.add(ctx, os.Args[2:])
	case "update":
		err = a.update(ctx, os.Args[2:])
	case "delete":
		err = a.remove(ctx, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		fatal("%v", describe(err))
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "pocketgrow-admin: "+format+"\n", args...)
	os.Exit(1)
}

// describe rewrites API errors into something worth printing on a terminal.
func describe(err error) string {
	if verr := core.AsValidation(err); verr != nil {
		return "invalid input: " + verr.Error()
	}
	if core.IsNotFound(err) {
		return "no such contribution"
	}
	if core.IsConflict(err) {
		return "another change for this contribution is still in flight, try again"
	}
	return err.Error()
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	_ = fs.Parse(args)

	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	token, user, err := a.client.Login(ctx, *email, strings.TrimRight(raw, "\r\n"))
	if err != nil {
		return err
	}
	if err := a.store.SetToken(token, user); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	fmt.Printf("Logged in as %s (%s)\n", user.Name, user.Role)
	return nil
}

func (a *app) logout() error {
	if err := a.store.Clear(); err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}

// loadedStore builds a full-ledger view and performs the initial load.
func (a *app) loadedStore(ctx context.Context) (*ledger.Store, error) {
	store := ledger.New(a.client, core.ScopeAll, a.logger)
	if err := store.Load(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	user := fs.String("user", "", "filter by owner id")
	page := fs.Int("page", 1, "page number")
	size := fs.Int("size", 0, "page size, 0 shows everything")
	_ = fs.Parse(args)

	store, err := a.loadedStore(ctx)
	if err != nil {
		return err
	}

	scope := core.ScopeAll
	if *user != "" {
		scope = core.ScopeUser(*user)
	}
	pageSize := *size
	if pageSize <= 0 {
		pageSize = store.Count(scope)
		if pageSize == 0 {
			fmt.Println("No contributions")
			return nil
		}
	}

	current := store.ClampPage(scope, *page, pageSize)
	records := store.Page(scope, current, pageSize)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tOWNER\tAMOUNT\tDATE")
	for _, rec := range records {
		owner := rec.OwnerName
		if owner == "" {
			owner = rec.OwnerID
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", rec.ID, owner, rec.Amount, rec.Date.ISO())
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if pages := store.PageCount(scope, pageSize); pages > 1 {
		fmt.Printf("Page %d of %d\n", current, pages)
	}
	return nil
}

func (a *app) total(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("total", flag.ExitOnError)
	user := fs.String("user", "", "owner id")
	_ = fs.Parse(args)

	store, err := a.loadedStore(ctx)
	if err != nil {
		return err
	}
	if *user != "" {
		fmt.Printf("%d FCFA\n", store.TotalFor(*user))
		return nil
	}
	fmt.Printf("%d FCFA across %d contributions\n", store.Total(), store.Count(core.ScopeAll))
	return nil
}

func (a *app) users(ctx context.Context) error {
	summaries, err := a.client.ListUsers(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROLE\tTOTAL\tLAST")
	for _, u := range summaries {
		last := "never"
		if !u.LastContribution.IsEmpty() {
			last = u.LastContribution.ISO()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", u.ID, u.Name, u.Role, u.TotalSavings, last)
	}
	return w.Flush()
}

// coordinated wires the loaded ledger into a coordinator so a successful
// mutation refreshes the view we are about to print from.
func (a *app) coordinated(ctx context.Context) (*savings.Coordinator, *ledger.Store, error) {
	store, err := a.loadedStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	return savings.NewCoordinator(a.client, a.logger, store), store, nil
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	user := fs.String("user", "", "owner id")
	amount := fs.Int64("amount", 0, "amount in whole FCFA")
	date := fs.String("date", time.Now().Format("2006-01-02"), "contribution date (YYYY-MM-DD)")
	_ = fs.Parse(args)

	coord, store, err := a.coordinated(ctx)
	if err != nil {
		return err
	}
	rec, err := coord.Create(ctx, core.Fields{OwnerID: *user, Amount: *amount, Date: *date})
	if err != nil {
		return err
	}
	fmt.Printf("Recorded %d FCFA for %s on %s (id %s)\n", rec.Amount, *user, rec.Date.ISO(), rec.ID)
	fmt.Printf("Ledger total is now %d FCFA\n", store.TotalFor(*user))
	return nil
}

func (a *app) update(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	id := fs.String("id", "", "contribution id")
	user := fs.String("user", "", "owner id")
	amount := fs.Int64("amount", 0, "amount in whole FCFA")
	date := fs.String("date", "", "contribution date (YYYY-MM-DD)")
	_ = fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("update requires -id")
	}

	coord, store, err := a.coordinated(ctx)
	if err != nil {
		return err
	}

	// Omitted flags keep the record's current values.
	existing, ok := findRecord(store, *id)
	if !ok {
		return fmt.Errorf("no such contribution %q", *id)
	}
	if *user == "" {
		*user = existing.OwnerID
	}
	if *amount == 0 {
		*amount = existing.Amount
	}
	if *date == "" {
		*date = existing.Date.ISO()
	}

	rec, err := coord.Update(ctx, *id, core.Fields{OwnerID: *user, Amount: *amount, Date: *date})
	if err != nil {
		return err
	}
	fmt.Printf("Updated %s: %d FCFA on %s\n", rec.ID, rec.Amount, rec.Date.ISO())
	return nil
}

func findRecord(store *ledger.Store, id string) (core.Contribution, bool) {
	n := store.Count(core.ScopeAll)
	if n == 0 {
		return core.Contribution{}, false
	}
	for _, rec := range store.Page(core.ScopeAll, 1, n) {
		if rec.ID == id {
			return rec, true
		}
	}
	return core.Contribution{}, false
}

func (a *app) remove(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "contribution id")
	_ = fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("delete requires -id")
	}

	coord, store, err := a.coordinated(ctx)
	if err != nil {
		return err
	}
	if err := coord.Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("Deleted %s, ledger total is now %d FCFA\n", *id, store.Total())
	return nil
}
