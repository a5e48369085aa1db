package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/vbonduro/floodzone/internal/app"
	"github.com/vbonduro/floodzone/internal/domain"
	"github.com/vbonduro/floodzone/internal/reports"
	"github.com/vbonduro/floodzone/internal/search"
	"github.com/vbonduro/floodzone/internal/session"
)

// suggestWait bounds how long a suggest command waits for autocomplete.
const suggestWait = 5 * time.Second

var errUsage = errors.New("usage")

// shell is the terminal rendition of the screens. Each screen keeps its own
// search box across commands, so suggestions listed by one command can be
// picked by the next.
type shell struct {
	app *app.App
	out io.Writer

	mapScreen *app.MapScreen
	form      *app.ReportForm
}

func newShell(a *app.App, out io.Writer) *shell {
	return &shell{app: a, out: out}
}

func (s *shell) Close() {
	if s.mapScreen != nil {
		s.mapScreen.Close()
	}
	if s.form != nil {
		s.form.Close()
	}
}

// Run reads commands from in until EOF, "quit" or ctx is done.
func (s *shell) Run(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	s.prompt()
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		args := strings.Fields(scanner.Text())
		if len(args) > 0 {
			if args[0] == "quit" || args[0] == "exit" {
				return
			}
			if err := s.Exec(ctx, args); err != nil && !errors.Is(err, errUsage) {
				s.app.Logger.Debug("command failed", "command", args[0], "error", err)
			}
		}
		s.prompt()
	}
}

func (s *shell) prompt() {
	fmt.Fprintf(s.out, "%s> ", s.app.Router.Current())
}

// Exec runs one command. Failures are printed as alerts and returned.
func (s *shell) Exec(ctx context.Context, args []string) error {
	name, rest := args[0], args[1:]
	var err error
	switch name {
	case "help":
		s.help()
	case "login":
		err = s.login(ctx, rest)
	case "register":
		err = s.register(ctx, rest)
	case "logout":
		s.app.Session.Logout(ctx)
		fmt.Fprintln(s.out, "logged out")
	case "whoami", "profile":
		err = s.profile(ctx, rest)
	case "map":
		err = s.openMap(ctx)
	case "suggest":
		err = s.suggest(ctx, s.mapFlow(), rest)
	case "pick":
		err = s.pickOnMap(ctx, rest)
	case "goto":
		err = s.gotoAddress(ctx, rest)
	case "geojson":
		err = s.geoJSON()
	case "refresh":
		err = s.refreshMap(ctx)
	case "report":
		err = s.report(ctx, rest)
	case "report-suggest":
		err = s.suggest(ctx, s.reportForm().Flow(), rest)
	case "report-pick":
		err = s.reportPick(ctx, rest)
	case "back":
		s.app.Router.Back()
		fmt.Fprintln(s.out, "at", s.app.Router.Current())
	case "history":
		s.app.Router.Push(app.RouteHistory)
		err = s.app.History().Render(s.out)
	default:
		fmt.Fprintf(s.out, "unknown command %q, try help\n", name)
		return errUsage
	}
	return err
}

func (s *shell) help() {
	fmt.Fprint(s.out, `commands:
  login <email> <password>
  register <email> <password> [name]
  logout
  profile [<email> <name>]      show or edit the profile
  map                           centre on the device and load the heatmap
  suggest <text>                autocomplete on the map search box
  pick <n>                      jump to suggestion n
  goto <text>                   search and jump
  geojson                       print the loaded heatmap as GeoJSON
  refresh                       reload the heatmap
  report <address>              submit a flood report
  report-suggest <text>         autocomplete the report address
  report-pick <n>               submit a report at suggestion n
  history                       reports submitted in this session
  back                          return to the previous screen
  quit
`)
}

func (s *shell) alert(err error, fallback string) error {
	if msg := app.AlertMessage(err, fallback); msg != "" {
		fmt.Fprintln(s.out, "error:", msg)
	}
	return err
}

func (s *shell) usage(text string) error {
	fmt.Fprintln(s.out, "usage:", text)
	return errUsage
}

func (s *shell) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return s.usage("login <email> <password>")
	}
	if err := s.app.Session.Login(ctx, args[0], args[1]); err != nil {
		return s.alert(err, "login failed")
	}
	s.app.Router.Replace(app.RouteMap)
	fmt.Fprintf(s.out, "logged in as %s\n", s.app.Session.User().Email)
	return nil
}

func (s *shell) register(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return s.usage("register <email> <password> [name]")
	}
	name := strings.Join(args[2:], " ")
	if err := s.app.Session.Register(ctx, args[0], args[1], name); err != nil {
		return s.alert(err, "registration failed")
	}
	s.app.Router.Replace(app.RouteMap)
	fmt.Fprintf(s.out, "registered %s\n", args[0])
	return nil
}

func (s *shell) profile(ctx context.Context, args []string) error {
	p := s.app.Profile()
	if len(args) >= 2 {
		if err := p.Save(ctx, args[0], strings.Join(args[1:], " ")); err != nil {
			return s.alert(err, "failed to update profile")
		}
	} else if len(args) == 1 {
		return s.usage("profile [<email> <name>]")
	}

	view, err := p.View()
	if err != nil {
		return s.alert(err, "not logged in")
	}
	s.app.Router.Push(app.RouteProfile)
	fmt.Fprintf(s.out, "%s <%s>\n", view.Name, view.Email)
	fmt.Fprintf(s.out, "%d report(s)\n", len(view.Reports))
	for _, r := range view.Reports {
		fmt.Fprintln(s.out, " ", app.FormatReport(r))
	}
	return nil
}

func (s *shell) mapFlow() *search.Flow {
	if s.mapScreen == nil {
		s.mapScreen = s.app.MapScreen()
	}
	return s.mapScreen.Flow()
}

func (s *shell) openMap(ctx context.Context) error {
	s.mapFlow()
	s.app.Router.Push(app.RouteMap)
	region, err := s.mapScreen.Open(ctx)
	s.printRegion(region)
	if err != nil {
		return s.alert(err, s.mapScreen.HeatmapError())
	}
	s.printPoints()
	return nil
}

func (s *shell) refreshMap(ctx context.Context) error {
	s.mapFlow()
	if err := s.mapScreen.Refresh(ctx); err != nil {
		return s.alert(err, s.mapScreen.HeatmapError())
	}
	s.printPoints()
	return nil
}

func (s *shell) pickOnMap(ctx context.Context, args []string) error {
	i, err := pickIndex(args)
	if err != nil {
		return s.usage("pick <n>")
	}
	s.mapFlow()
	res, err := s.mapScreen.SelectResult(ctx, i)
	if err != nil {
		return s.alert(err, s.heatmapOr("no such suggestion"))
	}
	fmt.Fprintf(s.out, "%s: %s\n", res.Title(), res.Address.FreeformAddress)
	s.printRegion(s.mapScreen.Region())
	s.printPoints()
	return nil
}

func (s *shell) gotoAddress(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return s.usage("goto <text>")
	}
	flow := s.mapFlow()
	flow.SetQuery(strings.Join(args, " "))
	res, err := s.mapScreen.Search(ctx)
	if err != nil {
		return s.alert(err, s.heatmapOr("search failed"))
	}
	fmt.Fprintf(s.out, "%s: %s\n", res.Title(), res.Address.FreeformAddress)
	s.printRegion(s.mapScreen.Region())
	s.printPoints()
	return nil
}

func (s *shell) geoJSON() error {
	s.mapFlow()
	data, err := json.Marshal(s.mapScreen.GeoJSON())
	if err != nil {
		return fmt.Errorf("failed to encode heatmap: %w", err)
	}
	fmt.Fprintln(s.out, string(data))
	return nil
}

func (s *shell) heatmapOr(fallback string) string {
	if s.mapScreen != nil {
		if msg := s.mapScreen.HeatmapError(); msg != "" {
			return msg
		}
	}
	return fallback
}

func (s *shell) printRegion(r app.Region) {
	fmt.Fprintf(s.out, "region: %.4f, %.4f (±%.2f)\n", r.Center.Latitude, r.Center.Longitude, r.LatitudeDelta)
}

func (s *shell) printPoints() {
	points := s.mapScreen.VisiblePoints()
	fmt.Fprintf(s.out, "%d heatmap point(s) in view\n", len(points))
	for _, p := range points {
		fmt.Fprintf(s.out, "  %.5f, %.5f weight %g\n", p.Latitude, p.Longitude, p.Weight)
	}
}

// suggest types text into flow and prints the suggestions once the
// autocomplete cycle settles.
func (s *shell) suggest(ctx context.Context, flow *search.Flow, args []string) error {
	if len(args) == 0 {
		return s.usage("suggest <text>")
	}
	snap := typeAndWait(ctx, flow, strings.Join(args, " "), suggestWait)
	switch snap.State {
	case search.StateResultsShown:
		printSuggestions(s.out, snap.Results)
	case search.StateNoResults:
		fmt.Fprintln(s.out, "no suggestions")
	case search.StateIdle:
		fmt.Fprintf(s.out, "type at least %d characters\n", search.MinQueryLength)
	default:
		fmt.Fprintln(s.out, "suggestions unavailable")
	}
	return nil
}

// typeAndWait sets the query and blocks until the flow leaves the
// debouncing and searching states, the wait elapses, or ctx is done.
func typeAndWait(ctx context.Context, flow *search.Flow, text string, wait time.Duration) search.Snapshot {
	settled := make(chan search.Snapshot, 1)
	unsubscribe := flow.Subscribe(func(snap search.Snapshot) {
		if snap.Query != text || snap.State == search.StateDebouncing || snap.State == search.StateSearching {
			return
		}
		select {
		case settled <- snap:
		default:
		}
	})
	defer unsubscribe()

	flow.SetQuery(text)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case snap := <-settled:
		return snap
	case <-timer.C:
	case <-ctx.Done():
	}
	return flow.Snapshot()
}

func printSuggestions(out io.Writer, results []domain.SearchResult) {
	for i, r := range results {
		fmt.Fprintf(out, "  [%d] %s: %s\n", i+1, r.Title(), r.Address.FreeformAddress)
	}
}

func (s *shell) reportForm() *app.ReportForm {
	if s.form == nil {
		s.form = s.app.ReportForm()
	}
	return s.form
}

func (s *shell) report(ctx context.Context, args []string) error {
	if s.app.Session.State() != session.StateAuthenticated {
		fmt.Fprintln(s.out, "error: log in first")
		return app.ErrNotLoggedIn
	}
	form := s.reportForm()
	s.app.Router.Push(app.RouteReport)
	form.SetAddress(strings.Join(args, " "))
	return s.submit(ctx, form)
}

func (s *shell) reportPick(ctx context.Context, args []string) error {
	i, err := pickIndex(args)
	if err != nil {
		return s.usage("report-pick <n>")
	}
	if s.app.Session.State() != session.StateAuthenticated {
		fmt.Fprintln(s.out, "error: log in first")
		return app.ErrNotLoggedIn
	}
	form := s.reportForm()
	if _, err := form.SelectSuggestion(i); err != nil {
		return s.alert(err, "no such suggestion")
	}
	return s.submit(ctx, form)
}

func (s *shell) submit(ctx context.Context, form *app.ReportForm) error {
	report, err := form.Submit(ctx)
	if err != nil {
		return s.alert(err, reports.FallbackMessage)
	}
	fmt.Fprintln(s.out, "reported", app.FormatReport(*report))
	return nil
}

// pickIndex parses a 1-based suggestion number.
func pickIndex(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errUsage
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, errUsage
	}
	return n - 1, nil
}
