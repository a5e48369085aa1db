package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vbonduro/floodzone/internal/domain"
)

// EmptyHistoryMessage is shown when no report has been submitted.
const EmptyHistoryMessage = "no reports yet"

var ErrNotLoggedIn = errors.New("not logged in")

type reportLister interface {
	Reports() []domain.Report
}

type HistoryScreen struct {
	reports reportLister
}

func NewHistoryScreen(reports reportLister) *HistoryScreen {
	return &HistoryScreen{reports: reports}
}

// Lines formats the reports newest first, one per line.
func (h *HistoryScreen) Lines() []string {
	list := h.reports.Reports()
	if len(list) == 0 {
		return []string{EmptyHistoryMessage}
	}
	lines := make([]string, 0, len(list))
	for _, r := range list {
		lines = append(lines, FormatReport(r))
	}
	return lines
}

func (h *HistoryScreen) Render(w io.Writer) error {
	for _, line := range h.Lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// FormatReport renders a report as "#id address, neighborhood, city (lat, lon) date time".
func FormatReport(r domain.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d ", r.ID)
	parts := make([]string, 0, 3)
	for _, p := range []string{r.Address, r.Neighborhood, r.City} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	b.WriteString(strings.Join(parts, ", "))
	fmt.Fprintf(&b, " (%.5f, %.5f)", r.Latitude, r.Longitude)
	if when := strings.TrimSpace(r.Date + " " + r.Time); when != "" {
		b.WriteString(" " + when)
	}
	return b.String()
}

// profileSession is the subset of session.Session that ProfileScreen requires.
type profileSession interface {
	User() *domain.User
	UpdateProfile(ctx context.Context, email, name string) error
}

type ProfileView struct {
	Name    string
	Email   string
	Reports []domain.Report
}

type ProfileScreen struct {
	session profileSession
	reports reportLister
}

func NewProfileScreen(session profileSession, reports reportLister) *ProfileScreen {
	return &ProfileScreen{session: session, reports: reports}
}

// View returns the signed-in user and the reports they submitted.
func (p *ProfileScreen) View() (*ProfileView, error) {
	user := p.session.User()
	if user == nil {
		return nil, ErrNotLoggedIn
	}
	view := &ProfileView{Name: user.Name, Email: user.Email, Reports: []domain.Report{}}
	for _, r := range p.reports.Reports() {
		if r.OwnerID == 0 || r.OwnerID == user.ID {
			view.Reports = append(view.Reports, r)
		}
	}
	return view, nil
}

func (p *ProfileScreen) Save(ctx context.Context, email, name string) error {
	if p.session.User() == nil {
		return ErrNotLoggedIn
	}
	return p.session.UpdateProfile(ctx, email, name)
}
