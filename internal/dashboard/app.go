// Package dashboard mounts the pages a signed-in user may see and tears
// them down on logout or when the backend rejects the token.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Domenick1991/airdash/internal/apiclient"
	"github.com/Domenick1991/airdash/internal/domain"
	"github.com/Domenick1991/airdash/internal/notify"
	"github.com/Domenick1991/airdash/internal/reducer"
	"github.com/Domenick1991/airdash/internal/service/booking"
	"github.com/Domenick1991/airdash/internal/service/flights"
	"github.com/Domenick1991/airdash/internal/service/ratings"
	"github.com/Domenick1991/airdash/internal/service/users"
	"github.com/Domenick1991/airdash/internal/session"
	"github.com/Domenick1991/airdash/internal/view"
)

var (
	ErrNotLoggedIn = errors.New("not logged in")
	ErrNoSuchView  = errors.New("view not mounted")
)

// Page names.
const (
	PageSummary = "dashboard"
	PageFlights = "flights"
	PageTickets = "tickets"
	PageRatings = "ratings"
	PageUser    = "user"
	PageManager = "manager"
	PagePending = "pending"
	PageUsers   = "users"
)

type Deps struct {
	Session  *session.Manager
	Client   *apiclient.Client
	Flights  *flights.FlightService
	Booking  *booking.BookingService
	Users    *users.UserService
	Ratings  *ratings.RatingService
	Notifier notify.Notifier
	Views    view.Options
	Logger   logrus.FieldLogger
}

type App struct {
	deps   Deps
	logger logrus.FieldLogger

	// lifecycle serializes sign-in, sign-out and 401 teardown.
	lifecycle sync.Mutex

	mu    sync.Mutex
	ctx   context.Context
	views map[string]view.View
}

func New(deps Deps) *App {
	if deps.Notifier == nil {
		deps.Notifier = deps.Views.Notifier
	}
	a := &App{
		deps:   deps,
		logger: deps.Logger.WithField("component", "dashboard"),
		ctx:    context.Background(),
		views:  make(map[string]view.View),
	}
	// Teardown closes connections and waits for their dispatch goroutines,
	// which may be the ones that hit the 401, so it cannot run inline.
	deps.Client.SetUnauthorizedHook(func() {
		gen := deps.Session.Generation()
		go a.expire(gen)
	})
	return a
}

// Start restores a stored session and mounts its pages. ctx bounds the
// lifetime of every view mounted later.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()

	if err := a.deps.Session.Init(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	sess := a.deps.Session.Get()
	if !sess.Authenticated() {
		return nil
	}
	if _, err := a.deps.Users.RefreshProfile(ctx); err != nil {
		a.logger.WithError(err).Warn("could not refresh restored profile")
		if errors.Is(err, apiclient.ErrUnauthorized) {
			return nil
		}
	}
	return a.mountFor(a.deps.Session.Get())
}

func (a *App) Login(ctx context.Context, email, password string) (*domain.User, error) {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	sess, err := a.deps.Client.Login(ctx, domain.LoginCredentials{Email: email, Password: password})
	if err != nil {
		a.deps.Notifier.Notify(ctx, notify.Error("Login failed", apiclient.Message(err, "Wrong email or password.")))
		return nil, err
	}
	a.unmountAll()
	if err := a.mountFor(sess); err != nil {
		return nil, err
	}
	a.logger.WithFields(logrus.Fields{"user_id": sess.UserID(), "role": sess.User.Role}).Info("logged in")
	return sess.User, nil
}

func (a *App) Register(ctx context.Context, data domain.RegisterData) (*domain.User, error) {
	user, err := a.deps.Client.Register(ctx, data)
	if err != nil {
		a.deps.Notifier.Notify(ctx, notify.Error("Registration failed", apiclient.Message(err, "Could not create the account.")))
		return nil, err
	}
	a.deps.Notifier.Notify(ctx, notify.Success("Registration successful", "You can now sign in."))
	return &user, nil
}

func (a *App) Logout(ctx context.Context) error {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	a.unmountAll()
	return a.deps.Client.Logout(ctx)
}

func (a *App) Session() session.Session {
	return a.deps.Session.Get()
}

// Pages lists the mounted page names in a stable order.
func (a *App) Pages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, 0, len(a.views))
	for name := range a.views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a *App) View(name string) (view.View, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.views[name]
	return v, ok
}

// pages returns the pages role may see.
func pages(role domain.Role) []string {
	out := []string{PageSummary, PageFlights, PageTickets, PageRatings, PageUser}
	if role.CanManageFlights() {
		out = append(out, PageManager)
	}
	if role.IsAdministrator() {
		out = append(out, PagePending, PageUsers)
	}
	return out
}

func (a *App) build(name string, viewer reducer.Viewer) view.View {
	d := a.deps
	switch name {
	case PageSummary:
		return view.NewSummaryView(d.Client, d.Booking, d.Session, d.Views)
	case PageFlights:
		return view.NewFlightsView(d.Client, d.Booking, viewer, d.Views)
	case PageTickets:
		return view.NewTicketsView(d.Booking, d.Views)
	case PageRatings:
		return view.NewRatingsView(d.Ratings, d.Views)
	case PageUser:
		return view.NewUserChannel(d.Users, viewer, d.Views)
	case PageManager:
		return view.NewManagerView(d.Client, d.Flights, viewer, d.Views)
	case PagePending:
		return view.NewPendingView(d.Client, d.Flights, viewer, d.Views)
	case PageUsers:
		return view.NewUsersView(d.Users, d.Views)
	}
	return nil
}

func (a *App) mountFor(sess session.Session) error {
	if !sess.Authenticated() {
		return ErrNotLoggedIn
	}
	viewer := reducer.Viewer{UserID: sess.UserID()}

	a.mu.Lock()
	ctx := a.ctx
	built := make(map[string]view.View)
	for _, name := range pages(sess.User.Role) {
		if _, ok := a.views[name]; ok {
			continue
		}
		v := a.build(name, viewer)
		a.views[name] = v
		built[name] = v
	}
	a.mu.Unlock()

	var errs []error
	for name, v := range built {
		if err := v.Mount(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mount %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) unmountAll() {
	a.mu.Lock()
	mounted := a.views
	a.views = make(map[string]view.View)
	a.mu.Unlock()

	var wg sync.WaitGroup
	for _, v := range mounted {
		wg.Add(1)
		go func(v view.View) {
			defer wg.Done()
			v.Unmount()
		}(v)
	}
	wg.Wait()
}

// expire tears down the session that was current at generation gen. It is
// a no-op once a newer sign-in has replaced that session.
func (a *App) expire(gen uint64) {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()
	if a.deps.Session.Generation() != gen {
		a.logger.Debug("stale session expiry ignored")
		return
	}
	a.logger.Warn("session rejected by the server, logging out")
	a.unmountAll()
	a.deps.Notifier.Notify(context.Background(), notify.Warning("Session expired", "Please sign in again."))
}

// Close unmounts everything without touching the stored session.
func (a *App) Close() {
	a.unmountAll()
}
