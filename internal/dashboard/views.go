package dashboard

import (
	"context"
	"fmt"

	"github.com/Domenick1991/airdash/internal/apiclient"
	"github.com/Domenick1991/airdash/internal/domain"
	"github.com/Domenick1991/airdash/internal/view"
)

// lookup returns the mounted page name as T.
func lookup[T view.View](a *App, name string) (T, error) {
	var zero T
	v, ok := a.View(name)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNoSuchView, name)
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNoSuchView, name)
	}
	return typed, nil
}

func (a *App) Flights() (*view.FlightsView, error) { return lookup[*view.FlightsView](a, PageFlights) }
func (a *App) Manager() (*view.ManagerView, error) { return lookup[*view.ManagerView](a, PageManager) }
func (a *App) Pending() (*view.PendingView, error) { return lookup[*view.PendingView](a, PagePending) }
func (a *App) Tickets() (*view.TicketsView, error) { return lookup[*view.TicketsView](a, PageTickets) }
func (a *App) Ratings() (*view.RatingsView, error) { return lookup[*view.RatingsView](a, PageRatings) }
func (a *App) Users() (*view.UsersView, error)     { return lookup[*view.UsersView](a, PageUsers) }
func (a *App) Summary() (*view.SummaryView, error) { return lookup[*view.SummaryView](a, PageSummary) }

// Snapshot returns the current state of a mounted page for rendering.
func (a *App) Snapshot(name string) (interface{}, error) {
	v, ok := a.View(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchView, name)
	}
	switch v := v.(type) {
	case *view.FlightsView:
		return v.Snapshot(), nil
	case *view.ManagerView:
		return v.Snapshot(), nil
	case *view.PendingView:
		return v.Snapshot(), nil
	case *view.TicketsView:
		return v.Snapshot(), nil
	case *view.RatingsView:
		return v.Snapshot(), nil
	case *view.UsersView:
		return v.Snapshot(), nil
	case *view.SummaryView:
		return v.Snapshot(), nil
	}
	return struct{}{}, nil
}

func (a *App) Book(ctx context.Context, flightID int64) (*apiclient.PurchaseReceipt, error) {
	v, err := a.Flights()
	if err != nil {
		return nil, err
	}
	return v.Book(ctx, flightID)
}

func (a *App) Deposit(ctx context.Context, amount float64) (float64, error) {
	if !a.Session().Authenticated() {
		return 0, ErrNotLoggedIn
	}
	return a.deps.Users.Deposit(ctx, amount)
}

func (a *App) UpdateProfile(ctx context.Context, update domain.UserUpdate) (*domain.User, error) {
	if !a.Session().Authenticated() {
		return nil, ErrNotLoggedIn
	}
	return a.deps.Users.UpdateProfile(ctx, update)
}

// Watch subscribes to change ticks of a mounted page.
func (a *App) Watch(name string) (<-chan struct{}, func(), error) {
	v, ok := a.View(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoSuchView, name)
	}
	ch, cancel := v.Watch()
	return ch, cancel, nil
}

func (a *App) SetFlightFilter(f view.FlightFilter) error {
	v, err := a.Flights()
	if err != nil {
		return err
	}
	v.SetFilter(f)
	return nil
}

func (a *App) CreateFlight(ctx context.Context, in domain.FlightInput) (*domain.Flight, error) {
	v, err := a.Manager()
	if err != nil {
		return nil, err
	}
	return v.Create(ctx, in)
}

func (a *App) UpdateFlight(ctx context.Context, id int64, in domain.FlightInput) (*domain.Flight, error) {
	v, err := a.Manager()
	if err != nil {
		return nil, err
	}
	return v.Update(ctx, id, in)
}

func (a *App) CancelFlight(ctx context.Context, id int64) (*domain.Flight, error) {
	v, err := a.Manager()
	if err != nil {
		return nil, err
	}
	return v.Cancel(ctx, id)
}

func (a *App) DeleteFlight(ctx context.Context, id int64) error {
	v, err := a.Manager()
	if err != nil {
		return err
	}
	return v.Delete(ctx, id)
}

func (a *App) GenerateReport(ctx context.Context, rt domain.ReportType) error {
	v, err := a.Manager()
	if err != nil {
		return err
	}
	return v.GenerateReport(ctx, rt)
}

func (a *App) Approve(ctx context.Context, id int64) (*domain.Flight, error) {
	v, err := a.Pending()
	if err != nil {
		return nil, err
	}
	return v.Approve(ctx, id)
}

func (a *App) Reject(ctx context.Context, id int64, reason string) (*domain.Flight, error) {
	v, err := a.Pending()
	if err != nil {
		return nil, err
	}
	return v.Reject(ctx, id, reason)
}

func (a *App) CancelTicket(ctx context.Context, ticketID int64) error {
	v, err := a.Tickets()
	if err != nil {
		return err
	}
	return v.Cancel(ctx, ticketID)
}

func (a *App) RateFlight(ctx context.Context, in domain.RatingInput) (*domain.FlightRating, error) {
	v, err := a.Ratings()
	if err != nil {
		return nil, err
	}
	return v.Rate(ctx, in)
}

func (a *App) ChangeRole(ctx context.Context, userID int64, role domain.Role) (*domain.User, error) {
	v, err := a.Users()
	if err != nil {
		return nil, err
	}
	return v.ChangeRole(ctx, userID, role)
}

func (a *App) DeleteUser(ctx context.Context, userID int64) error {
	v, err := a.Users()
	if err != nil {
		return err
	}
	return v.Delete(ctx, userID)
}
