package view

import (
	"context"

	"github.com/Domenick1991/airdash/internal/domain"
)

// ListSnapshot is the state of a plain, non-realtime list page.
type ListSnapshot[T any] struct {
	Status
	Items []T `json:"items"`
}

// ListView is a page backed by a single list endpoint. It has no
// connection and no poller; it reloads on mount and after its own actions.
type ListView[T any] struct {
	base
	load  func(ctx context.Context) ([]T, error)
	items []T
}

func newListView[T any](name string, load func(ctx context.Context) ([]T, error), opts Options) *ListView[T] {
	v := &ListView[T]{load: load}
	v.init(name, opts)
	return v
}

func (v *ListView[T]) Mount(ctx context.Context) error {
	if err := v.live(ctx, "", 0, nil, nil); err != nil {
		return err
	}
	_ = v.Reload(ctx)
	return nil
}

// Reload fetches the list. On failure the previous items are kept.
func (v *ListView[T]) Reload(ctx context.Context) error {
	v.beginLoad()
	items, err := v.load(ctx)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		if err != nil {
			return err
		}
		return ErrUnmounted
	}
	if err == nil {
		if items == nil {
			items = []T{}
		}
		v.items = items
	}
	v.endLoad(err)
	v.mu.Unlock()
	v.changed()
	return err
}

func (v *ListView[T]) Items() []T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]T{}, v.items...)
}

func (v *ListView[T]) Snapshot() ListSnapshot[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return ListSnapshot[T]{Status: v.status, Items: append([]T{}, v.items...)}
}

type TicketDesk interface {
	MyTickets(ctx context.Context) ([]domain.Ticket, error)
	CancelTicket(ctx context.Context, ticketID int64) error
}

type TicketsView struct {
	*ListView[domain.Ticket]
	desk TicketDesk
}

func NewTicketsView(desk TicketDesk, opts Options) *TicketsView {
	return &TicketsView{ListView: newListView("tickets", desk.MyTickets, opts), desk: desk}
}

func (v *TicketsView) Cancel(ctx context.Context, ticketID int64) error {
	if err := v.desk.CancelTicket(ctx, ticketID); err != nil {
		return err
	}
	return v.Reload(ctx)
}

type RatingDesk interface {
	List(ctx context.Context) ([]domain.FlightRating, error)
	Rate(ctx context.Context, in domain.RatingInput) (*domain.FlightRating, error)
}

type RatingsView struct {
	*ListView[domain.FlightRating]
	desk RatingDesk
}

func NewRatingsView(desk RatingDesk, opts Options) *RatingsView {
	return &RatingsView{ListView: newListView("ratings", desk.List, opts), desk: desk}
}

func (v *RatingsView) Rate(ctx context.Context, in domain.RatingInput) (*domain.FlightRating, error) {
	rating, err := v.desk.Rate(ctx, in)
	if err != nil {
		return nil, err
	}
	_ = v.Reload(ctx)
	return rating, nil
}

type UserAdmin interface {
	List(ctx context.Context) ([]domain.User, error)
	ChangeRole(ctx context.Context, user domain.User, role domain.Role) (*domain.User, error)
	Delete(ctx context.Context, user domain.User) error
}

// UsersView is the administrator's user list.
type UsersView struct {
	*ListView[domain.User]
	admin UserAdmin
}

func NewUsersView(admin UserAdmin, opts Options) *UsersView {
	return &UsersView{ListView: newListView("users", admin.List, opts), admin: admin}
}

func (v *UsersView) ChangeRole(ctx context.Context, userID int64, role domain.Role) (*domain.User, error) {
	user, ok := v.find(userID)
	if !ok {
		return nil, ErrUserNotFound
	}
	updated, err := v.admin.ChangeRole(ctx, user, role)
	if err != nil {
		return nil, err
	}
	v.replace(userID, func(u *domain.User) { u.Role = updated.Role })
	return updated, nil
}

func (v *UsersView) Delete(ctx context.Context, userID int64) error {
	user, ok := v.find(userID)
	if !ok {
		return ErrUserNotFound
	}
	if err := v.admin.Delete(ctx, user); err != nil {
		return err
	}
	v.mu.Lock()
	if !v.closed {
		kept := v.items[:0:0]
		for _, u := range v.items {
			if u.ID != userID {
				kept = append(kept, u)
			}
		}
		v.items = kept
	}
	v.mu.Unlock()
	v.changed()
	return nil
}

func (v *UsersView) find(id int64) (domain.User, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, u := range v.items {
		if u.ID == id {
			return u, true
		}
	}
	return domain.User{}, false
}

func (v *UsersView) replace(id int64, patch func(*domain.User)) {
	v.mu.Lock()
	if !v.closed {
		items := append([]domain.User{}, v.items...)
		for i := range items {
			if items[i].ID == id {
				patch(&items[i])
			}
		}
		v.items = items
	}
	v.mu.Unlock()
	v.changed()
}
