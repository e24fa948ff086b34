package view

import (
	"context"

	"github.com/Domenick1991/airdash/internal/domain"
	"github.com/Domenick1991/airdash/internal/events"
	"github.com/Domenick1991/airdash/internal/reducer"
)

type ProfileRefresher interface {
	RefreshProfile(ctx context.Context) (domain.User, error)
}

// UserChannel listens on /user for the viewer's purchase results. It holds
// no list state; a successful purchase refreshes the cached profile so the
// balance shown anywhere comes from the server.
type UserChannel struct {
	base
	profile ProfileRefresher
	viewer  reducer.Viewer
}

func NewUserChannel(profile ProfileRefresher, viewer reducer.Viewer, opts Options) *UserChannel {
	c := &UserChannel{profile: profile, viewer: viewer}
	c.init("user", opts)
	return c
}

func (c *UserChannel) Mount(ctx context.Context) error {
	return c.live(ctx, events.NamespaceUser, c.viewer.UserID, c.handle, nil)
}

func (c *UserChannel) handle(ev events.Event) {
	c.mu.Lock()
	if !c.admit(ev) {
		c.mu.Unlock()
		return
	}
	ctx := c.ctx
	c.mu.Unlock()

	out := reducer.ReducePersonal(c.viewer, ev)
	c.settle(ev, out)
	if !out.RefreshProfile {
		return
	}
	if _, err := c.profile.RefreshProfile(ctx); err != nil {
		c.logger.WithError(err).Warn("profile refresh after purchase failed")
		return
	}
	c.changed()
}
