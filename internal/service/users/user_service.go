package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Domenick1991/airdash/internal/apiclient"
	"github.com/Domenick1991/airdash/internal/domain"
	"github.com/Domenick1991/airdash/internal/notify"
	"github.com/Domenick1991/airdash/internal/session"
)

var ErrNotAuthenticated = errors.New("not authenticated")

type UserUseCase interface {
	List(ctx context.Context) ([]domain.User, error)
	RefreshProfile(ctx context.Context) (domain.User, error)
	UpdateProfile(ctx context.Context, update domain.UserUpdate) (*domain.User, error)
	Deposit(ctx context.Context, amount float64) (float64, error)
	ChangeRole(ctx context.Context, user domain.User, role domain.Role) (*domain.User, error)
	Delete(ctx context.Context, user domain.User) error
}

type UserAPI interface {
	Profile(ctx context.Context) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateUser(ctx context.Context, id int64, update domain.UserUpdate) (domain.User, error)
	DeleteUser(ctx context.Context, id int64) error
	ChangeRole(ctx context.Context, userID int64, role domain.Role) (domain.User, error)
	Deposit(ctx context.Context, userID int64, amount float64) (float64, error)
}

// Profile is the session side the service reads the viewer from and
// writes refreshed profiles to.
type Profile interface {
	Get() session.Session
	SetUser(ctx context.Context, user domain.User) error
}

type UserService struct {
	api      UserAPI
	profile  Profile
	notifier notify.Notifier
	logger   logrus.FieldLogger
}

func NewUserService(api UserAPI, profile Profile, notifier notify.Notifier, logger logrus.FieldLogger) *UserService {
	return &UserService{api: api, profile: profile, notifier: notifier, logger: logger.WithField("service", "users")}
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.api.ListUsers(ctx)
}

// RefreshProfile reloads the viewer's profile from the server and caches
// it in the session. The cached balance is only ever taken from here.
func (s *UserService) RefreshProfile(ctx context.Context) (domain.User, error) {
	user, err := s.api.Profile(ctx)
	if err != nil {
		return domain.User{}, fmt.Errorf("refresh profile: %w", err)
	}
	if err := s.profile.SetUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, update domain.UserUpdate) (*domain.User, error) {
	me := s.profile.Get().User
	if me == nil {
		return nil, ErrNotAuthenticated
	}
	user, err := s.api.UpdateUser(ctx, me.ID, update)
	if err != nil {
		return nil, s.fail(ctx, err, "Could not save the changes.")
	}
	if err := s.profile.SetUser(ctx, user); err != nil {
		s.logger.WithError(err).Warn("failed to cache updated profile")
	}
	s.notifier.Notify(ctx, notify.Success("Profile updated", "Your details were saved."))
	return &user, nil
}

func (s *UserService) Deposit(ctx context.Context, amount float64) (float64, error) {
	me := s.profile.Get().User
	if me == nil {
		return 0, ErrNotAuthenticated
	}
	if amount <= 0 {
		var v apiclient.ValidationError
		v.Add("iznos", "enter a valid amount")
		s.notifier.Notify(ctx, notify.Error("Error", "Enter a valid amount."))
		return 0, v.Err()
	}

	balance, err := s.api.Deposit(ctx, me.ID, amount)
	if err != nil {
		return 0, s.fail(ctx, err, "Could not complete the deposit.")
	}
	s.notifier.Notify(ctx, notify.Success("Deposit successful", fmt.Sprintf("You deposited %.2f EUR to your account.", amount)))

	if user, err := s.RefreshProfile(ctx); err == nil {
		return user.Balance, nil
	}
	updated := *me
	updated.Balance = balance
	if err := s.profile.SetUser(ctx, updated); err != nil {
		s.logger.WithError(err).Warn("failed to cache balance")
	}
	return balance, nil
}

func (s *UserService) ChangeRole(ctx context.Context, user domain.User, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		var v apiclient.ValidationError
		v.Add("nova_uloga", "unknown role")
		return nil, v.Err()
	}
	updated, err := s.api.ChangeRole(ctx, user.ID, role)
	if err != nil {
		return nil, s.fail(ctx, err, "Could not change the role.")
	}
	s.notifier.Notify(ctx, notify.Success("Role changed", fmt.Sprintf("Role of %s was changed.", user.FullName())))
	return &updated, nil
}

func (s *UserService) Delete(ctx context.Context, user domain.User) error {
	if err := s.api.DeleteUser(ctx, user.ID); err != nil {
		return s.fail(ctx, err, "Could not delete the user.")
	}
	s.notifier.Notify(ctx, notify.Success("User deleted", fmt.Sprintf("%s was deleted.", user.FullName())))
	return nil
}

func (s *UserService) fail(ctx context.Context, err error, fallback string) error {
	s.logger.WithError(err).Warn(fallback)
	s.notifier.Notify(ctx, notify.Error("Error", apiclient.Message(err, fallback)))
	return err
}

var _ UserUseCase = (*UserService)(nil)
