package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/mylist/internal/apperror"
	"github.com/sakif/mylist/internal/model"
)

// MinPasswordLength is counted in characters, not bytes.
const MinPasswordLength = 6

// AccountEvents receives one call per successful account operation.
// *metrics.Metrics implements it.
type AccountEvents interface {
	AccountEvent(event string)
}

// AccountService handles registration, login, logout and account deletion.
//
// Identity switches always go through the Session, so the task partition
// and the reminder schedule follow the account that is signed in.
type AccountService struct {
	session *Session
	events  AccountEvents
	logger  *slog.Logger
}

// NewAccountService creates an AccountService operating on session.
// events may be nil.
func NewAccountService(session *Session, events AccountEvents, logger *slog.Logger) *AccountService {
	return &AccountService{
		session: session,
		events:  events,
		logger:  logger,
	}
}

// Registration is the data submitted by the sign-up form, minus the two
// password fields.
type Registration struct {
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Birth       string       `json:"birth"`
	Gender      model.Gender `json:"gender"`
	AvatarImage string       `json:"avatarImage"`
}

// Register creates an account and signs it in.
//
// The guest task list is discarded once the new account is active. Guest
// tasks are not carried over.
func (s *AccountService) Register(ctx context.Context, reg Registration, password, confirm string) (*model.User, error) {
	user, err := validateRegistration(reg, password, confirm)
	if err != nil {
		return nil, err
	}

	s.session.mu.Lock()
	defer s.session.mu.Unlock()

	if err := s.session.users.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.signIn(ctx, user); err != nil {
		// Drop the record so the email is free for a retry.
		if delErr := s.session.users.Delete(ctx, user.Email); delErr != nil {
			s.logger.Error("failed to roll back account after sign-in failure",
				slog.String("email", user.Email),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, err
	}

	s.logger.Info("account registered", slog.String("email", user.Email))
	s.record("register")
	return cloneUser(user), nil
}

func validateRegistration(reg Registration, password, confirm string) (*model.User, error) {
	name := strings.TrimSpace(reg.Name)
	email := strings.TrimSpace(reg.Email)

	if name == "" || email == "" || password == "" || confirm == "" {
		return nil, apperror.ValidationFailed("", "Please fill required fields")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	if password != confirm {
		return nil, apperror.ValidationFailed("confirm", "Passwords do not match")
	}

	gender := reg.Gender
	if gender == "" {
		gender = model.GenderOther
	}
	if !gender.Valid() {
		return nil, apperror.ValidationFailed("gender", "gender must be male, female or other")
	}

	birth := strings.TrimSpace(reg.Birth)
	if birth != "" {
		if _, err := time.Parse(model.DateLayout, birth); err != nil {
			return nil, apperror.ValidationFailed("birth", "birth must be a date in YYYY-MM-DD form")
		}
	}

	return &model.User{
		Name:        name,
		Email:       email,
		Birth:       birth,
		Gender:      gender,
		Password:    password,
		AvatarImage: reg.AvatarImage,
	}, nil
}

// Login signs in an existing account.
//
// A wrong password returns apperror.ErrUnauthorized and leaves the session
// exactly as it was.
func (s *AccountService) Login(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("", "Please enter email and password")
	}

	s.session.mu.Lock()
	defer s.session.mu.Unlock()

	user, err := s.session.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.Password != password {
		s.logger.Info("login rejected", slog.String("email", email))
		return nil, apperror.Unauthorized("Wrong password")
	}

	if err := s.signIn(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("logged in", slog.String("email", email))
	s.record("login")
	return cloneUser(user), nil
}

// signIn points the session at user, loads the user's partition and drops
// the guest partition. The in-memory identity only changes once the pointer
// is written.
func (s *AccountService) signIn(ctx context.Context, user *model.User) error {
	list, err := s.session.loadPartition(ctx, model.Owner(user.Email))
	if err != nil {
		return err
	}
	if err := s.session.sessions.SetCurrentUser(ctx, user.Email); err != nil {
		return fmt.Errorf("service/account: setting session pointer: %w", err)
	}
	s.session.switchTo(user, list)

	if err := s.session.tasks.Delete(ctx, model.Guest); err != nil {
		// The account is already active; a leftover guest list is harmless.
		s.logger.Warn("failed to discard guest tasks", slog.String("error", err.Error()))
	}
	return nil
}

// Logout returns to guest mode. Account data stays in storage.
func (s *AccountService) Logout(ctx context.Context) error {
	s.session.mu.Lock()
	defer s.session.mu.Unlock()

	list, err := s.session.loadPartition(ctx, model.Guest)
	if err != nil {
		return err
	}
	if err := s.session.sessions.ClearCurrentUser(ctx); err != nil {
		return fmt.Errorf("service/account: clearing session pointer: %w", err)
	}

	if s.session.user != nil {
		s.logger.Info("logged out", slog.String("email", s.session.user.Email))
	}
	s.session.switchTo(nil, list)
	s.record("logout")
	return nil
}

// DeleteAccount removes the signed-in account and its task list, then
// returns to guest mode.
//
// Nothing happens unless confirmed is true. With nobody signed in it
// returns apperror.ErrForbidden.
func (s *AccountService) DeleteAccount(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return nil
	}

	s.session.mu.Lock()
	defer s.session.mu.Unlock()

	if s.session.user == nil {
		return apperror.Forbidden("no account is signed in")
	}
	email := s.session.user.Email

	guest, err := s.session.loadPartition(ctx, model.Guest)
	if err != nil {
		return err
	}
	if err := s.session.tasks.Delete(ctx, model.Owner(email)); err != nil {
		return fmt.Errorf("service/account: deleting tasks of %s: %w", email, err)
	}
	if err := s.session.users.Delete(ctx, email); err != nil {
		return fmt.Errorf("service/account: deleting account %s: %w", email, err)
	}
	if err := s.session.sessions.ClearCurrentUser(ctx); err != nil {
		return fmt.Errorf("service/account: clearing session pointer: %w", err)
	}

	s.session.switchTo(nil, guest)
	s.logger.Info("account deleted", slog.String("email", email))
	s.record("delete")
	return nil
}

// Profile returns the view snapshot of the active identity.
func (s *AccountService) Profile() model.Profile {
	s.session.mu.Lock()
	defer s.session.mu.Unlock()

	if s.session.user == nil {
		return model.GuestProfile()
	}
	return s.session.user.Profile()
}

// CurrentEmail returns the signed-in email, or "" in guest mode.
func (s *AccountService) CurrentEmail() string {
	return string(s.session.Owner())
}

func (s *AccountService) record(event string) {
	if s.events != nil {
		s.events.AccountEvent(event)
	}
}

func cloneUser(u *model.User) *model.User {
	c := *u
	return &c
}
