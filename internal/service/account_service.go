package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/daycare-center/internal/linker"
	"github.com/iliyamo/daycare-center/internal/metrics"
	"github.com/iliyamo/daycare-center/internal/model"
	"github.com/iliyamo/daycare-center/internal/queue"
	"github.com/iliyamo/daycare-center/internal/repository"
	"github.com/iliyamo/daycare-center/internal/utils"
)

// Link triggers, used in events and metrics.
const (
	TriggerRegister   = "register"
	TriggerProfile    = "profile"
	TriggerChildAdded = "child_added"
	TriggerReconcile  = "reconcile"
)

// dummyHash is verified against when a username is unknown so that
// unknown and known usernames take the same time to reject.
var dummyHash = mustHash("dummy-password")

func mustHash(password string) string {
	h, err := utils.HashPassword(password)
	if err != nil {
		panic("service: hash dummy password: " + err.Error())
	}
	return h
}

// AccountService owns every flow that touches accounts, teachers or the
// registered children roster.  Link decisions read one store and write
// the other, so they are serialized by linkMu.
type AccountService struct {
	secure  *repository.SecureStore
	content *repository.ContentStore
	events  EventPublisher
	log     *zap.Logger
	now     func() time.Time

	linkMu sync.Mutex
}

func NewAccountService(secure *repository.SecureStore, content *repository.ContentStore, events EventPublisher, log *zap.Logger) *AccountService {
	if events == nil {
		events = NopPublisher{}
	}
	return &AccountService{secure: secure, content: content, events: events, log: log, now: time.Now}
}

// RegisterInput is a self-registration request.  Role defaults to parent;
// only parent and nutritionist may self-register.
type RegisterInput struct {
	Username string
	Password string
	Name     string
	Role     model.Role
	Phone    string
	Child    *model.ClaimedChild
}

// Register creates an unapproved account.  A parent whose claimed child
// matches an unlinked registered child takes that child's class and is
// linked to it.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (model.Account, error) {
	role := in.Role
	if role == "" {
		role = model.RoleParent
	}
	if role != model.RoleParent && role != model.RoleNutritionist {
		return model.Account{}, ErrRoleNotAllowed
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.TrimSpace(in.Username)
	}

	claim := model.Account{Role: role, Child: in.Child}

	s.linkMu.Lock()
	defer s.linkMu.Unlock()

	res := linker.OnRegister(claim, s.content.RegisteredChildren())
	var child *model.ClaimedChild
	if in.Child != nil {
		c := *in.Child
		c.ClassID = res.ResolvedClassID
		child = &c
	}

	acc, err := s.secure.AddUser(ctx, model.NewAccount{
		Username: in.Username,
		Password: in.Password,
		Name:     name,
		Role:     role,
		Child:    child,
		Phone:    in.Phone,
	})
	if err != nil {
		return model.Account{}, err
	}

	if res.Matched() {
		s.stampLink(ctx, res.LinkedChildID, acc.ID, TriggerRegister)
	}

	var classID string
	if acc.Child != nil {
		classID = acc.Child.ClassID
	}
	s.publish(ctx, queue.AccountRegisteredQueue, queue.AccountRegisteredEvent{
		AccountID:    acc.ID,
		Username:     acc.Username,
		Role:         string(acc.Role),
		ClassID:      classID,
		LinkedChild:  res.LinkedChildID,
		RegisteredAt: s.now().UTC().Format(time.RFC3339),
	})
	s.log.Info("account registered",
		zap.String("account_id", acc.ID),
		zap.String("role", string(acc.Role)),
		zap.Bool("linked", res.Matched()))
	return acc, nil
}

// stampLink records a link decided by OnRegister or OnProfileUpdate.  A
// failure leaves the account unlinked; it never fails the caller.
func (s *AccountService) stampLink(ctx context.Context, childID, accountID, trigger string) {
	ok, err := s.content.LinkRegisteredChild(ctx, childID, accountID)
	if err != nil || !ok {
		s.log.Warn("link not applied",
			zap.String("child_id", childID),
			zap.String("account_id", accountID),
			zap.Bool("already_linked", err == nil && !ok),
			zap.Error(err))
		return
	}
	s.linked(ctx, childID, accountID, trigger)
}

func (s *AccountService) linked(ctx context.Context, childID, accountID, trigger string) {
	metrics.LinksCreated.WithLabelValues(trigger).Inc()
	ev := queue.ParentLinkedEvent{
		ChildID:   childID,
		AccountID: accountID,
		Trigger:   trigger,
		LinkedAt:  s.now().UTC().Format(time.RFC3339),
	}
	for _, c := range s.content.RegisteredChildren() {
		if c.ID == childID {
			ev.ChildName = c.Name
			ev.ClassID = c.ClassID
			break
		}
	}
	s.publish(ctx, queue.ParentLinkedQueue, ev)
	s.log.Info("parent linked",
		zap.String("child_id", childID),
		zap.String("account_id", accountID),
		zap.String("trigger", trigger))
}

func (s *AccountService) publish(ctx context.Context, q string, event any) {
	if err := s.events.Publish(ctx, q, event); err != nil {
		metrics.EventsPublished.WithLabelValues(q, "error").Inc()
		s.log.Warn("event publish failed", zap.String("queue", q), zap.Error(err))
		return
	}
	metrics.EventsPublished.WithLabelValues(q, "ok").Inc()
}

// Login checks credentials against users first, then teachers.  Unknown
// usernames and wrong passwords both yield ErrInvalidCredentials; a
// correct password on an unapproved non-admin account yields
// ErrNotApproved.  The second return value reports a teacher login.
func (s *AccountService) Login(ctx context.Context, username, password string) (model.Account, bool, error) {
	acc, isTeacher, err := s.verify(username, password)
	switch {
	case err != nil:
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		return model.Account{}, false, ErrInvalidCredentials
	case !acc.Approved && acc.Role != model.RoleAdmin:
		metrics.LoginAttempts.WithLabelValues("not_approved").Inc()
		return model.Account{}, false, ErrNotApproved
	}
	metrics.LoginAttempts.WithLabelValues("ok").Inc()
	s.log.Info("login", zap.String("account_id", acc.ID), zap.String("role", string(acc.Role)))
	return acc, isTeacher, nil
}

func (s *AccountService) verify(username, password string) (model.Account, bool, error) {
	acc, userErr := s.secure.VerifyUser(username, password)
	if userErr == nil {
		return acc, false, nil
	}
	t, teacherErr := s.secure.VerifyTeacher(username, password)
	if teacherErr == nil {
		return t.AsAccount(), true, nil
	}
	if errors.Is(userErr, repository.ErrUnknownUsername) && errors.Is(teacherErr, repository.ErrUnknownUsername) {
		utils.VerifyPassword(dummyHash, password)
	}
	return model.Account{}, false, userErr
}

// Profile returns the current view of an authenticated principal.
func (s *AccountService) Profile(_ context.Context, id string, role model.Role) (model.Account, error) {
	if role == model.RoleTeacher {
		t, err := s.secure.Teacher(id)
		if err != nil {
			return model.Account{}, err
		}
		return t.AsAccount(), nil
	}
	return s.secure.User(id)
}

// UpdateProfile applies a self-service edit.  For a parent that is not
// linked yet, a claim that now matches an unlinked registered child links
// the two and adopts the child's class.  A linked parent always keeps its
// roster child's class.  Teachers may edit name and phone.
func (s *AccountService) UpdateProfile(ctx context.Context, id string, role model.Role, upd linker.ProfileUpdate) (model.Account, error) {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return model.Account{}, &repository.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if role == model.RoleTeacher {
		patch := model.TeacherPatch{Phone: upd.Phone}
		if upd.Name != nil {
			n := strings.TrimSpace(*upd.Name)
			patch.Name = &n
		}
		t, err := s.secure.UpdateTeacher(ctx, id, patch)
		if err != nil {
			return model.Account{}, err
		}
		return t.AsAccount(), nil
	}

	s.linkMu.Lock()
	defer s.linkMu.Unlock()

	current, err := s.secure.User(id)
	if err != nil {
		return model.Account{}, err
	}
	res := linker.OnProfileUpdate(current, upd, s.content.RegisteredChildren())

	patch := model.AccountPatch{Phone: upd.Phone}
	if upd.Name != nil {
		patch.Name = &res.Updated.Name
	}
	if upd.Child != nil || res.LinkedChildID != "" {
		patch.Child = res.Updated.Child
	}
	updated, err := s.secure.UpdateUser(ctx, id, patch)
	if err != nil {
		return model.Account{}, err
	}
	if res.LinkedChildID != "" {
		s.stampLink(ctx, res.LinkedChildID, id, TriggerProfile)
	}
	return updated, nil
}

// ChangePassword replaces the caller's password after checking the
// current one.  A wrong current password yields ErrInvalidCredentials.
func (s *AccountService) ChangePassword(ctx context.Context, id string, role model.Role, current, next string) error {
	acc, err := s.Profile(ctx, id, role)
	if err != nil {
		return err
	}
	isTeacher := role == model.RoleTeacher
	if isTeacher {
		_, err = s.secure.VerifyTeacher(acc.Username, current)
	} else {
		_, err = s.secure.VerifyUser(acc.Username, current)
	}
	if err != nil {
		return ErrInvalidCredentials
	}
	return s.secure.UpdatePassword(ctx, id, next, isTeacher)
}

// ResetPassword is the staff variant of ChangePassword; it does not
// require the current password.
func (s *AccountService) ResetPassword(ctx context.Context, id string, isTeacher bool, next string) error {
	return s.secure.UpdatePassword(ctx, id, next, isTeacher)
}

// ---- staff: accounts ----

func (s *AccountService) ListAccounts() []model.Account { return s.secure.Users() }

// CreateAccount lets staff create an account of any role, optionally
// pre-approved.  The new account takes part in reconciliation.
func (s *AccountService) CreateAccount(ctx context.Context, in model.NewAccount) (model.Account, error) {
	if in.Name = strings.TrimSpace(in.Name); in.Name == "" {
		in.Name = strings.TrimSpace(in.Username)
	}
	acc, err := s.secure.AddUser(ctx, in)
	if err != nil {
		return model.Account{}, err
	}
	s.ReconcileLinks(ctx)
	return s.secure.User(acc.ID)
}

// UpdateAccount applies a staff edit and reconciles, since the role or
// the claimed child may have changed.
func (s *AccountService) UpdateAccount(ctx context.Context, id string, patch model.AccountPatch) (model.Account, error) {
	if _, err := s.secure.UpdateUser(ctx, id, patch); err != nil {
		return model.Account{}, err
	}
	s.ReconcileLinks(ctx)
	return s.secure.User(id)
}

func (s *AccountService) SetApproval(ctx context.Context, id string, approved bool) (model.Account, error) {
	return s.secure.UpdateUser(ctx, id, model.AccountPatch{Approved: &approved})
}

// DeleteAccount removes the account.  Children linked to it keep their
// parent id; a link is only removed by staff editing or deleting the child.
func (s *AccountService) DeleteAccount(ctx context.Context, id string) error {
	return s.secure.DeleteUser(ctx, id)
}

// ---- staff: teachers ----

func (s *AccountService) ListTeachers() []model.Teacher { return s.secure.Teachers() }

func (s *AccountService) AddTeacher(ctx context.Context, in model.NewTeacher) (model.Teacher, error) {
	return s.secure.AddTeacher(ctx, in)
}

func (s *AccountService) UpdateTeacher(ctx context.Context, id string, patch model.TeacherPatch) (model.Teacher, error) {
	return s.secure.UpdateTeacher(ctx, id, patch)
}

func (s *AccountService) SetTeacherApproval(ctx context.Context, id string, approved bool) (model.Teacher, error) {
	return s.secure.UpdateTeacher(ctx, id, model.TeacherPatch{Approved: &approved})
}

func (s *AccountService) DeleteTeacher(ctx context.Context, id string) error {
	return s.secure.DeleteTeacher(ctx, id)
}

// ---- staff: registered children ----

func (s *AccountService) ListRegisteredChildren() []model.RegisteredChild {
	return s.content.RegisteredChildren()
}

// AddRegisteredChild stores a roster entry and immediately links it to a
// matching parent account that has no child yet.
func (s *AccountService) AddRegisteredChild(ctx context.Context, c model.RegisteredChild) (model.RegisteredChild, error) {
	s.linkMu.Lock()
	defer s.linkMu.Unlock()

	created, err := s.content.AddRegisteredChild(ctx, c)
	if err != nil {
		return model.RegisteredChild{}, err
	}
	s.reconcileLocked(ctx, TriggerChildAdded)
	return s.childByID(created.ID, created), nil
}

func (s *AccountService) UpdateRegisteredChild(ctx context.Context, id string, patch model.RegisteredChildPatch) (model.RegisteredChild, error) {
	s.linkMu.Lock()
	defer s.linkMu.Unlock()

	updated, err := s.content.UpdateRegisteredChild(ctx, id, patch)
	if err != nil {
		return model.RegisteredChild{}, err
	}
	s.reconcileLocked(ctx, TriggerReconcile)
	return s.childByID(id, updated), nil
}

func (s *AccountService) DeleteRegisteredChild(ctx context.Context, id string) error {
	s.linkMu.Lock()
	defer s.linkMu.Unlock()
	return s.content.DeleteRegisteredChild(ctx, id)
}

// MatchChild returns the unlinked registered child a registration form
// would link to, if any.
func (s *AccountService) MatchChild(name, birthDate string) (model.RegisteredChild, bool) {
	return linker.FindUnlinkedMatch(s.content.RegisteredChildren(), name, birthDate)
}

func (s *AccountService) childByID(id string, fallback model.RegisteredChild) model.RegisteredChild {
	for _, c := range s.content.RegisteredChildren() {
		if c.ID == id {
			return c
		}
	}
	return fallback
}

// ReconcileLinks links every unlinked registered child to the first
// matching parent account and returns how many links were made.  The
// roster is saved only when something changed.  Every linked parent's
// class is then brought in line with its child's roster class.
func (s *AccountService) ReconcileLinks(ctx context.Context) int {
	s.linkMu.Lock()
	defer s.linkMu.Unlock()
	return s.reconcileLocked(ctx, TriggerReconcile)
}

func (s *AccountService) reconcileLocked(ctx context.Context, trigger string) int {
	_, links := linker.Reconcile(s.secure.Users(), s.content.RegisteredChildren())
	var applied []string
	if len(links) > 0 {
		byChild := make(map[string]string, len(links))
		for _, l := range links {
			byChild[l.ChildID] = l.AccountID
		}
		applied = s.content.ApplyLinks(ctx, byChild)
		s.log.Info("reconciled parent links",
			zap.Int("decided", len(links)),
			zap.Int("applied", len(applied)),
			zap.String("trigger", trigger))
	}

	s.syncClassesLocked(ctx)

	accountOf := make(map[string]string, len(links))
	for _, l := range links {
		accountOf[l.ChildID] = l.AccountID
	}
	for _, childID := range applied {
		s.linked(ctx, childID, accountOf[childID], trigger)
	}
	return len(applied)
}

// syncClassesLocked copies the roster class of every linked child onto
// its parent's claimed child where the two differ.
func (s *AccountService) syncClassesLocked(ctx context.Context) {
	accounts := s.secure.Users()
	claims := make(map[string]*model.ClaimedChild, len(accounts))
	for _, a := range accounts {
		claims[a.ID] = a.Child
	}
	for _, l := range linker.ClassSyncs(accounts, s.content.RegisteredChildren()) {
		synced := *claims[l.AccountID]
		synced.ClassID = l.ClassID
		if _, err := s.secure.UpdateUser(ctx, l.AccountID, model.AccountPatch{Child: &synced}); err != nil {
			s.log.Warn("class sync failed", zap.String("account_id", l.AccountID), zap.Error(err))
			continue
		}
		s.log.Info("parent class synced",
			zap.String("account_id", l.AccountID),
			zap.String("child_id", l.ChildID),
			zap.String("class_id", l.ClassID))
	}
}
