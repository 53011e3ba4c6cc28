package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/daycare-center/internal/metrics"
	"github.com/iliyamo/daycare-center/internal/model"
	"github.com/iliyamo/daycare-center/internal/utils"
)

// Credential failures.  The service layer folds both into a single
// "invalid credentials" answer so callers cannot probe for usernames.
var (
	ErrUnknownUsername = errors.New("unknown username")
	ErrWrongPassword   = errors.New("wrong password")
)

// phoneErrorText is reported in place of a phone that cannot be decrypted.
const phoneErrorText = "phone could not be decrypted"

// secureAccount is the stored form of an account.  It never leaves this
// package: projectAccount converts it to the public model.Account.
type secureAccount struct {
	ID           string              `json:"id"`
	Username     string              `json:"username"`
	PasswordHash string              `json:"passwordHash"`
	Name         string              `json:"name"`
	Role         model.Role          `json:"role"`
	Child        *model.ClaimedChild `json:"child,omitempty"`
	Phone        string              `json:"phone,omitempty"` // iv:ciphertext
	ClassID      string              `json:"classId,omitempty"`
	Approved     bool                `json:"approved"`
}

type secureTeacher struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
	Phone        string `json:"phone,omitempty"` // iv:ciphertext
	ClassID      string `json:"classId"`
	Approved     bool   `json:"approved"`
	PhotoURL     string `json:"photoUrl,omitempty"`
}

type secureData struct {
	Users    []secureAccount `json:"users"`
	Teachers []secureTeacher `json:"teachers"`
}

// SecureStore owns account and teacher credentials.  Passwords are kept
// only as salted PBKDF2 hashes and phone numbers only encrypted; every
// method returns public views.  All access is serialized by mu and each
// mutation rewrites the whole secure document.
type SecureStore struct {
	mu     sync.Mutex
	data   secureData
	sink   DocumentSink
	cipher *utils.PIICipher
	log    *zap.Logger
}

// NewSecureStore loads the secure document from sink.  When none exists
// yet the store is seeded with an approved "admin" account.  A document
// that exists but cannot be read or parsed is an error: seeding over it
// would destroy every credential on the next save.
func NewSecureStore(ctx context.Context, sink DocumentSink, cipher *utils.PIICipher, log *zap.Logger) (*SecureStore, error) {
	s := &SecureStore{sink: sink, cipher: cipher, log: log}
	body, err := sink.Load(ctx, SecureDocument)
	switch {
	case errors.Is(err, ErrDocumentNotFound):
		hash, err := utils.HashPassword("123")
		if err != nil {
			return nil, err
		}
		s.data = secureData{
			Users: []secureAccount{{
				ID:           "1",
				Username:     "admin",
				PasswordHash: hash,
				Name:         "관리자",
				Role:         model.RoleAdmin,
				Approved:     true,
			}},
			Teachers: []secureTeacher{},
		}
		log.Info("secure document not found, seeded default admin")
		s.persist(ctx)
	case err != nil:
		return nil, fmt.Errorf("load %s: %w", SecureDocument, err)
	default:
		if err := json.Unmarshal(body, &s.data); err != nil {
			return nil, fmt.Errorf("parse %s: %w", SecureDocument, err)
		}
	}
	return s, nil
}

// persist must be called with mu held.  Failures are logged, counted and
// swallowed: the in-memory state stays authoritative.
func (s *SecureStore) persist(ctx context.Context) {
	body, err := json.MarshalIndent(s.data, "", "  ")
	if err == nil {
		err = s.sink.Save(ctx, SecureDocument, body)
	}
	if err != nil {
		perr := &PersistenceError{Document: SecureDocument, Err: err}
		metrics.PersistenceFailures.WithLabelValues(SecureDocument).Inc()
		s.log.Error("persistence failed", zap.Error(perr))
	}
}

func (s *SecureStore) encryptPhone(phone string) (string, error) {
	if phone == "" {
		return "", nil
	}
	return s.cipher.Encrypt(phone)
}

// decryptPhone returns the plaintext phone, or an empty phone plus an
// error text when the stored value cannot be decrypted.
func (s *SecureStore) decryptPhone(stored, id string) (phone, phoneErr string) {
	if stored == "" {
		return "", ""
	}
	p, err := s.cipher.Decrypt(stored)
	if err != nil {
		s.log.Warn("phone decryption failed", zap.String("record_id", id), zap.Error(err))
		return "", phoneErrorText
	}
	return p, ""
}

func (s *SecureStore) projectAccount(u secureAccount) model.Account {
	a := model.Account{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Role:     u.Role,
		ClassID:  u.ClassID,
		Approved: u.Approved,
	}
	if u.Child != nil {
		c := *u.Child
		a.Child = &c
	}
	a.Phone, a.PhoneError = s.decryptPhone(u.Phone, u.ID)
	return a
}

func (s *SecureStore) projectTeacher(t secureTeacher) model.Teacher {
	out := model.Teacher{
		ID:       t.ID,
		Name:     t.Name,
		Username: t.Username,
		ClassID:  t.ClassID,
		Approved: t.Approved,
		PhotoURL: t.PhotoURL,
	}
	out.Phone, out.PhoneError = s.decryptPhone(t.Phone, t.ID)
	return out
}

func (s *SecureStore) usernameTaken(username string) bool {
	for _, u := range s.data.Users {
		if u.Username == username {
			return true
		}
	}
	for _, t := range s.data.Teachers {
		if t.Username == username {
			return true
		}
	}
	return false
}

func (s *SecureStore) userIndex(id string) int {
	for i, u := range s.data.Users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

func (s *SecureStore) teacherIndex(id string) int {
	for i, t := range s.data.Teachers {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// VerifyUser checks a username/password pair against the user
// collection.  It fails with ErrUnknownUsername or ErrWrongPassword.
// Approval is not checked here.
func (s *SecureStore) VerifyUser(username, password string) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.data.Users {
		if u.Username != username {
			continue
		}
		if !utils.VerifyPassword(u.PasswordHash, password) {
			return model.Account{}, ErrWrongPassword
		}
		return s.projectAccount(u), nil
	}
	return model.Account{}, ErrUnknownUsername
}

// VerifyTeacher is VerifyUser for the teacher collection.
func (s *SecureStore) VerifyTeacher(username, password string) (model.Teacher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.data.Teachers {
		if t.Username != username {
			continue
		}
		if !utils.VerifyPassword(t.PasswordHash, password) {
			return model.Teacher{}, ErrWrongPassword
		}
		return s.projectTeacher(t), nil
	}
	return model.Teacher{}, ErrUnknownUsername
}

// AddUser creates an account with a fresh uuid.  The password is hashed
// and the phone encrypted before they are stored.
func (s *SecureStore) AddUser(ctx context.Context, in model.NewAccount) (model.Account, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" {
		return model.Account{}, &ValidationError{Field: "username", Reason: "required"}
	}
	if in.Password == "" {
		return model.Account{}, &ValidationError{Field: "password", Reason: "required"}
	}
	if in.Role == "" {
		in.Role = model.RoleParent
	}
	if !in.Role.Valid() {
		return model.Account{}, &ValidationError{Field: "role", Reason: "unknown role " + string(in.Role)}
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return model.Account{}, fmt.Errorf("hash password: %w", err)
	}
	phone, err := s.encryptPhone(in.Phone)
	if err != nil {
		return model.Account{}, fmt.Errorf("encrypt phone: %w", err)
	}

	rec := secureAccount{
		ID:           uuid.NewString(),
		Username:     in.Username,
		PasswordHash: hash,
		Name:         in.Name,
		Role:         in.Role,
		Phone:        phone,
		ClassID:      in.ClassID,
		Approved:     in.Approved,
	}
	if in.Child != nil {
		c := *in.Child
		rec.Child = &c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usernameTaken(rec.Username) {
		return model.Account{}, ErrUsernameTaken
	}
	s.data.Users = append(s.data.Users, rec)
	s.persist(ctx)
	return s.projectAccount(rec), nil
}

// AddTeacher creates a teacher profile with login credentials.
func (s *SecureStore) AddTeacher(ctx context.Context, in model.NewTeacher) (model.Teacher, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" {
		return model.Teacher{}, &ValidationError{Field: "username", Reason: "required"}
	}
	if in.Password == "" {
		return model.Teacher{}, &ValidationError{Field: "password", Reason: "required"}
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return model.Teacher{}, fmt.Errorf("hash password: %w", err)
	}
	phone, err := s.encryptPhone(in.Phone)
	if err != nil {
		return model.Teacher{}, fmt.Errorf("encrypt phone: %w", err)
	}

	rec := secureTeacher{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Username:     in.Username,
		PasswordHash: hash,
		Phone:        phone,
		ClassID:      in.ClassID,
		Approved:     in.Approved,
		PhotoURL:     in.PhotoURL,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usernameTaken(rec.Username) {
		return model.Teacher{}, ErrUsernameTaken
	}
	s.data.Teachers = append(s.data.Teachers, rec)
	s.persist(ctx)
	return s.projectTeacher(rec), nil
}

// UpdatePassword replaces the password hash of a user, or of a teacher
// when isTeacher is set.
func (s *SecureStore) UpdatePassword(ctx context.Context, id, newPassword string, isTeacher bool) error {
	if newPassword == "" {
		return &ValidationError{Field: "password", Reason: "required"}
	}
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if isTeacher {
		i := s.teacherIndex(id)
		if i < 0 {
			return ErrNotFound
		}
		s.data.Teachers[i].PasswordHash = hash
	} else {
		i := s.userIndex(id)
		if i < 0 {
			return ErrNotFound
		}
		s.data.Users[i].PasswordHash = hash
	}
	s.persist(ctx)
	return nil
}

// UpdateUser applies the non-nil fields of patch.  An empty phone clears
// the stored phone.
func (s *SecureStore) UpdateUser(ctx context.Context, id string, patch model.AccountPatch) (model.Account, error) {
	if patch.Role != nil && !patch.Role.Valid() {
		return model.Account{}, &ValidationError{Field: "role", Reason: "unknown role " + string(*patch.Role)}
	}
	var phone string
	if patch.Phone != nil {
		enc, err := s.encryptPhone(*patch.Phone)
		if err != nil {
			return model.Account{}, fmt.Errorf("encrypt phone: %w", err)
		}
		phone = enc
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.userIndex(id)
	if i < 0 {
		return model.Account{}, ErrNotFound
	}
	u := &s.data.Users[i]
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if patch.Child != nil {
		c := *patch.Child
		u.Child = &c
	}
	if patch.Phone != nil {
		u.Phone = phone
	}
	if patch.ClassID != nil {
		u.ClassID = *patch.ClassID
	}
	if patch.Approved != nil {
		u.Approved = *patch.Approved
	}
	s.persist(ctx)
	return s.projectAccount(*u), nil
}

// UpdateTeacher applies the non-nil fields of patch.
func (s *SecureStore) UpdateTeacher(ctx context.Context, id string, patch model.TeacherPatch) (model.Teacher, error) {
	var phone string
	if patch.Phone != nil {
		enc, err := s.encryptPhone(*patch.Phone)
		if err != nil {
			return model.Teacher{}, fmt.Errorf("encrypt phone: %w", err)
		}
		phone = enc
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.teacherIndex(id)
	if i < 0 {
		return model.Teacher{}, ErrNotFound
	}
	t := &s.data.Teachers[i]
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Phone != nil {
		t.Phone = phone
	}
	if patch.ClassID != nil {
		t.ClassID = *patch.ClassID
	}
	if patch.Approved != nil {
		t.Approved = *patch.Approved
	}
	if patch.PhotoURL != nil {
		t.PhotoURL = *patch.PhotoURL
	}
	s.persist(ctx)
	return s.projectTeacher(*t), nil
}

func (s *SecureStore) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.userIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	s.data.Users = append(s.data.Users[:i], s.data.Users[i+1:]...)
	s.persist(ctx)
	return nil
}

func (s *SecureStore) DeleteTeacher(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.teacherIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	s.data.Teachers = append(s.data.Teachers[:i], s.data.Teachers[i+1:]...)
	s.persist(ctx)
	return nil
}

// Users lists every account in insertion order.  A record whose phone
// cannot be decrypted is still listed, with PhoneError set.
func (s *SecureStore) Users() []model.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Account, 0, len(s.data.Users))
	for _, u := range s.data.Users {
		out = append(out, s.projectAccount(u))
	}
	return out
}

// Teachers lists every teacher in insertion order.
func (s *SecureStore) Teachers() []model.Teacher {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Teacher, 0, len(s.data.Teachers))
	for _, t := range s.data.Teachers {
		out = append(out, s.projectTeacher(t))
	}
	return out
}

// User returns the account with id.
func (s *SecureStore) User(id string) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.userIndex(id)
	if i < 0 {
		return model.Account{}, ErrNotFound
	}
	return s.projectAccount(s.data.Users[i]), nil
}

// Teacher returns the teacher with id.
func (s *SecureStore) Teacher(id string) (model.Teacher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.teacherIndex(id)
	if i < 0 {
		return model.Teacher{}, ErrNotFound
	}
	return s.projectTeacher(s.data.Teachers[i]), nil
}
