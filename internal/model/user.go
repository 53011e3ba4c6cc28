package model

// Role names one of the four kinds of login-capable identity.  The
// values match the strings stored in the secure document and carried
// in the JWT "role" claim.
type Role string

const (
	RoleParent       Role = "parent"
	RoleAdmin        Role = "admin"
	RoleTeacher      Role = "teacher"
	RoleNutritionist Role = "nutritionist"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleParent, RoleAdmin, RoleTeacher, RoleNutritionist:
		return true
	}
	return false
}

// ClaimedChild is the child information a parent reports about
// themselves at registration or profile-edit time.  It is matched
// against staff-entered RegisteredChild records by the linker.
//
// Fields:
//  Name      – child's name as typed by the parent (trimmed before matching).
//  Age       – age in years, informational only.
//  ClassID   – class id; overwritten by the roster class on a match.
//  BirthDate – birth date string, compared verbatim (no parsing).
type ClaimedChild struct {
	Name      string `json:"name"`
	Age       int    `json:"age"`
	ClassID   string `json:"classId"`
	BirthDate string `json:"birthDate,omitempty"`
}

// HasMatchKey reports whether the claim carries both halves of the
// match key.  Claims without them are never matched.
func (c *ClaimedChild) HasMatchKey() bool {
	return c != nil && c.Name != "" && c.BirthDate != ""
}

// Account is the public view of a user record.  It deliberately has no
// credential field: the password hash lives only in the secure record
// owned by the credential store, so it cannot be serialized to callers
// through this type.  Phone is always plaintext here.
//
// Fields:
//  ID         – random unique identifier (uuid) or "1" for the seeded admin.
//  Username   – unique login name.
//  Name       – display name.
//  Role       – parent | admin | teacher | nutritionist.
//  Child      – claimed child (parents only).
//  Phone      – decrypted phone number.
//  PhoneError – set when the stored phone could not be decrypted.
//  ClassID    – current class assignment.
//  Approved   – non-admin accounts cannot log in until approved.
type Account struct {
	ID         string        `json:"id"`
	Username   string        `json:"username"`
	Name       string        `json:"name"`
	Role       Role          `json:"role"`
	Child      *ClaimedChild `json:"child,omitempty"`
	Phone      string        `json:"phone,omitempty"`
	PhoneError string        `json:"phoneError,omitempty"`
	ClassID    string        `json:"classId,omitempty"`
	Approved   bool          `json:"approved"`
}

// IsParent reports whether the account can take part in child linking.
func (a Account) IsParent() bool { return a.Role == RoleParent }

// AccountPatch carries the optional fields of a partial account update.
// Nil pointers leave the stored value unchanged.
type AccountPatch struct {
	Name     *string       `json:"name,omitempty"`
	Role     *Role         `json:"role,omitempty"`
	Child    *ClaimedChild `json:"child,omitempty"`
	Phone    *string       `json:"phone,omitempty"`
	ClassID  *string       `json:"classId,omitempty"`
	Approved *bool         `json:"approved,omitempty"`
}

// NewAccount is the input of account creation.  Password is plaintext
// and is hashed before it reaches the secure record.
type NewAccount struct {
	Username string
	Password string
	Name     string
	Role     Role
	Child    *ClaimedChild
	Phone    string
	ClassID  string
	Approved bool
}
