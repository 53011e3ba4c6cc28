package model

// Teacher is the public view of a teacher profile.  Teachers are kept in
// their own collection; when one logs in they are materialized into an
// Account with RoleTeacher (see AsAccount).
type Teacher struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Username   string `json:"username"`
	Phone      string `json:"phone,omitempty"`
	PhoneError string `json:"phoneError,omitempty"`
	ClassID    string `json:"classId"`
	Approved   bool   `json:"approved"`
	PhotoURL   string `json:"photoUrl,omitempty"`
}

// AsAccount converts the teacher into the Account shape returned by login.
func (t Teacher) AsAccount() Account {
	return Account{
		ID:         t.ID,
		Username:   t.Username,
		Name:       t.Name,
		Role:       RoleTeacher,
		Phone:      t.Phone,
		PhoneError: t.PhoneError,
		ClassID:    t.ClassID,
		Approved:   t.Approved,
	}
}

// TeacherPatch carries the optional fields of a partial teacher update.
type TeacherPatch struct {
	Name     *string `json:"name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	ClassID  *string `json:"classId,omitempty"`
	Approved *bool   `json:"approved,omitempty"`
	PhotoURL *string `json:"photoUrl,omitempty"`
}

// NewTeacher is the input of teacher creation.
type NewTeacher struct {
	Name     string
	Username string
	Password string
	Phone    string
	ClassID  string
	Approved bool
	PhotoURL string
}
