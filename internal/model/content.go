package model

// PostType enumerates the boards a post can belong to.
type PostType string

const (
	PostNotice PostType = "notice"
	PostEvent  PostType = "event"
	PostAlbum  PostType = "album"
	PostBoard  PostType = "board"
	PostMenu   PostType = "menu"
)

// Valid reports whether t is a known post type.
func (t PostType) Valid() bool {
	switch t {
	case PostNotice, PostEvent, PostAlbum, PostBoard, PostMenu:
		return true
	}
	return false
}

// Post is a notice, event, album, board or menu entry.  IDs are
// monotonic integers assigned by the content store; Date is the
// creation day (YYYY-MM-DD).  ParentID restricts a board entry
// (daily note) to a single parent account.
type Post struct {
	ID       int64    `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Author   string   `json:"author"`
	Date     string   `json:"date"`
	Type     PostType `json:"type"`
	ClassID  string   `json:"classId,omitempty"`
	ParentID string   `json:"parentId,omitempty"`
	Images   []string `json:"images,omitempty"`
}

// PostPatch carries the optional fields of a post update.
type PostPatch struct {
	Title    *string   `json:"title,omitempty"`
	Content  *string   `json:"content,omitempty"`
	Author   *string   `json:"author,omitempty"`
	Type     *PostType `json:"type,omitempty"`
	ClassID  *string   `json:"classId,omitempty"`
	ParentID *string   `json:"parentId,omitempty"`
	Images   []string  `json:"images,omitempty"`
}

// AlbumPhoto is a single photo in the album; ID is a monotonic integer.
type AlbumPhoto struct {
	ID      int64  `json:"id"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Date    string `json:"date"`
	ClassID string `json:"classId,omitempty"`
}

// ScheduleItem is one slot of a class's daily schedule.
type ScheduleItem struct {
	Time     string `json:"time"`
	Activity string `json:"activity"`
}

// ClassData describes a class (room) of the daycare center.
type ClassData struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Age         string         `json:"age"`
	Teacher     string         `json:"teacher"`
	Color       string         `json:"color"`
	Description string         `json:"description"`
	Schedule    []ScheduleItem `json:"schedule"`
}

// ClassPatch carries the optional fields of a class update.
type ClassPatch struct {
	Name        *string        `json:"name,omitempty"`
	Age         *string        `json:"age,omitempty"`
	Teacher     *string        `json:"teacher,omitempty"`
	Color       *string        `json:"color,omitempty"`
	Description *string        `json:"description,omitempty"`
	Schedule    []ScheduleItem `json:"schedule,omitempty"`
}

// HistoryEntry is one line of the center's history timeline.
type HistoryEntry struct {
	Year  string `json:"year"`
	Title string `json:"title"`
	Desc  string `json:"desc,omitempty"`
}

// Philosophy is one educational principle shown on the about page.
type Philosophy struct {
	Title string `json:"title"`
	Desc  string `json:"desc"`
}

// FacilityImage is a captioned picture of the facility.
type FacilityImage struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Desc  string `json:"desc,omitempty"`
}

// SiteSettings holds the editable site text and contact information.
type SiteSettings struct {
	Address           string          `json:"address"`
	Phone             string          `json:"phone"`
	Email             string          `json:"email"`
	MapLink           string          `json:"mapLink"`
	AboutDescription  string          `json:"aboutDescription"`
	History           []HistoryEntry  `json:"history"`
	GreetingTitle     string          `json:"greetingTitle"`
	GreetingMessage   string          `json:"greetingMessage"`
	GreetingImageURL  string          `json:"greetingImageUrl"`
	GreetingSignature string          `json:"greetingSignature"`
	Philosophy        []Philosophy    `json:"philosophy"`
	FacilityImages    []FacilityImage `json:"facilityImages"`
}
