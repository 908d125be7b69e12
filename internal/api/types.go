package api

// Canonical shapes for backend resources. The backend mixes camelCase and
// PascalCase keys; encoding/json matches either spelling to these tags.

// User is a Memora account.
type User struct {
	UID            string `json:"uid" yaml:"uid"`
	Username       string `json:"username" yaml:"username"`
	Email          string `json:"email" yaml:"email"`
	Role           string `json:"role" yaml:"role"`
	ProfilePicture string `json:"profilePicture,omitempty" yaml:"profile_picture,omitempty"`
	Bio            string `json:"bio,omitempty" yaml:"bio,omitempty"`
	Streak         int    `json:"currentStreak,omitempty" yaml:"streak,omitempty"`
}

func (u *User) validate() string {
	if u.Role == "" {
		return "role"
	}
	return ""
}

// Deck is a flashcard set.
type Deck struct {
	ID          string `json:"setId" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	IsPublic    bool   `json:"isPublic" yaml:"public"`
	OwnerID     string `json:"userId,omitempty" yaml:"owner_id,omitempty"`
	CardCount   int    `json:"cardCount,omitempty" yaml:"card_count,omitempty"`
}

func (d *Deck) validate() string {
	if d.ID == "" {
		return "setId"
	}
	return ""
}

// Key identifies the deck in a managed list.
func (d Deck) Key() string { return d.ID }

// Card is a single term/definition pair.
type Card struct {
	ID         string `json:"cardId" yaml:"id"`
	Term       string `json:"term" yaml:"term"`
	Definition string `json:"definition" yaml:"definition"`
}

func (c *Card) validate() string {
	if c.ID == "" {
		return "cardId"
	}
	return ""
}

// Key identifies the card in a managed list.
func (c Card) Key() string { return c.ID }

// Folder groups decks.
type Folder struct {
	ID          string   `json:"folderId" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	DeckIDs     []string `json:"setIds,omitempty" yaml:"deck_ids,omitempty"`
}

func (f *Folder) validate() string {
	if f.ID == "" {
		return "folderId"
	}
	return ""
}

// Key identifies the folder in a managed list.
func (f Folder) Key() string { return f.ID }

// Class is a teacher-owned group of students with assigned decks.
type Class struct {
	ID          string   `json:"classId" yaml:"id"`
	Name        string   `json:"className" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Code        string   `json:"classCode,omitempty" yaml:"code,omitempty"`
	TeacherID   string   `json:"teacherId,omitempty" yaml:"teacher_id,omitempty"`
	StudentIDs  []string `json:"studentIds,omitempty" yaml:"student_ids,omitempty"`
	DeckIDs     []string `json:"deckIds,omitempty" yaml:"deck_ids,omitempty"`
}

func (c *Class) validate() string {
	if c.ID == "" {
		return "classId"
	}
	return ""
}

// Key identifies the class in a managed list.
func (c Class) Key() string { return c.ID }

// Student is a class member as listed by /classes/{id}/students.
type Student struct {
	UID      string `json:"uid" yaml:"uid"`
	Username string `json:"username" yaml:"username"`
	Email    string `json:"email" yaml:"email"`
}

func (s *Student) validate() string {
	if s.UID == "" {
		return "uid"
	}
	return ""
}

// Key identifies the student in a managed list.
func (s Student) Key() string { return s.UID }
