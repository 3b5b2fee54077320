package models

// Actor is the authenticated principal behind a request. The set of
// implementations is closed: User and Admin.
type Actor interface {
	ActorID() int64
	DisplayName() string
	IsActive() bool
	IsAdmin() bool
	sealed()
}

// User is a marketplace member acting as buyer or seller.
type User struct {
	ID     int64
	Name   string
	Active bool
}

func (u User) ActorID() int64      { return u.ID }
func (u User) DisplayName() string { return u.Name }
func (u User) IsActive() bool      { return u.Active }
func (u User) IsAdmin() bool       { return false }
func (User) sealed()               {}

// Admin is a moderator account.
type Admin struct {
	ID        int64
	Name      string
	Suspended bool
}

func (a Admin) ActorID() int64      { return a.ID }
func (a Admin) DisplayName() string { return a.Name }
func (a Admin) IsActive() bool      { return !a.Suspended }
func (a Admin) IsAdmin() bool       { return true }
func (Admin) sealed()               {}

// NewActor builds the concrete actor for an identity role.
func NewActor(id int64, name, role string, active bool) Actor {
	if role == "admin" {
		return Admin{ID: id, Name: name, Suspended: !active}
	}
	return User{ID: id, Name: name, Active: active}
}
