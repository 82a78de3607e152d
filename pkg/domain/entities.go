// Package domain defines the persistent record kinds, their dict form, and the
// closed kind registry used to rebuild typed records from untyped documents.
package domain

import "time"

// Kind identifies the concrete type of a record. Its string form is the type
// name used in composite keys and in the `__class__` discriminator.
type Kind string

// Supported record kinds.
const (
	KindBaseModel Kind = "BaseModel"
	KindUser      Kind = "User"
	KindState     Kind = "State"
	KindCity      Kind = "City"
	KindAmenity   Kind = "Amenity"
	KindPlace     Kind = "Place"
	KindReview    Kind = "Review"
)

// Reserved dict-form keys shared by every record.
const (
	FieldClass     = "__class__"
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// Record is implemented by every concrete kind. The set is closed: the
// unexported field accessor keeps other packages from adding variants.
type Record interface {
	Kind() Kind
	Meta() *Base
	fields() []field
}

// Base contains identity, timestamps and attributes that are not typed fields
// of the concrete kind.
type Base struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Extra     map[string]any
}

// Meta exposes the shared record state.
func (b *Base) Meta() *Base { return b }

// BaseModel is the untyped record kind; it carries only Base state.
type BaseModel struct {
	Base
}

// User is an account holder.
type User struct {
	Base
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// State is a geographic state.
type State struct {
	Base
	Name string
}

// City belongs to a State.
type City struct {
	Base
	StateID string
	Name    string
}

// Amenity is a named facility offered by places.
type Amenity struct {
	Base
	Name string
}

// Place is a rentable listing.
type Place struct {
	Base
	CityID          string
	UserID          string
	Name            string
	Description     string
	NumberRooms     int
	NumberBathrooms int
	MaxGuest        int
	PriceByNight    int
	Latitude        float64
	Longitude       float64
	AmenityIDs      []string
}

// Review is a user's text about a place.
type Review struct {
	Base
	PlaceID string
	UserID  string
	Text    string
}

func (*BaseModel) Kind() Kind { return KindBaseModel }
func (*User) Kind() Kind      { return KindUser }
func (*State) Kind() Kind     { return KindState }
func (*City) Kind() Kind      { return KindCity }
func (*Amenity) Kind() Kind   { return KindAmenity }
func (*Place) Kind() Kind     { return KindPlace }
func (*Review) Kind() Kind    { return KindReview }

func (*BaseModel) fields() []field { return nil }

func (u *User) fields() []field {
	return []field{
		{name: "email", ptr: &u.Email},
		{name: "password", ptr: &u.Password},
		{name: "first_name", ptr: &u.FirstName},
		{name: "last_name", ptr: &u.LastName},
	}
}

func (s *State) fields() []field {
	return []field{{name: "name", ptr: &s.Name}}
}

func (c *City) fields() []field {
	return []field{
		{name: "state_id", ptr: &c.StateID},
		{name: "name", ptr: &c.Name},
	}
}

func (a *Amenity) fields() []field {
	return []field{{name: "name", ptr: &a.Name}}
}

func (p *Place) fields() []field {
	return []field{
		{name: "city_id", ptr: &p.CityID},
		{name: "user_id", ptr: &p.UserID},
		{name: "name", ptr: &p.Name},
		{name: "description", ptr: &p.Description},
		{name: "number_rooms", ptr: &p.NumberRooms},
		{name: "number_bathrooms", ptr: &p.NumberBathrooms},
		{name: "max_guest", ptr: &p.MaxGuest},
		{name: "price_by_night", ptr: &p.PriceByNight},
		{name: "latitude", ptr: &p.Latitude},
		{name: "longitude", ptr: &p.Longitude},
		{name: "amenity_ids", ptr: &p.AmenityIDs},
	}
}

func (r *Review) fields() []field {
	return []field{
		{name: "place_id", ptr: &r.PlaceID},
		{name: "user_id", ptr: &r.UserID},
		{name: "text", ptr: &r.Text},
	}
}

// Touch advances UpdatedAt to now, or one microsecond past its previous value
// when the clock has not moved far enough.
func Touch(r Record, now time.Time) {
	b := r.Meta()
	t := now.UTC().Truncate(time.Microsecond)
	if !t.After(b.UpdatedAt) {
		t = b.UpdatedAt.Add(time.Microsecond)
	}
	b.UpdatedAt = t
}
