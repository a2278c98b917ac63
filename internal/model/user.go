package model

// Gender is the enumerated gender stored on an account. It only drives the
// avatar placeholder; nothing else branches on it.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Valid reports whether g is one of the enumerated values.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// User represents a registered account.
//
// Email is the primary key of the account and of the user's task partition.
// It is compared case-sensitively: "A@x.io" and "a@x.io" are two accounts,
// exactly as two different storage keys would be.
//
// Password is kept in plaintext. Accounts live in a local, single-user store
// and the record format has to stay readable by the existing browser data.
type User struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Birth       string `json:"birth"` // YYYY-MM-DD, may be empty
	Gender      Gender `json:"gender"`
	Password    string `json:"password"`
	AvatarImage string `json:"avatarImage,omitempty"` // opaque data URL, empty when none
}

// Avatar describes what the view should draw for an identity: the uploaded
// image when there is one, otherwise a placeholder glyph.
type Avatar struct {
	Image       string `json:"image,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

// Profile is the read-only snapshot of the active identity handed to the
// view layer. It never carries the password.
type Profile struct {
	Guest  bool   `json:"guest"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Birth  string `json:"birth,omitempty"`
	Gender Gender `json:"gender,omitempty"`
	Avatar Avatar `json:"avatar"`
}

const (
	placeholderMale    = "👨"
	placeholderFemale  = "👩"
	placeholderNeutral = "👤"
)

// Profile builds the view snapshot for u.
func (u *User) Profile() Profile {
	p := Profile{
		Name:   u.Name,
		Email:  u.Email,
		Birth:  u.Birth,
		Gender: u.Gender,
	}
	if u.AvatarImage != "" {
		p.Avatar.Image = u.AvatarImage
		return p
	}
	switch u.Gender {
	case GenderMale:
		p.Avatar.Placeholder = placeholderMale
	case GenderFemale:
		p.Avatar.Placeholder = placeholderFemale
	default:
		p.Avatar.Placeholder = placeholderNeutral
	}
	return p
}

// GuestProfile is the snapshot shown when nobody is signed in.
func GuestProfile() Profile {
	return Profile{Guest: true, Avatar: Avatar{Placeholder: placeholderNeutral}}
}
