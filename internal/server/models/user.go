package models

// UserProfile is the cached identity of the logged-in provider user.
type UserProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
