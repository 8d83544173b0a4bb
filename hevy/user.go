package hevy

// User is the identity returned by a successful login. Exactly one of
// Username and Email is populated, depending on which form of identifier the
// user logged in with.
type User struct {
	AuthToken string `json:"auth_token"`
	UserID    string `json:"user_id"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
}
