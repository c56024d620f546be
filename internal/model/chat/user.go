package chat

// User is the authenticated identity returned by the backend on login.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
