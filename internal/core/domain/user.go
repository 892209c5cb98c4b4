package domain

// User is immutable once created. Password is compared in plaintext.
type User struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
}
