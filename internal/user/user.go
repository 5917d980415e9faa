// Package user defines the user model used throughout the application,
// particularly for authentication, sessions and favorites ownership.
package user

// DefaultImageURL is stored for users who did not provide a profile image.
const DefaultImageURL = "https://icon-library.com/images/anonymous-person-icon/anonymous-person-icon-18.jpg"

// User represents a registered system user.
type User struct {
	// ID is the surrogate key generated by the storage on insert.
	ID int

	Email    string
	Username string

	// PasswordHash is the bcrypt hash of the password. The plaintext is never kept.
	PasswordHash string

	ImageURL string
}

// ImageURLOrDefault returns imageURL, or DefaultImageURL when it is empty.
func ImageURLOrDefault(imageURL string) string {
	if imageURL == "" {
		return DefaultImageURL
	}

	return imageURL
}
