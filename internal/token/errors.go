package token

import "fmt"

// AuthError signals a failed OAuth2 client-credentials exchange: bad
// credentials, a non-2xx answer from the token endpoint, or a network
// failure reaching it. Status is zero when no HTTP response was seen.
type AuthError struct {
	Status int
	Body   string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("token exchange failed: status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("token exchange failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
