package domain

import "time"

// User is the public user record returned by profile endpoints.
type User struct {
	ID      int       `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Entries int64     `json:"entries"`
	Joined  time.Time `json:"joined"`
	Age     *int      `json:"age"`
	Pet     *string   `json:"pet"`
	Avatar  *string   `json:"avatar"`
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// SigninRequest is the body of POST /signin when no session header is sent.
type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by successful sign-in and registration.
type AuthResponse struct {
	Success bool   `json:"success"`
	UserID  int    `json:"userId"`
	Token   string `json:"token"`
}

// SessionResponse is returned by POST /signin when a session header is presented.
type SessionResponse struct {
	ID string `json:"id"`
}

// ProfileUpdateRequest is the body of PUT /profile/:id. The profile form posts
// every field as a string, so absent and blank fields both mean "unchanged" and
// Age accepts a number or a numeric string.
type ProfileUpdateRequest struct {
	Name   *string    `json:"name"`
	Age    FlexibleID `json:"age"`
	Pet    *string    `json:"pet"`
	Avatar *string    `json:"avatar"`
}

// ImageURLRequest is the body of POST /imageurl.
type ImageURLRequest struct {
	Input string `json:"input"`
}

// ImageRequest is the body of PUT /image. ID is a number in the front-end
// payload but older clients send it as a string.
type ImageRequest struct {
	ID FlexibleID `json:"id"`
}

// EntriesResponse is returned by PUT /image.
type EntriesResponse struct {
	Entries int64 `json:"entries"`
}
