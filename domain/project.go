package domain

import "time"

// Project is a secret-gated container for one board. The secret key is the
// sole access credential and is never serialized into API responses.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SecretKey string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}
