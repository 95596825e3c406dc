package model

import "time"

// UserProfile is a signed-in user with their saved deals.
type UserProfile struct {
	ID                   string    `json:"id"`
	Email                string    `json:"email"`
	Name                 string    `json:"name"`
	Image                string    `json:"image,omitempty"`
	FavoriteDeals        []string  `json:"favoriteDeals"`
	NewsletterSubscribed bool      `json:"newsletterSubscribed"`
	CreatedAt            time.Time `json:"createdAt"`
}

// NewsletterSubscriber is one newsletter sign-up.
type NewsletterSubscriber struct {
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	SubscribedAt time.Time `json:"subscribedAt"`
	IsActive     bool      `json:"isActive"`
}
