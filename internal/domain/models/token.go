package models

import (
	"time"

	"github.com/graphbind/graphbind/pkg/constants"
)

// StoredToken is a per-user token record held in the token store.
type StoredToken struct {
	Provider    constants.IdentityProvider `json:"provider"`
	UserID      string                     `json:"userId"`
	AccessToken string                     `json:"accessToken"`
	ExpiresOn   time.Time                  `json:"expiresOn"`
}
