package config

import (
	"sync"

	"github.com/google/uuid"
)

var (
	ephemeralOnce sync.Once
	ephemeral     string
)

func ephemeralSecret() string {
	ephemeralOnce.Do(func() {
		ephemeral = uuid.NewString() + uuid.NewString()
	})
	return ephemeral
}
