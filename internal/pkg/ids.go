package pkg

import "github.com/google/uuid"

// GenerateNewSessionID - generates a new unique player session ID.
func GenerateNewSessionID() string {
	return uuid.NewString()
}

// GenerateGameID - generates a unique identifier for the game.
func GenerateGameID() string {
	return uuid.NewString()
}
