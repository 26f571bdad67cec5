package questions

import (
	"math/rand"

	"github.com/bydlikbot/bydlik/internal/models"
)

// SelectSubject picks who a templated answer talks about. Every tag-opted
// member enters the pool twice and the bot once, giving humans a 2:1 edge
// that fades as more members opt in. An empty member list always yields the
// bot. A nil rng falls back to ambient randomness.
func SelectSubject(members []*models.User, rng *rand.Rand) models.Subject {
	pool := make([]models.Subject, 0, len(members)*2+1)
	for _, member := range members {
		subject := models.HumanSubject(member)
		pool = append(pool, subject, subject)
	}
	pool = append(pool, models.BotSubject())
	return pool[intn(rng, len(pool))]
}

func intn(rng *rand.Rand, n int) int {
	if rng != nil {
		return rng.Intn(n)
	}
	return rand.Intn(n)
}

func float(rng *rand.Rand) float64 {
	if rng != nil {
		return rng.Float64()
	}
	return rand.Float64()
}
