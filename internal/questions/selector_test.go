package questions

import (
	"math/rand"
	"testing"

	"github.com/bydlikbot/bydlik/internal/models"
)

func TestSelectSubjectEmptyPoolYieldsBot(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		if s := SelectSubject(nil, rng); !s.IsBot() {
			t.Fatal("empty member list must always select the bot")
		}
	}
}

func TestSelectSubjectTwoToOneBias(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	user := &models.User{ID: 1, Username: "vasya", Tag: true}

	const draws = 30000
	human := 0
	for i := 0; i < draws; i++ {
		if s := SelectSubject([]*models.User{user}, rng); !s.IsBot() {
			human++
		}
	}

	// One opted-in user: pool is [user, user, bot], expect ~2/3 human.
	ratio := float64(human) / float64(draws)
	if ratio < 0.63 || ratio > 0.70 {
		t.Fatalf("human selection ratio %f outside expected band around 2/3", ratio)
	}
}

func TestSelectSubjectReturnsGivenUser(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	user := &models.User{ID: 9, Username: "petya", Tag: true}

	for i := 0; i < 100; i++ {
		s := SelectSubject([]*models.User{user}, rng)
		if !s.IsBot() && s.User.ID != 9 {
			t.Fatalf("selected unexpected user %+v", s.User)
		}
	}
}
