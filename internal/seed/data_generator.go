package seed

import (
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/team"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

// DataGenerator creates rosters and sides for tests and seeding.
type DataGenerator struct {
	faker *gofakeit.Faker
	seed  int64
}

// NewDataGenerator creates a generator with an optional seed; the same seed yields
// the same data.
func NewDataGenerator(seed ...int64) *DataGenerator {
	var s int64
	if len(seed) > 0 {
		s = seed[0]
	} else {
		s = time.Now().UnixNano()
	}
	return &DataGenerator{faker: gofakeit.New(uint64(s)), seed: s}
}

func (g *DataGenerator) Seed() int64 {
	return g.seed
}

// GenerateMembers builds a roster of size active members (first one captain) plus
// reserves.
func (g *DataGenerator) GenerateMembers(size, reserves int) []team.Member {
	members := make([]team.Member, 0, size+reserves)
	for i := 0; i < size+reserves; i++ {
		role := bracket.RolePlayer
		switch {
		case i == 0:
			role = bracket.RoleCaptain
		case i >= size:
			role = bracket.RoleReserve
		}
		members = append(members, team.Member{
			UserID: uuid.NewString(),
			Name:   g.faker.Username(),
			Role:   role,
			Rating: float64(g.faker.Number(800, 2800)),
		})
	}
	return members
}

// GenerateTeams creates count teams owned by ownerID with rosters sized for teamFormat.
func (g *DataGenerator) GenerateTeams(count int, teamFormat string, ownerID uuid.UUID) []team.Team {
	size := bracket.RosterSize(teamFormat)
	teams := make([]team.Team, count)
	for i := range teams {
		reserves := 0
		if size > 1 {
			reserves = g.faker.Number(0, 2)
		}
		name := g.faker.Company()
		if size == 1 {
			name = g.faker.Username()
		}
		teams[i] = team.Team{
			ID:            uuid.New(),
			Name:          name,
			OwnerID:       ownerID,
			MatchesPlayed: g.faker.Number(0, 50),
			CreatedAt:     time.Now().UTC(),
			Members:       g.GenerateMembers(size, reserves),
		}
	}
	return teams
}

// GenerateSides returns count side snapshots with distinct ratings.
func (g *DataGenerator) GenerateSides(count int, teamFormat string) []bracket.Side {
	teams := g.GenerateTeams(count, teamFormat, uuid.Nil)
	sides := make([]bracket.Side, len(teams))
	seen := make(map[float64]bool, count)
	for i := range teams {
		sides[i] = teams[i].Snapshot()
		for seen[sides[i].AvgRating] {
			sides[i].AvgRating += 0.5
		}
		seen[sides[i].AvgRating] = true
	}
	return sides
}

// GenerateMapPool picks n distinct map names.
func (g *DataGenerator) GenerateMapPool(n int) []string {
	pool := make([]string, 0, n)
	seen := make(map[string]bool, n)
	for len(pool) < n {
		name := g.faker.City()
		if seen[name] {
			continue
		}
		seen[name] = true
		pool = append(pool, name)
	}
	return pool
}
