package presence

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type DirectoryTestSuite struct {
	suite.Suite
	dir      *Directory
	testTime time.Time
}

func (s *DirectoryTestSuite) SetupTest() {
	s.dir = New()
	s.testTime = time.Date(2025, 4, 19, 12, 0, 0, 0, time.UTC)
}

func TestDirectoryTestSuite(t *testing.T) {
	suite.Run(t, new(DirectoryTestSuite))
}

func (s *DirectoryTestSuite) TestJoinAndLeave() {
	s.dir.Join(Entry{ID: "b", Name: "Bea", JoinedAt: s.testTime.Add(time.Second)})
	s.dir.Join(Entry{ID: "a", Name: "Al", JoinedAt: s.testTime})

	online := s.dir.Online()
	s.Require().Len(online, 2)
	s.Equal("a", online[0].ID)
	s.Equal("b", online[1].ID)

	s.dir.Leave("a")
	s.dir.Leave("missing")

	online = s.dir.Online()
	s.Require().Len(online, 1)
	s.Equal("Bea", online[0].Name)

	stats := s.dir.Stats()
	s.Equal(uint64(2), stats.TotalPlayers)
	s.Equal(1, stats.OnlinePlayers)
}

func (s *DirectoryTestSuite) TestTotalPlayersIsMonotonic() {
	s.dir.Join(Entry{ID: "a", JoinedAt: s.testTime})
	s.dir.Join(Entry{ID: "a", JoinedAt: s.testTime})
	s.Equal(uint64(1), s.dir.Stats().TotalPlayers)

	s.dir.Leave("a")
	s.Equal(uint64(1), s.dir.Stats().TotalPlayers)

	s.dir.Join(Entry{ID: "a", JoinedAt: s.testTime})
	s.Equal(uint64(2), s.dir.Stats().TotalPlayers)
}

func (s *DirectoryTestSuite) TestSetScore() {
	s.dir.Join(Entry{ID: "a", JoinedAt: s.testTime})
	s.dir.SetScore("a", 320)
	s.dir.SetScore("ghost", 10)

	online := s.dir.Online()
	s.Require().Len(online, 1)
	s.Equal(int64(320), online[0].Score)
}

func (s *DirectoryTestSuite) TestRoomCreated() {
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.dir.RoomCreated()
		}()
	}
	wg.Wait()

	s.Equal(uint64(50), s.dir.Stats().RoomsCreated)
}
