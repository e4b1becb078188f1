package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// AgeSuite covers the adulthood check applied to KYC dates of birth.
type AgeSuite struct {
	suite.Suite
}

func TestAgeSuite(t *testing.T) {
	suite.Run(t, new(AgeSuite))
}

func (s *AgeSuite) TestIsOver18() {
	dob := time.Date(2006, 3, 10, 0, 0, 0, 0, time.UTC)

	s.Run("on the 18th birthday", func() {
		s.True(IsOver18(dob, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
	})

	s.Run("the evening before", func() {
		s.False(IsOver18(dob, time.Date(2024, 3, 9, 22, 0, 0, 0, time.UTC)))
	})

	s.Run("leap day birth waits until March 1st", func() {
		leap := time.Date(2004, 2, 29, 0, 0, 0, 0, time.UTC)
		s.False(IsOver18(leap, time.Date(2022, 2, 28, 12, 0, 0, 0, time.UTC)))
		s.True(IsOver18(leap, time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)))
	})

	s.Run("non-UTC reference time", func() {
		tokyo := time.FixedZone("JST", 9*3600)
		// 2024-03-10 08:00 JST is still 2024-03-09 in UTC.
		s.False(IsOver18(dob, time.Date(2024, 3, 10, 8, 0, 0, 0, tokyo)))
	})
}

func (s *AgeSuite) TestAgeAt() {
	dob := time.Date(1990, 12, 10, 0, 0, 0, 0, time.UTC)

	s.Equal(35, AgeAt(dob, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	s.Equal(35, AgeAt(dob, time.Date(2026, 12, 9, 23, 59, 0, 0, time.UTC)))
	s.Equal(36, AgeAt(dob, time.Date(2026, 12, 10, 0, 0, 0, 0, time.UTC)))
	s.Equal(-1, AgeAt(dob, time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)))
}
