package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "zeropass/pkg/domain-errors"
)

// LimitsSuite exercises the trust-boundary validators: max must pass and max+1 must fail.
type LimitsSuite struct {
	suite.Suite
}

func TestLimitsSuite(t *testing.T) {
	suite.Run(t, new(LimitsSuite))
}

func (s *LimitsSuite) TestCheckStringLength() {
	s.Run("passes at the limit", func() {
		s.NoError(CheckStringLength("payload", strings.Repeat("x", MaxPayloadLength), MaxPayloadLength))
	})

	s.Run("fails one past the limit", func() {
		err := CheckStringLength("payload", strings.Repeat("x", MaxPayloadLength+1), MaxPayloadLength)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "payload")
	})
}

func (s *LimitsSuite) TestCheckRequired() {
	s.NoError(CheckRequired("full_name", "Ada"))

	err := CheckRequired("full_name", "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal("full_name is required", err.Error())
}
