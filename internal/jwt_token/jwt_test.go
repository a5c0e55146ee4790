package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "faceverify/pkg/domain-errors"
)

type JWTServiceSuite struct {
	suite.Suite
	svc *JWTService
}

func TestJWTServiceSuite(t *testing.T) {
	suite.Run(t, new(JWTServiceSuite))
}

func (s *JWTServiceSuite) SetupTest() {
	s.svc = NewJWTService("test-signing-key", "faceverify", "faceverify-api")
}

func (s *JWTServiceSuite) TestRoundTrip() {
	s.Run("issued token validates and carries the service", func() {
		token, err := s.svc.GenerateServiceToken("onboarding", time.Minute)
		s.Require().NoError(err)

		claims, err := s.svc.ValidateToken(token)
		s.Require().NoError(err)
		s.Equal("onboarding", claims.Service)
		s.NotEmpty(claims.ID)
	})

	s.Run("empty service is refused", func() {
		_, err := s.svc.GenerateServiceToken("  ", time.Minute)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *JWTServiceSuite) TestValidateRejects() {
	s.Run("expired token", func() {
		token, err := s.svc.GenerateServiceToken("onboarding", -time.Minute)
		s.Require().NoError(err)

		_, err = s.svc.ValidateToken(token)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Contains(err.Error(), "expired")
	})

	s.Run("token for another audience", func() {
		other := NewJWTService("test-signing-key", "faceverify", "billing-api")
		token, err := other.GenerateServiceToken("onboarding", time.Minute)
		s.Require().NoError(err)

		_, err = s.svc.ValidateToken(token)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("token signed with another key", func() {
		other := NewJWTService("other-key", "faceverify", "faceverify-api")
		token, err := other.GenerateServiceToken("onboarding", time.Minute)
		s.Require().NoError(err)

		_, err = s.svc.ValidateToken(token)
		s.Error(err)
	})

	s.Run("garbage", func() {
		_, err := s.svc.ValidateToken("not.a.jwt")
		s.Error(err)
	})
}

func (s *JWTServiceSuite) TestAdapter() {
	token, err := s.svc.GenerateServiceToken("onboarding", time.Minute)
	s.Require().NoError(err)

	claims, err := NewJWTServiceAdapter(s.svc).ValidateToken(token)
	s.Require().NoError(err)
	s.Equal("onboarding", claims.Service)
	s.NotEmpty(claims.JTI)
}
