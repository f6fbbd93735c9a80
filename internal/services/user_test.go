package services

import (
	"github.com/SigNoz/skincare-shop/internal/models"
)

func (s *ServiceSuite) TestRegister() {
	resp, err := s.users.Register(s.ctx, models.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "secret"})
	s.Require().NoError(err)
	s.Require().NotEmpty(resp.UserID)
	s.Require().Equal("Ana", resp.Name)
	s.Require().Equal("ana@example.com", resp.Email)

	_, err = s.users.Register(s.ctx, models.RegisterRequest{Name: "Ana Again", Email: "ana@example.com", Password: "other"})
	s.Require().ErrorIs(err, ErrConflict)

	stored, err := s.store.FindUserByEmail(s.ctx, "ana@example.com")
	s.Require().NoError(err)
	s.Require().NotEqual("secret", stored.PasswordHash)
	s.Require().True(stored.IsActive)
}

func (s *ServiceSuite) TestRegister_Validation() {
	cases := []models.RegisterRequest{
		{Name: "", Email: "a@example.com", Password: "x"},
		{Name: "A", Email: "not-an-email", Password: "x"},
		{Name: "A", Email: "Ana <a@example.com>", Password: "x"},
		{Name: "A", Email: "a@example.com", Password: ""},
	}
	for _, req := range cases {
		_, err := s.users.Register(s.ctx, req)
		s.Require().ErrorIs(err, ErrValidation, "%+v", req)
	}
}

func (s *ServiceSuite) TestLogin() {
	reg, err := s.users.Register(s.ctx, models.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "secret"})
	s.Require().NoError(err)

	resp, err := s.users.Login(s.ctx, models.LoginRequest{Email: "ana@example.com", Password: "secret"})
	s.Require().NoError(err)
	s.Require().Equal(reg.UserID, resp.UserID)

	// wrong password and unknown email are indistinguishable
	_, errWrong := s.users.Login(s.ctx, models.LoginRequest{Email: "ana@example.com", Password: "nope"})
	_, errUnknown := s.users.Login(s.ctx, models.LoginRequest{Email: "bob@example.com", Password: "secret"})
	s.Require().ErrorIs(errWrong, ErrUnauthorized)
	s.Require().ErrorIs(errUnknown, ErrUnauthorized)
	s.Require().Equal(errWrong.Error(), errUnknown.Error())
}
